package coursegrader

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/samber/lo"
)

var (
	ErrSlideOutOfRange     = errors.New("slide out of range")
	ErrQuizNotFound        = errors.New("quiz not found")
	ErrRubricNotFound      = errors.New("rubric not found")
	ErrPhilosopherNotFound = errors.New("philosopher not found")
)

//go:embed content/phl101.json
var defaultCourseData []byte

var (
	defaultCourseOnce sync.Once
	defaultCourse     *Course
)

// DefaultCourse returns the embedded PHL 101 Day 1 course. The embedded file
// is part of the binary, so a parse or validation failure is a build defect
// and panics.
func DefaultCourse() *Course {
	defaultCourseOnce.Do(func() {
		course, err := LoadCourse(bytes.NewReader(defaultCourseData))
		if err != nil {
			panic(fmt.Sprintf("coursegrader: load embedded course: %v", err))
		}
		defaultCourse = course
	})
	return defaultCourse
}

// LoadCourseFile loads and validates a course from a JSON file.
func LoadCourseFile(path string) (*Course, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open course file: %w", err)
	}
	defer f.Close()
	return LoadCourse(f)
}

// LoadCourse decodes and validates a course.
func LoadCourse(r io.Reader) (*Course, error) {
	var course Course
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&course); err != nil {
		return nil, fmt.Errorf("failed to parse course: %w", err)
	}
	if err := course.Validate(); err != nil {
		return nil, err
	}
	return &course, nil
}

// Validate checks the authoring rules: unique IDs, well formed quizzes and
// rubric thresholds inside [0, 1]. All problems are reported together.
func (c *Course) Validate() error {
	var errs []error

	if len(c.Slides) == 0 {
		errs = append(errs, errors.New("course has no slides"))
	}

	seen := make(map[string]bool)
	for i, s := range c.Slides {
		if s.ID == "" {
			errs = append(errs, fmt.Errorf("slide %d: missing id", i+1))
		} else if seen[s.ID] {
			errs = append(errs, fmt.Errorf("slide %s: duplicate id", s.ID))
		}
		seen[s.ID] = true
		if s.TimerMinutes < 0 {
			errs = append(errs, fmt.Errorf("slide %s: negative timer", s.ID))
		}
	}

	seen = make(map[string]bool)
	for _, q := range c.Quizzes {
		if q.ID == "" || seen[q.ID] {
			errs = append(errs, fmt.Errorf("quiz %q: missing or duplicate id", q.ID))
		}
		seen[q.ID] = true
		if len(q.Questions) == 0 {
			errs = append(errs, fmt.Errorf("quiz %s: no questions", q.ID))
		}
		for i, question := range q.Questions {
			if len(question.Options) < 2 {
				errs = append(errs, fmt.Errorf("quiz %s question %d: needs at least 2 options", q.ID, i+1))
			}
			if question.Correct < 0 || question.Correct >= len(question.Options) {
				errs = append(errs, fmt.Errorf("quiz %s question %d: correct index %d out of range", q.ID, i+1, question.Correct))
			}
		}
	}

	seen = make(map[string]bool)
	for _, r := range c.Rubrics {
		if err := r.Validate(); err != nil {
			errs = append(errs, err)
		}
		if seen[r.ID] {
			errs = append(errs, fmt.Errorf("rubric %s: duplicate id", r.ID))
		}
		seen[r.ID] = true
	}

	seen = make(map[string]bool)
	for _, p := range c.Philosophers {
		if p.ID == "" || seen[p.ID] {
			errs = append(errs, fmt.Errorf("philosopher %q: missing or duplicate id", p.ID))
		}
		seen[p.ID] = true
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid course %q: %w", c.ID, errors.Join(errs...))
	}
	return nil
}

// Validate rejects rubrics that could never grade sensibly. Blank terms are
// an authoring mistake but Score tolerates them, so only an all-blank list is
// refused here.
func (r Rubric) Validate() error {
	if r.ID == "" {
		return errors.New("rubric: missing id")
	}
	if err := ValidateThreshold(r.EffectiveThreshold()); err != nil {
		return fmt.Errorf("rubric %s: %w", r.ID, err)
	}
	for _, term := range r.Terms {
		if strings.TrimSpace(term) != "" {
			return nil
		}
	}
	return fmt.Errorf("rubric %s: no expected terms", r.ID)
}

// Slide returns the slide at 0-based index i.
func (c *Course) Slide(i int) (*Slide, error) {
	if i < 0 || i >= len(c.Slides) {
		return nil, fmt.Errorf("%w: %d of %d", ErrSlideOutOfRange, i+1, len(c.Slides))
	}
	return &c.Slides[i], nil
}

// SlideByID returns the slide with the given id, or nil.
func (c *Course) SlideByID(id string) *Slide {
	for i := range c.Slides {
		if c.Slides[i].ID == id {
			return &c.Slides[i]
		}
	}
	return nil
}

// Quiz looks up a quiz by id.
func (c *Course) Quiz(id string) (*Quiz, error) {
	for i := range c.Quizzes {
		if c.Quizzes[i].ID == id {
			return &c.Quizzes[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrQuizNotFound, id)
}

// Rubric looks up a rubric by id.
func (c *Course) Rubric(id string) (*Rubric, error) {
	for i := range c.Rubrics {
		if c.Rubrics[i].ID == id {
			return &c.Rubrics[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrRubricNotFound, id)
}

// Philosopher looks up a philosopher by id.
func (c *Course) Philosopher(id string) (*Philosopher, error) {
	for i := range c.Philosophers {
		if c.Philosophers[i].ID == id {
			return &c.Philosophers[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrPhilosopherNotFound, id)
}

// ResourcesByKind returns the resources of one kind in authoring order.
func (c *Course) ResourcesByKind(kind ResourceKind) []Resource {
	return lo.Filter(c.Resources, func(r Resource, _ int) bool {
		return r.Kind == kind
	})
}
