package coursegrader

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

// responsePrefix keys discussion responses by slide, e.g. "response_word_origins".
const responsePrefix = "response_"

// LearnerSession is the per-learner state of one visit: where they are in
// the deck, the running activity timer and everything they have written or
// scored. The caller owns it; nothing in this package keeps one globally.
type LearnerSession struct {
	ID           string              `json:"id"`
	CurrentSlide int                 `json:"current_slide"`
	TimerEnd     time.Time           `json:"timer_end,omitempty"`
	Responses    map[string]string   `json:"responses"`
	Reflections  map[string]string   `json:"reflections"`
	QuizAttempts map[string]int      `json:"quiz_attempts"`
	QuizScores   map[string]float64  `json:"quiz_scores"` // latest percent per quiz
	ShortAnswers []ShortAnswerRecord `json:"short_answers"`
	CreatedAt    time.Time           `json:"created_at"`
}

// NewLearnerSession starts a session on the first slide.
func NewLearnerSession(now time.Time) *LearnerSession {
	return &LearnerSession{
		ID:           uuid.NewString(),
		Responses:    make(map[string]string),
		Reflections:  make(map[string]string),
		QuizAttempts: make(map[string]int),
		QuizScores:   make(map[string]float64),
		CreatedAt:    now,
	}
}

// ensureMaps fills maps that a decoded session may be missing.
func (s *LearnerSession) ensureMaps() {
	if s.Responses == nil {
		s.Responses = make(map[string]string)
	}
	if s.Reflections == nil {
		s.Reflections = make(map[string]string)
	}
	if s.QuizAttempts == nil {
		s.QuizAttempts = make(map[string]int)
	}
	if s.QuizScores == nil {
		s.QuizScores = make(map[string]float64)
	}
}

// Next advances one slide; it stays put on the last slide.
func (s *LearnerSession) Next(total int) int {
	if s.CurrentSlide < total-1 {
		s.CurrentSlide++
	}
	return s.CurrentSlide
}

// Prev goes back one slide; it stays put on the first slide.
func (s *LearnerSession) Prev() int {
	if s.CurrentSlide > 0 {
		s.CurrentSlide--
	}
	return s.CurrentSlide
}

// GoTo jumps to 0-based slide i.
func (s *LearnerSession) GoTo(i, total int) error {
	if i < 0 || i >= total {
		return fmt.Errorf("%w: %d of %d", ErrSlideOutOfRange, i+1, total)
	}
	s.CurrentSlide = i
	return nil
}

// StartTimer starts (or restarts) the activity countdown.
func (s *LearnerSession) StartTimer(minutes int, now time.Time) error {
	if minutes <= 0 {
		return fmt.Errorf("timer needs a positive duration, got %d minutes", minutes)
	}
	s.TimerEnd = now.Add(time.Duration(minutes) * time.Minute)
	return nil
}

// TimerStatus is a snapshot of the activity countdown.
type TimerStatus struct {
	Active    bool   `json:"active"`
	Remaining int    `json:"remaining_seconds"`
	Display   string `json:"display"` // mm:ss
	Expired   bool   `json:"expired"`
}

// Timer reports the countdown at now. Once the deadline passes the timer is
// reported expired a single time and then cleared.
func (s *LearnerSession) Timer(now time.Time) TimerStatus {
	if s.TimerEnd.IsZero() {
		return TimerStatus{Display: "00:00"}
	}
	remaining := int(s.TimerEnd.Sub(now) / time.Second)
	if remaining <= 0 {
		s.TimerEnd = time.Time{}
		return TimerStatus{Display: "00:00", Expired: true}
	}
	return TimerStatus{
		Active:    true,
		Remaining: remaining,
		Display:   fmt.Sprintf("%02d:%02d", remaining/60, remaining%60),
	}
}

// SaveResponse stores a discussion response for a slide. Blank text is
// ignored and reported as false.
func (s *LearnerSession) SaveResponse(slideID, text string) bool {
	if strings.TrimSpace(text) == "" {
		return false
	}
	s.ensureMaps()
	s.Responses[responsePrefix+slideID] = text
	return true
}

// DiscussionResponses returns slide id -> response.
func (s *LearnerSession) DiscussionResponses() map[string]string {
	out := make(map[string]string)
	for key, text := range s.Responses {
		if slideID, ok := strings.CutPrefix(key, responsePrefix); ok {
			out[slideID] = text
		}
	}
	return out
}

// SaveReflections merges reflection answers keyed by reflection key. Keys
// not in the course are rejected so typos do not silently vanish.
func (s *LearnerSession) SaveReflections(course *Course, answers map[string]string) error {
	s.ensureMaps()
	known := lo.SliceToMap(course.Reflections, func(r Reflection) (string, bool) {
		return r.Key, true
	})
	for key := range answers {
		if !known[key] {
			return fmt.Errorf("unknown reflection %q", key)
		}
	}
	for key, text := range answers {
		s.Reflections[key] = text
	}
	return nil
}

// RecordQuiz counts an attempt and keeps the latest score.
func (s *LearnerSession) RecordQuiz(result *QuizResult) {
	s.ensureMaps()
	s.QuizAttempts[result.QuizID]++
	s.QuizScores[result.QuizID] = result.Percent
}

// RecordShortAnswer keeps a graded short answer.
func (s *LearnerSession) RecordShortAnswer(rubricID, answer string, result *GradingResult, now time.Time) {
	s.ShortAnswers = append(s.ShortAnswers, ShortAnswerRecord{
		RubricID: rubricID,
		Answer:   answer,
		Result:   *result,
		GradedAt: now,
	})
}

// Progress is the learner's engagement summary.
type Progress struct {
	QuizzesCompleted int     `json:"quizzes_completed"`
	QuizzesTotal     int     `json:"quizzes_total"`
	Percent          float64 `json:"percent"`
	Responses        int     `json:"responses"`
	ShortAnswers     int     `json:"short_answers"`
	Recommendation   string  `json:"recommendation"`
}

// Progress summarizes quiz completion against the course.
func (s *LearnerSession) Progress(course *Course) Progress {
	completed := lo.CountBy(course.Quizzes, func(q Quiz) bool {
		return s.QuizAttempts[q.ID] > 0
	})
	p := Progress{
		QuizzesCompleted: completed,
		QuizzesTotal:     len(course.Quizzes),
		Responses:        len(s.Responses) + len(s.Reflections),
		ShortAnswers:     len(s.ShortAnswers),
	}
	if p.QuizzesTotal > 0 {
		p.Percent = float64(completed) / float64(p.QuizzesTotal) * 100
	}

	switch {
	case p.Percent < 50:
		p.Recommendation = "Complete the quizzes to test your understanding!"
	case p.Percent < 100:
		p.Recommendation = "Review any quiz questions you missed and check out the resources page!"
	default:
		p.Recommendation = "Great work! You've engaged with all the materials. Ready for Day 2!"
	}
	return p
}

// WorkSummary is the exported record of a learner's work.
type WorkSummary struct {
	SessionID    string              `json:"session_id"`
	Responses    map[string]string   `json:"student_responses"`
	Reflections  map[string]string   `json:"reflections"`
	QuizAttempts map[string]int      `json:"quiz_attempts"`
	QuizScores   map[string]float64  `json:"quiz_scores"`
	ShortAnswers []ShortAnswerRecord `json:"short_answers"`
	Timestamp    time.Time           `json:"timestamp"`
}

// Summary snapshots the session for export.
func (s *LearnerSession) Summary(now time.Time) WorkSummary {
	s.ensureMaps()
	return WorkSummary{
		SessionID:    s.ID,
		Responses:    s.Responses,
		Reflections:  s.Reflections,
		QuizAttempts: s.QuizAttempts,
		QuizScores:   s.QuizScores,
		ShortAnswers: s.ShortAnswers,
		Timestamp:    now,
	}
}

// ExportFilename is the download name for an export of course courseID made
// at now, e.g. "phl101_day1_progress_20260903.json" for "phl101-day1".
func ExportFilename(courseID string, now time.Time, ext string) string {
	prefix := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return unicode.ToLower(r)
		}
		return '_'
	}, courseID)
	if prefix == "" {
		prefix = "course"
	}
	return fmt.Sprintf("%s_progress_%s.%s", prefix, now.Format("20060102"), ext)
}

// ExportWork renders the session as indented JSON.
func (s *LearnerSession) ExportWork(now time.Time) ([]byte, error) {
	data, err := json.MarshalIndent(s.Summary(now), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal work summary: %w", err)
	}
	return data, nil
}
