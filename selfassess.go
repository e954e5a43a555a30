package coursegrader

import (
	"errors"
	"fmt"

	"github.com/samber/lo"
)

// ErrInvalidRating is returned for a self-assessment rating outside 1..5.
var ErrInvalidRating = errors.New("rating must be between 1 and 5")

const (
	minRating     = 1
	maxRating     = 5
	defaultRating = 3
	lowRating     = 2
)

// SelfAssessment summarizes a learner's ratings of their own understanding.
type SelfAssessment struct {
	Ratings  map[string]int `json:"ratings"`
	Average  float64        `json:"average"`
	Message  string         `json:"message"`
	LowAreas []string       `json:"low_areas,omitempty"`
}

// AssessSelf averages the ratings for concepts. A concept with no rating
// counts as the slider's middle value; ratings for unknown concepts are
// ignored.
func AssessSelf(concepts []string, ratings map[string]int) (*SelfAssessment, error) {
	if len(concepts) == 0 {
		return nil, errors.New("no concepts to assess")
	}

	resolved := make(map[string]int, len(concepts))
	sum := 0
	for _, concept := range concepts {
		rating, ok := ratings[concept]
		if !ok {
			rating = defaultRating
		}
		if rating < minRating || rating > maxRating {
			return nil, fmt.Errorf("%w: %q rated %d", ErrInvalidRating, concept, rating)
		}
		resolved[concept] = rating
		sum += rating
	}

	avg := float64(sum) / float64(len(concepts))
	sa := &SelfAssessment{
		Ratings: resolved,
		Average: avg,
		LowAreas: lo.Filter(concepts, func(c string, _ int) bool {
			return resolved[c] <= lowRating
		}),
	}

	switch {
	case avg >= 4.5:
		sa.Message = "Excellent! You have a strong grasp of the material."
	case avg >= 4.0:
		sa.Message = "Very good understanding! Keep up the great work."
	case avg >= 3.0:
		sa.Message = "Good foundation, but review areas where you rated 3 or below."
	default:
		sa.Message = "Spend more time with the materials and consider visiting office hours for help."
	}
	return sa, nil
}
