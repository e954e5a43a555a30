package coursegrader

import (
	"errors"
	"fmt"
	"strings"
)

// DefaultPassThreshold is used when a rubric does not set its own threshold.
const DefaultPassThreshold = 0.6

// ErrInvalidThreshold is returned when a pass threshold falls outside [0, 1].
var ErrInvalidThreshold = errors.New("invalid threshold")

// GradingRequest is one short-answer grading attempt: a captured answer plus
// the instructor's expected terms and pass threshold.
type GradingRequest struct {
	Answer string   `json:"answer"`
	Terms  []string `json:"terms"`
	// Threshold is optional on the wire; nil means DefaultPassThreshold.
	Threshold *float64 `json:"threshold,omitempty"`
}

// GradingResult reports which expected terms were found in an answer.
type GradingResult struct {
	Matched          []string `json:"matched"`
	MatchedCount     int      `json:"matchedCount"`
	TotalCount       int      `json:"totalCount"`
	CoverageFraction float64  `json:"coverageFraction"`
	Passed           bool     `json:"passed"`
}

// ValidateThreshold reports ErrInvalidThreshold unless t is in [0, 1].
func ValidateThreshold(t float64) error {
	// written as a negated range check so NaN is rejected too
	if !(t >= 0 && t <= 1) {
		return fmt.Errorf("%w: %v is outside [0, 1]", ErrInvalidThreshold, t)
	}
	return nil
}

// Score grades studentAnswer against expectedTerms using case-insensitive
// substring containment.
//
// Terms are trimmed before comparison and blank terms never match, but every
// term, blank or duplicated, counts toward TotalCount. A single occurrence in
// the answer satisfies every duplicate of a term. TotalCount is never below 1
// so an empty term list scores 0 rather than dividing by zero.
//
// Score is pure and safe for concurrent use; it does no logging.
func Score(studentAnswer string, expectedTerms []string, passThreshold float64) (*GradingResult, error) {
	if err := ValidateThreshold(passThreshold); err != nil {
		return nil, err
	}

	result := &GradingResult{
		Matched:    make([]string, 0, len(expectedTerms)),
		TotalCount: max(1, len(expectedTerms)),
	}

	answer := strings.ToLower(studentAnswer)
	if strings.TrimSpace(answer) != "" {
		for _, term := range expectedTerms {
			needle := strings.TrimSpace(term)
			if needle == "" {
				continue
			}
			if strings.Contains(answer, strings.ToLower(needle)) {
				result.Matched = append(result.Matched, term)
			}
		}
	}

	result.MatchedCount = len(result.Matched)
	result.CoverageFraction = float64(result.MatchedCount) / float64(result.TotalCount)
	result.Passed = result.CoverageFraction >= passThreshold
	return result, nil
}

// EffectiveThreshold returns the request threshold or the default.
func (r GradingRequest) EffectiveThreshold() float64 {
	if r.Threshold == nil {
		return DefaultPassThreshold
	}
	return *r.Threshold
}

// Grade scores the request.
func (r GradingRequest) Grade() (*GradingResult, error) {
	return Score(r.Answer, r.Terms, r.EffectiveThreshold())
}

// Missing lists the request terms absent from result, in request order.
// Blank terms are left out since they can never be supplied by a learner.
func (r GradingRequest) Missing(result *GradingResult) []string {
	found := make(map[string]int, len(result.Matched))
	for _, m := range result.Matched {
		found[m]++
	}

	var missing []string
	for _, term := range r.Terms {
		if strings.TrimSpace(term) == "" {
			continue
		}
		if found[term] > 0 {
			found[term]--
			continue
		}
		missing = append(missing, term)
	}
	return missing
}
