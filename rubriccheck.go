package coursegrader

import (
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

// SampleOutcome is the verdict on one sample answer.
type SampleOutcome struct {
	Sample     Sample         `json:"sample"`
	Result     *GradingResult `json:"result,omitempty"`
	Missing    []string       `json:"missing,omitempty"`
	Regression bool           `json:"regression"`
}

// CheckReport is the result of checking every sample against its rubric.
type CheckReport struct {
	Run      CheckRun          `json:"run"`
	Outcomes []SampleOutcome   `json:"outcomes"`
	Invalid  map[string]string `json:"invalid,omitempty"` // rubric id -> problem
	Orphans  []Sample          `json:"orphans,omitempty"` // samples without a rubric
}

// Regressions returns the outcomes whose verdict differs from the
// instructor's expectation.
func (r *CheckReport) Regressions() []SampleOutcome {
	return lo.Filter(r.Outcomes, func(o SampleOutcome, _ int) bool {
		return o.Regression
	})
}

// OK reports whether the run found nothing to fix.
func (r *CheckReport) OK() bool {
	return r.Run.Regressions == 0 && r.Run.Invalid == 0 && len(r.Orphans) == 0
}

// CheckRubrics grades every sample with its rubric. An invalid rubric is
// reported and its samples skipped; the rest of the run continues.
func CheckRubrics(rubrics []Rubric, samples []Sample, now time.Time) *CheckReport {
	report := &CheckReport{
		Run: CheckRun{
			ID:        uuid.NewString(),
			StartedAt: now,
		},
		Invalid: make(map[string]string),
	}

	byID := lo.KeyBy(rubrics, func(r Rubric) string { return r.ID })
	for _, r := range rubrics {
		if err := r.Validate(); err != nil {
			report.Invalid[r.ID] = err.Error()
		}
	}

	for _, s := range samples {
		r, ok := byID[s.RubricID]
		if !ok {
			report.Orphans = append(report.Orphans, s)
			continue
		}
		if _, bad := report.Invalid[r.ID]; bad {
			continue
		}

		req := r.Request(s.Answer)
		result, err := req.Grade()
		if err != nil {
			// Validate already caught bad thresholds; keep going regardless.
			report.Invalid[r.ID] = err.Error()
			continue
		}

		outcome := SampleOutcome{
			Sample:     s,
			Result:     result,
			Missing:    req.Missing(result),
			Regression: result.Passed != s.ExpectPass,
		}
		report.Outcomes = append(report.Outcomes, outcome)
		report.Run.Checked++
		VerboseLog("Rubric %s sample %d: %d/%d terms, passed=%t",
			r.ID, s.ID, result.MatchedCount, result.TotalCount, result.Passed)
		if outcome.Regression {
			report.Run.Regressions++
			log.Printf("Rubric %s sample %d: expected passed=%t, got %d/%d (%.2f)",
				r.ID, s.ID, s.ExpectPass, result.MatchedCount, result.TotalCount, result.CoverageFraction)
		}
	}

	report.Run.Invalid = len(report.Invalid)
	log.Printf("Rubric check %s: %d samples checked, %d regressions, %d invalid rubrics",
		report.Run.ID, report.Run.Checked, report.Run.Regressions, report.Run.Invalid)
	return report
}

// CheckRubricDB runs CheckRubrics over the database contents and records
// the run.
func CheckRubricDB(rdb *RubricDB, now time.Time) (*CheckReport, error) {
	rubrics, err := rdb.GetRubrics()
	if err != nil {
		return nil, err
	}
	samples, err := rdb.GetSamples()
	if err != nil {
		return nil, err
	}

	report := CheckRubrics(rubrics, samples, now)
	if err := rdb.RecordRun(report.Run); err != nil {
		return nil, fmt.Errorf("failed to record check run: %w", err)
	}
	return report, nil
}
