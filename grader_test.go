package coursegrader

import (
	"bytes"
	"encoding/json"
	"errors"
	"log"
	"math"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var religionTerms = []string{"social glue", "ritual", "spiritual beings"}

func thresholdOf(v float64) *float64 {
	return &v
}

func TestScoreScenarios(t *testing.T) {
	tests := []struct {
		name      string
		answer    string
		terms     []string
		threshold float64
		matched   []string
		total     int
		fraction  float64
		passed    bool
	}{
		{
			name:      "one of three",
			answer:    "Religion is the social glue that holds us together.",
			terms:     religionTerms,
			threshold: 0.6,
			matched:   []string{"social glue"},
			total:     3,
			fraction:  1.0 / 3.0,
			passed:    false,
		},
		{
			name:      "full coverage",
			answer:    "Durkheim says religion is social glue created through ritual and belief in spiritual beings.",
			terms:     religionTerms,
			threshold: 0.6,
			matched:   religionTerms,
			total:     3,
			fraction:  1,
			passed:    true,
		},
		{
			name:      "empty answer",
			answer:    "",
			terms:     []string{"social glue"},
			threshold: 0.1,
			matched:   []string{},
			total:     1,
			fraction:  0,
			passed:    false,
		},
		{
			name:      "containment not whole word",
			answer:    "I love rituals",
			terms:     []string{"ritual"},
			threshold: 0.5,
			matched:   []string{"ritual"},
			total:     1,
			fraction:  1,
			passed:    true,
		},
		{
			name:      "duplicates both count",
			answer:    "ritual",
			terms:     []string{"ritual", "ritual"},
			threshold: 0.5,
			matched:   []string{"ritual", "ritual"},
			total:     2,
			fraction:  1,
			passed:    true,
		},
		{
			name:      "no terms",
			answer:    "x",
			terms:     []string{},
			threshold: 0.5,
			matched:   []string{},
			total:     1,
			fraction:  0,
			passed:    false,
		},
		{
			name:      "nil terms",
			answer:    "x",
			terms:     nil,
			threshold: 0.5,
			matched:   []string{},
			total:     1,
			fraction:  0,
			passed:    false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := Score(tt.answer, tt.terms, tt.threshold)
			require.NoError(t, err)
			assert.Equal(t, tt.matched, result.Matched)
			assert.Equal(t, len(tt.matched), result.MatchedCount)
			assert.Equal(t, tt.total, result.TotalCount)
			assert.InDelta(t, tt.fraction, result.CoverageFraction, 1e-12)
			assert.Equal(t, tt.passed, result.Passed)
		})
	}
}

func TestScoreWhitespaceAnswerMatchesNothing(t *testing.T) {
	for _, answer := range []string{"", " ", "\t\n  "} {
		for _, threshold := range []float64{0.01, 0.5, 1} {
			result, err := Score(answer, religionTerms, threshold)
			require.NoError(t, err)
			assert.Zero(t, result.MatchedCount)
			assert.Empty(t, result.Matched)
			assert.Equal(t, 3, result.TotalCount)
			assert.False(t, result.Passed)
		}
	}
}

func TestScoreFullCoveragePassesEveryThreshold(t *testing.T) {
	answer := "SOCIAL GLUE, Ritual and Spiritual Beings"
	for _, threshold := range []float64{0, 0.25, 0.6, 0.999, 1} {
		result, err := Score(answer, religionTerms, threshold)
		require.NoError(t, err)
		assert.Equal(t, 1.0, result.CoverageFraction)
		assert.True(t, result.Passed, "threshold %v", threshold)
	}
}

func TestScoreMonotonic(t *testing.T) {
	base, err := Score("ritual matters", religionTerms, 0.5)
	require.NoError(t, err)

	repeated, err := Score("ritual matters, ritual ritual ritual", religionTerms, 0.5)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, repeated.CoverageFraction, base.CoverageFraction)

	moreTerms := append(append([]string{}, religionTerms...), "ultimate concern")
	widened, err := Score("ritual matters", moreTerms, 0.5)
	require.NoError(t, err)
	assert.LessOrEqual(t, widened.CoverageFraction, base.CoverageFraction)
	assert.Equal(t, base.MatchedCount, widened.MatchedCount)
	assert.Equal(t, base.TotalCount+1, widened.TotalCount)
}

func TestScoreThresholdBoundary(t *testing.T) {
	answer := "social glue and ritual"
	twoThirds := 2.0 / 3.0

	tests := []struct {
		threshold float64
		passed    bool
	}{
		{twoThirds, true},
		{math.Nextafter(twoThirds, 0), true},
		{math.Nextafter(twoThirds, 1), false},
		{0.666, true},
		{0.667, false},
		{0.668, false},
	}

	for _, tt := range tests {
		result, err := Score(answer, religionTerms, tt.threshold)
		require.NoError(t, err)
		assert.Equal(t, 2, result.MatchedCount)
		assert.Equal(t, twoThirds, result.CoverageFraction)
		assert.Equal(t, tt.passed, result.Passed, "threshold %v", tt.threshold)
		assert.Equal(t, result.CoverageFraction >= tt.threshold, result.Passed)
	}
}

func TestScoreCaseInsensitive(t *testing.T) {
	result, err := Score("Social Glue binds us", []string{"social glue"}, 0.5)
	require.NoError(t, err)
	assert.Equal(t, []string{"social glue"}, result.Matched)

	result, err = Score("SOCIAL GLUE", []string{"Social Glue"}, 0.5)
	require.NoError(t, err)
	assert.Equal(t, []string{"Social Glue"}, result.Matched)
	assert.True(t, result.Passed)
}

func TestScoreBlankTermsNeverMatch(t *testing.T) {
	result, err := Score("anything", []string{"", "  ", "ritual"}, 0.5)
	require.NoError(t, err)
	assert.Empty(t, result.Matched)
	assert.Zero(t, result.MatchedCount)
	assert.Equal(t, 3, result.TotalCount)
	assert.False(t, result.Passed)

	result, err = Score("a ritual", []string{"", "  ", "ritual"}, 0.3)
	require.NoError(t, err)
	assert.Equal(t, []string{"ritual"}, result.Matched)
	assert.InDelta(t, 1.0/3.0, result.CoverageFraction, 1e-12)
	assert.True(t, result.Passed)
}

func TestScoreKeepsOriginalTermText(t *testing.T) {
	terms := []string{"  Ritual  ", "spiritual beings"}
	result, err := Score("ritual and SPIRITUAL BEINGS", terms, 0.5)
	require.NoError(t, err)
	assert.Equal(t, terms, result.Matched)
}

func TestScoreInvalidThreshold(t *testing.T) {
	for _, threshold := range []float64{1.5, -0.1, math.NaN(), math.Inf(1)} {
		result, err := Score("x", []string{"x"}, threshold)
		assert.Nil(t, result)
		assert.True(t, errors.Is(err, ErrInvalidThreshold), "threshold %v: %v", threshold, err)
	}

	for _, threshold := range []float64{0, 1} {
		_, err := Score("x", []string{"x"}, threshold)
		assert.NoError(t, err)
	}
}

func TestGradingRequestWireFormat(t *testing.T) {
	var req GradingRequest
	require.NoError(t, json.Unmarshal([]byte(`{"answer":"Ritual binds","terms":["ritual","social glue"]}`), &req))
	assert.Equal(t, DefaultPassThreshold, req.EffectiveThreshold())

	result, err := req.Grade()
	require.NoError(t, err)

	data, err := json.Marshal(result)
	require.NoError(t, err)
	assert.JSONEq(t, `{"matched":["ritual"],"matchedCount":1,"totalCount":2,"coverageFraction":0.5,"passed":false}`, string(data))

	require.NoError(t, json.Unmarshal([]byte(`{"answer":"Ritual binds","terms":["ritual","social glue"],"threshold":0.5}`), &req))
	result, err = req.Grade()
	require.NoError(t, err)
	assert.True(t, result.Passed)
}

func TestGradingRequestMissing(t *testing.T) {
	req := GradingRequest{
		Answer: "ritual",
		Terms:  []string{"ritual", "", "social glue", "ritual", "spiritual beings"},
	}
	result, err := req.Grade()
	require.NoError(t, err)
	assert.Equal(t, []string{"social glue", "spiritual beings"}, req.Missing(result))
}

func TestScoreDoesNotLog(t *testing.T) {
	var buf bytes.Buffer
	log.SetOutput(&buf)
	SetVerbose(true)
	t.Cleanup(func() {
		log.SetOutput(os.Stderr)
		SetVerbose(false)
	})

	_, err := Score("social glue and ritual", religionTerms, 0.6)
	require.NoError(t, err)
	_, err = Score("x", []string{"x"}, 2)
	require.Error(t, err)
	assert.Empty(t, buf.String())
}
