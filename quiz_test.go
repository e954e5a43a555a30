package coursegrader

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScoreQuizTiers(t *testing.T) {
	quiz, err := DefaultCourse().Quiz("definitions_quiz")
	require.NoError(t, err)

	tests := []struct {
		name    string
		answers map[int]int
		correct int
		tier    QuizTier
		message string
		tip     bool
	}{
		{"all correct", map[int]int{0: 1, 1: 2, 2: 2, 3: 1}, 4, TierExcellent, "Excellent work! Score: 4/4 (100%)", false},
		{"three of four", map[int]int{0: 1, 1: 2, 2: 2, 3: 0}, 3, TierGood, "Good job! Score: 3/4 (75%)", false},
		{"two of four", map[int]int{0: 1, 1: 2, 2: 0, 3: 0}, 2, TierKeepStudying, "Keep studying! Score: 2/4 (50%)", true},
		{"none", map[int]int{0: 0, 1: 0, 2: 0, 3: 0}, 0, TierKeepStudying, "Keep studying! Score: 0/4 (0%)", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := ScoreQuiz(quiz, tt.answers)
			require.NoError(t, err)
			assert.Equal(t, "definitions_quiz", result.QuizID)
			assert.Equal(t, tt.correct, result.Correct)
			assert.Equal(t, 4, result.Total)
			assert.Equal(t, tt.tier, result.Tier)
			assert.Equal(t, tt.message, result.Message)
			assert.Equal(t, tt.tip, result.Tip != "")
			assert.Len(t, result.Outcomes, 4)
		})
	}
}

func TestScoreQuizOutcomes(t *testing.T) {
	quiz := &Quiz{
		ID: "q",
		Questions: []QuizQuestion{
			{Question: "a?", Options: []string{"x", "y"}, Correct: 1, Explanation: "because y"},
			{Question: "b?", Options: []string{"x", "y"}, Correct: 0},
		},
	}

	result, err := ScoreQuiz(quiz, map[int]int{0: 0, 1: 7})
	require.NoError(t, err)
	assert.Equal(t, 0, result.Correct)

	first := result.Outcomes[0]
	assert.Equal(t, 1, first.Number)
	assert.False(t, first.Correct)
	assert.Equal(t, "y", first.CorrectOption)
	assert.Equal(t, "because y", first.Explanation)

	// out of range choices are wrong, not errors
	assert.Equal(t, 7, result.Outcomes[1].Chosen)
	assert.False(t, result.Outcomes[1].Correct)
}

func TestScoreQuizIncomplete(t *testing.T) {
	quiz, err := DefaultCourse().Quiz("philosophy_basics")
	require.NoError(t, err)

	_, err = ScoreQuiz(quiz, map[int]int{0: 1})
	assert.ErrorIs(t, err, ErrIncompleteQuiz)
	assert.ErrorContains(t, err, "question 2")
}
