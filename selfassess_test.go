package coursegrader

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssessSelf(t *testing.T) {
	concepts := []string{"etymology", "durkheim", "tylor", "tillich"}

	tests := []struct {
		name    string
		ratings map[string]int
		average float64
		message string
		low     []string
	}{
		{"all fives", map[string]int{"etymology": 5, "durkheim": 5, "tylor": 5, "tillich": 5}, 5, "Excellent!", nil},
		{"solid", map[string]int{"etymology": 4, "durkheim": 4, "tylor": 4, "tillich": 5}, 4.25, "Very good understanding!", nil},
		{"defaults to middle", map[string]int{}, 3, "Good foundation", nil},
		{"struggling", map[string]int{"etymology": 1, "durkheim": 2, "tylor": 3, "tillich": 2}, 2, "office hours", []string{"etymology", "durkheim", "tillich"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sa, err := AssessSelf(concepts, tt.ratings)
			require.NoError(t, err)
			assert.InDelta(t, tt.average, sa.Average, 1e-9)
			assert.Contains(t, sa.Message, tt.message)
			assert.Len(t, sa.Ratings, len(concepts))
			if tt.low == nil {
				assert.Empty(t, sa.LowAreas)
			} else {
				assert.Equal(t, tt.low, sa.LowAreas)
			}
		})
	}
}

func TestAssessSelfIgnoresUnknownConcepts(t *testing.T) {
	sa, err := AssessSelf([]string{"a"}, map[string]int{"a": 4, "zzz": 9})
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"a": 4}, sa.Ratings)
}

func TestAssessSelfErrors(t *testing.T) {
	_, err := AssessSelf(nil, nil)
	assert.Error(t, err)

	_, err = AssessSelf([]string{"a"}, map[string]int{"a": 0})
	assert.ErrorIs(t, err, ErrInvalidRating)

	_, err = AssessSelf([]string{"a"}, map[string]int{"a": 6})
	assert.ErrorIs(t, err, ErrInvalidRating)
}
