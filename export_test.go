package coursegrader

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExportWorkPDF(t *testing.T) {
	course := DefaultCourse()
	s := NewLearnerSession(sessionStart)
	s.SaveResponse("word_origins", "Philosophy is the love of wisdom, «philo» and «sophia».")
	require.NoError(t, s.SaveReflections(course, map[string]string{"big_question": "Is there meaning?"}))

	quiz, err := course.Quiz("philosophy_basics")
	require.NoError(t, err)
	result, err := ScoreQuiz(quiz, map[int]int{0: 1, 1: 0})
	require.NoError(t, err)
	s.RecordQuiz(result)

	graded, err := Score("ritual", []string{"ritual", "social glue"}, 0.5)
	require.NoError(t, err)
	s.RecordShortAnswer("durkheim", "ritual", graded, sessionStart)

	var buf bytes.Buffer
	require.NoError(t, s.ExportWorkPDF(&buf, course, DefaultPDFConfig, sessionStart))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))

	var empty bytes.Buffer
	require.NoError(t, NewLearnerSession(sessionStart).ExportWorkPDF(&empty, course, DefaultPDFConfig, sessionStart))
	assert.Greater(t, buf.Len(), empty.Len())
}

func TestExportWorkPDFEmptySession(t *testing.T) {
	var buf bytes.Buffer
	err := NewLearnerSession(sessionStart).ExportWorkPDF(&buf, DefaultCourse(), DefaultPDFConfig, sessionStart)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))
}
