package coursegrader

import (
	"errors"
	"fmt"
)

// ErrIncompleteQuiz is returned when a submission leaves questions unanswered.
var ErrIncompleteQuiz = errors.New("all questions must be answered")

const reviewDefinitionsTip = "Review the slide content and try the quiz again. Focus on understanding the key differences between Durkheim, Tylor, and Tillich's definitions."

// ScoreQuiz grades a multiple choice submission. answers maps the 0-based
// question index to the 0-based chosen option. An option outside the
// question's range is simply wrong.
func ScoreQuiz(quiz *Quiz, answers map[int]int) (*QuizResult, error) {
	for i := range quiz.Questions {
		if _, ok := answers[i]; !ok {
			return nil, fmt.Errorf("%w: question %d of quiz %s", ErrIncompleteQuiz, i+1, quiz.ID)
		}
	}

	result := &QuizResult{
		QuizID:   quiz.ID,
		Outcomes: make([]QuestionOutcome, 0, len(quiz.Questions)),
		Total:    len(quiz.Questions),
	}

	for i, q := range quiz.Questions {
		chosen := answers[i]
		outcome := QuestionOutcome{
			Number:        i + 1,
			Chosen:        chosen,
			Correct:       chosen == q.Correct,
			CorrectOption: q.Options[q.Correct],
			Explanation:   q.Explanation,
		}
		if outcome.Correct {
			result.Correct++
		}
		result.Outcomes = append(result.Outcomes, outcome)
	}

	if result.Total > 0 {
		result.Percent = float64(result.Correct) / float64(result.Total) * 100
	}

	switch {
	case result.Percent >= 80:
		result.Tier = TierExcellent
		result.Message = fmt.Sprintf("Excellent work! Score: %d/%d (%.0f%%)", result.Correct, result.Total, result.Percent)
	case result.Percent >= 60:
		result.Tier = TierGood
		result.Message = fmt.Sprintf("Good job! Score: %d/%d (%.0f%%)", result.Correct, result.Total, result.Percent)
	default:
		result.Tier = TierKeepStudying
		result.Message = fmt.Sprintf("Keep studying! Score: %d/%d (%.0f%%)", result.Correct, result.Total, result.Percent)
		result.Tip = reviewDefinitionsTip
	}

	VerboseLog("Quiz %s scored %d/%d (%s)", quiz.ID, result.Correct, result.Total, result.Tier)
	return result, nil
}
