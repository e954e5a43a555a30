package coursegrader

import "time"

// Course is the typed content of one lecture: slides, quizzes, short-answer
// rubrics and the supporting material around them.
type Course struct {
	ID                string        `json:"id"`
	Title             string        `json:"title"`
	Slides            []Slide       `json:"slides"`
	Quizzes           []Quiz        `json:"quizzes"`
	Rubrics           []Rubric      `json:"rubrics"`
	Philosophers      []Philosopher `json:"philosophers"`
	Resources         []Resource    `json:"resources"`
	Reflections       []Reflection  `json:"reflections"`
	PracticeQuestions []string      `json:"practice_questions"`
	Concepts          []string      `json:"concepts"`
}

// Slide is a single presentation slide. Content is markdown.
type Slide struct {
	ID               string `json:"id"`
	Title            string `json:"title"`
	Content          string `json:"content"`
	PresenterNotes   string `json:"presenter_notes,omitempty"`
	DiscussionPrompt string `json:"discussion_prompt,omitempty"`
	TimerMinutes     int    `json:"timer_minutes,omitempty"`
	ActivityType     string `json:"activity_type,omitempty"`
}

// Interactive reports whether learners can respond on this slide.
func (s Slide) Interactive() bool {
	return s.DiscussionPrompt != ""
}

// Quiz is a multiple choice quiz.
type Quiz struct {
	ID        string         `json:"id"`
	Title     string         `json:"title"`
	Questions []QuizQuestion `json:"questions"`
}

// QuizQuestion is a single multiple choice question
type QuizQuestion struct {
	Question    string   `json:"question"`
	Options     []string `json:"options"`
	Correct     int      `json:"correct"` // 0-based index
	Explanation string   `json:"explanation"`
}

// Rubric is an instructor-authored short-answer rubric: the prompt shown to
// learners plus the expected terms and pass threshold fed to Score.
type Rubric struct {
	ID        string   `json:"id"`
	Prompt    string   `json:"prompt"`
	Terms     []string `json:"terms"`
	// Threshold is optional; nil means DefaultPassThreshold.
	Threshold *float64 `json:"threshold,omitempty"`
}

// EffectiveThreshold returns the rubric threshold or the default.
func (r Rubric) EffectiveThreshold() float64 {
	if r.Threshold == nil {
		return DefaultPassThreshold
	}
	return *r.Threshold
}

// Request builds the grading request for an answer to this rubric.
func (r Rubric) Request(answer string) GradingRequest {
	return GradingRequest{Answer: answer, Terms: r.Terms, Threshold: r.Threshold}
}

// Philosopher is a historical figure available for roleplay.
type Philosopher struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Era       string `json:"era"`
	Tradition string `json:"tradition"`
	Persona   string `json:"persona"`
	Greeting  string `json:"greeting"`
}

// ResourceKind groups learning resources.
type ResourceKind string

const (
	ResourceVideo       ResourceKind = "video"
	ResourceArticle     ResourceKind = "article"
	ResourceInteractive ResourceKind = "interactive"
)

// Resource is an external learning resource.
type Resource struct {
	Kind        ResourceKind `json:"kind"`
	Title       string       `json:"title"`
	URL         string       `json:"url"`
	Description string       `json:"description"`
	Duration    string       `json:"duration,omitempty"`
}

// Reflection is a journaling prompt; Key names the answer in the session.
type Reflection struct {
	Key         string `json:"key"`
	Prompt      string `json:"prompt"`
	Placeholder string `json:"placeholder,omitempty"`
}

// QuizTier buckets a quiz percentage into a feedback band.
type QuizTier string

const (
	TierExcellent    QuizTier = "excellent"
	TierGood         QuizTier = "good"
	TierKeepStudying QuizTier = "keep_studying"
)

// QuestionOutcome is the graded result of one quiz question.
type QuestionOutcome struct {
	Number        int    `json:"number"` // 1-based
	Chosen        int    `json:"chosen"`
	Correct       bool   `json:"correct"`
	CorrectOption string `json:"correct_option"`
	Explanation   string `json:"explanation"`
}

// QuizResult is the graded result of a quiz submission.
type QuizResult struct {
	QuizID   string            `json:"quiz_id"`
	Outcomes []QuestionOutcome `json:"outcomes"`
	Correct  int               `json:"correct"`
	Total    int               `json:"total"`
	Percent  float64           `json:"percent"`
	Tier     QuizTier          `json:"tier"`
	Message  string            `json:"message"`
	Tip      string            `json:"tip,omitempty"`
}

// ShortAnswerRecord is a graded short answer kept in a learner session.
type ShortAnswerRecord struct {
	RubricID string        `json:"rubric_id"`
	Answer   string        `json:"answer"`
	Result   GradingResult `json:"result"`
	GradedAt time.Time     `json:"graded_at"`
}
