package coursegrader

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"unicode/utf8"

	openai "github.com/sashabaranov/go-openai"
)

// maxQuestionRunes bounds what a learner can send to the model in one turn.
const maxQuestionRunes = 1000

// Generator produces text from a system instruction and a prompt. It is the
// only way the application reaches a language model.
type Generator interface {
	Generate(ctx context.Context, system, prompt string) (string, error)
}

// OpenAIGenerator implements Generator with the OpenAI chat completion API.
type OpenAIGenerator struct {
	client *openai.Client
	model  string
}

// NewOpenAIGenerator creates a generator for the given key and model.
func NewOpenAIGenerator(apiKey, model string) *OpenAIGenerator {
	if model == "" {
		model = openai.GPT4o
	}
	return &OpenAIGenerator{
		client: openai.NewClient(apiKey),
		model:  model,
	}
}

// Generate runs a single-turn chat completion.
func (g *OpenAIGenerator) Generate(ctx context.Context, system, prompt string) (string, error) {
	resp, err := g.client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{
			Model: g.model,
			Messages: []openai.ChatCompletionMessage{
				{
					Role:    openai.ChatMessageRoleSystem,
					Content: system,
				},
				{
					Role:    openai.ChatMessageRoleUser,
					Content: prompt,
				},
			},
			MaxTokens: 400,
		},
	)
	if err != nil {
		return "", fmt.Errorf("failed to create chat completion: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response from %s", g.model)
	}
	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", fmt.Errorf("empty response from %s", g.model)
	}
	return text, nil
}

// Reply is what a learner sees from a roleplay turn.
type Reply struct {
	Philosopher string `json:"philosopher"`
	Text        string `json:"text"`
	Fallback    bool   `json:"fallback"`
}

// Roleplay lets learners put one question at a time to a historical
// philosopher. Generator may be nil, in which case every reply is the
// friendly fallback.
type Roleplay struct {
	course    *Course
	generator Generator
}

// NewRoleplay creates a roleplay over the course's philosophers.
func NewRoleplay(course *Course, generator Generator) *Roleplay {
	return &Roleplay{course: course, generator: generator}
}

// Ask puts question to the philosopher. Model failures never surface as
// errors; the learner gets a fallback reply and the failure is logged. The
// only errors are an unknown philosopher and a blank question.
func (rp *Roleplay) Ask(ctx context.Context, philosopherID, question string, logger *LLMLogger) (*Reply, error) {
	p, err := rp.course.Philosopher(philosopherID)
	if err != nil {
		return nil, err
	}

	question = truncateRunes(strings.TrimSpace(question), maxQuestionRunes)
	if question == "" {
		return nil, errors.New("question is empty")
	}

	system := rp.buildSystemPrompt(p)
	if rp.generator == nil {
		return &Reply{Philosopher: p.Name, Text: fallbackReply(p), Fallback: true}, nil
	}

	if logger != nil {
		logger.LogLLMRequest("Roleplay/"+p.ID, system+"\n\n"+question)
	}

	text, err := rp.generator.Generate(ctx, system, question)
	if err != nil {
		log.Printf("Roleplay with %s failed: %v", p.ID, err)
		if logger != nil {
			logger.LogFallback("Roleplay/"+p.ID, err)
		}
		return &Reply{Philosopher: p.Name, Text: fallbackReply(p), Fallback: true}, nil
	}

	if logger != nil {
		logger.LogLLMResponse("Roleplay/"+p.ID, text)
	}
	VerboseLog("Roleplay %s answered %d chars", p.ID, len(text))
	return &Reply{Philosopher: p.Name, Text: text}, nil
}

func (rp *Roleplay) buildSystemPrompt(p *Philosopher) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("You are %s (%s), speaking from the tradition of %s.\n", p.Name, p.Era, p.Tradition))
	sb.WriteString(p.Persona)
	sb.WriteString("\n\n")
	sb.WriteString(fmt.Sprintf("You are talking with a student in the course \"%s\".\n", rp.course.Title))
	sb.WriteString("Guidelines:\n")
	sb.WriteString("- Stay in character and speak in the first person\n")
	sb.WriteString("- Keep answers under 150 words\n")
	sb.WriteString("- Be respectful toward every religious and philosophical tradition\n")
	sb.WriteString("- If asked about events after your lifetime, say you cannot know them\n")
	sb.WriteString("- End with one question that invites the student to think further\n")

	return sb.String()
}

func fallbackReply(p *Philosopher) string {
	return fmt.Sprintf("%s %s is lost in thought right now. Try asking again in a moment.", p.Greeting, p.Name)
}

// Feedback asks the model for encouraging feedback on a reflection. It
// never fails; without a working generator it returns a generic
// acknowledgement.
func Feedback(ctx context.Context, generator Generator, response, topic string, logger *LLMLogger) string {
	placeholder := fmt.Sprintf("Thank you for your thoughtful response about %s. Your insights show good engagement with the material.", topic)
	response = truncateRunes(strings.TrimSpace(response), maxQuestionRunes*2)
	if generator == nil || response == "" {
		return placeholder
	}

	system := "You are a supportive philosophy and religion instructor. Give brief, specific, encouraging feedback on a student's reflection in 2-3 sentences. Point out one strength and one idea to explore further."
	prompt := fmt.Sprintf("Topic: %s\n\nStudent reflection:\n%s", topic, response)

	if logger != nil {
		logger.LogLLMRequest("Feedback", prompt)
	}
	text, err := generator.Generate(ctx, system, prompt)
	if err != nil {
		log.Printf("Feedback generation failed: %v", err)
		if logger != nil {
			logger.LogFallback("Feedback", err)
		}
		return placeholder
	}
	if logger != nil {
		logger.LogLLMResponse("Feedback", text)
	}
	return text
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n])
}
