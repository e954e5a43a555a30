package coursegrader

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGenerator struct {
	reply   string
	err     error
	systems []string
	prompts []string
}

func (f *fakeGenerator) Generate(_ context.Context, system, prompt string) (string, error) {
	f.systems = append(f.systems, system)
	f.prompts = append(f.prompts, prompt)
	return f.reply, f.err
}

func TestRoleplayAsk(t *testing.T) {
	gen := &fakeGenerator{reply: "Let us examine that together. What do you mean by wisdom?"}
	rp := NewRoleplay(DefaultCourse(), gen)

	reply, err := rp.Ask(context.Background(), "socrates", "  What is wisdom?  ", nil)
	require.NoError(t, err)
	assert.Equal(t, "Socrates", reply.Philosopher)
	assert.Equal(t, gen.reply, reply.Text)
	assert.False(t, reply.Fallback)

	require.Len(t, gen.prompts, 1)
	assert.Equal(t, "What is wisdom?", gen.prompts[0])
	assert.Contains(t, gen.systems[0], "You are Socrates")
	assert.Contains(t, gen.systems[0], DefaultCourse().Title)
}

func TestRoleplayFallback(t *testing.T) {
	course := DefaultCourse()
	tillich, err := course.Philosopher("tillich")
	require.NoError(t, err)

	for name, gen := range map[string]Generator{
		"no generator":    nil,
		"generator error": &fakeGenerator{err: errors.New("rate limited")},
	} {
		t.Run(name, func(t *testing.T) {
			reply, err := NewRoleplay(course, gen).Ask(context.Background(), "tillich", "What is faith?", nil)
			require.NoError(t, err)
			assert.True(t, reply.Fallback)
			assert.True(t, strings.HasPrefix(reply.Text, tillich.Greeting))
			assert.Contains(t, reply.Text, "lost in thought")
		})
	}
}

func TestRoleplayErrors(t *testing.T) {
	rp := NewRoleplay(DefaultCourse(), &fakeGenerator{reply: "hi"})

	_, err := rp.Ask(context.Background(), "kant", "Hello?", nil)
	assert.ErrorIs(t, err, ErrPhilosopherNotFound)

	_, err = rp.Ask(context.Background(), "plato", " \n ", nil)
	assert.ErrorContains(t, err, "question is empty")
}

func TestRoleplayTruncatesQuestion(t *testing.T) {
	gen := &fakeGenerator{reply: "ok"}
	rp := NewRoleplay(DefaultCourse(), gen)

	_, err := rp.Ask(context.Background(), "plato", strings.Repeat("é", maxQuestionRunes+50), nil)
	require.NoError(t, err)
	assert.Equal(t, maxQuestionRunes, len([]rune(gen.prompts[0])))
}

func TestFeedback(t *testing.T) {
	ctx := context.Background()
	placeholder := "Thank you for your thoughtful response about ritual. Your insights show good engagement with the material."

	assert.Equal(t, placeholder, Feedback(ctx, nil, "Rituals bind people.", "ritual", nil))
	assert.Equal(t, placeholder, Feedback(ctx, &fakeGenerator{reply: "x"}, "  ", "ritual", nil))
	assert.Equal(t, placeholder, Feedback(ctx, &fakeGenerator{err: errors.New("down")}, "Rituals bind people.", "ritual", nil))

	gen := &fakeGenerator{reply: "Nice point about community."}
	assert.Equal(t, "Nice point about community.", Feedback(ctx, gen, "Rituals bind people.", "ritual", nil))
	assert.Contains(t, gen.prompts[0], "Topic: ritual")
	assert.Contains(t, gen.prompts[0], "Rituals bind people.")
}

func TestLLMLoggerTranscript(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "log")
	logger, err := NewLLMLogger(dir, "session-123")
	require.NoError(t, err)

	rp := NewRoleplay(DefaultCourse(), &fakeGenerator{reply: "Society is sacred."})
	_, err = rp.Ask(context.Background(), "durkheim", "What is religion?", logger)
	require.NoError(t, err)

	rp = NewRoleplay(DefaultCourse(), &fakeGenerator{err: errors.New("timeout")})
	_, err = rp.Ask(context.Background(), "durkheim", "And ritual?", logger)
	require.NoError(t, err)

	require.NoError(t, logger.Close())
	require.NoError(t, logger.Close())
	logger.Logf("after close is dropped\n")

	data, err := os.ReadFile(filepath.Join(dir, "session-123.log"))
	require.NoError(t, err)
	transcript := string(data)
	assert.Contains(t, transcript, "Session: session-123")
	assert.Contains(t, transcript, "LLM REQUEST (Roleplay/durkheim)")
	assert.Contains(t, transcript, "Society is sacred.")
	assert.Contains(t, transcript, "FALLBACK (Roleplay/durkheim) === timeout")
	assert.Contains(t, transcript, "Transcript closed")
	assert.NotContains(t, transcript, "after close")
}
