package biz

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apierrors "github.com/kart-io/evidence-x/pkg/errors"
	"github.com/kart-io/evidence-x/pkg/llm"
)

func TestGenerator_UsesGenerationParameters(t *testing.T) {
	chat := &fakeChat{respond: func(int, string) (string, error) { return "ANSWER: the first.", nil }}
	g := NewGenerator(chat, nil, DefaultGenerateConfig())

	answer, err := g.Generate(context.Background(), "When is rent due?", "CTX")
	require.NoError(t, err)
	assert.Equal(t, "ANSWER: the first.", answer)

	calls := chat.recorded()
	require.Len(t, calls, 1)
	require.NotNil(t, calls[0].opts.Temperature)
	assert.Equal(t, 0.1, *calls[0].opts.Temperature)
	assert.Equal(t, 1500, calls[0].opts.MaxTokens)
	assert.True(t, strings.HasPrefix(calls[0].prompt, defaultAnswerPrompt))
}

func TestGenerator_Failure(t *testing.T) {
	chat := &fakeChat{respond: func(int, string) (string, error) { return "", errors.New("upstream 500") }}
	_, err := NewGenerator(chat, nil, DefaultGenerateConfig()).Generate(context.Background(), "q", "c")
	assert.True(t, apierrors.IsCode(err, apierrors.ErrGenerationFailed.Code))
	assert.ErrorContains(t, err, "upstream 500")

	empty := &fakeChat{respond: func(int, string) (string, error) { return "  ", nil }}
	_, err = NewGenerator(empty, nil, DefaultGenerateConfig()).Generate(context.Background(), "q", "c")
	assert.True(t, apierrors.IsCode(err, apierrors.ErrGenerationFailed.Code))
}

func TestGenerator_NotConfigured(t *testing.T) {
	_, err := NewGenerator(nil, nil, DefaultGenerateConfig()).Generate(context.Background(), "q", "c")
	assert.ErrorIs(t, err, apierrors.ErrModelNotConfigured)
}

func TestGenerator_Timeout(t *testing.T) {
	chat := &fakeChat{respond: func(int, string) (string, error) { return "late", nil }}
	slow := &slowChat{fakeChat: chat, delay: time.Second}
	cfg := DefaultGenerateConfig()
	cfg.Timeout = 10 * time.Millisecond

	_, err := NewGenerator(slow, nil, cfg).Generate(context.Background(), "q", "c")
	assert.True(t, apierrors.IsCode(err, apierrors.ErrGenerationFailed.Code))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestGenerator_CallerCancelled(t *testing.T) {
	chat := &fakeChat{respond: func(int, string) (string, error) { return "x", nil }}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewGenerator(chat, nil, DefaultGenerateConfig()).Generate(ctx, "q", "c")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestVerifier(t *testing.T) {
	chat := &fakeChat{respond: func(int, string) (string, error) { return "  VERDICT: SUPPORTED\n", nil }}
	v := NewVerifier(chat, nil, DefaultVerifyConfig())

	assert.Equal(t, "VERDICT: SUPPORTED", v.Verify(context.Background(), "q", "a", "CTX"))

	calls := chat.recorded()
	require.Len(t, calls, 1)
	require.NotNil(t, calls[0].opts.Temperature)
	assert.Equal(t, 0.0, *calls[0].opts.Temperature)
	assert.Equal(t, 300, calls[0].opts.MaxTokens)
	assert.True(t, strings.HasSuffix(calls[0].prompt, "Question: q\nAnswer: a\nContext: CTX"))
}

func TestVerifier_DegradesToPlaceholder(t *testing.T) {
	chat := &fakeChat{respond: func(int, string) (string, error) { return "", errors.New("rate limited") }}
	got := NewVerifier(chat, nil, DefaultVerifyConfig()).Verify(context.Background(), "q", "a", "c")
	assert.Equal(t, VerificationUnavailablePrefix+"rate limited", got)

	assert.Equal(t, VerificationNotConfigured,
		NewVerifier(nil, nil, DefaultVerifyConfig()).Verify(context.Background(), "q", "a", "c"))
	assert.Equal(t, "Verification unavailable: language model credentials are not configured.", VerificationNotConfigured)
}

// slowChat delays every call until the delay passes or ctx ends.
type slowChat struct {
	*fakeChat
	delay time.Duration
}

func (s *slowChat) Generate(ctx context.Context, prompt, system string, opts ...llm.GenerateOption) (*llm.GenerateResponse, error) {
	select {
	case <-time.After(s.delay):
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return s.fakeChat.Generate(ctx, prompt, system, opts...)
}
