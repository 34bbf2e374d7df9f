package biz

import (
	"context"
	"strings"
	"time"

	"github.com/kart-io/logger"

	"github.com/kart-io/evidence-x/pkg/errors"
	"github.com/kart-io/evidence-x/pkg/infra/tracing"
	"github.com/kart-io/evidence-x/pkg/llm"
)

// CallConfig holds the decoding parameters and timeout of one model call site.
type CallConfig struct {
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
}

// DefaultGenerateConfig returns the answer generation parameters.
func DefaultGenerateConfig() CallConfig {
	return CallConfig{Temperature: 0.1, MaxTokens: 1500, Timeout: 90 * time.Second}
}

// DefaultVerifyConfig returns the verification parameters.
func DefaultVerifyConfig() CallConfig {
	return CallConfig{Temperature: 0, MaxTokens: 300, Timeout: 45 * time.Second}
}

func (c CallConfig) options() []llm.GenerateOption {
	opts := []llm.GenerateOption{llm.WithTemperature(c.Temperature)}
	if c.MaxTokens > 0 {
		opts = append(opts, llm.WithMaxTokens(c.MaxTokens))
	}
	return opts
}

// callModel runs one prompt under the call site's timeout and span.
func callModel(ctx context.Context, chat llm.ChatProvider, spanName, prompt string, cfg CallConfig) (string, error) {
	ctx, span := tracing.StartSpan(ctx, spanName,
		tracing.String(tracing.AttrProvider, chat.Name()),
		tracing.Float64(tracing.AttrTemperature, cfg.Temperature),
		tracing.Int(tracing.AttrMaxTokens, cfg.MaxTokens),
	)
	defer span.End()

	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	resp, err := chat.Generate(ctx, prompt, "", cfg.options()...)
	if err != nil {
		tracing.RecordError(ctx, err)
		return "", err
	}
	if resp.TokenUsage != nil {
		span.SetAttributes(tracing.Int("llm.total_tokens", resp.TokenUsage.TotalTokens))
	}
	return resp.Content, nil
}

// Generator produces an answer grounded on the rendered evidence.
type Generator struct {
	chat    llm.ChatProvider
	prompts PromptSource
	config  CallConfig
}

// NewGenerator creates a generator. A nil chat provider means no model
// credentials are configured.
func NewGenerator(chat llm.ChatProvider, prompts PromptSource, config CallConfig) *Generator {
	if prompts == nil {
		prompts = DefaultPrompts()
	}
	return &Generator{chat: chat, prompts: prompts, config: config}
}

// Generate returns the raw answer text. Any backend failure is fatal to the
// request and reported as ErrGenerationFailed.
func (g *Generator) Generate(ctx context.Context, question, contextText string) (string, error) {
	if g.chat == nil {
		return "", errors.ErrModelNotConfigured
	}

	start := time.Now()
	answer, err := callModel(ctx, g.chat, "evidence.generate", g.prompts.Current().AnswerPrompt(question, contextText), g.config)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		logger.Errorw("answer generation failed", "provider", g.chat.Name(), "error", err.Error())
		return "", errors.ErrGenerationFailed.WithCause(err)
	}
	if strings.TrimSpace(answer) == "" {
		return "", errors.ErrGenerationFailed.WithMessage("Answer generation returned no text")
	}

	logger.Infow("answer generated",
		"provider", g.chat.Name(),
		"length", len(answer),
		"duration", time.Since(start).String(),
	)
	return answer, nil
}
