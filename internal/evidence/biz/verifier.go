package biz

import (
	"context"
	"strings"

	"github.com/kart-io/logger"

	"github.com/kart-io/evidence-x/pkg/llm"
)

const (
	// VerificationUnavailablePrefix starts every verification placeholder.
	VerificationUnavailablePrefix = "Verification unavailable: "

	// VerificationNotConfigured is returned when no chat provider exists.
	VerificationNotConfigured = VerificationUnavailablePrefix + "language model credentials are not configured."
)

// Verifier audits a generated answer against its context. Its output is
// advisory text; failures never fail the request.
type Verifier struct {
	chat    llm.ChatProvider
	prompts PromptSource
	config  CallConfig
}

// NewVerifier creates a verifier. chat may be nil.
func NewVerifier(chat llm.ChatProvider, prompts PromptSource, config CallConfig) *Verifier {
	if prompts == nil {
		prompts = DefaultPrompts()
	}
	return &Verifier{chat: chat, prompts: prompts, config: config}
}

// Verify returns the model's verdict or a placeholder starting with
// VerificationUnavailablePrefix.
func (v *Verifier) Verify(ctx context.Context, question, answer, contextText string) string {
	if v.chat == nil {
		return VerificationNotConfigured
	}

	verdict, err := callModel(ctx, v.chat, "evidence.verify", v.prompts.Current().VerifyPrompt(question, answer, contextText), v.config)
	if err != nil {
		logger.Warnw("verification failed, returning placeholder", "provider", v.chat.Name(), "error", err.Error())
		return VerificationUnavailablePrefix + err.Error()
	}

	verdict = strings.TrimSpace(verdict)
	if verdict == "" {
		return VerificationUnavailablePrefix + "the model returned an empty verdict."
	}
	return verdict
}
