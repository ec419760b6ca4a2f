// Package provider supplies concrete xlate.Translator implementations,
// one per --translation-provider value.
package provider

import (
	"context"
	"fmt"
	"strings"

	anyllmlib "github.com/mozilla-ai/any-llm-go"
	"github.com/mozilla-ai/any-llm-go/providers/gemini"

	"github.com/lokutor-ai/lokutor-transcribe/pkg/xlate"
)

// GeminiTranslator adapts any-llm-go's Gemini backend to xlate.Translator.
type GeminiTranslator struct {
	backend anyllmlib.Provider
	model   string
}

// NewGemini creates a GeminiTranslator. apiKey, when non-empty, is passed
// explicitly; otherwise any-llm-go reads GEMINI_API_KEY / GOOGLE_API_KEY.
func NewGemini(model, apiKey string) (*GeminiTranslator, error) {
	var opts []anyllmlib.Option
	if apiKey != "" {
		opts = append(opts, anyllmlib.WithAPIKey(apiKey))
	}
	backend, err := gemini.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", xlate.ErrTranslationFatal, err)
	}
	return &GeminiTranslator{backend: backend, model: model}, nil
}

// Translate implements xlate.Translator.
func (t *GeminiTranslator) Translate(ctx context.Context, text string, opts xlate.TranslateOptions) (string, error) {
	messages := buildMessages(opts, text)

	resp, err := t.backend.Completion(ctx, anyllmlib.CompletionParams{
		Model:    t.model,
		Messages: messages,
	})
	if err != nil {
		return "", classifyError(err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("gemini translator: empty completion choices")
	}
	return strings.TrimSpace(resp.Choices[0].Message.ContentString()), nil
}

// buildMessages constructs [system, history pairs..., source], replaying
// each prior (source, translated) pair as a user/assistant turn so the
// model sees translation continuity before the new source line.
func buildMessages(opts xlate.TranslateOptions, text string) []anyllmlib.Message {
	var messages []anyllmlib.Message
	if opts.SystemPrompt != "" {
		messages = append(messages, anyllmlib.Message{Role: anyllmlib.RoleSystem, Content: opts.SystemPrompt})
	}
	for _, h := range opts.History {
		messages = append(messages,
			anyllmlib.Message{Role: anyllmlib.RoleUser, Content: h.Source},
			anyllmlib.Message{Role: anyllmlib.RoleAssistant, Content: h.Translated},
		)
	}
	return append(messages, anyllmlib.Message{Role: anyllmlib.RoleUser, Content: text})
}

// classifyError wraps transport failures the manager should retry (server
// 5xx, timeouts) with xlate.ErrTransient; everything else (4xx, malformed
// request, unknown model) passes through unchanged so the manager falls
// back to the source text immediately.
func classifyError(err error) error {
	msg := strings.ToLower(err.Error())
	transient := strings.Contains(msg, "timeout") ||
		strings.Contains(msg, "deadline exceeded") ||
		strings.Contains(msg, "internal server error") ||
		strings.Contains(msg, "503") ||
		strings.Contains(msg, "502") ||
		strings.Contains(msg, "500") ||
		strings.Contains(msg, "connection reset")
	if transient {
		return fmt.Errorf("%w: %v", xlate.ErrTransient, err)
	}
	return err
}
