package provider

import (
	"context"
	"fmt"
	"strings"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	"github.com/lokutor-ai/lokutor-transcribe/pkg/xlate"
)

// OpenAITranslator adapts the OpenAI chat completions API directly (via
// openai-go) to xlate.Translator.
type OpenAITranslator struct {
	client oai.Client
	model  string
}

// NewOpenAI creates an OpenAITranslator bound to apiKey and model.
func NewOpenAI(model, apiKey string) (*OpenAITranslator, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: OPENAI_API_KEY not set", xlate.ErrTranslationFatal)
	}
	client := oai.NewClient(option.WithAPIKey(apiKey))
	return &OpenAITranslator{client: client, model: model}, nil
}

// Translate implements xlate.Translator.
func (t *OpenAITranslator) Translate(ctx context.Context, text string, opts xlate.TranslateOptions) (string, error) {
	var messages []oai.ChatCompletionMessageParamUnion
	if opts.SystemPrompt != "" {
		messages = append(messages, oai.SystemMessage(opts.SystemPrompt))
	}
	for _, h := range opts.History {
		messages = append(messages, oai.UserMessage(h.Source), assistantMessage(h.Translated))
	}
	messages = append(messages, oai.UserMessage(text))

	resp, err := t.client.Chat.Completions.New(ctx, oai.ChatCompletionNewParams{
		Model:    shared.ChatModel(t.model),
		Messages: messages,
	})
	if err != nil {
		return "", classifyError(err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai translator: empty completion choices")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// assistantMessage builds an assistant-role message param; openai-go has
// no top-level AssistantMessage helper (unlike SystemMessage/UserMessage).
func assistantMessage(content string) oai.ChatCompletionMessageParamUnion {
	asst := oai.ChatCompletionAssistantMessageParam{}
	asst.Content.OfString = oai.String(content)
	return oai.ChatCompletionMessageParamUnion{OfAssistant: &asst}
}
