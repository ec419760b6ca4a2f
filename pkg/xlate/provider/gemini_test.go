package provider

import (
	"errors"
	"testing"

	anyllmlib "github.com/mozilla-ai/any-llm-go"

	"github.com/lokutor-ai/lokutor-transcribe/pkg/xlate"
)

func TestBuildMessages_SystemHistoryThenSource(t *testing.T) {
	opts := xlate.TranslateOptions{
		SystemPrompt: "Translate to French.",
		History: []xlate.HistoryPair{
			{Source: "hello", Translated: "bonjour"},
		},
	}
	messages := buildMessages(opts, "goodbye")

	if len(messages) != 4 {
		t.Fatalf("expected 4 messages (system, user, assistant, source), got %d", len(messages))
	}
	if messages[0].Role != anyllmlib.RoleSystem || messages[0].Content != "Translate to French." {
		t.Fatalf("unexpected system message: %+v", messages[0])
	}
	if messages[1].Role != anyllmlib.RoleUser || messages[1].Content != "hello" {
		t.Fatalf("unexpected history user message: %+v", messages[1])
	}
	if messages[2].Role != anyllmlib.RoleAssistant || messages[2].Content != "bonjour" {
		t.Fatalf("unexpected history assistant message: %+v", messages[2])
	}
	if messages[3].Role != anyllmlib.RoleUser || messages[3].Content != "goodbye" {
		t.Fatalf("unexpected trailing source message: %+v", messages[3])
	}
}

func TestBuildMessages_NoSystemPromptOmitsLeadingMessage(t *testing.T) {
	messages := buildMessages(xlate.TranslateOptions{}, "text")
	if len(messages) != 1 || messages[0].Content != "text" {
		t.Fatalf("expected single source message, got %+v", messages)
	}
}

func TestClassifyError_TransientWrapping(t *testing.T) {
	err := classifyError(errors.New("upstream returned 503 Service Unavailable"))
	if !errors.Is(err, xlate.ErrTransient) {
		t.Fatalf("expected ErrTransient, got %v", err)
	}
}

func TestClassifyError_NonTransientPassesThrough(t *testing.T) {
	base := errors.New("invalid api key")
	err := classifyError(base)
	if errors.Is(err, xlate.ErrTransient) {
		t.Fatalf("expected non-transient error to not be wrapped, got %v", err)
	}
	if err != base {
		t.Fatalf("expected original error returned unchanged, got %v", err)
	}
}
