package transport

import (
	"encoding/json"
	"fmt"
)

// FormatLine renders one transcript or translation result as the
// line-transport wire format: "<beg_ms> <end_ms> <text>".
func FormatLine(begMs, endMs int64, text string) string {
	return fmt.Sprintf("%d %d %s", begMs, endMs, text)
}

// TranscriptionMessage is the message-transport JSON shape for a committed
// transcript segment.
type TranscriptionMessage struct {
	Type  string `json:"type"`
	Start int64  `json:"start"`
	End   int64  `json:"end"`
	Text  string `json:"text"`
}

// TranslationMessage is the message-transport JSON shape for a translated
// segment. Reason is omitted when empty; internal/session sets
// "inactivity_timeout" when the translated text does not end on a sentence
// terminator and "final_buffer" for the flush at session end.
type TranslationMessage struct {
	Type        string `json:"type"`
	Start       int64  `json:"start"`
	End         int64  `json:"end"`
	Original    string `json:"original"`
	Translation string `json:"translation"`
	Reason      string `json:"reason,omitempty"`
}

// FormatTranscriptionJSON renders a committed transcript segment as the
// message-transport JSON wire format.
func FormatTranscriptionJSON(begMs, endMs int64, text string) (string, error) {
	b, err := json.Marshal(TranscriptionMessage{Type: "transcription", Start: begMs, End: endMs, Text: text})
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// FormatTranslationJSON renders a translated segment as the
// message-transport JSON wire format.
func FormatTranslationJSON(begMs, endMs int64, original, translation, reason string) (string, error) {
	b, err := json.Marshal(TranslationMessage{
		Type:        "translation",
		Start:       begMs,
		End:         endMs,
		Original:    original,
		Translation: translation,
		Reason:      reason,
	})
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Formatter renders transcript and translation results into wire text;
// each transport variant gets its own Formatter so the session loop
// stays ignorant of which wire format it's driving.
type Formatter interface {
	Transcription(begMs, endMs int64, text string) (string, error)
	Translation(begMs, endMs int64, original, translation, reason string) (string, error)
}

// LineFormatter renders the line-transport wire format. Reason is
// dropped: the line protocol has no room for it.
type LineFormatter struct{}

func (LineFormatter) Transcription(begMs, endMs int64, text string) (string, error) {
	return FormatLine(begMs, endMs, text), nil
}

func (LineFormatter) Translation(begMs, endMs int64, original, translation, reason string) (string, error) {
	return FormatLine(begMs, endMs, translation), nil
}

// JSONFormatter renders the message-transport JSON wire format.
type JSONFormatter struct{}

func (JSONFormatter) Transcription(begMs, endMs int64, text string) (string, error) {
	return FormatTranscriptionJSON(begMs, endMs, text)
}

func (JSONFormatter) Translation(begMs, endMs int64, original, translation, reason string) (string, error) {
	return FormatTranslationJSON(begMs, endMs, original, translation, reason)
}
