// Package openai adapts the OpenAI transcription endpoint to the
// asr.Recognizer contract, requesting verbose_json with word-level
// timestamp granularities so the processor's LocalAgreement buffer has
// something to reconcile.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/lokutor-ai/lokutor-transcribe/pkg/asr"
	"github.com/lokutor-ai/lokutor-transcribe/pkg/audio"
)

const defaultSampleRate = 16000

// Recognizer calls OpenAI's audio transcription endpoint.
type Recognizer struct {
	apiKey     string
	url        string
	model      string
	language   string
	sampleRate int

	httpClient *http.Client
}

// New creates a Recognizer. model defaults to "whisper-1" when empty.
func New(apiKey, model, language string) *Recognizer {
	if model == "" {
		model = "whisper-1"
	}
	return &Recognizer{
		apiKey:     apiKey,
		url:        "https://api.openai.com/v1/audio/transcriptions",
		model:      model,
		language:   language,
		sampleRate: defaultSampleRate,
		httpClient: http.DefaultClient,
	}
}

// Sep implements asr.Recognizer: OpenAI transcripts are space-separated.
func (r *Recognizer) Sep() string { return " " }

type verboseWord struct {
	Word  string  `json:"word"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

type verboseSegment struct {
	End          float64 `json:"end"`
	NoSpeechProb float64 `json:"no_speech_prob"`
}

type verboseResponse struct {
	Words    []verboseWord    `json:"words"`
	Segments []verboseSegment `json:"segments"`
}

// Transcribe implements asr.Recognizer.
func (r *Recognizer) Transcribe(ctx context.Context, samples []float32, prompt string) ([]asr.Segment, error) {
	wavData := audio.NewWavBuffer(audio.EncodePCM16(samples), r.sampleRate)

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	if err := writer.WriteField("model", r.model); err != nil {
		return nil, err
	}
	if err := writer.WriteField("response_format", "verbose_json"); err != nil {
		return nil, err
	}
	if err := writer.WriteField("timestamp_granularities[]", "word"); err != nil {
		return nil, err
	}
	if prompt != "" {
		if err := writer.WriteField("prompt", prompt); err != nil {
			return nil, err
		}
	}
	if r.language != "" {
		if err := writer.WriteField("language", r.language); err != nil {
			return nil, err
		}
	}

	part, err := writer.CreateFormFile("file", "audio.wav")
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(wavData); err != nil {
		return nil, err
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", r.url, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+r.apiKey)

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("openai asr error: %s (status %d)", string(respBody), resp.StatusCode)
	}

	var result verboseResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, err
	}

	return groupByNoSpeech(result), nil
}

// groupByNoSpeech folds OpenAI's separate words[] and segments[] arrays
// into a single asr.Segment per reported segment boundary, so each word
// carries the no_speech_prob of the segment it falls within.
func groupByNoSpeech(result verboseResponse) []asr.Segment {
	if len(result.Segments) == 0 {
		words := make([]asr.Word, len(result.Words))
		for i, w := range result.Words {
			words[i] = asr.Word{Start: w.Start, End: w.End, Text: w.Word}
		}
		if len(words) == 0 {
			return nil
		}
		return []asr.Segment{{End: words[len(words)-1].End, Words: words}}
	}

	segs := make([]asr.Segment, len(result.Segments))
	for i, s := range result.Segments {
		segs[i] = asr.Segment{End: s.End}
	}

	si := 0
	for _, w := range result.Words {
		for si < len(segs)-1 && w.End > segs[si].End {
			si++
		}
		word := asr.Word{Start: w.Start, End: w.End, Text: w.Word, NoSpeechProb: result.Segments[si].NoSpeechProb}
		segs[si].Words = append(segs[si].Words, word)
	}
	return segs
}
