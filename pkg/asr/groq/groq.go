// Package groq adapts Groq's OpenAI-compatible audio transcription
// endpoint to the asr.Recognizer contract.
package groq

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

// Recognizer calls Groq's audio transcription endpoint.
type Recognizer struct {
	apiKey     string
	url        string
	model      string
	language   string
	sampleRate int

	httpClient *http.Client
}

// New creates a Recognizer. model defaults to "whisper-large-v3-turbo".
func New(apiKey, model, language string) *Recognizer {
	if model == "" {
		model = "whisper-large-v3-turbo"
	}
	return &Recognizer{
		apiKey:     apiKey,
		url:        "https://api.groq.com/openai/v1/audio/transcriptions",
		model:      model,
		language:   language,
		sampleRate: defaultSampleRate,
		httpClient: http.DefaultClient,
	}
}

// Sep implements asr.Recognizer.
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
	if _, err := io.Copy(part, bytes.NewReader(wavData)); err != nil {
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
		var errResp interface{}
		json.NewDecoder(resp.Body).Decode(&errResp)
		return nil, fmt.Errorf("groq asr error (status %d): %v", resp.StatusCode, errResp)
	}

	var result verboseResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, err
	}

	return groupByNoSpeech(result), nil
}

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
