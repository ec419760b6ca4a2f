// Package assemblyai adapts AssemblyAI's asynchronous upload/submit/poll
// transcription API to the asr.Recognizer contract, pulling word-level
// timestamps (reported in milliseconds) out of the completed transcript.
package assemblyai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/lokutor-ai/lokutor-transcribe/pkg/asr"
	"github.com/lokutor-ai/lokutor-transcribe/pkg/audio"
)

const defaultSampleRate = 16000

// Recognizer calls AssemblyAI's transcription API.
type Recognizer struct {
	apiKey     string
	language   string
	sampleRate int
	pollEvery  time.Duration

	httpClient *http.Client
}

// New creates a Recognizer.
func New(apiKey, language string) *Recognizer {
	return &Recognizer{
		apiKey:     apiKey,
		language:   language,
		sampleRate: defaultSampleRate,
		pollEvery:  500 * time.Millisecond,
		httpClient: http.DefaultClient,
	}
}

// Sep implements asr.Recognizer.
func (r *Recognizer) Sep() string { return " " }

// Transcribe implements asr.Recognizer.
func (r *Recognizer) Transcribe(ctx context.Context, samples []float32, prompt string) ([]asr.Segment, error) {
	wavData := audio.NewWavBuffer(audio.EncodePCM16(samples), r.sampleRate)

	uploadURL, err := r.upload(ctx, wavData)
	if err != nil {
		return nil, err
	}

	transcriptID, err := r.submit(ctx, uploadURL)
	if err != nil {
		return nil, err
	}

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(r.pollEvery):
			words, status, err := r.getTranscript(ctx, transcriptID)
			if err != nil {
				return nil, err
			}
			if status == "completed" {
				if len(words) == 0 {
					return nil, nil
				}
				return []asr.Segment{{End: words[len(words)-1].End, Words: words}}, nil
			}
			if status == "error" {
				return nil, fmt.Errorf("assemblyai transcription failed")
			}
		}
	}
}

func (r *Recognizer) upload(ctx context.Context, wavData []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, "POST", "https://api.assemblyai.com/v2/upload", bytes.NewReader(wavData))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", r.apiKey)

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var result struct {
		UploadURL string `json:"upload_url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", err
	}
	return result.UploadURL, nil
}

func (r *Recognizer) submit(ctx context.Context, uploadURL string) (string, error) {
	payload := map[string]interface{}{
		"audio_url": uploadURL,
	}
	if r.language != "" {
		payload["language_code"] = r.language
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, "POST", "https://api.assemblyai.com/v2/transcript", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", r.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var result struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", err
	}
	return result.ID, nil
}

type aaiWord struct {
	Text  string  `json:"text"`
	Start float64 `json:"start"` // milliseconds
	End   float64 `json:"end"`   // milliseconds
}

func (r *Recognizer) getTranscript(ctx context.Context, id string) ([]asr.Word, string, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", "https://api.assemblyai.com/v2/transcript/"+id, nil)
	if err != nil {
		return nil, "", err
	}
	req.Header.Set("Authorization", r.apiKey)

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	var result struct {
		Status string    `json:"status"`
		Words  []aaiWord `json:"words"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, "", err
	}

	words := make([]asr.Word, len(result.Words))
	for i, w := range result.Words {
		words[i] = asr.Word{Start: w.Start / 1000.0, End: w.End / 1000.0, Text: " " + w.Text}
	}
	return words, result.Status, nil
}
