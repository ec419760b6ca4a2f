// Package deepgram adapts Deepgram's prerecorded /v1/listen endpoint to
// the asr.Recognizer contract, requesting word-level timestamps via the
// words=true query parameter. Deepgram has no prompt or no_speech_prob
// concept, so prompt is ignored and every word is accepted.
package deepgram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/lokutor-ai/lokutor-transcribe/pkg/asr"
	"github.com/lokutor-ai/lokutor-transcribe/pkg/audio"
)

const defaultSampleRate = 16000

// Recognizer calls Deepgram's prerecorded transcription endpoint.
type Recognizer struct {
	apiKey     string
	url        string
	model      string
	language   string
	sampleRate int

	httpClient *http.Client
}

// New creates a Recognizer. model defaults to "nova-2".
func New(apiKey, model, language string) *Recognizer {
	if model == "" {
		model = "nova-2"
	}
	return &Recognizer{
		apiKey:     apiKey,
		url:        "https://api.deepgram.com/v1/listen",
		model:      model,
		language:   language,
		sampleRate: defaultSampleRate,
		httpClient: http.DefaultClient,
	}
}

// Sep implements asr.Recognizer.
func (r *Recognizer) Sep() string { return " " }

type dgWord struct {
	Word  string  `json:"word"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

type dgResponse struct {
	Results struct {
		Channels []struct {
			Alternatives []struct {
				Words []dgWord `json:"words"`
			} `json:"alternatives"`
		} `json:"channels"`
	} `json:"results"`
}

// Transcribe implements asr.Recognizer.
func (r *Recognizer) Transcribe(ctx context.Context, samples []float32, prompt string) ([]asr.Segment, error) {
	pcm := audio.EncodePCM16(samples)

	u, err := url.Parse(r.url)
	if err != nil {
		return nil, err
	}
	params := u.Query()
	params.Set("model", r.model)
	params.Set("smart_format", "true")
	params.Set("words", "true")
	if r.language != "" {
		params.Set("language", r.language)
	}
	u.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, "POST", u.String(), bytes.NewReader(pcm))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Token "+r.apiKey)
	req.Header.Set("Content-Type", fmt.Sprintf("audio/l16; rate=%d; channels=1", r.sampleRate))

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("deepgram asr error (status %d): %s", resp.StatusCode, string(respBody))
	}

	var result dgResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, err
	}

	if len(result.Results.Channels) == 0 || len(result.Results.Channels[0].Alternatives) == 0 {
		return nil, nil
	}
	dgWords := result.Results.Channels[0].Alternatives[0].Words
	if len(dgWords) == 0 {
		return nil, nil
	}

	words := make([]asr.Word, len(dgWords))
	for i, w := range dgWords {
		words[i] = asr.Word{Start: w.Start, End: w.End, Text: w.Word}
	}
	return []asr.Segment{{End: words[len(words)-1].End, Words: words}}, nil
}
