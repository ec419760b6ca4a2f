// Package warmup primes a Recognizer at server boot so the first real
// client isn't the one paying for cold model initialization.
package warmup

import (
	"context"
	"fmt"
	"os"

	"github.com/lokutor-ai/lokutor-transcribe/pkg/asr"
	"github.com/lokutor-ai/lokutor-transcribe/pkg/audio"
)

// Run decodes path as raw PCM16LE mono audio and issues a single
// Transcribe call against rec. A missing or unreadable file is a fatal
// init error when a warmup file was explicitly configured.
func Run(ctx context.Context, rec asr.Recognizer, path string) error {
	if path == "" {
		return nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("warmup: read %q: %w", path, err)
	}

	samples := audio.DecodePCM16(raw)
	if _, err := rec.Transcribe(ctx, samples, ""); err != nil {
		return fmt.Errorf("warmup: recognizer call failed: %w", err)
	}
	return nil
}
