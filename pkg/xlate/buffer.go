// Package xlate implements the adaptive translation buffer and the
// single-inflight translation manager that sits downstream of a committed
// transcript stream.
package xlate

import (
	"strings"
	"sync"
	"time"

	"github.com/lokutor-ai/lokutor-transcribe/pkg/sentence"
)

// Fragment is one committed transcript fragment awaiting translation.
type Fragment struct {
	Text    string
	StartMs int64
	EndMs   int64
}

// BufferConfig holds the adaptive buffer's tunables, overridable by CLI
// flags or config file.
type BufferConfig struct {
	MinLength         int
	Interval          time.Duration
	MaxBufferTime     time.Duration
	InactivityTimeout time.Duration
}

// DefaultBufferConfig returns the default buffer tunables.
func DefaultBufferConfig() BufferConfig {
	return BufferConfig{
		MinLength:         20,
		Interval:          4 * time.Second,
		MaxBufferTime:     5 * time.Second,
		InactivityTimeout: 2 * time.Second,
	}
}

// Buffer accumulates committed transcript fragments and decides, on each
// poll, whether enough material has built up to justify a translation
// call. It is safe for concurrent use.
type Buffer struct {
	mu sync.Mutex

	minLength         int
	adaptiveMinLength int
	maxLength         int
	interval          time.Duration
	maxBufferTime     time.Duration
	inactivityTimeout time.Duration

	fragments           []Fragment
	lastTranslationTime time.Time
	lastTextTime        time.Time
}

// NewBuffer creates a Buffer with the given configuration, anchored to the
// current time.
func NewBuffer(cfg BufferConfig) *Buffer {
	now := time.Now()
	return &Buffer{
		minLength:           cfg.MinLength,
		adaptiveMinLength:   cfg.MinLength,
		maxLength:           cfg.MinLength * 5,
		interval:            cfg.Interval,
		maxBufferTime:       cfg.MaxBufferTime,
		inactivityTimeout:   cfg.InactivityTimeout,
		lastTranslationTime: now,
		lastTextTime:        now,
	}
}

// AddText appends a fragment and records the activity time.
func (b *Buffer) AddText(text string, startMs, endMs int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.fragments = append(b.fragments, Fragment{Text: text, StartMs: startMs, EndMs: endMs})
	b.lastTextTime = time.Now()
}

// combined joins the buffered fragments with single spaces. Caller must
// hold b.mu.
func (b *Buffer) combined() string {
	texts := make([]string, len(b.fragments))
	for i, f := range b.fragments {
		texts[i] = f.Text
	}
	return strings.Join(texts, " ")
}

// GetTextToTranslate evaluates the priority chain below and returns
// (toTranslate, ok, remainder). It does not mutate the
// buffer; callers that act on ok=true must follow up with Clear and, if
// remainder is non-empty, AddText(remainder, ...).
func (b *Buffer) GetTextToTranslate() (toTranslate string, ok bool, remainder string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	s := b.combined()
	now := time.Now()

	if now.Sub(b.lastTextTime) > b.inactivityTimeout && s != "" {
		return s, true, ""
	}
	if now.Sub(b.lastTranslationTime) > b.maxBufferTime && s != "" {
		return s, true, ""
	}
	if len(s) < b.adaptiveMinLength {
		return "", false, s
	}
	if prefix, suffix := sentence.LastTerminatorSplit(s); prefix != "" && len(prefix) >= b.adaptiveMinLength {
		return prefix, true, suffix
	}
	if prefix, suffix := sentence.LastCommaSplit(s); prefix != "" && len(prefix) >= b.adaptiveMinLength {
		return prefix, true, suffix
	}
	if len(s) >= b.maxLength {
		return s, true, ""
	}
	return "", false, s
}

// UpdateAdaptiveMinLength recomputes the adaptive minimum length from up to
// the last 10 (source, translated) history pairs. Call this after each
// successful translation.
func (b *Buffer) UpdateAdaptiveMinLength(history []HistoryPair) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(history) == 0 {
		return
	}
	recent := history
	if len(recent) > 10 {
		recent = recent[len(recent)-10:]
	}

	var sum float64
	var n int
	for _, h := range recent {
		if h.Source == "" || h.Translated == "" {
			continue
		}
		sum += float64(len(h.Translated)) / float64(len(h.Source))
		n++
	}
	if n == 0 {
		return
	}
	avgRatio := sum / float64(n)
	if avgRatio <= 0 {
		return
	}

	adjusted := int(float64(b.minLength)/avgRatio + 0.5)
	lo := int(float64(b.minLength) * 0.25)
	hi := int(float64(b.minLength) * 2.0)
	if adjusted < lo {
		adjusted = lo
	} else if adjusted > hi {
		adjusted = hi
	}
	b.adaptiveMinLength = adjusted
	b.maxLength = adjusted * 5
}

// GetTimeBounds returns the earliest start and latest end among currently
// buffered fragments. ok is false when the buffer is empty.
func (b *Buffer) GetTimeBounds() (startMs, endMs int64, ok bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.fragments) == 0 {
		return 0, 0, false
	}
	startMs, endMs = b.fragments[0].StartMs, b.fragments[0].EndMs
	for _, f := range b.fragments[1:] {
		if f.StartMs < startMs {
			startMs = f.StartMs
		}
		if f.EndMs > endMs {
			endMs = f.EndMs
		}
	}
	return startMs, endMs, true
}

// Flush unconditionally returns whatever text is buffered, bypassing the
// minimum-length and timing checks GetTextToTranslate applies. Used on
// session shutdown, where there will be no further activity to trigger a
// natural flush.
func (b *Buffer) Flush() (text string, ok bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	s := b.combined()
	if s == "" {
		return "", false
	}
	return s, true
}

// Clear empties the buffered fragments and resets the translation clock.
func (b *Buffer) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.fragments = nil
	b.lastTranslationTime = time.Now()
}

// HistoryPair is a (source, translated) pair used to recompute the
// adaptive minimum length.
type HistoryPair struct {
	Source     string
	Translated string
}
