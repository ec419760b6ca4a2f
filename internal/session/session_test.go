package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/lokutor-ai/lokutor-transcribe/pkg/asrproc"
	"github.com/lokutor-ai/lokutor-transcribe/pkg/audio"
	"github.com/lokutor-ai/lokutor-transcribe/pkg/transport"
	"github.com/lokutor-ai/lokutor-transcribe/pkg/xlate"
)

// fakeConn feeds a scripted sequence of audio chunks and records every
// string the session sends.
type fakeConn struct {
	mu     sync.Mutex
	chunks [][]byte
	idx    int
	sent   []string
	closed bool
}

func (f *fakeConn) ReceiveAudio(ctx context.Context) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.idx >= len(f.chunks) {
		return nil, nil
	}
	c := f.chunks[f.idx]
	f.idx++
	return c, nil
}

func (f *fakeConn) Send(ctx context.Context, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, text)
	return nil
}

func (f *fakeConn) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeConn) sentCopy() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.sent...)
}

// mockRecognizer returns a scripted batch of segments per call, one call
// per ProcessIter, mirroring pkg/asrproc's own test fakes.
type mockRecognizer struct {
	calls int
	plan  [][]asrproc.Segment
}

func (m *mockRecognizer) Transcribe(ctx context.Context, samples []float32, prompt string) ([]asrproc.Segment, error) {
	i := m.calls
	if i >= len(m.plan) {
		i = len(m.plan) - 1
	}
	m.calls++
	return m.plan[i], nil
}

func (m *mockRecognizer) Sep() string { return " " }

// fakeTranslator returns the source text prefixed, recording every call.
type fakeTranslator struct {
	mu    sync.Mutex
	calls []string
	err   error
}

func (f *fakeTranslator) Translate(ctx context.Context, text string, opts xlate.TranslateOptions) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, text)
	f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	return "[" + opts.TargetLanguage + "] " + text, nil
}

func pcmChunk(n int) []byte {
	return audio.EncodePCM16(make([]float32, n))
}

func TestSession_TranscriptionOnly_NoTranslation(t *testing.T) {
	words := []asrproc.Word{
		{Start: 0, End: 1, Text: "hello"},
		{Start: 1, End: 2, Text: "world."},
	}
	plan := [][]asrproc.Segment{{{End: 2, Words: words}}}
	rec := &mockRecognizer{plan: plan}
	proc := asrproc.New(rec, asrproc.Config{Mode: asrproc.ModeSegment, Seconds: 15})

	conn := &fakeConn{chunks: [][]byte{pcmChunk(1600)}}
	s := New(context.Background(), conn, transport.LineFormatter{}, proc, nil, nil, nil)

	if err := s.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}
	sent := conn.sentCopy()
	if len(sent) == 0 {
		t.Fatalf("expected at least one transcription sent")
	}
	if !conn.closed {
		t.Fatalf("expected connection closed after Run")
	}
}

func TestSession_MonotonicEmission_ClampsRegression(t *testing.T) {
	proc := asrproc.New(&mockRecognizer{plan: [][]asrproc.Segment{{}}}, asrproc.Config{Mode: asrproc.ModeSegment, Seconds: 15})
	conn := &fakeConn{}
	s := New(context.Background(), conn, transport.LineFormatter{}, proc, nil, nil, nil)

	s.lastEmittedEnd = 10.0
	s.emitTranscription(asrproc.Emitted{Beg: 2.0, End: 5.0, Text: "late revision", Valid: true})

	sent := conn.sentCopy()
	if len(sent) != 1 {
		t.Fatalf("expected exactly one send, got %d", len(sent))
	}
	want := transport.FormatLine(10000, 10000, "late revision")
	if sent[0] != want {
		t.Fatalf("expected clamped beg/end %q, got %q", want, sent[0])
	}
	if s.lastEmittedEnd != 10.0 {
		t.Fatalf("expected watermark to stay at 10.0, got %v", s.lastEmittedEnd)
	}
}

func TestSession_TranslationDrainsOnSentenceBoundary(t *testing.T) {
	words := []asrproc.Word{
		{Start: 0, End: 1, Text: "Hello "},
		{Start: 1, End: 2, Text: "world."},
	}
	plan := [][]asrproc.Segment{{{End: 2, Words: words}}}
	rec := &mockRecognizer{plan: plan}
	proc := asrproc.New(rec, asrproc.Config{Mode: asrproc.ModeSegment, Seconds: 15})

	cfg := xlate.DefaultBufferConfig()
	cfg.MinLength = 1
	buf := xlate.NewBuffer(cfg)
	tr := &fakeTranslator{}
	mgr := xlate.NewManager(tr, xlate.ManagerConfig{TargetLanguage: "es"}, "Spanish")

	conn := &fakeConn{chunks: [][]byte{pcmChunk(1600)}}
	s := New(context.Background(), conn, transport.LineFormatter{}, proc, buf, mgr, nil)

	if err := s.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}

	tr.mu.Lock()
	calls := append([]string(nil), tr.calls...)
	tr.mu.Unlock()
	if len(calls) == 0 {
		t.Fatalf("expected at least one translation call")
	}
}

func TestSession_FlushesPendingTranslationOnExit(t *testing.T) {
	proc := asrproc.New(&mockRecognizer{plan: [][]asrproc.Segment{{}}}, asrproc.Config{Mode: asrproc.ModeSegment, Seconds: 15})

	cfg := xlate.DefaultBufferConfig()
	cfg.MinLength = 1000 // never naturally triggers
	cfg.InactivityTimeout = time.Hour
	cfg.MaxBufferTime = time.Hour
	buf := xlate.NewBuffer(cfg)
	buf.AddText("leftover fragment", 0, 500)

	tr := &fakeTranslator{}
	mgr := xlate.NewManager(tr, xlate.ManagerConfig{TargetLanguage: "fr"}, "French")

	conn := &fakeConn{}
	s := New(context.Background(), conn, transport.LineFormatter{}, proc, buf, mgr, nil)

	if err := s.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}

	tr.mu.Lock()
	calls := append([]string(nil), tr.calls...)
	tr.mu.Unlock()
	if len(calls) != 1 || calls[0] != "leftover fragment" {
		t.Fatalf("expected the leftover fragment force-flushed, got %v", calls)
	}
}

func TestSession_MinChunkSeconds_AccumulatesBeforeProcessing(t *testing.T) {
	rec := &mockRecognizer{plan: [][]asrproc.Segment{{}}}
	proc := asrproc.New(rec, asrproc.Config{Mode: asrproc.ModeSegment, Seconds: 15})

	// Three small reads of 400 samples each; at 16kHz, min-chunk-size of
	// 0.05s (800 samples) should require two reads before a single
	// ProcessIter call fires, not three individual ones.
	conn := &fakeConn{chunks: [][]byte{pcmChunk(400), pcmChunk(400), pcmChunk(400)}}
	s := New(context.Background(), conn, transport.LineFormatter{}, proc, nil, nil, nil).
		WithMinChunkSeconds(0.05)

	if err := s.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if rec.calls != 2 {
		t.Fatalf("expected 2 recognizer calls (800+400 accumulated in two batches), got %d", rec.calls)
	}
}

func TestSession_ShortFirstChunkDropped(t *testing.T) {
	rec := &mockRecognizer{plan: [][]asrproc.Segment{{}}}
	proc := asrproc.New(rec, asrproc.Config{Mode: asrproc.ModeSegment, Seconds: 15})

	// A single 300-sample read, then the connection closes, well short of
	// the 800-sample minimum; this must be dropped rather than processed.
	conn := &fakeConn{chunks: [][]byte{pcmChunk(300)}}
	s := New(context.Background(), conn, transport.LineFormatter{}, proc, nil, nil, nil).
		WithMinChunkSeconds(0.05)

	if err := s.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if rec.calls != 0 {
		t.Fatalf("expected the short first chunk to be dropped with no recognizer calls, got %d", rec.calls)
	}
}

func TestSession_ReceiveErrorPropagates(t *testing.T) {
	proc := asrproc.New(&mockRecognizer{plan: [][]asrproc.Segment{{}}}, asrproc.Config{Mode: asrproc.ModeSegment, Seconds: 15})
	conn := &erroringConn{err: errors.New("boom")}
	s := New(context.Background(), conn, transport.LineFormatter{}, proc, nil, nil, nil)

	err := s.Run()
	if err == nil || err.Error() != "boom" {
		t.Fatalf("expected propagated receive error, got %v", err)
	}
}

type erroringConn struct {
	err error
}

func (e *erroringConn) ReceiveAudio(ctx context.Context) ([]byte, error) { return nil, e.err }
func (e *erroringConn) Send(ctx context.Context, text string) error     { return nil }
func (e *erroringConn) Close() error                                    { return nil }
