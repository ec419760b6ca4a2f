// Package session drives one connected client end to end: it pulls audio
// off a transport.Connection, feeds it through an asrproc.Processor, and
// routes committed text to the client and, when enabled, through the
// adaptive translation pipeline.
package session

import (
	"context"
	"errors"
	"sync"

	"github.com/lokutor-ai/lokutor-transcribe/pkg/asrproc"
	"github.com/lokutor-ai/lokutor-transcribe/pkg/audio"
	"github.com/lokutor-ai/lokutor-transcribe/pkg/logging"
	"github.com/lokutor-ai/lokutor-transcribe/pkg/sentence"
	"github.com/lokutor-ai/lokutor-transcribe/pkg/transport"
	"github.com/lokutor-ai/lokutor-transcribe/pkg/xlate"
)

// Session owns one client's full processing lifecycle and is not safe for
// concurrent use; the server accepts one goroutine per connection and lets
// each drive its own Session.
type Session struct {
	conn      transport.Connection
	formatter transport.Formatter
	proc      *asrproc.Processor
	xbuf      *xlate.Buffer
	xmgr      *xlate.Manager
	log       logging.Logger

	// lastEmittedEnd enforces monotonic output timestamps: a recognizer
	// revision can occasionally report a beg earlier than what was already
	// sent, and the wire format must never go backwards.
	lastEmittedEnd float64

	// minChunkSamples gates how much audio receiveChunk accumulates before
	// handing it to the processor; zero processes every inbound read
	// immediately.
	minChunkSamples int

	// isFirst tracks whether the next chunk receiveChunk returns would be
	// the session's first; a first chunk shorter than minChunkSamples (the
	// connection closed before enough audio arrived) is dropped rather than
	// processed short.
	isFirst bool

	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once
}

// New builds a Session bound to conn. xbuf and xmgr must both be non-nil to
// enable translation, or both nil to disable it.
func New(ctx context.Context, conn transport.Connection, formatter transport.Formatter, proc *asrproc.Processor, xbuf *xlate.Buffer, xmgr *xlate.Manager, log logging.Logger) *Session {
	sctx, cancel := context.WithCancel(ctx)
	if log == nil {
		log = &logging.NoOpLogger{}
	}
	return &Session{
		conn:      conn,
		formatter: formatter,
		proc:      proc,
		xbuf:      xbuf,
		xmgr:      xmgr,
		log:       log,
		isFirst:   true,
		ctx:       sctx,
		cancel:    cancel,
	}
}

// WithMinChunkSeconds sets the minimum audio duration receiveChunk
// accumulates before triggering a processing iteration, mirroring the
// --min-chunk-size flag. Zero (the default) processes every inbound read
// immediately. Returns s for chaining at construction time.
func (s *Session) WithMinChunkSeconds(seconds float64) *Session {
	if seconds > 0 {
		s.minChunkSamples = int(seconds * asrproc.SampleRate)
	}
	return s
}

// receiveChunk accumulates decoded audio until minChunkSamples is reached
// or the connection closes, returning (nil, nil) on an orderly close with
// nothing left to process, accumulating until min_chunk_size seconds of
// audio are available before handing a batch to the processor. A first
// chunk that falls short of minChunkSamples because the connection closed
// before enough audio arrived is dropped rather than processed short,
// ending the session the same as an empty read would.
func (s *Session) receiveChunk() ([]float32, error) {
	var samples []float32
	for {
		raw, err := s.conn.ReceiveAudio(s.ctx)
		if err != nil {
			return nil, err
		}
		if raw == nil {
			if len(samples) == 0 || (s.isFirst && len(samples) < s.minChunkSamples) {
				return nil, nil
			}
			s.isFirst = false
			return samples, nil
		}
		samples = append(samples, audio.DecodePCM16(raw)...)
		if len(samples) > 0 && len(samples) >= s.minChunkSamples {
			s.isFirst = false
			return samples, nil
		}
	}
}

// Run reads audio until the connection closes or ctx is cancelled,
// transcribing and, if configured, translating as it goes. On an orderly
// close or cancellation it flushes the processor's unconfirmed tail and any
// pending translation buffer before returning; a receive or recognizer
// error is returned immediately, without that flush.
func (s *Session) Run() error {
	defer s.Close()
	s.proc.Init(0)

	for {
		samples, err := s.receiveChunk()
		if err != nil {
			if errors.Is(err, context.Canceled) {
				break
			}
			return err
		}
		if samples == nil {
			break
		}

		s.proc.InsertAudioChunk(samples)

		out, err := s.proc.ProcessIter(s.ctx)
		if err != nil {
			s.log.Error("process iter failed", "err", err)
			return err
		}

		if out.Valid {
			s.emitTranscription(out)
			if s.xbuf != nil {
				s.xbuf.AddText(out.Text, toMs(out.Beg), toMs(out.End))
			}
		}
		if s.xbuf != nil {
			s.drainTranslations()
		}
	}

	final := s.proc.Finish()
	if final.Valid {
		s.emitTranscription(final)
		if s.xbuf != nil {
			s.xbuf.AddText(final.Text, toMs(final.Beg), toMs(final.End))
		}
	}
	if s.xbuf != nil {
		s.drainTranslations()
		s.flushRemainder()
	}
	return nil
}

// emitTranscription clamps beg to the last emitted end before formatting
// and sending, then advances the watermark.
func (s *Session) emitTranscription(out asrproc.Emitted) {
	beg := out.Beg
	if beg < s.lastEmittedEnd {
		beg = s.lastEmittedEnd
	}
	end := out.End
	if end < beg {
		end = beg
	}
	if end > s.lastEmittedEnd {
		s.lastEmittedEnd = end
	}

	text, err := s.formatter.Transcription(toMs(beg), toMs(end), out.Text)
	if err != nil {
		s.log.Error("format transcription failed", "err", err)
		return
	}
	if err := s.conn.Send(s.ctx, text); err != nil {
		s.log.Warn("send failed", "err", err)
	}
}

// drainTranslations repeatedly polls the adaptive buffer and translates
// whatever it decides is ready, until nothing more is. The buffer's own
// inactivity and max-buffer-time checks mean this naturally covers both a
// freshly-arrived fragment crossing a threshold and a long silence forcing
// out whatever is left.
func (s *Session) drainTranslations() {
	for {
		toTranslate, ok, remainder := s.xbuf.GetTextToTranslate()
		if !ok {
			return
		}

		startMs, endMs, hasBounds := s.xbuf.GetTimeBounds()

		translated, err := s.xmgr.Translate(s.ctx, toTranslate)
		if err != nil {
			s.log.Warn("translation aborted", "err", err)
			return
		}

		reason := ""
		if !sentence.EndsSentence(toTranslate) {
			reason = "inactivity_timeout"
		}
		s.emitTranslation(startMs, endMs, toTranslate, translated, reason)

		s.xbuf.Clear()
		if remainder != "" && hasBounds {
			s.xbuf.AddText(remainder, endMs, endMs)
		}
		s.xbuf.UpdateAdaptiveMinLength(s.xmgr.History())
	}
}

// flushRemainder force-translates whatever text is still buffered after
// the last drain, whatever its length, since the session is ending and
// nothing will arrive to trigger a natural flush.
func (s *Session) flushRemainder() {
	text, ok := s.xbuf.Flush()
	if !ok {
		return
	}
	startMs, endMs, hasBounds := s.xbuf.GetTimeBounds()

	translated, err := s.xmgr.Translate(s.ctx, text)
	if err != nil {
		s.log.Warn("final translation aborted", "err", err)
		return
	}
	if !hasBounds {
		startMs, endMs = toMs(0), toMs(0)
	}
	s.emitTranslation(startMs, endMs, text, translated, "final_buffer")
	s.xbuf.Clear()
}

func (s *Session) emitTranslation(startMs, endMs int64, original, translated, reason string) {
	text, err := s.formatter.Translation(startMs, endMs, original, translated, reason)
	if err != nil {
		s.log.Error("format translation failed", "err", err)
		return
	}
	if err := s.conn.Send(s.ctx, text); err != nil {
		s.log.Warn("send failed", "err", err)
	}
}

// Close cancels the session context and releases the connection. Safe to
// call more than once.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.cancel()
		if err := s.conn.Close(); err != nil {
			s.log.Warn("connection close failed", "err", err)
		}
	})
}

func toMs(seconds float64) int64 {
	return int64(seconds * 1000)
}
