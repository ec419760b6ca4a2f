// Package asrproc implements the online audio/transcript processor: a
// sliding-window state machine that owns the audio retention buffer,
// prompts a Recognizer with prior context, feeds hypotheses through a
// LocalAgreement hypothesis buffer, and decides when to trim the buffer at
// sentence or segment boundaries.
package asrproc

import (
	"context"
	"fmt"
	"strings"

	"github.com/lokutor-ai/lokutor-transcribe/pkg/hypothesisbuf"
	"github.com/lokutor-ai/lokutor-transcribe/pkg/sentence"
)

// SampleRate is the fixed input sample rate in Hz the processor assumes for
// its audio retention buffer.
const SampleRate = 16000

// promptCharBudget bounds how much committed history is fed back to the
// recognizer as context on each call.
const promptCharBudget = 200

// hardCeilingSeconds is the absolute retention ceiling in sentence mode when
// no sentence boundary can be found.
const hardCeilingSeconds = 30.0

// noSpeechThreshold filters out words whose enclosing segment the
// recognizer judged to be silence/noise.
const noSpeechThreshold = 0.9

// ChunkMode selects the buffer trimming policy.
type ChunkMode string

const (
	ModeSentence ChunkMode = "sentence"
	ModeSegment  ChunkMode = "segment"
)

// Word is a single recognizer-reported token, still relative to the start
// of the audio segment that was transcribed.
type Word struct {
	Start        float64
	End          float64
	Text         string
	NoSpeechProb float64
}

// Segment is one recognizer-reported span, used for segment-mode trimming
// decisions. End is relative to the audio segment passed to the recognizer.
type Segment struct {
	End   float64
	Words []Word
}

// Recognizer is the external collaborator that turns an audio window plus a
// textual prompt into time-stamped word segments. Implementations are not
// part of this package; see pkg/asr for concrete backends.
type Recognizer interface {
	Transcribe(ctx context.Context, audio []float32, prompt string) ([]Segment, error)
	Sep() string
}

// Config holds the buffer trimming policy.
type Config struct {
	Mode    ChunkMode
	Seconds float64 // soft ceiling, default 15
}

// DefaultConfig returns the default trimming policy.
func DefaultConfig() Config {
	return Config{Mode: ModeSegment, Seconds: 15}
}

// Emitted is one (beg, end, text) result of a processing step. Valid is
// false when there was nothing new to emit.
type Emitted struct {
	Beg   float64
	End   float64
	Text  string
	Valid bool
}

// Processor owns the audio retention buffer and drives one recognizer
// session end to end. It is not safe for concurrent use; callers
// (internal/session) serialize access per connection.
type Processor struct {
	rec     Recognizer
	mode    ChunkMode
	seconds float64

	audio            []float32
	bufferTimeOffset float64
	hb               *hypothesisbuf.Buffer

	// committed is the processor's own append-only log, distinct from the
	// hypothesis buffer's internal committed list: PopCommitted trims only
	// the latter, for the buffer's own staleness/dedup bookkeeping. This
	// log is what the prompt and chunking decisions read from, and it
	// keeps entries that have already scrolled out of the audio buffer.
	committed []hypothesisbuf.Word
}

// New creates a Processor bound to rec with the given trimming config.
func New(rec Recognizer, cfg Config) *Processor {
	p := &Processor{rec: rec, mode: cfg.Mode, seconds: cfg.Seconds}
	if p.seconds <= 0 {
		p.seconds = 15
	}
	p.Init(0)
	return p
}

// Init resets the processor to a fresh session starting at the given
// absolute time offset.
func (p *Processor) Init(offset float64) {
	p.audio = nil
	p.bufferTimeOffset = offset
	p.hb = hypothesisbuf.New()
	p.hb.SetLastCommittedTime(offset)
	p.committed = nil
}

// InsertAudioChunk appends decoded float32 samples to the retention buffer.
func (p *Processor) InsertAudioChunk(samples []float32) {
	p.audio = append(p.audio, samples...)
}

// bufferDuration returns the current retention buffer's length in seconds.
func (p *Processor) bufferDuration() float64 {
	return float64(len(p.audio)) / float64(SampleRate)
}

// buildPrompt concatenates committed words that have already scrolled out
// of the retention buffer, newest-first until the character budget is
// spent, then reverses to chronological order.
func (p *Processor) buildPrompt() string {
	committed := p.committed
	var selected []hypothesisbuf.Word
	total := 0
	for i := len(committed) - 1; i >= 0; i-- {
		w := committed[i]
		if w.End > p.bufferTimeOffset {
			continue
		}
		selected = append(selected, w)
		total += len(w.Text)
		if total >= promptCharBudget {
			break
		}
	}
	for i, j := 0, len(selected)-1; i < j; i, j = i+1, j-1 {
		selected[i], selected[j] = selected[j], selected[i]
	}
	texts := make([]string, len(selected))
	for i, w := range selected {
		texts[i] = w.Text
	}
	return strings.Join(texts, p.rec.Sep())
}

// ProcessIter runs one recognizer call: builds the prompt, transcribes the
// current buffer, reconciles hypotheses through the LocalAgreement buffer,
// applies the trimming policy, and returns anything newly committed.
func (p *Processor) ProcessIter(ctx context.Context) (Emitted, error) {
	prompt := p.buildPrompt()

	segments, err := p.rec.Transcribe(ctx, p.audio, prompt)
	if err != nil {
		return Emitted{}, fmt.Errorf("%w: %v", ErrRecognizerFailed, err)
	}

	var words []hypothesisbuf.Word
	for _, seg := range segments {
		for _, w := range seg.Words {
			if w.NoSpeechProb > noSpeechThreshold {
				continue
			}
			words = append(words, hypothesisbuf.Word{Start: w.Start, End: w.End, Text: w.Text})
		}
	}

	p.hb.Insert(words, p.bufferTimeOffset)
	newly := p.hb.Flush()
	p.committed = append(p.committed, newly...)

	p.applyTrimming(segments, newly)

	if len(newly) == 0 {
		return Emitted{}, nil
	}
	texts := make([]string, len(newly))
	for i, w := range newly {
		texts[i] = w.Text
	}
	return Emitted{
		Beg:   newly[0].Start,
		End:   newly[len(newly)-1].End,
		Text:  strings.Join(texts, p.rec.Sep()),
		Valid: true,
	}, nil
}

// applyTrimming implements two trimming rules: sentence-boundary
// chunking under the soft ceiling, and segment-end chunking under the soft
// ceiling (segment mode) or hard ceiling (sentence mode with no sentence
// boundary available).
func (p *Processor) applyTrimming(segments []Segment, newly []hypothesisbuf.Word) {
	dur := p.bufferDuration()

	if p.mode == ModeSentence && dur > p.seconds && len(newly) > 0 {
		if t, ok := p.secondToLastSentenceEnd(); ok {
			p.ChunkAt(t)
			return
		}
	}

	needsSegmentChunk := (p.mode == ModeSegment && dur > p.seconds) ||
		(p.mode == ModeSentence && dur > hardCeilingSeconds)
	if !needsSegmentChunk {
		return
	}

	if len(p.committed) == 0 {
		return
	}
	lastEnd := p.committed[len(p.committed)-1].End

	chosen, found := -1.0, false
	for _, seg := range segments {
		absEnd := seg.End + p.bufferTimeOffset
		if absEnd <= lastEnd && absEnd > chosen {
			chosen = absEnd
			found = true
		}
	}
	if found {
		p.ChunkAt(chosen)
	}
}

// secondToLastSentenceEnd runs sentence segmentation over the committed log
// and, when at least two sentences exist, returns the end time of the
// second-to-last one.
func (p *Processor) secondToLastSentenceEnd() (float64, bool) {
	if len(p.committed) == 0 {
		return 0, false
	}
	timed := make([]sentence.TimedWord, len(p.committed))
	for i, w := range p.committed {
		timed[i] = sentence.TimedWord{Start: w.Start, End: w.End, Text: w.Text}
	}
	sents := sentence.AssignTimestamps(timed)
	if len(sents) < 2 {
		return 0, false
	}
	return sents[len(sents)-2].End, true
}

// ChunkAt drops the committed and audio-buffer history up to absolute time
// t and advances buffer_time_offset to t.
func (p *Processor) ChunkAt(t float64) {
	p.hb.PopCommitted(t)
	drop := int((t - p.bufferTimeOffset) * SampleRate)
	if drop < 0 {
		drop = 0
	}
	if drop > len(p.audio) {
		drop = len(p.audio)
	}
	p.audio = p.audio[drop:]
	p.bufferTimeOffset = t
}

// Finish flushes the unconfirmed tail held by the hypothesis buffer as a
// final emission, for use when a session ends.
func (p *Processor) Finish() Emitted {
	tail := p.hb.Complete()
	if len(tail) == 0 {
		return Emitted{}
	}
	texts := make([]string, len(tail))
	for i, w := range tail {
		texts[i] = w.Text
	}
	return Emitted{
		Beg:   tail[0].Start,
		End:   tail[len(tail)-1].End,
		Text:  strings.Join(texts, p.rec.Sep()),
		Valid: true,
	}
}

// BufferTimeOffset returns the absolute time of sample index 0 in the
// retention buffer.
func (p *Processor) BufferTimeOffset() float64 { return p.bufferTimeOffset }

// BufferLen returns the current retention buffer length in samples.
func (p *Processor) BufferLen() int { return len(p.audio) }
