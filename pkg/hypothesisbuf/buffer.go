// Package hypothesisbuf implements the LocalAgreement-1 hypothesis
// reconciliation buffer: it turns successive, overlapping word-level
// hypotheses from a speech recognizer into a monotonic stream of committed
// words.
package hypothesisbuf

// Word is a single timestamped token on the session-global timeline.
// Start and End are in seconds; Start must be <= End. Text is never
// trimmed of leading/trailing whitespace, since some recognizers encode
// word-boundary information in the spacing.
type Word struct {
	Start float64
	End   float64
	Text  string
}

// staleTolerance absorbs small recognizer jitter: a new word that starts
// slightly before the last committed time is still accepted.
const staleTolerance = 0.1

// overlapWindow bounds how far back we look for a repeated n-gram between
// the tail of committed and the head of a fresh hypothesis.
const overlapWindow = 1.0

// maxMergeN caps the n-gram length considered during dedup merge.
const maxMergeN = 5

// Buffer holds the reconciliation state for one recognizer stream.
//
// committed is append-only: once a word is promoted via Flush it is never
// rewritten, only later dropped from the front by PopCommitted as it falls
// out of the recognizer's prompt window.
type Buffer struct {
	committed         []Word
	new               []Word
	buffer            []Word
	lastCommittedTime float64
}

// New creates an empty Buffer whose last-committed-time baseline is 0.
func New() *Buffer {
	return &Buffer{}
}

// LastCommittedTime returns the absolute end-time of the most recently
// committed word (or the offset set via SetLastCommittedTime if nothing
// has been committed yet).
func (b *Buffer) LastCommittedTime() float64 {
	return b.lastCommittedTime
}

// SetLastCommittedTime seeds the staleness baseline. Used by callers that
// re-initialize a session at a non-zero time offset.
func (b *Buffer) SetLastCommittedTime(t float64) {
	b.lastCommittedTime = t
}

// Committed returns the full committed log. Callers must not mutate the
// returned slice.
func (b *Buffer) Committed() []Word {
	return b.committed
}

// Insert absorbs a fresh hypothesis batch, shifting it onto the absolute
// timeline, discarding anything older than what's already committed, and
// dropping a leading n-gram of the new batch that repeats the tail of the
// committed words.
func (b *Buffer) Insert(words []Word, timeOffset float64) {
	shifted := make([]Word, 0, len(words))
	for _, w := range words {
		w.Start += timeOffset
		w.End += timeOffset
		if w.Start < b.lastCommittedTime-staleTolerance {
			continue
		}
		shifted = append(shifted, w)
	}
	b.new = shifted

	if len(b.new) == 0 {
		return
	}
	if b.new[0].Start-b.lastCommittedTime > overlapWindow {
		return
	}
	if len(b.committed) == 0 {
		return
	}

	n := len(b.committed)
	if len(b.new) < n {
		n = len(b.new)
	}
	if n > maxMergeN {
		n = maxMergeN
	}
	for ; n >= 1; n-- {
		tailMatches := true
		for i := 0; i < n; i++ {
			if b.committed[len(b.committed)-n+i].Text != b.new[i].Text {
				tailMatches = false
				break
			}
		}
		if tailMatches {
			b.new = b.new[n:]
			return
		}
	}
}

// Flush promotes every leading word that agrees, by exact text, between
// the carried-over buffer and the freshly inserted new queue. Agreement
// stops at the first mismatch; the remaining new queue becomes the next
// buffer. Returns the words newly promoted to committed, in order.
func (b *Buffer) Flush() []Word {
	var promoted []Word

	for len(b.buffer) > 0 && len(b.new) > 0 && b.buffer[0].Text == b.new[0].Text {
		w := b.new[0]
		b.committed = append(b.committed, w)
		b.lastCommittedTime = w.End
		promoted = append(promoted, w)
		b.buffer = b.buffer[1:]
		b.new = b.new[1:]
	}

	b.buffer = b.new
	b.new = nil
	return promoted
}

// Complete returns the current unconfirmed tail without committing it, for
// use when finalizing a session.
func (b *Buffer) Complete() []Word {
	return b.buffer
}

// PopCommitted drops every committed entry that fully precedes time t,
// bounding the memory of the committed prefix once it falls out of the
// recognizer's prompt window.
func (b *Buffer) PopCommitted(t float64) {
	i := 0
	for i < len(b.committed) && b.committed[i].End <= t {
		i++
	}
	b.committed = b.committed[i:]
}
