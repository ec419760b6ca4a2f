package hypothesisbuf

import (
	"reflect"
	"testing"
)

func words(ws ...Word) []Word { return ws }

// TestBuffer_SingleCommit checks LocalAgreement-1's basic case: a word
// repeated across two consecutive hypotheses commits, the rest stays
// tentative.
func TestBuffer_SingleCommit(t *testing.T) {
	b := New()

	h1 := words(
		Word{Start: 0.0, End: 0.4, Text: "hello"},
		Word{Start: 0.4, End: 0.8, Text: "world"},
	)
	b.Insert(h1, 0)
	if out := b.Flush(); len(out) != 0 {
		t.Fatalf("expected no commits after H1, got %v", out)
	}
	if !reflect.DeepEqual(b.Complete(), h1) {
		t.Fatalf("expected buffer to hold both words, got %v", b.Complete())
	}

	h2 := words(
		Word{Start: 0.0, End: 0.4, Text: "hello"},
		Word{Start: 0.4, End: 0.8, Text: "world"},
		Word{Start: 0.8, End: 1.2, Text: "today"},
	)
	b.Insert(h2, 0)
	out := b.Flush()
	want := words(
		Word{Start: 0.0, End: 0.4, Text: "hello"},
		Word{Start: 0.4, End: 0.8, Text: "world"},
	)
	if !reflect.DeepEqual(out, want) {
		t.Fatalf("flush mismatch: got %v want %v", out, want)
	}
	if b.LastCommittedTime() != 0.8 {
		t.Fatalf("expected last committed time 0.8, got %v", b.LastCommittedTime())
	}
}

func TestBuffer_StaleWordsDiscarded(t *testing.T) {
	b := New()
	b.SetLastCommittedTime(5.0)
	b.Insert(words(Word{Start: 4.0, End: 4.5, Text: "old"}, Word{Start: 5.2, End: 5.6, Text: "new"}), 0)
	if len(b.new) != 1 || b.new[0].Text != "new" {
		t.Fatalf("expected stale word filtered, got %v", b.new)
	}
}

func TestBuffer_NgramDedupMerge(t *testing.T) {
	b := New()
	b.Insert(words(Word{Start: 0, End: 0.5, Text: "a"}, Word{Start: 0.5, End: 1.0, Text: "b"}), 0)
	b.Flush() // buffer = [a, b], nothing committed yet

	// First, agree to commit "a", "b".
	b.Insert(words(Word{Start: 0, End: 0.5, Text: "a"}, Word{Start: 0.5, End: 1.0, Text: "b"}), 0)
	b.Flush() // commits a, b; lastCommittedTime = 1.0

	if len(b.Committed()) != 2 {
		t.Fatalf("expected 2 committed words, got %d", len(b.Committed()))
	}

	// Recognizer re-emits "b" with a fresh timestamp just past the
	// committed boundary (within the 1s overlap window), followed by new
	// material. The n-gram merge should drop the repeated "b".
	b.Insert(words(Word{Start: 1.0, End: 1.3, Text: "b"}, Word{Start: 1.3, End: 1.6, Text: "c"}, Word{Start: 1.6, End: 1.9, Text: "d"}), 0)
	if len(b.new) != 2 || b.new[0].Text != "c" || b.new[1].Text != "d" {
		t.Fatalf("expected dedup to drop leading 'b', got %v", b.new)
	}
}

func TestBuffer_FlushStopsAtMismatch(t *testing.T) {
	b := New()
	b.Insert(words(Word{Start: 0, End: 0.5, Text: "a"}, Word{Start: 0.5, End: 1.0, Text: "b"}), 0)
	b.Flush() // buffer = [a, b]

	b.Insert(words(Word{Start: 0, End: 0.5, Text: "a"}, Word{Start: 0.5, End: 1.0, Text: "x"}), 0)
	out := b.Flush()
	want := words(Word{Start: 0, End: 0.5, Text: "a"})
	if !reflect.DeepEqual(out, want) {
		t.Fatalf("expected only 'a' committed, got %v", out)
	}
	if len(b.Complete()) != 1 || b.Complete()[0].Text != "x" {
		t.Fatalf("expected buffer to carry over 'x', got %v", b.Complete())
	}
}

func TestBuffer_PopCommitted(t *testing.T) {
	b := New()
	b.Insert(words(Word{Start: 0, End: 0.5, Text: "a"}, Word{Start: 0.5, End: 1.0, Text: "b"}), 0)
	b.Flush()
	b.Insert(words(Word{Start: 0, End: 0.5, Text: "a"}, Word{Start: 0.5, End: 1.0, Text: "b"}, Word{Start: 1.0, End: 1.5, Text: "c"}), 0)
	b.Flush()

	b.PopCommitted(0.6)
	if len(b.Committed()) != 1 || b.Committed()[0].Text != "b" {
		t.Fatalf("expected only 'b' to remain committed, got %v", b.Committed())
	}
}

func TestBuffer_AppendOnlyAcrossCalls(t *testing.T) {
	b := New()
	seen := map[string]bool{}
	insert := func(ws []Word) {
		b.Insert(ws, 0)
		for _, w := range b.Flush() {
			key := w.Text
			if seen[key] {
				t.Fatalf("word %q committed twice", key)
			}
			seen[key] = true
		}
	}
	insert(words(Word{Start: 0, End: 0.3, Text: "one"}))
	insert(words(Word{Start: 0, End: 0.3, Text: "one"}, Word{Start: 0.3, End: 0.6, Text: "two"}))
	insert(words(Word{Start: 0.3, End: 0.6, Text: "two"}, Word{Start: 0.6, End: 0.9, Text: "three"}))
}
