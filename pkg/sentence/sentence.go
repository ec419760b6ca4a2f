// Package sentence implements a heuristic sentence/clause boundary
// detector: a small, dependency-free fallback rather than a full NLP
// tokenizer, used by the online processor's sentence-mode chunking and
// the adaptive translation buffer's boundary search.
package sentence

import "strings"

// Terminators is the sentence-terminator rune set.
var Terminators = []rune{'.', '!', '?', '。', '！', '？', '।', '॥', '։', '؟'}

// IsTerminator reports whether r is a recognized sentence terminator.
func IsTerminator(r rune) bool {
	for _, t := range Terminators {
		if t == r {
			return true
		}
	}
	return false
}

// EndsSentence reports whether text (after trimming trailing whitespace)
// ends with a sentence terminator.
func EndsSentence(text string) bool {
	t := strings.TrimRight(text, " \t\n\r")
	if t == "" {
		return false
	}
	r := []rune(t)
	return IsTerminator(r[len(r)-1])
}

// LastTerminatorSplit splits text at the last sentence terminator,
// returning (prefix-including-terminator, remainder), each trimmed of
// surrounding whitespace. If no terminator is found, it returns ("", text)
// with text trimmed the same way.
func LastTerminatorSplit(text string) (prefix, rest string) {
	runes := []rune(text)
	last := -1
	for i, r := range runes {
		if IsTerminator(r) {
			last = i
		}
	}
	if last == -1 {
		return "", strings.TrimSpace(text)
	}
	return strings.TrimSpace(string(runes[:last+1])), strings.TrimSpace(string(runes[last+1:]))
}

// LastCommaSplit splits text at the last clause comma, returning
// (prefix, remainder) without the comma, each trimmed of surrounding
// whitespace. If no comma is found, it returns ("", text) with text trimmed
// the same way.
func LastCommaSplit(text string) (prefix, rest string) {
	idx := strings.LastIndex(text, ",")
	if idx == -1 {
		return "", strings.TrimSpace(text)
	}
	return strings.TrimSpace(text[:idx]), strings.TrimSpace(text[idx+1:])
}

// Split breaks text into a sequence of sentences using the terminator set,
// keeping the terminator attached to its sentence. Any trailing fragment
// without a terminator is returned as a final, unterminated sentence.
func Split(text string) []string {
	var out []string
	runes := []rune(text)
	start := 0
	for i, r := range runes {
		if IsTerminator(r) {
			sent := strings.TrimSpace(string(runes[start : i+1]))
			if sent != "" {
				out = append(out, sent)
			}
			start = i + 1
		}
	}
	if start < len(runes) {
		rest := strings.TrimSpace(string(runes[start:]))
		if rest != "" {
			out = append(out, rest)
		}
	}
	return out
}

// TimedWord is the minimal word shape AssignTimestamps needs: a start/end
// time and text. It mirrors hypothesisbuf.Word without importing that
// package, keeping sentence dependency-free.
type TimedWord struct {
	Start float64
	End   float64
	Text  string
}

// TimedSentence pairs a sentence string with the start/end time spanned by
// its constituent words.
type TimedSentence struct {
	Start float64
	End   float64
	Text  string
}

// AssignTimestamps re-attaches start/end times to the sentences produced by
// Split(word texts concatenated with no separator, so any spacing comes
// from the word texts themselves) by walking the original word sequence in
// lockstep with each sentence's text. Grounded on the original
// words_to_sentences greedy walk: it consumes words from the front,
// matching prefixes of the remaining sentence text, so punctuation
// attached to a word (e.g. "word.") still lines up.
func AssignTimestamps(words []TimedWord) []TimedSentence {
	if len(words) == 0 {
		return nil
	}
	var texts []string
	for _, w := range words {
		texts = append(texts, w.Text)
	}
	joined := strings.Join(texts, "")
	sentences := Split(joined)

	var out []TimedSentence
	cwords := append([]TimedWord(nil), words...)

	for _, raw := range sentences {
		sent := strings.TrimSpace(raw)
		fsent := sent
		var beg *float64
		for len(cwords) > 0 {
			w := cwords[0]
			cwords = cwords[1:]
			if beg == nil {
				b := w.Start
				beg = &b
			}
			wt := strings.TrimSpace(w.Text)
			sent = strings.TrimSpace(strings.TrimPrefix(sent, wt))
			if sent == "" {
				out = append(out, TimedSentence{Start: *beg, End: w.End, Text: fsent})
				break
			}
		}
	}
	return out
}
