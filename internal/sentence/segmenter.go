// Package sentence turns a stream of text fragments into complete,
// speakable sentences. It exists so streamed chat replies can be handed to
// speech synthesis one sentence at a time instead of waiting for the full
// reply.
package sentence

import "strings"

// Segmenter accumulates text fragments and extracts complete sentences.
// A sentence ends at a run of terminal punctuation (. ! ?) followed by
// whitespace. Text whose trailing punctuation has not yet been confirmed by
// following whitespace stays buffered until [Segmenter.Flush].
//
// A Segmenter owns its buffer exclusively and is not safe for concurrent
// use; create one per reply stream.
type Segmenter struct {
	buf strings.Builder
}

// Add appends fragment to the buffer and returns all complete sentences that
// can now be extracted, in order. Each returned sentence is trimmed; results
// that are empty after trimming are dropped. The sentence sequence depends
// only on the concatenation of all fragments, not on where the fragment
// boundaries fall.
func (s *Segmenter) Add(fragment string) []string {
	s.buf.WriteString(fragment)

	var out []string
	for {
		idx := boundary(s.buf.String())
		if idx < 0 {
			break
		}
		text := s.buf.String()
		extracted := strings.TrimSpace(text[:idx+1])
		rest := strings.TrimLeft(text[idx+1:], " \t\n\r")
		s.buf.Reset()
		s.buf.WriteString(rest)
		if extracted != "" {
			out = append(out, extracted)
		}
	}
	return out
}

// Flush returns the remaining buffered text, trimmed, and clears the buffer.
// Call it at end-of-stream to recover a final fragment that lacks terminal
// punctuation.
func (s *Segmenter) Flush() string {
	out := strings.TrimSpace(s.buf.String())
	s.buf.Reset()
	return out
}

// boundary returns the index of the last punctuation mark of the first
// sentence-ending punctuation run that is confirmed by following whitespace,
// or -1 when the buffer holds no complete sentence.
func boundary(s string) int {
	for i := 0; i < len(s)-1; i++ {
		switch s[i] {
		case '.', '!', '?':
			switch s[i+1] {
			case ' ', '\n', '\r', '\t':
				return i
			}
		}
	}
	return -1
}
