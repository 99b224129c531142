// Package karaoke implements audio-synchronized text: a read-only timing
// model built once per block (Source), page-bounded character slices of that
// model, and a playback controller driving per-word highlight state from
// audio time.
package karaoke

import (
	"fmt"
	"unicode"

	"pager/book"
)

// LetterTiming is the audio interval of a single character. Characters
// outside any timed word (whitespace, punctuation between words) carry no
// timing.
type LetterTiming struct {
	Start float64
	End   float64
}

// WordRange ties one timed word to its character span in the normalized
// source text.
type WordRange struct {
	Word      string
	Start     float64 // seconds
	End       float64 // seconds
	CharStart int     // rune offset, inclusive
	CharEnd   int     // rune offset, exclusive
	WordIndex int
}

// Source is the shared text/timing model for one karaoke block. It is built
// once from the block payload and read-only afterward, so character offsets
// recorded in slices and playback state stay valid for the lifetime of a
// pagination result.
type Source struct {
	ID       string
	Text     string // normalized
	AudioURL string

	runes   []rune
	words   []WordRange
	letters []LetterTiming
	timed   []bool
}

// NewSource normalizes the payload text exactly once and derives character
// ranges and per-letter timings from the word timings. Word timings are
// matched to words of the normalized text in order; extra timings are
// ignored, untimed trailing words stay untimed.
func NewSource(id string, payload *book.KaraokePayload) (*Source, error) {
	if payload == nil {
		return nil, fmt.Errorf("karaoke block %q has no payload", id)
	}
	text := book.NormalizeText(payload.Text)
	runes := []rune(text)

	s := &Source{
		ID:       id,
		Text:     text,
		AudioURL: payload.AudioURL,
		runes:    runes,
		letters:  make([]LetterTiming, len(runes)),
		timed:    make([]bool, len(runes)),
	}

	idx := 0
	for _, span := range wordSpans(runes) {
		if idx >= len(payload.WordTimings) {
			break
		}
		wt := payload.WordTimings[idx]
		wr := WordRange{
			Word:      string(runes[span[0]:span[1]]),
			Start:     wt.Start,
			End:       wt.End,
			CharStart: span[0],
			CharEnd:   span[1],
			WordIndex: idx,
		}
		s.words = append(s.words, wr)
		s.spreadTimings(wr)
		idx++
	}
	return s, nil
}

// spreadTimings interpolates the word interval linearly across its
// characters so per-letter highlighting can animate inside a word.
func (s *Source) spreadTimings(wr WordRange) {
	n := wr.CharEnd - wr.CharStart
	if n <= 0 {
		return
	}
	step := (wr.End - wr.Start) / float64(n)
	for i := 0; i < n; i++ {
		at := wr.CharStart + i
		s.letters[at] = LetterTiming{
			Start: wr.Start + float64(i)*step,
			End:   wr.Start + float64(i+1)*step,
		}
		s.timed[at] = true
	}
}

// Len returns the text length in runes. All slice offsets are rune offsets.
func (s *Source) Len() int { return len(s.runes) }

// Snippet returns the text of the half-open rune range [start, end).
func (s *Source) Snippet(start, end int) string {
	start = max(0, min(start, len(s.runes)))
	end = max(start, min(end, len(s.runes)))
	return string(s.runes[start:end])
}

// Words returns all timed words in text order.
func (s *Source) Words() []WordRange { return s.words }

// LetterTiming returns the timing of the character at rune offset i, if the
// character belongs to a timed word.
func (s *Source) LetterTiming(i int) (LetterTiming, bool) {
	if i < 0 || i >= len(s.letters) || !s.timed[i] {
		return LetterTiming{}, false
	}
	return s.letters[i], true
}

// WordsIn returns the timed words whose character span intersects the slice.
func (s *Source) WordsIn(sl Slice) []WordRange {
	var out []WordRange
	for _, w := range s.words {
		if w.CharEnd <= sl.StartChar {
			continue
		}
		if w.CharStart >= sl.EndChar {
			break
		}
		out = append(out, w)
	}
	return out
}

// WordAfter returns the first timed word starting at or after the given rune
// offset.
func (s *Source) WordAfter(char int) (WordRange, bool) {
	for _, w := range s.words {
		if w.CharStart >= char {
			return w, true
		}
	}
	return WordRange{}, false
}

// wordSpans returns [start, end) rune ranges of whitespace-separated words.
func wordSpans(runes []rune) [][2]int {
	var spans [][2]int
	start := -1
	for i, r := range runes {
		if unicode.IsSpace(r) {
			if start >= 0 {
				spans = append(spans, [2]int{start, i})
				start = -1
			}
			continue
		}
		if start < 0 {
			start = i
		}
	}
	if start >= 0 {
		spans = append(spans, [2]int{start, len(runes)})
	}
	return spans
}
