package karaoke

import (
	"fmt"
	"html"
	"strings"
	"unicode"
)

// Slice is a half-open rune range of a Source materialized on exactly one
// page. Slices of one source are contiguous, non-overlapping and together
// cover [0, Len()) exactly once.
type Slice struct {
	KaraokeID string `json:"karaokeId"`
	StartChar int    `json:"startChar"`
	EndChar   int    `json:"endChar"`
}

// FitFunc reports how many runes of text fit into the space left on the
// current page, cut at a word boundary. Zero means nothing fits.
type FitFunc func(text string) int

// Cut produces the next slice of s starting at cursor. When nothing fits the
// returned slice is empty and the caller is expected to finalize the page
// and retry; on a page that is already empty minChars forces progress so
// slicing always terminates. The forced chunk is extended to the next word
// boundary when one exists within the text.
func Cut(s *Source, cursor int, fit FitFunc, minChars int, pageEmpty bool) Slice {
	rest := s.Snippet(cursor, s.Len())
	if len(rest) == 0 {
		return Slice{KaraokeID: s.ID, StartChar: cursor, EndChar: cursor}
	}

	n := fit(rest)
	if n <= 0 {
		if !pageEmpty {
			return Slice{KaraokeID: s.ID, StartChar: cursor, EndChar: cursor}
		}
		n = forcedChunk(rest, minChars)
	}
	n = min(n, s.Len()-cursor)
	return Slice{KaraokeID: s.ID, StartChar: cursor, EndChar: cursor + n}
}

// Empty reports whether the slice covers no characters.
func (sl Slice) Empty() bool { return sl.EndChar <= sl.StartChar }

// forcedChunk returns the floor chunk length in runes, snapped forward to
// the next word boundary so timing offsets keep lining up with whole words.
func forcedChunk(text string, minChars int) int {
	runes := []rune(text)
	if minChars >= len(runes) {
		return len(runes)
	}
	n := minChars
	for n < len(runes) && !unicode.IsSpace(runes[n]) {
		n++
	}
	// swallow the boundary whitespace so the next slice starts on a word
	for n < len(runes) && unicode.IsSpace(runes[n]) {
		n++
	}
	return n
}

// Markup renders the slice as word spans carrying the offsets and timings
// the playback surface needs. Untimed trailing words render as plain spans.
func Markup(s *Source, sl Slice) string {
	var b strings.Builder
	fmt.Fprintf(&b, `<div class="karaoke" data-karaoke-id="%s" data-start-char="%d" data-end-char="%d">`,
		html.EscapeString(s.ID), sl.StartChar, sl.EndChar)

	words := s.WordsIn(sl)
	cursor := sl.StartChar
	for _, w := range words {
		if w.CharStart > cursor {
			b.WriteString(html.EscapeString(s.Snippet(cursor, w.CharStart)))
		}
		fmt.Fprintf(&b, `<span class="karaoke-word" data-word-index="%d" data-start="%g" data-end="%g">%s</span>`,
			w.WordIndex, w.Start, w.End,
			html.EscapeString(s.Snippet(max(w.CharStart, sl.StartChar), min(w.CharEnd, sl.EndChar))))
		cursor = w.CharEnd
	}
	if cursor < sl.EndChar {
		b.WriteString(html.EscapeString(s.Snippet(cursor, sl.EndChar)))
	}
	b.WriteString(`</div>`)
	return b.String()
}
