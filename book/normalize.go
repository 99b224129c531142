package book

import (
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/rangetable"
)

// manual hyphenation markers must never reach karaoke sources - character
// offsets used for timing have to stay stable
var softHyphens = rangetable.New('­', '‧')

var apostrophes = map[rune]rune{
	'’': '\'', // right single quotation mark
	'ʼ': '\'', // modifier letter apostrophe
	'`': '\'', // grave accent
	'´': '\'', // acute accent
	'‘': '\'', // left single quotation mark
}

var normalizer = transform.Chain(
	runes.Remove(runes.In(softHyphens)),
	runes.Map(func(r rune) rune {
		if to, ok := apostrophes[r]; ok {
			return to
		}
		return r
	}),
)

// NormalizeText canonicalizes apostrophe variants and strips manual hyphens.
// Applied exactly once when a karaoke source is created so that character
// offsets stay stable afterwards.
func NormalizeText(in string) string {
	out, _, err := transform.String(normalizer, in)
	if err != nil {
		// transformer never fails on valid UTF-8, keep input on bad bytes
		return in
	}
	return out
}
