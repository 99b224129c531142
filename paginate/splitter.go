package paginate

import (
	"errors"
	"html"
	"strings"
	"unicode"

	"pager/measure"
	"pager/text"
)

// ErrNoSafeSplit is returned when a paragraph cannot be divided at any
// sentence or word boundary within the given height budget.
var ErrNoSafeSplit = errors.New("no safe split point found")

// Splitter divides paragraph text at safe boundaries so that the first part
// fits a height budget. Sentence boundaries are preferred, word boundaries
// are the fallback; a split is never made inside a word.
type Splitter struct {
	oracle measure.Oracle
	sent   *text.Splitter
	style  *measure.StyleContext

	widthPx        float64
	orphanMinWords int
}

func NewSplitter(oracle measure.Oracle, sent *text.Splitter, widthPx float64, style *measure.StyleContext, orphanMinWords int) *Splitter {
	return &Splitter{
		oracle:         oracle,
		sent:           sent,
		style:          style,
		widthPx:        widthPx,
		orphanMinWords: orphanMinWords,
	}
}

// Split returns (first, second) where first is the longest boundary-safe
// prefix measuring at most budgetPx. A first part shorter than the orphan
// minimum counts as not splittable. When the whole text fits second is
// empty.
func (s *Splitter) Split(para string, budgetPx float64) (string, string, error) {
	if budgetPx <= 0 {
		return "", "", ErrNoSafeSplit
	}

	whole, err := s.TextHeight(para)
	if err != nil {
		return "", "", err
	}
	if whole <= budgetPx {
		return para, "", nil
	}

	if first, second, err := s.splitAt(s.sent.Split(para), budgetPx); err == nil {
		return first, second, nil
	} else if !errors.Is(err, ErrNoSafeSplit) {
		return "", "", err
	}
	// word-boundary fallback; non-breaking spaces do not separate words
	return s.splitAt(s.sent.SplitWords(para, false), budgetPx)
}

// splitAt finds the longest prefix of parts fitting the budget. Height is
// monotonic in prefix length so binary search over boundaries works.
func (s *Splitter) splitAt(parts []string, budgetPx float64) (string, string, error) {
	if len(parts) < 2 {
		return "", "", ErrNoSafeSplit
	}

	fits := 0
	lo, hi := 1, len(parts)-1
	for lo <= hi {
		mid := (lo + hi) / 2
		h, err := s.TextHeight(joinParts(parts[:mid]))
		if err != nil {
			return "", "", err
		}
		if h <= budgetPx {
			fits = mid
			lo = mid + 1
		} else {
			hi = mid - 1
		}
	}

	first := joinParts(parts[:fits])
	if fits == 0 || wordCount(first) < s.orphanMinWords {
		return "", "", ErrNoSafeSplit
	}
	return first, joinParts(parts[fits:]), nil
}

// FitChars reports how many runes of textStr fit into budgetPx, cut at a
// word boundary with the boundary whitespace included so consecutive calls
// produce contiguous ranges. Zero means not even the first word fits.
func (s *Splitter) FitChars(textStr string, budgetPx float64) (int, error) {
	if budgetPx <= 0 {
		return 0, nil
	}
	runes := []rune(textStr)
	bounds := wordBounds(runes)
	if len(bounds) == 0 {
		return 0, nil
	}

	fits := 0
	lo, hi := 1, len(bounds)
	for lo <= hi {
		mid := (lo + hi) / 2
		h, err := s.TextHeight(string(runes[:bounds[mid-1]]))
		if err != nil {
			return 0, err
		}
		if h <= budgetPx {
			fits = mid
			lo = mid + 1
		} else {
			hi = mid - 1
		}
	}
	if fits == 0 {
		return 0, nil
	}

	cut := bounds[fits-1]
	for cut < len(runes) && unicode.IsSpace(runes[cut]) {
		cut++
	}
	return cut, nil
}

// TextHeight measures plain paragraph text as rendered.
func (s *Splitter) TextHeight(textStr string) (float64, error) {
	if len(strings.TrimSpace(textStr)) == 0 {
		return 0, nil
	}
	return s.oracle.MeasureHeight("<p>"+html.EscapeString(textStr)+"</p>", s.widthPx, s.style)
}

// joinParts reassembles boundary parts normalizing the seam to one space.
func joinParts(parts []string) string {
	trimmed := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); len(p) > 0 {
			trimmed = append(trimmed, p)
		}
	}
	return strings.Join(trimmed, " ")
}

func wordCount(s string) int {
	return len(strings.Fields(s))
}

// wordBounds returns the rune offset just past each word.
func wordBounds(runes []rune) []int {
	var bounds []int
	inWord := false
	for i, r := range runes {
		if unicode.IsSpace(r) {
			if inWord {
				bounds = append(bounds, i)
				inWord = false
			}
			continue
		}
		inWord = true
	}
	if inWord {
		bounds = append(bounds, len(runes))
	}
	return bounds
}
