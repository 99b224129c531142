// Package measure implements the measurement oracle: given an HTML-like
// fragment and a page width it returns the height the fragment would occupy
// when rendered. The implementation is a headless layout probe built on real
// font metrics so that measured height matches eventual rendered height
// within a small tolerance.
package measure

import (
	"bytes"
	"strconv"
	"strings"

	parse "github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/css"
)

// StyleContext carries the typography the probe applies to body paragraphs.
// It mirrors the styling rules of the real renderer.
type StyleContext struct {
	FontSizePx     float64 // body font size
	LineHeight     float64 // multiplier over font size
	ParagraphGapPx float64 // margin below a paragraph
	HeadingGapPx   float64 // margin below a heading
	DinkusHeightPx float64 // fixed height of a decorative divider
}

// DefaultStyle returns probe defaults matching the reader's serif body text.
func DefaultStyle() *StyleContext {
	return &StyleContext{
		FontSizePx:     18,
		LineHeight:     1.6,
		ParagraphGapPx: 12,
		HeadingGapPx:   24,
		DinkusHeightPx: 28,
	}
}

// LinePx is the height of a single text line box.
func (s *StyleContext) LinePx() float64 {
	return s.FontSizePx * s.LineHeight
}

// ParseStyle overlays CSS declarations ("font-size: 18px; line-height: 1.6")
// on top of defaults. Unknown properties and units are ignored - the probe
// is not a CSS engine, it only honors the declarations the renderer uses for
// body text.
func ParseStyle(declarations string) *StyleContext {
	sc := DefaultStyle()
	if len(declarations) == 0 {
		return sc
	}

	input := parse.NewInput(bytes.NewReader([]byte(declarations)))
	parser := css.NewParser(input, true)

	for {
		gt, _, data := parser.Next()
		if gt == css.ErrorGrammar {
			return sc
		}
		if gt != css.DeclarationGrammar {
			continue
		}

		prop := strings.ToLower(string(data))
		val, unit := firstNumeric(parser.Values())
		if val < 0 {
			continue
		}

		switch prop {
		case "font-size":
			if unit == "px" {
				sc.FontSizePx = val
			}
		case "line-height":
			switch unit {
			case "":
				sc.LineHeight = val
			case "px":
				if sc.FontSizePx > 0 {
					sc.LineHeight = val / sc.FontSizePx
				}
			}
		case "margin-bottom":
			if unit == "px" {
				sc.ParagraphGapPx = val
			}
		}
	}
}

// firstNumeric returns the first numeric token value and its dimension unit.
func firstNumeric(tokens []css.Token) (float64, string) {
	for _, t := range tokens {
		switch t.TokenType {
		case css.NumberToken:
			if v, err := strconv.ParseFloat(string(t.Data), 64); err == nil {
				return v, ""
			}
		case css.DimensionToken:
			s := string(t.Data)
			unit := strings.TrimLeft(s, "0123456789.+-")
			if v, err := strconv.ParseFloat(strings.TrimSuffix(s, unit), 64); err == nil {
				return v, strings.ToLower(unit)
			}
		}
	}
	return -1, ""
}
