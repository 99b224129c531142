package measure

import (
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"

	"pager/book"
)

// Oracle measures rendered height of an HTML-like fragment laid out at the
// given page width. Implementations must not leak state between calls - two
// identical calls return identical heights.
type Oracle interface {
	MeasureHeight(fragment string, widthPx float64, style *StyleContext) (float64, error)
}

// heading sizes relative to body text, line height fixed at 1.3
var headingScale = map[string]float64{
	"h1": 1.6, "h2": 1.4, "h3": 1.25, "h4": 1.15, "h5": 1.0, "h6": 1.0,
}

const headingLineHeight = 1.3

// Probe is the font-metrics implementation of Oracle. It wraps text with
// real glyph advances instead of a browser DOM. Face construction is cached
// per font size; layout itself keeps no state.
type Probe struct {
	fnt   *opentype.Font
	media *MediaIndex
	log   *zap.Logger

	mu    sync.Mutex
	faces map[int]font.Face
}

// NewProbe builds a probe over the given TTF/OTF data. Empty data falls back
// to the embedded Go Regular face.
func NewProbe(fontData []byte, media *MediaIndex, log *zap.Logger) (*Probe, error) {
	if len(fontData) == 0 {
		fontData = goregular.TTF
	}
	fnt, err := opentype.Parse(fontData)
	if err != nil {
		return nil, fmt.Errorf("unable to parse probe font: %w", err)
	}
	return &Probe{
		fnt:   fnt,
		media: media,
		log:   log,
		faces: make(map[int]font.Face),
	}, nil
}

// MeasureHeight implements Oracle.
func (p *Probe) MeasureHeight(fragment string, widthPx float64, style *StyleContext) (float64, error) {
	if len(strings.TrimSpace(fragment)) == 0 {
		return 0, nil
	}
	if style == nil {
		style = DefaultStyle()
	}

	elements, err := book.ParseElements(fragment)
	if err != nil {
		return 0, fmt.Errorf("unable to parse fragment for measurement: %w", err)
	}

	var total float64
	for i := range elements {
		h, err := p.elementHeight(&elements[i], widthPx, style)
		if err != nil {
			return 0, err
		}
		total += h
	}
	return total, nil
}

func (p *Probe) elementHeight(el *book.Element, widthPx float64, style *StyleContext) (float64, error) {
	switch el.Kind {
	case book.ElementHeading:
		scale := headingScale[headingTag(el.HTML)]
		if scale == 0 {
			scale = 1.0
		}
		size := style.FontSizePx * scale
		face, err := p.face(size)
		if err != nil {
			return 0, err
		}
		lines := wrapLines(el.Text, widthPx, face)
		return float64(lines)*size*headingLineHeight + style.HeadingGapPx, nil

	case book.ElementImage, book.ElementVideo:
		return p.media.HeightAt(el.Src, widthPx) + style.ParagraphGapPx, nil

	case book.ElementDinkus:
		return style.DinkusHeightPx + style.ParagraphGapPx, nil

	case book.ElementPoetry:
		face, err := p.face(style.FontSizePx)
		if err != nil {
			return 0, err
		}
		var lines int
		for _, line := range strings.Split(el.Text, "\n") {
			if len(strings.TrimSpace(line)) == 0 {
				continue
			}
			// poetry is indented, lose a little width to the inset
			lines += wrapLines(line, widthPx*0.9, face)
		}
		return float64(lines)*style.LinePx() + style.ParagraphGapPx, nil

	default: // paragraph and karaoke text
		face, err := p.face(style.FontSizePx)
		if err != nil {
			return 0, err
		}
		lines := wrapLines(el.Text, widthPx, face)
		return float64(lines)*style.LinePx() + style.ParagraphGapPx, nil
	}
}

func (p *Probe) face(sizePx float64) (font.Face, error) {
	key := int(sizePx * 4) // quarter-pixel buckets
	p.mu.Lock()
	defer p.mu.Unlock()
	if f, ok := p.faces[key]; ok {
		return f, nil
	}
	f, err := opentype.NewFace(p.fnt, &opentype.FaceOptions{
		Size:    sizePx,
		DPI:     72, // point == pixel
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("unable to create probe face: %w", err)
	}
	p.faces[key] = f
	return f, nil
}

func headingTag(htmlSrc string) string {
	s := strings.TrimSpace(htmlSrc)
	if len(s) >= 3 && s[0] == '<' && (s[1] == 'h' || s[1] == 'H') && s[2] >= '1' && s[2] <= '6' {
		return strings.ToLower(s[1:3])
	}
	return ""
}

// wrapLines greedily wraps text into lines of at most widthPx using real
// glyph advances and returns the line count. A word wider than the page
// still occupies a single (overflowing) line - the renderer hyphenates
// visually, offsets must not move.
func wrapLines(text string, widthPx float64, face font.Face) int {
	words := strings.Fields(text)
	if len(words) == 0 {
		return 0
	}

	limit := fixed.Int26_6(widthPx * 64)
	space := font.MeasureString(face, " ")

	lines := 1
	lineWidth := font.MeasureString(face, words[0])
	for _, w := range words[1:] {
		adv := font.MeasureString(face, w)
		if lineWidth+space+adv > limit {
			lines++
			lineWidth = adv
			continue
		}
		lineWidth += space + adv
	}
	return lines
}

