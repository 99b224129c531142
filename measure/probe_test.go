package measure

import (
	"strings"
	"testing"

	"go.uber.org/zap/zaptest"
)

func newTestProbe(t *testing.T) *Probe {
	t.Helper()
	log := zaptest.NewLogger(t)
	p, err := NewProbe(nil, NewMediaIndex(log), log)
	if err != nil {
		t.Fatalf("NewProbe() error = %v", err)
	}
	return p
}

func TestMeasureHeightDeterminism(t *testing.T) {
	p := newTestProbe(t)
	style := DefaultStyle()
	fragment := "<p>" + strings.Repeat("determinism is a feature ", 40) + "</p>"

	h1, err := p.MeasureHeight(fragment, 390, style)
	if err != nil {
		t.Fatal(err)
	}
	h2, err := p.MeasureHeight(fragment, 390, style)
	if err != nil {
		t.Fatal(err)
	}
	if h1 != h2 {
		t.Errorf("two measurements differ: %f vs %f", h1, h2)
	}
	if h1 <= 0 {
		t.Errorf("expected positive height, got %f", h1)
	}
}

func TestMeasureHeightGrowsWithContent(t *testing.T) {
	p := newTestProbe(t)
	style := DefaultStyle()

	short, err := p.MeasureHeight("<p>one line</p>", 390, style)
	if err != nil {
		t.Fatal(err)
	}
	long, err := p.MeasureHeight("<p>"+strings.Repeat("plenty of words to wrap ", 30)+"</p>", 390, style)
	if err != nil {
		t.Fatal(err)
	}
	if long <= short {
		t.Errorf("long paragraph (%f) not taller than short one (%f)", long, short)
	}
}

func TestMeasureHeightNarrowerPageIsTaller(t *testing.T) {
	p := newTestProbe(t)
	style := DefaultStyle()
	fragment := "<p>" + strings.Repeat("narrow pages wrap more ", 20) + "</p>"

	wide, err := p.MeasureHeight(fragment, 800, style)
	if err != nil {
		t.Fatal(err)
	}
	narrow, err := p.MeasureHeight(fragment, 300, style)
	if err != nil {
		t.Fatal(err)
	}
	if narrow <= wide {
		t.Errorf("narrow page (%f) not taller than wide page (%f)", narrow, wide)
	}
}

func TestMeasureHeightSingleLine(t *testing.T) {
	p := newTestProbe(t)
	style := DefaultStyle()

	got, err := p.MeasureHeight("<p>tiny</p>", 390, style)
	if err != nil {
		t.Fatal(err)
	}
	want := style.LinePx() + style.ParagraphGapPx
	if got != want {
		t.Errorf("single line height = %f, want %f", got, want)
	}
}

func TestMeasureHeightHeadingTallerThanParagraph(t *testing.T) {
	p := newTestProbe(t)
	style := DefaultStyle()

	para, err := p.MeasureHeight("<p>Chapter One</p>", 390, style)
	if err != nil {
		t.Fatal(err)
	}
	head, err := p.MeasureHeight("<h1>Chapter One</h1>", 390, style)
	if err != nil {
		t.Fatal(err)
	}
	if head <= para {
		t.Errorf("heading (%f) not taller than paragraph (%f)", head, para)
	}
}

func TestMeasureHeightEmptyFragment(t *testing.T) {
	p := newTestProbe(t)
	got, err := p.MeasureHeight("   ", 390, DefaultStyle())
	if err != nil {
		t.Fatal(err)
	}
	if got != 0 {
		t.Errorf("empty fragment height = %f, want 0", got)
	}
}

func TestMeasureHeightImageFallback(t *testing.T) {
	p := newTestProbe(t)
	style := DefaultStyle()

	// unknown source resolves as a 4:3 fallback box
	got, err := p.MeasureHeight(`<img src="media/missing.jpg">`, 400, style)
	if err != nil {
		t.Fatal(err)
	}
	want := 400*fallbackAspect + style.ParagraphGapPx
	if got != want {
		t.Errorf("image fallback height = %f, want %f", got, want)
	}
}

func TestWrapLinesLongWord(t *testing.T) {
	p := newTestProbe(t)
	face, err := p.face(18)
	if err != nil {
		t.Fatal(err)
	}
	// a word wider than the page still occupies exactly one line
	if lines := wrapLines(strings.Repeat("x", 300), 100, face); lines != 1 {
		t.Errorf("oversized word wrapped into %d lines, want 1", lines)
	}
	if lines := wrapLines("", 100, face); lines != 0 {
		t.Errorf("empty text = %d lines, want 0", lines)
	}
}

func TestParseStyle(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want func(*StyleContext) bool
	}{
		{"defaults", "", func(s *StyleContext) bool { return s.FontSizePx == 18 && s.LineHeight == 1.6 }},
		{"font size", "font-size: 20px", func(s *StyleContext) bool { return s.FontSizePx == 20 }},
		{"unitless line height", "line-height: 1.5", func(s *StyleContext) bool { return s.LineHeight == 1.5 }},
		{"pixel line height", "font-size: 20px; line-height: 30px", func(s *StyleContext) bool { return s.LineHeight == 1.5 }},
		{"margin", "margin-bottom: 16px", func(s *StyleContext) bool { return s.ParagraphGapPx == 16 }},
		{"garbage ignored", "color: red; font-size: weird", func(s *StyleContext) bool { return s.FontSizePx == 18 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if sc := ParseStyle(tt.in); !tt.want(sc) {
				t.Errorf("ParseStyle(%q) = %+v", tt.in, sc)
			}
		})
	}
}
