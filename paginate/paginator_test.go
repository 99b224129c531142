package paginate

import (
	"encoding/json"
	"fmt"
	"html"
	"strings"
	"testing"

	"go.uber.org/zap/zaptest"

	"pager/book"
	"pager/config"
	"pager/measure"
)

// testGeometry is a 500x200 page under the fakeOracle model: 20px lines, 50
// runes per line, 20px flat bottom margin leaves room for 8 full lines.
func testGeometry() config.PageGeometry {
	return config.PageGeometry{Width: 500, Height: 200}
}

func testFit() config.FitConfig {
	return config.FitConfig{
		TolerancePx:           2,
		SafetyMarginPx:        4,
		DefaultBottomMarginPx: 20,
		KaraokeBottomMarginPx: 10,
		HeadingPaddingPx:      20,
		UnderfillMinPx:        5,
		UnderfillMaxPx:        10,
		LastElementOverflowPx: 30,
		OrphanMinWords:        2,
	}
}

func testKaraokeCfg() config.KaraokeConfig {
	return config.KaraokeConfig{MinSliceChars: 80, FrameIntervalMs: 16, MaxInitAttempts: 3}
}

func newTestPaginator(t *testing.T, blocks []book.ContentBlock) *Paginator {
	t.Helper()
	tracker := NewTracker(fakeOracle{}, 500, measure.DefaultStyle())
	tracker.Scan(blocks)
	return NewPaginator(fakeOracle{}, nil, tracker, testGeometry(), testFit(), testKaraokeCfg(),
		measure.DefaultStyle(), zaptest.NewLogger(t))
}

func block(html string) book.ContentBlock {
	return book.ContentBlock{
		Kind:         book.BlockChapter,
		Title:        "Chapter",
		HTML:         html,
		ChapterID:    "ch1",
		ChapterIndex: 0,
	}
}

func pageText(p Page) string {
	return normalized(html.UnescapeString(tagRe.ReplaceAllString(p.Content, " ")))
}

func TestPaginateSingleShortParagraph(t *testing.T) {
	b := block("<p>" + words(10) + "</p>")
	p := newTestPaginator(t, []book.ContentBlock{b})

	pages, err := p.PaginateBlock(&b, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(pages) != 1 {
		t.Fatalf("got %d pages, want 1", len(pages))
	}
	pg := pages[0]
	if pg.HasHeading || pg.Overflow || pg.IsKaraoke {
		t.Errorf("unexpected flags on %+v", pg)
	}
	if pg.PageIndex != 0 || pg.ChapterIndex != 0 || pg.ChapterID != "ch1" {
		t.Errorf("bad identity on %+v", pg)
	}
	if pageText(pg) != words(10) {
		t.Errorf("content text = %q", pageText(pg))
	}
}

func TestPaginateLongParagraphSplits(t *testing.T) {
	// 180 words = 899 runes = 18 lines = 360px against the 176px split
	// budget: 80 words per full page, 20 on the last
	source := words(180)
	b := block("<p>" + source + "</p>")
	p := newTestPaginator(t, []book.ContentBlock{b})

	pages, err := p.PaginateBlock(&b, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(pages) != 3 {
		t.Fatalf("got %d pages, want 3", len(pages))
	}

	// concatenating the page texts with single-space seams reproduces the
	// source paragraph
	var parts []string
	for i, pg := range pages {
		if pg.PageIndex != i {
			t.Errorf("page %d has index %d", i, pg.PageIndex)
		}
		parts = append(parts, pageText(pg))
	}
	if got := normalized(strings.Join(parts, " ")); got != source {
		t.Errorf("pages do not reassemble the paragraph:\n%q", got)
	}

	// every page but the last ends at a word boundary of the source
	for i, pg := range pages[:len(pages)-1] {
		txt := pageText(pg)
		if !strings.HasPrefix(source, txtUpTo(parts, i)) {
			t.Errorf("page %d text %q is not a clean prefix", i, txt)
		}
	}
}

func txtUpTo(parts []string, i int) string {
	return strings.Join(parts[:i+1], " ")
}

func TestPaginateHeadingReservesPadding(t *testing.T) {
	// the heading reserves extra padding for the remainder of the page,
	// shrinking the split budget from 156 to 136px: exactly 60 of the 120
	// words land on the first page instead of 70
	b := block("<h2>Title</h2><p>" + words(120) + "</p>")
	p := newTestPaginator(t, []book.ContentBlock{b})

	pages, err := p.PaginateBlock(&b, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(pages) != 2 {
		t.Fatalf("got %d pages, want 2", len(pages))
	}
	if !pages[0].HasHeading {
		t.Error("first page must carry the heading flag")
	}
	if pages[1].HasHeading {
		t.Error("continuation page has no heading")
	}
	if got := strings.Count(pageText(pages[0]), "word"); got != 60 {
		t.Errorf("first page carries %d words, want 60 under the heading-shrunk budget", got)
	}
}

func TestPaginateAtomicNeverSplit(t *testing.T) {
	// image is 300px, taller than the page: placed alone, flagged
	b := block("<p>" + words(20) + `</p><img src="media/tall.png"><p>` + words(20) + "</p>")
	p := newTestPaginator(t, []book.ContentBlock{b})

	pages, err := p.PaginateBlock(&b, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(pages) != 3 {
		t.Fatalf("got %d pages, want 3", len(pages))
	}
	img := pages[1]
	if !strings.Contains(img.Content, "<img") || !img.Overflow {
		t.Errorf("middle page should hold the oversized image with accepted overflow: %+v", img)
	}
	if strings.Contains(pages[0].Content, "<img") || strings.Contains(pages[2].Content, "<img") {
		t.Error("image leaked onto a text page")
	}
}

func TestPaginateLastElementOverflow(t *testing.T) {
	// 80 words fill the page to 160px; the trailing 20px paragraph pushes
	// it to 180px, inside the accepted last-element tolerance, and must
	// stay whole on the page
	b := block("<p>" + words(80) + "</p><p>" + words(10) + "</p>")
	p := newTestPaginator(t, []book.ContentBlock{b})

	pages, err := p.PaginateBlock(&b, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(pages) != 1 {
		t.Fatalf("got %d pages, want 1", len(pages))
	}
	if !pages[0].Overflow {
		t.Error("accepted overflow must be flagged")
	}
	if got := strings.Count(pageText(pages[0]), "word"); got != 90 {
		t.Errorf("page carries %d words, want all 90", got)
	}
}

func TestPaginateEmptyPagePrefersSplitOverOverflow(t *testing.T) {
	// 90 words = 449 runes = 9 lines = 180px: within the last-element
	// overflow tolerance, but on an empty page the paragraph splits
	// cleanly instead
	b := block("<p>" + words(90) + "</p>")
	p := newTestPaginator(t, []book.ContentBlock{b})

	pages, err := p.PaginateBlock(&b, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(pages) != 2 {
		t.Fatalf("got %d pages, want 2", len(pages))
	}
	for i, pg := range pages {
		if pg.Overflow {
			t.Errorf("page %d flagged overflow on a clean split", i)
		}
	}
	if got := strings.Count(pageText(pages[0]), "word"); got != 80 {
		t.Errorf("first page carries %d words, want 80", got)
	}
}

func TestPaginateFootnotes(t *testing.T) {
	noteA := "a long explanatory aside about the first paragraph of this chapter"
	noteB := "a second remark"
	b := block("<p>First^[" + noteA + "] paragraph.</p><p>Second^[" + noteB + "] paragraph.</p>")
	p := newTestPaginator(t, []book.ContentBlock{b})

	pages, err := p.PaginateBlock(&b, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(pages) != 1 {
		t.Fatalf("got %d pages, want 1", len(pages))
	}
	pg := pages[0]

	if len(pg.Footnotes) != 2 {
		t.Fatalf("footnotes = %+v, want 2", pg.Footnotes)
	}
	if pg.Footnotes[0] != (Footnote{Number: 1, Content: noteA}) ||
		pg.Footnotes[1] != (Footnote{Number: 2, Content: noteB}) {
		t.Errorf("footnotes = %+v", pg.Footnotes)
	}
	for _, want := range []string{
		`<sup class="footnote-ref" data-number="1">`,
		`<section class="footnotes">`,
		`<li id="fn-2" value="2">` + noteB + `</li>`,
	} {
		if !strings.Contains(pg.Content, want) {
			t.Errorf("content missing %q", want)
		}
	}
	if strings.Contains(pg.Content, "^[") {
		t.Error("raw footnote marker left in content")
	}
	// reserved bottom space is the measured section, taller than the flat
	// margin for notes this long
	if pg.BottomPaddingPx <= testFit().DefaultBottomMarginPx {
		t.Errorf("padding = %f, want the measured section height", pg.BottomPaddingPx)
	}
}

func karaokeBlock(t *testing.T, id, text string) string {
	t.Helper()
	payload, err := json.Marshal(book.KaraokePayload{Type: "karaoke", Text: text, AudioURL: "media/a.mp3"})
	if err != nil {
		t.Fatal(err)
	}
	// single-quoted attribute, the payload JSON is full of double quotes
	return fmt.Sprintf(`<div data-karaoke-id="%s" data-karaoke='%s'></div>`, id, payload)
}

func TestPaginateKaraokeSlices(t *testing.T) {
	// 100 words = 499 runes; the 176px budget fits 8 lines = 400 runes, so
	// the block slices across two pages
	text := words(100)
	b := block(karaokeBlock(t, "k1", text))
	p := newTestPaginator(t, []book.ContentBlock{b})

	pages, err := p.PaginateBlock(&b, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(pages) != 2 {
		t.Fatalf("got %d pages, want 2", len(pages))
	}

	cursor := 0
	for i, pg := range pages {
		if !pg.IsKaraoke {
			t.Errorf("page %d not flagged karaoke", i)
		}
		if pg.BottomPaddingPx != testFit().KaraokeBottomMarginPx {
			t.Errorf("page %d padding = %f, want the karaoke margin", i, pg.BottomPaddingPx)
		}
		if len(pg.Slices) != 1 {
			t.Fatalf("page %d slices = %+v", i, pg.Slices)
		}
		sl := pg.Slices[0]
		if sl.KaraokeID != "k1" || sl.StartChar != cursor {
			t.Errorf("page %d slice %+v, want start at %d", i, sl, cursor)
		}
		cursor = sl.EndChar
	}
	src, ok := p.Sources()["k1"]
	if !ok {
		t.Fatal("karaoke source not collected")
	}
	if cursor != src.Len() {
		t.Errorf("slices cover [0, %d), want [0, %d)", cursor, src.Len())
	}
}

func TestPaginateDeterminism(t *testing.T) {
	html := "<h2>Title</h2><p>" + words(120) + "</p><hr><p>" + words(40) + "^[a note]</p>"
	b := block(html)

	run := func() []Page {
		p := newTestPaginator(t, []book.ContentBlock{b})
		pages, err := p.PaginateBlock(&b, 0)
		if err != nil {
			t.Fatal(err)
		}
		return pages
	}

	one, two := run(), run()
	if len(one) != len(two) {
		t.Fatalf("page counts differ: %d vs %d", len(one), len(two))
	}
	for i := range one {
		if one[i].Content != two[i].Content {
			t.Errorf("page %d content differs between runs", i)
		}
	}
}

func TestPaginateFitBound(t *testing.T) {
	html := "<h2>Title</h2><p>" + words(200) + "</p><p>" + words(30) + "</p>"
	b := block(html)
	p := newTestPaginator(t, []book.ContentBlock{b})

	pages, err := p.PaginateBlock(&b, 0)
	if err != nil {
		t.Fatal(err)
	}
	for i, pg := range pages {
		if pg.Overflow {
			continue // intentionally accepted and flagged
		}
		h, err := fakeOracle{}.MeasureHeight(pg.Content, 500, nil)
		if err != nil {
			t.Fatal(err)
		}
		if h+pg.BottomPaddingPx > float64(testGeometry().Height)+testFit().TolerancePx {
			t.Errorf("page %d measures %f + %f reserved, over the %d page",
				i, h, pg.BottomPaddingPx, testGeometry().Height)
		}
	}
}
