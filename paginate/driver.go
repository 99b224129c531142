package paginate

import (
	"context"
	"fmt"
	"html"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/text/language"

	"pager/book"
	"pager/config"
	"pager/karaoke"
	"pager/measure"
	"pager/text"
)

// Result is the complete output of one pagination run: the ordered page list
// plus the karaoke metadata the playback layer needs.
type Result struct {
	Pages   []Page
	Sources map[string]*karaoke.Source
}

// Slices returns the slices of one karaoke source in text order.
func (r *Result) Slices(karaokeID string) []karaoke.Slice {
	var out []karaoke.Slice
	for i := range r.Pages {
		for _, sl := range r.Pages[i].Slices {
			if sl.KaraokeID == karaokeID {
				out = append(out, sl)
			}
		}
	}
	return out
}

// Locate returns the global index of a chapter page, -1 when absent. Used to
// restore a saved reading position against a freshly rebuilt page list.
func (r *Result) Locate(chapterID string, pageIndex int) int {
	for i := range r.Pages {
		if r.Pages[i].ChapterID == chapterID && r.Pages[i].PageIndex == pageIndex {
			return i
		}
	}
	return -1
}

// Driver orchestrates a whole-book pagination run: media preload, global
// footnote numbering, synthetic cover and first pages, per-block pagination
// and total-page accounting. A new run supersedes any run still in flight.
type Driver struct {
	cfg    *config.Config
	oracle measure.Oracle
	media  *measure.MediaIndex
	style  *measure.StyleContext
	log    *zap.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
}

func NewDriver(cfg *config.Config, oracle measure.Oracle, media *measure.MediaIndex, log *zap.Logger) *Driver {
	return &Driver{
		cfg:    cfg,
		oracle: oracle,
		media:  media,
		style:  measure.ParseStyle(cfg.Layout.BodyStyle),
		log:    log,
	}
}

// Run paginates the book. Content changes rebuild the page list wholesale:
// starting a run cancels any previous one still in flight and measurement is
// serialized within the run.
func (d *Driver) Run(ctx context.Context, b *book.Book, media book.Media) (*Result, error) {
	d.mu.Lock()
	if d.cancel != nil {
		// a full recompute supersedes the previous run
		d.cancel()
	}
	ctx, cancel := context.WithCancel(ctx)
	d.cancel = cancel
	d.mu.Unlock()
	defer cancel()

	if err := d.media.Preload(ctx, media); err != nil {
		return nil, fmt.Errorf("media preload interrupted: %w", err)
	}

	geom := d.cfg.Layout.Geometry()
	blocks := b.Flatten()

	tracker := NewTracker(d.oracle, float64(geom.Width), d.style)
	tracker.Scan(blocks)

	sent := text.NewSplitter(bookLanguage(b), d.log)
	paginator := NewPaginator(d.oracle, sent, tracker, geom, d.cfg.Layout.Fit, d.cfg.Karaoke, d.style, d.log)

	var pages []Page
	if cover := b.Cover(); cover != nil {
		pages = append(pages, syntheticPage(cover, ChapterIndexCover))
	}
	if first := b.FirstPage(); first != nil {
		pages = append(pages, syntheticPage(first, ChapterIndexFirstPage))
	}

	pageCount := make(map[int]int) // chapter index -> pages so far
	for i := range blocks {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		block := &blocks[i]

		if block.Kind == book.BlockChapter && block.Epigraph != nil {
			pages = append(pages, epigraphPage(block, pageCount[block.ChapterIndex]))
			pageCount[block.ChapterIndex]++
		}

		blockPages, err := paginator.PaginateBlock(block, pageCount[block.ChapterIndex])
		if err != nil {
			return nil, err
		}
		pages = append(pages, blockPages...)
		pageCount[block.ChapterIndex] += len(blockPages)
	}

	for i := range pages {
		if n, ok := pageCount[pages[i].ChapterIndex]; ok && pages[i].ChapterIndex >= 0 {
			pages[i].TotalPages = n
		} else {
			pages[i].TotalPages = 1
		}
	}

	d.log.Info("Pagination finished",
		zap.Int("blocks", len(blocks)),
		zap.Int("pages", len(pages)),
		zap.Int("karaoke_sources", len(paginator.Sources())))

	return &Result{Pages: pages, Sources: paginator.Sources()}, nil
}

// Hyphenate is the best-effort post-processing pass: it adds soft hyphens to
// already-produced prose pages. It runs after the result is usable and stops
// at cancellation. Karaoke pages are skipped entirely, soft hyphens would
// shift the character offsets playback timing depends on.
func (d *Driver) Hyphenate(ctx context.Context, res *Result, lang language.Tag) error {
	if !d.cfg.Hyphenation.Enable {
		return nil
	}
	hyph := text.NewHyphenator(d.cfg.Hyphenation.DictionaryDir, lang, d.log)
	if hyph == nil {
		return nil
	}

	for i := range res.Pages {
		if err := ctx.Err(); err != nil {
			return err
		}
		if res.Pages[i].IsKaraoke || res.Pages[i].IsCover {
			continue
		}
		res.Pages[i].Content = hyphenateMarkup(res.Pages[i].Content, hyph)
	}
	return nil
}

// hyphenateMarkup runs the hyphenator over text runs only, leaving tags and
// entities alone.
func hyphenateMarkup(markup string, hyph *text.Hyphenator) string {
	var b strings.Builder
	b.Grow(len(markup) + len(markup)/8)

	rest := markup
	for len(rest) > 0 {
		lt := strings.IndexByte(rest, '<')
		if lt < 0 {
			b.WriteString(hyphenateRun(rest, hyph))
			break
		}
		b.WriteString(hyphenateRun(rest[:lt], hyph))
		gt := strings.IndexByte(rest[lt:], '>')
		if gt < 0 {
			b.WriteString(rest[lt:])
			break
		}
		b.WriteString(rest[lt : lt+gt+1])
		rest = rest[lt+gt+1:]
	}
	return b.String()
}

// hyphenateRun unescapes a text run, hyphenates it and escapes it back so
// entities never get soft hyphens inside them.
func hyphenateRun(run string, hyph *text.Hyphenator) string {
	if len(strings.TrimSpace(run)) == 0 {
		return run
	}
	return html.EscapeString(hyph.Hyphenate(html.UnescapeString(run)))
}

func bookLanguage(b *book.Book) language.Tag {
	if len(b.Language) == 0 {
		return language.English
	}
	tag, err := language.Parse(b.Language)
	if err != nil {
		return language.English
	}
	return tag
}

// syntheticPage wraps the cover or first-page chapter as a single page with
// its reserved negative chapter index.
func syntheticPage(ch *book.Chapter, chapterIndex int) Page {
	content := ch.ContentHTML
	if len(content) == 0 && len(ch.BackgroundImageURL) > 0 {
		content = fmt.Sprintf(`<img class="cover" src="%s" alt="%s">`,
			html.EscapeString(ch.BackgroundImageURL), html.EscapeString(ch.Title))
	}
	return Page{
		ChapterIndex: chapterIndex,
		ChapterID:    ch.ID,
		Content:      content,
		IsCover:      chapterIndex == ChapterIndexCover,
		IsFirstPage:  chapterIndex == ChapterIndexFirstPage,
		TotalPages:   1,
	}
}

// epigraphPage renders a chapter epigraph as its own page preceding the
// chapter content.
func epigraphPage(block *book.ContentBlock, pageIndex int) Page {
	ep := block.Epigraph

	var b strings.Builder
	align := ep.Align
	if len(align) == 0 {
		align = "right"
	}
	fmt.Fprintf(&b, `<blockquote class="epigraph" style="text-align: %s">`, html.EscapeString(align))
	fmt.Fprintf(&b, `<p>%s</p>`, html.EscapeString(ep.Text))
	if len(ep.Author) > 0 {
		fmt.Fprintf(&b, `<cite>%s</cite>`, html.EscapeString(ep.Author))
	}
	b.WriteString(`</blockquote>`)

	return Page{
		ChapterIndex: block.ChapterIndex,
		ChapterID:    block.ChapterID,
		PageIndex:    pageIndex,
		Content:      b.String(),
		IsEpigraph:   true,
	}
}
