package paginate

import (
	"errors"
	"fmt"
	"html"

	"go.uber.org/zap"

	"pager/book"
	"pager/config"
	"pager/karaoke"
	"pager/measure"
	"pager/text"
)

// pageState accumulates one page under construction.
type pageState struct {
	elements   []string
	notes      []int // global footnote numbers in order of appearance
	heightPx   float64
	hasHeading bool
	hasKaraoke bool
	overflow   bool
	slices     []karaoke.Slice
}

func (st *pageState) empty() bool { return len(st.elements) == 0 }

func (st *pageState) addNotes(nums []int) {
	for _, n := range nums {
		known := false
		for _, have := range st.notes {
			if have == n {
				known = true
				break
			}
		}
		if !known {
			st.notes = append(st.notes, n)
		}
	}
}

// Paginator runs the per-block fit/split/overflow state machine. One
// instance serves a whole pagination run; karaoke sources created along the
// way are collected for the playback layer.
type Paginator struct {
	oracle measure.Oracle
	split  *Splitter
	notes  *Tracker
	asm    *Assembler
	style  *measure.StyleContext
	log    *zap.Logger

	geom       config.PageGeometry
	fit        config.FitConfig
	karaokeCfg config.KaraokeConfig

	sources map[string]*karaoke.Source
}

func NewPaginator(oracle measure.Oracle, sent *text.Splitter, notes *Tracker, geom config.PageGeometry, fit config.FitConfig, kcfg config.KaraokeConfig, style *measure.StyleContext, log *zap.Logger) *Paginator {
	return &Paginator{
		oracle:     oracle,
		split:      NewSplitter(oracle, sent, float64(geom.Width), style, fit.OrphanMinWords),
		notes:      notes,
		asm:        NewAssembler(notes, fit),
		style:      style,
		log:        log,
		geom:       geom,
		fit:        fit,
		karaokeCfg: kcfg,
		sources:    make(map[string]*karaoke.Source),
	}
}

// Sources returns every karaoke source encountered so far, keyed by block id.
func (p *Paginator) Sources() map[string]*karaoke.Source { return p.sources }

// PaginateBlock splits one content block into pages. startPage is the
// 0-based chapter page index the block's first page will get, so
// subchapters continue their chapter's numbering. Elements are consumed in
// document order; paragraph remainders produced by splitting are re-inserted
// at the front of the queue and re-evaluated like any other element.
func (p *Paginator) PaginateBlock(block *book.ContentBlock, startPage int) ([]Page, error) {
	queue, err := book.ParseElements(block.HTML)
	if err != nil {
		return nil, fmt.Errorf("unable to parse %s %q: %w", block.Kind, block.ChapterID, err)
	}

	r := &blockRun{p: p, block: block, st: &pageState{}, queue: queue, startPage: startPage}
	for len(r.queue) > 0 {
		el := r.queue[0]
		r.queue = r.queue[1:]
		last := len(r.queue) == 0

		switch {
		case el.Kind == book.ElementKaraoke:
			err = r.placeKaraoke(&el)
		case el.Atomic():
			err = r.placeAtomic(&el, last)
		default:
			err = r.placeParagraph(&el, last)
		}
		if err != nil {
			return nil, err
		}
	}
	if err := r.finalize(); err != nil {
		return nil, err
	}

	p.log.Debug("Paginated block",
		zap.String("chapter", block.ChapterID),
		zap.String("subchapter", block.SubchapterID),
		zap.Int("pages", len(r.pages)))
	return r.pages, nil
}

// blockRun is the paginator state for a single content block.
type blockRun struct {
	p         *Paginator
	block     *book.ContentBlock
	st        *pageState
	queue     []book.Element
	pages     []Page
	startPage int
}

func (r *blockRun) finalize() error {
	if r.st.empty() {
		return nil
	}
	page, err := r.p.asm.Finalize(r.st, r.block, r.startPage+len(r.pages))
	if err != nil {
		return err
	}
	r.pages = append(r.pages, page)
	r.st = &pageState{}
	return nil
}

func (r *blockRun) requeue(el *book.Element) {
	r.queue = append([]book.Element{*el}, r.queue...)
}

// available computes the height budget of the current page: page height
// minus reserved bottom space minus heading padding. Reserved bottom space
// is the measured footnote section when notes are present, otherwise a flat
// margin (smaller on karaoke pages). A negative budget is an accounting
// breakdown and degrades to the default bottom margin.
func (r *blockRun) available(extraNotes []int) (float64, error) {
	p, st := r.p, r.st

	nums := append(append([]int{}, st.notes...), extraNotes...)
	section, err := p.notes.SectionHeight(nums)
	if err != nil {
		return 0, err
	}

	margin := p.fit.DefaultBottomMarginPx
	if st.hasKaraoke {
		margin = p.fit.KaraokeBottomMarginPx
	}
	bottom := max(section, margin)

	avail := float64(p.geom.Height) - bottom
	if st.hasHeading {
		avail -= p.fit.HeadingPaddingPx
	}
	if avail <= 0 {
		avail = float64(p.geom.Height) - p.fit.DefaultBottomMarginPx
	}
	return avail, nil
}

// placeAtomic appends the element when it fits, otherwise moves it to a
// fresh page. An atomic element taller than an empty page is placed anyway,
// overflow is better than losing content.
func (r *blockRun) placeAtomic(el *book.Element, last bool) error {
	p, st := r.p, r.st

	h, err := p.oracle.MeasureHeight(el.HTML, float64(p.geom.Width), p.style)
	if err != nil {
		return err
	}
	refs := p.notes.Refs(el.HTML)
	avail, err := r.available(refs)
	if err != nil {
		return err
	}

	switch {
	case st.heightPx+h <= avail-p.fit.SafetyMarginPx:
		r.append(el, h, refs)

	case last && !st.empty() && st.heightPx+h <= avail+p.fit.LastElementOverflowPx:
		// keep the block's trailing element with its page
		r.append(el, h, refs)
		st.overflow = true

	case st.empty():
		r.append(el, h, refs)
		st.overflow = h > avail
		return r.finalize()

	default:
		if err := r.finalize(); err != nil {
			return err
		}
		r.requeue(el)
	}
	return nil
}

// placeParagraph implements the splittable path: fit whole, defer whole on
// trivial remaining space, otherwise split at a safe boundary and re-insert
// the remainder.
func (r *blockRun) placeParagraph(el *book.Element, last bool) error {
	p, st := r.p, r.st

	h, err := p.oracle.MeasureHeight(el.HTML, float64(p.geom.Width), p.style)
	if err != nil {
		return err
	}
	refs := p.notes.Refs(el.HTML)
	avail, err := r.available(refs)
	if err != nil {
		return err
	}

	if st.heightPx+h <= avail-p.fit.SafetyMarginPx {
		r.append(el, h, refs)
		return nil
	}

	// keeping content together beats perfect page fill: a trailing
	// paragraph overflowing within tolerance stays whole on this page.
	// On an empty page a clean split always wins over overflow.
	if last && !st.empty() && st.heightPx+h <= avail+p.fit.LastElementOverflowPx {
		r.append(el, h, refs)
		st.overflow = true
		return nil
	}

	remaining := avail - st.heightPx - p.fit.SafetyMarginPx

	// splitting into a nearly empty first part buys nothing, defer the
	// whole paragraph instead
	if remaining < p.fit.UnderfillMinPx && !st.empty() {
		if err := r.finalize(); err != nil {
			return err
		}
		r.requeue(el)
		return nil
	}
	if remaining < p.fit.UnderfillMaxPx && !st.empty() {
		// small visual error either way: a slight overflow of the whole
		// paragraph beats leaving the page under-filled
		if over := st.heightPx + h - avail; over <= remaining {
			r.append(el, h, refs)
			st.overflow = true
			return r.finalize()
		}
		if err := r.finalize(); err != nil {
			return err
		}
		r.requeue(el)
		return nil
	}

	first, second, err := p.split.Split(el.Text, remaining)
	switch {
	case err == nil && len(second) == 0:
		r.append(el, h, refs)
		return nil

	case err == nil:
		firstEl := paragraphElement(first)
		fh, err := p.oracle.MeasureHeight(firstEl.HTML, float64(p.geom.Width), p.style)
		if err != nil {
			return err
		}
		r.append(&firstEl, fh, p.notes.Refs(firstEl.HTML))
		if err := r.finalize(); err != nil {
			return err
		}
		rest := paragraphElement(second)
		r.requeue(&rest)
		return nil

	case errors.Is(err, ErrNoSafeSplit):
		if !st.empty() {
			if err := r.finalize(); err != nil {
				return err
			}
			r.requeue(el)
			return nil
		}
		// nothing fits even on an empty page, accept overflow over
		// dropping content
		r.append(el, h, refs)
		st.overflow = true
		return r.finalize()

	default:
		return err
	}
}

// placeKaraoke slices the block text across as many pages as needed. The
// source is built once and shared with the playback layer; page breaks only
// ever happen on word boundaries of the normalized text.
func (r *blockRun) placeKaraoke(el *book.Element) error {
	p := r.p

	src, err := karaoke.NewSource(el.KaraokeID, el.Karaoke)
	if err != nil {
		return err
	}
	p.sources[src.ID] = src

	cursor := 0
	for cursor < src.Len() {
		avail, err := r.available(nil)
		if err != nil {
			return err
		}
		remaining := avail - r.st.heightPx - p.fit.SafetyMarginPx

		var fitErr error
		sl := karaoke.Cut(src, cursor, func(t string) int {
			n, err := p.split.FitChars(t, remaining)
			if err != nil {
				fitErr = err
			}
			return n
		}, p.karaokeCfg.MinSliceChars, r.st.empty())
		if fitErr != nil {
			return fitErr
		}

		if sl.Empty() {
			if err := r.finalize(); err != nil {
				return err
			}
			continue
		}

		h, err := p.split.TextHeight(src.Snippet(sl.StartChar, sl.EndChar))
		if err != nil {
			return err
		}
		r.st.elements = append(r.st.elements, karaoke.Markup(src, sl))
		r.st.slices = append(r.st.slices, sl)
		r.st.heightPx += h
		r.st.hasKaraoke = true

		cursor = sl.EndChar
		if cursor < src.Len() {
			if err := r.finalize(); err != nil {
				return err
			}
		}
	}
	return nil
}

func (r *blockRun) append(el *book.Element, h float64, refs []int) {
	r.st.elements = append(r.st.elements, el.HTML)
	r.st.heightPx += h
	r.st.addNotes(refs)
	if el.Kind == book.ElementHeading {
		// reduces the budget for the remainder of this page only
		r.st.hasHeading = true
	}
}

func paragraphElement(textStr string) book.Element {
	return book.Element{
		Kind: book.ElementParagraph,
		HTML: "<p>" + html.EscapeString(textStr) + "</p>",
		Text: textStr,
	}
}
