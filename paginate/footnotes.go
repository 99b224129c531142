package paginate

import (
	"fmt"
	"html"
	htemplate "html/template"
	"regexp"
	"sort"
	"strings"

	sprig "github.com/go-task/slim-sprig/v3"

	"pager/book"
	"pager/measure"
)

// Footnote references come in two notations: inline markers and structured
// reference nodes carrying the literal footnote text.
var (
	inlineNoteRe = regexp.MustCompile(`\^\[([^\]]+)\]`)
	refNodeRe    = regexp.MustCompile(`<footnote-ref[^>]*\bdata-content="([^"]*)"[^>]*>(?:\s*</footnote-ref>)?`)
)

var footnoteSectionTmpl = htemplate.Must(
	htemplate.New("footnotes").Funcs(sprig.FuncMap()).Parse(strings.TrimSpace(`
<section class="footnotes"><ol>
{{- range . }}
<li id="fn-{{ .Number }}" value="{{ .Number }}">{{ .Content }}</li>
{{- end }}
</ol></section>`)))

// Tracker owns the global footnote numbering. Numbers are assigned in
// first-seen document order across the entire book before pagination starts
// and never reused for different content.
type Tracker struct {
	oracle  measure.Oracle
	style   *measure.StyleContext
	widthPx float64

	numbers map[string]int
	content []string // content[n-1] is the text of footnote n
}

func NewTracker(oracle measure.Oracle, widthPx float64, style *measure.StyleContext) *Tracker {
	return &Tracker{
		oracle:  oracle,
		style:   style,
		widthPx: widthPx,
		numbers: make(map[string]int),
	}
}

// Scan assigns global numbers for every footnote in the blocks, walking them
// in document order. Must run over all blocks before any page is assembled.
func (t *Tracker) Scan(blocks []book.ContentBlock) {
	for i := range blocks {
		for _, m := range markersIn(blocks[i].HTML) {
			t.assign(m.content)
		}
	}
}

func (t *Tracker) assign(content string) int {
	if n, ok := t.numbers[content]; ok {
		return n
	}
	t.content = append(t.content, content)
	n := len(t.content)
	t.numbers[content] = n
	return n
}

// Refs returns the global numbers referenced by the fragment, deduplicated,
// in order of appearance.
func (t *Tracker) Refs(htmlSrc string) []int {
	var out []int
	seen := make(map[int]bool)
	for _, m := range markersIn(htmlSrc) {
		n, ok := t.numbers[m.content]
		if !ok || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out
}

// Note returns the footnote record for a global number.
func (t *Tracker) Note(n int) Footnote {
	if n < 1 || n > len(t.content) {
		return Footnote{Number: n}
	}
	return Footnote{Number: n, Content: t.content[n-1]}
}

// ReplaceMarkers swaps every footnote marker in the fragment for a numbered
// superscript reference and returns the footnotes that were matched, in
// order of first appearance.
func (t *Tracker) ReplaceMarkers(htmlSrc string) (string, []Footnote) {
	var (
		notes []Footnote
		seen  = make(map[int]bool)
		b     strings.Builder
	)
	last := 0
	for _, m := range markersIn(htmlSrc) {
		n := t.assign(m.content)
		if !seen[n] {
			seen[n] = true
			notes = append(notes, t.Note(n))
		}
		b.WriteString(htmlSrc[last:m.start])
		fmt.Fprintf(&b, `<sup class="footnote-ref" data-number="%d"><a href="#fn-%d">%d</a></sup>`, n, n, n)
		last = m.end
	}
	b.WriteString(htmlSrc[last:])
	return b.String(), notes
}

// SectionHTML renders the footnote list for the given numbers, empty string
// when there are none.
func (t *Tracker) SectionHTML(nums []int) (string, error) {
	if len(nums) == 0 {
		return "", nil
	}
	notes := make([]Footnote, 0, len(nums))
	for _, n := range nums {
		notes = append(notes, t.Note(n))
	}
	var b strings.Builder
	if err := footnoteSectionTmpl.Execute(&b, notes); err != nil {
		return "", fmt.Errorf("unable to render footnote section: %w", err)
	}
	return b.String(), nil
}

// SectionHeight measures the rendered footnote section. Footnote text length
// is unbounded so the section is measured, never estimated.
func (t *Tracker) SectionHeight(nums []int) (float64, error) {
	section, err := t.SectionHTML(nums)
	if err != nil || len(section) == 0 {
		return 0, err
	}
	return t.oracle.MeasureHeight(section, t.widthPx, t.style)
}

type marker struct {
	start, end int
	content    string
}

// markersIn finds both footnote notations and returns them merged in order
// of appearance.
func markersIn(htmlSrc string) []marker {
	var out []marker
	for _, loc := range inlineNoteRe.FindAllStringSubmatchIndex(htmlSrc, -1) {
		out = append(out, marker{
			start:   loc[0],
			end:     loc[1],
			content: strings.TrimSpace(htmlSrc[loc[2]:loc[3]]),
		})
	}
	for _, loc := range refNodeRe.FindAllStringSubmatchIndex(htmlSrc, -1) {
		out = append(out, marker{
			start:   loc[0],
			end:     loc[1],
			content: strings.TrimSpace(html.UnescapeString(htmlSrc[loc[2]:loc[3]])),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].start < out[j].start })
	return out
}
