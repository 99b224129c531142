// Package book defines the input model of the pagination engine: chapters as
// delivered by the external chapter store, content blocks flattened out of
// them for a single pagination run, and the atomic/splittable elements parsed
// from content HTML.
package book

import "encoding/json"

// Epigraph is a short quotation opening a chapter.
type Epigraph struct {
	Text   string `json:"text"`
	Author string `json:"author,omitempty"`
	Align  string `json:"align,omitempty"`
}

// BackgroundVideo is declared once per chapter with a target 1-based page
// number. It is not part of the flowed content - the assembler matches it by
// page number.
type BackgroundVideo struct {
	Src  string `json:"src"`
	Page int    `json:"page"`
}

// Chapter is a single record from the external chapter store.
type Chapter struct {
	ID                 string            `json:"id"`
	Title              string            `json:"title"`
	ContentHTML        string            `json:"contentHtml"`
	Epigraph           *Epigraph         `json:"epigraph,omitempty"`
	BackgroundImageURL string            `json:"backgroundImageUrl,omitempty"`
	BackgroundVideos   []BackgroundVideo `json:"backgroundVideos,omitempty"`
	Order              int               `json:"order"`
	IsCover            bool              `json:"isCover,omitempty"`
	IsFirstPage        bool              `json:"isFirstPage,omitempty"`
	Children           []Chapter         `json:"children,omitempty"`
}

// Book is an ordered set of chapters plus metadata.
type Book struct {
	Title    string    `json:"title"`
	Language string    `json:"language,omitempty"`
	Chapters []Chapter `json:"chapters,omitempty"`
}

// BlockKind tags a flattened content block.
type BlockKind int

const (
	BlockChapter BlockKind = iota
	BlockSubchapter
)

func (k BlockKind) String() string {
	if k == BlockSubchapter {
		return "subchapter"
	}
	return "chapter"
}

// ContentBlock is a chapter or subchapter flattened for one pagination run.
// It exists only during that run.
type ContentBlock struct {
	Kind         BlockKind
	Title        string
	HTML         string
	Epigraph     *Epigraph
	ChapterID    string
	SubchapterID string
	ChapterIndex int
	Videos       []BackgroundVideo
}

// Flatten produces content blocks for all ordinary chapters and their
// children in document order. Cover and first-page chapters are synthetic
// pages and are not flattened here.
func (b *Book) Flatten() []ContentBlock {
	var blocks []ContentBlock

	idx := 0
	for i := range b.Chapters {
		ch := &b.Chapters[i]
		if ch.IsCover || ch.IsFirstPage {
			continue
		}
		blocks = append(blocks, ContentBlock{
			Kind:         BlockChapter,
			Title:        ch.Title,
			HTML:         ch.ContentHTML,
			Epigraph:     ch.Epigraph,
			ChapterID:    ch.ID,
			ChapterIndex: idx,
			Videos:       ch.BackgroundVideos,
		})
		for j := range ch.Children {
			sub := &ch.Children[j]
			blocks = append(blocks, ContentBlock{
				Kind:         BlockSubchapter,
				Title:        sub.Title,
				HTML:         sub.ContentHTML,
				Epigraph:     sub.Epigraph,
				ChapterID:    ch.ID,
				SubchapterID: sub.ID,
				ChapterIndex: idx,
				Videos:       sub.BackgroundVideos,
			})
		}
		idx++
	}
	return blocks
}

// Cover returns the cover chapter if the book has one.
func (b *Book) Cover() *Chapter {
	for i := range b.Chapters {
		if b.Chapters[i].IsCover {
			return &b.Chapters[i]
		}
	}
	return nil
}

// FirstPage returns the synthetic first-page chapter if the book has one.
func (b *Book) FirstPage() *Chapter {
	for i := range b.Chapters {
		if b.Chapters[i].IsFirstPage {
			return &b.Chapters[i]
		}
	}
	return nil
}

// WordTiming is a single word of a karaoke block with its audio interval in
// seconds.
type WordTiming struct {
	Word  string  `json:"word"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// KaraokePayload is the JSON payload embedded in karaoke block markup.
type KaraokePayload struct {
	Type        string       `json:"type"`
	Text        string       `json:"text"`
	AudioURL    string       `json:"audioUrl"`
	WordTimings []WordTiming `json:"wordTimings"`
}

// ParseKaraokePayload decodes the embedded karaoke JSON payload. Unknown or
// missing payload types fail fast - no partial state is kept.
func ParseKaraokePayload(data string) (*KaraokePayload, error) {
	var p KaraokePayload
	if err := json.Unmarshal([]byte(data), &p); err != nil {
		return nil, err
	}
	if p.Type != "karaoke" {
		return nil, ErrUnsupportedFormat
	}
	return &p, nil
}
