// Package paginate turns flattened book content into discrete fixed-size
// pages: it measures fragments through the measurement oracle, decides what
// fits, splits paragraphs at safe boundaries, reserves footnote space and
// slices karaoke blocks across page breaks.
package paginate

import (
	"pager/karaoke"
)

// Reserved chapter indices of synthetic pages. Ordinary chapters use their
// stable order integer starting at zero.
const (
	ChapterIndexCover     = -1
	ChapterIndexFirstPage = -2
)

// Footnote is a globally numbered footnote placed on some page.
type Footnote struct {
	Number  int    `json:"number"`
	Content string `json:"content"`
}

// Page is the terminal pagination artifact. Pages are immutable once
// emitted; a content change rebuilds the whole list instead of patching.
type Page struct {
	ChapterIndex int    `json:"chapterIndex"`
	ChapterID    string `json:"chapterId"`
	SubchapterID string `json:"subchapterId,omitempty"`
	PageIndex    int    `json:"pageIndex"` // 0-based within chapter
	Content      string `json:"content"`

	Footnotes []Footnote      `json:"footnotes,omitempty"`
	Slices    []karaoke.Slice `json:"karaokeSlices,omitempty"`

	HasHeading         bool   `json:"hasHeading"`
	BackgroundVideoSrc string `json:"backgroundVideoSrc,omitempty"`

	IsEpigraph  bool `json:"isEpigraph"`
	IsVideo     bool `json:"isVideo"`
	IsCover     bool `json:"isCover"`
	IsFirstPage bool `json:"isFirstPage"`
	IsKaraoke   bool `json:"isKaraoke"`

	// Overflow flags intentionally accepted last-element or atomic overflow
	// so fit-bound checks can tell it apart from measurement drift.
	Overflow bool `json:"overflow,omitempty"`

	// BottomPaddingPx is the reserved bottom space: the measured footnote
	// section height when footnotes are present, a flat margin otherwise.
	BottomPaddingPx float64 `json:"bottomPaddingPx"`

	// TotalPages is the page count of the owning chapter, filled in after
	// all pages of that chapter exist.
	TotalPages int `json:"totalPages"`
}
