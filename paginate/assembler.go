package paginate

import (
	"strings"

	"pager/book"
	"pager/config"
)

// Assembler finalizes Page records from the paginator's accumulated state:
// marker replacement, footnote section, bottom padding and background-video
// matching.
type Assembler struct {
	notes *Tracker
	fit   config.FitConfig
}

func NewAssembler(notes *Tracker, fit config.FitConfig) *Assembler {
	return &Assembler{notes: notes, fit: fit}
}

// Finalize emits an immutable Page for the accumulated state. pageIndex is
// the 0-based index the page will occupy within its block's chapter.
func (a *Assembler) Finalize(st *pageState, block *book.ContentBlock, pageIndex int) (Page, error) {
	content, noted := a.notes.ReplaceMarkers(strings.Join(st.elements, "\n"))

	nums := make([]int, 0, len(noted))
	for _, n := range noted {
		nums = append(nums, n.Number)
	}
	section, err := a.notes.SectionHTML(nums)
	if err != nil {
		return Page{}, err
	}
	if len(section) > 0 {
		content += "\n" + section
	}

	padding := a.fit.DefaultBottomMarginPx
	if st.hasKaraoke {
		// karaoke pages pack tighter
		padding = a.fit.KaraokeBottomMarginPx
	}
	if len(nums) > 0 {
		if padding, err = a.notes.SectionHeight(nums); err != nil {
			return Page{}, err
		}
	}

	page := Page{
		ChapterIndex:    block.ChapterIndex,
		ChapterID:       block.ChapterID,
		SubchapterID:    block.SubchapterID,
		PageIndex:       pageIndex,
		Content:         content,
		Footnotes:       noted,
		Slices:          st.slices,
		HasHeading:      st.hasHeading,
		IsKaraoke:       st.hasKaraoke,
		Overflow:        st.overflow,
		BottomPaddingPx: padding,
	}

	// background videos are declared per chapter with a 1-based target page
	// number, they are matched here and never flow with content
	for _, v := range block.Videos {
		if v.Page == pageIndex+1 {
			page.BackgroundVideoSrc = v.Src
			page.IsVideo = true
			break
		}
	}
	return page, nil
}
