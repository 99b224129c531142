// Package export writes the pagination result as a portable bundle: a zip
// archive holding a JSON manifest, an XML spine and one XHTML file per page.
package export

import (
	"archive/zip"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/beevik/etree"
	"go.uber.org/zap"

	"pager/book"
	"pager/karaoke"
	"pager/misc"
	"pager/paginate"
)

// manifest summarizes the bundle for the reading UI.
type manifest struct {
	Generator  string          `json:"generator"`
	Title      string          `json:"title"`
	Language   string          `json:"language,omitempty"`
	TotalPages int             `json:"totalPages"`
	Karaoke    []karaokeEntry  `json:"karaoke,omitempty"`
	Pages      []paginate.Page `json:"pages"`
}

type karaokeEntry struct {
	ID       string          `json:"id"`
	AudioURL string          `json:"audioUrl"`
	Words    int             `json:"words"`
	Slices   []karaoke.Slice `json:"slices"`
}

// Write produces the bundle at path. Media referenced by the pages is copied
// under media/ unchanged.
func Write(ctx context.Context, path string, b *book.Book, res *paginate.Result, media book.Media, log *zap.Logger) (rerr error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("unable to create bundle: %w", err)
	}
	defer func() {
		if err := f.Close(); err != nil && rerr == nil {
			rerr = err
		}
	}()

	arc := zip.NewWriter(f)
	defer func() {
		if err := arc.Close(); err != nil && rerr == nil {
			rerr = err
		}
	}()

	now := time.Now()

	man, err := json.MarshalIndent(buildManifest(b, res), "", "  ")
	if err != nil {
		return fmt.Errorf("unable to marshal manifest: %w", err)
	}
	if err := save(arc, "manifest.json", now, man); err != nil {
		return err
	}

	spine, err := buildSpine(b, res)
	if err != nil {
		return err
	}
	if err := save(arc, "bundle.xml", now, spine); err != nil {
		return err
	}

	for i := range res.Pages {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := save(arc, pageEntryName(i), now, pageXHTML(b, &res.Pages[i])); err != nil {
			return err
		}
	}

	for name, data := range media {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := save(arc, name, now, data); err != nil {
			return err
		}
	}

	log.Info("Bundle written", zap.String("path", path), zap.Int("pages", len(res.Pages)))
	return nil
}

func buildManifest(b *book.Book, res *paginate.Result) manifest {
	m := manifest{
		Generator:  misc.GetAppName() + " " + misc.GetVersion(),
		Title:      b.Title,
		Language:   b.Language,
		TotalPages: len(res.Pages),
		Pages:      res.Pages,
	}
	for id, src := range res.Sources {
		m.Karaoke = append(m.Karaoke, karaokeEntry{
			ID:       id,
			AudioURL: src.AudioURL,
			Words:    len(src.Words()),
			Slices:   res.Slices(id),
		})
	}
	return m
}

// buildSpine renders the XML page index: one entry per page in reading
// order, carrying the attributes a reader needs without opening page files.
func buildSpine(b *book.Book, res *paginate.Result) ([]byte, error) {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	root := doc.CreateElement("bundle")
	root.CreateAttr("version", "1")

	meta := root.CreateElement("metadata")
	meta.CreateElement("title").SetText(b.Title)
	if len(b.Language) > 0 {
		meta.CreateElement("language").SetText(b.Language)
	}
	meta.CreateElement("pages").SetText(strconv.Itoa(len(res.Pages)))

	spine := root.CreateElement("spine")
	for i := range res.Pages {
		pg := &res.Pages[i]
		e := spine.CreateElement("page")
		e.CreateAttr("href", pageEntryName(i))
		e.CreateAttr("chapter", pg.ChapterID)
		e.CreateAttr("index", strconv.Itoa(pg.PageIndex))
		if pg.IsCover {
			e.CreateAttr("cover", "true")
		}
		if pg.IsFirstPage {
			e.CreateAttr("first-page", "true")
		}
		if pg.IsEpigraph {
			e.CreateAttr("epigraph", "true")
		}
		if len(pg.BackgroundVideoSrc) > 0 {
			e.CreateAttr("background-video", pg.BackgroundVideoSrc)
		}
	}

	doc.Indent(2)
	return doc.WriteToBytes()
}

func pageEntryName(i int) string {
	return fmt.Sprintf("pages/%04d.xhtml", i)
}

func pageXHTML(b *book.Book, pg *paginate.Page) []byte {
	return fmt.Appendf(nil, `<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE html>
<html xmlns="http://www.w3.org/1999/xhtml">
<head><title>%s</title></head>
<body class="page" data-chapter="%s" data-page-index="%d" style="padding-bottom: %.0fpx">
%s
</body>
</html>
`, b.Title, pg.ChapterID, pg.PageIndex, pg.BottomPaddingPx, pg.Content)
}

func save(dst *zip.Writer, name string, t time.Time, data []byte) error {
	w, err := dst.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Deflate, Modified: t})
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return err
	}
	return nil
}
