package book

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/h2non/filetype"
	"github.com/maruel/natural"
	"go.uber.org/zap"
	"golang.org/x/text/encoding"

	"pager/archive"
)

const (
	metaEntry    = "book.json"
	chaptersDir  = "chapters"
	mediaDir     = "media"
	jsonFileExt  = ".json"
	bookArchExt  = ".book"
	zipArchExt   = ".zip"
	mediaMaxSize = 64 << 20
)

// Media holds raw bytes of book media assets keyed by their source path as
// referenced from content HTML. The measurement oracle resolves image and
// video intrinsic sizes from here.
type Media map[string][]byte

// Load reads a book from path: a single JSON file with embedded chapters, a
// directory with book.json/chapters/media, or a zip archive (.book/.zip)
// with the same layout. cp, when not nil, forces a code page for non UTF-8
// archive entry names.
func Load(path string, cp encoding.Encoding, log *zap.Logger) (*Book, Media, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return nil, nil, fmt.Errorf("unable to access book source: %w", err)
	}

	if fi.Mode().IsDir() {
		return loadDir(path, log)
	}
	if !fi.Mode().IsRegular() {
		return nil, nil, fmt.Errorf("unexpected path mode for (%s)", path)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case jsonFileExt:
		b, err := loadBookFile(path)
		return b, Media{}, err
	case bookArchExt, zipArchExt:
		return loadArchive(path, cp, log)
	}
	return nil, nil, fmt.Errorf("input was not recognized as book source (%s)", path)
}

func loadBookFile(path string) (*Book, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("unable to read book file: %w", err)
	}
	var b Book
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("unable to parse book file (%s): %w", path, err)
	}
	return &b, nil
}

func loadDir(dir string, log *zap.Logger) (*Book, Media, error) {
	b, err := loadBookFile(filepath.Join(dir, metaEntry))
	if err != nil {
		return nil, nil, err
	}

	// chapter files in natural order - "ch-10" sorts after "ch-9"
	entries, err := os.ReadDir(filepath.Join(dir, chaptersDir))
	if err != nil && !os.IsNotExist(err) {
		return nil, nil, fmt.Errorf("unable to read chapters directory: %w", err)
	}
	var names []string
	for _, e := range entries {
		if e.Type().IsRegular() && strings.EqualFold(filepath.Ext(e.Name()), jsonFileExt) {
			names = append(names, e.Name())
		}
	}
	sort.Sort(natural.StringSlice(names))

	for _, name := range names {
		data, err := os.ReadFile(filepath.Join(dir, chaptersDir, name))
		if err != nil {
			return nil, nil, fmt.Errorf("unable to read chapter file: %w", err)
		}
		var ch Chapter
		if err := json.Unmarshal(data, &ch); err != nil {
			return nil, nil, fmt.Errorf("unable to parse chapter file (%s): %w", name, err)
		}
		b.Chapters = append(b.Chapters, ch)
	}
	sortChapters(b)

	media := Media{}
	mdir := filepath.Join(dir, mediaDir)
	_ = filepath.Walk(mdir, func(path string, info os.FileInfo, err error) error {
		if err != nil || !info.Mode().IsRegular() || info.Size() > mediaMaxSize {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			log.Warn("Skipping unreadable media file", zap.String("path", path), zap.Error(err))
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return nil
		}
		storeMedia(media, filepath.ToSlash(rel), data, log)
		return nil
	})

	return b, media, nil
}

func loadArchive(path string, cp encoding.Encoding, log *zap.Logger) (*Book, Media, error) {
	var (
		b        *Book
		chapters = map[string]Chapter{}
		media    = Media{}
	)

	err := archive.Walk(path, "", cp, func(name string, file *archive.File) error {
		r, err := file.Open()
		if err != nil {
			return fmt.Errorf("unable to open archive entry (%s): %w", name, err)
		}
		defer r.Close()

		switch {
		case name == metaEntry:
			data, err := io.ReadAll(r)
			if err != nil {
				return err
			}
			b = &Book{}
			if err := json.Unmarshal(data, b); err != nil {
				return fmt.Errorf("unable to parse book entry: %w", err)
			}
		case strings.HasPrefix(name, chaptersDir+"/") && strings.EqualFold(filepath.Ext(name), jsonFileExt):
			data, err := io.ReadAll(r)
			if err != nil {
				return err
			}
			var ch Chapter
			if err := json.Unmarshal(data, &ch); err != nil {
				return fmt.Errorf("unable to parse chapter entry (%s): %w", name, err)
			}
			chapters[name] = ch
		case strings.HasPrefix(name, mediaDir+"/"):
			data, err := io.ReadAll(io.LimitReader(r, mediaMaxSize))
			if err != nil {
				return err
			}
			storeMedia(media, name, data, log)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	if b == nil {
		return nil, nil, fmt.Errorf("archive has no %s entry (%s)", metaEntry, path)
	}

	names := make([]string, 0, len(chapters))
	for name := range chapters {
		names = append(names, name)
	}
	sort.Sort(natural.StringSlice(names))
	for _, name := range names {
		b.Chapters = append(b.Chapters, chapters[name])
	}
	sortChapters(b)

	return b, media, nil
}

// storeMedia keeps only entries recognized as image, video or audio.
func storeMedia(media Media, name string, data []byte, log *zap.Logger) {
	if filetype.IsImage(data) || filetype.IsVideo(data) || filetype.IsAudio(data) || isSVG(name, data) {
		media[name] = data
		return
	}
	log.Debug("Skipping media entry of unrecognized type", zap.String("name", name))
}

func isSVG(name string, data []byte) bool {
	return strings.EqualFold(filepath.Ext(name), ".svg") &&
		strings.Contains(string(data[:min(len(data), 1024)]), "<svg")
}

// sortChapters orders chapters by their store order key, cover and first
// page ahead of everything.
func sortChapters(b *Book) {
	sort.SliceStable(b.Chapters, func(i, j int) bool {
		ci, cj := &b.Chapters[i], &b.Chapters[j]
		if ci.IsCover != cj.IsCover {
			return ci.IsCover
		}
		if ci.IsFirstPage != cj.IsFirstPage {
			return ci.IsFirstPage
		}
		return ci.Order < cj.Order
	})
	for i := range b.Chapters {
		sort.SliceStable(b.Chapters[i].Children, func(a, c int) bool {
			return b.Chapters[i].Children[a].Order < b.Chapters[i].Children[c].Order
		})
	}
}
