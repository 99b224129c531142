// Package archive builds Walk abstraction on top of zip reading with
// support for forcing archaic file name code pages.
package archive

import (
	"fmt"
	"path"
	"strings"

	fixzip "github.com/hidez8891/zip"
	"golang.org/x/text/encoding"
)

// File is a single archive entry.
type File = fixzip.File

// WalkFunc is the type of the function called for each file in archive
// visited by Walk. The name argument is the entry name after optional code
// page translation. If an error is returned, processing stops.
type WalkFunc func(name string, file *File) error

// Walk walks all files in the archive under prefix, calling walkFn for each
// item. Entries with path traversal components ("..") or absolute paths are
// rejected to prevent Zip Slip attacks. When cp is not nil entry names
// flagged as non UTF-8 are decoded with it.
func Walk(archive, prefix string, cp encoding.Encoding, walkFn WalkFunc) error {

	r, err := fixzip.OpenReader(archive)
	if err != nil {
		return err
	}
	defer r.Close()

	for _, f := range r.File {
		name := f.FileHeader.Name
		if !isSafePath(name) {
			return fmt.Errorf("zip entry %q: unsafe path (absolute or contains path traversal)", name)
		}
		if cp != nil && f.FileHeader.NonUTF8 {
			// forcing zip file name encoding
			if n, err := cp.NewDecoder().String(name); err == nil {
				name = n
			}
		}
		if !f.FileInfo().IsDir() && strings.HasPrefix(name, prefix) {
			if err := walkFn(name, f); err != nil {
				return err
			}
		}
	}
	return nil
}

// isSafePath returns false for paths that could escape the extraction
// directory: absolute paths and those containing ".." components.
func isSafePath(name string) bool {
	if path.IsAbs(name) || strings.HasPrefix(name, "/") || strings.HasPrefix(name, `\`) {
		return false
	}
	for _, part := range strings.Split(name, "/") {
		if part == ".." {
			return false
		}
	}
	return true
}
