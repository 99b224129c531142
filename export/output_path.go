package export

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"text/template"

	sprig "github.com/go-task/slim-sprig/v3"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"go.uber.org/zap"

	"pager/book"
	"pager/config"
)

const bundleExt = ".pages"

// templateValues are the fields a name template can reference.
type templateValues struct {
	Title      string
	Language   string
	SourceFile string
	BundleID   string
}

// BuildOutputPath returns the constructed output file path/name. It uses
// either the default naming scheme or a user-defined template, cleans the
// result up and transliterates it when requested.
func BuildOutputPath(b *book.Book, src, dst string, cfg config.OutputConfig, log *zap.Logger) string {
	defaultFile := buildDefaultFileName(src, cfg)

	if cfg.NameTemplate == "" {
		return filepath.Join(dst, defaultFile)
	}

	expandedName, err := expandNameTemplate(b, src, cfg.NameTemplate)
	if err != nil {
		// fall back to the default name if template expansion failed
		log.Warn("Unable to prepare output filename", zap.Error(err))
		return filepath.Join(dst, defaultFile)
	}

	return assemblePathWithSubdirs(dst, filepath.FromSlash(expandedName), cfg)
}

func buildDefaultFileName(src string, cfg config.OutputConfig) string {
	baseName := strings.TrimSuffix(filepath.Base(src), filepath.Ext(src))
	if cfg.Transliterate {
		baseName = slug.Make(baseName)
	}
	return config.CleanFileName(baseName) + bundleExt
}

func expandNameTemplate(b *book.Book, src, field string) (string, error) {
	tmpl, err := template.New(config.OutputNameTemplateFieldName).Funcs(sprig.FuncMap()).Parse(field)
	if err != nil {
		return "", fmt.Errorf("unable to parse template field %s: %w", config.OutputNameTemplateFieldName, err)
	}

	values := templateValues{
		Title:      b.Title,
		Language:   b.Language,
		SourceFile: strings.TrimSuffix(filepath.Base(src), filepath.Ext(src)),
		BundleID:   uuid.NewSHA1(uuid.NameSpaceOID, []byte(b.Title+"|"+src)).String(),
	}

	buf := new(bytes.Buffer)
	if err := tmpl.Execute(buf, values); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// assemblePathWithSubdirs takes an expanded template name (which may contain
// path separators for subdirectories) and assembles it into a full output
// path, cleaning and transliterating segments as needed.
func assemblePathWithSubdirs(outDir, expandedName string, cfg config.OutputConfig) string {
	pathSegments := splitAndCleanPath(expandedName)
	if len(pathSegments) == 0 {
		return outDir
	}

	fileName := cleanPathSegment(pathSegments[len(pathSegments)-1], cfg) + bundleExt
	dirParts := make([]string, 0, len(pathSegments)+1)
	dirParts = append(dirParts, outDir)

	for _, segment := range pathSegments[:len(pathSegments)-1] {
		dirParts = append(dirParts, cleanPathSegment(segment, cfg))
	}

	dirParts = append(dirParts, fileName)
	return filepath.Join(dirParts...)
}

func splitAndCleanPath(path string) []string {
	path = strings.TrimSuffix(path, string(os.PathSeparator))
	segments := make([]string, 0, 8)

	for head, tail := filepath.Split(path); tail != ""; head, tail = filepath.Split(head) {
		segments = slices.Insert(segments, 0, tail)
		head = strings.TrimSuffix(head, string(os.PathSeparator))
		if head == "" {
			break
		}
		path = head
	}

	return segments
}

func cleanPathSegment(segment string, cfg config.OutputConfig) string {
	if cfg.Transliterate {
		segment = slug.Make(segment)
	}
	return config.CleanFileName(segment)
}
