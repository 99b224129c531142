package export

import (
	"path/filepath"
	"testing"

	"go.uber.org/zap/zaptest"

	"pager/book"
	"pager/config"
)

func TestBuildOutputPath(t *testing.T) {
	b := &book.Book{Title: "Война и мир", Language: "ru"}
	src := "/books/Война и мир.book.json"

	t.Run("default name from source file", func(t *testing.T) {
		got := BuildOutputPath(b, src, "/out", config.OutputConfig{}, zaptest.NewLogger(t))
		want := filepath.Join("/out", "Война и мир.book"+bundleExt)
		if got != want {
			t.Errorf("got %q, want %q", got, want)
		}
	})

	t.Run("default name transliterated", func(t *testing.T) {
		got := BuildOutputPath(b, src, "/out", config.OutputConfig{Transliterate: true}, zaptest.NewLogger(t))
		want := filepath.Join("/out", "voina-i-mir-book"+bundleExt)
		if got != want {
			t.Errorf("got %q, want %q", got, want)
		}
	})

	t.Run("template expansion with subdirectories", func(t *testing.T) {
		cfg := config.OutputConfig{NameTemplate: "{{.Language}}/{{.Title}}"}
		got := BuildOutputPath(b, src, "/out", cfg, zaptest.NewLogger(t))
		want := filepath.Join("/out", "ru", "Война и мир"+bundleExt)
		if got != want {
			t.Errorf("got %q, want %q", got, want)
		}
	})

	t.Run("template with sprig functions", func(t *testing.T) {
		cfg := config.OutputConfig{NameTemplate: `{{.Title | upper}}`}
		got := BuildOutputPath(&book.Book{Title: "short"}, src, "/out", cfg, zaptest.NewLogger(t))
		want := filepath.Join("/out", "SHORT"+bundleExt)
		if got != want {
			t.Errorf("got %q, want %q", got, want)
		}
	})

	t.Run("broken template falls back to default", func(t *testing.T) {
		cfg := config.OutputConfig{NameTemplate: "{{.NoSuchField}}"}
		got := BuildOutputPath(b, src, "/out", cfg, zaptest.NewLogger(t))
		want := filepath.Join("/out", "Война и мир.book"+bundleExt)
		if got != want {
			t.Errorf("got %q, want %q", got, want)
		}
	})

	t.Run("bundle id is stable", func(t *testing.T) {
		cfg := config.OutputConfig{NameTemplate: "{{.BundleID}}"}
		one := BuildOutputPath(b, src, "/out", cfg, zaptest.NewLogger(t))
		two := BuildOutputPath(b, src, "/out", cfg, zaptest.NewLogger(t))
		if one != two {
			t.Errorf("bundle id not deterministic: %q vs %q", one, two)
		}
	})
}
