package archive

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"
	"testing"
)

func writeArchive(t *testing.T, entries map[string]string) string {
	t.Helper()

	name := filepath.Join(t.TempDir(), "test.book")
	f, err := os.Create(name)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	w := zip.NewWriter(f)
	for n, data := range entries {
		e, err := w.Create(n)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := e.Write([]byte(data)); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return name
}

func TestWalk(t *testing.T) {
	arc := writeArchive(t, map[string]string{
		"book.json":            `{"title":"t"}`,
		"chapters/ch-1.json":   `{"id":"1"}`,
		"chapters/ch-2.json":   `{"id":"2"}`,
		"media/cover.jpg":      "not really a jpeg",
		"chapters/ignored.txt": "noise",
	})

	var seen []string
	err := Walk(arc, "chapters/", nil, func(name string, file *File) error {
		r, err := file.Open()
		if err != nil {
			return err
		}
		defer r.Close()
		if _, err := io.ReadAll(r); err != nil {
			return err
		}
		seen = append(seen, name)
		return nil
	})
	if err != nil {
		t.Fatalf("Walk() error = %v", err)
	}
	if len(seen) != 3 {
		t.Errorf("Walk() visited %d entries, want 3: %v", len(seen), seen)
	}
}

func TestWalkUnsafePath(t *testing.T) {
	arc := writeArchive(t, map[string]string{
		"../escape.json": "{}",
	})

	err := Walk(arc, "", nil, func(string, *File) error { return nil })
	if err == nil {
		t.Fatal("Walk() expected error for unsafe path")
	}
}

func TestIsSafePath(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"chapters/ch-1.json", true},
		{"book.json", true},
		{"/etc/passwd", false},
		{`\windows\system32`, false},
		{"a/../../b", false},
	}
	for _, tt := range tests {
		if got := isSafePath(tt.path); got != tt.want {
			t.Errorf("isSafePath(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}
