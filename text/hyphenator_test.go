package text

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap/zaptest"
	"golang.org/x/text/language"
)

// small en-us pattern subset sufficient for the words exercised below
const patterns = `.hy2p
h2yp
hy3ph
he2n
hena4
hen5at
1na
n2at
1tio
2io
o2n
`

const exceptions = `hy-phen-ation
ta-ble
`

func writeDictionaries(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "hyph-en-us.pat.txt"), []byte(patterns), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "hyph-en-us.hyp.txt"), []byte(exceptions), 0644); err != nil {
		t.Fatal(err)
	}
	return dir
}

func TestNewHyphenator(t *testing.T) {
	logger := zaptest.NewLogger(t)
	dir := writeDictionaries(t)

	t.Run("mapped language", func(t *testing.T) {
		// "en" maps to "en-us"
		h := NewHyphenator(dir, language.English, logger)
		if h == nil {
			t.Fatal("Expected hyphenator for English, got nil")
		}
	})

	t.Run("missing dictionary", func(t *testing.T) {
		h := NewHyphenator(dir, language.Japanese, logger)
		if h != nil {
			t.Fatal("Expected nil for language without dictionary")
		}
	})

	t.Run("no directory", func(t *testing.T) {
		h := NewHyphenator("", language.English, logger)
		if h != nil {
			t.Fatal("Expected nil when dictionary directory is not configured")
		}
	})
}

func TestHyphenate(t *testing.T) {
	logger := zaptest.NewLogger(t)
	h := NewHyphenator(writeDictionaries(t), language.English, logger)
	if h == nil {
		t.Fatal("Expected hyphenator, got nil")
	}

	t.Run("exception wins", func(t *testing.T) {
		got := h.Hyphenate("table")
		want := "ta" + SoftHyphen + "ble"
		if got != want {
			t.Errorf("Hyphenate(table) = %q, want %q", got, want)
		}
	})

	t.Run("strip markers reproduces input", func(t *testing.T) {
		in := "hyphenation of the nation"
		out := h.Hyphenate(in)
		if strings.ReplaceAll(out, SoftHyphen, "") != in {
			t.Errorf("Hyphenate(%q) altered text: %q", in, out)
		}
	})

	t.Run("nil hyphenator passes through", func(t *testing.T) {
		var nh *Hyphenator
		if got := nh.Hyphenate("anything"); got != "anything" {
			t.Errorf("nil Hyphenate = %q", got)
		}
	})
}
