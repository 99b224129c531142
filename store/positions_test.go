package store

import (
	"path/filepath"
	"testing"

	"go.uber.org/zap/zaptest"
)

func openStore(t *testing.T, path string) *Positions {
	t.Helper()
	p, err := Open(path, zaptest.NewLogger(t))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = p.Close() })
	return p
}

func TestPositionsRoundTrip(t *testing.T) {
	p := openStore(t, "")

	if _, found, err := p.Load("book-1"); err != nil || found {
		t.Fatalf("fresh store: found=%v err=%v", found, err)
	}

	want := Position{ChapterID: "ch2", PageIndex: 7}
	if err := p.Save("book-1", want); err != nil {
		t.Fatal(err)
	}
	got, found, err := p.Load("book-1")
	if err != nil || !found {
		t.Fatalf("load after save: found=%v err=%v", found, err)
	}
	if got != want {
		t.Errorf("got %+v, want %+v", got, want)
	}

	// save is an upsert
	want = Position{ChapterID: "ch3", PageIndex: 0}
	if err := p.Save("book-1", want); err != nil {
		t.Fatal(err)
	}
	if got, _, _ := p.Load("book-1"); got != want {
		t.Errorf("after upsert got %+v, want %+v", got, want)
	}

	// books do not share positions
	if _, found, _ := p.Load("book-2"); found {
		t.Error("unrelated book has a position")
	}
}

func TestPositionsForget(t *testing.T) {
	p := openStore(t, "")
	if err := p.Save("book-1", Position{ChapterID: "ch1", PageIndex: 1}); err != nil {
		t.Fatal(err)
	}
	if err := p.Forget("book-1"); err != nil {
		t.Fatal(err)
	}
	if _, found, _ := p.Load("book-1"); found {
		t.Error("position survived Forget")
	}
}

func TestPositionsPersistence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "positions.db")

	first := openStore(t, path)
	if err := first.Save("book-1", Position{ChapterID: "ch5", PageIndex: 12}); err != nil {
		t.Fatal(err)
	}
	if err := first.Close(); err != nil {
		t.Fatal(err)
	}

	second := openStore(t, path)
	got, found, err := second.Load("book-1")
	if err != nil || !found {
		t.Fatalf("reopen: found=%v err=%v", found, err)
	}
	if got.ChapterID != "ch5" || got.PageIndex != 12 {
		t.Errorf("got %+v", got)
	}
}
