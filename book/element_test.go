package book

import (
	"strings"
	"testing"
)

func TestParseElements(t *testing.T) {
	content := `
<h2>Chapter One</h2>
<p>First paragraph with a ^[note] marker.</p>
<img src="media/fox.jpg" alt="fox">
<figure class="video"><video src="media/run.mp4"></video></figure>
<div class="poetry">Line one<br>Line two</div>
<hr>
<div data-karaoke-id="k1" data-karaoke='{"type":"karaoke","text":"la la","audioUrl":"media/la.mp3","wordTimings":[{"word":"la","start":0,"end":0.5},{"word":"la","start":0.5,"end":1}]}'>la la</div>
<p>Last paragraph.</p>`

	elements, err := ParseElements(content)
	if err != nil {
		t.Fatalf("ParseElements() error = %v", err)
	}

	want := []ElementKind{
		ElementHeading, ElementParagraph, ElementImage, ElementVideo,
		ElementPoetry, ElementDinkus, ElementKaraoke, ElementParagraph,
	}
	if len(elements) != len(want) {
		t.Fatalf("ParseElements() produced %d elements, want %d", len(elements), len(want))
	}
	for i, k := range want {
		if elements[i].Kind != k {
			t.Errorf("element %d kind = %s, want %s", i, elements[i].Kind, k)
		}
	}

	t.Run("atomicity", func(t *testing.T) {
		for _, el := range elements {
			splittable := el.Kind == ElementParagraph || el.Kind == ElementKaraoke
			if el.Atomic() == splittable {
				t.Errorf("%s: Atomic() = %v", el.Kind, el.Atomic())
			}
		}
	})

	t.Run("media sources", func(t *testing.T) {
		if elements[2].Src != "media/fox.jpg" {
			t.Errorf("image src = %q", elements[2].Src)
		}
		if elements[3].Src != "media/run.mp4" {
			t.Errorf("video src = %q", elements[3].Src)
		}
	})

	t.Run("karaoke payload", func(t *testing.T) {
		el := elements[6]
		if el.KaraokeID != "k1" {
			t.Errorf("karaoke id = %q, want k1", el.KaraokeID)
		}
		if el.Karaoke == nil || len(el.Karaoke.WordTimings) != 2 {
			t.Fatalf("karaoke payload not parsed: %+v", el.Karaoke)
		}
		if el.Karaoke.AudioURL != "media/la.mp3" {
			t.Errorf("audio url = %q", el.Karaoke.AudioURL)
		}
	})

	t.Run("poetry keeps line breaks", func(t *testing.T) {
		if !strings.Contains(elements[4].Text, "\n") {
			t.Errorf("poetry text lost line break: %q", elements[4].Text)
		}
	})
}

func TestParseElementsMalformedKaraoke(t *testing.T) {
	_, err := ParseElements(`<div data-karaoke='{"type":"unknown"}'>x</div>`)
	if err == nil {
		t.Fatal("expected error for unknown payload type")
	}
}

func TestParseElementsGeneratesKaraokeID(t *testing.T) {
	elements, err := ParseElements(`<div data-karaoke='{"type":"karaoke","text":"x","audioUrl":"a","wordTimings":[]}'>x</div>`)
	if err != nil {
		t.Fatal(err)
	}
	if len(elements) != 1 || len(elements[0].KaraokeID) == 0 {
		t.Fatal("expected generated karaoke id")
	}
}

func TestParseKaraokePayload(t *testing.T) {
	t.Run("bad json", func(t *testing.T) {
		if _, err := ParseKaraokePayload("{"); err == nil {
			t.Error("expected error for bad json")
		}
	})
	t.Run("wrong type fails fast", func(t *testing.T) {
		if _, err := ParseKaraokePayload(`{"type":"subtitles"}`); err == nil {
			t.Error("expected ErrUnsupportedFormat")
		}
	})
}

func TestFlatten(t *testing.T) {
	b := &Book{
		Title: "test",
		Chapters: []Chapter{
			{ID: "cover", IsCover: true},
			{ID: "first", IsFirstPage: true},
			{ID: "c1", Title: "One", ContentHTML: "<p>a</p>", Children: []Chapter{
				{ID: "c1s1", Title: "One-One", ContentHTML: "<p>b</p>"},
			}},
			{ID: "c2", Title: "Two", ContentHTML: "<p>c</p>"},
		},
	}

	blocks := b.Flatten()
	if len(blocks) != 3 {
		t.Fatalf("Flatten() produced %d blocks, want 3", len(blocks))
	}
	if blocks[0].Kind != BlockChapter || blocks[0].ChapterIndex != 0 {
		t.Errorf("block 0 = %+v", blocks[0])
	}
	if blocks[1].Kind != BlockSubchapter || blocks[1].ChapterID != "c1" || blocks[1].SubchapterID != "c1s1" {
		t.Errorf("block 1 = %+v", blocks[1])
	}
	if blocks[2].ChapterIndex != 1 {
		t.Errorf("block 2 chapter index = %d, want 1", blocks[2].ChapterIndex)
	}
	if b.Cover() == nil || b.FirstPage() == nil {
		t.Error("cover/first page lookup failed")
	}
}

func TestNormalizeText(t *testing.T) {
	tests := []struct {
		name, in, want string
	}{
		{"apostrophes", "don’t it`s", "don't it's"},
		{"soft hyphen removed", "hy­phen", "hyphen"},
		{"plain text unchanged", "hello world", "hello world"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeText(tt.in); got != tt.want {
				t.Errorf("NormalizeText(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
