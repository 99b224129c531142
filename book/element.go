package book

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// ErrUnsupportedFormat reports malformed or unrecognized embedded payloads.
var ErrUnsupportedFormat = errors.New("unsupported format")

// ElementKind tags a content element variant.
type ElementKind int

const (
	ElementParagraph ElementKind = iota
	ElementHeading
	ElementImage
	ElementVideo
	ElementPoetry
	ElementDinkus
	ElementKaraoke
)

var elementKindNames = map[ElementKind]string{
	ElementParagraph: "paragraph",
	ElementHeading:   "heading",
	ElementImage:     "image",
	ElementVideo:     "video",
	ElementPoetry:    "poetry",
	ElementDinkus:    "dinkus",
	ElementKaraoke:   "karaoke",
}

func (k ElementKind) String() string {
	if n, ok := elementKindNames[k]; ok {
		return n
	}
	return fmt.Sprintf("ElementKind(%d)", int(k))
}

// Element is an atomic or splittable unit parsed out of content HTML.
// Atomic elements must never be split; paragraphs may be divided at
// sentence or word boundaries, karaoke text is sliced by its own rules.
type Element struct {
	Kind ElementKind
	HTML string // serialized source markup
	Text string // plain text for text-bearing kinds
	Src  string // media source for image/video

	// set for ElementKaraoke only
	KaraokeID string
	Karaoke   *KaraokePayload
}

// Atomic reports whether the element must appear whole on one page.
// The karaoke container is atomic for the generic paginator - only its text
// is sliceable, by the karaoke slicer.
func (e *Element) Atomic() bool {
	return e.Kind != ElementParagraph && e.Kind != ElementKaraoke
}

// ParseElements parses chapter content HTML into a flat list of elements in
// document order. Parsing is lenient - content comes from a rich-text editor
// and is not guaranteed to be well formed.
func ParseElements(contentHTML string) ([]Element, error) {
	ctx := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(strings.NewReader(contentHTML), ctx)
	if err != nil {
		return nil, fmt.Errorf("unable to parse content html: %w", err)
	}

	var elements []Element
	for _, n := range nodes {
		el, ok, err := classifyNode(n)
		if err != nil {
			return nil, err
		}
		if ok {
			elements = append(elements, el)
		}
	}
	return elements, nil
}

func classifyNode(n *html.Node) (Element, bool, error) {
	if n.Type == html.TextNode {
		text := strings.TrimSpace(n.Data)
		if len(text) == 0 {
			return Element{}, false, nil
		}
		return Element{Kind: ElementParagraph, HTML: "<p>" + html.EscapeString(text) + "</p>", Text: text}, true, nil
	}
	if n.Type != html.ElementNode {
		return Element{}, false, nil
	}

	// karaoke blocks are recognized by payload attribute on any element
	if payload := attr(n, "data-karaoke"); len(payload) > 0 {
		p, err := ParseKaraokePayload(payload)
		if err != nil {
			return Element{}, false, fmt.Errorf("karaoke block payload: %w", err)
		}
		id := attr(n, "data-karaoke-id")
		if len(id) == 0 {
			id = attr(n, "id")
		}
		if len(id) == 0 {
			id = uuid.NewString()
		}
		return Element{Kind: ElementKaraoke, HTML: render(n), Text: p.Text, KaraokeID: id, Karaoke: p}, true, nil
	}

	switch n.DataAtom {
	case atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6:
		return Element{Kind: ElementHeading, HTML: render(n), Text: nodeText(n)}, true, nil
	case atom.Img:
		return Element{Kind: ElementImage, HTML: render(n), Src: attr(n, "src")}, true, nil
	case atom.Video:
		return Element{Kind: ElementVideo, HTML: render(n), Src: videoSrc(n)}, true, nil
	case atom.Hr:
		return Element{Kind: ElementDinkus, HTML: render(n)}, true, nil
	case atom.Figure:
		// figures wrap a single image or video
		if img := findFirst(n, atom.Img); img != nil {
			return Element{Kind: ElementImage, HTML: render(n), Src: attr(img, "src")}, true, nil
		}
		if vid := findFirst(n, atom.Video); vid != nil {
			return Element{Kind: ElementVideo, HTML: render(n), Src: videoSrc(vid)}, true, nil
		}
	case atom.Div, atom.Section, atom.Blockquote, atom.Pre:
		classes := attr(n, "class")
		switch {
		case hasClass(classes, "poetry"), hasClass(classes, "poem"), hasClass(classes, "verse"):
			return Element{Kind: ElementPoetry, HTML: render(n), Text: nodeText(n)}, true, nil
		case hasClass(classes, "dinkus"):
			return Element{Kind: ElementDinkus, HTML: render(n)}, true, nil
		}
	}

	text := nodeText(n)
	if len(strings.TrimSpace(text)) == 0 {
		// decorative or empty node, nothing to lay out
		return Element{}, false, nil
	}
	return Element{Kind: ElementParagraph, HTML: render(n), Text: text}, true, nil
}

func attr(n *html.Node, name string) string {
	for _, a := range n.Attr {
		if a.Key == name {
			return a.Val
		}
	}
	return ""
}

func hasClass(classes, want string) bool {
	for _, c := range strings.Fields(classes) {
		if c == want {
			return true
		}
	}
	return false
}

func render(n *html.Node) string {
	var sb strings.Builder
	// Render only fails on unsupported node types which cannot appear here
	_ = html.Render(&sb, n)
	return sb.String()
}

func nodeText(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		if node.Type == html.TextNode {
			sb.WriteString(node.Data)
		}
		if node.DataAtom == atom.Br {
			sb.WriteString("\n")
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}

func findFirst(n *html.Node, a atom.Atom) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == a {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findFirst(c, a); found != nil {
			return found
		}
	}
	return nil
}

func videoSrc(n *html.Node) string {
	if src := attr(n, "src"); len(src) > 0 {
		return src
	}
	if source := findFirst(n, atom.Source); source != nil {
		return attr(source, "src")
	}
	return ""
}
