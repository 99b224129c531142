package text

import (
	"io"
	"strings"
	"unicode"
	"unicode/utf8"
)

// A trie keyed by runes holding TeX hyphenation pattern values - one weight
// per pattern rune.
type trie struct {
	leaf     bool
	value    []int
	children map[rune]*trie
}

func newTrie() *trie {
	return &trie{children: make(map[rune]*trie)}
}

// addRunes adds a rune sequence to the trie and returns the leaf node at
// which the addition ends.
func (p *trie) addRunes(r io.RuneReader) *trie {
	sym, _, err := r.ReadRune()
	if err != nil {
		p.leaf = true
		return p
	}

	n := p.children[sym]
	if n == nil {
		n = newTrie()
		p.children[sym] = n
	}

	return n.addRunes(r)
}

// addPatternString stores a TeX-style hyphenation pattern of the form
// '.hy2p': digits are break weights attached to the preceding character,
// everything else is pattern text.
func (p *trie) addPatternString(s string) {

	v := []int{}

	const zero = '0'

	// Convert to runes once to avoid byte-offset vs rune-index confusion
	// (range over string yields byte offsets, not rune indices).
	runes := []rune(s)

	for i, sym := range runes {

		if unicode.IsDigit(sym) {
			if i == 0 {
				// This is a prefix number
				v = append(v, int(sym-zero))
			}
			// this is a number referring to the previous character, and has
			// already been handled
			continue
		}

		if i < len(runes)-1 {
			// look ahead to see if it's followed by a number
			next := runes[i+1]
			if unicode.IsDigit(next) {
				// next char is the hyphenation value for this char
				v = append(v, int(next-zero))
			} else {
				// hyphenation for this char is an implied zero
				v = append(v, 0)
			}
		} else {
			// last character gets an implied zero
			v = append(v, 0)
		}
	}

	pure := strings.Map(func(sym rune) rune {
		if unicode.IsDigit(sym) {
			return -1
		}
		return sym
	}, s)

	leaf := p.addRunes(strings.NewReader(pure))
	if leaf == nil {
		return
	}
	leaf.value = v
}

// size counts all the nodes of the entire trie, NOT including the root node.
func (p *trie) size() (sz int) {
	sz = len(p.children)

	for _, child := range p.children {
		sz += child.size()
	}

	return
}

// allSubstringsAndValues returns all anchored substrings of the given string
// within the trie, with a matching set of their associated values.
func (p *trie) allSubstringsAndValues(s string) ([]string, [][]int) {

	sv := []string{}
	vv := [][]int{}

	for pos, sym := range s {
		child, ok := p.children[sym]
		if !ok {
			// return whatever we have so far
			break
		}

		// if this is a leaf node, add the string so far and its value
		if child.leaf {
			sv = append(sv, s[0:pos+utf8.RuneLen(sym)])
			vv = append(vv, child.value)
		}
		p = child
	}
	return sv, vv
}
