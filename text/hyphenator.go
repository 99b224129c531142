// TeX-style hyphenation (forked from github.com/AlanQuatermain/go-hyphenator
// and modified). Pattern dictionaries are loaded at run time from a
// configured directory - standard TeX "hyph-<lang>.pat.txt" pattern files
// plus optional "hyph-<lang>.hyp.txt" exceptions.
package text

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/scanner"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/text/language"
)

// SoftHyphen is inserted at discovered break opportunities.
const SoftHyphen = "­"

type Hyphenator struct {
	*hyph
}

// Some languages require additional specification.
var langMap = map[string]string{
	"de":    "de-1901",
	"de-de": "de-1901",
	"de-at": "de-1996",
	"el":    "el-monoton",
	"en":    "en-us",
	"mn":    "mn-cyrl",
	"sr":    "sr-cyrl",
	"zh":    "zh-latn-pinyin",
}

func tryLoadDictionary(dir, name, suffix string) ([]byte, error) {
	return os.ReadFile(filepath.Join(dir, fmt.Sprintf("hyph-%s.%s.txt", name, suffix)))
}

// NewHyphenator loads hyphenation dictionary for specified language from dir.
// Returns nil (hyphenation off) when no dictionary could be found - a nil
// Hyphenator is safe to use.
func NewHyphenator(dir string, lang language.Tag, log *zap.Logger) *Hyphenator {
	if len(dir) == 0 {
		log.Debug("No hyphenation dictionary directory configured, turning off hyphenation")
		return nil
	}

	var (
		langName     string
		dataPatterns []byte
		err          error
	)

	// Try language tag
	name := strings.ToLower(lang.String())
	if dataPatterns, err = tryLoadDictionary(dir, name, "pat"); err == nil {
		langName = name
	}

	// Try mapped language tag
	if langName == "" {
		if mapped, ok := langMap[name]; ok {
			if dataPatterns, err = tryLoadDictionary(dir, mapped, "pat"); err == nil {
				langName = mapped
			}
		}
	}

	// Try base language tag and its mapping
	if langName == "" {
		base, confidence := lang.Base()
		if confidence != language.No {
			name = strings.ToLower(base.String())
			if dataPatterns, err = tryLoadDictionary(dir, name, "pat"); err == nil {
				langName = name
			} else if mapped, ok := langMap[name]; ok {
				if dataPatterns, err = tryLoadDictionary(dir, mapped, "pat"); err == nil {
					langName = mapped
				}
			}
		} else {
			log.Warn("Unable to determine language base", zap.Stringer("tag", lang), zap.Stringer("base", base))
		}
	}

	if langName == "" {
		log.Warn("Unable to find suitable hyphenation dictionary, turning off hyphenation", zap.Stringer("language", lang))
		return nil
	}

	// Exceptions dictionary is optional
	dataExceptions, err := tryLoadDictionary(dir, langName, "hyp")
	if err != nil {
		log.Debug("No exceptions dictionary found, leaving empty", zap.Stringer("tag", lang), zap.String("name", langName))
		dataExceptions = []byte{}
	}

	h := &hyph{}
	if err = h.loadDictionary(langName, strings.NewReader(string(dataPatterns)), strings.NewReader(string(dataExceptions))); err != nil {
		log.Warn("Unable to load hyphenation dictionary", zap.Stringer("tag", lang), zap.Error(err))
		return nil
	}
	return &Hyphenator{h}
}

// Hyphenate inserts soft-hyphens into words in string.
func (h *Hyphenator) Hyphenate(in string) string {
	if h == nil {
		return in
	}
	return h.hyphString(in, SoftHyphen)
}

// hyph struct wraps actual implementation.
type hyph struct {
	patterns   *trie
	exceptions map[string]string
	language   string
}

// loadDictionary imports hyphenation patterns and exceptions from provided input streams.
func (h *hyph) loadDictionary(language string, patterns, exceptions io.Reader) error {

	if h.language != language {
		h.patterns = nil
		h.exceptions = nil
		h.language = language
	}

	if h.patterns != nil && h.patterns.size() != 0 {
		// looks like it's already been set up
		return nil
	}

	h.patterns = newTrie()
	h.exceptions = make(map[string]string, 20)

	if err := h.loadPatterns(patterns); err != nil {
		return err
	}
	return h.loadExceptions(exceptions)
}

func (h *hyph) loadPatterns(reader io.Reader) error {
	scanner := bufio.NewScanner(reader)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if len(line) == 0 || strings.HasPrefix(line, "%") {
			continue
		}
		h.patterns.addPatternString(line)
	}
	return scanner.Err()
}

func (h *hyph) loadExceptions(reader io.Reader) error {
	scanner := bufio.NewScanner(reader)
	for scanner.Scan() {
		str := strings.TrimSpace(scanner.Text())
		if len(str) == 0 {
			continue
		}
		key := strings.ReplaceAll(str, `-`, ``)
		h.exceptions[key] = str
	}
	return scanner.Err()
}

func (h *hyph) hyphenateWord(s, hyphen string) string {

	testStr := `.` + s + `.`
	v := make([]int, utf8.RuneCountInString(testStr))

	vIndex := 0
	for pos := range testStr {
		t := testStr[pos:]
		strs, values := h.patterns.allSubstringsAndValues(t)
		for i := range len(values) {
			str := strs[i]
			val := values[i]

			diff := len(val) - utf8.RuneCountInString(str)
			vs := v[vIndex-diff:]

			for i := range len(val) {
				if val[i] > vs[i] {
					vs[i] = val[i]
				}
			}
		}
		vIndex++
	}

	var outstr strings.Builder

	// trim the values for the beginning and ending dots
	markers := v[1 : len(v)-1]
	mIndex := 0
	for _, ch := range s {
		outstr.WriteRune(ch)
		// don't hyphenate between (or after) first two and the last two characters of a string
		if 1 <= mIndex && mIndex < len(markers)-2 {
			// hyphens are inserted on odd values, skipped on even ones
			if markers[mIndex]%2 != 0 {
				outstr.WriteString(hyphen)
			}
		}
		mIndex++
	}

	return outstr.String()
}

// hyphenate string.
func (h *hyph) hyphString(s, hyphen string) string {

	var sc scanner.Scanner
	sc.Init(strings.NewReader(s))
	sc.Mode = scanner.ScanIdents
	sc.Whitespace = 0

	var outstr strings.Builder

	tok := sc.Scan()
	for tok != scanner.EOF {
		switch tok {
		case scanner.Ident:
			// a word (or part thereof) to hyphenate
			t := sc.TokenText()

			// try the exceptions first
			exc := h.exceptions[t]
			if len(exc) != 0 {
				if hyphen != `-` {
					exc = strings.ReplaceAll(exc, `-`, hyphen)
				}
				outstr.WriteString(exc)
			} else {
				// not an exception, hyphenate normally
				outstr.WriteString(h.hyphenateWord(t, hyphen))
			}
		default:
			// A Unicode rune to append to the output
			outstr.WriteRune(tok)
		}

		tok = sc.Scan()
	}
	return outstr.String()
}
