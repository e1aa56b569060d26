// Package query normalizes raw user questions before they are embedded.
package query

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

// ErrEmptyQuery is returned when the input is empty after trimming.
var ErrEmptyQuery = errors.New("query is empty")

var repeatedPunct = regexp.MustCompile(`[?!]{2,}`)

type entry struct {
	abbr      []rune
	expansion string
	// wordStart and wordEnd require a non-word neighbour on that side.
	wordStart bool
	wordEnd   bool
	firstWord bool
	lastWord  bool
}

// Normalizer expands abbreviations and tidies whitespace. It is safe for concurrent use.
type Normalizer struct {
	entries []entry
}

// NewNormalizer builds a normalizer from table. It rejects tables whose expansions
// would be rewritten again, so Normalize stays idempotent.
func NewNormalizer(table Table) (*Normalizer, error) {
	n := &Normalizer{}
	for abbr, expansion := range table {
		abbr = strings.TrimSpace(abbr)
		expansion = strings.Join(strings.Fields(expansion), " ")
		if abbr == "" || expansion == "" {
			return nil, fmt.Errorf("abbreviation table has an empty entry (%q: %q)", abbr, expansion)
		}
		if strings.ContainsFunc(abbr, func(r rune) bool { return unicode.IsSpace(r) || r == '?' || r == '!' }) {
			return nil, fmt.Errorf("abbreviation %q must be a single token", abbr)
		}
		lower := lowerRunes([]rune(abbr))
		first, _ := utf8.DecodeRuneInString(expansion)
		last, _ := utf8.DecodeLastRuneInString(expansion)
		n.entries = append(n.entries, entry{
			abbr:      lower,
			expansion: expansion,
			wordStart: isWord(lower[0]),
			wordEnd:   isWord(lower[len(lower)-1]),
			firstWord: isWord(first),
			lastWord:  isWord(last),
		})
	}

	// Longest abbreviation wins at a position; ties broken alphabetically for determinism.
	sort.Slice(n.entries, func(i, j int) bool {
		a, b := n.entries[i].abbr, n.entries[j].abbr
		if len(a) != len(b) {
			return len(a) > len(b)
		}
		return string(a) < string(b)
	})

	for _, e := range n.entries {
		if other, ok := n.rewrites(e.expansion); ok {
			return nil, fmt.Errorf("expansion %q would be rewritten by abbreviation %q", e.expansion, other)
		}
	}
	return n, nil
}

// MustDefault returns a normalizer over DefaultTable.
func MustDefault() *Normalizer {
	n, err := NewNormalizer(DefaultTable())
	if err != nil {
		panic(err)
	}
	return n
}

// Normalize expands known abbreviations (case-insensitive, whole tokens), collapses
// repeated ?/! and whitespace runs, and trims. It is idempotent.
func (n *Normalizer) Normalize(raw string) (string, error) {
	if strings.TrimSpace(raw) == "" {
		return "", ErrEmptyQuery
	}

	out := n.expand(raw)
	out = repeatedPunct.ReplaceAllString(out, "?")
	out = strings.Join(strings.Fields(out), " ")
	if out == "" {
		return "", ErrEmptyQuery
	}
	return out, nil
}

func (n *Normalizer) expand(s string) string {
	src := []rune(s)
	low := lowerRunes(src)

	var b strings.Builder
	b.Grow(len(s))
	var last rune
	for i := 0; i < len(src); {
		e, ok := n.match(low, i)
		if !ok {
			b.WriteRune(src[i])
			last = src[i]
			i++
			continue
		}

		if isWord(last) && e.firstWord {
			b.WriteRune(' ')
		}
		b.WriteString(e.expansion)
		last, _ = utf8.DecodeLastRuneInString(e.expansion)
		i += len(e.abbr)
		if i < len(src) && isWord(src[i]) && e.lastWord {
			b.WriteRune(' ')
			last = ' '
		}
	}
	return b.String()
}

func (n *Normalizer) match(low []rune, i int) (entry, bool) {
	for _, e := range n.entries {
		end := i + len(e.abbr)
		if end > len(low) {
			continue
		}
		if e.wordStart && i > 0 && isWord(low[i-1]) {
			continue
		}
		if !equalRunes(low[i:end], e.abbr) {
			continue
		}
		if e.wordEnd && end < len(low) && isWord(low[end]) {
			continue
		}
		return e, true
	}
	return entry{}, false
}

// rewrites reports whether any abbreviation could match inside expansion, including a
// match that starts in expansion and continues into following text.
func (n *Normalizer) rewrites(expansion string) (string, bool) {
	low := lowerRunes([]rune(expansion))
	for i := range low {
		if e, ok := n.match(low, i); ok {
			return string(e.abbr), true
		}
		tail := low[i:]
		for _, e := range n.entries {
			if e.wordStart && i > 0 && isWord(low[i-1]) {
				continue
			}
			if len(e.abbr) > len(tail) && equalRunes(e.abbr[:len(tail)], tail) {
				return string(e.abbr), true
			}
		}
	}
	return "", false
}

func lowerRunes(src []rune) []rune {
	low := make([]rune, len(src))
	for i, r := range src {
		low[i] = unicode.ToLower(r)
	}
	return low
}

func equalRunes(a, b []rune) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func isWord(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}
