package rag

import (
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"unicode/utf8"
)

const unknownField = "Unknown"

// ContextAssembler builds the generation context and its citations.
type ContextAssembler struct {
	// MaxChars bounds the context length in characters.
	MaxChars int
}

// AssembledContext is the context text with the chunks it contains.
type AssembledContext struct {
	Text      string
	Citations []Citation
	Included  []ScoredChunk
	Dropped   int
}

// Assemble appends chunks best first until the next one would not fit. That chunk
// and everything after it are dropped whole. The best chunk is always included so
// a non-empty retrieval never produces an empty context.
func (a ContextAssembler) Assemble(chunks []ScoredChunk) AssembledContext {
	ordered := slices.Clone(chunks)
	SortChunks(ordered)

	var (
		b    strings.Builder
		used int
		out  AssembledContext
	)
	for i, sc := range ordered {
		n := len(out.Included) + 1
		block := formatSource(n, sc)
		size := utf8.RuneCountInString(block)
		if n > 1 {
			size++ // separator
		}
		if n > 1 && used+size > a.MaxChars {
			out.Dropped = len(ordered) - i
			break
		}
		if n > 1 {
			b.WriteByte('\n')
		}
		b.WriteString(block)
		used += size

		out.Included = append(out.Included, sc)
		out.Citations = append(out.Citations, newCitation(n, sc))
	}
	out.Text = b.String()

	checkCitations(out.Citations)
	return out
}

func formatSource(n int, sc ScoredChunk) string {
	return fmt.Sprintf("[Source %d: %s - %s]\n%s\n",
		n, orUnknown(sc.Chunk.Title), orUnknown(sc.Chunk.Organization), sc.Chunk.Text)
}

func newCitation(n int, sc ScoredChunk) Citation {
	return Citation{
		Index:          n,
		ID:             sc.Chunk.ID,
		Title:          orUnknown(sc.Chunk.Title),
		Organization:   orUnknown(sc.Chunk.Organization),
		URL:            sc.Chunk.URL,
		LastVerified:   sc.Chunk.VerifiedDate(),
		RelevanceScore: sc.Score,
		Category:       sc.Chunk.Category,
	}
}

func orUnknown(s string) string {
	if strings.TrimSpace(s) == "" {
		return unknownField
	}
	return s
}

// checkCitations panics when numbering is not 1..N. Assemble is the only producer,
// so a violation is a bug.
func checkCitations(citations []Citation) {
	for i, c := range citations {
		if c.Index != i+1 {
			panic(fmt.Sprintf("rag: citation %d has index %d, numbering must be contiguous from 1", i, c.Index))
		}
	}
}

// citationPattern matches [3] and [1, 4] style markers.
var citationPattern = regexp.MustCompile(`[ \t]*\[(\d+(?:\s*,\s*\d+)*)\]`)

// CitedIndices returns every citation number referenced in text, in order of appearance.
func CitedIndices(text string) []int {
	var out []int
	for _, m := range citationPattern.FindAllStringSubmatch(text, -1) {
		out = append(out, parseIndices(m[1])...)
	}
	return out
}

// SanitizeCitations removes references to sources outside 1..n. Markers that keep at
// least one valid index are rewritten with only the valid ones. It returns the
// cleaned text and how many references were removed.
func SanitizeCitations(text string, n int) (string, int) {
	removed := 0
	cleaned := citationPattern.ReplaceAllStringFunc(text, func(match string) string {
		open := strings.IndexByte(match, '[')
		indices := parseIndices(match[open+1 : len(match)-1])

		valid := make([]string, 0, len(indices))
		for _, idx := range indices {
			if idx >= 1 && idx <= n {
				valid = append(valid, strconv.Itoa(idx))
			} else {
				removed++
			}
		}
		switch {
		case len(valid) == len(indices):
			return match
		case len(valid) == 0:
			return ""
		default:
			return match[:open] + "[" + strings.Join(valid, ", ") + "]"
		}
	})
	return cleaned, removed
}

func parseIndices(list string) []int {
	parts := strings.Split(list, ",")
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			// Digits only; overflow is the one way to get here.
			v = -1
		}
		out = append(out, v)
	}
	return out
}
