package indexer

import (
	"strings"
	"unicode/utf8"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	extast "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"
)

const (
	// ChunkerVersion identifies the section splitting rules. Bumping it re-seeds every document.
	ChunkerVersion = "sections-v1"

	DefaultMinSectionRunes = 120
	DefaultMaxSectionRunes = 2400
)

// SectionChunker splits document content into heading sections using goldmark.
// Plain text without markdown structure becomes paragraph-packed sections.
type SectionChunker struct {
	MinRunes int
	MaxRunes int
	parser   goldmark.Markdown
}

// NewSectionChunker creates a chunker with the given size limits in runes.
// Non-positive values select the defaults.
func NewSectionChunker(minRunes, maxRunes int) *SectionChunker {
	if minRunes <= 0 {
		minRunes = DefaultMinSectionRunes
	}
	if maxRunes <= 0 {
		maxRunes = DefaultMaxSectionRunes
	}
	if minRunes > maxRunes {
		minRunes = maxRunes
	}
	return &SectionChunker{
		MinRunes: minRunes,
		MaxRunes: maxRunes,
		parser: goldmark.New(
			goldmark.WithExtensions(extension.Table),
		),
	}
}

// Split returns the sections of content in document order, re-indexed from 0.
func (c *SectionChunker) Split(content string) []Section {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil
	}

	source := []byte(content)
	doc := c.parser.Parser().Parse(text.NewReader(source))

	sections := collectSections(doc, source)
	if len(sections) == 0 {
		sections = []Section{{Text: content}}
	}
	sections = c.constrain(sections)

	for i := range sections {
		sections[i].Index = i
	}
	return sections
}

type heading struct {
	level int
	text  string
}

// collectSections walks the top-level blocks, starting a section at every heading.
func collectSections(doc ast.Node, source []byte) []Section {
	var (
		sections []Section
		stack    []heading
		current  *Section
		blocks   []string
	)

	flush := func() {
		if current == nil {
			return
		}
		current.Text = strings.Join(blocks, "\n\n")
		if current.Text != "" {
			sections = append(sections, *current)
		}
		current, blocks = nil, nil
	}

	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		if h, ok := n.(*ast.Heading); ok {
			flush()
			for len(stack) > 0 && stack[len(stack)-1].level >= h.Level {
				stack = stack[:len(stack)-1]
			}
			stack = append(stack, heading{level: h.Level, text: nodeText(h, source)})
			current = &Section{Heading: headingPath(stack)}
			continue
		}

		block := blockText(n, source)
		if block == "" {
			continue
		}
		if current == nil {
			current = &Section{Heading: headingPath(stack)}
		}
		blocks = append(blocks, block)
	}
	flush()
	return sections
}

func headingPath(stack []heading) string {
	parts := make([]string, len(stack))
	for i, h := range stack {
		parts[i] = h.text
	}
	return strings.Join(parts, " > ")
}

// blockText renders one block node as plain text.
func blockText(n ast.Node, source []byte) string {
	switch node := n.(type) {
	case *ast.FencedCodeBlock, *ast.CodeBlock:
		return strings.TrimSpace(linesText(node, source))
	case *ast.List:
		var items []string
		for item := node.FirstChild(); item != nil; item = item.NextSibling() {
			if t := nodeText(item, source); t != "" {
				items = append(items, "- "+t)
			}
		}
		return strings.Join(items, "\n")
	case *extast.Table:
		var rows []string
		for row := node.FirstChild(); row != nil; row = row.NextSibling() {
			var cells []string
			for cell := row.FirstChild(); cell != nil; cell = cell.NextSibling() {
				cells = append(cells, nodeText(cell, source))
			}
			rows = append(rows, strings.Join(cells, " | "))
		}
		return strings.Join(rows, "\n")
	case *ast.ThematicBreak:
		return ""
	default:
		return nodeText(n, source)
	}
}

func linesText(n ast.Node, source []byte) string {
	var b strings.Builder
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		line := lines.At(i)
		b.Write(line.Value(source))
	}
	return b.String()
}

// nodeText concatenates the inline text below n. Soft line breaks become spaces.
func nodeText(n ast.Node, source []byte) string {
	var b strings.Builder
	_ = ast.Walk(n, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch v := node.(type) {
		case *ast.Text:
			b.Write(v.Segment.Value(source))
			if v.SoftLineBreak() || v.HardLineBreak() {
				b.WriteByte(' ')
			}
		case *ast.String:
			b.Write(v.Value)
		case *ast.Paragraph, *ast.TextBlock:
			if b.Len() > 0 {
				b.WriteByte(' ')
			}
		}
		return ast.WalkContinue, nil
	})
	return strings.Join(strings.Fields(b.String()), " ")
}

// constrain merges undersized sections into their successor and splits oversized ones.
func (c *SectionChunker) constrain(sections []Section) []Section {
	var out []Section
	for i := 0; i < len(sections); i++ {
		current := sections[i]
		for utf8.RuneCountInString(current.Text) < c.MinRunes && i+1 < len(sections) {
			next := sections[i+1]
			merged := current.Text + "\n\n" + labelled(next)
			if utf8.RuneCountInString(merged) > c.MaxRunes {
				break
			}
			current.Text = merged
			i++
		}
		out = append(out, c.split(current)...)
	}
	return out
}

// labelled prefixes a merged section with its heading so the context survives.
func labelled(s Section) string {
	if s.Heading == "" {
		return s.Text
	}
	return s.Heading + "\n" + s.Text
}

// split cuts an oversized section at the last paragraph, line or sentence boundary
// that fits, falling back to a hard cut.
func (c *SectionChunker) split(s Section) []Section {
	runes := []rune(s.Text)
	if len(runes) <= c.MaxRunes {
		return []Section{s}
	}

	var parts []Section
	for start := 0; start < len(runes); {
		end := start + c.MaxRunes
		if end >= len(runes) {
			end = len(runes)
		} else {
			end = start + cutPoint(runes[start:end])
		}
		if part := strings.TrimSpace(string(runes[start:end])); part != "" {
			parts = append(parts, Section{Heading: s.Heading, Text: part})
		}
		start = end
	}
	return parts
}

// cutPoint returns the rune offset just after the best boundary in window.
func cutPoint(window []rune) int {
	s := string(window)
	for _, sep := range []string{"\n\n", "\n", ". "} {
		if i := strings.LastIndex(s, sep); i > 0 {
			return utf8.RuneCountInString(s[:i]) + utf8.RuneCountInString(sep)
		}
	}
	return len(window)
}
