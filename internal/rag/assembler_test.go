package rag

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"legal-assistant/internal/domain"
)

func scored(id string, score float64, text string) ScoredChunk {
	return ScoredChunk{
		Chunk: domain.Chunk{
			ID:           id,
			Text:         text,
			Title:        "Title " + id,
			Organization: "ZUS",
			URL:          "https://www.zus.pl/" + id,
			Category:     domain.CategoryEmployment,
			LastVerified: time.Date(2024, 9, 1, 0, 0, 0, 0, time.UTC),
		},
		Score: score,
		Tier:  TierStrict,
	}
}

func TestAssemble_FormatsSources(t *testing.T) {
	a := ContextAssembler{MaxChars: 6000}
	got := a.Assemble([]ScoredChunk{
		scored("b", 0.7, "second"),
		scored("a", 0.9, "first"),
	})

	want := "[Source 1: Title a - ZUS]\nfirst\n\n[Source 2: Title b - ZUS]\nsecond\n"
	assert.Equal(t, want, got.Text)
	require.Len(t, got.Citations, 2)
	assert.Equal(t, 1, got.Citations[0].Index)
	assert.Equal(t, "a", got.Citations[0].ID)
	assert.Equal(t, "2024-09-01", got.Citations[0].LastVerified)
	assert.Equal(t, 0.9, got.Citations[0].RelevanceScore)
	assert.Equal(t, domain.CategoryEmployment, got.Citations[0].Category)
	assert.Zero(t, got.Dropped)
}

func TestAssemble_BudgetDropsWholeChunksFromTail(t *testing.T) {
	body := strings.Repeat("x", 100)
	chunks := []ScoredChunk{
		scored("a", 0.9, body),
		scored("b", 0.8, body),
		scored("c", 0.7, body),
		scored("d", 0.6, "short"),
	}
	block := len(formatSource(1, chunks[0]))

	a := ContextAssembler{MaxChars: 2*block + 1}
	got := a.Assemble(chunks)

	require.Len(t, got.Included, 2)
	assert.Equal(t, 2, got.Dropped)
	assert.LessOrEqual(t, len([]rune(got.Text)), a.MaxChars)
	assert.Contains(t, got.Text, "[Source 2: Title b - ZUS]\n"+body+"\n")
	assert.NotContains(t, got.Text, "Title c")
	assert.NotContains(t, got.Text, "short", "assembly stops at the first chunk that does not fit")

	require.Len(t, got.Citations, 2)
	for i, c := range got.Citations {
		assert.Equal(t, i+1, c.Index)
		assert.Equal(t, got.Included[i].Chunk.ID, c.ID)
	}
}

func TestAssemble_TopChunkAlwaysIncluded(t *testing.T) {
	a := ContextAssembler{MaxChars: 10}
	got := a.Assemble([]ScoredChunk{
		scored("a", 0.9, strings.Repeat("ż", 50)),
		scored("b", 0.8, "b"),
	})

	require.Len(t, got.Citations, 1)
	assert.Equal(t, "a", got.Citations[0].ID)
	assert.Equal(t, 1, got.Dropped)
	assert.Contains(t, got.Text, strings.Repeat("ż", 50))
}

func TestAssemble_BudgetCountsCharactersNotBytes(t *testing.T) {
	polish := strings.Repeat("ą", 40)
	chunks := []ScoredChunk{scored("a", 0.9, polish), scored("b", 0.8, polish)}
	block := len([]rune(formatSource(1, chunks[0])))

	got := ContextAssembler{MaxChars: 2*block + 1}.Assemble(chunks)
	assert.Len(t, got.Included, 2)
}

func TestAssemble_UnknownTitleAndOrganization(t *testing.T) {
	c := scored("a", 0.9, "text")
	c.Chunk.Title = ""
	c.Chunk.Organization = " "
	c.Chunk.LastVerified = time.Time{}

	got := ContextAssembler{MaxChars: 100}.Assemble([]ScoredChunk{c})
	assert.True(t, strings.HasPrefix(got.Text, "[Source 1: Unknown - Unknown]"))
	assert.Empty(t, got.Citations[0].LastVerified)
}

func TestAssemble_Empty(t *testing.T) {
	got := ContextAssembler{MaxChars: 100}.Assemble(nil)
	assert.Empty(t, got.Text)
	assert.Empty(t, got.Citations)
}

func TestCheckCitationsPanicsOnGap(t *testing.T) {
	assert.Panics(t, func() {
		checkCitations([]Citation{{Index: 1}, {Index: 3}})
	})
	assert.NotPanics(t, func() {
		checkCitations([]Citation{{Index: 1}, {Index: 2}})
	})
}

func TestSanitizeCitations(t *testing.T) {
	tests := []struct {
		name        string
		text        string
		n           int
		want        string
		wantRemoved int
	}{
		{name: "all valid", text: "PESEL is issued by the gmina [1]. Apply in person [2].", n: 2, want: "PESEL is issued by the gmina [1]. Apply in person [2].", wantRemoved: 0},
		{name: "dangling removed", text: "Fact [1]. Another fact [4].", n: 2, want: "Fact [1]. Another fact.", wantRemoved: 1},
		{name: "list partially valid", text: "Both apply [1, 3].", n: 2, want: "Both apply [1].", wantRemoved: 1},
		{name: "list all invalid", text: "Nothing [5,6] here.", n: 2, want: "Nothing here.", wantRemoved: 2},
		{name: "zero index", text: "Zero [0].", n: 3, want: "Zero.", wantRemoved: 1},
		{name: "no sources", text: "Text [1].", n: 0, want: "Text.", wantRemoved: 1},
		{name: "non numeric brackets untouched", text: "See [Source] and [a].", n: 1, want: "See [Source] and [a].", wantRemoved: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, removed := SanitizeCitations(tt.text, tt.n)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantRemoved, removed)

			for _, idx := range CitedIndices(got) {
				assert.True(t, idx >= 1 && idx <= tt.n, "index %d out of range", idx)
			}
		})
	}
}

func TestCitedIndices(t *testing.T) {
	assert.Equal(t, []int{1, 2, 3, 2}, CitedIndices("a [1] b [2, 3] c [2]"))
	assert.Empty(t, CitedIndices("no citations"))
}
