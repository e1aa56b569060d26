package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/fatih/color"

	"legal-assistant/internal/indexer"
	"legal-assistant/internal/rag"
)

var (
	heading = color.New(color.FgCyan, color.Bold)
	faint   = color.New(color.Faint)
	good    = color.New(color.FgGreen)
	warn    = color.New(color.FgYellow)
	bad     = color.New(color.FgRed)
)

// printAnswer writes the answer, its sources and, when present, the debug payload.
func printAnswer(w io.Writer, resp rag.ChatResponse) error {
	_, _ = heading.Fprintln(w, "Answer")
	_, _ = fmt.Fprintln(w, resp.Answer)
	_, _ = fmt.Fprintln(w)

	category := "none"
	if resp.Category != nil {
		category = resp.Category.String()
	}
	_, _ = fmt.Fprintf(w, "Confidence: %s   Category: %s\n", confidenceColor(resp.Confidence).Sprintf("%.3f", resp.Confidence), category)

	if len(resp.Sources) > 0 {
		_, _ = fmt.Fprintln(w)
		_, _ = heading.Fprintln(w, "Sources")
		for _, s := range resp.Sources {
			_, _ = fmt.Fprintf(w, "[%d] %s - %s", s.Index, s.Title, s.Organization)
			if s.LastVerified != "" {
				_, _ = faint.Fprintf(w, " (verified %s)", s.LastVerified)
			}
			_, _ = fmt.Fprintln(w)
			if s.URL != "" {
				_, _ = faint.Fprintf(w, "    %s\n", s.URL)
			}
			_, _ = faint.Fprintf(w, "    relevance %.3f, %s\n", s.RelevanceScore, s.Category)
		}
	}

	if resp.Debug != nil {
		_, _ = fmt.Fprintln(w)
		_, _ = heading.Fprintln(w, "Debug")
		raw, err := json.MarshalIndent(resp.Debug, "", "  ")
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintln(w, string(raw))
	}
	return nil
}

func confidenceColor(c float64) *color.Color {
	switch {
	case c >= 0.7:
		return good
	case c >= 0.4:
		return warn
	default:
		return bad
	}
}

// printReport writes a human-readable seed report.
func printReport(w io.Writer, r *indexer.SeedReport, skipped int) {
	_, _ = heading.Fprintln(w, "\nSeeding complete:")
	_, _ = fmt.Fprintf(w, "  Documents indexed:   %d\n", r.DocumentsIndexed)
	_, _ = fmt.Fprintf(w, "  Documents unchanged: %d\n", r.DocumentsUnchanged)
	_, _ = fmt.Fprintf(w, "  Documents removed:   %d\n", r.DocumentsRemoved)
	if r.DocumentsFailed > 0 {
		_, _ = bad.Fprintf(w, "  Documents failed:    %d\n", r.DocumentsFailed)
	}
	if skipped > 0 {
		_, _ = warn.Fprintf(w, "  Documents skipped:   %d (invalid)\n", skipped)
	}
	_, _ = fmt.Fprintf(w, "  Chunks embedded:     %d\n", r.ChunksEmbedded)
	_, _ = fmt.Fprintf(w, "  Chunks deleted:      %d\n", r.ChunksDeleted)

	if r.ChunksEmbedded > 0 {
		s := r.ChunkTokenStats
		_, _ = fmt.Fprintf(w, "  Chunk tokens:        min %d, mean %.2f, p95 %d, max %d\n", s.Min, s.Mean, s.P95, s.Max)
	}

	categories := make([]string, 0, len(r.CategoryCounts))
	for c := range r.CategoryCounts {
		categories = append(categories, c)
	}
	sort.Strings(categories)
	for _, c := range categories {
		_, _ = fmt.Fprintf(w, "  %-20s %d\n", c+":", r.CategoryCounts[c])
	}

	_, _ = faint.Fprintf(w, "  Index version:       %s (%s)\n", r.IndexVersion, r.ChunkerVersion)
}
