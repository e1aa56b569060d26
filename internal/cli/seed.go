package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"legal-assistant/internal/app"
	"legal-assistant/internal/indexer"
)

type seedOptions struct {
	pattern   string
	prune     bool
	batchSize int
	minRunes  int
	maxRunes  int
	jsonOut   bool
}

func newSeedCommand(root *options) *cobra.Command {
	opts := &seedOptions{}
	cmd := &cobra.Command{
		Use:   "seed [dir]",
		Short: "Seed knowledge files into the vector index",
		Long: `Load knowledge JSON files, split documents into sections, embed them and
upsert the points into the configured vector collection.

Unchanged documents are skipped using the SQLite catalog (CATALOG_DB_PATH).

Examples:
  legalctl seed ./data/processed
  legalctl seed ./data --pattern "**/*_knowledge.json" --prune`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}
			return runSeed(cmd, root, opts, dir)
		},
	}
	cmd.Flags().StringVar(&opts.pattern, "pattern", indexer.DefaultPattern, "glob of knowledge files relative to dir")
	cmd.Flags().BoolVar(&opts.prune, "prune", false, "remove catalogued documents missing from dir")
	cmd.Flags().IntVar(&opts.batchSize, "batch-size", indexer.DefaultBatchSize, "texts per embedding request")
	cmd.Flags().IntVar(&opts.minRunes, "min-section", indexer.DefaultMinSectionRunes, "merge sections shorter than this many characters")
	cmd.Flags().IntVar(&opts.maxRunes, "max-section", indexer.DefaultMaxSectionRunes, "split sections longer than this many characters")
	cmd.Flags().BoolVar(&opts.jsonOut, "json", false, "print the seed report as JSON")
	return cmd
}

func runSeed(cmd *cobra.Command, root *options, opts *seedOptions, dir string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	abs, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("invalid path: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return fmt.Errorf("path does not exist: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("path is not a directory: %s", abs)
	}

	docs, skipped, err := indexer.LoadDocuments(os.DirFS(abs), opts.pattern)
	if err != nil {
		return err
	}
	for _, s := range skipped {
		_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "skipping %s\n", s)
	}
	if len(docs) == 0 {
		return fmt.Errorf("no documents found in %s matching %q", abs, opts.pattern)
	}
	_, _ = fmt.Fprintf(out, "Loaded %d documents from %s\n", len(docs), abs)

	a, err := root.build(cmd, root.cfg)
	if err != nil {
		return err
	}
	defer func() {
		_ = a.Close()
	}()

	if err := a.Bootstrap(ctx); err != nil {
		return err
	}

	pipeline, catalog, err := a.NewSeedPipeline(app.SeedOptions{
		MinSectionRunes: opts.minRunes,
		MaxSectionRunes: opts.maxRunes,
		BatchSize:       opts.batchSize,
		Prune:           opts.prune,
	})
	if err != nil {
		return err
	}
	defer func() {
		_ = catalog.Close()
	}()

	bar := progressbar.NewOptions(len(docs),
		progressbar.OptionSetWriter(cmd.ErrOrStderr()),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionSetDescription("[cyan]Seeding[reset]"),
		progressbar.OptionOnCompletion(func() {
			_, _ = fmt.Fprintln(cmd.ErrOrStderr())
		}),
	)

	report, seedErr := pipeline.Seed(ctx, docs, func(done, total int) {
		_ = bar.Set(done)
	})
	if report != nil {
		if opts.jsonOut {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			if err := enc.Encode(report); err != nil {
				return err
			}
		} else {
			printReport(out, report, len(skipped))
		}
	}
	return seedErr
}
