package cli

import (
	"encoding/json"
	"strings"

	"github.com/spf13/cobra"

	"legal-assistant/internal/service"
)

type askOptions struct {
	category string
	topK     int
	debug    bool
	jsonOut  bool
}

func newAskCommand(root *options) *cobra.Command {
	opts := &askOptions{}
	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Ask a legal question",
		Long: `Run one question through normalization, tiered retrieval and generation,
then print the answer with its numbered sources.

Examples:
  legalctl ask "Jak zarejestrować się w NFZ?"
  legalctl ask "What is a karta pobytu?" --category immigration --debug`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAsk(cmd, root, opts, strings.Join(args, " "))
		},
	}
	cmd.Flags().StringVarP(&opts.category, "category", "c", "", "restrict retrieval to one category")
	cmd.Flags().IntVarP(&opts.topK, "top-k", "k", 0, "number of chunks for the strict tier (1-20)")
	cmd.Flags().BoolVar(&opts.debug, "debug", false, "print retrieval and generation details")
	cmd.Flags().BoolVar(&opts.jsonOut, "json", false, "print the response as JSON")
	return cmd
}

func runAsk(cmd *cobra.Command, root *options, opts *askOptions, question string) error {
	a, err := root.build(cmd, root.cfg)
	if err != nil {
		return err
	}
	defer func() {
		_ = a.Close()
	}()

	req := service.ChatRequest{
		Query:          question,
		CategoryFilter: opts.category,
		IncludeDebug:   opts.debug,
	}
	if cmd.Flags().Changed("top-k") {
		topK := opts.topK
		req.TopK = &topK
	}

	resp, err := a.ChatService.ProcessChat(cmd.Context(), req)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if opts.jsonOut {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	}
	return printAnswer(out, resp)
}
