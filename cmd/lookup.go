package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/xkilldash9x/bombparty-cli/internal/lexicon"
	"github.com/xkilldash9x/bombparty-cli/internal/observability"
	"github.com/xkilldash9x/bombparty-cli/internal/selector"
	"github.com/xkilldash9x/bombparty-cli/internal/service"
)

type lookupOptions struct {
	length       int
	preferLonger bool
	count        int
	used         []string
}

func newLookupCmd() *cobra.Command {
	var opts lookupOptions

	lookupCmd := &cobra.Command{
		Use:   "lookup COMBO",
		Short: "Print the words a bot would play for a combo",
		Long: `Draws words for COMBO the way a bot does within one game: no word is
repeated, and once the pool is exhausted the give-up answer is printed.
Words passed with --used were already played and are never drawn.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := getConfigFromContext(cmd.Context())
			if err != nil {
				return err
			}
			if opts.count < 1 {
				return fmt.Errorf("--count must be at least 1")
			}

			idx, err := service.LoadIndex(cfg.Lexicon(), observability.GetLogger())
			if err != nil {
				return err
			}
			runLookup(cmd.OutOrStdout(), idx, args[0], opts)
			return nil
		},
	}

	lookupCmd.Flags().IntVarP(&opts.length, "length", "l", 0, "Preferred word length, 0 for none.")
	lookupCmd.Flags().BoolVar(&opts.preferLonger, "prefer-longer", false, "Prefer words longer than --length.")
	lookupCmd.Flags().IntVarP(&opts.count, "count", "n", 1, "Number of words to draw.")
	lookupCmd.Flags().StringArrayVarP(&opts.used, "used", "u", nil, "Word already played this game. Can be repeated.")
	return lookupCmd
}

// runLookup writes up to opts.count selections, one per line, stopping at
// the first give-up answer.
func runLookup(w io.Writer, idx *lexicon.Index, combo string, opts lookupOptions) {
	sel := selector.New(idx)
	combo = strings.ToLower(strings.TrimSpace(combo))
	for _, word := range opts.used {
		sel.Remove(combo, strings.ToLower(strings.TrimSpace(word)))
	}
	for i := 0; i < opts.count; i++ {
		word := sel.SelectWord(combo, opts.length, opts.preferLonger)
		fmt.Fprintln(w, word)
		if word == selector.NoMatchWord {
			return
		}
	}
}
