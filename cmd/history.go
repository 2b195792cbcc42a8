package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"

	"github.com/xkilldash9x/bombparty-cli/api/schemas"
	"github.com/xkilldash9x/bombparty-cli/internal/config"
	"github.com/xkilldash9x/bombparty-cli/internal/observability"
	"github.com/xkilldash9x/bombparty-cli/internal/service"
	"github.com/xkilldash9x/bombparty-cli/internal/store"
)

// historyStore is the read side of the guess history.
type historyStore interface {
	RecentGuesses(ctx context.Context, limit int) ([]schemas.Guess, error)
	HardestCombos(ctx context.Context, limit int) ([]store.ComboStat, error)
}

// storeProvider opens the guess history. Tests inject a fake.
type storeProvider interface {
	Create(ctx context.Context, cfg config.Interface) (historyStore, func(), error)
}

type defaultStoreProvider struct{}

// NewStoreProvider returns the PostgreSQL backed provider.
func NewStoreProvider() storeProvider {
	return &defaultStoreProvider{}
}

func (p *defaultStoreProvider) Create(ctx context.Context, cfg config.Interface) (historyStore, func(), error) {
	if cfg.Database().URL == "" {
		return nil, nil, errors.New("database URL is not configured (hint: set BOMBPARTY_DATABASE_URL)")
	}
	s, cleanup, err := service.InitializeStore(ctx, cfg.Database(), service.OpenPostgresPool, observability.GetLogger())
	if err != nil {
		return nil, nil, err
	}
	return s, cleanup, nil
}

type historyOptions struct {
	limit   int
	hardest bool
	json    bool
}

func newHistoryCmd(provider storeProvider) *cobra.Command {
	var opts historyOptions

	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Show recorded guesses or the combos the bots struggle with",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := getConfigFromContext(ctx)
			if err != nil {
				return err
			}
			if opts.limit < 1 {
				return errors.New("--limit must be at least 1")
			}
			return runHistory(ctx, cmd.OutOrStdout(), cfg, opts, provider)
		},
	}

	historyCmd.Flags().IntVarP(&opts.limit, "limit", "n", 20, "Number of rows to show.")
	historyCmd.Flags().BoolVar(&opts.hardest, "hardest", false, "Show the combos that most often ended without a word.")
	historyCmd.Flags().BoolVar(&opts.json, "json", false, "Print JSON instead of a table.")
	return historyCmd
}

func runHistory(ctx context.Context, w io.Writer, cfg config.Interface, opts historyOptions, provider storeProvider) error {
	s, cleanup, err := provider.Create(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to open guess history: %w", err)
	}
	if cleanup != nil {
		defer cleanup()
	}

	if opts.hardest {
		stats, err := s.HardestCombos(ctx, opts.limit)
		if err != nil {
			return err
		}
		if opts.json {
			return writeJSON(w, stats)
		}
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "COMBO\tTOTAL\tMISSES")
		for _, st := range stats {
			fmt.Fprintf(tw, "%s\t%d\t%d\n", st.Combo, st.Total, st.Misses)
		}
		return tw.Flush()
	}

	guesses, err := s.RecentGuesses(ctx, opts.limit)
	if err != nil {
		return err
	}
	if opts.json {
		return writeJSON(w, guesses)
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TIME\tBOT\tCOMBO\tWORD\tTYPING")
	for _, g := range guesses {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			g.SubmittedAt.Local().Format("2006-01-02 15:04:05"), g.BotName, g.Combo, g.Word, g.TypingTime)
	}
	return tw.Flush()
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := jsoniter.ConfigCompatibleWithStandardLibrary.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
