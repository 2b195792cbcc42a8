package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/bombparty-cli/internal/config"
	"github.com/xkilldash9x/bombparty-cli/internal/lexicon"
	"github.com/xkilldash9x/bombparty-cli/internal/observability"
)

// indexOptions are the flag overrides of the index command.
type indexOptions struct {
	sources     []string
	out         string
	workers     int
	skipMissing bool
}

func newIndexCmd() *cobra.Command {
	var opts indexOptions

	indexCmd := &cobra.Command{
		Use:   "index",
		Short: "Build the combo index from one or more word lists",
		Long: `Reads every word list (one word per line), merges them without duplicates and
writes the combo index used by play and lookup. Output paths ending in .br are
brotli compressed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := getConfigFromContext(ctx)
			if err != nil {
				return err
			}

			lc := cfg.Lexicon()
			if cmd.Flags().Changed("source") {
				lc.Sources = opts.sources
			}
			if cmd.Flags().Changed("out") {
				lc.IndexPath = opts.out
			}
			if cmd.Flags().Changed("workers") {
				lc.Workers = opts.workers
			}
			if cmd.Flags().Changed("skip-missing") {
				lc.SkipMissing = opts.skipMissing
			}

			n, err := runIndex(ctx, observability.GetLogger(), lc)
			if err != nil {
				return err
			}
			cmd.Printf("Indexed %d combos into %s\n", n, lc.IndexPath)
			return nil
		},
	}

	indexCmd.Flags().StringArrayVarP(&opts.sources, "source", "s", nil, "Word list to include (repeatable). Overrides lexicon.sources.")
	indexCmd.Flags().StringVarP(&opts.out, "out", "o", "", "Output path for the index. Overrides lexicon.index_path.")
	indexCmd.Flags().IntVarP(&opts.workers, "workers", "j", 0, "Indexing goroutines. Overrides lexicon.workers.")
	indexCmd.Flags().BoolVar(&opts.skipMissing, "skip-missing", false, "Skip word lists that do not exist instead of failing.")
	return indexCmd
}

// runIndex builds and saves the index and returns the number of combos.
func runIndex(ctx context.Context, logger *zap.Logger, lc config.LexiconConfig) (int, error) {
	if len(lc.Sources) == 0 {
		return 0, fmt.Errorf("no word lists given (use --source or lexicon.sources)")
	}
	if lc.IndexPath == "" {
		return 0, fmt.Errorf("no output path given (use --out or lexicon.index_path)")
	}

	start := time.Now()
	builder := lexicon.NewBuilder(logger, lexicon.Options{
		Workers:     lc.Workers,
		SkipMissing: lc.SkipMissing,
	})

	corpus, err := builder.BuildCorpus(lc.Sources)
	if err != nil {
		return 0, fmt.Errorf("failed to build corpus: %w", err)
	}
	idx, err := builder.Build(ctx, corpus)
	if err != nil {
		return 0, fmt.Errorf("failed to build combo index: %w", err)
	}
	if err := lexicon.SaveFile(lc.IndexPath, idx); err != nil {
		return 0, fmt.Errorf("failed to save combo index: %w", err)
	}

	logger.Info("Combo index written.",
		zap.String("path", lc.IndexPath),
		zap.Int("combos", idx.Len()),
		zap.Int("words", corpus.Len()),
		zap.Duration("took", time.Since(start)))
	return idx.Len(), nil
}
