package lexicon

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ComboIndex maps a combo to the words containing it, shortest first.
// Combos without any match are absent.
type ComboIndex map[string][]string

// Lookup returns the words for a combo, or nil when nothing matches.
func (ci ComboIndex) Lookup(combo string) []string {
	return ci[combo]
}

// Combos enumerates every lowercase combo of the given length in lexical order.
func Combos(length int) ([]string, error) {
	if length != 2 && length != 3 {
		return nil, ErrInvalidComboLength
	}
	combos := []string{""}
	for i := 0; i < length; i++ {
		next := make([]string, 0, len(combos)*len(alphabet))
		for _, prefix := range combos {
			for _, r := range alphabet {
				next = append(next, prefix+string(r))
			}
		}
		combos = next
	}
	return combos, nil
}

// BuildComboIndex indexes every combo of the given length against the corpus.
// Three letter combos only search the words already indexed under their two
// overlapping pairs, since any word containing "abc" contains "ab" and "bc".
func (b *Builder) BuildComboIndex(ctx context.Context, corpus *Corpus, comboLength int) (ComboIndex, error) {
	switch comboLength {
	case 2:
		return b.indexPairs(ctx, corpus.Words())
	case 3:
		pairs, err := b.indexPairs(ctx, corpus.Words())
		if err != nil {
			return nil, err
		}
		return b.indexTriples(ctx, pairs)
	default:
		return nil, fmt.Errorf("%w: got %d", ErrInvalidComboLength, comboLength)
	}
}

// Build produces the complete persisted index: pairs and triples in one flat
// mapping, annotated with length cut-points.
func (b *Builder) Build(ctx context.Context, corpus *Corpus) (*Index, error) {
	pairs, err := b.indexPairs(ctx, corpus.Words())
	if err != nil {
		return nil, err
	}
	triples, err := b.indexTriples(ctx, pairs)
	if err != nil {
		return nil, err
	}

	merged := make(ComboIndex, len(pairs)+len(triples))
	for combo, words := range pairs {
		merged[combo] = words
	}
	for combo, words := range triples {
		merged[combo] = words
	}

	idx := AnnotateWithLengthCutpoints(merged)
	b.logger.Info("Combo index built.",
		zap.Int("pairs", len(pairs)),
		zap.Int("triples", len(triples)),
		zap.Int("words", corpus.Len()))
	return idx, nil
}

func (b *Builder) indexPairs(ctx context.Context, words []string) (ComboIndex, error) {
	combos, _ := Combos(2)
	return b.indexParallel(ctx, combos, func(string) [][]string {
		return [][]string{words}
	})
}

func (b *Builder) indexTriples(ctx context.Context, pairs ComboIndex) (ComboIndex, error) {
	combos, _ := Combos(3)
	return b.indexParallel(ctx, combos, func(combo string) [][]string {
		return [][]string{pairs[combo[:2]], pairs[combo[1:]]}
	})
}

// indexParallel splits the key space into one chunk per worker. Each worker
// owns its slots in results, so no locking is needed until the merge.
func (b *Builder) indexParallel(ctx context.Context, combos []string, candidates func(combo string) [][]string) (ComboIndex, error) {
	results := make([][]string, len(combos))

	workers := b.opts.Workers
	chunk := (len(combos) + workers - 1) / workers

	g, groupCtx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for start := 0; start < len(combos); start += chunk {
		end := min(start+chunk, len(combos))
		g.Go(func() error {
			for i := start; i < end; i++ {
				if err := groupCtx.Err(); err != nil {
					return err
				}
				results[i] = matchCombo(combos[i], candidates(combos[i])...)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("lexicon: indexing aborted: %w", err)
	}

	index := make(ComboIndex)
	for i, words := range results {
		if len(words) > 0 {
			index[combos[i]] = words
		}
	}
	return index, nil
}

// matchCombo returns the distinct candidates containing combo, shortest first.
func matchCombo(combo string, pools ...[]string) []string {
	seen := make(map[string]struct{})
	var matches []string
	for _, pool := range pools {
		for _, w := range pool {
			if !strings.Contains(w, combo) {
				continue
			}
			if _, dup := seen[w]; dup {
				continue
			}
			seen[w] = struct{}{}
			matches = append(matches, w)
		}
	}
	sortByLength(matches)
	return matches
}

// sortByLength orders words by length. Equal lengths are ordered lexically so
// that builds are reproducible.
func sortByLength(words []string) {
	sort.Slice(words, func(i, j int) bool {
		if li, lj := wordLength(words[i]), wordLength(words[j]); li != lj {
			return li < lj
		}
		return words[i] < words[j]
	})
}
