// Package lexicon builds, persists and loads the combo index: a mapping from
// every two and three letter sequence to the words that contain it, sorted by
// length and annotated with length cut-points.
package lexicon

import (
	"errors"
	"runtime"

	"go.uber.org/zap"
)

const (
	// MinTrackedLength is the shortest word length with its own cut-point.
	MinTrackedLength = 3
	// MaxTrackedLength is the longest tracked length. Longer words share its bucket.
	MaxTrackedLength = 20
	// CutpointSlots is the number of cut-points stored per combo.
	CutpointSlots = MaxTrackedLength - MinTrackedLength + 1

	alphabet = "abcdefghijklmnopqrstuvwxyz"
)

var (
	// ErrInvalidComboLength is returned for combo lengths other than 2 or 3.
	ErrInvalidComboLength = errors.New("lexicon: combo length must be 2 or 3")
	// ErrEmptyCorpus is returned when no usable word was read from the sources.
	ErrEmptyCorpus = errors.New("lexicon: corpus is empty")
	// ErrInvalidEntry is returned when an index entry breaks its invariants.
	ErrInvalidEntry = errors.New("lexicon: invalid index entry")
)

// Options tunes the Builder.
type Options struct {
	// Workers bounds the number of goroutines used while indexing.
	// Zero means runtime.NumCPU().
	Workers int
	// SkipMissing makes BuildCorpus log and skip missing source files
	// instead of failing.
	SkipMissing bool
}

// Builder turns word lists into a combo index.
type Builder struct {
	logger *zap.Logger
	opts   Options
}

// NewBuilder creates a Builder. A nil logger is replaced by a no-op logger.
func NewBuilder(logger *zap.Logger, opts Options) *Builder {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Workers <= 0 {
		opts.Workers = runtime.NumCPU()
	}
	return &Builder{
		logger: logger.Named("lexicon"),
		opts:   opts,
	}
}
