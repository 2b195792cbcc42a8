package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/bombparty-cli/api/schemas"
)

// ErrRecorderClosed is returned by RecordGuess once the recorder is closed.
var ErrRecorderClosed = errors.New("service: guess recorder is closed")

const (
	guessBatchSize    = 50
	guessBatchTimeout = 2 * time.Second
	persistTimeout    = 30 * time.Second
)

// GuessSink persists batches of guesses.
type GuessSink interface {
	PersistGuesses(ctx context.Context, guesses []schemas.Guess) error
}

// ChannelRecorder implements schemas.GuessRecorder by queuing guesses for a
// consumer goroutine, so a slow database never stalls a bot mid turn.
type ChannelRecorder struct {
	mu     sync.RWMutex
	ch     chan schemas.Guess
	closed bool
	logger *zap.Logger
}

// NewChannelRecorder creates a recorder with a buffer of size guesses.
func NewChannelRecorder(size int, logger *zap.Logger) *ChannelRecorder {
	return &ChannelRecorder{ch: make(chan schemas.Guess, size), logger: logger}
}

// RecordGuess queues g. When the buffer is full the guess is dropped rather
// than blocking the turn loop.
func (r *ChannelRecorder) RecordGuess(ctx context.Context, g schemas.Guess) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return ErrRecorderClosed
	}
	select {
	case r.ch <- g:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		r.logger.Warn("Guess buffer full, dropping guess.", zap.String("combo", g.Combo), zap.String("bot", g.BotName))
		return nil
	}
}

// C exposes the queue to the consumer.
func (r *ChannelRecorder) C() <-chan schemas.Guess { return r.ch }

// Close stops accepting guesses and signals the consumer to drain.
func (r *ChannelRecorder) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	r.closed = true
	close(r.ch)
}

// StartGuessConsumer launches a goroutine that persists guesses in batches.
// It flushes every guessBatchSize guesses, every guessBatchTimeout, and one
// last time when the channel closes or ctx ends.
func StartGuessConsumer(ctx context.Context, wg *sync.WaitGroup, guesses <-chan schemas.Guess, sink GuessSink, logger *zap.Logger) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		logger.Debug("Guess consumer started.")
		defer logger.Debug("Guess consumer shut down.")

		batch := make([]schemas.Guess, 0, guessBatchSize)
		ticker := time.NewTicker(guessBatchTimeout)
		defer ticker.Stop()

		flush := func() {
			if len(batch) == 0 {
				return
			}
			// Not derived from ctx: the final flush runs after cancellation.
			persistCtx, cancel := context.WithTimeout(context.Background(), persistTimeout)
			defer cancel()

			if err := sink.PersistGuesses(persistCtx, batch); err != nil {
				logger.Error("Failed to persist guess batch.", zap.Error(err), zap.Int("batch_size", len(batch)))
			} else {
				logger.Debug("Persisted guess batch.", zap.Int("count", len(batch)))
			}
			batch = batch[:0]
		}

		for {
			select {
			case g, ok := <-guesses:
				if !ok {
					flush()
					return
				}
				batch = append(batch, g)
				if len(batch) >= guessBatchSize {
					flush()
					ticker.Reset(guessBatchTimeout)
				}

			case <-ticker.C:
				flush()

			case <-ctx.Done():
				logger.Warn("Guess consumer context canceled, draining remaining guesses.")
				drainChannel(guesses, &batch)
				flush()
				return
			}
		}
	}()
}

// drainChannel moves whatever is buffered in ch into batch without blocking.
func drainChannel(ch <-chan schemas.Guess, batch *[]schemas.Guess) {
	for {
		select {
		case g, ok := <-ch:
			if !ok {
				return
			}
			*batch = append(*batch, g)
		default:
			return
		}
	}
}

// timedWait waits for wg, giving up after timeout. It reports whether the
// wait completed.
func timedWait(wg *sync.WaitGroup, timeout time.Duration) bool {
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return true
	case <-time.After(timeout):
		return false
	}
}
