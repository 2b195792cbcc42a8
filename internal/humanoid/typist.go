package humanoid

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// cleanupTimeout bounds the backspaces sent after the caller gave up.
const cleanupTimeout = 2 * time.Second

// Executor is the input the Typist drives. Implementations wrap a browser
// session or a test double.
type Executor interface {
	// Sleep pauses execution, respecting context cancellation.
	Sleep(ctx context.Context, d time.Duration) error
	// SendKeys types keys into the answer input.
	SendKeys(ctx context.Context, keys string) error
	// InputVisible reports whether the answer input is currently shown.
	InputVisible(ctx context.Context) (bool, error)
}

// TypeResult summarises one Type call.
type TypeResult struct {
	Sent    int
	Dropped int
	Typos   int
}

// Typist plays simulated keystrokes through an Executor.
type Typist struct {
	sim    *Simulator
	exec   Executor
	logger *zap.Logger
}

// NewTypist creates a Typist. A nil logger is replaced by a no-op logger.
func NewTypist(sim *Simulator, exec Executor, logger *zap.Logger) *Typist {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Typist{sim: sim, exec: exec, logger: logger.Named("typist")}
}

// Type enters word and submits it. Keystrokes are dropped while the input is
// hidden. If ctx ends while typos are still on screen, the pending
// backspaces are sent once on a detached context before ctx.Err() is
// returned.
func (t *Typist) Type(ctx context.Context, word string, guessCount int) (TypeResult, error) {
	var res TypeResult
	pending := 0

	for ev := range t.sim.Simulate(word, guessCount) {
		if err := t.play(ctx, ev, &res, &pending); err != nil {
			if ctx.Err() != nil {
				t.erase(ctx, pending)
				return res, ctx.Err()
			}
			return res, err
		}
	}
	return res, nil
}

func (t *Typist) play(ctx context.Context, ev Event, res *TypeResult, pending *int) error {
	if ev.Delay > 0 {
		if err := t.exec.Sleep(ctx, ev.Delay); err != nil {
			return err
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	visible, err := t.exec.InputVisible(ctx)
	if err != nil {
		return fmt.Errorf("humanoid: failed to check input visibility: %w", err)
	}
	if !visible {
		res.Dropped++
		return nil
	}

	if err := t.exec.SendKeys(ctx, ev.Keys()); err != nil {
		return fmt.Errorf("humanoid: failed to send %s: %w", ev.Kind, err)
	}
	res.Sent++
	switch {
	case ev.Typo:
		res.Typos++
		*pending++
	case ev.Kind == KindBackspace && *pending > 0:
		*pending--
	}
	return nil
}

func (t *Typist) erase(ctx context.Context, pending int) {
	if pending == 0 {
		return
	}
	cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
	defer cancel()

	for i := 0; i < pending; i++ {
		if err := t.exec.SendKeys(cleanupCtx, string(KeyBackspace)); err != nil {
			if !errors.Is(err, context.DeadlineExceeded) {
				t.logger.Debug("Failed to erase typo after cancellation.", zap.Error(err))
			}
			return
		}
	}
}
