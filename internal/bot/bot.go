// Package bot runs the turn loop of a single player: it waits for a round,
// waits for its turn, reads the combo, picks a word and types it.
package bot

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/xkilldash9x/bombparty-cli/api/schemas"
	"github.com/xkilldash9x/bombparty-cli/internal/humanoid"
	"github.com/xkilldash9x/bombparty-cli/internal/selector"
)

const (
	defaultPollInterval = 50 * time.Millisecond
	defaultRepeatGuard  = 200 * time.Millisecond
)

// State is the position of a bot in its turn loop.
type State int32

const (
	StateWaitingForRoundStart State = iota
	StateWaitingForTurn
	StateMyTurn
	StateRoundEnded
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateWaitingForRoundStart:
		return "waiting_for_round_start"
	case StateWaitingForTurn:
		return "waiting_for_turn"
	case StateMyTurn:
		return "my_turn"
	case StateRoundEnded:
		return "round_ended"
	case StateStopped:
		return "stopped"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Settings configures the turn loop. Typing behaviour lives in the
// humanoid.Simulator handed to New.
type Settings struct {
	ID   string
	Name string
	// ThinkTime is waited before reading the combo in humanlike mode.
	ThinkTime    humanoid.Range
	WordLength   int
	PreferLonger bool
	Speedup      float64
	Humanlike    bool
	// PollInterval paces environment polling. Zero means 50ms.
	PollInterval time.Duration
	// RepeatGuard is how long the same combo is ignored after a submission.
	// Zero means 200ms.
	RepeatGuard time.Duration
}

// Option configures a Bot.
type Option func(*Bot)

// WithRecorder reports every submission to r.
func WithRecorder(r schemas.GuessRecorder) Option {
	return func(b *Bot) { b.recorder = r }
}

// WithLogger sets the parent logger.
func WithLogger(l *zap.Logger) Option {
	return func(b *Bot) { b.logger = l }
}

// WithClock replaces time.Now for the repeat guard.
func WithClock(now func() time.Time) Option {
	return func(b *Bot) { b.now = now }
}

// WithRand makes think times deterministic.
func WithRand(rng *rand.Rand) Option {
	return func(b *Bot) { b.rng = rng }
}

// Bot plays on one Environment. It is driven by a single goroutine calling
// Run; State and Guesses may be read from anywhere.
type Bot struct {
	settings Settings
	env      schemas.Environment
	selector *selector.Selector
	typist   *humanoid.Typist
	recorder schemas.GuessRecorder
	logger   *zap.Logger
	now      func() time.Time
	rng      *rand.Rand
	limiter  *rate.Limiter

	state   atomic.Int32
	guesses atomic.Int64
	running atomic.Bool

	// Owned by the Run goroutine.
	lastCombo string
	lastGuess time.Time
}

// New wires a bot. The selector must be private to this bot.
func New(settings Settings, env schemas.Environment, sel *selector.Selector, sim *humanoid.Simulator, opts ...Option) *Bot {
	if settings.ID == "" {
		settings.ID = uuid.NewString()
	}
	if settings.PollInterval <= 0 {
		settings.PollInterval = defaultPollInterval
	}
	if settings.RepeatGuard <= 0 {
		settings.RepeatGuard = defaultRepeatGuard
	}
	b := &Bot{
		settings: settings,
		env:      env,
		selector: sel,
		recorder: schemas.NopRecorder{},
		logger:   zap.NewNop(),
		now:      time.Now,
		limiter:  rate.NewLimiter(rate.Every(settings.PollInterval), 1),
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.rng == nil {
		b.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	b.logger = b.logger.Named("bot").With(zap.String("bot_id", settings.ID), zap.String("bot", settings.Name))
	b.typist = humanoid.NewTypist(sim, envExecutor{env: env}, b.logger)
	return b
}

// ID returns the bot's identifier.
func (b *Bot) ID() string { return b.settings.ID }

// Name returns the bot's display name.
func (b *Bot) Name() string { return b.settings.Name }

// State returns the current loop state.
func (b *Bot) State() State { return State(b.state.Load()) }

// Guesses returns the number of answers submitted so far.
func (b *Bot) Guesses() int { return int(b.guesses.Load()) }

func (b *Bot) setState(s State) {
	if old := State(b.state.Swap(int32(s))); old != s {
		b.logger.Debug("State changed.", zap.Stringer("from", old), zap.Stringer("to", s))
	}
}

// Run plays until ctx is cancelled or the session closes, both of which
// return nil. Any other environment failure is returned.
func (b *Bot) Run(ctx context.Context) error {
	if !b.running.CompareAndSwap(false, true) {
		return errors.New("bot: already running")
	}
	defer b.setState(StateStopped)
	b.setState(StateWaitingForRoundStart)
	b.logger.Info("Bot started.")

	for {
		if err := b.limiter.Wait(ctx); err != nil {
			return b.stop(ctx, err)
		}
		if err := b.step(ctx); err != nil {
			return b.stop(ctx, err)
		}
	}
}

func (b *Bot) stop(ctx context.Context, err error) error {
	switch {
	case ctx.Err() != nil:
		b.logger.Info("Bot stopped.", zap.Int("guesses", b.Guesses()))
		return nil
	case errors.Is(err, schemas.ErrSessionClosed):
		b.logger.Info("Game session closed, bot leaving.", zap.Int("guesses", b.Guesses()), zap.Error(err))
		return nil
	default:
		b.logger.Error("Bot failed.", zap.Error(err))
		return fmt.Errorf("bot %s: %w", b.settings.Name, err)
	}
}

// step advances the state machine by one poll.
func (b *Bot) step(ctx context.Context) error {
	active, err := b.env.IsRoundActive(ctx)
	if err != nil {
		return fmt.Errorf("failed to check round: %w", err)
	}

	if b.State() == StateWaitingForRoundStart {
		if active {
			b.setState(StateWaitingForTurn)
		}
		return nil
	}

	if !active {
		return b.endRound(ctx)
	}

	visible, err := b.env.IsMyTurnVisible(ctx)
	if err != nil {
		return fmt.Errorf("failed to check turn: %w", err)
	}
	if !visible {
		b.lastCombo = ""
		b.setState(StateWaitingForTurn)
		return nil
	}
	b.setState(StateMyTurn)
	return b.takeTurn(ctx)
}

func (b *Bot) endRound(ctx context.Context) error {
	b.setState(StateRoundEnded)
	b.lastCombo = ""
	b.logger.Info("Round ended, joining the next game.", zap.Int("guesses", b.Guesses()))
	if err := b.env.JoinNextGame(ctx); err != nil {
		return fmt.Errorf("failed to join next game: %w", err)
	}
	b.setState(StateWaitingForRoundStart)
	return nil
}

func (b *Bot) takeTurn(ctx context.Context) error {
	guesses := b.Guesses()
	if b.settings.Humanlike {
		think := b.settings.ThinkTime.Decayed(b.rng, guesses, b.settings.Speedup, 0)
		if err := sleep(ctx, think); err != nil {
			return err
		}
	}

	combo, err := b.env.ReadCurrentCombo(ctx)
	if err != nil {
		return fmt.Errorf("failed to read combo: %w", err)
	}
	visible, err := b.env.IsMyTurnVisible(ctx)
	if err != nil {
		return fmt.Errorf("failed to check turn: %w", err)
	}
	if !visible {
		return nil
	}
	// The game keeps the turn on a rejected word; retry once the guard expires.
	if combo == b.lastCombo && b.now().Sub(b.lastGuess) <= b.settings.RepeatGuard {
		return nil
	}

	word := b.selector.SelectWord(combo, b.settings.WordLength, b.settings.PreferLonger)
	b.lastCombo = combo

	start := b.now()
	res, err := b.typist.Type(ctx, word, guesses)
	if err != nil {
		return fmt.Errorf("failed to type answer: %w", err)
	}
	b.lastGuess = b.now()
	seq := int(b.guesses.Add(1))

	b.logger.Debug("Answer submitted.",
		zap.String("combo", combo),
		zap.String("word", word),
		zap.Int("sent", res.Sent),
		zap.Int("dropped", res.Dropped),
		zap.Int("typos", res.Typos))

	b.record(ctx, schemas.Guess{
		ID:          uuid.NewString(),
		BotID:       b.settings.ID,
		BotName:     b.settings.Name,
		Combo:       combo,
		Word:        word,
		Sequence:    seq,
		NoMatch:     word == selector.NoMatchWord,
		TypingTime:  b.lastGuess.Sub(start),
		SubmittedAt: b.lastGuess,
	})
	return nil
}

func (b *Bot) record(ctx context.Context, g schemas.Guess) {
	if err := b.recorder.RecordGuess(ctx, g); err != nil {
		b.logger.Warn("Failed to record guess.", zap.String("combo", g.Combo), zap.Error(err))
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// envExecutor lets the typist drive an Environment.
type envExecutor struct {
	env schemas.Environment
}

func (e envExecutor) Sleep(ctx context.Context, d time.Duration) error {
	return sleep(ctx, d)
}

func (e envExecutor) SendKeys(ctx context.Context, keys string) error {
	return e.env.SubmitKeystroke(ctx, keys)
}

func (e envExecutor) InputVisible(ctx context.Context) (bool, error) {
	return e.env.IsMyTurnVisible(ctx)
}
