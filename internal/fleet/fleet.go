// Package fleet runs several bots side by side, one goroutine each, sharing
// the read only combo index.
package fleet

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xkilldash9x/bombparty-cli/api/schemas"
	"github.com/xkilldash9x/bombparty-cli/internal/bot"
	"github.com/xkilldash9x/bombparty-cli/internal/humanoid"
	"github.com/xkilldash9x/bombparty-cli/internal/lexicon"
	"github.com/xkilldash9x/bombparty-cli/internal/selector"
)

// DefaultMaxBots is the soft cap applied when Options.MaxBots is zero.
const DefaultMaxBots = 5

var (
	// ErrFleetFull is returned by Launch once the cap is reached.
	ErrFleetFull = errors.New("fleet: maximum number of bots reached")
	// ErrUnknownBot is returned by Stop for ids that are not running.
	ErrUnknownBot = errors.New("fleet: unknown bot")
	// ErrClosed is returned by Launch after Shutdown.
	ErrClosed = errors.New("fleet: shutting down")
)

// EnvironmentFactory opens the game surface for a new bot.
type EnvironmentFactory interface {
	NewEnvironment(ctx context.Context, botName string) (schemas.Environment, error)
}

// Persona is the configuration every bot of the fleet is started with.
type Persona struct {
	Bot    bot.Settings
	Typing humanoid.Settings
}

// Options configures a Fleet.
type Options struct {
	MaxBots  int
	Recorder schemas.GuessRecorder
	Logger   *zap.Logger
}

// Status is a snapshot of one running bot.
type Status struct {
	ID      string
	Name    string
	State   bot.State
	Guesses int
	Started time.Time
}

type member struct {
	bot     *bot.Bot
	env     schemas.Environment
	cancel  context.CancelFunc
	done    chan struct{}
	started time.Time
}

// Fleet launches and supervises bots.
type Fleet struct {
	index   *lexicon.Index
	factory EnvironmentFactory
	opts    Options
	logger  *zap.Logger

	mu       sync.Mutex
	members  map[string]*member
	reserved int
	closed   bool
	wg       sync.WaitGroup
}

// New creates an empty fleet.
func New(index *lexicon.Index, factory EnvironmentFactory, opts Options) *Fleet {
	if opts.MaxBots <= 0 {
		opts.MaxBots = DefaultMaxBots
	}
	if opts.Recorder == nil {
		opts.Recorder = schemas.NopRecorder{}
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Fleet{
		index:   index,
		factory: factory,
		opts:    opts,
		logger:  opts.Logger.Named("fleet"),
		members: make(map[string]*member),
	}
}

// BotName makes sure a display name says it is a bot.
func BotName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "bot"
	}
	if strings.Contains(strings.ToLower(name), "bot") {
		return name
	}
	return name + " bot"
}

// Launch opens an environment for a new bot and starts it. The bot runs
// until Stop, Shutdown or the end of its session; ctx only bounds the setup.
func (f *Fleet) Launch(ctx context.Context, persona Persona) (string, error) {
	if err := f.reserve(); err != nil {
		return "", err
	}

	settings := persona.Bot
	settings.ID = uuid.NewString()
	settings.Name = BotName(settings.Name)
	logger := f.logger.With(zap.String("bot", settings.Name))

	env, err := f.factory.NewEnvironment(ctx, settings.Name)
	if err != nil {
		f.release()
		return "", fmt.Errorf("fleet: failed to open environment for '%s': %w", settings.Name, err)
	}

	seed := time.Now().UnixNano()
	sel := selector.New(f.index, selector.WithRand(rand.New(rand.NewSource(seed))))
	sim := humanoid.New(persona.Typing, rand.New(rand.NewSource(seed+1)))
	b := bot.New(settings, env, sel, sim,
		bot.WithRecorder(f.opts.Recorder),
		bot.WithLogger(f.opts.Logger))

	runCtx, cancel := context.WithCancel(context.Background())
	m := &member{bot: b, env: env, cancel: cancel, done: make(chan struct{}), started: time.Now()}

	f.mu.Lock()
	f.reserved--
	if f.closed {
		f.mu.Unlock()
		cancel()
		_ = env.Close()
		return "", ErrClosed
	}
	f.members[settings.ID] = m
	f.wg.Add(1)
	f.mu.Unlock()

	go f.run(runCtx, m, logger)
	logger.Info("Bot launched.", zap.String("bot_id", settings.ID), zap.Int("running", f.Len()))
	return settings.ID, nil
}

func (f *Fleet) run(ctx context.Context, m *member, logger *zap.Logger) {
	defer f.wg.Done()
	defer close(m.done)

	if err := m.bot.Run(ctx); err != nil {
		logger.Error("Bot exited with an error.", zap.Error(err))
	}
	if err := m.env.Close(); err != nil {
		logger.Warn("Failed to close bot environment.", zap.Error(err))
	}

	f.mu.Lock()
	delete(f.members, m.bot.ID())
	f.mu.Unlock()
	m.cancel()
	logger.Info("Bot finished.", zap.Int("guesses", m.bot.Guesses()))
}

func (f *Fleet) reserve() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return ErrClosed
	}
	if len(f.members)+f.reserved >= f.opts.MaxBots {
		return fmt.Errorf("%w (%d)", ErrFleetFull, f.opts.MaxBots)
	}
	f.reserved++
	return nil
}

func (f *Fleet) release() {
	f.mu.Lock()
	f.reserved--
	f.mu.Unlock()
}

// Stop cancels one bot and waits for it to exit or for ctx to end.
func (f *Fleet) Stop(ctx context.Context, id string) error {
	f.mu.Lock()
	m, ok := f.members[id]
	f.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownBot, id)
	}
	m.cancel()
	select {
	case <-m.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown stops every bot, refuses new launches and waits for all bots
// to exit.
func (f *Fleet) Shutdown() {
	f.mu.Lock()
	f.closed = true
	for _, m := range f.members {
		m.cancel()
	}
	f.mu.Unlock()
	f.wg.Wait()
	f.logger.Info("Fleet shut down.")
}

// Wait blocks until every launched bot has exited on its own.
func (f *Fleet) Wait() {
	f.wg.Wait()
}

// Len returns the number of running bots.
func (f *Fleet) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.members)
}

// Status lists the running bots by name.
func (f *Fleet) Status() []Status {
	f.mu.Lock()
	out := make([]Status, 0, len(f.members))
	for id, m := range f.members {
		out = append(out, Status{
			ID:      id,
			Name:    m.bot.Name(),
			State:   m.bot.State(),
			Guesses: m.bot.Guesses(),
			Started: m.started,
		})
	}
	f.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
