package service

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/xkilldash9x/bombparty-cli/api/schemas"
	"github.com/xkilldash9x/bombparty-cli/internal/browser"
	"github.com/xkilldash9x/bombparty-cli/internal/config"
	"github.com/xkilldash9x/bombparty-cli/internal/fleet"
)

const guessBufferSize = 1024

// ComponentFactory builds the components of a play session.
type ComponentFactory interface {
	Create(ctx context.Context, cfg config.Interface, room string, logger *zap.Logger) (*Components, error)
}

// EnvironmentOpener returns the environment factory for a room along with
// the manager that owns it.
type EnvironmentOpener func(ctx context.Context, cfg config.BrowserConfig, room, greeting string, logger *zap.Logger) (fleet.EnvironmentFactory, BrowserManager)

type concreteFactory struct {
	openPool PoolOpener
	openEnv  EnvironmentOpener
}

// FactoryOption customises how the factory reaches external systems.
type FactoryOption func(*concreteFactory)

// WithPoolOpener replaces the PostgreSQL connector.
func WithPoolOpener(open PoolOpener) FactoryOption {
	return func(f *concreteFactory) { f.openPool = open }
}

// WithEnvironmentOpener replaces the chromedp backed environments.
func WithEnvironmentOpener(open EnvironmentOpener) FactoryOption {
	return func(f *concreteFactory) { f.openEnv = open }
}

// NewComponentFactory returns the factory used by the play command.
func NewComponentFactory(opts ...FactoryOption) ComponentFactory {
	f := &concreteFactory{
		openPool: OpenPostgresPool,
		openEnv:  openChromeRoom,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func openChromeRoom(ctx context.Context, cfg config.BrowserConfig, room, greeting string, logger *zap.Logger) (fleet.EnvironmentFactory, BrowserManager) {
	m := browser.NewManager(ctx, cfg, logger)
	return m.Room(room, greeting), m
}

// Create loads the index, connects the optional guess history, prepares the
// browser and builds the fleet. On failure everything created so far is
// shut down again.
func (f *concreteFactory) Create(ctx context.Context, cfg config.Interface, room string, logger *zap.Logger) (components *Components, err error) {
	components = &Components{Recorder: schemas.NopRecorder{}}
	defer func() {
		if err != nil {
			logger.Warn("Initialization failed, shutting down partially created components.", zap.Error(err))
			components.Shutdown()
			components = nil
		}
	}()

	if room == "" {
		return components, fmt.Errorf("a room code is required")
	}

	// 1. Combo index
	idx, err := LoadIndex(cfg.Lexicon(), logger)
	if err != nil {
		return components, err
	}
	components.Index = idx

	// 2. Guess history, optional
	dbStore, closeDB, err := InitializeStore(ctx, cfg.Database(), f.openPool, logger)
	if err != nil {
		return components, fmt.Errorf("failed to initialize guess history: %w", err)
	}
	if dbStore != nil {
		components.Store = dbStore
		components.closeDB = closeDB

		components.recorder = NewChannelRecorder(guessBufferSize, logger.Named("recorder"))
		components.consumerWG = &sync.WaitGroup{}
		StartGuessConsumer(ctx, components.consumerWG, components.recorder.C(), dbStore, logger.Named("guess_consumer"))
		components.Recorder = components.recorder
		logger.Debug("Guess history enabled.")
	} else {
		logger.Debug("No database configured, guesses will not be persisted.")
	}

	// 3. Browser
	envs, manager := f.openEnv(ctx, cfg.Browser(), room, cfg.Bot().Greeting, logger)
	components.Environments = envs
	components.BrowserManager = manager

	// 4. Fleet
	components.Fleet = fleet.New(idx, envs, fleet.Options{
		MaxBots:  cfg.Fleet().MaxBots,
		Recorder: components.Recorder,
		Logger:   logger,
	})

	logger.Info("All components initialized.", zap.String("room", room))
	return components, nil
}
