// Package service wires the index, the browser, the fleet and the optional
// guess history together for the play command.
package service

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/bombparty-cli/api/schemas"
	"github.com/xkilldash9x/bombparty-cli/internal/fleet"
	"github.com/xkilldash9x/bombparty-cli/internal/lexicon"
	"github.com/xkilldash9x/bombparty-cli/internal/observability"
	"github.com/xkilldash9x/bombparty-cli/internal/store"
)

const consumerDrainTimeout = 35 * time.Second

// BrowserManager is the part of the browser manager the components drive.
type BrowserManager interface {
	Shutdown()
}

// Components holds everything a play session needs and owns its lifecycle.
type Components struct {
	Index          *lexicon.Index
	Fleet          *fleet.Fleet
	Environments   fleet.EnvironmentFactory
	BrowserManager BrowserManager
	Store          *store.Store
	Recorder       schemas.GuessRecorder

	closeDB    func()
	recorder   *ChannelRecorder
	consumerWG *sync.WaitGroup
	shutdown   sync.Once
}

// Shutdown releases the components in order: bots first so no new guesses
// are produced, then the guess consumer, the browser and the database.
func (c *Components) Shutdown() {
	c.shutdown.Do(c.doShutdown)
}

func (c *Components) doShutdown() {
	logger := observability.GetLogger()
	logger.Debug("Beginning components shutdown sequence.")

	if c.Fleet != nil {
		c.Fleet.Shutdown()
	}

	if c.recorder != nil {
		c.recorder.Close()
		logger.Debug("Guess recorder closed.")
	}
	if c.consumerWG != nil {
		if !timedWait(c.consumerWG, consumerDrainTimeout) {
			logger.Warn("Timed out waiting for the guess consumer to drain.", zap.Duration("timeout", consumerDrainTimeout))
		} else {
			logger.Debug("Guess consumer finished.")
		}
	}

	if c.BrowserManager != nil {
		c.BrowserManager.Shutdown()
		logger.Debug("Browser manager shut down.")
	}

	if c.closeDB != nil {
		c.closeDB()
		logger.Debug("Database connection pool closed.")
	}

	logger.Info("All components shut down.")
}
