package service

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/xkilldash9x/bombparty-cli/internal/bot"
	"github.com/xkilldash9x/bombparty-cli/internal/config"
	"github.com/xkilldash9x/bombparty-cli/internal/fleet"
	"github.com/xkilldash9x/bombparty-cli/internal/humanoid"
	"github.com/xkilldash9x/bombparty-cli/internal/lexicon"
	"github.com/xkilldash9x/bombparty-cli/internal/store"
)

// DBPool is the connection pool the components own and close on shutdown.
type DBPool interface {
	store.DBPool
	Close()
}

// PoolOpener connects to the database at url.
type PoolOpener func(ctx context.Context, url string) (DBPool, error)

// OpenPostgresPool creates a pgx pool with the pool limits used by every
// command and verifies the connection.
func OpenPostgresPool(ctx context.Context, url string) (DBPool, error) {
	poolConfig, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("unable to parse database URL: %w", err)
	}
	poolConfig.MaxConns = 10
	poolConfig.MinConns = 1
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping PostgreSQL: %w", err)
	}
	return pool, nil
}

// InitializeStore opens the guess history when a database URL is configured.
// It returns a nil store and a nil cleanup when none is.
func InitializeStore(ctx context.Context, cfg config.DatabaseConfig, open PoolOpener, logger *zap.Logger) (*store.Store, func(), error) {
	if cfg.URL == "" {
		return nil, nil, nil
	}
	if open == nil {
		open = OpenPostgresPool
	}

	pool, err := open(ctx, cfg.URL)
	if err != nil {
		return nil, nil, err
	}
	s, err := store.New(ctx, pool, logger)
	if err != nil {
		pool.Close()
		return nil, nil, err
	}
	if err := s.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, nil, err
	}
	return s, pool.Close, nil
}

// LoadIndex reads the prebuilt combo index named by the lexicon config.
func LoadIndex(cfg config.LexiconConfig, logger *zap.Logger) (*lexicon.Index, error) {
	start := time.Now()
	idx, err := lexicon.LoadFile(cfg.IndexPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load combo index from %s (hint: run 'bombparty index' first): %w", cfg.IndexPath, err)
	}
	logger.Info("Combo index loaded.",
		zap.String("path", cfg.IndexPath),
		zap.Int("combos", idx.Len()),
		zap.Duration("took", time.Since(start)))
	return idx, nil
}

// PersonaFromConfig maps the bot section of the config onto a fleet persona.
func PersonaFromConfig(b config.BotConfig) fleet.Persona {
	return fleet.Persona{
		Bot: bot.Settings{
			Name:         b.Name,
			ThinkTime:    b.ThinkTime,
			WordLength:   b.WordLength,
			PreferLonger: b.PreferLonger,
			Speedup:      b.Speedup,
			Humanlike:    b.Humanlike,
			PollInterval: b.PollInterval,
			RepeatGuard:  b.RepeatGuard,
		},
		Typing: humanoid.Settings{
			TypingSpeed:   b.TypingSpeed,
			MistakeChance: b.MistakeChance,
			Speedup:       b.Speedup,
			Humanlike:     b.Humanlike,
		},
	}
}
