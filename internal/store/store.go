// Package store persists guess history in PostgreSQL.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"github.com/xkilldash9x/bombparty-cli/api/schemas"
)

// DBPool abstracts pgxpool.Pool so that tests can use pgxmock.
type DBPool interface {
	Ping(ctx context.Context) error
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error)
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS guesses (
    id           UUID PRIMARY KEY,
    bot_id       TEXT NOT NULL,
    bot_name     TEXT NOT NULL,
    combo        TEXT NOT NULL,
    word         TEXT NOT NULL,
    sequence     INTEGER NOT NULL,
    no_match     BOOLEAN NOT NULL DEFAULT FALSE,
    typing_ms    BIGINT NOT NULL,
    submitted_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS guesses_combo_idx ON guesses (combo);
CREATE INDEX IF NOT EXISTS guesses_submitted_at_idx ON guesses (submitted_at DESC);
`

const sqlInsertGuess = `
INSERT INTO guesses (id, bot_id, bot_name, combo, word, sequence, no_match, typing_ms, submitted_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT (id) DO NOTHING;
`

const sqlRecentGuesses = `
SELECT id, bot_id, bot_name, combo, word, sequence, no_match, typing_ms, submitted_at
FROM guesses
ORDER BY submitted_at DESC
LIMIT $1;
`

const sqlComboStats = `
SELECT combo, COUNT(*) AS total, COUNT(*) FILTER (WHERE no_match) AS misses
FROM guesses
GROUP BY combo
ORDER BY misses DESC, total DESC, combo ASC
LIMIT $1;
`

var guessColumns = []string{"id", "bot_id", "bot_name", "combo", "word", "sequence", "no_match", "typing_ms", "submitted_at"}

// Store is the PostgreSQL guess history.
type Store struct {
	pool DBPool
	log  *zap.Logger
}

// New creates a store and verifies the connection.
func New(ctx context.Context, pool DBPool, logger *zap.Logger) (*Store, error) {
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return &Store{pool: pool, log: logger.Named("store")}, nil
}

// EnsureSchema creates the guesses table when missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// RecordGuess inserts one guess. Replaying a guess id is a no-op.
func (s *Store) RecordGuess(ctx context.Context, g schemas.Guess) error {
	_, err := s.pool.Exec(ctx, sqlInsertGuess, guessRow(g)...)
	if err != nil {
		return fmt.Errorf("failed to insert guess %s: %w", g.ID, err)
	}
	return nil
}

// uniqueViolation is the PostgreSQL error code for a duplicate key.
const uniqueViolation = "23505"

// PersistGuesses bulk inserts a batch with COPY. COPY rejects the whole batch
// when one id already exists, so the batch is then inserted row by row and
// the duplicates are skipped.
func (s *Store) PersistGuesses(ctx context.Context, guesses []schemas.Guess) error {
	if len(guesses) == 0 {
		return nil
	}
	rows := make([][]any, len(guesses))
	for i, g := range guesses {
		rows[i] = guessRow(g)
	}
	n, err := s.pool.CopyFrom(ctx, pgx.Identifier{"guesses"}, guessColumns, pgx.CopyFromRows(rows))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			s.log.Warn("Batch contains recorded guesses, inserting one by one.", zap.Int("batch", len(guesses)))
			return s.insertEach(ctx, guesses)
		}
		return fmt.Errorf("failed to copy guesses: %w", err)
	}
	if int(n) != len(guesses) {
		return fmt.Errorf("mismatch in copied guesses count: expected %d, got %d", len(guesses), n)
	}
	return nil
}

func (s *Store) insertEach(ctx context.Context, guesses []schemas.Guess) error {
	for _, g := range guesses {
		if err := s.RecordGuess(ctx, g); err != nil {
			return err
		}
	}
	return nil
}

// RecentGuesses returns the latest guesses, newest first.
func (s *Store) RecentGuesses(ctx context.Context, limit int) ([]schemas.Guess, error) {
	rows, err := s.pool.Query(ctx, sqlRecentGuesses, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query guesses: %w", err)
	}
	defer rows.Close()

	var out []schemas.Guess
	for rows.Next() {
		var (
			g        schemas.Guess
			typingMs int64
		)
		if err := rows.Scan(&g.ID, &g.BotID, &g.BotName, &g.Combo, &g.Word, &g.Sequence, &g.NoMatch, &typingMs, &g.SubmittedAt); err != nil {
			return nil, fmt.Errorf("failed to scan guess: %w", err)
		}
		g.TypingTime = time.Duration(typingMs) * time.Millisecond
		out = append(out, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate guesses: %w", err)
	}
	return out, nil
}

// ComboStat counts the answers given for one combo.
type ComboStat struct {
	Combo  string `json:"combo"`
	Total  int64  `json:"total"`
	Misses int64  `json:"misses"`
}

// HardestCombos returns the combos that most often ended without a word.
func (s *Store) HardestCombos(ctx context.Context, limit int) ([]ComboStat, error) {
	rows, err := s.pool.Query(ctx, sqlComboStats, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query combo stats: %w", err)
	}
	defer rows.Close()

	var out []ComboStat
	for rows.Next() {
		var c ComboStat
		if err := rows.Scan(&c.Combo, &c.Total, &c.Misses); err != nil {
			return nil, fmt.Errorf("failed to scan combo stats: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func guessRow(g schemas.Guess) []any {
	return []any{
		g.ID, g.BotID, g.BotName, g.Combo, g.Word, g.Sequence, g.NoMatch,
		g.TypingTime.Milliseconds(), g.SubmittedAt.UTC(),
	}
}
