package schemas

import (
	"context"
)

// -- Environment Interface --

// Environment is the game surface a single bot plays on. Implementations own
// their browser tab exclusively and are never shared between bots.
//
// Any method may return an error wrapping ErrSessionClosed when the page or the
// element behind it is gone (the bot was kicked, the tab closed, the browser
// died). The turn loop treats that as a normal end of play.
type Environment interface {
	// IsRoundActive reports whether a round is currently being played.
	IsRoundActive(ctx context.Context) (bool, error)
	// IsMyTurnVisible reports whether the answer input is shown, which is
	// how the game signals that it is this player's turn.
	IsMyTurnVisible(ctx context.Context) (bool, error)
	// ReadCurrentCombo returns the letters the game currently asks for, lowercased.
	ReadCurrentCombo(ctx context.Context) (string, error)
	// SubmitKeystroke types keys into the answer input. It is a no-op when the
	// input is no longer shown.
	SubmitKeystroke(ctx context.Context, keys string) error
	// JoinNextGame blocks until the player has joined the next game or ctx ends.
	JoinNextGame(ctx context.Context) error
	// Close releases the underlying browser resources.
	Close() error
}

// -- Recorder Interface --

// GuessRecorder persists submitted guesses. Implementations must be safe for
// concurrent use since every bot of a fleet shares one recorder.
type GuessRecorder interface {
	RecordGuess(ctx context.Context, guess Guess) error
}

// NopRecorder discards every guess.
type NopRecorder struct{}

// RecordGuess implements GuessRecorder.
func (NopRecorder) RecordGuess(context.Context, Guess) error { return nil }
