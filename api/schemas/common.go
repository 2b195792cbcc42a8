package schemas

import (
	"errors"
	"time"
)

// ErrSessionClosed signals that the game surface disappeared underneath a bot.
var ErrSessionClosed = errors.New("game session closed")

// -- Common Schemas --

// Guess is a single answer submitted by a bot. Sequence is the bot's guess
// counter after the submission.
type Guess struct {
	ID          string        `json:"id"`
	BotID       string        `json:"bot_id"`
	BotName     string        `json:"bot_name"`
	Combo       string        `json:"combo"`
	Word        string        `json:"word"`
	Sequence    int           `json:"sequence"`
	NoMatch     bool          `json:"no_match"`
	TypingTime  time.Duration `json:"typing_time"`
	SubmittedAt time.Time     `json:"submitted_at"`
}
