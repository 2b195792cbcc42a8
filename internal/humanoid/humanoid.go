// Package humanoid produces humanlike keystroke sequences for a word and
// plays them back through an Executor.
package humanoid

import (
	"math/rand"
	"sync"
	"time"
)

// MinKeyDelay is the shortest pause before any keystroke in humanlike mode.
const MinKeyDelay = 50 * time.Millisecond

// Range is an inclusive duration interval.
type Range struct {
	Min time.Duration `mapstructure:"min" yaml:"min"`
	Max time.Duration `mapstructure:"max" yaml:"max"`
}

// Sample draws a uniform duration from the range.
func (r Range) Sample(rng *rand.Rand) time.Duration {
	if r.Max <= r.Min {
		return r.Min
	}
	return r.Min + time.Duration(rng.Int63n(int64(r.Max-r.Min)+1))
}

// Decayed samples the range and shortens the result by
// guessCount * Min * speedup, never going below floor.
func (r Range) Decayed(rng *rand.Rand, guessCount int, speedup float64, floor time.Duration) time.Duration {
	d := r.Sample(rng) - time.Duration(float64(guessCount)*float64(r.Min)*speedup)
	return max(d, floor)
}

// Settings describes one bot's typing persona.
type Settings struct {
	// TypingSpeed is the per keystroke delay range.
	TypingSpeed Range
	// MistakeChance is the probability of a typo after each character.
	MistakeChance float64
	// Speedup shortens delays as the session's guess count grows.
	Speedup float64
	// Humanlike disables all delays and typos when false.
	Humanlike bool
}

// Simulator turns words into keystroke events. It is safe for concurrent use
// but normally owned by a single bot.
type Simulator struct {
	settings Settings

	// mu protects rng.
	mu  sync.Mutex
	rng *rand.Rand
}

// New creates a Simulator. A nil rng is replaced by a time seeded source.
func New(settings Settings, rng *rand.Rand) *Simulator {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Simulator{settings: settings, rng: rng}
}

func (s *Simulator) keyDelay(guessCount int) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings.TypingSpeed.Decayed(s.rng, guessCount, s.settings.Speedup, MinKeyDelay)
}

func (s *Simulator) roll(p float64) bool {
	if p <= 0 {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Float64() < p
}

func (s *Simulator) intn(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Intn(n)
}
