// Package selector picks answers for a combo from the shared index while
// keeping track of the words a single bot session already used.
package selector

import (
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/xkilldash9x/bombparty-cli/internal/lexicon"
)

// NoMatchWord is submitted when no candidate is left for a combo. It is a
// regular answer, not an error.
const NoMatchWord = "No idea :("

// Option configures a Selector.
type Option func(*Selector)

// WithRand makes selection deterministic. The Selector takes ownership of rng.
func WithRand(rng *rand.Rand) Option {
	return func(s *Selector) { s.rng = rng }
}

// Selector holds one session's view of the index. The shared index is never
// written; the first use of a combo clones its entry into the session state
// and removals only touch that clone.
type Selector struct {
	// mu protects rng and pools.
	mu    sync.Mutex
	index *lexicon.Index
	rng   *rand.Rand
	pools map[string]*lexicon.Entry
}

// New creates a Selector with fresh usage state.
func New(index *lexicon.Index, opts ...Option) *Selector {
	s := &Selector{
		index: index,
		pools: make(map[string]*lexicon.Entry),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.rng == nil {
		s.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return s
}

// ClampLengthPreference maps a requested word length onto the tracked range.
// Zero and negative values mean no preference; 1 and 2 become 3 and anything
// above the longest tracked length becomes that length.
func ClampLengthPreference(lengthPref int) int {
	switch {
	case lengthPref <= 0:
		return 0
	case lengthPref < lexicon.MinTrackedLength:
		return lexicon.MinTrackedLength
	case lengthPref > lexicon.MaxTrackedLength:
		return lexicon.MaxTrackedLength
	}
	return lengthPref
}

// SelectWord returns a random unused word for combo honouring the length
// preference, or NoMatchWord when the pool is empty. The returned word is
// removed from this session's pool for the combo.
func (s *Selector) SelectWord(combo string, lengthPref int, preferLonger bool) string {
	combo = strings.ToLower(strings.TrimSpace(combo))
	lengthPref = ClampLengthPreference(lengthPref)

	s.mu.Lock()
	defer s.mu.Unlock()

	pool := s.pool(combo)
	if pool == nil {
		return NoMatchWord
	}
	candidates := pool.Split(lengthPref, preferLonger)
	if len(candidates) == 0 {
		return NoMatchWord
	}
	word := candidates[s.rng.Intn(len(candidates))]
	pool.Remove(word)
	return word
}

// Remove drops a word from the session pool of combo. It reports false when
// the word was not available, which callers may ignore.
func (s *Selector) Remove(combo, word string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	pool := s.pool(combo)
	if pool == nil {
		return false
	}
	return pool.Remove(word)
}

// Remaining returns how many words are still available for combo.
func (s *Selector) Remaining(combo string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if pool, ok := s.pools[combo]; ok {
		return len(pool.Words)
	}
	e, _ := s.index.Lookup(combo)
	return len(e.Words)
}

// pool returns the session copy for combo, cloning it on first use.
// Callers must hold s.mu.
func (s *Selector) pool(combo string) *lexicon.Entry {
	if p, ok := s.pools[combo]; ok {
		return p
	}
	e, ok := s.index.Lookup(combo)
	if !ok {
		return nil
	}
	clone := e.Clone()
	s.pools[combo] = &clone
	return &clone
}
