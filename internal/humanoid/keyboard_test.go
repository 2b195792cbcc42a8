package humanoid

import (
	"math/rand"
	"slices"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func humanSettings(mistakes float64) Settings {
	return Settings{
		TypingSpeed:   Range{Min: 50 * time.Millisecond, Max: 350 * time.Millisecond},
		MistakeChance: mistakes,
		Humanlike:     true,
	}
}

func newTestSimulator(settings Settings, seed int64) *Simulator {
	return New(settings, rand.New(rand.NewSource(seed)))
}

// replay applies events to a text buffer the way an input field would.
func replay(events []Event) string {
	var buf []rune
	for _, ev := range events {
		switch ev.Kind {
		case KindText:
			buf = append(buf, []rune(ev.Text)...)
		case KindBackspace:
			if len(buf) > 0 {
				buf = buf[:len(buf)-1]
			}
		}
	}
	return string(buf)
}

func TestSimulate_ObviousBot(t *testing.T) {
	sim := newTestSimulator(Settings{Humanlike: false, MistakeChance: 1}, 1)

	events := slices.Collect(sim.Simulate("cat", 0))
	require.Len(t, events, 2)
	assert.Equal(t, Event{Kind: KindText, Text: "cat"}, events[0])
	assert.Equal(t, Event{Kind: KindEnter}, events[1])
	assert.Equal(t, "\r", events[1].Keys())
}

func TestSimulate_HumanlikeWithoutMistakes(t *testing.T) {
	sim := newTestSimulator(humanSettings(0), 7)

	events := slices.Collect(sim.Simulate("cat", 0))
	require.Len(t, events, 4)
	for i, want := range []string{"c", "a", "t"} {
		assert.Equal(t, KindText, events[i].Kind)
		assert.Equal(t, want, events[i].Text)
		assert.False(t, events[i].Typo)
	}
	assert.Equal(t, KindEnter, events[3].Kind)
	assert.Equal(t, events[2].Delay, events[3].Delay)
	for _, ev := range events {
		assert.GreaterOrEqual(t, ev.Delay, MinKeyDelay)
		assert.LessOrEqual(t, ev.Delay, 350*time.Millisecond)
	}
}

func TestSimulate_TyposAreErased(t *testing.T) {
	for seed := int64(0); seed < 200; seed++ {
		sim := newTestSimulator(humanSettings(1), seed)
		events := slices.Collect(sim.Simulate("keyboard", 3))

		typos, backspaces := 0, 0
		for i, ev := range events {
			switch {
			case ev.Typo:
				typos++
			case ev.Kind == KindBackspace:
				backspaces++
				if events[i-1].Typo {
					assert.Equal(t, 3*events[i-1].Delay, ev.Delay, "first backspace waits three key delays")
				} else {
					assert.Zero(t, ev.Delay, "later backspaces follow immediately")
				}
			}
		}
		assert.GreaterOrEqual(t, typos, len("keyboard"), "seed %d", seed)
		assert.Equal(t, typos, backspaces, "seed %d", seed)
		assert.Equal(t, "keyboard", replay(events), "seed %d", seed)
		assert.Equal(t, KindEnter, events[len(events)-1].Kind)
	}
}

func TestSimulate_TypesWholeLetters(t *testing.T) {
	for seed := int64(0); seed < 50; seed++ {
		sim := newTestSimulator(humanSettings(0.5), seed)
		events := slices.Collect(sim.Simulate("café naïve", 0))

		for _, ev := range events {
			if ev.Kind != KindText {
				continue
			}
			assert.True(t, utf8.ValidString(ev.Text), "invalid keystroke %q", ev.Text)
			assert.Equal(t, 1, utf8.RuneCountInString(ev.Text))
		}
		assert.Equal(t, "café naïve", replay(events), "seed %d", seed)
	}
}

func TestSimulate_EmptyWord(t *testing.T) {
	sim := newTestSimulator(humanSettings(1), 1)
	events := slices.Collect(sim.Simulate("", 0))
	require.Len(t, events, 1)
	assert.Equal(t, Event{Kind: KindEnter, Delay: MinKeyDelay}, events[0])
}

func TestSimulate_StopsEarly(t *testing.T) {
	sim := newTestSimulator(humanSettings(0), 1)
	count := 0
	for range sim.Simulate("abcdef", 0) {
		count++
		if count == 2 {
			break
		}
	}
	assert.Equal(t, 2, count)
}

func TestSimulate_SpeedupFloorsAtMinDelay(t *testing.T) {
	settings := humanSettings(0)
	settings.Speedup = 0.5
	sim := newTestSimulator(settings, 3)

	for ev := range sim.Simulate("speedy", 1000) {
		assert.Equal(t, MinKeyDelay, ev.Delay)
	}
}

func TestMistakeOffset(t *testing.T) {
	sim := newTestSimulator(humanSettings(0), 1)

	assert.Equal(t, 2, sim.mistakeOffset(3, 0))
	assert.Equal(t, 1, sim.mistakeOffset(3, 2))
	assert.Equal(t, 3, sim.mistakeOffset(5, 1))
	assert.Equal(t, 3, sim.mistakeOffset(5, 4))
	for i := 0; i < 20; i++ {
		off := sim.mistakeOffset(3, 1)
		assert.True(t, off >= 0 && off < 3)
		assert.Equal(t, 0, sim.mistakeOffset(1, 0))
	}
}

func TestRange(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	r := Range{Min: 100 * time.Millisecond, Max: 100 * time.Millisecond}

	assert.Equal(t, 100*time.Millisecond, r.Sample(rng))
	assert.Equal(t, 70*time.Millisecond, r.Decayed(rng, 3, 0.1, MinKeyDelay))
	assert.Equal(t, MinKeyDelay, r.Decayed(rng, 5, 0.1, MinKeyDelay))
	assert.Equal(t, time.Duration(0), r.Decayed(rng, 50, 0.1, 0))

	wide := Range{Min: time.Second, Max: 4 * time.Second}
	for i := 0; i < 100; i++ {
		d := wide.Sample(rng)
		assert.True(t, d >= time.Second && d <= 4*time.Second, "sample %v out of range", d)
	}
	assert.Equal(t, time.Second, Range{Min: time.Second}.Sample(rng))
}

func TestEventKeys(t *testing.T) {
	assert.Equal(t, "\b", Event{Kind: KindBackspace}.Keys())
	assert.Equal(t, "x", Event{Kind: KindText, Text: "x"}.Keys())
	assert.Equal(t, "backspace", KindBackspace.String())
	assert.True(t, strings.HasPrefix(Kind(9).String(), "unknown"))
}
