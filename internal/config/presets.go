package config

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/xkilldash9x/bombparty-cli/internal/humanoid"
)

// Built in personas.
const (
	PresetHuman     = "human"
	PresetFastHuman = "fast-human"
	PresetBot       = "bot"
)

// ErrUnknownPreset is returned for preset names that are not built in.
var ErrUnknownPreset = errors.New("unknown preset")

// preset holds the persona fields a preset controls.
type preset struct {
	thinkTime     humanoid.Range
	typingSpeed   humanoid.Range
	wordLength    int
	mistakeChance float64
	speedup       float64
	humanlike     bool
}

var presets = map[string]preset{
	PresetHuman: {
		thinkTime:     humanoid.Range{Min: time.Second, Max: 4 * time.Second},
		typingSpeed:   humanoid.Range{Min: 50 * time.Millisecond, Max: 350 * time.Millisecond},
		wordLength:    7,
		mistakeChance: 0.12,
		humanlike:     true,
	},
	PresetFastHuman: {
		thinkTime:     humanoid.Range{Min: time.Second, Max: 2500 * time.Millisecond},
		typingSpeed:   humanoid.Range{Min: 50 * time.Millisecond, Max: 200 * time.Millisecond},
		wordLength:    7,
		mistakeChance: 0.05,
		speedup:       0.03,
		humanlike:     true,
	},
	PresetBot: {},
}

// Presets lists the built in preset names.
func Presets() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ApplyPreset overlays a named preset on b. Fields no preset controls, such
// as the name and polling settings, are kept. PreferLonger is reset since
// every preset prefers short words.
func ApplyPreset(name string, b BotConfig) (BotConfig, error) {
	p, ok := presets[name]
	if !ok {
		return b, fmt.Errorf("bot.preset: %w '%s' (want one of %v)", ErrUnknownPreset, name, Presets())
	}
	b.Preset = name
	b.ThinkTime = p.thinkTime
	b.TypingSpeed = p.typingSpeed
	b.WordLength = p.wordLength
	b.PreferLonger = false
	b.MistakeChance = p.mistakeChance
	b.Speedup = p.speedup
	b.Humanlike = p.humanlike
	return b, nil
}
