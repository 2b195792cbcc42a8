package config

import (
	"bytes"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/bombparty-cli/internal/humanoid"
)

// -- Constructor and Defaults Tests --

func TestNewDefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig()

	assert.Equal(t, "info", cfg.Logger().Level)
	assert.Equal(t, "combos.json", cfg.Lexicon().IndexPath)
	assert.Equal(t, humanoid.Range{Min: time.Second, Max: 4 * time.Second}, cfg.Bot().ThinkTime)
	assert.Equal(t, 50*time.Millisecond, cfg.Bot().PollInterval)
	assert.Equal(t, 200*time.Millisecond, cfg.Bot().RepeatGuard)
	assert.True(t, cfg.Browser().Headless)
	assert.Equal(t, "bombparty", cfg.Browser().Selectors.GameFrameURL)
	assert.Equal(t, 5, cfg.Fleet().MaxBots)
	assert.Empty(t, cfg.Database().URL)
	assert.NoError(t, cfg.Validate())
}

// -- Validation Logic Tests --

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"missing index path", func(c *Config) { c.LexiconCfg.IndexPath = "" }, "lexicon.index_path is a required configuration field"},
		{"no workers", func(c *Config) { c.LexiconCfg.Workers = 0 }, "lexicon.workers must be a positive integer"},
		{"inverted think time", func(c *Config) { c.BotCfg.ThinkTime = humanoid.Range{Min: 2 * time.Second, Max: time.Second} }, "bot.think_time.min must not exceed bot.think_time.max"},
		{"negative typing speed", func(c *Config) { c.BotCfg.TypingSpeed.Min = -time.Millisecond }, "bot.typing_speed must not be negative"},
		{"mistake chance", func(c *Config) { c.BotCfg.MistakeChance = 1.5 }, "bot.mistake_chance must be between 0.0 and 1.0"},
		{"speedup", func(c *Config) { c.BotCfg.Speedup = -0.1 }, "bot.speedup must not be negative"},
		{"word length", func(c *Config) { c.BotCfg.WordLength = 21 }, "bot.word_length must be between 0 and 20"},
		{"poll interval", func(c *Config) { c.BotCfg.PollInterval = 0 }, "bot.poll_interval must be a positive duration"},
		{"repeat guard", func(c *Config) { c.BotCfg.RepeatGuard = -time.Second }, "bot.repeat_guard must not be negative"},
		{"room template", func(c *Config) { c.BrowserCfg.RoomURLTemplate = "https://jklm.fun/" }, "browser.room_url_template must contain"},
		{"navigation timeout", func(c *Config) { c.BrowserCfg.NavigationTimeout = 0 }, "browser.navigation_timeout must be a positive duration"},
		{"max bots", func(c *Config) { c.SetFleetMaxBots(0) }, "fleet.max_bots must be a positive integer"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewDefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}

	t.Run("short word length is accepted", func(t *testing.T) {
		cfg := NewDefaultConfig()
		cfg.BotCfg.WordLength = 2
		assert.NoError(t, cfg.Validate())
	})
}

// -- Preset Tests --

func TestApplyPreset(t *testing.T) {
	base := NewDefaultConfig().Bot()
	base.Name = "keeper"
	base.PreferLonger = true
	base.PollInterval = 10 * time.Millisecond

	fast, err := ApplyPreset(PresetFastHuman, base)
	require.NoError(t, err)
	assert.Equal(t, "keeper", fast.Name)
	assert.Equal(t, 10*time.Millisecond, fast.PollInterval)
	assert.Equal(t, PresetFastHuman, fast.Preset)
	assert.Equal(t, 2500*time.Millisecond, fast.ThinkTime.Max)
	assert.Equal(t, 200*time.Millisecond, fast.TypingSpeed.Max)
	assert.Equal(t, 0.05, fast.MistakeChance)
	assert.Equal(t, 0.03, fast.Speedup)
	assert.Equal(t, 7, fast.WordLength)
	assert.False(t, fast.PreferLonger)
	assert.True(t, fast.Humanlike)
	assert.NoError(t, fast.Validate())

	bot, err := ApplyPreset(PresetBot, base)
	require.NoError(t, err)
	assert.False(t, bot.Humanlike)
	assert.Zero(t, bot.WordLength)
	assert.Zero(t, bot.MistakeChance)
	assert.Equal(t, humanoid.Range{}, bot.ThinkTime)
	assert.NoError(t, bot.Validate())

	_, err = ApplyPreset("robot", base)
	require.ErrorIs(t, err, ErrUnknownPreset)
	assert.Contains(t, err.Error(), "fast-human")
}

func TestPresets(t *testing.T) {
	assert.Equal(t, []string{PresetBot, PresetFastHuman, PresetHuman}, Presets())
}

// -- Factory Function Tests --

func TestNewConfigFromViper(t *testing.T) {
	t.Run("Successful Load from YAML", func(t *testing.T) {
		yamlBytes := []byte(`
lexicon:
  sources: ["a.txt", "~/b.txt"]
  index_path: "combos.json.br"
bot:
  name: "helper"
  think_time:
    min: 500ms
    max: 1500ms
  word_length: 9
  prefer_longer: true
fleet:
  max_bots: 3
`)
		v := viper.New()
		SetDefaults(v)
		v.SetConfigType("yaml")
		require.NoError(t, v.ReadConfig(bytes.NewBuffer(yamlBytes)))

		cfg, err := NewConfigFromViper(v)
		require.NoError(t, err)

		assert.Equal(t, []string{"a.txt", "~/b.txt"}, cfg.Lexicon().Sources)
		assert.Equal(t, "combos.json.br", cfg.Lexicon().IndexPath)
		assert.Equal(t, "helper", cfg.Bot().Name)
		assert.Equal(t, humanoid.Range{Min: 500 * time.Millisecond, Max: 1500 * time.Millisecond}, cfg.Bot().ThinkTime)
		assert.Equal(t, 9, cfg.Bot().WordLength)
		assert.True(t, cfg.Bot().PreferLonger)
		assert.Equal(t, 3, cfg.Fleet().MaxBots)
		// Defaults still apply.
		assert.Equal(t, "info", cfg.Logger().Level)
	})

	t.Run("Preset replaces persona keys", func(t *testing.T) {
		v := viper.New()
		SetDefaults(v)
		v.Set("bot.preset", PresetBot)
		v.Set("bot.name", "speedy")

		cfg, err := NewConfigFromViper(v)
		require.NoError(t, err)
		assert.False(t, cfg.Bot().Humanlike)
		assert.Equal(t, "speedy", cfg.Bot().Name)
	})

	t.Run("Unknown preset", func(t *testing.T) {
		v := viper.New()
		SetDefaults(v)
		v.Set("bot.preset", "cyborg")

		cfg, err := NewConfigFromViper(v)
		assert.Nil(t, cfg)
		require.ErrorIs(t, err, ErrUnknownPreset)
	})

	t.Run("Validation Failure", func(t *testing.T) {
		v := viper.New()
		SetDefaults(v)
		v.Set("fleet.max_bots", 0)

		cfg, err := NewConfigFromViper(v)
		assert.Error(t, err)
		assert.Nil(t, cfg)
		assert.Contains(t, err.Error(), "invalid configuration")
		assert.Contains(t, err.Error(), "fleet.max_bots must be a positive integer")
	})

	t.Run("Environment Variable Binding", func(t *testing.T) {
		t.Setenv("BOMBPARTY_DATABASE_URL", "postgres://bp:bp@localhost/bp")
		v := viper.New()
		SetDefaults(v)

		cfg, err := NewConfigFromViper(v)
		require.NoError(t, err)
		assert.Equal(t, "postgres://bp:bp@localhost/bp", cfg.Database().URL)
	})
}
