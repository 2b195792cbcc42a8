package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/xkilldash9x/bombparty-cli/internal/humanoid"
)

// Interface defines the contract for accessing application configuration.
type Interface interface {
	Logger() LoggerConfig
	Lexicon() LexiconConfig
	Bot() BotConfig
	Browser() BrowserConfig
	Fleet() FleetConfig
	Database() DatabaseConfig

	SetBot(BotConfig)
	SetBrowserHeadless(bool)
	SetFleetMaxBots(int)
}

// Config holds the entire application configuration.
type Config struct {
	LoggerCfg   LoggerConfig   `mapstructure:"logger" yaml:"logger"`
	LexiconCfg  LexiconConfig  `mapstructure:"lexicon" yaml:"lexicon"`
	BotCfg      BotConfig      `mapstructure:"bot" yaml:"bot"`
	BrowserCfg  BrowserConfig  `mapstructure:"browser" yaml:"browser"`
	FleetCfg    FleetConfig    `mapstructure:"fleet" yaml:"fleet"`
	DatabaseCfg DatabaseConfig `mapstructure:"database" yaml:"database"`
}

func (c *Config) Logger() LoggerConfig     { return c.LoggerCfg }
func (c *Config) Lexicon() LexiconConfig   { return c.LexiconCfg }
func (c *Config) Bot() BotConfig           { return c.BotCfg }
func (c *Config) Browser() BrowserConfig   { return c.BrowserCfg }
func (c *Config) Fleet() FleetConfig       { return c.FleetCfg }
func (c *Config) Database() DatabaseConfig { return c.DatabaseCfg }

func (c *Config) SetBot(b BotConfig)        { c.BotCfg = b }
func (c *Config) SetBrowserHeadless(b bool) { c.BrowserCfg.Headless = b }
func (c *Config) SetFleetMaxBots(n int)     { c.FleetCfg.MaxBots = n }

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string      `mapstructure:"level" yaml:"level"`
	Format      string      `mapstructure:"format" yaml:"format"`
	AddSource   bool        `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string      `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string      `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int         `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int         `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool        `mapstructure:"compress" yaml:"compress"`
	Colors      ColorConfig `mapstructure:"colors" yaml:"colors"`
}

// ColorConfig defines the color codes for different log levels.
type ColorConfig struct {
	Debug  string `mapstructure:"debug" yaml:"debug"`
	Info   string `mapstructure:"info" yaml:"info"`
	Warn   string `mapstructure:"warn" yaml:"warn"`
	Error  string `mapstructure:"error" yaml:"error"`
	DPanic string `mapstructure:"dpanic" yaml:"dpanic"`
	Panic  string `mapstructure:"panic" yaml:"panic"`
	Fatal  string `mapstructure:"fatal" yaml:"fatal"`
}

// LexiconConfig points at the word lists and the persisted combo index.
type LexiconConfig struct {
	Sources     []string `mapstructure:"sources" yaml:"sources"`
	IndexPath   string   `mapstructure:"index_path" yaml:"index_path"`
	Workers     int      `mapstructure:"workers" yaml:"workers"`
	SkipMissing bool     `mapstructure:"skip_missing" yaml:"skip_missing"`
}

// BotConfig is the playing persona shared by every bot of a run.
type BotConfig struct {
	Name          string         `mapstructure:"name" yaml:"name"`
	Preset        string         `mapstructure:"preset" yaml:"preset"`
	ThinkTime     humanoid.Range `mapstructure:"think_time" yaml:"think_time"`
	TypingSpeed   humanoid.Range `mapstructure:"typing_speed" yaml:"typing_speed"`
	WordLength    int            `mapstructure:"word_length" yaml:"word_length"`
	PreferLonger  bool           `mapstructure:"prefer_longer" yaml:"prefer_longer"`
	MistakeChance float64        `mapstructure:"mistake_chance" yaml:"mistake_chance"`
	Speedup       float64        `mapstructure:"speedup" yaml:"speedup"`
	Humanlike     bool           `mapstructure:"humanlike" yaml:"humanlike"`
	PollInterval  time.Duration  `mapstructure:"poll_interval" yaml:"poll_interval"`
	RepeatGuard   time.Duration  `mapstructure:"repeat_guard" yaml:"repeat_guard"`
	// Greeting is posted to the room chat on first join when non-empty.
	Greeting string `mapstructure:"greeting" yaml:"greeting"`
}

// BrowserConfig holds settings for the Chrome instance hosting the bots.
type BrowserConfig struct {
	Headless          bool           `mapstructure:"headless" yaml:"headless"`
	DisableGPU        bool           `mapstructure:"disable_gpu" yaml:"disable_gpu"`
	Args              []string       `mapstructure:"args" yaml:"args"`
	RoomURLTemplate   string         `mapstructure:"room_url_template" yaml:"room_url_template"`
	NavigationTimeout time.Duration  `mapstructure:"navigation_timeout" yaml:"navigation_timeout"`
	Selectors         SelectorConfig `mapstructure:"selectors" yaml:"selectors"`
}

// SelectorConfig holds the XPath expressions used to read the game page.
// GameFrameURL is matched against frame target URLs instead.
type SelectorConfig struct {
	Nickname     string `mapstructure:"nickname" yaml:"nickname"`
	ChatToggle   string `mapstructure:"chat_toggle" yaml:"chat_toggle"`
	ChatInput    string `mapstructure:"chat_input" yaml:"chat_input"`
	GameFrameURL string `mapstructure:"game_frame_url" yaml:"game_frame_url"`
	JoinButton   string `mapstructure:"join_button" yaml:"join_button"`
	Round        string `mapstructure:"round" yaml:"round"`
	AnswerInput  string `mapstructure:"answer_input" yaml:"answer_input"`
	Combo        string `mapstructure:"combo" yaml:"combo"`
}

// FleetConfig bounds the number of bots run side by side.
type FleetConfig struct {
	MaxBots int `mapstructure:"max_bots" yaml:"max_bots"`
}

// DatabaseConfig holds the database connection details. An empty URL
// disables guess history.
type DatabaseConfig struct {
	URL string `mapstructure:"url" yaml:"url"`
}

// NewDefaultConfig creates a new configuration struct populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// SetDefaults initializes default values for every configuration key.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "bombparty")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)

	// -- Lexicon --
	v.SetDefault("lexicon.sources", []string{"words.txt"})
	v.SetDefault("lexicon.index_path", "combos.json")
	v.SetDefault("lexicon.workers", 8)
	v.SetDefault("lexicon.skip_missing", false)

	// -- Bot --
	v.SetDefault("bot.name", "bomb bot")
	v.SetDefault("bot.preset", "")
	v.SetDefault("bot.think_time.min", "1s")
	v.SetDefault("bot.think_time.max", "4s")
	v.SetDefault("bot.typing_speed.min", "50ms")
	v.SetDefault("bot.typing_speed.max", "350ms")
	v.SetDefault("bot.word_length", 7)
	v.SetDefault("bot.prefer_longer", false)
	v.SetDefault("bot.mistake_chance", 0.12)
	v.SetDefault("bot.speedup", 0.0)
	v.SetDefault("bot.humanlike", true)
	v.SetDefault("bot.poll_interval", "50ms")
	v.SetDefault("bot.repeat_guard", "200ms")
	v.SetDefault("bot.greeting", "")

	// -- Browser --
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.disable_gpu", true)
	v.SetDefault("browser.args", []string{})
	v.SetDefault("browser.room_url_template", "https://jklm.fun/%s")
	v.SetDefault("browser.navigation_timeout", "30s")
	v.SetDefault("browser.selectors.nickname", "//input[@placeholder]")
	v.SetDefault("browser.selectors.chat_toggle", "/html/body/div[1]/button")
	v.SetDefault("browser.selectors.chat_input", "/html/body/div[2]/div[4]/div[2]/div[2]/div[2]/textarea")
	v.SetDefault("browser.selectors.game_frame_url", "bombparty")
	v.SetDefault("browser.selectors.join_button", "/html/body/div[2]/div[3]/div[1]/div[1]/button")
	v.SetDefault("browser.selectors.round", "//*[contains(concat(' ', normalize-space(@class), ' '), ' round ')]")
	v.SetDefault("browser.selectors.answer_input", "/html/body/div[2]/div[3]/div[2]/div[2]/form/input")
	v.SetDefault("browser.selectors.combo", "/html/body/div[2]/div[2]/div[2]/div[2]/div")

	// -- Fleet --
	v.SetDefault("fleet.max_bots", 5)

	// -- Database --
	v.SetDefault("database.url", "")
}

// NewConfigFromViper creates a new configuration instance from a viper object.
// A preset named in bot.preset replaces the individual persona keys before
// validation.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config

	v.BindEnv("database.url", "BOMBPARTY_DATABASE_URL")

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if name := cfg.BotCfg.Preset; name != "" {
		bot, err := ApplyPreset(name, cfg.BotCfg)
		if err != nil {
			return nil, fmt.Errorf("invalid configuration: %w", err)
		}
		cfg.BotCfg = bot
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	if c.LexiconCfg.IndexPath == "" {
		return errors.New("lexicon.index_path is a required configuration field")
	}
	if c.LexiconCfg.Workers <= 0 {
		return errors.New("lexicon.workers must be a positive integer")
	}
	if err := c.BotCfg.Validate(); err != nil {
		return err
	}
	if !strings.Contains(c.BrowserCfg.RoomURLTemplate, "%s") {
		return errors.New("browser.room_url_template must contain a %s placeholder for the room code")
	}
	if c.BrowserCfg.NavigationTimeout <= 0 {
		return errors.New("browser.navigation_timeout must be a positive duration")
	}
	if c.FleetCfg.MaxBots <= 0 {
		return errors.New("fleet.max_bots must be a positive integer")
	}
	return nil
}

// Validate checks the bot persona.
func (b BotConfig) Validate() error {
	if err := validateRange("bot.think_time", b.ThinkTime); err != nil {
		return err
	}
	if err := validateRange("bot.typing_speed", b.TypingSpeed); err != nil {
		return err
	}
	if b.MistakeChance < 0 || b.MistakeChance > 1 {
		return errors.New("bot.mistake_chance must be between 0.0 and 1.0")
	}
	if b.Speedup < 0 {
		return errors.New("bot.speedup must not be negative")
	}
	if b.WordLength < 0 || b.WordLength > 20 {
		return errors.New("bot.word_length must be between 0 and 20")
	}
	if b.PollInterval <= 0 {
		return errors.New("bot.poll_interval must be a positive duration")
	}
	if b.RepeatGuard < 0 {
		return errors.New("bot.repeat_guard must not be negative")
	}
	return nil
}

func validateRange(key string, r humanoid.Range) error {
	if r.Min < 0 || r.Max < 0 {
		return fmt.Errorf("%s must not be negative", key)
	}
	if r.Min > r.Max {
		return fmt.Errorf("%s.min must not exceed %s.max", key, key)
	}
	return nil
}
