package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/bombparty-cli/internal/config"
	"github.com/xkilldash9x/bombparty-cli/internal/fleet"
	"github.com/xkilldash9x/bombparty-cli/internal/observability"
	"github.com/xkilldash9x/bombparty-cli/internal/service"
)

// playOptions are the flag overrides of the play command.
type playOptions struct {
	name         string
	bots         int
	preset       string
	wordLength   int
	preferLonger bool
	headful      bool
	greeting     string
}

func newPlayCmd(factory service.ComponentFactory) *cobra.Command {
	var opts playOptions

	playCmd := &cobra.Command{
		Use:   "play ROOM",
		Short: "Join a room and play until interrupted",
		Long: `Opens one browser per bot, joins the room (a four letter code or a full URL)
and plays every round until SIGINT/SIGTERM or until every bot has been
disconnected.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := getConfigFromContext(ctx)
			if err != nil {
				return err
			}
			if err := applyPlayOverrides(cmd, cfg, opts); err != nil {
				return err
			}
			return runPlay(ctx, observability.GetLogger(), cfg, args[0], opts.bots, factory)
		},
	}

	playCmd.Flags().StringVarP(&opts.name, "name", "n", "", "Display name. ' bot' is appended when missing. Overrides bot.name.")
	playCmd.Flags().IntVarP(&opts.bots, "bots", "b", 1, "Number of bots to launch.")
	playCmd.Flags().StringVarP(&opts.preset, "preset", "p", "", fmt.Sprintf("Persona preset %v. Overrides bot.preset.", config.Presets()))
	playCmd.Flags().IntVarP(&opts.wordLength, "word-length", "l", 0, "Preferred word length, 0 for none. Overrides bot.word_length.")
	playCmd.Flags().BoolVar(&opts.preferLonger, "prefer-longer", false, "Prefer words longer than --word-length.")
	playCmd.Flags().BoolVar(&opts.headful, "headful", false, "Show the browser windows.")
	playCmd.Flags().StringVar(&opts.greeting, "greeting", "", "Chat message posted on join. Overrides bot.greeting.")
	return playCmd
}

// applyPlayOverrides folds changed flags into cfg. A preset is applied first
// so explicit persona flags win over it.
func applyPlayOverrides(cmd *cobra.Command, cfg *config.Config, opts playOptions) error {
	b := cfg.Bot()
	flags := cmd.Flags()

	if flags.Changed("preset") {
		var err error
		if b, err = config.ApplyPreset(opts.preset, b); err != nil {
			return err
		}
	}
	if flags.Changed("name") {
		b.Name = opts.name
	}
	if flags.Changed("word-length") {
		b.WordLength = opts.wordLength
	}
	if flags.Changed("prefer-longer") {
		b.PreferLonger = opts.preferLonger
	}
	if flags.Changed("greeting") {
		b.Greeting = opts.greeting
	}
	if err := b.Validate(); err != nil {
		return fmt.Errorf("invalid bot settings: %w", err)
	}
	cfg.SetBot(b)

	if flags.Changed("headful") {
		cfg.SetBrowserHeadless(!opts.headful)
	}

	if opts.bots < 1 {
		return errors.New("--bots must be at least 1")
	}
	if opts.bots > cfg.Fleet().MaxBots {
		return fmt.Errorf("--bots %d exceeds fleet.max_bots (%d)", opts.bots, cfg.Fleet().MaxBots)
	}
	return nil
}

// runPlay launches count bots in room and blocks until ctx ends or every
// bot has stopped on its own.
func runPlay(ctx context.Context, logger *zap.Logger, cfg config.Interface, room string, count int, factory service.ComponentFactory) error {
	components, err := factory.Create(ctx, cfg, room, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize components: %w", err)
	}
	defer components.Shutdown()

	persona := service.PersonaFromConfig(cfg.Bot())
	launched := 0
	for i := 0; i < count; i++ {
		p := persona
		if count > 1 {
			p.Bot.Name = fmt.Sprintf("%s %d", persona.Bot.Name, i+1)
		}
		id, err := components.Fleet.Launch(ctx, p)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			logger.Error("Failed to launch bot.", zap.String("name", fleet.BotName(p.Bot.Name)), zap.Error(err))
			continue
		}
		launched++
		logger.Debug("Bot ready.", zap.String("bot_id", id))
	}
	if launched == 0 {
		return errors.New("no bot could join the room")
	}

	logger.Info("Playing.", zap.String("room", room), zap.Int("bots", launched), zap.String("preset", cfg.Bot().Preset))

	done := make(chan struct{})
	go func() {
		components.Fleet.Wait()
		close(done)
	}()

	select {
	case <-done:
		logger.Info("Every bot has left the room.")
	case <-ctx.Done():
		logger.Info("Interrupted, stopping bots.")
		for _, st := range components.Fleet.Status() {
			logger.Info("Bot summary.",
				zap.String("name", st.Name),
				zap.String("state", st.State.String()),
				zap.Int("guesses", st.Guesses))
		}
	}
	return nil
}
