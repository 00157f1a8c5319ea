package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/xaenox/diary-bot/internal/ai"
	"github.com/xaenox/diary-bot/internal/bot"
	"github.com/xaenox/diary-bot/internal/diary"
	"github.com/xaenox/diary-bot/internal/topic"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Start the Telegram bot",
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			cfg, logger, store, err := setup(ctx)
			if err != nil {
				return err
			}
			defer logger.Sync()
			defer func() {
				err = multierr.Append(err, store.Close())
			}()

			if err := cfg.Validate(); err != nil {
				return err
			}
			loc, err := cfg.Diary.Location()
			if err != nil {
				return err
			}

			generator, err := ai.New(ctx, cfg.AI.Provider, ai.Options{
				APIKey:      cfg.AI.APIKey,
				Model:       cfg.AI.Model,
				MaxTokens:   cfg.AI.MaxTokens,
				Temperature: cfg.AI.Temperature,
				BaseURL:     cfg.AI.BaseURL,
			}, logger)
			if err != nil {
				return err
			}
			logger.Info("Reply generator ready",
				zap.String("provider", generator.Name()),
				zap.String("model", cfg.AI.Model),
				zap.Duration("timeout", cfg.AI.Timeout))

			clock := diary.SystemClock{}
			diaries := diary.NewService(store, generator, clock, diary.Config{
				Location:     loc,
				AITimeout:    cfg.AI.Timeout,
				HistoryLimit: cfg.Diary.HistoryLimit,
			}, logger)
			topics := topic.NewService(store, clock, loc, logger)

			b, err := bot.New(cfg.Telegram.Token, bot.Deps{
				Users:         store,
				Diaries:       diaries,
				Topics:        topics,
				IsAdmin:       cfg.IsAdmin,
				DefaultAdvice: cfg.Diary.DefaultAdvice,
			}, logger)
			if err != nil {
				return err
			}

			logger.Info("Bot started")
			err = b.Start(ctx)
			logger.Info("Bot stopped")
			return err
		},
	}
}
