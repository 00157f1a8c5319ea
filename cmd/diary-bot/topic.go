package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/xaenox/diary-bot/internal/diary"
	"github.com/xaenox/diary-bot/internal/models"
	"github.com/xaenox/diary-bot/internal/topic"
	"go.uber.org/multierr"
)

func newTopicCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "topic",
		Short: "Manage daily discussion topics",
	}
	cmd.AddCommand(newTopicSetCmd(), newTopicShowCmd())
	return cmd
}

func newTopicSetCmd() *cobra.Command {
	var date string

	cmd := &cobra.Command{
		Use:   "set TITLE",
		Short: "Register the topic for a day (today by default)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			cfg, logger, store, err := setup(cmd.Context())
			if err != nil {
				return err
			}
			defer logger.Sync()
			defer func() {
				err = multierr.Append(err, store.Close())
			}()

			loc, err := cfg.Diary.Location()
			if err != nil {
				return err
			}
			svc := topic.NewService(store, diary.SystemClock{}, loc, logger)

			day, err := topicDate(date, loc)
			if err != nil {
				return err
			}
			t, err := svc.Set(cmd.Context(), day, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", t.Date, t.Title)
			return nil
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "day of the topic (YYYY-MM-DD)")
	return cmd
}

func newTopicShowCmd() *cobra.Command {
	var date string

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the topic for a day (today by default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			cfg, logger, store, err := setup(cmd.Context())
			if err != nil {
				return err
			}
			defer logger.Sync()
			defer func() {
				err = multierr.Append(err, store.Close())
			}()

			loc, err := cfg.Diary.Location()
			if err != nil {
				return err
			}
			svc := topic.NewService(store, diary.SystemClock{}, loc, logger)

			day, err := topicDate(date, loc)
			if err != nil {
				return err
			}
			t, err := svc.Get(cmd.Context(), day)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", t.Date, t.Title)
			return nil
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "day of the topic (YYYY-MM-DD)")
	return cmd
}

func topicDate(flag string, loc *time.Location) (models.Date, error) {
	if flag != "" {
		return models.ParseDate(flag)
	}
	return models.DateOf(time.Now().In(loc)), nil
}
