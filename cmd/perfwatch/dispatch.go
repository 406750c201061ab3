package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/user/perfwatch/internal/entity"
)

func newDispatchCmd(envFile *string) *cobra.Command {
	var channel, page string

	cmd := &cobra.Command{
		Use:   "dispatch",
		Short: "Enqueue collection jobs once and print the report",
		Long: "Without flags every active channel's home page is enqueued. --channel enqueues every page\n" +
			"of one channel and --channel with --page enqueues a single page.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			scope, err := dispatchScope(channel, page)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			a, err := newApp(ctx, *envFile)
			if err != nil {
				return err
			}
			defer a.Close()

			report, err := a.dispatcher().Dispatch(ctx, scope)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(report)
		},
	}
	cmd.Flags().StringVar(&channel, "channel", "", "channel id")
	cmd.Flags().StringVar(&page, "page", "", "page id, requires --channel")
	return cmd
}

func dispatchScope(channel, page string) (entity.DispatchScope, error) {
	if channel == "" {
		if page != "" {
			return entity.DispatchScope{}, errors.New("--page requires --channel")
		}
		return entity.AllActiveChannels(), nil
	}
	channelID, err := uuid.Parse(channel)
	if err != nil {
		return entity.DispatchScope{}, fmt.Errorf("invalid --channel: %w", err)
	}
	if page == "" {
		return entity.OneChannel(channelID), nil
	}
	pageID, err := uuid.Parse(page)
	if err != nil {
		return entity.DispatchScope{}, fmt.Errorf("invalid --page: %w", err)
	}
	return entity.OnePage(channelID, pageID), nil
}
