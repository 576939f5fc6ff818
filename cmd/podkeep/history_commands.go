package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"podkeep/internal/apiclient"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Playback history",
	}

	historyCmd.AddCommand(newHistoryListCommand(ctx))
	historyCmd.AddCommand(newHistoryAddCommand(ctx))

	return historyCmd
}

func newHistoryListCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Show recent playback events",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *apiclient.Client) error {
				entries, err := client.History(cmd.Context(), limit)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(entries) == 0 {
					fmt.Fprintln(out, "No playback history")
					return nil
				}
				rows := make([][]string, 0, len(entries))
				for _, entry := range entries {
					title := entry.EpisodeTitle
					if title == "" {
						title = entry.EpisodeID
					}
					rows = append(rows, []string{
						formatTimestamp(entry.PlayedAt),
						truncate(title, 60),
						formatDuration(entry.PositionSeconds),
					})
				}
				table := renderTable(
					[]string{"Played", "Episode", "Position"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignRight},
				)
				fmt.Fprintln(out, table)
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum entries to show (default 10)")
	return cmd
}

func newHistoryAddCommand(ctx *commandContext) *cobra.Command {
	var position int

	cmd := &cobra.Command{
		Use:   "add <episode-id>",
		Short: "Record a playback event",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *apiclient.Client) error {
				if err := client.AddHistory(cmd.Context(), args[0], position); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Recorded playback of %s at %s\n", args[0], formatDuration(position))
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&position, "position", 0, "Playback position in seconds")
	return cmd
}
