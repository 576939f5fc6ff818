package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"podkeep/internal/apiclient"
)

func newFavoritesCommand(ctx *commandContext) *cobra.Command {
	favoritesCmd := &cobra.Command{
		Use:   "favorites",
		Short: "Manage favorite episodes",
	}

	favoritesCmd.AddCommand(newFavoritesListCommand(ctx))
	favoritesCmd.AddCommand(newFavoritesAddCommand(ctx))
	favoritesCmd.AddCommand(newFavoritesRemoveCommand(ctx))

	return favoritesCmd
}

func newFavoritesListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List favorite episodes",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *apiclient.Client) error {
				episodes, err := client.ListFavoriteEpisodes(cmd.Context())
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(episodes) == 0 {
					fmt.Fprintln(out, "No favorite episodes")
					return nil
				}
				rows := make([][]string, 0, len(episodes))
				for _, ep := range episodes {
					rows = append(rows, []string{
						ep.ID,
						truncate(ep.Title, 60),
						formatTimestamp(ep.PublishDate),
						formatDuration(ep.DurationSeconds),
					})
				}
				table := renderTable(
					[]string{"ID", "Title", "Published", "Duration"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight},
				)
				fmt.Fprintln(out, table)
				return nil
			})
		},
	}
}

func newFavoritesAddCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "add <episode-id>",
		Short: "Mark an episode as favorite",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *apiclient.Client) error {
				if err := client.AddFavoriteEpisode(cmd.Context(), args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Favorited episode %s\n", args[0])
				return nil
			})
		},
	}
}

func newFavoritesRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <episode-id>",
		Short: "Remove an episode from favorites",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *apiclient.Client) error {
				if err := client.RemoveFavoriteEpisode(cmd.Context(), args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Unfavorited episode %s\n", args[0])
				return nil
			})
		},
	}
}
