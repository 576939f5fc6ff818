package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"podkeep/internal/api"
	"podkeep/internal/apiclient"
)

func newEpisodesCommand(ctx *commandContext) *cobra.Command {
	episodesCmd := &cobra.Command{
		Use:   "episodes",
		Short: "Browse the cached episode catalog",
	}

	episodesCmd.AddCommand(newEpisodesListCommand(ctx))
	episodesCmd.AddCommand(newEpisodesShowCommand(ctx))
	episodesCmd.AddCommand(newEpisodesRandomCommand(ctx))
	episodesCmd.AddCommand(newEpisodesRefreshCommand(ctx))

	return episodesCmd
}

func newEpisodesListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List cached episodes",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *apiclient.Client) error {
				episodes, err := client.ListEpisodes(cmd.Context())
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(episodes) == 0 {
					fmt.Fprintln(out, "No episodes cached; run `podkeep episodes refresh` first")
					return nil
				}
				rows := make([][]string, 0, len(episodes))
				for _, ep := range episodes {
					rows = append(rows, []string{
						ep.ID,
						truncate(ep.Title, 60),
						formatTimestamp(ep.PublishDate),
						formatDuration(ep.DurationSeconds),
						yesNo(ep.Favorite),
					})
				}
				table := renderTable(
					[]string{"ID", "Title", "Published", "Duration", "Favorite"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
				)
				fmt.Fprintln(out, table)
				return nil
			})
		},
	}
}

func newEpisodesShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <episode-id>",
		Short: "Show one episode in detail",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *apiclient.Client) error {
				episode, err := client.GetEpisode(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				printEpisode(cmd.OutOrStdout(), episode)
				return nil
			})
		},
	}
}

func newEpisodesRandomCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "random",
		Short: "Pick a random episode",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *apiclient.Client) error {
				episode, err := client.RandomEpisode(cmd.Context())
				if err != nil {
					return err
				}
				printEpisode(cmd.OutOrStdout(), episode)
				return nil
			})
		},
	}
}

func newEpisodesRefreshCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Fetch the feed and update the episode cache",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *apiclient.Client) error {
				summary, err := client.RefreshFeed(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Feed refreshed: %d episodes (%d new, %d updated)\n",
					summary.Total, summary.Added, summary.Updated)
				return nil
			})
		},
	}
}

func printEpisode(out io.Writer, episode *api.Episode) {
	fmt.Fprintf(out, "ID:        %s\n", episode.ID)
	fmt.Fprintf(out, "Title:     %s\n", episode.Title)
	fmt.Fprintf(out, "Published: %s\n", formatTimestamp(episode.PublishDate))
	fmt.Fprintf(out, "Duration:  %s\n", formatDuration(episode.DurationSeconds))
	fmt.Fprintf(out, "Favorite:  %s\n", yesNo(episode.Favorite))
	fmt.Fprintf(out, "Audio:     %s\n", episode.AudioURL)
	if episode.ImageURL != "" {
		fmt.Fprintf(out, "Image:     %s\n", episode.ImageURL)
	}
	if episode.Description != "" {
		fmt.Fprintf(out, "\n%s\n", truncate(episode.Description, 500))
	}
}
