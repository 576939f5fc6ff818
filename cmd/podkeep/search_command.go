package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"podkeep/internal/apiclient"
)

func newSearchCommand(ctx *commandContext) *cobra.Command {
	var artist string
	var title string

	cmd := &cobra.Command{
		Use:   "search",
		Short: "Search the Spotify catalog for a track",
		RunE: func(cmd *cobra.Command, args []string) error {
			if artist == "" && title == "" {
				return errors.New("at least one of --artist or --title is required")
			}
			return ctx.withClient(func(client *apiclient.Client) error {
				result, err := client.SearchTracks(cmd.Context(), artist, title)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if result.Demo {
					fmt.Fprintln(out, "Spotify credentials are not configured; showing demo results")
				}
				if len(result.Tracks) == 0 {
					fmt.Fprintln(out, "No matches")
					return nil
				}
				rows := make([][]string, 0, len(result.Tracks))
				for _, track := range result.Tracks {
					rows = append(rows, []string{
						truncate(track.Name, 40),
						truncate(track.Artists, 30),
						truncate(track.Album, 30),
						orDash(track.SpotifyURL),
					})
				}
				table := renderTable(
					[]string{"Track", "Artist", "Album", "Link"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft},
				)
				fmt.Fprintln(out, table)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&artist, "artist", "", "Artist name")
	cmd.Flags().StringVar(&title, "title", "", "Track title")
	return cmd
}
