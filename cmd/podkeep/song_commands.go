package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"podkeep/internal/apiclient"
)

func newSongsCommand(ctx *commandContext) *cobra.Command {
	songsCmd := &cobra.Command{
		Use:   "songs",
		Short: "Manage favorite songs heard in episodes",
	}

	songsCmd.AddCommand(newSongsListCommand(ctx))
	songsCmd.AddCommand(newSongsAddCommand(ctx))
	songsCmd.AddCommand(newSongsUpdateCommand(ctx))
	songsCmd.AddCommand(newSongsRemoveCommand(ctx))

	return songsCmd
}

func newSongsListCommand(ctx *commandContext) *cobra.Command {
	var episodeID string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List favorite songs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *apiclient.Client) error {
				songs, err := client.ListSongs(cmd.Context(), episodeID)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(songs) == 0 {
					fmt.Fprintln(out, "No favorite songs")
					return nil
				}
				rows := make([][]string, 0, len(songs))
				for _, song := range songs {
					rows = append(rows, []string{
						strconv.FormatInt(song.ID, 10),
						song.EpisodeID,
						formatDuration(song.PositionSeconds),
						truncate(song.SongTitle, 40),
						truncate(song.Artist, 30),
						orDash(song.SpotifyURL),
					})
				}
				table := renderTable(
					[]string{"ID", "Episode", "At", "Title", "Artist", "Spotify"},
					rows,
					[]columnAlignment{alignRight, alignLeft, alignRight, alignLeft, alignLeft, alignLeft},
				)
				fmt.Fprintln(out, table)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&episodeID, "episode", "", "Only list songs for this episode")
	return cmd
}

func songRequestFlags(cmd *cobra.Command, req *apiclient.SongRequest) {
	cmd.Flags().StringVar(&req.EpisodeID, "episode", "", "Episode the song was heard in")
	cmd.Flags().IntVar(&req.PositionSeconds, "position", 0, "Position in the episode, in seconds")
	cmd.Flags().StringVar(&req.SongTitle, "title", "", "Song title")
	cmd.Flags().StringVar(&req.Artist, "artist", "", "Song artist")
	cmd.Flags().StringVar(&req.SpotifyURL, "spotify-url", "", "Spotify link for the track")
}

func newSongsAddCommand(ctx *commandContext) *cobra.Command {
	var req apiclient.SongRequest

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Record a favorite song",
		RunE: func(cmd *cobra.Command, args []string) error {
			if req.EpisodeID == "" || req.SongTitle == "" {
				return errors.New("--episode and --title are required")
			}
			return ctx.withClient(func(client *apiclient.Client) error {
				song, err := client.AddSong(cmd.Context(), req)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Saved song %d: %s\n", song.ID, song.SongTitle)
				return nil
			})
		},
	}

	songRequestFlags(cmd, &req)
	return cmd
}

func newSongsUpdateCommand(ctx *commandContext) *cobra.Command {
	var req apiclient.SongRequest

	cmd := &cobra.Command{
		Use:   "update <song-id>",
		Short: "Update a favorite song",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid song id %q", args[0])
			}
			return ctx.withClient(func(client *apiclient.Client) error {
				song, err := client.UpdateSong(cmd.Context(), id, req)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Updated song %d: %s\n", song.ID, song.SongTitle)
				return nil
			})
		},
	}

	songRequestFlags(cmd, &req)
	return cmd
}

func newSongsRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <song-id>",
		Short: "Delete a favorite song",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid song id %q", args[0])
			}
			return ctx.withClient(func(client *apiclient.Client) error {
				if err := client.RemoveSong(cmd.Context(), id); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted song %d\n", id)
				return nil
			})
		},
	}
}
