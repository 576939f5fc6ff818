package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"podkeep/internal/apiclient"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon status",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)

			return ctx.withClient(func(client *apiclient.Client) error {
				status, err := client.Status(cmd.Context())
				if err != nil {
					fmt.Fprintln(out, renderStatusLine("Daemon", statusError, "not reachable", colorize))
					return err
				}

				fmt.Fprintln(out, renderStatusLine("Daemon", statusOK, fmt.Sprintf("running (pid %d)", status.PID), colorize))
				fmt.Fprintln(out, renderStatusLine("Database", statusInfo, status.DatabasePath, colorize))
				fmt.Fprintln(out, renderStatusLine("Episodes", statusInfo, fmt.Sprintf("%d cached", status.Episodes), colorize))
				fmt.Fprintln(out, renderStatusLine("Favorites", statusInfo, fmt.Sprintf("%d episodes, %d songs", status.FavoriteEpisodes, status.FavoriteSongs), colorize))

				spotifyKind := statusWarn
				spotifyMsg := "not configured (demo mode)"
				if status.SpotifyConfigured {
					spotifyKind = statusOK
					spotifyMsg = "configured"
				}
				fmt.Fprintln(out, renderStatusLine("Spotify", spotifyKind, spotifyMsg, colorize))

				if len(status.Tasks) == 0 {
					fmt.Fprintln(out, renderStatusLine("Downloads", statusInfo, "none", colorize))
					return nil
				}

				names := make([]string, 0, len(status.Tasks))
				for name := range status.Tasks {
					names = append(names, name)
				}
				sort.Strings(names)
				for _, name := range names {
					kind := statusInfo
					if name == "failed" {
						kind = statusWarn
					}
					fmt.Fprintln(out, renderStatusLine("Downloads "+name, kind, fmt.Sprintf("%d", status.Tasks[name]), colorize))
				}
				return nil
			})
		},
	}
}
