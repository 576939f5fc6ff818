package main

import (
	"fmt"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"podkeep/internal/api"
	"podkeep/internal/apiclient"
)

func newDownloadCommand(ctx *commandContext) *cobra.Command {
	downloadCmd := &cobra.Command{
		Use:   "download",
		Short: "Manage background episode downloads",
	}

	downloadCmd.AddCommand(newDownloadStartCommand(ctx))
	downloadCmd.AddCommand(newDownloadAllCommand(ctx))
	downloadCmd.AddCommand(newDownloadListCommand(ctx))
	downloadCmd.AddCommand(newDownloadStatusCommand(ctx))
	downloadCmd.AddCommand(newDownloadCancelCommand(ctx))
	downloadCmd.AddCommand(newDownloadRemoveCommand(ctx))
	downloadCmd.AddCommand(newBatchStatusCommand(ctx))

	return downloadCmd
}

func newDownloadStartCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "start <episode-id>",
		Short: "Start downloading an episode",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *apiclient.Client) error {
				task, err := client.StartDownload(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if task.Status == "completed" {
					fmt.Fprintf(out, "Episode already on disk at %s (task %s)\n", task.LocalPath, task.ID)
					return nil
				}
				fmt.Fprintf(out, "Download started: task %s\n", task.ID)
				return nil
			})
		},
	}
}

func newDownloadAllCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "all",
		Short: "Download every cached episode as a batch",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *apiclient.Client) error {
				batch, err := client.DownloadAll(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Batch %s started with %d downloads\n", batch.BatchID, len(batch.TaskIDs))
				return nil
			})
		},
	}
}

func newDownloadListCommand(ctx *commandContext) *cobra.Command {
	var statuses []string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List download tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *apiclient.Client) error {
				tasks, err := client.ListDownloads(cmd.Context(), statuses...)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(tasks) == 0 {
					fmt.Fprintln(out, "No download tasks")
					return nil
				}
				rows := make([][]string, 0, len(tasks))
				for _, task := range tasks {
					rows = append(rows, []string{
						task.ID,
						task.EpisodeID,
						task.Status,
						strconv.Itoa(task.Progress) + "%",
						taskSize(task),
						formatTimestamp(task.UpdatedAt),
					})
				}
				table := renderTable(
					[]string{"Task", "Episode", "Status", "Progress", "Size", "Updated"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignLeft},
				)
				fmt.Fprintln(out, table)
				return nil
			})
		},
	}

	cmd.Flags().StringSliceVar(&statuses, "status", nil, "Filter tasks by status (repeatable)")
	return cmd
}

func newDownloadStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status <task-id>",
		Short: "Show one download task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *apiclient.Client) error {
				task, err := client.DownloadStatus(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Task:     %s\n", task.ID)
				fmt.Fprintf(out, "Episode:  %s\n", task.EpisodeID)
				fmt.Fprintf(out, "Status:   %s\n", task.Status)
				fmt.Fprintf(out, "Progress: %d%%\n", task.Progress)
				if task.TotalBytes > 0 {
					fmt.Fprintf(out, "Size:     %s\n", humanize.IBytes(uint64(task.TotalBytes)))
				}
				if task.LocalPath != "" {
					fmt.Fprintf(out, "File:     %s\n", task.LocalPath)
				}
				if task.BatchID != "" {
					fmt.Fprintf(out, "Batch:    %s\n", task.BatchID)
				}
				if task.ErrorMessage != "" {
					fmt.Fprintf(out, "Error:    %s\n", task.ErrorMessage)
				}
				return nil
			})
		},
	}
}

func newDownloadCancelCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <task-id>",
		Short: "Cancel an in-flight download",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *apiclient.Client) error {
				task, err := client.CancelDownload(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Cancelled task %s\n", task.ID)
				return nil
			})
		},
	}
}

func newDownloadRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <task-id>",
		Short: "Delete a finished download task and its file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *apiclient.Client) error {
				if err := client.DeleteDownload(cmd.Context(), args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted task %s\n", args[0])
				return nil
			})
		},
	}
}

func newBatchStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "batch <batch-id>",
		Short: "Show a download-all batch",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *apiclient.Client) error {
				batch, err := client.BatchStatus(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Batch:     %s\n", batch.ID)
				fmt.Fprintf(out, "Status:    %s\n", batch.Status)
				fmt.Fprintf(out, "Total:     %d\n", batch.Total)
				fmt.Fprintf(out, "Completed: %d\n", batch.Completed)
				fmt.Fprintf(out, "Failed:    %d\n", batch.Failed)
				return nil
			})
		},
	}
}

func taskSize(task api.Task) string {
	if task.TotalBytes <= 0 {
		return "-"
	}
	return humanize.IBytes(uint64(task.TotalBytes))
}
