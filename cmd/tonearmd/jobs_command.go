package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"tonearm/internal/config"
	"tonearm/internal/history"
)

func newJobsCommand(configFlag *string) *cobra.Command {
	jobsCmd := &cobra.Command{
		Use:   "jobs",
		Short: "Inspect archived jobs",
	}

	jobsCmd.AddCommand(newJobsHistoryCommand(configFlag))

	return jobsCmd
}

func newJobsHistoryCommand(configFlag *string) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recently finished jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, _, err := config.Load(*configFlag)
			if err != nil {
				return err
			}
			if !cfg.History.Enabled {
				fmt.Fprintln(cmd.OutOrStdout(), "Job history is disabled")
				return nil
			}

			store, err := history.Open(cfg.History.Path)
			if err != nil {
				return fmt.Errorf("open history store: %w", err)
			}
			defer func() { _ = store.Close() }()

			entries, err := store.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No archived jobs")
				return nil
			}

			rows := make([][]string, 0, len(entries))
			for _, entry := range entries {
				rows = append(rows, []string{
					shortID(entry.ID),
					entry.Status,
					historyTitle(entry),
					entry.Format,
					strconv.Itoa(entry.ResultCount),
					strconv.Itoa(entry.Skipped),
					entry.FinishedAt.Local().Format(time.DateTime),
				})
			}
			table := renderTable(
				[]string{"ID", "Status", "Title", "Format", "Items", "Skipped", "Finished"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignLeft},
			)
			fmt.Fprintln(cmd.OutOrStdout(), table)
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of jobs to list")
	return cmd
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func historyTitle(entry history.Entry) string {
	if entry.TitleHint != "" {
		return entry.TitleHint
	}
	return entry.Source
}
