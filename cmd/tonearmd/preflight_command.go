package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"tonearm/internal/config"
	"tonearm/internal/preflight"
)

func newPreflightCommand(configFlag *string) *cobra.Command {
	return &cobra.Command{
		Use:   "preflight",
		Short: "Check system dependencies and service reachability",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, _, err := config.Load(*configFlag)
			if err != nil {
				return err
			}

			rows := make([][]string, 0, 8)
			failed := 0

			for _, status := range preflight.CheckSystemDeps(cmd.Context(), cfg) {
				state := "ok"
				detail := status.Version
				if !status.Available {
					state = "missing"
					detail = status.Detail
					failed++
				}
				rows = append(rows, []string{status.Name, state, detail})
			}

			for _, result := range preflight.RunAll(cmd.Context(), cfg) {
				state := "ok"
				if !result.Passed {
					state = "failed"
					failed++
				}
				rows = append(rows, []string{result.Name, state, result.Detail})
			}

			table := renderTable(
				[]string{"Check", "State", "Detail"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft},
			)
			fmt.Fprintln(cmd.OutOrStdout(), table)

			if failed > 0 {
				return fmt.Errorf("%d %s failed", failed, pluralCheck(failed))
			}
			fmt.Fprintln(cmd.OutOrStdout(), "All checks passed")
			return nil
		},
	}
}

func pluralCheck(n int) string {
	if n == 1 {
		return "check"
	}
	return "checks"
}
