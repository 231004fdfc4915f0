package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newIterateCmd() *cobra.Command {
	var (
		noReset   bool
		maxPasses int
	)

	cmd := &cobra.Command{
		Use:   "iterate",
		Short: "Repeat passes until the conflict count converges",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()

			if cmd.Flags().Changed("max-passes") {
				if maxPasses < 1 {
					return fmt.Errorf("--max-passes must be at least 1, got %d", maxPasses)
				}
				a.orch.Rules.MaxPasses = maxPasses
			}

			summary, err := a.orch.Run(cmd.Context(), !noReset)
			if err != nil {
				return err
			}

			history := make([]string, len(summary.History))
			for i, c := range summary.History {
				history[i] = fmt.Sprint(c)
			}
			status := "failure"
			if summary.Success {
				status = "success"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "run %s: %s (%s) after %d passes, %d conflicts remaining\n",
				summary.RunID, summary.Outcome, status, summary.Passes, summary.FinalCount)
			fmt.Fprintf(cmd.OutOrStdout(), "history: %s\n", strings.Join(history, " "))
			return nil
		},
	}

	cmd.Flags().BoolVar(&noReset, "no-reset", false, "continue from the existing state instead of rebuilding it from the flight plans")
	cmd.Flags().IntVar(&maxPasses, "max-passes", 0, "override MAX_PASSES")
	return cmd
}
