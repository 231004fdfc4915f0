package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newRunCmd() *cobra.Command {
	var noReset bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a single simulate, detect and resolve pass",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()

			pr, err := a.orch.RunOnce(cmd.Context(), !noReset)
			if err != nil {
				return err
			}

			e := pr.Event
			fmt.Fprintf(cmd.OutOrStdout(),
				"pass %d: %d conflicts, %d altitude changes, %d speed changes, %d unresolved, %d skipped\n",
				e.Pass, e.Conflicts, e.AltitudeChanges, e.SpeedChanges, e.Unresolved, e.Skipped)
			return nil
		},
	}

	cmd.Flags().BoolVar(&noReset, "no-reset", false, "continue from the existing state instead of rebuilding it from the flight plans")
	return cmd
}
