package main

import (
	"encoding/json"
	"fmt"

	"github.com/saviobatista/sbs-deconflict/internal/conflict"
	"github.com/saviobatista/sbs-deconflict/internal/state"
	"github.com/spf13/cobra"
)

func newHotspotsCmd() *cobra.Command {
	var (
		top  int
		grid float64
	)

	cmd := &cobra.Command{
		Use:   "hotspots",
		Short: "Group the conflicts of the last report into grid cells and print them as JSON",
		Long: "hotspots reads the conflict report, places every cluster on the grid using the " +
			"positions simulated from the current state, and prints the busiest cells first.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if grid < 0 {
				return fmt.Errorf("invalid grid size %g", grid)
			}

			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()

			clusters, err := a.orch.Reports.ReadReport()
			if err != nil {
				return err
			}

			st, err := a.store.LoadAll(cmd.Context())
			if err != nil {
				a.lg.Warn("no stored state, using the filed flight plans", "error", err)
				st = state.FromFlightPlans(a.plans)
			}
			snapshots, err := a.sim.Snapshots(a.plans, st)
			if err != nil {
				return fmt.Errorf("failed to simulate flights: %w", err)
			}

			hotspots := conflict.Hotspots(snapshots, clusters, grid)
			if top > 0 && top < len(hotspots) {
				hotspots = hotspots[:top]
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(hotspots); err != nil {
				return fmt.Errorf("failed to encode hotspots: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&top, "top", 0, "print only the N busiest cells")
	cmd.Flags().Float64Var(&grid, "grid", conflict.DefaultHotspotGrid, "cell size in degrees")
	return cmd
}
