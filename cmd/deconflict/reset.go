package main

import (
	"fmt"

	"github.com/saviobatista/sbs-deconflict/internal/flightdata"
	"github.com/saviobatista/sbs-deconflict/internal/state"
	"github.com/spf13/cobra"
)

func newResetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Rebuild the simulation state from the flight plans",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, lg, err := loadConfig()
			if err != nil {
				return err
			}

			plans, err := flightdata.LoadFlightPlans(cfg.FlightsFile)
			if err != nil {
				return err
			}

			store, err := state.Open(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			st, err := state.Reset(cmd.Context(), store, plans)
			if err != nil {
				return err
			}
			lg.Info("state reset", "aircraft", len(st), "backend", cfg.StateBackend)
			fmt.Fprintf(cmd.OutOrStdout(), "state reset: %d aircraft\n", len(st))
			return nil
		},
	}
}
