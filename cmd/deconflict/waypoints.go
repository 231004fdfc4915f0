package main

import (
	"encoding/json"
	"fmt"

	"github.com/saviobatista/sbs-deconflict/internal/flightdata"
	"github.com/saviobatista/sbs-deconflict/internal/route"
	"github.com/spf13/cobra"
)

type waypointCount struct {
	Waypoint string `json:"waypoint"`
	Flights  int    `json:"flights"`
}

func newWaypointsCmd() *cobra.Command {
	var top int

	cmd := &cobra.Command{
		Use:   "waypoints",
		Short: "Print the waypoint index of the flight plans as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig()
			if err != nil {
				return err
			}
			plans, err := flightdata.LoadFlightPlans(cfg.FlightsFile)
			if err != nil {
				return err
			}

			index := route.WaypointIndex(plans)
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")

			if top <= 0 {
				if err := enc.Encode(index); err != nil {
					return fmt.Errorf("failed to encode waypoint index: %w", err)
				}
				return nil
			}

			busiest := route.BusiestWaypoints(index, top)
			counts := make([]waypointCount, 0, len(busiest))
			for _, wp := range busiest {
				counts = append(counts, waypointCount{Waypoint: wp, Flights: len(index[wp])})
			}
			if err := enc.Encode(counts); err != nil {
				return fmt.Errorf("failed to encode waypoint counts: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&top, "top", 0, "print only the N busiest waypoints with their flight counts")
	return cmd
}
