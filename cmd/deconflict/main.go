package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "deconflict",
		Short: "Detect and resolve losses of separation in a flight schedule",
		Long: "deconflict simulates a flight schedule, finds aircraft closer than 5 nm and 2000 ft, " +
			"and adjusts cruise altitudes and speeds until the schedule converges.",
		SilenceUsage: true,
	}

	root.AddCommand(
		newRunCmd(),
		newIterateCmd(),
		newResetCmd(),
		newWaypointsCmd(),
		newHotspotsCmd(),
	)
	return root
}
