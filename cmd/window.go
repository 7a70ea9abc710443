package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/fleetops/shiftd/core/model"
	"github.com/fleetops/shiftd/core/schedule"
)

var (
	windowStart string
	windowEnd   string
	windowGrace string
)

var windowCmd = &cobra.Command{
	Use:   "window",
	Short: "Print the grace-adjusted window and trigger expressions for a shift",
	RunE:  runWindow,
}

func init() {
	windowCmd.Flags().StringVar(&windowStart, "start", "", "shift start, 12-hour wall clock (e.g. \"07:30:00 AM\")")
	windowCmd.Flags().StringVar(&windowEnd, "end", "", "shift end, 12-hour wall clock")
	windowCmd.Flags().StringVar(&windowGrace, "grace", "00:00:00", "grace time (HH:MM:SS)")
	rootCmd.AddCommand(windowCmd)
}

func runWindow(cmd *cobra.Command, args []string) error {
	adj := schedule.AdjustWindow(model.ShiftWindow{
		StartTime: windowStart,
		EndTime:   windowEnd,
		GraceTime: windowGrace,
	})
	fmt.Printf("adjusted start: %s  (%s)\n", adj.Start, adj.StartExpr)
	fmt.Printf("adjusted end:   %s  (%s)\n", adj.End, adj.EndExpr)

	now := time.Now()
	if next, err := schedule.NextAfter(adj.StartExpr, now); err == nil {
		fmt.Printf("next start fire: %s\n", next.Format(time.RFC3339))
	}
	if next, err := schedule.NextAfter(adj.EndExpr, now); err == nil {
		fmt.Printf("next end fire:   %s\n", next.Format(time.RFC3339))
	}
	return nil
}
