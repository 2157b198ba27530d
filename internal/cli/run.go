package cli

import (
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the pool monitoring service",
	Long:  "Run the scheduler loop: hourly price samples, half-hour pool scans, and the daily rollover summary.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().Run(cmd.Context())
	},
}
