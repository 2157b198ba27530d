package cli

import (
	"github.com/spf13/cobra"
)

var onceCmd = &cobra.Command{
	Use:   "once",
	Short: "Run a single monitoring pass and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().Once(cmd.Context())
	},
}
