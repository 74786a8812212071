package cli

import (
	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Rescan on a schedule and alert on new campaigns",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().Watch(cmd.Context())
	},
}

func init() {
	addClusterFlags(watchCmd)
}
