package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var (
	exclusionsAll    bool
	exclusionsReason string
)

var exclusionsCmd = &cobra.Command{
	Use:   "exclusions",
	Short: "Manage party name exclusion rules",
}

var exclusionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List exclusion rules",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().ListExclusions(cmd.Context(), exclusionsAll)
	},
}

var exclusionsAddCmd = &cobra.Command{
	Use:   "add PATTERN",
	Short: "Add an active rule; PATTERN is matched case-insensitively as a substring",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().AddExclusion(cmd.Context(), args[0], exclusionsReason)
	},
}

var exclusionsDeactivateCmd = &cobra.Command{
	Use:   "deactivate ID",
	Short: "Deactivate a rule",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setExclusionActive(cmd, args[0], false)
	},
}

var exclusionsActivateCmd = &cobra.Command{
	Use:   "activate ID",
	Short: "Reactivate a rule",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setExclusionActive(cmd, args[0], true)
	},
}

func setExclusionActive(cmd *cobra.Command, rawID string, active bool) error {
	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil || id <= 0 {
		return fmt.Errorf("invalid exclusion id %q", rawID)
	}
	return getApp().SetExclusionActive(cmd.Context(), id, active)
}

func init() {
	exclusionsListCmd.Flags().BoolVar(&exclusionsAll, "all", false, "Include inactive rules")
	exclusionsAddCmd.Flags().StringVar(&exclusionsReason, "reason", "", "Why the party is excluded")

	exclusionsCmd.AddCommand(exclusionsListCmd)
	exclusionsCmd.AddCommand(exclusionsAddCmd)
	exclusionsCmd.AddCommand(exclusionsDeactivateCmd)
	exclusionsCmd.AddCommand(exclusionsActivateCmd)
}
