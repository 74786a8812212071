package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/yourdesigncoza/get-insider-db/internal/app"
)

var (
	entityCIK       string
	entityType      string
	entityFundLike  bool
	entityRationale string
)

var entitiesCmd = &cobra.Command{
	Use:   "entities",
	Short: "Inspect and correct cached party classifications",
}

var entitiesShowCmd = &cobra.Command{
	Use:   "show NAME",
	Short: "Show the cached classification of a party",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().ShowEntity(cmd.Context(), strings.Join(args, " "))
	},
}

var entitiesSetCmd = &cobra.Command{
	Use:   "set NAME",
	Short: "Store a manual classification for a party",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().SetEntity(cmd.Context(), app.EntityOptions{
			Name:       strings.Join(args, " "),
			CIK:        entityCIK,
			EntityType: entityType,
			FundLike:   entityFundLike,
			Rationale:  entityRationale,
		})
	},
}

var entitiesInvalidateCmd = &cobra.Command{
	Use:   "invalidate NAME",
	Short: "Drop the cached classification so the next scan recomputes it",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().InvalidateEntity(cmd.Context(), strings.Join(args, " "))
	},
}

func init() {
	entitiesSetCmd.Flags().StringVar(&entityCIK, "cik", "", "Reporting owner CIK")
	entitiesSetCmd.Flags().StringVar(&entityType, "type", "person", "Entity type: person, fund_or_investment_vehicle, operating_company, trust_or_foundation, other, unknown")
	entitiesSetCmd.Flags().BoolVar(&entityFundLike, "fund-like", false, "Treat the party as a fund")
	entitiesSetCmd.Flags().StringVar(&entityRationale, "rationale", "", "Why this classification is correct")

	entitiesCmd.AddCommand(entitiesShowCmd)
	entitiesCmd.AddCommand(entitiesSetCmd)
	entitiesCmd.AddCommand(entitiesInvalidateCmd)
}
