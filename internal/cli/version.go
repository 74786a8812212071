package cli

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/yourdesigncoza/get-insider-db/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print build information",
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "insiderclusters %s\n", version.Version)
		fmt.Fprintf(out, "  commit:     %s\n", version.Commit)
		fmt.Fprintf(out, "  built:      %s\n", version.BuildDate)
		fmt.Fprintf(out, "  go:         %s %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
		fmt.Fprintf(out, "  user agent: %s\n", version.UserAgent())
	},
}
