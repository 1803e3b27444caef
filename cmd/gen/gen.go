package gen

import (
	"github.com/spf13/cobra"
)

// RootCmd groups the generators that produce rosctl documentation.
var RootCmd = &cobra.Command{
	Use:   "gen",
	Short: "Generate rosctl documentation",
	Long: `Generate rosctl documentation

Usage
	rosctl gen man --dir ./man
`,
}

func init() {
	RootCmd.AddCommand(ManPagesCmd)
}
