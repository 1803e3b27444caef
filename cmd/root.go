package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/luma/rosapi/cmd/gen"
)

var RootCmd = &cobra.Command{
	Use:   "rosctl",
	Short: "Talk to RouterOS devices over the management API",
	Long: `Talk to RouterOS devices over the management API

Connection settings are read from ROUTEROS_* environment variables, or
.env.local, and can be overridden with flags.
`,
	SilenceUsage: true,
}

func init() {
	RootCmd.AddCommand(RunCmd)
	RootCmd.AddCommand(EmulateCmd)
	RootCmd.AddCommand(VersionCmd)
	RootCmd.AddCommand(gen.RootCmd)
}

func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
