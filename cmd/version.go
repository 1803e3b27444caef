package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/luma/rosapi/internal/meta"
)

var VersionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the build information",
	RunE: func(cmd *cobra.Command, args []string) error {
		info := meta.GetInfo()

		fmt.Fprintln(cmd.OutOrStdout(), info)
		if info.BuildTime != "" {
			fmt.Fprintln(cmd.OutOrStdout(), "built", info.BuildTime)
		}

		return nil
	},
}
