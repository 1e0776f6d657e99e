package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"didbase/internal/config"
)

func newVersionCmd(flags *cliFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			info := config.NewBuildInfo()
			if flags.json {
				return writeJSON(cmd.OutOrStdout(), info)
			}
			_, err := fmt.Fprintln(cmd.OutOrStdout(), info.String())
			return err
		},
	}
}
