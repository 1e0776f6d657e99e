package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newUnitsCmd(flags *cliFlags, logOut io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "units <time>...",
		Short: "List the monthly cache units a request would use and whether they are fresh",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, _, err := setup(cmd, flags, logOut)
			if err != nil {
				return err
			}
			units, err := r.PlanUnits(cmd.Context(), args, flags.station, flags.options()...)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if flags.json {
				return writeJSON(out, units)
			}
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "UNIT\tVERDICT\tBOUND\tPATH")
			for _, u := range units {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", u.Stem, u.Verdict, u.Bound.Format("2006-01-02T15:04:05Z"), u.ArtifactPath)
			}
			return tw.Flush()
		},
	}
}
