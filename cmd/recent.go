package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func newRecentCmd(a *app) *cobra.Command {
	var (
		excludes   []string
		ignoreCase bool
	)

	cmd := &cobra.Command{
		Use:   "recent [<count>]",
		Short: "List the most recent releases",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n := 10
			if len(args) == 1 {
				v, err := strconv.Atoi(args[0])
				if err != nil || v < 1 {
					return fmt.Errorf("invalid count %q: must be a positive integer", args[0])
				}
				n = v
			}

			r, err := a.runner(cmd)
			if err != nil {
				return err
			}
			opts := a.options()
			opts.Excludes = excludes
			opts.IgnoreCase = ignoreCase
			return r.Recent(cmd.Context(), n, opts)
		},
	}
	addFilterFlags(cmd.Flags(), &excludes, &ignoreCase)
	return cmd
}
