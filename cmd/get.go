package cmd

import (
	"github.com/spf13/cobra"
)

func newGetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "get <kind> <id>...",
		Short: "Fetch records by identifier",
		Long: `Fetch one or more records of a kind by identifier.

Identifiers are fetched concurrently (see --jobs) and printed in the order
given. Missing records are reported as warnings; the command fails only when
no identifier could be fetched.

Identifiers by kind:
  author        PAUSE ID (HAARG)
  module        package name (Moo::Role)
  distribution  distribution name (Moo)
  release       release name (Moo-2.005005)
  file, favorite, rating  document id`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := parseKind(args[0])
			if err != nil {
				return err
			}
			r, err := a.runner(cmd)
			if err != nil {
				return err
			}
			return r.Get(cmd.Context(), kind, args[1:], a.options())
		},
	}
}
