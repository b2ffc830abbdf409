package cmd

import (
	"fmt"
	"time"

	"github.com/jparise/mcpan/internal/lookup"
	"github.com/jparise/mcpan/internal/timeparse"
	"github.com/spf13/cobra"
)

func newRdepsCmd(a *app) *cobra.Command {
	var (
		excludes      []string
		ignoreCase    bool
		count         bool
		changedWithin string
		changedAfter  string
		changedBefore string
	)

	cmd := &cobra.Command{
		Use:   "rdeps <module>",
		Short: "List distributions that depend on a module",
		Long: `List the distributions whose latest release requires a module at runtime.

A distribution name such as Foo-Bar is accepted for the module Foo::Bar.

Date filters accept an age (36h, 2w, 6mo, 1y) or a date (2024-01-31).`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if changedWithin != "" && changedAfter != "" {
				return fmt.Errorf("--changed-within and --changed-after cannot be combined")
			}
			if err := lookup.ValidatePatterns(excludes); err != nil {
				return err
			}

			opts := a.options()
			opts.Excludes = excludes
			opts.IgnoreCase = ignoreCase
			opts.CountOnly = count

			now := time.Now()
			for _, bound := range []struct {
				flag  string
				value string
				dst   **time.Time
			}{
				{"--changed-within", changedWithin, &opts.ChangedAfter},
				{"--changed-after", changedAfter, &opts.ChangedAfter},
				{"--changed-before", changedBefore, &opts.ChangedBefore},
			} {
				if bound.value == "" {
					continue
				}
				t, err := timeparse.ParseCutoff(bound.value, now)
				if err != nil {
					return fmt.Errorf("invalid %s: %w", bound.flag, err)
				}
				*bound.dst = &t
			}
			if opts.ChangedAfter != nil && opts.ChangedBefore != nil && !opts.ChangedAfter.Before(*opts.ChangedBefore) {
				return fmt.Errorf("the changed-after bound must be earlier than --changed-before")
			}

			r, err := a.runner(cmd)
			if err != nil {
				return err
			}
			return r.ReverseDependencies(cmd.Context(), args[0], opts)
		},
	}

	flags := cmd.Flags()
	addFilterFlags(flags, &excludes, &ignoreCase)
	flags.BoolVarP(&count, "count", "c", false,
		"print the number of dependent distributions only")
	flags.StringVar(&changedWithin, "changed-within", "",
		"only distributions released within this age (e.g., 2w, 1y)")
	flags.StringVar(&changedAfter, "changed-after", "",
		"only distributions released after this date or age")
	flags.StringVar(&changedBefore, "changed-before", "",
		"only distributions released before this date or age")
	return cmd
}
