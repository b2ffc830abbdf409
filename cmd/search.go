package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/jparise/mcpan/internal/lookup"
	"github.com/jparise/mcpan/internal/metacpan"
	"github.com/jparise/mcpan/internal/searchspec"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newSearchCmd(a *app) *cobra.Command {
	var (
		either     []string
		not        []string
		specFile   string
		fields     []string
		sortBy     []string
		limit      int
		count      bool
		excludes   []string
		ignoreCase bool
	)

	cmd := &cobra.Command{
		Use:   "search <kind> [<field>=<value>...]",
		Short: "Search records of a kind",
		Long: `Search records of a kind.

Each <field>=<value> argument must match. --either adds alternatives of which
at least one must match, and --not excludes records matching any of its
conditions. Values containing "*" are wildcard patterns.

Complex searches can be written as a YAML (or JSON) document with --spec:

  either:
    - name: "Dave *"
    - name: "David *"
  not:
    - name: "Dave Cross"

Without conditions every record of the kind is listed.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := parseKind(args[0])
			if err != nil {
				return err
			}
			if err := lookup.ValidatePatterns(excludes); err != nil {
				return err
			}
			if limit < 0 {
				return fmt.Errorf("--limit cannot be negative")
			}

			sorts, err := parseSorts(sortBy)
			if err != nil {
				return err
			}

			opts := a.options()
			opts.Excludes = excludes
			opts.IgnoreCase = ignoreCase
			opts.CountOnly = count
			opts.Search = metacpan.SearchOptions{
				Fields: fields,
				Sort:   sorts,
				Limit:  limit,
			}

			r, err := a.runner(cmd)
			if err != nil {
				return err
			}

			if specFile != "" {
				if len(args) > 1 || len(either) > 0 || len(not) > 0 {
					return fmt.Errorf("--spec cannot be combined with other search conditions")
				}
				spec, err := loadSpecFile(specFile)
				if err != nil {
					return err
				}
				return r.Search(cmd.Context(), kind, spec, opts)
			}

			spec, ok, err := buildSpec(args[1:], either, not)
			if err != nil {
				return err
			}
			if !ok {
				return r.All(cmd.Context(), kind, opts)
			}
			return r.Search(cmd.Context(), kind, spec, opts)
		},
	}

	flags := cmd.Flags()
	flags.StringArrayVar(&either, "either", nil,
		"<field>=<value> alternative; at least one must match (can be specified multiple times)")
	flags.StringArrayVar(&not, "not", nil,
		"<field>=<value> condition that must not match (can be specified multiple times)")
	flags.StringVar(&specFile, "spec", "",
		"read the search from a YAML or JSON file")
	flags.StringSliceVar(&fields, "fields", nil,
		"only return these source fields")
	flags.StringSliceVar(&sortBy, "sort", nil,
		"sort by field; prefix with - for descending (e.g., -date)")
	flags.IntVarP(&limit, "limit", "n", 0,
		"maximum number of records (0 = no limit)")
	flags.BoolVarP(&count, "count", "c", false,
		"print the number of matches only")
	addFilterFlags(flags, &excludes, &ignoreCase)
	return cmd
}

// parseCondition splits a <field>=<value> argument.
func parseCondition(arg string) (field, value string, err error) {
	field, value, ok := strings.Cut(arg, "=")
	field = strings.TrimSpace(field)
	if !ok || field == "" {
		return "", "", fmt.Errorf("invalid condition %q (expected <field>=<value>)", arg)
	}
	return field, value, nil
}

// buildSpec assembles a search from command-line conditions. It reports
// false when no conditions were given.
func buildSpec(args, either, not []string) (searchspec.Spec, bool, error) {
	if len(args) == 0 && len(either) == 0 && len(not) == 0 {
		return searchspec.Spec{}, false, nil
	}

	var must searchspec.Spec
	if len(args) > 0 {
		m := make(map[string]string, len(args))
		for _, arg := range args {
			field, value, err := parseCondition(arg)
			if err != nil {
				return searchspec.Spec{}, false, err
			}
			if _, dup := m[field]; dup {
				return searchspec.Spec{}, false, fmt.Errorf("field %q given more than once", field)
			}
			m[field] = value
		}
		must = searchspec.Fields(m)
	}

	alternatives, err := conditionSpecs(either)
	if err != nil {
		return searchspec.Spec{}, false, err
	}
	exclusions, err := conditionSpecs(not)
	if err != nil {
		return searchspec.Spec{}, false, err
	}

	var spec searchspec.Spec
	switch {
	case len(alternatives) > 0 && len(args) > 0:
		spec = searchspec.All(must, searchspec.Either(alternatives...))
	case len(alternatives) > 0:
		spec = searchspec.Either(alternatives...)
	case len(exclusions) > 0 && len(args) > 0:
		spec = searchspec.All(must)
	case len(exclusions) > 0:
		return searchspec.Spec{}, false, fmt.Errorf("--not requires at least one other condition")
	default:
		spec = must
	}

	if len(exclusions) > 0 {
		spec = spec.Not(exclusions...)
	}
	return spec, true, spec.Err()
}

func conditionSpecs(conds []string) ([]searchspec.Spec, error) {
	specs := make([]searchspec.Spec, 0, len(conds))
	for _, c := range conds {
		field, value, err := parseCondition(c)
		if err != nil {
			return nil, err
		}
		specs = append(specs, searchspec.Match(field, value))
	}
	return specs, nil
}

// loadSpecFile reads a search spec from YAML. JSON documents are valid
// YAML and load the same way.
func loadSpecFile(path string) (searchspec.Spec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return searchspec.Spec{}, fmt.Errorf("failed to read spec file: %w", err)
	}

	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return searchspec.Spec{}, fmt.Errorf("failed to parse spec file %s: %w", path, err)
	}
	if doc == nil {
		return searchspec.Spec{}, fmt.Errorf("spec file %s is empty", path)
	}
	return searchspec.Parse(doc)
}

// parseSorts converts sort arguments such as "-date" or "name".
func parseSorts(args []string) ([]metacpan.Sort, error) {
	sorts := make([]metacpan.Sort, 0, len(args))
	for _, arg := range args {
		arg = strings.TrimSpace(arg)
		desc := strings.HasPrefix(arg, "-")
		field := strings.TrimPrefix(strings.TrimPrefix(arg, "-"), "+")
		if field == "" {
			return nil, fmt.Errorf("invalid sort %q", arg)
		}
		sorts = append(sorts, metacpan.Sort{Field: field, Descending: desc})
	}
	return sorts, nil
}
