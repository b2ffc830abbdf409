package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/cli/go-gh/v2/pkg/term"
	"github.com/jparise/mcpan/internal/lookup"
	"github.com/jparise/mcpan/internal/metacpan"
	"github.com/jparise/mcpan/internal/output"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"pkt.systems/pslog"
)

// colorMode represents when to use colored output.
type colorMode string

const (
	colorAuto   colorMode = "auto"
	colorAlways colorMode = "always"
	colorNever  colorMode = "never"
)

// String is used both by fmt.Print and by Cobra in help text.
func (c *colorMode) String() string {
	return string(*c)
}

// Set must have pointer receiver to validate and set the value.
func (c *colorMode) Set(v string) error {
	switch v {
	case "auto", "always", "never":
		*c = colorMode(v)
		return nil
	default:
		return fmt.Errorf("must be one of \"auto\", \"always\", or \"never\"")
	}
}

// Type is only used in help text.
func (c *colorMode) Type() string {
	return "colorMode"
}

var version = "dev"

// persistentFlags lists the flags shared by every command. Each can also be
// set in the config file or through an MCPAN_ environment variable.
var persistentFlags = []string{
	"base-url",
	"user-agent",
	"page-size",
	"jobs",
	"color",
	"hyperlink",
	"json",
}

// app carries the state shared by the commands of one invocation.
type app struct {
	cfg    *viper.Viper
	logger pslog.Logger
	color  colorMode
}

func newApp(logger pslog.Logger) *app {
	return &app{
		cfg:    viper.New(),
		logger: logger,
		color:  colorAuto,
	}
}

func newRootCmd(logger pslog.Logger) *cobra.Command {
	return newApp(logger).rootCmd()
}

func (a *app) rootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "mcpan",
		Short: "Query the MetaCPAN API",
		Long: `mcpan looks up CPAN authors, modules, distributions and releases through
the MetaCPAN API.

<kind> is one of: author, module, distribution, release, file, favorite,
rating. Plural forms are accepted.

Search values containing "*" are wildcard patterns; other values must match
exactly.

Configuration is read from flags, MCPAN_* environment variables (for
example MCPAN_BASE_URL) and an optional YAML file given with --config.

Examples:
  mcpan get author HAARG ETHER
  mcpan get module Moo::Role --json
  mcpan search author "name=Dave *"
  mcpan search release distribution=Moo status=latest --fields name,date
  mcpan search author --either "name=Dave *" --either "name=David *" --not "name=Dave Cross"
  mcpan search release --spec query.yaml --count
  mcpan rdeps Moo --changed-within 1y -E "Task-*"
  mcpan recent 20
  mcpan download-url Moo --version ">2.0"`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.loadConfig()
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.String("config", "",
		"path to a YAML config file")
	flags.String("base-url", metacpan.DefaultBaseURL,
		"MetaCPAN API root")
	flags.String("user-agent", metacpan.DefaultUserAgent,
		"User-Agent header sent with every request")
	flags.Int("page-size", metacpan.DefaultPageSize,
		"number of search hits fetched per request")
	flags.IntP("jobs", "j", 10,
		"maximum concurrent API requests")
	flags.Var(&a.color, "color",
		"colorize output: auto, always, never")
	flags.Bool("hyperlink", false,
		"link identifiers to their metacpan.org pages")
	flags.Bool("json", false,
		"print full JSON documents instead of summaries")

	for _, name := range append([]string{"config"}, persistentFlags...) {
		if err := a.cfg.BindPFlag(name, flags.Lookup(name)); err != nil {
			panic(err)
		}
	}
	a.cfg.SetEnvPrefix("MCPAN")
	a.cfg.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	a.cfg.AutomaticEnv()

	rootCmd.AddCommand(
		newGetCmd(a),
		newSearchCmd(a),
		newRdepsCmd(a),
		newRecentCmd(a),
		newDownloadURLCmd(a),
	)
	return rootCmd
}

// loadConfig reads the config file, if any, and validates the merged
// settings.
func (a *app) loadConfig() error {
	if path := strings.TrimSpace(a.cfg.GetString("config")); path != "" {
		a.cfg.SetConfigFile(path)
		if err := a.cfg.ReadInConfig(); err != nil {
			return fmt.Errorf("read config file %q: %w", path, err)
		}
		a.logger.Debug("config.loaded", "path", path)
	}

	if err := a.color.Set(a.cfg.GetString("color")); err != nil {
		return fmt.Errorf("invalid color %q: %w", a.cfg.GetString("color"), err)
	}
	if jobs := a.cfg.GetInt("jobs"); jobs < 1 || jobs > 100 {
		return fmt.Errorf("--jobs must be between 1 and 100, got %d", jobs)
	}
	if size := a.cfg.GetInt("page-size"); size < 1 {
		return fmt.Errorf("--page-size must be positive, got %d", size)
	}
	return nil
}

// runner builds the client and output for a command.
func (a *app) runner(cmd *cobra.Command) (*lookup.Runner, error) {
	client, err := metacpan.NewClient(metacpan.ClientOptions{
		BaseURL:   a.cfg.GetString("base-url"),
		UserAgent: a.cfg.GetString("user-agent"),
		PageSize:  a.cfg.GetInt("page-size"),
		Logger:    a.logger.With("component", "metacpan"),
	})
	if err != nil {
		return nil, err
	}

	return lookup.New(client, a.output(cmd)), nil
}

// output creates the terminal writer for a command.
func (a *app) output(cmd *cobra.Command) *output.Output {
	var colorize bool
	switch a.color {
	case colorAlways:
		colorize = true
	case colorNever:
		colorize = false
	case colorAuto:
		terminal := term.FromEnv()
		colorize = terminal.IsColorEnabled()
	}
	return output.New(cmd.OutOrStdout(), cmd.ErrOrStderr(), colorize, a.cfg.GetBool("hyperlink"))
}

// options returns the listing options common to every command.
func (a *app) options() *lookup.Options {
	return &lookup.Options{
		JSON: a.cfg.GetBool("json"),
		Jobs: a.cfg.GetInt("jobs"),
	}
}

// parseKind converts a kind argument, rejecting kinds that cannot be
// queried.
func parseKind(s string) (metacpan.Kind, error) {
	kind, err := metacpan.ParseKind(s)
	if err != nil {
		return "", fmt.Errorf("%w (expected one of %s)", err, kindNames())
	}
	if _, err := metacpan.Describe(kind); err != nil {
		return "", err
	}
	return kind, nil
}

func kindNames() string {
	kinds := metacpan.Kinds()
	names := make([]string, len(kinds))
	for i, k := range kinds {
		names[i] = string(k)
	}
	return strings.Join(names, ", ")
}

// addFilterFlags registers the exclude flags on a listing command.
func addFilterFlags(fs *pflag.FlagSet, excludes *[]string, ignoreCase *bool) {
	fs.StringSliceVarP(excludes, "exclude", "E", []string{},
		"exclude records whose identifier matches a glob (can be specified multiple times)")
	fs.BoolVarP(ignoreCase, "ignore-case", "i", false,
		"case-insensitive exclude matching")
}

// Execute runs the command line and returns the process exit code.
func Execute() int {
	logger := pslog.LoggerFromEnv(context.Background(),
		pslog.WithEnvPrefix("MCPAN_LOG_"),
		pslog.WithEnvOptions(pslog.Options{Mode: pslog.ModeStructured, MinLevel: pslog.InfoLevel}),
		pslog.WithEnvWriter(os.Stderr),
	).With("app", "mcpan")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return run(ctx, logger, os.Args[1:], os.Stdout, os.Stderr)
}

// run executes one command line and reports failures on stderr.
func run(ctx context.Context, logger pslog.Logger, args []string, stdout, stderr io.Writer) int {
	a := newApp(logger)
	root := a.rootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	if err := root.ExecuteContext(ctx); err != nil {
		if !errors.Is(err, context.Canceled) {
			a.output(root).Errorf("%v", err)
		}
		return 1
	}
	return 0
}
