package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"safaribuild/internal/config"
	"safaribuild/internal/logging"
)

// app holds the state shared by one command tree.
type app struct {
	lookup config.LookupFunc
	stdout io.Writer
	stderr io.Writer

	opts   Options
	inv    Invocation
	logger *zap.Logger
}

func newApp(lookup config.LookupFunc, stdout, stderr io.Writer) *app {
	return &app{lookup: lookup, stdout: stdout, stderr: stderr}
}

// NewRootCommand builds the safaribuild command tree. Errors returned by
// ExecuteContext map to exit codes through ExitCode.
func NewRootCommand(lookup config.LookupFunc, stdout, stderr io.Writer) *cobra.Command {
	return newApp(lookup, stdout, stderr).rootCommand()
}

func (a *app) rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "safaribuild",
		Short: "Convert the web extension bundle into a Safari Xcode project",
		Long: `safaribuild turns the bundled web extension into a Safari app extension project.

It removes projects left behind under earlier app names, runs the bundler,
invokes Apple's safari-web-extension-converter, repairs the bundle identifiers
in project.pbxproj and, for macOS, compiles the project with xcodebuild.

Configuration comes from SAFARI_* environment variables, optionally layered on
a YAML file given with --config or SAFARI_CONFIG.`,
		Args:              noArgs,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
		RunE:              a.runPipeline,
	}
	root.SetOut(a.stdout)
	root.SetErr(a.stderr)
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return invalidInvocationf("%v", err)
	})

	flags := root.PersistentFlags()
	flags.StringVar(&a.opts.ConfigPath, "config", "", "YAML configuration file (or set "+config.EnvConfigFile+")")
	flags.BoolVarP(&a.opts.Verbose, "verbose", "v", false, "Enable verbose logging")
	flags.StringVar(&a.opts.LogFormat, "log-format", string(logging.FormatConsole), "Log encoding: console|json")
	flags.StringVar(&a.opts.TracePath, "trace", "", "Write a JSON stage trace to this file")
	flags.StringVarP(&a.opts.WorkDir, "workdir", "w", "", "Directory external commands run in (default: current)")

	root.AddCommand(
		&cobra.Command{
			Use:   "run",
			Short: "Run the full pipeline (default)",
			Args:  noArgs,
			RunE:  a.runPipeline,
		},
		&cobra.Command{
			Use:   "prune",
			Short: "Remove legacy projects and DerivedData entries only",
			Args:  noArgs,
			RunE:  a.runPrune,
		},
		&cobra.Command{
			Use:   "repair [project.pbxproj]",
			Short: "Rewrite PRODUCT_BUNDLE_IDENTIFIER values in a project file",
			Long: `Rewrite PRODUCT_BUNDLE_IDENTIFIER values to the configured bundle id.

Values ending in .Extension become <bundle id>.Extension. Without an argument
the project generated for the configured app name is repaired.`,
			Args: maxArgs(1),
			RunE: a.runRepair,
		},
		&cobra.Command{
			Use:   "config",
			Short: "Print the resolved configuration as YAML",
			Args:  noArgs,
			RunE:  a.runConfig,
		},
	)
	return root
}

func (a *app) setup(cmd *cobra.Command, _ []string) error {
	inv, err := NewInvocation(a.opts, a.lookup)
	if err != nil {
		return err
	}
	logger, err := logging.New(logging.Options{
		Verbose: inv.Verbose,
		Format:  inv.LogFormat,
		Writer:  a.stderr,
		RunID:   inv.RunID,
	})
	if err != nil {
		return err
	}
	a.inv = inv
	a.logger = logger
	logger.Debug("invocation resolved",
		zap.String("command", cmd.Name()),
		zap.String("workdir", inv.WorkDir),
		zap.String("config", inv.ConfigPath))
	return nil
}

func (a *app) runPipeline(cmd *cobra.Command, _ []string) error {
	res, err := Execute(cmd.Context(), a.inv, a.logger, a.stdout, a.stderr)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "Safari project generated at %s\n", res.Pipeline.ProjectPath)
	return nil
}

func (a *app) runPrune(*cobra.Command, []string) error {
	res, err := Prune(a.inv, a.logger)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "removed %d legacy projects and %d DerivedData entries\n", res.Projects, res.DerivedData)
	return nil
}

func (a *app) runRepair(_ *cobra.Command, args []string) error {
	var path string
	if len(args) == 1 {
		path = args[0]
	}
	res, err := Repair(a.inv, path, a.logger)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "%s: %d identifiers updated\n", res.Path, res.Changed)
	return nil
}

func (a *app) runConfig(*cobra.Command, []string) error {
	return WriteConfig(a.inv, a.stdout)
}

func (a *app) sync() {
	if a.logger != nil {
		_ = a.logger.Sync()
	}
}

func noArgs(cmd *cobra.Command, args []string) error {
	if len(args) > 0 {
		return invalidInvocationf("unknown command %q for %q", args[0], cmd.CommandPath())
	}
	return nil
}

func maxArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) > n {
			return invalidInvocationf("%s accepts at most %d argument(s), received %d", cmd.CommandPath(), n, len(args))
		}
		return nil
	}
}
