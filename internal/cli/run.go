package cli

import (
	"context"
	"io"

	"safaribuild/internal/config"
)

// Run is a high-level CLI entrypoint suitable for black-box tests.
// It accepts the argument slice (excluding argv[0]) and returns the semantic
// exit code plus any error. Nothing is printed for the error; the caller
// decides how to report it.
func Run(ctx context.Context, args []string, lookup config.LookupFunc, stdout, stderr io.Writer) (int, error) {
	a := newApp(lookup, stdout, stderr)
	defer a.sync()

	root := a.rootCommand()
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	return ExitCode(err), err
}
