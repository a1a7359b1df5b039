package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"safaribuild/internal/cli"
)

// main is the only place the process exits. Configuration is read from the
// real environment here and nowhere else.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code, err := cli.Run(ctx, os.Args[1:], os.LookupEnv, os.Stdout, os.Stderr)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
	}
	os.Exit(code)
}
