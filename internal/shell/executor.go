package shell

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"syscall"
)

// Runner runs a command to completion.
//
// A nil error means the process exited with status 0. A process that ran and
// exited non-zero is reported as *ExitError.
type Runner interface {
	Run(ctx context.Context, cmd Command) error
}

// ExitError reports a command that exited with a non-zero status.
type ExitError struct {
	Command  Command
	ExitCode int
	Cause    error
}

func (e *ExitError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("command %q exited with status %d", e.Command.String(), e.ExitCode)
}

func (e *ExitError) Unwrap() error { return e.Cause }

// Executor runs commands as child processes with inherited standard streams.
//
// Unlike a hermetic runner, the child sees Env (or the parent environment when
// Env is nil): the converter and xcodebuild rely on the developer's toolchain
// configuration.
type Executor struct {
	// Dir is the working directory. Empty means the current directory.
	Dir string

	// Env is the child environment. Nil inherits the parent environment.
	Env []string

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// NewExecutor creates an Executor running commands in dir.
func NewExecutor(dir string, stdout, stderr io.Writer) *Executor {
	return &Executor{Dir: dir, Stdout: stdout, Stderr: stderr}
}

// Run starts cmd and waits for it.
//
// On context cancellation the whole process group is killed, so build tools
// that fork helpers do not outlive the pipeline.
func (e *Executor) Run(ctx context.Context, cmd Command) error {
	if cmd.Name == "" {
		return errors.New("command name is empty")
	}

	c := exec.Command(cmd.Name, cmd.Args...)
	c.Dir = e.Dir
	c.Env = e.Env
	c.Stdin = e.Stdin
	c.Stdout = e.Stdout
	c.Stderr = e.Stderr

	// Own process group so cancellation can signal every descendant.
	c.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	if err := c.Start(); err != nil {
		return fmt.Errorf("failed to start %q: %w", cmd.String(), err)
	}

	done := make(chan error, 1)
	go func() {
		done <- c.Wait()
	}()

	var err error
	select {
	case <-ctx.Done():
		if c.Process != nil {
			_ = syscall.Kill(-c.Process.Pid, syscall.SIGKILL)
		}
		<-done
		return fmt.Errorf("command %q cancelled: %w", cmd.String(), ctx.Err())
	case err = <-done:
	}

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return &ExitError{Command: cmd, ExitCode: exitErr.ExitCode(), Cause: err}
		}
		return fmt.Errorf("failed to execute %q: %w", cmd.String(), err)
	}
	return nil
}
