package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"safaribuild/internal/config"
	"safaribuild/internal/logging"
	"safaribuild/internal/pipeline"
)

const (
	ExitSuccess           = 0
	ExitStageFailure      = 1
	ExitInvalidInvocation = 2
	ExitConfigError       = 3
	ExitInternalError     = 4
)

// Options are the raw persistent flag values.
type Options struct {
	ConfigPath string
	TracePath  string
	WorkDir    string
	LogFormat  string
	Verbose    bool
}

// Invocation is the canonical description of a run.
//
// WorkDir is absolute. ConfigPath and TracePath are either empty or absolute,
// resolved relative to WorkDir.
type Invocation struct {
	WorkDir    string
	ConfigPath string
	TracePath  string
	LogFormat  logging.Format
	Verbose    bool
	RunID      string

	// Lookup reads the environment. Nil means an empty environment.
	Lookup config.LookupFunc
}

type InvocationError struct {
	ExitCode int
	Message  string
}

func (e *InvocationError) Error() string {
	if e == nil {
		return ""
	}
	return e.Message
}

func invalidInvocationf(format string, args ...any) error {
	return &InvocationError{ExitCode: ExitInvalidInvocation, Message: fmt.Sprintf(format, args...)}
}

// NewInvocation canonicalizes flag values.
//
// An empty WorkDir means the process working directory. SAFARI_CONFIG is
// consulted only when --config is not given.
func NewInvocation(opts Options, lookup config.LookupFunc) (Invocation, error) {
	if lookup == nil {
		lookup = config.MapLookup(nil)
	}

	workDir := strings.TrimSpace(opts.WorkDir)
	if workDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return Invocation{}, fmt.Errorf("resolve working directory: %w", err)
		}
		workDir = wd
	}
	workDir, err := filepath.Abs(workDir)
	if err != nil {
		return Invocation{}, invalidInvocationf("invalid --workdir %q: %v", opts.WorkDir, err)
	}
	info, err := os.Stat(workDir)
	if err != nil {
		return Invocation{}, invalidInvocationf("--workdir %q does not exist", workDir)
	}
	if !info.IsDir() {
		return Invocation{}, invalidInvocationf("--workdir %q is not a directory", workDir)
	}

	format, err := logging.ParseFormat(opts.LogFormat)
	if err != nil {
		return Invocation{}, invalidInvocationf("%v", err)
	}

	configPath := opts.ConfigPath
	if strings.TrimSpace(configPath) == "" {
		configPath, _ = lookup(config.EnvConfigFile)
	}

	return Invocation{
		WorkDir:    workDir,
		ConfigPath: resolveUnderWorkDir(workDir, configPath),
		TracePath:  resolveUnderWorkDir(workDir, opts.TracePath),
		LogFormat:  format,
		Verbose:    opts.Verbose,
		RunID:      logging.NewRunID(),
		Lookup:     lookup,
	}, nil
}

func resolveUnderWorkDir(workDir, p string) string {
	if strings.TrimSpace(p) == "" {
		return ""
	}
	clean := filepath.Clean(p)
	if filepath.IsAbs(clean) {
		return clean
	}
	return filepath.Join(workDir, clean)
}

// ExitCode maps an error returned by this package to a semantic exit code.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var invErr *InvocationError
	if errors.As(err, &invErr) && invErr != nil {
		if invErr.ExitCode != 0 {
			return invErr.ExitCode
		}
		return ExitInvalidInvocation
	}

	var fileErr *config.FileError
	if errors.As(err, &fileErr) {
		return ExitConfigError
	}

	var procErr *pipeline.ProcessFailureError
	var preErr *pipeline.PreconditionError
	if errors.As(err, &procErr) || errors.As(err, &preErr) {
		return ExitStageFailure
	}
	return ExitInternalError
}
