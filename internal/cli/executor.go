package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"

	"safaribuild/internal/config"
	"safaribuild/internal/logging"
	"safaribuild/internal/pbxproj"
	"safaribuild/internal/pipeline"
	"safaribuild/internal/prune"
	"safaribuild/internal/shell"
	"safaribuild/internal/trace"
)

type Result struct {
	ExitCode int
	Config   config.Config
	Pipeline pipeline.Result
}

// LoadConfig resolves the configuration for inv: built-in defaults, then the
// optional YAML file, then the environment. Relative directories are anchored
// at WorkDir.
func LoadConfig(inv Invocation) (config.Config, error) {
	base := config.BuiltinDefaults()
	if inv.ConfigPath != "" {
		loaded, err := config.LoadFile(inv.ConfigPath)
		if err != nil {
			return config.Config{}, err
		}
		base = loaded
	}
	return config.Resolve(base, inv.Lookup).Under(inv.WorkDir), nil
}

// Execute runs the full pipeline with external processes started in WorkDir.
func Execute(ctx context.Context, inv Invocation, log *zap.Logger, stdout, stderr io.Writer) (Result, error) {
	return ExecuteWithRunner(ctx, inv, shell.NewExecutor(inv.WorkDir, stdout, stderr), log)
}

// ExecuteWithRunner maps a canonical Invocation to a pipeline run.
//
// Responsibilities:
//   - Write the trace file after execution, even on failure or panic. A
//     configuration error leaves a trace with no events.
//   - Resolve configuration before any stage starts.
//   - Translate pipeline outcomes to semantic exit codes.
func ExecuteWithRunner(ctx context.Context, inv Invocation, runner shell.Runner, log *zap.Logger) (res Result, execErr error) {
	log = logging.OrNop(log)
	res.ExitCode = ExitInternalError
	if runner == nil {
		return res, errors.New("nil runner")
	}

	rec := trace.NewRecorder()
	if inv.TracePath != "" {
		defer func() {
			if err := trace.WriteFile(inv.TracePath, rec.Trace(inv.RunID)); err != nil {
				log.Warn("failed to write trace", zap.String("path", inv.TracePath), zap.Error(err))
			}
		}()
	}

	cfg, err := LoadConfig(inv)
	if err != nil {
		res.ExitCode = ExitCode(err)
		return res, err
	}
	res.Config = cfg

	defer func() {
		if r := recover(); r != nil {
			res.ExitCode = ExitInternalError
			execErr = fmt.Errorf("panic: %v", r)
		}
	}()

	o := pipeline.New(cfg, runner, log)
	o.Trace = rec
	pr, err := o.Run(ctx)
	res.Pipeline = pr
	res.ExitCode = ExitCode(err)
	return res, err
}

// Prune runs only the cleanup stage.
func Prune(inv Invocation, log *zap.Logger) (prune.Result, error) {
	cfg, err := LoadConfig(inv)
	if err != nil {
		return prune.Result{}, err
	}
	return prune.New(log).Prune(cfg), nil
}

// Repair patches a single project file. An empty path means the resolved
// PbxprojPath.
func Repair(inv Invocation, path string, log *zap.Logger) (pbxproj.Result, error) {
	cfg, err := LoadConfig(inv)
	if err != nil {
		return pbxproj.Result{}, err
	}
	if path = resolveUnderWorkDir(inv.WorkDir, path); path == "" {
		path = cfg.PbxprojPath()
	}

	res, err := pbxproj.RepairFile(path, cfg.BundleID)
	if errors.Is(err, pbxproj.ErrProjectFileMissing) {
		return res, &pipeline.PreconditionError{
			Stage:   pipeline.StageRepairingMetadata,
			Path:    path,
			Message: "project file does not exist",
			Cause:   err,
		}
	}
	if err != nil {
		return res, err
	}
	logging.OrNop(log).Info("bundle identifiers repaired",
		zap.String("path", path),
		zap.Int("changed", res.Changed),
		zap.Bool("written", res.Written))
	return res, nil
}

// WriteConfig prints the resolved configuration as YAML.
func WriteConfig(inv Invocation, w io.Writer) error {
	cfg, err := LoadConfig(inv)
	if err != nil {
		return err
	}
	return config.Encode(w, cfg)
}
