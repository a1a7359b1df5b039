// Package pipeline sequences the conversion of a web extension bundle into a
// Safari Xcode project.
//
// The stages run strictly in order:
//
//	Configuring -> Cleaning -> BundlingSource -> Converting ->
//	RepairingMetadata -> [Building] -> Done
//
// Any stage may end the run in Failed. Building only runs for macOS when the
// native build is not skipped. Fatal conditions are returned as
// *ProcessFailureError or *PreconditionError; the caller owns process exit.
package pipeline

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"safaribuild/internal/config"
	"safaribuild/internal/logging"
	"safaribuild/internal/pbxproj"
	"safaribuild/internal/prune"
	"safaribuild/internal/shell"
	"safaribuild/internal/trace"
)

// Pruner removes legacy artifacts. It never fails.
type Pruner interface {
	Prune(cfg config.Config) prune.Result
}

// RepairFunc patches the bundle identifiers of the project file at path.
type RepairFunc func(path, bundleID string) (pbxproj.Result, error)

// Skip reasons recorded for the Building stage.
const (
	ReasonSkipBuild   = "SkipBuild"
	ReasonNotMacOS    = "PlatformNotMacOS"
	ReasonExitStatus  = "ExitStatus"
	ReasonMissingFile = "ProjectFileMissing"
)

// Result summarises a run.
type Result struct {
	Stage       Stage
	Pruned      prune.Result
	Repair      pbxproj.Result
	ProjectPath string
	Built       bool
}

// Orchestrator runs the pipeline once.
type Orchestrator struct {
	Config config.Config
	Runner shell.Runner
	Pruner Pruner
	Repair RepairFunc
	Log    *zap.Logger
	// Trace receives stage events. Nil disables tracing.
	Trace trace.Sink

	stage Stage
}

// New wires an Orchestrator with the real pruner and project repairer.
func New(cfg config.Config, runner shell.Runner, log *zap.Logger) *Orchestrator {
	log = logging.OrNop(log)
	return &Orchestrator{
		Config: cfg,
		Runner: runner,
		Pruner: prune.New(log),
		Repair: pbxproj.RepairFile,
		Log:    log,
		stage:  StageConfiguring,
	}
}

// Stage returns the current stage.
func (o *Orchestrator) Stage() Stage {
	if o.stage == "" {
		return StageConfiguring
	}
	return o.stage
}

// Run executes every stage in order and stops at the first fatal error.
func (o *Orchestrator) Run(ctx context.Context) (Result, error) {
	cfg := o.Config
	log := logging.OrNop(o.Log)
	res := Result{Stage: o.Stage(), ProjectPath: cfg.XcodeProject()}

	if o.Stage() != StageConfiguring {
		return res, fmt.Errorf("pipeline already ran (stage %s)", o.Stage())
	}
	if o.Runner == nil {
		return res, errors.New("pipeline has no process runner")
	}

	log.Info("building Safari extension",
		zap.String("app_name", cfg.AppName),
		zap.String("bundle_id", cfg.BundleID),
		zap.String("platform", string(cfg.Platform)))

	if err := o.enter(StageCleaning); err != nil {
		return o.result(res), err
	}
	if o.Pruner != nil {
		res.Pruned = o.Pruner.Prune(cfg)
	}
	o.complete(StageCleaning)

	if err := o.runStage(ctx, StageBundlingSource, BundleCommand(cfg)); err != nil {
		return o.result(res), err
	}
	if err := o.runStage(ctx, StageConverting, ConvertCommand(cfg)); err != nil {
		return o.result(res), err
	}

	rep, err := o.repair()
	res.Repair = rep
	if err != nil {
		return o.result(res), err
	}

	if cfg.ShouldBuild() {
		if err := o.runStage(ctx, StageBuilding, BuildCommand(cfg)); err != nil {
			return o.result(res), err
		}
		res.Built = true
	} else {
		reason := ReasonSkipBuild
		if cfg.Platform != config.PlatformMacOS {
			reason = ReasonNotMacOS
		}
		log.Info("skipping native build", zap.String("reason", reason))
		o.record(trace.Event{Kind: trace.EventStageSkipped, Stage: string(StageBuilding), Reason: reason})
	}

	if err := o.advance(StageDone); err != nil {
		return o.result(res), err
	}
	log.Info("Safari extension generated", zap.String("project", res.ProjectPath))
	return o.result(res), nil
}

func (o *Orchestrator) result(res Result) Result {
	res.Stage = o.Stage()
	return res
}

func (o *Orchestrator) runStage(ctx context.Context, stage Stage, cmd shell.Command) error {
	if err := o.enter(stage, cmd.String()); err != nil {
		return err
	}
	logging.OrNop(o.Log).Info("running", zap.String("command", cmd.String()))

	if err := o.Runner.Run(ctx, cmd); err != nil {
		pf := processFailure(stage, cmd, err)
		o.fail(stage, trace.Event{Reason: ReasonExitStatus, Command: pf.Command, ExitCode: pf.ExitCode}, pf)
		return pf
	}
	o.complete(stage)
	return nil
}

func (o *Orchestrator) repair() (pbxproj.Result, error) {
	cfg := o.Config
	path := cfg.PbxprojPath()
	if err := o.enter(StageRepairingMetadata); err != nil {
		return pbxproj.Result{Path: path}, err
	}

	repairFn := o.Repair
	if repairFn == nil {
		repairFn = pbxproj.RepairFile
	}
	rep, err := repairFn(path, cfg.BundleID)
	if err != nil {
		if errors.Is(err, pbxproj.ErrProjectFileMissing) {
			pe := &PreconditionError{
				Stage:   StageRepairingMetadata,
				Path:    path,
				Message: "converter did not produce the Xcode project file",
				Cause:   err,
			}
			o.fail(StageRepairingMetadata, trace.Event{Reason: ReasonMissingFile}, pe)
			return rep, pe
		}
		wrapped := fmt.Errorf("%s: %w", StageRepairingMetadata, err)
		o.fail(StageRepairingMetadata, trace.Event{}, wrapped)
		return rep, wrapped
	}

	logging.OrNop(o.Log).Info("bundle identifiers repaired",
		zap.String("path", path),
		zap.Int("changed", rep.Changed),
		zap.Bool("written", rep.Written))
	o.complete(StageRepairingMetadata)
	return rep, nil
}

// enter moves to stage and narrates its start.
func (o *Orchestrator) enter(stage Stage, command ...string) error {
	if err := o.advance(stage); err != nil {
		return err
	}
	logging.OrNop(o.Log).Info("stage started", zap.String("stage", string(stage)))
	ev := trace.Event{Kind: trace.EventStageStarted, Stage: string(stage)}
	if len(command) > 0 {
		ev.Command = command[0]
	}
	o.record(ev)
	return nil
}

func (o *Orchestrator) complete(stage Stage) {
	o.record(trace.Event{Kind: trace.EventStageCompleted, Stage: string(stage)})
}

func (o *Orchestrator) fail(stage Stage, ev trace.Event, err error) {
	ev.Kind = trace.EventStageFailed
	ev.Stage = string(stage)
	o.record(ev)
	logging.OrNop(o.Log).Error("stage failed", zap.String("stage", string(stage)), zap.Error(err))
	// Failed is reachable from every working stage.
	o.stage = StageFailed
}

// record forwards ev to the trace sink. A panicking sink is logged and
// otherwise ignored; tracing never changes the outcome of a run.
func (o *Orchestrator) record(ev trace.Event) {
	if o.Trace == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			logging.OrNop(o.Log).Warn("trace sink panicked", zap.Any("panic", r), zap.String("stage", ev.Stage))
		}
	}()
	o.Trace.Record(ev)
}

func (o *Orchestrator) advance(to Stage) error {
	if err := Transition(o.Stage(), to); err != nil {
		return err
	}
	o.stage = to
	return nil
}
