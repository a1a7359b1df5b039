package pipeline

import (
	"errors"
	"testing"

	"safaribuild/internal/shell"
)

func TestTransition_SequentialPath(t *testing.T) {
	path := []Stage{
		StageConfiguring,
		StageCleaning,
		StageBundlingSource,
		StageConverting,
		StageRepairingMetadata,
		StageBuilding,
		StageDone,
	}
	for i := 0; i+1 < len(path); i++ {
		if err := Transition(path[i], path[i+1]); err != nil {
			t.Fatalf("expected %s -> %s to be valid, got %v", path[i], path[i+1], err)
		}
	}

	if err := Transition(StageRepairingMetadata, StageDone); err != nil {
		t.Fatalf("skipping the build must be allowed: %v", err)
	}
}

func TestTransition_Invalid(t *testing.T) {
	invalid := [][2]Stage{
		{StageConfiguring, StageConverting},
		{StageCleaning, StageRepairingMetadata},
		{StageConverting, StageBuilding},
		{StageBuilding, StageRepairingMetadata},
		{StageDone, StageFailed},
		{StageFailed, StageCleaning},
		{StageDone, StageBuilding},
	}
	for _, tr := range invalid {
		if err := Transition(tr[0], tr[1]); err == nil {
			t.Fatalf("expected %s -> %s to be rejected", tr[0], tr[1])
		}
	}
}

func TestTransition_AnyWorkingStageMayFail(t *testing.T) {
	for _, s := range []Stage{StageConfiguring, StageCleaning, StageBundlingSource, StageConverting, StageRepairingMetadata, StageBuilding} {
		if err := Transition(s, StageFailed); err != nil {
			t.Fatalf("expected %s -> Failed to be valid, got %v", s, err)
		}
	}
}

func TestIsTerminal(t *testing.T) {
	if !IsTerminal(StageDone) || !IsTerminal(StageFailed) {
		t.Fatalf("Done and Failed are terminal")
	}
	if IsTerminal(StageBuilding) {
		t.Fatalf("Building is not terminal")
	}
}

func TestErrorMessages(t *testing.T) {
	cause := &shell.ExitError{Command: shell.Line("pnpm build"), ExitCode: 1}
	pf := processFailure(StageBundlingSource, shell.Line("pnpm build"), cause)
	if pf.ExitCode != 1 {
		t.Fatalf("expected exit code 1, got %d", pf.ExitCode)
	}
	if got, want := pf.Error(), "BundlingSource failed (exit 1): pnpm build"; got != want {
		t.Fatalf("unexpected message\nexpected=%s\nactual  =%s", want, got)
	}
	if !errors.Is(pf, cause) {
		t.Fatalf("cause must unwrap")
	}

	pe := &PreconditionError{Stage: StageRepairingMetadata, Path: "/p/project.pbxproj", Message: "missing"}
	if got, want := pe.Error(), "RepairingMetadata precondition failed: missing: /p/project.pbxproj"; got != want {
		t.Fatalf("unexpected message\nexpected=%s\nactual  =%s", want, got)
	}

	var nilPF *ProcessFailureError
	if nilPF.Error() != "" {
		t.Fatalf("nil error must render empty")
	}
}

func TestCommands(t *testing.T) {
	cfg := testConfig(t)
	cfg.AppName = "All API Hub"
	cfg.ProjectLocation = ".output/safari"

	convert := ConvertCommand(cfg).String()
	want := `xcrun safari-web-extension-converter dist/chrome-mv3 --project-location .output/safari ` +
		`--app-name "All API Hub" --bundle-identifier com.new.app --macos-only --swift ` +
		`--copy-resources --no-open --no-prompt --force`
	if convert != want {
		t.Fatalf("unexpected converter command\nexpected=%s\nactual  =%s", want, convert)
	}

	cfg.Platform = "ios"
	if got := ConvertCommand(cfg).Args[8]; got != "--ios-only" {
		t.Fatalf("expected --ios-only, got %s", got)
	}

	build := BuildCommand(cfg).String()
	wantBuild := `xcodebuild -project ".output/safari/All API Hub/All API Hub.xcodeproj" -scheme "All API Hub" ` +
		`-configuration Debug -destination platform=macOS build`
	if build != wantBuild {
		t.Fatalf("unexpected build command\nexpected=%s\nactual  =%s", wantBuild, build)
	}

	if got := BundleCommand(cfg).String(); got != "pnpm build" {
		t.Fatalf("unexpected bundle command %q", got)
	}
}
