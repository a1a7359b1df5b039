package pipeline

import "fmt"

// Stage is the orchestrator's position in the pipeline.
type Stage string

const (
	StageConfiguring       Stage = "Configuring"
	StageCleaning          Stage = "Cleaning"
	StageBundlingSource    Stage = "BundlingSource"
	StageConverting        Stage = "Converting"
	StageRepairingMetadata Stage = "RepairingMetadata"
	StageBuilding          Stage = "Building"
	StageDone              Stage = "Done"
	StageFailed            Stage = "Failed"
)

// IsTerminal reports whether no further transition is possible from s.
func IsTerminal(s Stage) bool {
	return s == StageDone || s == StageFailed
}

// next lists the single forward successor of each working stage.
// RepairingMetadata additionally may go straight to Done when the build is
// skipped.
var next = map[Stage][]Stage{
	StageConfiguring:       {StageCleaning},
	StageCleaning:          {StageBundlingSource},
	StageBundlingSource:    {StageConverting},
	StageConverting:        {StageRepairingMetadata},
	StageRepairingMetadata: {StageBuilding, StageDone},
	StageBuilding:          {StageDone},
}

// Transition validates moving from cur to to.
//
// Every non-terminal stage may move to Failed; otherwise only the sequential
// successor is allowed.
func Transition(cur, to Stage) error {
	if IsTerminal(cur) {
		return fmt.Errorf("invalid transition %s -> %s: %s is terminal", cur, to, cur)
	}
	if to == StageFailed {
		return nil
	}
	for _, allowed := range next[cur] {
		if allowed == to {
			return nil
		}
	}
	return fmt.Errorf("disallowed transition %s -> %s", cur, to)
}
