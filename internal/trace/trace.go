// Package trace records the stage transitions of a pipeline run.
//
// The trace is observational only: recording never fails and never affects
// which stages run.
package trace

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// EventKind discriminates Event. The string values appear in trace files.
type EventKind string

const (
	EventStageStarted   EventKind = "StageStarted"
	EventStageCompleted EventKind = "StageCompleted"
	EventStageSkipped   EventKind = "StageSkipped"
	EventStageFailed    EventKind = "StageFailed"
)

// Event is a single stage transition.
type Event struct {
	Kind  EventKind `json:"kind"`
	Stage string    `json:"stage"`

	// Reason is a stable reason code, e.g. "SkipBuild" or "ExitStatus".
	Reason string `json:"reason,omitempty"`

	// Command is the rendered external command, for process stages.
	Command string `json:"command,omitempty"`

	// ExitCode is set for StageFailed events caused by a process exit.
	ExitCode int `json:"exitCode,omitempty"`
}

// Trace is the ordered record of one run. Events keep execution order.
type Trace struct {
	RunID  string  `json:"runId,omitempty"`
	Events []Event `json:"events"`
}

// Validate checks that every event names a kind and a stage.
func (t *Trace) Validate() error {
	if t == nil {
		return errors.New("trace is nil")
	}
	for i, e := range t.Events {
		if e.Kind == "" {
			return fmt.Errorf("events[%d].kind is required", i)
		}
		if e.Stage == "" {
			return fmt.Errorf("events[%d].stage is required", i)
		}
	}
	return nil
}

// Stages returns the stages with an event of the given kind, in order.
func (t Trace) Stages(kind EventKind) []string {
	var out []string
	for _, e := range t.Events {
		if e.Kind == kind {
			out = append(out, e.Stage)
		}
	}
	return out
}

// WriteFile writes t as indented JSON, creating parent directories.
func WriteFile(path string, t Trace) error {
	if err := t.Validate(); err != nil {
		return err
	}
	if t.Events == nil {
		t.Events = []Event{}
	}
	b, err := json.MarshalIndent(t, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, append(b, '\n'), 0o644)
}
