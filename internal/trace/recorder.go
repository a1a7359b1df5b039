package trace

import "sync"

// Sink receives stage events. Implementations must not block.
type Sink interface {
	Record(event Event)
}

// Recorder keeps every event in memory so the run can be written out once it
// ends, whatever the outcome. It is safe for concurrent use.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func NewRecorder() *Recorder { return &Recorder{} }

func (r *Recorder) Record(event Event) {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

// Events returns a copy of the events recorded so far.
func (r *Recorder) Events() []Event {
	if r == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Trace builds the trace of run runID from the events recorded so far.
func (r *Recorder) Trace(runID string) Trace {
	return Trace{RunID: runID, Events: r.Events()}
}
