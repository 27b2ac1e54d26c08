package models

import "time"

// Status is the terminal status of a run.
type Status string

const (
	StatusSuccess   Status = "success"
	StatusExhausted Status = "exhausted"
	StatusFatal     Status = "fatal"
)

// State is a correction loop state.
type State string

const (
	StateStart        State = "start"
	StateRetrieving   State = "retrieving"
	StateSynthesizing State = "synthesizing"
	StateValidating   State = "validating"
	StateDone         State = "done"
)

// RunResult is what a caller gets back from a run, whatever happened.
type RunResult struct {
	RunID   string  `json:"run_id"`
	Request Request `json:"request"`
	Status  Status  `json:"status"`

	// FinalCode is the last synthesized program. On success it is the valid one.
	FinalCode string `json:"final_code,omitempty"`

	// Diagnostic is the last failing outcome when the run did not succeed.
	Diagnostic *ValidationOutcome `json:"diagnostic,omitempty"`

	// Error describes the fatal condition, if any.
	Error string `json:"error,omitempty"`

	// Retrieved lists the knowledge entry IDs used as grounding.
	Retrieved []string `json:"retrieved,omitempty"`

	Trace  SessionTrace `json:"trace"`
	States []State      `json:"states,omitempty"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// Iterations returns the number of synthesis attempts that produced an artifact.
func (r *RunResult) Iterations() int { return r.Trace.Len() }
