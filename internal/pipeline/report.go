// Package pipeline sequences the IBM Quantum integration steps and
// accumulates a structured run report.
package pipeline

import (
	"time"

	"github.com/Minapak/SwiftQuantum/internal/analysis"
)

// StepStatus is the lifecycle state of one step record.
type StepStatus string

const (
	StepInProgress StepStatus = "in_progress"
	StepSuccess    StepStatus = "success"
	StepError      StepStatus = "error"
)

// StepRecord is one pipeline step's outcome. Records are append-only: every
// attempted step contributes an in_progress record followed by exactly one
// terminal record.
type StepRecord struct {
	Step      int            `json:"step"`
	Title     string         `json:"title"`
	Status    StepStatus     `json:"status"`
	Timestamp time.Time      `json:"timestamp"`
	Details   map[string]any `json:"details,omitempty"`
	Error     string         `json:"error,omitempty"`
}

// StepFailure pairs a step number with the error that stopped it.
type StepFailure struct {
	Step  int    `json:"step"`
	Error string `json:"error"`
}

// Summary describes a fully successful run.
type Summary struct {
	JobID    string          `json:"job_id"`
	Backend  string          `json:"backend"`
	Analysis analysis.Report `json:"analysis"`
}

// Report is the whole-run outcome. The orchestrator owns it for the
// duration of a run and hands it to the caller finalized; it is never
// shared while being written.
type Report struct {
	RunID   string        `json:"run_id"`
	Steps   []StepRecord  `json:"steps"`
	Errors  []StepFailure `json:"errors"`
	Success bool          `json:"success"`
	Summary *Summary      `json:"summary,omitempty"`
}

func newReport(runID string) *Report {
	return &Report{
		RunID:  runID,
		Steps:  []StepRecord{},
		Errors: []StepFailure{},
	}
}

func (r *Report) begin(step int, title string, now time.Time) {
	r.Steps = append(r.Steps, StepRecord{
		Step:      step,
		Title:     title,
		Status:    StepInProgress,
		Timestamp: now,
	})
}

func (r *Report) succeed(step int, title string, now time.Time, details map[string]any) {
	r.Steps = append(r.Steps, StepRecord{
		Step:      step,
		Title:     title,
		Status:    StepSuccess,
		Timestamp: now,
		Details:   details,
	})
}

func (r *Report) fail(step int, title string, now time.Time, details map[string]any, errMsg string) {
	r.Steps = append(r.Steps, StepRecord{
		Step:      step,
		Title:     title,
		Status:    StepError,
		Timestamp: now,
		Details:   details,
		Error:     errMsg,
	})
	r.Errors = append(r.Errors, StepFailure{Step: step, Error: errMsg})
}
