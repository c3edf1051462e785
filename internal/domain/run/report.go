package run

import (
	"time"

	apperrors "user-etl/pkg/errors"
)

// Stage names a pipeline step.
type Stage string

const (
	StageGenerate  Stage = "generate"
	StageTransform Stage = "transform"
	StageLoad      Stage = "load"
)

// Status is the outcome of one stage.
type Status string

const (
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
	StatusSkipped   Status = "skipped"
)

// StageResult is the explicit outcome of a stage. Kind and Message are set
// only when Status is failed.
type StageResult struct {
	Stage    Stage          `json:"stage"`
	Status   Status         `json:"status"`
	Kind     apperrors.Kind `json:"kind,omitempty"`
	Message  string         `json:"message,omitempty"`
	Rows     int            `json:"rows"`
	Dropped  int            `json:"dropped,omitempty"`
	Duration time.Duration  `json:"duration"`
	Err      error          `json:"-"`
}

// Report collects the stage results of one pipeline run.
type Report struct {
	RunID      string        `json:"run_id"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
	Stages     []StageResult `json:"stages"`
}

// Succeeded reports whether no stage failed. Skipped stages only occur after
// a failure, so they need no separate check.
func (r *Report) Succeeded() bool {
	for _, s := range r.Stages {
		if s.Status == StatusFailed {
			return false
		}
	}
	return true
}

// Stage returns the result recorded for s.
func (r *Report) Stage(s Stage) (StageResult, bool) {
	for _, res := range r.Stages {
		if res.Stage == s {
			return res, true
		}
	}
	return StageResult{}, false
}

// FirstFailure returns the earliest failed stage, if any.
func (r *Report) FirstFailure() (StageResult, bool) {
	for _, res := range r.Stages {
		if res.Status == StatusFailed {
			return res, true
		}
	}
	return StageResult{}, false
}

// Failed builds a failed StageResult from err.
func Failed(stage Stage, err error, elapsed time.Duration) StageResult {
	return StageResult{
		Stage:    stage,
		Status:   StatusFailed,
		Kind:     apperrors.KindOf(err),
		Message:  err.Error(),
		Duration: elapsed,
		Err:      err,
	}
}

// Skipped builds the result for a stage that did not run.
func Skipped(stage Stage) StageResult {
	return StageResult{Stage: stage, Status: StatusSkipped}
}
