package models

import (
	"strings"
	"time"
)

// ExecStatus values track the lifecycle of one pipeline execution as seen
// by the worker pool.
const (
	StatusStarting   = "starting"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
	StatusNoWork     = "no_work"
	StatusError      = "error"
)

// Outcome is the terminal result of one pipeline execution.
type Outcome string

const (
	OutcomeSuccess         Outcome = "success"
	OutcomeNoWork          Outcome = "no_work"
	OutcomeHandledError    Outcome = "handled_error"
	OutcomeUnexpectedError Outcome = "unexpected_error"
)

// Job is one narration fetched from the remote queue. Immutable once
// fetched; owned by the pipeline execution that fetched it.
type Job struct {
	ID              string `json:"id"`
	Text            string `json:"text"`
	CompanyResearch string `json:"company_deep_research"`
	ProfileResearch string `json:"profile_deep_research"`
	Gender          string `json:"gender,omitempty"`
}

// NarrationText returns the text to synthesize: the explicit text field when
// present, otherwise the research fields joined by a blank line. An empty
// result means the job carries nothing to narrate.
func (j Job) NarrationText() string {
	if text := strings.TrimSpace(j.Text); text != "" {
		return text
	}
	return strings.TrimSpace(j.CompanyResearch + "\n\n" + j.ProfileResearch)
}

// WorkerRecord tracks one in-flight pipeline execution inside the pool.
type WorkerRecord struct {
	ID        string    `json:"id"`
	Status    string    `json:"status"`
	StartedAt time.Time `json:"started_at"`
}
