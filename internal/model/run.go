package model

import (
	"time"
)

// RunResult is the outcome of one pipeline run. Leads holds exactly one
// record per input lead, in input order.
type RunResult struct {
	ID            string       `json:"id"`
	StartedAt     time.Time    `json:"started_at"`
	FinishedAt    time.Time    `json:"finished_at"`
	Leads         []LeadRecord `json:"leads"`
	SnapshotPath  string       `json:"snapshot_path,omitempty"`
	SnapshotError string       `json:"snapshot_error,omitempty"`
	Pushes        []PushResult `json:"pushes,omitempty"`
}

// Counts tallies outreach outcomes across the run.
func (r *RunResult) Counts() map[OutreachStatus]int {
	counts := make(map[OutreachStatus]int)
	for _, l := range r.Leads {
		counts[l.OutreachStatus]++
	}
	return counts
}

// PushResult records a best-effort push of the run's leads to one sink.
type PushResult struct {
	Sink     string `json:"sink"`
	Inserted int    `json:"inserted"`
	Error    string `json:"error,omitempty"`
}

// FailedLead is a dead-letter entry for a lead whose processing degraded to
// sentinel data or hit an unexpected error.
type FailedLead struct {
	ID       string    `json:"id"`
	URL      string    `json:"url"`
	Name     string    `json:"name,omitempty"`
	Email    string    `json:"email,omitempty"`
	Step     string    `json:"step"`
	Error    string    `json:"error"`
	Attempts int       `json:"attempts"`
	FailedAt time.Time `json:"failed_at"`
}

// Input converts a dead-letter entry back into a lead for re-processing.
func (f FailedLead) Input() LeadInput {
	return LeadInput{URL: f.URL, Name: f.Name, Email: f.Email}
}
