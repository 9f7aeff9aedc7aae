// Package store persists lead records and the dead-letter queue of leads
// that need another pass.
package store

import (
	"context"

	"github.com/sells-group/lead-cli/internal/model"
)

// DefaultTable is the lead table used when none is configured.
const DefaultTable = "leads"

// LeadFilter specifies criteria for listing stored leads.
type LeadFilter struct {
	MinFinalScore float64 `json:"min_final_score,omitempty"`
	Limit         int     `json:"limit,omitempty"`
	Offset        int     `json:"offset,omitempty"`
}

// Store defines the persistence interface for enriched leads.
type Store interface {
	// Name identifies the backend in push results and logs.
	Name() string

	// Leads
	InsertLeads(ctx context.Context, leads []model.LeadRecord) (int, error)
	ListLeads(ctx context.Context, filter LeadFilter) ([]model.LeadRecord, error)

	// Dead-letter queue, keyed by profile URL.
	RecordFailure(ctx context.Context, f model.FailedLead) error
	// ListFailures returns the oldest entries first; limit <= 0 lists all.
	ListFailures(ctx context.Context, limit int) ([]model.FailedLead, error)
	ClearFailure(ctx context.Context, url string) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// leadColumns mirrors the JSON keys of model.LeadRecord so rows line up with
// tables created by earlier Supabase deployments.
var leadColumns = []string{
	"name", "bio", "url", "email", "platform",
	"angelScore", "icpScore", "finalScore",
	"tags", "meeting_scheduled", "meeting_time", "created_at", "outreach_status",
}

func limitOrDefault(limit int) int {
	if limit <= 0 {
		return 100
	}
	return limit
}

// failureLimit maps a non-positive limit to nil so Postgres reads LIMIT NULL
// as unbounded.
func failureLimit(limit int) *int {
	if limit <= 0 {
		return nil
	}
	return &limit
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
