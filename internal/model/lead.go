package model

import (
	"time"
)

// Sentinel values written when a profile field cannot be located.
const (
	NameNotFound = "Name not found"
	BioNotFound  = "Bio not found"
)

// PlatformLinkedIn is the platform label stamped on every assembled record.
const PlatformLinkedIn = "LinkedIn"

// DefaultTag is attached to every record produced by an automated run.
const DefaultTag = "auto"

// LeadInput is one profile to enrich. It is read-only for the duration of a run.
type LeadInput struct {
	URL          string `json:"url" yaml:"url" validate:"required,url"`
	Name         string `json:"name,omitempty" yaml:"name,omitempty"`
	Email        string `json:"email,omitempty" yaml:"email,omitempty" validate:"omitempty,email"`
	NotionPageID string `json:"-" yaml:"-"`
}

// ExtractedProfile is the normalised text pulled from a profile page.
type ExtractedProfile struct {
	Name string `json:"name"`
	Bio  string `json:"bio"`
}

// HasName reports whether a real name was located.
func (p ExtractedProfile) HasName() bool {
	return p.Name != "" && p.Name != NameNotFound
}

// HasBio reports whether a real bio was located.
func (p ExtractedProfile) HasBio() bool {
	return p.Bio != "" && p.Bio != BioNotFound
}

// ScoreResult holds the evaluated sub-scores. All values lie in [0, 10] and
// FinalScore is the unrounded mean of the two sub-scores.
type ScoreResult struct {
	AngelScore float64 `json:"angelScore"`
	ICPScore   float64 `json:"icpScore"`
	FinalScore float64 `json:"finalScore"`
}

// NewScoreResult derives FinalScore from the two sub-scores.
func NewScoreResult(angel, icp float64) ScoreResult {
	return ScoreResult{
		AngelScore: angel,
		ICPScore:   icp,
		FinalScore: (angel + icp) / 2,
	}
}

// OutreachStatus summarises what happened to a lead at the outreach step.
type OutreachStatus string

const (
	OutreachStatusSent        OutreachStatus = "sent"
	OutreachStatusSkipped     OutreachStatus = "skipped"
	OutreachStatusNotEligible OutreachStatus = "not_eligible"
	OutreachStatusDisabled    OutreachStatus = "disabled"
)

// LeadRecord is the persisted output for one input lead.
type LeadRecord struct {
	Name             string         `json:"name"`
	Bio              string         `json:"bio"`
	URL              string         `json:"url"`
	Email            string         `json:"email"`
	Platform         string         `json:"platform"`
	AngelScore       float64        `json:"angelScore"`
	ICPScore         float64        `json:"icpScore"`
	FinalScore       float64        `json:"finalScore"`
	Tags             []string       `json:"tags"`
	MeetingScheduled bool           `json:"meeting_scheduled"`
	MeetingTime      *time.Time     `json:"meeting_time"`
	CreatedAt        time.Time      `json:"created_at"`
	OutreachStatus   OutreachStatus `json:"outreach_status,omitempty"`

	// NotionPageID links the record back to the Notion page it was queued from.
	NotionPageID string `json:"-"`
}

// Score returns the record's scores as a ScoreResult.
func (r LeadRecord) Score() ScoreResult {
	return ScoreResult{AngelScore: r.AngelScore, ICPScore: r.ICPScore, FinalScore: r.FinalScore}
}
