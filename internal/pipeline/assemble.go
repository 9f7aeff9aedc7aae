package pipeline

import (
	"strings"
	"time"

	"github.com/sells-group/lead-cli/internal/model"
)

// AssembleOptions holds the static values stamped on every record.
type AssembleOptions struct {
	Tags        []string
	EmailDomain string
}

// Assemble merges extraction, scoring and input metadata into a record. When
// the page yielded no name, the name supplied with the input is used.
func Assemble(in model.LeadInput, profile model.ExtractedProfile, score model.ScoreResult, opts AssembleOptions, now time.Time) model.LeadRecord {
	name := profile.Name
	if !profile.HasName() && strings.TrimSpace(in.Name) != "" {
		name = strings.TrimSpace(in.Name)
	}

	email := strings.TrimSpace(in.Email)
	if email == "" {
		email = PlaceholderEmail(name, opts.EmailDomain)
	}

	tags := opts.Tags
	if len(tags) == 0 {
		tags = []string{model.DefaultTag}
	}

	return model.LeadRecord{
		Name:             name,
		Bio:              profile.Bio,
		URL:              in.URL,
		Email:            email,
		Platform:         model.PlatformLinkedIn,
		AngelScore:       score.AngelScore,
		ICPScore:         score.ICPScore,
		FinalScore:       score.FinalScore,
		Tags:             append([]string(nil), tags...),
		MeetingScheduled: false,
		MeetingTime:      nil,
		CreatedAt:        now.UTC(),
		NotionPageID:     in.NotionPageID,
	}
}

// PlaceholderEmail derives a synthetic address from a display name: lower
// case, whitespace runs replaced by dots. It is an identifier, not contact
// data.
func PlaceholderEmail(name, domain string) string {
	if domain == "" {
		domain = "mockemail.com"
	}
	local := strings.Join(strings.Fields(strings.ToLower(name)), ".")
	if local == "" {
		local = "unknown"
	}
	return local + "@" + domain
}
