package pipeline

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/lead-cli/internal/model"
)

func TestAssemble(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.FixedZone("EST", -5*3600))
	in := model.LeadInput{URL: "https://www.linkedin.com/in/jane", NotionPageID: "page-1"}

	rec := Assemble(in, profile("Jane Q Doe", "Founder"), model.NewScoreResult(8, 6), AssembleOptions{}, now)

	assert.Equal(t, "Jane Q Doe", rec.Name)
	assert.Equal(t, "Founder", rec.Bio)
	assert.Equal(t, in.URL, rec.URL)
	assert.Equal(t, "jane.q.doe@mockemail.com", rec.Email)
	assert.Equal(t, "LinkedIn", rec.Platform)
	assert.Equal(t, 8.0, rec.AngelScore)
	assert.Equal(t, 6.0, rec.ICPScore)
	assert.Equal(t, 7.0, rec.FinalScore)
	assert.Equal(t, []string{"auto"}, rec.Tags)
	assert.False(t, rec.MeetingScheduled)
	assert.Nil(t, rec.MeetingTime)
	assert.Equal(t, now.UTC(), rec.CreatedAt)
	assert.Equal(t, "page-1", rec.NotionPageID)
}

func TestAssemble_SuppliedEmailAndTags(t *testing.T) {
	in := model.LeadInput{URL: "u", Email: " jane@acme.io "}
	opts := AssembleOptions{Tags: []string{"angel", "q1"}, EmailDomain: "example.test"}

	rec := Assemble(in, profile("Jane", "bio"), model.NewScoreResult(1, 1), opts, fixedNow)

	assert.Equal(t, "jane@acme.io", rec.Email)
	assert.Equal(t, []string{"angel", "q1"}, rec.Tags)

	// Records never share the options' tag slice.
	rec.Tags[0] = "changed"
	assert.Equal(t, "angel", opts.Tags[0])
}

func TestAssemble_InputNameFallback(t *testing.T) {
	in := model.LeadInput{URL: "u", Name: "Sam Ortiz"}

	rec := Assemble(in, profile(model.NameNotFound, model.BioNotFound), model.NewScoreResult(1, 1), AssembleOptions{}, fixedNow)

	assert.Equal(t, "Sam Ortiz", rec.Name)
	assert.Equal(t, "sam.ortiz@mockemail.com", rec.Email)
	assert.Equal(t, model.BioNotFound, rec.Bio)
}

func TestAssemble_JSONShape(t *testing.T) {
	rec := Assemble(model.LeadInput{URL: "u"}, profile("A B", "c"), model.NewScoreResult(2, 4), AssembleOptions{}, fixedNow)

	raw, err := json.Marshal(rec)
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(raw, &m))
	assert.Contains(t, m, "meeting_time")
	assert.Nil(t, m["meeting_time"])
	assert.Equal(t, false, m["meeting_scheduled"])
	assert.Equal(t, "LinkedIn", m["platform"])
	assert.Equal(t, 3.0, m["finalScore"])
	assert.NotContains(t, m, "NotionPageID")
}

func TestPlaceholderEmail(t *testing.T) {
	tests := []struct {
		name, domain, want string
	}{
		{"Jane Doe", "", "jane.doe@mockemail.com"},
		{"  Mary   Ann\tSmith ", "", "mary.ann.smith@mockemail.com"},
		{"José Núñez", "leads.test", "josé.núñez@leads.test"},
		{"", "", "unknown@mockemail.com"},
		{model.NameNotFound, "", "name.not.found@mockemail.com"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, PlaceholderEmail(tt.name, tt.domain), "name %q", tt.name)
	}
}
