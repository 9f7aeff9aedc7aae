package crm

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/lead-cli/internal/model"
	"github.com/sells-group/lead-cli/pkg/salesforce"
)

// maxDescription is the length limit of the Lead Description field.
const maxDescription = 32000

// SalesforceSink inserts records as Lead sObjects. Profiles already present
// (matched on Website) are skipped.
type SalesforceSink struct {
	client            salesforce.Client
	placeholderDomain string
}

// NewSalesforceSink creates a SalesforceSink. Addresses on placeholderDomain
// are synthetic and are not copied to the Email field.
func NewSalesforceSink(client salesforce.Client, placeholderDomain string) *SalesforceSink {
	return &SalesforceSink{client: client, placeholderDomain: placeholderDomain}
}

// Name implements pipeline.Sink.
func (s *SalesforceSink) Name() string { return "salesforce" }

// InsertLeads inserts the leads not yet in Salesforce and returns how many
// were created.
func (s *SalesforceSink) InsertLeads(ctx context.Context, leads []model.LeadRecord) (int, error) {
	urls := make([]string, 0, len(leads))
	for _, l := range leads {
		urls = append(urls, l.URL)
	}
	existing, err := salesforce.FindLeadsByWebsite(ctx, s.client, urls)
	if err != nil {
		return 0, eris.Wrap(err, "crm: salesforce lookup")
	}

	var records []map[string]any
	seen := make(map[string]bool, len(leads))
	for _, l := range leads {
		if _, ok := existing[l.URL]; ok || seen[l.URL] {
			continue
		}
		seen[l.URL] = true
		records = append(records, s.LeadFields(l))
	}
	if skipped := len(leads) - len(records); skipped > 0 {
		zap.L().Info("crm: salesforce leads already present", zap.Int("skipped", skipped))
	}
	if len(records) == 0 {
		return 0, nil
	}

	results, err := salesforce.BulkInsertLeads(ctx, s.client, records)
	created := 0
	var failures []string
	for _, r := range results {
		if r.Success {
			created++
			continue
		}
		failures = append(failures, strings.Join(r.Errors, "; "))
	}
	if err != nil {
		return created, eris.Wrap(err, "crm: salesforce insert")
	}
	if len(failures) > 0 {
		return created, eris.Errorf("crm: %d salesforce leads rejected: %s", len(failures), failures[0])
	}
	return created, nil
}

// LeadFields maps a record to Lead sObject fields.
func (s *SalesforceSink) LeadFields(l model.LeadRecord) map[string]any {
	first, last := splitName(l.Name)
	desc := fmt.Sprintf("Angel score: %g\nICP score: %g\nFinal score: %g\n\n%s", l.AngelScore, l.ICPScore, l.FinalScore, l.Bio)
	if r := []rune(desc); len(r) > maxDescription {
		desc = string(r[:maxDescription])
	}

	fields := map[string]any{
		"FirstName":   first,
		"LastName":    last,
		"Company":     "[not provided]",
		"Website":     l.URL,
		"LeadSource":  l.Platform,
		"Rating":      rating(l.FinalScore),
		"Description": desc,
	}
	if l.Email != "" && (s.placeholderDomain == "" || !strings.HasSuffix(l.Email, "@"+s.placeholderDomain)) {
		fields["Email"] = l.Email
	}
	return fields
}

// splitName puts the last word in LastName, which Salesforce requires.
func splitName(name string) (first, last string) {
	if name == model.NameNotFound {
		return "", "Unknown"
	}
	parts := strings.Fields(name)
	switch len(parts) {
	case 0:
		return "", "Unknown"
	case 1:
		return "", parts[0]
	default:
		return strings.Join(parts[:len(parts)-1], " "), parts[len(parts)-1]
	}
}

func rating(final float64) string {
	switch {
	case final >= 7:
		return "Hot"
	case final >= 4:
		return "Warm"
	default:
		return "Cold"
	}
}
