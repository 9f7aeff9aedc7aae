package salesforce

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
)

// MaxBatchSize is the Salesforce Collections API limit per request.
const MaxBatchSize = 200

// Lead is the subset of the Lead sObject read back for de-duplication.
type Lead struct {
	ID      string `json:"Id" salesforce:"Id"`
	Website string `json:"Website" salesforce:"Website"`
}

// BulkInsertLeads inserts Lead records in batches of MaxBatchSize. Results
// of completed batches are returned alongside the first batch error.
func BulkInsertLeads(ctx context.Context, c Client, records []map[string]any) ([]CollectionResult, error) {
	var all []CollectionResult
	for start := 0; start < len(records); start += MaxBatchSize {
		end := min(start+MaxBatchSize, len(records))
		results, err := c.InsertCollection(ctx, "Lead", records[start:end])
		if err != nil {
			return all, eris.Wrapf(err, "sf: bulk insert leads batch %d-%d", start, end)
		}
		all = append(all, results...)
	}
	return all, nil
}

// FindLeadsByWebsite returns the Lead IDs keyed by Website for the given
// profile URLs. URLs without a matching Lead are absent from the map.
func FindLeadsByWebsite(ctx context.Context, c Client, websites []string) (map[string]string, error) {
	found := make(map[string]string)
	// Keep each IN clause well under the SOQL length limit.
	const chunk = 100
	for start := 0; start < len(websites); start += chunk {
		end := min(start+chunk, len(websites))
		quoted := make([]string, 0, end-start)
		for _, w := range websites[start:end] {
			quoted = append(quoted, "'"+escapeSoql(w)+"'")
		}
		soql := fmt.Sprintf("SELECT Id, Website FROM Lead WHERE Website IN (%s)", strings.Join(quoted, ", "))

		var leads []Lead
		if err := c.Query(ctx, soql, &leads); err != nil {
			return nil, eris.Wrap(err, "sf: find leads by website")
		}
		for _, l := range leads {
			found[l.Website] = l.ID
		}
	}
	return found, nil
}

// escapeSoql escapes backslashes and single quotes in SOQL string literals.
func escapeSoql(s string) string {
	return strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(s)
}
