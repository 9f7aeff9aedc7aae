package notion

import (
	"context"
	"encoding/csv"
	"os"
	"strings"

	"github.com/jomei/notionapi"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// urlHeaders are the accepted names of the profile URL column.
var urlHeaders = map[string]bool{"url": true, "profile": true, "linkedin": true, "linkedin url": true}

// ImportCSV queues the profiles listed in a CSV file in the lead database.
// The header row must contain a URL column ("url", "profile", "linkedin" or
// "linkedin url"); "name" and "email" columns are optional. Rows are
// de-duplicated by URL within the file and against pages already in the
// database. Returns the number of pages created.
func ImportCSV(ctx context.Context, c Client, dbID, csvPath string) (int, error) {
	f, err := os.Open(csvPath)
	if err != nil {
		return 0, eris.Wrapf(err, "notion: open csv %s", csvPath)
	}
	defer f.Close() //nolint:errcheck

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return 0, eris.Wrap(err, "notion: read csv")
	}
	if len(records) < 2 {
		return 0, nil
	}

	urlIdx, nameIdx, emailIdx := -1, -1, -1
	for i, h := range records[0] {
		h = strings.ToLower(strings.TrimSpace(h))
		switch {
		case urlHeaders[h] && urlIdx < 0:
			urlIdx = i
		case h == "name":
			nameIdx = i
		case h == "email":
			emailIdx = i
		}
	}
	if urlIdx < 0 {
		return 0, eris.New("notion: csv has no url column")
	}

	existing, err := QueryAll(ctx, c, dbID, nil)
	if err != nil {
		return 0, eris.Wrap(err, "notion: load existing leads")
	}
	seen := make(map[string]bool, len(existing))
	for _, p := range existing {
		if u := NormalizeProfileURL(PlainText(p.Properties, PropURL)); u != "" {
			seen[u] = true
		}
	}

	created := 0
	for _, row := range records[1:] {
		url := NormalizeProfileURL(cell(row, urlIdx))
		if url == "" || seen[url] {
			continue
		}
		seen[url] = true

		name := cell(row, nameIdx)
		if name == "" {
			name = url
		}
		props := notionapi.Properties{
			PropName:   Title(name),
			PropURL:    notionapi.URLProperty{URL: url},
			PropStatus: Status(StatusQueued),
		}
		if email := cell(row, emailIdx); email != "" {
			props[PropEmail] = notionapi.EmailProperty{Email: email}
		}

		if _, err := c.CreatePage(ctx, &notionapi.PageCreateRequest{
			Parent: notionapi.Parent{
				Type:       notionapi.ParentTypeDatabaseID,
				DatabaseID: notionapi.DatabaseID(dbID),
			},
			Properties: props,
		}); err != nil {
			return created, eris.Wrapf(err, "notion: queue %s", url)
		}
		created++
	}

	zap.L().Info("notion: csv import complete",
		zap.String("path", csvPath),
		zap.Int("rows", len(records)-1),
		zap.Int("created", created),
	)
	return created, nil
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

// NormalizeProfileURL trims a profile URL, adds a missing https scheme and
// drops query strings, fragments and the trailing slash.
func NormalizeProfileURL(u string) string {
	u = strings.TrimSpace(u)
	if u == "" {
		return ""
	}
	if i := strings.IndexAny(u, "?#"); i >= 0 {
		u = u[:i]
	}
	if !strings.HasPrefix(u, "http://") && !strings.HasPrefix(u, "https://") {
		u = "https://" + u
	}
	return strings.TrimRight(u, "/")
}
