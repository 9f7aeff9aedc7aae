package notion

import (
	"context"

	"github.com/jomei/notionapi"
	"github.com/rotisserie/eris"
)

// Lead database status values.
const (
	StatusQueued   = "Queued"
	StatusEnriched = "Enriched"
	StatusFailed   = "Failed"
)

// QueryAll fetches every page matching query, following cursors until the
// database reports no more results. A nil query returns all pages.
func QueryAll(ctx context.Context, c Client, dbID string, query *notionapi.DatabaseQueryRequest) ([]notionapi.Page, error) {
	req := &notionapi.DatabaseQueryRequest{PageSize: 100}
	if query != nil {
		req.Filter = query.Filter
		req.Sorts = query.Sorts
		if query.PageSize > 0 {
			req.PageSize = query.PageSize
		}
	}

	var all []notionapi.Page
	for {
		resp, err := c.QueryDatabase(ctx, dbID, req)
		if err != nil {
			return nil, eris.Wrap(err, "notion: query all page")
		}
		all = append(all, resp.Results...)
		if !resp.HasMore || resp.NextCursor == "" {
			return all, nil
		}

		next := *req
		next.StartCursor = resp.NextCursor
		req = &next
	}
}

// QueryByStatus fetches all pages whose Status property equals status.
func QueryByStatus(ctx context.Context, c Client, dbID, status string) ([]notionapi.Page, error) {
	query := &notionapi.DatabaseQueryRequest{
		Filter: notionapi.PropertyFilter{
			Property: PropStatus,
			Status: &notionapi.StatusFilterCondition{
				Equals: status,
			},
		},
	}
	pages, err := QueryAll(ctx, c, dbID, query)
	if err != nil {
		return nil, eris.Wrapf(err, "notion: query %s leads", status)
	}
	return pages, nil
}

// QueryQueuedLeads fetches all pages with Status = "Queued".
func QueryQueuedLeads(ctx context.Context, c Client, dbID string) ([]notionapi.Page, error) {
	return QueryByStatus(ctx, c, dbID, StatusQueued)
}
