// Package crm connects the pipeline to external CRMs: Notion as a lead queue
// and results table, Salesforce as a lead sink.
package crm

import (
	"context"
	"time"

	"github.com/jomei/notionapi"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/lead-cli/internal/model"
	"github.com/sells-group/lead-cli/pkg/notion"
)

// NotionSource reads queued leads from a Notion lead database.
type NotionSource struct {
	client notion.Client
	dbID   string
}

// NewNotionSource creates a NotionSource for the given database.
func NewNotionSource(client notion.Client, dbID string) *NotionSource {
	return &NotionSource{client: client, dbID: dbID}
}

// Leads returns up to limit queued leads (all when limit <= 0). Pages without
// a URL are skipped.
func (s *NotionSource) Leads(ctx context.Context, limit int) ([]model.LeadInput, error) {
	pages, err := notion.QueryQueuedLeads(ctx, s.client, s.dbID)
	if err != nil {
		return nil, eris.Wrap(err, "crm: load notion leads")
	}

	var leads []model.LeadInput
	for _, p := range pages {
		in := PageToLead(p)
		if in.URL == "" {
			zap.L().Warn("crm: queued notion page has no url", zap.String("page_id", string(p.ID)))
			continue
		}
		leads = append(leads, in)
		if limit > 0 && len(leads) == limit {
			break
		}
	}
	return leads, nil
}

// PageToLead maps a lead database page to a LeadInput.
func PageToLead(p notionapi.Page) model.LeadInput {
	return model.LeadInput{
		URL:          notion.NormalizeProfileURL(notion.PlainText(p.Properties, notion.PropURL)),
		Name:         notion.PlainText(p.Properties, notion.PropName),
		Email:        notion.PlainText(p.Properties, notion.PropEmail),
		NotionPageID: string(p.ID),
	}
}

// NotionSink writes enrichment results to the lead database. Leads that came
// from Notion update their page; others get a new page.
type NotionSink struct {
	client notion.Client
	dbID   string
	now    func() time.Time
}

// NewNotionSink creates a NotionSink for the given database.
func NewNotionSink(client notion.Client, dbID string) *NotionSink {
	return &NotionSink{client: client, dbID: dbID, now: time.Now}
}

// Name implements pipeline.Sink.
func (s *NotionSink) Name() string { return "notion" }

// InsertLeads writes every lead, continuing past individual failures. The
// error reports how many leads could not be written.
func (s *NotionSink) InsertLeads(ctx context.Context, leads []model.LeadRecord) (int, error) {
	written := 0
	var firstErr error
	for _, rec := range leads {
		if err := s.write(ctx, rec); err != nil {
			zap.L().Warn("crm: notion write failed", zap.String("url", rec.URL), zap.Error(err))
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		written++
	}
	if firstErr != nil {
		return written, eris.Wrapf(firstErr, "crm: %d of %d notion writes failed", len(leads)-written, len(leads))
	}
	return written, nil
}

func (s *NotionSink) write(ctx context.Context, rec model.LeadRecord) error {
	props := LeadProperties(rec, s.now())
	if rec.NotionPageID != "" {
		_, err := s.client.UpdatePage(ctx, rec.NotionPageID, &notionapi.PageUpdateRequest{Properties: props})
		return err
	}

	props[notion.PropURL] = notionapi.URLProperty{URL: rec.URL}
	_, err := s.client.CreatePage(ctx, &notionapi.PageCreateRequest{
		Parent: notionapi.Parent{
			Type:       notionapi.ParentTypeDatabaseID,
			DatabaseID: notionapi.DatabaseID(s.dbID),
		},
		Properties: props,
	})
	return err
}

// LeadProperties maps a record to lead database properties. A lead whose
// profile could not be read is marked Failed.
func LeadProperties(rec model.LeadRecord, now time.Time) notionapi.Properties {
	status := notion.StatusEnriched
	if rec.Name == model.NameNotFound && rec.Bio == model.BioNotFound {
		status = notion.StatusFailed
	}
	outreach := string(rec.OutreachStatus)
	if outreach == "" {
		outreach = string(model.OutreachStatusDisabled)
	}

	return notionapi.Properties{
		notion.PropName:         notion.Title(rec.Name),
		notion.PropStatus:       notion.Status(status),
		notion.PropBio:          notion.RichText(rec.Bio),
		notion.PropAngelScore:   notion.Number(rec.AngelScore),
		notion.PropICPScore:     notion.Number(rec.ICPScore),
		notion.PropFinalScore:   notion.Number(rec.FinalScore),
		notion.PropTags:         notion.MultiSelect(rec.Tags...),
		notion.PropOutreach:     notion.Select(outreach),
		notion.PropLastEnriched: notion.Date(now),
	}
}
