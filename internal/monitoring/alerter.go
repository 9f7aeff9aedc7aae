// Package monitoring turns run outcomes into alerts posted to a webhook.
package monitoring

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/lead-cli/internal/config"
	"github.com/sells-group/lead-cli/internal/model"
)

// AlertType identifies the kind of alert.
type AlertType string

const (
	AlertLoginFailure    AlertType = "login_failure"
	AlertLeadFailureRate AlertType = "lead_failure_rate"
	AlertSinkFailure     AlertType = "sink_failure"
	AlertSnapshotFailure AlertType = "snapshot_failure"
)

// Alert represents a single alert to be sent.
type Alert struct {
	Type      AlertType      `json:"type"`
	Severity  string         `json:"severity"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// RunSummary is the part of a run the alerter looks at.
type RunSummary struct {
	RunID         string
	Total         int
	NotFound      int
	FailRate      float64
	SnapshotError string
	FailedSinks   map[string]string
}

// Summarize derives a RunSummary from a finished run. A lead counts as not
// found when neither its name nor its bio could be read.
func Summarize(r *model.RunResult) RunSummary {
	s := RunSummary{
		RunID:         r.ID,
		Total:         len(r.Leads),
		SnapshotError: r.SnapshotError,
		FailedSinks:   make(map[string]string),
	}
	for _, l := range r.Leads {
		if l.Name == model.NameNotFound && l.Bio == model.BioNotFound {
			s.NotFound++
		}
	}
	if s.Total > 0 {
		s.FailRate = float64(s.NotFound) / float64(s.Total)
	}
	for _, p := range r.Pushes {
		if p.Error != "" {
			s.FailedSinks[p.Sink] = p.Error
		}
	}
	return s
}

// Alerter evaluates run summaries against configured thresholds and sends
// alerts via webhook.
type Alerter struct {
	cfg    config.MonitoringConfig
	client *http.Client
	now    func() time.Time
}

// NewAlerter creates a new Alerter with the given monitoring config.
func NewAlerter(cfg config.MonitoringConfig) *Alerter {
	return &Alerter{
		cfg:    cfg,
		client: &http.Client{Timeout: 10 * time.Second},
		now:    time.Now,
	}
}

// Evaluate checks the summary against thresholds and returns any alerts.
func (a *Alerter) Evaluate(s RunSummary) []Alert {
	var alerts []Alert
	now := a.now().UTC()

	if s.Total >= a.cfg.MinLeads && s.Total > 0 && s.FailRate > a.cfg.FailureRateThreshold {
		alerts = append(alerts, Alert{
			Type:     AlertLeadFailureRate,
			Severity: "high",
			Message: fmt.Sprintf(
				"%.1f%% of leads unreadable, threshold %.1f%% (%d of %d in run %s)",
				s.FailRate*100, a.cfg.FailureRateThreshold*100, s.NotFound, s.Total, s.RunID,
			),
			Details: map[string]any{
				"failure_rate": s.FailRate,
				"threshold":    a.cfg.FailureRateThreshold,
				"not_found":    s.NotFound,
				"total":        s.Total,
			},
			Timestamp: now,
		})
	}

	if s.SnapshotError != "" {
		alerts = append(alerts, Alert{
			Type:      AlertSnapshotFailure,
			Severity:  "high",
			Message:   fmt.Sprintf("snapshot for run %s was not written: %s", s.RunID, s.SnapshotError),
			Timestamp: now,
		})
	}

	if len(s.FailedSinks) > 0 {
		alerts = append(alerts, Alert{
			Type:     AlertSinkFailure,
			Severity: "medium",
			Message:  fmt.Sprintf("%d sink(s) rejected run %s", len(s.FailedSinks), s.RunID),
			Details: map[string]any{
				"sinks": s.FailedSinks,
			},
			Timestamp: now,
		})
	}

	return alerts
}

// LoginFailed builds the alert for a run that could not authenticate.
func (a *Alerter) LoginFailed(err error) Alert {
	return Alert{
		Type:      AlertLoginFailure,
		Severity:  "critical",
		Message:   fmt.Sprintf("run aborted, login failed: %v", err),
		Timestamp: a.now().UTC(),
	}
}

// SendAlerts delivers alerts to the configured webhook URL.
// Returns the number of alerts successfully sent.
func (a *Alerter) SendAlerts(ctx context.Context, alerts []Alert) int {
	if a.cfg.WebhookURL == "" || len(alerts) == 0 {
		return 0
	}

	sent := 0
	for _, alert := range alerts {
		if err := a.sendWebhook(ctx, alert); err != nil {
			zap.L().Error("monitoring: failed to send alert",
				zap.String("type", string(alert.Type)),
				zap.Error(err),
			)
			continue
		}
		zap.L().Info("monitoring: alert sent",
			zap.String("type", string(alert.Type)),
			zap.String("severity", alert.Severity),
		)
		sent++
	}
	return sent
}

// sendWebhook posts a single alert to the webhook URL.
func (a *Alerter) sendWebhook(ctx context.Context, alert Alert) error {
	payload, err := json.Marshal(alert)
	if err != nil {
		return eris.Wrap(err, "monitoring: marshal alert")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.WebhookURL, bytes.NewReader(payload))
	if err != nil {
		return eris.Wrap(err, "monitoring: create webhook request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return eris.Wrap(err, "monitoring: webhook request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode >= 400 {
		return eris.Errorf("monitoring: webhook returned status %d", resp.StatusCode)
	}
	return nil
}
