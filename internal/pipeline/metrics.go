package pipeline

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rotisserie/eris"

	"github.com/sells-group/lead-cli/internal/model"
)

// Metrics bundles the run's Prometheus collectors. All methods are safe on a
// nil receiver.
type Metrics struct {
	Registry        *prometheus.Registry
	LeadsProcessed  *prometheus.CounterVec
	StepDuration    *prometheus.HistogramVec
	OutreachTotal   *prometheus.CounterVec
	EvaluationCalls *prometheus.CounterVec
	LoginAttempts   *prometheus.CounterVec
}

// NewMetrics constructs and registers all metrics on a dedicated registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	leads := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leads_processed_total",
			Help: "Leads processed, by result (ok, degraded, failed).",
		},
		[]string{"result"},
	)
	stepDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "lead_step_duration_seconds",
			Help:    "Time spent in each per-lead step.",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 20, 30, 60},
		},
		[]string{"step"},
	)
	outreach := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "outreach_total",
			Help: "Outreach attempts by terminal state.",
		},
		[]string{"state"},
	)
	evaluation := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "evaluation_calls_total",
			Help: "Score evaluations by result.",
		},
		[]string{"result"},
	)
	logins := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "login_attempts_total",
			Help: "Login attempts by result.",
		},
		[]string{"result"},
	)

	registry.MustRegister(leads, stepDuration, outreach, evaluation, logins)

	return &Metrics{
		Registry:        registry,
		LeadsProcessed:  leads,
		StepDuration:    stepDuration,
		OutreachTotal:   outreach,
		EvaluationCalls: evaluation,
		LoginAttempts:   logins,
	}
}

// LeadProcessed counts a finished lead.
func (m *Metrics) LeadProcessed(result string) {
	if m == nil {
		return
	}
	m.LeadsProcessed.WithLabelValues(result).Inc()
}

// ObserveStep records how long a per-lead step took.
func (m *Metrics) ObserveStep(step string, d time.Duration) {
	if m == nil {
		return
	}
	m.StepDuration.WithLabelValues(step).Observe(d.Seconds())
}

// Outreach counts a terminal outreach state.
func (m *Metrics) Outreach(state model.OutreachState) {
	if m == nil {
		return
	}
	m.OutreachTotal.WithLabelValues(string(state)).Inc()
}

// EvaluationCall counts a score evaluation outcome.
func (m *Metrics) EvaluationCall(result string) {
	if m == nil {
		return
	}
	m.EvaluationCalls.WithLabelValues(result).Inc()
}

// LoginAttempt counts a login attempt.
func (m *Metrics) LoginAttempt(ok bool) {
	if m == nil {
		return
	}
	result := "failed"
	if ok {
		result = "ok"
	}
	m.LoginAttempts.WithLabelValues(result).Inc()
}

// WriteTextfile writes the registry in the node_exporter textfile format.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil || path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, m.Registry); err != nil {
		return eris.Wrap(err, "pipeline: write metrics textfile")
	}
	return nil
}
