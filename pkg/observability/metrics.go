package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all Prometheus metrics for the authorization and audit
// core.
type Metrics struct {
	// Access decision metrics
	AccessChecksTotal        *prometheus.CounterVec
	DecisionCacheHitsTotal   prometheus.Counter
	DecisionCacheMissesTotal prometheus.Counter

	// Event log metrics
	EventsRecordedTotal     *prometheus.CounterVec
	EventWriteFailuresTotal *prometheus.CounterVec
	EventWriteRetriesTotal  prometheus.Counter

	// Anomaly and compliance metrics
	AnomaliesDetectedTotal  *prometheus.CounterVec
	ViolationsReportedTotal *prometheus.CounterVec
	ViolationsResolvedTotal prometheus.Counter
	ReportsGeneratedTotal   *prometheus.CounterVec

	// Retention metrics
	RetentionDeletedTotal  *prometheus.CounterVec
	RetentionArchivedTotal *prometheus.CounterVec

	// Alerting metrics
	AlertsRaisedTotal *prometheus.CounterVec
}

// NewMetrics creates and registers all warden metrics on the given
// registry. A nil registry registers nothing, which keeps tests quiet.
func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		AccessChecksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "warden_access_checks_total",
				Help: "Total number of access decisions",
			},
			[]string{"decision"},
		),
		DecisionCacheHitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "warden_decision_cache_hits_total",
				Help: "Total number of decision cache hits",
			},
		),
		DecisionCacheMissesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "warden_decision_cache_misses_total",
				Help: "Total number of decision cache misses",
			},
		),
		EventsRecordedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "warden_events_recorded_total",
				Help: "Total number of events appended per log",
			},
			[]string{"log"},
		),
		EventWriteFailuresTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "warden_event_write_failures_total",
				Help: "Total number of failed event writes per log",
			},
			[]string{"log"},
		),
		EventWriteRetriesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "warden_event_write_retries_total",
				Help: "Total number of out-of-band event write retries",
			},
		),
		AnomaliesDetectedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "warden_anomalies_detected_total",
				Help: "Total number of detected activity anomalies",
			},
			[]string{"type"},
		),
		ViolationsReportedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "warden_violations_reported_total",
				Help: "Total number of reported compliance violations",
			},
			[]string{"severity"},
		),
		ViolationsResolvedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "warden_violations_resolved_total",
				Help: "Total number of resolved compliance violations",
			},
		),
		ReportsGeneratedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "warden_reports_generated_total",
				Help: "Total number of generated compliance reports",
			},
			[]string{"type"},
		),
		RetentionDeletedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "warden_retention_deleted_total",
				Help: "Total number of entries deleted by retention",
			},
			[]string{"kind"},
		),
		RetentionArchivedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "warden_retention_archived_total",
				Help: "Total number of entries archived by retention",
			},
			[]string{"kind"},
		),
		AlertsRaisedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "warden_alerts_raised_total",
				Help: "Total number of alerts raised on the alerting path",
			},
			[]string{"source"},
		),
	}

	if registry != nil {
		registry.MustRegister(
			m.AccessChecksTotal,
			m.DecisionCacheHitsTotal,
			m.DecisionCacheMissesTotal,
			m.EventsRecordedTotal,
			m.EventWriteFailuresTotal,
			m.EventWriteRetriesTotal,
			m.AnomaliesDetectedTotal,
			m.ViolationsReportedTotal,
			m.ViolationsResolvedTotal,
			m.ReportsGeneratedTotal,
			m.RetentionDeletedTotal,
			m.RetentionArchivedTotal,
			m.AlertsRaisedTotal,
		)
	}

	return m
}
