// Package jobs runs warden's recurring background work on a cron
// schedule: anomaly sweeps, daily compliance reports, and retention
// cleanup. Jobs read and prune store state through the same public
// surfaces callers use; none of them blocks a store for the duration of
// a run.
package jobs

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/mindcastle/warden/pkg/anomaly"
	"github.com/mindcastle/warden/pkg/audit"
	"github.com/mindcastle/warden/pkg/compliance"
)

// Schedules holds the cron expressions for each recurring job. An empty
// expression disables that job.
type Schedules struct {
	AnomalySweep     string
	ComplianceReport string
	Retention        string
}

// Scheduler owns the cron runner and the job closures.
type Scheduler struct {
	cron      *cron.Cron
	logger    *logrus.Logger
	clock     clockwork.Clock
	anomalies *anomaly.Monitor
	reporter  *compliance.Reporter
	retention *audit.Manager

	anomalyWindow time.Duration
	reportSink    func(*compliance.Report)
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithClock overrides the scheduler's clock. Cron firing still follows
// wall time; the clock only feeds job period computation.
func WithClock(clock clockwork.Clock) Option {
	return func(s *Scheduler) { s.clock = clock }
}

// WithReportSink registers a callback invoked with each generated
// periodic report.
func WithReportSink(sink func(*compliance.Report)) Option {
	return func(s *Scheduler) { s.reportSink = sink }
}

// New creates a scheduler. Any of the component references may be nil;
// the corresponding job is then never registered and its Run method is a
// no-op.
func New(logger *logrus.Logger, anomalies *anomaly.Monitor, reporter *compliance.Reporter, retention *audit.Manager, anomalyWindow time.Duration, opts ...Option) *Scheduler {
	if logger == nil {
		logger = logrus.New()
	}
	s := &Scheduler{
		cron:          cron.New(),
		logger:        logger,
		clock:         clockwork.NewRealClock(),
		anomalies:     anomalies,
		reporter:      reporter,
		retention:     retention,
		anomalyWindow: anomalyWindow,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register wires the jobs onto the cron runner. It must be called
// before Start.
func (s *Scheduler) Register(schedules Schedules) error {
	if schedules.AnomalySweep != "" && s.anomalies != nil {
		if _, err := s.cron.AddFunc(schedules.AnomalySweep, s.RunAnomalySweep); err != nil {
			return err
		}
	}
	if schedules.ComplianceReport != "" && s.reporter != nil {
		if _, err := s.cron.AddFunc(schedules.ComplianceReport, s.RunComplianceReport); err != nil {
			return err
		}
	}
	if schedules.Retention != "" && s.retention != nil {
		if _, err := s.cron.AddFunc(schedules.Retention, s.RunRetention); err != nil {
			return err
		}
	}
	return nil
}

// Start begins running the registered jobs in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts the cron runner and waits for in-flight jobs to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

// RunAnomalySweep detects unusual activity across all tracked users and
// prunes activity samples older than the detection window.
func (s *Scheduler) RunAnomalySweep() {
	if s.anomalies == nil {
		return
	}
	found := s.anomalies.DetectAll(s.anomalyWindow)
	for _, a := range found {
		s.logger.WithFields(logrus.Fields{
			"user_id":  a.UserID,
			"type":     a.Type,
			"severity": a.Severity,
		}).Warn(a.Description)
	}
	pruned := s.anomalies.Prune(s.clock.Now().Add(-s.anomalyWindow))
	s.logger.WithFields(logrus.Fields{
		"anomalies": len(found),
		"pruned":    pruned,
	}).Debug("anomaly sweep complete")
}

// RunComplianceReport generates the report for the 24 hours ending now.
func (s *Scheduler) RunComplianceReport() {
	if s.reporter == nil {
		return
	}
	end := s.clock.Now().UTC()
	start := end.Add(-24 * time.Hour)
	report, err := s.reporter.GenerateReport(context.Background(), start, end, compliance.ReportFull)
	if err != nil {
		s.logger.WithError(err).Error("periodic compliance report failed")
		return
	}
	s.logger.WithFields(logrus.Fields{
		"report_id":        report.ID,
		"total_events":     report.Summary.TotalEvents,
		"critical_events":  report.Summary.CriticalEvents,
		"compliance_score": report.Summary.ComplianceScore,
	}).Info("periodic compliance report generated")
	if s.reportSink != nil {
		s.reportSink(report)
	}
}

// RunRetention applies the configured retention policies across all
// logs.
func (s *Scheduler) RunRetention() {
	if s.retention == nil {
		return
	}
	result := s.retention.CleanupExpiredLogs()
	s.logger.WithFields(logrus.Fields{
		"deleted":  result.Deleted,
		"archived": result.Archived,
	}).Info("retention cleanup complete")
}
