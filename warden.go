// Package warden assembles the authorization, audit, and compliance
// components into one Core that an embedding application holds for the
// life of the process. Everything is in-memory and synchronous; the
// only background work is the retry loop inside the audit recorder and
// whatever the jobs scheduler runs.
package warden

import (
	"github.com/sirupsen/logrus"

	"github.com/mindcastle/warden/pkg/alerting"
	"github.com/mindcastle/warden/pkg/anomaly"
	"github.com/mindcastle/warden/pkg/audit"
	"github.com/mindcastle/warden/pkg/compliance"
	"github.com/mindcastle/warden/pkg/config"
	"github.com/mindcastle/warden/pkg/observability"
	"github.com/mindcastle/warden/pkg/rbac"
	"github.com/mindcastle/warden/pkg/teams"
)

// Core bundles every warden component. Fields are the embedding API;
// callers check access through Checker, record activity through
// Recorder, and manage teams through Teams.
type Core struct {
	Grants      *rbac.GrantStore
	Roles       *rbac.Registry
	Checker     *rbac.Checker
	Teams       *teams.Registry
	AuditLog    *audit.Log
	SecurityLog *audit.SecurityLog
	AccessLog   *audit.AccessLog
	Encrypted   *audit.EncryptedLog
	Recorder    *audit.Recorder
	Exporter    *audit.Exporter
	Archive     *audit.Archive
	Retention   *audit.Manager
	Anomalies   *anomaly.Monitor
	Violations  *compliance.Monitor
	Reporter    *compliance.Reporter
}

// New builds a Core from configuration. The encrypted log is only
// present when an encryption key is configured. A nil alerter falls
// back to logging alerts at error level.
func New(cfg *config.Config, logger *logrus.Logger, metrics *observability.Metrics, alerter alerting.Alerter) (*Core, error) {
	if logger == nil {
		logger = logrus.New()
	}

	grants := rbac.NewGrantStore()
	roles := rbac.NewRegistry()
	checker := rbac.NewChecker(grants, roles,
		rbac.WithDecisionCache(cfg.DecisionCacheSize, cfg.DecisionCacheTTL),
		rbac.WithCheckerMetrics(metrics),
	)

	auditLog := audit.NewLog(nil)
	securityLog := audit.NewSecurityLog(nil)
	accessLog := audit.NewAccessLog(nil)
	recorder := audit.NewRecorder(auditLog, securityLog, accessLog, logger, alerter,
		audit.WithRecorderMetrics(metrics))

	var encrypted *audit.EncryptedLog
	key, err := cfg.EncryptionKey()
	if err != nil {
		return nil, err
	}
	if key != nil {
		encrypted, err = audit.NewEncryptedLog(key, nil)
		if err != nil {
			return nil, err
		}
	}

	anomalies, err := anomaly.NewMonitor(cfg.AnomalyThreshold,
		anomaly.WithMetrics(metrics))
	if err != nil {
		return nil, err
	}
	violations := compliance.NewMonitor(compliance.WithMonitorMetrics(metrics))
	reporter := compliance.NewReporter(auditLog, securityLog,
		compliance.WithReporterMetrics(metrics))

	archive := audit.NewArchive()
	retention := audit.NewManager(auditLog, securityLog, accessLog, archive, logger,
		audit.WithViolationPruner(violations),
		audit.WithManagerMetrics(metrics))
	for kind, r := range map[audit.LogKind]config.KindRetention{
		audit.KindAudit:      cfg.Retention.Audit,
		audit.KindSecurity:   cfg.Retention.Security,
		audit.KindAccess:     cfg.Retention.Access,
		audit.KindCompliance: cfg.Retention.Compliance,
	} {
		if err := retention.ApplyPolicy(kind, audit.RetentionPolicy{
			RetentionDays:    r.RetentionDays,
			ArchiveAfterDays: r.ArchiveAfterDays,
		}); err != nil {
			return nil, err
		}
	}

	return &Core{
		Grants:      grants,
		Roles:       roles,
		Checker:     checker,
		Teams:       teams.NewRegistry(nil),
		AuditLog:    auditLog,
		SecurityLog: securityLog,
		AccessLog:   accessLog,
		Encrypted:   encrypted,
		Recorder:    recorder,
		Exporter:    audit.NewExporter(auditLog),
		Archive:     archive,
		Retention:   retention,
		Anomalies:   anomalies,
		Violations:  violations,
		Reporter:    reporter,
	}, nil
}

// Close stops the recorder's retry loop. Pending retries are dropped.
func (c *Core) Close() {
	c.Recorder.Close()
}
