package audit

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"

	"github.com/mindcastle/warden/pkg/errs"
	"github.com/mindcastle/warden/pkg/observability"
)

// ViolationPruner is implemented by the compliance ledger so the
// retention manager can age out resolved violations under the
// "compliance" policy. It removes resolved violations with timestamps
// before cutoff and returns them for archiving.
type ViolationPruner interface {
	PruneResolvedBefore(cutoff time.Time) []ArchiveRecord
}

// Archive is the at-rest store for entries aged past a policy's
// archive-after threshold but not yet past retention.
type Archive struct {
	mu      sync.RWMutex
	entries []ArchivedEntry
}

// NewArchive creates an empty archive store.
func NewArchive() *Archive {
	return &Archive{}
}

func (a *Archive) add(entries []ArchivedEntry) {
	a.mu.Lock()
	a.entries = append(a.entries, entries...)
	a.mu.Unlock()
}

// ByKind returns the archived entries of one log kind.
func (a *Archive) ByKind(kind LogKind) []ArchivedEntry {
	a.mu.RLock()
	defer a.mu.RUnlock()
	var out []ArchivedEntry
	for _, e := range a.entries {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

// Len returns the total number of archived entries.
func (a *Archive) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.entries)
}

// removeBefore deletes archived entries with timestamps before cutoff.
// Archived entries still age out when their source policy's retention
// window closes.
func (a *Archive) removeBefore(kind LogKind, cutoff time.Time) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	removed := 0
	kept := a.entries[:0]
	for _, e := range a.entries {
		if e.Kind == kind && e.Timestamp.Before(cutoff) {
			removed++
		} else {
			kept = append(kept, e)
		}
	}
	a.entries = kept
	return removed
}

// CleanupResult summarizes one retention sweep.
type CleanupResult struct {
	Deleted  map[LogKind]int `json:"deleted"`
	Archived map[LogKind]int `json:"archived"`
}

// Manager applies per-kind retention policies over the logs. It owns the
// only deletion path: entries older than a policy's RetentionDays are
// deleted; entries older than ArchiveAfterDays but younger than
// RetentionDays move to the archive store.
type Manager struct {
	mu       sync.RWMutex
	policies map[LogKind]RetentionPolicy

	log        *Log
	secLog     *SecurityLog
	accLog     *AccessLog
	violations ViolationPruner
	archive    *Archive

	clock   clockwork.Clock
	logger  *logrus.Logger
	metrics *observability.Metrics
}

// ManagerOption configures a retention Manager.
type ManagerOption func(*Manager)

// WithViolationPruner wires the compliance ledger in for the
// "compliance" policy kind.
func WithViolationPruner(p ViolationPruner) ManagerOption {
	return func(m *Manager) { m.violations = p }
}

// WithManagerClock overrides the manager's clock.
func WithManagerClock(clock clockwork.Clock) ManagerOption {
	return func(m *Manager) { m.clock = clock }
}

// WithManagerMetrics records retention counters on the given metric set.
func WithManagerMetrics(metrics *observability.Metrics) ManagerOption {
	return func(m *Manager) { m.metrics = metrics }
}

// NewManager creates a retention manager over the three logs and the
// given archive store.
func NewManager(log *Log, secLog *SecurityLog, accLog *AccessLog, archive *Archive, logger *logrus.Logger, opts ...ManagerOption) *Manager {
	if logger == nil {
		logger = logrus.New()
	}
	m := &Manager{
		policies: make(map[LogKind]RetentionPolicy),
		log:      log,
		secLog:   secLog,
		accLog:   accLog,
		archive:  archive,
		clock:    clockwork.NewRealClock(),
		logger:   logger,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// ApplyPolicy sets the lifecycle policy for a log kind, replacing any
// prior policy for that kind.
func (m *Manager) ApplyPolicy(kind LogKind, policy RetentionPolicy) error {
	switch kind {
	case KindAudit, KindSecurity, KindAccess, KindCompliance:
	default:
		return fmt.Errorf("unknown log kind %q: %w", kind, errs.ErrInvalidRequest)
	}
	if policy.RetentionDays <= 0 {
		return fmt.Errorf("retention days must be positive: %w", errs.ErrInvalidRequest)
	}
	if policy.ArchiveAfterDays < 0 || policy.ArchiveAfterDays >= policy.RetentionDays {
		return fmt.Errorf("archive-after days must fall inside the retention window: %w", errs.ErrInvalidRequest)
	}

	m.mu.Lock()
	m.policies[kind] = policy
	m.mu.Unlock()

	m.logger.WithFields(logrus.Fields{
		"kind":               kind,
		"retention_days":     policy.RetentionDays,
		"archive_after_days": policy.ArchiveAfterDays,
	}).Info("retention policy applied")
	return nil
}

// Policy returns the active policy for a kind.
func (m *Manager) Policy(kind LogKind) (RetentionPolicy, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.policies[kind]
	return p, ok
}

// CleanupExpiredLogs runs one sweep over every kind with an applied
// policy. Kinds without a policy are untouched.
func (m *Manager) CleanupExpiredLogs() CleanupResult {
	m.mu.RLock()
	policies := make(map[LogKind]RetentionPolicy, len(m.policies))
	for k, p := range m.policies {
		policies[k] = p
	}
	m.mu.RUnlock()

	now := m.clock.Now()
	result := CleanupResult{
		Deleted:  make(map[LogKind]int),
		Archived: make(map[LogKind]int),
	}

	for kind, policy := range policies {
		deleteCutoff := now.AddDate(0, 0, -policy.RetentionDays)
		archiveCutoff := now.AddDate(0, 0, -policy.ArchiveAfterDays)
		if policy.ArchiveAfterDays == 0 {
			// Archiving disabled: everything younger than retention
			// stays live.
			archiveCutoff = deleteCutoff
		}

		records := m.collect(kind, archiveCutoff)

		var toArchive []ArchivedEntry
		for _, r := range records {
			if r.Timestamp.Before(deleteCutoff) {
				result.Deleted[kind]++
				continue
			}
			toArchive = append(toArchive, ArchivedEntry{
				Kind:       kind,
				ID:         r.ID,
				Timestamp:  r.Timestamp,
				ArchivedAt: now.UTC(),
				Payload:    r.Payload,
			})
		}
		if len(toArchive) > 0 {
			m.archive.add(toArchive)
			result.Archived[kind] = len(toArchive)
		}

		// Previously archived entries age out at the same boundary.
		result.Deleted[kind] += m.archive.removeBefore(kind, deleteCutoff)

		if m.metrics != nil {
			m.metrics.RetentionDeletedTotal.WithLabelValues(string(kind)).Add(float64(result.Deleted[kind]))
			m.metrics.RetentionArchivedTotal.WithLabelValues(string(kind)).Add(float64(result.Archived[kind]))
		}
		m.logger.WithFields(logrus.Fields{
			"kind":     kind,
			"deleted":  result.Deleted[kind],
			"archived": result.Archived[kind],
		}).Info("retention sweep completed")
	}

	return result
}

// collect removes every entry of the kind older than cutoff from its
// live store and returns them as archive records.
func (m *Manager) collect(kind LogKind, cutoff time.Time) []ArchiveRecord {
	switch kind {
	case KindAudit:
		removed := m.log.removeBefore(cutoff)
		records := make([]ArchiveRecord, 0, len(removed))
		for _, e := range removed {
			records = append(records, marshalRecord(e.ID, e.Timestamp, e))
		}
		return records
	case KindSecurity:
		removed := m.secLog.removeBefore(cutoff)
		records := make([]ArchiveRecord, 0, len(removed))
		for _, e := range removed {
			records = append(records, marshalRecord(e.ID, e.Timestamp, e))
		}
		return records
	case KindAccess:
		removed := m.accLog.removeBefore(cutoff)
		records := make([]ArchiveRecord, 0, len(removed))
		for _, e := range removed {
			records = append(records, marshalRecord(e.ID, e.Timestamp, e))
		}
		return records
	case KindCompliance:
		if m.violations == nil {
			return nil
		}
		return m.violations.PruneResolvedBefore(cutoff)
	default:
		return nil
	}
}

func marshalRecord(id string, ts time.Time, v any) ArchiveRecord {
	payload, err := json.Marshal(v)
	if err != nil {
		// Events are plain data; marshaling only fails on programmer
		// error. Keep the record with an empty payload rather than
		// dropping the entry silently.
		payload = nil
	}
	return ArchiveRecord{ID: id, Timestamp: ts, Payload: payload}
}
