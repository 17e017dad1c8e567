package compliance

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/mindcastle/warden/pkg/audit"
	"github.com/mindcastle/warden/pkg/errs"
	"github.com/mindcastle/warden/pkg/observability"
)

// Severity grades a violation.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Violation is an externally-reported compliance violation. Only
// Resolved mutates, exactly once; resolving an already-resolved
// violation is a no-op.
type Violation struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	UserID     string    `json:"user_id,omitempty"`
	ResourceID string    `json:"resource_id,omitempty"`
	Severity   Severity  `json:"severity"`
	Timestamp  time.Time `json:"timestamp"`
	Resolved   bool      `json:"resolved"`
}

// Monitor is the violation ledger.
type Monitor struct {
	mu         sync.RWMutex
	violations []Violation
	clock      clockwork.Clock
	metrics    *observability.Metrics
}

// MonitorOption configures a Monitor.
type MonitorOption func(*Monitor)

// WithMonitorClock overrides the ledger's clock.
func WithMonitorClock(clock clockwork.Clock) MonitorOption {
	return func(m *Monitor) { m.clock = clock }
}

// WithMonitorMetrics records violation counters on the given metric set.
func WithMonitorMetrics(metrics *observability.Metrics) MonitorOption {
	return func(m *Monitor) { m.metrics = metrics }
}

// NewMonitor creates an empty violation ledger.
func NewMonitor(opts ...MonitorOption) *Monitor {
	m := &Monitor{clock: clockwork.NewRealClock()}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Report records a violation, assigning its ID and timestamp, and
// returns the stored entry.
func (m *Monitor) Report(v Violation) (Violation, error) {
	if v.Type == "" {
		return Violation{}, fmt.Errorf("violation type is required: %w", errs.ErrInvalidRequest)
	}
	if v.Severity == "" {
		v.Severity = SeverityMedium
	}
	v.ID = uuid.NewString()
	v.Timestamp = m.clock.Now().UTC()
	v.Resolved = false

	m.mu.Lock()
	m.violations = append(m.violations, v)
	m.mu.Unlock()

	if m.metrics != nil {
		m.metrics.ViolationsReportedTotal.WithLabelValues(string(v.Severity)).Inc()
	}
	return v, nil
}

// List returns a snapshot of every violation.
func (m *Monitor) List() []Violation {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Violation, len(m.violations))
	copy(out, m.violations)
	return out
}

// Unresolved returns the violations still open.
func (m *Monitor) Unresolved() []Violation {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Violation
	for _, v := range m.violations {
		if !v.Resolved {
			out = append(out, v)
		}
	}
	return out
}

// Resolve flips a violation to resolved. Resolving an already-resolved
// violation is idempotent; an absent id is NotFound.
func (m *Monitor) Resolve(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, v := range m.violations {
		if v.ID != id {
			continue
		}
		if v.Resolved {
			return nil
		}
		m.violations[i].Resolved = true
		if m.metrics != nil {
			m.metrics.ViolationsResolvedTotal.Inc()
		}
		return nil
	}
	return fmt.Errorf("violation %s: %w", id, errs.ErrNotFound)
}

// PruneResolvedBefore implements audit.ViolationPruner: it removes
// resolved violations older than cutoff for the retention manager.
// Unresolved violations never age out.
func (m *Monitor) PruneResolvedBefore(cutoff time.Time) []audit.ArchiveRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	var records []audit.ArchiveRecord
	kept := m.violations[:0]
	for _, v := range m.violations {
		if v.Resolved && v.Timestamp.Before(cutoff) {
			payload, err := json.Marshal(v)
			if err != nil {
				payload = nil
			}
			records = append(records, audit.ArchiveRecord{
				ID:        v.ID,
				Timestamp: v.Timestamp,
				Payload:   payload,
			})
			continue
		}
		kept = append(kept, v)
	}
	m.violations = kept
	return records
}
