// Package anomaly performs sliding-window frequency analysis over
// recorded user activity. Detection is pull-based and on-demand; the
// jobs package drives it periodically in production so a slow scan never
// sits on the access-decision path.
package anomaly

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/mindcastle/warden/pkg/errs"
	"github.com/mindcastle/warden/pkg/observability"
)

// Type categorizes a detected anomaly.
type Type string

// TypeUnusualFrequency flags activity counts above the monitor's
// threshold within the window.
const TypeUnusualFrequency Type = "unusualFrequency"

// Severity grades a detected anomaly.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Anomaly is a derived fact about unusual activity. It is computed, not
// stored for mutation.
type Anomaly struct {
	ID          string    `json:"id"`
	Type        Type      `json:"type"`
	UserID      string    `json:"user_id"`
	Severity    Severity  `json:"severity"`
	Description string    `json:"description"`
	Timestamp   time.Time `json:"timestamp"`
}

type activity struct {
	action string
	at     time.Time
}

// Monitor records activity and evaluates per-user frequency over a
// sliding window. The threshold is configuration, not a constant: a
// window count strictly above it yields one unusualFrequency anomaly of
// high severity.
type Monitor struct {
	mu     sync.RWMutex
	byUser map[string][]activity

	threshold int
	clock     clockwork.Clock
	metrics   *observability.Metrics
}

// MonitorOption configures a Monitor.
type MonitorOption func(*Monitor)

// WithClock overrides the monitor's clock.
func WithClock(clock clockwork.Clock) MonitorOption {
	return func(m *Monitor) { m.clock = clock }
}

// WithMetrics records detection counters on the given metric set.
func WithMetrics(metrics *observability.Metrics) MonitorOption {
	return func(m *Monitor) { m.metrics = metrics }
}

// NewMonitor creates a monitor with the given frequency threshold.
func NewMonitor(threshold int, opts ...MonitorOption) (*Monitor, error) {
	if threshold <= 0 {
		return nil, fmt.Errorf("anomaly threshold must be positive: %w", errs.ErrInvalidRequest)
	}
	m := &Monitor{
		byUser:    make(map[string][]activity),
		threshold: threshold,
		clock:     clockwork.NewRealClock(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Threshold returns the configured frequency threshold.
func (m *Monitor) Threshold() int {
	return m.threshold
}

// Record notes one user action at the given time. A zero timestamp
// records at the monitor's current clock time.
func (m *Monitor) Record(userID, action string, at time.Time) error {
	if userID == "" {
		return fmt.Errorf("user id is required: %w", errs.ErrInvalidRequest)
	}
	if at.IsZero() {
		at = m.clock.Now()
	}

	m.mu.Lock()
	m.byUser[userID] = append(m.byUser[userID], activity{action: action, at: at})
	m.mu.Unlock()
	return nil
}

// Detect evaluates the user's activity in [now-window, now]. It returns
// at most one unusualFrequency anomaly; counts at or below the
// threshold are normal.
func (m *Monitor) Detect(userID string, window time.Duration) []Anomaly {
	now := m.clock.Now()
	from := now.Add(-window)

	m.mu.RLock()
	count := 0
	for _, a := range m.byUser[userID] {
		if !a.at.Before(from) && !a.at.After(now) {
			count++
		}
	}
	m.mu.RUnlock()

	if count <= m.threshold {
		return nil
	}

	if m.metrics != nil {
		m.metrics.AnomaliesDetectedTotal.WithLabelValues(string(TypeUnusualFrequency)).Inc()
	}
	return []Anomaly{{
		ID:       uuid.NewString(),
		Type:     TypeUnusualFrequency,
		UserID:   userID,
		Severity: SeverityHigh,
		Description: fmt.Sprintf("%d actions in the last %s exceeds the threshold of %d",
			count, window, m.threshold),
		Timestamp: now.UTC(),
	}}
}

// DetectAll evaluates every user with recorded activity. Used by the
// periodic sweep job.
func (m *Monitor) DetectAll(window time.Duration) []Anomaly {
	m.mu.RLock()
	users := make([]string, 0, len(m.byUser))
	for userID := range m.byUser {
		users = append(users, userID)
	}
	m.mu.RUnlock()
	sort.Strings(users)

	var out []Anomaly
	for _, userID := range users {
		out = append(out, m.Detect(userID, window)...)
	}
	return out
}

// Prune discards recorded activity older than cutoff. The jobs package
// calls this alongside the retention sweep to bound memory.
func (m *Monitor) Prune(cutoff time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for userID, acts := range m.byUser {
		kept := acts[:0]
		for _, a := range acts {
			if a.at.Before(cutoff) {
				removed++
			} else {
				kept = append(kept, a)
			}
		}
		if len(kept) == 0 {
			delete(m.byUser, userID)
		} else {
			m.byUser[userID] = kept
		}
	}
	return removed
}
