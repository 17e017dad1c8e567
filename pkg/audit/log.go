package audit

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/mindcastle/warden/pkg/errs"
)

// Log is the append-only business audit log. Append assigns a fresh
// identifier and server timestamp; queries return snapshots that never
// block a writer.
type Log struct {
	mu      sync.RWMutex
	entries []Event
	clock   clockwork.Clock
}

// NewLog creates an empty audit log.
func NewLog(clock clockwork.Clock) *Log {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Log{clock: clock}
}

// Append records an event, assigning its ID and timestamp. The stored
// entry is returned so callers can reference the assigned identifier.
func (l *Log) Append(e Event) (Event, error) {
	if e.UserID == "" {
		return Event{}, fmt.Errorf("audit event user id is required: %w", errs.ErrInvalidRequest)
	}
	if e.Action == "" {
		return Event{}, fmt.Errorf("audit event action is required: %w", errs.ErrInvalidRequest)
	}
	if e.Severity == "" {
		e.Severity = SeverityInfo
	}
	e.ID = uuid.NewString()
	e.Timestamp = l.clock.Now().UTC()
	e.Metadata = copyMetadata(e.Metadata)

	l.mu.Lock()
	l.entries = append(l.entries, e)
	l.mu.Unlock()
	return copyEvent(e), nil
}

// Get returns the event with the given id.
func (l *Log) Get(id string) (Event, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for _, e := range l.entries {
		if e.ID == id {
			return copyEvent(e), nil
		}
	}
	return Event{}, fmt.Errorf("audit event %s: %w", id, errs.ErrNotFound)
}

// ByUser returns the user's events, oldest first.
func (l *Log) ByUser(userID string) []Event {
	return l.query(func(e Event) bool { return e.UserID == userID })
}

// ByResource returns the events touching a resource, oldest first.
func (l *Log) ByResource(resourceID string) []Event {
	return l.query(func(e Event) bool { return e.ResourceID == resourceID })
}

// ByDateRange returns exactly the events with start <= timestamp <= end,
// oldest first.
func (l *Log) ByDateRange(start, end time.Time) []Event {
	return l.query(func(e Event) bool { return inRange(e.Timestamp, start, end) })
}

// All returns a snapshot of every event, oldest first.
func (l *Log) All() []Event {
	return l.query(func(Event) bool { return true })
}

// Len returns the number of stored events.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

func (l *Log) query(match func(Event) bool) []Event {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var out []Event
	for _, e := range l.entries {
		if match(e) {
			out = append(out, copyEvent(e))
		}
	}
	return out
}

// removeBefore removes and returns every event with timestamp < cutoff.
// Only the retention manager calls this; the normal write path never
// deletes.
func (l *Log) removeBefore(cutoff time.Time) []Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	var removed []Event
	kept := l.entries[:0]
	for _, e := range l.entries {
		if e.Timestamp.Before(cutoff) {
			removed = append(removed, e)
		} else {
			kept = append(kept, e)
		}
	}
	l.entries = kept
	return removed
}

// SecurityLog is the append-only authentication/security event log.
type SecurityLog struct {
	mu      sync.RWMutex
	entries []SecurityEvent
	clock   clockwork.Clock
}

// NewSecurityLog creates an empty security event log.
func NewSecurityLog(clock clockwork.Clock) *SecurityLog {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &SecurityLog{clock: clock}
}

// Append records a security event, assigning its ID and timestamp.
func (l *SecurityLog) Append(e SecurityEvent) (SecurityEvent, error) {
	if e.EventType == "" {
		return SecurityEvent{}, fmt.Errorf("security event type is required: %w", errs.ErrInvalidRequest)
	}
	if e.Severity == "" {
		e.Severity = SeverityInfo
	}
	e.ID = uuid.NewString()
	e.Timestamp = l.clock.Now().UTC()
	e.Metadata = copyMetadata(e.Metadata)

	l.mu.Lock()
	l.entries = append(l.entries, e)
	l.mu.Unlock()
	return copySecurityEvent(e), nil
}

// Get returns the security event with the given id.
func (l *SecurityLog) Get(id string) (SecurityEvent, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for _, e := range l.entries {
		if e.ID == id {
			return copySecurityEvent(e), nil
		}
	}
	return SecurityEvent{}, fmt.Errorf("security event %s: %w", id, errs.ErrNotFound)
}

// ByUser returns the user's security events, oldest first.
func (l *SecurityLog) ByUser(userID string) []SecurityEvent {
	return l.query(func(e SecurityEvent) bool { return e.UserID == userID })
}

// ByType returns the events of one type, oldest first.
func (l *SecurityLog) ByType(eventType SecurityEventType) []SecurityEvent {
	return l.query(func(e SecurityEvent) bool { return e.EventType == eventType })
}

// ByDateRange returns exactly the events with start <= timestamp <= end,
// oldest first.
func (l *SecurityLog) ByDateRange(start, end time.Time) []SecurityEvent {
	return l.query(func(e SecurityEvent) bool { return inRange(e.Timestamp, start, end) })
}

// All returns a snapshot of every security event, oldest first.
func (l *SecurityLog) All() []SecurityEvent {
	return l.query(func(SecurityEvent) bool { return true })
}

func (l *SecurityLog) query(match func(SecurityEvent) bool) []SecurityEvent {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var out []SecurityEvent
	for _, e := range l.entries {
		if match(e) {
			out = append(out, copySecurityEvent(e))
		}
	}
	return out
}

func (l *SecurityLog) removeBefore(cutoff time.Time) []SecurityEvent {
	l.mu.Lock()
	defer l.mu.Unlock()
	var removed []SecurityEvent
	kept := l.entries[:0]
	for _, e := range l.entries {
		if e.Timestamp.Before(cutoff) {
			removed = append(removed, e)
		} else {
			kept = append(kept, e)
		}
	}
	l.entries = kept
	return removed
}

// AccessLog is the append-only data-operation log.
type AccessLog struct {
	mu      sync.RWMutex
	entries []AccessEvent
	clock   clockwork.Clock
}

// NewAccessLog creates an empty data access log.
func NewAccessLog(clock clockwork.Clock) *AccessLog {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &AccessLog{clock: clock}
}

// Append records a data access event, assigning its ID and timestamp.
func (l *AccessLog) Append(e AccessEvent) (AccessEvent, error) {
	if e.UserID == "" {
		return AccessEvent{}, fmt.Errorf("access event user id is required: %w", errs.ErrInvalidRequest)
	}
	if e.Operation == "" {
		return AccessEvent{}, fmt.Errorf("access event operation is required: %w", errs.ErrInvalidRequest)
	}
	e.ID = uuid.NewString()
	e.Timestamp = l.clock.Now().UTC()
	e.Metadata = copyMetadata(e.Metadata)

	l.mu.Lock()
	l.entries = append(l.entries, e)
	l.mu.Unlock()
	return copyAccessEvent(e), nil
}

// ByUser returns the user's access events, oldest first.
func (l *AccessLog) ByUser(userID string) []AccessEvent {
	return l.query(func(e AccessEvent) bool { return e.UserID == userID })
}

// ByResource returns the access events touching a resource, oldest
// first.
func (l *AccessLog) ByResource(resourceID string) []AccessEvent {
	return l.query(func(e AccessEvent) bool { return e.ResourceID == resourceID })
}

// ByDateRange returns exactly the events with start <= timestamp <= end,
// oldest first.
func (l *AccessLog) ByDateRange(start, end time.Time) []AccessEvent {
	return l.query(func(e AccessEvent) bool { return inRange(e.Timestamp, start, end) })
}

// All returns a snapshot of every access event, oldest first.
func (l *AccessLog) All() []AccessEvent {
	return l.query(func(AccessEvent) bool { return true })
}

func (l *AccessLog) query(match func(AccessEvent) bool) []AccessEvent {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var out []AccessEvent
	for _, e := range l.entries {
		if match(e) {
			out = append(out, copyAccessEvent(e))
		}
	}
	return out
}

func (l *AccessLog) removeBefore(cutoff time.Time) []AccessEvent {
	l.mu.Lock()
	defer l.mu.Unlock()
	var removed []AccessEvent
	kept := l.entries[:0]
	for _, e := range l.entries {
		if e.Timestamp.Before(cutoff) {
			removed = append(removed, e)
		} else {
			kept = append(kept, e)
		}
	}
	l.entries = kept
	return removed
}
