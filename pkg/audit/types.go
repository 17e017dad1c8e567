package audit

import (
	"time"
)

// Severity is the explicit severity tag attached to an event at creation
// time. Report summaries count critical events by this tag alone; they
// never infer severity from free text.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// SecurityEventType categorizes entries in the security event log.
type SecurityEventType string

const (
	SecurityEventLogin            SecurityEventType = "login"
	SecurityEventLogout           SecurityEventType = "logout"
	SecurityEventLoginFailed      SecurityEventType = "login_failed"
	SecurityEventPermissionGrant  SecurityEventType = "permission_grant"
	SecurityEventPermissionRevoke SecurityEventType = "permission_revoke"
	SecurityEventRoleChange       SecurityEventType = "role_change"
	SecurityEventAccessDenied     SecurityEventType = "access_denied"
	SecurityEventUnauthorized     SecurityEventType = "unauthorized_access"
)

// AccessOperation categorizes entries in the data access log.
type AccessOperation string

const (
	AccessOpRead   AccessOperation = "read"
	AccessOpWrite  AccessOperation = "write"
	AccessOpDelete AccessOperation = "delete"
	AccessOpExport AccessOperation = "export"
)

// Event is a business-action audit entry. Immutable after creation: the
// store assigns ID and Timestamp on append and hands out copies only.
type Event struct {
	ID         string            `json:"id"`
	UserID     string            `json:"user_id"`
	Action     string            `json:"action"`
	ResourceID string            `json:"resource_id,omitempty"`
	Severity   Severity          `json:"severity"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	Timestamp  time.Time         `json:"timestamp"`
	IP         string            `json:"ip,omitempty"`
	UserAgent  string            `json:"user_agent,omitempty"`
}

// SecurityEvent is an authentication or security entry. Immutable after
// creation.
type SecurityEvent struct {
	ID        string            `json:"id"`
	EventType SecurityEventType `json:"event_type"`
	UserID    string            `json:"user_id,omitempty"`
	Success   bool              `json:"success"`
	Severity  Severity          `json:"severity"`
	IP        string            `json:"ip,omitempty"`
	UserAgent string            `json:"user_agent,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// AccessEvent is a data-operation entry. Immutable after creation.
type AccessEvent struct {
	ID         string            `json:"id"`
	UserID     string            `json:"user_id"`
	Operation  AccessOperation   `json:"operation"`
	ResourceID string            `json:"resource_id"`
	Timestamp  time.Time         `json:"timestamp"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// SearchFilter selects audit entries. Filters compose conjunctively:
// every set field must match. Results are newest-first; Limit and Offset
// page through large result sets.
type SearchFilter struct {
	UserID     string
	Actions    []string
	ResourceID string
	Start      *time.Time
	End        *time.Time

	Limit  int
	Offset int
}

// ExportFormat selects the rendering of an export.
type ExportFormat string

const (
	FormatCSV  ExportFormat = "csv"
	FormatJSON ExportFormat = "json"
	FormatXML  ExportFormat = "xml"
	FormatPDF  ExportFormat = "pdf"
)

// LogKind names a retained log for retention policy purposes.
type LogKind string

const (
	KindAudit      LogKind = "audit"
	KindSecurity   LogKind = "security"
	KindAccess     LogKind = "access"
	KindCompliance LogKind = "compliance"
)

// RetentionPolicy is the lifecycle policy for one log kind. Entries
// older than ArchiveAfterDays but younger than RetentionDays move to the
// archive store; entries older than RetentionDays are deleted.
type RetentionPolicy struct {
	RetentionDays    int `json:"retention_days" yaml:"retention_days"`
	ArchiveAfterDays int `json:"archive_after_days" yaml:"archive_after_days"`
}

// ArchiveRecord is a log entry detached from its live store for
// archiving: the identifier and timestamp needed for the age decision
// plus the serialized entry.
type ArchiveRecord struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Payload   []byte    `json:"payload"`
}

// ArchivedEntry is a record at rest in the archive store.
type ArchivedEntry struct {
	Kind       LogKind   `json:"kind"`
	ID         string    `json:"id"`
	Timestamp  time.Time `json:"timestamp"`
	ArchivedAt time.Time `json:"archived_at"`
	Payload    []byte    `json:"payload"`
}

func copyMetadata(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func copyEvent(e Event) Event {
	e.Metadata = copyMetadata(e.Metadata)
	return e
}

func copySecurityEvent(e SecurityEvent) SecurityEvent {
	e.Metadata = copyMetadata(e.Metadata)
	return e
}

func copyAccessEvent(e AccessEvent) AccessEvent {
	e.Metadata = copyMetadata(e.Metadata)
	return e
}

// inRange reports whether ts falls inside the inclusive [start, end]
// window.
func inRange(ts, start, end time.Time) bool {
	return !ts.Before(start) && !ts.After(end)
}
