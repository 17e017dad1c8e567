package audit

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"time"

	"github.com/mindcastle/warden/pkg/errs"
)

// Exporter renders a date-bounded selection of the audit log.
type Exporter struct {
	log *Log
}

// NewExporter creates an exporter over the given audit log.
func NewExporter(log *Log) *Exporter {
	return &Exporter{log: log}
}

// Filename returns the deterministic export filename for the selection:
// audit_logs_{start}_to_{end}.{ext} with dates as yyyy-MM-dd.
func Filename(start, end time.Time, format ExportFormat) string {
	return fmt.Sprintf("audit_logs_%s_to_%s.%s",
		start.Format("2006-01-02"), end.Format("2006-01-02"), format)
}

// Export renders the events with start <= timestamp <= end in the given
// format and returns the deterministic filename alongside the payload.
func (x *Exporter) Export(start, end time.Time, format ExportFormat) (string, []byte, error) {
	events := x.log.ByDateRange(start, end)

	var (
		data []byte
		err  error
	)
	switch format {
	case FormatCSV:
		data, err = exportCSV(events)
	case FormatJSON:
		data, err = exportJSON(events)
	case FormatXML:
		data, err = exportXML(events)
	case FormatPDF:
		data, err = exportPDF(events, start, end)
	default:
		return "", nil, fmt.Errorf("unknown export format %q: %w", format, errs.ErrInvalidRequest)
	}
	if err != nil {
		return "", nil, err
	}
	return Filename(start, end, format), data, nil
}

// exportCSV renders the wire CSV format: a fixed
// timestamp,userId,action,resourceId header and one row per event.
func exportCSV(events []Event) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write([]string{"timestamp", "userId", "action", "resourceId"}); err != nil {
		return nil, fmt.Errorf("failed to write CSV header: %w", err)
	}
	for _, e := range events {
		row := []string{
			e.Timestamp.Format(time.RFC3339),
			e.UserID,
			e.Action,
			e.ResourceID,
		}
		if err := writer.Write(row); err != nil {
			return nil, fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}
	return buf.Bytes(), nil
}

// jsonExportEntry is the wire JSON shape: timestamp, userId, action.
type jsonExportEntry struct {
	Timestamp time.Time `json:"timestamp"`
	UserID    string    `json:"userId"`
	Action    string    `json:"action"`
}

func exportJSON(events []Event) ([]byte, error) {
	entries := make([]jsonExportEntry, 0, len(events))
	for _, e := range events {
		entries = append(entries, jsonExportEntry{
			Timestamp: e.Timestamp,
			UserID:    e.UserID,
			Action:    e.Action,
		})
	}
	return json.MarshalIndent(entries, "", "  ")
}

type xmlExportEntry struct {
	XMLName    xml.Name `xml:"entry"`
	ID         string   `xml:"id,attr"`
	Timestamp  string   `xml:"timestamp"`
	UserID     string   `xml:"userId"`
	Action     string   `xml:"action"`
	ResourceID string   `xml:"resourceId,omitempty"`
}

type xmlExportDoc struct {
	XMLName xml.Name         `xml:"auditLogs"`
	Entries []xmlExportEntry `xml:"entry"`
}

func exportXML(events []Event) ([]byte, error) {
	doc := xmlExportDoc{Entries: make([]xmlExportEntry, 0, len(events))}
	for _, e := range events {
		doc.Entries = append(doc.Entries, xmlExportEntry{
			ID:         e.ID,
			Timestamp:  e.Timestamp.Format(time.RFC3339),
			UserID:     e.UserID,
			Action:     e.Action,
			ResourceID: e.ResourceID,
		})
	}
	body, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal XML: %w", err)
	}
	return append([]byte(xml.Header), body...), nil
}
