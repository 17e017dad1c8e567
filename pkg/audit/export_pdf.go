package audit

import (
	"bytes"
	"fmt"
	"time"

	"github.com/go-pdf/fpdf"
)

// exportPDF renders the tabular export with fpdf: a title block followed
// by one Helvetica line per event, paginated automatically.
func exportPDF(events []Event, start, end time.Time) ([]byte, error) {
	pdf := fpdf.New("P", "pt", "Letter", "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.AddPage()

	pdf.Cell(0, 14, fmt.Sprintf("Audit log export %s to %s",
		start.Format("2006-01-02"), end.Format("2006-01-02")))
	pdf.Ln(14)
	pdf.Cell(0, 14, fmt.Sprintf("%d entries", len(events)))
	pdf.Ln(22)

	for _, e := range events {
		pdf.Cell(0, 13, fmt.Sprintf("%s  %s  %s  %s",
			e.Timestamp.Format(time.RFC3339), e.UserID, e.Action, e.ResourceID))
		pdf.Ln(13)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render PDF export: %w", err)
	}
	return buf.Bytes(), nil
}
