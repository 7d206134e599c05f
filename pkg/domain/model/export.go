package model

import (
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/ticktrack/pkg/domain/types"
)

// ExportFormat is a generated file type
type ExportFormat string

const (
	ExportCSV  ExportFormat = "csv"
	ExportPDF  ExportFormat = "pdf"
	ExportXLSX ExportFormat = "xlsx"
)

// ParseExportFormat validates a format name
func ParseExportFormat(s string) (ExportFormat, error) {
	switch f := ExportFormat(s); f {
	case ExportCSV, ExportPDF, ExportXLSX:
		return f, nil
	default:
		return "", goerr.Wrap(ValidationErrors{"format": "Format must be csv, pdf or xlsx"}, "unsupported export format", goerr.V("format", s))
	}
}

// ContentType returns the MIME type of the format
func (f ExportFormat) ContentType() string {
	switch f {
	case ExportCSV:
		return "text/csv; charset=utf-8"
	case ExportPDF:
		return "application/pdf"
	case ExportXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	default:
		return "application/octet-stream"
	}
}

// FileName returns the timestamped download name for the format
func (f ExportFormat) FileName(now time.Time) string {
	stamp := now.Format("2006-01-02-1504")
	switch f {
	case ExportPDF:
		return "tickets-report-" + stamp + ".pdf"
	default:
		return "tickets-export-" + stamp + "." + string(f)
	}
}

// ExportRequest selects tickets and the output format
type ExportRequest struct {
	Format       ExportFormat
	View         ViewMode
	WorkDateFrom types.WorkDate
	WorkDateTo   types.WorkDate
	Filter       TicketFilter
}

// ExportFile is a generated artifact ready for download
type ExportFile struct {
	Name        string
	ContentType string
	Data        []byte
	Rows        int
}
