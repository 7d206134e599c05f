// Package export renders ticket lists as downloadable CSV, PDF and XLSX
// documents. Every writer is synchronous and writes nothing on failure.
package export

import (
	"bytes"
	"io"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/ticktrack/pkg/domain/model"
)

// TimestampLayout is the CSV and XLSX timestamp format
const TimestampLayout = "2006-01-02 15:04:05"

// Report is the input shared by all writers
type Report struct {
	// Tickets are rendered in the given order
	Tickets []*model.Ticket
	// Filter is described in the report header when active
	Filter      model.TicketFilter
	GeneratedAt time.Time
}

func (r *Report) location() *time.Location {
	if r.GeneratedAt.IsZero() {
		return time.Local
	}
	return r.GeneratedAt.Location()
}

// Render writes r in format to w. Output is buffered so a failed render
// writes nothing.
func Render(w io.Writer, format model.ExportFormat, r *Report) error {
	var buf bytes.Buffer
	var err error
	switch format {
	case model.ExportCSV:
		err = WriteCSV(&buf, r)
	case model.ExportPDF:
		err = WritePDF(&buf, r)
	case model.ExportXLSX:
		err = WriteXLSX(&buf, r)
	default:
		return goerr.New("unsupported export format", goerr.V("format", format))
	}
	if err != nil {
		return err
	}

	if _, err := buf.WriteTo(w); err != nil {
		return goerr.Wrap(err, "failed to write export", goerr.V("format", format))
	}
	return nil
}
