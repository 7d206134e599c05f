package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/ticktrack/pkg/domain/model"
	"github.com/secmon-lab/ticktrack/pkg/domain/types"
	"github.com/xuri/excelize/v2"
)

var generatedAt = time.Date(2024, 3, 15, 14, 30, 0, 0, time.UTC)

func newTicket(externalID string, status types.TicketStatus, notes *string, created time.Time) *model.Ticket {
	return &model.Ticket{
		ID:         types.NewTicketID(),
		ExternalID: externalID,
		Status:     status,
		Notes:      notes,
		WorkDate:   types.NewWorkDate(created),
		CreatedAt:  created,
		UpdatedAt:  created.Add(time.Hour),
	}
}

func ptr(s string) *string { return &s }

func TestWriteCSV(t *testing.T) {
	t.Run("header and one line per ticket", func(t *testing.T) {
		report := &Report{
			Tickets: []*model.Ticket{
				newTicket("T-1", types.TicketStatusResolved, ptr("done"), generatedAt),
				newTicket("T-2", types.TicketStatusAwaitingResponse, nil, generatedAt),
				newTicket("T-3", types.TicketStatusResolved, ptr("ok"), generatedAt),
			},
			GeneratedAt: generatedAt,
		}

		var buf bytes.Buffer
		gt.NoError(t, WriteCSV(&buf, report)).Required()

		lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
		gt.Equal(t, len(lines), 4)
		gt.Equal(t, lines[0], "Ticket ID,Status,Notes,Created Date,Updated Date")
		gt.Equal(t, lines[1], "T-1,Resolved,done,2024-03-15 14:30:00,2024-03-15 15:30:00")
		gt.Equal(t, lines[2], "T-2,Awaiting Response,,2024-03-15 14:30:00,2024-03-15 15:30:00")
	})

	t.Run("quotes fields with commas and quotes", func(t *testing.T) {
		report := &Report{
			Tickets: []*model.Ticket{
				newTicket("T-1", types.TicketStatusResolved, ptr(`Called back, said "ok"`), generatedAt),
			},
			GeneratedAt: generatedAt,
		}

		var buf bytes.Buffer
		gt.NoError(t, WriteCSV(&buf, report)).Required()
		gt.S(t, buf.String()).Contains(`T-1,Resolved,"Called back, said ""ok""",`)
	})

	t.Run("multi-line notes survive a round trip through a CSV reader", func(t *testing.T) {
		notes := "line one\nline two"
		report := &Report{
			Tickets:     []*model.Ticket{newTicket("T-1", types.TicketStatusResolved, &notes, generatedAt)},
			GeneratedAt: generatedAt,
		}

		var buf bytes.Buffer
		gt.NoError(t, WriteCSV(&buf, report)).Required()

		records, err := csv.NewReader(&buf).ReadAll()
		gt.NoError(t, err).Required()
		gt.Equal(t, len(records), 2)
		gt.Equal(t, records[1][2], notes)
	})

	t.Run("leading spaces and carriage returns are read back unchanged", func(t *testing.T) {
		spaced := " leading space"
		cr := "before\rafter"
		report := &Report{
			Tickets: []*model.Ticket{
				newTicket("T-1", types.TicketStatusResolved, &spaced, generatedAt),
				newTicket("T-2", types.TicketStatusResolved, &cr, generatedAt),
			},
			GeneratedAt: generatedAt,
		}

		var buf bytes.Buffer
		gt.NoError(t, WriteCSV(&buf, report)).Required()
		gt.S(t, buf.String()).Contains(`T-1,Resolved," leading space",`)

		records, err := csv.NewReader(&buf).ReadAll()
		gt.NoError(t, err).Required()
		gt.Equal(t, len(records), 3)
		gt.Equal(t, records[1][2], spaced)
		gt.Equal(t, records[2][2], cr)
	})

		t.Run("empty list writes only the header", func(t *testing.T) {
		var buf bytes.Buffer
		gt.NoError(t, WriteCSV(&buf, &Report{GeneratedAt: generatedAt})).Required()
		gt.Equal(t, buf.String(), "Ticket ID,Status,Notes,Created Date,Updated Date\n")
	})

	t.Run("timestamps use the report location", func(t *testing.T) {
		jst := time.FixedZone("JST", 9*60*60)
		report := &Report{
			Tickets:     []*model.Ticket{newTicket("T-1", types.TicketStatusResolved, nil, generatedAt)},
			GeneratedAt: generatedAt.In(jst),
		}

		var buf bytes.Buffer
		gt.NoError(t, WriteCSV(&buf, report)).Required()
		gt.S(t, buf.String()).Contains("2024-03-15 23:30:00")
	})
}

func TestWritePDF(t *testing.T) {
	t.Run("writes a PDF document", func(t *testing.T) {
		report := &Report{
			Tickets: []*model.Ticket{
				newTicket("T-1", types.TicketStatusResolved, ptr("done"), generatedAt),
				newTicket("T-2", types.TicketStatusAwaitingResponse, nil, generatedAt),
			},
			GeneratedAt: generatedAt,
		}

		var buf bytes.Buffer
		gt.NoError(t, WritePDF(&buf, report)).Required()
		gt.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))
	})

	t.Run("empty list fits on one page", func(t *testing.T) {
		pdf, err := buildPDF(&Report{GeneratedAt: generatedAt})
		gt.NoError(t, err).Required()
		gt.Equal(t, pdf.PageNo(), 1)
	})

	t.Run("long lists paginate with numbered footers", func(t *testing.T) {
		var tickets []*model.Ticket
		for i := range 120 {
			tickets = append(tickets, newTicket(fmt.Sprintf("T-%03d", i), types.TicketStatusResolved, ptr("note"), generatedAt))
		}

		pdf, err := buildPDF(&Report{Tickets: tickets, GeneratedAt: generatedAt})
		gt.NoError(t, err).Required()
		pages := pdf.PageNo()
		gt.True(t, pages > 1)

		pdf.SetCompression(false)
		var buf bytes.Buffer
		gt.NoError(t, pdf.Output(&buf)).Required()
		gt.S(t, buf.String()).Contains(fmt.Sprintf("Page 1 of %d", pages))
		gt.S(t, buf.String()).Contains(fmt.Sprintf("Page %d of %d", pages, pages))
	})

	t.Run("very long notes do not break the layout", func(t *testing.T) {
		long := strings.Repeat("lorem ipsum dolor sit amet ", 500)
		report := &Report{
			Tickets:     []*model.Ticket{newTicket("T-1", types.TicketStatusResolved, &long, generatedAt)},
			GeneratedAt: generatedAt,
		}

		var buf bytes.Buffer
		gt.NoError(t, WritePDF(&buf, report))
	})

	t.Run("notes taller than a page continue on the next page", func(t *testing.T) {
		var parts []string
		for i := range 120 {
			parts = append(parts, fmt.Sprintf("line%03d", i))
		}
		parts = append(parts, "last-line-of-notes")
		notes := strings.Join(parts, "\n")
		report := &Report{
			Tickets: []*model.Ticket{
				newTicket("T-1", types.TicketStatusAwaitingResponse, &notes, generatedAt),
				newTicket("T-2", types.TicketStatusResolved, ptr("after"), generatedAt),
			},
			GeneratedAt: generatedAt,
		}

		pdf, err := buildPDF(report)
		gt.NoError(t, err).Required()
		gt.True(t, pdf.PageNo() >= 3)

		pdf.SetCompression(false)
		var buf bytes.Buffer
		gt.NoError(t, pdf.Output(&buf)).Required()
		out := buf.String()
		for _, want := range []string{"line000", "line060", "line119", "last-line-of-notes", "(after)"} {
			gt.S(t, out).Contains(want)
		}
		gt.True(t, strings.Count(out, "(Ticket ID)") >= 3)
	})
}

func TestWriteXLSX(t *testing.T) {
	report := &Report{
		Tickets: []*model.Ticket{
			newTicket("T-1", types.TicketStatusResolved, ptr("done"), generatedAt),
			newTicket("T-2", types.TicketStatusAwaitingResponse, nil, generatedAt),
		},
		GeneratedAt: generatedAt,
	}

	var buf bytes.Buffer
	gt.NoError(t, WriteXLSX(&buf, report)).Required()

	f, err := excelize.OpenReader(&buf)
	gt.NoError(t, err).Required()
	defer func() { _ = f.Close() }()

	rows, err := f.GetRows("Tickets")
	gt.NoError(t, err).Required()
	gt.Equal(t, len(rows), 3)
	gt.Equal(t, rows[0], CSVHeader)
	gt.Equal(t, rows[1][0], "T-1")
	gt.Equal(t, rows[2][1], "Awaiting Response")

	summary, err := f.GetRows("Summary")
	gt.NoError(t, err).Required()
	gt.Equal(t, summary[2], []string{"Total Tickets", "2"})
	gt.Equal(t, summary[5], []string{"Success Rate", "50"})
}

func TestRender(t *testing.T) {
	t.Run("dispatches on format", func(t *testing.T) {
		var buf bytes.Buffer
		gt.NoError(t, Render(&buf, model.ExportCSV, &Report{GeneratedAt: generatedAt})).Required()
		gt.S(t, buf.String()).Contains("Ticket ID,Status")
	})

	t.Run("unknown format writes nothing", func(t *testing.T) {
		var buf bytes.Buffer
		gt.Error(t, Render(&buf, model.ExportFormat("docx"), &Report{}))
		gt.Equal(t, buf.Len(), 0)
	})
}
