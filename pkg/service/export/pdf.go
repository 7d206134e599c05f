package export

import (
	"fmt"
	"io"

	"github.com/go-pdf/fpdf"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/ticktrack/pkg/domain/model"
)

const (
	pdfTitle      = "TicketTrack Pro - Tickets Report"
	pdfMargin     = 20.0
	pdfFontSize   = 9.0
	pdfLineHeight = 4.5
	pdfCellPad    = 1.5
	pdfDateLayout = "Jan 02, 2006"
)

var (
	pdfColumns = []string{"Ticket ID", "Status", "Notes", "Created", "Updated"}
	// widths in mm; the table is wider than the A4 body, as in the
	// reports it replaces
	pdfWidths = []float64{30, 35, 60, 30, 30}
)

// WritePDF writes a paginated report: title, generation time, optional
// filter line, summary block and ticket table. The table header is
// repeated on every page and every page has a "Page i of n" footer.
func WritePDF(w io.Writer, r *Report) error {
	pdf, err := buildPDF(r)
	if err != nil {
		return err
	}
	if err := pdf.Output(w); err != nil {
		return goerr.Wrap(err, "failed to write PDF")
	}
	return nil
}

func buildPDF(r *Report) (*fpdf.Fpdf, error) {
	loc := r.location()
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(pdfMargin, pdfMargin, pdfMargin)
	pdf.SetAutoPageBreak(false, pdfMargin)
	pdf.AliasNbPages("{nb}")
	pdf.SetTitle(pdfTitle, true)
	if !r.GeneratedAt.IsZero() {
		pdf.SetCreationDate(r.GeneratedAt)
	}
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFooterFunc(func() {
		pdf.SetY(-15)
		pdf.SetFont("Helvetica", "", 10)
		pdf.SetTextColor(150, 150, 150)
		pdf.CellFormat(0, 10, fmt.Sprintf("Page %d of {nb}", pdf.PageNo()), "", 0, "R", false, 0, "")
	})
	pdf.AddPage()

	pdf.SetFont("Helvetica", "", 20)
	pdf.SetTextColor(40, 40, 40)
	pdf.CellFormat(0, 12, pdfTitle, "", 1, "L", false, 0, "")

	pdf.SetFont("Helvetica", "", 12)
	pdf.SetTextColor(100, 100, 100)
	pdf.CellFormat(0, 8, "Generated on: "+r.GeneratedAt.In(loc).Format("January 02, 2006 15:04"), "", 1, "L", false, 0, "")
	if desc := r.Filter.Description(); desc != "" {
		pdf.CellFormat(0, 8, tr(desc), "", 1, "L", false, 0, "")
	}
	pdf.Ln(6)

	stats := model.ComputeStats(r.Tickets)
	pdf.SetFont("Helvetica", "B", 14)
	pdf.SetTextColor(40, 40, 40)
	pdf.CellFormat(0, 9, "Summary", "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 11)
	for _, line := range []string{
		fmt.Sprintf("Total Tickets: %d", stats.Total),
		fmt.Sprintf("Resolved: %d", stats.Resolved),
		fmt.Sprintf("Awaiting Response: %d", stats.Awaiting),
		fmt.Sprintf("Success Rate: %d%%", stats.SuccessRate),
	} {
		pdf.CellFormat(0, 7, line, "", 1, "L", false, 0, "")
	}
	pdf.Ln(6)

	tbl := &pdfTable{pdf: pdf, tr: tr}
	tbl.header()
	for i, t := range r.Tickets {
		notes := t.NotesText()
		if notes == "" {
			notes = "No notes"
		}
		tbl.row(i, []string{
			t.ExternalID,
			t.Status.String(),
			notes,
			t.CreatedAt.In(loc).Format(pdfDateLayout),
			t.UpdatedAt.In(loc).Format(pdfDateLayout),
		})
	}

	if err := pdf.Error(); err != nil {
		return nil, goerr.Wrap(err, "failed to render PDF", goerr.V("tickets", len(r.Tickets)))
	}
	return pdf, nil
}

type pdfTable struct {
	pdf *fpdf.Fpdf
	tr  func(string) string
}

func (t *pdfTable) bottom() float64 {
	_, pageH := t.pdf.GetPageSize()
	return pageH - pdfMargin
}

func (t *pdfTable) header() {
	pdf := t.pdf
	pdf.SetFont("Helvetica", "B", pdfFontSize)
	pdf.SetFillColor(59, 130, 246)
	pdf.SetTextColor(255, 255, 255)
	pdf.SetDrawColor(220, 220, 220)
	for i, col := range pdfColumns {
		pdf.CellFormat(pdfWidths[i], pdfLineHeight+2*pdfCellPad, col, "1", 0, "L", true, 0, "")
	}
	pdf.Ln(-1)
}

// row draws one ticket. A row that does not fit in the space left on the
// page moves to the next page; a row taller than a whole page is split
// across pages with the header repeated above each part.
func (t *pdfTable) row(index int, cells []string) {
	pdf := t.pdf
	pdf.SetFont("Helvetica", "", pdfFontSize)

	lines := make([][][]byte, len(cells))
	height := 0
	for i, cell := range cells {
		lines[i] = pdf.SplitLines([]byte(t.tr(cell)), pdfWidths[i]-2*pdfCellPad)
		if len(lines[i]) == 0 {
			lines[i] = [][]byte{nil}
		}
		height = max(height, len(lines[i]))
	}

	if n := t.fitLines(); n < height && height <= t.pageLines() {
		t.newPage()
	}

	for offset := 0; offset < height; {
		n := t.fitLines()
		if n < 1 {
			t.newPage()
			continue
		}
		end := min(offset+n, height)
		t.segment(index, lines, offset, end)
		offset = end
		if offset < height {
			t.newPage()
		}
	}
}

// fitLines is the number of text lines that fit below the current position
func (t *pdfTable) fitLines() int {
	return int((t.bottom() - t.pdf.GetY() - 2*pdfCellPad) / pdfLineHeight)
}

// pageLines is the number of text lines that fit under the header of a
// fresh page
func (t *pdfTable) pageLines() int {
	top := pdfMargin + pdfLineHeight + 2*pdfCellPad
	return int((t.bottom() - top - 2*pdfCellPad) / pdfLineHeight)
}

func (t *pdfTable) newPage() {
	t.pdf.AddPage()
	t.header()
	t.pdf.SetFont("Helvetica", "", pdfFontSize)
}

// segment draws lines [from, to) of every cell as one bordered band
func (t *pdfTable) segment(index int, lines [][][]byte, from, to int) {
	pdf := t.pdf
	if index%2 == 1 {
		pdf.SetFillColor(248, 250, 252)
	} else {
		pdf.SetFillColor(255, 255, 255)
	}
	pdf.SetDrawColor(220, 220, 220)
	pdf.SetTextColor(40, 40, 40)

	h := float64(to-from)*pdfLineHeight + 2*pdfCellPad
	x, y := pdf.GetXY()
	for i := range lines {
		pdf.Rect(x, y, pdfWidths[i], h, "FD")
		for j := from; j < to && j < len(lines[i]); j++ {
			pdf.SetXY(x+pdfCellPad, y+pdfCellPad+float64(j-from)*pdfLineHeight)
			pdf.CellFormat(pdfWidths[i]-2*pdfCellPad, pdfLineHeight, string(lines[i][j]), "", 0, "L", false, 0, "")
		}
		x += pdfWidths[i]
	}
	pdf.SetXY(pdfMargin, y+h)
}
