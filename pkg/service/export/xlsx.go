package export

import (
	"io"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/ticktrack/pkg/domain/model"
	"github.com/xuri/excelize/v2"
)

const (
	xlsxTicketsSheet = "Tickets"
	xlsxSummarySheet = "Summary"
)

// WriteXLSX writes a workbook with a Tickets sheet holding the CSV
// columns and a Summary sheet with the report counts
func WriteXLSX(w io.Writer, r *Report) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", xlsxTicketsSheet); err != nil {
		return goerr.Wrap(err, "failed to rename sheet")
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return goerr.Wrap(err, "failed to create header style")
	}

	header := make([]any, len(CSVHeader))
	for i, h := range CSVHeader {
		header[i] = h
	}
	if err := f.SetSheetRow(xlsxTicketsSheet, "A1", &header); err != nil {
		return goerr.Wrap(err, "failed to write header row")
	}
	if err := f.SetCellStyle(xlsxTicketsSheet, "A1", "E1", bold); err != nil {
		return goerr.Wrap(err, "failed to style header row")
	}

	loc := r.location()
	for i, t := range r.Tickets {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return goerr.Wrap(err, "failed to resolve cell", goerr.V("row", i+2))
		}
		row := []any{
			t.ExternalID,
			t.Status.String(),
			t.NotesText(),
			t.CreatedAt.In(loc).Format(TimestampLayout),
			t.UpdatedAt.In(loc).Format(TimestampLayout),
		}
		if err := f.SetSheetRow(xlsxTicketsSheet, cell, &row); err != nil {
			return goerr.Wrap(err, "failed to write ticket row", goerr.V("id", t.ID))
		}
	}
	if err := f.SetColWidth(xlsxTicketsSheet, "A", "B", 20); err != nil {
		return goerr.Wrap(err, "failed to set column width")
	}
	if err := f.SetColWidth(xlsxTicketsSheet, "C", "C", 50); err != nil {
		return goerr.Wrap(err, "failed to set column width")
	}
	if err := f.SetColWidth(xlsxTicketsSheet, "D", "E", 20); err != nil {
		return goerr.Wrap(err, "failed to set column width")
	}

	if _, err := f.NewSheet(xlsxSummarySheet); err != nil {
		return goerr.Wrap(err, "failed to create summary sheet")
	}
	stats := model.ComputeStats(r.Tickets)
	summary := [][]any{
		{"Generated on", r.GeneratedAt.In(loc).Format(TimestampLayout)},
		{"Filter", strings.TrimPrefix(r.Filter.Description(), "Filter: ")},
		{"Total Tickets", stats.Total},
		{"Resolved", stats.Resolved},
		{"Awaiting Response", stats.Awaiting},
		{"Success Rate", stats.SuccessRate},
	}
	for i, row := range summary {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return goerr.Wrap(err, "failed to resolve cell", goerr.V("row", i+1))
		}
		if err := f.SetSheetRow(xlsxSummarySheet, cell, &row); err != nil {
			return goerr.Wrap(err, "failed to write summary row")
		}
	}
	if err := f.SetCellStyle(xlsxSummarySheet, "A1", "A6", bold); err != nil {
		return goerr.Wrap(err, "failed to style summary labels")
	}

	if err := f.Write(w); err != nil {
		return goerr.Wrap(err, "failed to write XLSX")
	}
	return nil
}
