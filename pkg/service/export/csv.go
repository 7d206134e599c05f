package export

import (
	"encoding/csv"
	"io"

	"github.com/m-mizutani/goerr/v2"
)

// CSVHeader is the first row of every CSV export
var CSVHeader = []string{"Ticket ID", "Status", "Notes", "Created Date", "Updated Date"}

// WriteCSV writes a header row and one row per ticket. Fields containing
// a comma, quote or line break are quoted with inner quotes doubled.
func WriteCSV(w io.Writer, r *Report) error {
	loc := r.location()
	writer := csv.NewWriter(w)

	if err := writer.Write(CSVHeader); err != nil {
		return goerr.Wrap(err, "failed to write CSV header")
	}
	for _, t := range r.Tickets {
		row := []string{
			t.ExternalID,
			t.Status.String(),
			t.NotesText(),
			t.CreatedAt.In(loc).Format(TimestampLayout),
			t.UpdatedAt.In(loc).Format(TimestampLayout),
		}
		if err := writer.Write(row); err != nil {
			return goerr.Wrap(err, "failed to write CSV row", goerr.V("id", t.ID))
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return goerr.Wrap(err, "failed to flush CSV")
	}
	return nil
}
