package cli

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/secmon-lab/ticktrack/pkg/cli/config"
	"github.com/secmon-lab/ticktrack/pkg/domain/model"
	"github.com/secmon-lab/ticktrack/pkg/usecase"
	"github.com/urfave/cli/v3"
	"github.com/xeonx/timeago"
)

var (
	headerStyle   = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle     = lipgloss.NewStyle().Padding(0, 1)
	resolvedStyle = cellStyle.Foreground(lipgloss.Color("2"))
	awaitingStyle = cellStyle.Foreground(lipgloss.Color("3"))
	mutedStyle    = lipgloss.NewStyle().Faint(true)
)

const notesColumnWidth = 40

func cmdTickets() *cli.Command {
	var (
		backendCfg config.Backend
		filter     ticketFilter
		email      string
	)

	return &cli.Command{
		Name:  "tickets",
		Usage: "List a user's tickets with the dashboard filters and stats",
		Flags: joinFlags(
			backendCfg.Flags(),
			filter.Flags(),
			[]cli.Flag{userFlag(&email)},
		),
		Action: func(ctx context.Context, c *cli.Command) error {
			repo, err := backendCfg.Configure(ctx)
			if err != nil {
				return err
			}
			defer repo.Close()

			user, err := lookupUser(ctx, repo, email)
			if err != nil {
				return err
			}
			now, err := filter.now()
			if err != nil {
				return err
			}
			query, f, err := filter.build(now)
			if err != nil {
				return err
			}

			all, err := usecase.NewTicket(repo, usecase.WithClock(func() time.Time { return now })).List(ctx, user.ID, query)
			if err != nil {
				return err
			}

			return writeTicketTable(c.Root().Writer, f.Apply(all), len(all), f, now)
		},
	}
}

func writeTicketTable(w io.Writer, tickets []*model.Ticket, allCount int, f model.TicketFilter, now time.Time) error {
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		Headers("TICKET ID", "STATUS", "WORK DATE", "NOTES", "CREATED", "UPDATED").
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case col == 1 && row >= 0 && row < len(tickets) && tickets[row].IsResolved():
				return resolvedStyle
			case col == 1:
				return awaitingStyle
			default:
				return cellStyle
			}
		})

	for _, tk := range tickets {
		t.Row(
			tk.ExternalID,
			tk.Status.String(),
			tk.WorkDate.String(),
			truncate(tk.NotesText(), notesColumnWidth),
			timeago.English.FormatReference(tk.CreatedAt, now),
			timeago.English.FormatReference(tk.UpdatedAt, now),
		)
	}

	if _, err := fmt.Fprintln(w, t.Render()); err != nil {
		return err
	}

	for _, card := range model.BuildStatCards(tickets, allCount, f.DateRange) {
		line := card.Title + ": " + card.Value
		if card.Subtitle != "" {
			line += " " + mutedStyle.Render("("+card.Subtitle+")")
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	if chips := f.ActiveFilters(); len(chips) > 0 {
		if _, err := fmt.Fprintln(w, mutedStyle.Render("Filters: "+strings.Join(chips, ", "))); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w, mutedStyle.Render("Showing "+strconv.Itoa(len(tickets))+" of "+strconv.Itoa(allCount)+" tickets"))
	return err
}

func truncate(s string, width int) string {
	r := []rune(s)
	if len(r) <= width {
		return s
	}
	return string(r[:width-1]) + "…"
}
