package cli

import (
	"context"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/ticktrack/pkg/cli/config"
	"github.com/secmon-lab/ticktrack/pkg/domain/interfaces"
	"github.com/secmon-lab/ticktrack/pkg/domain/model"
	"github.com/secmon-lab/ticktrack/pkg/domain/types"
	"github.com/urfave/cli/v3"
)

// joinFlags combines multiple flag slices into one
func joinFlags(flags ...[]cli.Flag) []cli.Flag {
	var result []cli.Flag
	for _, f := range flags {
		result = append(result, f...)
	}
	return result
}

// userFlag selects the account a data command acts for
func userFlag(dst *string) cli.Flag {
	return &cli.StringFlag{
		Name:        "user",
		Aliases:     []string{"u"},
		Usage:       "Email of the account to act for",
		Required:    true,
		Sources:     cli.EnvVars("TICKTRACK_USER"),
		Destination: dst,
	}
}

func lookupUser(ctx context.Context, repo interfaces.Repository, email string) (*model.User, error) {
	user, err := repo.GetUserByEmail(ctx, model.NormalizeEmail(email))
	if err != nil {
		return nil, goerr.Wrap(err, "unknown user", goerr.V("email", email))
	}
	return user, nil
}

// ticketFilter is the filter flag group shared by the tickets and export
// commands, mirroring the dashboard query parameters
type ticketFilter struct {
	View     string
	From     string
	To       string
	Search   string
	Status   string
	Preset   string
	Start    string
	End      string
	Timezone string
}

func (f *ticketFilter) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "view", Usage: "today, range or all", Category: "Filter", Value: string(model.ViewAll), Destination: &f.View},
		&cli.StringFlag{Name: "from", Usage: "First work date for --view range (YYYY-MM-DD)", Category: "Filter", Destination: &f.From},
		&cli.StringFlag{Name: "to", Usage: "Last work date for --view range (YYYY-MM-DD)", Category: "Filter", Destination: &f.To},
		&cli.StringFlag{Name: "search", Usage: "Case-insensitive text in ticket ID or notes", Category: "Filter", Destination: &f.Search},
		&cli.StringFlag{Name: "status", Usage: "Resolved, \"Awaiting Response\" or all", Category: "Filter", Value: string(types.TicketStatusAll), Destination: &f.Status},
		&cli.StringFlag{Name: "preset", Usage: "today, yesterday, week, month or all (overrides --start/--end)", Category: "Filter", Destination: &f.Preset},
		&cli.StringFlag{Name: "start", Usage: "Created on or after (YYYY-MM-DD)", Category: "Filter", Destination: &f.Start},
		&cli.StringFlag{Name: "end", Usage: "Created on or before (YYYY-MM-DD)", Category: "Filter", Destination: &f.End},
		config.TimezoneFlag(&f.Timezone),
	}
}

// now returns the current time in the configured timezone
func (f *ticketFilter) now() (time.Time, error) {
	loc, err := config.LoadLocation(f.Timezone)
	if err != nil {
		return time.Time{}, err
	}
	return time.Now().In(loc), nil
}

// build resolves the flags into a query and a filter
func (f *ticketFilter) build(now time.Time) (model.TicketQuery, model.TicketFilter, error) {
	query, err := model.NewTicketQuery(model.ViewMode(f.View), now, types.WorkDate(f.From), types.WorkDate(f.To))
	if err != nil {
		return model.TicketQuery{}, model.TicketFilter{}, err
	}

	filter := model.TicketFilter{
		Search: f.Search,
		Status: types.TicketStatus(f.Status),
	}
	if filter.Status != "" && filter.Status != types.TicketStatusAll && !filter.Status.IsValid() {
		return model.TicketQuery{}, model.TicketFilter{}, goerr.New("invalid status filter", goerr.V("status", f.Status))
	}

	if f.Preset != "" {
		filter.DateRange, err = model.DatePreset(f.Preset).Range(now)
	} else {
		filter.DateRange, err = model.ParseDateRange(f.Start, f.End, now.Location())
	}
	if err != nil {
		return model.TicketQuery{}, model.TicketFilter{}, err
	}
	return query, filter, nil
}
