package cli

import (
	"context"
	"io"
	"os"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/ticktrack/pkg/cli/config"
	"github.com/secmon-lab/ticktrack/pkg/domain/model"
	"github.com/secmon-lab/ticktrack/pkg/domain/types"
	"github.com/secmon-lab/ticktrack/pkg/usecase"
	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"
)

// importFile is the YAML document read by the import command
//
//	tickets:
//	  - ticket_id: INC-1
//	    status: Resolved
//	    work_date: "2024-03-01"
//	    notes: restarted the worker
//	notes:
//	  - title: Runbook
//	    priority: High
type importFile struct {
	Tickets []model.TicketInput `yaml:"tickets"`
	Notes   []model.NoteInput   `yaml:"notes"`
}

// importSummary counts what an import did
type importSummary struct {
	Created int
	Updated int
	Notes   int
}

func cmdImport() *cli.Command {
	var (
		backendCfg config.Backend
		email      string
		input      string
		timezone   string
	)

	return &cli.Command{
		Name:  "import",
		Usage: "Create or update a user's tickets and notes from a YAML file",
		Flags: joinFlags(
			backendCfg.Flags(),
			[]cli.Flag{
				userFlag(&email),
				&cli.StringFlag{
					Name:        "input",
					Aliases:     []string{"i"},
					Usage:       "YAML file; \"-\" reads stdin",
					Required:    true,
					Destination: &input,
				},
				config.TimezoneFlag(&timezone),
			},
		),
		Action: func(ctx context.Context, c *cli.Command) error {
			doc, err := readImportFile(input, c.Root().Reader)
			if err != nil {
				return err
			}

			repo, err := backendCfg.Configure(ctx)
			if err != nil {
				return err
			}
			defer repo.Close()

			user, err := lookupUser(ctx, repo, email)
			if err != nil {
				return err
			}
			loc, err := config.LoadLocation(timezone)
			if err != nil {
				return err
			}
			opts := []usecase.Option{usecase.WithLocation(loc)}

			summary, err := runImport(ctx, usecase.NewTicket(repo, opts...), usecase.NewNote(repo, opts...), user.ID, doc)
			if err != nil {
				return err
			}

			ctxlog.From(ctx).Info("Import finished",
				"created", summary.Created,
				"updated", summary.Updated,
				"notes", summary.Notes,
			)
			return nil
		},
	}
}

func readImportFile(path string, stdin io.Reader) (*importFile, error) {
	var (
		raw []byte
		err error
	)
	if path == "-" {
		raw, err = io.ReadAll(stdin)
	} else {
		raw, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read import file", goerr.V("path", path))
	}

	var doc importFile
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, goerr.Wrap(err, "failed to parse import file", goerr.V("path", path))
	}
	return &doc, nil
}

// runImport saves every entry. It stops at the first invalid entry;
// entries before it stay saved.
func runImport(ctx context.Context, tickets usecase.TicketUseCase, notes usecase.NoteUseCase, userID types.UserID, doc *importFile) (*importSummary, error) {
	var summary importSummary

	for i, in := range doc.Tickets {
		result, err := tickets.Save(ctx, userID, in)
		if err != nil {
			return &summary, goerr.Wrap(err, "failed to import ticket", goerr.V("index", i), goerr.V("ticket_id", in.ExternalID))
		}
		if result.Created {
			summary.Created++
		} else {
			summary.Updated++
		}
	}

	for i, in := range doc.Notes {
		if _, err := notes.Create(ctx, userID, in); err != nil {
			return &summary, goerr.Wrap(err, "failed to import note", goerr.V("index", i), goerr.V("title", in.Title))
		}
		summary.Notes++
	}

	return &summary, nil
}

