package cli

import (
	"context"
	"os"
	"time"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/ticktrack/pkg/cli/config"
	"github.com/secmon-lab/ticktrack/pkg/domain/model"
	"github.com/secmon-lab/ticktrack/pkg/domain/types"
	"github.com/secmon-lab/ticktrack/pkg/usecase"
	"github.com/urfave/cli/v3"
)

func cmdExport() *cli.Command {
	var (
		backendCfg config.Backend
		filter     ticketFilter
		email      string
		format     string
		output     string
	)

	return &cli.Command{
		Name:  "export",
		Usage: "Write a user's filtered tickets as CSV, PDF or XLSX",
		Flags: joinFlags(
			backendCfg.Flags(),
			filter.Flags(),
			[]cli.Flag{
				userFlag(&email),
				&cli.StringFlag{
					Name:        "format",
					Aliases:     []string{"f"},
					Usage:       "csv, pdf or xlsx",
					Value:       string(model.ExportCSV),
					Destination: &format,
				},
				&cli.StringFlag{
					Name:        "output",
					Aliases:     []string{"o"},
					Usage:       "Output path; \"-\" writes to stdout (default: timestamped file name)",
					Destination: &output,
				},
			},
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
			exportFormat, err := model.ParseExportFormat(format)
			if err != nil {
				return err
			}
			// validates the flags before any data is read
			_, f, err := filter.build(now)
			if err != nil {
				return err
			}

			exportUC := usecase.NewExport(repo, usecase.WithClock(func() time.Time { return now }))
			file, err := exportUC.Export(ctx, user.ID, model.ExportRequest{
				Format:       exportFormat,
				View:         model.ViewMode(filter.View),
				WorkDateFrom: types.WorkDate(filter.From),
				WorkDateTo:   types.WorkDate(filter.To),
				Filter:       f,
			})
			if err != nil {
				return err
			}

			if output == "-" {
				_, err := c.Root().Writer.Write(file.Data)
				return err
			}
			if output == "" {
				output = file.Name
			}
			if err := os.WriteFile(output, file.Data, 0o644); err != nil {
				return goerr.Wrap(err, "failed to write export", goerr.V("path", output))
			}

			ctxlog.From(ctx).Info("Export written",
				"path", output,
				"format", exportFormat,
				"rows", file.Rows,
			)
			return nil
		},
	}
}
