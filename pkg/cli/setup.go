package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/secmon-lab/ticktrack/pkg/cli/config"
	"github.com/secmon-lab/ticktrack/pkg/domain/model"
	"github.com/secmon-lab/ticktrack/pkg/repository"
	"github.com/urfave/cli/v3"
)

func cmdSetup() *cli.Command {
	var (
		backendCfg config.Backend
		schemaOnly bool
	)

	return &cli.Command{
		Name:  "setup",
		Usage: "Print the first-run guide: environment variables and SQL schema",
		Flags: joinFlags(
			backendCfg.Flags(),
			[]cli.Flag{
				&cli.BoolFlag{
					Name:        "schema",
					Usage:       "Print only the SQL schema",
					Destination: &schemaOnly,
				},
			},
		),
		Action: func(ctx context.Context, c *cli.Command) error {
			w := c.Root().Writer
			if schemaOnly {
				_, err := fmt.Fprint(w, repository.Schema)
				return err
			}
			return writeSetupGuide(w, backendCfg.SetupGuide(), backendCfg.IsConfigured())
		},
	}
}

func writeSetupGuide(w io.Writer, guide *model.SetupGuide, configured bool) error {
	var b strings.Builder
	b.WriteString("TicketTrack Pro setup\n\n")
	if configured {
		b.WriteString("The data service is configured. Start the server with `ticktrack serve`.\n\n")
	}

	for _, step := range guide.Steps {
		fmt.Fprintf(&b, "%d. %s\n   %s\n", step.Number, step.Title, step.Description)
		if step.Copy != "" {
			for _, line := range strings.Split(strings.TrimRight(step.Copy, "\n"), "\n") {
				b.WriteString("     " + line + "\n")
			}
		}
		b.WriteString("\n")
	}

	b.WriteString("Next steps:\n")
	for i, s := range guide.NextSteps {
		fmt.Fprintf(&b, "  %d) %s\n", i+1, s)
	}

	_, err := io.WriteString(w, b.String())
	return err
}
