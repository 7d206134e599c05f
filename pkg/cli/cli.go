package cli

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/ticktrack/pkg/cli/config"
	"github.com/urfave/cli/v3"
)

// Run runs the CLI application
func Run(ctx context.Context, args []string) error {
	var loggerCfg config.Logger

	// Flags read their env sources when parsed, so the file has to be
	// loaded first
	envErr := loadEnvFile()

	app := &cli.Command{
		Name:    "ticktrack",
		Usage:   "Ticket tracking dashboard with reports",
		Version: "0.1.0",
		Flags:   loggerCfg.Flags(),
		Before: func(ctx context.Context, c *cli.Command) (context.Context, error) {
			logger, err := loggerCfg.Configure()
			if err != nil {
				return nil, err
			}

			slog.SetDefault(logger)
			ctx = ctxlog.With(ctx, logger)
			if envErr != nil {
				logger.Warn("Failed to load environment file", "error", envErr)
			}
			return ctx, nil
		},
		Commands: []*cli.Command{
			cmdServe(),
			cmdSetup(),
			cmdTickets(),
			cmdExport(),
			cmdImport(),
		},
	}

	if err := app.Run(ctx, args); err != nil {
		ctxlog.From(ctx).Error("Command failed", "error", err)
		return goerr.Wrap(err, "CLI execution failed")
	}

	return nil
}

// loadEnvFile loads TICKTRACK_ENV_FILE, or .env when it exists. Values
// already in the environment win.
func loadEnvFile() error {
	path := os.Getenv("TICKTRACK_ENV_FILE")
	if path == "" {
		path = ".env"
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			return nil
		}
	}
	if err := godotenv.Load(path); err != nil {
		return goerr.Wrap(err, "failed to load env file", goerr.V("path", path))
	}
	return nil
}
