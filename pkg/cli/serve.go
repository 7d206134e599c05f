package cli

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/robfig/cron/v3"
	"github.com/secmon-lab/ticktrack/pkg/cli/config"
	controller "github.com/secmon-lab/ticktrack/pkg/controller/http"
	"github.com/secmon-lab/ticktrack/pkg/usecase"
	"github.com/secmon-lab/ticktrack/pkg/utils/async"
	"github.com/urfave/cli/v3"
)

const sessionSweepSchedule = "@every 1h"

func cmdServe() *cli.Command {
	var (
		serverCfg  config.Server
		backendCfg config.Backend
		authCfg    config.Auth
		eventsCfg  config.Events
		slackCfg   config.Slack
	)

	flags := joinFlags(
		serverCfg.Flags(),
		backendCfg.Flags(),
		authCfg.Flags(),
		eventsCfg.Flags(),
		slackCfg.Flags(),
	)

	return &cli.Command{
		Name:  "serve",
		Usage: "Start HTTP server",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			logger := ctxlog.From(ctx)

			logger.Info("Starting ticktrack server",
				slog.Any("server", serverCfg),
				slog.Any("backend", backendCfg),
				slog.Any("auth", authCfg),
				slog.Any("events", eventsCfg),
				slog.Any("slack", slackCfg),
			)

			loc, err := serverCfg.Location()
			if err != nil {
				return err
			}
			clock := func() time.Time { return time.Now().In(loc) }

			httpCfg := controller.Config{
				Addr:          serverCfg.Addr,
				AnonKey:       backendCfg.AnonKey,
				Configured:    backendCfg.IsConfigured(),
				SetupGuide:    backendCfg.SetupGuide(),
				SecureCookies: serverCfg.SecureCookies,
				Clock:         clock,
			}

			useCases := &controller.UseCases{}
			if httpCfg.Configured {
				repo, err := backendCfg.Configure(ctx)
				if err != nil {
					return err
				}
				defer repo.Close()

				bus, err := eventsCfg.Configure(ctx)
				if err != nil {
					return err
				}
				defer bus.Close()

				opts := []usecase.Option{
					usecase.WithLocation(loc),
					usecase.WithNotifier(slackCfg.Configure()),
				}

				authUC, err := authCfg.Configure(ctx, repo, bus, opts...)
				if err != nil {
					return goerr.Wrap(err, "failed to create auth use case")
				}

				useCases = &controller.UseCases{
					Auth:      authUC,
					Ticket:    usecase.NewTicket(repo, opts...),
					Note:      usecase.NewNote(repo, opts...),
					Dashboard: usecase.NewDashboard(repo, opts...),
					Export:    usecase.NewExport(repo, opts...),
				}

				scheduler := cron.New(cron.WithLocation(loc))
				if _, err := scheduler.AddFunc(sessionSweepSchedule, func() {
					sweepSessions(ctx, authUC)
				}); err != nil {
					return goerr.Wrap(err, "failed to schedule session sweep")
				}
				scheduler.Start()
				defer func() {
					<-scheduler.Stop().Done()
				}()
			} else {
				logger.Warn("Data service is not configured. Run `ticktrack setup` for instructions")
			}

			server, err := controller.NewServer(ctx, httpCfg, useCases)
			if err != nil {
				return goerr.Wrap(err, "failed to create HTTP server")
			}

			serverErr := make(chan error, 1)
			go func() {
				logger.Info("HTTP server starting", slog.String("addr", serverCfg.Addr))
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					serverErr <- err
				}
			}()

			sigChan := make(chan os.Signal, 1)
			signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
			defer signal.Stop(sigChan)

			select {
			case <-ctx.Done():
				logger.Info("Context cancelled, shutting down...")
			case sig := <-sigChan:
				logger.Info("Signal received, shutting down...", slog.Any("signal", sig))
			case err := <-serverErr:
				return goerr.Wrap(err, "HTTP server failed")
			}

			// Graceful shutdown
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			if err := server.Shutdown(shutdownCtx); err != nil {
				return goerr.Wrap(err, "failed to shutdown server gracefully")
			}
			if err := async.Wait(shutdownCtx); err != nil {
				logger.Warn("Pending notifications dropped", "error", err)
			}

			logger.Info("Server shutdown complete")
			return nil
		},
	}
}

func sweepSessions(ctx context.Context, authUC usecase.AuthUseCase) {
	n, err := authUC.SweepExpiredSessions(ctx)
	if err != nil {
		ctxlog.From(ctx).Error("Failed to sweep expired sessions", "error", err)
		return
	}
	if n > 0 {
		ctxlog.From(ctx).Info("Swept expired sessions", "count", n)
	}
}
