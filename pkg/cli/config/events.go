package config

import (
	"context"
	"log/slog"
	"net/url"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/ticktrack/pkg/domain/interfaces"
	"github.com/secmon-lab/ticktrack/pkg/service/events"
	"github.com/urfave/cli/v3"
)

// Events selects the bus that fans session changes out to connected
// clients. Redis is needed when more than one server instance runs.
type Events struct {
	RedisURL string
	Channel  string
}

// Flags returns CLI flags for Events configuration
func (e *Events) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "redis-url",
			Usage:       "Redis URL for session change notifications (in-process when empty)",
			Category:    "Events",
			Sources:     cli.EnvVars("TICKTRACK_REDIS_URL"),
			Destination: &e.RedisURL,
		},
		&cli.StringFlag{
			Name:        "redis-channel",
			Usage:       "Redis pub/sub channel for session change notifications",
			Category:    "Events",
			Value:       "ticktrack:auth-events",
			Sources:     cli.EnvVars("TICKTRACK_REDIS_CHANNEL"),
			Destination: &e.Channel,
		},
	}
}

// IsConfigured reports whether Redis is used
func (e *Events) IsConfigured() bool {
	return e.RedisURL != ""
}

// Configure creates the event bus
func (e *Events) Configure(ctx context.Context) (interfaces.AuthEventBus, error) {
	if !e.IsConfigured() {
		return events.NewMemory(), nil
	}

	bus, err := events.NewRedis(ctx, e.RedisURL, e.Channel)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to connect to redis", goerr.V("channel", e.Channel))
	}
	return bus, nil
}

// LogValue returns structured log value
func (e Events) LogValue() slog.Value {
	redisURL := ""
	if u, err := url.Parse(e.RedisURL); err == nil {
		redisURL = u.Redacted()
	}
	return slog.GroupValue(
		slog.String("redis_url", redisURL),
		slog.String("channel", e.Channel),
	)
}
