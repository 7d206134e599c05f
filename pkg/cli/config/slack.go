package config

import (
	"log/slog"

	"github.com/secmon-lab/ticktrack/pkg/domain/interfaces"
	"github.com/secmon-lab/ticktrack/pkg/service/notify"
	"github.com/urfave/cli/v3"
)

// Slack holds the incoming webhook used for ticket notifications
type Slack struct {
	WebhookURL string
	Channel    string
}

// Flags returns CLI flags for Slack configuration
func (s *Slack) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "slack-webhook-url",
			Usage:       "Slack incoming webhook URL for ticket notifications",
			Category:    "Slack",
			Sources:     cli.EnvVars("TICKTRACK_SLACK_WEBHOOK_URL"),
			Destination: &s.WebhookURL,
		},
		&cli.StringFlag{
			Name:        "slack-channel",
			Usage:       "Channel override for the webhook",
			Category:    "Slack",
			Sources:     cli.EnvVars("TICKTRACK_SLACK_CHANNEL"),
			Destination: &s.Channel,
		},
	}
}

// IsConfigured reports whether notifications are enabled
func (s *Slack) IsConfigured() bool {
	return s.WebhookURL != ""
}

// Configure returns the notifier, or nil when Slack is not configured
func (s *Slack) Configure() interfaces.Notifier {
	if !s.IsConfigured() {
		return nil
	}
	var opts []notify.SlackOption
	if s.Channel != "" {
		opts = append(opts, notify.WithChannel(s.Channel))
	}
	return notify.NewSlack(s.WebhookURL, opts...)
}

// LogValue returns structured log value
func (s Slack) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Bool("webhook_set", s.IsConfigured()),
		slog.String("channel", s.Channel),
	)
}
