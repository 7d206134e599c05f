package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/ticktrack/pkg/domain/interfaces"
	"github.com/secmon-lab/ticktrack/pkg/domain/model"
	"github.com/slack-go/slack"
)

// Slack posts ticket notifications to an incoming webhook
type Slack struct {
	webhookURL string
	channel    string
}

var _ interfaces.Notifier = (*Slack)(nil)

// SlackOption configures Slack
type SlackOption func(*Slack)

// WithChannel overrides the webhook's default channel
func WithChannel(channel string) SlackOption {
	return func(s *Slack) {
		s.channel = channel
	}
}

// NewSlack creates a webhook notifier
func NewSlack(webhookURL string, opts ...SlackOption) *Slack {
	s := &Slack{webhookURL: webhookURL}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NotifyTicket posts one message for event
func (s *Slack) NotifyTicket(ctx context.Context, event *model.TicketEvent) error {
	if event == nil || event.Ticket == nil {
		return goerr.New("ticket event is empty")
	}

	msg := buildMessage(event)
	msg.Channel = s.channel
	if err := slack.PostWebhookContext(ctx, s.webhookURL, msg); err != nil {
		return goerr.Wrap(err, "failed to post slack webhook",
			goerr.V("kind", event.Kind),
			goerr.V("ticket_id", event.Ticket.ExternalID),
		)
	}
	return nil
}

func buildMessage(event *model.TicketEvent) *slack.WebhookMessage {
	t := event.Ticket

	var verb, color string
	switch event.Kind {
	case model.TicketEventCreated:
		verb, color = "created", "#3b82f6"
	case model.TicketEventResolved:
		verb, color = "resolved", "good"
	case model.TicketEventReopened:
		verb, color = "reopened", "warning"
	default:
		verb, color = string(event.Kind), "#999999"
	}

	by := ""
	if event.Email != "" {
		by = " by " + event.Email
	}

	fields := []slack.AttachmentField{
		{Title: "Status", Value: t.Status.String(), Short: true},
		{Title: "Work date", Value: t.WorkDate.String(), Short: true},
	}
	if notes := t.NotesText(); notes != "" {
		fields = append(fields, slack.AttachmentField{Title: "Notes", Value: notes})
	}

	return &slack.WebhookMessage{
		Text: fmt.Sprintf("Ticket *%s* %s%s", t.ExternalID, verb, by),
		Attachments: []slack.Attachment{
			{
				Color:  color,
				Fields: fields,
				Footer: "ticktrack",
				Ts:     json.Number(strconv.FormatInt(t.UpdatedAt.Unix(), 10)),
			},
		},
	}
}
