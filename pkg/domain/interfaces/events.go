package interfaces

import (
	"context"

	"github.com/secmon-lab/ticktrack/pkg/domain/model"
)

// AuthEventBus fans out session change notifications. Handlers run on a
// bus-owned goroutine and must not block.
type AuthEventBus interface {
	Publish(ctx context.Context, event *model.AuthEvent) error
	// Subscribe registers handler until the returned function is called
	Subscribe(ctx context.Context, handler func(*model.AuthEvent)) (unsubscribe func(), err error)
	Close() error
}

// Notifier delivers ticket notifications to an external channel
type Notifier interface {
	NotifyTicket(ctx context.Context, event *model.TicketEvent) error
}
