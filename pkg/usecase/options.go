package usecase

import (
	"time"

	"github.com/secmon-lab/ticktrack/pkg/domain/interfaces"
)

// Option is a functional option shared by the use case constructors
type Option func(*options)

type options struct {
	clock    func() time.Time
	notifier interfaces.Notifier
}

// WithClock replaces time.Now. The returned time's location is used for
// "today" and for rendering timestamps.
func WithClock(clock func() time.Time) Option {
	return func(o *options) {
		o.clock = clock
	}
}

// WithLocation makes the default clock report time in loc
func WithLocation(loc *time.Location) Option {
	return func(o *options) {
		if loc != nil {
			o.clock = func() time.Time { return time.Now().In(loc) }
		}
	}
}

// WithNotifier sets the ticket notifier
func WithNotifier(n interfaces.Notifier) Option {
	return func(o *options) {
		o.notifier = n
	}
}

func newOptions(opts []Option) *options {
	o := &options{clock: time.Now}
	for _, opt := range opts {
		opt(o)
	}
	return o
}
