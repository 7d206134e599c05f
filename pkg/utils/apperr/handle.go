package apperr

import (
	"context"
	"errors"

	"github.com/m-mizutani/ctxlog"
)

// Handle logs an error that could not be reported to the caller in any
// other way. Cancelled requests are logged at debug level.
func Handle(ctx context.Context, err error) {
	if err == nil {
		return
	}

	logger := ctxlog.From(ctx)
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		logger.Debug("request aborted", "error", err)
		return
	}
	logger.Error("application error", "error", err)
}
