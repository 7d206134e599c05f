package usecase

import (
	"bytes"
	"context"
	"time"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/ticktrack/pkg/domain/interfaces"
	"github.com/secmon-lab/ticktrack/pkg/domain/model"
	"github.com/secmon-lab/ticktrack/pkg/domain/types"
	"github.com/secmon-lab/ticktrack/pkg/service/export"
)

// Export implements ExportUseCase
type Export struct {
	repo  interfaces.Repository
	clock func() time.Time
}

// NewExport creates a new Export use case
func NewExport(repo interfaces.Repository, opts ...Option) *Export {
	o := newOptions(opts)
	return &Export{
		repo:  repo,
		clock: o.clock,
	}
}

// Export renders the filtered tickets of the requested view. The file is
// built in memory and returned whole.
func (u *Export) Export(ctx context.Context, userID types.UserID, req model.ExportRequest) (*model.ExportFile, error) {
	if _, err := model.ParseExportFormat(string(req.Format)); err != nil {
		return nil, err
	}

	now := u.clock()
	query, err := model.NewTicketQuery(req.View, now, req.WorkDateFrom, req.WorkDateTo)
	if err != nil {
		return nil, err
	}

	tickets, err := u.repo.ListTickets(ctx, userID, query)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list tickets", goerr.V("view", req.View))
	}
	tickets = req.Filter.Apply(tickets)

	var buf bytes.Buffer
	report := &export.Report{
		Tickets:     tickets,
		Filter:      req.Filter,
		GeneratedAt: now,
	}
	if err := export.Render(&buf, req.Format, report); err != nil {
		return nil, goerr.Wrap(err, "failed to generate export",
			goerr.V("format", req.Format),
			goerr.V("tickets", len(tickets)),
		)
	}

	file := &model.ExportFile{
		Name:        req.Format.FileName(now),
		ContentType: req.Format.ContentType(),
		Data:        buf.Bytes(),
		Rows:        len(tickets),
	}
	ctxlog.From(ctx).Info("Generated export",
		"format", req.Format,
		"rows", file.Rows,
		"bytes", len(file.Data),
	)
	return file, nil
}
