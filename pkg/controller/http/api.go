package http

import (
	"encoding/json"
	"errors"
	"mime"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/ticktrack/pkg/domain/model"
	"github.com/secmon-lab/ticktrack/pkg/domain/types"
)

// apiHandler serves the JSON ticket, note, dashboard and export endpoints.
// Every route is behind RequireAuth.
type apiHandler struct {
	uc      *UseCases
	clock   func() time.Time
	metrics *Metrics
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, r, goerr.Wrap(err, "invalid request body"), http.StatusBadRequest)
		return false
	}
	return true
}

func (h *apiHandler) listTickets(w http.ResponseWriter, r *http.Request) {
	authCtx := authContext(r)
	params, err := parseTicketParams(r.URL.Query(), h.clock())
	if err != nil {
		handleError(w, r, err)
		return
	}

	query, err := model.NewTicketQuery(params.View, h.clock(), params.From, params.To)
	if err != nil {
		handleError(w, r, err)
		return
	}

	tickets, err := h.uc.Ticket.List(r.Context(), authCtx.UserID, query)
	if err != nil {
		handleError(w, r, err)
		return
	}

	filtered := params.Filter.Apply(tickets)
	writeJSON(w, r, http.StatusOK, map[string]any{
		"tickets":   filtered,
		"all_count": len(tickets),
	})
}

func (h *apiHandler) saveTicket(w http.ResponseWriter, r *http.Request) {
	authCtx := authContext(r)
	var in model.TicketInput
	if !decodeJSON(w, r, &in) {
		return
	}

	result, err := h.uc.Ticket.Save(r.Context(), authCtx.UserID, in)
	if err != nil {
		handleError(w, r, err)
		return
	}

	status := http.StatusOK
	if result.Created {
		status = http.StatusCreated
	}
	writeJSON(w, r, status, map[string]any{
		"ticket":          result.Ticket,
		"created":         result.Created,
		"status_changed":  result.StatusChanged,
		"previous_status": result.PreviousStatus,
		"message":         result.Message(),
	})
}

func (h *apiHandler) getTicket(w http.ResponseWriter, r *http.Request) {
	authCtx := authContext(r)
	ticket, err := h.uc.Ticket.Get(r.Context(), authCtx.UserID, types.TicketID(chi.URLParam(r, "id")))
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, ticket)
}

func (h *apiHandler) updateTicket(w http.ResponseWriter, r *http.Request) {
	authCtx := authContext(r)
	var update model.TicketUpdate
	if !decodeJSON(w, r, &update) {
		return
	}

	ticket, err := h.uc.Ticket.Update(r.Context(), authCtx.UserID, types.TicketID(chi.URLParam(r, "id")), update)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, ticket)
}

func (h *apiHandler) toggleTicket(w http.ResponseWriter, r *http.Request) {
	authCtx := authContext(r)
	ticket, err := h.uc.Ticket.ToggleStatus(r.Context(), authCtx.UserID, types.TicketID(chi.URLParam(r, "id")))
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, ticket)
}

func (h *apiHandler) deleteTicket(w http.ResponseWriter, r *http.Request) {
	authCtx := authContext(r)
	if err := h.uc.Ticket.Delete(r.Context(), authCtx.UserID, types.TicketID(chi.URLParam(r, "id"))); err != nil {
		handleError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *apiHandler) listNotes(w http.ResponseWriter, r *http.Request) {
	authCtx := authContext(r)
	notes, err := h.uc.Note.List(r.Context(), authCtx.UserID, r.URL.Query().Get("search"))
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]any{"notes": notes})
}

func (h *apiHandler) createNote(w http.ResponseWriter, r *http.Request) {
	authCtx := authContext(r)
	var in model.NoteInput
	if !decodeJSON(w, r, &in) {
		return
	}

	note, err := h.uc.Note.Create(r.Context(), authCtx.UserID, in)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, note)
}

func (h *apiHandler) getNote(w http.ResponseWriter, r *http.Request) {
	authCtx := authContext(r)
	note, err := h.uc.Note.Get(r.Context(), authCtx.UserID, types.NoteID(chi.URLParam(r, "id")))
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, note)
}

func (h *apiHandler) updateNote(w http.ResponseWriter, r *http.Request) {
	authCtx := authContext(r)
	var in model.NoteInput
	if !decodeJSON(w, r, &in) {
		return
	}

	note, err := h.uc.Note.Update(r.Context(), authCtx.UserID, types.NoteID(chi.URLParam(r, "id")), in)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, note)
}

func (h *apiHandler) deleteNote(w http.ResponseWriter, r *http.Request) {
	authCtx := authContext(r)
	if err := h.uc.Note.Delete(r.Context(), authCtx.UserID, types.NoteID(chi.URLParam(r, "id"))); err != nil {
		handleError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *apiHandler) dashboard(w http.ResponseWriter, r *http.Request) {
	authCtx := authContext(r)
	params, err := parseTicketParams(r.URL.Query(), h.clock())
	if err != nil {
		handleError(w, r, err)
		return
	}

	dashboard, err := h.uc.Dashboard.Load(r.Context(), authCtx.UserID, params.dashboardRequest())
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, dashboard)
}

func (h *apiHandler) export(w http.ResponseWriter, r *http.Request) {
	authCtx := authContext(r)
	file, err := runExport(r, h.uc, authCtx.UserID, h.clock())
	if err != nil {
		handleExportError(w, r, err)
		return
	}
	h.metrics.ObserveExport(model.ExportFormat(r.URL.Query().Get("format")))
	writeExport(w, r, file)
}

// runExport parses the export query and generates the file
func runExport(r *http.Request, uc *UseCases, userID types.UserID, now time.Time) (*model.ExportFile, error) {
	q := r.URL.Query()
	format, err := model.ParseExportFormat(q.Get("format"))
	if err != nil {
		return nil, err
	}
	params, err := parseTicketParams(q, now)
	if err != nil {
		return nil, err
	}
	return uc.Export.Export(r.Context(), userID, params.exportRequest(format))
}

// handleExportError reports bad parameters as 400 and every other
// failure as a generic generation error
func handleExportError(w http.ResponseWriter, r *http.Request, err error) {
	var fields model.ValidationErrors
	if errors.As(err, &fields) {
		handleError(w, r, err)
		return
	}
	ctxlog.From(r.Context()).Error("Failed to generate export", "error", err)
	writeError(w, r, goerr.New("failed to generate export"), http.StatusInternalServerError)
}

func writeExport(w http.ResponseWriter, r *http.Request, file *model.ExportFile) {
	w.Header().Set("Content-Type", file.ContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": file.Name}))
	w.Header().Set("Content-Length", strconv.Itoa(len(file.Data)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(file.Data); err != nil {
		ctxlog.From(r.Context()).Debug("Failed to write export", "error", err)
	}
}
