package http

import (
	"bytes"
	"errors"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/m-mizutani/ctxlog"
	"github.com/secmon-lab/ticktrack/pkg/domain/model"
	"github.com/secmon-lab/ticktrack/pkg/domain/types"
	"github.com/secmon-lab/ticktrack/pkg/utils/apperr"
	"github.com/xeonx/timeago"
)

type pageOption struct {
	Value  string
	Label  string
	Active bool
}

type pageTicketRow struct {
	ID         types.TicketID
	TicketID   string
	Status     types.TicketStatus
	Resolved   bool
	Notes      string
	WorkDate   types.WorkDate
	Created    string
	CreatedAgo string
	Updated    string
	UpdatedAgo string
}

type pageNote struct {
	ID         types.NoteID
	Title      string
	Content    string
	Priority   types.NotePriority
	TicketRef  string
	UpdatedAgo string
}

const pageTimeLayout = "2006-01-02 15:04"

// mountPages serves the cookie-authenticated HTML dashboard
func (s *Server) mountPages(router chi.Router) {
	router.Get("/", s.handleIndex)
	router.Post("/signin", s.handleSignInForm)
	router.Post("/signup", s.handleSignUpForm)
	router.Post("/signout", s.handleSignOutForm)
	router.Get("/export", s.handleExportPage)

	router.Post("/tickets", s.handleTicketForm)
	router.Post("/tickets/{id}/toggle", s.handleToggleForm)
	router.Post("/tickets/{id}/delete", s.handleDeleteTicketForm)
	router.Post("/notes", s.handleNoteForm)
	router.Post("/notes/{id}/delete", s.handleDeleteNoteForm)
}

func (s *Server) renderPage(w http.ResponseWriter, r *http.Request, status int, name string, data map[string]any) {
	var buf bytes.Buffer
	if err := s.renderer.Render(&buf, name, data); err != nil {
		apperr.Handle(r.Context(), err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if _, err := buf.WriteTo(w); err != nil {
		ctxlog.From(r.Context()).Debug("Failed to write page", "error", err)
	}
}

// pageSession resolves the access_token cookie. An invalid or expired
// token is refreshed once with the refresh_token cookie.
func (s *Server) pageSession(w http.ResponseWriter, r *http.Request) *model.Session {
	if c, err := r.Cookie(accessTokenCookie); err == nil && c.Value != "" {
		session, err := s.uc.Auth.GetSession(r.Context(), c.Value)
		if err == nil {
			return session
		}
	}

	c, err := r.Cookie(refreshTokenCookie)
	if err != nil || c.Value == "" {
		return nil
	}
	result, err := s.uc.Auth.Refresh(r.Context(), c.Value)
	if err != nil {
		ctxlog.From(r.Context()).Debug("Page session refresh failed", "error", err)
		clearAuthCookies(w)
		return nil
	}
	setAuthCookies(w, result, s.cfg.SecureCookies)
	return result.Session
}

func redirectHome(w http.ResponseWriter, r *http.Request, flash string) {
	target := "/"
	if flash != "" {
		target += "?" + url.Values{"flash": {flash}}.Encode()
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	session := s.pageSession(w, r)
	if session == nil {
		s.renderSignIn(w, r, http.StatusOK, r.URL.Query().Get("mode"), model.Credentials{}, nil, "")
		return
	}
	s.renderDashboard(w, r, session, http.StatusOK, nil)
}

func (s *Server) renderSignIn(w http.ResponseWriter, r *http.Request, status int, mode string, creds model.Credentials, fields model.ValidationErrors, message string) {
	if mode != "signup" {
		mode = "signin"
	}
	s.renderPage(w, r, status, "signin.html", map[string]any{
		"mode":      mode,
		"email":     creds.Email,
		"full_name": creds.FullName,
		"fields":    fields,
		"error":     message,
	})
}

func formCredentials(r *http.Request) model.Credentials {
	return model.Credentials{
		Email:    r.PostFormValue("email"),
		Password: r.PostFormValue("password"),
		FullName: r.PostFormValue("full_name"),
	}
}

func (s *Server) handleSignInForm(w http.ResponseWriter, r *http.Request) {
	creds := formCredentials(r)
	result, err := s.uc.Auth.SignIn(r.Context(), creds)
	if err != nil {
		s.handleAuthFormError(w, r, "signin", creds, err)
		return
	}
	setAuthCookies(w, result, s.cfg.SecureCookies)
	redirectHome(w, r, "")
}

func (s *Server) handleSignUpForm(w http.ResponseWriter, r *http.Request) {
	creds := formCredentials(r)
	result, err := s.uc.Auth.SignUp(r.Context(), creds)
	if err != nil {
		s.handleAuthFormError(w, r, "signup", creds, err)
		return
	}
	setAuthCookies(w, result, s.cfg.SecureCookies)
	redirectHome(w, r, "Account created")
}

func (s *Server) handleAuthFormError(w http.ResponseWriter, r *http.Request, mode string, creds model.Credentials, err error) {
	var fields model.ValidationErrors
	switch {
	case errors.As(err, &fields):
		s.renderSignIn(w, r, http.StatusBadRequest, mode, creds, fields, "")
	case errors.Is(err, model.ErrUnauthorized):
		s.renderSignIn(w, r, http.StatusUnauthorized, mode, creds, nil, "Invalid email or password")
	case errors.Is(err, model.ErrEmailTaken):
		s.renderSignIn(w, r, http.StatusConflict, mode, creds, nil, "An account with this email already exists")
	default:
		apperr.Handle(r.Context(), err)
		s.renderSignIn(w, r, http.StatusInternalServerError, mode, creds, nil, "Something went wrong, please try again")
	}
}

func (s *Server) handleSignOutForm(w http.ResponseWriter, r *http.Request) {
	if session := s.pageSession(w, r); session != nil {
		if err := s.uc.Auth.SignOut(r.Context(), session.ID); err != nil {
			apperr.Handle(r.Context(), err)
		}
	}
	clearAuthCookies(w)
	redirectHome(w, r, "")
}

func (s *Server) handleExportPage(w http.ResponseWriter, r *http.Request) {
	session := s.pageSession(w, r)
	if session == nil {
		redirectHome(w, r, "")
		return
	}

	file, err := runExport(r, s.uc, session.UserID, s.cfg.Clock())
	if err != nil {
		handleExportError(w, r, err)
		return
	}
	s.metrics.ObserveExport(model.ExportFormat(r.URL.Query().Get("format")))
	writeExport(w, r, file)
}

func (s *Server) handleTicketForm(w http.ResponseWriter, r *http.Request) {
	session := s.pageSession(w, r)
	if session == nil {
		redirectHome(w, r, "")
		return
	}

	in := model.TicketInput{
		ExternalID: r.PostFormValue("ticket_id"),
		Status:     types.TicketStatus(r.PostFormValue("status")),
		Notes:      r.PostFormValue("notes"),
		WorkDate:   types.WorkDate(r.PostFormValue("work_date")),
	}
	result, err := s.uc.Ticket.Save(r.Context(), session.UserID, in)
	if err != nil {
		var fields model.ValidationErrors
		if errors.As(err, &fields) {
			s.renderDashboard(w, r, session, http.StatusBadRequest, fields)
			return
		}
		apperr.Handle(r.Context(), err)
		redirectHome(w, r, "Failed to save ticket")
		return
	}
	redirectHome(w, r, result.Message())
}

func (s *Server) handleToggleForm(w http.ResponseWriter, r *http.Request) {
	session := s.pageSession(w, r)
	if session == nil {
		redirectHome(w, r, "")
		return
	}

	ticket, err := s.uc.Ticket.ToggleStatus(r.Context(), session.UserID, types.TicketID(chi.URLParam(r, "id")))
	if err != nil {
		s.redirectWithError(w, r, err, "Ticket not found")
		return
	}
	redirectHome(w, r, "Ticket "+ticket.ExternalID+" marked "+ticket.Status.String())
}

func (s *Server) handleDeleteTicketForm(w http.ResponseWriter, r *http.Request) {
	session := s.pageSession(w, r)
	if session == nil {
		redirectHome(w, r, "")
		return
	}

	if err := s.uc.Ticket.Delete(r.Context(), session.UserID, types.TicketID(chi.URLParam(r, "id"))); err != nil {
		s.redirectWithError(w, r, err, "Ticket not found")
		return
	}
	redirectHome(w, r, "Ticket deleted")
}

func (s *Server) handleNoteForm(w http.ResponseWriter, r *http.Request) {
	session := s.pageSession(w, r)
	if session == nil {
		redirectHome(w, r, "")
		return
	}

	in := model.NoteInput{
		Title:    r.PostFormValue("title"),
		Content:  r.PostFormValue("content"),
		Priority: types.NotePriority(r.PostFormValue("priority")),
		TicketID: r.PostFormValue("ticket_id"),
	}
	if _, err := s.uc.Note.Create(r.Context(), session.UserID, in); err != nil {
		var fields model.ValidationErrors
		if errors.As(err, &fields) {
			s.renderDashboard(w, r, session, http.StatusBadRequest, fields)
			return
		}
		apperr.Handle(r.Context(), err)
		redirectHome(w, r, "Failed to save note")
		return
	}
	redirectHome(w, r, "Note added")
}

func (s *Server) handleDeleteNoteForm(w http.ResponseWriter, r *http.Request) {
	session := s.pageSession(w, r)
	if session == nil {
		redirectHome(w, r, "")
		return
	}

	if err := s.uc.Note.Delete(r.Context(), session.UserID, types.NoteID(chi.URLParam(r, "id"))); err != nil {
		s.redirectWithError(w, r, err, "Note not found")
		return
	}
	redirectHome(w, r, "Note deleted")
}

func (s *Server) redirectWithError(w http.ResponseWriter, r *http.Request, err error, notFound string) {
	if errors.Is(err, model.ErrTicketNotFound) || errors.Is(err, model.ErrNoteNotFound) {
		redirectHome(w, r, notFound)
		return
	}
	apperr.Handle(r.Context(), err)
	redirectHome(w, r, "Something went wrong")
}

func (s *Server) renderDashboard(w http.ResponseWriter, r *http.Request, session *model.Session, status int, fields model.ValidationErrors) {
	now := s.cfg.Clock()
	q := r.URL.Query()

	params, err := parseTicketParams(q, now)
	if err != nil {
		var bad model.ValidationErrors
		if !errors.As(err, &bad) {
			apperr.Handle(r.Context(), err)
		}
		// Fall back to the unfiltered view and show what was wrong
		params, _ = parseTicketParams(url.Values{}, now)
		fields = bad
		status = http.StatusBadRequest
	}

	dashboard, err := s.uc.Dashboard.Load(r.Context(), session.UserID, params.dashboardRequest())
	if err != nil {
		var bad model.ValidationErrors
		if !errors.As(err, &bad) {
			apperr.Handle(r.Context(), err)
			http.Error(w, "failed to load dashboard", http.StatusInternalServerError)
			return
		}
		params, _ = parseTicketParams(url.Values{}, now)
		if dashboard, err = s.uc.Dashboard.Load(r.Context(), session.UserID, params.dashboardRequest()); err != nil {
			apperr.Handle(r.Context(), err)
			http.Error(w, "failed to load dashboard", http.StatusInternalServerError)
			return
		}
		fields = bad
		status = http.StatusBadRequest
	}

	rows := make([]pageTicketRow, 0, len(dashboard.Tickets))
	for _, t := range dashboard.Tickets {
		rows = append(rows, pageTicketRow{
			ID:         t.ID,
			TicketID:   t.ExternalID,
			Status:     t.Status,
			Resolved:   t.IsResolved(),
			Notes:      t.NotesText(),
			WorkDate:   t.WorkDate,
			Created:    t.CreatedAt.In(now.Location()).Format(pageTimeLayout),
			CreatedAgo: timeago.English.FormatReference(t.CreatedAt, now),
			Updated:    t.UpdatedAt.In(now.Location()).Format(pageTimeLayout),
			UpdatedAgo: timeago.English.FormatReference(t.UpdatedAt, now),
		})
	}

	notes := make([]pageNote, 0, len(dashboard.Notes))
	for _, n := range dashboard.Notes {
		notes = append(notes, pageNote{
			ID:         n.ID,
			Title:      n.Title,
			Content:    n.Content,
			Priority:   n.Priority,
			TicketRef:  n.TicketRefText(),
			UpdatedAgo: timeago.English.FormatReference(n.UpdatedAt, now),
		})
	}

	views := []pageOption{
		{Value: string(model.ViewAll), Label: "All tickets"},
		{Value: string(model.ViewToday), Label: "Today"},
		{Value: string(model.ViewRange), Label: "Work date range"},
	}
	for i := range views {
		views[i].Active = views[i].Value == string(params.View)
	}

	statuses := []pageOption{{Value: string(types.TicketStatusAll), Label: "All statuses", Active: params.Filter.Status == types.TicketStatusAll}}
	for _, st := range types.TicketStatuses() {
		statuses = append(statuses, pageOption{Value: st.String(), Label: st.String(), Active: params.Filter.Status == st})
	}

	presets := make([]pageOption, 0, len(model.DatePresets()))
	for _, p := range model.DatePresets() {
		presets = append(presets, pageOption{Value: string(p), Label: p.Label(), Active: q.Get("preset") == string(p)})
	}

	s.renderPage(w, r, status, "dashboard.html", map[string]any{
		"email":          session.Email,
		"flash":          q.Get("flash"),
		"cards":          dashboard.Cards,
		"views":          views,
		"statuses":       statuses,
		"presets":        presets,
		"view":           string(params.View),
		"from":           string(params.From),
		"to":             string(params.To),
		"search":         params.Filter.Search,
		"start":          q.Get("start"),
		"end":            q.Get("end"),
		"active_filters": dashboard.ActiveFilters,
		"rows":           rows,
		"all_count":      dashboard.AllCount,
		"export_query":   exportQuery(q),
		"today":          string(types.NewWorkDate(now)),
		"fields":         fields,
		"note_search":    params.NoteSearch,
		"notes":          notes,
		"priorities":     []types.NotePriority{types.NotePriorityLow, types.NotePriorityMedium, types.NotePriorityHigh, types.NotePriorityCritical},
	})
}

