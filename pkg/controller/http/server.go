package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/ticktrack/frontend"
	"github.com/secmon-lab/ticktrack/pkg/domain/model"
	"github.com/secmon-lab/ticktrack/pkg/usecase"
	"github.com/secmon-lab/ticktrack/pkg/utils/apperr"
)

// UseCases bundles the use cases served over HTTP. All fields may be nil
// while the data service is not configured.
type UseCases struct {
	Auth      usecase.AuthUseCase
	Ticket    usecase.TicketUseCase
	Note      usecase.NoteUseCase
	Dashboard usecase.DashboardUseCase
	Export    usecase.ExportUseCase
}

// Config holds HTTP server settings
type Config struct {
	Addr string
	// AnonKey must be sent in the apikey header of every /api request
	AnonKey string
	// Configured is false while the data service is missing or a
	// placeholder; the server then serves only the setup guide
	Configured bool
	SetupGuide *model.SetupGuide
	// SecureCookies marks auth cookies Secure
	SecureCookies bool
	// Clock defaults to time.Now; its location is used for dates
	Clock func() time.Time
}

// Server represents the HTTP server
type Server struct {
	*http.Server
	router   chi.Router
	cfg      Config
	uc       *UseCases
	renderer *frontend.Renderer
	metrics  *Metrics
}

// NewServer creates a new HTTP server
func NewServer(ctx context.Context, cfg Config, uc *UseCases) (*Server, error) {
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if cfg.SetupGuide == nil {
		cfg.SetupGuide = model.NewSetupGuide("")
	}
	if uc == nil {
		uc = &UseCases{}
	}
	if cfg.Configured && (uc.Auth == nil || uc.Ticket == nil || uc.Note == nil || uc.Dashboard == nil || uc.Export == nil) {
		return nil, goerr.New("use cases are required when the data service is configured")
	}

	renderer, err := frontend.NewRenderer()
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create page renderer")
	}

	s := &Server{
		router:   chi.NewRouter(),
		cfg:      cfg,
		uc:       uc,
		renderer: renderer,
		metrics:  NewMetrics(),
	}

	router := s.router
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(LoggingMiddleware(ctx))
	router.Use(s.metrics.Middleware)
	router.Use(middleware.Recoverer)

	router.Get("/health", handleHealth)
	router.Handle("/metrics", s.metrics.Handler())
	router.Get("/api/setup", s.handleSetupGuide)

	if cfg.Configured {
		s.mountAPI(router)
		s.mountPages(router)
	} else {
		ctxlog.From(ctx).Warn("Data service is not configured, serving setup guide only")
		router.HandleFunc("/api/*", handleSetupRequired)
		router.Get("/*", s.handleSetupPage)
	}

	s.Server = &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 15 * time.Second,
	}
	return s, nil
}

func (s *Server) mountAPI(router chi.Router) {
	auth := NewAuthHandler(s.uc.Auth, s.cfg.SecureCookies)
	api := &apiHandler{uc: s.uc, clock: s.cfg.Clock, metrics: s.metrics}
	requireAuth := RequireAuth(s.uc.Auth)

	router.Route("/api", func(r chi.Router) {
		r.Use(RequireAPIKey(s.cfg.AnonKey))

		r.Route("/auth", func(r chi.Router) {
			r.Post("/signup", auth.HandleSignUp)
			r.Post("/signin", auth.HandleSignIn)
			r.Post("/refresh", auth.HandleRefresh)
			r.Get("/events", auth.HandleEvents)
			r.With(requireAuth).Post("/signout", auth.HandleSignOut)
			r.With(requireAuth).Get("/session", auth.HandleSession)
		})

		r.Group(func(r chi.Router) {
			r.Use(requireAuth)

			r.Get("/tickets", api.listTickets)
			r.Post("/tickets", api.saveTicket)
			r.Get("/tickets/{id}", api.getTicket)
			r.Patch("/tickets/{id}", api.updateTicket)
			r.Delete("/tickets/{id}", api.deleteTicket)
			r.Post("/tickets/{id}/toggle", api.toggleTicket)

			r.Get("/notes", api.listNotes)
			r.Post("/notes", api.createNote)
			r.Get("/notes/{id}", api.getNote)
			r.Patch("/notes/{id}", api.updateNote)
			r.Delete("/notes/{id}", api.deleteNote)

			r.Get("/dashboard", api.dashboard)
			r.Get("/export", api.export)
		})
	})
}

// handleHealth handles health check requests
func handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "ticktrack",
	})
}

func (s *Server) handleSetupGuide(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]any{
		"configured": s.cfg.Configured,
		"guide":      s.cfg.SetupGuide,
	})
}

func handleSetupRequired(w http.ResponseWriter, r *http.Request) {
	writeError(w, r, goerr.New("setup_required"), http.StatusServiceUnavailable)
}

func (s *Server) handleSetupPage(w http.ResponseWriter, r *http.Request) {
	s.renderPage(w, r, http.StatusOK, "setup.html", map[string]any{
		"guide": s.cfg.SetupGuide,
	})
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		ctxlog.From(r.Context()).Error("Failed to encode response", "error", err)
	}
}

// writeError writes an error response
func writeError(w http.ResponseWriter, r *http.Request, err error, status int) {
	var message string
	if goErr := goerr.Unwrap(err); goErr != nil {
		message = goErr.Error()
	} else {
		message = err.Error()
	}
	writeJSON(w, r, status, map[string]string{"error": message})
}

// handleError maps domain errors to status codes. Unexpected errors are
// logged and reported without detail.
func handleError(w http.ResponseWriter, r *http.Request, err error) {
	var fields model.ValidationErrors
	if errors.As(err, &fields) {
		writeJSON(w, r, http.StatusBadRequest, map[string]any{
			"error":  "validation failed",
			"fields": fields,
		})
		return
	}

	for _, m := range errorStatuses {
		if errors.Is(err, m.err) {
			writeError(w, r, m.err, m.status)
			return
		}
	}

	apperr.Handle(r.Context(), err)
	writeError(w, r, goerr.New("internal server error"), http.StatusInternalServerError)
}

var errorStatuses = []struct {
	err    error
	status int
}{
	{model.ErrUnauthorized, http.StatusUnauthorized},
	{model.ErrTicketNotFound, http.StatusNotFound},
	{model.ErrNoteNotFound, http.StatusNotFound},
	{model.ErrUserNotFound, http.StatusNotFound},
	{model.ErrSessionNotFound, http.StatusNotFound},
	{model.ErrEmailTaken, http.StatusConflict},
	{model.ErrTicketConflict, http.StatusConflict},
	{model.ErrNotConfigured, http.StatusServiceUnavailable},
}
