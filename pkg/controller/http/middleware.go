package http

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/ticktrack/pkg/domain/model"
	"github.com/secmon-lab/ticktrack/pkg/usecase"
)

const (
	apiKeyHeader       = "apikey"
	accessTokenCookie  = "access_token"
	refreshTokenCookie = "refresh_token"
)

// RequireAPIKey rejects requests whose apikey header (or query parameter,
// for websocket clients that cannot set headers) differs from key
func RequireAPIKey(key string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := r.Header.Get(apiKeyHeader)
			if got == "" {
				got = r.URL.Query().Get(apiKeyHeader)
			}
			if got == "" || subtle.ConstantTimeCompare([]byte(got), []byte(key)) != 1 {
				writeError(w, r, goerr.New("invalid API key"), http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAuth resolves the access token of the request to a session and
// stores the caller in the request context
func RequireAuth(authUC usecase.AuthUseCase) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := accessToken(r)
			if token == "" {
				writeError(w, r, model.ErrUnauthorized, http.StatusUnauthorized)
				return
			}

			session, err := authUC.GetSession(r.Context(), token)
			if err != nil {
				ctxlog.From(r.Context()).Debug("Session validation failed", "error", err)
				handleError(w, r, err)
				return
			}

			ctxlog.From(r.Context()).Debug("Authenticated request",
				"userID", session.UserID,
				"sessionID", session.ID,
			)
			ctx := model.WithAuthContext(r.Context(), model.NewAuthContext(session))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// accessToken reads a bearer token, falling back to the access_token cookie
func accessToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		scheme, token, ok := strings.Cut(h, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
	}
	if c, err := r.Cookie(accessTokenCookie); err == nil {
		return c.Value
	}
	return ""
}

// authContext returns the caller stored by RequireAuth
func authContext(r *http.Request) *model.AuthContext {
	authCtx, ok := model.GetAuthContext(r.Context())
	if !ok {
		// routes using this are always behind RequireAuth
		panic("auth context is missing")
	}
	return authCtx
}

// LoggingMiddleware creates a chi-compatible logging middleware
func LoggingMiddleware(ctx context.Context) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Embed logger from the initial context into request context
			r = r.WithContext(ctxlog.With(r.Context(), ctxlog.From(ctx)))

			logger := ctxlog.From(r.Context())
			start := time.Now()

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			logger.Info("HTTP request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"remote", r.RemoteAddr,
				"requestID", middleware.GetReqID(r.Context()),
			)
		})
	}
}
