package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/ticktrack/pkg/domain/model"
	"github.com/secmon-lab/ticktrack/pkg/usecase"
)

const (
	eventsWriteWait  = 10 * time.Second
	eventsPongWait   = 60 * time.Second
	eventsPingPeriod = (eventsPongWait * 9) / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// The apikey check has already run
		return true
	},
}

// AuthHandler handles authentication endpoints
type AuthHandler struct {
	authUC usecase.AuthUseCase
	secure bool
}

// NewAuthHandler creates a new auth handler. secure marks cookies Secure.
func NewAuthHandler(authUC usecase.AuthUseCase, secure bool) *AuthHandler {
	return &AuthHandler{
		authUC: authUC,
		secure: secure,
	}
}

// HandleSignUp creates an account and signs it in
func (h *AuthHandler) HandleSignUp(w http.ResponseWriter, r *http.Request) {
	var creds model.Credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		writeError(w, r, goerr.Wrap(err, "invalid request body"), http.StatusBadRequest)
		return
	}

	result, err := h.authUC.SignUp(r.Context(), creds)
	if err != nil {
		handleError(w, r, err)
		return
	}

	ctxlog.From(r.Context()).Info("User signed up", "userID", result.User.ID)
	setAuthCookies(w, result, h.secure)
	writeJSON(w, r, http.StatusCreated, result)
}

// HandleSignIn exchanges credentials for tokens
func (h *AuthHandler) HandleSignIn(w http.ResponseWriter, r *http.Request) {
	var creds model.Credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		writeError(w, r, goerr.Wrap(err, "invalid request body"), http.StatusBadRequest)
		return
	}

	result, err := h.authUC.SignIn(r.Context(), creds)
	if err != nil {
		handleError(w, r, err)
		return
	}

	setAuthCookies(w, result, h.secure)
	writeJSON(w, r, http.StatusOK, result)
}

// HandleRefresh rotates a refresh token taken from the body or the
// refresh_token cookie
func (h *AuthHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RefreshToken string `json:"refresh_token"`
	}
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, r, goerr.Wrap(err, "invalid request body"), http.StatusBadRequest)
			return
		}
	}
	if req.RefreshToken == "" {
		if c, err := r.Cookie(refreshTokenCookie); err == nil {
			req.RefreshToken = c.Value
		}
	}
	if req.RefreshToken == "" {
		writeError(w, r, goerr.New("refresh token is required"), http.StatusBadRequest)
		return
	}

	result, err := h.authUC.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		clearAuthCookies(w)
		handleError(w, r, err)
		return
	}

	setAuthCookies(w, result, h.secure)
	writeJSON(w, r, http.StatusOK, result)
}

// HandleSignOut ends the caller's session
func (h *AuthHandler) HandleSignOut(w http.ResponseWriter, r *http.Request) {
	authCtx := authContext(r)
	if err := h.authUC.SignOut(r.Context(), authCtx.SessionID); err != nil {
		handleError(w, r, err)
		return
	}

	clearAuthCookies(w)
	writeJSON(w, r, http.StatusOK, map[string]string{
		"message": "signed out successfully",
	})
}

// HandleSession returns the caller's session and user
func (h *AuthHandler) HandleSession(w http.ResponseWriter, r *http.Request) {
	authCtx := authContext(r)

	user, err := h.authUC.GetUser(r.Context(), authCtx.UserID)
	if err != nil {
		handleError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, map[string]any{
		"session": authCtx,
		"user":    user,
	})
}

// HandleEvents upgrades to a websocket and streams the caller's session
// gate: one message for the initial session, then one per sign-out or
// refresh of that session.
func (h *AuthHandler) HandleEvents(w http.ResponseWriter, r *http.Request) {
	logger := ctxlog.From(r.Context())
	token := accessToken(r)
	if token == "" {
		token = r.URL.Query().Get("access_token")
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Debug("Failed to upgrade connection", "error", err)
		return
	}
	defer conn.Close()

	updates := make(chan model.GateUpdate, 16)
	gate := usecase.NewSessionGate(h.authUC, token, func(u model.GateUpdate) {
		select {
		case updates <- u:
		default:
			logger.Warn("Dropped session gate update", "state", u.State, "event", u.Event)
		}
	})
	defer gate.Close()

	if err := gate.Start(r.Context()); err != nil {
		logger.Error("Failed to start session gate", "error", err)
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "session gate unavailable"),
			time.Now().Add(eventsWriteWait))
		return
	}

	// The client sends nothing; reading only serves pongs and close frames
	done := make(chan struct{})
	go func() {
		defer close(done)
		conn.SetReadLimit(512)
		_ = conn.SetReadDeadline(time.Now().Add(eventsPongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(eventsPongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					logger.Debug("Session events connection closed", "error", err)
				}
				return
			}
		}
	}()

	ticker := time.NewTicker(eventsPingPeriod)
	defer ticker.Stop()

	for {
		select {
		case u := <-updates:
			_ = conn.SetWriteDeadline(time.Now().Add(eventsWriteWait))
			if err := conn.WriteJSON(u); err != nil {
				logger.Debug("Failed to write session update", "error", err)
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(eventsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			return
		case <-r.Context().Done():
			return
		}
	}
}

func setAuthCookies(w http.ResponseWriter, result *model.AuthResult, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     accessTokenCookie,
		Value:    result.AccessToken,
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
		Expires:  result.ExpiresAt,
	})
	http.SetCookie(w, &http.Cookie{
		Name:     refreshTokenCookie,
		Value:    result.RefreshToken,
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
		Expires:  result.Session.ExpiresAt,
	})
}

func clearAuthCookies(w http.ResponseWriter) {
	for _, name := range []string{accessTokenCookie, refreshTokenCookie} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			HttpOnly: true,
			MaxAge:   -1,
		})
	}
}
