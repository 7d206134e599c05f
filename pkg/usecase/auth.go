package usecase

import (
	"context"
	"crypto/subtle"
	"errors"
	"time"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/ticktrack/pkg/domain/interfaces"
	"github.com/secmon-lab/ticktrack/pkg/domain/model"
	"github.com/secmon-lab/ticktrack/pkg/domain/types"
	"golang.org/x/crypto/bcrypt"
)

const (
	DefaultAccessTokenTTL = time.Hour
	DefaultSessionTTL     = 7 * 24 * time.Hour
	DefaultIssuer         = "ticktrack"
)

// AuthConfig holds token and session settings
type AuthConfig struct {
	SigningKey     []byte
	Issuer         string
	AccessTokenTTL time.Duration
	SessionTTL     time.Duration
	// BcryptCost defaults to bcrypt.DefaultCost
	BcryptCost int
}

// Auth implements AuthUseCase with repository-based storage
type Auth struct {
	repo   interfaces.Repository
	bus    interfaces.AuthEventBus
	cfg    AuthConfig
	signer *tokenSigner
	clock  func() time.Time
}

// NewAuth creates a new Auth use case
func NewAuth(repo interfaces.Repository, bus interfaces.AuthEventBus, cfg AuthConfig, opts ...Option) (AuthUseCase, error) {
	return newAuth(repo, bus, cfg, opts...)
}

func newAuth(repo interfaces.Repository, bus interfaces.AuthEventBus, cfg AuthConfig, opts ...Option) (*Auth, error) {
	if len(cfg.SigningKey) == 0 {
		return nil, goerr.New("signing key is required")
	}
	if cfg.Issuer == "" {
		cfg.Issuer = DefaultIssuer
	}
	if cfg.AccessTokenTTL <= 0 {
		cfg.AccessTokenTTL = DefaultAccessTokenTTL
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = DefaultSessionTTL
	}
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = bcrypt.DefaultCost
	}

	o := newOptions(opts)
	return &Auth{
		repo:  repo,
		bus:   bus,
		cfg:   cfg,
		clock: o.clock,
		signer: &tokenSigner{
			key:    cfg.SigningKey,
			issuer: cfg.Issuer,
			clock:  o.clock,
		},
	}, nil
}

// SignUp registers a user and opens a session
func (a *Auth) SignUp(ctx context.Context, creds model.Credentials) (*model.AuthResult, error) {
	if err := creds.Validate(true); err != nil {
		return nil, goerr.Wrap(err, "invalid sign-up form")
	}

	email := model.NormalizeEmail(creds.Email)
	if _, err := a.repo.GetUserByEmail(ctx, email); err == nil {
		return nil, goerr.Wrap(model.ErrEmailTaken, "failed to sign up", goerr.V("email", email))
	} else if !errors.Is(err, model.ErrUserNotFound) {
		return nil, goerr.Wrap(err, "failed to look up user", goerr.V("email", email))
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(creds.Password), a.cfg.BcryptCost)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to hash password")
	}

	user := model.NewUser(email, creds.FullName, string(hash), a.clock())
	if err := a.repo.PutUser(ctx, user); err != nil {
		return nil, goerr.Wrap(err, "failed to save user", goerr.V("email", email))
	}

	ctxlog.From(ctx).Info("User signed up",
		"userID", user.ID,
		"email", user.Email,
	)

	return a.openSession(ctx, user)
}

// SignIn verifies email and password and opens a session
func (a *Auth) SignIn(ctx context.Context, creds model.Credentials) (*model.AuthResult, error) {
	if err := creds.Validate(false); err != nil {
		return nil, goerr.Wrap(err, "invalid sign-in form")
	}

	email := model.NormalizeEmail(creds.Email)
	user, err := a.repo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, model.ErrUserNotFound) {
			return nil, goerr.Wrap(model.ErrUnauthorized, "invalid login credentials", goerr.V("email", email))
		}
		return nil, goerr.Wrap(err, "failed to look up user", goerr.V("email", email))
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(creds.Password)); err != nil {
		return nil, goerr.Wrap(model.ErrUnauthorized, "invalid login credentials", goerr.V("email", email))
	}

	return a.openSession(ctx, user)
}

func (a *Auth) openSession(ctx context.Context, user *model.User) (*model.AuthResult, error) {
	now := a.clock()
	session, err := model.NewSession(user, a.cfg.SessionTTL, now)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create session")
	}
	if err := a.repo.PutSession(ctx, session); err != nil {
		return nil, goerr.Wrap(err, "failed to save session", goerr.V("session_id", session.ID))
	}

	result, err := a.issue(session, user)
	if err != nil {
		return nil, err
	}

	ctxlog.From(ctx).Info("Created new session",
		"sessionID", session.ID,
		"userID", user.ID,
		"expiresAt", session.ExpiresAt,
	)
	a.publish(ctx, types.AuthEventSignedIn, session)

	return result, nil
}

// issue signs an access token that never outlives the session
func (a *Auth) issue(session *model.Session, user *model.User) (*model.AuthResult, error) {
	expiresAt := a.clock().Add(a.cfg.AccessTokenTTL)
	if session.ExpiresAt.Before(expiresAt) {
		expiresAt = session.ExpiresAt
	}

	token, err := a.signer.sign(session, expiresAt)
	if err != nil {
		return nil, err
	}

	return &model.AuthResult{
		AccessToken:  token,
		RefreshToken: session.RefreshToken(),
		TokenType:    "bearer",
		ExpiresAt:    expiresAt,
		User:         user,
		Session:      session,
	}, nil
}

// SignOut deletes a session. Signing out an unknown session is not an
// error.
func (a *Auth) SignOut(ctx context.Context, sessionID types.SessionID) error {
	if sessionID == "" {
		return goerr.New("session ID is required")
	}

	session, err := a.repo.GetSession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, model.ErrSessionNotFound) {
			return nil
		}
		return goerr.Wrap(err, "failed to get session", goerr.V("session_id", sessionID))
	}

	if err := a.repo.DeleteSession(ctx, sessionID); err != nil && !errors.Is(err, model.ErrSessionNotFound) {
		return goerr.Wrap(err, "failed to delete session", goerr.V("session_id", sessionID))
	}

	ctxlog.From(ctx).Info("Deleted session",
		"sessionID", sessionID,
		"userID", session.UserID,
	)
	a.publish(ctx, types.AuthEventSignedOut, session)

	return nil
}

// Refresh rotates the session secret and issues a new access token
func (a *Auth) Refresh(ctx context.Context, refreshToken string) (*model.AuthResult, error) {
	sessionID, secret, err := model.ParseRefreshToken(refreshToken)
	if err != nil {
		return nil, err
	}

	session, err := a.repo.GetSession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, model.ErrSessionNotFound) {
			return nil, goerr.Wrap(model.ErrUnauthorized, "session not found", goerr.V("session_id", sessionID))
		}
		return nil, goerr.Wrap(err, "failed to get session", goerr.V("session_id", sessionID))
	}

	if subtle.ConstantTimeCompare([]byte(session.Secret), []byte(secret)) != 1 {
		return nil, goerr.Wrap(model.ErrUnauthorized, "invalid refresh token", goerr.V("session_id", sessionID))
	}

	now := a.clock()
	if session.IsExpired(now) {
		return nil, goerr.Wrap(model.ErrUnauthorized, "session expired", goerr.V("session_id", sessionID))
	}

	user, err := a.repo.GetUser(ctx, session.UserID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get user", goerr.V("user_id", session.UserID))
	}

	if err := session.Rotate(a.cfg.SessionTTL, now); err != nil {
		return nil, err
	}
	if err := a.repo.PutSession(ctx, session); err != nil {
		return nil, goerr.Wrap(err, "failed to save session", goerr.V("session_id", sessionID))
	}

	result, err := a.issue(session, user)
	if err != nil {
		return nil, err
	}
	a.publish(ctx, types.AuthEventTokenRefreshed, session)

	return result, nil
}

// GetSession resolves an access token to its session. Tokens of deleted
// or expired sessions are rejected even before the token itself expires.
func (a *Auth) GetSession(ctx context.Context, accessToken string) (*model.Session, error) {
	if accessToken == "" {
		return nil, goerr.Wrap(model.ErrUnauthorized, "access token is required")
	}

	claims, err := a.signer.verify(accessToken)
	if err != nil {
		return nil, err
	}

	session, err := a.repo.GetSession(ctx, claims.SessionID)
	if err != nil {
		if errors.Is(err, model.ErrSessionNotFound) {
			return nil, goerr.Wrap(model.ErrUnauthorized, "session not found", goerr.V("session_id", claims.SessionID))
		}
		return nil, goerr.Wrap(err, "failed to get session", goerr.V("session_id", claims.SessionID))
	}

	if session.UserID != claims.UserID {
		return nil, goerr.Wrap(model.ErrUnauthorized, "session does not belong to token subject",
			goerr.V("session_id", claims.SessionID),
			goerr.V("user_id", claims.UserID),
		)
	}
	if session.IsExpired(a.clock()) {
		return nil, goerr.Wrap(model.ErrUnauthorized, "session expired", goerr.V("session_id", claims.SessionID))
	}

	return session, nil
}

// GetUser returns the profile of a user
func (a *Auth) GetUser(ctx context.Context, userID types.UserID) (*model.User, error) {
	user, err := a.repo.GetUser(ctx, userID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get user", goerr.V("user_id", userID))
	}
	return user, nil
}

// Subscribe registers handler for session change notifications
func (a *Auth) Subscribe(ctx context.Context, handler func(*model.AuthEvent)) (func(), error) {
	unsubscribe, err := a.bus.Subscribe(ctx, handler)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to subscribe to auth events")
	}
	return unsubscribe, nil
}

// SweepExpiredSessions deletes sessions past their expiry
func (a *Auth) SweepExpiredSessions(ctx context.Context) (int, error) {
	n, err := a.repo.DeleteExpiredSessions(ctx, a.clock())
	if err != nil {
		return 0, goerr.Wrap(err, "failed to delete expired sessions")
	}
	if n > 0 {
		ctxlog.From(ctx).Info("Swept expired sessions", "count", n)
	}
	return n, nil
}

// publish failures are logged only; the auth operation already succeeded
func (a *Auth) publish(ctx context.Context, typ types.AuthEventType, session *model.Session) {
	event := &model.AuthEvent{
		Type:      typ,
		SessionID: session.ID,
		UserID:    session.UserID,
		At:        a.clock(),
		ExpiresAt: session.ExpiresAt,
	}
	if err := a.bus.Publish(ctx, event); err != nil {
		ctxlog.From(ctx).Warn("Failed to publish auth event",
			"error", err,
			"type", typ,
			"sessionID", session.ID,
		)
	}
}
