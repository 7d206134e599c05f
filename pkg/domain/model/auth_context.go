package model

import (
	"context"

	"github.com/secmon-lab/ticktrack/pkg/domain/types"
)

// contextKey is a custom type for context keys to avoid collisions
type contextKey string

const (
	authContextKey contextKey = "authContext"
)

// AuthContext contains the identity of the authenticated caller
type AuthContext struct {
	UserID    types.UserID    `json:"user_id,omitempty"`
	SessionID types.SessionID `json:"session_id,omitempty"`
	Email     string          `json:"email,omitempty"`
}

// NewAuthContext creates an AuthContext from a session
func NewAuthContext(s *Session) *AuthContext {
	return &AuthContext{
		UserID:    s.UserID,
		SessionID: s.ID,
		Email:     s.Email,
	}
}

// WithAuthContext adds AuthContext to the context
func WithAuthContext(ctx context.Context, authCtx *AuthContext) context.Context {
	if authCtx == nil {
		return ctx
	}
	return context.WithValue(ctx, authContextKey, authCtx)
}

// GetAuthContext retrieves AuthContext from the context
func GetAuthContext(ctx context.Context) (*AuthContext, bool) {
	authCtx, ok := ctx.Value(authContextKey).(*AuthContext)
	return authCtx, ok && authCtx != nil
}

// Clone creates a copy of the AuthContext
func (a *AuthContext) Clone() *AuthContext {
	if a == nil {
		return nil
	}
	c := *a
	return &c
}
