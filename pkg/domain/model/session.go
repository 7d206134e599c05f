package model

import (
	"crypto/rand"
	"encoding/base64"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/ticktrack/pkg/domain/types"
)

// Session represents an authenticated user session
type Session struct {
	ID          types.SessionID `json:"id" firestore:"id" db:"id"`
	Secret      string          `json:"-" firestore:"secret" db:"secret"`
	UserID      types.UserID    `json:"user_id" firestore:"user_id" db:"user_id"`
	Email       string          `json:"email" firestore:"email" db:"email"`
	CreatedAt   time.Time       `json:"created_at" firestore:"created_at" db:"created_at"`
	RefreshedAt time.Time       `json:"refreshed_at" firestore:"refreshed_at" db:"refreshed_at"`
	ExpiresAt   time.Time       `json:"expires_at" firestore:"expires_at" db:"expires_at"`
}

// NewSession creates a new Session with UUID v7 ID and random Secret
func NewSession(user *User, duration time.Duration, now time.Time) (*Session, error) {
	sessionID, err := types.NewSessionID()
	if err != nil {
		return nil, err
	}

	secret, err := generateRandomSecret(24)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to generate session secret")
	}

	return &Session{
		ID:          sessionID,
		Secret:      secret,
		UserID:      user.ID,
		Email:       user.Email,
		CreatedAt:   now,
		RefreshedAt: now,
		ExpiresAt:   now.Add(duration),
	}, nil
}

// IsExpired checks if the session has expired at now
func (s *Session) IsExpired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

// Rotate issues a new secret and extends the expiry
func (s *Session) Rotate(duration time.Duration, now time.Time) error {
	secret, err := generateRandomSecret(24)
	if err != nil {
		return goerr.Wrap(err, "failed to generate session secret")
	}
	s.Secret = secret
	s.RefreshedAt = now
	s.ExpiresAt = now.Add(duration)
	return nil
}

// RefreshToken is the opaque token handed to clients, "<id>.<secret>"
func (s *Session) RefreshToken() string {
	return s.ID.String() + "." + s.Secret
}

// ParseRefreshToken splits a refresh token into session ID and secret
func ParseRefreshToken(token string) (types.SessionID, string, error) {
	id, secret, ok := strings.Cut(token, ".")
	if !ok || id == "" || secret == "" {
		return "", "", goerr.Wrap(ErrUnauthorized, "malformed refresh token")
	}
	return types.SessionID(id), secret, nil
}

// generateRandomSecret generates a random base64-encoded string
func generateRandomSecret(byteLength int) (string, error) {
	bytes := make([]byte, byteLength)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(bytes), nil
}
