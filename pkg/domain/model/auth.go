package model

import (
	"regexp"
	"strings"
	"time"

	"github.com/secmon-lab/ticktrack/pkg/domain/types"
)

// MinPasswordLength is the shortest password accepted at sign-in/sign-up
const MinPasswordLength = 6

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Credentials is the sign-in / sign-up form payload
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
}

// Validate checks the form. Full name is required only on sign-up.
func (c Credentials) Validate(signUp bool) error {
	errs := ValidationErrors{}

	email := strings.TrimSpace(c.Email)
	switch {
	case email == "":
		errs.Add("email", "Email is required")
	case !IsValidEmail(email):
		errs.Add("email", "Please enter a valid email")
	}

	switch {
	case c.Password == "":
		errs.Add("password", "Password is required")
	case len(c.Password) < MinPasswordLength:
		errs.Add("password", "Password must be at least 6 characters")
	}

	if signUp && strings.TrimSpace(c.FullName) == "" {
		errs.Add("full_name", "Full name is required")
	}

	return errs.OrNil()
}

// IsValidEmail reports whether email looks like an address
func IsValidEmail(email string) bool {
	return emailPattern.MatchString(email)
}

// PasswordStrength scores a password 0..100 in steps of 25: length >= 8,
// a lowercase letter, an uppercase letter and a digit each add 25.
func PasswordStrength(password string) int {
	strength := 0
	if len(password) >= 8 {
		strength += 25
	}
	if strings.IndexFunc(password, func(r rune) bool { return r >= 'a' && r <= 'z' }) >= 0 {
		strength += 25
	}
	if strings.IndexFunc(password, func(r rune) bool { return r >= 'A' && r <= 'Z' }) >= 0 {
		strength += 25
	}
	if strings.IndexFunc(password, func(r rune) bool { return r >= '0' && r <= '9' }) >= 0 {
		strength += 25
	}
	return strength
}

// PasswordStrengthLabel names a PasswordStrength score
func PasswordStrengthLabel(strength int) string {
	switch {
	case strength >= 75:
		return "Strong"
	case strength >= 50:
		return "Good"
	case strength >= 25:
		return "Fair"
	default:
		return "Weak"
	}
}

// AuthResult is returned by sign-in, sign-up and refresh
type AuthResult struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	TokenType    string    `json:"token_type"`
	ExpiresAt    time.Time `json:"expires_at"`
	User         *User     `json:"user"`
	Session      *Session  `json:"session"`
}

// AuthEvent is a session change notification
type AuthEvent struct {
	Type      types.AuthEventType `json:"type"`
	SessionID types.SessionID     `json:"session_id"`
	UserID    types.UserID        `json:"user_id"`
	At        time.Time           `json:"at"`
	// ExpiresAt is the session expiry after the event
	ExpiresAt time.Time           `json:"expires_at"`
}

// GateState is the state of a session gate
type GateState string

const (
	GateStateLoading         GateState = "loading"
	GateStateAuthenticated   GateState = "authenticated"
	GateStateUnauthenticated GateState = "unauthenticated"
)

// GateUpdate is emitted by a session gate on every state transition
type GateUpdate struct {
	State   GateState           `json:"state"`
	Event   types.AuthEventType `json:"event,omitempty"`
	Email   string              `json:"email,omitempty"`
	Session *Session            `json:"-"`
}
