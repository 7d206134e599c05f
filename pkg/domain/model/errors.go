package model

import (
	"sort"
	"strings"

	"github.com/m-mizutani/goerr/v2"
)

// Sentinel errors for domain operations
var (
	ErrTicketNotFound  = goerr.New("ticket not found")
	ErrNoteNotFound    = goerr.New("note not found")
	ErrUserNotFound    = goerr.New("user not found")
	ErrSessionNotFound = goerr.New("session not found")
	ErrTicketConflict  = goerr.New("ticket already exists for this work date")
	ErrEmailTaken      = goerr.New("email is already registered")
	ErrUnauthorized    = goerr.New("unauthorized")
	ErrNotConfigured   = goerr.New("backend is not configured")
)

// ValidationErrors maps an input field name to a human readable message.
// Retrieve it from a wrapped error with errors.As.
type ValidationErrors map[string]string

// Error implements error
func (v ValidationErrors) Error() string {
	fields := make([]string, 0, len(v))
	for f := range v {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	msgs := make([]string, 0, len(fields))
	for _, f := range fields {
		msgs = append(msgs, f+": "+v[f])
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

// Add records a message for field, keeping the first one
func (v ValidationErrors) Add(field, msg string) {
	if _, ok := v[field]; !ok {
		v[field] = msg
	}
}

// OrNil returns nil when no field failed
func (v ValidationErrors) OrNil() error {
	if len(v) == 0 {
		return nil
	}
	return v
}
