package model

import (
	"strings"
	"time"

	"github.com/secmon-lab/ticktrack/pkg/domain/types"
)

// User is an account that owns tickets and notes
type User struct {
	ID           types.UserID `json:"id" firestore:"id" db:"id"`
	Email        string       `json:"email" firestore:"email" db:"email"`
	FullName     string       `json:"full_name" firestore:"full_name" db:"full_name"`
	PasswordHash string       `json:"-" firestore:"password_hash" db:"password_hash"`
	CreatedAt    time.Time    `json:"created_at" firestore:"created_at" db:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at" firestore:"updated_at" db:"updated_at"`
}

// NewUser creates a new User instance
func NewUser(email, fullName, passwordHash string, now time.Time) *User {
	return &User{
		ID:           types.NewUserID(),
		Email:        NormalizeEmail(email),
		FullName:     strings.TrimSpace(fullName),
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// NormalizeEmail lowercases and trims an address so lookups are stable
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
