package domain

import (
	"errors"
	"time"
)

// Account is the identity record for a task-board user.
type Account struct {
	ID             string
	Username       string // unique, case-sensitive
	CredentialHash string // bcrypt hash; never transmitted or logged
	Role           Role
	IsActive       bool
	// Lockout bookkeeping. FailedAttempts counts failures within the current
	// lock cycle; LockCycles counts completed temporary locks and only ever
	// grows until an administrative unlock.
	FailedAttempts    int
	LockCycles        int
	LastAttemptTime   *time.Time // nil until the first failed attempt
	LockoutUntil      *time.Time // nil when not temporarily locked
	PermanentlyLocked bool
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

// ValidRole reports whether r is one of the closed role set.
func ValidRole(r Role) bool {
	return r == RoleAdmin || r == RoleUser
}

// Validate validates the account for persistence. Returns an error describing the first validation failure.
func (a *Account) Validate() error {
	if a.Username == "" {
		return errors.New("username is required")
	}
	if a.CredentialHash == "" {
		return errors.New("credential hash is required")
	}
	if a.Role == "" {
		a.Role = RoleUser
	}
	if !ValidRole(a.Role) {
		return errors.New("role must be admin or user")
	}
	return nil
}
