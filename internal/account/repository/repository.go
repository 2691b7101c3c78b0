package repository

import (
	"context"
	"time"

	"taskboard/backend/internal/account/domain"
)

// Repository defines persistence for accounts. Every mutation is atomic with
// respect to concurrent attempts on the same account: implementations must
// not expose read-modify-write sequences, so two simultaneous failed logins
// both land on the counter.
type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.Account, error)
	GetByUsername(ctx context.Context, username string) (*domain.Account, error)
	Create(ctx context.Context, a *domain.Account) error

	// IncrementFailedAttempt adds one failure and stamps the attempt time,
	// returning the account as it stands after the increment.
	IncrementFailedAttempt(ctx context.Context, id string, at time.Time) (*domain.Account, error)
	// RestartFailureCount begins a fresh lock cycle: the counter restarts at 1
	// and the elapsed temporary lock is cleared. Returns the updated account.
	RestartFailureCount(ctx context.Context, id string, at time.Time) (*domain.Account, error)
	// ResetFailures zeroes the counter and clears any temporary lock after a
	// successful authentication.
	ResetFailures(ctx context.Context, id string) error
	// ApplyLockout sets the temporary lock deadline and completes a lock cycle.
	ApplyLockout(ctx context.Context, id string, until time.Time) error
	// ApplyPermanentLock marks the account permanently locked.
	ApplyPermanentLock(ctx context.Context, id string) error
	// ClearLock is the administrative unlock: failures, temporary lock,
	// cycle count, and the permanent flag are all reset.
	ClearLock(ctx context.Context, id string) error
	// TouchLastAttempt records an attempt that is rejected without counting
	// (submitted while the account is locked).
	TouchLastAttempt(ctx context.Context, id string, at time.Time) error
}
