package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"taskboard/backend/internal/account/domain"
)

const accountColumns = `id, username, credential_hash, role, is_active, failed_attempts, lock_cycles, last_attempt_time, lockout_until, is_permanently_locked, created_at, updated_at`

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns an account repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// GetByID returns the account for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id)
	return scanAccount(row)
}

// GetByUsername returns the account for username (case-sensitive), or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByUsername(ctx context.Context, username string) (*domain.Account, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM accounts WHERE username = $1`, username)
	return scanAccount(row)
}

// Create persists the account. The account must have ID set.
func (r *PostgresRepository) Create(ctx context.Context, a *domain.Account) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO accounts (id, username, credential_hash, role, is_active, failed_attempts, lock_cycles, last_attempt_time, lockout_until, is_permanently_locked, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		a.ID, a.Username, a.CredentialHash, string(a.Role), a.IsActive,
		a.FailedAttempts, a.LockCycles, timeToNullTime(a.LastAttemptTime),
		timeToNullTime(a.LockoutUntil), a.PermanentlyLocked, a.CreatedAt, a.UpdatedAt)
	return err
}

// IncrementFailedAttempt adds one failure in a single UPDATE so concurrent
// attempts never under-count, and returns the post-increment account.
func (r *PostgresRepository) IncrementFailedAttempt(ctx context.Context, id string, at time.Time) (*domain.Account, error) {
	row := r.db.QueryRowContext(ctx, `
UPDATE accounts
SET failed_attempts = failed_attempts + 1, last_attempt_time = $2, updated_at = $2
WHERE id = $1
RETURNING `+accountColumns, id, at)
	return scanAccount(row)
}

// RestartFailureCount starts a new lock cycle with the counter at 1 and the
// expired temporary lock cleared. Returns the updated account.
func (r *PostgresRepository) RestartFailureCount(ctx context.Context, id string, at time.Time) (*domain.Account, error) {
	row := r.db.QueryRowContext(ctx, `
UPDATE accounts
SET failed_attempts = 1, lockout_until = NULL, last_attempt_time = $2, updated_at = $2
WHERE id = $1
RETURNING `+accountColumns, id, at)
	return scanAccount(row)
}

// ResetFailures zeroes the failure counter and clears the temporary lock.
func (r *PostgresRepository) ResetFailures(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `
UPDATE accounts SET failed_attempts = 0, lockout_until = NULL, updated_at = NOW() WHERE id = $1`, id)
	return err
}

// ApplyLockout sets the temporary lock deadline and counts the lock cycle.
func (r *PostgresRepository) ApplyLockout(ctx context.Context, id string, until time.Time) error {
	_, err := r.db.ExecContext(ctx, `
UPDATE accounts SET lockout_until = $2, lock_cycles = lock_cycles + 1, updated_at = NOW() WHERE id = $1`, id, until)
	return err
}

// ApplyPermanentLock marks the account permanently locked and counts the final cycle.
func (r *PostgresRepository) ApplyPermanentLock(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `
UPDATE accounts SET is_permanently_locked = TRUE, lock_cycles = lock_cycles + 1, updated_at = NOW() WHERE id = $1`, id)
	return err
}

// ClearLock resets all lockout state. Administrative unlock only.
func (r *PostgresRepository) ClearLock(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `
UPDATE accounts
SET failed_attempts = 0, lock_cycles = 0, lockout_until = NULL, is_permanently_locked = FALSE, updated_at = NOW()
WHERE id = $1`, id)
	return err
}

// TouchLastAttempt stamps the attempt time without touching the counter.
func (r *PostgresRepository) TouchLastAttempt(ctx context.Context, id string, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `
UPDATE accounts SET last_attempt_time = $2, updated_at = $2 WHERE id = $1`, id, at)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (*domain.Account, error) {
	var a domain.Account
	var role string
	var lastAttempt, lockoutUntil sql.NullTime
	err := row.Scan(&a.ID, &a.Username, &a.CredentialHash, &role, &a.IsActive,
		&a.FailedAttempts, &a.LockCycles, &lastAttempt, &lockoutUntil,
		&a.PermanentlyLocked, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	a.Role = domain.Role(role)
	a.LastAttemptTime = nullTimeToPtr(lastAttempt)
	a.LockoutUntil = nullTimeToPtr(lockoutUntil)
	return &a, nil
}

func timeToNullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func nullTimeToPtr(n sql.NullTime) *time.Time {
	if !n.Valid {
		return nil
	}
	return &n.Time
}
