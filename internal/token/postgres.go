package token

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// PostgresLedger persists revocation state in two tables: session_generations
// (subject -> current generation) and revoked_tokens (jti denylist). Both are
// mutated with single statements so concurrent revocations on one subject
// serialize at the row.
type PostgresLedger struct {
	db *sql.DB
}

func NewPostgresLedger(db *sql.DB) *PostgresLedger {
	return &PostgresLedger{db: db}
}

func (l *PostgresLedger) Generation(ctx context.Context, subject string) (int64, error) {
	var gen int64
	err := l.db.QueryRowContext(ctx,
		`SELECT generation FROM session_generations WHERE subject = $1`, subject).Scan(&gen)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, err
	}
	return gen, nil
}

// IncrementGeneration bumps the subject's generation with an upsert so the
// first logout-all for a subject works without a prior row.
func (l *PostgresLedger) IncrementGeneration(ctx context.Context, subject string) (int64, error) {
	var gen int64
	err := l.db.QueryRowContext(ctx, `
INSERT INTO session_generations (subject, generation)
VALUES ($1, 1)
ON CONFLICT (subject) DO UPDATE SET generation = session_generations.generation + 1
RETURNING generation`, subject).Scan(&gen)
	if err != nil {
		return 0, err
	}
	return gen, nil
}

func (l *PostgresLedger) Denylist(ctx context.Context, jti, subject string, expiresAt time.Time) error {
	_, err := l.db.ExecContext(ctx, `
INSERT INTO revoked_tokens (jti, subject, expires_at)
VALUES ($1, $2, $3)
ON CONFLICT (jti) DO NOTHING`, jti, subject, expiresAt)
	return err
}

func (l *PostgresLedger) IsDenylisted(ctx context.Context, jti string) (bool, error) {
	var one int
	err := l.db.QueryRowContext(ctx,
		`SELECT 1 FROM revoked_tokens WHERE jti = $1`, jti).Scan(&one)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (l *PostgresLedger) PurgeExpired(ctx context.Context, now time.Time) error {
	_, err := l.db.ExecContext(ctx,
		`DELETE FROM revoked_tokens WHERE expires_at < $1`, now)
	return err
}
