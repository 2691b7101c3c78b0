package token

import (
	"context"
	"time"
)

// Ledger is the process-wide revocation state: the current session generation
// per subject, plus a denylist of individually revoked token ids that have
// not yet passed their nominal expiry. Implementations must make every
// mutation atomic per subject; operations on different subjects never block
// one another.
type Ledger interface {
	// Generation returns the current session generation for the subject.
	// Subjects with no recorded generation are at 0.
	Generation(ctx context.Context, subject string) (int64, error)
	// IncrementGeneration atomically bumps the subject's generation and
	// returns the new value. Every token issued under an older generation
	// becomes invalid at once.
	IncrementGeneration(ctx context.Context, subject string) (int64, error)
	// Denylist records a single revoked token id until its expiry.
	Denylist(ctx context.Context, jti, subject string, expiresAt time.Time) error
	// IsDenylisted reports whether the token id has been revoked.
	IsDenylisted(ctx context.Context, jti string) (bool, error)
	// PurgeExpired drops denylist entries past their expiry. Purely a
	// memory-management optimization; expiry itself is enforced by the
	// token signature check.
	PurgeExpired(ctx context.Context, now time.Time) error
}
