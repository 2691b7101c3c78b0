package token

import (
	"context"
	"sync"
	"time"
)

// MemoryLedger is an in-process Ledger guarded by a mutex. Suitable for tests
// and single-instance deployments; the Postgres ledger is the durable option.
type MemoryLedger struct {
	mu          sync.Mutex
	generations map[string]int64
	denylist    map[string]time.Time // jti -> expiry
}

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{
		generations: make(map[string]int64),
		denylist:    make(map[string]time.Time),
	}
}

func (l *MemoryLedger) Generation(ctx context.Context, subject string) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.generations[subject], nil
}

func (l *MemoryLedger) IncrementGeneration(ctx context.Context, subject string) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.generations[subject]++
	return l.generations[subject], nil
}

func (l *MemoryLedger) Denylist(ctx context.Context, jti, subject string, expiresAt time.Time) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.denylist[jti] = expiresAt
	return nil
}

func (l *MemoryLedger) IsDenylisted(ctx context.Context, jti string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.denylist[jti]
	return ok, nil
}

func (l *MemoryLedger) PurgeExpired(ctx context.Context, now time.Time) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	for jti, exp := range l.denylist {
		if now.After(exp) {
			delete(l.denylist, jti)
		}
	}
	return nil
}
