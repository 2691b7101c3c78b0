// Package audit records authentication events. Logging is best-effort by
// design: a failed audit write is logged operationally and never fails the
// request that produced it.
package audit

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"taskboard/backend/internal/audit/domain"
	auditrepo "taskboard/backend/internal/audit/repository"
)

// IPExtractor returns the client IP for the request context.
type IPExtractor func(context.Context) string

// Logger writes a single audit event per call. The zero-value disabled form
// (nil repo) no-ops, so callers never need nil checks.
type Logger struct {
	repo        auditrepo.Repository
	ipExtractor IPExtractor
}

// NewLogger returns a Logger that persists to repo and uses ipExtractor for
// client IP. ipExtractor may be nil; then IP is recorded as "unknown".
func NewLogger(repo auditrepo.Repository, ipExtractor IPExtractor) *Logger {
	return &Logger{repo: repo, ipExtractor: ipExtractor}
}

// LogEvent writes one audit log entry. Best-effort: errors are logged and not returned.
func (l *Logger) LogEvent(ctx context.Context, accountID, action, metadata string) {
	if l == nil || l.repo == nil {
		return
	}
	ip := "unknown"
	if l.ipExtractor != nil {
		ip = l.ipExtractor(ctx)
	}
	entry := &domain.AuditLog{
		ID:        uuid.New().String(),
		AccountID: accountID,
		Action:    action,
		IP:        ip,
		Metadata:  metadata,
		CreatedAt: time.Now().UTC(),
	}
	if err := l.repo.Create(ctx, entry); err != nil {
		log.Printf("audit: failed to log event %s: %v", action, err)
	}
}
