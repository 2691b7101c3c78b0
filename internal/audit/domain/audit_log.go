package domain

import "time"

// AuditLog is one recorded authentication event.
type AuditLog struct {
	ID        string
	AccountID string // empty for events with no resolved account (e.g. unknown username)
	Action    string
	IP        string
	Metadata  string
	CreatedAt time.Time
}

// Audit actions recorded by the auth flows.
const (
	ActionRegister        = "auth.register"
	ActionLoginSuccess    = "auth.login_success"
	ActionLoginFailure    = "auth.login_failure"
	ActionLockout         = "auth.account_locked"
	ActionPermanentLock   = "auth.account_permanently_locked"
	ActionLockedRejection = "auth.locked_attempt_rejected"
	ActionLogout          = "auth.logout"
	ActionLogoutAll       = "auth.logout_all"
	ActionUnlock          = "auth.account_unlocked"
)
