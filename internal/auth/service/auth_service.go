package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	accountdomain "taskboard/backend/internal/account/domain"
	auditdomain "taskboard/backend/internal/audit/domain"
	"taskboard/backend/internal/lockout"
	"taskboard/backend/internal/security"
	"taskboard/backend/internal/token"
)

// Sentinel errors for the auth service; the handler maps them to HTTP codes.
// Unknown username, wrong password, and inactive account all collapse into
// ErrInvalidCredentials so callers cannot enumerate usernames.
var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrUsernameTaken      = errors.New("username already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrPermanentlyLocked  = errors.New("account is locked; contact an administrator")
	ErrAccountNotFound    = errors.New("account not found")
)

// LockedError is the one intentionally visible lockout failure: it carries
// the moment the temporary lock lifts.
type LockedError struct {
	Until time.Time
}

func (e *LockedError) Error() string {
	return fmt.Sprintf("account locked until %s", e.Until.UTC().Format(time.RFC3339))
}

// dummyHash burns a bcrypt comparison for unknown usernames so the miss is
// not cheaper than a wrong password.
const dummyHash = "$2a$12$R9h/cIPz0gi.URNNX3kh2OPST9/PgBkqquzi.Ss7KIUgO2t0jWMUW"

// AccountRepo is the account repository surface needed by the auth service.
type AccountRepo interface {
	GetByID(ctx context.Context, id string) (*accountdomain.Account, error)
	GetByUsername(ctx context.Context, username string) (*accountdomain.Account, error)
	Create(ctx context.Context, a *accountdomain.Account) error
	IncrementFailedAttempt(ctx context.Context, id string, at time.Time) (*accountdomain.Account, error)
	RestartFailureCount(ctx context.Context, id string, at time.Time) (*accountdomain.Account, error)
	ResetFailures(ctx context.Context, id string) error
	ApplyLockout(ctx context.Context, id string, until time.Time) error
	ApplyPermanentLock(ctx context.Context, id string) error
	ClearLock(ctx context.Context, id string) error
	TouchLastAttempt(ctx context.Context, id string, at time.Time) error
}

// TokenService issues and revokes session tokens.
type TokenService interface {
	Issue(ctx context.Context, a *accountdomain.Account) (string, *token.Identity, error)
	Revoke(ctx context.Context, id *token.Identity) error
	RevokeAll(ctx context.Context, subject string) error
}

// AuditLogger records authentication events; best-effort, never fails the caller.
type AuditLogger interface {
	LogEvent(ctx context.Context, accountID, action, metadata string)
}

// LoginResult is the successful outcome of Login.
type LoginResult struct {
	Token     string
	Username  string
	Role      accountdomain.Role
	ExpiresAt time.Time
}

// AuthService implements registration, login with lockout, logout,
// logout-all, and administrative unlock.
type AuthService struct {
	accounts AccountRepo
	tokens   TokenService
	hasher   *security.Hasher
	policy   lockout.Policy
	audit    AuditLogger
	now      func() time.Time
}

// NewAuthService returns an AuthService with the given dependencies.
// audit may be nil to disable audit logging.
func NewAuthService(accounts AccountRepo, tokens TokenService, hasher *security.Hasher, policy lockout.Policy, audit AuditLogger) *AuthService {
	return &AuthService{
		accounts: accounts,
		tokens:   tokens,
		hasher:   hasher,
		policy:   policy,
		audit:    audit,
		now:      time.Now,
	}
}

// Register creates an active account with role user.
func (s *AuthService) Register(ctx context.Context, username, password string) (*accountdomain.Account, error) {
	username = strings.TrimSpace(username)
	if err := validateUsername(username); err != nil {
		return nil, err
	}
	if err := validatePassword(password); err != nil {
		return nil, err
	}
	existing, err := s.accounts.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrUsernameTaken
	}
	hashed, err := s.hasher.Hash([]byte(password))
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	acct := &accountdomain.Account{
		ID:             uuid.New().String(),
		Username:       username,
		CredentialHash: hashed,
		Role:           accountdomain.RoleUser,
		IsActive:       true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := acct.Validate(); err != nil {
		return nil, err
	}
	if err := s.accounts.Create(ctx, acct); err != nil {
		return nil, err
	}
	s.logEvent(ctx, acct.ID, auditdomain.ActionRegister, fmt.Sprintf(`{"username":%q}`, username))
	return acct, nil
}

// Login authenticates username/password, running the attempt through the
// lockout policy. The policy decides; the account repository applies the
// resulting mutation atomically.
func (s *AuthService) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, ErrInvalidCredentials
	}
	acct, err := s.accounts.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	if acct == nil {
		// Keep the miss as expensive as a wrong password.
		_ = s.hasher.Compare(dummyHash, []byte(password))
		s.logEvent(ctx, "", auditdomain.ActionLoginFailure, fmt.Sprintf(`{"username":%q}`, username))
		return nil, ErrInvalidCredentials
	}

	gate := s.policy.Evaluate(snapshot(acct), now)
	switch gate.Outcome {
	case lockout.DenyPermanent:
		_ = s.accounts.TouchLastAttempt(ctx, acct.ID, now)
		s.logEvent(ctx, acct.ID, auditdomain.ActionLockedRejection, `{"state":"permanently_locked"}`)
		return nil, ErrPermanentlyLocked
	case lockout.DenyLocked:
		// Rejected without counting; only the attempt time moves.
		_ = s.accounts.TouchLastAttempt(ctx, acct.ID, now)
		s.logEvent(ctx, acct.ID, auditdomain.ActionLockedRejection, `{"state":"temporarily_locked"}`)
		return nil, &LockedError{Until: *gate.LockedUntil}
	}

	if !acct.IsActive {
		_ = s.accounts.TouchLastAttempt(ctx, acct.ID, now)
		s.logEvent(ctx, acct.ID, auditdomain.ActionLoginFailure, `{"reason":"inactive"}`)
		return nil, ErrInvalidCredentials
	}

	if s.hasher.Compare(acct.CredentialHash, []byte(password)) != nil {
		return nil, s.recordFailure(ctx, acct, gate.RestartCycle, now)
	}

	if err := s.accounts.ResetFailures(ctx, acct.ID); err != nil {
		return nil, err
	}
	tokenString, id, err := s.tokens.Issue(ctx, acct)
	if err != nil {
		return nil, err
	}
	s.logEvent(ctx, acct.ID, auditdomain.ActionLoginSuccess, fmt.Sprintf(`{"jti":%q}`, id.JTI))
	return &LoginResult{
		Token:     tokenString,
		Username:  acct.Username,
		Role:      acct.Role,
		ExpiresAt: id.ExpiresAt,
	}, nil
}

// recordFailure counts a failed attempt and applies whatever lock the policy
// decides based on the post-increment counters, so concurrent failures cannot
// under-count.
func (s *AuthService) recordFailure(ctx context.Context, acct *accountdomain.Account, restartCycle bool, now time.Time) error {
	var updated *accountdomain.Account
	var err error
	if restartCycle {
		updated, err = s.accounts.RestartFailureCount(ctx, acct.ID, now)
	} else {
		updated, err = s.accounts.IncrementFailedAttempt(ctx, acct.ID, now)
	}
	if err != nil {
		return err
	}
	followup, until := s.policy.AfterFailure(updated.FailedAttempts, updated.LockCycles, now)
	switch followup {
	case lockout.LockTemporarily:
		if err := s.accounts.ApplyLockout(ctx, acct.ID, until); err != nil {
			return err
		}
		s.logEvent(ctx, acct.ID, auditdomain.ActionLockout, fmt.Sprintf(`{"until":%q}`, until.Format(time.RFC3339)))
		return &LockedError{Until: until}
	case lockout.LockPermanently:
		if err := s.accounts.ApplyPermanentLock(ctx, acct.ID); err != nil {
			return err
		}
		s.logEvent(ctx, acct.ID, auditdomain.ActionPermanentLock, "")
		return ErrPermanentlyLocked
	}
	s.logEvent(ctx, acct.ID, auditdomain.ActionLoginFailure, fmt.Sprintf(`{"failed_attempts":%d}`, updated.FailedAttempts))
	return ErrInvalidCredentials
}

// Logout revokes the single session identified by the validated token.
func (s *AuthService) Logout(ctx context.Context, id *token.Identity) error {
	if err := s.tokens.Revoke(ctx, id); err != nil {
		return err
	}
	s.logEvent(ctx, id.Subject, auditdomain.ActionLogout, fmt.Sprintf(`{"jti":%q}`, id.JTI))
	return nil
}

// LogoutAll revokes every session of the caller by bumping its generation.
func (s *AuthService) LogoutAll(ctx context.Context, id *token.Identity) error {
	if err := s.tokens.RevokeAll(ctx, id.Subject); err != nil {
		return err
	}
	s.logEvent(ctx, id.Subject, auditdomain.ActionLogoutAll, "")
	return nil
}

// Unlock is the administrative unlock: it clears the failure counters, the
// temporary lock, and the permanent flag. The caller's admin role has already
// been enforced by the filter chain.
func (s *AuthService) Unlock(ctx context.Context, username string) error {
	acct, err := s.accounts.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		return err
	}
	if acct == nil {
		return ErrAccountNotFound
	}
	if err := s.accounts.ClearLock(ctx, acct.ID); err != nil {
		return err
	}
	s.logEvent(ctx, acct.ID, auditdomain.ActionUnlock, "")
	return nil
}

func (s *AuthService) logEvent(ctx context.Context, accountID, action, metadata string) {
	if s.audit != nil {
		s.audit.LogEvent(ctx, accountID, action, metadata)
	}
}

func snapshot(a *accountdomain.Account) lockout.Snapshot {
	return lockout.Snapshot{
		FailedAttempts:    a.FailedAttempts,
		LockCycles:        a.LockCycles,
		LockoutUntil:      a.LockoutUntil,
		PermanentlyLocked: a.PermanentlyLocked,
	}
}

func validateUsername(username string) error {
	if len(username) < 3 {
		return fmt.Errorf("%w: username must be at least 3 characters", ErrInvalidInput)
	}
	if strings.ContainsAny(username, " \t\n") {
		return fmt.Errorf("%w: username must not contain whitespace", ErrInvalidInput)
	}
	return nil
}

func validatePassword(password string) error {
	if len(password) < 12 {
		return fmt.Errorf("%w: password must be at least 12 characters", ErrInvalidInput)
	}
	var hasUpper, hasLower, hasNumber, hasSymbol bool
	for _, r := range password {
		switch {
		case r >= 'A' && r <= 'Z':
			hasUpper = true
		case r >= 'a' && r <= 'z':
			hasLower = true
		case r >= '0' && r <= '9':
			hasNumber = true
		default:
			hasSymbol = true
		}
	}
	if !hasUpper {
		return fmt.Errorf("%w: password must contain at least one uppercase letter", ErrInvalidInput)
	}
	if !hasLower {
		return fmt.Errorf("%w: password must contain at least one lowercase letter", ErrInvalidInput)
	}
	if !hasNumber {
		return fmt.Errorf("%w: password must contain at least one number", ErrInvalidInput)
	}
	if !hasSymbol {
		return fmt.Errorf("%w: password must contain at least one symbol", ErrInvalidInput)
	}
	return nil
}
