// Package token issues, validates, and revokes session tokens. Tokens are
// signed JWTs that are never mutated after issuance; revocation works through
// the ledger instead, either per-token (jti denylist) or per-subject (session
// generation bump).
package token

import (
	"context"
	"errors"
	"time"

	accountdomain "taskboard/backend/internal/account/domain"
	"taskboard/backend/internal/security"
)

// Validation failures, re-exported alongside the revocation case so callers
// have the full taxonomy in one place.
var (
	ErrMalformedToken = security.ErrMalformedToken
	ErrExpiredToken   = security.ErrExpiredToken
	ErrRevokedToken   = errors.New("revoked token")
)

// Identity is the validated result of a session token: who the caller is and
// under which role and generation the token was issued.
type Identity struct {
	Subject    string
	Role       accountdomain.Role
	Generation int64
	JTI        string
	ExpiresAt  time.Time
}

// Service binds the signing provider to the revocation ledger.
type Service struct {
	provider *security.TokenProvider
	ledger   Ledger
}

func NewService(provider *security.TokenProvider, ledger Ledger) *Service {
	return &Service{provider: provider, ledger: ledger}
}

// TTL returns the fixed token lifetime.
func (s *Service) TTL() time.Duration { return s.provider.TTL() }

// Issue signs a token for the account under its current session generation.
// The role claim is a snapshot: a later role change only affects tokens
// issued after it.
func (s *Service) Issue(ctx context.Context, a *accountdomain.Account) (token string, id *Identity, err error) {
	gen, err := s.ledger.Generation(ctx, a.ID)
	if err != nil {
		return "", nil, err
	}
	token, jti, expiresAt, err := s.provider.Sign(a.ID, string(a.Role), gen)
	if err != nil {
		return "", nil, err
	}
	return token, &Identity{
		Subject:    a.ID,
		Role:       a.Role,
		Generation: gen,
		JTI:        jti,
		ExpiresAt:  expiresAt,
	}, nil
}

// Validate verifies the token and checks it against the revocation ledger.
// Fails with ErrExpiredToken, ErrMalformedToken, or ErrRevokedToken; the
// filter chain logs the kind but reports all three uniformly to the caller.
func (s *Service) Validate(ctx context.Context, tokenString string) (*Identity, error) {
	claims, err := s.provider.Verify(tokenString)
	if err != nil {
		return nil, err
	}
	current, err := s.ledger.Generation(ctx, claims.Subject)
	if err != nil {
		return nil, err
	}
	if claims.Generation != current {
		return nil, ErrRevokedToken
	}
	denied, err := s.ledger.IsDenylisted(ctx, claims.ID)
	if err != nil {
		return nil, err
	}
	if denied {
		return nil, ErrRevokedToken
	}
	var exp time.Time
	if claims.ExpiresAt != nil {
		exp = claims.ExpiresAt.Time
	}
	return &Identity{
		Subject:    claims.Subject,
		Role:       accountdomain.Role(claims.Role),
		Generation: claims.Generation,
		JTI:        claims.ID,
		ExpiresAt:  exp,
	}, nil
}

// Revoke invalidates the single session identified by jti (logout). The
// denylist entry is kept until the token's own expiry, after which the
// signature check rejects it anyway.
func (s *Service) Revoke(ctx context.Context, id *Identity) error {
	return s.ledger.Denylist(ctx, id.JTI, id.Subject, id.ExpiresAt)
}

// RevokeAll invalidates every outstanding session for the subject by bumping
// its generation. This is how "logout everywhere" works without access to the
// individual tokens.
func (s *Service) RevokeAll(ctx context.Context, subject string) error {
	_, err := s.ledger.IncrementGeneration(ctx, subject)
	return err
}
