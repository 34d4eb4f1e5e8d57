package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/maratonas-femininas/maratonas/internal/config"
	"github.com/maratonas-femininas/maratonas/internal/identity"
)

// Service issues and verifies bearer tokens.
type Service struct {
	secret  []byte
	ttl     time.Duration
	revoked Revocations
	now     func() time.Time
}

func NewService(cfg config.Config, revoked Revocations) *Service {
	if revoked == nil {
		revoked = NewMemoryRevocations()
	}
	return &Service{secret: []byte(cfg.JWTSecret), ttl: cfg.AccessTokenTTL, revoked: revoked, now: time.Now}
}

// Issue signs an access token for an authenticated user.
func (s *Service) Issue(user identity.User) (Token, error) {
	return signToken(user, s.secret, s.ttl, s.now())
}

// Verify checks signature, expiry and revocation.
func (s *Service) Verify(ctx context.Context, raw string) (*Claims, error) {
	claims, err := parseToken(raw, s.secret, s.now)
	if err != nil {
		return nil, err
	}
	revoked, err := s.revoked.Revoked(ctx, claims.ID)
	if err != nil {
		return nil, fmt.Errorf("check revocation: %w", err)
	}
	if revoked {
		return nil, ErrTokenRevoked
	}
	return claims, nil
}

// Logout revokes the token until it would have expired anyway.
func (s *Service) Logout(ctx context.Context, claims *Claims) error {
	if claims == nil || claims.ExpiresAt == nil {
		return ErrInvalidToken
	}
	return s.revoked.Revoke(ctx, claims.ID, claims.ExpiresAt.Time)
}
