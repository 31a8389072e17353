package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenSigner mints tokens in the format the resolver accepts. Issuing
// tokens belongs to the auth provider; the signer exists for tests and
// local tooling that need to talk to a running server.
type TokenSigner struct {
	key    []byte
	issuer string
	now    func() time.Time
}

// NewTokenSigner creates a signer for secret. issuer may be empty.
func NewTokenSigner(secret, issuer string) *TokenSigner {
	return &TokenSigner{key: []byte(secret), issuer: issuer, now: time.Now}
}

// Sign returns an HS256 token for userID valid for lifetime.
func (s *TokenSigner) Sign(userID uuid.UUID, lifetime time.Duration) (string, error) {
	now := s.now()
	claims := jwt.RegisteredClaims{
		Subject:   userID.String(),
		Issuer:    s.issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(lifetime)),
		ID:        uuid.NewString(),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.key)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// AuthHeader returns "Bearer <token>" for userID with a one hour lifetime.
func (s *TokenSigner) AuthHeader(userID uuid.UUID) (string, error) {
	token, err := s.Sign(userID, time.Hour)
	if err != nil {
		return "", err
	}
	return "Bearer " + token, nil
}
