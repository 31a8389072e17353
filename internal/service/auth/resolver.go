// Package auth resolves the caller of a request from a bearer token issued by
// the hosted auth provider. Tokens are HS256 JWTs signed with the project's
// shared secret; the subject claim is the user ID.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/phrazzld/vocab-drill/internal/config"
	"github.com/phrazzld/vocab-drill/internal/platform/logger"
)

// IdentityResolver maps a bearer token to the user it was issued for.
type IdentityResolver interface {
	// Resolve validates token and returns the user ID from its subject.
	// It fails with ErrMissingCredential, ErrInvalidToken or ErrExpiredToken.
	Resolve(ctx context.Context, token string) (uuid.UUID, error)
}

// hmacResolver is an IdentityResolver verifying HMAC-SHA256 signatures.
type hmacResolver struct {
	signingKey []byte
	issuer     string
	timeFunc   func() time.Time // Injectable for testing
	clockSkew  time.Duration
}

var _ IdentityResolver = (*hmacResolver)(nil)

// NewJWTResolver creates a resolver for tokens signed with cfg.JWTSecret.
// When cfg.Issuer is set, tokens must carry a matching iss claim.
func NewJWTResolver(cfg config.AuthConfig) (IdentityResolver, error) {
	return newHMACResolver(cfg, time.Now)
}

func newHMACResolver(cfg config.AuthConfig, now func() time.Time) (*hmacResolver, error) {
	if len(cfg.JWTSecret) < 32 {
		return nil, fmt.Errorf("jwt secret must be at least 32 characters")
	}
	return &hmacResolver{
		signingKey: []byte(cfg.JWTSecret),
		issuer:     cfg.Issuer,
		timeFunc:   now,
		clockSkew:  2 * time.Minute,
	}, nil
}

// Resolve implements IdentityResolver.
func (r *hmacResolver) Resolve(ctx context.Context, token string) (uuid.UUID, error) {
	log := logger.FromContextOrDefault(ctx)

	token = strings.TrimSpace(token)
	if token == "" {
		return uuid.Nil, ErrMissingCredential
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}),
		jwt.WithLeeway(r.clockSkew),
		jwt.WithTimeFunc(r.timeFunc),
		jwt.WithExpirationRequired(),
	}
	if r.issuer != "" {
		opts = append(opts, jwt.WithIssuer(r.issuer))
	}

	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return r.signingKey, nil
	}, opts...)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			log.Debug("token validation failed: token expired")
			return uuid.Nil, ErrExpiredToken
		case errors.Is(err, jwt.ErrTokenMalformed):
			log.Debug("token validation failed: malformed token")
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			log.Debug("token validation failed: invalid signature")
		default:
			log.Debug("token validation failed",
				"error", err.Error(),
				"error_type", fmt.Sprintf("%T", err))
		}
		return uuid.Nil, ErrInvalidToken
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil || userID == uuid.Nil {
		log.Debug("token validation failed: subject is not a user id")
		return uuid.Nil, ErrInvalidToken
	}
	return userID, nil
}
