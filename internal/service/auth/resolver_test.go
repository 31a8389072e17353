package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/phrazzld/vocab-drill/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-jwt-secret-that-is-32-chars-long"

func TestNewJWTResolverRejectsShortSecret(t *testing.T) {
	t.Parallel()
	_, err := NewJWTResolver(config.AuthConfig{JWTSecret: "short"})
	assert.Error(t, err)
}

func TestResolve(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	user := uuid.New()

	signer := NewTokenSigner(testSecret, "")
	signer.now = func() time.Time { return now }

	valid, err := signer.Sign(user, time.Hour)
	require.NoError(t, err)
	expired, err := signer.Sign(user, -time.Hour)
	require.NoError(t, err)

	otherKey := NewTokenSigner("another-secret-that-is-32-chars-long!", "")
	otherKey.now = signer.now
	wrongKey, err := otherKey.Sign(user, time.Hour)
	require.NoError(t, err)

	badSubject, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "not-a-uuid",
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)

	noExpiry, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject: user.String(),
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)

	hs512, err := jwt.NewWithClaims(jwt.SigningMethodHS512, jwt.RegisteredClaims{
		Subject:   user.String(),
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)

	resolver, err := newHMACResolver(config.AuthConfig{JWTSecret: testSecret}, func() time.Time { return now })
	require.NoError(t, err)

	tests := []struct {
		name    string
		token   string
		want    uuid.UUID
		wantErr error
	}{
		{"valid", valid, user, nil},
		{"surrounding whitespace", "  " + valid + " ", user, nil},
		{"empty", "", uuid.Nil, ErrMissingCredential},
		{"expired", expired, uuid.Nil, ErrExpiredToken},
		{"wrong key", wrongKey, uuid.Nil, ErrInvalidToken},
		{"garbage", "not.a.token", uuid.Nil, ErrInvalidToken},
		{"subject not a uuid", badSubject, uuid.Nil, ErrInvalidToken},
		{"no expiry", noExpiry, uuid.Nil, ErrInvalidToken},
		{"other algorithm", hs512, uuid.Nil, ErrInvalidToken},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := resolver.Resolve(context.Background(), tc.token)
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				assert.True(t, IsIdentityError(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestResolveWithinClockSkew(t *testing.T) {
	t.Parallel()

	issued := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	signer := NewTokenSigner(testSecret, "")
	signer.now = func() time.Time { return issued }
	token, err := signer.Sign(uuid.New(), time.Minute)
	require.NoError(t, err)

	resolver, err := newHMACResolver(config.AuthConfig{JWTSecret: testSecret},
		func() time.Time { return issued.Add(2 * time.Minute) })
	require.NoError(t, err)

	_, err = resolver.Resolve(context.Background(), token)
	assert.NoError(t, err, "one minute past expiry is inside the allowed skew")
}

func TestResolveIssuer(t *testing.T) {
	t.Parallel()

	user := uuid.New()
	resolver, err := NewJWTResolver(config.AuthConfig{JWTSecret: testSecret, Issuer: "https://auth.example.test"})
	require.NoError(t, err)

	good, err := NewTokenSigner(testSecret, "https://auth.example.test").Sign(user, time.Hour)
	require.NoError(t, err)
	bad, err := NewTokenSigner(testSecret, "someone-else").Sign(user, time.Hour)
	require.NoError(t, err)

	got, err := resolver.Resolve(context.Background(), good)
	require.NoError(t, err)
	assert.Equal(t, user, got)

	_, err = resolver.Resolve(context.Background(), bad)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestAuthHeader(t *testing.T) {
	t.Parallel()

	header, err := NewTokenSigner(testSecret, "").AuthHeader(uuid.New())
	require.NoError(t, err)
	assert.Regexp(t, `^Bearer [\w-]+\.[\w-]+\.[\w-]+$`, header)
}
