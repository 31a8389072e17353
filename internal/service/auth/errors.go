package auth

import "errors"

// Identity errors. They are distinct from store errors and map to 401.
var (
	// ErrMissingCredential indicates no bearer token was supplied.
	ErrMissingCredential = errors.New("authentication credential is missing")

	// ErrInvalidToken indicates the token is malformed, wrongly signed, or
	// carries no usable subject.
	ErrInvalidToken = errors.New("invalid authentication token")

	// ErrExpiredToken indicates the token has expired.
	ErrExpiredToken = errors.New("authentication token has expired")
)

// IsIdentityError reports whether err is one of the identity errors above.
func IsIdentityError(err error) bool {
	return errors.Is(err, ErrMissingCredential) ||
		errors.Is(err, ErrInvalidToken) ||
		errors.Is(err, ErrExpiredToken)
}
