package auth

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidToken means the token is malformed or its signature is bad.
	ErrInvalidToken = errors.New("auth: invalid token")

	// ErrExpiredToken means the token is well-formed but past its expiry. It is
	// the only verification failure a client may respond to with a refresh.
	ErrExpiredToken = errors.New("auth: token expired")

	// ErrWrongTokenKind means an access token was presented where a refresh
	// token was expected, or vice versa. It wraps ErrInvalidToken so callers
	// that only branch on the public taxonomy treat it as a plain invalid
	// token; the distinction never reaches a client.
	ErrWrongTokenKind = fmt.Errorf("%w: wrong token kind", ErrInvalidToken)
)
