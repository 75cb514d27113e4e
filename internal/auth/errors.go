package auth

import "errors"

// Sentinel errors describing every way credential resolution can fail.
// Handlers map these onto HTTP responses; nothing below this layer
// knows about status codes.
var (
	// ErrNoCredential means the request carried no access token at all.
	ErrNoCredential = errors.New("no credential supplied")

	// ErrTokenInvalid covers malformed tokens, bad signatures, and tokens
	// of the wrong kind. The cause is deliberately not distinguished to
	// avoid leaking verification detail to callers.
	ErrTokenInvalid = errors.New("access token invalid")

	// ErrTokenExpired means the access token verified but its expiry has
	// passed. This is the only recoverable token failure.
	ErrTokenExpired = errors.New("access token expired")

	// ErrRefreshInvalid covers malformed, forged, unknown, or revoked
	// refresh tokens.
	ErrRefreshInvalid = errors.New("refresh token invalid")

	// ErrRefreshExpired means the refresh token verified but has expired,
	// so the session cannot be renewed.
	ErrRefreshExpired = errors.New("refresh token expired")

	// ErrUserNotFound means a verified token referenced an account that
	// no longer exists.
	ErrUserNotFound = errors.New("user not found")

	// ErrStoreUnavailable means the user store could not answer within
	// the configured deadline. Resolution fails closed.
	ErrStoreUnavailable = errors.New("user store unavailable")
)
