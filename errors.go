package autologin

import "errors"

var (
	// ErrEngineNotReady is an exported constant or variable used by the autologin engine.
	ErrEngineNotReady = errors.New("engine not initialized")
	// ErrMalformedToken is an exported constant or variable used by the autologin engine.
	ErrMalformedToken = errors.New("malformed autologin token")
	// ErrRateLimited is an exported constant or variable used by the autologin engine.
	ErrRateLimited = errors.New("autologin rate limited")
	// ErrAlreadyAuthenticated is an exported constant or variable used by the autologin engine.
	ErrAlreadyAuthenticated = errors.New("caller already authenticated as target user")
	// ErrInvalidOrExpiredCode is an exported constant or variable used by the autologin engine.
	ErrInvalidOrExpiredCode = errors.New("invalid or expired autologin code")
	// ErrStoreUnavailable is an exported constant or variable used by the autologin engine.
	ErrStoreUnavailable = errors.New("autologin store unavailable")
	// ErrIssuanceDenied is an exported constant or variable used by the autologin engine.
	ErrIssuanceDenied = errors.New("autologin issuance denied by policy")
	// ErrUserNotFound is an exported constant or variable used by the autologin engine.
	ErrUserNotFound = errors.New("user not found")
)
