package auth

import "errors"

var (
	// ErrAuthentication covers bad credentials and invalid, expired or
	// replayed tokens. The message stays generic on purpose so callers
	// cannot distinguish which check failed.
	ErrAuthentication = errors.New("auth: incorrect email or password")

	// ErrAccountDisabled is returned when credentials are valid but the
	// account has been deactivated by an admin.
	ErrAccountDisabled = errors.New("auth: account is disabled")

	// ErrForbidden is returned when an authenticated caller lacks the
	// permission or ownership required for an operation.
	ErrForbidden = errors.New("auth: forbidden")
)
