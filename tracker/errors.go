package tracker

import "errors"

var (
	// ErrWrongPassword is reported when a sealed export fails to
	// authenticate; the UI prompts for a different password on this one.
	ErrWrongPassword = errors.New("incorrect password")

	// ErrPasswordRequired is reported when a sealed export is imported
	// without a password.
	ErrPasswordRequired = errors.New("data is encrypted, password required")

	// ErrNotEncrypted is reported when a password was supplied but the
	// payload is not a sealed export.
	ErrNotEncrypted = errors.New("data is not encrypted")

	// ErrMalformedCiphertext is reported when a sealed payload is truncated
	// or not valid base64.
	ErrMalformedCiphertext = errors.New("malformed encrypted payload")
)
