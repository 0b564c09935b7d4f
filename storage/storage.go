package storage

import (
	"context"
	"errors"
)

var (
	// ErrQuotaExceeded signals that the backend refused a write for lack of
	// space. Callers recover by evicting data and retrying.
	ErrQuotaExceeded = errors.New("storage quota exceeded")
)

// Backend is the key/value store the tracker persists into. Values are
// plain JSON strings; there are only two live keys (the users directory and
// the pre-import backup), so the interface stays minimal.
type Backend interface {
	// Get returns the value for key and whether the key exists.
	Get(ctx context.Context, key string) (string, bool, error)
	// Set writes value under key. Returns ErrQuotaExceeded when the backend
	// is out of space.
	Set(ctx context.Context, key, value string) error
	// Delete removes key; deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}
