// Package sentinel holds the storage facts shared by the session stores and
// the development backend. Callers translate them into coded errors at the
// edge; they never reach the user as-is.
package sentinel

import "errors"

var (
	// ErrNotFound means no record exists under the key.
	ErrNotFound = errors.New("not found")
	// ErrExpired means a record existed but outlived its TTL and was dropped.
	ErrExpired = errors.New("expired")
	// ErrCorrupt means a record exists but cannot be decoded.
	ErrCorrupt = errors.New("corrupt record")
)
