// Package sentinel holds the storage facts that stores return, optionally
// wrapped, for services to translate into domain errors.
package sentinel

import "errors"

var (
	// ErrNotFound means no record matched the lookup key.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyUsed means a unique key (an account email) is taken.
	ErrAlreadyUsed = errors.New("already used")
)
