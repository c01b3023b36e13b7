// Package domain holds small domain primitives shared across feature slices.
package domain

import (
	"github.com/google/uuid"

	dErrors "authapp/pkg/domain-errors"
)

// UserID identifies an account. It is a distinct type so account ids cannot
// be confused with other uuids (token ids, request ids) at compile time.
type UserID uuid.UUID

// NewUserID returns a fresh random account id.
func NewUserID() UserID {
	return UserID(uuid.New())
}

// ParseUserID validates s at a trust boundary (token subject, path param).
// Empty, malformed and nil UUIDs are rejected.
func ParseUserID(s string) (UserID, error) {
	if s == "" {
		return UserID{}, dErrors.New(dErrors.CodeValidation, "user id is required")
	}
	parsed, err := uuid.Parse(s)
	if err != nil {
		return UserID{}, dErrors.New(dErrors.CodeValidation, "invalid user id")
	}
	if parsed == uuid.Nil {
		return UserID{}, dErrors.New(dErrors.CodeValidation, "user id must not be nil")
	}
	return UserID(parsed), nil
}

func (id UserID) String() string {
	return uuid.UUID(id).String()
}

// IsNil reports whether the id is the zero value.
func (id UserID) IsNil() bool {
	return uuid.UUID(id) == uuid.Nil
}
