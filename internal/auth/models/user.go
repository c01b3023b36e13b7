package models

import (
	"time"

	id "authapp/pkg/domain"
)

// User is a registered account. Email is stored exactly as submitted and is
// unique across all accounts; PasswordHash is an opaque bcrypt string.
type User struct {
	ID           id.UserID
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}
