// Package password hashes and verifies account passwords with bcrypt.
// Every Hash call draws a fresh random salt, so equal passwords never share
// a stored hash.
package password

import (
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	dErrors "authapp/pkg/domain-errors"
)

// maxInputBytes is bcrypt's input limit.
const maxInputBytes = 72

// Hasher is a bcrypt hasher with a fixed cost.
type Hasher struct {
	cost int
}

// New creates a Hasher. A cost outside bcrypt's range falls back to
// bcrypt.DefaultCost.
func New(cost int) *Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &Hasher{cost: cost}
}

// Hash returns a salted bcrypt hash of plaintext.
func (h *Hasher) Hash(plaintext string) (string, error) {
	if plaintext == "" {
		return "", dErrors.New(dErrors.CodeValidation, "password cannot be empty")
	}
	hashed, err := bcrypt.GenerateFromPassword(bcryptInput(plaintext), h.cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hashed), nil
}

// Verify reports whether plaintext matches hash. A mismatch is (false, nil);
// an error means the stored hash itself is unusable.
func (h *Hasher) Verify(plaintext, hash string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(hash), bcryptInput(plaintext))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return false, nil
	}
	return false, fmt.Errorf("verify password: %w", err)
}

// bcryptInput passes passwords within bcrypt's limit through unchanged and
// replaces longer ones with the base64 SHA-256 digest, so every byte still
// counts and Hash and Verify agree.
func bcryptInput(plaintext string) []byte {
	if len(plaintext) <= maxInputBytes {
		return []byte(plaintext)
	}
	sum := sha256.Sum256([]byte(plaintext))
	return []byte(base64.StdEncoding.EncodeToString(sum[:]))
}
