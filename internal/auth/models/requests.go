package models

import "authapp/pkg/platform/validation"

// RegisterRequest is the body of POST /api/auth/register.
type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=6"`
}

// Validate enforces the registration input rules before the service runs.
func (r *RegisterRequest) Validate() error {
	return validation.Struct(r)
}

// LoginRequest is the body of POST /api/auth/login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required"`
}

// Validate enforces the login input rules before the service runs.
func (r *LoginRequest) Validate() error {
	return validation.Struct(r)
}
