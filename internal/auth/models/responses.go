package models

// RegisterResult is returned on successful registration.
type RegisterResult struct {
	Message string `json:"message"`
}

// LoginResult carries the signed bearer token.
type LoginResult struct {
	Token string `json:"token"`
}

// MessageResponse is a generic informational body.
type MessageResponse struct {
	Message string `json:"message"`
}

// TokenValidationResponse is the body of GET /api/auth/validate-token.
// Success is false only when no bearer token was presented.
type TokenValidationResponse struct {
	Success bool `json:"success"`
	IsValid bool `json:"isValid"`
}
