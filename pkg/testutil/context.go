package testutil

import (
	"net/http"

	id "authapp/pkg/domain"
	"authapp/pkg/requestcontext"
)

// WithUserID simulates what the auth middleware does for authenticated
// requests.
func WithUserID(req *http.Request, userID id.UserID) *http.Request {
	return req.WithContext(requestcontext.WithUserID(req.Context(), userID))
}

// WithRequestID attaches a correlation id as the RequestID middleware would.
func WithRequestID(req *http.Request, requestID string) *http.Request {
	return req.WithContext(requestcontext.WithRequestID(req.Context(), requestID))
}
