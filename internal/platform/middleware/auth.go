package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	id "authapp/pkg/domain"
	dErrors "authapp/pkg/domain-errors"
	"authapp/pkg/platform/httputil"
	"authapp/pkg/requestcontext"
)

const bearerPrefix = "Bearer "

var errMissingBearer = dErrors.New(dErrors.CodeUnauthorized, "Missing or invalid Authorization header")
var errInvalidBearer = dErrors.New(dErrors.CodeUnauthorized, "Invalid or expired token")

// JWTValidator defines the interface for validating JWT tokens
type JWTValidator interface {
	ValidateToken(tokenString string) (*JWTClaims, error)
}

// JWTClaims represents the claims we expect from the JWT validator
type JWTClaims struct {
	UserID string
	Email  string
	JTI    string
}

// BearerToken returns the token following the case-sensitive "Bearer "
// prefix of the Authorization header.
func BearerToken(r *http.Request) (string, bool) {
	return strings.CutPrefix(r.Header.Get("Authorization"), bearerPrefix)
}

// RequireAuth rejects requests without a valid bearer token and stores the
// authenticated account in the request context.
func RequireAuth(validator JWTValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			requestID := requestcontext.RequestID(ctx)

			token, ok := BearerToken(r)
			if !ok {
				logger.WarnContext(ctx, "unauthorized access - missing token",
					"request_id", requestID,
				)
				httputil.WriteError(w, errMissingBearer)
				return
			}

			claims, err := validator.ValidateToken(token)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - invalid token",
					"error", err,
					"request_id", requestID,
				)
				httputil.WriteError(w, errInvalidBearer)
				return
			}

			userID, err := id.ParseUserID(claims.UserID)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - malformed subject",
					"error", err,
					"request_id", requestID,
				)
				httputil.WriteError(w, errInvalidBearer)
				return
			}

			ctx = requestcontext.WithUserID(ctx, userID)
			ctx = requestcontext.WithEmail(ctx, claims.Email)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
