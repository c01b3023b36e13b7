package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"authapp/internal/auth/models"
	"authapp/internal/platform/metrics"
	"authapp/internal/platform/middleware"
	dErrors "authapp/pkg/domain-errors"
	"authapp/pkg/platform/httputil"
	"authapp/pkg/requestcontext"
)

const msgProtected = "This is a protected route."

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks Service

// Service defines the interface for account operations.
type Service interface {
	Register(ctx context.Context, req *models.RegisterRequest) (*models.RegisterResult, error)
	Login(ctx context.Context, req *models.LoginRequest) (*models.LoginResult, error)
}

// TokenChecker answers yes/no for a bearer token.
type TokenChecker interface {
	IsValid(token string) bool
}

// Handler handles the /api/auth endpoints.
type Handler struct {
	logger       *slog.Logger
	auth         Service
	tokens       TokenChecker
	jwtValidator middleware.JWTValidator
	metrics      *metrics.Metrics
}

// New creates a new auth Handler. metrics may be nil.
func New(
	auth Service,
	tokens TokenChecker,
	jwtValidator middleware.JWTValidator,
	logger *slog.Logger,
	metrics *metrics.Metrics) *Handler {
	return &Handler{
		logger:       logger,
		auth:         auth,
		tokens:       tokens,
		jwtValidator: jwtValidator,
		metrics:      metrics,
	}
}

// Register registers the auth routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Route("/api/auth", func(r chi.Router) {
		r.With(middleware.ContentTypeJSON).Post("/register", h.HandleRegister)
		r.With(middleware.ContentTypeJSON).Post("/login", h.HandleLogin)
		r.With(middleware.RequireAuth(h.jwtValidator, h.logger)).Get("/protected", h.HandleProtected)
		r.Get("/validate-token", h.HandleValidateToken)
	})
}

func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	var req models.RegisterRequest
	if !h.decodeAndValidate(w, r, &req, req.Validate) {
		return
	}

	result, err := h.auth.Register(ctx, &req)
	if err != nil {
		h.logFailure(ctx, "registration failed", requestID, err)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	var req models.LoginRequest
	if !h.decodeAndValidate(w, r, &req, req.Validate) {
		return
	}

	result, err := h.auth.Login(ctx, &req)
	if err != nil {
		h.logFailure(ctx, "login failed", requestID, err)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, result)
}

// HandleProtected runs behind RequireAuth.
func (h *Handler) HandleProtected(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if requestcontext.UserID(ctx).IsNil() {
		h.logger.ErrorContext(ctx, "userID missing from context despite auth middleware",
			"request_id", requestcontext.RequestID(ctx),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "authentication context error"))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, models.MessageResponse{Message: msgProtected})
}

// HandleValidateToken always answers 200. Success is false only when no
// bearer token was presented at all.
func (h *Handler) HandleValidateToken(w http.ResponseWriter, r *http.Request) {
	token, ok := middleware.BearerToken(r)
	if !ok {
		h.observeValidation(metrics.OutcomeFailure)
		httputil.WriteJSON(w, http.StatusOK, models.TokenValidationResponse{Success: false, IsValid: false})
		return
	}

	valid := h.tokens.IsValid(token)
	if valid {
		h.observeValidation(metrics.OutcomeSuccess)
	} else {
		h.observeValidation(metrics.OutcomeFailure)
	}
	httputil.WriteJSON(w, http.StatusOK, models.TokenValidationResponse{Success: true, IsValid: valid})
}

func (h *Handler) decodeAndValidate(w http.ResponseWriter, r *http.Request, dst any, validate func() error) bool {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	if err := httputil.DecodeJSON(r, dst); err != nil {
		h.logger.WarnContext(ctx, "invalid request body",
			"request_id", requestID,
			"error", err.Error(),
		)
		httputil.WriteError(w, err)
		return false
	}
	if err := validate(); err != nil {
		h.logger.WarnContext(ctx, "request validation failed",
			"request_id", requestID,
			"error", err.Error(),
		)
		httputil.WriteError(w, err)
		return false
	}
	return true
}

func (h *Handler) logFailure(ctx context.Context, msg, requestID string, err error) {
	if dErrors.HasCode(err, dErrors.CodeInternal) {
		h.logger.ErrorContext(ctx, msg, "request_id", requestID, "error", err.Error())
		return
	}
	h.logger.InfoContext(ctx, msg, "request_id", requestID, "error", err.Error())
}

func (h *Handler) observeValidation(outcome string) {
	if h.metrics != nil {
		h.metrics.ObserveTokenValidation(outcome)
	}
}
