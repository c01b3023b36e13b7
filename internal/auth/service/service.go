package service

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"authapp/internal/auth/models"
	"authapp/internal/platform/metrics"
	id "authapp/pkg/domain"
	dErrors "authapp/pkg/domain-errors"
	"authapp/pkg/email"
	audit "authapp/pkg/platform/audit"
	"authapp/pkg/platform/sentinel"
	"authapp/pkg/requestcontext"
)

const (
	msgRegistered = "User registered successfully."

	// dummyPassword only feeds the timing-equalizing comparison for unknown emails.
	dummyPassword = "authapp-unknown-account"
)

var (
	ErrEmailAlreadyExists = dErrors.New(dErrors.CodeEmailExists, "Email already exists.")
	ErrInvalidCredentials = dErrors.New(dErrors.CodeUnauthorized, "Invalid email or password.")
)

var tracer = otel.Tracer("authapp/auth")

type UserStore interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	CreateIfEmailAvailable(ctx context.Context, user *models.User) error
}

type PasswordHasher interface {
	Hash(plaintext string) (string, error)
	Verify(plaintext, hash string) (bool, error)
}

type TokenIssuer interface {
	GenerateAccessToken(user *models.User) (string, error)
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Metrics is the subset of the Prometheus metrics the service updates.
type Metrics interface {
	IncrementUsersCreated()
	IncrementDuplicateRegistrations()
	ObserveLogin(outcome string)
}

// Service orchestrates registration and login over the store, hasher and
// token issuer. It holds no per-call state.
type Service struct {
	users   UserStore
	hasher  PasswordHasher
	tokens  TokenIssuer
	auditor AuditPublisher
	metrics Metrics
	logger  *slog.Logger

	dummyOnce sync.Once
	dummyHash string
}

type Option func(*Service)

func WithAuditPublisher(p AuditPublisher) Option {
	return func(s *Service) { s.auditor = p }
}

func WithMetrics(m Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

func New(users UserStore, hasher PasswordHasher, tokens TokenIssuer, opts ...Option) (*Service, error) {
	if users == nil || hasher == nil || tokens == nil {
		return nil, errors.New("auth service requires a user store, password hasher and token issuer")
	}
	s := &Service{
		users:  users,
		hasher: hasher,
		tokens: tokens,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Register creates an account for a previously unused email.
func (s *Service) Register(ctx context.Context, req *models.RegisterRequest) (result *models.RegisterResult, err error) {
	ctx, span := tracer.Start(ctx, "auth.Register")
	defer func() { endSpan(span, err) }()

	masked := email.Mask(req.Email)
	span.SetAttributes(attribute.String("auth.email_masked", masked))

	_, err = s.users.FindByEmail(ctx, req.Email)
	switch {
	case err == nil:
		s.duplicate(ctx, masked)
		return nil, ErrEmailAlreadyExists
	case !errors.Is(err, sentinel.ErrNotFound):
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up account")
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		if _, ok := dErrors.As(err); ok {
			return nil, err
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to hash password")
	}

	user := &models.User{
		ID:           id.NewUserID(),
		Email:        req.Email,
		PasswordHash: hash,
		CreatedAt:    requestcontext.Now(ctx).UTC(),
	}
	if err = s.users.CreateIfEmailAvailable(ctx, user); err != nil {
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			s.duplicate(ctx, masked)
			return nil, ErrEmailAlreadyExists
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create account")
	}

	if s.metrics != nil {
		s.metrics.IncrementUsersCreated()
	}
	s.emit(ctx, audit.Event{
		UserID: user.ID,
		Action: string(audit.EventUserCreated),
		Email:  masked,
	})
	s.logger.InfoContext(ctx, "user registered",
		"user_id", user.ID.String(),
		"email", masked,
		"request_id", requestcontext.RequestID(ctx),
	)

	return &models.RegisterResult{Message: msgRegistered}, nil
}

// Login verifies credentials and issues a bearer token. Unknown emails and
// wrong passwords fail identically.
func (s *Service) Login(ctx context.Context, req *models.LoginRequest) (result *models.LoginResult, err error) {
	ctx, span := tracer.Start(ctx, "auth.Login")
	defer func() { endSpan(span, err) }()

	masked := email.Mask(req.Email)
	span.SetAttributes(attribute.String("auth.email_masked", masked))

	user, err := s.users.FindByEmail(ctx, req.Email)
	if err != nil {
		if !errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up account")
		}
		s.equalizeTiming(req.Password)
		s.loginFailed(ctx, id.UserID{}, masked, "unknown_email")
		return nil, ErrInvalidCredentials
	}

	ok, err := s.hasher.Verify(req.Password, user.PasswordHash)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to verify password")
	}
	if !ok {
		s.loginFailed(ctx, user.ID, masked, "password_mismatch")
		return nil, ErrInvalidCredentials
	}

	token, err := s.tokens.GenerateAccessToken(user)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to issue token")
	}

	if s.metrics != nil {
		s.metrics.ObserveLogin(metrics.OutcomeSuccess)
	}
	s.emit(ctx, audit.Event{
		UserID: user.ID,
		Action: string(audit.EventTokenIssued),
		Email:  masked,
	})

	return &models.LoginResult{Token: token}, nil
}

// equalizeTiming runs one bcrypt comparison so unknown-email failures cost
// about as much as wrong-password failures.
func (s *Service) equalizeTiming(password string) {
	s.dummyOnce.Do(func() {
		hash, err := s.hasher.Hash(dummyPassword)
		if err != nil {
			s.logger.Error("failed to prepare dummy password hash", "error", err)
			return
		}
		s.dummyHash = hash
	})
	if s.dummyHash != "" {
		_, _ = s.hasher.Verify(password, s.dummyHash)
	}
}

func (s *Service) duplicate(ctx context.Context, masked string) {
	if s.metrics != nil {
		s.metrics.IncrementDuplicateRegistrations()
	}
	s.logger.InfoContext(ctx, "registration rejected - email already exists",
		"email", masked,
		"request_id", requestcontext.RequestID(ctx),
	)
}

func (s *Service) loginFailed(ctx context.Context, userID id.UserID, masked, reason string) {
	if s.metrics != nil {
		s.metrics.ObserveLogin(metrics.OutcomeFailure)
	}
	s.emit(ctx, audit.Event{
		UserID: userID,
		Action: string(audit.EventAuthFailed),
		Email:  masked,
		Reason: reason,
	})
	s.logger.WarnContext(ctx, "login failed",
		"email", masked,
		"reason", reason,
		"request_id", requestcontext.RequestID(ctx),
	)
}

func (s *Service) emit(ctx context.Context, event audit.Event) {
	if s.auditor == nil {
		return
	}
	event.ClientIP = requestcontext.ClientIP(ctx)
	event.UserAgent = requestcontext.UserAgent(ctx)
	if err := s.auditor.Emit(ctx, event); err != nil {
		s.logger.ErrorContext(ctx, "failed to emit audit event",
			"error", err,
			"action", event.Action,
			"request_id", requestcontext.RequestID(ctx),
		)
	}
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
