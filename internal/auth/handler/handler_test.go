package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"authapp/internal/auth/handler/mocks"
	"authapp/internal/auth/models"
	"authapp/internal/platform/metrics"
	"authapp/internal/platform/middleware"
	id "authapp/pkg/domain"
	dErrors "authapp/pkg/domain-errors"
	tu "authapp/pkg/testutil"
)

type fakeTokens struct {
	valid map[string]string
}

func (f *fakeTokens) IsValid(token string) bool {
	_, ok := f.valid[token]
	return ok
}

func (f *fakeTokens) ValidateToken(token string) (*middleware.JWTClaims, error) {
	userID, ok := f.valid[token]
	if !ok {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}
	return &middleware.JWTClaims{UserID: userID, Email: "a@example.com"}, nil
}

type HandlerSuite struct {
	suite.Suite
	ctrl    *gomock.Controller
	service *mocks.MockService
	metrics *metrics.Metrics
	router  chi.Router
	token   string
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.service = mocks.NewMockService(s.ctrl)
	s.metrics = metrics.New()
	s.token = "good.jwt.token"

	tokens := &fakeTokens{valid: map[string]string{s.token: id.NewUserID().String()}}
	h := New(s.service, tokens, tokens, slog.New(slog.DiscardHandler), s.metrics)

	s.router = chi.NewRouter()
	h.Register(s.router)
}

func (s *HandlerSuite) TestRegister() {
	s.Run("success", func() {
		s.service.EXPECT().
			Register(gomock.Any(), &models.RegisterRequest{Email: "a@example.com", Password: "secret1"}).
			Return(&models.RegisterResult{Message: "User registered successfully."}, nil)

		req := tu.NewJSONRequest(s.T(), http.MethodPost, "/api/auth/register",
			map[string]string{"email": "a@example.com", "password": "secret1"})
		rr := tu.DoRequest(s.router, req)

		s.Equal(http.StatusOK, rr.Code)
		body := tu.UnmarshalResponse[models.RegisterResult](s.T(), rr)
		s.Equal("User registered successfully.", body.Message)
	})

	s.Run("duplicate email is a bad request", func() {
		s.service.EXPECT().Register(gomock.Any(), gomock.Any()).
			Return(nil, dErrors.New(dErrors.CodeEmailExists, "Email already exists."))

		req := tu.NewJSONRequest(s.T(), http.MethodPost, "/api/auth/register",
			map[string]string{"email": "a@example.com", "password": "secret1"})
		rr := tu.DoRequest(s.router, req)

		tu.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "email_exists")
		s.Contains(rr.Body.String(), "Email already exists.")
	})

	s.Run("validation failures never reach the service", func() {
		for name, body := range map[string]map[string]string{
			"short password": {"email": "a@example.com", "password": "12345"},
			"bad email":      {"email": "nope", "password": "secret1"},
			"empty":          {},
		} {
			s.Run(name, func() {
				rr := tu.DoRequest(s.router, tu.NewJSONRequest(s.T(), http.MethodPost, "/api/auth/register", body))
				tu.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "validation_error")
			})
		}
	})

	s.Run("malformed json", func() {
		rr := tu.DoRequest(s.router, tu.NewRequestWithBody(s.T(), http.MethodPost, "/api/auth/register", `{"email":`))
		tu.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "bad_request")
	})

	s.Run("internal error hides details", func() {
		s.service.EXPECT().Register(gomock.Any(), gomock.Any()).
			Return(nil, dErrors.Wrap(errors.New("pq: connection refused"), dErrors.CodeInternal, "failed to create account"))

		req := tu.NewJSONRequest(s.T(), http.MethodPost, "/api/auth/register",
			map[string]string{"email": "a@example.com", "password": "secret1"})
		rr := tu.DoRequest(s.router, req)

		tu.AssertStatusAndError(s.T(), rr, http.StatusInternalServerError, "internal_error")
		s.False(strings.Contains(rr.Body.String(), "pq:"))
	})
}

func (s *HandlerSuite) TestLogin() {
	s.Run("success returns token", func() {
		s.service.EXPECT().
			Login(gomock.Any(), &models.LoginRequest{Email: "a@example.com", Password: "secret1"}).
			Return(&models.LoginResult{Token: "signed"}, nil)

		rr := tu.DoRequest(s.router, tu.NewJSONRequest(s.T(), http.MethodPost, "/api/auth/login",
			map[string]string{"email": "a@example.com", "password": "secret1"}))

		s.Equal(http.StatusOK, rr.Code)
		s.Equal("signed", tu.UnmarshalResponse[models.LoginResult](s.T(), rr).Token)
	})

	s.Run("invalid credentials", func() {
		s.service.EXPECT().Login(gomock.Any(), gomock.Any()).
			Return(nil, dErrors.New(dErrors.CodeUnauthorized, "Invalid email or password."))

		rr := tu.DoRequest(s.router, tu.NewJSONRequest(s.T(), http.MethodPost, "/api/auth/login",
			map[string]string{"email": "a@example.com", "password": "wrongpw"}))

		tu.AssertStatusAndError(s.T(), rr, http.StatusUnauthorized, "unauthorized")
		s.Contains(rr.Body.String(), "Invalid email or password.")
	})

	s.Run("missing password", func() {
		rr := tu.DoRequest(s.router, tu.NewJSONRequest(s.T(), http.MethodPost, "/api/auth/login",
			map[string]string{"email": "a@example.com"}))
		tu.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "validation_error")
	})

	s.Run("non-json content type", func() {
		req := tu.NewRequestWithBody(s.T(), http.MethodPost, "/api/auth/login", "email=a")
		req.Header.Set("Content-Type", "text/plain")
		rr := tu.DoRequest(s.router, req)
		tu.AssertStatusAndError(s.T(), rr, http.StatusUnsupportedMediaType, "unsupported_media_type")
	})
}

func (s *HandlerSuite) TestProtected() {
	s.Run("valid token", func() {
		req := tu.WithBearer(tu.NewJSONRequest(s.T(), http.MethodGet, "/api/auth/protected", nil), s.token)
		rr := tu.DoRequest(s.router, req)
		s.Equal(http.StatusOK, rr.Code)
		s.Equal("This is a protected route.", tu.UnmarshalResponse[models.MessageResponse](s.T(), rr).Message)
	})

	s.Run("missing header", func() {
		rr := tu.DoRequest(s.router, tu.NewJSONRequest(s.T(), http.MethodGet, "/api/auth/protected", nil))
		tu.AssertStatusAndError(s.T(), rr, http.StatusUnauthorized, "unauthorized")
	})

	s.Run("invalid token", func() {
		req := tu.WithBearer(tu.NewJSONRequest(s.T(), http.MethodGet, "/api/auth/protected", nil), "forged")
		rr := tu.DoRequest(s.router, req)
		tu.AssertStatusAndError(s.T(), rr, http.StatusUnauthorized, "unauthorized")
	})

	s.Run("handler without auth context fails closed", func() {
		h := New(s.service, &fakeTokens{}, &fakeTokens{}, slog.New(slog.DiscardHandler), nil)
		rr := tu.DoRequest(http.HandlerFunc(h.HandleProtected), tu.NewJSONRequest(s.T(), http.MethodGet, "/", nil))
		s.Equal(http.StatusInternalServerError, rr.Code)

		req := tu.WithUserID(tu.NewJSONRequest(s.T(), http.MethodGet, "/", nil), id.NewUserID())
		rr = tu.DoRequest(http.HandlerFunc(h.HandleProtected), req)
		s.Equal(http.StatusOK, rr.Code)
	})
}

func (s *HandlerSuite) TestValidateToken() {
	tests := []struct {
		name        string
		header      string
		wantSuccess bool
		wantValid   bool
	}{
		{"valid token", "Bearer " + s.token, true, true},
		{"invalid token", "Bearer forged", true, false},
		{"empty token after prefix", "Bearer ", true, false},
		{"missing header", "", false, false},
		{"wrong scheme", "Token " + s.token, false, false},
		{"lowercase scheme", "bearer " + s.token, false, false},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			req := tu.NewJSONRequest(s.T(), http.MethodGet, "/api/auth/validate-token", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rr := tu.DoRequest(s.router, req)

			s.Equal(http.StatusOK, rr.Code)
			body := tu.UnmarshalResponse[models.TokenValidationResponse](s.T(), rr)
			s.Equal(tt.wantSuccess, body.Success)
			s.Equal(tt.wantValid, body.IsValid)
		})
	}

	s.Equal(1.0, testutil.ToFloat64(s.metrics.TokenValidations.WithLabelValues(metrics.OutcomeSuccess)))
	s.Equal(5.0, testutil.ToFloat64(s.metrics.TokenValidations.WithLabelValues(metrics.OutcomeFailure)))
}
