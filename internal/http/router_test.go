package httpapi

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	authhandler "authapp/internal/auth/handler"
	"authapp/internal/auth/models"
	"authapp/internal/auth/password"
	"authapp/internal/auth/service"
	userstore "authapp/internal/auth/store/user"
	jwttoken "authapp/internal/jwt_token"
	"authapp/internal/platform/metrics"
	"authapp/internal/requestmetrics"
	metricshandler "authapp/internal/requestmetrics/handler"
	audit "authapp/pkg/platform/audit"
	"authapp/pkg/platform/audit/publisher"
	auditmemory "authapp/pkg/platform/audit/store/memory"
	tu "authapp/pkg/testutil"
)

const testSigningKey = "router-test-signing-key-0123456789"

type testApp struct {
	router  http.Handler
	users   *userstore.InMemoryUserStore
	audit   *auditmemory.InMemoryStore
	counter *requestmetrics.InMemoryCounter
	jwt     *jwttoken.JWTService
}

func newTestApp(t *testing.T, checks map[string]HealthCheck) *testApp {
	t.Helper()
	logger := slog.New(slog.DiscardHandler)

	users := userstore.New()
	auditStore := auditmemory.NewInMemoryStore()
	prom := metrics.New()
	jwtService := jwttoken.NewJWTService(testSigningKey, "authapp", "authapp-clients", time.Hour)

	svc, err := service.New(users, password.New(bcrypt.MinCost), jwtService,
		service.WithAuditPublisher(publisher.NewPublisher(auditStore)),
		service.WithMetrics(prom),
		service.WithLogger(logger),
	)
	require.NoError(t, err)

	counter := requestmetrics.NewInMemoryCounter()
	router := NewRouter(Deps{
		Logger:         logger,
		Auth:           authhandler.New(svc, jwtService, jwttoken.NewJWTServiceAdapter(jwtService), logger, prom),
		RequestMetrics: metricshandler.New(counter, logger),
		Counter:        counter,
		Prometheus:     prom,
		HealthChecks:   checks,
	})

	return &testApp{router: router, users: users, audit: auditStore, counter: counter, jwt: jwtService}
}

func credentials(email, pw string) map[string]string {
	return map[string]string{"email": email, "password": pw}
}

func TestAuthenticationScenario(t *testing.T) {
	app := newTestApp(t, nil)
	var (
		token   string
		account *models.User
	)
	sc := tu.NewScenario(t)

	sc.Given("a new account", func(t *testing.T) {
		rr := tu.DoRequest(app.router, tu.NewJSONRequest(t, http.MethodPost, "/api/auth/register", credentials("a@example.com", "secret1")))
		require.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "User registered successfully.", tu.UnmarshalResponse[models.RegisterResult](t, rr).Message)

		stored, err := app.users.FindByEmail(context.Background(), "a@example.com")
		require.NoError(t, err)
		assert.NotEqual(t, "secret1", stored.PasswordHash)
		account = stored
	})

	sc.When("the same email registers again", func(t *testing.T) {
		rr := tu.DoRequest(app.router, tu.NewJSONRequest(t, http.MethodPost, "/api/auth/register", credentials("a@example.com", "another1")))
		tu.AssertStatusAndError(t, rr, http.StatusBadRequest, "email_exists")

		n, err := app.users.Count(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 1, n)
	})

	sc.When("logging in with the wrong password", func(t *testing.T) {
		rr := tu.DoRequest(app.router, tu.NewJSONRequest(t, http.MethodPost, "/api/auth/login", credentials("a@example.com", "wrongpw")))
		tu.AssertStatusAndError(t, rr, http.StatusUnauthorized, "unauthorized")
		assert.Equal(t, "Invalid email or password.", tu.UnmarshalErrorResponse(t, rr)["error"])
	})

	sc.When("logging in with an unknown email", func(t *testing.T) {
		rr := tu.DoRequest(app.router, tu.NewJSONRequest(t, http.MethodPost, "/api/auth/login", credentials("nobody@example.com", "secret1")))
		tu.AssertStatusAndError(t, rr, http.StatusUnauthorized, "unauthorized")
		assert.Equal(t, "Invalid email or password.", tu.UnmarshalErrorResponse(t, rr)["error"])
	})

	sc.Then("the right password yields a parseable token", func(t *testing.T) {
		rr := tu.DoRequest(app.router, tu.NewJSONRequest(t, http.MethodPost, "/api/auth/login", credentials("a@example.com", "secret1")))
		require.Equal(t, http.StatusOK, rr.Code)
		token = tu.UnmarshalResponse[models.LoginResult](t, rr).Token
		require.NotEmpty(t, token)

		claims := &jwttoken.AccessTokenClaims{}
		_, _, err := jwt.NewParser().ParseUnverified(token, claims)
		require.NoError(t, err)
		assert.Equal(t, account.ID.String(), claims.Subject)
		assert.Equal(t, "a@example.com", claims.Email)
		assert.Equal(t, "authapp", claims.Issuer)
	})

	sc.Then("the token opens the protected route", func(t *testing.T) {
		rr := tu.DoRequest(app.router, tu.WithBearer(httptest.NewRequest(http.MethodGet, "/api/auth/protected", nil), token))
		require.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "This is a protected route.", tu.UnmarshalResponse[models.MessageResponse](t, rr).Message)
	})

	sc.Then("the protected route rejects anonymous callers", func(t *testing.T) {
		rr := tu.DoRequest(app.router, httptest.NewRequest(http.MethodGet, "/api/auth/protected", nil))
		tu.AssertStatusAndError(t, rr, http.StatusUnauthorized, "unauthorized")
	})

	sc.Then("validate-token reports the token as valid", func(t *testing.T) {
		rr := tu.DoRequest(app.router, tu.WithBearer(httptest.NewRequest(http.MethodGet, "/api/auth/validate-token", nil), token))
		require.Equal(t, http.StatusOK, rr.Code)
		body := tu.UnmarshalResponse[models.TokenValidationResponse](t, rr)
		assert.True(t, body.Success)
		assert.True(t, body.IsValid)
	})

	sc.Then("the audit trail recorded the flow", func(t *testing.T) {
		events, err := app.audit.ListAll(context.Background())
		require.NoError(t, err)
		var actions []string
		for _, e := range events {
			actions = append(actions, e.Action)
			assert.NotContains(t, e.Email, "a@example.com")
		}
		assert.Equal(t, []string{
			string(audit.EventUserCreated),
			string(audit.EventAuthFailed),
			string(audit.EventAuthFailed),
			string(audit.EventTokenIssued),
		}, actions)
	})

	sc.Then("every request was counted", func(t *testing.T) {
		rr := tu.DoRequest(app.router, httptest.NewRequest(http.MethodGet, "/api/metrics", nil))
		require.Equal(t, http.StatusOK, rr.Code)
		snap := tu.UnmarshalResponse[requestmetrics.Snapshot](t, rr)

		assert.Equal(t, int64(9), snap.TotalRequests)
		assert.Equal(t, int64(2), snap.EndpointCounts["POST /api/auth/register"])
		assert.Equal(t, int64(3), snap.EndpointCounts["POST /api/auth/login"])
		assert.Equal(t, int64(2), snap.EndpointCounts["GET /api/auth/protected"])
		assert.Equal(t, int64(1), snap.EndpointCounts["GET /api/auth/validate-token"])
		assert.Equal(t, int64(1), snap.EndpointCounts["GET /api/metrics"])
	})
}

func TestLongPasswordsRegisterAndLogIn(t *testing.T) {
	app := newTestApp(t, nil)

	tests := []struct {
		name     string
		email    string
		password string
	}{
		{"100 ascii characters", "long@example.com", strings.Repeat("x", 100)},
		{"40 two-byte characters", "accent@example.com", strings.Repeat("é", 40)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := tu.DoRequest(app.router, tu.NewJSONRequest(t, http.MethodPost, "/api/auth/register", credentials(tt.email, tt.password)))
			require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

			rr = tu.DoRequest(app.router, tu.NewJSONRequest(t, http.MethodPost, "/api/auth/login", credentials(tt.email, tt.password)))
			require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
			assert.NotEmpty(t, tu.UnmarshalResponse[models.LoginResult](t, rr).Token)

			rr = tu.DoRequest(app.router, tu.NewJSONRequest(t, http.MethodPost, "/api/auth/login", credentials(tt.email, tt.password+"!")))
			tu.AssertStatusAndError(t, rr, http.StatusUnauthorized, "unauthorized")
		})
	}
}

func TestExpiredTokenIsRejected(t *testing.T) {
	app := newTestApp(t, nil)

	past := time.Now().Add(-2 * time.Hour)
	expiredIssuer := jwttoken.NewJWTService(testSigningKey, "authapp", "authapp-clients", time.Hour,
		jwttoken.WithClock(func() time.Time { return past }))
	rr := tu.DoRequest(app.router, tu.NewJSONRequest(t, http.MethodPost, "/api/auth/register", credentials("b@example.com", "secret1")))
	require.Equal(t, http.StatusOK, rr.Code)
	user, err := app.users.FindByEmail(context.Background(), "b@example.com")
	require.NoError(t, err)

	expired, err := expiredIssuer.GenerateAccessToken(user)
	require.NoError(t, err)

	rr = tu.DoRequest(app.router, tu.WithBearer(httptest.NewRequest(http.MethodGet, "/api/auth/protected", nil), expired))
	tu.AssertStatusAndError(t, rr, http.StatusUnauthorized, "unauthorized")

	rr = tu.DoRequest(app.router, tu.WithBearer(httptest.NewRequest(http.MethodGet, "/api/auth/validate-token", nil), expired))
	body := tu.UnmarshalResponse[models.TokenValidationResponse](t, rr)
	assert.True(t, body.Success)
	assert.False(t, body.IsValid)
}

func TestRequestIDIsEchoed(t *testing.T) {
	app := newTestApp(t, nil)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "trace-me")
	rr := tu.DoRequest(app.router, req)
	assert.Equal(t, "trace-me", rr.Header().Get("X-Request-ID"))
}

func TestHealth(t *testing.T) {
	t.Run("no checks", func(t *testing.T) {
		rr := tu.DoRequest(newTestApp(t, nil).router, httptest.NewRequest(http.MethodGet, "/health", nil))
		assert.Equal(t, http.StatusOK, rr.Code)
		assert.JSONEq(t, `{"status":"ok"}`, rr.Body.String())
	})

	t.Run("failing dependency", func(t *testing.T) {
		app := newTestApp(t, map[string]HealthCheck{
			"postgres": func(context.Context) error { return nil },
			"redis":    func(context.Context) error { return errors.New("dial tcp: refused") },
		})
		rr := tu.DoRequest(app.router, httptest.NewRequest(http.MethodGet, "/health", nil))
		assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
		assert.JSONEq(t, `{"status":"degraded","checks":{"postgres":"ok","redis":"unavailable"}}`, rr.Body.String())
	})
}

func TestPrometheusEndpoint(t *testing.T) {
	app := newTestApp(t, nil)
	tu.DoRequest(app.router, tu.NewJSONRequest(t, http.MethodPost, "/api/auth/register", credentials("c@example.com", "secret1")))

	rr := tu.DoRequest(app.router, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	body, err := io.ReadAll(rr.Body)
	require.NoError(t, err)
	text := string(body)
	assert.True(t, strings.Contains(text, "authapp_users_created_total 1"), text)
	assert.Contains(t, text, `route="/api/auth/register"`)
}
