package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
)

const (
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"

	MetricsBackendMemory = "memory"
	MetricsBackendRedis  = "redis"

	// MinSigningKeyBytes is the smallest HS256 key accepted at startup.
	MinSigningKeyBytes = 32
)

// Server captures HTTP server level configuration.
type Server struct {
	Addr            string
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
}

// Auth holds token and password hashing settings.
type Auth struct {
	JWTSigningKey string
	JWTIssuer     string
	JWTAudience   string
	TokenTTL      time.Duration
	BcryptCost    int
}

// Store selects and configures the credential store.
type Store struct {
	Driver       string
	DatabaseURL  string
	MaxOpenConns int
}

// RedisConfig configures the shared metrics backend.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	KeyPrefix    string
}

// Metrics selects the request counter backend.
type Metrics struct {
	Backend string
	Redis   RedisConfig
}

// Audit configures audit event delivery. A zero BufferSize writes events
// synchronously.
type Audit struct {
	BufferSize int
}

type Config struct {
	Server   Server
	Auth     Auth
	Store    Store
	Metrics  Metrics
	Audit    Audit
	LogLevel slog.Level
}

// LoadDotEnv loads a .env file when present. A missing file is not an error.
func LoadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// FromEnv builds the configuration from environment variables and validates
// it. Any returned error is fatal at startup.
func FromEnv() (Config, error) {
	var errs []error

	cfg := Config{
		Server: Server{
			Addr:            getString("AUTHAPP_ADDR", ":8080"),
			RequestTimeout:  getDuration("REQUEST_TIMEOUT", 30*time.Second, &errs),
			ShutdownTimeout: getDuration("SHUTDOWN_TIMEOUT", 10*time.Second, &errs),
		},
		Auth: Auth{
			JWTSigningKey: os.Getenv("JWT_SIGNING_KEY"),
			JWTIssuer:     getString("JWT_ISSUER", "authapp"),
			JWTAudience:   getString("JWT_AUDIENCE", "authapp-clients"),
			TokenTTL:      getDuration("JWT_TTL", time.Hour, &errs),
			BcryptCost:    getInt("BCRYPT_COST", bcrypt.DefaultCost, &errs),
		},
		Store: Store{
			Driver:       strings.ToLower(getString("STORE_DRIVER", StoreDriverPostgres)),
			DatabaseURL:  os.Getenv("DATABASE_URL"),
			MaxOpenConns: getInt("DB_MAX_OPEN_CONNS", 10, &errs),
		},
		Metrics: Metrics{
			Backend: strings.ToLower(getString("METRICS_BACKEND", MetricsBackendMemory)),
			Redis: RedisConfig{
				URL:          os.Getenv("REDIS_URL"),
				PoolSize:     getInt("REDIS_POOL_SIZE", 10, &errs),
				MinIdleConns: getInt("REDIS_MIN_IDLE_CONNS", 2, &errs),
				DialTimeout:  getDuration("REDIS_DIAL_TIMEOUT", 5*time.Second, &errs),
				ReadTimeout:  getDuration("REDIS_READ_TIMEOUT", 3*time.Second, &errs),
				WriteTimeout: getDuration("REDIS_WRITE_TIMEOUT", 3*time.Second, &errs),
				KeyPrefix:    getString("REDIS_KEY_PREFIX", "authapp:metrics"),
			},
		},
		Audit: Audit{
			BufferSize: getInt("AUDIT_BUFFER_SIZE", 0, &errs),
		},
	}

	level, err := parseLevel(getString("LOG_LEVEL", "info"))
	if err != nil {
		errs = append(errs, err)
	}
	cfg.LogLevel = level

	errs = append(errs, cfg.validate()...)
	if len(errs) > 0 {
		return Config{}, errors.Join(errs...)
	}
	return cfg, nil
}

func (c Config) validate() []error {
	var errs []error
	switch {
	case c.Auth.JWTSigningKey == "":
		errs = append(errs, errors.New("JWT_SIGNING_KEY is required"))
	case len(c.Auth.JWTSigningKey) < MinSigningKeyBytes:
		errs = append(errs, fmt.Errorf("JWT_SIGNING_KEY must be at least %d bytes", MinSigningKeyBytes))
	}
	if c.Auth.TokenTTL <= 0 {
		errs = append(errs, errors.New("JWT_TTL must be positive"))
	}
	if c.Auth.BcryptCost < bcrypt.MinCost || c.Auth.BcryptCost > bcrypt.MaxCost {
		errs = append(errs, fmt.Errorf("BCRYPT_COST must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost))
	}

	if c.Audit.BufferSize < 0 {
		errs = append(errs, errors.New("AUDIT_BUFFER_SIZE must not be negative"))
	}

	switch c.Store.Driver {
	case StoreDriverPostgres:
		if c.Store.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required when STORE_DRIVER=postgres"))
		}
	case StoreDriverMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown STORE_DRIVER %q", c.Store.Driver))
	}

	switch c.Metrics.Backend {
	case MetricsBackendRedis:
		if c.Metrics.Redis.URL == "" {
			errs = append(errs, errors.New("REDIS_URL is required when METRICS_BACKEND=redis"))
		}
	case MetricsBackendMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown METRICS_BACKEND %q", c.Metrics.Backend))
	}
	return errs
}

func getString(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getInt(key string, def int, errs *[]error) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: invalid integer %q", key, raw))
		return def
	}
	return v
}

func getDuration(key string, def time.Duration, errs *[]error) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: invalid duration %q", key, raw))
		return def
	}
	return v
}

func parseLevel(raw string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(raw)); err != nil {
		return slog.LevelInfo, fmt.Errorf("LOG_LEVEL: invalid level %q", raw)
	}
	return level, nil
}
