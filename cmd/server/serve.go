package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	authhandler "authapp/internal/auth/handler"
	"authapp/internal/auth/password"
	"authapp/internal/auth/service"
	userstore "authapp/internal/auth/store/user"
	httpapi "authapp/internal/http"
	jwttoken "authapp/internal/jwt_token"
	"authapp/internal/platform/config"
	"authapp/internal/platform/httpserver"
	"authapp/internal/platform/logger"
	"authapp/internal/platform/metrics"
	"authapp/internal/platform/postgres"
	"authapp/internal/platform/redis"
	"authapp/internal/requestmetrics"
	metricshandler "authapp/internal/requestmetrics/handler"
	"authapp/pkg/platform/audit/publisher"
	auditmemory "authapp/pkg/platform/audit/store/memory"
	auditpostgres "authapp/pkg/platform/audit/store/postgres"
)

func newServeCmd(envFile *string) *cobra.Command {
	var autoMigrate bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := config.LoadDotEnv(*envFile); err != nil {
				return err
			}
			cfg, err := config.FromEnv()
			if err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, autoMigrate)
		},
	}
	cmd.Flags().BoolVar(&autoMigrate, "auto-migrate", true, "apply database migrations before serving (postgres store only)")
	return cmd
}

// serve wires high-level dependencies and runs the server until ctx ends.
// Business logic lives in internal services packages.
func serve(ctx context.Context, cfg config.Config, autoMigrate bool) error {
	log := logger.New(cfg.LogLevel)
	slog.SetDefault(log)

	stores, err := openStores(ctx, cfg, autoMigrate, log)
	if err != nil {
		return err
	}
	defer stores.close()
	healthChecks := stores.checks

	counter, closeCounter, err := openCounter(ctx, cfg, healthChecks)
	if err != nil {
		return err
	}
	defer closeCounter()

	prom := metrics.New()
	jwtService := jwttoken.NewJWTService(cfg.Auth.JWTSigningKey, cfg.Auth.JWTIssuer, cfg.Auth.JWTAudience, cfg.Auth.TokenTTL)
	auditor := publisher.NewPublisher(stores.audit,
		publisher.WithLogger(log),
		publisher.WithAsyncBuffer(cfg.Audit.BufferSize),
	)
	defer auditor.Close()

	authService, err := service.New(stores.users, password.New(cfg.Auth.BcryptCost), jwtService,
		service.WithAuditPublisher(auditor),
		service.WithMetrics(prom),
		service.WithLogger(log),
	)
	if err != nil {
		return err
	}

	router := httpapi.NewRouter(httpapi.Deps{
		Logger:         log,
		Auth:           authhandler.New(authService, jwtService, jwttoken.NewJWTServiceAdapter(jwtService), log, prom),
		RequestMetrics: metricshandler.New(counter, log),
		Counter:        counter,
		Prometheus:     prom,
		RequestTimeout: cfg.Server.RequestTimeout,
		HealthChecks:   healthChecks,
	})
	srv := httpserver.New(cfg.Server.Addr, router)

	log.Info("starting authapp",
		"addr", cfg.Server.Addr,
		"store", cfg.Store.Driver,
		"metrics_backend", cfg.Metrics.Backend,
		"token_ttl", jwtService.TTL().String(),
		"audit_buffer", cfg.Audit.BufferSize,
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return httpserver.Run(gctx, srv, cfg.Server.ShutdownTimeout, log)
	})
	if err := g.Wait(); err != nil {
		log.Error("server stopped with error", "error", err)
		return err
	}
	log.Info("server stopped")
	return nil
}

type storeSet struct {
	users  service.UserStore
	audit  publisher.Store
	checks map[string]httpapi.HealthCheck
	close  func()
}

func openStores(ctx context.Context, cfg config.Config, autoMigrate bool, log *slog.Logger) (storeSet, error) {
	if cfg.Store.Driver == config.StoreDriverMemory {
		log.Warn("using in-memory stores; accounts and audit events are lost on restart")
		return storeSet{
			users:  userstore.New(),
			audit:  auditmemory.NewInMemoryStore(),
			checks: map[string]httpapi.HealthCheck{},
			close:  func() {},
		}, nil
	}

	db, err := postgres.Open(ctx, postgres.Config{
		URL:          cfg.Store.DatabaseURL,
		MaxOpenConns: cfg.Store.MaxOpenConns,
	})
	if err != nil {
		return storeSet{}, err
	}
	if autoMigrate {
		if err := postgres.Migrate(ctx, db); err != nil {
			_ = db.Close()
			return storeSet{}, err
		}
	}
	return storeSet{
		users:  userstore.NewPostgres(db),
		audit:  auditpostgres.New(db),
		checks: map[string]httpapi.HealthCheck{"postgres": pingCheck(db)},
		close:  func() { _ = db.Close() },
	}, nil
}

func openCounter(ctx context.Context, cfg config.Config, checks map[string]httpapi.HealthCheck) (requestmetrics.Counter, func(), error) {
	if cfg.Metrics.Backend != config.MetricsBackendRedis {
		return requestmetrics.NewInMemoryCounter(), func() {}, nil
	}
	client, err := redis.New(ctx, cfg.Metrics.Redis)
	if err != nil {
		return nil, nil, err
	}
	checks["redis"] = client.Health
	return requestmetrics.NewRedisCounter(client, cfg.Metrics.Redis.KeyPrefix), func() { _ = client.Close() }, nil
}

func pingCheck(db *sql.DB) httpapi.HealthCheck {
	return db.PingContext
}
