// Package app wires the service together and manages its lifecycle.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	analyzermock "github.com/jteerlink/SymptomSentinelAI-sub001/internal/analyzer/mock"
	"github.com/jteerlink/SymptomSentinelAI-sub001/internal/auth"
	"github.com/jteerlink/SymptomSentinelAI-sub001/internal/config"
	"github.com/jteerlink/SymptomSentinelAI-sub001/internal/domain"
	"github.com/jteerlink/SymptomSentinelAI-sub001/internal/event"
	handler "github.com/jteerlink/SymptomSentinelAI-sub001/internal/handler/http"
	"github.com/jteerlink/SymptomSentinelAI-sub001/internal/quota"
	"github.com/jteerlink/SymptomSentinelAI-sub001/internal/repository"
	"github.com/jteerlink/SymptomSentinelAI-sub001/internal/repository/memory"
	"github.com/jteerlink/SymptomSentinelAI-sub001/internal/repository/postgres"
	"github.com/jteerlink/SymptomSentinelAI-sub001/internal/service"
	"github.com/jteerlink/SymptomSentinelAI-sub001/migrations"
	"github.com/jteerlink/SymptomSentinelAI-sub001/pkg/database"
	"github.com/jteerlink/SymptomSentinelAI-sub001/pkg/health"
	"github.com/jteerlink/SymptomSentinelAI-sub001/pkg/kafka"
)

// tokenSweepInterval is how often expired refresh tokens are purged.
const tokenSweepInterval = time.Hour

// App holds the assembled service and its long-lived resources.
type App struct {
	cfg      *config.Config
	log      *slog.Logger
	pool     *pgxpool.Pool
	producer *kafka.Producer
	tokens   repository.RefreshTokenRepository
	server   *http.Server
}

// NewApp wires all dependencies from configuration.
func NewApp(ctx context.Context, cfg *config.Config, log *slog.Logger) (*App, error) {
	healthHandler := health.NewHandler()

	var (
		pool      *pgxpool.Pool
		userRepo  repository.UserRepository
		tokenRepo repository.RefreshTokenRepository
	)

	switch cfg.StoreBackend {
	case "postgres":
		pgCfg := cfg.PostgresConfig()
		var err error
		pool, err = database.NewPostgresPool(ctx, &pgCfg, log)
		if err != nil {
			return nil, fmt.Errorf("connecting to postgres: %w", err)
		}
		if err := database.RunMigrations(ctx, pool, migrations.FS, log); err != nil {
			pool.Close()
			return nil, fmt.Errorf("running migrations: %w", err)
		}
		userRepo = postgres.NewUserRepository(pool)
		tokenRepo = postgres.NewRefreshTokenRepository(pool)
		healthHandler.Register("postgres", pool.Ping)
	case "memory":
		log.Warn("using in-memory store, data will not survive restarts")
		userRepo = memory.NewUserRepository()
		tokenRepo = memory.NewRefreshTokenRepository()
	}

	producer := kafka.NewProducer(kafka.DefaultProducerConfig(cfg.KafkaBrokers), log)
	healthHandler.Register("kafka", producer.Ping)
	events := event.NewProducer(producer)

	codec := auth.NewJWTManager(cfg.JWTSecret, cfg.JWTAccessExpiry, cfg.JWTRefreshExpiry)
	issuer := auth.NewIssuer(codec, tokenRepo)
	refresher := auth.NewRefresher(codec, issuer, userRepo, tokenRepo, cfg.AuthStoreTimeout, log)
	resolver := auth.NewResolver(codec, userRepo, refresher, cfg.AuthStoreTimeout, log)

	limits := domain.QuotaLimits{FreeScansPerMonth: cfg.FreeScansPerMonth}
	tracker := quota.NewTracker(userRepo, limits, cfg.AuthStoreTimeout, log)

	userSvc := service.NewUserService(userRepo, tokenRepo, issuer, refresher, events, log)
	// The inference backend is external; until it is wired in, the
	// deterministic mock keeps the scan pipeline fully exercisable.
	scanSvc := service.NewScanService(analyzermock.New(), tracker, events, log)

	router := handler.NewRouter(handler.RouterConfig{
		Resolver:       resolver,
		Users:          userSvc,
		Scans:          scanSvc,
		Limits:         limits,
		SecureCookies:  cfg.SecureCookies,
		RefreshTTL:     cfg.JWTRefreshExpiry,
		RateLimitRPS:   cfg.RateLimitRPS,
		RateLimitBurst: cfg.RateLimitBurst,
		Health:         healthHandler,
		Logger:         log,
	})

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	return &App{
		cfg:      cfg,
		log:      log,
		pool:     pool,
		producer: producer,
		tokens:   tokenRepo,
		server:   server,
	}, nil
}

// Run starts the HTTP server and the token janitor, then blocks until
// the context is canceled or the server fails.
func (a *App) Run(ctx context.Context) error {
	janitorCtx, stopJanitor := context.WithCancel(ctx)
	defer stopJanitor()
	go a.sweepExpiredTokens(janitorCtx)

	errCh := make(chan error, 1)
	go func() {
		a.log.Info("http server listening", slog.String("addr", a.server.Addr))
		if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
		a.log.Info("shutdown signal received")
		return a.shutdown()
	}
}

// shutdown drains the HTTP server, then closes the producer and the
// database pool, in that order.
func (a *App) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()

	if err := a.server.Shutdown(ctx); err != nil {
		a.log.Error("http server shutdown", slog.String("error", err.Error()))
	}
	if err := a.producer.Close(); err != nil {
		a.log.Error("kafka producer close", slog.String("error", err.Error()))
	}
	if a.pool != nil {
		a.pool.Close()
	}
	a.log.Info("shutdown complete")
	return nil
}

// sweepExpiredTokens periodically deletes expired refresh tokens.
func (a *App) sweepExpiredTokens(ctx context.Context) {
	ticker := time.NewTicker(tokenSweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := a.tokens.DeleteExpired(ctx)
			if err != nil {
				a.log.Error("sweeping expired refresh tokens", slog.String("error", err.Error()))
				continue
			}
			if n > 0 {
				a.log.Info("expired refresh tokens deleted", slog.Int64("count", n))
			}
		}
	}
}
