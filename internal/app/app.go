// Package app wires the application together: two database pools, the Kafka
// producer, the transaction manager, services, and the HTTP server.
package app

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/inkwellhq/inkwell/internal/audit"
	"github.com/inkwellhq/inkwell/internal/auth"
	"github.com/inkwellhq/inkwell/internal/config"
	"github.com/inkwellhq/inkwell/internal/event"
	handler "github.com/inkwellhq/inkwell/internal/handler/http"
	"github.com/inkwellhq/inkwell/internal/maintenance"
	"github.com/inkwellhq/inkwell/internal/notecipher"
	"github.com/inkwellhq/inkwell/internal/notify"
	"github.com/inkwellhq/inkwell/internal/repository/postgres"
	"github.com/inkwellhq/inkwell/internal/rls"
	"github.com/inkwellhq/inkwell/internal/service"
	"github.com/inkwellhq/inkwell/migrations"
	"github.com/inkwellhq/inkwell/pkg/database"
	"github.com/inkwellhq/inkwell/pkg/health"
	pkgkafka "github.com/inkwellhq/inkwell/pkg/kafka"
	"github.com/inkwellhq/inkwell/pkg/middleware"
	"github.com/inkwellhq/inkwell/pkg/tracing"
)

// App holds the application's long-lived components.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	ownerPool      *pgxpool.Pool
	appPool        *pgxpool.Pool
	producer       *pkgkafka.Producer
	janitor        *maintenance.Janitor
	httpServer     *http.Server
	tracerShutdown func(context.Context) error
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	tracerShutdown, err := tracing.InitTracer(ctx, tracing.Config{
		ServiceName:    "inkwell-api",
		ServiceVersion: "0.1.0",
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.OTLPEndpoint,
		SampleRate:     1.0,
		Enabled:        cfg.OTLPEndpoint != "",
	})
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}

	// The owner pool runs migrations, pre-auth lookups, and system
	// operations. It connects as the schema owner and is not subject to row
	// security.
	ownerPool, err := newPool(ctx, cfg, cfg.PostgresOwnerUser, cfg.PostgresOwnerPass, logger)
	if err != nil {
		return nil, fmt.Errorf("connect owner pool: %w", err)
	}
	database.RegisterPoolMetrics(ownerPool, "inkwell_owner")

	if err := database.RunMigrations(ctx, ownerPool, migrations.FS, logger); err != nil {
		ownerPool.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	logger.Info("database migrations completed")

	// The app pool serves request transactions. It connects as a role the
	// row security policies apply to, so even a bad query cannot cross an
	// ownership boundary.
	appPool, err := newPool(ctx, cfg, cfg.PostgresAppUser, cfg.PostgresAppPass, logger)
	if err != nil {
		ownerPool.Close()
		return nil, fmt.Errorf("connect app pool: %w", err)
	}
	database.RegisterPoolMetrics(appPool, "inkwell_app")

	logger.Info("connected to PostgreSQL",
		slog.String("host", cfg.PostgresHost),
		slog.Int("port", cfg.PostgresPort),
		slog.String("database", cfg.PostgresDB),
	)

	if cfg.SlowQueryThreshold > 0 {
		database.SetSlowQueryLogging(cfg.SlowQueryThreshold, logger)
	}

	kafkaCfg := pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers)
	producer := pkgkafka.NewProducer(kafkaCfg, logger)
	logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))

	// Note content cipher. Keys were validated at config load.
	encKey, err := hex.DecodeString(cfg.NoteEncryptionKey)
	if err != nil {
		return nil, fmt.Errorf("decode note encryption key: %w", err)
	}
	macKey, err := hex.DecodeString(cfg.NoteMACKey)
	if err != nil {
		return nil, fmt.Errorf("decode note mac key: %w", err)
	}
	cipher, err := notecipher.New(encKey, macKey)
	if err != nil {
		return nil, fmt.Errorf("build note cipher: %w", err)
	}

	// Build the dependency graph.
	jwtManager := auth.NewJWTManager(cfg.JWTAccessSecret, cfg.JWTRefreshSecret, cfg.JWTAccessExpiry, cfg.JWTRefreshExpiry)
	txManager := rls.NewManager(appPool, logger)
	runner := rls.NewSystemRunner(ownerPool, logger)

	userRepo := postgres.NewUserRepository()
	tokenRepo := postgres.NewRefreshTokenRepository()
	noteRepo := postgres.NewNoteRepository()
	friendRepo := postgres.NewFriendshipRepository()
	shareRepo := postgres.NewNoteShareRepository()
	notificationRepo := postgres.NewNotificationRepository()
	securityEventRepo := postgres.NewSecurityEventRepository()

	recorder := audit.NewSystemRecorder(runner, securityEventRepo, logger)
	notifier := notify.NewSystemNotifier(runner, notificationRepo, logger)
	eventProducer := event.NewProducer(producer, logger)

	authService := service.NewAuthService(ownerPool, userRepo, tokenRepo, jwtManager, eventProducer, logger)
	noteService := service.NewNoteService(noteRepo, shareRepo, cipher, logger)
	friendService := service.NewFriendService(ownerPool, friendRepo, userRepo, notifier, eventProducer, logger)
	shareService := service.NewShareService(shareRepo, noteRepo, friendRepo, notifier, eventProducer, logger)
	notificationService := service.NewNotificationService(notificationRepo, logger)

	janitor := maintenance.NewJanitor(runner, tokenRepo, securityEventRepo, notificationRepo, cfg.MaintenanceInterval, logger)

	healthHandler := health.NewHandler()
	healthHandler.Register("postgres_owner", func(ctx context.Context) error {
		return ownerPool.Ping(ctx)
	})
	healthHandler.Register("postgres_app", func(ctx context.Context) error {
		return appPool.Ping(ctx)
	})
	healthHandler.Register("kafka", func(ctx context.Context) error {
		return producer.Ping(ctx)
	})

	router := handler.NewRouter(handler.RouterConfig{
		AuthService:         authService,
		NoteService:         noteService,
		FriendService:       friendService,
		ShareService:        shareService,
		NotificationService: notificationService,
		JWTManager:          jwtManager,
		TxManager:           txManager,
		Recorder:            recorder,
		HealthHandler:       healthHandler,
		Logger:              logger,
		CORS: middleware.CORSConfig{
			AllowedOrigins:   cfg.CORSAllowedOrigins,
			AllowCredentials: true,
			Environment:      cfg.Environment,
		},
		SecureCookies:  cfg.Environment != "development",
		RateLimitRPS:   cfg.RateLimitRPS,
		RateLimitBurst: cfg.RateLimitBurst,
	})

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return &App{
		cfg:            cfg,
		logger:         logger,
		ownerPool:      ownerPool,
		appPool:        appPool,
		producer:       producer,
		janitor:        janitor,
		httpServer:     httpServer,
		tracerShutdown: tracerShutdown,
	}, nil
}

// Run starts the HTTP server and maintenance loop, blocking until the
// context is canceled.
func (a *App) Run(ctx context.Context) error {
	janitorCtx, stopJanitor := context.WithCancel(ctx)
	defer stopJanitor()
	go a.janitor.Run(janitorCtx)

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		return err
	}

	return a.Shutdown()
}

// Shutdown stops components in order: drain HTTP, flush spans, close the
// producer, close the pools.
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	var errs []error

	httpCtx, httpCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer httpCancel()
	if err := a.httpServer.Shutdown(httpCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	if a.tracerShutdown != nil {
		tracerCtx, tracerCancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer tracerCancel()
		if err := a.tracerShutdown(tracerCtx); err != nil {
			a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	if err := a.producer.Close(); err != nil {
		a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	a.appPool.Close()
	a.ownerPool.Close()

	a.logger.Info("application shutdown complete")
	return errors.Join(errs...)
}

func newPool(ctx context.Context, cfg *config.Config, user, pass string, logger *slog.Logger) (*pgxpool.Pool, error) {
	pgCfg := database.DefaultPostgresConfig()
	pgCfg.Host = cfg.PostgresHost
	pgCfg.Port = cfg.PostgresPort
	pgCfg.User = user
	pgCfg.Password = pass
	pgCfg.DBName = cfg.PostgresDB
	pgCfg.SSLMode = cfg.PostgresSSL
	return database.NewPostgresPoolWithLogger(ctx, &pgCfg, logger)
}
