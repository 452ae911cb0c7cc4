package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	cacheadapter "github.com/citadelle/account-security-service/internal/adapters/cache"
	grpcadapter "github.com/citadelle/account-security-service/internal/adapters/grpc"
	httpadapter "github.com/citadelle/account-security-service/internal/adapters/http"
	notifyadapter "github.com/citadelle/account-security-service/internal/adapters/notify"
	"github.com/citadelle/account-security-service/internal/adapters/postgres"
	"github.com/citadelle/account-security-service/internal/adapters/security"
	"github.com/citadelle/account-security-service/internal/application"
	"github.com/citadelle/account-security-service/internal/domain"
	"github.com/citadelle/account-security-service/internal/ports"
)

type Runtime struct {
	cfg        Config
	logger     *slog.Logger
	service    *application.Service
	httpServer *http.Server
	grpcServer *grpc.Server
	grpcLis    net.Listener
	dispatcher *notifyadapter.DispatcherWorker
	cleanupFn  func(context.Context)
}

func NewRuntime(ctx context.Context, configPath string) (*Runtime, error) {
	cfg, err := LoadConfig(configPath)
	if err != nil {
		return nil, err
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)
	logger.Info("bootstrapping account security service", "http_port", cfg.HTTPPort, "grpc_port", cfg.GRPCPort)

	pool, err := postgres.Connect(ctx, cfg.DatabaseURL, cfg.MaxDBConns)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	sqlDB, err := pool.DB()
	if err != nil {
		return nil, fmt.Errorf("gorm sql db: %w", err)
	}

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	redisClient, err := cacheadapter.Connect(ctx, cfg.RedisURL)
	if err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("init redis client: %w", err)
	}
	if err := redisClient.Ping(ctx).Err(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("connect redis: %w", err)
	}

	repos := postgres.NewRepositories(pool)
	tokenSigner, err := security.NewJWTSigner(cfg.JWTKeyID, cfg.JWTPrivateKeyPEM, cfg.JWTPublicKeyPEM)
	if err != nil {
		if !cfg.AllowEphemeralJWT {
			_ = sqlDB.Close()
			_ = redisClient.Close()
			return nil, fmt.Errorf("init jwt signer: %w", err)
		}
		logger.Warn("using ephemeral JWT keys for local/dev runtime")
		tokenSigner, err = security.NewEphemeralJWTSigner(cfg.JWTKeyID)
		if err != nil {
			_ = sqlDB.Close()
			_ = redisClient.Close()
			return nil, fmt.Errorf("init ephemeral jwt signer: %w", err)
		}
	}

	svc := application.NewService(application.Dependencies{
		Config: application.Config{
			PolicyCacheTTL:          cfg.PolicyCacheTTL,
			NotificationMaxAttempts: cfg.NotificationMaxAttempts,
			PolicyDefaults:          cfg.PolicyDefaults,
		},
		Policies:      repos.Policies,
		Accounts:      repos.Accounts,
		LoginAttempts: repos.LoginAttempts,
		Lockouts:      repos.Lockouts,
		Sessions:      repos.Sessions,
		History:       repos.PasswordHistory,
		ResetTokens:   repos.ResetTokens,
		Notifications: repos.Notifications,
		Routes:        repos.Routes,
		PolicyCache:   cacheadapter.NewRedisPolicyCache(redisClient),
		Revocations:   cacheadapter.NewRedisSessionRevocationStore(redisClient),
		Hasher:        security.NewBcryptHasher(cfg.BcryptCost),
		TokenSigner:   tokenSigner,
	})

	handler := httpadapter.NewHandler(svc)
	router := httpadapter.NewRouter(handler)
	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	grpcServer := grpc.NewServer()
	healthSrv := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthSrv)
	healthSrv.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	grpcadapter.Register(grpcServer, grpcadapter.NewSecurityInternalServer(svc))

	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.GRPCPort))
	if err != nil {
		_ = sqlDB.Close()
		_ = redisClient.Close()
		return nil, fmt.Errorf("listen gRPC: %w", err)
	}

	logSender := notifyadapter.NewLogSender(logger)
	dispatcher := notifyadapter.NewDispatcherWorker(
		logger,
		repos.Notifications,
		map[domain.NotificationChannel]ports.ChannelSender{
			domain.ChannelEmail:   logSender,
			domain.ChannelSMS:     logSender,
			domain.ChannelWebhook: logSender,
		},
		cfg.DispatchPollInterval,
		cfg.DispatchBatchSize,
		cfg.DispatchClaimTTL,
	)

	return &Runtime{
		cfg:        cfg,
		logger:     logger,
		service:    svc,
		httpServer: httpServer,
		grpcServer: grpcServer,
		grpcLis:    lis,
		dispatcher: dispatcher,
		cleanupFn: func(ctx context.Context) {
			_ = redisClient.Close()
			_ = sqlDB.Close()
		},
	}, nil
}

func (r *Runtime) RunAPI(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 2)
	go func() {
		r.logger.Info("http server started", "addr", r.httpServer.Addr)
		if err := r.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()
	go func() {
		r.logger.Info("grpc server started", "addr", r.grpcLis.Addr().String())
		if err := r.grpcServer.Serve(r.grpcLis); err != nil {
			errCh <- fmt.Errorf("grpc server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		r.logger.Info("shutdown signal received")
	case err := <-errCh:
		r.logger.Error("server failure", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = r.httpServer.Shutdown(shutdownCtx)
	r.grpcServer.GracefulStop()
	r.cleanupFn(shutdownCtx)
	return nil
}

// RunWorker runs the notification dispatcher together with the periodic
// expired-session sweep until context cancellation.
func (r *Runtime) RunWorker(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	go r.sessionCleanupLoop(ctx)

	r.logger.Info("notification dispatcher started")
	err := r.dispatcher.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	r.cleanupFn(shutdownCtx)
	return nil
}

func (r *Runtime) sessionCleanupLoop(ctx context.Context) {
	ticker := time.NewTicker(r.cfg.SessionCleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		removed, err := r.service.CleanupExpiredSessions(ctx)
		if err != nil {
			r.logger.ErrorContext(ctx, "session cleanup failed",
				"module", "bootstrap",
				"layer", "app",
				"operation", "session_cleanup",
				"outcome", "failure",
				"error", err,
			)
			continue
		}
		if removed > 0 {
			r.logger.InfoContext(ctx, "expired sessions removed",
				"module", "bootstrap",
				"layer", "app",
				"operation", "session_cleanup",
				"outcome", "success",
				"removed_count", removed,
			)
		}
	}
}
