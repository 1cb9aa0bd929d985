// cmd/pizza-service/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"pizza-service/internal/common/aws"
	"pizza-service/internal/common/config"
	"pizza-service/internal/common/database"
	"pizza-service/internal/common/logger"
	"pizza-service/internal/common/metrics"
	"pizza-service/internal/common/observability"
	"pizza-service/internal/credentials"
	"pizza-service/internal/fulfillment"
	"pizza-service/internal/repository"
	"pizza-service/internal/server"
	"pizza-service/internal/service"
	"pizza-service/internal/session"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	bootLog := logger.New("info", "console", "stderr")

	cfg, err := config.Load()
	if err != nil {
		bootLog.Fatal("config load failed", zap.Error(err))
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting pizza service...",
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Environment),
	)
	if cfg.App.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx := context.Background()

	// --- Metrics ---
	reg := metrics.NewRegistry(cfg.Metrics.Source).WithRuntimeCollectors()
	obs, err := observability.New(cfg.App.Name, reg.Registerer())
	if err != nil {
		zapLog.Fatal("observability init failed", zap.Error(err))
	}
	defer obs.Shutdown(ctx)

	// --- Init PostgreSQL with retry ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")
	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()
	zapLog.Info("PostgreSQL connected successfully")

	if cfg.Database.Postgres.EnsureSchema {
		if err := repository.EnsureSchema(ctx, pg.DB); err != nil {
			zapLog.Fatal("schema setup failed", zap.Error(err))
		}
	}

	// --- Session store ---
	var rdb redis.Cmdable
	if cfg.Auth.SessionStore == config.SessionStoreRedis {
		var rc *database.RedisClient
		err = retryWithBackoff(func() error {
			var err error
			rc, err = database.NewRedis(cfg.Database.Redis)
			if err != nil {
				return err
			}
			return rc.Ping(ctx)
		}, 10, 2*time.Second, zapLog, "Redis connection")
		if err != nil {
			zapLog.Fatal("redis failed after retries", zap.Error(err))
		}
		defer rc.Close()
		rdb = rc.GetClient()
		zapLog.Info("Redis connected successfully")
	}

	sessionStore, err := session.NewStore(cfg.Auth.SessionStore, pg.DB, rdb)
	if err != nil {
		zapLog.Fatal("session store init failed", zap.Error(err))
	}

	// --- Order notifications ---
	notifier := fulfillment.NoopNotifier()
	if cfg.Integrations.AWS.SNS.Enabled {
		snsClient, err := aws.NewSNSClient(ctx, cfg.Integrations.AWS.Region, cfg.Integrations.AWS.SNS.TopicARN)
		if err != nil {
			zapLog.Fatal("sns client init failed", zap.Error(err))
		}
		notifier = fulfillment.NewSNSNotifier(snsClient)
		zapLog.Info("SNS order notifications enabled", zap.String("topic", cfg.Integrations.AWS.SNS.TopicARN))
	}

	// --- Components ---
	repo := repository.New(pg.DB, log)
	creds := credentials.NewStore(repo, cfg.Auth.BcryptCost, log)
	sessions := session.NewRegistry(sessionStore, cfg.Auth.JWTSecret, cfg.Auth.Issuer,
		config.GetDuration(cfg.Auth.TokenTTL), log)
	factory := fulfillment.NewHTTPFactory(cfg.Factory.URL, cfg.Factory.APIKey, config.GetDuration(cfg.Factory.Timeout))
	coordinator := fulfillment.NewCoordinator(repo, factory, notifier, reg, obs, log)
	chaos := server.NewChaos(nil)

	if admin := cfg.Auth.BootstrapAdmin; admin.Enabled {
		created, err := creds.EnsureAdmin(ctx, admin.Name, admin.Email, admin.Password)
		if err != nil {
			zapLog.Fatal("bootstrap admin failed", zap.Error(err))
		}
		zapLog.Info("Bootstrap admin checked", zap.String("email", admin.Email), zap.Bool("created", created))
	}

	janitorCtx, stopJanitor := context.WithCancel(ctx)
	defer stopJanitor()
	if cfg.Auth.TokenTTL > 0 && cfg.Auth.SessionPruneInterval > 0 {
		go sessions.RunJanitor(janitorCtx, config.GetDuration(cfg.Auth.SessionPruneInterval))
	}

	svc := service.New(service.Dependencies{
		Credentials: creds,
		Sessions:    sessions,
		Repository:  repo,
		Orders:      coordinator,
		Recorder:    reg,
		Chaos:       chaos,
		Logger:      log,
	}, service.Options{
		FranchisePageSize: cfg.Pagination.Franchises,
		OrderPageSize:     cfg.Pagination.Orders,
	})

	deps := server.Deps{
		API:    svc,
		Chaos:  chaos,
		Obs:    obs,
		Logger: log,
		Info: server.Info{
			Version:    cfg.App.Version,
			FactoryURL: cfg.Factory.URL,
			DBHost:     cfg.Database.Postgres.Host,
		},
	}
	if cfg.Metrics.Enabled {
		deps.Metrics = reg
		deps.MetricsPath = cfg.Metrics.Path
	}
	srv, err := server.New(deps)
	if err != nil {
		zapLog.Fatal("http server init failed", zap.Error(err))
	}

	httpServer := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      srv.Handler(),
		ReadTimeout:  config.GetDuration(cfg.Server.ReadTimeout),
		WriteTimeout: config.GetDuration(cfg.Server.WriteTimeout),
	}

	go func() {
		zapLog.Info("HTTP server listening", zap.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLog.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, draining requests...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.GetDuration(cfg.Server.ShutdownTimeout))
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error shutting down HTTP server", zap.Error(err))
	}

	zapLog.Info("Pizza service stopped gracefully")
}
