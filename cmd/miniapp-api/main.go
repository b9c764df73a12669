package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	goredis "github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/telewell/miniapp-api/config"
	"github.com/telewell/miniapp-api/internal/bootstrap"
	"github.com/telewell/miniapp-api/internal/observability/statsd"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger := bootstrap.InitLogger(false)
	if err := run(ctx, logger); err != nil {
		logger.ErrorContext(ctx, "fatal error", "error", err)
		os.Exit(1) //nolint:forbidigo // Main entrypoint should exit with non-zero status on fatal errors.
	}
}

func run(ctx context.Context, logger *slog.Logger) error {
	cfg, err := bootstrap.LoadConfig()
	if err != nil {
		return err
	}
	if cfg.IsDev {
		logger = bootstrap.InitLogger(true)
	}
	logger.InfoContext(ctx, "starting miniapp-api",
		"addr", cfg.HTTP.Addr,
		"rate_limit_backend", string(cfg.RateLimit.Backend))

	pool, err := bootstrap.ConnectDB(cfg.Postgres, logger)
	if err != nil {
		return fmt.Errorf("connect db: %w", err)
	}
	defer pool.Close()

	var redisClient *goredis.Client
	if cfg.RateLimit.Backend == config.RateLimitBackendRedis {
		redisClient, err = bootstrap.ConnectRedis(cfg.Redis, logger)
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		defer func() {
			if cerr := redisClient.Close(); cerr != nil {
				logger.Error("close redis failed", "error", cerr)
			}
		}()
	}

	metricsSink, err := statsd.NewClient(statsd.Config{
		Enabled: cfg.Observability.Metrics.IsEnabled(),
		Address: cfg.Observability.Metrics.StatsdAddress,
		Prefix:  "miniapp_api",
		Logger:  logger,
	})
	if err != nil {
		return fmt.Errorf("init metrics: %w", err)
	}
	defer func() {
		if cerr := metricsSink.Close(); cerr != nil {
			logger.Error("close metrics sink failed", "error", cerr)
		}
	}()

	servicesCfg := bootstrap.ServicesConfig{
		Config: &cfg,
		Pool:   pool,
		Logger: logger,
	}
	if redisClient != nil {
		servicesCfg.Redis = redisClient
	}
	services := bootstrap.InitServices(servicesCfg)

	server := bootstrap.StartHTTPServer(&bootstrap.HTTPServerConfig{
		Config:   &cfg,
		Services: services,
		Metrics:  metricsSink,
		Logger:   logger,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		<-gctx.Done()
		return bootstrap.ShutdownHTTPServer(bootstrap.ShutdownConfig{
			Context: context.Background(),
			Server:  server,
			Logger:  logger,
		})
	})
	return g.Wait()
}
