package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/maratonas-femininas/maratonas/internal/config"
	"github.com/maratonas-femininas/maratonas/internal/infra"
	"github.com/maratonas-femininas/maratonas/internal/logging"
	"github.com/maratonas-femininas/maratonas/internal/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.LogLevel)
	if err := run(cfg, logger); err != nil {
		logger.Error("authority stopped", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("authority exited cleanly")
}

// run connects the optional backing stores, serves until SIGINT/SIGTERM and
// drains in-flight requests within cfg.ShutdownPeriod.
func run(cfg config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var db *pgxpool.Pool
	if cfg.DatabaseURL != "" {
		pool, err := infra.NewPostgresPool(ctx, cfg.DatabaseURL, cfg.AppName)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer pool.Close()
		if err := infra.Migrate(ctx, pool); err != nil {
			return fmt.Errorf("migrate postgres: %w", err)
		}
		db = pool
	} else {
		logger.Warn("DATABASE_URL not set, accounts and competitions live in memory")
	}

	var cache *redis.Client
	if cfg.RedisURL != "" {
		client, err := infra.NewRedisClient(ctx, cfg.RedisURL, cfg.AppName)
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		defer func() {
			if err := client.Close(); err != nil {
				logger.Warn("close redis", slog.Any("error", err))
			}
		}()
		cache = client
	} else {
		logger.Warn("REDIS_URL not set, login throttling and idempotency disabled")
	}

	srv, err := server.New(cfg, db, cache, logger)
	if err != nil {
		return fmt.Errorf("build server: %w", err)
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Listen() }()
	logger.Info("authority listening", slog.String("addr", cfg.Address()), slog.String("env", cfg.AppEnv))

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownPeriod)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
