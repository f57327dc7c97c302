package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"chairbook/internal/api"
	"chairbook/internal/backend"
	"chairbook/internal/config"
	"chairbook/internal/database"
	"chairbook/internal/domain"
	"chairbook/internal/export"
	"chairbook/internal/logging"
	"chairbook/internal/metrics"
	"chairbook/internal/repository"
	"chairbook/internal/service"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	healthPollInterval = 15 * time.Second
	snapshotRetention  = 30 * 24 * time.Hour
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	cfg, logger, closer, err := loadConfigAndLogger()
	if err != nil {
		return err
	}
	if closer != nil {
		defer (func() { _ = closer.Close() })()
	}

	if !cfg.API.Enabled {
		logger.Warn().Msg("API is disabled in config, but starting API application. Check your config.")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	redisClient := initRedis(ctx, cfg, &logger)
	if redisClient != nil {
		defer func() { _ = repository.Close(redisClient) }()
	}

	client := backend.NewClient(cfg.Backend, &logger)
	if redisClient != nil {
		client.UseRedisCache(redisClient, time.Duration(cfg.Redis.CacheTTL)*time.Second)
	}

	store, db, err := initSnapshotStore(cfg, &logger)
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
		go purgeSnapshots(ctx, db, &logger)
	}

	source := repository.NewFailoverSource(client, store, &logger)
	schedule := service.NewScheduleService(source, cfg.SlotGenerator(), cfg.Location(), &logger)
	bookings := service.NewBookingService(source, &logger)
	exporter := export.New(cfg.Exports.Path, &logger)

	httpServer := api.NewHTTPServer(cfg.API, schedule, bookings, exporter, &logger)

	var grpcServer *api.GRPCServer
	if cfg.API.GRPC.Enabled {
		grpcServer, err = api.NewGRPCServer(cfg.API, &logger)
		if err != nil {
			logger.Error().Err(err).Msg("create grpc server")
			return err
		}
		go watchBackend(ctx, source, grpcServer)
	}

	startMetrics(ctx, cfg, &logger)

	return startServers(ctx, grpcServer, httpServer, cfg, &logger)
}

func loadConfigAndLogger() (*config.Config, zerolog.Logger, io.Closer, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, zerolog.Logger{}, nil, fmt.Errorf("load config: %w", err)
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return nil, zerolog.Logger{}, nil, fmt.Errorf("init logger: %w", err)
	}
	logger := baseLogger.With().Str("component", "api-main").Logger()

	return cfg, logger, closer, nil
}

func initRedis(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) *redis.Client {
	redisClient := repository.NewRedisClient(cfg.Redis)
	if redisClient == nil {
		return nil
	}

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := repository.Ping(pingCtx, redisClient); err != nil {
		logger.Warn().Err(err).Msg("redis connection failed, continuing without redis")
		_ = redisClient.Close()
		return nil
	}

	logger.Info().Str("addr", cfg.Redis.Address).Msg("redis connected")
	return redisClient
}

// initSnapshotStore opens the SQLite snapshot when a path is configured, else keeps snapshots in memory.
func initSnapshotStore(cfg *config.Config, logger *zerolog.Logger) (domain.SnapshotStore, *database.DB, error) {
	if cfg.Database.Path == "" {
		logger.Info().Msg("no snapshot database configured, using in-memory snapshot")
		return repository.NewMemoryStore(), nil, nil
	}

	db, err := database.NewDB(cfg.Database.Path, logger)
	if err != nil {
		logger.Error().Err(err).Str("db_path", cfg.Database.Path).Msg("init database")
		return nil, nil, err
	}
	return db, db, nil
}

func purgeSnapshots(ctx context.Context, db *database.DB, logger *zerolog.Logger) {
	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()

	for {
		n, err := db.PurgeBookingsBefore(ctx, time.Now().Add(-snapshotRetention))
		if err != nil {
			logger.Warn().Err(err).Msg("purge snapshot bookings")
		} else if n > 0 {
			logger.Info().Int64("rows", n).Msg("old snapshot bookings purged")
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// watchBackend reports NOT_SERVING for the schedule service while reads are served from the snapshot.
func watchBackend(ctx context.Context, source *repository.FailoverSource, grpcServer *api.GRPCServer) {
	ticker := time.NewTicker(healthPollInterval)
	defer ticker.Stop()

	for {
		grpcServer.SetServing(!source.Down())
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func startMetrics(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) {
	if !cfg.Monitoring.PrometheusEnabled {
		return
	}

	metrics.Register()
	go startMetricsServer(ctx, cfg.Monitoring.PrometheusPort, logger)
}

func startServers(
	ctx context.Context,
	grpcServer *api.GRPCServer,
	httpServer *api.HTTPServer,
	cfg *config.Config,
	logger *zerolog.Logger,
) error {
	if grpcServer != nil {
		go func() {
			if err := grpcServer.Serve(); err != nil {
				logger.Error().Err(err).Msg("grpc server stopped")
			}
		}()
	}

	go func() {
		if !cfg.API.HTTP.Enabled {
			return
		}
		if err := httpServer.Start(); err != nil {
			logger.Error().Err(err).Msg("http server stopped")
		}
	}()

	event := logger.Info().Int("http_port", cfg.API.HTTP.Port)
	if grpcServer != nil {
		event = event.Str("grpc_addr", grpcServer.Addr())
	}
	event.Msg("API server started")

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if grpcServer != nil {
		grpcServer.Shutdown(shutdownCtx)
	}
	_ = httpServer.Shutdown(shutdownCtx)

	logger.Info().Msg("API server stopped")
	return nil
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error().Err(err).Msg("metrics server error")
	}
}
