package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"chairbook/internal/backend"
	"chairbook/internal/config"
	"chairbook/internal/database"
	"chairbook/internal/domain"
	"chairbook/internal/export"
	"chairbook/internal/google"
	"chairbook/internal/logging"
	"chairbook/internal/notifier"
	"chairbook/internal/repository"
	"chairbook/internal/service"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
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
		defer (func(c io.Closer) { _ = c.Close() })(closer)
	}

	if !cfg.Notifier.Enabled {
		logger.Warn().Msg("Notifier is disabled in config, nothing to do")
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := backend.NewClient(cfg.Backend, &logger)
	if redisClient := repository.NewRedisClient(cfg.Redis); redisClient != nil {
		if err := repository.Ping(ctx, redisClient); err != nil {
			logger.Warn().Err(err).Msg("redis connection failed, continuing without redis")
		} else {
			defer func() { _ = repository.Close(redisClient) }()
			client.UseRedisCache(redisClient, time.Duration(cfg.Redis.CacheTTL)*time.Second)
		}
	}

	var store domain.SnapshotStore = repository.NewMemoryStore()
	if cfg.Database.Path != "" {
		db, err := database.NewDB(cfg.Database.Path, &logger)
		if err != nil {
			logger.Error().Err(err).Str("db_path", cfg.Database.Path).Msg("init database")
			return err
		}
		defer db.Close()
		store = db
	}

	source := repository.NewFailoverSource(client, store, &logger)
	schedule := service.NewScheduleService(source, cfg.SlotGenerator(), cfg.Location(), &logger)
	bookings := service.NewBookingService(source, &logger)

	botAPI, err := tgbotapi.NewBotAPI(cfg.Notifier.BotToken)
	if err != nil {
		logger.Error().Err(err).Msg("create telegram bot api")
		return err
	}

	n, err := notifier.New(cfg.Notifier, bookings, schedule, botAPI, &logger)
	if err != nil {
		return err
	}
	n.UseArchiver(export.New(cfg.Exports.Path, &logger))
	if sheets := initGoogleSheets(ctx, cfg, &logger); sheets != nil {
		n.UsePublisher(sheets)
	}

	if os.Getenv("NOTIFIER_RUN_ONCE") != "" {
		return n.RunOnce(ctx)
	}

	logger.Info().Str("run_time", cfg.Notifier.RunTime).Msg("Notifier started")
	n.Run(ctx)
	logger.Info().Msg("Shutdown complete.")
	return nil
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
	logger := baseLogger.With().Str("component", "notifier-main").Logger()

	return cfg, logger, closer, nil
}

func initGoogleSheets(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) *google.SheetsService {
	if cfg.Google.GoogleCredentialsFile == "" || cfg.Google.ScheduleSpreadSheetID == "" {
		return nil
	}

	sheets, err := google.NewSheetsService(ctx, cfg.Google.GoogleCredentialsFile, cfg.Google.ScheduleSpreadSheetID, logger)
	if err != nil {
		logger.Warn().Err(err).Msg("google sheets init failed, continuing without sheets")
		return nil
	}
	if err := sheets.TestConnection(ctx); err != nil {
		if email, emailErr := google.ServiceAccountEmail(cfg.Google.GoogleCredentialsFile); emailErr == nil {
			logger.Warn().Err(err).Str("share_with", email).Msg("google sheets not reachable, continuing without sheets")
		} else {
			logger.Warn().Err(err).Msg("google sheets not reachable, continuing without sheets")
		}
		return nil
	}

	logger.Info().Msg("google sheets connected")
	return sheets
}
