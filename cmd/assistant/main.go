package main

import (
	"context"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"clinicbot/internal/api"
	"clinicbot/internal/chat"
	"clinicbot/internal/config"
	"clinicbot/internal/database"
	"clinicbot/internal/domain"
	"clinicbot/internal/events"
	"clinicbot/internal/google"
	"clinicbot/internal/logging"
	"clinicbot/internal/metrics"
	"clinicbot/internal/models"
	"clinicbot/internal/notify"
	"clinicbot/internal/rag"
	"clinicbot/internal/repository"
	"clinicbot/internal/service"
	"clinicbot/internal/telegram"
	"clinicbot/internal/worker"

	"github.com/redis/go-redis/v9"
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

	db, err := database.NewDB(cfg.Database.Path, logger)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to initialize database")
		return err
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metrics.Register()

	redisClient, sessions := initSessionService(ctx, cfg, logger)
	if redisClient != nil {
		defer repository.Close(redisClient)
	}

	eventBus := events.NewEventBus()

	if sheetsWorker := initSheetsMirror(ctx, cfg, logger); sheetsWorker != nil {
		sheetsWorker.Subscribe(eventBus)
	}

	answerer := initAnswerer(ctx, cfg, logger)
	notifier := initNotifier(cfg, logger)

	engine := chat.NewEngine(sessions, db, answerer, notifier, eventBus, cfg.Chat.ClinicName, logger)

	if cfg.Telegram.BotToken != "" {
		gateway, err := telegram.New(cfg.Telegram, engine, logger)
		if err != nil {
			logger.Error().Err(err).Msg("Failed to start Telegram gateway")
		} else {
			go gateway.Start(ctx)
		}
	}

	server := api.NewServer(*cfg, db, engine, sessions, eventBus, logger)
	go func() {
		if err := server.Start(); err != nil {
			logger.Error().Err(err).Msg("HTTP server error")
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("HTTP server shutdown error")
	}

	logger.Info().Msg("Shutdown complete.")
	return nil
}

func loadConfigAndLogger() (*config.Config, *zerolog.Logger, io.Closer, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, nil, err
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return nil, nil, nil, err
	}
	logger := baseLogger.With().Str("component", "assistant-main").Logger()

	return cfg, &logger, closer, nil
}

func initSessionService(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (*redis.Client, *service.SessionService) {
	ttl := time.Duration(cfg.Chat.SessionTTLHours) * time.Hour
	if ttl <= 0 {
		ttl = time.Duration(models.DefaultSessionTTL) * time.Second
	}

	var redisClient *redis.Client
	if cfg.Redis.Address != "" {
		redisClient = repository.NewRedisClient(cfg.Redis)
		if errPing := repository.Ping(ctx, redisClient); errPing != nil {
			logger.Warn().Err(errPing).Msg("Redis unavailable")
		}
	}

	fallback := repository.NewMemoryStateRepository(ttl)
	var stateRepo domain.StateRepository = fallback
	if redisClient != nil {
		primary := repository.NewRedisStateRepository(redisClient, ttl)
		stateRepo = repository.NewFailoverStateRepository(primary, fallback, logger)
	}

	return redisClient, service.NewSessionService(stateRepo, logger)
}

func initSheetsMirror(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) *worker.SheetsWorker {
	if cfg.Google.CredentialsFile == "" || cfg.Google.BookingSpreadSheetID == "" {
		logger.Info().Msg("Google Sheets mirror disabled")
		return nil
	}

	sheetsSvc, err := google.NewSheetsService(cfg.Google.CredentialsFile, cfg.Google.BookingSpreadSheetID)
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to initialize Google Sheets service")
		return nil
	}
	if err := sheetsSvc.TestConnection(ctx); err != nil {
		logger.Error().Err(err).Msg("Google Sheets connection test failed")
		return nil
	}

	retryPolicy := worker.RetryPolicy{MaxRetries: 5, InitialDelay: 2 * time.Second, MaxDelay: time.Minute, BackoffFactor: 2}
	sheetsWorker := worker.NewSheetsWorker(sheetsSvc, retryPolicy, logger)
	go sheetsWorker.Start(ctx)

	logger.Info().Msg("Google Sheets mirror initialized")
	return sheetsWorker
}

func initAnswerer(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) domain.Answerer {
	if cfg.Knowledge.OpenAIKey == "" {
		logger.Warn().Msg("OpenAI key not configured, document Q&A disabled")
		return nil
	}

	answerer, err := rag.New(ctx, cfg.Knowledge, cfg.Chat.ClinicName, logger)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to initialize answerer")
		return nil
	}
	return answerer
}

func initNotifier(cfg *config.Config, logger *zerolog.Logger) domain.Notifier {
	sender := notify.NewSendGridSender(cfg.Email, logger)
	if sender == nil {
		logger.Warn().Msg("SendGrid key not configured, email notifications disabled")
		return nil
	}
	return notify.NewService(sender, cfg.Chat.ClinicName, cfg.Email.StaffEmail, logger)
}
