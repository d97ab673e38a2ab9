package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/arbiter-backend/internal/ai"
	"github.com/ignatzorin/arbiter-backend/internal/config"
	"github.com/ignatzorin/arbiter-backend/internal/db"
	httpHandlers "github.com/ignatzorin/arbiter-backend/internal/http/handlers"
	httpRouter "github.com/ignatzorin/arbiter-backend/internal/http/router"
	"github.com/ignatzorin/arbiter-backend/internal/logger"
	"github.com/ignatzorin/arbiter-backend/internal/repository"
	"github.com/ignatzorin/arbiter-backend/internal/service"
	"github.com/ignatzorin/arbiter-backend/internal/speech"
	"github.com/ignatzorin/arbiter-backend/internal/storage"
	"github.com/ignatzorin/arbiter-backend/internal/ws"
)

func main() {
	// Готовим контекст для graceful shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("main: ошибка загрузки конфигурации: %v", err)
	}

	// Инициализация логгера
	logLevel := "info"
	if cfg.Env == "development" {
		logLevel = "debug"
		logger.Init(logLevel)
		logger.SetTextFormatter()
	} else {
		logger.Init(logLevel)
	}

	// Подключение к базе и миграции.
	dbConn, err := db.NewPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("main: ошибка подключения к базе: %v", err)
	}
	defer safeClose(dbConn)

	if err := db.RunMigrations(ctx, dbConn, cfg.MigrationsPath); err != nil {
		log.Fatalf("main: ошибка миграций: %v", err)
	}

	tokenManager := service.NewTokenManager(cfg.JWTSecret, cfg.RefreshSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)

	// Объектное хранилище медиа. Без него сервис работает, но реплики и
	// вердикты остаются без аудио.
	var media service.MediaPublisher
	if cfg.S3Bucket != "" {
		mediaStorage, err := storage.NewMediaStorage(ctx, cfg.S3Bucket, cfg.S3Region, cfg.MediaURLTTL, cfg.UploadURLTTL)
		if err != nil {
			log.Fatalf("main: не удалось подготовить хранилище медиа: %v", err)
		}
		media = mediaStorage
	} else {
		log.Printf("main: S3_BUCKET не задан, публикация аудио отключена")
	}

	// Внешние AI сервисы: судья, распознавание и синтез речи.
	var generator service.VerdictGenerator
	if cfg.AIBaseURL != "" && cfg.AIModel != "" {
		generator = ai.NewClient(cfg.AIBaseURL, cfg.AIModel)
	} else {
		log.Printf("main: AI_BASE_URL не задан, разбирательство отключено")
	}

	var transcriber service.TranscriptionProvider
	if cfg.STTBaseURL != "" {
		transcriber = speech.NewTranscriber(cfg.STTBaseURL, cfg.STTModel)
	}

	var synth service.SpeechSynthesizer
	if cfg.TTSBaseURL != "" {
		synth = speech.NewSynthesizer(cfg.TTSBaseURL)
	}

	// Репозитории.
	userRepo := repository.NewUserRepository(dbConn)
	disputeRepo := repository.NewDisputeRepository(dbConn)
	turnRepo := repository.NewTurnRepository(dbConn)
	verdictRepo := repository.NewVerdictRepository(dbConn)

	// Сервисы.
	authService := service.NewAuthService(userRepo, tokenManager)
	entitlementService := service.NewEntitlementService(userRepo, turnRepo)
	disputeService := service.NewDisputeService(disputeRepo, turnRepo, verdictRepo, entitlementService, transcriber, media)
	judgmentService := service.NewJudgmentService(disputeRepo, turnRepo, verdictRepo, generator, synth, media, entitlementService)

	// Вебсокеты: push о готовом вердикте.
	hub := ws.NewHub(ctx)
	go hub.Run()
	judgmentService.SetNotifier(hub)

	// HTTP хэндлеры.
	authHandler := httpHandlers.NewAuthHandler(authService)
	disputeHandler := httpHandlers.NewDisputeHandler(disputeService, cfg.MaxUploadSizeMB)
	judgmentHandler := httpHandlers.NewJudgmentHandler(judgmentService, disputeService)
	entitlementHandler := httpHandlers.NewEntitlementHandler(entitlementService)
	healthHandler := httpHandlers.NewHealthHandler(dbConn)
	wsHandler := httpHandlers.NewWSHandler(hub, tokenManager)

	// Роутер.
	engine := httpRouter.SetupRouter(cfg, authHandler, disputeHandler, judgmentHandler, entitlementHandler, healthHandler, wsHandler, tokenManager)

	server := &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: engine,
	}

	// Завершаем сервер при получении сигнала.
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("main: ошибка остановки http сервера: %v", err)
		}
	}()

	log.Printf("main: HTTP сервер запущен на порту %s", cfg.HTTPPort)

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("main: сервер завершился с ошибкой: %v", err)
	}
}

// safeClose закрывает соединение с базой.
func safeClose(db *sqlx.DB) {
	if err := db.Close(); err != nil {
		log.Printf("main: ошибка закрытия базы: %v", err)
	}
}
