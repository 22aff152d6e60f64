package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/incident-report-service/internal/api/http"
	"github.com/spec-kit/incident-report-service/internal/api/http/handlers"
	"github.com/spec-kit/incident-report-service/internal/auth"
	"github.com/spec-kit/incident-report-service/internal/config"
	"github.com/spec-kit/incident-report-service/internal/events"
	"github.com/spec-kit/incident-report-service/internal/observability"
	"github.com/spec-kit/incident-report-service/internal/persistence"
	"github.com/spec-kit/incident-report-service/internal/repository"
	"github.com/spec-kit/incident-report-service/internal/service"
	"github.com/spec-kit/incident-report-service/internal/upload"
	"github.com/spec-kit/incident-report-service/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	pool := pg.PoolHandle()
	userRepo := repository.NewUserRepository(pool)
	resetRepo := repository.NewPasswordResetRepository(pool)
	reportRepo := repository.NewReportRepository(pool)
	auditRepo := repository.NewReportAuditRepository(pool)
	conversationRepo := repository.NewConversationRepository(pool)
	messageRepo := repository.NewMessageRepository(pool)

	uploadStore, err := upload.NewDiskStore(cfg.Upload)
	if err != nil {
		logger.Fatal("failed to init upload store", zap.Error(err))
	}

	dispatcher := events.NewInMemoryDispatcher()

	authService := service.NewAuthService(*cfg, service.AuthDependencies{
		UserRepo:          userRepo,
		PasswordResetRepo: resetRepo,
	})
	if err := authService.EnsureAdmin(ctx, cfg.Auth); err != nil {
		logger.Fatal("failed to ensure admin account", zap.Error(err))
	}

	reportService := service.NewReportService(service.ReportDependencies{
		ReportRepo:  reportRepo,
		AuditRepo:   auditRepo,
		UploadStore: uploadStore,
		Dispatcher:  dispatcher,
	})

	chatService := service.NewChatService(service.ChatDependencies{
		ConversationRepo: conversationRepo,
		MessageRepo:      messageRepo,
		Redis:            redis,
		Dispatcher:       dispatcher,
		Logger:           logger,
	})
	chatService.Start(ctx)

	assistantService := service.NewAssistantService(cfg.Assistant, logger)
	if !assistantService.Configured() {
		logger.Warn("assistant API key not set; assistant runs in degraded mode")
	}

	notificationService := service.NewNotificationService(dispatcher, logger, cfg.Notification)
	worker.StartNotificationWorker(notificationService)

	authMiddleware := auth.NewAuthMiddleware(authService.TokenManager(), userRepo)

	metrics := observability.NewMetrics()

	app := fiber.New(fiber.Config{
		AppName:               cfg.App.Name,
		DisableStartupMessage: true,
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Users:          handlers.NewUsersHandler(authService),
		Reports:        handlers.NewReportsHandler(reportService),
		Chats:          handlers.NewChatsHandler(chatService),
		ChatSocket:     handlers.NewChatSocketHandler(chatService, authService.TokenManager(), logger),
		Assistant:      handlers.NewAssistantHandler(assistantService),
		AuthMiddleware: authMiddleware,
		UploadBaseURL:  cfg.Upload.BaseURL,
		UploadDir:      cfg.Upload.Dir,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()
	logger.Info("server started", zap.String("addr", cfg.App.Addr()))

	waitForShutdown(logger)

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
