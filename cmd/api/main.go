package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/noah-isme/merit-go-api/internal/config"
	"github.com/noah-isme/merit-go-api/internal/database"
	"github.com/noah-isme/merit-go-api/internal/handler"
	"github.com/noah-isme/merit-go-api/internal/middleware"
	"github.com/noah-isme/merit-go-api/internal/models"
	"github.com/noah-isme/merit-go-api/internal/repository"
	"github.com/noah-isme/merit-go-api/internal/router"
	"github.com/noah-isme/merit-go-api/internal/service"
	cloud "github.com/noah-isme/merit-go-api/pkg/cloudinary"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	db, err := database.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := db.AutoMigrate(&models.Submission{}, &models.CreditLedgerEntry{}, &models.AuditEvent{}); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	redisClient, err := database.ConnectRedis(cfg.RedisURL)
	if err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}
	defer redisClient.Close()

	notifier := service.NewNoopNotifier()
	if cfg.NATSURL != "" {
		natsConn, err := nats.Connect(cfg.NATSURL)
		if err != nil {
			log.Fatalf("failed to connect to nats: %v", err)
		}
		defer natsConn.Close()
		notifier = service.NewNATSNotifier(natsConn, cfg.NotifyChannel, logger)
	} else {
		logger.Warn().Msg("nats url not configured, workflow notifications disabled")
	}

	var documentHandler *handler.DocumentHandler
	if cfg.CloudinaryCloudName != "" {
		storage, err := cloud.New(cloud.Config{
			CloudName: cfg.CloudinaryCloudName,
			APIKey:    cfg.CloudinaryAPIKey,
			APISecret: cfg.CloudinaryAPISecret,
			Folder:    cfg.CloudinaryUploadFolder,
		}, logger)
		if err != nil {
			log.Fatalf("failed to create cloudinary client: %v", err)
		}
		documentService := service.NewDocumentService(storage, cfg.DocumentMaxSizeMB, logger)
		documentHandler = handler.NewDocumentHandler(documentService, logger)
	} else {
		logger.Warn().Msg("cloudinary not configured, document uploads disabled")
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	guard := service.NewAuthorizationGuard()

	submissionRepo := repository.NewSubmissionRepository(db)
	ledgerRepo := repository.NewCreditLedgerRepository(db)
	auditRepo := repository.NewAuditLogRepository(db)

	auditService := service.NewAuditService(auditRepo, validate, logger)
	creditService := service.NewCreditService(ledgerRepo, guard, auditService, redisClient, cfg.CreditCacheTTL, validate, logger)
	submissionService := service.NewSubmissionService(submissionRepo, guard, auditService, validate, logger)
	workflowService := service.NewWorkflowService(submissionRepo, creditService, guard, auditService, notifier, validate, logger)

	submissionHandler := handler.NewSubmissionHandler(submissionService, workflowService, logger)
	creditHandler := handler.NewCreditHandler(creditService, logger)
	auditHandler := handler.NewAuditHandler(auditService, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, cfg, router.Dependencies{
		SubmissionHandler: submissionHandler,
		CreditHandler:     creditHandler,
		AuditHandler:      auditHandler,
		DocumentHandler:   documentHandler,
		JWTMiddleware:     middleware.JWTProtected(cfg.JWTSecret),
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(app)
}

func waitForShutdown(app *fiber.App) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	log.Println("server stopped")
}
