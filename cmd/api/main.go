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
	"github.com/rs/zerolog"

	"github.com/gatherly/participation-api/internal/config"
	"github.com/gatherly/participation-api/internal/database"
	"github.com/gatherly/participation-api/internal/handler"
	"github.com/gatherly/participation-api/internal/middleware"
	"github.com/gatherly/participation-api/internal/models"
	"github.com/gatherly/participation-api/internal/repository"
	"github.com/gatherly/participation-api/internal/router"
	"github.com/gatherly/participation-api/internal/service"
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

	if err := db.AutoMigrate(
		&models.Activity{},
		&models.Participant{},
		&models.WaitlistEntry{},
		&models.Invitation{},
		&models.AttendanceConfirmation{},
		&models.ParticipationLog{},
	); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	redisClient, err := database.ConnectRedis(cfg.RedisURL)
	if err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}
	defer redisClient.Close()

	natsConn, err := database.ConnectNATS(cfg.NATSURL)
	if err != nil {
		log.Fatalf("failed to connect to nats: %v", err)
	}
	if natsConn != nil {
		defer natsConn.Close()
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	store := repository.NewStore(db)
	runner := repository.NewTxRunner(db)

	social := service.NewOpenSocialGraph()
	stats := service.NewDiscardUserStats()
	display := service.NewEmptyDisplayProvider()
	events := service.NewEventPublisher(natsConn, logger)

	participationService := service.NewParticipationService(store, runner, social, display, events, validate, cfg.VerificationThreshold, cfg.PremiumExemptCapacity, logger)
	waitlistService := service.NewWaitlistService(store, display, logger)
	invitationService := service.NewInvitationService(store, runner, social, display, events, validate, cfg.InvitationExpiryHours, cfg.InvitationExpiryMaxHrs, cfg.PremiumExemptCapacity, logger)
	attendanceService := service.NewAttendanceService(store, runner, stats, display, redisClient, cfg.PendingCacheTTL, validate, logger)

	participationHandler := handler.NewParticipationHandler(participationService, logger)
	waitlistHandler := handler.NewWaitlistHandler(waitlistService, logger)
	invitationHandler := handler.NewInvitationHandler(invitationService, logger)
	attendanceHandler := handler.NewAttendanceHandler(attendanceService, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, cfg, router.Dependencies{
		ParticipationHandler: participationHandler,
		WaitlistHandler:      waitlistHandler,
		InvitationHandler:    invitationHandler,
		AttendanceHandler:    attendanceHandler,
		JWTMiddleware:        middleware.JWTProtected(cfg.JWTSecret),
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
