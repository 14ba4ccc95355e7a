package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/gofiber/fiber/v2"

	"ascentcrm/automation"
	"ascentcrm/config"
	"ascentcrm/middleware"
	"ascentcrm/routes"
	"ascentcrm/utils"
	"ascentcrm/worker"
)

func main() {
	// Initialize logger
	logger := log.New(os.Stdout, "MAIN: ", log.Ldate|log.Ltime|log.Lshortfile)

	// Load configuration
	if err := config.LoadConfig(); err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize error reporting
	if config.AppConfig.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:         config.AppConfig.SentryDSN,
			Environment: config.AppConfig.Environment,
		}); err != nil {
			logger.Printf("Sentry initialization failed: %v", err)
		}
		defer sentry.Flush(2 * time.Second)
	}

	// Initialize database connection
	if err := config.ConnectDB(); err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}

	// Create Fiber app
	app := fiber.New()

	// Add CORS middleware
	app.Use(middleware.CORS())

	// Build the mail transport and the nurture engine around it
	mailer := utils.NewMailer(
		config.AppConfig.SMTP.Host,
		config.AppConfig.SMTP.Port,
		config.AppConfig.SMTP.Username,
		config.AppConfig.SMTP.Password,
		config.AppConfig.SMTP.FromEmail,
		config.AppConfig.SMTP.FromName,
	)
	engine := automation.NewEngine(config.DB, mailer, config.AppConfig.BaseURL)

	// Initialize and start background workers
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	nurtureWorker := worker.NewNurtureWorker(
		engine,
		time.Duration(config.AppConfig.NurtureIntervalSeconds)*time.Second,
		log.New(os.Stdout, "NURTURE: ", log.LstdFlags),
	)
	go nurtureWorker.Start(ctx)

	decayWorker := worker.NewDecayWorker(config.DB, engine, config.AppConfig.DecayCronSpec,
		log.New(os.Stdout, "DECAY: ", log.LstdFlags))
	if err := decayWorker.Start(); err != nil {
		logger.Fatalf("Failed to schedule decay worker: %v", err)
	}
	defer decayWorker.Stop()

	if config.AppConfig.IMAP.Enabled {
		inboxWorker := worker.NewInboxWorker(config.DB, engine, config.AppConfig.IMAP,
			time.Duration(config.AppConfig.InboxIntervalSeconds)*time.Second,
			log.New(os.Stdout, "INBOX: ", log.LstdFlags))
		go inboxWorker.Start(ctx)
	}

	// Setup routes
	routes.SetupRoutes(app, config.DB, engine)

	// Health check endpoint
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "running",
			"version": "1.0.0",
		})
	})

	// Start server
	logger.Printf("🚀 Server starting on port %s", config.AppConfig.ServerPort)
	if err := app.Listen(":" + config.AppConfig.ServerPort); err != nil {
		logger.Fatalf("Failed to start server: %v", err)
	}
}
