package routes

import (
	"log"
	"os"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"gorm.io/gorm"

	"ascentcrm/automation"
	controller "ascentcrm/controllers"
	"ascentcrm/middleware"
)

func SetupAPIRoutes(app *fiber.App, db *gorm.DB, engine *automation.Engine) {
	// Initialize controllers with their respective loggers
	clientController := controller.NewClientController(db, engine, log.New(os.Stdout, "CLIENT: ", log.LstdFlags))
	scoreController := controller.NewScoreController(db, engine, log.New(os.Stdout, "SCORE: ", log.LstdFlags))
	sequenceController := controller.NewSequenceController(db, engine, log.New(os.Stdout, "SEQUENCE: ", log.LstdFlags))
	enrollmentController := controller.NewEnrollmentController(db, engine, log.New(os.Stdout, "ENROLLMENT: ", log.LstdFlags))
	nurtureController := controller.NewNurtureController(db, engine, log.New(os.Stdout, "NURTURE: ", log.LstdFlags))
	trackingController := controller.NewTrackingController(db, engine, log.New(os.Stdout, "TRACKING: ", log.LstdFlags))

	// API group with versioning and protection
	api := app.Group("/api/v1", middleware.Protected(), logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))

	// Client routes
	client := api.Group("/clients")
	client.Post("/", clientController.CreateClient)
	client.Get("/:id", clientController.GetClient)
	client.Get("/:id/enrollments", enrollmentController.GetClientHistory)
	client.Post("/interactions", clientController.RecordInteraction)
	client.Post("/quotes", clientController.CreateQuote)

	// Scoring routes
	score := api.Group("/scores")
	score.Post("/events", scoreController.RecordEvent)
	score.Get("/:id", scoreController.GetScoreSummary)
	score.Post("/:id/convert", scoreController.MarkConverted)
	score.Post("/:id/lost", scoreController.MarkLost)

	// Sequence routes
	sequence := api.Group("/sequences")
	sequence.Post("/", sequenceController.CreateSequence)
	sequence.Get("/", sequenceController.GetActiveSequences)
	sequence.Get("/:id", sequenceController.GetSequence)
	sequence.Put("/:id", sequenceController.UpdateSequence)

	// Template routes
	api.Post("/templates", sequenceController.CreateTemplate)

	// Enrollment routes
	enrollment := api.Group("/enrollments")
	enrollment.Post("/", enrollmentController.Enroll)
	enrollment.Post("/:id/pause", enrollmentController.Pause)
	enrollment.Post("/:id/resume", enrollmentController.Resume)
	enrollment.Post("/:id/cancel", enrollmentController.Cancel)

	// Nurture engine routes
	nurture := api.Group("/nurture")
	nurture.Post("/run-enrollments", nurtureController.RunEnrollments)
	nurture.Post("/run-dispatch", nurtureController.RunDispatch)
	nurture.Get("/stats", nurtureController.GetStats)

	// Public tracking routes hit by mail clients, rate limited instead of
	// authenticated
	track := app.Group("/track", middleware.TrackingRateLimiter())
	track.Get("/open/:messageID/:token", trackingController.TrackOpen)
	track.Get("/click/:messageID/:token", trackingController.TrackClick)

	// Log initialization
	log.Println("API routes initialized successfully")
}

func SetupRoutes(app *fiber.App, db *gorm.DB, engine *automation.Engine) {
	// Setup health check endpoint
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	// Setup API routes
	SetupAPIRoutes(app, db, engine)

	// Setup 404 handler
	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error":   "Not Found",
			"message": "The requested resource was not found",
		})
	})
}
