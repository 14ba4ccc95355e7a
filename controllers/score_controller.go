package controller

import (
	"log"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"ascentcrm/automation"
	"ascentcrm/models"
	"ascentcrm/utils"
)

type ScoreController struct {
	DB     *gorm.DB
	Engine *automation.Engine
	Logger *log.Logger
}

func NewScoreController(db *gorm.DB, engine *automation.Engine, logger *log.Logger) *ScoreController {
	return &ScoreController{
		DB:     db,
		Engine: engine,
		Logger: logger,
	}
}

// RecordEvent records one typed scoring event directly (manual adjustments,
// external signal sources)
func (sc *ScoreController) RecordEvent(c *fiber.Ctx) error {
	var input struct {
		ClientID        uint                `json:"client_id" validate:"required"`
		EventType       string              `json:"event_type" validate:"required"`
		Payload         models.EventPayload `json:"payload"`
		Source          string              `json:"source" validate:"omitempty,max=50"`
		ConversationRef string              `json:"conversation_ref" validate:"omitempty,max=100"`
	}

	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}

	source := input.Source
	if source == "" {
		source = "manual"
	}

	event, err := sc.Engine.Scorer.RecordEvent(input.ClientID, models.EventType(input.EventType), input.Payload, source, input.ConversationRef)
	if err != nil {
		return automationError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(event)
}

// GetScoreSummary returns the score record plus recent events
func (sc *ScoreController) GetScoreSummary(c *fiber.Ctx) error {
	clientID, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid client id", err)
	}

	summary, err := sc.Engine.Scorer.GetScoreSummary(uint(clientID))
	if err != nil {
		return automationError(c, err)
	}
	return c.JSON(summary)
}

// MarkConverted is the booking subsystem's webhook: forces the converted
// state and synchronously cancels all live enrollments
func (sc *ScoreController) MarkConverted(c *fiber.Ctx) error {
	clientID, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid client id", err)
	}

	var input struct {
		BookingRef string `json:"booking_ref" validate:"required,max=100"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}

	cancelled, err := sc.Engine.Scorer.MarkConverted(uint(clientID), input.BookingRef)
	if err != nil {
		return automationError(c, err)
	}

	// Persist the booking so the post-quote trigger stops seeing this client
	booking := models.Booking{ClientID: uint(clientID), Reference: input.BookingRef}
	if err := sc.DB.Create(&booking).Error; err != nil {
		sc.Logger.Printf("Failed to persist booking %s for client %d: %v", input.BookingRef, clientID, err)
	}

	sc.Logger.Printf("Client %d converted (booking %s), %d enrollments cancelled", clientID, input.BookingRef, cancelled)
	return c.JSON(fiber.Map{
		"status":                "converted",
		"enrollments_cancelled": cancelled,
	})
}

// MarkLost flags a client as lost and cancels all live enrollments
func (sc *ScoreController) MarkLost(c *fiber.Ctx) error {
	clientID, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid client id", err)
	}

	var input struct {
		Reason string `json:"reason" validate:"required,max=300"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}

	cancelled, err := sc.Engine.Scorer.MarkLost(uint(clientID), input.Reason)
	if err != nil {
		return automationError(c, err)
	}

	return c.JSON(fiber.Map{
		"status":                "lost",
		"enrollments_cancelled": cancelled,
	})
}
