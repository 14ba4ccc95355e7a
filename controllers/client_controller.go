package controller

import (
	"log"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"ascentcrm/automation"
	"ascentcrm/models"
	"ascentcrm/utils"
)

type ClientController struct {
	DB     *gorm.DB
	Engine *automation.Engine
	Logger *log.Logger
}

func NewClientController(db *gorm.DB, engine *automation.Engine, logger *log.Logger) *ClientController {
	return &ClientController{
		DB:     db,
		Engine: engine,
		Logger: logger,
	}
}

// CreateClient registers a new client in the directory
func (cc *ClientController) CreateClient(c *fiber.Ctx) error {
	var input struct {
		Email     string `json:"email" validate:"required,email"`
		FirstName string `json:"first_name" validate:"omitempty,max=100"`
		LastName  string `json:"last_name" validate:"omitempty,max=100"`
		Phone     string `json:"phone" validate:"omitempty,max=30"`
		Source    string `json:"source" validate:"omitempty,max=50"`
	}

	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}

	var existing models.Client
	if err := cc.DB.Where("email = ?", strings.ToLower(input.Email)).First(&existing).Error; err == nil {
		return utils.ErrorResponse(c, fiber.StatusConflict, "Client with this email already exists", nil)
	}

	client := models.Client{
		Email:     strings.ToLower(input.Email),
		FirstName: input.FirstName,
		LastName:  input.LastName,
		Phone:     input.Phone,
		Source:    input.Source,
	}
	if err := cc.DB.Create(&client).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to create client", err)
	}

	return c.Status(fiber.StatusCreated).JSON(client)
}

// GetClient returns one client with quotes and bookings
func (cc *ClientController) GetClient(c *fiber.Ctx) error {
	var client models.Client
	if err := cc.DB.Preload("Quotes").Preload("Bookings").First(&client, c.Params("id")).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Client not found", nil)
	}
	return c.JSON(client)
}

// RecordInteraction feeds one piece of interaction text through the signal
// extractor into the scoring engine
func (cc *ClientController) RecordInteraction(c *fiber.Ctx) error {
	var input struct {
		ClientID        uint   `json:"client_id" validate:"required"`
		ConversationRef string `json:"conversation_ref" validate:"omitempty,max=100"`
		Text            string `json:"text" validate:"required"`
		Source          string `json:"source" validate:"omitempty,max=50"`
	}

	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}

	source := input.Source
	if source == "" {
		source = "chat"
	}

	events, err := cc.Engine.Scorer.RecordInteraction(input.ClientID, input.ConversationRef, input.Text, source)
	if err != nil {
		return automationError(c, err)
	}

	return c.JSON(fiber.Map{
		"recorded": len(events),
		"events":   events,
	})
}

// CreateQuote registers a quote issued by the booking subsystem and counts
// it toward the client's engagement
func (cc *ClientController) CreateQuote(c *fiber.Ctx) error {
	var input struct {
		ClientID    uint    `json:"client_id" validate:"required"`
		Destination string  `json:"destination" validate:"omitempty,max=100"`
		Amount      float64 `json:"amount" validate:"min=0"`
		Currency    string  `json:"currency" validate:"omitempty,len=3"`
		ExpiresIn   int     `json:"expires_in_days" validate:"omitempty,min=1"`
	}

	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}

	// Make sure a score row exists so the counter bump below lands even
	// for clients that have never produced an event
	if _, err := cc.Engine.Scorer.GetOrCreateScore(input.ClientID); err != nil {
		return automationError(c, err)
	}

	now := time.Now()
	quote := models.Quote{
		ClientID:    input.ClientID,
		Destination: input.Destination,
		Amount:      input.Amount,
		Currency:    input.Currency,
		SentAt:      &now,
	}
	if quote.Currency == "" {
		quote.Currency = "USD"
	}
	if input.ExpiresIn > 0 {
		expires := now.AddDate(0, 0, input.ExpiresIn)
		quote.ExpiresAt = &expires
	}

	if err := cc.DB.Create(&quote).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to create quote", err)
	}

	if err := cc.DB.Model(&models.LeadScore{}).
		Where("client_id = ?", input.ClientID).
		Update("quotes_received", gorm.Expr("quotes_received + ?", 1)).Error; err != nil {
		cc.Logger.Printf("Failed to bump quotes_received for client %d: %v", input.ClientID, err)
	}

	return c.Status(fiber.StatusCreated).JSON(quote)
}
