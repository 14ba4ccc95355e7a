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

type SequenceController struct {
	DB     *gorm.DB
	Engine *automation.Engine
	Logger *log.Logger
}

func NewSequenceController(db *gorm.DB, engine *automation.Engine, logger *log.Logger) *SequenceController {
	return &SequenceController{
		DB:     db,
		Engine: engine,
		Logger: logger,
	}
}

// CreateSequence creates a nurture sequence with its ordered steps
func (sc *SequenceController) CreateSequence(c *fiber.Ctx) error {
	var input struct {
		Name        string                  `json:"name" validate:"required,max=200"`
		Description string                  `json:"description" validate:"omitempty,max=500"`
		TriggerType string                  `json:"trigger_type" validate:"required,oneof=new_lead abandoned_conversation post_quote high_value_lead post_inquiry"`
		Condition   models.TriggerCondition `json:"trigger_condition"`
		Steps       []automation.StepInput  `json:"steps" validate:"required,min=1,dive"`
	}

	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}

	seq, err := sc.Engine.Sequences.CreateSequence(input.Name, input.Description, input.TriggerType, input.Condition, input.Steps)
	if err != nil {
		return automationError(c, err)
	}

	sc.Logger.Printf("Sequence %d (%s) created with %d steps", seq.ID, seq.Name, len(seq.Steps))
	return c.Status(fiber.StatusCreated).JSON(seq)
}

// UpdateSequence edits a sequence; passing steps replaces the step list.
// In-flight enrollments follow the edited steps on the next dispatch pass.
func (sc *SequenceController) UpdateSequence(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid sequence id", err)
	}

	var input struct {
		Name        string                   `json:"name" validate:"omitempty,max=200"`
		Description string                   `json:"description" validate:"omitempty,max=500"`
		Condition   *models.TriggerCondition `json:"trigger_condition"`
		IsActive    *bool                    `json:"is_active"`
		Steps       []automation.StepInput   `json:"steps" validate:"omitempty,dive"`
	}

	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}

	seq, err := sc.Engine.Sequences.UpdateSequence(uint(id), input.Name, input.Description, input.Condition, input.IsActive, input.Steps)
	if err != nil {
		return automationError(c, err)
	}
	return c.JSON(seq)
}

// GetSequence returns one sequence with steps
func (sc *SequenceController) GetSequence(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid sequence id", err)
	}

	seq, err := sc.Engine.Sequences.GetSequence(uint(id))
	if err != nil {
		return automationError(c, err)
	}
	return c.JSON(seq)
}

// GetActiveSequences lists sequences eligible for triggers and dispatch
func (sc *SequenceController) GetActiveSequences(c *fiber.Ctx) error {
	sequences, err := sc.Engine.Sequences.GetActiveSequences()
	if err != nil {
		return automationError(c, err)
	}
	return c.JSON(sequences)
}

// CreateTemplate stores an email template for sequence steps
func (sc *SequenceController) CreateTemplate(c *fiber.Ctx) error {
	var input struct {
		Name        string `json:"name" validate:"required,max=200"`
		Subject     string `json:"subject" validate:"required,max=300"`
		HTMLContent string `json:"html_content" validate:"required"`
		TextContent string `json:"text_content"`
		Category    string `json:"category" validate:"omitempty,max=50"`
	}

	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}

	tmpl := models.EmailTemplate{
		Name:        input.Name,
		Subject:     input.Subject,
		HTMLContent: input.HTMLContent,
		TextContent: input.TextContent,
		Category:    input.Category,
	}
	if err := sc.DB.Create(&tmpl).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to create template", err)
	}
	return c.Status(fiber.StatusCreated).JSON(tmpl)
}
