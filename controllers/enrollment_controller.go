package controller

import (
	"log"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"ascentcrm/automation"
	"ascentcrm/utils"
)

type EnrollmentController struct {
	DB     *gorm.DB
	Engine *automation.Engine
	Logger *log.Logger
}

func NewEnrollmentController(db *gorm.DB, engine *automation.Engine, logger *log.Logger) *EnrollmentController {
	return &EnrollmentController{
		DB:     db,
		Engine: engine,
		Logger: logger,
	}
}

// Enroll manually enrolls a client into a sequence
func (ec *EnrollmentController) Enroll(c *fiber.Ctx) error {
	var input struct {
		ClientID   uint `json:"client_id" validate:"required"`
		SequenceID uint `json:"sequence_id" validate:"required"`
	}

	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}

	seq, err := ec.Engine.Sequences.GetSequence(input.SequenceID)
	if err != nil {
		return automationError(c, err)
	}

	enrollment, err := ec.Engine.Enrollments.Enroll(input.ClientID, seq)
	if err != nil {
		return automationError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(enrollment)
}

// Pause suspends an active enrollment
func (ec *EnrollmentController) Pause(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid enrollment id", err)
	}

	enrollment, err := ec.Engine.Enrollments.Pause(uint(id))
	if err != nil {
		return automationError(c, err)
	}
	return c.JSON(enrollment)
}

// Resume reactivates a paused enrollment with next dispatch tomorrow
func (ec *EnrollmentController) Resume(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid enrollment id", err)
	}

	enrollment, err := ec.Engine.Enrollments.Resume(uint(id))
	if err != nil {
		return automationError(c, err)
	}
	return c.JSON(enrollment)
}

// Cancel terminates a live enrollment
func (ec *EnrollmentController) Cancel(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid enrollment id", err)
	}

	var input struct {
		Reason string `json:"reason" validate:"omitempty,max=300"`
	}
	if err := c.BodyParser(&input); err != nil && len(c.Body()) > 0 {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	reason := input.Reason
	if reason == "" {
		reason = "Cancelled by operator"
	}

	enrollment, err := ec.Engine.Enrollments.Cancel(uint(id), reason)
	if err != nil {
		return automationError(c, err)
	}
	return c.JSON(enrollment)
}

// GetClientHistory lists all of a client's enrollments, most recent first
func (ec *EnrollmentController) GetClientHistory(c *fiber.Ctx) error {
	clientID, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid client id", err)
	}

	history, err := ec.Engine.Stats.GetClientNurtureHistory(uint(clientID))
	if err != nil {
		return automationError(c, err)
	}
	return c.JSON(history)
}
