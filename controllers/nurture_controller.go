package controller

import (
	"log"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"ascentcrm/automation"
	"ascentcrm/utils"
)

type NurtureController struct {
	DB     *gorm.DB
	Engine *automation.Engine
	Logger *log.Logger
}

func NewNurtureController(db *gorm.DB, engine *automation.Engine, logger *log.Logger) *NurtureController {
	return &NurtureController{
		DB:     db,
		Engine: engine,
		Logger: logger,
	}
}

// RunEnrollments triggers one auto-enrollment pass immediately (the worker
// runs the same pass on its interval)
func (nc *NurtureController) RunEnrollments(c *fiber.Ctx) error {
	result, err := nc.Engine.Triggers.ProcessAutoEnrollments()
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Enrollment pass failed", err)
	}
	return c.JSON(result)
}

// RunDispatch triggers one dispatch pass immediately
func (nc *NurtureController) RunDispatch(c *fiber.Ctx) error {
	result, err := nc.Engine.Dispatcher.ProcessDueEmails(time.Now())
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Dispatch pass failed", err)
	}
	return c.JSON(result)
}

// GetStats returns per-sequence enrollment and engagement aggregates
func (nc *NurtureController) GetStats(c *fiber.Ctx) error {
	var sequenceID *uint
	if raw := c.Query("sequence_id"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid sequence id", err)
		}
		sequenceID = utils.Pointer(uint(id))
	}

	stats, err := nc.Engine.Stats.GetNurtureStats(sequenceID)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to load stats", err)
	}
	return c.JSON(stats)
}
