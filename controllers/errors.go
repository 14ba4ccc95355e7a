package controller

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"ascentcrm/automation"
	"ascentcrm/utils"
)

// automationError maps the engine's typed failures onto HTTP statuses.
func automationError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, automation.ErrClientNotFound),
		errors.Is(err, automation.ErrSequenceNotFound),
		errors.Is(err, automation.ErrEnrollmentNotFound):
		return utils.ErrorResponse(c, fiber.StatusNotFound, err.Error(), nil)
	case errors.Is(err, automation.ErrAlreadyEnrolled),
		errors.Is(err, automation.ErrSequenceInactive),
		errors.Is(err, automation.ErrInvalidTransition),
		errors.Is(err, automation.ErrUnknownEventType):
		return utils.ErrorResponse(c, fiber.StatusConflict, err.Error(), nil)
	default:
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Internal error", err)
	}
}
