package handlers

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/patrona-app/patrona-backend/internal/models"
	"github.com/patrona-app/patrona-backend/internal/services"
	"github.com/patrona-app/patrona-backend/internal/validate"
)

// AlertHandler handles emergency alert and all-clear requests.
type AlertHandler struct {
	dispatcher *services.AlertDispatcher
}

// NewAlertHandler creates a new alert handler.
func NewAlertHandler(dispatcher *services.AlertDispatcher) *AlertHandler {
	return &AlertHandler{
		dispatcher: dispatcher,
	}
}

// SendAlert handles POST /api/alert. Per-recipient failures surface as
// counts inside a success response; only a fully unreachable transport is
// reported as a server error.
func (h *AlertHandler) SendAlert(c *fiber.Ctx) error {
	var req models.AlertRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "Invalid request body",
		})
	}

	if err := validate.AlertBody(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   err.Error(),
		})
	}

	var pos *models.Position
	if req.Latitude != nil && req.Longitude != nil {
		pos = &models.Position{
			Latitude:  *req.Latitude,
			Longitude: *req.Longitude,
			Timestamp: time.Now(),
		}
	}

	result, err := h.dispatcher.SendAlert(c.UserContext(), req.UserName, req.Contacts, pos, models.TriggerType(req.TriggerType))
	if err != nil {
		if errors.Is(err, services.ErrInvalidContact) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"success": false,
				"error":   err.Error(),
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"error":   "Failed to send alert",
		})
	}

	resp := fiber.Map{
		"success":      true,
		"messagesSent": result.MessagesSent,
		"failed":       result.Failed,
	}
	if len(result.Errors) > 0 {
		resp["errors"] = result.Errors
	}
	if result.Mock {
		resp["mock"] = true
	}
	return c.JSON(resp)
}

// ClearAlert handles POST /api/alert/clear.
func (h *AlertHandler) ClearAlert(c *fiber.Ctx) error {
	var req models.ClearRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "Invalid request body",
		})
	}

	if err := validate.ClearBody(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   err.Error(),
		})
	}

	result, err := h.dispatcher.SendAllClear(c.UserContext(), req.UserName, req.Contacts)
	if err != nil && !errors.Is(err, services.ErrInvalidContact) {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"error":   "Failed to send all-clear",
		})
	}
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   err.Error(),
		})
	}

	resp := fiber.Map{"success": true}
	if result.Mock {
		resp["mock"] = true
	}
	return c.JSON(resp)
}
