package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/patrona-app/patrona-backend/internal/models"
	"github.com/patrona-app/patrona-backend/internal/services"
	"github.com/patrona-app/patrona-backend/internal/validate"
)

// WalkHandler handles the walk lifecycle: start, activity markers,
// transcripts, end.
type WalkHandler struct {
	walks *services.WalkManager
}

// NewWalkHandler creates a new walk handler.
func NewWalkHandler(walks *services.WalkManager) *WalkHandler {
	return &WalkHandler{
		walks: walks,
	}
}

// StartWalk handles POST /api/walk/start.
func (h *WalkHandler) StartWalk(c *fiber.Ctx) error {
	var req models.WalkStartRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "Invalid request body",
		})
	}

	if err := validate.WalkStartBody(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   err.Error(),
		})
	}

	session, err := h.walks.StartWalk(req.UserName, req.SafeWord, req.Destination, req.Contacts)
	if err != nil {
		if errors.Is(err, services.ErrInvalidContact) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"success": false,
				"error":   err.Error(),
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"error":   "Failed to start walk",
		})
	}

	return c.JSON(fiber.Map{
		"success":   true,
		"sessionId": session.SessionID,
	})
}

// RegisterActivity handles POST /api/walk/activity.
func (h *WalkHandler) RegisterActivity(c *fiber.Ctx) error {
	req, ok := h.parseEvent(c)
	if !ok {
		return nil
	}
	if err := h.walks.RegisterActivity(req.SessionID); err != nil {
		return h.walkError(c, err)
	}
	return c.JSON(fiber.Map{"success": true})
}

// Transcript handles POST /api/walk/transcript. The response reports the
// silence tier only; a safe-word match is observably indistinguishable
// from a transcript that matched nothing.
func (h *WalkHandler) Transcript(c *fiber.Ctx) error {
	req, ok := h.parseEvent(c)
	if !ok {
		return nil
	}
	tier, err := h.walks.ObserveTranscript(req.SessionID, req.Transcript)
	if err != nil {
		return h.walkError(c, err)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"tier":    tier,
	})
}

// EndWalk handles POST /api/walk/end.
func (h *WalkHandler) EndWalk(c *fiber.Ctx) error {
	req, ok := h.parseEvent(c)
	if !ok {
		return nil
	}
	if err := h.walks.EndWalk(c.UserContext(), req.SessionID, req.Reason); err != nil {
		return h.walkError(c, err)
	}
	return c.JSON(fiber.Map{"success": true})
}

// parseEvent parses a walk event body, writing the 400 itself when the
// body is unusable.
func (h *WalkHandler) parseEvent(c *fiber.Ctx) (models.WalkEventRequest, bool) {
	var req models.WalkEventRequest
	if err := c.BodyParser(&req); err != nil {
		_ = c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "Invalid request body",
		})
		return req, false
	}
	if req.SessionID == "" {
		_ = c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "sessionId is required",
		})
		return req, false
	}
	return req, true
}

func (h *WalkHandler) walkError(c *fiber.Ctx, err error) error {
	if errors.Is(err, services.ErrWalkNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"error":   "Walk not found",
		})
	}
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"success": false,
		"error":   "Walk operation failed",
	})
}
