package handlers

import (
	"errors"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/patrona-app/patrona-backend/internal/models"
	"github.com/patrona-app/patrona-backend/internal/storage"
	"github.com/patrona-app/patrona-backend/internal/validate"
)

// LocationHandler handles location pings and tracking-page reads.
type LocationHandler struct {
	store storage.PingStore
}

// NewLocationHandler creates a new location handler.
func NewLocationHandler(store storage.PingStore) *LocationHandler {
	return &LocationHandler{
		store: store,
	}
}

// Ping handles POST /api/ping. Pings are best-effort telemetry: a missing
// sessionId is a no-op success and store failures are swallowed — the
// client must never see a ping fail.
func (h *LocationHandler) Ping(c *fiber.Ctx) error {
	var req models.PingRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "Invalid request body",
		})
	}

	if err := validate.PingBody(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   err.Error(),
		})
	}

	if req.SessionID == "" {
		return c.JSON(fiber.Map{"success": true})
	}

	ts := time.Now()
	if req.Timestamp > 0 {
		ts = time.UnixMilli(req.Timestamp)
	}

	if err := h.store.Upsert(req.SessionID, *req.Latitude, *req.Longitude, ts); err != nil {
		log.Printf("⚠️  Ping store error: %v", err)
	}
	return c.JSON(fiber.Map{"success": true})
}

// GetLocation handles GET /api/location/:sessionId for the public tracking
// view.
func (h *LocationHandler) GetLocation(c *fiber.Ctx) error {
	ping, err := h.store.Get(c.Params("sessionId"))
	if errors.Is(err, storage.ErrNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"error":   "Session not found",
		})
	}
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"error":   "Failed to fetch location",
		})
	}

	return c.JSON(fiber.Map{
		"success":   true,
		"latitude":  ping.Latitude,
		"longitude": ping.Longitude,
		"timestamp": ping.Timestamp.UnixMilli(),
	})
}
