package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/cryptolock-hq/chatbot-backend/internal/services"
)

// HealthHandler handles health check requests
type HealthHandler struct {
	Service  string
	sessions *services.SessionManager
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(service string, sessions *services.SessionManager) *HealthHandler {
	return &HealthHandler{
		Service:  service,
		sessions: sessions,
	}
}

// Check returns the health status of the service
func (h *HealthHandler) Check(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":          "ok",
		"service":         h.Service,
		"active_sessions": h.sessions.Count(),
	})
}
