package handlers

import (
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"

	"github.com/cryptolock-hq/chatbot-backend/internal/services"
	"github.com/cryptolock-hq/chatbot-backend/internal/storage"
)

// AdminHandler exposes the session registry's management primitives and
// the delivery-status lookup. These routes are operator-facing, not part
// of the Twilio webhook contract, so they use conventional HTTP codes.
type AdminHandler struct {
	sessions *services.SessionManager
	sender   MessageSender
	store    storage.Store
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(sessions *services.SessionManager, sender MessageSender, store storage.Store) *AdminHandler {
	return &AdminHandler{
		sessions: sessions,
		sender:   sender,
		store:    store,
	}
}

// ListSessions returns the users with a live chat session.
func (h *AdminHandler) ListSessions(c *fiber.Ctx) error {
	users := h.sessions.ActiveUsers()
	return c.JSON(fiber.Map{
		"success": true,
		"count":   len(users),
		"users":   users,
	})
}

// DeleteSession removes one user's chat session.
func (h *AdminHandler) DeleteSession(c *fiber.Ctx) error {
	userID := c.Params("userID")

	if !h.sessions.Delete(userID) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "session not found",
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "session deleted",
	})
}

// ClearSessions empties the session registry.
func (h *AdminHandler) ClearSessions(c *fiber.Ctx) error {
	cleared := h.sessions.Count()
	h.sessions.Clear()
	log.Printf("Admin cleared %d chat sessions", cleared)

	return c.JSON(fiber.Map{
		"success": true,
		"cleared": cleared,
	})
}

// MessageStatus fetches the current Twilio delivery status for a sent
// message and refreshes the audit log entry.
func (h *AdminHandler) MessageStatus(c *fiber.Ctx) error {
	messageSid := c.Params("sid")

	if h.sender == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "Twilio not available",
		})
	}

	status, err := h.sender.GetMessageStatus(messageSid)
	if err != nil {
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	if h.store != nil {
		if err := h.store.UpdateDeliveryStatus(messageSid, status); err != nil && !errors.Is(err, storage.ErrNotFound) {
			log.Printf("⚠️  Failed to update delivery status for %s: %v", messageSid, err)
		}
	}

	return c.JSON(fiber.Map{
		"message_sid": messageSid,
		"status":      status,
	})
}
