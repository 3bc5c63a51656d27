package handlers

import (
	"log"

	"github.com/gofiber/fiber/v2"

	"github.com/cryptolock-hq/chatbot-backend/internal/config"
	"github.com/cryptolock-hq/chatbot-backend/internal/models"
	"github.com/cryptolock-hq/chatbot-backend/internal/services"
	"github.com/cryptolock-hq/chatbot-backend/internal/storage"
)

const serviceVersion = "1.0.0"

// StatusHandler serves the root info and detailed status endpoints.
type StatusHandler struct {
	cfg      *config.Config
	sessions *services.SessionManager
	store    storage.Store
	model    string
	twilioOK bool
}

// NewStatusHandler creates a status handler.
func NewStatusHandler(cfg *config.Config, sessions *services.SessionManager, store storage.Store, model string, twilioOK bool) *StatusHandler {
	return &StatusHandler{
		cfg:      cfg,
		sessions: sessions,
		store:    store,
		model:    model,
		twilioOK: twilioOK,
	}
}

// Root returns static JSON describing the available endpoints.
func (h *StatusHandler) Root(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"message": "CryptoLock Chatbot API - Twilio WhatsApp Integration",
		"version": serviceVersion,
		"status":  "running",
		"endpoints": fiber.Map{
			"health":       "/health",
			"status":       "/status",
			"webhook_get":  "GET /webhook (Twilio verification)",
			"webhook_post": "POST /webhook (Receive messages)",
			"admin":        "/admin",
		},
		"technology": fiber.Map{
			"framework": "Fiber",
			"ai_model":  h.model,
			"messaging": "Twilio Programmable Messaging",
		},
	})
}

// Status returns detailed system state: vendor availability, session
// count, message counters and non-secret configuration.
func (h *StatusHandler) Status(c *fiber.Ctx) error {
	accountSid := "not_available"
	whatsappNumber := "not_available"
	if h.twilioOK {
		accountSid = h.cfg.TwilioAccountSID
		whatsappNumber = h.cfg.TwilioWhatsAppNumber
	}

	response := fiber.Map{
		"status":  "running",
		"version": serviceVersion,
		"services": fiber.Map{
			"twilio": fiber.Map{
				"available":       h.twilioOK,
				"account_sid":     accountSid,
				"whatsapp_number": whatsappNumber,
			},
			"gemini": fiber.Map{
				"available": true,
				"model":     h.model,
			},
		},
		"sessions": fiber.Map{
			"active_chat_sessions": h.sessions.Count(),
		},
		"configuration": fiber.Map{
			"debug_mode":  h.cfg.Debug,
			"server_port": h.cfg.Port,
		},
	}

	if h.store != nil {
		inbound, err := h.store.CountMessages(models.DirectionInbound)
		if err != nil {
			log.Printf("⚠️  Failed to count inbound messages: %v", err)
		}
		outbound, err := h.store.CountMessages(models.DirectionOutbound)
		if err != nil {
			log.Printf("⚠️  Failed to count outbound messages: %v", err)
		}
		response["messages"] = fiber.Map{
			"inbound":  inbound,
			"outbound": outbound,
		}
	}

	return c.JSON(response)
}
