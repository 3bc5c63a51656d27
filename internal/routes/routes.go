package routes

import (
	"log"
	"os"

	"github.com/gofiber/fiber/v2"

	"github.com/cryptolock-hq/chatbot-backend/internal/config"
	"github.com/cryptolock-hq/chatbot-backend/internal/handlers"
	"github.com/cryptolock-hq/chatbot-backend/internal/middleware"
)

// SetupRoutes configures all API routes
func SetupRoutes(
	app *fiber.App,
	cfg *config.Config,
	webhook *handlers.WebhookHandler,
	health *handlers.HealthHandler,
	status *handlers.StatusHandler,
	admin *handlers.AdminHandler,
) {
	app.Get("/", status.Root)
	app.Get("/health", health.Check)
	app.Get("/status", status.Status)

	// ========== WEBHOOK ROUTES ==========
	app.Get("/webhook", webhook.Verify)

	// Signature validation is skipped in development so ngrok tunnels work
	if os.Getenv("ENVIRONMENT") == "development" || os.Getenv("DISABLE_WEBHOOK_VALIDATION") == "true" {
		app.Post("/webhook", webhook.Receive)
		log.Println("⚠️  WhatsApp webhook signature validation DISABLED")
	} else {
		app.Post("/webhook", middleware.ValidateTwilioSignature(cfg.TwilioAuthToken), webhook.Receive)
	}

	// ========== ADMIN ROUTES ==========
	adminGroup := app.Group("/admin")
	adminGroup.Get("/sessions", admin.ListSessions)
	adminGroup.Delete("/sessions/:userID", admin.DeleteSession)
	adminGroup.Post("/sessions/clear", admin.ClearSessions)
	adminGroup.Get("/messages/:sid/status", admin.MessageStatus)
}
