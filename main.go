package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"

	"github.com/cryptolock-hq/chatbot-backend/database"
	"github.com/cryptolock-hq/chatbot-backend/internal/config"
	"github.com/cryptolock-hq/chatbot-backend/internal/handlers"
	"github.com/cryptolock-hq/chatbot-backend/internal/models"
	"github.com/cryptolock-hq/chatbot-backend/internal/routes"
	"github.com/cryptolock-hq/chatbot-backend/internal/services"
	"github.com/cryptolock-hq/chatbot-backend/internal/storage"
)

const serviceName = "CryptoLock Chatbot API"

func main() {
	// Load .env file for local development
	if os.Getenv("INSTANCE_CONNECTION_NAME") == "" {
		if err := godotenv.Load(".env"); err != nil {
			log.Println("⚠️  No .env file found - checking environment variables")
		}
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration: ", err)
	}

	// Initialize storage
	var store storage.Store
	if os.Getenv("USE_MEMORY_STORE") == "true" {
		log.Println("⚠️  Using in-memory message log (not for production!)")
		store = storage.NewMemoryStore()
	} else {
		log.Println("📦 Connecting to PostgreSQL database...")
		database.Connect()

		log.Println("🔄 Running database migrations...")
		if err := database.DB.AutoMigrate(&models.MessageRecord{}); err != nil {
			log.Fatal("Failed to migrate database:", err)
		}
		log.Println("✅ Database migrations completed!")

		store = storage.NewDatabaseStore(database.DB)
	}

	// Initialize Twilio service
	twilioService, err := services.NewTwilioService(cfg)
	if err != nil {
		log.Printf("⚠️  Twilio service not initialized: %v", err)
	} else {
		log.Println("✅ Twilio service initialized")
	}

	// Initialize Gemini service and the session registry
	ctx := context.Background()
	geminiService, err := services.NewGeminiService(ctx, cfg)
	if err != nil {
		log.Fatal("Failed to initialize Gemini service: ", err)
	}
	defer geminiService.Close()
	log.Println("✅ Gemini service initialized")

	sessionManager := services.NewSessionManager(geminiService)

	// Create fiber app
	app := fiber.New(fiber.Config{
		AppName: serviceName + " v1.0.0",
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error": err.Error(),
			})
		},
	})

	// Middleware
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET, POST, DELETE, OPTIONS",
	}))

	// Handlers. TwilioService may be nil; the webhook flow then reports
	// a warning instead of sending replies.
	var sender handlers.MessageSender
	if twilioService != nil {
		sender = twilioService
	}

	webhookHandler := handlers.NewWebhookHandler(cfg, sessionManager, sender, store)
	healthHandler := handlers.NewHealthHandler(serviceName, sessionManager)
	statusHandler := handlers.NewStatusHandler(cfg, sessionManager, store, geminiService.ModelName(), twilioService != nil)
	adminHandler := handlers.NewAdminHandler(sessionManager, sender, store)

	routes.SetupRoutes(app, cfg, webhookHandler, healthHandler, statusHandler, adminHandler)

	// Handle graceful shutdown
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-c
		log.Println("\n🛑 Gracefully shutting down...")
		_ = app.Shutdown()
	}()

	// Start server
	log.Println("========================================")
	log.Printf("🚀 %s starting on port %s", serviceName, cfg.Port)
	log.Printf("🤖 Model: %s", geminiService.ModelName())
	log.Printf("📱 WhatsApp: %s", whatsappStatus(twilioService))
	log.Printf("🐛 Debug: %v", cfg.Debug)
	log.Println("========================================")

	log.Fatal(app.Listen(":" + cfg.Port))
}

func whatsappStatus(t *services.TwilioService) string {
	if t == nil {
		return "Not configured"
	}
	return "Configured"
}
