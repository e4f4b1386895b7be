package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"

	"github.com/patrona-app/patrona-backend/database"
	"github.com/patrona-app/patrona-backend/internal/models"
	"github.com/patrona-app/patrona-backend/internal/monitor"
	"github.com/patrona-app/patrona-backend/internal/routes"
	"github.com/patrona-app/patrona-backend/internal/services"
	"github.com/patrona-app/patrona-backend/internal/storage"
)

// Request bodies beyond this cap get a 413.
const maxBodyBytes = 10 * 1024

func main() {
	// Load .env file for local development
	if os.Getenv("INSTANCE_CONNECTION_NAME") == "" {
		err := godotenv.Load(".env")
		if err != nil {
			err = godotenv.Load("environments/.env.development")
			if err != nil {
				log.Println("⚠️  No .env file found - checking environment variables")
			}
		}
	}

	twilioConfigured := os.Getenv("TWILIO_ACCOUNT_SID") != "" &&
		os.Getenv("TWILIO_AUTH_TOKEN") != "" &&
		os.Getenv("TWILIO_PHONE_NUMBER") != ""
	if !twilioConfigured {
		log.Println("⚠️  Twilio credentials not found - alerts run in mock mode")
	}

	// Initialize the ping store
	var store storage.PingStore
	if os.Getenv("USE_MEMORY_STORE") == "true" {
		log.Println("⚠️  Using in-memory ping store (not for production!)")
		store = storage.NewMemoryPingStore()
	} else {
		log.Println("📦 Connecting to PostgreSQL database...")
		database.Connect()

		log.Println("🔄 Running database migrations...")
		if err := database.DB.AutoMigrate(&models.LocationPing{}); err != nil {
			log.Fatal("Failed to migrate database:", err)
		}
		log.Println("✅ Database migrations completed!")

		store = storage.NewDatabasePingStore(database.DB)
		log.Println("✅ Using PostgreSQL ping storage")
	}

	// Initialize services
	twilioService := services.NewTwilioService()
	dispatcher := services.NewAlertDispatcher(twilioService)
	walkManager := services.NewWalkManager(dispatcher, store, monitor.Config{})
	log.Println("✅ All services initialized")

	// Create fiber app
	app := fiber.New(fiber.Config{
		AppName:   "Patrona Backend v1.0.0",
		BodyLimit: maxBodyBytes,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			// Generic messages only — no internal error text on the wire
			message := "Internal server error"
			switch code {
			case fiber.StatusRequestEntityTooLarge:
				message = "Request body too large"
			case fiber.StatusNotFound:
				message = "Not found"
			case fiber.StatusMethodNotAllowed:
				message = "Method not allowed"
			}
			return c.Status(code).JSON(fiber.Map{
				"success": false,
				"error":   message,
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
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-Api-Key",
		AllowMethods: "GET, POST, OPTIONS",
	}))

	// Setup routes
	routes.SetupRoutes(app, store, dispatcher, walkManager)

	// Get port from environment or use default
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

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
	log.Printf("🚀 Patrona Backend starting on port %s", port)
	log.Printf("📊 Ping store: %s", getStorageType())
	log.Printf("📱 SMS: %s", getSMSStatus(twilioConfigured))
	log.Printf("🔐 Auth: %s", getAuthStatus())
	log.Println("========================================")

	log.Fatal(app.Listen(":" + port))
}

func getStorageType() string {
	if os.Getenv("USE_MEMORY_STORE") == "true" {
		return "In-Memory (Testing)"
	}
	return "PostgreSQL Database"
}

func getSMSStatus(configured bool) string {
	if !configured {
		return "Mock mode"
	}
	return "Configured"
}

func getAuthStatus() string {
	if os.Getenv("PATRONA_API_SECRET") == "" {
		return "Open (dev)"
	}
	return "API secret required"
}
