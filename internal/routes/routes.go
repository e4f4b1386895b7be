package routes

import (
	"os"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/patrona-app/patrona-backend/internal/handlers"
	"github.com/patrona-app/patrona-backend/internal/middleware"
	"github.com/patrona-app/patrona-backend/internal/services"
	"github.com/patrona-app/patrona-backend/internal/storage"
)

// SetupRoutes configures all API routes with their auth and rate-limit
// budgets.
func SetupRoutes(app *fiber.App, store storage.PingStore, dispatcher *services.AlertDispatcher, walks *services.WalkManager) {
	auth := middleware.RequireAuth(middleware.AuthConfig{
		APISecret: os.Getenv("PATRONA_API_SECRET"),
		JWTSecret: os.Getenv("AUTH_JWT_SECRET"),
	})

	alertHandler := handlers.NewAlertHandler(dispatcher)
	locationHandler := handlers.NewLocationHandler(store)
	walkHandler := handlers.NewWalkHandler(walks)
	healthHandler := handlers.NewHealthHandler("1.0.0")

	// One limiter per budget, mirroring the per-endpoint stores of the
	// serverless deployment this replaced.
	alertLimit := middleware.RateLimit(middleware.NewRateLimiter(), 5, 15*time.Minute)
	clearLimit := middleware.RateLimit(middleware.NewRateLimiter(), 10, 15*time.Minute)
	pingLimit := middleware.RateLimit(middleware.NewRateLimiter(), 120, time.Minute)
	readLimit := middleware.RateLimit(middleware.NewRateLimiter(), 60, time.Minute)
	walkLimit := middleware.RateLimit(middleware.NewRateLimiter(), 10, 15*time.Minute)
	eventLimit := middleware.RateLimit(middleware.NewRateLimiter(), 120, time.Minute)

	// Health is public: no auth, no budget.
	app.Get("/api/health", healthHandler.Check)

	api := app.Group("/api", auth)

	api.Post("/alert", alertLimit, alertHandler.SendAlert)
	api.Post("/alert/clear", clearLimit, alertHandler.ClearAlert)

	api.Post("/ping", pingLimit, locationHandler.Ping)
	api.Get("/location/:sessionId", readLimit, locationHandler.GetLocation)

	walk := api.Group("/walk")
	walk.Post("/start", walkLimit, walkHandler.StartWalk)
	walk.Post("/activity", eventLimit, walkHandler.RegisterActivity)
	walk.Post("/transcript", eventLimit, walkHandler.Transcript)
	walk.Post("/end", walkLimit, walkHandler.EndWalk)
}
