package middleware

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	config "github.com/maheshrc27/curapost/configs"
)

// NewCORS allows credentialed requests only from the configured operator origins.
func NewCORS(cfg config.Config) fiber.Handler {
	return cors.New(cors.Config{
		AllowOriginsFunc: cfg.AllowsOrigin,
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-API-Key",
		AllowCredentials: true,
		MaxAge:           3600,
	})
}
