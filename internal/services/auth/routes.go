package auth

import (
	"github.com/gofiber/fiber/v3"
)

// SetupRoutes настраивает маршруты аутентификации
func (s *AuthService) SetupRoutes(app *fiber.App) {
	api := app.Group("/api/auth")

	// Маршруты регистрации и входа
	api.Post("/register", s.Register)
	api.Post("/login", s.Login)
}
