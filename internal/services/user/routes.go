package user

import (
	"github.com/gofiber/fiber/v3"
	"github.com/rewear-app/rewear-api/internal/middleware"
)

// SetupRoutes настраивает маршруты профиля пользователя
func (s *UserService) SetupRoutes(app *fiber.App) {
	api := app.Group("/api/users")

	// Защищенные маршруты (требуют авторизации)
	api.Use(middleware.AuthMiddleware(s.jwtService))

	// Маршруты профиля
	api.Get("/profile", s.GetProfile)
	api.Put("/profile", s.UpdateProfile)

	// Маршрут статистики обменов
	api.Get("/stats", s.GetStats)
}
