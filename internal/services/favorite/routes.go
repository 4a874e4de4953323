package favorite

import (
	"github.com/gofiber/fiber/v3"
	"github.com/rewear-app/rewear-api/internal/middleware"
)

// SetupRoutes настраивает маршруты для API избранного
func (s *FavoriteService) SetupRoutes(app *fiber.App) {
	api := app.Group("/api/favorites")

	// Защищенные маршруты (требуют авторизации)
	api.Use(middleware.AuthMiddleware(s.jwtService))

	// Маршрут для получения избранного
	api.Get("/", s.GetFavorites)

	// Маршруты добавления и удаления
	api.Post("/", s.AddToFavorites)
	api.Delete("/:itemId", s.RemoveFromFavorites)
}
