package item

import (
	"github.com/gofiber/fiber/v3"
	"github.com/rewear-app/rewear-api/internal/middleware"
)

// SetupRoutes настраивает маршруты для API каталога вещей
func (s *ItemService) SetupRoutes(app *fiber.App) {
	// Группа для API вещей
	api := app.Group("/api/items")

	// Публичные маршруты каталога
	api.Get("/browse", s.BrowseItems)

	// Защищенные маршруты (требуют авторизации)
	api.Use(middleware.AuthMiddleware(s.jwtService))

	// Маршрут для добавления вещи
	api.Post("/", s.CreateItem)

	// Маршрут для получения своих вещей
	api.Get("/my", s.GetMyItems)

	// Маршруты для отдельной вещи
	api.Get("/:id", s.GetItem)
	api.Put("/:id", s.UpdateItem)
	api.Delete("/:id", s.DeleteItem)
}
