package swapservice

import (
	"github.com/gofiber/fiber/v3"
	"github.com/rewear-app/rewear-api/internal/middleware"
)

// SetupRoutes настраивает маршруты для API обменов
func (s *SwapService) SetupRoutes(app *fiber.App) {
	// Группа для API обменов
	api := app.Group("/api/swaps")

	// Защищенные маршруты (требуют авторизации)
	api.Use(middleware.AuthMiddleware(s.jwtService))

	// Маршрут для создания запроса на обмен
	api.Post("/submit-request", s.SubmitRequest)

	// Маршруты для списков запросов
	api.Get("/my-requests", s.MyRequests)
	api.Get("/incoming", s.IncomingRequests)

	// Маршруты решения владельца по паре (вещь, отправитель)
	api.Put("/accept/:itemId/:userId", s.AcceptRequest)
	api.Put("/decline/:itemId/:userId", s.DeclineRequest)

	// Маршрут для завершения принятого обмена
	api.Post("/complete", s.CompleteSwap)

	// Маршруты для отдельного запроса
	api.Get("/:id", s.GetRequest)
	api.Put("/:id/status", s.UpdateStatus)
}
