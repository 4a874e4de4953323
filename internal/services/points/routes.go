package points

import (
	"github.com/gofiber/fiber/v3"
	"github.com/rewear-app/rewear-api/internal/middleware"
)

// SetupRoutes настраивает маршруты для API баллов
func (s *PointsService) SetupRoutes(app *fiber.App) {
	api := app.Group("/api/points")

	// Защищенные маршруты (требуют авторизации)
	api.Use(middleware.AuthMiddleware(s.jwtService))

	// Сводка и история
	api.Get("/summary", s.GetSummary)
	api.Get("/history", s.GetHistory)

	// Способы заработка и начисление
	api.Get("/opportunities", s.GetOpportunities)
	api.Post("/earn", s.EarnPoints)

	// Каталог наград и покупка
	api.Get("/rewards", s.GetRewards)
	api.Post("/rewards/purchase", s.PurchaseReward)
}
