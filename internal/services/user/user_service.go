package user

import (
	"log"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"github.com/rewear-app/rewear-api/internal/config"
	"github.com/rewear-app/rewear-api/internal/db"
	"github.com/rewear-app/rewear-api/internal/models"
	"github.com/rewear-app/rewear-api/internal/swap"
	"github.com/rewear-app/rewear-api/internal/utils"
)

// UserService представляет сервис для работы с профилем пользователя
type UserService struct {
	cfg        *config.Config
	jwtService *utils.JWTService
}

// NewUserService создает новый экземпляр UserService
func NewUserService(cfg *config.Config) *UserService {
	return &UserService{
		cfg:        cfg,
		jwtService: utils.NewJWTService(cfg.JWTSecret),
	}
}

// GetProfile возвращает профиль текущего пользователя
func (s *UserService) GetProfile(c fiber.Ctx) error {
	userID := c.Locals("userID").(string)
	userUUID, err := uuid.Parse(userID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID пользователя"})
	}

	user, err := db.GetUserByID(userUUID)
	if err != nil {
		log.Printf("Ошибка получения пользователя: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка получения профиля"})
	}

	return c.JSON(fiber.Map{
		"user": fiber.Map{
			"id":         user.ID,
			"first_name": user.FirstName,
			"last_name":  user.LastName,
			"email":      user.Email,
			"phone":      user.Phone,
			"bio":        user.Bio,
			"avatar_url": user.AvatarURL,
			"location":   user.Location,
			"points":     user.Points,
			"created_at": user.CreatedAt,
		},
	})
}

// UpdateProfile обновляет профиль текущего пользователя
func (s *UserService) UpdateProfile(c fiber.Ctx) error {
	userID := c.Locals("userID").(string)
	userUUID, err := uuid.Parse(userID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID пользователя"})
	}

	var requestData struct {
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
		Phone     string `json:"phone"`
		Bio       string `json:"bio"`
		Location  string `json:"location"`
	}

	if err := c.Bind().Body(&requestData); err != nil {
		log.Printf("Ошибка декодирования тела запроса: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат данных"})
	}

	if requestData.FirstName == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Имя обязательно"})
	}

	user, err := db.UpdateUserProfile(userUUID, requestData.FirstName, requestData.LastName,
		requestData.Phone, requestData.Bio, requestData.Location)
	if err != nil {
		log.Printf("Ошибка обновления профиля: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка обновления профиля"})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"user": fiber.Map{
			"id":         user.ID,
			"first_name": user.FirstName,
			"last_name":  user.LastName,
			"phone":      user.Phone,
			"bio":        user.Bio,
			"location":   user.Location,
		},
	})
}

// GetStats возвращает статистику обменов текущего пользователя
func (s *UserService) GetStats(c fiber.Ctx) error {
	userID := c.Locals("userID").(string)
	userUUID, err := uuid.Parse(userID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID пользователя"})
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	var stats models.UserStats

	// Статистика собирается из каталога и журнала баллов
	err = db.Pool.QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM items WHERE owner_id = $1 AND status <> $2),
			(SELECT COUNT(*) FROM items WHERE owner_id = $1 AND status = $3),
			(SELECT COALESCE(SUM(amount), 0) FROM points_history WHERE user_id = $1 AND amount > 0),
			(SELECT points FROM users WHERE id = $1),
			(SELECT created_at FROM users WHERE id = $1)
	`, userUUID, models.ItemStatusRemoved, models.ItemStatusSwapped).Scan(
		&stats.ItemsListed,
		&stats.ItemsSwapped,
		&stats.TotalPointsEarned,
		&stats.CurrentPoints,
		&stats.MemberSince,
	)

	if err != nil {
		log.Printf("Ошибка получения статистики: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка получения статистики"})
	}

	// Количество завершённых обменов со стороны запросов
	var completedRequests int
	err = db.Pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM swap_requests
		WHERE requester_id = $1 AND status = $2
	`, userUUID, swap.StatusCompleted).Scan(&completedRequests)
	if err != nil {
		log.Printf("Ошибка подсчета завершённых запросов: %v", err)
	}

	return c.JSON(fiber.Map{
		"stats": fiber.Map{
			"items_listed":        stats.ItemsListed,
			"items_swapped":       stats.ItemsSwapped,
			"completed_requests":  completedRequests,
			"total_points_earned": stats.TotalPointsEarned,
			"current_points":      stats.CurrentPoints,
			"member_since":        stats.MemberSince,
		},
	})
}
