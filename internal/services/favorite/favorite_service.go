package favorite

import (
	"log"
	"strconv"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"github.com/rewear-app/rewear-api/internal/config"
	"github.com/rewear-app/rewear-api/internal/db"
	"github.com/rewear-app/rewear-api/internal/models"
	"github.com/rewear-app/rewear-api/internal/utils"
)

// FavoriteService представляет сервис для работы с избранными вещами
type FavoriteService struct {
	cfg        *config.Config
	jwtService *utils.JWTService
}

// NewFavoriteService создает новый экземпляр FavoriteService
func NewFavoriteService(cfg *config.Config) *FavoriteService {
	return &FavoriteService{
		cfg:        cfg,
		jwtService: utils.NewJWTService(cfg.JWTSecret),
	}
}

// AddToFavorites добавляет вещь в избранное
func (s *FavoriteService) AddToFavorites(c fiber.Ctx) error {
	userID := c.Locals("userID").(string)
	if userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Пользователь не авторизован"})
	}

	// Извлекаем ID вещи из запроса
	var requestData struct {
		ItemID string `json:"item_id"`
	}

	if err := c.Bind().Body(&requestData); err != nil {
		log.Printf("Ошибка декодирования тела запроса: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат данных"})
	}

	if requestData.ItemID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "ID вещи не указан"})
	}

	userUUID, err := uuid.Parse(userID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID пользователя"})
	}

	itemUUID, err := uuid.Parse(requestData.ItemID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID вещи"})
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	// Проверяем, что вещь существует и доступна
	var exists bool
	err = db.Pool.QueryRow(ctx, `
		SELECT EXISTS(SELECT 1 FROM items WHERE id = $1 AND status = $2)
	`, itemUUID, models.ItemStatusActive).Scan(&exists)

	if err != nil {
		log.Printf("Ошибка проверки существования вещи: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка проверки вещи"})
	}

	if !exists {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Вещь не найдена или недоступна"})
	}

	// Проверяем, не добавлена ли вещь в избранное ранее
	err = db.Pool.QueryRow(ctx, `
		SELECT EXISTS(SELECT 1 FROM favorites WHERE user_id = $1 AND item_id = $2)
	`, userUUID, itemUUID).Scan(&exists)

	if err != nil {
		log.Printf("Ошибка проверки избранного: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка проверки избранного"})
	}

	if exists {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Вещь уже добавлена в избранное"})
	}

	// Добавляем вещь в избранное и увеличиваем счётчик
	_, err = db.Pool.Exec(ctx, `
		INSERT INTO favorites (id, user_id, item_id) VALUES ($1, $2, $3)
	`, uuid.New(), userUUID, itemUUID)

	if err != nil {
		log.Printf("Ошибка добавления в избранное: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка добавления в избранное"})
	}

	_, err = db.Pool.Exec(ctx, `
		UPDATE items SET likes = likes + 1 WHERE id = $1
	`, itemUUID)
	if err != nil {
		log.Printf("Ошибка обновления счётчика лайков: %v", err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"message": "Вещь добавлена в избранное",
	})
}

// RemoveFromFavorites убирает вещь из избранного
func (s *FavoriteService) RemoveFromFavorites(c fiber.Ctx) error {
	userID := c.Locals("userID").(string)
	userUUID, err := uuid.Parse(userID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID пользователя"})
	}

	itemUUID, err := uuid.Parse(c.Params("itemId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID вещи"})
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	tag, err := db.Pool.Exec(ctx, `
		DELETE FROM favorites WHERE user_id = $1 AND item_id = $2
	`, userUUID, itemUUID)

	if err != nil {
		log.Printf("Ошибка удаления из избранного: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка удаления из избранного"})
	}

	if tag.RowsAffected() == 0 {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Вещь не найдена в избранном"})
	}

	_, err = db.Pool.Exec(ctx, `
		UPDATE items SET likes = GREATEST(likes - 1, 0) WHERE id = $1
	`, itemUUID)
	if err != nil {
		log.Printf("Ошибка обновления счётчика лайков: %v", err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Вещь убрана из избранного",
	})
}

// GetFavorites возвращает избранные вещи текущего пользователя
func (s *FavoriteService) GetFavorites(c fiber.Ctx) error {
	userID := c.Locals("userID").(string)
	userUUID, err := uuid.Parse(userID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID пользователя"})
	}

	limit := 20
	offset, _ := strconv.Atoi(c.Query("offset", "0"))

	ctx, cancel := db.GetContext()
	defer cancel()

	rows, err := db.Pool.Query(ctx, `
		SELECT i.id, i.owner_id, i.title, i.description, i.category, i.size, i.condition,
			   i.points, i.tags, i.status, i.location, i.views, i.likes,
			   i.swapped_with, i.swapped_at, i.created_at, i.updated_at
		FROM favorites f
		JOIN items i ON i.id = f.item_id
		WHERE f.user_id = $1 AND i.status <> $2
		ORDER BY f.created_at DESC
		LIMIT $3 OFFSET $4
	`, userUUID, models.ItemStatusRemoved, limit, offset)

	if err != nil {
		log.Printf("Ошибка запроса избранного: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка получения избранного"})
	}
	defer rows.Close()

	items := []models.Item{}
	for rows.Next() {
		var item models.Item
		var location *string

		if err := rows.Scan(
			&item.ID, &item.OwnerID, &item.Title, &item.Description, &item.Category,
			&item.Size, &item.Condition, &item.Points, &item.Tags, &item.Status,
			&location, &item.Views, &item.Likes, &item.SwappedWith, &item.SwappedAt,
			&item.CreatedAt, &item.UpdatedAt,
		); err != nil {
			log.Printf("Ошибка сканирования строки: %v", err)
			continue
		}

		if location != nil {
			item.Location = *location
		}
		items = append(items, item)
	}

	var total int
	err = db.Pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM favorites f
		JOIN items i ON i.id = f.item_id
		WHERE f.user_id = $1 AND i.status <> $2
	`, userUUID, models.ItemStatusRemoved).Scan(&total)
	if err != nil {
		log.Printf("Ошибка подсчета избранного: %v", err)
	}

	return c.JSON(fiber.Map{
		"items":  items,
		"total":  total,
		"limit":  limit,
		"offset": offset,
	})
}
