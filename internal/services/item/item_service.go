package item

import (
	"log"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/rewear-app/rewear-api/internal/config"
	"github.com/rewear-app/rewear-api/internal/db"
	"github.com/rewear-app/rewear-api/internal/models"
	"github.com/rewear-app/rewear-api/internal/swap"
	"github.com/rewear-app/rewear-api/internal/utils"
	"github.com/rewear-app/rewear-api/internal/websocket"
)

// RequestImage представляет структуру изображения в запросе создания вещи
type RequestImage struct {
	URL        string `json:"url"`
	PreviewURL string `json:"preview_url"`
	PublicID   string `json:"public_id"`
	FileName   string `json:"file_name"`
	IsMain     bool   `json:"is_main"`
}

// ItemService представляет сервис для работы с каталогом вещей
type ItemService struct {
	cfg        *config.Config
	jwtService *utils.JWTService
	dispatcher websocket.Dispatcher
}

// NewItemService создает новый экземпляр ItemService
func NewItemService(cfg *config.Config, dispatcher websocket.Dispatcher) *ItemService {
	return &ItemService{
		cfg:        cfg,
		jwtService: utils.NewJWTService(cfg.JWTSecret),
		dispatcher: dispatcher,
	}
}

// CreateItem обрабатывает добавление новой вещи в каталог
func (s *ItemService) CreateItem(c fiber.Ctx) error {
	userID := c.Locals("userID").(string)
	if userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Пользователь не авторизован"})
	}

	userUUID, err := uuid.Parse(userID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID пользователя"})
	}

	// Извлекаем данные из запроса
	var requestData struct {
		Title       string         `json:"title"`
		Description string         `json:"description"`
		Category    string         `json:"category"`
		Size        string         `json:"size"`
		Condition   string         `json:"condition"`
		Points      int            `json:"points"`
		Tags        []string       `json:"tags"`
		Location    string         `json:"location"`
		Images      []RequestImage `json:"images"`
	}

	if err := c.Bind().Body(&requestData); err != nil {
		log.Printf("Ошибка декодирования тела запроса: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат данных"})
	}

	// Валидация обязательных полей
	if strings.TrimSpace(requestData.Title) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Название обязательно"})
	}

	if !models.ValidItemCategories[requestData.Category] {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Выберите категорию одежды"})
	}

	if !swap.IsValidCondition(requestData.Condition) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Укажите состояние вещи"})
	}

	if len(requestData.Images) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Добавьте хотя бы одно изображение"})
	}

	if requestData.Points < 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Баллы не могут быть отрицательными"})
	}

	// Создаем ID для новой вещи
	itemID := uuid.New()

	ctx, cancel := db.GetContext()
	defer cancel()

	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		log.Printf("Ошибка начала транзакции: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка базы данных"})
	}
	defer tx.Rollback(ctx)

	// Вставляем вещь
	_, err = tx.Exec(ctx, `
		INSERT INTO items (id, owner_id, title, description, category, size, condition, points, tags, location, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, itemID, userUUID, requestData.Title, requestData.Description, requestData.Category,
		requestData.Size, requestData.Condition, requestData.Points, requestData.Tags,
		requestData.Location, models.ItemStatusActive)

	if err != nil {
		log.Printf("Ошибка вставки вещи: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка сохранения вещи"})
	}

	// Вставляем изображения
	for i, img := range requestData.Images {
		isMain := img.IsMain || i == 0 // Первое изображение - основное

		_, err = tx.Exec(ctx, `
			INSERT INTO item_images (item_id, url, preview_url, public_id, file_name, is_main, position)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, itemID, img.URL, img.PreviewURL, img.PublicID, img.FileName, isMain, i)

		if err != nil {
			log.Printf("Ошибка вставки изображения: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка сохранения изображений"})
		}
	}

	if err = tx.Commit(ctx); err != nil {
		log.Printf("Ошибка фиксации транзакции: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка базы данных"})
	}

	// Уведомляем всех, кто просматривает каталог
	s.dispatcher.Broadcast(websocket.BrowseRoom, websocket.NewEvent(websocket.EventItemAdded, fiber.Map{
		"id":       itemID,
		"title":    requestData.Title,
		"category": requestData.Category,
		"points":   requestData.Points,
	}))

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"item_id": itemID,
		"message": "Вещь успешно добавлена",
	})
}

// itemColumns — колонки items в порядке scanItem
const itemColumns = `id, owner_id, title, description, category, size, condition,
	points, tags, status, location, views, likes, swapped_with, swapped_at, created_at, updated_at`

// scanItem читает строку items в модель
func scanItem(row pgx.Row) (*models.Item, error) {
	var item models.Item
	var location *string

	err := row.Scan(
		&item.ID, &item.OwnerID, &item.Title, &item.Description, &item.Category,
		&item.Size, &item.Condition, &item.Points, &item.Tags, &item.Status,
		&location, &item.Views, &item.Likes, &item.SwappedWith, &item.SwappedAt,
		&item.CreatedAt, &item.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if location != nil {
		item.Location = *location
	}
	return &item, nil
}

// getItemImages возвращает изображения вещи в порядке позиций
func getItemImages(itemID uuid.UUID) []models.ItemImage {
	ctx, cancel := db.GetContext()
	defer cancel()

	rows, err := db.Pool.Query(ctx, `
		SELECT id, item_id, url, preview_url, public_id, file_name, is_main, position, created_at
		FROM item_images
		WHERE item_id = $1
		ORDER BY position ASC
	`, itemID)

	if err != nil {
		log.Printf("Ошибка запроса изображений: %v", err)
		return nil
	}
	defer rows.Close()

	var images []models.ItemImage
	for rows.Next() {
		var img models.ItemImage
		var previewURL, fileName *string

		if err := rows.Scan(
			&img.ID, &img.ItemID, &img.URL, &previewURL, &img.PublicID,
			&fileName, &img.IsMain, &img.Position, &img.CreatedAt,
		); err != nil {
			log.Printf("Ошибка сканирования изображения: %v", err)
			continue
		}

		if previewURL != nil {
			img.PreviewURL = *previewURL
		}
		if fileName != nil {
			img.FileName = *fileName
		}

		images = append(images, img)
	}

	return images
}

// GetMyItems возвращает список вещей текущего пользователя
func (s *ItemService) GetMyItems(c fiber.Ctx) error {
	userID := c.Locals("userID").(string)
	userUUID, err := uuid.Parse(userID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID пользователя"})
	}

	// Параметры фильтрации и пагинации
	status := c.Query("status", "all") // all, Active, Pending, Swapped
	limit := 20
	offset, _ := strconv.Atoi(c.Query("offset", "0"))

	ctx, cancel := db.GetContext()
	defer cancel()

	rows, err := db.Pool.Query(ctx, `
		SELECT `+itemColumns+`
		FROM items
		WHERE owner_id = $1 AND ($2 = 'all' OR status = $2) AND status <> $3
		ORDER BY updated_at DESC
		LIMIT $4 OFFSET $5
	`, userUUID, status, models.ItemStatusRemoved, limit, offset)

	if err != nil {
		log.Printf("Ошибка запроса вещей: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка получения вещей"})
	}
	defer rows.Close()

	items := []models.Item{}
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			log.Printf("Ошибка сканирования строки: %v", err)
			continue
		}
		items = append(items, *item)
	}
	rows.Close()

	for i := range items {
		items[i].Images = getItemImages(items[i].ID)
	}

	// Общее количество для пагинации
	var total int
	err = db.Pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM items
		WHERE owner_id = $1 AND ($2 = 'all' OR status = $2) AND status <> $3
	`, userUUID, status, models.ItemStatusRemoved).Scan(&total)
	if err != nil {
		log.Printf("Ошибка подсчета вещей: %v", err)
		// Игнорируем ошибку, просто не вернем общее количество
	}

	return c.JSON(fiber.Map{
		"items":  items,
		"total":  total,
		"limit":  limit,
		"offset": offset,
	})
}

// BrowseItems возвращает каталог доступных вещей с фильтрами
func (s *ItemService) BrowseItems(c fiber.Ctx) error {
	category := c.Query("category")
	size := c.Query("size")
	condition := c.Query("condition")
	search := c.Query("search")
	sort := c.Query("sort", "newest") // newest, points, popular

	limit, _ := strconv.Atoi(c.Query("limit", "20"))
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	offset, _ := strconv.Atoi(c.Query("offset", "0"))
	if offset < 0 {
		offset = 0
	}

	if category != "" && !models.ValidItemCategories[category] {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неизвестная категория"})
	}

	orderBy := "i.created_at DESC"
	switch sort {
	case "points":
		orderBy = "i.points ASC, i.created_at DESC"
	case "popular":
		orderBy = "i.views DESC, i.created_at DESC"
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	// В каталоге показываются только доступные вещи
	query := `
		SELECT ` + itemColumns + `
		FROM items i
		WHERE i.status = $1
		  AND ($2 = '' OR i.category = $2)
		  AND ($3 = '' OR i.size = $3)
		  AND ($4 = '' OR i.condition = $4)
		  AND ($5 = '' OR i.title ILIKE '%' || $5 || '%' OR i.description ILIKE '%' || $5 || '%')
		ORDER BY ` + orderBy + `
		LIMIT $6 OFFSET $7
	`

	rows, err := db.Pool.Query(ctx, query,
		models.ItemStatusActive, category, size, condition, search, limit, offset)
	if err != nil {
		log.Printf("Ошибка запроса каталога: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка получения каталога"})
	}
	defer rows.Close()

	items := []models.Item{}
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			log.Printf("Ошибка сканирования строки: %v", err)
			continue
		}
		items = append(items, *item)
	}
	rows.Close()

	for i := range items {
		items[i].Images = getItemImages(items[i].ID)
	}

	var total int
	err = db.Pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM items i
		WHERE i.status = $1
		  AND ($2 = '' OR i.category = $2)
		  AND ($3 = '' OR i.size = $3)
		  AND ($4 = '' OR i.condition = $4)
		  AND ($5 = '' OR i.title ILIKE '%' || $5 || '%' OR i.description ILIKE '%' || $5 || '%')
	`, models.ItemStatusActive, category, size, condition, search).Scan(&total)
	if err != nil {
		log.Printf("Ошибка подсчета каталога: %v", err)
	}

	return c.JSON(fiber.Map{
		"items":  items,
		"total":  total,
		"limit":  limit,
		"offset": offset,
	})
}

// GetItem возвращает детальную информацию о вещи
func (s *ItemService) GetItem(c fiber.Ctx) error {
	itemUUID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID вещи"})
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	item, err := scanItem(db.Pool.QueryRow(ctx, `
		SELECT `+itemColumns+` FROM items WHERE id = $1 AND status <> $2
	`, itemUUID, models.ItemStatusRemoved))

	if err != nil {
		if err == pgx.ErrNoRows {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Вещь не найдена"})
		}
		log.Printf("Ошибка получения вещи: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка получения вещи"})
	}

	item.Images = getItemImages(item.ID)

	// Получаем информацию о владельце
	owner, err := db.GetUserByID(item.OwnerID)
	if err != nil && err != pgx.ErrNoRows {
		log.Printf("Ошибка получения данных владельца: %v", err)
	}
	if owner != nil {
		item.Owner = &models.User{
			ID:        owner.ID,
			FirstName: owner.FirstName,
			LastName:  owner.LastName,
			AvatarURL: owner.AvatarURL,
			Location:  owner.Location,
		}
	}

	// Счётчик просмотров обновляется асинхронно, ответ не задерживаем
	go func(id uuid.UUID) {
		viewCtx, viewCancel := db.GetContext()
		defer viewCancel()
		if _, err := db.Pool.Exec(viewCtx, `
			UPDATE items SET views = views + 1 WHERE id = $1
		`, id); err != nil {
			log.Printf("Ошибка обновления счётчика просмотров: %v", err)
		}
	}(item.ID)

	return c.JSON(fiber.Map{"item": item})
}

// UpdateItem обновляет вещь текущего пользователя
func (s *ItemService) UpdateItem(c fiber.Ctx) error {
	userID := c.Locals("userID").(string)
	userUUID, err := uuid.Parse(userID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID пользователя"})
	}

	itemUUID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID вещи"})
	}

	var requestData struct {
		Title       string   `json:"title"`
		Description string   `json:"description"`
		Category    string   `json:"category"`
		Size        string   `json:"size"`
		Condition   string   `json:"condition"`
		Points      int      `json:"points"`
		Tags        []string `json:"tags"`
		Location    string   `json:"location"`
	}

	if err := c.Bind().Body(&requestData); err != nil {
		log.Printf("Ошибка декодирования тела запроса: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат данных"})
	}

	if strings.TrimSpace(requestData.Title) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Название обязательно"})
	}
	if !models.ValidItemCategories[requestData.Category] {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Выберите категорию одежды"})
	}
	if !swap.IsValidCondition(requestData.Condition) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Укажите состояние вещи"})
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	// Проверяем владельца и текущий статус
	var ownerID uuid.UUID
	var status string
	err = db.Pool.QueryRow(ctx, `
		SELECT owner_id, status FROM items WHERE id = $1
	`, itemUUID).Scan(&ownerID, &status)

	if err != nil {
		if err == pgx.ErrNoRows {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Вещь не найдена"})
		}
		log.Printf("Ошибка получения вещи: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка получения вещи"})
	}

	if ownerID != userUUID {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Вы можете изменять только свои вещи"})
	}

	// Обменянные вещи заморожены
	if status == models.ItemStatusSwapped {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Обменянную вещь нельзя изменить"})
	}

	_, err = db.Pool.Exec(ctx, `
		UPDATE items
		SET title = $1, description = $2, category = $3, size = $4, condition = $5,
			points = $6, tags = $7, location = $8, updated_at = CURRENT_TIMESTAMP
		WHERE id = $9
	`, requestData.Title, requestData.Description, requestData.Category, requestData.Size,
		requestData.Condition, requestData.Points, requestData.Tags, requestData.Location, itemUUID)

	if err != nil {
		log.Printf("Ошибка обновления вещи: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка обновления вещи"})
	}

	s.dispatcher.Broadcast(websocket.BrowseRoom, websocket.NewEvent(websocket.EventItemUpdated, fiber.Map{
		"id":       itemUUID,
		"title":    requestData.Title,
		"category": requestData.Category,
		"points":   requestData.Points,
	}))

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Вещь успешно обновлена",
	})
}

// DeleteItem убирает вещь из каталога
func (s *ItemService) DeleteItem(c fiber.Ctx) error {
	userID := c.Locals("userID").(string)
	userUUID, err := uuid.Parse(userID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID пользователя"})
	}

	itemUUID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID вещи"})
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	var ownerID uuid.UUID
	var status string
	err = db.Pool.QueryRow(ctx, `
		SELECT owner_id, status FROM items WHERE id = $1
	`, itemUUID).Scan(&ownerID, &status)

	if err != nil {
		if err == pgx.ErrNoRows {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Вещь не найдена"})
		}
		log.Printf("Ошибка получения вещи: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка получения вещи"})
	}

	if ownerID != userUUID {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Вы можете удалять только свои вещи"})
	}

	if status == models.ItemStatusSwapped {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Обменянную вещь нельзя удалить"})
	}

	// Вещь скрывается, а не удаляется: на неё могут ссылаться запросы
	_, err = db.Pool.Exec(ctx, `
		UPDATE items SET status = $1, updated_at = CURRENT_TIMESTAMP WHERE id = $2
	`, models.ItemStatusRemoved, itemUUID)

	if err != nil {
		log.Printf("Ошибка удаления вещи: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка удаления вещи"})
	}

	s.dispatcher.Broadcast(websocket.BrowseRoom, websocket.NewEvent(websocket.EventItemDeleted, fiber.Map{
		"id": itemUUID,
	}))

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Вещь убрана из каталога",
	})
}
