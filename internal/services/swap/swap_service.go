package swapservice

import (
	"encoding/json"
	"errors"
	"log"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/rewear-app/rewear-api/internal/config"
	"github.com/rewear-app/rewear-api/internal/db"
	"github.com/rewear-app/rewear-api/internal/models"
	"github.com/rewear-app/rewear-api/internal/services/email"
	"github.com/rewear-app/rewear-api/internal/swap"
	"github.com/rewear-app/rewear-api/internal/utils"
	"github.com/rewear-app/rewear-api/internal/websocket"
)

// Количество баллов, начисляемых каждому участнику за завершённый обмен
const completionPoints = 100

// SwapService представляет сервис для работы с запросами на обмен
type SwapService struct {
	cfg        *config.Config
	jwtService *utils.JWTService
	dispatcher websocket.Dispatcher
	email      *email.Service
}

// NewSwapService создает новый экземпляр SwapService
func NewSwapService(cfg *config.Config, dispatcher websocket.Dispatcher, emailService *email.Service) *SwapService {
	return &SwapService{
		cfg:        cfg,
		jwtService: utils.NewJWTService(cfg.JWTSecret),
		dispatcher: dispatcher,
		email:      emailService,
	}
}

// swapColumns — колонки swap_requests в порядке scanSwapRequest
const swapColumns = `id, item_id, requester_id,
	receiver_name, receiver_email, receiver_phone,
	street, city, state, zip_code, country,
	contact_method, special_instructions, preferred_date, preferred_time,
	item_condition, item_description, item_images,
	status, reviewed_by, reviewed_at, review_notes,
	completed_at, swap_chat_id, notifications, version, created_at, updated_at`

// scanSwapRequest читает строку swap_requests в модель
func scanSwapRequest(row pgx.Row) (*models.SwapRequest, error) {
	var r models.SwapRequest
	var preferredDate *time.Time
	var reviewNotes, specialInstructions, preferredTime *string
	var notificationsJSON []byte

	err := row.Scan(
		&r.ID, &r.ItemID, &r.RequesterID,
		&r.ReceiverDetails.Name, &r.ReceiverDetails.Email, &r.ReceiverDetails.Phone,
		&r.Address.Street, &r.Address.City, &r.Address.State, &r.Address.ZipCode, &r.Address.Country,
		&r.Preferences.ContactMethod, &specialInstructions, &preferredDate, &preferredTime,
		&r.ItemDetails.Condition, &r.ItemDetails.Description, &r.ItemDetails.Images,
		&r.Status, &r.ReviewedBy, &r.ReviewedAt, &reviewNotes,
		&r.CompletedAt, &r.SwapChatID, &notificationsJSON, &r.Version, &r.CreatedAt, &r.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if specialInstructions != nil {
		r.Preferences.SpecialInstructions = *specialInstructions
	}
	if preferredDate != nil {
		r.Preferences.PreferredDate = preferredDate.Format("2006-01-02")
	}
	if preferredTime != nil {
		r.Preferences.PreferredTime = *preferredTime
	}
	if reviewNotes != nil {
		r.ReviewNotes = *reviewNotes
	}

	if len(notificationsJSON) > 0 {
		if err := json.Unmarshal(notificationsJSON, &r.Notifications); err != nil {
			log.Printf("Ошибка разбора уведомлений запроса %s: %v", r.ID, err)
		}
	}

	return &r, nil
}

// notificationEntry сериализует одну запись журнала уведомлений
// в виде JSONB-массива для конкатенации
func notificationEntry(notifType, message string) []byte {
	entry := []models.SwapNotification{{
		Type:    notifType,
		Message: message,
		SentAt:  time.Now(),
		Read:    false,
	}}
	data, err := json.Marshal(entry)
	if err != nil {
		log.Printf("Ошибка сериализации уведомления: %v", err)
		return []byte("[]")
	}
	return data
}

// SubmitRequest создает новый запрос на обмен
func (s *SwapService) SubmitRequest(c fiber.Ctx) error {
	userID := c.Locals("userID").(string)
	if userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Пользователь не авторизован"})
	}

	requesterID, err := uuid.Parse(userID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID пользователя"})
	}

	// Извлекаем данные из запроса
	var input swap.SubmitInput
	if err := c.Bind().Body(&input); err != nil {
		log.Printf("Ошибка декодирования тела запроса: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Неверный формат данных",
			"code":  "invalid_body",
		})
	}

	input.Normalize()

	// Валидация всех полей формы
	if fieldErrors := swap.ValidateSubmit(&input); len(fieldErrors) > 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":  "Проверьте правильность заполнения формы",
			"code":   "validation_error",
			"errors": fieldErrors,
		})
	}

	itemID, err := uuid.Parse(input.ItemID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Неверный формат ID вещи",
			"code":  "invalid_item_id",
		})
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	// Проверяем вещь: существование, владельца и доступность
	var ownerID uuid.UUID
	var itemTitle, itemStatus string
	err = db.Pool.QueryRow(ctx, `
		SELECT owner_id, title, status FROM items WHERE id = $1
	`, itemID).Scan(&ownerID, &itemTitle, &itemStatus)

	if err != nil {
		if err == pgx.ErrNoRows {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Вещь не найдена",
				"code":  "item_not_found",
			})
		}
		log.Printf("Ошибка запроса вещи: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка проверки вещи"})
	}

	// Нельзя предложить обмен на собственную вещь
	if ownerID == requesterID {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": "Вы не можете предложить обмен на собственную вещь",
			"code":  "self_swap",
		})
	}

	if itemStatus != models.ItemStatusActive {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Вещь недоступна для обмена",
			"code":  "item_unavailable",
		})
	}

	// Один активный запрос на пару (вещь, отправитель)
	var existingCount int
	err = db.Pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM swap_requests
		WHERE item_id = $1 AND requester_id = $2 AND status = ANY($3)
	`, itemID, requesterID, swap.NonTerminalStatuses()).Scan(&existingCount)

	if err != nil {
		log.Printf("Ошибка проверки существующих запросов: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка проверки запросов"})
	}

	if existingCount > 0 {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": "У вас уже есть активный запрос на эту вещь",
			"code":  "duplicate_request",
		})
	}

	var preferredDate interface{}
	if input.Preferences.PreferredDate != "" {
		preferredDate = input.Preferences.PreferredDate
	}

	// Создаем запрос со стартовым уведомлением в журнале
	var swapID uuid.UUID
	err = db.Pool.QueryRow(ctx, `
		INSERT INTO swap_requests (
			item_id, requester_id,
			receiver_name, receiver_email, receiver_phone,
			street, city, state, zip_code, country,
			contact_method, special_instructions, preferred_date, preferred_time,
			item_condition, item_description, item_images,
			status, notifications
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
		RETURNING id
	`,
		itemID, requesterID,
		input.ReceiverDetails.Name, input.ReceiverDetails.Email, input.ReceiverDetails.Phone,
		input.Address.Street, input.Address.City, input.Address.State, input.Address.ZipCode, input.Address.Country,
		input.Preferences.ContactMethod, input.Preferences.SpecialInstructions, preferredDate, input.Preferences.PreferredTime,
		input.ItemDetails.Condition, input.ItemDetails.Description, input.ItemDetails.Images,
		swap.StatusPending, notificationEntry("status_change", "Запрос на обмен отправлен"),
	).Scan(&swapID)

	if err != nil {
		// Частичный уникальный индекс ловит гонку двух одновременных запросов
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"error": "У вас уже есть активный запрос на эту вещь",
				"code":  "duplicate_request",
			})
		}
		log.Printf("Ошибка создания запроса на обмен: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка создания запроса"})
	}

	// Уведомляем владельца вещи в реальном времени.
	// Имя берётся из контактных данных запроса, а не из профиля:
	// запрос мог быть оформлен на другого получателя.
	s.dispatcher.SendToUser(ownerID.String(), websocket.NewEvent(websocket.EventNewSwapRequest, fiber.Map{
		"requestId":     swapID,
		"itemId":        itemID,
		"itemTitle":     itemTitle,
		"requesterId":   requesterID,
		"requesterName": input.ReceiverDetails.Name,
		"status":        swap.StatusPending,
	}))

	// Письмо владельцу — best-effort, ответ не задерживаем
	if s.email != nil {
		go s.email.SendSwapRequested(ownerID, itemTitle, input.ReceiverDetails.Name)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"swapId":  swapID,
		"status":  swap.StatusPending,
	})
}

// MyRequests возвращает запросы, отправленные текущим пользователем
func (s *SwapService) MyRequests(c fiber.Ctx) error {
	userID := c.Locals("userID").(string)
	requesterID, err := uuid.Parse(userID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID пользователя"})
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	statusFilter := c.Query("status")
	if statusFilter != "" && !swap.IsValidStatus(swap.Status(statusFilter)) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Неизвестный статус",
			"code":  "invalid_status",
		})
	}

	rows, err := db.Pool.Query(ctx, `
		SELECT sr.id, sr.item_id, i.title,
			   COALESCE((SELECT url FROM item_images WHERE item_id = i.id AND is_main = true LIMIT 1), ''),
			   u.id, u.first_name, u.last_name, u.avatar_url, u.location,
			   sr.status, sr.item_description, sr.created_at
		FROM swap_requests sr
		JOIN items i ON i.id = sr.item_id
		JOIN users u ON u.id = i.owner_id
		WHERE sr.requester_id = $1 AND ($2 = '' OR sr.status = $2)
		ORDER BY sr.created_at DESC
	`, requesterID, statusFilter)

	if err != nil {
		log.Printf("Ошибка запроса списка обменов: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка получения запросов"})
	}
	defer rows.Close()

	requests, err := scanSummaries(rows, true)
	if err != nil {
		log.Printf("Ошибка чтения списка обменов: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка получения запросов"})
	}

	return c.JSON(fiber.Map{"requests": requests, "count": len(requests)})
}

// IncomingRequests возвращает запросы на вещи текущего пользователя
func (s *SwapService) IncomingRequests(c fiber.Ctx) error {
	userID := c.Locals("userID").(string)
	ownerID, err := uuid.Parse(userID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID пользователя"})
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	statusFilter := c.Query("status")
	if statusFilter != "" && !swap.IsValidStatus(swap.Status(statusFilter)) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Неизвестный статус",
			"code":  "invalid_status",
		})
	}

	rows, err := db.Pool.Query(ctx, `
		SELECT sr.id, sr.item_id, i.title,
			   COALESCE((SELECT url FROM item_images WHERE item_id = i.id AND is_main = true LIMIT 1), ''),
			   u.id, u.first_name, u.last_name, u.avatar_url, u.location,
			   sr.status, sr.item_description, sr.created_at
		FROM swap_requests sr
		JOIN items i ON i.id = sr.item_id
		JOIN users u ON u.id = sr.requester_id
		WHERE i.owner_id = $1 AND ($2 = '' OR sr.status = $2)
		ORDER BY sr.created_at DESC
	`, ownerID, statusFilter)

	if err != nil {
		log.Printf("Ошибка запроса входящих обменов: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка получения запросов"})
	}
	defer rows.Close()

	requests, err := scanSummaries(rows, false)
	if err != nil {
		log.Printf("Ошибка чтения входящих обменов: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка получения запросов"})
	}

	return c.JSON(fiber.Map{"requests": requests, "count": len(requests)})
}

// scanSummaries читает строки выборки в краткие представления запросов.
// counterpartyIsOwner определяет, кем является пользователь из выборки:
// владельцем вещи (исходящие запросы) или отправителем (входящие).
func scanSummaries(rows pgx.Rows, counterpartyIsOwner bool) ([]models.SwapRequestSummary, error) {
	summaries := []models.SwapRequestSummary{}

	for rows.Next() {
		var sum models.SwapRequestSummary
		var counterparty models.User
		var firstName, lastName, avatarURL, location, message *string

		err := rows.Scan(
			&sum.RequestID, &sum.ItemID, &sum.ItemTitle, &sum.ItemImage,
			&counterparty.ID, &firstName, &lastName, &avatarURL, &location,
			&sum.Status, &message, &sum.CreatedAt,
		)
		if err != nil {
			return nil, err
		}

		if firstName != nil {
			counterparty.FirstName = *firstName
		}
		if lastName != nil {
			counterparty.LastName = *lastName
		}
		if avatarURL != nil {
			counterparty.AvatarURL = *avatarURL
		}
		if location != nil {
			counterparty.Location = *location
		}
		if message != nil {
			sum.Message = *message
		}

		if counterpartyIsOwner {
			sum.Owner = &counterparty
		} else {
			sum.Requester = &counterparty
		}

		summaries = append(summaries, sum)
	}

	return summaries, rows.Err()
}

// AcceptRequest принимает запрос на обмен по паре (вещь, отправитель)
func (s *SwapService) AcceptRequest(c fiber.Ctx) error {
	return s.reviewRequest(c, swap.StatusAccepted)
}

// DeclineRequest отклоняет запрос на обмен по паре (вещь, отправитель)
func (s *SwapService) DeclineRequest(c fiber.Ctx) error {
	return s.reviewRequest(c, swap.StatusDeclined)
}

// reviewRequest — общий путь принятия и отклонения запроса владельцем
func (s *SwapService) reviewRequest(c fiber.Ctx, target swap.Status) error {
	userID := c.Locals("userID").(string)
	reviewerID, err := uuid.Parse(userID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID пользователя"})
	}

	itemID, err := uuid.Parse(c.Params("itemId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID вещи"})
	}

	requesterID, err := uuid.Parse(c.Params("userId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID отправителя"})
	}

	// Необязательный комментарий владельца к решению
	var body struct {
		Notes string `json:"notes"`
	}
	if len(c.Body()) > 0 {
		if err := c.Bind().Body(&body); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат данных"})
		}
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	// Решение принимает только владелец вещи
	var ownerID uuid.UUID
	var itemTitle string
	err = db.Pool.QueryRow(ctx, `
		SELECT owner_id, title FROM items WHERE id = $1
	`, itemID).Scan(&ownerID, &itemTitle)

	if err != nil {
		if err == pgx.ErrNoRows {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Вещь не найдена", "code": "item_not_found"})
		}
		log.Printf("Ошибка запроса вещи: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка проверки вещи"})
	}

	if ownerID != reviewerID {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "Решение по запросу принимает только владелец вещи",
			"code":  "not_owner",
		})
	}

	// Берём самый ранний запрос этой пары, ожидающий решения
	var swapID uuid.UUID
	var currentStatus swap.Status
	var version int
	var receiverEmail, contactMethod string
	err = db.Pool.QueryRow(ctx, `
		SELECT id, status, version, receiver_email, contact_method FROM swap_requests
		WHERE item_id = $1 AND requester_id = $2 AND status = ANY($3)
		ORDER BY created_at ASC
		LIMIT 1
	`, itemID, requesterID, []string{string(swap.StatusPending), string(swap.StatusUnderReview)}).
		Scan(&swapID, &currentStatus, &version, &receiverEmail, &contactMethod)

	if err != nil {
		if err == pgx.ErrNoRows {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Запрос, ожидающий решения, не найден",
				"code":  "request_not_found",
			})
		}
		log.Printf("Ошибка поиска запроса на обмен: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка поиска запроса"})
	}

	notifMessage := "Запрос на обмен принят"
	if target == swap.StatusDeclined {
		notifMessage = "Запрос на обмен отклонён"
	}

	// При принятии запросу назначается комната чата обмена
	var swapChatID interface{}
	if target == swap.StatusAccepted {
		swapChatID = uuid.New()
	}

	// Обновление с проверкой версии: параллельное решение не затирается
	tag, err := db.Pool.Exec(ctx, `
		UPDATE swap_requests
		SET status = $1, reviewed_by = $2, reviewed_at = CURRENT_TIMESTAMP, review_notes = $3,
			swap_chat_id = COALESCE($4::uuid, swap_chat_id),
			notifications = notifications || $5::jsonb,
			version = version + 1, updated_at = CURRENT_TIMESTAMP
		WHERE id = $6 AND status = $7 AND version = $8
	`, target, reviewerID, body.Notes, swapChatID,
		notificationEntry("status_change", notifMessage), swapID, currentStatus, version)

	if err != nil {
		log.Printf("Ошибка обновления статуса запроса: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка обновления запроса"})
	}

	if tag.RowsAffected() == 0 {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": "Запрос уже обработан",
			"code":  "request_conflict",
		})
	}

	// Уведомляем отправителя запроса, кто принял решение
	reviewerName, err := db.GetUserName(ctx, reviewerID)
	if err != nil {
		log.Printf("Ошибка получения имени пользователя %s: %v", reviewerID, err)
	}

	payload := fiber.Map{
		"swapId":       swapID,
		"itemId":       itemID,
		"itemTitle":    itemTitle,
		"status":       target,
		"fromUserId":   reviewerID,
		"fromUserName": reviewerName,
	}
	if swapChatID != nil {
		payload["swapChatId"] = swapChatID
	}
	s.dispatcher.SendToUser(requesterID.String(), websocket.NewEvent(websocket.EventSwapStatusUpdated, payload))

	// Письмо уходит на контакт получателя из запроса, если он выбрал email
	if s.email != nil && contactMethod != "phone" && receiverEmail != "" {
		go s.email.SendSwapDecisionEmail(receiverEmail, itemTitle, string(target))
	}

	response := fiber.Map{"success": true, "swapId": swapID, "status": target}
	if swapChatID != nil {
		response["swapChatId"] = swapChatID
	}
	return c.JSON(response)
}

// CompleteSwap завершает принятый обмен между двумя вещами
func (s *SwapService) CompleteSwap(c fiber.Ctx) error {
	userID := c.Locals("userID").(string)
	callerID, err := uuid.Parse(userID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID пользователя"})
	}

	var body struct {
		Item1ID string `json:"item1Id"`
		Item2ID string `json:"item2Id"`
	}
	if err := c.Bind().Body(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат данных"})
	}

	item1ID, err := uuid.Parse(body.Item1ID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID первой вещи"})
	}
	item2ID, err := uuid.Parse(body.Item2ID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID второй вещи"})
	}
	if item1ID == item2ID {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Нельзя обменять вещь на саму себя"})
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		log.Printf("Ошибка начала транзакции: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка завершения обмена"})
	}
	defer tx.Rollback(ctx)

	// Блокируем обе вещи на время завершения
	type lockedItem struct {
		ID      uuid.UUID
		OwnerID uuid.UUID
		Title   string
		Status  string
	}
	items := make(map[uuid.UUID]*lockedItem, 2)

	rows, err := tx.Query(ctx, `
		SELECT id, owner_id, title, status FROM items WHERE id = ANY($1) FOR UPDATE
	`, []uuid.UUID{item1ID, item2ID})
	if err != nil {
		log.Printf("Ошибка блокировки вещей: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка завершения обмена"})
	}
	for rows.Next() {
		var it lockedItem
		if err := rows.Scan(&it.ID, &it.OwnerID, &it.Title, &it.Status); err != nil {
			rows.Close()
			log.Printf("Ошибка чтения вещей: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка завершения обмена"})
		}
		items[it.ID] = &it
	}
	rows.Close()

	item1, ok1 := items[item1ID]
	item2, ok2 := items[item2ID]
	if !ok1 || !ok2 {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Вещь не найдена", "code": "item_not_found"})
	}

	// Завершить обмен может любой из двух участников
	if item1.OwnerID != callerID && item2.OwnerID != callerID {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "Вы не являетесь участником этого обмена",
			"code":  "not_participant",
		})
	}

	if item1.OwnerID == item2.OwnerID {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Вещи принадлежат одному пользователю"})
	}

	// Между вещами должен существовать принятый запрос
	var swapID uuid.UUID
	var swapItemID, swapRequesterID uuid.UUID
	var version int
	err = tx.QueryRow(ctx, `
		SELECT id, item_id, requester_id, version FROM swap_requests
		WHERE status = $1
		  AND ((item_id = $2 AND requester_id = $3) OR (item_id = $4 AND requester_id = $5))
		ORDER BY reviewed_at ASC
		LIMIT 1
	`, swap.StatusAccepted, item1ID, item2.OwnerID, item2ID, item1.OwnerID).
		Scan(&swapID, &swapItemID, &swapRequesterID, &version)

	if err != nil {
		if err == pgx.ErrNoRows {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"error": "Между этими вещами нет принятого запроса на обмен",
				"code":  "no_accepted_request",
			})
		}
		log.Printf("Ошибка поиска принятого запроса: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка завершения обмена"})
	}

	// Переводим запрос в завершённые с проверкой версии
	tag, err := tx.Exec(ctx, `
		UPDATE swap_requests
		SET status = $1, completed_at = CURRENT_TIMESTAMP,
			notifications = notifications || $2::jsonb,
			version = version + 1, updated_at = CURRENT_TIMESTAMP
		WHERE id = $3 AND status = $4 AND version = $5
	`, swap.StatusCompleted, notificationEntry("status_change", "Обмен завершён"),
		swapID, swap.StatusAccepted, version)

	if err != nil {
		log.Printf("Ошибка завершения запроса: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка завершения обмена"})
	}
	if tag.RowsAffected() == 0 {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": "Запрос уже обработан",
			"code":  "request_conflict",
		})
	}

	// Обе вещи помечаются обменянными с перекрёстными ссылками
	_, err = tx.Exec(ctx, `
		UPDATE items SET status = $1, swapped_with = $2, swapped_at = CURRENT_TIMESTAMP,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = $3
	`, models.ItemStatusSwapped, item2ID, item1ID)
	if err == nil {
		_, err = tx.Exec(ctx, `
			UPDATE items SET status = $1, swapped_with = $2, swapped_at = CURRENT_TIMESTAMP,
				updated_at = CURRENT_TIMESTAMP
			WHERE id = $3
		`, models.ItemStatusSwapped, item1ID, item2ID)
	}
	if err != nil {
		log.Printf("Ошибка обновления вещей: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка завершения обмена"})
	}

	// Начисляем баллы обоим участникам
	for _, participant := range []uuid.UUID{item1.OwnerID, item2.OwnerID} {
		_, err = tx.Exec(ctx, `
			UPDATE users SET points = points + $1, updated_at = CURRENT_TIMESTAMP WHERE id = $2
		`, completionPoints, participant)
		if err == nil {
			_, err = tx.Exec(ctx, `
				INSERT INTO points_history (user_id, amount, reason, reference_id)
				VALUES ($1, $2, 'swap_completion', $3)
			`, participant, completionPoints, swapID)
		}
		if err != nil {
			log.Printf("Ошибка начисления баллов пользователю %s: %v", participant, err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка завершения обмена"})
		}
	}

	if err = tx.Commit(ctx); err != nil {
		log.Printf("Ошибка фиксации транзакции: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка завершения обмена"})
	}

	// Уведомляем обоих участников
	for _, p := range []struct {
		userID      uuid.UUID
		ownItem     *lockedItem
		swappedWith *lockedItem
	}{
		{item1.OwnerID, item1, item2},
		{item2.OwnerID, item2, item1},
	} {
		s.dispatcher.SendToUser(p.userID.String(), websocket.NewEvent(websocket.EventSwapCompleted, fiber.Map{
			"swapId":           swapID,
			"itemId":           p.ownItem.ID,
			"itemTitle":        p.ownItem.Title,
			"swappedWith":      p.swappedWith.ID,
			"swappedWithTitle": p.swappedWith.Title,
		}))
		s.dispatcher.SendToUser(p.userID.String(), websocket.NewEvent(websocket.EventPointsEarned, fiber.Map{
			"amount": completionPoints,
			"reason": "swap_completion",
			"swapId": swapID,
		}))
	}

	// Каталог больше не показывает обменянные вещи
	for _, it := range []*lockedItem{item1, item2} {
		s.dispatcher.Broadcast(websocket.BrowseRoom, websocket.NewEvent(websocket.EventItemUpdated, fiber.Map{
			"id":     it.ID,
			"status": models.ItemStatusSwapped,
		}))
	}

	return c.JSON(fiber.Map{
		"success": true,
		"swapId":  swapID,
		"status":  swap.StatusCompleted,
	})
}

// UpdateStatus переводит запрос в новый статус по таблице переходов.
// Закрывает переходы, не имеющие отдельных маршрутов: отмену запроса
// и взятие на рассмотрение.
func (s *SwapService) UpdateStatus(c fiber.Ctx) error {
	userID := c.Locals("userID").(string)
	callerID, err := uuid.Parse(userID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID пользователя"})
	}

	swapID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID запроса"})
	}

	var body struct {
		Status string `json:"status"`
		Notes  string `json:"notes"`
	}
	if err := c.Bind().Body(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат данных"})
	}

	if !swap.IsValidStatus(swap.Status(body.Status)) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Неизвестный статус",
			"code":  "invalid_status",
		})
	}
	target := swap.Status(body.Status)

	// Завершение идёт только через маршрут завершения обмена:
	// там обновляются вещи и начисляются баллы
	if target == swap.StatusCompleted {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Для завершения обмена используйте маршрут завершения",
			"code":  "use_complete_endpoint",
		})
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	var currentStatus swap.Status
	var version int
	var requesterID, ownerID uuid.UUID
	var itemID uuid.UUID
	var itemTitle string
	err = db.Pool.QueryRow(ctx, `
		SELECT sr.status, sr.version, sr.requester_id, i.owner_id, i.id, i.title
		FROM swap_requests sr
		JOIN items i ON i.id = sr.item_id
		WHERE sr.id = $1
	`, swapID).Scan(&currentStatus, &version, &requesterID, &ownerID, &itemID, &itemTitle)

	if err != nil {
		if err == pgx.ErrNoRows {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Запрос не найден",
				"code":  "request_not_found",
			})
		}
		log.Printf("Ошибка запроса на обмен: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка получения запроса"})
	}

	// Кто может выполнить переход: отмена доступна обеим сторонам,
	// остальные решения — только владельцу вещи
	switch target {
	case swap.StatusCancelled:
		if callerID != requesterID && callerID != ownerID {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "Отменить запрос может только его участник",
				"code":  "not_participant",
			})
		}
	default:
		if callerID != ownerID {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "Решение по запросу принимает только владелец вещи",
				"code":  "not_owner",
			})
		}
	}

	if !swap.CanTransition(currentStatus, target) {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": "Недопустимый переход статуса",
			"code":  "invalid_transition",
			"from":  currentStatus,
			"to":    target,
		})
	}

	// Поля решения заполняются только для решений владельца
	var reviewedBy interface{}
	if target != swap.StatusCancelled {
		reviewedBy = callerID
	}

	tag, err := db.Pool.Exec(ctx, `
		UPDATE swap_requests
		SET status = $1,
			reviewed_by = COALESCE($2::uuid, reviewed_by),
			reviewed_at = CASE WHEN $2::uuid IS NOT NULL THEN CURRENT_TIMESTAMP ELSE reviewed_at END,
			review_notes = CASE WHEN $3 <> '' THEN $3 ELSE review_notes END,
			notifications = notifications || $4::jsonb,
			version = version + 1, updated_at = CURRENT_TIMESTAMP
		WHERE id = $5 AND status = $6 AND version = $7
	`, target, reviewedBy, body.Notes,
		notificationEntry("status_change", "Статус запроса изменён: "+string(target)),
		swapID, currentStatus, version)

	if err != nil {
		log.Printf("Ошибка обновления статуса запроса: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка обновления запроса"})
	}

	if tag.RowsAffected() == 0 {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": "Запрос уже обработан",
			"code":  "request_conflict",
		})
	}

	// Обе стороны узнают о смене статуса
	callerName, err := db.GetUserName(ctx, callerID)
	if err != nil {
		log.Printf("Ошибка получения имени пользователя %s: %v", callerID, err)
	}

	event := websocket.NewEvent(websocket.EventSwapStatusUpdated, fiber.Map{
		"swapId":       swapID,
		"itemId":       itemID,
		"itemTitle":    itemTitle,
		"status":       target,
		"fromUserId":   callerID,
		"fromUserName": callerName,
	})
	s.dispatcher.SendToUser(requesterID.String(), event)
	if callerID != ownerID {
		s.dispatcher.SendToUser(ownerID.String(), event)
	}

	if s.email != nil && callerID != requesterID {
		go s.email.SendSwapStatusChanged(requesterID, itemTitle, string(target))
	}

	return c.JSON(fiber.Map{"success": true, "swapId": swapID, "status": target})
}

// GetRequest возвращает запрос на обмен целиком
func (s *SwapService) GetRequest(c fiber.Ctx) error {
	userID := c.Locals("userID").(string)
	callerID, err := uuid.Parse(userID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID пользователя"})
	}

	swapID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID запроса"})
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	request, err := scanSwapRequest(db.Pool.QueryRow(ctx, `
		SELECT `+swapColumns+` FROM swap_requests WHERE id = $1
	`, swapID))

	if err != nil {
		if err == pgx.ErrNoRows {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Запрос не найден",
				"code":  "request_not_found",
			})
		}
		log.Printf("Ошибка запроса на обмен: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка получения запроса"})
	}

	// Детали запроса видят только его участники
	var ownerID uuid.UUID
	err = db.Pool.QueryRow(ctx, `
		SELECT owner_id FROM items WHERE id = $1
	`, request.ItemID).Scan(&ownerID)
	if err != nil {
		log.Printf("Ошибка запроса вещи: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка получения запроса"})
	}

	if callerID != request.RequesterID && callerID != ownerID {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "Детали запроса видят только его участники",
			"code":  "not_participant",
		})
	}

	return c.JSON(fiber.Map{"request": request})
}
