package points

import (
	"log"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/rewear-app/rewear-api/internal/config"
	"github.com/rewear-app/rewear-api/internal/db"
	"github.com/rewear-app/rewear-api/internal/utils"
	"github.com/rewear-app/rewear-api/internal/websocket"
)

// Opportunity — способ заработать баллы
type Opportunity struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Amount      int    `json:"amount"`
}

// Reward — награда, которую можно купить за баллы
type Reward struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Cost        int    `json:"cost"`
}

// Способы заработка с фиксированными суммами. Начисление за завершение
// обмена идёт через сервис обменов, а не через этот список.
var opportunities = []Opportunity{
	{ID: "item_listed", Title: "Добавьте вещь", Description: "Опубликуйте вещь в каталоге", Amount: 10},
	{ID: "profile_completed", Title: "Заполните профиль", Description: "Укажите имя, фото и город", Amount: 20},
	{ID: "first_swap_request", Title: "Первый запрос", Description: "Отправьте первый запрос на обмен", Amount: 15},
}

var rewards = []Reward{
	{ID: "featured_item", Title: "Продвижение вещи", Description: "Вещь неделю показывается выше в каталоге", Cost: 150},
	{ID: "extra_listings", Title: "Дополнительные слоты", Description: "Пять дополнительных слотов для вещей", Cost: 100},
	{ID: "eco_badge", Title: "Эко-значок", Description: "Значок осознанного гардероба в профиле", Cost: 50},
}

// PointsService представляет сервис для работы с баллами
type PointsService struct {
	cfg        *config.Config
	jwtService *utils.JWTService
	dispatcher websocket.Dispatcher
}

// NewPointsService создает новый экземпляр PointsService
func NewPointsService(cfg *config.Config, dispatcher websocket.Dispatcher) *PointsService {
	return &PointsService{
		cfg:        cfg,
		jwtService: utils.NewJWTService(cfg.JWTSecret),
		dispatcher: dispatcher,
	}
}

// GetSummary возвращает сводку по баллам пользователя
func (s *PointsService) GetSummary(c fiber.Ctx) error {
	userID := c.Locals("userID").(string)
	userUUID, err := uuid.Parse(userID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID пользователя"})
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	var current, totalEarned, totalSpent int
	err = db.Pool.QueryRow(ctx, `
		SELECT
			(SELECT points FROM users WHERE id = $1),
			(SELECT COALESCE(SUM(amount), 0) FROM points_history WHERE user_id = $1 AND amount > 0),
			(SELECT COALESCE(-SUM(amount), 0) FROM points_history WHERE user_id = $1 AND amount < 0)
	`, userUUID).Scan(&current, &totalEarned, &totalSpent)

	if err != nil {
		log.Printf("Ошибка получения сводки баллов: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка получения баллов"})
	}

	return c.JSON(fiber.Map{
		"current":      current,
		"total_earned": totalEarned,
		"total_spent":  totalSpent,
	})
}

// GetHistory возвращает историю начислений и списаний
func (s *PointsService) GetHistory(c fiber.Ctx) error {
	userID := c.Locals("userID").(string)
	userUUID, err := uuid.Parse(userID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID пользователя"})
	}

	limit, _ := strconv.Atoi(c.Query("limit", "50"))
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	offset, _ := strconv.Atoi(c.Query("offset", "0"))

	ctx, cancel := db.GetContext()
	defer cancel()

	rows, err := db.Pool.Query(ctx, `
		SELECT id, amount, reason, reference_id, created_at
		FROM points_history
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, userUUID, limit, offset)

	if err != nil {
		log.Printf("Ошибка запроса истории баллов: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка получения истории"})
	}
	defer rows.Close()

	history := []fiber.Map{}
	for rows.Next() {
		var id uuid.UUID
		var amount int
		var reason string
		var referenceID *uuid.UUID
		var createdAt time.Time

		if err := rows.Scan(&id, &amount, &reason, &referenceID, &createdAt); err != nil {
			log.Printf("Ошибка сканирования истории: %v", err)
			continue
		}
		history = append(history, fiber.Map{
			"id":           id,
			"amount":       amount,
			"reason":       reason,
			"reference_id": referenceID,
			"created_at":   createdAt,
		})
	}

	return c.JSON(fiber.Map{"history": history, "limit": limit, "offset": offset})
}

// GetOpportunities возвращает список способов заработать баллы
func (s *PointsService) GetOpportunities(c fiber.Ctx) error {
	return c.JSON(fiber.Map{"opportunities": opportunities})
}

// GetRewards возвращает каталог наград
func (s *PointsService) GetRewards(c fiber.Ctx) error {
	return c.JSON(fiber.Map{"rewards": rewards})
}

// EarnPoints начисляет баллы за выполненное действие из списка
func (s *PointsService) EarnPoints(c fiber.Ctx) error {
	userID := c.Locals("userID").(string)
	userUUID, err := uuid.Parse(userID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID пользователя"})
	}

	var requestData struct {
		OpportunityID string `json:"opportunity_id"`
	}
	if err := c.Bind().Body(&requestData); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат данных"})
	}

	var opp *Opportunity
	for i := range opportunities {
		if opportunities[i].ID == requestData.OpportunityID {
			opp = &opportunities[i]
			break
		}
	}
	if opp == nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неизвестный способ заработка"})
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	// Каждое разовое действие начисляется не более одного раза
	var alreadyEarned int
	err = db.Pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM points_history WHERE user_id = $1 AND reason = $2
	`, userUUID, opp.ID).Scan(&alreadyEarned)
	if err != nil {
		log.Printf("Ошибка проверки истории баллов: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка начисления баллов"})
	}
	if alreadyEarned > 0 && opp.ID != "item_listed" {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Баллы за это действие уже начислены"})
	}

	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		log.Printf("Ошибка начала транзакции: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка начисления баллов"})
	}
	defer tx.Rollback(ctx)

	var balance int
	err = tx.QueryRow(ctx, `
		UPDATE users SET points = points + $1, updated_at = CURRENT_TIMESTAMP
		WHERE id = $2
		RETURNING points
	`, opp.Amount, userUUID).Scan(&balance)
	if err == nil {
		_, err = tx.Exec(ctx, `
			INSERT INTO points_history (user_id, amount, reason) VALUES ($1, $2, $3)
		`, userUUID, opp.Amount, opp.ID)
	}
	if err == nil {
		err = tx.Commit(ctx)
	}
	if err != nil {
		log.Printf("Ошибка начисления баллов: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка начисления баллов"})
	}

	s.dispatcher.SendToUser(userID, websocket.NewEvent(websocket.EventPointsEarned, fiber.Map{
		"amount":  opp.Amount,
		"reason":  opp.ID,
		"balance": balance,
	}))

	return c.JSON(fiber.Map{"success": true, "amount": opp.Amount, "balance": balance})
}

// PurchaseReward списывает баллы за награду из каталога
func (s *PointsService) PurchaseReward(c fiber.Ctx) error {
	userID := c.Locals("userID").(string)
	userUUID, err := uuid.Parse(userID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID пользователя"})
	}

	var requestData struct {
		RewardID string `json:"reward_id"`
	}
	if err := c.Bind().Body(&requestData); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат данных"})
	}

	var reward *Reward
	for i := range rewards {
		if rewards[i].ID == requestData.RewardID {
			reward = &rewards[i]
			break
		}
	}
	if reward == nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неизвестная награда"})
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		log.Printf("Ошибка начала транзакции: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка покупки награды"})
	}
	defer tx.Rollback(ctx)

	// Списание с проверкой баланса одним запросом: уйти в минус нельзя
	var balance int
	err = tx.QueryRow(ctx, `
		UPDATE users SET points = points - $1, updated_at = CURRENT_TIMESTAMP
		WHERE id = $2 AND points >= $1
		RETURNING points
	`, reward.Cost, userUUID).Scan(&balance)

	if err != nil {
		if err == pgx.ErrNoRows {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Недостаточно баллов",
				"code":  "insufficient_points",
			})
		}
		log.Printf("Ошибка списания баллов: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка покупки награды"})
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO points_history (user_id, amount, reason) VALUES ($1, $2, $3)
	`, userUUID, -reward.Cost, "reward:"+reward.ID)
	if err == nil {
		err = tx.Commit(ctx)
	}
	if err != nil {
		log.Printf("Ошибка записи покупки награды: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка покупки награды"})
	}

	s.dispatcher.SendToUser(userID, websocket.NewEvent(websocket.EventPointsSpent, fiber.Map{
		"amount":  reward.Cost,
		"reward":  reward.ID,
		"balance": balance,
	}))

	return c.JSON(fiber.Map{"success": true, "reward": reward.ID, "balance": balance})
}
