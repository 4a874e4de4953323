package websocket

import (
	"encoding/json"
	"log"
	"time"
)

// Имя общей комнаты каталога. Все, кто просматривает каталог,
// получают события о добавлении/изменении/удалении вещей.
const BrowseRoom = "browse-room"

// UserRoom возвращает имя персональной комнаты пользователя
func UserRoom(userID string) string {
	return "user-" + userID
}

// SwapChatRoom возвращает имя комнаты чата конкретного обмена
func SwapChatRoom(swapID string) string {
	return "swap-chat-" + swapID
}

// EventType определяет тип события реального времени
type EventType string

const (
	EventNewSwapRequest    EventType = "new-swap-request"
	EventSwapStatusUpdated EventType = "swap-status-updated"
	EventSwapCompleted     EventType = "swap-completed"
	EventSwapMessage       EventType = "swap-message"
	EventSwapTyping        EventType = "swap-typing"
	EventItemAdded         EventType = "item-added"
	EventItemUpdated       EventType = "item-updated"
	EventItemDeleted       EventType = "item-deleted"
	EventPointsEarned      EventType = "points-earned"
	EventPointsSpent       EventType = "points-spent"
)

// Event представляет событие, доставляемое подключённым клиентам
type Event struct {
	Type      EventType       `json:"type"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// NewEvent создаёт событие с сериализованной полезной нагрузкой
func NewEvent(eventType EventType, payload interface{}) Event {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Printf("Ошибка сериализации события %s: %v", eventType, err)
	}
	return Event{
		Type:      eventType,
		Payload:   data,
		Timestamp: time.Now(),
	}
}

// Dispatcher — интерфейс доставки событий, который получают сервисы.
// Сервисы не обращаются к менеджеру соединений напрямую: в продакшене
// за интерфейсом может стоять Redis-мост для нескольких инстансов.
type Dispatcher interface {
	// SendToUser доставляет событие во все соединения пользователя
	SendToUser(userID string, event Event)
	// Broadcast доставляет событие всем участникам комнаты
	Broadcast(room string, event Event)
}
