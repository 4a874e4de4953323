package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/rewear-app/rewear-api/internal/swap"
)

// SwapRequest представляет запрос на обмен: одно предложение
// обменяться на конкретную вещь из каталога
type SwapRequest struct {
	ID          uuid.UUID `json:"id"`
	ItemID      uuid.UUID `json:"itemId"`
	RequesterID uuid.UUID `json:"requesterId"`

	ReceiverDetails swap.ReceiverDetails `json:"receiverDetails"`
	Address         swap.Address         `json:"address"`
	Preferences     swap.Preferences     `json:"preferences"`
	ItemDetails     swap.ItemDetails     `json:"itemDetails"`

	// Единственный источник истины о состоянии запроса
	Status swap.Status `json:"status"`

	// Метаданные решения владельца/администратора
	ReviewedBy  *uuid.UUID `json:"reviewedBy,omitempty"`
	ReviewedAt  *time.Time `json:"reviewedAt,omitempty"`
	ReviewNotes string     `json:"reviewNotes,omitempty"`

	// Метаданные завершения обмена
	CompletedAt *time.Time `json:"completedAt,omitempty"`
	SwapChatID  *uuid.UUID `json:"swapChatId,omitempty"`

	// Локальный журнал уведомлений (только добавление)
	Notifications []SwapNotification `json:"notifications,omitempty"`

	// Версия записи для оптимистичной блокировки
	Version int `json:"-"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// SwapNotification — запись в журнале уведомлений запроса
type SwapNotification struct {
	Type    string    `json:"type"` // status_change, message, reminder
	Message string    `json:"message"`
	SentAt  time.Time `json:"sentAt"`
	Read    bool      `json:"read"`
}

// SwapRequestSummary — краткое представление запроса для списков
type SwapRequestSummary struct {
	RequestID uuid.UUID   `json:"requestId"`
	ItemID    uuid.UUID   `json:"itemId"`
	ItemTitle string      `json:"itemTitle"`
	ItemImage string      `json:"itemImage,omitempty"`
	Owner     *User       `json:"owner,omitempty"`
	Requester *User       `json:"requester,omitempty"`
	Status    swap.Status `json:"status"`
	Message   string      `json:"message,omitempty"`
	CreatedAt time.Time   `json:"createdAt"`
}
