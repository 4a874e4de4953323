package models

import (
	"time"

	"github.com/google/uuid"
)

// Статусы вещи в каталоге
const (
	ItemStatusActive  = "Active"
	ItemStatusPending = "Pending"
	ItemStatusSwapped = "Swapped"
	ItemStatusRemoved = "Removed"
)

// Категории одежды
var ValidItemCategories = map[string]bool{
	"Tops":        true,
	"Bottoms":     true,
	"Dresses":     true,
	"Outerwear":   true,
	"Footwear":    true,
	"Accessories": true,
}

// Item представляет вещь в каталоге
type Item struct {
	ID          uuid.UUID   `json:"id"`
	OwnerID     uuid.UUID   `json:"owner_id"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Category    string      `json:"category"`
	Size        string      `json:"size"`
	Condition   string      `json:"condition"`
	Points      int         `json:"points"`
	Tags        []string    `json:"tags"`
	Status      string      `json:"status"`
	Location    string      `json:"location,omitempty"`
	Views       int         `json:"views"`
	Likes       int         `json:"likes"`
	Images      []ItemImage `json:"images"`
	SwappedWith *uuid.UUID  `json:"swapped_with,omitempty"`
	SwappedAt   *time.Time  `json:"swapped_at,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`

	// Дополнительные поля для API
	Owner *User `json:"owner,omitempty"`
}

// IsAvailable возвращает true, если вещь доступна для обмена
func (i *Item) IsAvailable() bool {
	return i.Status == ItemStatusActive
}

// ItemImage представляет изображение вещи
type ItemImage struct {
	ID         uuid.UUID `json:"id"`
	ItemID     uuid.UUID `json:"item_id"`
	URL        string    `json:"url"`
	PreviewURL string    `json:"preview_url,omitempty"`
	PublicID   string    `json:"public_id"`
	FileName   string    `json:"file_name,omitempty"`
	IsMain     bool      `json:"is_main"`
	Position   int       `json:"position"`
	CreatedAt  time.Time `json:"created_at"`
}
