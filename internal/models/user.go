package models

import (
	"time"

	"github.com/google/uuid"
)

// User представляет минимальную информацию о пользователе для API
type User struct {
	ID        uuid.UUID `json:"id"`
	FirstName string    `json:"first_name,omitempty"`
	LastName  string    `json:"last_name,omitempty"`
	AvatarURL string    `json:"avatar_url,omitempty"`
	Location  string    `json:"location,omitempty"`
}

// FullName возвращает полное имя пользователя
func (u *User) FullName() string {
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}

// UserStats представляет статистику пользователя
type UserStats struct {
	ItemsListed       int       `json:"items_listed"`
	ItemsSwapped      int       `json:"items_swapped"`
	TotalPointsEarned int       `json:"total_points_earned"`
	CurrentPoints     int       `json:"current_points"`
	MemberSince       time.Time `json:"member_since"`
}
