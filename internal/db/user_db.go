package db

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

// User представляет пользователя в системе
type User struct {
	ID           uuid.UUID
	FirstName    string
	LastName     string
	Email        string
	PasswordHash string
	Phone        string
	Bio          string
	AvatarURL    string
	Location     string
	Points       int
	CreatedAt    time.Time
	UpdatedAt    time.Time
	LastLoginAt  time.Time
	IsActive     bool
}

// FullName возвращает полное имя пользователя
func (u *User) FullName() string {
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}

const userColumns = `id, first_name, last_name, email, password_hash, phone, bio,
	   avatar_url, location, points, created_at, updated_at, last_login_at, is_active`

// scanUser читает строку users с преобразованием nullable полей
func scanUser(row pgx.Row) (*User, error) {
	var user User
	var firstName, lastName, phone, bio, avatarURL, location pgtype.Text

	err := row.Scan(
		&user.ID, &firstName, &lastName, &user.Email, &user.PasswordHash,
		&phone, &bio, &avatarURL, &location, &user.Points,
		&user.CreatedAt, &user.UpdatedAt, &user.LastLoginAt, &user.IsActive,
	)
	if err != nil {
		return nil, err
	}

	// Преобразуем nullable поля
	if firstName.Valid {
		user.FirstName = firstName.String
	}
	if lastName.Valid {
		user.LastName = lastName.String
	}
	if phone.Valid {
		user.Phone = phone.String
	}
	if bio.Valid {
		user.Bio = bio.String
	}
	if avatarURL.Valid {
		user.AvatarURL = avatarURL.String
	}
	if location.Valid {
		user.Location = location.String
	}

	return &user, nil
}

// CreateUser создает нового пользователя с email и хешем пароля
func CreateUser(firstName, lastName, email, passwordHash string) (*User, error) {
	ctx, cancel := GetContext()
	defer cancel()

	row := Pool.QueryRow(ctx, `
		INSERT INTO users (first_name, last_name, email, password_hash, last_login_at)
		VALUES ($1, $2, $3, $4, CURRENT_TIMESTAMP)
		RETURNING `+userColumns+`
	`, firstName, lastName, email, passwordHash)

	user, err := scanUser(row)
	if err != nil {
		return nil, fmt.Errorf("ошибка при создании пользователя: %w", err)
	}

	return user, nil
}

// GetUserByEmail получает пользователя по email
func GetUserByEmail(email string) (*User, error) {
	ctx, cancel := GetContext()
	defer cancel()

	row := Pool.QueryRow(ctx, `
		SELECT `+userColumns+`
		FROM users WHERE email = $1
	`, email)

	return scanUser(row)
}

// GetUserByID получает пользователя по ID
func GetUserByID(userID uuid.UUID) (*User, error) {
	ctx, cancel := GetContext()
	defer cancel()

	row := Pool.QueryRow(ctx, `
		SELECT `+userColumns+`
		FROM users WHERE id = $1
	`, userID)

	return scanUser(row)
}

// GetUserName возвращает отображаемое имя пользователя
func GetUserName(ctx context.Context, userID uuid.UUID) (string, error) {
	var firstName, lastName pgtype.Text

	err := Pool.QueryRow(ctx, `
		SELECT first_name, last_name FROM users WHERE id = $1
	`, userID).Scan(&firstName, &lastName)
	if err != nil {
		return "", err
	}

	name := firstName.String
	if lastName.Valid && lastName.String != "" {
		name += " " + lastName.String
	}
	return name, nil
}

// UpdateUserProfile обновляет профиль пользователя
func UpdateUserProfile(userID uuid.UUID, firstName, lastName, phone, bio, location string) (*User, error) {
	ctx, cancel := GetContext()
	defer cancel()

	row := Pool.QueryRow(ctx, `
		UPDATE users
		SET first_name = $1, last_name = $2, phone = $3, bio = $4, location = $5,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = $6
		RETURNING `+userColumns+`
	`, firstName, lastName, phone, bio, location, userID)

	user, err := scanUser(row)
	if err != nil {
		return nil, fmt.Errorf("ошибка при обновлении профиля: %w", err)
	}

	return user, nil
}

// UpdateUserAvatar обновляет аватар пользователя
func UpdateUserAvatar(userID uuid.UUID, avatarURL string) error {
	ctx, cancel := GetContext()
	defer cancel()

	_, err := Pool.Exec(ctx, `
		UPDATE users SET avatar_url = $1, updated_at = CURRENT_TIMESTAMP WHERE id = $2
	`, avatarURL, userID)
	if err != nil {
		return fmt.Errorf("ошибка при обновлении аватара: %w", err)
	}

	return nil
}

// UpdateLastLogin обновляет время последнего входа пользователя
func UpdateLastLogin(userID uuid.UUID) error {
	ctx, cancel := GetContext()
	defer cancel()

	_, err := Pool.Exec(ctx, `
		UPDATE users SET last_login_at = CURRENT_TIMESTAMP WHERE id = $1
	`, userID)
	if err != nil {
		return fmt.Errorf("ошибка при обновлении времени входа: %w", err)
	}

	return nil
}
