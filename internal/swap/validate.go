package swap

import (
	"regexp"
	"strings"
	"time"
)

// FieldError — ошибка валидации конкретного поля запроса
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

var emailRegexp = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// ValidateSubmit проверяет тело запроса на создание обмена и возвращает
// список ошибок по полям. Пустой список означает, что запрос корректен.
func ValidateSubmit(input *SubmitInput) []FieldError {
	var errs []FieldError

	if strings.TrimSpace(input.ItemID) == "" {
		errs = append(errs, FieldError{Field: "itemId", Message: "ID вещи обязателен"})
	}

	if strings.TrimSpace(input.ReceiverDetails.Name) == "" {
		errs = append(errs, FieldError{Field: "receiverDetails.name", Message: "Имя получателя обязательно"})
	}
	if strings.TrimSpace(input.ReceiverDetails.Email) == "" {
		errs = append(errs, FieldError{Field: "receiverDetails.email", Message: "Email получателя обязателен"})
	} else if !emailRegexp.MatchString(strings.TrimSpace(input.ReceiverDetails.Email)) {
		errs = append(errs, FieldError{Field: "receiverDetails.email", Message: "Неверный формат email"})
	}
	if strings.TrimSpace(input.ReceiverDetails.Phone) == "" {
		errs = append(errs, FieldError{Field: "receiverDetails.phone", Message: "Телефон получателя обязателен"})
	}

	if strings.TrimSpace(input.Address.Street) == "" {
		errs = append(errs, FieldError{Field: "address.street", Message: "Улица обязательна"})
	}
	if strings.TrimSpace(input.Address.City) == "" {
		errs = append(errs, FieldError{Field: "address.city", Message: "Город обязателен"})
	}
	if strings.TrimSpace(input.Address.State) == "" {
		errs = append(errs, FieldError{Field: "address.state", Message: "Регион обязателен"})
	}
	if strings.TrimSpace(input.Address.ZipCode) == "" {
		errs = append(errs, FieldError{Field: "address.zipCode", Message: "Почтовый индекс обязателен"})
	}

	if input.Preferences.ContactMethod != "" && !IsValidContactMethod(input.Preferences.ContactMethod) {
		errs = append(errs, FieldError{Field: "preferences.contactMethod", Message: "Недопустимый способ связи"})
	}
	if input.Preferences.PreferredDate != "" {
		if _, err := time.Parse("2006-01-02", input.Preferences.PreferredDate); err != nil {
			errs = append(errs, FieldError{Field: "preferences.preferredDate", Message: "Дата должна быть в формате ГГГГ-ММ-ДД"})
		}
	}

	if !IsValidCondition(input.ItemDetails.Condition) {
		errs = append(errs, FieldError{Field: "itemDetails.condition", Message: "Недопустимое состояние вещи"})
	}
	if strings.TrimSpace(input.ItemDetails.Description) == "" {
		errs = append(errs, FieldError{Field: "itemDetails.description", Message: "Описание предлагаемой вещи обязательно"})
	}

	return errs
}

// Normalize подставляет значения по умолчанию и обрезает пробелы.
// Вызывается до валидации, чтобы поля из одних пробелов не проходили проверку.
func (input *SubmitInput) Normalize() {
	input.ReceiverDetails.Name = strings.TrimSpace(input.ReceiverDetails.Name)
	input.ReceiverDetails.Email = strings.TrimSpace(input.ReceiverDetails.Email)
	input.ReceiverDetails.Phone = strings.TrimSpace(input.ReceiverDetails.Phone)

	input.Address.Street = strings.TrimSpace(input.Address.Street)
	input.Address.City = strings.TrimSpace(input.Address.City)
	input.Address.State = strings.TrimSpace(input.Address.State)
	input.Address.ZipCode = strings.TrimSpace(input.Address.ZipCode)
	input.Address.Country = strings.TrimSpace(input.Address.Country)
	if input.Address.Country == "" {
		input.Address.Country = "United States"
	}

	if input.Preferences.ContactMethod == "" {
		input.Preferences.ContactMethod = "email"
	}
	input.Preferences.SpecialInstructions = strings.TrimSpace(input.Preferences.SpecialInstructions)

	input.ItemDetails.Description = strings.TrimSpace(input.ItemDetails.Description)
}
