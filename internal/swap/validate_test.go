package swap

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func validInput() *SubmitInput {
	return &SubmitInput{
		ItemID: "8f9b3c1a-0f4e-4d7b-9a11-2c5d6e7f8a90",
		ReceiverDetails: ReceiverDetails{
			Name:  "Jane Doe",
			Email: "jane@x.com",
			Phone: "555-0100",
		},
		Address: Address{
			Street:  "1 Main St",
			City:    "Springfield",
			State:   "IL",
			ZipCode: "62704",
			Country: "United States",
		},
		Preferences: Preferences{
			ContactMethod: "email",
		},
		ItemDetails: ItemDetails{
			Condition:   "Good",
			Description: "blue jacket",
		},
	}
}

func TestValidateSubmit(t *testing.T) {
	t.Run("Корректный запрос проходит без ошибок", func(t *testing.T) {
		errs := ValidateSubmit(validInput())
		assert.Empty(t, errs)
	})

	t.Run("Пустые обязательные поля дают ошибки по каждому полю", func(t *testing.T) {
		errs := ValidateSubmit(&SubmitInput{})

		fields := make([]string, 0, len(errs))
		for _, e := range errs {
			fields = append(fields, e.Field)
		}

		assert.Contains(t, fields, "itemId")
		assert.Contains(t, fields, "receiverDetails.name")
		assert.Contains(t, fields, "receiverDetails.email")
		assert.Contains(t, fields, "receiverDetails.phone")
		assert.Contains(t, fields, "address.street")
		assert.Contains(t, fields, "address.city")
		assert.Contains(t, fields, "address.state")
		assert.Contains(t, fields, "address.zipCode")
		assert.Contains(t, fields, "itemDetails.condition")
		assert.Contains(t, fields, "itemDetails.description")
	})

	t.Run("Неверный формат email", func(t *testing.T) {
		input := validInput()
		input.ReceiverDetails.Email = "not-an-email"

		errs := ValidateSubmit(input)
		assert.Len(t, errs, 1)
		assert.Equal(t, "receiverDetails.email", errs[0].Field)
	})

	t.Run("Состояние вещи вне списка допустимых", func(t *testing.T) {
		input := validInput()
		input.ItemDetails.Condition = "Terrible"

		errs := ValidateSubmit(input)
		assert.Len(t, errs, 1)
		assert.Equal(t, "itemDetails.condition", errs[0].Field)
	})

	t.Run("Недопустимый способ связи", func(t *testing.T) {
		input := validInput()
		input.Preferences.ContactMethod = "telegram"

		errs := ValidateSubmit(input)
		assert.Len(t, errs, 1)
		assert.Equal(t, "preferences.contactMethod", errs[0].Field)
	})

	t.Run("Пустой способ связи допустим, подставится email", func(t *testing.T) {
		input := validInput()
		input.Preferences.ContactMethod = ""

		errs := ValidateSubmit(input)
		assert.Empty(t, errs)

		input.Normalize()
		assert.Equal(t, "email", input.Preferences.ContactMethod)
	})

	t.Run("Неверный формат предпочтительной даты", func(t *testing.T) {
		input := validInput()
		input.Preferences.PreferredDate = "07/15/2026"

		errs := ValidateSubmit(input)
		assert.Len(t, errs, 1)
		assert.Equal(t, "preferences.preferredDate", errs[0].Field)
	})
}

func TestNormalize(t *testing.T) {
	input := validInput()
	input.ReceiverDetails.Name = "  Jane Doe  "
	input.Address.Country = ""

	input.Normalize()

	assert.Equal(t, "Jane Doe", input.ReceiverDetails.Name)
	assert.Equal(t, "United States", input.Address.Country)
}

func TestIsValidCondition(t *testing.T) {
	for _, c := range []string{"Like New", "Excellent", "Good", "Fair"} {
		assert.True(t, IsValidCondition(c))
	}
	assert.False(t, IsValidCondition("new"))
	assert.False(t, IsValidCondition(""))
}
