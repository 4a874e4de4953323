package swap

// ReceiverDetails — контактные данные получателя обмена.
// Указываются при отправке запроса и не обязаны совпадать с профилем
// пользователя (запрос можно оформить на другого получателя).
type ReceiverDetails struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// Address — адрес доставки
type Address struct {
	Street  string `json:"street"`
	City    string `json:"city"`
	State   string `json:"state"`
	ZipCode string `json:"zipCode"`
	Country string `json:"country"`
}

// Preferences — предпочтения по связи и времени обмена
type Preferences struct {
	ContactMethod       string `json:"contactMethod"`
	SpecialInstructions string `json:"specialInstructions,omitempty"`
	PreferredDate       string `json:"preferredDate,omitempty"`
	PreferredTime       string `json:"preferredTime,omitempty"`
}

// ItemDetails описывает вещь, которую предлагает отправитель запроса
// (не целевую вещь объявления)
type ItemDetails struct {
	Condition   string   `json:"condition"`
	Description string   `json:"description"`
	Images      []string `json:"images,omitempty"`
}

// SubmitInput — тело запроса POST /api/swaps/submit-request
type SubmitInput struct {
	ItemID          string          `json:"itemId"`
	ReceiverDetails ReceiverDetails `json:"receiverDetails"`
	Address         Address         `json:"address"`
	Preferences     Preferences     `json:"preferences"`
	ItemDetails     ItemDetails     `json:"itemDetails"`
}

// Допустимые состояния вещи, предлагаемой к обмену
var validConditions = map[string]bool{
	"Like New":  true,
	"Excellent": true,
	"Good":      true,
	"Fair":      true,
}

// Допустимые способы связи
var validContactMethods = map[string]bool{
	"email": true,
	"phone": true,
	"both":  true,
}

// IsValidCondition проверяет состояние вещи по списку допустимых
func IsValidCondition(condition string) bool {
	return validConditions[condition]
}

// IsValidContactMethod проверяет способ связи по списку допустимых
func IsValidContactMethod(method string) bool {
	return validContactMethods[method]
}
