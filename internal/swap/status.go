package swap

// Status представляет статус запроса на обмен
type Status string

const (
	StatusPending     Status = "Pending"
	StatusUnderReview Status = "Under Review"
	StatusAccepted    Status = "Accepted"
	StatusDeclined    Status = "Declined"
	StatusCompleted   Status = "Completed"
	StatusCancelled   Status = "Cancelled"
)

// allowedTransitions — таблица допустимых переходов статуса.
// Declined, Completed и Cancelled — терминальные статусы, из них переходов нет.
var allowedTransitions = map[Status][]Status{
	StatusPending:     {StatusUnderReview, StatusAccepted, StatusDeclined, StatusCancelled},
	StatusUnderReview: {StatusAccepted, StatusDeclined, StatusCancelled},
	StatusAccepted:    {StatusCompleted, StatusCancelled},
	StatusDeclined:    {},
	StatusCompleted:   {},
	StatusCancelled:   {},
}

// IsValidStatus проверяет, что строка является известным статусом
func IsValidStatus(s Status) bool {
	_, ok := allowedTransitions[s]
	return ok
}

// IsTerminal возвращает true для терминальных статусов
func IsTerminal(s Status) bool {
	targets, ok := allowedTransitions[s]
	return ok && len(targets) == 0
}

// CanTransition проверяет допустимость перехода from -> to
func CanTransition(from, to Status) bool {
	for _, t := range allowedTransitions[from] {
		if t == to {
			return true
		}
	}
	return false
}

// NonTerminalStatuses возвращает список нетерминальных статусов.
// Используется при проверке на дубликаты: у пользователя не может быть
// более одного активного запроса на одну и ту же вещь.
func NonTerminalStatuses() []string {
	return []string{string(StatusPending), string(StatusUnderReview), string(StatusAccepted)}
}
