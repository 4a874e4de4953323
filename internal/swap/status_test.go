package swap

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	t.Run("Pending может быть принят, отклонён, взят на проверку или отменён", func(t *testing.T) {
		assert.True(t, CanTransition(StatusPending, StatusAccepted))
		assert.True(t, CanTransition(StatusPending, StatusDeclined))
		assert.True(t, CanTransition(StatusPending, StatusUnderReview))
		assert.True(t, CanTransition(StatusPending, StatusCancelled))
	})

	t.Run("Under Review выходит по тем же правилам, что и Pending", func(t *testing.T) {
		assert.True(t, CanTransition(StatusUnderReview, StatusAccepted))
		assert.True(t, CanTransition(StatusUnderReview, StatusDeclined))
		assert.True(t, CanTransition(StatusUnderReview, StatusCancelled))
	})

	t.Run("Accepted может стать только Completed или Cancelled", func(t *testing.T) {
		assert.True(t, CanTransition(StatusAccepted, StatusCompleted))
		assert.True(t, CanTransition(StatusAccepted, StatusCancelled))
		assert.False(t, CanTransition(StatusAccepted, StatusDeclined))
		assert.False(t, CanTransition(StatusAccepted, StatusPending))
	})

	t.Run("Из терминальных статусов переходов нет", func(t *testing.T) {
		terminals := []Status{StatusDeclined, StatusCompleted, StatusCancelled}
		all := []Status{StatusPending, StatusUnderReview, StatusAccepted, StatusDeclined, StatusCompleted, StatusCancelled}

		for _, from := range terminals {
			for _, to := range all {
				assert.False(t, CanTransition(from, to), "переход %s -> %s должен быть запрещён", from, to)
			}
		}
	})

	t.Run("Переход в сам статус запрещён", func(t *testing.T) {
		assert.False(t, CanTransition(StatusPending, StatusPending))
		assert.False(t, CanTransition(StatusAccepted, StatusAccepted))
	})

	t.Run("Неизвестный статус не имеет переходов", func(t *testing.T) {
		assert.False(t, CanTransition(Status("Rejected"), StatusAccepted))
	})
}

func TestIsTerminal(t *testing.T) {
	assert.False(t, IsTerminal(StatusPending))
	assert.False(t, IsTerminal(StatusUnderReview))
	assert.False(t, IsTerminal(StatusAccepted))
	assert.True(t, IsTerminal(StatusDeclined))
	assert.True(t, IsTerminal(StatusCompleted))
	assert.True(t, IsTerminal(StatusCancelled))

	// Неизвестная строка — не терминальный статус
	assert.False(t, IsTerminal(Status("Unknown")))
}

func TestIsValidStatus(t *testing.T) {
	for _, s := range []Status{StatusPending, StatusUnderReview, StatusAccepted, StatusDeclined, StatusCompleted, StatusCancelled} {
		assert.True(t, IsValidStatus(s))
	}
	assert.False(t, IsValidStatus(Status("pending")))
	assert.False(t, IsValidStatus(Status("")))
}

func TestNonTerminalStatuses(t *testing.T) {
	statuses := NonTerminalStatuses()
	assert.ElementsMatch(t, []string{"Pending", "Under Review", "Accepted"}, statuses)
}
