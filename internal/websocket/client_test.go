package websocket

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandleJoinBrowseRoom(t *testing.T) {
	m := NewManager()
	c := testClient(m, uuid.New().String())

	c.handleIncomingMessage([]byte(`{"type":"join-browse-room"}`))
	assert.Equal(t, 1, m.RoomSize(BrowseRoom))

	c.handleIncomingMessage([]byte(`{"type":"leave-browse-room"}`))
	assert.Equal(t, 0, m.RoomSize(BrowseRoom))
}

func TestHandleJoinUserRoom(t *testing.T) {
	m := NewManager()
	userID := uuid.New().String()
	c := testClient(m, userID)

	// Комната выбирается по пользователю соединения, а не из сообщения
	c.handleIncomingMessage([]byte(`{"type":"join-user-room"}`))
	assert.Equal(t, 1, m.RoomSize(UserRoom(userID)))

	m.SendToUser(userID, NewEvent(EventNewSwapRequest, map[string]string{"swapId": "s1"}))
	assert.Len(t, drain(c), 1)
}

func TestHandleSwapChatRooms(t *testing.T) {
	m := NewManager()
	c := testClient(m, uuid.New().String())

	c.handleIncomingMessage([]byte(`{"type":"join-swap-chat","swap_id":"swap-1"}`))
	assert.Equal(t, 1, m.RoomSize(SwapChatRoom("swap-1")))

	// Без swap_id вступление игнорируется
	c.handleIncomingMessage([]byte(`{"type":"join-swap-chat"}`))
	assert.Equal(t, 0, m.RoomSize(SwapChatRoom("")))

	c.handleIncomingMessage([]byte(`{"type":"leave-swap-chat","swap_id":"swap-1"}`))
	assert.Equal(t, 0, m.RoomSize(SwapChatRoom("swap-1")))
}

func TestHandleSwapTypingRelay(t *testing.T) {
	m := NewManager()
	a := testClient(m, uuid.New().String())
	b := testClient(m, uuid.New().String())

	room := SwapChatRoom("swap-7")
	m.JoinRoom(a, room)
	m.JoinRoom(b, room)

	a.handleIncomingMessage([]byte(`{"type":"swap-typing","swap_id":"swap-7"}`))

	assert.Empty(t, drain(a), "индикатор набора не возвращается отправителю")

	got := drain(b)
	require.Len(t, got, 1)

	var event Event
	require.NoError(t, json.Unmarshal(got[0], &event))
	assert.Equal(t, EventSwapTyping, event.Type)

	var payload struct {
		SwapID string `json:"swapId"`
		UserID string `json:"userId"`
	}
	require.NoError(t, json.Unmarshal(event.Payload, &payload))
	assert.Equal(t, "swap-7", payload.SwapID)
	assert.Equal(t, a.UserID, payload.UserID)
}

func TestHandleMalformedMessage(t *testing.T) {
	m := NewManager()
	c := testClient(m, uuid.New().String())

	assert.NotPanics(t, func() {
		c.handleIncomingMessage([]byte(`{not json`))
		c.handleIncomingMessage([]byte(`{"type":"unknown-type"}`))
	})
	assert.Equal(t, 0, m.RoomSize(BrowseRoom))
}
