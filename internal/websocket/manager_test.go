package websocket

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testClient создаёт клиента без реального соединения:
// сообщения читаются напрямую из канала send
func testClient(m *Manager, userID string) *Client {
	c := NewClient(userID, nil, m)
	m.AddClient(c)
	return c
}

// drain возвращает все сообщения, накопленные в канале клиента
func drain(c *Client) [][]byte {
	var out [][]byte
	for {
		select {
		case msg := <-c.send:
			out = append(out, msg)
		default:
			return out
		}
	}
}

func TestBroadcastEmptyRoom(t *testing.T) {
	m := NewManager()

	// Пустая комната — тихий no-op
	assert.NotPanics(t, func() {
		m.Broadcast(BrowseRoom, NewEvent(EventItemAdded, map[string]string{"id": "x"}))
	})
	assert.Equal(t, 0, m.RoomSize(BrowseRoom))
}

func TestJoinRoomIdempotent(t *testing.T) {
	m := NewManager()
	c := testClient(m, uuid.New().String())

	m.JoinRoom(c, BrowseRoom)
	m.JoinRoom(c, BrowseRoom)

	assert.Equal(t, 1, m.RoomSize(BrowseRoom))

	m.Broadcast(BrowseRoom, NewEvent(EventItemAdded, map[string]string{"id": "x"}))
	assert.Len(t, drain(c), 1, "повторное вступление не должно дублировать доставку")
}

func TestJoinRoomUnknownClient(t *testing.T) {
	m := NewManager()
	c := NewClient(uuid.New().String(), nil, m)

	// Клиент не зарегистрирован — вступление игнорируется
	m.JoinRoom(c, BrowseRoom)
	assert.Equal(t, 0, m.RoomSize(BrowseRoom))
}

func TestSendToUserOnlyTargetUser(t *testing.T) {
	m := NewManager()
	userA := uuid.New().String()
	userB := uuid.New().String()

	a1 := testClient(m, userA)
	a2 := testClient(m, userA)
	b := testClient(m, userB)

	m.JoinRoom(a1, UserRoom(userA))
	m.JoinRoom(a2, UserRoom(userA))
	m.JoinRoom(b, UserRoom(userB))

	m.SendToUser(userA, NewEvent(EventNewSwapRequest, map[string]string{"swapId": "s1"}))

	assert.Len(t, drain(a1), 1)
	assert.Len(t, drain(a2), 1, "доставка идёт во все соединения пользователя")
	assert.Empty(t, drain(b), "чужой пользователь событие не получает")
}

func TestEmitFromExcludesOrigin(t *testing.T) {
	m := NewManager()
	a := testClient(m, uuid.New().String())
	b := testClient(m, uuid.New().String())

	room := SwapChatRoom("swap-1")
	m.JoinRoom(a, room)
	m.JoinRoom(b, room)

	m.EmitFrom(a, room, NewEvent(EventSwapMessage, map[string]string{"message": "привет"}))

	assert.Empty(t, drain(a), "отправитель своё сообщение обратно не получает")

	got := drain(b)
	require.Len(t, got, 1)

	var event Event
	require.NoError(t, json.Unmarshal(got[0], &event))
	assert.Equal(t, EventSwapMessage, event.Type)
	assert.False(t, event.Timestamp.IsZero())
}

func TestRemoveClientLeavesAllRooms(t *testing.T) {
	m := NewManager()
	c := testClient(m, uuid.New().String())

	m.JoinRoom(c, BrowseRoom)
	m.JoinRoom(c, SwapChatRoom("swap-1"))

	m.RemoveClient(c.ID)

	assert.Equal(t, 0, m.RoomSize(BrowseRoom))
	assert.Equal(t, 0, m.RoomSize(SwapChatRoom("swap-1")))

	m.Broadcast(BrowseRoom, NewEvent(EventItemAdded, map[string]string{"id": "x"}))
	assert.Empty(t, drain(c), "после отключения доставки нет")
}

func TestLeaveRoomKeepsOtherMembers(t *testing.T) {
	m := NewManager()
	a := testClient(m, uuid.New().String())
	b := testClient(m, uuid.New().String())

	m.JoinRoom(a, BrowseRoom)
	m.JoinRoom(b, BrowseRoom)

	m.LeaveRoom(a, BrowseRoom)
	assert.Equal(t, 1, m.RoomSize(BrowseRoom))

	m.Broadcast(BrowseRoom, NewEvent(EventItemDeleted, map[string]string{"id": "x"}))
	assert.Empty(t, drain(a))
	assert.Len(t, drain(b), 1)
}

func TestSlowClientDisconnected(t *testing.T) {
	m := NewManager()
	c := testClient(m, uuid.New().String())
	m.JoinRoom(c, BrowseRoom)

	// Забиваем буфер отправки до отказа
	for i := 0; i < sendBufferSize; i++ {
		require.True(t, c.trySend([]byte("x")))
	}

	m.Broadcast(BrowseRoom, NewEvent(EventItemAdded, map[string]string{"id": "x"}))

	// Переполнение буфера приводит к отключению клиента
	assert.Equal(t, 0, m.RoomSize(BrowseRoom))

	m.mu.RLock()
	_, exists := m.clients[c.ID]
	m.mu.RUnlock()
	assert.False(t, exists)
}

func TestShutdownClearsState(t *testing.T) {
	m := NewManager()
	a := testClient(m, uuid.New().String())
	m.JoinRoom(a, BrowseRoom)

	m.Shutdown()

	assert.Equal(t, 0, m.RoomSize(BrowseRoom))

	m.Broadcast(BrowseRoom, NewEvent(EventItemAdded, map[string]string{"id": "x"}))
	assert.Empty(t, drain(a))
}
