package websocket

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Manager представляет центральный менеджер для всех WebSocket соединений.
// Хранит таблицу комнат: персональные комнаты пользователей, общую комнату
// каталога и комнаты чатов обменов. Состояние живёт только в памяти процесса,
// при переподключении клиент заново вступает в свои комнаты.
type Manager struct {
	clients map[uuid.UUID]*Client
	rooms   map[string]map[uuid.UUID]*Client
	mu      sync.RWMutex
}

// NewManager создает новый экземпляр Manager
func NewManager() *Manager {
	return &Manager{
		clients: make(map[uuid.UUID]*Client),
		rooms:   make(map[string]map[uuid.UUID]*Client),
	}
}

// AddClient регистрирует нового клиента
func (m *Manager) AddClient(client *Client) {
	m.mu.Lock()
	m.clients[client.ID] = client
	m.mu.Unlock()

	log.Printf("WebSocket клиент %s подключён для пользователя %s", client.ID, client.UserID)
}

// RemoveClient удаляет клиента и его членство во всех комнатах
func (m *Manager) RemoveClient(clientID uuid.UUID) {
	m.mu.Lock()
	client, exists := m.clients[clientID]
	if !exists {
		m.mu.Unlock()
		return
	}

	for room := range client.joined {
		if members, ok := m.rooms[room]; ok {
			delete(members, clientID)
			if len(members) == 0 {
				delete(m.rooms, room)
			}
		}
	}
	client.joined = make(map[string]bool)
	delete(m.clients, clientID)
	m.mu.Unlock()

	log.Printf("WebSocket клиент %s отключён для пользователя %s", clientID, client.UserID)
}

// JoinRoom добавляет соединение в именованную комнату.
// Повторное вступление в ту же комнату — no-op.
func (m *Manager) JoinRoom(client *Client, room string) {
	if room == "" {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.clients[client.ID]; !exists {
		return
	}

	if _, exists := m.rooms[room]; !exists {
		m.rooms[room] = make(map[uuid.UUID]*Client)
	}
	m.rooms[room][client.ID] = client
	client.joined[room] = true
}

// LeaveRoom удаляет соединение из комнаты
func (m *Manager) LeaveRoom(client *Client, room string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if members, ok := m.rooms[room]; ok {
		delete(members, client.ID)
		if len(members) == 0 {
			delete(m.rooms, room)
		}
	}
	delete(client.joined, room)
}

// RoomSize возвращает текущее число участников комнаты
func (m *Manager) RoomSize(room string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.rooms[room])
}

// SendToUser отправляет событие всем соединениям конкретного пользователя
func (m *Manager) SendToUser(userID string, event Event) {
	if userID == "" {
		return
	}
	m.emit(UserRoom(userID), event, uuid.Nil)
}

// Broadcast отправляет событие всем участникам комнаты
func (m *Manager) Broadcast(room string, event Event) {
	m.emit(room, event, uuid.Nil)
}

// EmitFrom отправляет событие участникам комнаты, кроме соединения-источника.
// Используется для событий чата: отправитель своё сообщение обратно не получает.
func (m *Manager) EmitFrom(origin *Client, room string, event Event) {
	m.emit(room, event, origin.ID)
}

// emit доставляет событие в комнату. Доставка best-effort: пустая комната —
// тихий no-op, отключённый получатель событие не увидит, повторов нет.
func (m *Manager) emit(room string, event Event, exclude uuid.UUID) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	eventJSON, err := json.Marshal(event)
	if err != nil {
		log.Printf("Ошибка сериализации события: %v", err)
		return
	}

	m.mu.RLock()
	members := m.rooms[room]
	recipients := make([]*Client, 0, len(members))
	for id, client := range members {
		if id == exclude {
			continue
		}
		recipients = append(recipients, client)
	}
	m.mu.RUnlock()

	for _, client := range recipients {
		if !client.trySend(eventJSON) {
			// Канал заполнен, клиент слишком медленный — закрываем соединение
			log.Printf("Канал отправки переполнен для клиента %s, закрываем соединение", client.ID)
			m.RemoveClient(client.ID)
			client.shutdown()
		}
	}
}

// Shutdown корректно завершает работу менеджера WebSocket
func (m *Manager) Shutdown() {
	m.mu.Lock()
	clients := make([]*Client, 0, len(m.clients))
	for _, client := range m.clients {
		clients = append(clients, client)
	}
	m.clients = make(map[uuid.UUID]*Client)
	m.rooms = make(map[string]map[uuid.UUID]*Client)
	m.mu.Unlock()

	for _, client := range clients {
		client.shutdown()
	}
}
