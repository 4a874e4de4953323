package websocket

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/fasthttp/websocket"
	"github.com/google/uuid"

	"github.com/rewear-app/rewear-api/internal/db"
)

const (
	// Максимальное время ожидания для pong от клиента
	pongWait = 60 * time.Second

	// Отправлять ping-сообщения клиенту с этим интервалом
	pingPeriod = (pongWait * 9) / 10

	// Максимальный размер сообщения от клиента
	maxMessageSize = 64 * 1024 // 64KB

	// Размер буфера для отправляемых сообщений
	sendBufferSize = 256
)

// Client представляет собой отдельное WebSocket соединение
type Client struct {
	ID     uuid.UUID
	UserID string

	conn    *websocket.Conn
	send    chan []byte
	manager *Manager

	// Комнаты, в которых состоит соединение. Мутируется только
	// менеджером под его мьютексом.
	joined map[string]bool

	closeOnce sync.Once
	closeChan chan struct{}
}

// clientMessage — входящее сообщение от клиента
type clientMessage struct {
	Type    string `json:"type"`
	SwapID  string `json:"swap_id,omitempty"`
	Message string `json:"message,omitempty"`
}

// NewClient создает новый экземпляр Client
func NewClient(userID string, conn *websocket.Conn, manager *Manager) *Client {
	return &Client{
		ID:        uuid.New(),
		UserID:    userID,
		conn:      conn,
		send:      make(chan []byte, sendBufferSize),
		manager:   manager,
		joined:    make(map[string]bool),
		closeChan: make(chan struct{}),
	}
}

// Run регистрирует клиента и блокируется до разрыва соединения
func (c *Client) Run() {
	c.manager.AddClient(c)

	go c.writePump()
	c.readPump()
}

// trySend кладёт сообщение в очередь отправки без блокировки.
// Возвращает false, если буфер заполнен.
func (c *Client) trySend(message []byte) bool {
	select {
	case c.send <- message:
		return true
	default:
		return false
	}
}

// shutdown закрывает соединение клиента
func (c *Client) shutdown() {
	c.closeOnce.Do(func() {
		close(c.closeChan)
		if c.conn != nil {
			c.conn.Close()
		}
	})
}

// readPump обрабатывает входящие сообщения от клиента
func (c *Client) readPump() {
	defer func() {
		c.manager.RemoveClient(c.ID)
		c.shutdown()
	}()

	// Настраиваем соединение
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("Неожиданное закрытие соединения: %v", err)
			}
			break
		}

		c.handleIncomingMessage(message)
	}
}

// writePump отправляет сообщения клиенту
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.shutdown()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Printf("Ошибка записи сообщения: %v", err)
				return
			}
		case <-ticker.C:
			// Отправляем ping для поддержания соединения
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.closeChan:
			return
		}
	}
}

// handleIncomingMessage обрабатывает входящие сообщения от клиента:
// вступление в комнаты и ретрансляцию чата обмена
func (c *Client) handleIncomingMessage(message []byte) {
	var msg clientMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		log.Printf("Ошибка разбора сообщения клиента %s: %v", c.ID, err)
		return
	}

	switch msg.Type {
	case "join-user-room":
		// Комната определяется авторизованным пользователем соединения,
		// подставить чужой ID нельзя
		c.manager.JoinRoom(c, UserRoom(c.UserID))

	case "join-browse-room":
		c.manager.JoinRoom(c, BrowseRoom)

	case "leave-browse-room":
		c.manager.LeaveRoom(c, BrowseRoom)

	case "join-swap-chat":
		if msg.SwapID != "" {
			c.manager.JoinRoom(c, SwapChatRoom(msg.SwapID))
		}

	case "leave-swap-chat":
		if msg.SwapID != "" {
			c.manager.LeaveRoom(c, SwapChatRoom(msg.SwapID))
		}

	case "swap-message":
		c.relaySwapMessage(msg)

	case "swap-typing":
		if msg.SwapID == "" {
			return
		}
		event := NewEvent(EventSwapTyping, map[string]interface{}{
			"swapId": msg.SwapID,
			"userId": c.UserID,
		})
		c.manager.EmitFrom(c, SwapChatRoom(msg.SwapID), event)

	default:
		log.Printf("Необработанный тип сообщения: %s", msg.Type)
	}
}

// relaySwapMessage ретранслирует сообщение чата остальным участникам
// комнаты обмена. Сообщения чата нигде не сохраняются.
func (c *Client) relaySwapMessage(msg clientMessage) {
	if msg.SwapID == "" || msg.Message == "" {
		return
	}

	senderName := c.senderName()

	event := NewEvent(EventSwapMessage, map[string]interface{}{
		"swapId":     msg.SwapID,
		"senderId":   c.UserID,
		"senderName": senderName,
		"message":    msg.Message,
		"timestamp":  time.Now(),
	})

	c.manager.EmitFrom(c, SwapChatRoom(msg.SwapID), event)
}

// senderName возвращает отображаемое имя пользователя соединения
func (c *Client) senderName() string {
	userUUID, err := uuid.Parse(c.UserID)
	if err != nil {
		return "Участник обмена"
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	name, err := db.GetUserName(ctx, userUUID)
	if err != nil || name == "" {
		return "Участник обмена"
	}
	return name
}
