package websocket

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	// Канал Redis Pub/Sub для событий комнат
	bridgeChannel = "rewear:rooms"

	redisPublishTimeout = 3 * time.Second
)

// bridgeEnvelope — обёртка события для передачи между инстансами
type bridgeEnvelope struct {
	Origin string `json:"origin"`
	Room   string `json:"room"`
	Event  Event  `json:"event"`
}

// RedisBridge транслирует события комнат между инстансами через Redis Pub/Sub.
// Локальная доставка выполняется сразу через Manager, остальные инстансы
// получают событие из канала и доставляют его своим соединениям.
type RedisBridge struct {
	local      *Manager
	rdb        *redis.Client
	instanceID string
}

// NewRedisBridge создает новый мост поверх локального менеджера
func NewRedisBridge(local *Manager, rdb *redis.Client) *RedisBridge {
	return &RedisBridge{
		local:      local,
		rdb:        rdb,
		instanceID: uuid.New().String(),
	}
}

// SendToUser доставляет событие локально и публикует его для других инстансов
func (b *RedisBridge) SendToUser(userID string, event Event) {
	if userID == "" {
		return
	}
	b.local.SendToUser(userID, event)
	b.publish(UserRoom(userID), event)
}

// Broadcast доставляет событие локально и публикует его для других инстансов
func (b *RedisBridge) Broadcast(room string, event Event) {
	b.local.Broadcast(room, event)
	b.publish(room, event)
}

func (b *RedisBridge) publish(room string, event Event) {
	envelope := bridgeEnvelope{
		Origin: b.instanceID,
		Room:   room,
		Event:  event,
	}

	data, err := json.Marshal(envelope)
	if err != nil {
		log.Printf("Ошибка сериализации события для Redis: %v", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), redisPublishTimeout)
	defer cancel()

	if err := b.rdb.Publish(ctx, bridgeChannel, data).Err(); err != nil {
		// Локальная доставка уже выполнена, теряем только другие инстансы
		log.Printf("Ошибка публикации события в Redis: %v", err)
	}
}

// Start запускает цикл приёма событий от других инстансов.
// Блокируется до отмены контекста, запускать в отдельной горутине.
func (b *RedisBridge) Start(ctx context.Context) {
	pubsub := b.rdb.Subscribe(ctx, bridgeChannel)
	defer pubsub.Close()

	log.Printf("Redis-мост запущен, инстанс %s", b.instanceID)

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}

			var envelope bridgeEnvelope
			if err := json.Unmarshal([]byte(msg.Payload), &envelope); err != nil {
				log.Printf("Ошибка разбора события из Redis: %v", err)
				continue
			}

			// Своё же событие: локальная доставка уже была
			if envelope.Origin == b.instanceID {
				continue
			}

			b.local.Broadcast(envelope.Room, envelope.Event)
		}
	}
}
