package ws

import (
	"encoding/json"
	"fmt"
	"runtime/debug"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/marketplace-backend/internal/goroutine"
	"github.com/ignatzorin/marketplace-backend/internal/logger"
)

// Hub управляет всеми WebSocket клиентами. Он же служит реестром
// присутствия: пользователь считается онлайн, пока у него есть хотя бы
// одно живое соединение. Помимо соединений по пользователю хаб ведёт
// комнаты диалогов — подписки открытых вкладок на конкретный диалог.
type Hub struct {
	mu         sync.RWMutex
	clients    map[uuid.UUID]map[*Client]struct{}
	rooms      map[uuid.UUID]map[*Client]struct{}
	register   chan *Client
	unregister chan *Client
}

// NewHub создаёт новый хаб.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[uuid.UUID]map[*Client]struct{}),
		rooms:      make(map[uuid.UUID]map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

// Run запускает главный цикл хаба.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.addClient(client)
		case client := <-h.unregister:
			h.removeClient(client)
		}
	}
}

// Register добавляет клиента.
func (h *Hub) Register(client *Client) {
	h.register <- client
}

// Unregister удаляет клиента.
func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

// IsOnline сообщает, есть ли у пользователя живое соединение. Только
// чтение под RLock: проверка присутствия не блокирует отправку.
func (h *Hub) IsOnline(userID uuid.UUID) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID]) > 0
}

// PushToUser отправляет событие на все соединения пользователя.
// Возвращает true, если полезная нагрузка ушла хотя бы в одно соединение.
func (h *Hub) PushToUser(userID uuid.UUID, event string, data any) (bool, error) {
	raw, err := marshalEvent(event, data)
	if err != nil {
		return false, err
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	delivered := false
	for client := range h.clients[userID] {
		if client.enqueue(raw) {
			delivered = true
		}
	}
	return delivered, nil
}

// PushToThread отправляет событие всем подписчикам комнаты диалога.
// Покрывает получателя с несколькими открытыми вкладками диалога.
func (h *Hub) PushToThread(threadID uuid.UUID, event string, data any) error {
	raw, err := marshalEvent(event, data)
	if err != nil {
		return err
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.rooms[threadID] {
		client.enqueue(raw)
	}
	return nil
}

// JoinThread подписывает соединение на комнату диалога.
func (h *Hub) JoinThread(threadID uuid.UUID, client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.rooms[threadID]; !ok {
		h.rooms[threadID] = make(map[*Client]struct{})
	}
	h.rooms[threadID][client] = struct{}{}
	client.joined[threadID] = struct{}{}
}

// LeaveThread отписывает соединение от комнаты диалога.
func (h *Hub) LeaveThread(threadID uuid.UUID, client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.leaveThreadLocked(threadID, client)
}

func (h *Hub) leaveThreadLocked(threadID uuid.UUID, client *Client) {
	if members, ok := h.rooms[threadID]; ok {
		delete(members, client)
		if len(members) == 0 {
			delete(h.rooms, threadID)
		}
	}
	delete(client.joined, threadID)
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client.userID]; !ok {
		h.clients[client.userID] = make(map[*Client]struct{})
	}
	h.clients[client.userID][client] = struct{}{}
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if clients, ok := h.clients[client.userID]; ok {
		delete(clients, client)
		if len(clients) == 0 {
			delete(h.clients, client.userID)
		}
	}
	for threadID := range client.joined {
		h.leaveThreadLocked(threadID, client)
	}
}

// closeSlow асинхронно закрывает соединение с переполненной очередью.
func (h *Hub) closeSlow(client *Client) {
	goroutine.SafeGo(func() {
		client.Close()
	})
}

func marshalEvent(event string, data any) ([]byte, error) {
	// Сообщение для клиента следует контракту WebSocket API:
	// поле "type" содержит имя события, "data" — полезную нагрузку.
	payload := map[string]any{
		"type": event,
		"data": data,
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("ws: не удалось сериализовать сообщение: %w", err)
	}
	return raw, nil
}

func logDroppedClient(userID uuid.UUID) {
	if logger.Log != nil {
		logger.Log.WithFields(logrus.Fields{"user_id": userID}).
			Warn("ws: очередь клиента переполнена, соединение закрывается")
	}
}

func logPumpPanic(pump string, r interface{}) {
	if logger.Log != nil {
		logger.Log.WithFields(logrus.Fields{"pump": pump}).
			Errorf("ws: panic recovered: %v\nStack trace:\n%s", r, debug.Stack())
	}
}
