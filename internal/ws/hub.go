package ws

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/google/uuid"

	"github.com/ignatzorin/arbiter-backend/internal/logger"
)

// Событие готовности вердикта — единственное, что сервер шлёт клиенту.
const EventVerdictReady = "verdict_ready"

// Hub управляет всеми WebSocket клиентами: участник может держать несколько
// подключений (телефон и веб), событие доставляется во все.
type Hub struct {
	mu         sync.RWMutex
	clients    map[uuid.UUID]map[*Client]struct{}
	register   chan *Client
	unregister chan *Client
	broadcast  chan message
	ctx        context.Context
}

type message struct {
	userID  uuid.UUID
	payload []byte
}

// NewHub создаёт новый хаб.
func NewHub(ctx context.Context) *Hub {
	return &Hub{
		clients:    make(map[uuid.UUID]map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan message, 32),
		ctx:        ctx,
	}
}

// Run запускает главный цикл хаба.
func (h *Hub) Run() {
	for {
		select {
		case <-h.ctx.Done():
			return
		case client := <-h.register:
			h.addClient(client)
		case client := <-h.unregister:
			h.removeClient(client)
		case msg := <-h.broadcast:
			h.send(msg.userID, msg.payload)
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

// NotifyVerdictReady отправляет владельцу событие о готовом вердикте.
// Best-effort: если участник не подключён, событие просто теряется —
// вердикт он заберёт обычным запросом.
func (h *Hub) NotifyVerdictReady(ownerID, disputeID uuid.UUID, winner string) {
	payload, err := json.Marshal(map[string]any{
		"type": EventVerdictReady,
		"data": map[string]any{
			"dispute_id": disputeID,
			"winner":     winner,
		},
	})
	if err != nil {
		logger.Log.WithField("error", err.Error()).Error("ws: не удалось сериализовать событие")
		return
	}

	select {
	case h.broadcast <- message{userID: ownerID, payload: payload}:
	case <-h.ctx.Done():
	}
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
}

func (h *Hub) send(userID uuid.UUID, payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.clients[userID] {
		select {
		case client.send <- payload:
		default:
			// Переполненный буфер клиента — закрываем его вне цикла рассылки.
			go client.Close()
		}
	}
}
