package api

import (
	"context"
	"sync"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/gmsas95/dosetrack/internal/reminder"
)

// Event is a message pushed to connected PWA sessions.
type Event struct {
	Type         string `json:"type"`
	MedicationID string `json:"medication_id,omitempty"`
	LogID        string `json:"log_id,omitempty"`
	Status       string `json:"status,omitempty"`
	Message      string `json:"message,omitempty"`
}

// Hub fans events out to all open WebSocket connections. It doubles as a
// reminder delivery channel for sessions that are currently open.
type Hub struct {
	logger *zap.Logger

	mu      sync.Mutex
	clients map[string]*websocket.Conn
}

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		logger:  logger,
		clients: make(map[string]*websocket.Conn),
	}
}

// handleConn registers a connection and blocks until it closes. Clients
// only listen; inbound frames are drained and discarded.
func (h *Hub) handleConn(c *websocket.Conn) {
	id := uuid.NewString()

	h.mu.Lock()
	h.clients[id] = c
	h.mu.Unlock()

	h.logger.Debug("websocket client connected", zap.String("client_id", id))

	defer func() {
		h.mu.Lock()
		delete(h.clients, id)
		h.mu.Unlock()
		c.Close()
	}()

	for {
		if _, _, err := c.ReadMessage(); err != nil {
			return
		}
	}
}

// Broadcast sends an event to every connected client. Write failures
// drop the client; its read loop cleans up.
func (h *Hub) Broadcast(e Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for id, c := range h.clients {
		if err := c.WriteJSON(e); err != nil {
			h.logger.Debug("dropping websocket client", zap.String("client_id", id), zap.Error(err))
			delete(h.clients, id)
			c.Close()
		}
	}
}

// Name identifies the channel in metrics and logs.
func (h *Hub) Name() string { return "websocket" }

// Notify implements the reminder channel interface.
func (h *Hub) Notify(ctx context.Context, r reminder.Reminder) error {
	h.Broadcast(Event{
		Type:         "reminder",
		MedicationID: r.MedicationID,
		Message:      r.Message(),
	})
	return nil
}
