// Package ws pushes freshly calculated values to websocket subscribers.
package ws

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"sensorvision/internal/metrics"
)

const (
	writeTimeout   = 10 * time.Second
	sendBufferSize = 16
)

// Hub tracks subscriber connections per device.
type Hub struct {
	mu           sync.RWMutex
	subscribers  map[string]map[string]*Client // device id -> client id -> client
	pingInterval time.Duration
	logger       *zap.Logger
}

// NewHub builds a hub.
func NewHub(pingInterval time.Duration, logger *zap.Logger) *Hub {
	if pingInterval <= 0 {
		pingInterval = 30 * time.Second
	}
	return &Hub{
		subscribers:  make(map[string]map[string]*Client),
		pingInterval: pingInterval,
		logger:       logger,
	}
}

// Register adopts a websocket connection as a subscriber of deviceID and
// starts its pumps.
func (h *Hub) Register(deviceID string, conn *websocket.Conn) *Client {
	client := &Client{
		id:       uuid.NewString(),
		deviceID: deviceID,
		conn:     conn,
		send:     make(chan []byte, sendBufferSize),
		hub:      h,
	}

	h.mu.Lock()
	if h.subscribers[deviceID] == nil {
		h.subscribers[deviceID] = make(map[string]*Client)
	}
	h.subscribers[deviceID][client.id] = client
	h.mu.Unlock()

	metrics.WSClients.Inc()
	go client.writePump(h.pingInterval)
	go client.readPump()
	return client
}

func (h *Hub) remove(client *Client) {
	h.mu.Lock()
	clients, ok := h.subscribers[client.deviceID]
	if ok {
		if _, present := clients[client.id]; present {
			delete(clients, client.id)
			metrics.WSClients.Dec()
		}
		if len(clients) == 0 {
			delete(h.subscribers, client.deviceID)
		}
	}
	h.mu.Unlock()
	close(client.send)
	_ = client.conn.Close()
}

// Broadcast sends payload to every subscriber of deviceID. Slow clients are
// skipped rather than allowed to stall the ingest path.
func (h *Hub) Broadcast(deviceID string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		h.logger.Error("ws: marshal broadcast payload", zap.Error(err))
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, client := range h.subscribers[deviceID] {
		select {
		case client.send <- data:
		default:
			h.logger.Debug("ws: dropping message for slow client",
				zap.String("device_id", deviceID),
				zap.String("client_id", client.id),
			)
		}
	}
}
