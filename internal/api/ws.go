package api

import (
	"sync"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"reminder-service/internal/models"
)

const maxSummaryConnections = 10

// SummaryHub fans batch summaries out to connected dashboard clients.
type SummaryHub struct {
	mutex       sync.Mutex
	connections map[*websocket.Conn]bool
	logger      *logrus.Logger
}

func NewSummaryHub(logger *logrus.Logger) *SummaryHub {
	return &SummaryHub{
		connections: make(map[*websocket.Conn]bool),
		logger:      logger,
	}
}

// Add registers a connection.
func (h *SummaryHub) Add(conn *websocket.Conn) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	if len(h.connections) >= maxSummaryConnections {
		h.logger.Warnf("Max summary connections reached, rejecting client")
		_ = conn.Close()
		return
	}
	h.connections[conn] = true
	h.logger.Infof("Summary client connected (total: %d)", len(h.connections))
}

// Remove unregisters a connection.
func (h *SummaryHub) Remove(conn *websocket.Conn) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	if _, exists := h.connections[conn]; exists {
		delete(h.connections, conn)
		h.logger.Infof("Summary client disconnected (remaining: %d)", len(h.connections))
	}
}

// Publish sends a summary to every connected client, dropping connections
// that fail to write.
func (h *SummaryHub) Publish(summary models.Summary) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	for conn := range h.connections {
		if err := conn.WriteJSON(summary); err != nil {
			h.logger.Errorf("Failed to push summary to client: %v", err)
			_ = conn.Close()
			delete(h.connections, conn)
		}
	}
}
