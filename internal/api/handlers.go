package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"reminder-service/internal/models"
)

// Dispatcher runs one dispatch batch on demand.
type Dispatcher interface {
	Run(ctx context.Context) (models.Summary, error)
}

// NotificationStore is the read side of the store exposed over HTTP.
type NotificationStore interface {
	ListNotifications(ctx context.Context, status string, limit, offset int) ([]models.Notification, error)
	GetNotificationsByUserID(ctx context.Context, userID uuid.UUID) ([]models.Notification, error)
	Ping(ctx context.Context) error
}

type Handler struct {
	store      NotificationStore
	dispatcher Dispatcher
	hub        *SummaryHub
	logger     *logrus.Logger
	upgrader   websocket.Upgrader
}

func NewHandler(store NotificationStore, dispatcher Dispatcher, hub *SummaryHub, logger *logrus.Logger) *Handler {
	return &Handler{
		store:      store,
		dispatcher: dispatcher,
		hub:        hub,
		logger:     logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Dispatch triggers one batch run. A batch with individual failures still
// returns 200 with the full summary; only a fetch failure is an error.
func (h *Handler) Dispatch(c *gin.Context) {
	summary, err := h.dispatcher.Run(c.Request.Context())
	if err != nil {
		h.logger.Errorf("Manual dispatch failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Dispatch failed"})
		return
	}
	if h.hub != nil {
		h.hub.Publish(summary)
	}
	c.JSON(http.StatusOK, summary)
}

func (h *Handler) ListNotifications(c *gin.Context) {
	status := c.Query("status")
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit < 1 || limit > 200 {
		limit = 50
	}
	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		offset = 0
	}

	notifications, err := h.store.ListNotifications(c.Request.Context(), status, limit, offset)
	if err != nil {
		h.logger.Errorf("Failed to list notifications: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list notifications"})
		return
	}
	c.JSON(http.StatusOK, notifications)
}

func (h *Handler) GetNotificationsByUserID(c *gin.Context) {
	userIDStr := c.Param("user_id")
	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		h.logger.Errorf("Invalid user_id %s: %v", userIDStr, err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user_id"})
		return
	}

	notifications, err := h.store.GetNotificationsByUserID(c.Request.Context(), userID)
	if err != nil {
		h.logger.Errorf("Failed to get notifications for user %s: %v", userID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get notifications"})
		return
	}
	c.JSON(http.StatusOK, notifications)
}

func (h *Handler) Health(c *gin.Context) {
	if err := h.store.Ping(c.Request.Context()); err != nil {
		h.logger.Errorf("Health check failed: %v", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Summaries upgrades to a websocket streaming one JSON summary per finished
// batch.
func (h *Handler) Summaries(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Errorf("WebSocket upgrade failed: %v", err)
		return
	}
	h.hub.Add(conn)
	defer h.hub.Remove(conn)

	// Drain client frames until the connection drops.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
