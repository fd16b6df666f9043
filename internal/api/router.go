package api

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"reminder-service/internal/config"
)

func NewRouter(h *Handler, logger *logrus.Logger, cfg config.Config) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestLoggingMiddleware(logger))

	api := r.Group(cfg.API.BasePath)
	{
		api.POST("/dispatch", h.Dispatch)
		api.GET("/notifications", h.ListNotifications)
		api.GET("/notifications/user/:user_id", h.GetNotificationsByUserID)
		api.GET("/health", h.Health)
		api.GET("/ws", h.Summaries)
	}
	return r
}
