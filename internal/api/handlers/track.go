package handlers

import (
	"net/http"

	"cartpilot/internal/events"
	"cartpilot/internal/logger"

	"github.com/gin-gonic/gin"
)

type TrackHandler struct {
	publisher *events.Publisher
	logger    *logger.Logger
}

func NewTrackHandler(publisher *events.Publisher, logger *logger.Logger) *TrackHandler {
	return &TrackHandler{
		publisher: publisher,
		logger:    logger,
	}
}

// Create accepts a widget interaction event and hands it to Kafka.
// Publishing is best-effort: the widget gets its 200 even when the broker
// is down, and the failure is only logged.
func (h *TrackHandler) Create(c *gin.Context) {
	var request struct {
		Type       string                 `json:"type"`
		CartToken  string                 `json:"cart_token"`
		ProductID  string                 `json:"product_id"`
		ShopDomain string                 `json:"shop_domain"`
		Data       map[string]interface{} `json:"data"`
	}

	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON"})
		return
	}

	if request.Type == "" {
		request.Type = "widget.click"
	}

	event := events.WidgetEvent{
		Type:       request.Type,
		CartToken:  request.CartToken,
		ProductID:  request.ProductID,
		ShopDomain: request.ShopDomain,
		Data:       request.Data,
	}

	if h.publisher != nil {
		if err := h.publisher.Publish(c.Request.Context(), event); err != nil {
			h.logger.Error("Failed to publish widget event: %v", err)
		}
	}

	c.JSON(http.StatusOK, gin.H{"received": true, "message": "Event tracked"})
}
