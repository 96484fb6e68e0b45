package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"cartpilot/internal/config"
	"cartpilot/internal/logger"
	"cartpilot/internal/models"
	"cartpilot/internal/services/shopify"
	"cartpilot/internal/suggest"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type WebhookHandler struct {
	db         *gorm.DB
	logger     *logger.Logger
	config     *config.Config
	storefront *shopify.StorefrontClient
	engine     *suggest.Engine
}

func NewWebhookHandler(db *gorm.DB, logger *logger.Logger, cfg *config.Config, storefront *shopify.StorefrontClient, engine *suggest.Engine) *WebhookHandler {
	return &WebhookHandler{
		db:         db,
		logger:     logger,
		config:     cfg,
		storefront: storefront,
		engine:     engine,
	}
}

// HandleCart processes a signed carts/create|update webhook. Once the
// HMAC passes the response is always 200: Shopify retries non-2xx
// deliveries, and a failed suggestion run is not worth a redelivery storm.
func (h *WebhookHandler) HandleCart(c *gin.Context) {
	startedAt := time.Now()
	requestID := uuid.New().String()

	if h.config.ShopifyWebhookSecret == "" {
		h.logger.Error("SHOPIFY_WEBHOOK_SECRET is not configured")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "SERVER_MISCONFIG", "message": "Missing webhook secret"})
		return
	}

	raw, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "BAD_REQUEST", "message": "Failed to read payload"})
		return
	}

	signature := c.GetHeader("X-Shopify-Hmac-Sha256")
	if signature == "" {
		h.logger.Warn("Webhook without HMAC header (request %s)", requestID)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "UNAUTHORIZED", "message": "Missing HMAC"})
		return
	}

	if !shopify.VerifyWebhookHMAC(raw, h.config.ShopifyWebhookSecret, signature) {
		h.logger.Warn("Webhook with invalid HMAC signature (request %s)", requestID)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "UNAUTHORIZED", "message": "Invalid HMAC"})
		return
	}

	topic := c.GetHeader("X-Shopify-Topic")
	webhookID := c.GetHeader("X-Shopify-Webhook-Id")
	shopDomain := c.GetHeader("X-Shopify-Shop-Domain")
	if topic == "" || webhookID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "BAD_REQUEST", "message": "Missing required headers"})
		return
	}

	var payload shopify.CartPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		h.logger.Error("Invalid webhook JSON (request %s): %v", requestID, err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "BAD_REQUEST", "message": "Invalid JSON"})
		return
	}

	// Record the delivery. The unique idempotency key is the sole
	// deduplication mechanism: a duplicate insert means this delivery was
	// already processed, so acknowledge without re-running the pipeline.
	event := models.WebhookEvent{
		IdempotencyKey: webhookID,
		Topic:          topic,
		RawBody:        string(raw),
		HMACValid:      true,
	}
	if shopDomain != "" {
		event.ShopDomain = &shopDomain
	}
	if err := h.db.Create(&event).Error; err != nil {
		if isDuplicateKey(err) {
			h.logger.Info("Duplicate webhook delivery %s, skipping (request %s)", webhookID, requestID)
			c.JSON(http.StatusOK, gin.H{"ok": true, "requestId": requestID, "duplicate": true})
			return
		}
		// Best-effort durability: a failed insert must not trigger a retry.
		h.logger.Error("Failed to record webhook event (request %s): %v", requestID, err)
	}

	cart := shopify.NormalizeCart(payload)
	cartToken := payload.Token
	if cartToken == "" {
		cartToken = shopify.Stringify(payload.ID)
	}
	h.logger.Debug("Normalized cart (request %s): %d items, total %.2f", requestID, len(cart.Items), cart.Total)

	if len(cart.Items) == 0 || cart.Total <= 0 {
		result := suggest.Result{Provider: suggest.ProviderSkip, Suggestions: []suggest.Suggestion{}}
		h.logSuggestion(requestID, cartToken, result)
		c.JSON(http.StatusOK, gin.H{
			"ok":        true,
			"requestId": requestID,
			"latencyMs": time.Since(startedAt).Milliseconds(),
			"cart":      cart,
			"ai":        result,
		})
		return
	}

	h.snapshotCart(requestID, cartToken, cart)

	var candidates []shopify.Candidate
	if shopDomain != "" {
		candidates = h.storefront.CollectCandidates(c.Request.Context(), shopDomain, cart.ProductIDs())
	}

	result := h.engine.Suggest(c.Request.Context(), cart, candidates)
	h.logSuggestion(requestID, cartToken, result)

	h.logger.Info("Webhook processed (request %s): provider=%s suggestions=%d latency=%dms",
		requestID, result.Provider, len(result.Suggestions), time.Since(startedAt).Milliseconds())

	c.JSON(http.StatusOK, gin.H{
		"ok":        true,
		"requestId": requestID,
		"latencyMs": time.Since(startedAt).Milliseconds(),
		"cart":      cart,
		"ai":        result,
	})
}

func (h *WebhookHandler) snapshotCart(requestID, cartToken string, cart shopify.Cart) {
	items, err := json.Marshal(cart.Items)
	if err != nil {
		h.logger.Error("Failed to serialize cart items (request %s): %v", requestID, err)
		return
	}
	snapshot := models.CartSnapshot{
		CartToken: cartToken,
		Total:     cart.Total,
		Items:     string(items),
	}
	if err := h.db.Create(&snapshot).Error; err != nil {
		h.logger.Error("Failed to persist cart snapshot (request %s): %v", requestID, err)
	}
}

func (h *WebhookHandler) logSuggestion(requestID, cartToken string, result suggest.Result) {
	payload, err := json.Marshal(result)
	if err != nil {
		h.logger.Error("Failed to serialize suggestion result (request %s): %v", requestID, err)
		return
	}
	record := models.SuggestionLog{
		RequestID: requestID,
		Provider:  models.SuggestionProvider(result.Provider),
		Payload:   string(payload),
	}
	if cartToken != "" {
		record.CartToken = &cartToken
	}
	if result.Model != "" {
		record.Model = &result.Model
	}
	if err := h.db.Create(&record).Error; err != nil {
		h.logger.Error("Failed to persist suggestion log (request %s): %v", requestID, err)
	}
}

// isDuplicateKey matches unique-constraint violations across the drivers
// this service runs on (pgx and sqlite wordings differ).
func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate key") || strings.Contains(msg, "unique constraint")
}
