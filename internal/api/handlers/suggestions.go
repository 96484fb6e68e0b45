package handlers

import (
	"encoding/json"
	"net/http"

	"cartpilot/internal/config"
	"cartpilot/internal/logger"
	"cartpilot/internal/models"
	"cartpilot/internal/services/shopify"
	"cartpilot/internal/suggest"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type SuggestionsHandler struct {
	db         *gorm.DB
	logger     *logger.Logger
	config     *config.Config
	storefront *shopify.StorefrontClient
	engine     *suggest.Engine
}

func NewSuggestionsHandler(db *gorm.DB, logger *logger.Logger, cfg *config.Config, storefront *shopify.StorefrontClient, engine *suggest.Engine) *SuggestionsHandler {
	return &SuggestionsHandler{
		db:         db,
		logger:     logger,
		config:     cfg,
		storefront: storefront,
		engine:     engine,
	}
}

// widgetRequest is the storefront widget's payload: the cart as returned
// by Shopify's /cart.js (prices in cents) plus the shop origin to collect
// candidates from.
type widgetRequest struct {
	Cart *struct {
		Items []struct {
			ID        interface{} `json:"id"`
			ProductID interface{} `json:"product_id"`
			Title     string      `json:"title"`
			Price     interface{} `json:"price"`
			Quantity  interface{} `json:"quantity"`
		} `json:"items"`
		TotalPrice interface{} `json:"total_price"`
		Token      string      `json:"token"`
	} `json:"cart"`
	ShopOrigin string `json:"shopOrigin"`
}

// Create handles POST /suggestions from the widget. Apart from a 400 on
// structurally invalid input, the widget always gets a 200 with a
// (possibly empty) suggestion list: upsell is decoration, never an error
// state on the storefront.
func (h *SuggestionsHandler) Create(c *gin.Context) {
	requestID := uuid.New().String()

	var req widgetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "BAD_REQUEST", "message": "Invalid JSON"})
		return
	}
	if req.Cart == nil || req.Cart.Items == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "BAD_REQUEST", "message": "Missing cart.items"})
		return
	}

	cart, productIDs := h.normalizeWidgetCart(req)
	h.logger.Debug("Widget cart (request %s): %d items, total %.2f", requestID, len(cart.Items), cart.Total)

	var candidates []shopify.Candidate
	if len(cart.Items) > 0 && cart.Total > 0 {
		candidates = h.storefront.CollectCandidates(c.Request.Context(), req.ShopOrigin, productIDs)
	}

	result := h.engine.Suggest(c.Request.Context(), cart, candidates)
	h.logSuggestion(requestID, req.Cart.Token, result)

	c.JSON(http.StatusOK, gin.H{"suggestions": result.Suggestions})
}

// Sample answers GET /suggestions with a static payload, kept for widget
// smoke tests during storefront integration.
func (h *SuggestionsHandler) Sample(c *gin.Context) {
	cartToken := c.Query("cart_token")
	h.logger.Debug("Sample suggestions requested for cart_token=%s", cartToken)

	c.JSON(http.StatusOK, gin.H{
		"suggestions": []suggest.Suggestion{
			{ID: "1", Title: "Produit A", Reason: "Best seller"},
			{ID: "2", Title: "Produit B", Reason: "Frequently bought together"},
		},
	})
}

// normalizeWidgetCart converts cart.js line items to the canonical cart.
// cart.js prices are in cents; everything downstream works in major
// units. Product IDs (not variant IDs) drive candidate deduplication.
func (h *SuggestionsHandler) normalizeWidgetCart(req widgetRequest) (shopify.Cart, []string) {
	items := make([]shopify.CartItem, 0, len(req.Cart.Items))
	productIDs := make([]string, 0, len(req.Cart.Items))
	seen := make(map[string]bool)
	total := 0.0

	for _, it := range req.Cart.Items {
		qty := int(shopify.ToNumber(it.Quantity))
		if qty < 0 {
			qty = 0
		}
		item := shopify.CartItem{
			ID:       shopify.Stringify(it.ID),
			Name:     it.Title,
			Price:    shopify.ToNumber(it.Price) / 100,
			Quantity: qty,
		}
		items = append(items, item)
		total += item.Price * float64(item.Quantity)

		productID := shopify.Stringify(it.ProductID)
		if productID == "" {
			productID = item.ID
		}
		if productID != "" && !seen[productID] {
			seen[productID] = true
			productIDs = append(productIDs, productID)
		}
	}

	return shopify.Cart{Items: items, Total: total}, productIDs
}

func (h *SuggestionsHandler) logSuggestion(requestID, cartToken string, result suggest.Result) {
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
