package handlers

import (
	"net/http"

	"cartpilot/internal/logger"
	"cartpilot/internal/models"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type LeadHandler struct {
	db     *gorm.DB
	logger *logger.Logger
}

func NewLeadHandler(db *gorm.DB, logger *logger.Logger) *LeadHandler {
	return &LeadHandler{
		db:     db,
		logger: logger,
	}
}

// Create upserts a lead by email: a returning visitor updating their shop
// details keeps a single row.
func (h *LeadHandler) Create(c *gin.Context) {
	var request struct {
		Email      string  `json:"email"`
		Boutique   string  `json:"boutique"`
		URLShopify *string `json:"urlShopify"`
		Consent    bool    `json:"consent"`
		Source     string  `json:"source"`
	}

	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON"})
		return
	}

	if request.Email == "" || request.Boutique == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Email and boutique name are required"})
		return
	}

	source := models.LeadSource(request.Source)
	if source == "" {
		source = models.LeadSourceLanding
	}

	lead := models.Lead{
		Email:        request.Email,
		BoutiqueName: request.Boutique,
		ShopURL:      request.URLShopify,
		Consent:      request.Consent,
		Source:       source,
	}

	err := h.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "email"}},
		DoUpdates: clause.AssignmentColumns([]string{"boutique_name", "shop_url", "consent", "source", "updated_at"}),
	}).Create(&lead).Error
	if err != nil {
		h.logger.Error("Failed to upsert lead: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save lead"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "leadId": lead.ID})
}
