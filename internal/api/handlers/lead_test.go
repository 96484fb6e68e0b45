package handlers

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"cartpilot/internal/logger"
	"cartpilot/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newLeadRouter(t *testing.T, db *gorm.DB) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	handler := NewLeadHandler(db, logger.New("error"))
	router := gin.New()
	router.POST("/api/v1/leads", handler.Create)
	return router
}

func postLead(router *gin.Engine, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/leads", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestLeadRequiresEmailAndBoutique(t *testing.T) {
	db := setupTestDB(t)
	router := newLeadRouter(t, db)

	assert.Equal(t, http.StatusBadRequest, postLead(router, `{"email": "a@b.c"}`).Code)
	assert.Equal(t, http.StatusBadRequest, postLead(router, `{"boutique": "Shop"}`).Code)
}

func TestLeadUpsertByEmail(t *testing.T) {
	db := setupTestDB(t)
	router := newLeadRouter(t, db)

	first := postLead(router, `{"email": "owner@shop.com", "boutique": "Old Name", "consent": true}`)
	require.Equal(t, http.StatusOK, first.Code)

	second := postLead(router, `{"email": "owner@shop.com", "boutique": "New Name", "source": "WIDGET"}`)
	require.Equal(t, http.StatusOK, second.Code)

	var leads []models.Lead
	require.NoError(t, db.Find(&leads).Error)
	require.Len(t, leads, 1)
	assert.Equal(t, "New Name", leads[0].BoutiqueName)
	assert.Equal(t, models.LeadSource("WIDGET"), leads[0].Source)
}
