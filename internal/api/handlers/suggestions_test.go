package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"cartpilot/internal/logger"
	"cartpilot/internal/models"
	"cartpilot/internal/services/groq"
	"cartpilot/internal/services/shopify"
	"cartpilot/internal/suggest"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newSuggestionsRouter(t *testing.T, db *gorm.DB) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	log := logger.New("error")
	storefront := shopify.NewStorefrontClient(time.Second, log)
	engine := suggest.NewEngine(groq.NewClient("", log), "llama-3.1-8b-instant", time.Second, log)
	handler := NewSuggestionsHandler(db, log, testConfig(), storefront, engine)

	router := gin.New()
	router.GET("/api/v1/suggestions", handler.Sample)
	router.POST("/api/v1/suggestions", handler.Create)
	return router
}

func postSuggestions(router *gin.Engine, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/suggestions", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestSuggestionsRejectsInvalidInput(t *testing.T) {
	db := setupTestDB(t)
	router := newSuggestionsRouter(t, db)

	assert.Equal(t, http.StatusBadRequest, postSuggestions(router, `{not json`).Code)
	assert.Equal(t, http.StatusBadRequest, postSuggestions(router, `{}`).Code)
	assert.Equal(t, http.StatusBadRequest, postSuggestions(router, `{"cart": {}}`).Code)
}

func TestSuggestionsRanksCatalogCandidates(t *testing.T) {
	db := setupTestDB(t)

	shop := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/recommendations/products.json":
			w.Write([]byte(`{"products": [
				{"id": 10, "title": "Belt", "variants": [{"price": "10.00"}]},
				{"id": 50, "title": "Bag", "variants": [{"price": "50.00"}]},
				{"id": 12, "title": "Socks", "variants": [{"price": "12.00"}]}
			]}`))
		default:
			w.Write([]byte(`{"products": []}`))
		}
	}))
	defer shop.Close()

	router := newSuggestionsRouter(t, db)

	// Prices from /cart.js come in cents: 1100 is 11.00.
	body := `{
		"cart": {
			"token": "widget-cart",
			"items": [{"id": 111, "product_id": 1, "title": "T-shirt", "price": 1100, "quantity": 1}]
		},
		"shopOrigin": "` + shop.URL + `"
	}`
	w := postSuggestions(router, body)

	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Suggestions []suggest.Suggestion `json:"suggestions"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	// No LLM key configured, so price proximity ranks against 11.00:
	// distances are 1, 39, 1 and the tie keeps collector order.
	require.Len(t, resp.Suggestions, 2)
	assert.Equal(t, "10", resp.Suggestions[0].ID)
	assert.Equal(t, "12", resp.Suggestions[1].ID)

	var logs []models.SuggestionLog
	require.NoError(t, db.Find(&logs).Error)
	require.Len(t, logs, 1)
	assert.Equal(t, models.ProviderFallback, logs[0].Provider)
	require.NotNil(t, logs[0].CartToken)
	assert.Equal(t, "widget-cart", *logs[0].CartToken)
}

func TestSuggestionsEmptyCartSkips(t *testing.T) {
	db := setupTestDB(t)
	router := newSuggestionsRouter(t, db)

	w := postSuggestions(router, `{"cart": {"items": []}, "shopOrigin": "shop.example.com"}`)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"suggestions": []}`, w.Body.String())
}

func TestSuggestionsSample(t *testing.T) {
	db := setupTestDB(t)
	router := newSuggestionsRouter(t, db)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/suggestions?cart_token=tok", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Produit A")
}
