package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"cartpilot/internal/api/handlers"
	"cartpilot/internal/api/middleware"
	"cartpilot/internal/config"
	"cartpilot/internal/database"
	"cartpilot/internal/events"
	"cartpilot/internal/logger"
	"cartpilot/internal/services/groq"
	"cartpilot/internal/services/shopify"
	"cartpilot/internal/suggest"

	"github.com/gin-gonic/gin"
)

type Server struct {
	config *config.Config
	logger *logger.Logger
	db     *database.Database
	router *gin.Engine
	server *http.Server
}

func New(cfg *config.Config, logger *logger.Logger, db *database.Database) *Server {
	// Set Gin mode
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Middleware
	router.Use(middleware.Logger(logger))
	router.Use(middleware.Recovery(logger))
	router.Use(middleware.CORS(cfg.AllowedOrigin))

	// Shared clients, injected into handlers from here so tests can build
	// handlers with substitutes.
	groqClient := groq.NewClient(cfg.GroqAPIKey, logger)
	storefront := shopify.NewStorefrontClient(time.Duration(cfg.CatalogTimeout)*time.Second, logger)
	engine := suggest.NewEngine(groqClient, cfg.GroqModel, time.Duration(cfg.SuggestTimeout)*time.Second, logger)
	publisher := events.NewPublisher(cfg.KafkaBrokers, cfg.EventsTopic, logger)

	// Initialize handlers
	webhookHandler := handlers.NewWebhookHandler(db.DB, logger, cfg, storefront, engine)
	suggestionsHandler := handlers.NewSuggestionsHandler(db.DB, logger, cfg, storefront, engine)
	leadHandler := handlers.NewLeadHandler(db.DB, logger)
	trackHandler := handlers.NewTrackHandler(publisher, logger)

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"message": "CartPilot API is running",
		})
	})

	// Routes
	v1 := router.Group("/api/v1")
	{
		webhooks := v1.Group("/webhooks")
		{
			webhooks.POST("/shopify/cart", webhookHandler.HandleCart)
		}

		suggestions := v1.Group("/suggestions")
		{
			suggestions.GET("", suggestionsHandler.Sample)
			suggestions.POST("", suggestionsHandler.Create)
		}

		v1.POST("/leads", leadHandler.Create)
		v1.POST("/track", trackHandler.Create)
	}

	return &Server{
		config: cfg,
		logger: logger,
		db:     db,
		router: router,
	}
}

func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%s", s.config.APIHost, s.config.APIPort)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("Starting server on " + addr)
	return s.server.ListenAndServe()
}

func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Shutting down server...")
	return s.server.Shutdown(ctx)
}

// GetRouter exposes the router for handler-level tests.
func (s *Server) GetRouter() *gin.Engine {
	return s.router
}
