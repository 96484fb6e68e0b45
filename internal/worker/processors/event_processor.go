package processors

import (
	"encoding/json"

	"cartpilot/internal/config"
	"cartpilot/internal/database"
	"cartpilot/internal/events"
	"cartpilot/internal/logger"
	"cartpilot/internal/models"
)

// EventProcessor turns widget events from the upsell-events topic into
// ClickEvent rows. Unknown event types are logged and skipped.
type EventProcessor struct {
	config *config.Config
	logger *logger.Logger
	db     *database.Database
}

func NewEventProcessor(cfg *config.Config, logger *logger.Logger, db *database.Database) *EventProcessor {
	return &EventProcessor{
		config: cfg,
		logger: logger,
		db:     db,
	}
}

func (ep *EventProcessor) Process(event events.WidgetEvent) error {
	switch event.Type {
	case "widget.impression", "widget.click", "widget.dismiss":
		return ep.recordInteraction(event)
	default:
		ep.logger.Debug("Unhandled event type: %s", event.Type)
		return nil
	}
}

func (ep *EventProcessor) recordInteraction(event events.WidgetEvent) error {
	record := models.ClickEvent{
		EventType:  event.Type,
		OccurredAt: event.Timestamp,
	}
	if event.CartToken != "" {
		record.CartToken = &event.CartToken
	}
	if event.ProductID != "" {
		record.ProductID = &event.ProductID
	}
	if event.ShopDomain != "" {
		record.ShopDomain = &event.ShopDomain
	}
	if len(event.Data) > 0 {
		if metadata, err := json.Marshal(event.Data); err == nil {
			s := string(metadata)
			record.Metadata = &s
		}
	}

	return ep.db.DB.Create(&record).Error
}
