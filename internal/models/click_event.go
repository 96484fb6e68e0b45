package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ClickEvent is a widget interaction (impression, click, dismiss) recorded
// by the worker from the upsell-events topic.
type ClickEvent struct {
	ID         string    `json:"id" gorm:"type:uuid;primary_key"`
	EventType  string    `json:"event_type" gorm:"not null"`
	CartToken  *string   `json:"cart_token"`
	ProductID  *string   `json:"product_id"`
	ShopDomain *string   `json:"shop_domain"`
	Metadata   *string   `json:"metadata"`
	OccurredAt time.Time `json:"occurred_at"`
}

func (e *ClickEvent) BeforeCreate(tx *gorm.DB) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now()
	}
	return nil
}
