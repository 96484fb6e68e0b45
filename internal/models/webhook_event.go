package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// WebhookEvent records one inbound webhook delivery attempt. The unique
// idempotency key is the only deduplication mechanism: a duplicate insert
// means the delivery was already processed.
type WebhookEvent struct {
	ID             string    `json:"id" gorm:"type:uuid;primary_key"`
	IdempotencyKey string    `json:"idempotency_key" gorm:"unique;not null"`
	Topic          string    `json:"topic" gorm:"not null"`
	ShopDomain     *string   `json:"shop_domain"`
	RawBody        string    `json:"raw_body" gorm:"not null"`
	HMACValid      bool      `json:"hmac_valid" gorm:"column:hmac_valid;default:false"`
	ReceivedAt     time.Time `json:"received_at"`
}

func (e *WebhookEvent) BeforeCreate(tx *gorm.DB) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.ReceivedAt.IsZero() {
		e.ReceivedAt = time.Now()
	}
	return nil
}
