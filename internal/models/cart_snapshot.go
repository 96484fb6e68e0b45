package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CartSnapshot is an append-only record of a normalized cart that passed
// HMAC verification with a positive total. Items holds the serialized
// line items as JSON.
type CartSnapshot struct {
	ID        string    `json:"id" gorm:"type:uuid;primary_key"`
	CartToken string    `json:"cart_token" gorm:"not null"`
	Total     float64   `json:"total" gorm:"type:decimal(10,2);not null"`
	Items     string    `json:"items" gorm:"not null"`
	CreatedAt time.Time `json:"created_at"`
}

func (s *CartSnapshot) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	return nil
}
