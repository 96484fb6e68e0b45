package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type SuggestionProvider string

const (
	ProviderGroq     SuggestionProvider = "groq"
	ProviderFallback SuggestionProvider = "fallback"
	ProviderSkip     SuggestionProvider = "skip"
)

// SuggestionLog records every suggestion attempt, success or not. Payload
// preserves the full engine result (including fallback reasons) for audit.
type SuggestionLog struct {
	ID        string             `json:"id" gorm:"type:uuid;primary_key"`
	RequestID string             `json:"request_id" gorm:"not null"`
	CartToken *string            `json:"cart_token"`
	Provider  SuggestionProvider `json:"provider" gorm:"not null"`
	Model     *string            `json:"model"`
	Payload   string             `json:"payload" gorm:"not null"`
	CreatedAt time.Time          `json:"created_at"`
}

func (l *SuggestionLog) BeforeCreate(tx *gorm.DB) error {
	if l.ID == "" {
		l.ID = uuid.New().String()
	}
	return nil
}
