package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type LeadSource string

const (
	LeadSourceLanding  LeadSource = "LANDING"
	LeadSourceWidget   LeadSource = "WIDGET"
	LeadSourceReferral LeadSource = "REFERRAL"
)

type Lead struct {
	ID           string     `json:"id" gorm:"type:uuid;primary_key"`
	Email        string     `json:"email" gorm:"unique;not null"`
	BoutiqueName string     `json:"boutique_name" gorm:"not null"`
	ShopURL      *string    `json:"shop_url"`
	Consent      bool       `json:"consent" gorm:"default:false"`
	Source       LeadSource `json:"source" gorm:"default:LANDING"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

func (l *Lead) BeforeCreate(tx *gorm.DB) error {
	if l.ID == "" {
		l.ID = uuid.New().String()
	}
	return nil
}
