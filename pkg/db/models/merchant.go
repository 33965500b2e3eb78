package models

import (
	"time"

	"github.com/google/uuid"
)

// Merchant is a marketplace store we sync for. MerchantID is the external
// marketplace identifier, not our primary key.
type Merchant struct {
	ID            uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	MerchantID    string    `gorm:"column:merchant_id;uniqueIndex:uq_merchants_merchant_id;not null"`
	Name          string    `gorm:"column:name;not null"`
	Active        bool      `gorm:"column:active;not null;default:true"`
	WebhookSecret *string   `gorm:"column:webhook_secret"`
	CreatedAt     time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
