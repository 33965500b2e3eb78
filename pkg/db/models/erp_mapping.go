package models

import (
	"time"

	"github.com/google/uuid"
)

// MerchantErpMapping routes a merchant to the back-office location that
// fulfils its stock.
type MerchantErpMapping struct {
	ID            uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	MerchantID    string    `gorm:"column:merchant_id;uniqueIndex:uq_merchant_erp_mappings_merchant;not null"`
	ErpLocationID string    `gorm:"column:erp_location_id;not null"`
	CreatedAt     time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// ErpLocation is a back-office stock location known to the sync.
type ErpLocation struct {
	ID            uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ErpLocationID string    `gorm:"column:erp_location_id;uniqueIndex:uq_erp_locations_external;not null"`
	Name          string    `gorm:"column:name;not null"`
	CreatedAt     time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// ErpStock is the per-location on-hand ledger used when the ERP owns stock.
type ErpStock struct {
	ID            uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ErpLocationID string    `gorm:"column:erp_location_id;uniqueIndex:uq_erp_stock_item;not null"`
	ExternalCode  string    `gorm:"column:external_code;uniqueIndex:uq_erp_stock_item;not null"`
	OnHand        int       `gorm:"column:on_hand;not null;default:0"`
	CreatedAt     time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
