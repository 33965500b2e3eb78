package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/hubfood/ifood-erp-sync/pkg/enums"
)

// Product is the local catalog row for one merchant item. ExternalCode is
// the merchant-scoped catalog key; ProductID is the marketplace catalog id
// and may be absent until the first status sync.
type Product struct {
	ID           uuid.UUID                `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	MerchantID   string                   `gorm:"column:merchant_id;uniqueIndex:uq_products_merchant_external;not null"`
	ExternalCode string                   `gorm:"column:external_code;uniqueIndex:uq_products_merchant_external;not null"`
	ProductID    *string                  `gorm:"column:product_id"`
	Name         string                   `gorm:"column:name;not null"`
	OnHand       int                      `gorm:"column:on_hand;not null;default:0"`
	Availability enums.AvailabilityStatus `gorm:"column:availability;not null;default:AVAILABLE"`
	CreatedAt    time.Time                `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time                `gorm:"column:updated_at;autoUpdateTime"`
}
