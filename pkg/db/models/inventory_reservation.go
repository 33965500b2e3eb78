package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/hubfood/ifood-erp-sync/pkg/enums"
)

// InventoryReservation is one row in the reservation ledger. The four-column
// unique index makes reserve calls idempotent per order line.
type InventoryReservation struct {
	ID         uuid.UUID              `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	MerchantID string                 `gorm:"column:merchant_id;uniqueIndex:uq_reservations_key;not null"`
	Channel    enums.Channel          `gorm:"column:channel;uniqueIndex:uq_reservations_key;not null"`
	OrderID    string                 `gorm:"column:order_id;uniqueIndex:uq_reservations_key;not null"`
	ItemKey    string                 `gorm:"column:item_key;uniqueIndex:uq_reservations_key;not null"`
	// ExternalCode ties the row to a product so active quantities can be
	// summed per catalog item.
	ExternalCode string                 `gorm:"column:external_code;not null"`
	Qty          int                    `gorm:"column:qty;not null"`
	State        enums.ReservationState `gorm:"column:state;not null;default:ACTIVE"`
	CreatedAt    time.Time              `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time              `gorm:"column:updated_at;autoUpdateTime"`
}
