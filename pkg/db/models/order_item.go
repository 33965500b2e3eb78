package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/hubfood/ifood-erp-sync/pkg/enums"
)

// OrderItem is one line of an order snapshot. ItemKey is the marketplace
// line identifier used as the reservation ledger key; the quantity buckets
// track how much of the line moved through each transition.
type OrderItem struct {
	ID       uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderRef uuid.UUID `gorm:"column:order_ref;type:uuid;uniqueIndex:uq_order_items_line;not null"`
	ItemKey  string    `gorm:"column:item_key;uniqueIndex:uq_order_items_line;not null"`

	ExternalCode string          `gorm:"column:external_code;not null"`
	Name         string          `gorm:"column:name;not null"`
	Qty          int             `gorm:"column:qty;not null"`
	UnitPrice    decimal.Decimal `gorm:"column:unit_price;type:numeric(12,2);not null;default:0"`
	TotalPrice   decimal.Decimal `gorm:"column:total_price;type:numeric(12,2);not null;default:0"`

	ReservedQty  int `gorm:"column:reserved_qty;not null;default:0"`
	CancelledQty int `gorm:"column:cancelled_qty;not null;default:0"`
	ConcludedQty int `gorm:"column:concluded_qty;not null;default:0"`

	State         enums.OrderItemState `gorm:"column:state;not null;default:NEW"`
	LastEventCode *string              `gorm:"column:last_event_code"`
	LastEventAt   *time.Time           `gorm:"column:last_event_at"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
