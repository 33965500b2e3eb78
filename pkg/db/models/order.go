package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/hubfood/ifood-erp-sync/pkg/enums"
)

// Order is a snapshot of a marketplace order, refreshed as events arrive.
type Order struct {
	ID         uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	MerchantID string            `gorm:"column:merchant_id;uniqueIndex:uq_orders_merchant_order;not null"`
	OrderID    string            `gorm:"column:order_id;uniqueIndex:uq_orders_merchant_order;not null"`
	ShortCode  *string           `gorm:"column:short_code"`
	Status     enums.OrderStatus `gorm:"column:status;not null"`

	CustomerName     *string `gorm:"column:customer_name"`
	CustomerDocument *string `gorm:"column:customer_document"`
	CustomerPhone    *string `gorm:"column:customer_phone"`

	DeliveryAddress *string `gorm:"column:delivery_address"`
	DeliveryCity    *string `gorm:"column:delivery_city"`

	SubtotalAmount decimal.Decimal `gorm:"column:subtotal_amount;type:numeric(12,2);not null;default:0"`
	DeliveryFee    decimal.Decimal `gorm:"column:delivery_fee;type:numeric(12,2);not null;default:0"`
	TotalAmount    decimal.Decimal `gorm:"column:total_amount;type:numeric(12,2);not null;default:0"`

	LastEventCode *string    `gorm:"column:last_event_code"`
	LastEventAt   *time.Time `gorm:"column:last_event_at"`

	PlacedAt  *time.Time  `gorm:"column:placed_at"`
	Items     []OrderItem `gorm:"foreignKey:OrderRef;constraint:OnDelete:CASCADE"`
	CreatedAt time.Time   `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time   `gorm:"column:updated_at;autoUpdateTime"`
}
