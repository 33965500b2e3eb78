package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/hubfood/ifood-erp-sync/pkg/enums"
)

// ErpSaleLink binds a marketplace order to the back-office sale created for
// it. IdempotencyKey is what the ERP dedupes on; one order maps to at most
// one sale.
type ErpSaleLink struct {
	ID             uuid.UUID            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	MerchantID     string               `gorm:"column:merchant_id;uniqueIndex:uq_erp_sale_links_order;not null"`
	OrderID        string               `gorm:"column:order_id;uniqueIndex:uq_erp_sale_links_order;not null"`
	IdempotencyKey string               `gorm:"column:idempotency_key;uniqueIndex:uq_erp_sale_links_idem;not null"`
	ErpSaleID      *string              `gorm:"column:erp_sale_id"`
	ErpSaleCode    *string              `gorm:"column:erp_sale_code"`
	ErpCustomerID  *string              `gorm:"column:erp_customer_id"`
	ErpLocationID  *string              `gorm:"column:erp_location_id"`
	Status         enums.SaleLinkStatus `gorm:"column:status;not null;default:CREATED"`
	CreatedAt      time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}
