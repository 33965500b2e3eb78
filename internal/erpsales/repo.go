package erpsales

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/hubfood/ifood-erp-sync/pkg/db/models"
)

// Repository handles sale-link persistence.
type Repository struct {
	db *gorm.DB
}

// NewRepository binds a GORM DB to sale-link operations.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// FindLink loads the sale link for an order, nil when absent.
func (r *Repository) FindLink(ctx context.Context, merchantID, orderID string) (*models.ErpSaleLink, error) {
	var link models.ErpSaleLink
	err := r.db.WithContext(ctx).
		Where("merchant_id = ? AND order_id = ?", merchantID, orderID).
		First(&link).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &link, nil
}

// CreateLink inserts the sale link.
func (r *Repository) CreateLink(ctx context.Context, link *models.ErpSaleLink) error {
	return r.db.WithContext(ctx).Create(link).Error
}

// SaveLink persists an existing sale link.
func (r *Repository) SaveLink(ctx context.Context, link *models.ErpSaleLink) error {
	return r.db.WithContext(ctx).Save(link).Error
}

// FindMapping resolves the back-office location for a merchant, nil when
// unmapped.
func (r *Repository) FindMapping(ctx context.Context, merchantID string) (*models.MerchantErpMapping, error) {
	var mapping models.MerchantErpMapping
	err := r.db.WithContext(ctx).
		Where("merchant_id = ?", merchantID).
		First(&mapping).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &mapping, nil
}
