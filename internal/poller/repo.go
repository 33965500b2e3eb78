package poller

import (
	"context"

	"gorm.io/gorm"

	"github.com/hubfood/ifood-erp-sync/pkg/db/models"
)

// Repository resolves which merchants the poller pulls for.
type Repository struct {
	db *gorm.DB
}

// NewRepository binds a GORM DB to poller lookups.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// ListActiveMerchantIDs returns the marketplace ids of active merchants.
func (r *Repository) ListActiveMerchantIDs(ctx context.Context) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).
		Model(&models.Merchant{}).
		Where("active = ?", true).
		Order("merchant_id ASC").
		Pluck("merchant_id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}
