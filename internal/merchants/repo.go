package merchants

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/hubfood/ifood-erp-sync/pkg/db/models"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// FindByMerchantID looks a merchant up by its marketplace id. Returns nil
// when no row matches.
func (r *Repository) FindByMerchantID(ctx context.Context, merchantID string) (*models.Merchant, error) {
	var merchant models.Merchant
	err := r.db.WithContext(ctx).
		Where("merchant_id = ?", merchantID).
		First(&merchant).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("finding merchant %s: %w", merchantID, err)
	}
	return &merchant, nil
}
