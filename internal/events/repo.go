package events

import (
	"context"

	"gorm.io/gorm"

	"github.com/hubfood/ifood-erp-sync/pkg/db/models"
)

// Repository handles processed-event persistence.
type Repository struct {
	db *gorm.DB
}

// NewRepository binds a GORM DB to event operations.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Insert records the dedup row. The unique index on (merchant_id, event_id)
// is the dedup mechanism; callers inspect the error for a violation.
func (r *Repository) Insert(ctx context.Context, record *models.ProcessedEvent) error {
	return r.db.WithContext(ctx).Create(record).Error
}
