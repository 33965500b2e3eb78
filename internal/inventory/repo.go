package inventory

import (
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/hubfood/ifood-erp-sync/pkg/db/models"
	"github.com/hubfood/ifood-erp-sync/pkg/enums"
)

// Repository handles inventory persistence. Instances are scoped to one
// transaction; the service builds a fresh one per unit of work.
type Repository struct {
	tx *gorm.DB
}

// NewRepository binds a transaction to inventory operations.
func NewRepository(tx *gorm.DB) *Repository {
	return &Repository{tx: tx}
}

// FindProductForUpdate loads and row-locks the product, nil when unknown.
func (r *Repository) FindProductForUpdate(merchantID, externalCode string) (*models.Product, error) {
	var product models.Product
	err := r.tx.
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("merchant_id = ? AND external_code = ?", merchantID, externalCode).
		First(&product).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// SaveProduct persists the product row.
func (r *Repository) SaveProduct(product *models.Product) error {
	return r.tx.Save(product).Error
}

// FindReservation loads the ledger row for the given key, nil when absent.
func (r *Repository) FindReservation(merchantID string, channel enums.Channel, orderID, itemKey string) (*models.InventoryReservation, error) {
	var res models.InventoryReservation
	err := r.tx.
		Where("merchant_id = ? AND channel = ? AND order_id = ? AND item_key = ?",
			merchantID, channel, orderID, itemKey).
		First(&res).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// CreateReservation inserts a new ledger row.
func (r *Repository) CreateReservation(res *models.InventoryReservation) error {
	return r.tx.Create(res).Error
}

// SaveReservation persists an existing ledger row.
func (r *Repository) SaveReservation(res *models.InventoryReservation) error {
	return r.tx.Save(res).Error
}

// SumActiveReserved totals ACTIVE quantities for one catalog item.
func (r *Repository) SumActiveReserved(merchantID, externalCode string) (int, error) {
	var total int64
	err := r.tx.
		Model(&models.InventoryReservation{}).
		Where("merchant_id = ? AND external_code = ? AND state = ?",
			merchantID, externalCode, enums.ReservationActive).
		Select("COALESCE(SUM(qty), 0)").
		Scan(&total).Error
	if err != nil {
		return 0, err
	}
	return int(total), nil
}

// FindErpMapping resolves the back-office location for a merchant, nil when
// unmapped.
func (r *Repository) FindErpMapping(merchantID string) (*models.MerchantErpMapping, error) {
	var mapping models.MerchantErpMapping
	err := r.tx.Where("merchant_id = ?", merchantID).First(&mapping).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &mapping, nil
}

// FindErpStockForUpdate loads and row-locks the back-office stock row, nil
// when absent.
func (r *Repository) FindErpStockForUpdate(locationID, externalCode string) (*models.ErpStock, error) {
	var stock models.ErpStock
	err := r.tx.
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("erp_location_id = ? AND external_code = ?", locationID, externalCode).
		First(&stock).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &stock, nil
}

// SaveErpStock persists the back-office stock row.
func (r *Repository) SaveErpStock(stock *models.ErpStock) error {
	return r.tx.Save(stock).Error
}

// CreateErpStock inserts a back-office stock row.
func (r *Repository) CreateErpStock(stock *models.ErpStock) error {
	return r.tx.Create(stock).Error
}
