package inventory

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/hubfood/ifood-erp-sync/pkg/db/models"
	"github.com/hubfood/ifood-erp-sync/pkg/enums"
	"github.com/hubfood/ifood-erp-sync/pkg/ifood"
	"github.com/hubfood/ifood-erp-sync/pkg/logger"
)

type fakeCatalog struct {
	submitted []ifood.ProductStatusChange
	batchID   string
	result    *ifood.BatchResult
	patchErr  error
	waitErr   error
}

func (f *fakeCatalog) PatchProductStatus(_ context.Context, _ string, changes []ifood.ProductStatusChange) (string, error) {
	if f.patchErr != nil {
		return "", f.patchErr
	}
	f.submitted = append(f.submitted, changes...)
	return f.batchID, nil
}

func (f *fakeCatalog) WaitBatch(_ context.Context, _ string, _ string) (*ifood.BatchResult, error) {
	if f.waitErr != nil {
		return nil, f.waitErr
	}
	return f.result, nil
}

func newReconciler(t *testing.T, store *fakeStore, catalog *fakeCatalog) *StatusReconciler {
	t.Helper()
	rec, err := NewStatusReconciler(
		&fakeRunner{store: store},
		func(_ *gorm.DB) inventoryRepository { return &fakeRepo{store: store} },
		catalog,
		logger.New(logger.Options{ServiceName: "test"}),
	)
	require.NoError(t, err)
	return rec
}

func TestStatusApplyFlipsOnlyConfirmedItems(t *testing.T) {
	store := newFakeStore()
	store.products[productKey("m1", "SKU-1")] = productFixture("m1", "SKU-1", enums.AvailabilityAvailable)
	store.products[productKey("m1", "SKU-2")] = productFixture("m1", "SKU-2", enums.AvailabilityAvailable)

	catalog := &fakeCatalog{
		batchID: "b-1",
		result: &ifood.BatchResult{
			BatchID: "b-1",
			Status:  ifood.BatchStatusCompleted,
			Items: []ifood.BatchItemResult{
				{ExternalCode: "SKU-1", Status: ifood.BatchItemSuccess},
				{ExternalCode: "SKU-2", Status: "FAILED", Reason: "item not in catalog"},
			},
		},
	}
	rec := newReconciler(t, store, catalog)

	err := rec.Apply(context.Background(), "m1", []StatusChange{
		{ExternalCode: "SKU-1", Status: enums.AvailabilityUnavailable},
		{ExternalCode: "SKU-2", Status: enums.AvailabilityUnavailable},
	})
	require.NoError(t, err)

	require.Equal(t, enums.AvailabilityUnavailable, store.products[productKey("m1", "SKU-1")].Availability)
	// the rejected item keeps its local flag
	require.Equal(t, enums.AvailabilityAvailable, store.products[productKey("m1", "SKU-2")].Availability)
}

func TestStatusApplyRejectsInvalidStatus(t *testing.T) {
	rec := newReconciler(t, newFakeStore(), &fakeCatalog{})

	err := rec.Apply(context.Background(), "m1", []StatusChange{
		{ExternalCode: "SKU-1", Status: enums.AvailabilityStatus("SOLD_OUT")},
	})
	require.Error(t, err)
}

func TestStatusApplyPropagatesBatchFailure(t *testing.T) {
	store := newFakeStore()
	store.products[productKey("m1", "SKU-1")] = productFixture("m1", "SKU-1", enums.AvailabilityAvailable)

	catalog := &fakeCatalog{batchID: "b-1", waitErr: errors.New("batch timed out")}
	rec := newReconciler(t, store, catalog)

	err := rec.Apply(context.Background(), "m1", []StatusChange{
		{ExternalCode: "SKU-1", Status: enums.AvailabilityUnavailable},
	})
	require.Error(t, err)
	require.Equal(t, enums.AvailabilityAvailable, store.products[productKey("m1", "SKU-1")].Availability)
}

func productFixture(merchantID, code string, status enums.AvailabilityStatus) *models.Product {
	return &models.Product{
		MerchantID:   merchantID,
		ExternalCode: code,
		Name:         code,
		OnHand:       5,
		Availability: status,
	}
}
