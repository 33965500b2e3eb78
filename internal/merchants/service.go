package merchants

import (
	"context"
	"fmt"

	"github.com/hubfood/ifood-erp-sync/pkg/db/models"
)

type merchantRepository interface {
	FindByMerchantID(ctx context.Context, merchantID string) (*models.Merchant, error)
}

// SecretResolver maps a merchant to the secret its webhook signatures are
// keyed with. Merchants without their own secret share the platform-wide one.
type SecretResolver struct {
	repo     merchantRepository
	fallback string
}

func NewSecretResolver(repo merchantRepository, fallback string) (*SecretResolver, error) {
	if repo == nil {
		return nil, fmt.Errorf("merchant repository required")
	}
	return &SecretResolver{repo: repo, fallback: fallback}, nil
}

func (s *SecretResolver) WebhookSecret(ctx context.Context, merchantID string) (string, error) {
	merchant, err := s.repo.FindByMerchantID(ctx, merchantID)
	if err != nil {
		return "", err
	}
	if merchant != nil && merchant.WebhookSecret != nil && *merchant.WebhookSecret != "" {
		return *merchant.WebhookSecret, nil
	}
	return s.fallback, nil
}
