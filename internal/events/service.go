package events

import (
	"context"
	"fmt"
	"time"

	"github.com/hubfood/ifood-erp-sync/pkg/db"
	"github.com/hubfood/ifood-erp-sync/pkg/db/models"
	"github.com/hubfood/ifood-erp-sync/pkg/enums"
	"github.com/hubfood/ifood-erp-sync/pkg/logger"
)

type processedEventRepository interface {
	Insert(ctx context.Context, record *models.ProcessedEvent) error
}

// Processor handles an event that passed the dedup gate.
type Processor interface {
	HandleOrderEvent(ctx context.Context, env Envelope) error
}

// Service exposes the event intake pipeline.
type Service interface {
	Process(ctx context.Context, env Envelope) error
}

type service struct {
	repo      processedEventRepository
	processor Processor
	logger    *logger.Logger
}

// NewService builds the intake service.
func NewService(repo processedEventRepository, processor Processor, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("processed event repository required")
	}
	if processor == nil {
		return nil, fmt.Errorf("event processor required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: repo, processor: processor, logger: logg}, nil
}

// Process records the event exactly once and forwards it to the processor.
// Replays and unknown codes are absorbed here so upstream delivery can stay
// at-least-once.
func (s *service) Process(ctx context.Context, env Envelope) error {
	ctx = s.logger.WithFields(ctx, map[string]any{
		"merchant_id": env.MerchantID,
		"event_id":    env.EventID,
		"code":        env.Code,
		"source":      env.Source,
	})

	receivedAt := env.CreatedAt
	if receivedAt.IsZero() {
		receivedAt = time.Now().UTC()
	}

	record := &models.ProcessedEvent{
		MerchantID:  env.MerchantID,
		EventID:     env.EventID,
		Code:        env.Code,
		PayloadHash: env.PayloadHash(),
		Source:      env.Source,
		ReceivedAt:  receivedAt,
	}
	if env.OrderID != "" {
		orderID := env.OrderID
		record.OrderID = &orderID
	}

	if err := s.repo.Insert(ctx, record); err != nil {
		if db.IsUniqueViolation(err, "uq_processed_events_event") {
			s.logger.Info(ctx, "duplicate event discarded")
			return nil
		}
		return fmt.Errorf("recording event: %w", err)
	}

	if !enums.EventCode(env.Code).Known() {
		s.logger.Info(ctx, "unhandled event code recorded")
		return nil
	}

	if env.OrderID == "" {
		s.logger.Warn(ctx, "order event without order id")
		return nil
	}

	return s.processor.HandleOrderEvent(ctx, env)
}
