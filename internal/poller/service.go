package poller

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/multierr"

	"github.com/hubfood/ifood-erp-sync/internal/events"
	"github.com/hubfood/ifood-erp-sync/pkg/config"
	"github.com/hubfood/ifood-erp-sync/pkg/ifood"
	"github.com/hubfood/ifood-erp-sync/pkg/logger"
	"github.com/hubfood/ifood-erp-sync/pkg/metrics"
)

const jobName = "event_polling"

const heartbeatFullCode = "KEEPALIVE"

type merchantSource interface {
	ListActiveMerchantIDs(ctx context.Context) ([]string, error)
}

type pollClient interface {
	PollEvents(ctx context.Context, opts ifood.PollOptions) ([]ifood.Event, error)
	AcknowledgeEvents(ctx context.Context, merchantID string, eventIDs []string) error
}

// ServiceParams configure the polling service.
type ServiceParams struct {
	Logger    *logger.Logger
	Client    pollClient
	Intake    events.Service
	Merchants merchantSource
	Lock      Lock
	Metrics   *metrics.PollerMetrics
	Config    config.PollerConfig
}

// Service pulls the marketplace event queue on a fixed cadence. The webhook
// is the primary door; polling backfills anything it missed.
type Service struct {
	logg      *logger.Logger
	client    pollClient
	intake    events.Service
	merchants merchantSource
	lock      Lock
	metrics   *metrics.PollerMetrics
	cfg       config.PollerConfig
}

// NewService builds the polling service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Client == nil {
		return nil, fmt.Errorf("poll client required")
	}
	if params.Intake == nil {
		return nil, fmt.Errorf("event intake required")
	}
	if params.Lock == nil {
		return nil, fmt.Errorf("lock required")
	}
	cfg := params.Config
	if cfg.Interval <= 0 {
		cfg.Interval = 30 * time.Second
	}
	return &Service{
		logg:      params.Logger,
		client:    params.Client,
		intake:    params.Intake,
		merchants: params.Merchants,
		lock:      params.Lock,
		metrics:   params.Metrics,
		cfg:       cfg,
	}, nil
}

// Run starts the polling loop until the context is canceled.
func (s *Service) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := s.runCycle(ctx); err != nil {
		s.logg.Error(ctx, "poll cycle failed", err)
	}
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logg.Info(ctx, "poller context canceled")
			return ctx.Err()
		case <-ticker.C:
			if err := s.runCycle(ctx); err != nil {
				s.logg.Error(ctx, "poll cycle failed", err)
			}
		}
	}
}

func (s *Service) runCycle(ctx context.Context) error {
	locked, err := s.lock.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("lock acquire: %w", err)
	}
	if !locked {
		s.logg.Info(ctx, "another poller instance is running; skipping this cycle")
		return nil
	}
	defer func() {
		if relErr := s.lock.Release(ctx); relErr != nil {
			s.logg.Error(ctx, "failed to release poll lock", relErr)
		}
	}()

	start := time.Now()
	err = s.pollOnce(ctx)
	duration := time.Since(start)
	s.metrics.ObserveCycle(jobName, duration)

	cycleCtx := s.logg.WithField(ctx, "duration_ms", duration.Milliseconds())
	if err != nil {
		s.metrics.IncCycleFailure(jobName)
		s.logg.Error(cycleCtx, "poll cycle finished with errors", err)
		return err
	}
	s.metrics.IncCycleSuccess(jobName)
	s.logg.Info(cycleCtx, "poll cycle complete")
	return nil
}

func (s *Service) pollOnce(ctx context.Context) error {
	merchants, err := s.resolveMerchants(ctx)
	if err != nil {
		return err
	}
	if len(merchants) == 0 {
		s.logg.Warn(ctx, "no merchants to poll for")
		return nil
	}

	polled, err := s.client.PollEvents(ctx, ifood.PollOptions{
		Types:     s.cfg.Types,
		Groups:    s.cfg.Groups,
		Merchants: merchants,
	})
	if err != nil {
		return fmt.Errorf("polling events: %w", err)
	}
	if len(polled) == 0 {
		return nil
	}

	// events whose intake failed stay unacked so the queue redelivers them
	ackable := map[string][]string{}
	var errs error
	for _, ev := range polled {
		if s.cfg.ExcludeHeartbeat && strings.EqualFold(ev.FullCode, heartbeatFullCode) {
			ackable[ev.MerchantID] = append(ackable[ev.MerchantID], ev.ID)
			continue
		}

		s.metrics.AddEventsFetched(ev.MerchantID, 1)
		if err := s.intake.Process(ctx, events.FromPolled(ev)); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("event %s: %w", ev.ID, err))
			continue
		}
		ackable[ev.MerchantID] = append(ackable[ev.MerchantID], ev.ID)
	}

	for merchantID, ids := range ackable {
		if err := s.client.AcknowledgeEvents(ctx, merchantID, ids); err != nil {
			// dedup absorbs the redelivery, an ack failure must not fail
			// the cycle
			s.logg.Error(s.logg.WithMerchantID(ctx, merchantID), "event acknowledgment failed", err)
			continue
		}
		s.metrics.AddEventsAcked(merchantID, len(ids))
	}
	return errs
}

// resolveMerchants prefers the registry, falling back to the static list
// for deployments that run without one.
func (s *Service) resolveMerchants(ctx context.Context) ([]string, error) {
	if s.merchants != nil {
		ids, err := s.merchants.ListActiveMerchantIDs(ctx)
		if err != nil {
			return nil, fmt.Errorf("listing merchants: %w", err)
		}
		if len(ids) > 0 {
			return ids, nil
		}
	}
	return s.cfg.Merchants, nil
}
