package poller

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hubfood/ifood-erp-sync/internal/events"
	"github.com/hubfood/ifood-erp-sync/pkg/config"
	"github.com/hubfood/ifood-erp-sync/pkg/ifood"
	"github.com/hubfood/ifood-erp-sync/pkg/logger"
)

type fakeMerchants struct {
	ids []string
	err error
}

func (f *fakeMerchants) ListActiveMerchantIDs(_ context.Context) ([]string, error) {
	return f.ids, f.err
}

type fakePollClient struct {
	events  []ifood.Event
	pollErr error
	polled  []ifood.PollOptions
	acked   map[string][]string
	ackErr  error
}

func newFakePollClient(evs ...ifood.Event) *fakePollClient {
	return &fakePollClient{events: evs, acked: map[string][]string{}}
}

func (f *fakePollClient) PollEvents(_ context.Context, opts ifood.PollOptions) ([]ifood.Event, error) {
	f.polled = append(f.polled, opts)
	if f.pollErr != nil {
		return nil, f.pollErr
	}
	return f.events, nil
}

func (f *fakePollClient) AcknowledgeEvents(_ context.Context, merchantID string, ids []string) error {
	if f.ackErr != nil {
		return f.ackErr
	}
	f.acked[merchantID] = append(f.acked[merchantID], ids...)
	return nil
}

type fakeIntake struct {
	processed []events.Envelope
	failIDs   map[string]bool
}

func (f *fakeIntake) Process(_ context.Context, env events.Envelope) error {
	if f.failIDs[env.EventID] {
		return errors.New("intake failed")
	}
	f.processed = append(f.processed, env)
	return nil
}

type fakeLock struct {
	denied   bool
	acquires int
	releases int
}

func (f *fakeLock) Acquire(_ context.Context) (bool, error) {
	f.acquires++
	return !f.denied, nil
}

func (f *fakeLock) Release(_ context.Context) error {
	f.releases++
	return nil
}

func newPoller(t *testing.T, client *fakePollClient, intake *fakeIntake, merchants *fakeMerchants, lock *fakeLock) *Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		Logger:    logger.New(logger.Options{ServiceName: "test"}),
		Client:    client,
		Intake:    intake,
		Merchants: merchants,
		Lock:      lock,
		Config: config.PollerConfig{
			ExcludeHeartbeat: true,
			Merchants:        []string{"env-m1"},
		},
	})
	require.NoError(t, err)
	return svc
}

func polledEvent(id, merchantID, code string) ifood.Event {
	return ifood.Event{ID: id, MerchantID: merchantID, Code: code, OrderID: "o-" + id, Raw: []byte(`{}`)}
}

func TestCycleProcessesAndAcks(t *testing.T) {
	client := newFakePollClient(
		polledEvent("ev-1", "m1", "PLC"),
		polledEvent("ev-2", "m2", "CFM"),
	)
	intake := &fakeIntake{}
	lock := &fakeLock{}
	svc := newPoller(t, client, intake, &fakeMerchants{ids: []string{"m1", "m2"}}, lock)

	require.NoError(t, svc.runCycle(context.Background()))

	require.Len(t, intake.processed, 2)
	require.Equal(t, []string{"ev-1"}, client.acked["m1"])
	require.Equal(t, []string{"ev-2"}, client.acked["m2"])
	require.Equal(t, 1, lock.releases)
	require.Equal(t, []string{"m1", "m2"}, client.polled[0].Merchants)
}

func TestFailedIntakeLeavesEventUnacked(t *testing.T) {
	client := newFakePollClient(
		polledEvent("ev-1", "m1", "CFM"),
		polledEvent("ev-2", "m1", "CON"),
	)
	intake := &fakeIntake{failIDs: map[string]bool{"ev-1": true}}
	svc := newPoller(t, client, intake, &fakeMerchants{ids: []string{"m1"}}, &fakeLock{})

	require.Error(t, svc.runCycle(context.Background()))

	// the failed event redelivers next cycle, the sibling is acked
	require.Equal(t, []string{"ev-2"}, client.acked["m1"])
}

func TestAckFailureDoesNotFailCycle(t *testing.T) {
	client := newFakePollClient(polledEvent("ev-1", "m1", "PLC"))
	client.ackErr = errors.New("ack rejected")
	intake := &fakeIntake{}
	svc := newPoller(t, client, intake, &fakeMerchants{ids: []string{"m1"}}, &fakeLock{})

	require.NoError(t, svc.runCycle(context.Background()))
	require.Len(t, intake.processed, 1)
}

func TestHeartbeatsAckedWithoutProcessing(t *testing.T) {
	hb := polledEvent("ev-hb", "m1", "KPA")
	hb.FullCode = "KEEPALIVE"
	client := newFakePollClient(hb)
	intake := &fakeIntake{}
	svc := newPoller(t, client, intake, &fakeMerchants{ids: []string{"m1"}}, &fakeLock{})

	require.NoError(t, svc.runCycle(context.Background()))
	require.Empty(t, intake.processed)
	require.Equal(t, []string{"ev-hb"}, client.acked["m1"])
}

func TestLockDeniedSkipsCycle(t *testing.T) {
	client := newFakePollClient(polledEvent("ev-1", "m1", "PLC"))
	svc := newPoller(t, client, &fakeIntake{}, &fakeMerchants{ids: []string{"m1"}}, &fakeLock{denied: true})

	require.NoError(t, svc.runCycle(context.Background()))
	require.Empty(t, client.polled)
}

func TestMerchantFallbackToConfig(t *testing.T) {
	client := newFakePollClient()
	svc := newPoller(t, client, &fakeIntake{}, &fakeMerchants{}, &fakeLock{})

	require.NoError(t, svc.runCycle(context.Background()))
	require.Equal(t, []string{"env-m1"}, client.polled[0].Merchants)
}
