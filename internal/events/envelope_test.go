package events

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hubfood/ifood-erp-sync/pkg/ifood"
)

func TestNormalizeWebhookCanonicalFields(t *testing.T) {
	raw := []byte(`{"id":"ev-1","code":"cfm","fullCode":"CONFIRMED","merchantId":"m1","orderId":"o1"}`)

	env, err := NormalizeWebhook(raw)
	require.NoError(t, err)
	require.Equal(t, "m1", env.MerchantID)
	require.Equal(t, "ev-1", env.EventID)
	require.Equal(t, "CFM", env.Code)
	require.Equal(t, "CONFIRMED", env.FullCode)
	require.Equal(t, "o1", env.OrderID)
	require.Equal(t, SourceWebhook, env.Source)
}

func TestNormalizeWebhookAlternateFields(t *testing.T) {
	raw := []byte(`{"eventId":"ev-2","type":"CAN","merchant":{"id":"m2"},"resourceId":"o2"}`)

	env, err := NormalizeWebhook(raw)
	require.NoError(t, err)
	require.Equal(t, "m2", env.MerchantID)
	require.Equal(t, "ev-2", env.EventID)
	require.Equal(t, "CAN", env.Code)
	require.Equal(t, "o2", env.OrderID)
}

func TestNormalizeWebhookRejectsMissingIdentity(t *testing.T) {
	_, err := NormalizeWebhook([]byte(`{"code":"CFM","orderId":"o1"}`))
	require.Error(t, err)

	_, err = NormalizeWebhook([]byte(`{"merchantId":"m1","code":"CFM"}`))
	require.Error(t, err)

	_, err = NormalizeWebhook([]byte(`not json`))
	require.Error(t, err)
}

func TestPayloadHashIsStable(t *testing.T) {
	a := Envelope{Raw: []byte(`{"id":"ev-1"}`)}
	b := Envelope{Raw: []byte(`{"id":"ev-1"}`)}
	c := Envelope{Raw: []byte(`{"id":"ev-2"}`)}

	require.Equal(t, a.PayloadHash(), b.PayloadHash())
	require.NotEqual(t, a.PayloadHash(), c.PayloadHash())
}

func TestFromPolled(t *testing.T) {
	env := FromPolled(ifood.Event{
		ID:         "ev-9",
		Code:       "con",
		FullCode:   "CONCLUDED",
		MerchantID: "m1",
		OrderID:    "o9",
		Raw:        []byte(`{}`),
	})

	require.Equal(t, "CON", env.Code)
	require.Equal(t, SourcePolling, env.Source)
	require.Equal(t, "o9", env.OrderID)
}
