package stripe

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	stripeapi "github.com/stripe/stripe-go/v79"

	"github.com/studyloop/billing-service/internal/domain/gateway"
	"github.com/studyloop/billing-service/internal/domain/model"
)

func newEvent(t *testing.T, eventType stripeapi.EventType, payload string) *stripeapi.Event {
	t.Helper()
	return &stripeapi.Event{
		ID:      "evt_test_001",
		Type:    eventType,
		Created: 1700000000,
		Data: &stripeapi.EventData{
			Raw: json.RawMessage(payload),
		},
	}
}

func TestMapStatus(t *testing.T) {
	cases := []struct {
		in   stripeapi.SubscriptionStatus
		want model.SubscriptionStatus
	}{
		{stripeapi.SubscriptionStatusTrialing, model.SubscriptionStatusTrialing},
		{stripeapi.SubscriptionStatusActive, model.SubscriptionStatusActive},
		{stripeapi.SubscriptionStatusPastDue, model.SubscriptionStatusPastDue},
		{stripeapi.SubscriptionStatusIncomplete, model.SubscriptionStatusPastDue},
		{stripeapi.SubscriptionStatusUnpaid, model.SubscriptionStatusPastDue},
		{stripeapi.SubscriptionStatusCanceled, model.SubscriptionStatusCancelled},
		{stripeapi.SubscriptionStatusIncompleteExpired, model.SubscriptionStatusCancelled},
	}

	for _, tc := range cases {
		t.Run(string(tc.in), func(t *testing.T) {
			assert.Equal(t, tc.want, mapStatus(tc.in))
		})
	}
}

func TestMinorToDecimal(t *testing.T) {
	assert.Equal(t, "19.99", minorToDecimal(1999, "usd").String())
	assert.Equal(t, "0.5", minorToDecimal(50, "eur").String())
	// Zero-decimal currencies carry no minor unit
	assert.Equal(t, "1999", minorToDecimal(1999, "jpy").String())
	assert.Equal(t, "5000", minorToDecimal(5000, "krw").String())
}

func TestMapEvent_CheckoutCompleted(t *testing.T) {
	payload := `{
		"id": "cs_test_123",
		"customer": {"id": "cus_123"},
		"subscription": {"id": "sub_123"},
		"metadata": {"account_id": "550e8400-e29b-41d4-a716-446655440000"}
	}`

	event, err := mapEvent(newEvent(t, stripeapi.EventTypeCheckoutSessionCompleted, payload))
	require.NoError(t, err)

	assert.Equal(t, gateway.EventKindCheckoutCompleted, event.Kind)
	assert.Equal(t, "evt_test_001", event.ID)
	assert.Equal(t, time.Unix(1700000000, 0), event.CreatedAt)

	require.NotNil(t, event.CheckoutCompleted)
	assert.Equal(t, "cs_test_123", event.CheckoutCompleted.SessionID)
	assert.Equal(t, "cus_123", event.CheckoutCompleted.CustomerID)
	assert.Equal(t, "sub_123", event.CheckoutCompleted.SubscriptionID)
	assert.Equal(t, "550e8400-e29b-41d4-a716-446655440000", event.CheckoutCompleted.AccountID)
}

func TestMapEvent_CheckoutCompletedWithoutCorrelation(t *testing.T) {
	payload := `{"id": "cs_test_123"}`

	event, err := mapEvent(newEvent(t, stripeapi.EventTypeCheckoutSessionCompleted, payload))
	require.NoError(t, err)

	require.NotNil(t, event.CheckoutCompleted)
	assert.Empty(t, event.CheckoutCompleted.AccountID)
	assert.Empty(t, event.CheckoutCompleted.SubscriptionID)
}

func TestMapEvent_SubscriptionUpdated(t *testing.T) {
	payload := `{
		"id": "sub_123",
		"status": "past_due",
		"customer": {"id": "cus_123"},
		"cancel_at_period_end": true,
		"current_period_start": 1700000000,
		"current_period_end": 1702592000,
		"trial_end": 1701000000,
		"metadata": {"account_id": "550e8400-e29b-41d4-a716-446655440000"},
		"items": {"data": [{"id": "si_123", "price": {"id": "price_123"}}]}
	}`

	event, err := mapEvent(newEvent(t, stripeapi.EventTypeCustomerSubscriptionUpdated, payload))
	require.NoError(t, err)

	assert.Equal(t, gateway.EventKindSubscriptionUpdated, event.Kind)
	require.NotNil(t, event.Subscription)

	sub := event.Subscription
	assert.Equal(t, "sub_123", sub.SubscriptionID)
	assert.Equal(t, "cus_123", sub.CustomerID)
	assert.Equal(t, "550e8400-e29b-41d4-a716-446655440000", sub.AccountID)
	assert.Equal(t, model.SubscriptionStatusPastDue, sub.Status)
	assert.Equal(t, "price_123", sub.PriceID)
	assert.True(t, sub.CancelAtPeriodEnd)
	assert.Equal(t, time.Unix(1700000000, 0), sub.CurrentPeriodStart)
	assert.Equal(t, time.Unix(1702592000, 0), sub.CurrentPeriodEnd)
	require.NotNil(t, sub.TrialEnd)
	assert.Equal(t, time.Unix(1701000000, 0), *sub.TrialEnd)
}

func TestMapEvent_SubscriptionDeleted(t *testing.T) {
	payload := `{"id": "sub_123", "status": "canceled", "customer": {"id": "cus_123"}}`

	event, err := mapEvent(newEvent(t, stripeapi.EventTypeCustomerSubscriptionDeleted, payload))
	require.NoError(t, err)

	assert.Equal(t, gateway.EventKindSubscriptionDeleted, event.Kind)
	require.NotNil(t, event.Subscription)
	assert.Equal(t, model.SubscriptionStatusCancelled, event.Subscription.Status)
	assert.Nil(t, event.Subscription.TrialEnd)
}

func TestMapEvent_InvoicePaymentFailed(t *testing.T) {
	payload := `{
		"id": "in_123",
		"customer": {"id": "cus_123"},
		"subscription": {"id": "sub_123"},
		"currency": "usd",
		"amount_due": 1999,
		"last_finalization_error": {"message": "Your card was declined."}
	}`

	event, err := mapEvent(newEvent(t, stripeapi.EventTypeInvoicePaymentFailed, payload))
	require.NoError(t, err)

	assert.Equal(t, gateway.EventKindInvoicePaymentFailed, event.Kind)
	require.NotNil(t, event.InvoicePayment)

	inv := event.InvoicePayment
	assert.Equal(t, "in_123", inv.InvoiceID)
	assert.Equal(t, "cus_123", inv.CustomerID)
	assert.Equal(t, "sub_123", inv.SubscriptionID)
	assert.Equal(t, "19.99", inv.Amount.String())
	assert.Equal(t, "Your card was declined.", inv.FailureMessage)
}

func TestMapEvent_InvoicePaymentFailedWithoutReason(t *testing.T) {
	payload := `{"id": "in_123", "currency": "usd", "amount_due": 500}`

	event, err := mapEvent(newEvent(t, stripeapi.EventTypeInvoicePaymentFailed, payload))
	require.NoError(t, err)

	assert.Equal(t, "payment attempt failed", event.InvoicePayment.FailureMessage)
}

func TestMapEvent_InvoicePaymentSucceeded(t *testing.T) {
	payload := `{
		"id": "in_123",
		"customer": {"id": "cus_123"},
		"currency": "usd",
		"amount_due": 1999,
		"amount_paid": 1999
	}`

	event, err := mapEvent(newEvent(t, stripeapi.EventTypeInvoicePaymentSucceeded, payload))
	require.NoError(t, err)

	assert.Equal(t, gateway.EventKindInvoicePaymentSucceeded, event.Kind)
	assert.Equal(t, "19.99", event.InvoicePayment.Amount.String())
	assert.Empty(t, event.InvoicePayment.FailureMessage)
}

func TestMapEvent_UnknownType(t *testing.T) {
	event, err := mapEvent(newEvent(t, "customer.created", `{"id": "cus_123"}`))
	require.NoError(t, err)

	assert.Equal(t, gateway.EventKindUnknown, event.Kind)
	assert.Nil(t, event.CheckoutCompleted)
	assert.Nil(t, event.Subscription)
	assert.Nil(t, event.InvoicePayment)
}

func TestMapSubscription_MissingItems(t *testing.T) {
	sub := &stripeapi.Subscription{
		ID:     "sub_123",
		Status: stripeapi.SubscriptionStatusActive,
	}

	mapped := mapSubscription(sub)
	assert.Equal(t, "sub_123", mapped.ID)
	assert.Empty(t, mapped.PriceID)
	assert.Empty(t, mapped.ItemID)
	assert.Nil(t, mapped.TrialEnd)
}
