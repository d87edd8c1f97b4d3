package stripe

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	stripeapi "github.com/stripe/stripe-go/v79"

	"github.com/studyloop/billing-service/internal/domain/gateway"
)

// metadataAccountID is the correlation key written into customer, session and
// subscription metadata at creation time.
const metadataAccountID = "account_id"

// zeroDecimalCurrencies have no minor unit on the processor side.
var zeroDecimalCurrencies = map[string]bool{
	"jpy": true,
	"krw": true,
	"vnd": true,
}

// minorToDecimal converts a processor-native minor-unit amount to decimal
func minorToDecimal(amount int64, currency string) decimal.Decimal {
	if zeroDecimalCurrencies[currency] {
		return decimal.NewFromInt(amount)
	}
	return decimal.New(amount, -2)
}

// mapEvent parses a verified Stripe event into its typed variant. Unrecognized
// event types map to EventKindUnknown so the processor can evolve without
// breaking this service.
func mapEvent(event *stripeapi.Event) (*gateway.Event, error) {
	out := &gateway.Event{
		ID:        event.ID,
		Type:      string(event.Type),
		CreatedAt: time.Unix(event.Created, 0),
		Raw:       json.RawMessage(event.Data.Raw),
	}

	switch event.Type {
	case stripeapi.EventTypeCheckoutSessionCompleted:
		var session stripeapi.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
			return nil, fmt.Errorf("failed to parse checkout session payload: %w", err)
		}

		payload := &gateway.CheckoutCompletedEvent{
			SessionID: session.ID,
		}
		if session.Customer != nil {
			payload.CustomerID = session.Customer.ID
		}
		if session.Subscription != nil {
			payload.SubscriptionID = session.Subscription.ID
		}
		if session.Metadata != nil {
			payload.AccountID = session.Metadata[metadataAccountID]
		}

		out.Kind = gateway.EventKindCheckoutCompleted
		out.CheckoutCompleted = payload

	case stripeapi.EventTypeCustomerSubscriptionUpdated:
		payload, err := parseSubscriptionPayload(event.Data.Raw)
		if err != nil {
			return nil, err
		}
		out.Kind = gateway.EventKindSubscriptionUpdated
		out.Subscription = payload

	case stripeapi.EventTypeCustomerSubscriptionDeleted:
		payload, err := parseSubscriptionPayload(event.Data.Raw)
		if err != nil {
			return nil, err
		}
		out.Kind = gateway.EventKindSubscriptionDeleted
		out.Subscription = payload

	case stripeapi.EventTypeInvoicePaymentSucceeded:
		payload, err := parseInvoicePayload(event.Data.Raw, false)
		if err != nil {
			return nil, err
		}
		out.Kind = gateway.EventKindInvoicePaymentSucceeded
		out.InvoicePayment = payload

	case stripeapi.EventTypeInvoicePaymentFailed:
		payload, err := parseInvoicePayload(event.Data.Raw, true)
		if err != nil {
			return nil, err
		}
		out.Kind = gateway.EventKindInvoicePaymentFailed
		out.InvoicePayment = payload

	default:
		out.Kind = gateway.EventKindUnknown
	}

	return out, nil
}

func parseSubscriptionPayload(raw json.RawMessage) (*gateway.SubscriptionEvent, error) {
	var sub stripeapi.Subscription
	if err := json.Unmarshal(raw, &sub); err != nil {
		return nil, fmt.Errorf("failed to parse subscription payload: %w", err)
	}

	mapped := mapSubscription(&sub)

	return &gateway.SubscriptionEvent{
		SubscriptionID:     mapped.ID,
		CustomerID:         mapped.CustomerID,
		AccountID:          mapped.AccountID,
		Status:             mapped.Status,
		PriceID:            mapped.PriceID,
		CurrentPeriodStart: mapped.CurrentPeriodStart,
		CurrentPeriodEnd:   mapped.CurrentPeriodEnd,
		CancelAtPeriodEnd:  mapped.CancelAtPeriodEnd,
		TrialEnd:           mapped.TrialEnd,
	}, nil
}

func parseInvoicePayload(raw json.RawMessage, failed bool) (*gateway.InvoicePaymentEvent, error) {
	var invoice stripeapi.Invoice
	if err := json.Unmarshal(raw, &invoice); err != nil {
		return nil, fmt.Errorf("failed to parse invoice payload: %w", err)
	}

	payload := &gateway.InvoicePaymentEvent{
		InvoiceID: invoice.ID,
		Currency:  string(invoice.Currency),
	}

	if invoice.Customer != nil {
		payload.CustomerID = invoice.Customer.ID
	}
	if invoice.Subscription != nil {
		payload.SubscriptionID = invoice.Subscription.ID
	}

	if failed {
		payload.Amount = minorToDecimal(invoice.AmountDue, string(invoice.Currency))
		payload.FailureMessage = "payment attempt failed"
		if invoice.LastFinalizationError != nil && invoice.LastFinalizationError.Msg != "" {
			payload.FailureMessage = invoice.LastFinalizationError.Msg
		}
	} else {
		payload.Amount = minorToDecimal(invoice.AmountPaid, string(invoice.Currency))
	}

	return payload, nil
}
