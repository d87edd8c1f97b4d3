package gateway

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"github.com/studyloop/billing-service/internal/domain/model"
)

// EventKind discriminates webhook event payloads. Each recognized kind has
// exactly one payload variant; everything else parses to EventKindUnknown at
// the boundary so handlers never see an undiscriminated payload.
type EventKind string

const (
	EventKindCheckoutCompleted       EventKind = "checkout_completed"
	EventKindSubscriptionUpdated     EventKind = "subscription_updated"
	EventKindSubscriptionDeleted     EventKind = "subscription_deleted"
	EventKindInvoicePaymentFailed    EventKind = "invoice_payment_failed"
	EventKindInvoicePaymentSucceeded EventKind = "invoice_payment_succeeded"
	EventKindUnknown                 EventKind = "unknown"
)

// Event is a verified webhook event. Exactly one of the payload pointers is
// set, matching Kind; all are nil for EventKindUnknown.
type Event struct {
	ID        string
	Kind      EventKind
	Type      string // provider-native event type string
	CreatedAt time.Time
	Raw       json.RawMessage

	CheckoutCompleted *CheckoutCompletedEvent
	Subscription      *SubscriptionEvent
	InvoicePayment    *InvoicePaymentEvent
}

// CheckoutCompletedEvent signals a finished checkout session. AccountID comes
// from the correlation metadata set at session creation; when it is empty the
// event cannot be safely applied.
type CheckoutCompletedEvent struct {
	SessionID      string
	CustomerID     string
	SubscriptionID string
	AccountID      string
}

// SubscriptionEvent carries processor-reported subscription state for update
// and delete notifications.
type SubscriptionEvent struct {
	SubscriptionID     string
	CustomerID         string
	AccountID          string
	Status             model.SubscriptionStatus
	PriceID            string
	CurrentPeriodStart time.Time
	CurrentPeriodEnd   time.Time
	CancelAtPeriodEnd  bool
	TrialEnd           *time.Time
}

// InvoicePaymentEvent carries the outcome of an invoice payment attempt.
type InvoicePaymentEvent struct {
	InvoiceID      string
	CustomerID     string
	SubscriptionID string
	Amount         decimal.Decimal
	Currency       string
	FailureMessage string
}
