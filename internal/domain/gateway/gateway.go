package gateway

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/studyloop/billing-service/internal/domain/model"
)

// PaymentGateway defines the typed operations this service needs from the
// payment processor. All network I/O with the processor goes through this
// interface; every response is authoritative for the fields it carries.
type PaymentGateway interface {
	// CreateCustomer registers a processor customer for the account.
	CreateCustomer(ctx context.Context, req *CreateCustomerRequest) (string, error)

	// CreateCheckoutSession starts a subscription checkout with the account id
	// embedded as correlation metadata.
	CreateCheckoutSession(ctx context.Context, req *CheckoutSessionRequest) (*CheckoutSession, error)

	// GetSubscription retrieves the current processor-side subscription state.
	GetSubscription(ctx context.Context, subscriptionID string) (*Subscription, error)

	// ChangeSubscriptionPrice moves the subscription's line item to a new
	// price with prorated billing.
	ChangeSubscriptionPrice(ctx context.Context, subscriptionID, itemID, priceID string) (*Subscription, error)

	// SetCancelAtPeriodEnd schedules or unschedules cancellation at the end of
	// the current billing period.
	SetCancelAtPeriodEnd(ctx context.Context, subscriptionID string, cancel bool) (*Subscription, error)

	// SetTrialEnd pushes a new trial end to the processor without proration.
	SetTrialEnd(ctx context.Context, subscriptionID string, trialEnd time.Time) (*Subscription, error)

	// AttachPaymentMethod attaches a tokenized payment method to the customer.
	AttachPaymentMethod(ctx context.Context, customerID, paymentMethodID string) error

	// SetDefaultPaymentMethod makes the method the customer's invoice default.
	SetDefaultPaymentMethod(ctx context.Context, customerID, paymentMethodID string) error

	// SetSubscriptionPaymentMethod makes the method the subscription's default.
	SetSubscriptionPaymentMethod(ctx context.Context, subscriptionID, paymentMethodID string) error

	// ListInvoices returns the customer's most recent invoices.
	ListInvoices(ctx context.Context, customerID string, limit int64) ([]*Invoice, error)

	// VerifyWebhook checks the signature against the raw payload bytes and
	// parses the event into its typed variant. Unrecognized kinds return an
	// event with KindUnknown, never an error.
	VerifyWebhook(payload []byte, signature string) (*Event, error)
}

// CreateCustomerRequest carries the data stored on the processor customer.
type CreateCustomerRequest struct {
	AccountID string
	Email     string
}

// CheckoutSessionRequest describes a subscription checkout session.
type CheckoutSessionRequest struct {
	CustomerID string
	PriceID    string
	AccountID  string
	SuccessURL string
	CancelURL  string
}

// CheckoutSession is the processor-hosted checkout the caller redirects to.
type CheckoutSession struct {
	ID  string
	URL string
}

// Subscription is the processor-neutral view of a subscription.
type Subscription struct {
	ID                 string
	CustomerID         string
	AccountID          string // from correlation metadata, may be empty
	Status             model.SubscriptionStatus
	PriceID            string
	ItemID             string
	CurrentPeriodStart time.Time
	CurrentPeriodEnd   time.Time
	CancelAtPeriodEnd  bool
	TrialEnd           *time.Time
}

// Invoice is a processor invoice with amounts converted out of minor units.
type Invoice struct {
	ID             string
	SubscriptionID string
	Status         string
	AmountDue      decimal.Decimal
	AmountPaid     decimal.Decimal
	Currency       string
	HostedURL      string
	CreatedAt      time.Time
}
