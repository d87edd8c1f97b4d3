package stripe

import (
	"context"
	"net/http"
	"time"

	stripeapi "github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/client"
	"github.com/stripe/stripe-go/v79/webhook"
	"go.uber.org/zap"

	apperrors "github.com/studyloop/billing-service/internal/domain/errors"
	"github.com/studyloop/billing-service/internal/domain/gateway"
	"github.com/studyloop/billing-service/internal/domain/model"
)

// Gateway implements gateway.PaymentGateway against the Stripe API. The
// client is injected rather than configured through package globals so tests
// and multi-tenant setups can hold independent instances.
type Gateway struct {
	api           *client.API
	webhookSecret string
	logger        *zap.Logger
}

// Config holds the Stripe credentials and the per-call timeout applied to
// every outbound request.
type Config struct {
	SecretKey     string
	WebhookSecret string
	Timeout       time.Duration
}

// New creates a Stripe-backed payment gateway.
func New(cfg Config, logger *zap.Logger) *Gateway {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	backend := stripeapi.GetBackendWithConfig(stripeapi.APIBackend, &stripeapi.BackendConfig{
		HTTPClient: &http.Client{Timeout: timeout},
	})

	api := &client.API{}
	api.Init(cfg.SecretKey, &stripeapi.Backends{
		API:     backend,
		Connect: backend,
		Uploads: backend,
	})

	return &Gateway{
		api:           api,
		webhookSecret: cfg.WebhookSecret,
		logger:        logger,
	}
}

// CreateCustomer registers a Stripe customer carrying the account id as
// correlation metadata.
func (g *Gateway) CreateCustomer(ctx context.Context, req *gateway.CreateCustomerRequest) (string, error) {
	params := &stripeapi.CustomerParams{
		Email: stripeapi.String(req.Email),
		Metadata: map[string]string{
			metadataAccountID: req.AccountID,
		},
	}
	params.Context = ctx

	cust, err := g.api.Customers.New(params)
	if err != nil {
		return "", apperrors.External("failed to create customer", err)
	}

	g.logger.Info("Created Stripe customer",
		zap.String("customer_id", cust.ID),
		zap.String("account_id", req.AccountID))

	return cust.ID, nil
}

// CreateCheckoutSession starts a subscription checkout. The account id is set
// both on the session and on the subscription it will create, so every later
// webhook can be correlated back without guessing.
func (g *Gateway) CreateCheckoutSession(ctx context.Context, req *gateway.CheckoutSessionRequest) (*gateway.CheckoutSession, error) {
	params := &stripeapi.CheckoutSessionParams{
		Customer: stripeapi.String(req.CustomerID),
		Mode:     stripeapi.String(string(stripeapi.CheckoutSessionModeSubscription)),
		LineItems: []*stripeapi.CheckoutSessionLineItemParams{
			{
				Price:    stripeapi.String(req.PriceID),
				Quantity: stripeapi.Int64(1),
			},
		},
		SuccessURL: stripeapi.String(req.SuccessURL),
		CancelURL:  stripeapi.String(req.CancelURL),
		SubscriptionData: &stripeapi.CheckoutSessionSubscriptionDataParams{
			Metadata: map[string]string{
				metadataAccountID: req.AccountID,
			},
		},
	}
	params.Context = ctx
	params.AddMetadata(metadataAccountID, req.AccountID)

	sess, err := g.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, apperrors.External("failed to create checkout session", err)
	}

	return &gateway.CheckoutSession{
		ID:  sess.ID,
		URL: sess.URL,
	}, nil
}

// GetSubscription retrieves the processor-side subscription state
func (g *Gateway) GetSubscription(ctx context.Context, subscriptionID string) (*gateway.Subscription, error) {
	params := &stripeapi.SubscriptionParams{}
	params.Context = ctx

	sub, err := g.api.Subscriptions.Get(subscriptionID, params)
	if err != nil {
		return nil, apperrors.External("failed to retrieve subscription", err)
	}

	return mapSubscription(sub), nil
}

// ChangeSubscriptionPrice moves the subscription item to a new price with
// prorated billing.
func (g *Gateway) ChangeSubscriptionPrice(ctx context.Context, subscriptionID, itemID, priceID string) (*gateway.Subscription, error) {
	params := &stripeapi.SubscriptionParams{
		Items: []*stripeapi.SubscriptionItemsParams{
			{
				ID:    stripeapi.String(itemID),
				Price: stripeapi.String(priceID),
			},
		},
		ProrationBehavior: stripeapi.String("create_prorations"),
	}
	params.Context = ctx

	sub, err := g.api.Subscriptions.Update(subscriptionID, params)
	if err != nil {
		return nil, apperrors.External("failed to change subscription price", err)
	}

	return mapSubscription(sub), nil
}

// SetCancelAtPeriodEnd schedules or unschedules cancellation
func (g *Gateway) SetCancelAtPeriodEnd(ctx context.Context, subscriptionID string, cancel bool) (*gateway.Subscription, error) {
	params := &stripeapi.SubscriptionParams{
		CancelAtPeriodEnd: stripeapi.Bool(cancel),
	}
	params.Context = ctx

	sub, err := g.api.Subscriptions.Update(subscriptionID, params)
	if err != nil {
		return nil, apperrors.External("failed to update cancellation state", err)
	}

	return mapSubscription(sub), nil
}

// SetTrialEnd pushes a new trial end with no proration
func (g *Gateway) SetTrialEnd(ctx context.Context, subscriptionID string, trialEnd time.Time) (*gateway.Subscription, error) {
	params := &stripeapi.SubscriptionParams{
		TrialEnd:          stripeapi.Int64(trialEnd.Unix()),
		ProrationBehavior: stripeapi.String("none"),
	}
	params.Context = ctx

	sub, err := g.api.Subscriptions.Update(subscriptionID, params)
	if err != nil {
		return nil, apperrors.External("failed to extend trial", err)
	}

	return mapSubscription(sub), nil
}

// AttachPaymentMethod attaches a tokenized payment method to the customer.
// Attaching an already-attached method is accepted by Stripe, so retries are
// safe.
func (g *Gateway) AttachPaymentMethod(ctx context.Context, customerID, paymentMethodID string) error {
	params := &stripeapi.PaymentMethodAttachParams{
		Customer: stripeapi.String(customerID),
	}
	params.Context = ctx

	if _, err := g.api.PaymentMethods.Attach(paymentMethodID, params); err != nil {
		return apperrors.External("failed to attach payment method", err)
	}

	return nil
}

// SetDefaultPaymentMethod makes the method the customer's invoice default
func (g *Gateway) SetDefaultPaymentMethod(ctx context.Context, customerID, paymentMethodID string) error {
	params := &stripeapi.CustomerParams{
		InvoiceSettings: &stripeapi.CustomerInvoiceSettingsParams{
			DefaultPaymentMethod: stripeapi.String(paymentMethodID),
		},
	}
	params.Context = ctx

	if _, err := g.api.Customers.Update(customerID, params); err != nil {
		return apperrors.External("failed to set default payment method", err)
	}

	return nil
}

// SetSubscriptionPaymentMethod makes the method the subscription's default
func (g *Gateway) SetSubscriptionPaymentMethod(ctx context.Context, subscriptionID, paymentMethodID string) error {
	params := &stripeapi.SubscriptionParams{
		DefaultPaymentMethod: stripeapi.String(paymentMethodID),
	}
	params.Context = ctx

	if _, err := g.api.Subscriptions.Update(subscriptionID, params); err != nil {
		return apperrors.External("failed to set subscription payment method", err)
	}

	return nil
}

// ListInvoices returns the customer's most recent invoices with amounts
// converted out of minor units.
func (g *Gateway) ListInvoices(ctx context.Context, customerID string, limit int64) ([]*gateway.Invoice, error) {
	params := &stripeapi.InvoiceListParams{
		Customer: stripeapi.String(customerID),
	}
	params.Context = ctx
	params.Limit = stripeapi.Int64(limit)

	var invoices []*gateway.Invoice
	iter := g.api.Invoices.List(params)
	for iter.Next() {
		invoices = append(invoices, mapInvoice(iter.Invoice()))
	}

	if err := iter.Err(); err != nil {
		return nil, apperrors.External("failed to list invoices", err)
	}

	return invoices, nil
}

// VerifyWebhook checks the signature against the raw payload bytes and parses
// the event into its typed variant.
func (g *Gateway) VerifyWebhook(payload []byte, signature string) (*gateway.Event, error) {
	event, err := webhook.ConstructEventWithOptions(
		payload,
		signature,
		g.webhookSecret,
		webhook.ConstructEventOptions{
			IgnoreAPIVersionMismatch: true,
		},
	)
	if err != nil {
		return nil, apperrors.NewAppError(apperrors.CodeSignature, "webhook signature verification failed", err)
	}

	return mapEvent(&event)
}

// mapSubscription converts a Stripe subscription to the gateway view
func mapSubscription(sub *stripeapi.Subscription) *gateway.Subscription {
	out := &gateway.Subscription{
		ID:                 sub.ID,
		Status:             mapStatus(sub.Status),
		CurrentPeriodStart: time.Unix(sub.CurrentPeriodStart, 0),
		CurrentPeriodEnd:   time.Unix(sub.CurrentPeriodEnd, 0),
		CancelAtPeriodEnd:  sub.CancelAtPeriodEnd,
	}

	if sub.Customer != nil {
		out.CustomerID = sub.Customer.ID
	}
	if sub.Metadata != nil {
		out.AccountID = sub.Metadata[metadataAccountID]
	}
	if sub.TrialEnd > 0 {
		t := time.Unix(sub.TrialEnd, 0)
		out.TrialEnd = &t
	}
	if sub.Items != nil && len(sub.Items.Data) > 0 {
		item := sub.Items.Data[0]
		out.ItemID = item.ID
		if item.Price != nil {
			out.PriceID = item.Price.ID
		}
	}

	return out
}

// mapStatus maps Stripe subscription statuses onto the local status set.
// Incomplete and unpaid read as past_due; an expired incomplete is cancelled.
func mapStatus(status stripeapi.SubscriptionStatus) model.SubscriptionStatus {
	switch status {
	case stripeapi.SubscriptionStatusTrialing:
		return model.SubscriptionStatusTrialing
	case stripeapi.SubscriptionStatusActive:
		return model.SubscriptionStatusActive
	case stripeapi.SubscriptionStatusPastDue,
		stripeapi.SubscriptionStatusIncomplete,
		stripeapi.SubscriptionStatusUnpaid:
		return model.SubscriptionStatusPastDue
	case stripeapi.SubscriptionStatusCanceled,
		stripeapi.SubscriptionStatusIncompleteExpired:
		return model.SubscriptionStatusCancelled
	default:
		return model.SubscriptionStatusActive
	}
}

func mapInvoice(inv *stripeapi.Invoice) *gateway.Invoice {
	out := &gateway.Invoice{
		ID:         inv.ID,
		Status:     string(inv.Status),
		AmountDue:  minorToDecimal(inv.AmountDue, string(inv.Currency)),
		AmountPaid: minorToDecimal(inv.AmountPaid, string(inv.Currency)),
		Currency:   string(inv.Currency),
		HostedURL:  inv.HostedInvoiceURL,
		CreatedAt:  time.Unix(inv.Created, 0),
	}

	if inv.Subscription != nil {
		out.SubscriptionID = inv.Subscription.ID
	}

	return out
}
