package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/studyloop/billing-service/internal/domain/model"
)

// ProviderSync carries the fields a subscription-updated event overwrites.
// ProviderSubscriptionID is always written so an update that outruns its
// checkout-completed event still lands a fully identified subscription
// record. Plan fields are applied only when the event carries a price change
// (ProviderPriceID non-empty).
type ProviderSync struct {
	ProviderSubscriptionID string
	Status                 model.SubscriptionStatus
	CurrentPeriodStart     *time.Time
	CurrentPeriodEnd       *time.Time
	CancelAtPeriodEnd      bool
	TrialEnd               *time.Time
	ProviderPriceID        string
	PlanID                 *int64
}

// AccountRepository is the account subscription store. Lookups return
// (nil, nil) when no row matches. Every mutation is a single row update so
// multi-field writes that encode an invariant are never observed torn.
type AccountRepository interface {
	GetByID(ctx context.Context, accountID uuid.UUID) (*model.Account, error)
	GetByCustomerID(ctx context.Context, customerID string) (*model.Account, error)
	GetBySubscriptionID(ctx context.Context, subscriptionID string) (*model.Account, error)
	Create(ctx context.Context, account *model.Account) error

	// SetCustomerID persists the processor customer id; it is written before
	// any checkout session is created so retries never mint duplicate customers.
	SetCustomerID(ctx context.Context, accountID uuid.UUID, customerID string) error

	// ReplaceSubscription overwrites the whole subscription sub-record with a
	// freshly built state (checkout completion).
	ReplaceSubscription(ctx context.Context, accountID uuid.UUID, sub model.SubscriptionState) error

	// SyncProviderState applies a subscription-updated event.
	SyncProviderState(ctx context.Context, accountID uuid.UUID, sync ProviderSync) error

	// MarkCancelled finalizes a processor-confirmed termination; the pending
	// cancel flag collapses because cancelled subscriptions are not reported
	// as cancel-pending.
	MarkCancelled(ctx context.Context, accountID uuid.UUID) error

	// RecordPaymentFailure moves the subscription to past_due and increments
	// the dunning counter in one update.
	RecordPaymentFailure(ctx context.Context, accountID uuid.UUID, reason string) error

	// ClearPaymentFailures moves the subscription to active and resets the
	// dunning state in one update.
	ClearPaymentFailures(ctx context.Context, accountID uuid.UUID) error

	// MarkCancelPending mirrors a user-initiated cancel: flag set, status untouched.
	MarkCancelPending(ctx context.Context, accountID uuid.UUID, cancelledAt time.Time) error

	// ClearCancelPending mirrors a reactivation: flag cleared, status restored
	// to active.
	ClearCancelPending(ctx context.Context, accountID uuid.UUID) error

	// MirrorPlanChange writes the new plan, price and refreshed period bounds;
	// status is not altered.
	MirrorPlanChange(ctx context.Context, accountID uuid.UUID, planID int64, priceID string, periodStart, periodEnd time.Time) error

	// ExtendTrial lands the new trial end and the one-shot flag together.
	ExtendTrial(ctx context.Context, accountID uuid.UUID, newTrialEnd time.Time) error
}
