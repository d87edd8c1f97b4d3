package notify

import (
	"context"

	"github.com/google/uuid"
)

// Notifier is the outbound user-messaging channel. Calls are fire-and-forget:
// implementations never return errors to the billing path and must not block
// it beyond a short publish timeout.
type Notifier interface {
	SubscriptionActivated(ctx context.Context, accountID uuid.UUID, planCode string)
	PaymentFailed(ctx context.Context, accountID uuid.UUID, reason string)
}

// NopNotifier discards all notifications.
type NopNotifier struct{}

func (NopNotifier) SubscriptionActivated(context.Context, uuid.UUID, string) {}

func (NopNotifier) PaymentFailed(context.Context, uuid.UUID, string) {}
