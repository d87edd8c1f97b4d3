package repository

import (
	"context"

	"github.com/studyloop/billing-service/internal/domain/model"
)

// WebhookRepository journals verified webhook events for dedupe and
// observability.
type WebhookRepository interface {
	// SaveEvent records a new event; a redelivered event id is a no-op.
	SaveEvent(ctx context.Context, event *model.WebhookEvent) error

	// GetEvent returns the journal entry for an event id, or (nil, nil).
	GetEvent(ctx context.Context, providerEventID string) (*model.WebhookEvent, error)

	// ClaimEvent moves a pending or previously failed event to processing with
	// a single conditional update. It returns false when the event is already
	// completed or held by a concurrent delivery, in which case the caller
	// must not dispatch.
	ClaimEvent(ctx context.Context, providerEventID string) (bool, error)

	// MarkProcessed records successful dispatch.
	MarkProcessed(ctx context.Context, providerEventID string) error

	// MarkFailed records a dispatch failure and bumps the attempt counter.
	MarkFailed(ctx context.Context, providerEventID string, dispatchErr error) error
}
