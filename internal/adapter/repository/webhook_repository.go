package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/studyloop/billing-service/internal/domain/model"
	"github.com/studyloop/billing-service/internal/domain/repository"
)

type webhookRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewWebhookRepository creates a new webhook repository
func NewWebhookRepository(db *gorm.DB, logger *zap.Logger) repository.WebhookRepository {
	return &webhookRepository{
		db:     db,
		logger: logger,
	}
}

// SaveEvent saves a new webhook event. Redelivered event ids are ignored via
// ON CONFLICT DO NOTHING.
func (r *webhookRepository) SaveEvent(ctx context.Context, event *model.WebhookEvent) error {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(event).Error

	if err != nil {
		r.logger.Error("Failed to save webhook event",
			zap.String("event_id", event.ProviderEventID),
			zap.String("event_type", event.EventType),
			zap.Error(err))
		return fmt.Errorf("failed to save webhook event: %w", err)
	}

	return nil
}

// GetEvent retrieves a webhook event by provider event ID
func (r *webhookRepository) GetEvent(ctx context.Context, providerEventID string) (*model.WebhookEvent, error) {
	var event model.WebhookEvent

	err := r.db.WithContext(ctx).
		Where("provider_event_id = ?", providerEventID).
		First(&event).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logger.Error("Failed to get webhook event",
			zap.String("event_id", providerEventID),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get webhook event: %w", err)
	}

	return &event, nil
}

// ClaimEvent transitions a pending or failed event to processing. The status
// predicate makes the claim exclusive, so only one of several concurrent
// deliveries of the same event observes RowsAffected == 1.
func (r *webhookRepository) ClaimEvent(ctx context.Context, providerEventID string) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&model.WebhookEvent{}).
		Where("provider_event_id = ? AND status IN ?", providerEventID,
			[]model.WebhookStatus{model.WebhookStatusPending, model.WebhookStatusFailed}).
		Update("status", model.WebhookStatusProcessing)

	if result.Error != nil {
		r.logger.Error("Failed to claim webhook event",
			zap.String("event_id", providerEventID),
			zap.Error(result.Error))
		return false, fmt.Errorf("failed to claim webhook event: %w", result.Error)
	}

	return result.RowsAffected == 1, nil
}

// MarkProcessed marks a webhook event as processed
func (r *webhookRepository) MarkProcessed(ctx context.Context, providerEventID string) error {
	now := time.Now()

	result := r.db.WithContext(ctx).
		Model(&model.WebhookEvent{}).
		Where("provider_event_id = ?", providerEventID).
		Updates(map[string]interface{}{
			"status":              model.WebhookStatusCompleted,
			"processed_at":        &now,
			"processing_attempts": gorm.Expr("processing_attempts + 1"),
		})

	if result.Error != nil {
		r.logger.Error("Failed to mark webhook as processed",
			zap.String("event_id", providerEventID),
			zap.Error(result.Error))
		return fmt.Errorf("failed to mark webhook as processed: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		return fmt.Errorf("webhook event not found: %s", providerEventID)
	}

	return nil
}

// MarkFailed records a dispatch failure for later inspection
func (r *webhookRepository) MarkFailed(ctx context.Context, providerEventID string, dispatchErr error) error {
	msg := dispatchErr.Error()

	result := r.db.WithContext(ctx).
		Model(&model.WebhookEvent{}).
		Where("provider_event_id = ?", providerEventID).
		Updates(map[string]interface{}{
			"status":              model.WebhookStatusFailed,
			"last_error":          &msg,
			"processing_attempts": gorm.Expr("processing_attempts + 1"),
		})

	if result.Error != nil {
		r.logger.Error("Failed to mark webhook as failed",
			zap.String("event_id", providerEventID),
			zap.Error(result.Error))
		return fmt.Errorf("failed to mark webhook as failed: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		return fmt.Errorf("webhook event not found: %s", providerEventID)
	}

	return nil
}
