package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/studyloop/billing-service/internal/domain/model"
	"github.com/studyloop/billing-service/internal/domain/repository"
)

type accountRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewAccountRepository creates a new account repository
func NewAccountRepository(db *gorm.DB, logger *zap.Logger) repository.AccountRepository {
	return &accountRepository{
		db:     db,
		logger: logger,
	}
}

// GetByID retrieves an account by its id
func (r *accountRepository) GetByID(ctx context.Context, accountID uuid.UUID) (*model.Account, error) {
	var account model.Account

	err := r.db.WithContext(ctx).
		Where("id = ?", accountID).
		First(&account).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logger.Error("Failed to get account by ID",
			zap.String("account_id", accountID.String()),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get account: %w", err)
	}

	return &account, nil
}

// GetByCustomerID retrieves an account by processor customer id
func (r *accountRepository) GetByCustomerID(ctx context.Context, customerID string) (*model.Account, error) {
	var account model.Account

	err := r.db.WithContext(ctx).
		Where("provider_customer_id = ?", customerID).
		First(&account).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logger.Error("Failed to get account by customer ID",
			zap.String("customer_id", customerID),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get account: %w", err)
	}

	return &account, nil
}

// GetBySubscriptionID retrieves an account by processor subscription id
func (r *accountRepository) GetBySubscriptionID(ctx context.Context, subscriptionID string) (*model.Account, error) {
	var account model.Account

	err := r.db.WithContext(ctx).
		Where("subscription_provider_subscription_id = ?", subscriptionID).
		First(&account).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logger.Error("Failed to get account by subscription ID",
			zap.String("subscription_id", subscriptionID),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get account: %w", err)
	}

	return &account, nil
}

// Create creates a new account record
func (r *accountRepository) Create(ctx context.Context, account *model.Account) error {
	err := r.db.WithContext(ctx).Create(account).Error
	if err != nil {
		r.logger.Error("Failed to create account",
			zap.String("account_id", account.ID.String()),
			zap.Error(err))
		return fmt.Errorf("failed to create account: %w", err)
	}

	return nil
}

// SetCustomerID persists the processor customer id for an account
func (r *accountRepository) SetCustomerID(ctx context.Context, accountID uuid.UUID, customerID string) error {
	result := r.db.WithContext(ctx).
		Model(&model.Account{}).
		Where("id = ?", accountID).
		Update("provider_customer_id", customerID)

	if result.Error != nil {
		r.logger.Error("Failed to set customer ID",
			zap.String("account_id", accountID.String()),
			zap.String("customer_id", customerID),
			zap.Error(result.Error))
		return fmt.Errorf("failed to set customer ID: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		return fmt.Errorf("account not found: %s", accountID)
	}

	return nil
}

// ReplaceSubscription overwrites the whole subscription sub-record in a single
// UPDATE.
func (r *accountRepository) ReplaceSubscription(ctx context.Context, accountID uuid.UUID, sub model.SubscriptionState) error {
	updates := map[string]interface{}{
		"subscription_provider_subscription_id": sub.ProviderSubscriptionID,
		"subscription_plan_id":                  sub.PlanID,
		"subscription_status":                   sub.Status,
		"subscription_provider_price_id":        sub.ProviderPriceID,
		"subscription_current_period_start":     sub.CurrentPeriodStart,
		"subscription_current_period_end":       sub.CurrentPeriodEnd,
		"subscription_cancel_at_period_end":     sub.CancelAtPeriodEnd,
		"subscription_cancelled_at":             sub.CancelledAt,
		"subscription_trial_end":                sub.TrialEnd,
		"subscription_trial_extended":           sub.TrialExtended,
		"subscription_failed_payment_attempts":  sub.FailedPaymentAttempts,
		"subscription_last_payment_error":       sub.LastPaymentError,
		"subscription_updated_at":               time.Now(),
	}

	return r.updateSubscription(ctx, accountID, updates, "replace subscription")
}

// SyncProviderState applies a subscription-updated event. Plan fields are only
// written when the event carried a price change.
func (r *accountRepository) SyncProviderState(ctx context.Context, accountID uuid.UUID, sync repository.ProviderSync) error {
	updates := map[string]interface{}{
		"subscription_provider_subscription_id": sync.ProviderSubscriptionID,
		"subscription_status":                   sync.Status,
		"subscription_current_period_start":     sync.CurrentPeriodStart,
		"subscription_current_period_end":       sync.CurrentPeriodEnd,
		"subscription_cancel_at_period_end":     sync.CancelAtPeriodEnd,
		"subscription_trial_end":                sync.TrialEnd,
		"subscription_updated_at":               time.Now(),
	}

	if sync.ProviderPriceID != "" {
		updates["subscription_provider_price_id"] = sync.ProviderPriceID
		updates["subscription_plan_id"] = sync.PlanID
	}

	return r.updateSubscription(ctx, accountID, updates, "sync provider state")
}

// MarkCancelled finalizes a processor-confirmed termination
func (r *accountRepository) MarkCancelled(ctx context.Context, accountID uuid.UUID) error {
	updates := map[string]interface{}{
		"subscription_status":               model.SubscriptionStatusCancelled,
		"subscription_cancel_at_period_end": false,
		"subscription_updated_at":           time.Now(),
	}

	return r.updateSubscription(ctx, accountID, updates, "mark cancelled")
}

// RecordPaymentFailure increments the dunning counter and moves the
// subscription to past_due in one UPDATE.
func (r *accountRepository) RecordPaymentFailure(ctx context.Context, accountID uuid.UUID, reason string) error {
	updates := map[string]interface{}{
		"subscription_status":                  model.SubscriptionStatusPastDue,
		"subscription_failed_payment_attempts": gorm.Expr("subscription_failed_payment_attempts + 1"),
		"subscription_last_payment_error":      reason,
		"subscription_updated_at":              time.Now(),
	}

	return r.updateSubscription(ctx, accountID, updates, "record payment failure")
}

// ClearPaymentFailures resets the dunning state after a successful payment
func (r *accountRepository) ClearPaymentFailures(ctx context.Context, accountID uuid.UUID) error {
	updates := map[string]interface{}{
		"subscription_status":                  model.SubscriptionStatusActive,
		"subscription_failed_payment_attempts": 0,
		"subscription_last_payment_error":      nil,
		"subscription_updated_at":              time.Now(),
	}

	return r.updateSubscription(ctx, accountID, updates, "clear payment failures")
}

// MarkCancelPending mirrors a user-initiated cancel; status stays as reported
// by the processor until it confirms termination.
func (r *accountRepository) MarkCancelPending(ctx context.Context, accountID uuid.UUID, cancelledAt time.Time) error {
	updates := map[string]interface{}{
		"subscription_cancel_at_period_end": true,
		"subscription_cancelled_at":         cancelledAt,
		"subscription_updated_at":           time.Now(),
	}

	return r.updateSubscription(ctx, accountID, updates, "mark cancel pending")
}

// ClearCancelPending mirrors a reactivation
func (r *accountRepository) ClearCancelPending(ctx context.Context, accountID uuid.UUID) error {
	updates := map[string]interface{}{
		"subscription_status":               model.SubscriptionStatusActive,
		"subscription_cancel_at_period_end": false,
		"subscription_cancelled_at":         nil,
		"subscription_updated_at":           time.Now(),
	}

	return r.updateSubscription(ctx, accountID, updates, "clear cancel pending")
}

// MirrorPlanChange writes the new plan reference and refreshed period bounds
func (r *accountRepository) MirrorPlanChange(ctx context.Context, accountID uuid.UUID, planID int64, priceID string, periodStart, periodEnd time.Time) error {
	updates := map[string]interface{}{
		"subscription_plan_id":              planID,
		"subscription_provider_price_id":    priceID,
		"subscription_current_period_start": periodStart,
		"subscription_current_period_end":   periodEnd,
		"subscription_updated_at":           time.Now(),
	}

	return r.updateSubscription(ctx, accountID, updates, "mirror plan change")
}

// ExtendTrial lands the new trial end and the one-shot flag in the same UPDATE
// so the pair is never observed torn.
func (r *accountRepository) ExtendTrial(ctx context.Context, accountID uuid.UUID, newTrialEnd time.Time) error {
	updates := map[string]interface{}{
		"subscription_trial_end":      newTrialEnd,
		"subscription_trial_extended": true,
		"subscription_updated_at":     time.Now(),
	}

	return r.updateSubscription(ctx, accountID, updates, "extend trial")
}

func (r *accountRepository) updateSubscription(ctx context.Context, accountID uuid.UUID, updates map[string]interface{}, op string) error {
	result := r.db.WithContext(ctx).
		Model(&model.Account{}).
		Where("id = ?", accountID).
		Updates(updates)

	if result.Error != nil {
		r.logger.Error("Failed to update subscription state",
			zap.String("account_id", accountID.String()),
			zap.String("operation", op),
			zap.Error(result.Error))
		return fmt.Errorf("failed to %s: %w", op, result.Error)
	}

	if result.RowsAffected == 0 {
		return fmt.Errorf("account not found: %s", accountID)
	}

	return nil
}
