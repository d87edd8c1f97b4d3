package model

import (
	"database/sql/driver"
	"time"

	"github.com/google/uuid"
)

// SubscriptionStatus represents the status of an account's subscription
type SubscriptionStatus string

const (
	SubscriptionStatusNone      SubscriptionStatus = "none"
	SubscriptionStatusTrialing  SubscriptionStatus = "trialing"
	SubscriptionStatusActive    SubscriptionStatus = "active"
	SubscriptionStatusPastDue   SubscriptionStatus = "past_due"
	SubscriptionStatusCancelled SubscriptionStatus = "cancelled"
)

// Scan implements sql.Scanner interface
func (s *SubscriptionStatus) Scan(src interface{}) error {
	switch v := src.(type) {
	case string:
		*s = SubscriptionStatus(v)
	case []byte:
		*s = SubscriptionStatus(v)
	default:
		*s = SubscriptionStatusNone
	}
	return nil
}

// Value implements driver.Valuer interface
func (s SubscriptionStatus) Value() (driver.Value, error) {
	return string(s), nil
}

// Account is the local mirror of billing state for a single account. The
// subscription sub-record is owned exclusively by this service: the mutation
// operations and the webhook processor are its only writers.
type Account struct {
	ID                 uuid.UUID         `gorm:"type:uuid;primaryKey" json:"id"`
	Email              string            `gorm:"size:255" json:"email"`
	ProviderCustomerID *string           `gorm:"column:provider_customer_id;uniqueIndex;size:100" json:"provider_customer_id,omitempty"`
	Subscription       SubscriptionState `gorm:"embedded;embeddedPrefix:subscription_" json:"subscription"`
	CreatedAt          time.Time         `gorm:"default:now()" json:"created_at"`
	UpdatedAt          time.Time         `gorm:"default:now()" json:"updated_at"`
}

// SubscriptionState holds the mirrored subscription fields. An empty
// ProviderSubscriptionID means the account has never completed a checkout.
type SubscriptionState struct {
	ProviderSubscriptionID string             `gorm:"column:provider_subscription_id;size:100;index" json:"provider_subscription_id"`
	PlanID                 *int64             `gorm:"column:plan_id" json:"plan_id,omitempty"`
	Status                 SubscriptionStatus `gorm:"column:status;type:subscription_status;not null;default:'none'" json:"status"`
	ProviderPriceID        string             `gorm:"column:provider_price_id;size:100" json:"provider_price_id"`
	CurrentPeriodStart     *time.Time         `gorm:"column:current_period_start" json:"current_period_start,omitempty"`
	CurrentPeriodEnd       *time.Time         `gorm:"column:current_period_end" json:"current_period_end,omitempty"`
	CancelAtPeriodEnd      bool               `gorm:"column:cancel_at_period_end;not null;default:false" json:"cancel_at_period_end"`
	CancelledAt            *time.Time         `gorm:"column:cancelled_at" json:"cancelled_at,omitempty"`
	TrialEnd               *time.Time         `gorm:"column:trial_end" json:"trial_end,omitempty"`
	TrialExtended          bool               `gorm:"column:trial_extended;not null;default:false" json:"trial_extended"`
	FailedPaymentAttempts  int                `gorm:"column:failed_payment_attempts;not null;default:0" json:"failed_payment_attempts"`
	LastPaymentError       *string            `gorm:"column:last_payment_error" json:"last_payment_error,omitempty"`
	UpdatedAt              time.Time          `gorm:"column:updated_at;default:now()" json:"updated_at"`
}

// Exists reports whether the account has a subscription record at all.
func (s *SubscriptionState) Exists() bool {
	return s.ProviderSubscriptionID != ""
}

// TableName specifies the table name for GORM
func (Account) TableName() string {
	return "accounts"
}
