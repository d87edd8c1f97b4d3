package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	apperrors "github.com/studyloop/billing-service/internal/domain/errors"
	"github.com/studyloop/billing-service/internal/domain/gateway"
	"github.com/studyloop/billing-service/internal/domain/model"
	"github.com/studyloop/billing-service/internal/domain/repository"
)

// SubscriptionConfig tunes the mutation operations.
type SubscriptionConfig struct {
	// TrialExtension is added to the processor-reported trial end exactly once
	// per subscription.
	TrialExtension time.Duration
	// DefaultSuccessURL / DefaultCancelURL are the checkout destinations used
	// when the caller does not supply its own.
	DefaultSuccessURL string
	DefaultCancelURL  string
	// InvoiceListLimit caps invoice history reads.
	InvoiceListLimit int64
}

// SubscriptionService implements the caller-invoked mutation operations. Each
// operation runs a strictly ordered sequence: precondition checks against the
// local mirror, processor calls, then a single local mirror write. No local
// write happens on an uncertain remote outcome.
type SubscriptionService struct {
	accountRepo repository.AccountRepository
	planService *PlanService
	gateway     gateway.PaymentGateway
	cfg         SubscriptionConfig
	logger      *zap.Logger
}

// NewSubscriptionService creates a new subscription service instance
func NewSubscriptionService(
	accountRepo repository.AccountRepository,
	planService *PlanService,
	gw gateway.PaymentGateway,
	cfg SubscriptionConfig,
	logger *zap.Logger,
) *SubscriptionService {
	if cfg.TrialExtension <= 0 {
		cfg.TrialExtension = 7 * 24 * time.Hour
	}
	if cfg.InvoiceListLimit <= 0 {
		cfg.InvoiceListLimit = 12
	}

	return &SubscriptionService{
		accountRepo: accountRepo,
		planService: planService,
		gateway:     gw,
		cfg:         cfg,
		logger:      logger,
	}
}

// CheckoutResult is the redirect target for a created checkout session.
type CheckoutResult struct {
	SessionID   string `json:"session_id"`
	RedirectURL string `json:"redirect_url"`
}

// PlanChangeResult summarizes the subscription after a plan change.
type PlanChangeResult struct {
	PlanCode           string    `json:"plan_code"`
	DisplayName        string    `json:"display_name"`
	ProviderPriceID    string    `json:"provider_price_id"`
	CurrentPeriodStart time.Time `json:"current_period_start"`
	CurrentPeriodEnd   time.Time `json:"current_period_end"`
}

// CancelResult reports a scheduled cancellation.
type CancelResult struct {
	CancelledAt time.Time  `json:"cancelled_at"`
	PeriodEnd   *time.Time `json:"period_end,omitempty"`
}

// StartCheckout creates a processor checkout session for the requested price.
// The subscription record itself is only written when the corresponding
// webhook confirms completion; intent to subscribe and confirmed subscription
// stay strictly separate.
func (s *SubscriptionService) StartCheckout(ctx context.Context, accountID uuid.UUID, email, priceID, successURL, cancelURL string) (*CheckoutResult, error) {
	account, err := s.accountRepo.GetByID(ctx, accountID)
	if err != nil {
		return nil, apperrors.External("failed to load account", err)
	}
	if account == nil {
		// First billing touchpoint for this account, create its mirror row
		account = &model.Account{ID: accountID, Email: email}
		if err := s.accountRepo.Create(ctx, account); err != nil {
			return nil, apperrors.External("failed to create account", err)
		}
		s.logger.Info("Billing account created",
			zap.String("account_id", accountID.String()))
	}

	customerID, err := s.ensureCustomer(ctx, account)
	if err != nil {
		return nil, err
	}

	if successURL == "" {
		successURL = s.cfg.DefaultSuccessURL
	}
	if cancelURL == "" {
		cancelURL = s.cfg.DefaultCancelURL
	}

	session, err := s.gateway.CreateCheckoutSession(ctx, &gateway.CheckoutSessionRequest{
		CustomerID: customerID,
		PriceID:    priceID,
		AccountID:  accountID.String(),
		SuccessURL: successURL,
		CancelURL:  cancelURL,
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Checkout session created",
		zap.String("account_id", accountID.String()),
		zap.String("session_id", session.ID),
		zap.String("price_id", priceID))

	return &CheckoutResult{
		SessionID:   session.ID,
		RedirectURL: session.URL,
	}, nil
}

// ensureCustomer returns the account's processor customer id, creating and
// persisting one first if needed. The stored id gates creation, so a retry
// after a partial failure never mints a duplicate customer.
func (s *SubscriptionService) ensureCustomer(ctx context.Context, account *model.Account) (string, error) {
	if account.ProviderCustomerID != nil && *account.ProviderCustomerID != "" {
		return *account.ProviderCustomerID, nil
	}

	customerID, err := s.gateway.CreateCustomer(ctx, &gateway.CreateCustomerRequest{
		AccountID: account.ID.String(),
		Email:     account.Email,
	})
	if err != nil {
		return "", err
	}

	if err := s.accountRepo.SetCustomerID(ctx, account.ID, customerID); err != nil {
		return "", apperrors.External("customer created remotely but local mirror write failed", err)
	}

	s.logger.Info("Provisioned payment customer",
		zap.String("account_id", account.ID.String()),
		zap.String("customer_id", customerID))

	return customerID, nil
}

// ChangePlan moves the subscription to a new price with prorated billing and
// mirrors the plan reference and refreshed period bounds. Status is not
// altered.
func (s *SubscriptionService) ChangePlan(ctx context.Context, accountID uuid.UUID, newPriceID string) (*PlanChangeResult, error) {
	account, err := s.accountRepo.GetByID(ctx, accountID)
	if err != nil {
		return nil, apperrors.External("failed to load account", err)
	}
	if account == nil {
		return nil, apperrors.ErrAccountNotFound
	}
	if !account.Subscription.Exists() {
		return nil, apperrors.ErrNoSubscription
	}

	plan, err := s.planService.Resolve(ctx, newPriceID)
	if err != nil {
		return nil, err
	}

	subID := account.Subscription.ProviderSubscriptionID
	current, err := s.gateway.GetSubscription(ctx, subID)
	if err != nil {
		return nil, err
	}

	updated, err := s.gateway.ChangeSubscriptionPrice(ctx, subID, current.ItemID, newPriceID)
	if err != nil {
		return nil, err
	}

	if err := s.accountRepo.MirrorPlanChange(ctx, accountID, plan.ID, newPriceID,
		updated.CurrentPeriodStart, updated.CurrentPeriodEnd); err != nil {
		return nil, apperrors.External("plan changed remotely but local mirror write failed", err)
	}

	s.logger.Info("Plan changed",
		zap.String("account_id", accountID.String()),
		zap.String("subscription_id", subID),
		zap.String("plan_code", plan.Code),
		zap.String("price_id", newPriceID))

	return &PlanChangeResult{
		PlanCode:           plan.Code,
		DisplayName:        plan.DisplayName,
		ProviderPriceID:    newPriceID,
		CurrentPeriodStart: updated.CurrentPeriodStart,
		CurrentPeriodEnd:   updated.CurrentPeriodEnd,
	}, nil
}

// Cancel schedules cancellation at period end. The grant stays valid until the
// period closes; the local status is not changed until the processor confirms
// termination. Trialing subscriptions can be cancel-scheduled too; the
// processor ends them at trial end and the status stays trialing with the
// pending flag set until then.
func (s *SubscriptionService) Cancel(ctx context.Context, accountID uuid.UUID) (*CancelResult, error) {
	account, err := s.accountRepo.GetByID(ctx, accountID)
	if err != nil {
		return nil, apperrors.External("failed to load account", err)
	}
	if account == nil {
		return nil, apperrors.ErrAccountNotFound
	}
	if !account.Subscription.Exists() {
		return nil, apperrors.ErrNoSubscription
	}

	subID := account.Subscription.ProviderSubscriptionID
	updated, err := s.gateway.SetCancelAtPeriodEnd(ctx, subID, true)
	if err != nil {
		return nil, err
	}

	cancelledAt := time.Now()
	if err := s.accountRepo.MarkCancelPending(ctx, accountID, cancelledAt); err != nil {
		return nil, apperrors.External("cancellation scheduled remotely but local mirror write failed", err)
	}

	s.logger.Info("Cancellation scheduled",
		zap.String("account_id", accountID.String()),
		zap.String("subscription_id", subID),
		zap.Time("period_end", updated.CurrentPeriodEnd))

	periodEnd := updated.CurrentPeriodEnd
	return &CancelResult{
		CancelledAt: cancelledAt,
		PeriodEnd:   &periodEnd,
	}, nil
}

// Reactivate clears a pending cancellation. A subscription without a pending
// cancel is a precondition failure and performs no mutation anywhere.
func (s *SubscriptionService) Reactivate(ctx context.Context, accountID uuid.UUID) error {
	account, err := s.accountRepo.GetByID(ctx, accountID)
	if err != nil {
		return apperrors.External("failed to load account", err)
	}
	if account == nil {
		return apperrors.ErrAccountNotFound
	}
	if !account.Subscription.Exists() {
		return apperrors.ErrNoSubscription
	}
	if !account.Subscription.CancelAtPeriodEnd {
		return apperrors.ErrNotCancelPending
	}

	subID := account.Subscription.ProviderSubscriptionID
	if _, err := s.gateway.SetCancelAtPeriodEnd(ctx, subID, false); err != nil {
		return err
	}

	if err := s.accountRepo.ClearCancelPending(ctx, accountID); err != nil {
		return apperrors.External("reactivated remotely but local mirror write failed", err)
	}

	s.logger.Info("Subscription reactivated",
		zap.String("account_id", accountID.String()),
		zap.String("subscription_id", subID))

	return nil
}

// ExtendTrial pushes the trial end out by the configured extension, at most
// once per subscription. The new date and the one-shot flag are mirrored in a
// single atomic write.
func (s *SubscriptionService) ExtendTrial(ctx context.Context, accountID uuid.UUID) (time.Time, error) {
	account, err := s.accountRepo.GetByID(ctx, accountID)
	if err != nil {
		return time.Time{}, apperrors.External("failed to load account", err)
	}
	if account == nil {
		return time.Time{}, apperrors.ErrAccountNotFound
	}
	if !account.Subscription.Exists() {
		return time.Time{}, apperrors.ErrNoSubscription
	}
	if account.Subscription.Status != model.SubscriptionStatusTrialing {
		return time.Time{}, apperrors.ErrNotTrialing
	}
	if account.Subscription.TrialExtended {
		return time.Time{}, apperrors.ErrTrialAlreadyExtended
	}

	subID := account.Subscription.ProviderSubscriptionID
	current, err := s.gateway.GetSubscription(ctx, subID)
	if err != nil {
		return time.Time{}, err
	}
	if current.TrialEnd == nil {
		return time.Time{}, apperrors.ErrNoTrialEnd
	}

	newTrialEnd := current.TrialEnd.Add(s.cfg.TrialExtension)
	if _, err := s.gateway.SetTrialEnd(ctx, subID, newTrialEnd); err != nil {
		return time.Time{}, err
	}

	if err := s.accountRepo.ExtendTrial(ctx, accountID, newTrialEnd); err != nil {
		return time.Time{}, apperrors.External("trial extended remotely but local mirror write failed", err)
	}

	s.logger.Info("Trial extended",
		zap.String("account_id", accountID.String()),
		zap.String("subscription_id", subID),
		zap.Time("new_trial_end", newTrialEnd))

	return newTrialEnd, nil
}

// UpdatePaymentMethod attaches the tokenized method and makes it the default
// for both the customer and the subscription. The sequence is idempotent: a
// retry after a mid-sequence failure converges on the same end state.
func (s *SubscriptionService) UpdatePaymentMethod(ctx context.Context, accountID uuid.UUID, methodToken string) error {
	account, err := s.accountRepo.GetByID(ctx, accountID)
	if err != nil {
		return apperrors.External("failed to load account", err)
	}
	if account == nil {
		return apperrors.ErrAccountNotFound
	}
	if account.ProviderCustomerID == nil || *account.ProviderCustomerID == "" {
		return apperrors.ErrNoCustomer
	}
	if !account.Subscription.Exists() {
		return apperrors.ErrNoSubscription
	}

	customerID := *account.ProviderCustomerID
	subID := account.Subscription.ProviderSubscriptionID

	if err := s.gateway.AttachPaymentMethod(ctx, customerID, methodToken); err != nil {
		return err
	}
	if err := s.gateway.SetDefaultPaymentMethod(ctx, customerID, methodToken); err != nil {
		return err
	}
	if err := s.gateway.SetSubscriptionPaymentMethod(ctx, subID, methodToken); err != nil {
		return err
	}

	s.logger.Info("Payment method updated",
		zap.String("account_id", accountID.String()),
		zap.String("subscription_id", subID))

	return nil
}

// GetAccount returns the account with its mirrored subscription state.
func (s *SubscriptionService) GetAccount(ctx context.Context, accountID uuid.UUID) (*model.Account, error) {
	account, err := s.accountRepo.GetByID(ctx, accountID)
	if err != nil {
		return nil, apperrors.External("failed to load account", err)
	}
	if account == nil {
		return nil, apperrors.ErrAccountNotFound
	}

	return account, nil
}

// ListInvoices returns the account's recent invoices from the processor.
func (s *SubscriptionService) ListInvoices(ctx context.Context, accountID uuid.UUID) ([]*gateway.Invoice, error) {
	account, err := s.accountRepo.GetByID(ctx, accountID)
	if err != nil {
		return nil, apperrors.External("failed to load account", err)
	}
	if account == nil {
		return nil, apperrors.ErrAccountNotFound
	}
	if account.ProviderCustomerID == nil || *account.ProviderCustomerID == "" {
		return nil, apperrors.ErrNoCustomer
	}

	return s.gateway.ListInvoices(ctx, *account.ProviderCustomerID, s.cfg.InvoiceListLimit)
}
