package usecase

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"go.uber.org/zap"

	apperrors "github.com/studyloop/billing-service/internal/domain/errors"
	"github.com/studyloop/billing-service/internal/domain/gateway"
	"github.com/studyloop/billing-service/internal/domain/model"
	"github.com/studyloop/billing-service/internal/domain/repository"
	"github.com/studyloop/billing-service/internal/notify"
)

// WebhookService applies processor notifications to the account subscription
// store. It is the second writer of that store next to the mutation
// operations and may run concurrently with them; every write is a field
// overwrite keyed by event content, so redelivery converges on the same end
// state.
type WebhookService struct {
	gateway     gateway.PaymentGateway
	accountRepo repository.AccountRepository
	planService *PlanService
	webhookRepo repository.WebhookRepository
	notifier    notify.Notifier
	logger      *zap.Logger
}

// NewWebhookService creates a new webhook service instance
func NewWebhookService(
	gw gateway.PaymentGateway,
	accountRepo repository.AccountRepository,
	planService *PlanService,
	webhookRepo repository.WebhookRepository,
	notifier notify.Notifier,
	logger *zap.Logger,
) *WebhookService {
	return &WebhookService{
		gateway:     gw,
		accountRepo: accountRepo,
		planService: planService,
		webhookRepo: webhookRepo,
		notifier:    notifier,
		logger:      logger,
	}
}

// Handle verifies and dispatches one webhook delivery. A nil return means the
// event is acknowledged (including recognized-but-ignored cases); an error
// with a SIGNATURE code means the payload was not authentic; any other error
// asks the processor to redeliver.
func (s *WebhookService) Handle(ctx context.Context, payload []byte, signature string) error {
	event, err := s.gateway.VerifyWebhook(payload, signature)
	if err != nil {
		s.logger.Error("Webhook verification failed", zap.Error(err))
		return err
	}

	s.logger.Info("Webhook event received",
		zap.String("event_id", event.ID),
		zap.String("event_type", event.Type),
		zap.String("kind", string(event.Kind)))

	if err := s.journal(ctx, event); err != nil {
		return apperrors.External("failed to journal webhook event", err)
	}

	claimed, err := s.webhookRepo.ClaimEvent(ctx, event.ID)
	if err != nil {
		return apperrors.External("failed to claim webhook event", err)
	}
	if !claimed {
		existing, err := s.webhookRepo.GetEvent(ctx, event.ID)
		if err != nil {
			return apperrors.External("failed to check webhook journal", err)
		}
		if existing != nil && existing.Status == model.WebhookStatusCompleted {
			s.logger.Info("Webhook event already processed, acknowledging replay",
				zap.String("event_id", event.ID))
			return nil
		}
		// A concurrent delivery holds the claim. Ask for redelivery so the
		// event is not lost if that delivery fails.
		s.logger.Info("Webhook event claimed by a concurrent delivery, deferring",
			zap.String("event_id", event.ID))
		return apperrors.External("webhook event is already being processed", nil)
	}

	if err := s.dispatch(ctx, event); err != nil {
		if markErr := s.webhookRepo.MarkFailed(ctx, event.ID, err); markErr != nil {
			s.logger.Error("Failed to record webhook failure",
				zap.String("event_id", event.ID),
				zap.Error(markErr))
		}
		return err
	}

	if err := s.webhookRepo.MarkProcessed(ctx, event.ID); err != nil {
		// The store writes already landed and are replay-safe, so the event is
		// still acknowledged.
		s.logger.Error("Failed to mark webhook as processed",
			zap.String("event_id", event.ID),
			zap.Error(err))
	}

	return nil
}

func (s *WebhookService) journal(ctx context.Context, event *gateway.Event) error {
	var data model.JSONB
	if err := json.Unmarshal(event.Raw, &data); err != nil {
		data = model.JSONB{}
	}

	createdAt := event.CreatedAt
	return s.webhookRepo.SaveEvent(ctx, &model.WebhookEvent{
		ProviderEventID:   event.ID,
		EventType:         event.Type,
		Status:            model.WebhookStatusPending,
		Payload:           data,
		ProviderCreatedAt: &createdAt,
	})
}

func (s *WebhookService) dispatch(ctx context.Context, event *gateway.Event) error {
	switch event.Kind {
	case gateway.EventKindCheckoutCompleted:
		return s.handleCheckoutCompleted(ctx, event.CheckoutCompleted)
	case gateway.EventKindSubscriptionUpdated:
		return s.handleSubscriptionUpdated(ctx, event.Subscription)
	case gateway.EventKindSubscriptionDeleted:
		return s.handleSubscriptionDeleted(ctx, event.Subscription)
	case gateway.EventKindInvoicePaymentFailed:
		return s.handleInvoicePaymentFailed(ctx, event.InvoicePayment)
	case gateway.EventKindInvoicePaymentSucceeded:
		return s.handleInvoicePaymentSucceeded(ctx, event.InvoicePayment)
	default:
		// Unknown kinds are acknowledged without error so the processor can
		// introduce event types without breaking delivery.
		s.logger.Info("Ignoring unrecognized webhook event",
			zap.String("event_id", event.ID),
			zap.String("event_type", event.Type))
		return nil
	}
}

// handleCheckoutCompleted writes a fresh subscription record from the
// processor's current view of the new subscription.
func (s *WebhookService) handleCheckoutCompleted(ctx context.Context, payload *gateway.CheckoutCompletedEvent) error {
	if payload.AccountID == "" {
		// Without correlation metadata the target account cannot be safely
		// guessed; acknowledge so the processor stops redelivering.
		s.logger.Warn("Checkout completed without account correlation, acknowledging",
			zap.String("session_id", payload.SessionID))
		return nil
	}

	accountID, err := uuid.Parse(payload.AccountID)
	if err != nil {
		s.logger.Warn("Checkout completed with malformed account correlation, acknowledging",
			zap.String("session_id", payload.SessionID),
			zap.String("account_id", payload.AccountID))
		return nil
	}

	if payload.SubscriptionID == "" {
		s.logger.Warn("Checkout completed without a subscription reference, acknowledging",
			zap.String("session_id", payload.SessionID))
		return nil
	}

	sub, err := s.gateway.GetSubscription(ctx, payload.SubscriptionID)
	if err != nil {
		return err
	}

	plan, err := s.planService.Resolve(ctx, sub.PriceID)
	if err != nil {
		// An unresolvable price on a completed checkout is a data-integrity
		// problem; reject so the processor redelivers once the catalog is fixed.
		return err
	}

	periodStart := sub.CurrentPeriodStart
	periodEnd := sub.CurrentPeriodEnd
	state := model.SubscriptionState{
		ProviderSubscriptionID: sub.ID,
		PlanID:                 &plan.ID,
		Status:                 sub.Status,
		ProviderPriceID:        sub.PriceID,
		CurrentPeriodStart:     &periodStart,
		CurrentPeriodEnd:       &periodEnd,
		CancelAtPeriodEnd:      false,
		TrialEnd:               sub.TrialEnd,
	}

	if err := s.accountRepo.ReplaceSubscription(ctx, accountID, state); err != nil {
		return apperrors.External("failed to write subscription record", err)
	}

	s.logger.Info("Subscription created from checkout",
		zap.String("account_id", accountID.String()),
		zap.String("subscription_id", sub.ID),
		zap.String("plan_code", plan.Code),
		zap.String("status", string(sub.Status)))

	s.notifier.SubscriptionActivated(ctx, accountID, plan.Code)

	return nil
}

// handleSubscriptionUpdated overwrites status, period bounds and the pending
// cancel flag from the event; plan fields change only when the event carries
// a price change.
func (s *WebhookService) handleSubscriptionUpdated(ctx context.Context, payload *gateway.SubscriptionEvent) error {
	account, err := s.locateAccount(ctx, payload)
	if err != nil {
		return err
	}
	if account == nil {
		s.logger.Warn("Subscription update for unknown account, acknowledging",
			zap.String("subscription_id", payload.SubscriptionID))
		return nil
	}

	periodStart := payload.CurrentPeriodStart
	periodEnd := payload.CurrentPeriodEnd
	// The event's subscription id is written as well; update events are not
	// ordered relative to checkout completion, so this may be the first write
	// that identifies the subscription.
	sync := repository.ProviderSync{
		ProviderSubscriptionID: payload.SubscriptionID,
		Status:                 payload.Status,
		CurrentPeriodStart:     &periodStart,
		CurrentPeriodEnd:       &periodEnd,
		CancelAtPeriodEnd:      payload.CancelAtPeriodEnd,
		TrialEnd:               payload.TrialEnd,
	}

	if payload.PriceID != "" && payload.PriceID != account.Subscription.ProviderPriceID {
		plan, err := s.planService.Resolve(ctx, payload.PriceID)
		if err != nil {
			return err
		}
		sync.ProviderPriceID = payload.PriceID
		sync.PlanID = &plan.ID
	}

	if err := s.accountRepo.SyncProviderState(ctx, account.ID, sync); err != nil {
		return apperrors.External("failed to sync subscription state", err)
	}

	s.logger.Info("Subscription state synced",
		zap.String("account_id", account.ID.String()),
		zap.String("subscription_id", payload.SubscriptionID),
		zap.String("status", string(payload.Status)))

	return nil
}

// handleSubscriptionDeleted finalizes a processor-confirmed termination
func (s *WebhookService) handleSubscriptionDeleted(ctx context.Context, payload *gateway.SubscriptionEvent) error {
	account, err := s.locateAccount(ctx, payload)
	if err != nil {
		return err
	}
	if account == nil {
		s.logger.Warn("Subscription deletion for unknown account, acknowledging",
			zap.String("subscription_id", payload.SubscriptionID))
		return nil
	}

	if err := s.accountRepo.MarkCancelled(ctx, account.ID); err != nil {
		return apperrors.External("failed to mark subscription cancelled", err)
	}

	s.logger.Info("Subscription cancelled",
		zap.String("account_id", account.ID.String()),
		zap.String("subscription_id", payload.SubscriptionID))

	return nil
}

func (s *WebhookService) handleInvoicePaymentFailed(ctx context.Context, payload *gateway.InvoicePaymentEvent) error {
	account, err := s.locateAccountForInvoice(ctx, payload)
	if err != nil {
		return err
	}
	if account == nil {
		s.logger.Warn("Payment failure for unknown account, acknowledging",
			zap.String("invoice_id", payload.InvoiceID))
		return nil
	}

	if err := s.accountRepo.RecordPaymentFailure(ctx, account.ID, payload.FailureMessage); err != nil {
		return apperrors.External("failed to record payment failure", err)
	}

	s.logger.Warn("Payment failed",
		zap.String("account_id", account.ID.String()),
		zap.String("invoice_id", payload.InvoiceID),
		zap.String("amount", payload.Amount.String()),
		zap.String("reason", payload.FailureMessage))

	s.notifier.PaymentFailed(ctx, account.ID, payload.FailureMessage)

	return nil
}

func (s *WebhookService) handleInvoicePaymentSucceeded(ctx context.Context, payload *gateway.InvoicePaymentEvent) error {
	account, err := s.locateAccountForInvoice(ctx, payload)
	if err != nil {
		return err
	}
	if account == nil {
		s.logger.Warn("Payment success for unknown account, acknowledging",
			zap.String("invoice_id", payload.InvoiceID))
		return nil
	}

	if err := s.accountRepo.ClearPaymentFailures(ctx, account.ID); err != nil {
		return apperrors.External("failed to clear payment failures", err)
	}

	s.logger.Info("Payment succeeded",
		zap.String("account_id", account.ID.String()),
		zap.String("invoice_id", payload.InvoiceID),
		zap.String("amount", payload.Amount.String()))

	return nil
}

// locateAccount finds the target account for a subscription event, preferring
// the correlation metadata and falling back to the subscription id.
func (s *WebhookService) locateAccount(ctx context.Context, payload *gateway.SubscriptionEvent) (*model.Account, error) {
	if payload.AccountID != "" {
		if accountID, err := uuid.Parse(payload.AccountID); err == nil {
			account, err := s.accountRepo.GetByID(ctx, accountID)
			if err != nil {
				return nil, apperrors.External("failed to load account", err)
			}
			if account != nil {
				return account, nil
			}
		}
	}

	if payload.SubscriptionID == "" {
		return nil, nil
	}

	account, err := s.accountRepo.GetBySubscriptionID(ctx, payload.SubscriptionID)
	if err != nil {
		return nil, apperrors.External("failed to load account", err)
	}
	return account, nil
}

// locateAccountForInvoice finds the target account for an invoice event via
// the subscription id, then the customer id.
func (s *WebhookService) locateAccountForInvoice(ctx context.Context, payload *gateway.InvoicePaymentEvent) (*model.Account, error) {
	if payload.SubscriptionID != "" {
		account, err := s.accountRepo.GetBySubscriptionID(ctx, payload.SubscriptionID)
		if err != nil {
			return nil, apperrors.External("failed to load account", err)
		}
		if account != nil {
			return account, nil
		}
	}

	if payload.CustomerID == "" {
		return nil, nil
	}

	account, err := s.accountRepo.GetByCustomerID(ctx, payload.CustomerID)
	if err != nil {
		return nil, apperrors.External("failed to load account", err)
	}
	return account, nil
}
