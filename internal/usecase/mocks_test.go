package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/studyloop/billing-service/internal/domain/gateway"
	"github.com/studyloop/billing-service/internal/domain/model"
	"github.com/studyloop/billing-service/internal/domain/repository"
)

type MockAccountRepository struct {
	mock.Mock
}

func (m *MockAccountRepository) GetByID(ctx context.Context, accountID uuid.UUID) (*model.Account, error) {
	args := m.Called(ctx, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Account), args.Error(1)
}

func (m *MockAccountRepository) GetByCustomerID(ctx context.Context, customerID string) (*model.Account, error) {
	args := m.Called(ctx, customerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Account), args.Error(1)
}

func (m *MockAccountRepository) GetBySubscriptionID(ctx context.Context, subscriptionID string) (*model.Account, error) {
	args := m.Called(ctx, subscriptionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Account), args.Error(1)
}

func (m *MockAccountRepository) Create(ctx context.Context, account *model.Account) error {
	args := m.Called(ctx, account)
	return args.Error(0)
}

func (m *MockAccountRepository) SetCustomerID(ctx context.Context, accountID uuid.UUID, customerID string) error {
	args := m.Called(ctx, accountID, customerID)
	return args.Error(0)
}

func (m *MockAccountRepository) ReplaceSubscription(ctx context.Context, accountID uuid.UUID, sub model.SubscriptionState) error {
	args := m.Called(ctx, accountID, sub)
	return args.Error(0)
}

func (m *MockAccountRepository) SyncProviderState(ctx context.Context, accountID uuid.UUID, sync repository.ProviderSync) error {
	args := m.Called(ctx, accountID, sync)
	return args.Error(0)
}

func (m *MockAccountRepository) MarkCancelled(ctx context.Context, accountID uuid.UUID) error {
	args := m.Called(ctx, accountID)
	return args.Error(0)
}

func (m *MockAccountRepository) RecordPaymentFailure(ctx context.Context, accountID uuid.UUID, reason string) error {
	args := m.Called(ctx, accountID, reason)
	return args.Error(0)
}

func (m *MockAccountRepository) ClearPaymentFailures(ctx context.Context, accountID uuid.UUID) error {
	args := m.Called(ctx, accountID)
	return args.Error(0)
}

func (m *MockAccountRepository) MarkCancelPending(ctx context.Context, accountID uuid.UUID, cancelledAt time.Time) error {
	args := m.Called(ctx, accountID, cancelledAt)
	return args.Error(0)
}

func (m *MockAccountRepository) ClearCancelPending(ctx context.Context, accountID uuid.UUID) error {
	args := m.Called(ctx, accountID)
	return args.Error(0)
}

func (m *MockAccountRepository) MirrorPlanChange(ctx context.Context, accountID uuid.UUID, planID int64, priceID string, periodStart, periodEnd time.Time) error {
	args := m.Called(ctx, accountID, planID, priceID, periodStart, periodEnd)
	return args.Error(0)
}

func (m *MockAccountRepository) ExtendTrial(ctx context.Context, accountID uuid.UUID, newTrialEnd time.Time) error {
	args := m.Called(ctx, accountID, newTrialEnd)
	return args.Error(0)
}

type MockPlanRepository struct {
	mock.Mock
}

func (m *MockPlanRepository) GetByPriceID(ctx context.Context, priceID string) (*model.Plan, error) {
	args := m.Called(ctx, priceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Plan), args.Error(1)
}

func (m *MockPlanRepository) GetByCode(ctx context.Context, code string) (*model.Plan, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Plan), args.Error(1)
}

func (m *MockPlanRepository) GetByID(ctx context.Context, id int64) (*model.Plan, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Plan), args.Error(1)
}

func (m *MockPlanRepository) ListActive(ctx context.Context) ([]*model.Plan, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Plan), args.Error(1)
}

type MockWebhookRepository struct {
	mock.Mock
}

func (m *MockWebhookRepository) SaveEvent(ctx context.Context, event *model.WebhookEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockWebhookRepository) GetEvent(ctx context.Context, providerEventID string) (*model.WebhookEvent, error) {
	args := m.Called(ctx, providerEventID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.WebhookEvent), args.Error(1)
}

func (m *MockWebhookRepository) ClaimEvent(ctx context.Context, providerEventID string) (bool, error) {
	args := m.Called(ctx, providerEventID)
	return args.Bool(0), args.Error(1)
}

func (m *MockWebhookRepository) MarkProcessed(ctx context.Context, providerEventID string) error {
	args := m.Called(ctx, providerEventID)
	return args.Error(0)
}

func (m *MockWebhookRepository) MarkFailed(ctx context.Context, providerEventID string, dispatchErr error) error {
	args := m.Called(ctx, providerEventID, dispatchErr)
	return args.Error(0)
}

type MockPaymentGateway struct {
	mock.Mock
}

func (m *MockPaymentGateway) CreateCustomer(ctx context.Context, req *gateway.CreateCustomerRequest) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

func (m *MockPaymentGateway) CreateCheckoutSession(ctx context.Context, req *gateway.CheckoutSessionRequest) (*gateway.CheckoutSession, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.CheckoutSession), args.Error(1)
}

func (m *MockPaymentGateway) GetSubscription(ctx context.Context, subscriptionID string) (*gateway.Subscription, error) {
	args := m.Called(ctx, subscriptionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.Subscription), args.Error(1)
}

func (m *MockPaymentGateway) ChangeSubscriptionPrice(ctx context.Context, subscriptionID, itemID, priceID string) (*gateway.Subscription, error) {
	args := m.Called(ctx, subscriptionID, itemID, priceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.Subscription), args.Error(1)
}

func (m *MockPaymentGateway) SetCancelAtPeriodEnd(ctx context.Context, subscriptionID string, cancel bool) (*gateway.Subscription, error) {
	args := m.Called(ctx, subscriptionID, cancel)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.Subscription), args.Error(1)
}

func (m *MockPaymentGateway) SetTrialEnd(ctx context.Context, subscriptionID string, trialEnd time.Time) (*gateway.Subscription, error) {
	args := m.Called(ctx, subscriptionID, trialEnd)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.Subscription), args.Error(1)
}

func (m *MockPaymentGateway) AttachPaymentMethod(ctx context.Context, customerID, paymentMethodID string) error {
	args := m.Called(ctx, customerID, paymentMethodID)
	return args.Error(0)
}

func (m *MockPaymentGateway) SetDefaultPaymentMethod(ctx context.Context, customerID, paymentMethodID string) error {
	args := m.Called(ctx, customerID, paymentMethodID)
	return args.Error(0)
}

func (m *MockPaymentGateway) SetSubscriptionPaymentMethod(ctx context.Context, subscriptionID, paymentMethodID string) error {
	args := m.Called(ctx, subscriptionID, paymentMethodID)
	return args.Error(0)
}

func (m *MockPaymentGateway) ListInvoices(ctx context.Context, customerID string, limit int64) ([]*gateway.Invoice, error) {
	args := m.Called(ctx, customerID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*gateway.Invoice), args.Error(1)
}

func (m *MockPaymentGateway) VerifyWebhook(payload []byte, signature string) (*gateway.Event, error) {
	args := m.Called(payload, signature)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.Event), args.Error(1)
}

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) SubscriptionActivated(ctx context.Context, accountID uuid.UUID, planCode string) {
	m.Called(ctx, accountID, planCode)
}

func (m *MockNotifier) PaymentFailed(ctx context.Context, accountID uuid.UUID, reason string) {
	m.Called(ctx, accountID, reason)
}
