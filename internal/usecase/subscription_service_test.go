package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	apperrors "github.com/studyloop/billing-service/internal/domain/errors"
	"github.com/studyloop/billing-service/internal/domain/gateway"
	"github.com/studyloop/billing-service/internal/domain/model"
)

func newSubscriptionService(accountRepo *MockAccountRepository, planRepo *MockPlanRepository, gw *MockPaymentGateway) *SubscriptionService {
	planService := NewPlanService(planRepo, zap.NewNop())
	return NewSubscriptionService(accountRepo, planService, gw, SubscriptionConfig{
		DefaultSuccessURL: "https://app.example.com/billing/success",
		DefaultCancelURL:  "https://app.example.com/billing/cancelled",
	}, zap.NewNop())
}

func activeAccount(accountID uuid.UUID) *model.Account {
	customerID := "cus_123"
	planID := int64(1)
	start := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0)
	return &model.Account{
		ID:                 accountID,
		Email:              "user@example.com",
		ProviderCustomerID: &customerID,
		Subscription: model.SubscriptionState{
			ProviderSubscriptionID: "sub_123",
			PlanID:                 &planID,
			Status:                 model.SubscriptionStatusActive,
			ProviderPriceID:        "price_basic",
			CurrentPeriodStart:     &start,
			CurrentPeriodEnd:       &end,
		},
	}
}

func TestStartCheckout_CreatesCustomerOnFirstUse(t *testing.T) {
	accountRepo := new(MockAccountRepository)
	planRepo := new(MockPlanRepository)
	gw := new(MockPaymentGateway)
	svc := newSubscriptionService(accountRepo, planRepo, gw)

	accountID := uuid.New()
	account := &model.Account{ID: accountID, Email: "user@example.com"}

	accountRepo.On("GetByID", mock.Anything, accountID).Return(account, nil)
	gw.On("CreateCustomer", mock.Anything, &gateway.CreateCustomerRequest{
		AccountID: accountID.String(),
		Email:     "user@example.com",
	}).Return("cus_new", nil)
	// The customer id must be persisted before any session is created
	accountRepo.On("SetCustomerID", mock.Anything, accountID, "cus_new").Return(nil)
	gw.On("CreateCheckoutSession", mock.Anything, mock.MatchedBy(func(req *gateway.CheckoutSessionRequest) bool {
		return req.CustomerID == "cus_new" &&
			req.PriceID == "price_basic" &&
			req.AccountID == accountID.String() &&
			req.SuccessURL == "https://app.example.com/billing/success"
	})).Return(&gateway.CheckoutSession{ID: "cs_123", URL: "https://checkout.example.com/cs_123"}, nil)

	result, err := svc.StartCheckout(context.Background(), accountID, "user@example.com", "price_basic", "", "")
	require.NoError(t, err)
	assert.Equal(t, "cs_123", result.SessionID)
	assert.Equal(t, "https://checkout.example.com/cs_123", result.RedirectURL)

	accountRepo.AssertExpectations(t)
	gw.AssertExpectations(t)
	// Checkout never writes subscription fields
	accountRepo.AssertNotCalled(t, "ReplaceSubscription", mock.Anything, mock.Anything, mock.Anything)
}

func TestStartCheckout_ReusesStoredCustomer(t *testing.T) {
	accountRepo := new(MockAccountRepository)
	planRepo := new(MockPlanRepository)
	gw := new(MockPaymentGateway)
	svc := newSubscriptionService(accountRepo, planRepo, gw)

	accountID := uuid.New()
	account := activeAccount(accountID)

	accountRepo.On("GetByID", mock.Anything, accountID).Return(account, nil)
	gw.On("CreateCheckoutSession", mock.Anything, mock.MatchedBy(func(req *gateway.CheckoutSessionRequest) bool {
		return req.CustomerID == "cus_123"
	})).Return(&gateway.CheckoutSession{ID: "cs_456", URL: "https://checkout.example.com/cs_456"}, nil)

	_, err := svc.StartCheckout(context.Background(), accountID, "user@example.com", "price_basic", "", "")
	require.NoError(t, err)

	gw.AssertNotCalled(t, "CreateCustomer", mock.Anything, mock.Anything)
}

func TestStartCheckout_ProvisionsMissingAccount(t *testing.T) {
	accountRepo := new(MockAccountRepository)
	planRepo := new(MockPlanRepository)
	gw := new(MockPaymentGateway)
	svc := newSubscriptionService(accountRepo, planRepo, gw)

	accountID := uuid.New()

	accountRepo.On("GetByID", mock.Anything, accountID).Return(nil, nil)
	accountRepo.On("Create", mock.Anything, mock.MatchedBy(func(a *model.Account) bool {
		return a.ID == accountID && a.Email == "new@example.com"
	})).Return(nil)
	gw.On("CreateCustomer", mock.Anything, mock.Anything).Return("cus_new", nil)
	accountRepo.On("SetCustomerID", mock.Anything, accountID, "cus_new").Return(nil)
	gw.On("CreateCheckoutSession", mock.Anything, mock.Anything).
		Return(&gateway.CheckoutSession{ID: "cs_789", URL: "https://checkout.example.com/cs_789"}, nil)

	_, err := svc.StartCheckout(context.Background(), accountID, "new@example.com", "price_basic", "", "")
	require.NoError(t, err)
	accountRepo.AssertExpectations(t)
}

func TestStartCheckout_CustomerPersistFailureAbortsSession(t *testing.T) {
	accountRepo := new(MockAccountRepository)
	planRepo := new(MockPlanRepository)
	gw := new(MockPaymentGateway)
	svc := newSubscriptionService(accountRepo, planRepo, gw)

	accountID := uuid.New()
	account := &model.Account{ID: accountID, Email: "user@example.com"}

	accountRepo.On("GetByID", mock.Anything, accountID).Return(account, nil)
	gw.On("CreateCustomer", mock.Anything, mock.Anything).Return("cus_new", nil)
	accountRepo.On("SetCustomerID", mock.Anything, accountID, "cus_new").Return(assert.AnError)

	_, err := svc.StartCheckout(context.Background(), accountID, "user@example.com", "price_basic", "", "")
	require.Error(t, err)

	gw.AssertNotCalled(t, "CreateCheckoutSession", mock.Anything, mock.Anything)
}

func TestChangePlan_MirrorsPlanAndPeriod(t *testing.T) {
	accountRepo := new(MockAccountRepository)
	planRepo := new(MockPlanRepository)
	gw := new(MockPaymentGateway)
	svc := newSubscriptionService(accountRepo, planRepo, gw)

	accountID := uuid.New()
	account := activeAccount(accountID)

	newStart := time.Date(2026, 8, 15, 0, 0, 0, 0, time.UTC)
	newEnd := newStart.AddDate(0, 1, 0)

	accountRepo.On("GetByID", mock.Anything, accountID).Return(account, nil)
	planRepo.On("GetByPriceID", mock.Anything, "price_pro").Return(&model.Plan{
		ID: 2, Code: "pro", DisplayName: "Pro", ProviderPriceID: "price_pro", IsActive: true,
	}, nil)
	gw.On("GetSubscription", mock.Anything, "sub_123").Return(&gateway.Subscription{
		ID: "sub_123", ItemID: "si_123", PriceID: "price_basic",
	}, nil)
	gw.On("ChangeSubscriptionPrice", mock.Anything, "sub_123", "si_123", "price_pro").Return(&gateway.Subscription{
		ID: "sub_123", PriceID: "price_pro", CurrentPeriodStart: newStart, CurrentPeriodEnd: newEnd,
	}, nil)
	accountRepo.On("MirrorPlanChange", mock.Anything, accountID, int64(2), "price_pro", newStart, newEnd).Return(nil)

	result, err := svc.ChangePlan(context.Background(), accountID, "price_pro")
	require.NoError(t, err)
	assert.Equal(t, "pro", result.PlanCode)
	assert.Equal(t, newStart, result.CurrentPeriodStart)
	assert.Equal(t, newEnd, result.CurrentPeriodEnd)

	accountRepo.AssertExpectations(t)
	gw.AssertExpectations(t)
}

func TestChangePlan_UnknownPriceLeavesEverythingUntouched(t *testing.T) {
	accountRepo := new(MockAccountRepository)
	planRepo := new(MockPlanRepository)
	gw := new(MockPaymentGateway)
	svc := newSubscriptionService(accountRepo, planRepo, gw)

	accountID := uuid.New()
	accountRepo.On("GetByID", mock.Anything, accountID).Return(activeAccount(accountID), nil)
	planRepo.On("GetByPriceID", mock.Anything, "price_ghost").Return(nil, nil)

	_, err := svc.ChangePlan(context.Background(), accountID, "price_ghost")
	assert.True(t, apperrors.Is(err, apperrors.ErrPlanNotFound))

	gw.AssertNotCalled(t, "ChangeSubscriptionPrice", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	accountRepo.AssertNotCalled(t, "MirrorPlanChange", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestChangePlan_NoSubscription(t *testing.T) {
	accountRepo := new(MockAccountRepository)
	planRepo := new(MockPlanRepository)
	gw := new(MockPaymentGateway)
	svc := newSubscriptionService(accountRepo, planRepo, gw)

	accountID := uuid.New()
	accountRepo.On("GetByID", mock.Anything, accountID).
		Return(&model.Account{ID: accountID, Email: "user@example.com"}, nil)

	_, err := svc.ChangePlan(context.Background(), accountID, "price_pro")
	assert.True(t, apperrors.Is(err, apperrors.ErrNoSubscription))
}

func TestCancel_FlagsWithoutStatusChange(t *testing.T) {
	accountRepo := new(MockAccountRepository)
	planRepo := new(MockPlanRepository)
	gw := new(MockPaymentGateway)
	svc := newSubscriptionService(accountRepo, planRepo, gw)

	accountID := uuid.New()
	account := activeAccount(accountID)
	periodEnd := *account.Subscription.CurrentPeriodEnd

	accountRepo.On("GetByID", mock.Anything, accountID).Return(account, nil)
	gw.On("SetCancelAtPeriodEnd", mock.Anything, "sub_123", true).Return(&gateway.Subscription{
		ID: "sub_123", CancelAtPeriodEnd: true, CurrentPeriodEnd: periodEnd,
	}, nil)
	accountRepo.On("MarkCancelPending", mock.Anything, accountID, mock.AnythingOfType("time.Time")).Return(nil)

	result, err := svc.Cancel(context.Background(), accountID)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now(), result.CancelledAt, 5*time.Second)
	require.NotNil(t, result.PeriodEnd)
	assert.Equal(t, periodEnd, *result.PeriodEnd)

	accountRepo.AssertExpectations(t)
}

func TestCancel_DuringTrialSchedulesEndOfTrialCancellation(t *testing.T) {
	accountRepo := new(MockAccountRepository)
	planRepo := new(MockPlanRepository)
	gw := new(MockPaymentGateway)
	svc := newSubscriptionService(accountRepo, planRepo, gw)

	accountID := uuid.New()
	account := activeAccount(accountID)
	trialEnd := time.Date(2026, 9, 12, 0, 0, 0, 0, time.UTC)
	account.Subscription.Status = model.SubscriptionStatusTrialing
	account.Subscription.TrialEnd = &trialEnd

	accountRepo.On("GetByID", mock.Anything, accountID).Return(account, nil)
	// During a trial the processor reports the trial end as the period end,
	// so the scheduled cancellation lands when the trial expires.
	gw.On("SetCancelAtPeriodEnd", mock.Anything, "sub_123", true).Return(&gateway.Subscription{
		ID: "sub_123", Status: model.SubscriptionStatusTrialing,
		CancelAtPeriodEnd: true, CurrentPeriodEnd: trialEnd,
	}, nil)
	accountRepo.On("MarkCancelPending", mock.Anything, accountID, mock.AnythingOfType("time.Time")).Return(nil)

	result, err := svc.Cancel(context.Background(), accountID)
	require.NoError(t, err)
	require.NotNil(t, result.PeriodEnd)
	assert.Equal(t, trialEnd, *result.PeriodEnd)

	accountRepo.AssertExpectations(t)
}

func TestReactivate_WithoutPendingCancelFailsBeforeAnyMutation(t *testing.T) {
	accountRepo := new(MockAccountRepository)
	planRepo := new(MockPlanRepository)
	gw := new(MockPaymentGateway)
	svc := newSubscriptionService(accountRepo, planRepo, gw)

	accountID := uuid.New()
	account := activeAccount(accountID)
	account.Subscription.CancelAtPeriodEnd = false

	accountRepo.On("GetByID", mock.Anything, accountID).Return(account, nil)

	err := svc.Reactivate(context.Background(), accountID)
	assert.True(t, apperrors.Is(err, apperrors.ErrNotCancelPending))

	gw.AssertNotCalled(t, "SetCancelAtPeriodEnd", mock.Anything, mock.Anything, mock.Anything)
	accountRepo.AssertNotCalled(t, "ClearCancelPending", mock.Anything, mock.Anything)
}

func TestReactivate_ClearsPendingCancel(t *testing.T) {
	accountRepo := new(MockAccountRepository)
	planRepo := new(MockPlanRepository)
	gw := new(MockPaymentGateway)
	svc := newSubscriptionService(accountRepo, planRepo, gw)

	accountID := uuid.New()
	account := activeAccount(accountID)
	account.Subscription.CancelAtPeriodEnd = true

	accountRepo.On("GetByID", mock.Anything, accountID).Return(account, nil)
	gw.On("SetCancelAtPeriodEnd", mock.Anything, "sub_123", false).Return(&gateway.Subscription{ID: "sub_123"}, nil)
	accountRepo.On("ClearCancelPending", mock.Anything, accountID).Return(nil)

	err := svc.Reactivate(context.Background(), accountID)
	require.NoError(t, err)
	accountRepo.AssertExpectations(t)
	gw.AssertExpectations(t)
}

func TestExtendTrial_ShiftsOnceByConfiguredWindow(t *testing.T) {
	accountRepo := new(MockAccountRepository)
	planRepo := new(MockPlanRepository)
	gw := new(MockPaymentGateway)
	svc := newSubscriptionService(accountRepo, planRepo, gw)

	accountID := uuid.New()
	account := activeAccount(accountID)
	account.Subscription.Status = model.SubscriptionStatusTrialing

	trialEnd := time.Date(2026, 9, 5, 12, 0, 0, 0, time.UTC)
	wantTrialEnd := trialEnd.Add(7 * 24 * time.Hour)

	accountRepo.On("GetByID", mock.Anything, accountID).Return(account, nil)
	gw.On("GetSubscription", mock.Anything, "sub_123").Return(&gateway.Subscription{
		ID: "sub_123", TrialEnd: &trialEnd,
	}, nil)
	gw.On("SetTrialEnd", mock.Anything, "sub_123", wantTrialEnd).Return(&gateway.Subscription{
		ID: "sub_123", TrialEnd: &wantTrialEnd,
	}, nil)
	accountRepo.On("ExtendTrial", mock.Anything, accountID, wantTrialEnd).Return(nil)

	got, err := svc.ExtendTrial(context.Background(), accountID)
	require.NoError(t, err)
	assert.Equal(t, wantTrialEnd, got)

	accountRepo.AssertExpectations(t)
	gw.AssertExpectations(t)
}

func TestExtendTrial_SecondAttemptRejected(t *testing.T) {
	accountRepo := new(MockAccountRepository)
	planRepo := new(MockPlanRepository)
	gw := new(MockPaymentGateway)
	svc := newSubscriptionService(accountRepo, planRepo, gw)

	accountID := uuid.New()
	account := activeAccount(accountID)
	account.Subscription.Status = model.SubscriptionStatusTrialing
	account.Subscription.TrialExtended = true

	accountRepo.On("GetByID", mock.Anything, accountID).Return(account, nil)

	_, err := svc.ExtendTrial(context.Background(), accountID)
	assert.True(t, apperrors.Is(err, apperrors.ErrTrialAlreadyExtended))

	gw.AssertNotCalled(t, "SetTrialEnd", mock.Anything, mock.Anything, mock.Anything)
}

func TestExtendTrial_NotTrialing(t *testing.T) {
	accountRepo := new(MockAccountRepository)
	planRepo := new(MockPlanRepository)
	gw := new(MockPaymentGateway)
	svc := newSubscriptionService(accountRepo, planRepo, gw)

	accountID := uuid.New()
	accountRepo.On("GetByID", mock.Anything, accountID).Return(activeAccount(accountID), nil)

	_, err := svc.ExtendTrial(context.Background(), accountID)
	assert.True(t, apperrors.Is(err, apperrors.ErrNotTrialing))
}

func TestExtendTrial_NoTrialEndReported(t *testing.T) {
	accountRepo := new(MockAccountRepository)
	planRepo := new(MockPlanRepository)
	gw := new(MockPaymentGateway)
	svc := newSubscriptionService(accountRepo, planRepo, gw)

	accountID := uuid.New()
	account := activeAccount(accountID)
	account.Subscription.Status = model.SubscriptionStatusTrialing

	accountRepo.On("GetByID", mock.Anything, accountID).Return(account, nil)
	gw.On("GetSubscription", mock.Anything, "sub_123").Return(&gateway.Subscription{ID: "sub_123"}, nil)

	_, err := svc.ExtendTrial(context.Background(), accountID)
	assert.True(t, apperrors.Is(err, apperrors.ErrNoTrialEnd))

	accountRepo.AssertNotCalled(t, "ExtendTrial", mock.Anything, mock.Anything, mock.Anything)
}

func TestUpdatePaymentMethod_RunsFullSequence(t *testing.T) {
	accountRepo := new(MockAccountRepository)
	planRepo := new(MockPlanRepository)
	gw := new(MockPaymentGateway)
	svc := newSubscriptionService(accountRepo, planRepo, gw)

	accountID := uuid.New()
	accountRepo.On("GetByID", mock.Anything, accountID).Return(activeAccount(accountID), nil)
	gw.On("AttachPaymentMethod", mock.Anything, "cus_123", "pm_token").Return(nil)
	gw.On("SetDefaultPaymentMethod", mock.Anything, "cus_123", "pm_token").Return(nil)
	gw.On("SetSubscriptionPaymentMethod", mock.Anything, "sub_123", "pm_token").Return(nil)

	err := svc.UpdatePaymentMethod(context.Background(), accountID, "pm_token")
	require.NoError(t, err)
	gw.AssertExpectations(t)
}

func TestUpdatePaymentMethod_RequiresCustomer(t *testing.T) {
	accountRepo := new(MockAccountRepository)
	planRepo := new(MockPlanRepository)
	gw := new(MockPaymentGateway)
	svc := newSubscriptionService(accountRepo, planRepo, gw)

	accountID := uuid.New()
	accountRepo.On("GetByID", mock.Anything, accountID).
		Return(&model.Account{ID: accountID, Email: "user@example.com"}, nil)

	err := svc.UpdatePaymentMethod(context.Background(), accountID, "pm_token")
	assert.True(t, apperrors.Is(err, apperrors.ErrNoCustomer))

	gw.AssertNotCalled(t, "AttachPaymentMethod", mock.Anything, mock.Anything, mock.Anything)
}
