package http

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	apperrors "github.com/studyloop/billing-service/internal/domain/errors"
	"github.com/studyloop/billing-service/internal/middleware/auth"
	"github.com/studyloop/billing-service/internal/usecase"
)

type SubscriptionHandler struct {
	logger              *zap.Logger
	subscriptionService *usecase.SubscriptionService
	planService         *usecase.PlanService
}

func NewSubscriptionHandler(
	logger *zap.Logger,
	subscriptionService *usecase.SubscriptionService,
	planService *usecase.PlanService,
) *SubscriptionHandler {
	return &SubscriptionHandler{
		logger:              logger,
		subscriptionService: subscriptionService,
		planService:         planService,
	}
}

type SubscriptionResponse struct {
	Status                string     `json:"status"`
	PlanCode              string     `json:"plan_code,omitempty"`
	PlanDisplayName       string     `json:"plan_display_name,omitempty"`
	CurrentPeriodStart    *time.Time `json:"current_period_start,omitempty"`
	CurrentPeriodEnd      *time.Time `json:"current_period_end,omitempty"`
	CancelAtPeriodEnd     bool       `json:"cancel_at_period_end"`
	CancelledAt           *time.Time `json:"cancelled_at,omitempty"`
	TrialEnd              *time.Time `json:"trial_end,omitempty"`
	TrialExtended         bool       `json:"trial_extended"`
	FailedPaymentAttempts int        `json:"failed_payment_attempts"`
	LastPaymentError      *string    `json:"last_payment_error,omitempty"`
}

// GetCurrentSubscription returns the locally mirrored subscription state.
// Accounts without a subscription get 204.
func (h *SubscriptionHandler) GetCurrentSubscription(c echo.Context) error {
	user, err := auth.RequireAuth(c)
	if err != nil {
		return err
	}

	ctx := c.Request().Context()
	account, err := h.subscriptionService.GetAccount(ctx, user.AccountID)
	if err != nil {
		if apperrors.Is(err, apperrors.ErrAccountNotFound) {
			return c.NoContent(http.StatusNoContent)
		}
		return respondError(c, h.logger, err)
	}

	sub := account.Subscription
	if !sub.Exists() {
		return c.NoContent(http.StatusNoContent)
	}

	resp := SubscriptionResponse{
		Status:                string(sub.Status),
		CurrentPeriodStart:    sub.CurrentPeriodStart,
		CurrentPeriodEnd:      sub.CurrentPeriodEnd,
		CancelAtPeriodEnd:     sub.CancelAtPeriodEnd,
		CancelledAt:           sub.CancelledAt,
		TrialEnd:              sub.TrialEnd,
		TrialExtended:         sub.TrialExtended,
		FailedPaymentAttempts: sub.FailedPaymentAttempts,
		LastPaymentError:      sub.LastPaymentError,
	}

	if sub.PlanID != nil {
		plan, err := h.planService.Describe(ctx, *sub.PlanID)
		if err != nil {
			return respondError(c, h.logger, err)
		}
		if plan != nil {
			resp.PlanCode = plan.Code
			resp.PlanDisplayName = plan.DisplayName
		}
	}

	return c.JSON(http.StatusOK, resp)
}

type ChangePlanRequest struct {
	PlanCode string `json:"plan_code" validate:"required"`
}

// ChangePlan switches the subscription to another catalog plan with prorated
// billing.
func (h *SubscriptionHandler) ChangePlan(c echo.Context) error {
	user, err := auth.RequireAuth(c)
	if err != nil {
		return err
	}

	var req ChangePlanRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": "Invalid request body",
			"code":  "VALIDATION",
		})
	}
	if err := c.Validate(&req); err != nil {
		return respondError(c, h.logger, err)
	}

	ctx := c.Request().Context()

	plan, err := h.planService.ResolveCode(ctx, req.PlanCode)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	result, err := h.subscriptionService.ChangePlan(ctx, user.AccountID, plan.ProviderPriceID)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return c.JSON(http.StatusOK, result)
}

// CancelSubscription schedules cancellation at the period end. The
// subscription keeps serving until the processor confirms termination.
func (h *SubscriptionHandler) CancelSubscription(c echo.Context) error {
	user, err := auth.RequireAuth(c)
	if err != nil {
		return err
	}

	result, err := h.subscriptionService.Cancel(c.Request().Context(), user.AccountID)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return c.JSON(http.StatusOK, result)
}

// ReactivateSubscription withdraws a pending cancellation
func (h *SubscriptionHandler) ReactivateSubscription(c echo.Context) error {
	user, err := auth.RequireAuth(c)
	if err != nil {
		return err
	}

	if err := h.subscriptionService.Reactivate(c.Request().Context(), user.AccountID); err != nil {
		return respondError(c, h.logger, err)
	}

	return c.JSON(http.StatusOK, echo.Map{"status": "reactivated"})
}

// ExtendTrial pushes the trial end out once per subscription
func (h *SubscriptionHandler) ExtendTrial(c echo.Context) error {
	user, err := auth.RequireAuth(c)
	if err != nil {
		return err
	}

	newTrialEnd, err := h.subscriptionService.ExtendTrial(c.Request().Context(), user.AccountID)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return c.JSON(http.StatusOK, echo.Map{"trial_end": newTrialEnd})
}

type UpdatePaymentMethodRequest struct {
	PaymentMethodToken string `json:"payment_method_token" validate:"required"`
}

// UpdatePaymentMethod swaps the payment instrument behind the subscription.
// No subscription fields change locally.
func (h *SubscriptionHandler) UpdatePaymentMethod(c echo.Context) error {
	user, err := auth.RequireAuth(c)
	if err != nil {
		return err
	}

	var req UpdatePaymentMethodRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": "Invalid request body",
			"code":  "VALIDATION",
		})
	}
	if err := c.Validate(&req); err != nil {
		return respondError(c, h.logger, err)
	}

	if err := h.subscriptionService.UpdatePaymentMethod(c.Request().Context(), user.AccountID, req.PaymentMethodToken); err != nil {
		return respondError(c, h.logger, err)
	}

	return c.JSON(http.StatusOK, echo.Map{"status": "updated"})
}

type InvoiceResponse struct {
	ID        string    `json:"id"`
	Status    string    `json:"status"`
	Amount    string    `json:"amount"`
	Currency  string    `json:"currency"`
	HostedURL string    `json:"hosted_url,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// ListInvoices returns recent invoice history from the processor
func (h *SubscriptionHandler) ListInvoices(c echo.Context) error {
	user, err := auth.RequireAuth(c)
	if err != nil {
		return err
	}

	invoices, err := h.subscriptionService.ListInvoices(c.Request().Context(), user.AccountID)
	if err != nil {
		if apperrors.Is(err, apperrors.ErrAccountNotFound) || apperrors.Is(err, apperrors.ErrNoCustomer) {
			return c.JSON(http.StatusOK, echo.Map{"invoices": []InvoiceResponse{}})
		}
		return respondError(c, h.logger, err)
	}

	resp := make([]InvoiceResponse, 0, len(invoices))
	for _, inv := range invoices {
		amount := inv.AmountDue
		if inv.Status == "paid" {
			amount = inv.AmountPaid
		}
		resp = append(resp, InvoiceResponse{
			ID:        inv.ID,
			Status:    inv.Status,
			Amount:    amount.String(),
			Currency:  inv.Currency,
			HostedURL: inv.HostedURL,
			CreatedAt: inv.CreatedAt,
		})
	}

	return c.JSON(http.StatusOK, echo.Map{"invoices": resp})
}
