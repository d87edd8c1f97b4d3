package http

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/studyloop/billing-service/internal/middleware/auth"
	"github.com/studyloop/billing-service/internal/usecase"
)

type CheckoutHandler struct {
	logger              *zap.Logger
	subscriptionService *usecase.SubscriptionService
	planService         *usecase.PlanService
}

func NewCheckoutHandler(
	logger *zap.Logger,
	subscriptionService *usecase.SubscriptionService,
	planService *usecase.PlanService,
) *CheckoutHandler {
	return &CheckoutHandler{
		logger:              logger,
		subscriptionService: subscriptionService,
		planService:         planService,
	}
}

type CreateCheckoutRequest struct {
	PlanCode   string `json:"plan_code" validate:"required"`
	SuccessURL string `json:"success_url" validate:"omitempty,url"`
	CancelURL  string `json:"cancel_url" validate:"omitempty,url"`
}

type CreateCheckoutResponse struct {
	SessionID   string `json:"session_id"`
	RedirectURL string `json:"redirect_url"`
}

// CreateCheckout starts a hosted checkout for the requested plan and returns
// the redirect URL. The subscription record appears only once the processor
// confirms completion via webhook.
func (h *CheckoutHandler) CreateCheckout(c echo.Context) error {
	user, err := auth.RequireAuth(c)
	if err != nil {
		return err
	}

	var req CreateCheckoutRequest
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

	h.logger.Info("Starting checkout",
		zap.String("account_id", user.AccountID.String()),
		zap.String("plan_code", plan.Code))

	result, err := h.subscriptionService.StartCheckout(
		ctx, user.AccountID, user.Email, plan.ProviderPriceID, req.SuccessURL, req.CancelURL)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return c.JSON(http.StatusCreated, CreateCheckoutResponse{
		SessionID:   result.SessionID,
		RedirectURL: result.RedirectURL,
	})
}
