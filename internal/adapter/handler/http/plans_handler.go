package http

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/studyloop/billing-service/internal/domain/model"
	"github.com/studyloop/billing-service/internal/usecase"
)

type PlansHandler struct {
	logger      *zap.Logger
	planService *usecase.PlanService
}

func NewPlansHandler(logger *zap.Logger, planService *usecase.PlanService) *PlansHandler {
	return &PlansHandler{
		logger:      logger,
		planService: planService,
	}
}

type PlanResponse struct {
	Code        string         `json:"code"`
	DisplayName string         `json:"display_name"`
	TrialDays   int            `json:"trial_days"`
	Features    model.Features `json:"features,omitempty"`
}

// ListPlans returns the browsable plan catalog. No authentication required.
func (h *PlansHandler) ListPlans(c echo.Context) error {
	plans, err := h.planService.ListActive(c.Request().Context())
	if err != nil {
		return respondError(c, h.logger, err)
	}

	resp := make([]PlanResponse, 0, len(plans))
	for _, plan := range plans {
		resp = append(resp, PlanResponse{
			Code:        plan.Code,
			DisplayName: plan.DisplayName,
			TrialDays:   plan.TrialDays,
			Features:    plan.Features,
		})
	}

	return c.JSON(http.StatusOK, echo.Map{"plans": resp})
}
