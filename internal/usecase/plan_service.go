package usecase

import (
	"context"

	"go.uber.org/zap"

	apperrors "github.com/studyloop/billing-service/internal/domain/errors"
	"github.com/studyloop/billing-service/internal/domain/model"
	"github.com/studyloop/billing-service/internal/domain/repository"
)

// PlanService resolves processor price ids against the plan catalog.
type PlanService struct {
	planRepo repository.PlanRepository
	logger   *zap.Logger
}

// NewPlanService creates a new plan service instance
func NewPlanService(planRepo repository.PlanRepository, logger *zap.Logger) *PlanService {
	return &PlanService{
		planRepo: planRepo,
		logger:   logger,
	}
}

// Resolve translates a processor price id into its owning catalog plan. An
// unregistered price is a NOT_FOUND error, never a default plan.
func (s *PlanService) Resolve(ctx context.Context, priceID string) (*model.Plan, error) {
	plan, err := s.planRepo.GetByPriceID(ctx, priceID)
	if err != nil {
		return nil, apperrors.External("failed to resolve plan", err)
	}

	if plan == nil {
		s.logger.Warn("No plan registered for price", zap.String("price_id", priceID))
		return nil, apperrors.ErrPlanNotFound
	}

	return plan, nil
}

// ResolveCode translates a catalog plan code into its plan. Inactive plans
// cannot be selected.
func (s *PlanService) ResolveCode(ctx context.Context, code string) (*model.Plan, error) {
	plan, err := s.planRepo.GetByCode(ctx, code)
	if err != nil {
		return nil, apperrors.External("failed to resolve plan", err)
	}

	if plan == nil || !plan.IsActive {
		s.logger.Warn("No selectable plan for code", zap.String("code", code))
		return nil, apperrors.ErrPlanNotFound
	}

	return plan, nil
}

// Describe looks up a plan by id for presentation. A missing plan is
// returned as nil rather than an error so stale references degrade gracefully.
func (s *PlanService) Describe(ctx context.Context, id int64) (*model.Plan, error) {
	plan, err := s.planRepo.GetByID(ctx, id)
	if err != nil {
		return nil, apperrors.External("failed to load plan", err)
	}
	return plan, nil
}

// ListActive returns the browsable catalog
func (s *PlanService) ListActive(ctx context.Context) ([]*model.Plan, error) {
	plans, err := s.planRepo.ListActive(ctx)
	if err != nil {
		return nil, apperrors.External("failed to list plans", err)
	}

	return plans, nil
}
