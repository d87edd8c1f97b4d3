package repository

import (
	"context"

	"github.com/studyloop/billing-service/internal/domain/model"
)

// PlanRepository reads the plan catalog. The catalog is reference data: this
// service never writes it.
type PlanRepository interface {
	// GetByPriceID returns the plan backing a processor price id, or
	// (nil, nil) when the price is not registered.
	GetByPriceID(ctx context.Context, priceID string) (*model.Plan, error)

	// GetByCode returns the plan with the given code, or (nil, nil) when no
	// such plan exists.
	GetByCode(ctx context.Context, code string) (*model.Plan, error)

	// GetByID returns the plan with the given id, or (nil, nil) when no such
	// plan exists.
	GetByID(ctx context.Context, id int64) (*model.Plan, error)

	// ListActive returns all active plans in display order.
	ListActive(ctx context.Context) ([]*model.Plan, error)
}
