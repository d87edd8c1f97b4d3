package database

import (
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/studyloop/billing-service/internal/adapter/repository"
	domainRepo "github.com/studyloop/billing-service/internal/domain/repository"
)

// Repositories holds all repository instances
type Repositories struct {
	Account domainRepo.AccountRepository
	Plan    domainRepo.PlanRepository
	Webhook domainRepo.WebhookRepository
}

// NewRepositories creates new repository instances with database connection
func NewRepositories(db *gorm.DB, logger *zap.Logger) *Repositories {
	return &Repositories{
		Account: repository.NewAccountRepository(db, logger),
		Plan:    repository.NewPlanRepository(db, logger),
		Webhook: repository.NewWebhookRepository(db, logger),
	}
}
