package database

import (
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/studyloop/billing-service/internal/domain/model"
)

// Migrate runs database migrations
func Migrate(db *gorm.DB, logger *zap.Logger) error {
	logger.Info("Running database migrations...")

	// Custom types must exist before auto-migrate references them
	if err := createCustomTypes(db); err != nil {
		logger.Error("Failed to create custom types", zap.Error(err))
		return err
	}

	err := db.AutoMigrate(
		&model.Plan{},
		&model.Account{},
		&model.WebhookEvent{},
	)
	if err != nil {
		logger.Error("Failed to run migrations", zap.Error(err))
		return err
	}

	if err := createCustomIndexes(db); err != nil {
		logger.Error("Failed to create custom indexes", zap.Error(err))
		return err
	}

	logger.Info("Database migrations completed successfully")
	return nil
}

// createCustomTypes creates the PostgreSQL enum types backing status columns
func createCustomTypes(db *gorm.DB) error {
	statements := []string{
		`DO $$ BEGIN
			CREATE TYPE subscription_status AS ENUM ('none', 'trialing', 'active', 'past_due', 'cancelled');
		EXCEPTION
			WHEN duplicate_object THEN null;
		END $$`,
		`DO $$ BEGIN
			CREATE TYPE webhook_status AS ENUM ('pending', 'processing', 'completed', 'failed');
		EXCEPTION
			WHEN duplicate_object THEN null;
		END $$`,
	}

	for _, stmt := range statements {
		if err := db.Exec(stmt).Error; err != nil {
			return err
		}
	}
	return nil
}

// createCustomIndexes creates indexes GORM does not express in struct tags
func createCustomIndexes(db *gorm.DB) error {
	// Webhook replay lookups and the retry backlog
	if err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_webhook_events_unprocessed ON webhook_events (created_at) WHERE status IN ('pending', 'failed')`).Error; err != nil {
		return err
	}

	// Dunning lookups by subscription status
	if err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_accounts_subscription_status ON accounts (subscription_status) WHERE subscription_status <> 'none'`).Error; err != nil {
		return err
	}

	return nil
}
