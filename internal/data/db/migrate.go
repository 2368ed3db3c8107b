package db

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/govairn/govairn-backend/internal/domain"
)

func AutoMigrateAll(db *gorm.DB) error {
	if err := db.AutoMigrate(domain.Models()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return EnsureIndexes(db)
}

// EnsureIndexes creates the indexes gorm tags cannot express. Both
// statements are valid in Postgres and SQLite.
func EnsureIndexes(db *gorm.DB) error {
	stmts := []string{
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_personas_one_active ON personas (user_id) WHERE is_active`,
		`CREATE INDEX IF NOT EXISTS idx_ai_queue_claim ON ai_processing_queue (status, next_attempt_at)`,
	}
	for _, stmt := range stmts {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("ensure index: %w", err)
		}
	}
	return nil
}

func (s *Service) AutoMigrateAll() error {
	s.log.Info("Auto migrating tables")
	return AutoMigrateAll(s.db)
}
