package db

import (
	"fmt"

	"github.com/calstars/calories-backend/internal/models"
	"gorm.io/gorm"
)

// Migrate runs database migrations for the current dialect.
func Migrate(conn *gorm.DB) error {
	if conn == nil {
		return fmt.Errorf("db: nil connection")
	}
	switch DialectName(conn) {
	case DialectSQLite, DialectPostgres, "":
	default:
		return fmt.Errorf("db: unsupported dialect: %s", DialectName(conn))
	}

	if IsSQLite(conn) {
		// Concurrent requests share one pooled connection; let writers wait
		// instead of failing with SQLITE_BUSY.
		if errPragma := conn.Exec(`PRAGMA busy_timeout = 5000`).Error; errPragma != nil {
			return fmt.Errorf("db: set busy_timeout: %w", errPragma)
		}
	}

	if errAutoMigrate := conn.AutoMigrate(
		&models.User{},
		&models.Meal{},
		&models.Payment{},
	); errAutoMigrate != nil {
		return fmt.Errorf("db: migrate: %w", errAutoMigrate)
	}

	// Meals are read by owner and timestamp range together.
	if errIndex := conn.Exec(`
		CREATE INDEX IF NOT EXISTS idx_meals_owner_ts
		ON meals (telegram_id, ts)
	`).Error; errIndex != nil {
		return fmt.Errorf("db: create meals index: %w", errIndex)
	}
	return nil
}
