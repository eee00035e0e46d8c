package pkg

import (
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/schoolpd/assessment-service/internal/config"
	"github.com/schoolpd/assessment-service/internal/models"
)

// InitDatabase opens the postgres connection, runs migrations, and creates
// the indexes GORM tags cannot express.
func InitDatabase(cfg *config.Config) (*gorm.DB, error) {
	logMode := gormlogger.Warn
	if cfg.Environment == "development" {
		logMode = gormlogger.Info
	}

	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(logMode),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql db: %w", err)
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	if err := migrate(db); err != nil {
		return nil, err
	}

	return db, nil
}

func migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.Assessment{},
		&models.Question{},
		&models.AssignmentRule{},
		&models.Attempt{},
	)
	if err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}

	// At most one in-progress attempt per user and assessment. A partial
	// unique index cannot be declared via struct tags, so create it here.
	err = db.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS idx_attempts_one_active
		ON attempts (assessment_id, user_id)
		WHERE status = 'in_progress'
	`).Error
	if err != nil {
		return fmt.Errorf("create active-attempt index: %w", err)
	}

	return nil
}
