package database

import (
	"fmt"
	"log/slog"

	"github.com/scorecheck/backend/internal/config"
	"github.com/scorecheck/backend/internal/models"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func Connect(cfg *config.Config) (*gorm.DB, error) {
	var logLevel logger.LogLevel
	if cfg.Server.Env == "development" {
		logLevel = logger.Info
	} else {
		logLevel = logger.Silent
	}

	slog.Info("connecting to database", "driver", cfg.Database.Driver, "dsn", maskPassword(cfg.Database.DSN))

	db, err := gorm.Open(dialector(cfg.Database), &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection successful")
	return db, nil
}

func dialector(cfg config.DatabaseConfig) gorm.Dialector {
	if cfg.Driver == "mysql" {
		return mysql.Open(cfg.DSN)
	}
	return postgres.Open(cfg.DSN)
}

func maskPassword(dsn string) string {
	if len(dsn) > 20 {
		return dsn[:20] + "...***..."
	}
	return "***"
}

func Migrate(db *gorm.DB) error {
	slog.Info("running migrations")

	err := db.AutoMigrate(
		&models.Admin{},
		&models.RefreshToken{},
		&models.AuditLog{},
		&models.Exam{},
		&models.ExamDate{},
		&models.ExamShift{},
		&models.SubjectCombination{},
		&models.AnswerKey{},
		&models.PendingAnswerKey{},
		&models.MarkingScheme{},
		&models.StudentResponse{},
	)
	if err != nil {
		return err
	}

	// One key and one scheme per scope and subject.
	for _, table := range []string{"answer_keys", "marking_schemes"} {
		idx := "uq_" + table + "_scope_subject"
		if db.Migrator().HasIndex(table, idx) {
			continue
		}
		stmt := fmt.Sprintf("CREATE UNIQUE INDEX %s ON %s(exam_name, exam_year, exam_date, shift_name, subject_combination, subject)", idx, table)
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("create index %s: %w", idx, err)
		}
	}
	db.Exec("CREATE INDEX IF NOT EXISTS idx_pending_created ON pending_answer_keys(created_at)")

	return nil
}
