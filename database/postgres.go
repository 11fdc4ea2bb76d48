package database

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"debt-splitter/config"
	"debt-splitter/logging"
	"debt-splitter/models"

	"github.com/lib/pq"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

// Connect opens Postgres through lib/pq, hands the pool to gorm and migrates
// the schema.
func Connect() error {
	sqlDB, err := sql.Open("postgres", config.AppConfig.DatabaseURL)
	if err != nil {
		return fmt.Errorf("open postgres: %w", err)
	}
	sqlDB.SetMaxOpenConns(20)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	logLevel := logger.Info
	if config.AppConfig.IsProduction() {
		logLevel = logger.Warn
	}

	DB, err = gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	})
	if err != nil {
		sqlDB.Close()
		return fmt.Errorf("open gorm: %w", err)
	}

	logging.L().Info("✅ Database connected successfully")

	err = DB.AutoMigrate(
		&models.User{},
		&models.Group{},
		&models.GroupMember{},
		&models.Expense{},
		&models.Debt{},
	)
	if err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}

	logging.L().Info("✅ Database migrated successfully")
	return nil
}

// Close releases the connection pool.
func Close() {
	if DB == nil {
		return
	}
	if sqlDB, err := DB.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			logging.L().Warn("closing database", zap.Error(err))
		}
	}
}

// IsUniqueViolation reports whether err is a Postgres unique_violation.
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
