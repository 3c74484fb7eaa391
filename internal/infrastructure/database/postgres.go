package database

import (
	"fmt"

	"clinic-dashboard/config"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DSN builds the libpq connection string for cfg.
func DSN(cfg config.DBConfig) string {
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=UTC",
		cfg.Host, cfg.User, cfg.Password, cfg.Name, cfg.Port,
	)
}

func NewPostgresConnection(cfg config.DBConfig, env string) (*gorm.DB, error) {
	logMode := logger.Warn
	if env == "development" {
		logMode = logger.Info
	}

	db, err := gorm.Open(postgres.Open(DSN(cfg)), &gorm.Config{
		Logger: logger.Default.LogMode(logMode),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}

	// The dashboard only reads; a small pool is enough.
	sqlDB.SetMaxIdleConns(2)
	sqlDB.SetMaxOpenConns(10)

	logrus.Info("Successfully connected to PostgreSQL database")

	return db, nil
}
