// Package repository provides data persistence functionality using GORM
package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/Koyo-os/docusurvey/internal/entity"
	"github.com/Koyo-os/docusurvey/pkg/logger"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Repository handles database operations using GORM
type Repository struct {
	db     *gorm.DB
	logger *logger.Logger
}

// Init creates and returns a new Repository instance
func Init(db *gorm.DB, logger *logger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Open connects to a SQL database through the GORM dialect named by driver
// (sqlite, mysql or postgres).
func Open(driver, dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector

	switch driver {
	case "sqlite":
		dialector = sqlite.Open(dsn)
	case "mysql":
		dialector = mysql.Open(dsn)
	case "postgres":
		dialector = postgres.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported sql driver %q", driver)
	}

	return gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
}

// AutoMigrate creates the survey and response tables when they are missing.
func (repo *Repository) AutoMigrate() error {
	if err := repo.db.AutoMigrate(&entity.Survey{}, &entity.Response{}); err != nil {
		repo.logger.Error("error auto migrate", zap.Error(err))
		return err
	}
	return nil
}

func (repo *Repository) IsHealthy() bool {
	sqlDB, err := repo.db.DB()
	if err != nil {
		return false
	}
	return sqlDB.Ping() == nil
}

func (repo *Repository) Close() error {
	sqlDB, err := repo.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// classify maps GORM errors onto the entity error kinds.
func classify(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: %v", entity.ErrNotFound, err)
	}
	return fmt.Errorf("%w: %v", entity.ErrStore, err)
}

func (repo *Repository) withContext(ctx context.Context) *gorm.DB {
	return repo.db.WithContext(ctx)
}
