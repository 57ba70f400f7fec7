// Package repository provides data persistence functionality using GORM
package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/Koyo-os/questionnaire-service/internal/entity"
	"github.com/Koyo-os/questionnaire-service/pkg/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Repository handles database operations using GORM
type Repository struct {
	db     *gorm.DB
	logger *logger.Logger
}

// Open connects to the database named by driver ("sqlite" or "mysql")
func Open(driver, dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector

	switch driver {
	case "sqlite":
		dialector = sqlite.Open(dsn)
	case "mysql":
		dialector = mysql.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported driver %q", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}

	return db, nil
}

// Init creates and returns a new Repository instance
func Init(db *gorm.DB, logger *logger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Migrate creates or updates the questionnaire tables
func (repo *Repository) Migrate() error {
	if err := repo.db.AutoMigrate(
		&entity.QuestionnaireRecord{},
		&entity.QuestionRecord{},
		&entity.OptionRecord{},
	); err != nil {
		repo.logger.Error("error migrate schema", zap.Error(err))
		return fmt.Errorf("migrate: %w", err)
	}

	return nil
}

// Create persists a questionnaire together with its questions and options
// in one transaction
func (repo *Repository) Create(ctx context.Context, record *entity.QuestionnaireRecord) error {
	res := repo.db.WithContext(ctx).Create(record)

	if err := res.Error; err != nil {
		repo.logger.Error("error create questionnaire",
			zap.String("questionnaire_id", record.ID.String()),
			zap.Error(err))
		return fmt.Errorf("create questionnaire: %w", err)
	}

	return nil
}

// Get retrieves a questionnaire by its ID with children in position order.
// Unknown ids yield entity.ErrQuestionnaireNotFound.
func (repo *Repository) Get(ctx context.Context, ID uuid.UUID) (*entity.QuestionnaireRecord, error) {
	var record entity.QuestionnaireRecord

	byPosition := func(db *gorm.DB) *gorm.DB {
		return db.Order("position")
	}

	res := repo.db.WithContext(ctx).
		Preload("Questions", byPosition).
		Preload("Questions.Options", byPosition).
		Where("id = ?", ID).
		First(&record)
	if err := res.Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, entity.ErrQuestionnaireNotFound
		}

		repo.logger.Error("error get questionnaire",
			zap.String("questionnaire_id", ID.String()),
			zap.Error(err),
		)
		return nil, fmt.Errorf("get questionnaire: %w", err)
	}

	return &record, nil
}

// IsHealthy pings the underlying connection pool
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
