package pkg

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/SAP-F-2025/submission-service/internal/config"
	"github.com/SAP-F-2025/submission-service/internal/models"
)

const (
	defaultReviewerUsername = "admin"
	defaultReviewerPassword = "admin"
	defaultReviewerEmail    = "admin@example.com"
)

// InitDatabase opens the database, runs migrations and seeds the default
// reviewer account when the users table is empty of reviewers.
func InitDatabase(cfg *config.Config) (*gorm.DB, error) {
	logLevel := logger.Warn
	if cfg.Environment == "development" {
		logLevel = logger.Info
	}

	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.AutoMigrate(&models.User{}, &models.Submission{}); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	if err := seedDefaultReviewer(db, cfg); err != nil {
		return nil, fmt.Errorf("failed to seed default reviewer: %w", err)
	}

	return db, nil
}

// seedDefaultReviewer guarantees at least one reviewer-class account exists
// so a fresh deployment can elevate further users. The default credentials
// are meant to be rotated immediately.
func seedDefaultReviewer(db *gorm.DB, cfg *config.Config) error {
	var existing models.User
	err := db.Where("username = ?", defaultReviewerUsername).First(&existing).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(defaultReviewerPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	email := cfg.Notifier.FallbackReviewerEmail
	if email == "" {
		email = defaultReviewerEmail
	}

	reviewer := &models.User{
		Username:     defaultReviewerUsername,
		FullName:     "Default Reviewer",
		Email:        &email,
		Role:         models.RoleReviewer,
		PasswordHash: string(hash),
	}
	return db.Create(reviewer).Error
}
