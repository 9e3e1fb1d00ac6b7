package repositories

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/submission-service/internal/models"
)

// ===== SHARED FILTER STRUCTS =====

// SubmissionFilters is the read-side filter contract. FreeText matches
// case-insensitively across title and owner handle; date bounds are inclusive
// and apply to the target date; absent filters impose no restriction.
type SubmissionFilters struct {
	FreeText  *string                  `json:"free_text"`
	Status    *models.SubmissionStatus `json:"status"`
	Owner     *string                  `json:"owner"`
	DateFrom  *time.Time               `json:"date_from"`
	DateTo    *time.Time               `json:"date_to"`
	Limit     int                      `json:"limit"`
	Offset    int                      `json:"offset"`
	SortBy    string                   `json:"sort_by"`    // "created_at", "title", "target_date"
	SortOrder string                   `json:"sort_order"` // "asc", "desc"
}

// ===== REPOSITORY INTERFACES =====

// SubmissionRepository persists workflow entities. Mutating methods accept the
// transaction handle so the service layer can make field-update plus
// status-event persistence atomic.
type SubmissionRepository interface {
	Create(ctx context.Context, tx *gorm.DB, submission *models.Submission) error
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Submission, error)
	Update(ctx context.Context, tx *gorm.DB, submission *models.Submission) error
	Delete(ctx context.Context, tx *gorm.DB, id uint) error
	List(ctx context.Context, tx *gorm.DB, filters SubmissionFilters) ([]*models.Submission, int64, error)
	CountByOwner(ctx context.Context, tx *gorm.DB, owner string) (int64, error)
}

// UserRepository manages the users table keyed by handle.
type UserRepository interface {
	Create(ctx context.Context, tx *gorm.DB, user *models.User) error
	GetByUsername(ctx context.Context, tx *gorm.DB, username string) (*models.User, error)
	ListByRole(ctx context.Context, tx *gorm.DB, role models.UserRole) ([]*models.User, error)
	UpdateRole(ctx context.Context, tx *gorm.DB, username string, role models.UserRole) error
}
