package postgres

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/submission-service/internal/cache"
	"github.com/SAP-F-2025/submission-service/internal/models"
	"github.com/SAP-F-2025/submission-service/internal/repositories"
)

type SubmissionPostgreSQL struct {
	db           *gorm.DB
	cacheManager *cache.CacheManager
}

func NewSubmissionPostgreSQL(db *gorm.DB, cacheManager *cache.CacheManager) repositories.SubmissionRepository {
	return &SubmissionPostgreSQL{
		db:           db,
		cacheManager: cacheManager,
	}
}

// getDB returns the transaction DB if provided, otherwise the default DB
func (s *SubmissionPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return s.db
}

// Create persists a new submission and invalidates listing caches
func (s *SubmissionPostgreSQL) Create(ctx context.Context, tx *gorm.DB, submission *models.Submission) error {
	if err := s.getDB(tx).WithContext(ctx).Create(submission).Error; err != nil {
		return fmt.Errorf("failed to create submission: %w", err)
	}
	cache.InvalidateSubmissionCache(ctx, s.cacheManager, submission.ID, submission.OwnerUsername)
	return nil
}

// GetByID retrieves a submission with its owner preloaded, cache-aside
func (s *SubmissionPostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Submission, error) {
	cacheKey := fmt.Sprintf("id:%d", id)
	var submission models.Submission

	err := s.cacheManager.Submission.CacheOrExecute(ctx, cacheKey, &submission, cache.SubmissionCacheConfig.TTL, func() (interface{}, error) {
		var dbSubmission models.Submission
		err := s.getDB(tx).WithContext(ctx).
			Preload("Owner").
			First(&dbSubmission, id).Error
		if err != nil {
			return nil, err
		}
		return &dbSubmission, nil
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repositories.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get submission: %w", err)
	}

	return &submission, nil
}

// Update persists the full record and invalidates caches
func (s *SubmissionPostgreSQL) Update(ctx context.Context, tx *gorm.DB, submission *models.Submission) error {
	result := s.getDB(tx).WithContext(ctx).
		Model(&models.Submission{}).
		Where("id = ?", submission.ID).
		Select("Title", "Details", "TargetDate", "Status", "AttachmentPath", "AttachmentName", "OwnerUsername").
		Updates(submission)
	if result.Error != nil {
		return fmt.Errorf("failed to update submission: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return repositories.ErrNotFound
	}
	cache.InvalidateSubmissionCache(ctx, s.cacheManager, submission.ID, submission.OwnerUsername)
	return nil
}

// Delete removes the record. Returns ErrNotFound when the id does not exist,
// so repeated deletes never succeed twice.
func (s *SubmissionPostgreSQL) Delete(ctx context.Context, tx *gorm.DB, id uint) error {
	result := s.getDB(tx).WithContext(ctx).Delete(&models.Submission{}, id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete submission: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return repositories.ErrNotFound
	}
	cache.SafeDelete(ctx, s.cacheManager.Submission, fmt.Sprintf("id:%d", id))
	cache.SafeInvalidatePattern(ctx, s.cacheManager.Submission, "owner:*")
	cache.SafeInvalidatePattern(ctx, s.cacheManager.Submission, "list:*")
	return nil
}

// List returns filtered submissions plus the unpaginated total
func (s *SubmissionPostgreSQL) List(ctx context.Context, tx *gorm.DB, filters repositories.SubmissionFilters) ([]*models.Submission, int64, error) {
	db := s.getDB(tx).WithContext(ctx).Model(&models.Submission{})
	db = ApplySubmissionFilters(db, filters)

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count submissions: %w", err)
	}

	var submissions []*models.Submission
	query := ApplySorting(db, filters.SortBy, filters.SortOrder)
	query = ApplyPagination(query, filters.Limit, filters.Offset)
	if err := query.Preload("Owner").Find(&submissions).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list submissions: %w", err)
	}

	return submissions, total, nil
}

func (s *SubmissionPostgreSQL) CountByOwner(ctx context.Context, tx *gorm.DB, owner string) (int64, error) {
	var count int64
	err := s.getDB(tx).WithContext(ctx).
		Model(&models.Submission{}).
		Where("owner_username = ?", owner).
		Count(&count).Error
	return count, err
}
