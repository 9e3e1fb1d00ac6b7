package services

import (
	"context"
	"fmt"
	"log/slog"

	"gorm.io/datatypes"

	"github.com/SAP-F-2025/submission-service/internal/events"
	"github.com/SAP-F-2025/submission-service/internal/models"
	"github.com/SAP-F-2025/submission-service/internal/repositories"
	"github.com/SAP-F-2025/submission-service/internal/storage"
	"github.com/SAP-F-2025/submission-service/internal/validator"
)

type submissionService struct {
	repo           repositories.Repository
	store          storage.AttachmentStore
	eventPublisher events.EventPublisher
	guard          *AuthorizationGuard
	logger         *slog.Logger
	validator      *validator.Validator
}

func NewSubmissionService(
	repo repositories.Repository,
	store storage.AttachmentStore,
	eventPublisher events.EventPublisher,
	logger *slog.Logger,
	v *validator.Validator,
) SubmissionService {
	return &submissionService{
		repo:           repo,
		store:          store,
		eventPublisher: eventPublisher,
		guard:          NewAuthorizationGuard(),
		logger:         logger,
		validator:      v,
	}
}

// ===== WORKFLOW OPERATIONS =====

func (s *submissionService) Create(ctx context.Context, req *CreateSubmissionRequest, attachment *AttachmentUpload, actor *models.User) (*SubmissionResponse, error) {
	s.logger.Info("Creating submission", "actor", actor.Username, "title", req.Title)

	// Validation happens before any persistence or event; no partial writes.
	if errs := s.validator.GetBusinessValidator().ValidateSubmissionCreate(req); len(errs) > 0 {
		return nil, errs
	}

	if !s.guard.CanPerform(actor, ActionCreate, nil) {
		return nil, NewPermissionError(actor.Username, 0, "submission", "create", "insufficient role permissions")
	}

	submission := &models.Submission{
		OwnerUsername: s.guard.ResolveOwner(actor, req.Owner),
		Title:         req.Title,
		Status:        models.StatusPending,
	}
	if req.Status != "" {
		submission.Status = req.Status
	}
	if len(req.Details) > 0 {
		submission.Details = datatypes.JSON(req.Details)
	}
	if req.TargetDate != nil {
		date, err := validator.ParseTargetDate(*req.TargetDate)
		if err != nil {
			return nil, validator.ValidationErrors{{Field: "target_date", Message: "must be YYYY-MM-DD", Value: *req.TargetDate, Rule: "submission_date"}}
		}
		submission.TargetDate = &date
	}

	// Attachment bytes are stored first; the reference is persisted with the
	// record so both land in the same transaction.
	if attachment != nil {
		storedPath, err := s.store.Save(ctx, attachment.Source, attachment.OriginalName)
		if err != nil {
			return nil, &StorageError{Op: "save", Err: err}
		}
		submission.AttachmentPath = &storedPath
		submission.AttachmentName = &attachment.OriginalName
	}

	err := s.repo.WithTransaction(ctx, func(txRepo repositories.Repository) error {
		return txRepo.Submission().Create(ctx, nil, submission)
	})
	if err != nil {
		// The record never landed; drop the just-saved file rather than
		// leaving an orphan.
		if submission.HasAttachment() {
			if delErr := s.store.Delete(ctx, *submission.AttachmentPath); delErr != nil {
				s.logger.Warn("Failed to clean up attachment after create failure", "path", *submission.AttachmentPath, "error", delErr)
			}
		}
		return nil, fmt.Errorf("failed to create submission: %w", err)
	}

	s.logger.Info("Submission created", "submission_id", submission.ID, "owner", submission.OwnerUsername, "status", submission.Status)

	// Creation is a transition from "absent" to the initial status.
	s.publishCreated(ctx, submission)

	return s.buildResponse(submission, actor), nil
}

func (s *submissionService) Update(ctx context.Context, id uint, req *UpdateSubmissionRequest, attachment *AttachmentUpload, actor *models.User) (*SubmissionResponse, error) {
	s.logger.Info("Updating submission", "submission_id", id, "actor", actor.Username)

	if errs := s.validator.GetBusinessValidator().ValidateSubmissionUpdate(req); len(errs) > 0 {
		return nil, errs
	}

	submission, err := s.repo.Submission().GetByID(ctx, nil, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrSubmissionNotFound
		}
		return nil, fmt.Errorf("failed to get submission: %w", err)
	}

	if !s.guard.CanPerform(actor, ActionUpdate, submission) {
		return nil, NewPermissionError(actor.Username, id, "submission", "update", "not owner")
	}

	priorStatus := submission.Status

	if req.Title != nil {
		submission.Title = *req.Title
	}
	if len(req.Details) > 0 {
		submission.Details = datatypes.JSON(req.Details)
	}
	if req.TargetDate != nil {
		date, err := validator.ParseTargetDate(*req.TargetDate)
		if err != nil {
			return nil, validator.ValidationErrors{{Field: "target_date", Message: "must be YYYY-MM-DD", Value: *req.TargetDate, Rule: "submission_date"}}
		}
		submission.TargetDate = &date
	}
	if req.Status != nil {
		submission.Status = *req.Status
	}

	if attachment != nil {
		oldPath := ""
		if submission.HasAttachment() {
			oldPath = *submission.AttachmentPath
		}
		storedPath, err := s.store.Replace(ctx, oldPath, attachment.Source, attachment.OriginalName)
		if err != nil {
			return nil, &StorageError{Op: "replace", Err: err}
		}
		submission.AttachmentPath = &storedPath
		submission.AttachmentName = &attachment.OriginalName
	}

	err = s.repo.WithTransaction(ctx, func(txRepo repositories.Repository) error {
		return txRepo.Submission().Update(ctx, nil, submission)
	})
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrSubmissionNotFound
		}
		return nil, fmt.Errorf("failed to update submission: %w", err)
	}

	// Notification is transition-triggered, not write-triggered: a plain
	// field update raises no event.
	if submission.Status != priorStatus {
		s.publishStatusChanged(ctx, submission, priorStatus, submission.Status)
	}

	return s.buildResponse(submission, actor), nil
}

func (s *submissionService) UpdateStatus(ctx context.Context, id uint, req *UpdateStatusRequest, actor *models.User) (*SubmissionResponse, error) {
	if errs := s.validator.Struct(req); len(errs) > 0 {
		return nil, errs
	}

	status := req.Status
	return s.Update(ctx, id, &UpdateSubmissionRequest{Status: &status}, nil, actor)
}

func (s *submissionService) Delete(ctx context.Context, id uint, actor *models.User) error {
	s.logger.Info("Deleting submission", "submission_id", id, "actor", actor.Username)

	submission, err := s.repo.Submission().GetByID(ctx, nil, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrSubmissionNotFound
		}
		return fmt.Errorf("failed to get submission: %w", err)
	}

	if !s.guard.CanPerform(actor, ActionDelete, submission) {
		return NewPermissionError(actor.Username, id, "submission", "delete", "not owner")
	}

	// The backing file goes first; a failure here is logged and the record
	// delete proceeds (orphaned files are an accepted cost).
	if submission.HasAttachment() {
		if err := s.store.Delete(ctx, *submission.AttachmentPath); err != nil {
			s.logger.Warn("Failed to delete attachment file", "path", *submission.AttachmentPath, "error", err)
		}
	}

	err = s.repo.WithTransaction(ctx, func(txRepo repositories.Repository) error {
		return txRepo.Submission().Delete(ctx, nil, id)
	})
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrSubmissionNotFound
		}
		return fmt.Errorf("failed to delete submission: %w", err)
	}

	return nil
}

// ===== READ OPERATIONS =====

func (s *submissionService) GetByID(ctx context.Context, id uint, actor *models.User) (*SubmissionResponse, error) {
	submission, err := s.repo.Submission().GetByID(ctx, nil, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrSubmissionNotFound
		}
		return nil, fmt.Errorf("failed to get submission: %w", err)
	}

	if !s.guard.CanPerform(actor, ActionRead, submission) {
		return nil, NewPermissionError(actor.Username, id, "submission", "read", "not owner")
	}

	return s.buildResponse(submission, actor), nil
}

func (s *submissionService) List(ctx context.Context, filters repositories.SubmissionFilters, actor *models.User) (*SubmissionListResponse, error) {
	// Submitters only ever see their own records; the ownership filter is
	// AND-ed in regardless of what was requested.
	if actor.Role == models.RoleSubmitter {
		owner := actor.Username
		filters.Owner = &owner
	}

	submissions, total, err := s.repo.Submission().List(ctx, nil, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list submissions: %w", err)
	}

	responses := make([]*SubmissionResponse, len(submissions))
	for i, submission := range submissions {
		responses[i] = s.buildResponse(submission, actor)
	}

	return &SubmissionListResponse{
		Submissions: responses,
		Total:       total,
		Limit:       filters.Limit,
		Offset:      filters.Offset,
	}, nil
}

// ===== HELPERS =====

func (s *submissionService) buildResponse(submission *models.Submission, actor *models.User) *SubmissionResponse {
	return &SubmissionResponse{
		Submission:        submission,
		CanEdit:           s.guard.CanPerform(actor, ActionUpdate, submission),
		CanDelete:         s.guard.CanPerform(actor, ActionDelete, submission),
		AttachmentMissing: submission.HasAttachment() && !s.store.Exists(*submission.AttachmentPath),
	}
}

// publishCreated raises the SubmissionCreated transition event. Publish
// failures are logged and never surfaced: the state change already committed.
func (s *submissionService) publishCreated(ctx context.Context, submission *models.Submission) {
	event, err := events.NewSubmissionCreated(submission.ID, submission.Status)
	if err != nil {
		s.logger.Error("Failed to build created event", "submission_id", submission.ID, "error", err)
		return
	}
	if err := s.eventPublisher.Publish(ctx, event); err != nil {
		s.logger.Error("Failed to publish created event", "submission_id", submission.ID, "error", err)
	}
}

func (s *submissionService) publishStatusChanged(ctx context.Context, submission *models.Submission, old, new models.SubmissionStatus) {
	event, err := events.NewStatusChanged(submission.ID, old, new)
	if err != nil {
		s.logger.Error("Failed to build status event", "submission_id", submission.ID, "error", err)
		return
	}
	if err := s.eventPublisher.Publish(ctx, event); err != nil {
		s.logger.Error("Failed to publish status event", "submission_id", submission.ID, "error", err)
	}
}
