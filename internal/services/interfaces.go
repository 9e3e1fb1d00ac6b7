package services

import (
	"context"
	"io"

	"github.com/SAP-F-2025/submission-service/internal/models"
	"github.com/SAP-F-2025/submission-service/internal/repositories"
	"github.com/SAP-F-2025/submission-service/internal/validator"
)

// ===== REQUEST/RESPONSE DTOs =====

// Use business validator types
type CreateSubmissionRequest = validator.SubmissionCreateRequest
type UpdateSubmissionRequest = validator.SubmissionUpdateRequest
type UpdateStatusRequest = validator.UpdateStatusRequest
type RegisterRequest = validator.RegisterRequest
type LoginRequest = validator.LoginRequest

// AttachmentUpload carries uploaded file bytes into the workflow engine.
type AttachmentUpload struct {
	Source       io.Reader
	OriginalName string
}

type SubmissionResponse struct {
	*models.Submission
	CanEdit           bool `json:"can_edit"`
	CanDelete         bool `json:"can_delete"`
	AttachmentMissing bool `json:"attachment_missing"`
}

type SubmissionListResponse struct {
	Submissions []*SubmissionResponse `json:"submissions"`
	Total       int64                 `json:"total"`
	Limit       int                   `json:"limit"`
	Offset      int                   `json:"offset"`
}

// ===== SERVICE INTERFACES =====

// SubmissionService is the workflow engine plus the read-side query service.
// Every call takes the acting user explicitly; there is no ambient session.
type SubmissionService interface {
	// Workflow operations
	Create(ctx context.Context, req *CreateSubmissionRequest, attachment *AttachmentUpload, actor *models.User) (*SubmissionResponse, error)
	Update(ctx context.Context, id uint, req *UpdateSubmissionRequest, attachment *AttachmentUpload, actor *models.User) (*SubmissionResponse, error)
	UpdateStatus(ctx context.Context, id uint, req *UpdateStatusRequest, actor *models.User) (*SubmissionResponse, error)
	Delete(ctx context.Context, id uint, actor *models.User) error

	// Read operations
	GetByID(ctx context.Context, id uint, actor *models.User) (*SubmissionResponse, error)
	List(ctx context.Context, filters repositories.SubmissionFilters, actor *models.User) (*SubmissionListResponse, error)
}

// UserService manages accounts and role elevation.
type UserService interface {
	Register(ctx context.Context, req *RegisterRequest) (*models.User, error)
	Authenticate(ctx context.Context, req *LoginRequest) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	UpdateRole(ctx context.Context, username string, role models.UserRole, actor *models.User) error
}

// ===== SERVICE MANAGER =====

type ServiceManager interface {
	Submission() SubmissionService
	User() UserService

	Initialize(ctx context.Context) error
	HealthCheck(ctx context.Context) error
	Shutdown(ctx context.Context) error
}
