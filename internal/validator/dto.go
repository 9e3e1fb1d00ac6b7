package validator

import (
	"encoding/json"

	"github.com/SAP-F-2025/submission-service/internal/models"
)

// SubmissionCreateRequest carries a new workflow entity. Owner may be blank;
// a submitter-class caller then becomes the owner. TargetDate uses the
// YYYY-MM-DD form the surrounding apps collect.
type SubmissionCreateRequest struct {
	Owner      string                  `json:"owner" validate:"omitempty,max=100"`
	Title      string                  `json:"title" validate:"required,min=1,max=200"`
	Details    json.RawMessage         `json:"details"`
	TargetDate *string                 `json:"target_date" validate:"omitempty,submission_date"`
	Status     models.SubmissionStatus `json:"status" validate:"omitempty,submission_status"`
}

// SubmissionUpdateRequest updates descriptive fields and/or the status.
// Nil fields are left untouched.
type SubmissionUpdateRequest struct {
	Title      *string                  `json:"title" validate:"omitempty,min=1,max=200"`
	Details    json.RawMessage          `json:"details"`
	TargetDate *string                  `json:"target_date" validate:"omitempty,submission_date"`
	Status     *models.SubmissionStatus `json:"status" validate:"omitempty,submission_status"`
}

// UpdateStatusRequest changes only the workflow status.
type UpdateStatusRequest struct {
	Status models.SubmissionStatus `json:"status" validate:"required,submission_status"`
}

// RegisterRequest creates a user account.
type RegisterRequest struct {
	Username string          `json:"username" validate:"required,min=3,max=100"`
	Password string          `json:"password" validate:"required,min=6,max=72"`
	FullName string          `json:"full_name" validate:"omitempty,max=100"`
	Email    *string         `json:"email" validate:"omitempty,email"`
	Role     models.UserRole `json:"role" validate:"omitempty,oneof=submitter reviewer"`
}

// LoginRequest exchanges credentials for a token.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// UpdateRoleRequest elevates or demotes a user; reviewer-only.
type UpdateRoleRequest struct {
	Role models.UserRole `json:"role" validate:"required,oneof=submitter reviewer"`
}
