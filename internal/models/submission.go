package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type SubmissionStatus string

const (
	StatusPending     SubmissionStatus = "Pending"
	StatusSubmitted   SubmissionStatus = "Submitted"
	StatusResubmitted SubmissionStatus = "Resubmitted"
	StatusApproved    SubmissionStatus = "Approved"
	StatusRejected    SubmissionStatus = "Rejected"
)

// AllStatuses lists the closed status set. Approved and Rejected are terminal
// in practice: nothing re-opens them automatically, but no edge is forbidden.
var AllStatuses = []SubmissionStatus{
	StatusPending,
	StatusSubmitted,
	StatusResubmitted,
	StatusApproved,
	StatusRejected,
}

// ValidStatus reports whether s is a member of the closed status set.
func ValidStatus(s SubmissionStatus) bool {
	for _, known := range AllStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// Submission is the workflow entity: owned by exactly one user, carrying a
// status from the closed set and at most one attachment. The owner reference
// is a weak back-reference by handle; the submission does not own the user.
type Submission struct {
	ID            uint             `json:"id" gorm:"primaryKey"`
	OwnerUsername string           `json:"owner_username" gorm:"not null;index;size:100"`
	Title         string           `json:"title" gorm:"not null;size:200;index" validate:"required,min=1,max=200"`
	Details       datatypes.JSON   `json:"details" gorm:"type:jsonb"`
	TargetDate    *time.Time       `json:"target_date"`
	Status        SubmissionStatus `json:"status" gorm:"not null;default:Pending;index" validate:"omitempty,oneof=Pending Submitted Resubmitted Approved Rejected"`

	// Attachment reference, inlined on the record. The backing file may have
	// been removed externally; readers surface that as "missing", not as
	// corruption.
	AttachmentPath *string `json:"attachment_path" gorm:"size:500"`
	AttachmentName *string `json:"attachment_name" gorm:"size:255"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`

	// Relations
	Owner User `json:"owner" gorm:"foreignKey:OwnerUsername"`
}

func (Submission) TableName() string {
	return "submissions"
}

// HasAttachment reports whether the record references a stored file.
func (s *Submission) HasAttachment() bool {
	return s.AttachmentPath != nil && *s.AttachmentPath != ""
}
