package services

import (
	"errors"
	"fmt"
)

// Sentinel errors surfaced to callers. The presentation layer maps these to
// "your action did not take effect"; delivery failures never appear here.
var (
	ErrSubmissionNotFound = errors.New("submission not found")
	ErrUserNotFound       = errors.New("user not found")
	ErrUserAlreadyExists  = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// PermissionError is a synchronous authorization failure: no side effects
// occurred and no event was raised.
type PermissionError struct {
	Username string
	ID       uint
	Resource string
	Action   string
	Reason   string
}

func NewPermissionError(username string, id uint, resource, action, reason string) *PermissionError {
	return &PermissionError{
		Username: username,
		ID:       id,
		Resource: resource,
		Action:   action,
		Reason:   reason,
	}
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("permission denied: user %s cannot %s %s %d: %s",
		e.Username, e.Action, e.Resource, e.ID, e.Reason)
}

// IsPermissionError reports whether err is an authorization failure.
func IsPermissionError(err error) bool {
	var pe *PermissionError
	return errors.As(err, &pe)
}

// StorageError wraps attachment I/O failures on the critical path
// (save/replace). Best-effort deletes are logged, never wrapped here.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("attachment storage %s failed: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

func IsStorageError(err error) bool {
	var se *StorageError
	return errors.As(err, &se)
}
