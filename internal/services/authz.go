package services

import (
	"github.com/SAP-F-2025/submission-service/internal/models"
)

// Action is an operation attempted against a submission.
type Action string

const (
	ActionCreate     Action = "create"
	ActionRead       Action = "read"
	ActionUpdate     Action = "update"
	ActionDelete     Action = "delete"
	ActionTransition Action = "transition"
)

// AuthorizationGuard decides whether an actor may perform an action on a
// submission. The check is local and synchronous; a denial has no side
// effects and raises no event.
type AuthorizationGuard struct{}

func NewAuthorizationGuard() *AuthorizationGuard {
	return &AuthorizationGuard{}
}

// CanPerform applies the role/ownership rules:
//   - reviewers may perform any action on any submission;
//   - submitters may create, and may read/update/delete/transition only
//     submissions they own.
//
// submission is nil for create.
func (g *AuthorizationGuard) CanPerform(actor *models.User, action Action, submission *models.Submission) bool {
	if actor == nil {
		return false
	}
	if actor.Role == models.RoleReviewer {
		return true
	}
	if actor.Role != models.RoleSubmitter {
		return false
	}

	if action == ActionCreate {
		return true
	}
	if submission == nil {
		return false
	}
	return submission.OwnerUsername == actor.Username
}

// ResolveOwner fills a blank owner field on creation with the actor's own
// identity. This is a convenience default, not an override-proof guarantee;
// a reviewer may create on behalf of any owner.
func (g *AuthorizationGuard) ResolveOwner(actor *models.User, requestedOwner string) string {
	if requestedOwner == "" {
		return actor.Username
	}
	if actor.Role == models.RoleSubmitter {
		// Submitters always own what they create.
		return actor.Username
	}
	return requestedOwner
}
