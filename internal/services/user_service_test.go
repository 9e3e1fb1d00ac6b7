package services

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"

	"github.com/SAP-F-2025/submission-service/internal/models"
	"github.com/SAP-F-2025/submission-service/internal/validator"
)

func newTestUserService(t *testing.T) (UserService, *mockRepository) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	repo := newMockRepository()
	return NewUserService(repo, logger, validator.New()), repo
}

func TestUserService_Register(t *testing.T) {
	ctx := context.Background()

	t.Run("Defaults_To_Submitter_Role", func(t *testing.T) {
		service, _ := newTestUserService(t)

		user, err := service.Register(ctx, &RegisterRequest{Username: "alice", Password: "secret1"})
		if err != nil {
			t.Fatalf("Failed to register: %v", err)
		}
		if user.Role != models.RoleSubmitter {
			t.Errorf("Expected role submitter, got %s", user.Role)
		}
		if user.PasswordHash == "secret1" || user.PasswordHash == "" {
			t.Error("Expected password to be hashed")
		}
	})

	t.Run("Duplicate_Username_Rejected", func(t *testing.T) {
		service, _ := newTestUserService(t)

		if _, err := service.Register(ctx, &RegisterRequest{Username: "alice", Password: "secret1"}); err != nil {
			t.Fatalf("Failed to register: %v", err)
		}
		_, err := service.Register(ctx, &RegisterRequest{Username: "alice", Password: "other-secret"})
		if !errors.Is(err, ErrUserAlreadyExists) {
			t.Fatalf("Expected ErrUserAlreadyExists, got %v", err)
		}
	})

	t.Run("Short_Password_Rejected", func(t *testing.T) {
		service, _ := newTestUserService(t)

		_, err := service.Register(ctx, &RegisterRequest{Username: "alice", Password: "abc"})
		var validationErrs validator.ValidationErrors
		if !errors.As(err, &validationErrs) {
			t.Fatalf("Expected ValidationErrors, got %T: %v", err, err)
		}
	})
}

func TestUserService_Authenticate(t *testing.T) {
	ctx := context.Background()

	t.Run("Valid_Credentials", func(t *testing.T) {
		service, _ := newTestUserService(t)

		if _, err := service.Register(ctx, &RegisterRequest{Username: "alice", Password: "secret1"}); err != nil {
			t.Fatalf("Failed to register: %v", err)
		}

		user, err := service.Authenticate(ctx, &LoginRequest{Username: "alice", Password: "secret1"})
		if err != nil {
			t.Fatalf("Failed to authenticate: %v", err)
		}
		if user.Username != "alice" {
			t.Errorf("Expected alice, got %s", user.Username)
		}
	})

	t.Run("Wrong_Password", func(t *testing.T) {
		service, _ := newTestUserService(t)

		if _, err := service.Register(ctx, &RegisterRequest{Username: "alice", Password: "secret1"}); err != nil {
			t.Fatalf("Failed to register: %v", err)
		}

		_, err := service.Authenticate(ctx, &LoginRequest{Username: "alice", Password: "wrong-pass"})
		if !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("Expected ErrInvalidCredentials, got %v", err)
		}
	})

	t.Run("Unknown_User_Reports_Invalid_Credentials", func(t *testing.T) {
		service, _ := newTestUserService(t)

		_, err := service.Authenticate(ctx, &LoginRequest{Username: "ghost", Password: "whatever"})
		if !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("Expected ErrInvalidCredentials, got %v", err)
		}
	})
}

func TestUserService_UpdateRole(t *testing.T) {
	ctx := context.Background()

	t.Run("Reviewer_May_Elevate", func(t *testing.T) {
		service, repo := newTestUserService(t)

		if _, err := service.Register(ctx, &RegisterRequest{Username: "alice", Password: "secret1"}); err != nil {
			t.Fatalf("Failed to register: %v", err)
		}

		if err := service.UpdateRole(ctx, "alice", models.RoleReviewer, reviewer("rita")); err != nil {
			t.Fatalf("Failed to update role: %v", err)
		}

		stored, err := repo.user.GetByUsername(ctx, nil, "alice")
		if err != nil {
			t.Fatalf("Failed to get user: %v", err)
		}
		if stored.Role != models.RoleReviewer {
			t.Errorf("Expected role reviewer, got %s", stored.Role)
		}
	})

	t.Run("Submitter_Cannot_Change_Roles", func(t *testing.T) {
		service, _ := newTestUserService(t)

		if _, err := service.Register(ctx, &RegisterRequest{Username: "alice", Password: "secret1"}); err != nil {
			t.Fatalf("Failed to register: %v", err)
		}

		err := service.UpdateRole(ctx, "alice", models.RoleReviewer, submitter("bob"))
		if !IsPermissionError(err) {
			t.Fatalf("Expected permission error, got %v", err)
		}
	})

	t.Run("Unknown_User_Is_Not_Found", func(t *testing.T) {
		service, _ := newTestUserService(t)

		err := service.UpdateRole(ctx, "ghost", models.RoleReviewer, reviewer("rita"))
		if !errors.Is(err, ErrUserNotFound) {
			t.Fatalf("Expected ErrUserNotFound, got %v", err)
		}
	})

	t.Run("Invalid_Role_Rejected", func(t *testing.T) {
		service, _ := newTestUserService(t)

		err := service.UpdateRole(ctx, "alice", "superuser", reviewer("rita"))
		var validationErrs validator.ValidationErrors
		if !errors.As(err, &validationErrs) {
			t.Fatalf("Expected ValidationErrors, got %T: %v", err, err)
		}
	})
}
