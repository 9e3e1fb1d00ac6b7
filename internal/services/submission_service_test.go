package services

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"strings"
	"sync"
	"testing"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/submission-service/internal/events"
	"github.com/SAP-F-2025/submission-service/internal/models"
	"github.com/SAP-F-2025/submission-service/internal/repositories"
	"github.com/SAP-F-2025/submission-service/internal/storage"
	"github.com/SAP-F-2025/submission-service/internal/validator"
)

// ===== IN-MEMORY MOCKS =====

type mockSubmissionRepo struct {
	mu          sync.Mutex
	nextID      uint
	items       map[uint]*models.Submission
	lastFilters repositories.SubmissionFilters
	failCreate  error
}

func newMockSubmissionRepo() *mockSubmissionRepo {
	return &mockSubmissionRepo{items: make(map[uint]*models.Submission)}
}

func (m *mockSubmissionRepo) Create(ctx context.Context, tx *gorm.DB, submission *models.Submission) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failCreate != nil {
		return m.failCreate
	}
	m.nextID++
	submission.ID = m.nextID
	stored := *submission
	m.items[submission.ID] = &stored
	return nil
}

func (m *mockSubmissionRepo) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Submission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.items[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	copy := *stored
	return &copy, nil
}

func (m *mockSubmissionRepo) Update(ctx context.Context, tx *gorm.DB, submission *models.Submission) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[submission.ID]; !ok {
		return repositories.ErrNotFound
	}
	stored := *submission
	m.items[submission.ID] = &stored
	return nil
}

func (m *mockSubmissionRepo) Delete(ctx context.Context, tx *gorm.DB, id uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(m.items, id)
	return nil
}

func (m *mockSubmissionRepo) List(ctx context.Context, tx *gorm.DB, filters repositories.SubmissionFilters) ([]*models.Submission, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastFilters = filters

	var out []*models.Submission
	for _, stored := range m.items {
		if filters.Owner != nil && stored.OwnerUsername != *filters.Owner {
			continue
		}
		if filters.Status != nil && stored.Status != *filters.Status {
			continue
		}
		copy := *stored
		out = append(out, &copy)
	}
	return out, int64(len(out)), nil
}

func (m *mockSubmissionRepo) CountByOwner(ctx context.Context, tx *gorm.DB, owner string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var count int64
	for _, stored := range m.items {
		if stored.OwnerUsername == owner {
			count++
		}
	}
	return count, nil
}

type mockUserRepo struct {
	mu    sync.Mutex
	users map[string]*models.User
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[string]*models.User)}
}

func (m *mockUserRepo) Create(ctx context.Context, tx *gorm.DB, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[user.Username]; ok {
		return errors.New("duplicate key")
	}
	stored := *user
	m.users[user.Username] = &stored
	return nil
}

func (m *mockUserRepo) GetByUsername(ctx context.Context, tx *gorm.DB, username string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.users[username]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	copy := *stored
	return &copy, nil
}

func (m *mockUserRepo) ListByRole(ctx context.Context, tx *gorm.DB, role models.UserRole) ([]*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.User
	for _, stored := range m.users {
		if stored.Role == role {
			copy := *stored
			out = append(out, &copy)
		}
	}
	return out, nil
}

func (m *mockUserRepo) UpdateRole(ctx context.Context, tx *gorm.DB, username string, role models.UserRole) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.users[username]
	if !ok {
		return repositories.ErrNotFound
	}
	stored.Role = role
	return nil
}

type mockRepository struct {
	submission *mockSubmissionRepo
	user       *mockUserRepo
}

func newMockRepository() *mockRepository {
	return &mockRepository{
		submission: newMockSubmissionRepo(),
		user:       newMockUserRepo(),
	}
}

func (m *mockRepository) Submission() repositories.SubmissionRepository { return m.submission }
func (m *mockRepository) User() repositories.UserRepository             { return m.user }
func (m *mockRepository) WithTransaction(ctx context.Context, fn func(repositories.Repository) error) error {
	return fn(m)
}
func (m *mockRepository) Ping(ctx context.Context) error { return nil }
func (m *mockRepository) Close() error                   { return nil }

// ===== TEST SETUP =====

func newTestSubmissionService(t *testing.T) (SubmissionService, *mockRepository, *events.MockEventPublisher, *storage.LocalStore) {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	repo := newMockRepository()
	publisher := events.NewMockEventPublisher(logger)
	store := storage.NewLocalStore(t.TempDir(), logger)

	service := NewSubmissionService(repo, store, publisher, logger, validator.New())
	return service, repo, publisher, store
}

func submitter(username string) *models.User {
	return &models.User{Username: username, Role: models.RoleSubmitter}
}

func reviewer(username string) *models.User {
	return &models.User{Username: username, Role: models.RoleReviewer}
}

// ===== TESTS =====

func TestSubmissionService_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("Blank_Title_Rejected_Before_Persistence", func(t *testing.T) {
		service, repo, publisher, _ := newTestSubmissionService(t)

		_, err := service.Create(ctx, &CreateSubmissionRequest{Title: "   "}, nil, submitter("alice"))
		if err == nil {
			t.Fatal("Expected validation error, got nil")
		}
		var validationErrs validator.ValidationErrors
		if !errors.As(err, &validationErrs) {
			t.Fatalf("Expected ValidationErrors, got %T: %v", err, err)
		}
		if len(repo.submission.items) != 0 {
			t.Errorf("Expected no records after validation failure, got %d", len(repo.submission.items))
		}
		if got := publisher.GetPublishedEvents(); len(got) != 0 {
			t.Errorf("Expected no events after validation failure, got %d", len(got))
		}
	})

	t.Run("Defaults_To_Pending_And_Publishes_Created_Event", func(t *testing.T) {
		service, _, publisher, _ := newTestSubmissionService(t)

		response, err := service.Create(ctx, &CreateSubmissionRequest{Title: "Thesis draft"}, nil, submitter("alice"))
		if err != nil {
			t.Fatalf("Failed to create submission: %v", err)
		}
		if response.Status != models.StatusPending {
			t.Errorf("Expected status Pending, got %s", response.Status)
		}
		if response.OwnerUsername != "alice" {
			t.Errorf("Expected owner alice, got %s", response.OwnerUsername)
		}

		published := publisher.GetPublishedEvents()
		if len(published) != 1 {
			t.Fatalf("Expected 1 event, got %d", len(published))
		}
		if published[0].Type != events.EventSubmissionCreated {
			t.Errorf("Expected event type %s, got %s", events.EventSubmissionCreated, published[0].Type)
		}
		transition, err := published[0].Transition()
		if err != nil {
			t.Fatalf("Failed to decode transition: %v", err)
		}
		if transition.OldStatus != "" || transition.NewStatus != models.StatusPending {
			t.Errorf("Expected transition \"\"->Pending, got %q->%q", transition.OldStatus, transition.NewStatus)
		}
	})

	t.Run("Submitter_Cannot_Create_For_Someone_Else", func(t *testing.T) {
		service, _, _, _ := newTestSubmissionService(t)

		response, err := service.Create(ctx, &CreateSubmissionRequest{Title: "Report", Owner: "bob"}, nil, submitter("alice"))
		if err != nil {
			t.Fatalf("Failed to create submission: %v", err)
		}
		if response.OwnerUsername != "alice" {
			t.Errorf("Expected submitter to own their own creation, got owner %s", response.OwnerUsername)
		}
	})

	t.Run("Reviewer_May_Create_On_Behalf_Of_Owner", func(t *testing.T) {
		service, _, _, _ := newTestSubmissionService(t)

		response, err := service.Create(ctx, &CreateSubmissionRequest{Title: "Report", Owner: "bob"}, nil, reviewer("rita"))
		if err != nil {
			t.Fatalf("Failed to create submission: %v", err)
		}
		if response.OwnerUsername != "bob" {
			t.Errorf("Expected owner bob, got %s", response.OwnerUsername)
		}
	})

	t.Run("Attachment_Cleaned_Up_When_Persist_Fails", func(t *testing.T) {
		logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
		repo := newMockRepository()
		repo.submission.failCreate = errors.New("connection reset")
		dir := t.TempDir()
		store := storage.NewLocalStore(dir, logger)
		service := NewSubmissionService(repo, store, events.NewMockEventPublisher(logger), logger, validator.New())

		upload := &AttachmentUpload{Source: strings.NewReader("payload"), OriginalName: "report.pdf"}
		_, err := service.Create(ctx, &CreateSubmissionRequest{Title: "Report"}, upload, submitter("alice"))
		if err == nil {
			t.Fatal("Expected create to fail")
		}

		entries, readErr := os.ReadDir(dir)
		if readErr != nil {
			t.Fatalf("Failed to read upload dir: %v", readErr)
		}
		if len(entries) != 0 {
			t.Errorf("Expected orphaned file cleaned up, found %d entries", len(entries))
		}
	})
}

func TestSubmissionService_Update(t *testing.T) {
	ctx := context.Background()

	t.Run("Non_Owner_Submitter_Denied_Without_Event", func(t *testing.T) {
		service, _, publisher, _ := newTestSubmissionService(t)

		created, err := service.Create(ctx, &CreateSubmissionRequest{Title: "Report"}, nil, submitter("alice"))
		if err != nil {
			t.Fatalf("Failed to create submission: %v", err)
		}
		publisher.ClearEvents()

		status := models.StatusApproved
		_, err = service.Update(ctx, created.ID, &UpdateSubmissionRequest{Status: &status}, nil, submitter("mallory"))
		if !IsPermissionError(err) {
			t.Fatalf("Expected permission error, got %v", err)
		}
		if got := publisher.GetPublishedEvents(); len(got) != 0 {
			t.Errorf("Expected no events after denial, got %d", len(got))
		}

		// Status must be unchanged.
		current, err := service.GetByID(ctx, created.ID, submitter("alice"))
		if err != nil {
			t.Fatalf("Failed to get submission: %v", err)
		}
		if current.Status != models.StatusPending {
			t.Errorf("Expected status unchanged, got %s", current.Status)
		}
	})

	t.Run("Field_Only_Update_Raises_No_Event", func(t *testing.T) {
		service, _, publisher, _ := newTestSubmissionService(t)

		created, err := service.Create(ctx, &CreateSubmissionRequest{Title: "Report"}, nil, submitter("alice"))
		if err != nil {
			t.Fatalf("Failed to create submission: %v", err)
		}
		publisher.ClearEvents()

		title := "Report v2"
		updated, err := service.Update(ctx, created.ID, &UpdateSubmissionRequest{Title: &title}, nil, submitter("alice"))
		if err != nil {
			t.Fatalf("Failed to update submission: %v", err)
		}
		if updated.Title != "Report v2" {
			t.Errorf("Expected title updated, got %s", updated.Title)
		}
		if got := publisher.GetPublishedEvents(); len(got) != 0 {
			t.Errorf("Expected no events for field-only update, got %d", len(got))
		}
	})

	t.Run("Idempotent_Status_Write_Raises_No_Event", func(t *testing.T) {
		service, _, publisher, _ := newTestSubmissionService(t)

		created, err := service.Create(ctx, &CreateSubmissionRequest{Title: "Report"}, nil, submitter("alice"))
		if err != nil {
			t.Fatalf("Failed to create submission: %v", err)
		}
		publisher.ClearEvents()

		_, err = service.UpdateStatus(ctx, created.ID, &UpdateStatusRequest{Status: models.StatusPending}, reviewer("rita"))
		if err != nil {
			t.Fatalf("Failed to update status: %v", err)
		}
		if got := publisher.GetPublishedEvents(); len(got) != 0 {
			t.Errorf("Expected no events when status is unchanged, got %d", len(got))
		}
	})

	t.Run("Status_Change_Publishes_One_Event_With_Old_And_New", func(t *testing.T) {
		service, _, publisher, _ := newTestSubmissionService(t)

		created, err := service.Create(ctx, &CreateSubmissionRequest{Title: "Report"}, nil, submitter("alice"))
		if err != nil {
			t.Fatalf("Failed to create submission: %v", err)
		}
		publisher.ClearEvents()

		updated, err := service.UpdateStatus(ctx, created.ID, &UpdateStatusRequest{Status: models.StatusApproved}, reviewer("rita"))
		if err != nil {
			t.Fatalf("Failed to update status: %v", err)
		}
		if updated.Status != models.StatusApproved {
			t.Errorf("Expected status Approved, got %s", updated.Status)
		}

		published := publisher.GetPublishedEvents()
		if len(published) != 1 {
			t.Fatalf("Expected 1 event, got %d", len(published))
		}
		if published[0].Type != events.EventStatusChanged {
			t.Errorf("Expected event type %s, got %s", events.EventStatusChanged, published[0].Type)
		}
		transition, err := published[0].Transition()
		if err != nil {
			t.Fatalf("Failed to decode transition: %v", err)
		}
		if transition.OldStatus != models.StatusPending || transition.NewStatus != models.StatusApproved {
			t.Errorf("Expected Pending->Approved, got %s->%s", transition.OldStatus, transition.NewStatus)
		}
	})

	t.Run("Invalid_Status_Rejected", func(t *testing.T) {
		service, _, _, _ := newTestSubmissionService(t)

		created, err := service.Create(ctx, &CreateSubmissionRequest{Title: "Report"}, nil, submitter("alice"))
		if err != nil {
			t.Fatalf("Failed to create submission: %v", err)
		}

		bogus := models.SubmissionStatus("Archived")
		_, err = service.Update(ctx, created.ID, &UpdateSubmissionRequest{Status: &bogus}, nil, reviewer("rita"))
		var validationErrs validator.ValidationErrors
		if !errors.As(err, &validationErrs) {
			t.Fatalf("Expected ValidationErrors, got %T: %v", err, err)
		}
	})
}

func TestSubmissionService_Delete(t *testing.T) {
	ctx := context.Background()

	t.Run("Missing_Record_Is_Not_Found", func(t *testing.T) {
		service, _, _, _ := newTestSubmissionService(t)

		err := service.Delete(ctx, 999, reviewer("rita"))
		if !errors.Is(err, ErrSubmissionNotFound) {
			t.Fatalf("Expected ErrSubmissionNotFound, got %v", err)
		}
	})

	t.Run("Owner_Delete_Removes_Record_And_File", func(t *testing.T) {
		service, repo, _, store := newTestSubmissionService(t)

		upload := &AttachmentUpload{Source: strings.NewReader("payload"), OriginalName: "report.pdf"}
		created, err := service.Create(ctx, &CreateSubmissionRequest{Title: "Report"}, upload, submitter("alice"))
		if err != nil {
			t.Fatalf("Failed to create submission: %v", err)
		}
		if !created.HasAttachment() {
			t.Fatal("Expected attachment reference on created submission")
		}
		path := *created.AttachmentPath
		if !store.Exists(path) {
			t.Fatal("Expected attachment file on disk")
		}

		if err := service.Delete(ctx, created.ID, submitter("alice")); err != nil {
			t.Fatalf("Failed to delete submission: %v", err)
		}
		if store.Exists(path) {
			t.Error("Expected attachment file removed")
		}
		if len(repo.submission.items) != 0 {
			t.Errorf("Expected no records, got %d", len(repo.submission.items))
		}
	})

	t.Run("Externally_Removed_File_Does_Not_Block_Delete", func(t *testing.T) {
		service, _, _, store := newTestSubmissionService(t)

		upload := &AttachmentUpload{Source: strings.NewReader("payload"), OriginalName: "report.pdf"}
		created, err := service.Create(ctx, &CreateSubmissionRequest{Title: "Report"}, upload, submitter("alice"))
		if err != nil {
			t.Fatalf("Failed to create submission: %v", err)
		}

		// Simulate an out-of-band removal.
		if err := os.Remove(*created.AttachmentPath); err != nil {
			t.Fatalf("Failed to remove file: %v", err)
		}
		_ = store

		if err := service.Delete(ctx, created.ID, submitter("alice")); err != nil {
			t.Fatalf("Expected delete to succeed despite missing file, got %v", err)
		}
	})
}

func TestSubmissionService_Read(t *testing.T) {
	ctx := context.Background()

	t.Run("Submitter_List_Is_Restricted_To_Own_Records", func(t *testing.T) {
		service, repo, _, _ := newTestSubmissionService(t)

		if _, err := service.Create(ctx, &CreateSubmissionRequest{Title: "Mine"}, nil, submitter("alice")); err != nil {
			t.Fatalf("Failed to create submission: %v", err)
		}
		if _, err := service.Create(ctx, &CreateSubmissionRequest{Title: "Theirs"}, nil, submitter("bob")); err != nil {
			t.Fatalf("Failed to create submission: %v", err)
		}

		// Even an explicit request for another owner is overridden.
		other := "bob"
		response, err := service.List(ctx, repositories.SubmissionFilters{Owner: &other}, submitter("alice"))
		if err != nil {
			t.Fatalf("Failed to list submissions: %v", err)
		}
		if len(response.Submissions) != 1 || response.Submissions[0].OwnerUsername != "alice" {
			t.Fatalf("Expected only alice's records, got %d", len(response.Submissions))
		}
		if repo.submission.lastFilters.Owner == nil || *repo.submission.lastFilters.Owner != "alice" {
			t.Error("Expected ownership filter to be forced to the actor")
		}
	})

	t.Run("Reviewer_Sees_Everything", func(t *testing.T) {
		service, _, _, _ := newTestSubmissionService(t)

		if _, err := service.Create(ctx, &CreateSubmissionRequest{Title: "One"}, nil, submitter("alice")); err != nil {
			t.Fatalf("Failed to create submission: %v", err)
		}
		if _, err := service.Create(ctx, &CreateSubmissionRequest{Title: "Two"}, nil, submitter("bob")); err != nil {
			t.Fatalf("Failed to create submission: %v", err)
		}

		response, err := service.List(ctx, repositories.SubmissionFilters{}, reviewer("rita"))
		if err != nil {
			t.Fatalf("Failed to list submissions: %v", err)
		}
		if len(response.Submissions) != 2 {
			t.Errorf("Expected 2 records, got %d", len(response.Submissions))
		}
	})

	t.Run("Non_Owner_Read_Denied", func(t *testing.T) {
		service, _, _, _ := newTestSubmissionService(t)

		created, err := service.Create(ctx, &CreateSubmissionRequest{Title: "Private"}, nil, submitter("alice"))
		if err != nil {
			t.Fatalf("Failed to create submission: %v", err)
		}

		_, err = service.GetByID(ctx, created.ID, submitter("mallory"))
		if !IsPermissionError(err) {
			t.Fatalf("Expected permission error, got %v", err)
		}
	})

	t.Run("Missing_Attachment_Surfaces_As_Flag", func(t *testing.T) {
		service, _, _, _ := newTestSubmissionService(t)

		upload := &AttachmentUpload{Source: strings.NewReader("payload"), OriginalName: "report.pdf"}
		created, err := service.Create(ctx, &CreateSubmissionRequest{Title: "Report"}, upload, submitter("alice"))
		if err != nil {
			t.Fatalf("Failed to create submission: %v", err)
		}

		if err := os.Remove(*created.AttachmentPath); err != nil {
			t.Fatalf("Failed to remove file: %v", err)
		}

		got, err := service.GetByID(ctx, created.ID, submitter("alice"))
		if err != nil {
			t.Fatalf("Failed to get submission: %v", err)
		}
		if !got.AttachmentMissing {
			t.Error("Expected AttachmentMissing to be set")
		}
	})
}
