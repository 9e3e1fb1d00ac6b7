package storage

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
)

func newTestStore(t *testing.T) (*LocalStore, string) {
	t.Helper()
	dir := t.TempDir()
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	return NewLocalStore(filepath.Join(dir, "uploads"), logger), filepath.Join(dir, "uploads")
}

var storedNamePattern = regexp.MustCompile(`^\d{14}_[0-9a-f]{8}_report\.pdf$`)

func TestLocalStore_Save(t *testing.T) {
	store, dir := newTestStore(t)
	ctx := context.Background()

	t.Run("Creates_Directory_Lazily_And_Prefixes_Name", func(t *testing.T) {
		path, err := store.Save(ctx, strings.NewReader("payload"), "report.pdf")
		if err != nil {
			t.Fatalf("Failed to save: %v", err)
		}
		if filepath.Dir(path) != dir {
			t.Errorf("Expected file in %s, got %s", dir, path)
		}
		if !storedNamePattern.MatchString(filepath.Base(path)) {
			t.Errorf("Stored name %q does not match timestamp_uuid_base form", filepath.Base(path))
		}

		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("Failed to read saved file: %v", err)
		}
		if string(data) != "payload" {
			t.Errorf("Expected payload, got %q", data)
		}
	})

	t.Run("Same_Second_Saves_Do_Not_Collide", func(t *testing.T) {
		first, err := store.Save(ctx, strings.NewReader("a"), "same.txt")
		if err != nil {
			t.Fatalf("Failed to save: %v", err)
		}
		second, err := store.Save(ctx, strings.NewReader("b"), "same.txt")
		if err != nil {
			t.Fatalf("Failed to save: %v", err)
		}
		if first == second {
			t.Errorf("Expected distinct stored paths, both were %s", first)
		}
	})

	t.Run("Base_Name_Only_No_Traversal", func(t *testing.T) {
		path, err := store.Save(ctx, strings.NewReader("x"), "../../etc/passwd")
		if err != nil {
			t.Fatalf("Failed to save: %v", err)
		}
		if filepath.Dir(path) != dir {
			t.Errorf("Expected file confined to %s, got %s", dir, path)
		}
	})
}

func TestLocalStore_Replace(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	t.Run("Removes_Old_File", func(t *testing.T) {
		old, err := store.Save(ctx, strings.NewReader("v1"), "doc.txt")
		if err != nil {
			t.Fatalf("Failed to save: %v", err)
		}

		replacement, err := store.Replace(ctx, old, strings.NewReader("v2"), "doc.txt")
		if err != nil {
			t.Fatalf("Failed to replace: %v", err)
		}
		if store.Exists(old) {
			t.Error("Expected old file removed")
		}
		if !store.Exists(replacement) {
			t.Error("Expected new file present")
		}
	})

	t.Run("Tolerates_Already_Removed_Old_File", func(t *testing.T) {
		replacement, err := store.Replace(ctx, "/nonexistent/file", strings.NewReader("v2"), "doc.txt")
		if err != nil {
			t.Fatalf("Expected replace to succeed, got %v", err)
		}
		if !store.Exists(replacement) {
			t.Error("Expected new file present")
		}
	})
}

func TestLocalStore_Delete(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	t.Run("Removes_Existing_File", func(t *testing.T) {
		path, err := store.Save(ctx, strings.NewReader("payload"), "doc.txt")
		if err != nil {
			t.Fatalf("Failed to save: %v", err)
		}
		if err := store.Delete(ctx, path); err != nil {
			t.Fatalf("Failed to delete: %v", err)
		}
		if store.Exists(path) {
			t.Error("Expected file removed")
		}
	})

	t.Run("Missing_File_Is_Noop", func(t *testing.T) {
		if err := store.Delete(ctx, "/nonexistent/file"); err != nil {
			t.Errorf("Expected no error for missing file, got %v", err)
		}
	})

	t.Run("Empty_Path_Is_Noop", func(t *testing.T) {
		if err := store.Delete(ctx, ""); err != nil {
			t.Errorf("Expected no error for empty path, got %v", err)
		}
	})
}
