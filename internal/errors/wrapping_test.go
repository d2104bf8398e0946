package errors_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/moabualruz/ricegrep/internal/edit"
	"github.com/moabualruz/ricegrep/internal/events"
	"github.com/moabualruz/ricegrep/internal/store"
)

// TestErrorWrapping_SQLiteStore verifies metadata store errors are wrapped with context.
func TestErrorWrapping_SQLiteStore(t *testing.T) {
	_, err := store.NewSQLiteStore("/nonexistent/deeply/nested/path/that/cannot/exist/metadata.db")
	if err == nil {
		t.Skip("Expected error opening store under an unwritable path")
	}

	errMsg := err.Error()
	if !strings.Contains(errMsg, "create") && !strings.Contains(errMsg, "open") && !strings.Contains(errMsg, "directory") {
		t.Errorf("Error should contain context about opening the metadata store, got: %s", errMsg)
	}
}

// TestErrorWrapping_ApplyEdit verifies edit preconditions are wrapped with context.
func TestErrorWrapping_ApplyEdit(t *testing.T) {
	tracker := edit.NewReadTracker()
	path, err := edit.NewFilePath(t.TempDir(), "never-read.txt")
	if err != nil {
		t.Fatalf("NewFilePath: %v", err)
	}

	_, err = edit.ApplyEdit(context.Background(), tracker, events.NoopPublisher{}, path, edit.EditPattern{})
	if err == nil {
		t.Fatal("expected error editing a file that was never read")
	}

	errMsg := err.Error()
	if !strings.Contains(errMsg, "read") {
		t.Errorf("Error should mention the read-before-write precondition, got: %s", errMsg)
	}
}

// TestErrorWrapping_WriteFile verifies write errors are wrapped with context.
func TestErrorWrapping_WriteFile(t *testing.T) {
	dir := t.TempDir()
	path, ferr := edit.NewFilePath(dir, filepath.Join("sub", "does-not-exist", "out.txt"))
	if ferr != nil {
		t.Fatalf("NewFilePath: %v", ferr)
	}

	tracker := edit.NewReadTracker()
	_, err := edit.WriteFile(context.Background(), tracker, events.NoopPublisher{}, path, "content")
	if err != nil {
		errMsg := err.Error()
		if !strings.Contains(errMsg, "write") && !strings.Contains(errMsg, "open") {
			t.Errorf("Error should mention the write failure, got: %s", errMsg)
		}
		return
	}

	// WriteFile may create intermediate directories; if it succeeded, confirm
	// the file actually landed on disk.
	if _, statErr := os.Stat(path.String()); statErr != nil {
		t.Errorf("WriteFile reported success but file is missing: %v", statErr)
	}
}
