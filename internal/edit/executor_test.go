package edit

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moabualruz/ricegrep/internal/events"
)

func writeTemp(t *testing.T, dir, name, content string) FilePath {
	t.Helper()
	full := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
	fp, err := NewFilePath(dir, name)
	require.NoError(t, err)
	return fp
}

func TestApplyEdit_RequiresPriorRead(t *testing.T) {
	dir := t.TempDir()
	path := writeTemp(t, dir, "a.go", "package a\n")
	tracker := NewReadTracker()

	fe, err := ApplyEdit(context.Background(), tracker, nil, path, EditPattern{OldString: "a", NewString: "b"})
	require.Error(t, err)
	assert.Equal(t, StateFailed, fe.State)
}

func TestApplyEdit_SingleReplace(t *testing.T) {
	dir := t.TempDir()
	path := writeTemp(t, dir, "a.go", "package a\nfunc Foo() {}\n")
	tracker := NewReadTracker()
	tracker.MarkRead(path)

	fe, err := ApplyEdit(context.Background(), tracker, nil, path, EditPattern{OldString: "Foo", NewString: "Bar"})
	require.NoError(t, err)
	assert.Equal(t, StateExecuted, fe.State)
	assert.Equal(t, 1, fe.Occurrences)

	got, err := os.ReadFile(path.String())
	require.NoError(t, err)
	assert.Contains(t, string(got), "func Bar()")
}

func TestApplyEdit_PublishesFileEditValidated(t *testing.T) {
	dir := t.TempDir()
	path := writeTemp(t, dir, "a.go", "package a\nfunc Foo() {}\n")
	tracker := NewReadTracker()
	tracker.MarkRead(path)

	bus := events.NewBus()
	defer bus.Close()
	sub := bus.Subscribe()

	_, err := ApplyEdit(context.Background(), tracker, bus, path, EditPattern{OldString: "Foo", NewString: "Bar"})
	require.NoError(t, err)

	select {
	case evt := <-sub:
		assert.Equal(t, events.TypeFileEditValidated, evt.Type)
		payload, ok := evt.Payload.(events.FileEditValidated)
		require.True(t, ok)
		assert.Equal(t, path.String(), payload.Path)
		assert.Equal(t, 1, payload.OccurrencesHit)
	case <-time.After(time.Second):
		t.Fatal("expected FileEditValidated event, got none")
	}
}

func TestApplyEdit_ReplaceAll(t *testing.T) {
	dir := t.TempDir()
	path := writeTemp(t, dir, "a.go", "foo foo foo\n")
	tracker := NewReadTracker()
	tracker.MarkRead(path)

	fe, err := ApplyEdit(context.Background(), tracker, nil, path, EditPattern{OldString: "foo", NewString: "bar", ReplaceAll: true})
	require.NoError(t, err)
	assert.Equal(t, 3, fe.Occurrences)

	got, _ := os.ReadFile(path.String())
	assert.Equal(t, "bar bar bar\n", string(got))
}

func TestApplyEdit_PatternNotFound(t *testing.T) {
	dir := t.TempDir()
	path := writeTemp(t, dir, "a.go", "package a\n")
	tracker := NewReadTracker()
	tracker.MarkRead(path)

	fe, err := ApplyEdit(context.Background(), tracker, nil, path, EditPattern{OldString: "nope", NewString: "x"})
	require.Error(t, err)
	assert.Equal(t, StateFailed, fe.State)
}

func TestWriteFile_NewFileSkipsReadPrecondition(t *testing.T) {
	dir := t.TempDir()
	path, err := NewFilePath(dir, "new.txt")
	require.NoError(t, err)
	tracker := NewReadTracker()

	fe, err := WriteFile(context.Background(), tracker, nil, path, "hello")
	require.NoError(t, err)
	assert.Equal(t, StateExecuted, fe.State)

	got, _ := os.ReadFile(path.String())
	assert.Equal(t, "hello", string(got))
}

func TestWriteFile_OverwriteRequiresRead(t *testing.T) {
	dir := t.TempDir()
	path := writeTemp(t, dir, "existing.txt", "old")
	tracker := NewReadTracker()

	_, err := WriteFile(context.Background(), tracker, nil, path, "new")
	require.Error(t, err)
}
