package edit

import (
	"context"
	"errors"
	"os"
	"strings"
	"time"

	amerrors "github.com/moabualruz/ricegrep/internal/errors"
	"github.com/moabualruz/ricegrep/internal/events"
)

// DefaultTimeout is the default edit/write operation deadline, matching the
// original tool's 30s default.
const DefaultTimeout = 30 * time.Second

// ApplyEdit validates pattern against path's current content and, on
// success, atomically commits the substitution. The read-before-write
// precondition is enforced via tracker: a path that was never read through
// the read tool in this session is rejected before any I/O happens.
//
// Validation (pattern found, occurrences computed) and execution (atomic
// write) both happen inside the deadline carried by ctx; callers should wrap
// ctx with context.WithTimeout(DefaultTimeout) unless the tool call specified
// its own timeout_secs.
//
// pub receives a FileEditValidated event the moment the patch is computed
// and preconditions pass, before any disk write is attempted. A nil pub is
// treated as events.NoopPublisher{}.
func ApplyEdit(ctx context.Context, tracker *ReadTracker, pub events.Publisher, path FilePath, pattern EditPattern) (*FileEdit, error) {
	if pub == nil {
		pub = events.NoopPublisher{}
	}
	fe := &FileEdit{Path: path, Pattern: pattern, State: StateDraft}

	if !tracker.HasRead(path) {
		fe.State = StateFailed
		fe.Err = amerrors.EditPreconditionError(amerrors.ErrCodeWriteBeforeRead,
			"file must be read before it can be edited: "+path.String(), nil)
		return fe, fe.Err
	}

	select {
	case <-ctx.Done():
		fe.State = StateFailed
		fe.Err = ctx.Err()
		return fe, fe.Err
	default:
	}

	raw, err := os.ReadFile(path.String())
	if err != nil {
		fe.State = StateFailed
		fe.Err = amerrors.IOError("failed to read "+path.String(), err)
		return fe, fe.Err
	}
	fe.OldContent = string(raw)

	var newContent string
	if pattern.ReplaceAll {
		newContent = strings.ReplaceAll(fe.OldContent, pattern.OldString, pattern.NewString)
	} else {
		newContent = strings.Replace(fe.OldContent, pattern.OldString, pattern.NewString, 1)
	}

	if newContent == fe.OldContent {
		fe.State = StateFailed
		fe.Err = amerrors.EditPreconditionError(amerrors.ErrCodePatternNotFound,
			"pattern not found: \""+pattern.OldString+"\" in "+path.String(), nil)
		return fe, fe.Err
	}

	occurrences := strings.Count(fe.OldContent, pattern.OldString)
	if pattern.ReplaceAll {
		fe.Occurrences = occurrences
	} else {
		fe.Occurrences = 1
	}
	fe.NewContent = newContent
	fe.State = StateValidated
	fe.ValidatedAt = time.Now()

	pub.Publish(context.Background(), events.DomainEvent{
		Type: events.TypeFileEditValidated,
		At:   fe.ValidatedAt,
		Payload: events.FileEditValidated{
			Path:           path.String(),
			OccurrencesHit: fe.Occurrences,
			ReplaceAll:     pattern.ReplaceAll,
		},
	})

	if err := atomicWrite(path.String(), []byte(newContent)); err != nil {
		fe.State = StateFailed
		fe.Err = err
		return fe, err
	}

	fe.State = StateExecuted
	fe.ExecutedAt = time.Now()
	tracker.MarkRead(path) // re-reading after edit keeps the precondition satisfied for a follow-up edit
	return fe, nil
}

// WriteFile creates or overwrites path with content atomically. Unlike
// ApplyEdit, WriteFile does not require a prior read when the file does not
// yet exist; overwriting an existing file still requires tracker.HasRead.
//
// pub receives a FileEditValidated event once the write is validated and
// before it is committed to disk. A nil pub is treated as
// events.NoopPublisher{}.
func WriteFile(ctx context.Context, tracker *ReadTracker, pub events.Publisher, path FilePath, content string) (*FileEdit, error) {
	if pub == nil {
		pub = events.NoopPublisher{}
	}
	fe := &FileEdit{
		Path:    path,
		Pattern: EditPattern{NewString: content},
		State:   StateDraft,
	}

	if _, err := os.Stat(path.String()); err == nil {
		if !tracker.HasRead(path) {
			fe.State = StateFailed
			fe.Err = amerrors.EditPreconditionError(amerrors.ErrCodeWriteBeforeRead,
				"existing file must be read before it can be overwritten: "+path.String(), nil)
			return fe, fe.Err
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		fe.State = StateFailed
		fe.Err = amerrors.IOError("failed to stat "+path.String(), err)
		return fe, fe.Err
	}

	select {
	case <-ctx.Done():
		fe.State = StateFailed
		fe.Err = ctx.Err()
		return fe, fe.Err
	default:
	}

	fe.NewContent = content
	fe.State = StateValidated
	fe.ValidatedAt = time.Now()

	pub.Publish(context.Background(), events.DomainEvent{
		Type: events.TypeFileEditValidated,
		At:   fe.ValidatedAt,
		Payload: events.FileEditValidated{
			Path:           path.String(),
			OccurrencesHit: 0,
			ReplaceAll:     false,
		},
	})

	if err := atomicWrite(path.String(), []byte(content)); err != nil {
		fe.State = StateFailed
		fe.Err = err
		return fe, err
	}

	fe.State = StateExecuted
	fe.ExecutedAt = time.Now()
	tracker.MarkRead(path)
	return fe, nil
}

// atomicWrite writes data to a ".tmp" sibling of path, fsyncs it, and renames
// it into place, matching the store package's index-save pattern. The fsync
// before rename means a crash right after the rename returns either the old
// or the new bytes in full, never a partial write. On rename failure the
// temp file is removed; only if that removal fails is it left in place, with
// its path surfaced in the error so the caller can recover manually.
func atomicWrite(path string, data []byte) error {
	tmpPath := path + ".tmp"
	f, err := os.OpenFile(tmpPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return amerrors.IOError("failed to open temp file "+tmpPath, err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return amerrors.IOError("failed to write temp file "+tmpPath, err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return amerrors.IOError("failed to fsync temp file "+tmpPath, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return amerrors.IOError("failed to close temp file "+tmpPath, err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		if rmErr := os.Remove(tmpPath); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
			return amerrors.IOError("failed to complete write of "+path+" (temp file preserved at "+tmpPath+")", err)
		}
		switch {
		case errors.Is(err, os.ErrPermission):
			return amerrors.IOError("permission denied replacing "+path, err)
		case errors.Is(err, os.ErrNotExist):
			return amerrors.IOError("original file was deleted or moved: "+path, err)
		default:
			return amerrors.IOError("failed to complete write of "+path+" (temp file removed)", err)
		}
	}
	return nil
}
