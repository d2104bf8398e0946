package edit

import "sync"

// ReadTracker enforces the read-before-write precondition: a file must be
// read through the `read` tool in the current session before `edit` or
// `write` may touch it. This mirrors how an interactive editor prevents you
// from blindly overwriting a buffer you never opened.
type ReadTracker struct {
	mu    sync.Mutex
	seen  map[string]struct{}
}

// NewReadTracker returns an empty, session-scoped tracker.
func NewReadTracker() *ReadTracker {
	return &ReadTracker{seen: make(map[string]struct{})}
}

// MarkRead records that path has been read in this session.
func (t *ReadTracker) MarkRead(path FilePath) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.seen[path.String()] = struct{}{}
}

// HasRead reports whether path was previously marked read. A file that does
// not yet exist on disk (about to be created by `write`) is exempt from the
// precondition by callers checking os.Stat before consulting this tracker.
func (t *ReadTracker) HasRead(path FilePath) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.seen[path.String()]
	return ok
}

// Forget removes path from the tracker, used after a file is deleted or
// moved out from under the session.
func (t *ReadTracker) Forget(path FilePath) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.seen, path.String())
}
