package index

import (
	"context"
	"fmt"

	"github.com/moabualruz/ricegrep/internal/store"
)

// MetadataGate wraps a store.MetadataStore to decide whether a file actually
// needs reindexing before the coordinator pays for chunking and embedding
// it. It persists the same (mtime, size, hash) triple already carried on
// store.File, so no separate gate table is needed: the gate's state and the
// file record it guards are written in a single SaveFiles transaction,
// making the check-then-commit sequence atomic with respect to readers.
type MetadataGate struct {
	metadata store.MetadataStore
}

// NewMetadataGate creates a gate backed by the given metadata store.
func NewMetadataGate(metadata store.MetadataStore) *MetadataGate {
	return &MetadataGate{metadata: metadata}
}

// Candidate describes a file as freshly observed on disk, for comparison
// against the last-committed store.File record.
type Candidate struct {
	ProjectID   string
	Path        string
	Size        int64
	ModTime     int64 // Unix seconds
	ContentHash string
}

// NeedsReindex reports whether candidate differs from the previously
// committed file record for the same project/path. A file with no prior
// record always needs indexing. Size and mtime are checked first since they
// are free; hash is compared last since it requires the caller to have
// already read and hashed the file content.
func (g *MetadataGate) NeedsReindex(ctx context.Context, candidate Candidate) (bool, error) {
	prior, err := g.metadata.GetFileByPath(ctx, candidate.ProjectID, candidate.Path)
	if err != nil {
		return false, fmt.Errorf("failed to look up prior file record: %w", err)
	}
	if prior == nil {
		return true, nil
	}
	if prior.Size != candidate.Size {
		return true, nil
	}
	if prior.ModTime.Unix() != candidate.ModTime {
		return true, nil
	}
	if candidate.ContentHash != "" && prior.ContentHash != candidate.ContentHash {
		return true, nil
	}
	return false, nil
}

// Commit persists file as the new gate state. It delegates to the
// underlying store's SaveFiles, which writes within a single transaction,
// so the gate state for file is never observable half-updated.
func (g *MetadataGate) Commit(ctx context.Context, file *store.File) error {
	if err := g.metadata.SaveFiles(ctx, []*store.File{file}); err != nil {
		return fmt.Errorf("failed to commit gate state: %w", err)
	}
	return nil
}
