package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/moabualruz/ricegrep/internal/config"
	"github.com/moabualruz/ricegrep/internal/store"
)

// DebugInfo holds a low-level dump of index internals, for diagnosing why a
// search returns (or fails to return) a given result.
type DebugInfo struct {
	ProjectRoot string             `json:"project_root"`
	IndexPath   string             `json:"index_path"`
	FileCount   int                `json:"file_count"`
	ChunkCount  int                `json:"chunk_count"`
	LastIndexed time.Time          `json:"last_indexed"`
	Languages   map[string]float64 `json:"languages"`

	EmbedderProvider string `json:"embedder_provider"`
	EmbedderModel    string `json:"embedder_model,omitempty"`

	BM25Path string `json:"bm25_path"`
	BM25Size int64  `json:"bm25_size"`

	VectorPath string `json:"vector_path"`
	VectorSize int64  `json:"vector_size"`

	MetadataSize int64 `json:"metadata_size"`
}

func newDebugCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "debug",
		Short: "Dump low-level index internals for troubleshooting",
		Long: `Print a detailed dump of the on-disk index: file/chunk counts,
language breakdown, embedder configuration, and the size of each storage
component (metadata, BM25, vectors).`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDebug(cmd.Context(), cmd, jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

func runDebug(ctx context.Context, cmd *cobra.Command, jsonOutput bool) error {
	root, err := config.FindProjectRoot(".")
	if err != nil {
		cwd, _ := os.Getwd()
		root = cwd
	}

	dataDir := filepath.Join(root, ".ricegrep")
	metadataPath := filepath.Join(dataDir, "metadata.db")
	if !fileExists(metadataPath) {
		return fmt.Errorf("no index found in %s\nRun 'ricegrep index' to create one", root)
	}

	info, err := collectDebugInfo(ctx, root, dataDir)
	if err != nil {
		return fmt.Errorf("failed to collect debug info: %w", err)
	}

	out := cmd.OutOrStdout()
	if jsonOutput {
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")
		return encoder.Encode(info)
	}

	return renderDebugInfo(out, info)
}

func collectDebugInfo(ctx context.Context, root, dataDir string) (DebugInfo, error) {
	info := DebugInfo{
		ProjectRoot: root,
		IndexPath:   dataDir,
		Languages:   map[string]float64{},
	}

	metadataPath := filepath.Join(dataDir, "metadata.db")
	metadata, err := store.NewSQLiteStore(metadataPath)
	if err != nil {
		return info, fmt.Errorf("failed to open metadata store: %w", err)
	}
	defer func() { _ = metadata.Close() }()

	projectID := hashString(root)
	project, err := metadata.GetProject(ctx, projectID)
	if err != nil {
		project = nil
	}
	if project != nil {
		info.FileCount = project.FileCount
		info.ChunkCount = project.ChunkCount
		info.LastIndexed = project.IndexedAt
		info.Languages = languageBreakdown(ctx, metadata, projectID)
	}
	info.MetadataSize = getFileSize(metadataPath)

	bm25SQLitePath := filepath.Join(dataDir, "bm25.db")
	bm25BlevePath := filepath.Join(dataDir, "bm25.bleve")
	if size := getFileSize(bm25SQLitePath); size > 0 {
		info.BM25Path = bm25SQLitePath
		info.BM25Size = size
	} else {
		info.BM25Path = bm25BlevePath
		info.BM25Size = getDirSize(bm25BlevePath)
	}

	info.VectorPath = filepath.Join(dataDir, "vectors.hnsw")
	info.VectorSize = getFileSize(info.VectorPath)

	cfg, err := config.Load(root)
	if err != nil {
		cfg = config.NewConfig()
	}
	info.EmbedderProvider = cfg.Embeddings.Provider
	if info.EmbedderProvider == "" {
		info.EmbedderProvider = "hugot"
	}
	info.EmbedderModel = cfg.Embeddings.Model
	if info.EmbedderModel == "" {
		info.EmbedderModel = "embeddinggemma"
	}

	return info, nil
}

// languageBreakdown pages through every indexed file and returns the
// fraction of files belonging to each normalized extension.
func languageBreakdown(ctx context.Context, metadata store.MetadataStore, projectID string) map[string]float64 {
	counts := map[string]int{}
	total := 0

	cursor := ""
	for {
		files, next, err := metadata.ListFiles(ctx, projectID, cursor, 500)
		if err != nil {
			break
		}
		for _, f := range files {
			ext := normalizeExtension(trimLeadingDot(filepath.Ext(f.Path)))
			if ext == "" {
				continue
			}
			counts[ext]++
			total++
		}
		if next == "" || len(files) == 0 {
			break
		}
		cursor = next
	}

	langs := make(map[string]float64, len(counts))
	if total == 0 {
		return langs
	}
	for ext, n := range counts {
		langs[ext] = float64(n) / float64(total)
	}
	return langs
}

func trimLeadingDot(ext string) string {
	if len(ext) > 0 && ext[0] == '.' {
		return ext[1:]
	}
	return ext
}

func renderDebugInfo(out io.Writer, info DebugInfo) error {
	_, _ = fmt.Fprintln(out, "RiceGrep Debug Info")
	_, _ = fmt.Fprintf(out, "Project root: %s\n", info.ProjectRoot)
	_, _ = fmt.Fprintf(out, "Index path:   %s\n\n", info.IndexPath)

	_, _ = fmt.Fprintln(out, "FILES & CHUNKS")
	_, _ = fmt.Fprintf(out, "  Files:        %s\n", formatNumber(info.FileCount))
	_, _ = fmt.Fprintf(out, "  Chunks:       %s\n", formatNumber(info.ChunkCount))
	_, _ = fmt.Fprintf(out, "  Last indexed: %s\n", formatAge(info.LastIndexed))
	_, _ = fmt.Fprintf(out, "  Languages:    %s\n\n", formatLanguages(info.Languages))

	_, _ = fmt.Fprintln(out, "EMBEDDER")
	_, _ = fmt.Fprintf(out, "  Provider: %s\n", info.EmbedderProvider)
	_, _ = fmt.Fprintf(out, "  Model:    %s\n\n", info.EmbedderModel)

	_, _ = fmt.Fprintln(out, "BM25 INDEX")
	_, _ = fmt.Fprintf(out, "  Path: %s\n", info.BM25Path)
	_, _ = fmt.Fprintf(out, "  Size: %s\n\n", FormatBytes(info.BM25Size))

	_, _ = fmt.Fprintln(out, "VECTOR STORE")
	_, _ = fmt.Fprintf(out, "  Path: %s\n", info.VectorPath)
	_, _ = fmt.Fprintf(out, "  Size: %s\n\n", FormatBytes(info.VectorSize))

	_, _ = fmt.Fprintln(out, "STORAGE")
	_, _ = fmt.Fprintf(out, "  Metadata: %s\n", FormatBytes(info.MetadataSize))

	return nil
}

// formatAge reports how long ago t occurred, or "unknown" for a zero time.
func formatAge(t time.Time) string {
	if t.IsZero() {
		return "unknown"
	}

	diff := time.Since(t)
	switch {
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		mins := int(diff.Minutes())
		if mins == 1 {
			return "1 minute ago"
		}
		return fmt.Sprintf("%d minutes ago", mins)
	case diff < 24*time.Hour:
		hours := int(diff.Hours())
		if hours == 1 {
			return "1 hour ago"
		}
		return fmt.Sprintf("%d hours ago", hours)
	case diff < 7*24*time.Hour:
		days := int(diff.Hours() / 24)
		if days == 1 {
			return "1 day ago"
		}
		return fmt.Sprintf("%d days ago", days)
	default:
		return t.Format("2006-01-02 15:04")
	}
}

// formatNumber renders n with thousands separators.
func formatNumber(n int) string {
	s := strconv.Itoa(n)
	if n < 0 {
		return "-" + formatNumber(-n)
	}
	if len(s) <= 3 {
		return s
	}

	var groups []string
	for len(s) > 3 {
		groups = append([]string{s[len(s)-3:]}, groups...)
		s = s[:len(s)-3]
	}
	groups = append([]string{s}, groups...)

	result := groups[0]
	for _, g := range groups[1:] {
		result += "," + g
	}
	return result
}

// formatLanguages renders a language-fraction map as a descending,
// percentage-labeled list, e.g. "go (50%), ts (30%), md (20%)".
func formatLanguages(langs map[string]float64) string {
	if len(langs) == 0 {
		return "none"
	}

	names := make([]string, 0, len(langs))
	for name := range langs {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if langs[names[i]] != langs[names[j]] {
			return langs[names[i]] > langs[names[j]]
		}
		return names[i] < names[j]
	})

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%s (%.0f%%)", name, langs[name]*100))
	}

	result := parts[0]
	for _, p := range parts[1:] {
		result += ", " + p
	}
	return result
}

// normalizeExtension folds extension aliases onto one canonical name so that
// e.g. .tsx and .ts are counted as the same language in the breakdown.
func normalizeExtension(ext string) string {
	switch ext {
	case "tsx":
		return "ts"
	case "jsx", "mjs":
		return "js"
	case "yml":
		return "yaml"
	case "htm":
		return "html"
	default:
		return ext
	}
}
