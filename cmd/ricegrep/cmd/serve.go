package cmd

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/moabualruz/ricegrep/internal/chunk"
	"github.com/moabualruz/ricegrep/internal/config"
	"github.com/moabualruz/ricegrep/internal/embed"
	"github.com/moabualruz/ricegrep/internal/index"
	"github.com/moabualruz/ricegrep/internal/logging"
	"github.com/moabualruz/ricegrep/internal/mcp"
	"github.com/moabualruz/ricegrep/internal/search"
	"github.com/moabualruz/ricegrep/internal/store"
)

func newServeCmd() *cobra.Command {
	var debug bool
	var transport string
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server",
		Long: `Start the MCP (Model Context Protocol) server.

The server communicates over stdio using JSON-RPC and exposes search,
index, and status tools to MCP clients like Claude Code and Cursor.

stdout is reserved exclusively for JSON-RPC messages - all diagnostics
go to the log file at ~/.ricegrep/logs/.

Example:
  ricegrep serve
  ricegrep serve --debug`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := verifyStdinForMCP(); err != nil {
				slog.Warn("stdin check failed", slog.String("error", err.Error()))
			}

			level := "info"
			if debug {
				level = "debug"
			}

			return runServeLevel(cmd.Context(), transport, port, level)
		},
	}

	cmd.Flags().BoolVar(&debug, "debug", false, "Enable debug-level logging to ~/.ricegrep/logs/")
	cmd.Flags().StringVar(&transport, "transport", "stdio", "Transport type (stdio|sse)")
	cmd.Flags().IntVar(&port, "port", 8765, "Port for SSE transport")

	return cmd
}

// runServe starts the MCP server against the project found at or above the
// current directory, with MCP-safe logging at the default level.
func runServe(ctx context.Context, transport string, port int) error {
	return runServeLevel(ctx, transport, port, "info")
}

// runServeLevel is runServe with an explicit log level, split out so tests
// and the --debug flag can request verbose logging without changing the
// public runServe signature used by runSmartDefault.
func runServeLevel(ctx context.Context, transport string, port int, level string) error {
	cleanup, err := logging.SetupMCPModeWithLevel(level)
	if err != nil {
		return fmt.Errorf("failed to initialize MCP-safe logging: %w", err)
	}
	defer cleanup()

	root, err := config.FindProjectRoot(".")
	if err != nil {
		root, err = os.Getwd()
		if err != nil {
			return fmt.Errorf("failed to determine project root: %w", err)
		}
	}

	return serveProject(ctx, root, transport, port)
}

// serveProject builds the search engine, metadata store, and MCP server for
// rootPath and serves until ctx is cancelled. Before serving, it reconciles
// the on-disk index against the working tree once so stale entries from
// files changed since the last `ricegrep index` run don't leak into search
// results; there is no background watcher keeping the index live while the
// server runs.
func serveProject(ctx context.Context, rootPath, transport string, port int) error {
	dataDir := filepath.Join(rootPath, ".ricegrep")

	cfg, err := config.Load(rootPath)
	if err != nil {
		cfg = config.NewConfig()
	}

	metadataPath := filepath.Join(dataDir, "metadata.db")
	metadata, err := store.NewSQLiteStore(metadataPath)
	if err != nil {
		return fmt.Errorf("failed to open metadata store: %w", err)
	}
	defer func() { _ = metadata.Close() }()

	bm25BasePath := filepath.Join(dataDir, "bm25")
	bm25Config := store.DefaultBM25Config()
	bm25, err := store.NewBM25IndexWithBackend(bm25BasePath, bm25Config, cfg.Search.BM25Backend)
	if err != nil {
		return fmt.Errorf("failed to open BM25 index: %w", err)
	}
	defer func() { _ = bm25.Close() }()

	vectorPath := filepath.Join(dataDir, "vectors.hnsw")
	existingDims, err := store.ReadHNSWStoreDimensions(vectorPath)
	if err != nil {
		slog.Debug("could not read vector dimensions", slog.String("error", err.Error()))
		existingDims = 0
	}

	embedder, err := newServeEmbedder(ctx, cfg, existingDims)
	if err != nil {
		return fmt.Errorf("failed to create embedder: %w", err)
	}
	defer func() { _ = embedder.Close() }()

	vectorConfig := store.DefaultVectorStoreConfig(embedder.Dimensions())
	vector, err := store.NewHNSWStore(vectorConfig)
	if err != nil {
		return fmt.Errorf("failed to create vector store: %w", err)
	}
	defer func() { _ = vector.Close() }()

	if _, err := os.Stat(vectorPath); err == nil {
		if loadErr := vector.Load(vectorPath); loadErr != nil {
			slog.Debug("vector_load_failed", slog.String("error", loadErr.Error()))
		}
	}

	engineConfig := search.DefaultConfig()
	if cfg.Search.MaxResults > 0 {
		engineConfig.DefaultLimit = cfg.Search.MaxResults
	}
	if cfg.Search.BM25Weight > 0 || cfg.Search.SemanticWeight > 0 {
		engineConfig.DefaultWeights = search.Weights{
			BM25:     cfg.Search.BM25Weight,
			Semantic: cfg.Search.SemanticWeight,
		}
	}
	engine := search.New(bm25, vector, embedder, metadata, engineConfig,
		search.WithMultiQuerySearch(search.NewPatternDecomposer()))

	srv, err := mcp.NewServer(engine, metadata, embedder, cfg, rootPath)
	if err != nil {
		return fmt.Errorf("failed to create MCP server: %w", err)
	}

	reconcileIndexOnce(ctx, rootPath, dataDir, engine, metadata, cfg)

	addr := fmt.Sprintf(":%d", port)
	return srv.Serve(ctx, transport, addr)
}

// newServeEmbedder selects an embedder for the server process. It honors
// RICEGREP_EMBEDDER=static (used by tests to avoid network calls) the same
// way the search command's --bm25-only flag does, otherwise defers to the
// configured provider.
func newServeEmbedder(ctx context.Context, cfg *config.Config, existingDims int) (embed.Embedder, error) {
	if os.Getenv("RICEGREP_EMBEDDER") == "static" {
		return embed.NewStaticEmbedder768(), nil
	}

	embed.SetMLXConfig(embed.MLXServerConfig{
		Endpoint: cfg.Embeddings.MLXEndpoint,
		Model:    cfg.Embeddings.MLXModel,
	})

	provider := embed.ParseProvider(cfg.Embeddings.Provider)
	embedder, err := embed.NewEmbedder(ctx, provider, cfg.Embeddings.Model)
	if err != nil {
		return nil, err
	}
	slog.Debug("embedder_initialized",
		slog.String("provider", provider.String()),
		slog.String("model", embedder.ModelName()),
		slog.Int("dimensions", embedder.Dimensions()),
		slog.Int("existing_dims", existingDims))
	return embedder, nil
}

// reconcileIndexOnce runs a single startup reconciliation pass against the
// index coordinator before the MCP server starts accepting requests. It is
// best-effort: a failure here is logged but never blocks serving, since a
// stale index is still usable for search.
func reconcileIndexOnce(ctx context.Context, rootPath, dataDir string, engine *search.Engine, metadata store.MetadataStore, cfg *config.Config) {
	coordinator := index.NewCoordinator(index.CoordinatorConfig{
		ProjectID:       projectIDFor(rootPath),
		RootPath:        rootPath,
		DataDir:         dataDir,
		Engine:          engine,
		Metadata:        metadata,
		CodeChunker:     chunk.NewCodeChunker(),
		MDChunker:       chunk.NewMarkdownChunker(),
		ExcludePatterns: cfg.Paths.Exclude,
	})

	if err := coordinator.ReconcileFilesOnStartup(ctx); err != nil {
		slog.Warn("startup reconciliation failed", slog.String("error", err.Error()))
	}
}

// projectIDFor derives the same stable per-root project ID used by the
// indexing pipeline, so reconciliation lands on the same project row that
// the initial index created.
func projectIDFor(root string) string {
	h := sha256.Sum256([]byte(root))
	return hex.EncodeToString(h[:])[:16]
}

// verifyStdinForMCP reports an error when stdin is an interactive terminal.
// MCP clients connect over a pipe; a user running `ricegrep serve` directly
// in a shell is almost always a mistake, so we warn rather than hang waiting
// for JSON-RPC input that will never arrive.
func verifyStdinForMCP() error {
	if isatty.IsTerminal(os.Stdin.Fd()) || isatty.IsCygwinTerminal(os.Stdin.Fd()) {
		return fmt.Errorf("stdin is a terminal, not a pipe: ricegrep serve expects to be launched by an MCP client over stdio")
	}
	return nil
}
