// Package cmd provides the CLI commands for ricegrep-bench.
package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/moabualruz/ricegrep/internal/bench"
	"github.com/moabualruz/ricegrep/internal/config"
	"github.com/moabualruz/ricegrep/internal/embed"
	"github.com/moabualruz/ricegrep/internal/search"
	"github.com/moabualruz/ricegrep/internal/store"
)

var (
	indexDir      string
	benchmarkRoot string
	suiteFlag     bool
	loadFlag      bool
	loadWorkers   int
	loadDuration  time.Duration
)

// Execute runs the ricegrep-bench root command.
func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ricegrep-bench",
		Short: "Benchmark harness for the ricegrep hybrid search engine",
		Long: `ricegrep-bench replays recall/precision ground-truth suites and
concurrent load tests against an existing ricegrep index, reporting
latency percentiles and threshold alerts.

When neither --suite nor --load is given, suite mode runs by default.`,
		RunE: runBench,
	}

	cmd.Flags().StringVar(&indexDir, "index-dir", ".ricegrep", "Path to the project's index data directory")
	cmd.Flags().StringVar(&benchmarkRoot, "benchmark-root", "benchmarks", "Directory containing ground-truth suite files and load query lists")
	cmd.Flags().BoolVar(&suiteFlag, "suite", false, "Run suite mode (ground-truth precision/recall)")
	cmd.Flags().BoolVar(&loadFlag, "load", false, "Run load mode (concurrent synthetic queries)")
	cmd.Flags().IntVar(&loadWorkers, "load-workers", 4, "Number of concurrent workers in load mode")
	cmd.Flags().DurationVar(&loadDuration, "load-duration", 10*time.Second, "Duration of the load test")

	return cmd
}

func runBench(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	engine, closeFn, err := buildEngine(ctx, indexDir)
	if err != nil {
		return fmt.Errorf("build search engine: %w", err)
	}
	defer closeFn()

	// Default to suite mode when neither flag is given.
	runSuite := suiteFlag || !loadFlag
	runLoad := loadFlag

	if runSuite {
		if err := runSuiteMode(ctx, cmd, engine); err != nil {
			return err
		}
	}
	if runLoad {
		if err := runLoadMode(ctx, cmd, engine); err != nil {
			return err
		}
	}
	return nil
}

func runSuiteMode(ctx context.Context, cmd *cobra.Command, engine search.SearchEngine) error {
	suitePath := filepath.Join(benchmarkRoot, "suite.json")
	cases, err := bench.LoadGroundTruthFile(suitePath)
	if err != nil {
		return fmt.Errorf("load ground truth: %w", err)
	}

	report, err := bench.RunSuite(ctx, engine, cases, 10)
	if err != nil {
		return fmt.Errorf("run suite: %w", err)
	}

	alerts := bench.NewAlertManager().EvaluateSuite(report)
	return printJSON(cmd, map[string]any{"mode": "suite", "report": report, "alerts": alerts})
}

func runLoadMode(ctx context.Context, cmd *cobra.Command, engine search.SearchEngine) error {
	queriesPath := filepath.Join(benchmarkRoot, "load_queries.json")
	raw, err := os.ReadFile(queriesPath)
	if err != nil {
		return fmt.Errorf("read load queries: %w", err)
	}
	var queries []string
	if err := json.Unmarshal(raw, &queries); err != nil {
		return fmt.Errorf("decode load queries: %w", err)
	}

	report, err := bench.RunLoad(ctx, engine, bench.LoadConfig{
		Workers:  loadWorkers,
		Duration: loadDuration,
		Queries:  queries,
		Limit:    10,
	})
	if err != nil {
		return fmt.Errorf("run load: %w", err)
	}

	alerts := bench.NewAlertManager().EvaluateLoad(report)
	return printJSON(cmd, map[string]any{"mode": "load", "report": report, "alerts": alerts})
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// buildEngine opens the existing on-disk indices under dataDir in read-only
// fashion (the static embedder, never a network-backed one, since a
// benchmark run should never depend on an external model server being up).
func buildEngine(ctx context.Context, dataDir string) (search.SearchEngine, func(), error) {
	root, err := config.FindProjectRoot(dataDir)
	if err != nil {
		root = dataDir
	}
	cfg, err := config.Load(root)
	if err != nil {
		cfg = config.NewConfig()
	}

	metadataPath := filepath.Join(dataDir, "metadata.db")
	metadata, err := store.NewSQLiteStore(metadataPath)
	if err != nil {
		return nil, nil, fmt.Errorf("open metadata store: %w", err)
	}

	bm25BasePath := filepath.Join(dataDir, "bm25")
	bm25Config := store.DefaultBM25Config()
	bm25, err := store.NewBM25IndexWithBackend(bm25BasePath, bm25Config, cfg.Search.BM25Backend)
	if err != nil {
		_ = metadata.Close()
		return nil, nil, fmt.Errorf("open bm25 index: %w", err)
	}

	embedder := embed.NewStaticEmbedder768()
	vectorConfig := store.DefaultVectorStoreConfig(embedder.Dimensions())
	vector, err := store.NewHNSWStore(vectorConfig)
	if err != nil {
		_ = metadata.Close()
		_ = bm25.Close()
		return nil, nil, fmt.Errorf("open vector store: %w", err)
	}

	vectorPath := filepath.Join(dataDir, "vectors.hnsw")
	if _, statErr := os.Stat(vectorPath); statErr == nil {
		_ = vector.Load(vectorPath)
	}

	engine := search.New(bm25, vector, embedder, metadata, search.DefaultConfig())

	closeFn := func() {
		_ = metadata.Close()
		_ = bm25.Close()
		_ = vector.Close()
		_ = embedder.Close()
	}
	return engine, closeFn, nil
}
