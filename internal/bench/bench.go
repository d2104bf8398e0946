// Package bench implements the benchmark harness: a suite mode that replays
// a ground-truth query set against a search engine and scores recall, and a
// load mode that hammers the engine with concurrent synthetic queries to
// measure latency under load. Both modes report the same latency
// percentiles the telemetry package buckets queries into.
package bench

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/moabualruz/ricegrep/internal/search"
)

// GroundTruthCase is one line of a benchmark suite file: a query and the
// chunk IDs considered relevant for it.
type GroundTruthCase struct {
	Query            string   `json:"query"`
	RelevantChunkIDs []string `json:"relevant_chunk_ids"`
}

// LoadGroundTruth reads a JSON array of GroundTruthCase from r.
func LoadGroundTruth(r io.Reader) ([]GroundTruthCase, error) {
	var cases []GroundTruthCase
	if err := json.NewDecoder(r).Decode(&cases); err != nil {
		return nil, fmt.Errorf("decode ground truth: %w", err)
	}
	return cases, nil
}

// LoadGroundTruthFile opens path and loads its ground-truth cases.
func LoadGroundTruthFile(path string) ([]GroundTruthCase, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return LoadGroundTruth(f)
}

// CaseResult is one ground-truth case's outcome.
type CaseResult struct {
	Query       string
	Relevant    int
	Retrieved   int
	Hits        int
	Latency     time.Duration
	Precision   float64
	Recall      float64
}

// SuiteReport summarizes a full suite run.
type SuiteReport struct {
	Cases           []CaseResult
	MeanPrecision   float64
	MeanRecall      float64
	Latencies       LatencyStats
}

// RunSuite executes every ground-truth case against engine and scores
// precision/recall against each case's relevant chunk IDs.
func RunSuite(ctx context.Context, engine search.SearchEngine, cases []GroundTruthCase, limit int) (*SuiteReport, error) {
	report := &SuiteReport{Cases: make([]CaseResult, 0, len(cases))}
	var durations []time.Duration
	var precisionSum, recallSum float64

	for _, c := range cases {
		relevant := toSet(c.RelevantChunkIDs)

		start := time.Now()
		results, err := engine.Search(ctx, c.Query, search.SearchOptions{Limit: limit})
		elapsed := time.Since(start)
		if err != nil {
			return nil, fmt.Errorf("search %q: %w", c.Query, err)
		}

		hits := 0
		for _, r := range results {
			if r.Chunk == nil {
				continue
			}
			if _, ok := relevant[r.Chunk.ID]; ok {
				hits++
			}
		}

		cr := CaseResult{
			Query:     c.Query,
			Relevant:  len(relevant),
			Retrieved: len(results),
			Hits:      hits,
			Latency:   elapsed,
		}
		if len(results) > 0 {
			cr.Precision = float64(hits) / float64(len(results))
		}
		if len(relevant) > 0 {
			cr.Recall = float64(hits) / float64(len(relevant))
		}

		report.Cases = append(report.Cases, cr)
		durations = append(durations, elapsed)
		precisionSum += cr.Precision
		recallSum += cr.Recall
	}

	if len(cases) > 0 {
		report.MeanPrecision = precisionSum / float64(len(cases))
		report.MeanRecall = recallSum / float64(len(cases))
	}
	report.Latencies = ComputeLatencyStats(durations)

	return report, nil
}

func toSet(ids []string) map[string]struct{} {
	m := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		m[id] = struct{}{}
	}
	return m
}

// LoadConfig configures a concurrent load-test run.
type LoadConfig struct {
	Workers  int
	Duration time.Duration
	Queries  []string
	Limit    int
}

// LoadReport summarizes a load-test run.
type LoadReport struct {
	TotalRequests int
	ErrorCount    int
	Latencies     LatencyStats
	Throughput    float64 // requests/sec
}

// RunLoad hammers engine with cfg.Workers concurrent goroutines, each
// looping through cfg.Queries, for cfg.Duration.
func RunLoad(ctx context.Context, engine search.SearchEngine, cfg LoadConfig) (*LoadReport, error) {
	if len(cfg.Queries) == 0 {
		return nil, fmt.Errorf("load test requires at least one query")
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.Duration)
	defer cancel()

	var (
		mu        sync.Mutex
		latencies []time.Duration
		errCount  int
	)

	var wg sync.WaitGroup
	start := time.Now()
	for w := 0; w < cfg.Workers; w++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			i := 0
			for {
				select {
				case <-ctx.Done():
					return
				default:
				}
				q := cfg.Queries[i%len(cfg.Queries)]
				i++

				qStart := time.Now()
				_, err := engine.Search(ctx, q, search.SearchOptions{Limit: cfg.Limit})
				elapsed := time.Since(qStart)

				mu.Lock()
				latencies = append(latencies, elapsed)
				if err != nil {
					errCount++
				}
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	wall := time.Since(start)

	report := &LoadReport{
		TotalRequests: len(latencies),
		ErrorCount:    errCount,
		Latencies:     ComputeLatencyStats(latencies),
	}
	if wall > 0 {
		report.Throughput = float64(len(latencies)) / wall.Seconds()
	}
	return report, nil
}

// LatencyStats holds percentile latencies computed over a run.
type LatencyStats struct {
	P50 time.Duration
	P95 time.Duration
	P99 time.Duration
	Max time.Duration
	Min time.Duration
}

// ComputeLatencyStats sorts durations and extracts percentile cutoffs.
func ComputeLatencyStats(durations []time.Duration) LatencyStats {
	if len(durations) == 0 {
		return LatencyStats{}
	}
	sorted := append([]time.Duration(nil), durations...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	return LatencyStats{
		P50: percentile(sorted, 0.50),
		P95: percentile(sorted, 0.95),
		P99: percentile(sorted, 0.99),
		Min: sorted[0],
		Max: sorted[len(sorted)-1],
	}
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 1 {
		return sorted[0]
	}
	idx := int(p * float64(len(sorted)-1))
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}
