package bench

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moabualruz/ricegrep/internal/search"
	"github.com/moabualruz/ricegrep/internal/store"
)

type fakeEngine struct {
	results map[string][]*search.SearchResult
	err     error
	delay   time.Duration
}

func (f *fakeEngine) Search(ctx context.Context, query string, opts search.SearchOptions) ([]*search.SearchResult, error) {
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.results[query], nil
}
func (f *fakeEngine) Index(context.Context, []*store.Chunk) error { return nil }
func (f *fakeEngine) Delete(context.Context, []string) error      { return nil }
func (f *fakeEngine) Stats() *search.EngineStats                  { return &search.EngineStats{} }
func (f *fakeEngine) Close() error                                { return nil }

func TestRunSuite_ComputesPrecisionAndRecall(t *testing.T) {
	engine := &fakeEngine{
		results: map[string][]*search.SearchResult{
			"find foo": {
				{Chunk: &store.Chunk{ID: "c1"}},
				{Chunk: &store.Chunk{ID: "c2"}},
			},
		},
	}
	cases := []GroundTruthCase{
		{Query: "find foo", RelevantChunkIDs: []string{"c1", "c3"}},
	}

	report, err := RunSuite(context.Background(), engine, cases, 10)
	require.NoError(t, err)
	require.Len(t, report.Cases, 1)
	assert.Equal(t, 1, report.Cases[0].Hits)
	assert.InDelta(t, 0.5, report.Cases[0].Precision, 0.001)
	assert.InDelta(t, 0.5, report.Cases[0].Recall, 0.001)
}

func TestRunSuite_PropagatesSearchError(t *testing.T) {
	engine := &fakeEngine{err: errors.New("boom")}
	_, err := RunSuite(context.Background(), engine, []GroundTruthCase{{Query: "q"}}, 10)
	assert.Error(t, err)
}

func TestRunLoad_ReportsThroughputAndLatency(t *testing.T) {
	engine := &fakeEngine{results: map[string][]*search.SearchResult{"q": {}}}

	report, err := RunLoad(context.Background(), engine, LoadConfig{
		Workers:  2,
		Duration: 100 * time.Millisecond,
		Queries:  []string{"q"},
		Limit:    10,
	})
	require.NoError(t, err)
	assert.Greater(t, report.TotalRequests, 0)
}

func TestRunLoad_RequiresQueries(t *testing.T) {
	engine := &fakeEngine{}
	_, err := RunLoad(context.Background(), engine, LoadConfig{Workers: 1, Duration: time.Millisecond})
	assert.Error(t, err)
}

func TestComputeLatencyStats_Percentiles(t *testing.T) {
	durations := []time.Duration{
		10 * time.Millisecond, 20 * time.Millisecond, 30 * time.Millisecond,
		40 * time.Millisecond, 50 * time.Millisecond,
	}
	stats := ComputeLatencyStats(durations)
	assert.Equal(t, 10*time.Millisecond, stats.Min)
	assert.Equal(t, 50*time.Millisecond, stats.Max)
	assert.Equal(t, 30*time.Millisecond, stats.P50)
}

func TestAlertManager_FlagsLowRecall(t *testing.T) {
	report := &SuiteReport{MeanRecall: 0.3, MeanPrecision: 0.9}
	alerts := NewAlertManager().EvaluateSuite(report)
	require.NotEmpty(t, alerts)
	assert.Equal(t, "recall_below_threshold", alerts[0].Rule)
}

func TestAlertManager_NoAlertsWhenHealthy(t *testing.T) {
	report := &SuiteReport{MeanRecall: 0.9, MeanPrecision: 0.9, Latencies: LatencyStats{P95: 10 * time.Millisecond}}
	alerts := NewAlertManager().EvaluateSuite(report)
	assert.Empty(t, alerts)
}
