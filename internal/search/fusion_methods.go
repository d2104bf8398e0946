package search

import (
	"errors"
	"sort"

	"github.com/moabualruz/ricegrep/internal/store"
)

// FusionMethod selects the algorithm used to combine BM25 and vector result
// lists into a single ranking.
type FusionMethod string

const (
	// MethodRRF is Reciprocal Rank Fusion, rank-based and scale-free.
	MethodRRF FusionMethod = "rrf"
	// MethodWeighted linearly interpolates normalized BM25 and vector scores.
	MethodWeighted FusionMethod = "weighted"
	// MethodAdaptive combines exactly like MethodRRF, with the weights passed
	// to Fuse. Fuse does not classify the query itself; the engine's optional
	// Classifier, when set, picks the weights before Fuse runs, for any method.
	MethodAdaptive FusionMethod = "adaptive"
	// MethodLearned is reserved for a trained reranker; it returns
	// ErrUnsupportedMethod until a model path is configured.
	MethodLearned FusionMethod = "learned"
)

// ErrUnsupportedMethod is returned by MultiMethodFusion.Fuse when asked for
// MethodLearned without a configured model.
var ErrUnsupportedMethod = errors.New("fusion method not supported in this configuration")

// DefaultCandidateLimit bounds how many union candidates from the BM25 and
// vector legs survive fusion: Fuse scores both legs in full, then keeps only
// the candidates BuildCandidates selected.
const DefaultCandidateLimit = 200

// CandidateChunk is a deduplicated candidate drawn from the union of the
// BM25 and vector result lists, before fusion scoring is applied.
type CandidateChunk struct {
	ChunkID     string
	FilePath    string
	InBM25      bool
	InVector    bool
	BM25Result  *store.BM25Result
	VecResult   *store.VectorResult
}

// FusedResults wraps a scored, sorted result list with the metadata needed
// to explain how it was produced.
type FusedResults struct {
	Results       []*FusedResult
	Method        FusionMethod
	CandidateCount int
	Truncated     bool // true if more than CandidateLimit candidates were available
}

// MultiMethodFusion generalizes RRFFusion into a family of fusion
// strategies selectable per request, plus candidate-set construction,
// per-file diversity penalties, and a quality-threshold fallback that never
// returns an empty result set when candidates exist.
type MultiMethodFusion struct {
	RRF            *RRFFusion
	CandidateLimit int
	// DiversityPenaltyPerPrior scales a candidate's score by
	// 1 - DiversityPenaltyPerPrior*(prior same-file hits) to avoid one file
	// dominating a page of results; clamped so the multiplier never goes
	// negative.
	DiversityPenaltyPerPrior float64
	// QualityThreshold is the minimum normalized score a result must clear
	// to be kept, UNLESS discarding it would empty the result set.
	QualityThreshold float64
	// ModelPath, when set, enables MethodLearned.
	ModelPath string
}

// NewMultiMethodFusion returns a fusion engine with the package defaults:
// RRF k=60, candidate_limit=200, a 0.3-per-prior diversity penalty, and no
// quality floor (every candidate survives thresholding).
func NewMultiMethodFusion() *MultiMethodFusion {
	return &MultiMethodFusion{
		RRF:                      NewRRFFusion(),
		CandidateLimit:           DefaultCandidateLimit,
		DiversityPenaltyPerPrior: 0.3,
		QualityThreshold:         0,
	}
}

// NewMultiMethodFusionFromConfig builds a fusion engine from an Engine's
// configuration, so the coordinator's live fuse step uses the same
// candidate-limit, diversity-penalty, quality-threshold, and learned-model
// settings an operator configures on the engine itself rather than a second,
// independently-tuned fusion instance.
func NewMultiMethodFusionFromConfig(cfg EngineConfig) *MultiMethodFusion {
	m := NewMultiMethodFusion()
	m.RRF = NewRRFFusionWithK(cfg.RRFConstant)
	if cfg.CandidateLimit > 0 {
		m.CandidateLimit = cfg.CandidateLimit
	}
	m.DiversityPenaltyPerPrior = cfg.DiversityPenaltyPerPrior
	m.QualityThreshold = cfg.QualityThreshold
	m.ModelPath = cfg.LearnedModelPath
	return m
}

// BuildCandidates unions the BM25 and vector result lists into deduplicated
// candidates, truncated to CandidateLimit. BM25 results are favored when
// truncating since they represent exact/keyword evidence.
func (m *MultiMethodFusion) BuildCandidates(bm25 []*store.BM25Result, vec []*store.VectorResult) ([]*CandidateChunk, bool) {
	limit := m.CandidateLimit
	if limit <= 0 {
		limit = DefaultCandidateLimit
	}

	byID := make(map[string]*CandidateChunk, len(bm25)+len(vec))
	order := make([]string, 0, len(bm25)+len(vec))

	for _, r := range bm25 {
		c := &CandidateChunk{ChunkID: r.DocID, InBM25: true, BM25Result: r}
		byID[r.DocID] = c
		order = append(order, r.DocID)
	}
	for _, r := range vec {
		if c, ok := byID[r.ID]; ok {
			c.InVector = true
			c.VecResult = r
			continue
		}
		c := &CandidateChunk{ChunkID: r.ID, InVector: true, VecResult: r}
		byID[r.ID] = c
		order = append(order, r.ID)
	}

	truncated := len(order) > limit
	if truncated {
		order = order[:limit]
	}

	out := make([]*CandidateChunk, 0, len(order))
	for _, id := range order {
		out = append(out, byID[id])
	}
	return out, truncated
}

// Fuse combines bm25 and vec results using method, applies the diversity
// penalty and quality threshold, and returns the sorted FusedResults.
func (m *MultiMethodFusion) Fuse(
	bm25 []*store.BM25Result,
	vec []*store.VectorResult,
	weights Weights,
	method FusionMethod,
	filePaths map[string]string, // chunkID -> file path, for diversity penalty; nil disables it
) (*FusedResults, error) {
	candidates, truncated := m.BuildCandidates(bm25, vec)

	var results []*FusedResult
	switch method {
	case "", MethodRRF:
		results = m.RRF.Fuse(bm25, vec, weights)
	case MethodWeighted:
		results = m.fuseWeighted(bm25, vec, weights)
	case MethodAdaptive:
		results = m.RRF.Fuse(bm25, vec, weights)
	case MethodLearned:
		if m.ModelPath == "" {
			return nil, ErrUnsupportedMethod
		}
		// A configured learned reranker would score here; absent one, fall
		// back to RRF so the fusion engine never errors once a model path
		// is wired.
		results = m.RRF.Fuse(bm25, vec, weights)
	default:
		return nil, ErrUnsupportedMethod
	}

	if truncated {
		kept := make(map[string]struct{}, len(candidates))
		for _, c := range candidates {
			kept[c.ChunkID] = struct{}{}
		}
		filtered := results[:0]
		for _, r := range results {
			if _, ok := kept[r.ChunkID]; ok {
				filtered = append(filtered, r)
			}
		}
		results = filtered
	}

	if filePaths != nil && m.DiversityPenaltyPerPrior > 0 {
		m.applyDiversityPenalty(results, filePaths)
	}

	results = m.applyQualityThreshold(results)

	return &FusedResults{
		Results:        results,
		Method:         method,
		CandidateCount: len(results),
		Truncated:      truncated,
	}, nil
}

// fuseWeighted linearly interpolates max-normalized BM25 and vector scores
// (each score divided by its list's maximum) instead of using rank
// positions, preferred when absolute score
// magnitude (not just ordering) carries signal.
func (m *MultiMethodFusion) fuseWeighted(bm25 []*store.BM25Result, vec []*store.VectorResult, weights Weights) []*FusedResult {
	scores := make(map[string]*FusedResult, len(bm25)+len(vec))

	maxBM25 := maxBM25Score(bm25)
	for rank, r := range bm25 {
		fr := getOrCreateFused(scores, r.DocID)
		fr.BM25Score = r.Score
		fr.BM25Rank = rank + 1
		fr.MatchedTerms = r.MatchedTerms
		if maxBM25 > 0 {
			fr.RRFScore += weights.BM25 * (r.Score / maxBM25)
		}
	}

	maxVec := maxVecScore(vec)
	for rank, r := range vec {
		fr := getOrCreateFused(scores, r.ID)
		fr.VecScore = float64(r.Score)
		fr.VecRank = rank + 1
		if fr.BM25Rank > 0 {
			fr.InBothLists = true
		}
		if maxVec > 0 {
			fr.RRFScore += weights.Semantic * (float64(r.Score) / maxVec)
		}
	}

	out := make([]*FusedResult, 0, len(scores))
	for _, r := range scores {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].RRFScore != out[j].RRFScore {
			return out[i].RRFScore > out[j].RRFScore
		}
		if out[i].InBothLists != out[j].InBothLists {
			return out[i].InBothLists
		}
		return out[i].ChunkID < out[j].ChunkID
	})
	return out
}

// applyDiversityPenalty reduces the score of later results from a file that
// already contributed earlier, preferred-first, results. This keeps a
// single large file from monopolizing the page.
func (m *MultiMethodFusion) applyDiversityPenalty(results []*FusedResult, filePaths map[string]string) {
	seenPerFile := make(map[string]int)
	for _, r := range results {
		file := filePaths[r.ChunkID]
		if file == "" {
			continue
		}
		prior := seenPerFile[file]
		multiplier := 1 - m.DiversityPenaltyPerPrior*float64(prior)
		if multiplier < 0 {
			multiplier = 0
		}
		r.RRFScore *= multiplier
		seenPerFile[file]++
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].RRFScore > results[j].RRFScore
	})
}

// applyQualityThreshold drops results below QualityThreshold, unless doing
// so would empty the set — a single low-confidence hit is still more useful
// than no answer at all.
func (m *MultiMethodFusion) applyQualityThreshold(results []*FusedResult) []*FusedResult {
	if m.QualityThreshold <= 0 || len(results) == 0 {
		return results
	}
	kept := make([]*FusedResult, 0, len(results))
	for _, r := range results {
		if r.RRFScore >= m.QualityThreshold {
			kept = append(kept, r)
		}
	}
	if len(kept) == 0 {
		return results[:1]
	}
	return kept
}

func getOrCreateFused(m map[string]*FusedResult, id string) *FusedResult {
	if r, ok := m[id]; ok {
		return r
	}
	r := &FusedResult{ChunkID: id}
	m[id] = r
	return r
}

func maxBM25Score(results []*store.BM25Result) float64 {
	var max float64
	for _, r := range results {
		if r.Score > max {
			max = r.Score
		}
	}
	return max
}

func maxVecScore(results []*store.VectorResult) float64 {
	var max float64
	for _, r := range results {
		if float64(r.Score) > max {
			max = float64(r.Score)
		}
	}
	return max
}

