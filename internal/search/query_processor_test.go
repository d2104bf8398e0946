package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseQuery_ExtractsLanguageFilter(t *testing.T) {
	pq := ParseQuery("lang:go http handler")
	assert.Equal(t, "go", pq.Language)
	assert.Equal(t, "http handler", pq.FreeText)
}

func TestParseQuery_ExtractsRepoAndPath(t *testing.T) {
	pq := ParseQuery("repo:ricegrep file:internal/search error handling")
	assert.Equal(t, "ricegrep", pq.RepositoryID)
	assert.Equal(t, "internal/search", pq.FilePath)
	assert.Equal(t, "error handling", pq.FreeText)
}

func TestParseQuery_NoFiltersLeavesFreeTextUntouched(t *testing.T) {
	pq := ParseQuery("parse json payload")
	assert.Equal(t, "", pq.Language)
	assert.Equal(t, "parse json payload", pq.FreeText)
	assert.Equal(t, float64(0), pq.IntentConfidence)
}

func TestParseQuery_UnrecognizedKeyTreatedAsFreeText(t *testing.T) {
	pq := ParseQuery("color:blue widget")
	assert.Equal(t, "", pq.Language)
	assert.Contains(t, pq.FreeText, "color:blue")
}

func TestApplyParsedFilters_DoesNotOverrideExplicitOptions(t *testing.T) {
	pq := ParseQuery("lang:go widget")
	opts := ApplyParsedFilters(SearchOptions{Language: "rust"}, pq)
	assert.Equal(t, "rust", opts.Language)
}
