package search

import (
	"strconv"
	"strings"
	"time"

	"github.com/moabualruz/ricegrep/internal/store"
)

// ParsedQuery is a natural-language query split into its free-text tokens
// and any key:value / key=value filters extracted from it, plus a rough
// confidence that the extracted filters were intentional rather than
// coincidental substrings of the free text.
type ParsedQuery struct {
	Tokens           []string
	FreeText         string
	Language         string
	RepositoryID     string
	FilePath         string
	MTimeAfter       *time.Time
	MTimeBefore      *time.Time
	IntentConfidence float64
}

// recognizedFilterKeys maps the accepted filter key spellings to the
// ParsedQuery field they populate.
var recognizedFilterKeys = map[string]string{
	"language":      "language",
	"lang":          "language",
	"repo":          "repository_id",
	"repo_id":       "repository_id",
	"repository":    "repository_id",
	"file":          "file_path",
	"path":          "file_path",
	"mtime_after":   "mtime_after",
	"mtime_before":  "mtime_before",
}

// ParseQuery extracts key:value and key=value filters from a free-text
// query string and tokenizes what remains using the same tokenizer the
// lexical index uses, so filter-stripped terms line up with how BM25 sees
// the corpus.
func ParseQuery(query string) ParsedQuery {
	fields := strings.Fields(query)
	var freeWords []string
	pq := ParsedQuery{}
	filtersFound := 0

	for _, field := range fields {
		key, value, ok := splitFilter(field)
		if !ok {
			freeWords = append(freeWords, field)
			continue
		}

		canonical, recognized := recognizedFilterKeys[strings.ToLower(key)]
		if !recognized {
			freeWords = append(freeWords, field)
			continue
		}

		switch canonical {
		case "language":
			pq.Language = value
		case "repository_id":
			pq.RepositoryID = value
		case "file_path":
			pq.FilePath = value
		case "mtime_after":
			if t, err := parseFilterTime(value); err == nil {
				pq.MTimeAfter = &t
			}
		case "mtime_before":
			if t, err := parseFilterTime(value); err == nil {
				pq.MTimeBefore = &t
			}
		}
		filtersFound++
	}

	pq.FreeText = strings.Join(freeWords, " ")
	pq.Tokens = store.TokenizeCode(pq.FreeText)

	if len(fields) == 0 {
		pq.IntentConfidence = 0
	} else {
		pq.IntentConfidence = float64(filtersFound) / float64(len(fields))
		if filtersFound > 0 && len(freeWords) > 0 {
			// Both filters and free text present is the common, intentional case.
			pq.IntentConfidence = 1.0
		}
	}

	return pq
}

// splitFilter splits "key:value" or "key=value" into its parts. Returns ok
// = false for anything else (plain free-text tokens, or values containing
// neither separator).
func splitFilter(field string) (key, value string, ok bool) {
	if idx := strings.Index(field, ":"); idx > 0 && idx < len(field)-1 {
		return field[:idx], field[idx+1:], true
	}
	if idx := strings.Index(field, "="); idx > 0 && idx < len(field)-1 {
		return field[:idx], field[idx+1:], true
	}
	return "", "", false
}

// parseFilterTime accepts an RFC3339 timestamp or a bare "YYYY-MM-DD" date,
// and also a relative day count like "7d" meaning 7 days before now.
func parseFilterTime(value string) (time.Time, error) {
	if strings.HasSuffix(value, "d") {
		if n, err := strconv.Atoi(strings.TrimSuffix(value, "d")); err == nil {
			return time.Now().AddDate(0, 0, -n), nil
		}
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", value)
}

// ApplyParsedFilters copies a ParsedQuery's language and file-path filters
// into SearchOptions (the file path becomes the only scope), leaving any
// fields the caller already set untouched so explicit options win over
// inferred ones. The repository and modification-time filters are not
// carried into SearchOptions.
func ApplyParsedFilters(opts SearchOptions, pq ParsedQuery) SearchOptions {
	if opts.Language == "" {
		opts.Language = pq.Language
	}
	if len(opts.Scopes) == 0 && pq.FilePath != "" {
		opts.Scopes = []string{pq.FilePath}
	}
	return opts
}
