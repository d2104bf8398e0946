package mcp

import (
	"bufio"
	"bytes"
	"context"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	amerrors "github.com/moabualruz/ricegrep/internal/errors"

	"github.com/moabualruz/ricegrep/internal/edit"
	"github.com/moabualruz/ricegrep/internal/events"
	"github.com/moabualruz/ricegrep/internal/scanner"
	"github.com/moabualruz/ricegrep/internal/search"
)

// defaultGrepMaxResults caps grep matches when the caller does not specify
// one, mirroring the tool's original 100-hit default.
const defaultGrepMaxResults = 100

// mcpNlSearchHandler is the MCP SDK handler for the nl_search tool. It wraps
// the same engine the search tool uses but exposes include/path scoping and
// a no_rerank escape hatch for callers that want the raw fused ranking.
func (s *Server) mcpNlSearchHandler(ctx context.Context, _ *mcp.CallToolRequest, input NlSearchInput) (
	*mcp.CallToolResult,
	SearchOutput,
	error,
) {
	if input.Query == "" {
		return nil, SearchOutput{}, NewInvalidParamsError("query parameter is required")
	}

	pq := search.ParseQuery(input.Query)
	opts := search.ApplyParsedFilters(search.SearchOptions{Limit: 10}, pq)
	if input.MaxResults > 0 {
		opts.Limit = input.MaxResults
	}
	if input.Path != "" {
		opts.Scopes = []string{input.Path}
	}
	opts.BM25Only = input.NoRerank

	start := time.Now()
	results, err := s.engine.Search(ctx, pq.FreeText, opts)
	if err != nil {
		s.publishSearchExecuted(input.Query, "nl_search", 0, time.Since(start), err)
		return nil, SearchOutput{}, MapError(err)
	}

	if input.Include != "" {
		results = filterResultsByGlob(results, input.Include)
	}

	output := SearchOutput{Results: make([]SearchResultOutput, 0, len(results))}
	for _, r := range results {
		if r.Chunk != nil {
			output.Results = append(output.Results, ToSearchResultOutput(r))
		}
	}

	s.publishSearchExecuted(input.Query, "nl_search", len(output.Results), time.Since(start), nil)

	if input.Answer && len(output.Results) > 0 {
		output.Results[0].MatchReason = "top match: " + firstLine(output.Results[0].Content)
	}

	return nil, output, nil
}

// publishSearchExecuted fires a SearchExecuted domain event, swallowing the
// case where no event bus was wired.
func (s *Server) publishSearchExecuted(query, mode string, count int, dur time.Duration, err error) {
	s.events.Publish(context.Background(), events.DomainEvent{
		Type: events.TypeSearchExecuted,
		At:   time.Now(),
		Payload: events.SearchExecuted{
			Query:       query,
			Mode:        mode,
			ResultCount: count,
			DurationMS:  dur.Milliseconds(),
			Err:         err,
		},
	})
}

// filterResultsByGlob keeps only results whose file path matches pattern.
func filterResultsByGlob(results []*search.SearchResult, pattern string) []*search.SearchResult {
	out := make([]*search.SearchResult, 0, len(results))
	for _, r := range results {
		if r.Chunk == nil {
			continue
		}
		if ok, _ := filepath.Match(pattern, filepath.Base(r.Chunk.FilePath)); ok {
			out = append(out, r)
		}
	}
	return out
}

func firstLine(s string) string {
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		return s[:idx]
	}
	return s
}

// mcpGrepHandler is the MCP SDK handler for the grep tool: a regular
// expression search over indexed file contents, skipping binary files and
// anything .gitignore excludes.
func (s *Server) mcpGrepHandler(ctx context.Context, _ *mcp.CallToolRequest, input GrepInput) (
	*mcp.CallToolResult,
	GrepOutput,
	error,
) {
	if input.Pattern == "" {
		return nil, GrepOutput{}, NewInvalidParamsError("pattern parameter is required")
	}
	re, err := regexp.Compile(input.Pattern)
	if err != nil {
		return nil, GrepOutput{}, NewInvalidParamsError("invalid regular expression: " + err.Error())
	}

	maxResults := input.MaxResults
	if maxResults <= 0 {
		maxResults = defaultGrepMaxResults
	}

	root := s.resolveSearchRoot(input.Path)
	sc, err := scanner.New()
	if err != nil {
		return nil, GrepOutput{}, MapError(err)
	}

	files, err := sc.Scan(ctx, &scanner.ScanOptions{RootDir: root})
	if err != nil {
		return nil, GrepOutput{}, MapError(err)
	}

	var out GrepOutput
	for f := range files {
		if out.Truncated {
			continue // drain remaining channel sends without more work
		}
		if f.Error != nil || f.File == nil {
			continue
		}
		if input.Include != "" {
			if ok, _ := filepath.Match(input.Include, filepath.Base(f.File.Path)); !ok {
				continue
			}
		}
		if grepFile(f.File.AbsPath, f.File.Path, re, maxResults, &out) {
			out.Truncated = true
		}
	}

	return nil, out, nil
}

// grepFile scans a single file line by line for re, appending matches to
// out.Matches. Returns true once out reaches maxResults.
func grepFile(absPath, relPath string, re *regexp.Regexp, maxResults int, out *GrepOutput) bool {
	content, err := os.ReadFile(absPath)
	if err != nil {
		return false
	}
	if edit.IsBinaryFile(absPath, content) {
		return false
	}

	lineScanner := bufio.NewScanner(bytes.NewReader(content))
	lineScanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNum := 0
	for lineScanner.Scan() {
		lineNum++
		line := lineScanner.Text()
		if re.MatchString(line) {
			out.Matches = append(out.Matches, GrepMatch{
				FilePath: relPath,
				Line:     lineNum,
				Content:  line,
			})
			if len(out.Matches) >= maxResults {
				return true
			}
		}
	}
	return false
}

// mcpGlobHandler is the MCP SDK handler for the glob tool.
func (s *Server) mcpGlobHandler(ctx context.Context, _ *mcp.CallToolRequest, input GlobInput) (
	*mcp.CallToolResult,
	GlobOutput,
	error,
) {
	if input.Pattern == "" {
		return nil, GlobOutput{}, NewInvalidParamsError("pattern parameter is required")
	}

	root := s.resolveSearchRoot(input.Path)
	pattern := input.Pattern
	if input.IgnoreCase {
		pattern = strings.ToLower(pattern)
	}

	sc, err := scanner.New()
	if err != nil {
		return nil, GlobOutput{}, MapError(err)
	}
	files, err := sc.Scan(ctx, &scanner.ScanOptions{RootDir: root})
	if err != nil {
		return nil, GlobOutput{}, MapError(err)
	}

	var paths []string
	for f := range files {
		if f.Error != nil || f.File == nil {
			continue
		}
		candidate := f.File.Path
		if input.IgnoreCase {
			candidate = strings.ToLower(candidate)
		}
		if ok, _ := filepath.Match(pattern, candidate); ok {
			paths = append(paths, f.File.Path)
			continue
		}
		// Also allow matching just the base name, since most callers pass
		// a bare "*.go" rather than a full relative-path pattern.
		base := filepath.Base(candidate)
		if ok, _ := filepath.Match(pattern, base); ok {
			paths = append(paths, f.File.Path)
		}
	}
	sort.Strings(paths)

	return nil, GlobOutput{Paths: paths}, nil
}

// mcpListHandler is the MCP SDK handler for the list tool: a single
// directory's entries, optionally filtered by a glob pattern.
func (s *Server) mcpListHandler(_ context.Context, _ *mcp.CallToolRequest, input ListInput) (
	*mcp.CallToolResult,
	ListOutput,
	error,
) {
	dir := s.resolveSearchRoot(input.Path)

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, ListOutput{}, MapError(mapOSError(err))
	}

	pattern := input.Pattern
	if input.IgnoreCase {
		pattern = strings.ToLower(pattern)
	}

	out := ListOutput{Entries: make([]ListEntry, 0, len(entries))}
	for _, e := range entries {
		name := e.Name()
		matchName := name
		if input.IgnoreCase {
			matchName = strings.ToLower(name)
		}
		if pattern != "" {
			if ok, _ := filepath.Match(pattern, matchName); !ok {
				continue
			}
		}

		info, err := e.Info()
		var size int64
		if err == nil {
			size = info.Size()
		}

		out.Entries = append(out.Entries, ListEntry{
			Name:      name,
			Path:      filepath.Join(input.Path, name),
			IsDir:     e.IsDir(),
			SizeBytes: size,
		})
	}

	return nil, out, nil
}

// mcpReadHandler is the MCP SDK handler for the read tool. A successful read
// marks the file in the session's read tracker, satisfying the
// read-before-write precondition for a subsequent edit or write.
func (s *Server) mcpReadHandler(_ context.Context, _ *mcp.CallToolRequest, input ReadInput) (
	*mcp.CallToolResult,
	ReadOutput,
	error,
) {
	if input.Path == "" {
		return nil, ReadOutput{}, NewInvalidParamsError("path parameter is required")
	}

	path, err := edit.NewFilePath(s.rootPath, input.Path)
	if err != nil {
		return nil, ReadOutput{}, NewInvalidParamsError(err.Error())
	}

	raw, err := os.ReadFile(path.String())
	if err != nil {
		return nil, ReadOutput{}, MapError(mapOSError(err))
	}

	if edit.IsBinaryFile(path.String(), raw) {
		return nil, ReadOutput{}, NewInvalidParamsError("refusing to read binary file: " + input.Path)
	}

	content := edit.FormatFileContentForMCP(input.Path, string(raw), input.Offset, input.Limit)
	s.reads.MarkRead(path)

	return nil, ReadOutput{Content: content}, nil
}

// mcpEditHandler is the MCP SDK handler for the edit tool.
func (s *Server) mcpEditHandler(ctx context.Context, _ *mcp.CallToolRequest, input EditInput) (
	*mcp.CallToolResult,
	EditOutput,
	error,
) {
	if input.FilePath == "" || input.OldString == "" {
		return nil, EditOutput{}, NewInvalidParamsError("file_path and old_string are required")
	}
	if input.OldString == input.NewString {
		return nil, EditOutput{}, NewInvalidParamsError("old_string and new_string must differ")
	}

	path, err := edit.NewFilePath(s.rootPath, input.FilePath)
	if err != nil {
		return nil, EditOutput{}, NewInvalidParamsError(err.Error())
	}

	timeout := edit.DefaultTimeout
	if input.TimeoutSecs > 0 {
		timeout = time.Duration(input.TimeoutSecs) * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	fe, err := edit.ApplyEdit(ctx, s.reads, s.events, path, edit.EditPattern{
		OldString:  input.OldString,
		NewString:  input.NewString,
		ReplaceAll: input.ReplaceAll,
	})

	// FileEditExecuted only fires for edits that actually reached the
	// Validated -> Executed transition; a read-before-write precondition
	// failure or a pattern-not-found error never got there.
	if err == nil {
		s.events.Publish(context.Background(), events.DomainEvent{
			Type: events.TypeFileEditExecuted,
			At:   fe.ExecutedAt,
			Payload: events.FileEditExecuted{
				Path:     path.String(),
				BytesOld: len(fe.OldContent),
				BytesNew: len(fe.NewContent),
				Err:      nil,
			},
		})
	}

	if err != nil {
		return nil, EditOutput{}, MapError(err)
	}

	return nil, EditOutput{
		FilePath:    input.FilePath,
		Occurrences: fe.Occurrences,
		Message:     "edit applied successfully",
	}, nil
}

// mcpWriteHandler is the MCP SDK handler for the write tool.
func (s *Server) mcpWriteHandler(ctx context.Context, _ *mcp.CallToolRequest, input WriteInput) (
	*mcp.CallToolResult,
	WriteOutput,
	error,
) {
	if input.FilePath == "" {
		return nil, WriteOutput{}, NewInvalidParamsError("file_path parameter is required")
	}

	path, err := edit.NewFilePath(s.rootPath, input.FilePath)
	if err != nil {
		return nil, WriteOutput{}, NewInvalidParamsError(err.Error())
	}

	timeout := edit.DefaultTimeout
	if input.TimeoutSecs > 0 {
		timeout = time.Duration(input.TimeoutSecs) * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	fe, err := edit.WriteFile(ctx, s.reads, s.events, path, input.Content)
	if err != nil {
		return nil, WriteOutput{}, MapError(err)
	}

	s.events.Publish(context.Background(), events.DomainEvent{
		Type: events.TypeFileEditExecuted,
		At:   fe.ExecutedAt,
		Payload: events.FileEditExecuted{
			Path:     path.String(),
			BytesOld: len(fe.OldContent),
			BytesNew: len(fe.NewContent),
			Err:      nil,
		},
	})

	return nil, WriteOutput{
		FilePath: input.FilePath,
		Message:  "file written successfully",
	}, nil
}

// resolveSearchRoot joins path onto the server's project root when path is
// relative, or returns the project root itself when path is empty.
func (s *Server) resolveSearchRoot(path string) string {
	if path == "" {
		return s.rootPath
	}
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(s.rootPath, path)
}

// mapOSError wraps a bare filesystem error as an AmanError so MapError can
// classify it consistently with the rest of the server's error handling.
func mapOSError(err error) error {
	if os.IsNotExist(err) {
		return amerrors.IOError("file not found", err)
	}
	return amerrors.IOError("failed to access file", err)
}
