package mcp

// SearchCodeInput defines the input schema for the search_code tool.
type SearchCodeInput struct {
	Query      string   `json:"query" jsonschema:"the code search query to execute"`
	Language   string   `json:"language,omitempty" jsonschema:"filter by programming language (go, typescript, python)"`
	SymbolType string   `json:"symbol_type,omitempty" jsonschema:"filter by symbol type: function, class, interface, type, method, or any"`
	Limit      int      `json:"limit,omitempty" jsonschema:"maximum number of results, default 10"`
	Scope      []string `json:"scope,omitempty" jsonschema:"filter by path prefixes (OR logic)"`
}

// SearchDocsInput defines the input schema for the search_docs tool.
type SearchDocsInput struct {
	Query string   `json:"query" jsonschema:"the documentation search query to execute"`
	Limit int      `json:"limit,omitempty" jsonschema:"maximum number of results, default 10"`
	Scope []string `json:"scope,omitempty" jsonschema:"filter by path prefixes (OR logic)"`
}

// IndexStatusInput defines the input schema for the index_status tool (no parameters).
type IndexStatusInput struct{}

// IndexStatusOutput defines the output schema for the index_status tool.
type IndexStatusOutput struct {
	Project    ProjectInfo       `json:"project"`
	Stats      IndexStats        `json:"stats"`
	Embeddings EmbeddingInfo     `json:"embeddings"`
	Indexing   *IndexingProgress `json:"indexing,omitempty"` // Present during background indexing
}

// IndexingProgress contains information about ongoing background indexing.
type IndexingProgress struct {
	Status         string  `json:"status"`                     // "indexing", "ready", or "error"
	Stage          string  `json:"stage,omitempty"`            // "scanning", "chunking", "embedding", "indexing"
	FilesTotal     int     `json:"files_total"`                // Total files to process
	FilesProcessed int     `json:"files_processed"`            // Files processed so far
	ChunksIndexed  int     `json:"chunks_indexed"`             // Chunks indexed so far
	ProgressPct    float64 `json:"progress_pct"`               // Progress percentage (0-100)
	ElapsedSeconds int     `json:"elapsed_seconds"`            // Time since indexing started
	ErrorMessage   string  `json:"error_message,omitempty"`    // Error message if status is "error"
}

// ProjectInfo contains information about the indexed project.
type ProjectInfo struct {
	Name     string `json:"name"`
	RootPath string `json:"root_path"`
	Type     string `json:"type"`
}

// IndexStats contains statistics about the index.
type IndexStats struct {
	FileCount      int    `json:"file_count"`
	ChunkCount     int    `json:"chunk_count"`
	IndexSizeBytes int64  `json:"index_size_bytes"`
	LastIndexed    string `json:"last_indexed"`
}

// NlSearchInput defines the input schema for the nl_search tool.
type NlSearchInput struct {
	Query      string `json:"query" jsonschema:"the natural-language search query to execute"`
	Include    string `json:"include,omitempty" jsonschema:"glob restricting results to matching file paths, e.g. *.go"`
	Path       string `json:"path,omitempty" jsonschema:"directory prefix to restrict the search to"`
	MaxResults int    `json:"max_results,omitempty" jsonschema:"maximum number of results, default 10"`
	Answer     bool   `json:"answer,omitempty" jsonschema:"if true, include a synthesized answer summarizing the top results"`
	NoRerank   bool   `json:"no_rerank,omitempty" jsonschema:"if true, skip the BM25/semantic fusion and return raw lexical ranking"`
}

// GrepInput defines the input schema for the grep tool.
type GrepInput struct {
	Pattern    string `json:"pattern" jsonschema:"the regular expression to search for"`
	Include    string `json:"include,omitempty" jsonschema:"glob restricting which files are searched, e.g. *.go"`
	Path       string `json:"path,omitempty" jsonschema:"directory to search, default project root"`
	MaxResults int    `json:"max_results,omitempty" jsonschema:"maximum number of matches, default 100"`
}

// GrepMatch is a single regex match found by the grep tool.
type GrepMatch struct {
	FilePath string `json:"file_path"`
	Line     int    `json:"line"`
	Content  string `json:"content"`
}

// GrepOutput defines the output schema for the grep tool.
type GrepOutput struct {
	Matches  []GrepMatch `json:"matches"`
	Truncated bool       `json:"truncated,omitempty" jsonschema:"true if max_results was reached before the search finished"`
}

// GlobInput defines the input schema for the glob tool.
type GlobInput struct {
	Pattern     string `json:"pattern" jsonschema:"shell glob pattern to match file names against, e.g. **/*.go"`
	Path        string `json:"path,omitempty" jsonschema:"directory to search, default project root"`
	IncludeDirs bool   `json:"include_dirs,omitempty" jsonschema:"if true, include matching directories as well as files"`
	IgnoreCase  bool   `json:"ignore_case,omitempty" jsonschema:"if true, match case-insensitively"`
}

// GlobOutput defines the output schema for the glob tool.
type GlobOutput struct {
	Paths []string `json:"paths" jsonschema:"matching paths relative to the project root"`
}

// ListInput defines the input schema for the list tool.
type ListInput struct {
	Path       string `json:"path,omitempty" jsonschema:"directory to list, default project root"`
	Pattern    string `json:"pattern,omitempty" jsonschema:"optional glob pattern to filter entries"`
	IgnoreCase bool   `json:"ignore_case,omitempty" jsonschema:"if true, match pattern case-insensitively"`
}

// ListEntry is a single directory entry returned by the list tool.
type ListEntry struct {
	Name      string `json:"name"`
	Path      string `json:"path"`
	IsDir     bool   `json:"is_dir"`
	SizeBytes int64  `json:"size_bytes,omitempty"`
}

// ListOutput defines the output schema for the list tool.
type ListOutput struct {
	Entries []ListEntry `json:"entries"`
}

// ReadInput defines the input schema for the read tool.
type ReadInput struct {
	Path   string `json:"path" jsonschema:"path of the file to read, relative to the project root or absolute"`
	Offset int    `json:"offset,omitempty" jsonschema:"0-indexed first line to return, default 0"`
	Limit  int    `json:"limit,omitempty" jsonschema:"maximum number of lines to return, default entire file"`
}

// ReadOutput defines the output schema for the read tool.
type ReadOutput struct {
	Content string `json:"content" jsonschema:"line-numbered, paginated file content framed in a <file> block"`
}

// EditInput defines the input schema for the edit tool.
type EditInput struct {
	FilePath     string `json:"file_path" jsonschema:"path of the file to edit, must have been read this session"`
	OldString    string `json:"old_string" jsonschema:"the exact text to replace"`
	NewString    string `json:"new_string" jsonschema:"the replacement text"`
	ReplaceAll   bool   `json:"replace_all,omitempty" jsonschema:"if true, replace every occurrence instead of just the first"`
	TimeoutSecs  int    `json:"timeout_secs,omitempty" jsonschema:"deadline for the edit, default 30s"`
}

// EditOutput defines the output schema for the edit tool.
type EditOutput struct {
	FilePath    string `json:"file_path"`
	Occurrences int    `json:"occurrences"`
	Message     string `json:"message"`
}

// WriteInput defines the input schema for the write tool.
type WriteInput struct {
	FilePath    string `json:"file_path" jsonschema:"path of the file to create or overwrite"`
	Content     string `json:"content" jsonschema:"the full file content to write"`
	TimeoutSecs int    `json:"timeout_secs,omitempty" jsonschema:"deadline for the write, default 30s"`
}

// WriteOutput defines the output schema for the write tool.
type WriteOutput struct {
	FilePath string `json:"file_path"`
	Message  string `json:"message"`
}

// EmbeddingInfo contains information about the embedding configuration.
type EmbeddingInfo struct {
	// Config values
	Provider string `json:"provider"`
	Model    string `json:"model"`
	Status   string `json:"status"`

	// Runtime state - allows AI clients to adjust search strategy
	ActualProvider   string `json:"actual_provider"`    // "hugot" or "static"
	ActualModel      string `json:"actual_model"`       // e.g., "embeddinggemma-300m" or "static"
	Dimensions       int    `json:"dimensions"`         // 768 (hugot) or 256 (static)
	IsFallbackActive bool   `json:"is_fallback_active"` // true if using static fallback
	SemanticQuality  string `json:"semantic_quality"`   // "high" (hugot) or "low" (static)
}
