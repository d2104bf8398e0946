package edit

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
)

// maxLineLength is the longest line rendered in full before truncation; past
// this, format content for MCP consumption is capped with a marker so a
// single minified line cannot blow out a tool response.
const maxLineLength = 2000

var binaryExtensions = map[string]struct{}{
	".exe": {}, ".dll": {}, ".so": {}, ".dylib": {}, ".bin": {},
	".png": {}, ".jpg": {}, ".jpeg": {}, ".gif": {}, ".bmp": {}, ".ico": {},
	".pdf": {}, ".zip": {}, ".tar": {}, ".gz": {}, ".7z": {}, ".rar": {},
	".woff": {}, ".woff2": {}, ".ttf": {}, ".eot": {},
	".mp3": {}, ".mp4": {}, ".avi": {}, ".mov": {}, ".wasm": {},
	".o": {}, ".a": {}, ".class": {}, ".pyc": {}, ".db": {}, ".sqlite": {},
}

// IsBinaryFile reports whether a file at path with the given content should
// be treated as binary: first by extension, then by a null-byte heuristic
// over the sampled content.
func IsBinaryFile(path string, content []byte) bool {
	ext := strings.ToLower(filepath.Ext(path))
	if _, ok := binaryExtensions[ext]; ok {
		return true
	}
	sample := content
	if len(sample) > 8000 {
		sample = sample[:8000]
	}
	return bytes.IndexByte(sample, 0) >= 0
}

// FormatFileContentForMCP renders content as a line-numbered, paginated
// `<file>...</file>` block matching the tool output the editor-facing agent
// expects: 5-digit 1-indexed line numbers, an offset/limit window, long-line
// truncation, and a footer stating whether more lines follow.
func FormatFileContentForMCP(path, content string, offset, limit int) string {
	lines := strings.Split(content, "\n")
	total := len(lines)

	if offset < 0 {
		offset = 0
	}
	if limit <= 0 {
		limit = total
	}
	end := offset + limit
	if end > total {
		end = total
	}
	if offset > total {
		offset = total
	}

	var sb strings.Builder
	sb.WriteString("<file>\n")
	for i := offset; i < end; i++ {
		line := lines[i]
		if len(line) > maxLineLength {
			line = line[:maxLineLength] + "...(line truncated)"
		}
		sb.WriteString(fmt.Sprintf("%s| %s\n", padLineNumber(i+1), line))
	}

	if end >= total {
		sb.WriteString(fmt.Sprintf("(End of file - total %d lines)\n", total))
	} else {
		sb.WriteString(fmt.Sprintf("(File has more lines - total %d lines)\n", total))
	}
	sb.WriteString("</file>")

	_ = path // path kept in signature to mirror the original tool contract; unused here
	return sb.String()
}

// padLineNumber zero-pads n to 5 digits, e.g. "00001".
func padLineNumber(n int) string {
	s := strconv.Itoa(n)
	for len(s) < 5 {
		s = "0" + s
	}
	return s
}
