package repository

// FileChunk is a contiguous slice of a file. StartLine and EndLine are
// 1-based and inclusive. A failed read carries the failure in Error and
// zeroes the line range.
type FileChunk struct {
	FilePath  string `json:"file_path"`
	StartLine int    `json:"start_line"`
	EndLine   int    `json:"end_line"`
	Content   string `json:"content"`
	Error     string `json:"error,omitempty"`
}

// DirEntries is a non-recursive listing of a single directory.
type DirEntries struct {
	DirPath string   `json:"dir_path"`
	Entries []string `json:"entries"`
	Error   string   `json:"error,omitempty"`
}

// DirTree is a depth-limited walk rooted at DirPath. Tree paths are
// relative to the repository root and include DirPath itself as the
// first entry.
type DirTree struct {
	DirPath string   `json:"dir_path"`
	Tree    []string `json:"tree"`
	Error   string   `json:"error,omitempty"`
}

// SearchResult is one contiguous chunk of matched code returned by the
// search engine.
type SearchResult struct {
	File      string `json:"file"`
	StartLine int    `json:"start_line"`
	EndLine   int    `json:"end_line"`
	Code      string `json:"code"`
}
