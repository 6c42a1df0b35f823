// Package repository implements the read-only repository operations
// behind the MCP tools: whole-file reads, line-range reads, directory
// listings, depth-limited tree walks, and delegated semantic search.
package repository

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/JuHwiSang/repo-read-mcp/internal/sanitize"
)

// maxTreeEntries caps the total number of entries a tree walk returns,
// including the root entry itself.
const maxTreeEntries = 100

// Searcher runs a semantic search over the repository. Implemented by
// seagoat.Engine.
type Searcher interface {
	Search(ctx context.Context, query string) ([]SearchResult, error)
}

// Service exposes read-only operations on a single repository root.
type Service struct {
	root     string
	searcher Searcher
	logger   *zap.Logger
}

// NewService creates a repository service rooted at root. The searcher
// may be nil, in which case Search returns an error.
func NewService(root string, searcher Searcher, logger *zap.Logger) (*Service, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolving repository root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("repository root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("repository root %s is not a directory", abs)
	}

	return &Service{
		root:     abs,
		searcher: searcher,
		logger:   logger,
	}, nil
}

// Root returns the absolute repository root.
func (s *Service) Root() string {
	return s.root
}

// ReadFiles reads whole files. Failures are reported per file in the
// chunk's Error field; the returned slice always has one entry per
// requested path, in order.
func (s *Service) ReadFiles(filePaths []string) []FileChunk {
	results := make([]FileChunk, 0, len(filePaths))
	for _, fp := range filePaths {
		results = append(results, s.readWholeFile(fp))
	}
	return results
}

func (s *Service) readWholeFile(filePath string) FileChunk {
	abs, err := sanitize.JoinRepoPath(s.root, filePath)
	if err != nil {
		return errChunk(filePath, fmt.Sprintf("Error reading file: %v", err))
	}

	data, err := os.ReadFile(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return errChunk(filePath, fmt.Sprintf("File not found: %s", filePath))
		}
		return errChunk(filePath, fmt.Sprintf("Error reading file: %v", err))
	}

	content := strings.ToValidUTF8(string(data), "")
	return FileChunk{
		FilePath:  filePath,
		StartLine: 1,
		EndLine:   countLines(content),
		Content:   content,
	}
}

// ReadFileLines reads an inclusive 1-based line range from a file. The
// range is clamped: start into [1, lineCount] and end into [start,
// lineCount]. An empty file yields start=end=1 with empty content.
func (s *Service) ReadFileLines(filePath string, startLine, endLine int) FileChunk {
	abs, err := sanitize.JoinRepoPath(s.root, filePath)
	if err != nil {
		return errChunk(filePath, fmt.Sprintf("Error reading file: %v", err))
	}

	data, err := os.ReadFile(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return errChunk(filePath, fmt.Sprintf("File not found: %s", filePath))
		}
		return errChunk(filePath, fmt.Sprintf("Error reading file: %v", err))
	}

	lines := splitLines(strings.ToValidUTF8(string(data), ""))

	start := clamp(startLine, 1, max(len(lines), 1))
	end := clamp(endLine, start, max(len(lines), 1))

	var selected []string
	if len(lines) > 0 {
		selected = lines[start-1 : end]
	}

	return FileChunk{
		FilePath:  filePath,
		StartLine: start,
		EndLine:   end,
		Content:   strings.Join(selected, ""),
	}
}

// ReadDirs lists directory entries (non-recursive). Failures are
// reported per directory in the Error field.
func (s *Service) ReadDirs(dirPaths []string) []DirEntries {
	results := make([]DirEntries, 0, len(dirPaths))
	for _, dp := range dirPaths {
		results = append(results, s.readDir(dp))
	}
	return results
}

func (s *Service) readDir(dirPath string) DirEntries {
	abs, err := sanitize.JoinRepoPath(s.root, dirPath)
	if err != nil {
		return DirEntries{DirPath: dirPath, Entries: []string{}, Error: fmt.Sprintf("Error reading directory: %v", err)}
	}

	entries, err := os.ReadDir(abs)
	if err != nil {
		return DirEntries{DirPath: dirPath, Entries: []string{}, Error: fmt.Sprintf("Error reading directory: %v", err)}
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return DirEntries{DirPath: dirPath, Entries: names}
}

// TreeDir walks dirPath up to depth levels deep, returning at most
// maxTreeEntries paths relative to the repository root. The walk root
// itself is the first entry.
func (s *Service) TreeDir(dirPath string, depth int) DirTree {
	abs, err := sanitize.JoinRepoPath(s.root, dirPath)
	if err != nil {
		return DirTree{DirPath: dirPath, Tree: []string{}, Error: fmt.Sprintf("Error processing directory '%s': %v", dirPath, err)}
	}

	info, err := os.Stat(abs)
	if err != nil || !info.IsDir() {
		return DirTree{DirPath: dirPath, Tree: []string{}, Error: fmt.Sprintf("Error: Directory not found at '%s'", dirPath)}
	}

	tree := []string{dirPath}
	s.walkTree(abs, abs, dirPath, 1, depth, &tree)

	if len(tree) > maxTreeEntries {
		tree = tree[:maxTreeEntries]
	}
	return DirTree{DirPath: dirPath, Tree: tree}
}

func (s *Service) walkTree(current, walkRoot, dirPath string, currentDepth, maxDepth int, out *[]string) {
	if len(*out) >= maxTreeEntries || currentDepth > maxDepth {
		return
	}

	entries, err := os.ReadDir(current)
	if err != nil {
		// A directory can vanish mid-walk; stop descending here.
		s.logger.Debug("tree walk skipping unreadable directory",
			zap.String("path", current), zap.Error(err))
		return
	}

	for _, entry := range entries {
		if len(*out) >= maxTreeEntries {
			return
		}

		entryPath := filepath.Join(current, entry.Name())
		rel, err := filepath.Rel(walkRoot, entryPath)
		if err != nil {
			continue
		}
		*out = append(*out, joinDisplayPath(dirPath, rel))

		if entry.IsDir() {
			s.walkTree(entryPath, walkRoot, dirPath, currentDepth+1, maxDepth, out)
		}
	}
}

// Search delegates the query to the configured search engine.
func (s *Service) Search(ctx context.Context, query string) ([]SearchResult, error) {
	if s.searcher == nil {
		return nil, fmt.Errorf("no search engine configured")
	}
	results, err := s.searcher.Search(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}
	return results, nil
}

// joinDisplayPath prefixes a tree entry with the walk root as the
// caller wrote it, without cleaning. A "." walk root therefore yields
// "./..." entries rather than bare relative paths.
func joinDisplayPath(dir, rel string) string {
	if dir == "" {
		return rel
	}
	if strings.HasSuffix(dir, string(filepath.Separator)) {
		return dir + rel
	}
	return dir + string(filepath.Separator) + rel
}

func errChunk(filePath, msg string) FileChunk {
	return FileChunk{FilePath: filePath, Content: "", Error: msg}
}

// splitLines splits content into lines that keep their trailing
// newline, so joining the slices reproduces the input exactly. An empty
// string yields no lines; a trailing newline does not produce a
// phantom final line.
func splitLines(content string) []string {
	if content == "" {
		return nil
	}
	parts := strings.SplitAfter(content, "\n")
	if parts[len(parts)-1] == "" {
		parts = parts[:len(parts)-1]
	}
	return parts
}

// countLines matches splitLines: lines are newline-terminated segments
// plus an unterminated tail, so "a\nb" has 2 lines and "" has 0.
func countLines(content string) int {
	return len(splitLines(content))
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
