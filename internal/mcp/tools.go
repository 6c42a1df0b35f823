package mcp

import (
	"context"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/JuHwiSang/repo-read-mcp/internal/repository"
)

type readFilesInput struct {
	FilePaths []string `json:"file_paths" jsonschema:"required,Repository-relative paths of the files to read"`
}

type readFilesOutput struct {
	Files []repository.FileChunk `json:"files" jsonschema:"One chunk per requested file; failures are reported per file in its error field"`
}

type readFileLinesInput struct {
	FilePath  string `json:"file_path" jsonschema:"required,Repository-relative path of the file to read"`
	StartLine int    `json:"start_line,omitempty" jsonschema:"First line to read (1-based, clamped to the file)"`
	EndLine   int    `json:"end_line,omitempty" jsonschema:"Last line to read (inclusive, clamped to the file; 0 = end of file)"`
}

type readFileLinesOutput struct {
	File repository.FileChunk `json:"file" jsonschema:"The requested line range with the clamped bounds"`
}

type readDirsInput struct {
	DirPaths []string `json:"dir_paths" jsonschema:"required,Repository-relative paths of the directories to list"`
}

type readDirsOutput struct {
	Dirs []repository.DirEntries `json:"dirs" jsonschema:"One listing per requested directory; failures are reported per directory in its error field"`
}

type treeDirInput struct {
	DirPath string `json:"dir_path" jsonschema:"required,Repository-relative path of the directory to walk"`
	Depth   int    `json:"depth,omitempty" jsonschema:"How many levels to descend (default: 1)"`
}

type treeDirOutput struct {
	Tree repository.DirTree `json:"tree" jsonschema:"Depth-limited walk, capped at 100 entries, the directory itself first"`
}

type searchInput struct {
	Query string `json:"query" jsonschema:"required,Natural language or regex query"`
}

type searchOutput struct {
	Results    []repository.SearchResult `json:"results" jsonschema:"Matched chunks of contiguous lines"`
	Error      string                    `json:"error,omitempty" jsonschema:"Set when the search engine failed"`
	IndexStale bool                      `json:"index_stale,omitempty" jsonschema:"True when the repository changed after the search index was built"`
}

func (s *Server) registerTools() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "read_files",
		Description: "Read whole files from the repository. Returns content with line counts; per-file errors are reported inline.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args readFilesInput) (*mcp.CallToolResult, readFilesOutput, error) {
		start := time.Now()
		s.metrics.IncrementActive(ctx, "read_files")
		stop := s.startKeepalive(ctx, req)
		var toolErr error
		defer func() {
			stop()
			s.metrics.DecrementActive(ctx, "read_files")
			s.metrics.RecordInvocation(ctx, "read_files", time.Since(start), toolErr)
		}()

		files := s.repo.ReadFiles(args.FilePaths)

		return textResult("Read %d file(s)", len(files)), readFilesOutput{Files: files}, nil
	})

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "read_file_lines",
		Description: "Read a line range from one file. Out-of-range bounds are clamped to the file, never an error.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args readFileLinesInput) (*mcp.CallToolResult, readFileLinesOutput, error) {
		start := time.Now()
		s.metrics.IncrementActive(ctx, "read_file_lines")
		stop := s.startKeepalive(ctx, req)
		var toolErr error
		defer func() {
			stop()
			s.metrics.DecrementActive(ctx, "read_file_lines")
			s.metrics.RecordInvocation(ctx, "read_file_lines", time.Since(start), toolErr)
		}()

		chunk := s.repo.ReadFileLines(args.FilePath, args.StartLine, args.EndLine)

		return textResult("Read %s lines %d-%d", chunk.FilePath, chunk.StartLine, chunk.EndLine),
			readFileLinesOutput{File: chunk}, nil
	})

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "read_dirs",
		Description: "List directories non-recursively. Per-directory errors are reported inline.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args readDirsInput) (*mcp.CallToolResult, readDirsOutput, error) {
		start := time.Now()
		s.metrics.IncrementActive(ctx, "read_dirs")
		stop := s.startKeepalive(ctx, req)
		var toolErr error
		defer func() {
			stop()
			s.metrics.DecrementActive(ctx, "read_dirs")
			s.metrics.RecordInvocation(ctx, "read_dirs", time.Since(start), toolErr)
		}()

		dirs := s.repo.ReadDirs(args.DirPaths)

		return textResult("Listed %d directories", len(dirs)), readDirsOutput{Dirs: dirs}, nil
	})

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "tree_dir",
		Description: "Walk a directory tree to a given depth. Output is capped at 100 entries with the directory itself first.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args treeDirInput) (*mcp.CallToolResult, treeDirOutput, error) {
		start := time.Now()
		s.metrics.IncrementActive(ctx, "tree_dir")
		stop := s.startKeepalive(ctx, req)
		var toolErr error
		defer func() {
			stop()
			s.metrics.DecrementActive(ctx, "tree_dir")
			s.metrics.RecordInvocation(ctx, "tree_dir", time.Since(start), toolErr)
		}()

		depth := args.Depth
		if depth <= 0 {
			depth = 1
		}
		tree := s.repo.TreeDir(args.DirPath, depth)

		return textResult("Walked %s: %d entries", args.DirPath, len(tree.Tree)), treeDirOutput{Tree: tree}, nil
	})

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "search",
		Description: "Semantic search over the repository. Accepts natural language or regex queries and returns chunks of contiguous matching lines.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args searchInput) (*mcp.CallToolResult, searchOutput, error) {
		start := time.Now()
		s.metrics.IncrementActive(ctx, "search")
		stop := s.startKeepalive(ctx, req)
		var toolErr error
		defer func() {
			stop()
			s.metrics.DecrementActive(ctx, "search")
			s.metrics.RecordInvocation(ctx, "search", time.Since(start), toolErr)
		}()

		// Results must marshal as an array even when empty; the output
		// schema rejects null.
		output := searchOutput{Results: []repository.SearchResult{}}
		if s.stale != nil {
			output.IndexStale = s.stale.Stale()
		}

		results, err := s.repo.Search(ctx, args.Query)
		if err != nil {
			// Engine failures go to the caller as data, not as a
			// protocol error, so the agent can read and react to them.
			toolErr = err
			s.logger.Warn("search failed", zap.String("query", args.Query), zap.Error(err))
			output.Error = err.Error()
			return textResult("Search failed: %v", err), output, nil
		}

		if len(results) > 0 {
			output.Results = results
		}
		return textResult("Found %d result(s) for query: %s", len(results), args.Query), output, nil
	})
}

func textResult(format string, args ...any) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: fmt.Sprintf(format, args...)},
		},
	}
}
