package repository

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestRepo(t *testing.T) (string, *Service) {
	t.Helper()
	root := t.TempDir()

	writeFile(t, root, "main.go", "package main\n\nfunc main() {}\n")
	writeFile(t, root, "docs/guide.md", "line one\nline two\nline three\nline four\n")
	writeFile(t, root, "docs/api/reference.md", "ref\n")
	writeFile(t, root, "empty.txt", "")
	writeFile(t, root, "no-newline.txt", "a\nb")

	svc, err := NewService(root, nil, zap.NewNop())
	require.NoError(t, err)
	return root, svc
}

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestNewService(t *testing.T) {
	t.Run("missing_root", func(t *testing.T) {
		_, err := NewService(filepath.Join(t.TempDir(), "nope"), nil, nil)
		assert.Error(t, err)
	})

	t.Run("root_is_file", func(t *testing.T) {
		root := t.TempDir()
		writeFile(t, root, "f.txt", "x")
		_, err := NewService(filepath.Join(root, "f.txt"), nil, nil)
		assert.Error(t, err)
	})
}

func TestReadFiles(t *testing.T) {
	_, svc := newTestRepo(t)

	chunks := svc.ReadFiles([]string{"main.go", "missing.go", "docs/guide.md"})
	require.Len(t, chunks, 3)

	assert.Equal(t, "main.go", chunks[0].FilePath)
	assert.Equal(t, 1, chunks[0].StartLine)
	assert.Equal(t, 3, chunks[0].EndLine)
	assert.Equal(t, "package main\n\nfunc main() {}\n", chunks[0].Content)
	assert.Empty(t, chunks[0].Error)

	assert.Equal(t, "missing.go", chunks[1].FilePath)
	assert.Zero(t, chunks[1].StartLine)
	assert.Zero(t, chunks[1].EndLine)
	assert.Contains(t, chunks[1].Error, "File not found")

	assert.Equal(t, 4, chunks[2].EndLine)
}

func TestReadFiles_Traversal(t *testing.T) {
	_, svc := newTestRepo(t)

	chunks := svc.ReadFiles([]string{"../outside.txt"})
	require.Len(t, chunks, 1)
	assert.Contains(t, chunks[0].Error, "Error reading file")
}

func TestReadFiles_NoTrailingNewline(t *testing.T) {
	_, svc := newTestRepo(t)

	chunks := svc.ReadFiles([]string{"no-newline.txt"})
	require.Len(t, chunks, 1)
	assert.Equal(t, 2, chunks[0].EndLine)
	assert.Equal(t, "a\nb", chunks[0].Content)
}

func TestReadFileLines(t *testing.T) {
	_, svc := newTestRepo(t)

	tests := []struct {
		name        string
		start, end  int
		wantStart   int
		wantEnd     int
		wantContent string
	}{
		{name: "middle_range", start: 2, end: 3, wantStart: 2, wantEnd: 3, wantContent: "line two\nline three\n"},
		{name: "clamped_start", start: 0, end: 2, wantStart: 1, wantEnd: 2, wantContent: "line one\nline two\n"},
		{name: "clamped_end", start: 3, end: 99, wantStart: 3, wantEnd: 4, wantContent: "line three\nline four\n"},
		{name: "inverted_range", start: 3, end: 1, wantStart: 3, wantEnd: 3, wantContent: "line three\n"},
		{name: "past_eof", start: 50, end: 60, wantStart: 4, wantEnd: 4, wantContent: "line four\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chunk := svc.ReadFileLines("docs/guide.md", tt.start, tt.end)
			require.Empty(t, chunk.Error)
			assert.Equal(t, tt.wantStart, chunk.StartLine)
			assert.Equal(t, tt.wantEnd, chunk.EndLine)
			assert.Equal(t, tt.wantContent, chunk.Content)
		})
	}
}

func TestReadFileLines_EmptyFile(t *testing.T) {
	_, svc := newTestRepo(t)

	chunk := svc.ReadFileLines("empty.txt", 1, 10)
	require.Empty(t, chunk.Error)
	assert.Equal(t, 1, chunk.StartLine)
	assert.Equal(t, 1, chunk.EndLine)
	assert.Empty(t, chunk.Content)
}

func TestReadFileLines_Missing(t *testing.T) {
	_, svc := newTestRepo(t)

	chunk := svc.ReadFileLines("nope.txt", 1, 2)
	assert.Contains(t, chunk.Error, "File not found")
	assert.Zero(t, chunk.StartLine)
	assert.Zero(t, chunk.EndLine)
}

func TestReadDirs(t *testing.T) {
	_, svc := newTestRepo(t)

	dirs := svc.ReadDirs([]string{".", "docs", "missing-dir"})
	require.Len(t, dirs, 3)

	assert.ElementsMatch(t, []string{"main.go", "docs", "empty.txt", "no-newline.txt"}, dirs[0].Entries)
	assert.Empty(t, dirs[0].Error)

	assert.ElementsMatch(t, []string{"guide.md", "api"}, dirs[1].Entries)

	assert.Empty(t, dirs[2].Entries)
	assert.Contains(t, dirs[2].Error, "Error reading directory")
}

func TestTreeDir(t *testing.T) {
	_, svc := newTestRepo(t)

	t.Run("depth_one", func(t *testing.T) {
		tree := svc.TreeDir("docs", 1)
		require.Empty(t, tree.Error)
		assert.Equal(t, []string{"docs", filepath.Join("docs", "api"), filepath.Join("docs", "guide.md")}, tree.Tree)
	})

	t.Run("depth_two_descends", func(t *testing.T) {
		tree := svc.TreeDir("docs", 2)
		require.Empty(t, tree.Error)
		assert.Contains(t, tree.Tree, filepath.Join("docs", "api", "reference.md"))
	})

	t.Run("missing_dir", func(t *testing.T) {
		tree := svc.TreeDir("nope", 1)
		assert.Empty(t, tree.Tree)
		assert.Contains(t, tree.Error, "Directory not found")
	})

	t.Run("root_is_first_entry", func(t *testing.T) {
		tree := svc.TreeDir(".", 1)
		require.NotEmpty(t, tree.Tree)
		assert.Equal(t, ".", tree.Tree[0])
	})

	t.Run("dot_root_keeps_prefix", func(t *testing.T) {
		tree := svc.TreeDir(".", 2)
		require.Empty(t, tree.Error)
		assert.Contains(t, tree.Tree, "./main.go")
		assert.Contains(t, tree.Tree, "./docs/guide.md")
	})
}

func TestTreeDir_EntryCap(t *testing.T) {
	root := t.TempDir()
	for i := 0; i < 150; i++ {
		writeFile(t, root, filepath.Join("big", fmt.Sprintf("file_%03d.txt", i)), "x")
	}

	svc, err := NewService(root, nil, zap.NewNop())
	require.NoError(t, err)

	tree := svc.TreeDir(".", 3)
	require.Empty(t, tree.Error)
	assert.LessOrEqual(t, len(tree.Tree), maxTreeEntries)
}

func TestSearch(t *testing.T) {
	root := t.TempDir()

	t.Run("no_engine", func(t *testing.T) {
		svc, err := NewService(root, nil, zap.NewNop())
		require.NoError(t, err)
		_, err = svc.Search(context.Background(), "query")
		assert.Error(t, err)
	})

	t.Run("delegates", func(t *testing.T) {
		want := []SearchResult{{File: "a.go", StartLine: 1, EndLine: 2, Code: "x\ny"}}
		svc, err := NewService(root, searcherFunc(func(ctx context.Context, q string) ([]SearchResult, error) {
			assert.Equal(t, "find the parser", q)
			return want, nil
		}), zap.NewNop())
		require.NoError(t, err)

		got, err := svc.Search(context.Background(), "find the parser")
		require.NoError(t, err)
		assert.Equal(t, want, got)
	})

	t.Run("engine_error", func(t *testing.T) {
		svc, err := NewService(root, searcherFunc(func(ctx context.Context, q string) ([]SearchResult, error) {
			return nil, errors.New("container not running")
		}), zap.NewNop())
		require.NoError(t, err)

		_, err = svc.Search(context.Background(), "q")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "container not running")
	})
}

type searcherFunc func(ctx context.Context, query string) ([]SearchResult, error)

func (f searcherFunc) Search(ctx context.Context, query string) ([]SearchResult, error) {
	return f(ctx, query)
}

func TestSplitLines(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"", 0},
		{"a", 1},
		{"a\n", 1},
		{"a\nb", 2},
		{"a\nb\n", 2},
		{"\n", 1},
		{"\n\n", 2},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, countLines(tt.in), "input %q", tt.in)
	}
}
