package seagoat

import (
	"strconv"
	"strings"

	"github.com/JuHwiSang/repo-read-mcp/internal/repository"
)

// parseSearchOutput converts the engine's grep-style "file:line:code"
// output into result chunks. Consecutive line numbers from the same
// file merge into a single chunk with the code joined by newlines; any
// gap, or a change of file, starts a new chunk. Lines that do not match
// the format are skipped.
func parseSearchOutput(out string) []repository.SearchResult {
	var results []repository.SearchResult

	for _, line := range strings.Split(out, "\n") {
		if line == "" {
			continue
		}

		parts := strings.SplitN(line, ":", 3)
		if len(parts) != 3 {
			continue
		}

		lineNo, err := strconv.Atoi(parts[1])
		if err != nil {
			continue
		}

		file, code := parts[0], parts[2]

		if n := len(results); n > 0 {
			prev := &results[n-1]
			if prev.File == file && lineNo == prev.EndLine+1 {
				prev.EndLine = lineNo
				prev.Code += "\n" + code
				continue
			}
		}

		results = append(results, repository.SearchResult{
			File:      file,
			StartLine: lineNo,
			EndLine:   lineNo,
			Code:      code,
		})
	}

	return results
}
