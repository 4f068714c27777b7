package report

import (
	"fmt"
	"os"
	"strings"

	"semgraph/internal/shared/util"
)

// InjectDiagram replaces the marked block of a markdown file with a fenced
// diagram, preserving file permissions.
func InjectDiagram(filePath, marker, format, diagram string) error {
	info, err := os.Stat(filePath)
	if err != nil {
		return fmt.Errorf("stat markdown file %q: %w", filePath, err)
	}
	content, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("read markdown file %q: %w", filePath, err)
	}

	next, err := ReplaceBetweenMarkers(string(content), marker, FencedBlock(format, diagram))
	if err != nil {
		return fmt.Errorf("inject into %q: %w", filePath, err)
	}
	if next == string(content) {
		return nil
	}
	return util.WriteFileWithDirs(filePath, []byte(next), info.Mode().Perm())
}

func FencedBlock(format, body string) string {
	return "```" + format + "\n" + strings.TrimRight(body, "\r\n") + "\n```"
}

// ReplaceBetweenMarkers swaps everything between the start and end comments of
// marker. Each comment must appear exactly once, start before end.
func ReplaceBetweenMarkers(content, marker, replacement string) (string, error) {
	marker = strings.TrimSpace(marker)
	if marker == "" {
		return "", fmt.Errorf("markdown marker must not be empty")
	}

	newline := "\n"
	if strings.Contains(content, "\r\n") {
		newline = "\r\n"
	}

	start := fmt.Sprintf("<!-- semgraph:%s:start -->", marker)
	end := fmt.Sprintf("<!-- semgraph:%s:end -->", marker)

	if strings.Count(content, start) != 1 || strings.Count(content, end) != 1 {
		return "", fmt.Errorf("markdown marker %q must appear exactly once for start and end", marker)
	}

	startIdx := strings.Index(content, start)
	endIdx := strings.Index(content, end)
	if endIdx < startIdx {
		return "", fmt.Errorf("invalid marker order for %q", marker)
	}

	prefix := content[:startIdx+len(start)]
	suffix := content[endIdx:]
	body := strings.TrimRight(replacement, "\r\n")
	if newline == "\r\n" {
		body = strings.ReplaceAll(strings.ReplaceAll(body, "\r\n", "\n"), "\n", "\r\n")
	}
	return prefix + newline + body + newline + suffix, nil
}
