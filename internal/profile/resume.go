package profile

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"code.sajari.com/docconv"
)

// ExtractResume pulls plain text out of a resume file. PDF and word-processor
// formats go through docconv; .txt is read as-is.
func ExtractResume(path string) (string, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".pdf", ".docx", ".doc", ".rtf", ".odt":
		res, err := docconv.ConvertPath(path)
		if err != nil {
			return "", fmt.Errorf("profile: convert resume %s: %w", filepath.Base(path), err)
		}
		return normalizeResumeText(res.Body), nil
	case ".txt":
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("profile: read resume %s: %w", filepath.Base(path), err)
		}
		return normalizeResumeText(string(data)), nil
	default:
		return "", fmt.Errorf("profile: unsupported resume format %q", ext)
	}
}

// normalizeResumeText collapses the blank-line noise PDF extraction leaves
// behind without touching line structure.
func normalizeResumeText(s string) string {
	lines := strings.Split(strings.ReplaceAll(s, "\r\n", "\n"), "\n")
	out := make([]string, 0, len(lines))
	blank := 0
	for _, line := range lines {
		line = strings.TrimRight(line, " \t")
		if line == "" {
			blank++
			if blank > 1 {
				continue
			}
		} else {
			blank = 0
		}
		out = append(out, line)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}
