package analyze

import (
	"fmt"
	"regexp"
	"strings"
)

// markdownVariant extracts a table of contents from headers.
type markdownVariant struct{}

var mdHeaderRe = regexp.MustCompile(`^(#{1,6})\s+(.+)$`)

func (m *markdownVariant) extractStructure(content string) string {
	var entries []string
	for i, line := range splitLines(content) {
		match := mdHeaderRe.FindStringSubmatch(line)
		if match == nil {
			continue
		}
		level := len(match[1])
		indent := strings.Repeat("  ", level-1)
		entries = append(entries, fmt.Sprintf("%s%s (Line %d)", indent, line, i+1))
	}

	if len(entries) == 0 {
		return "No headers found"
	}
	return "Table of Contents:\n" + strings.Join(entries, "\n")
}

func (m *markdownVariant) extractDependencies(string) string { return "" }
