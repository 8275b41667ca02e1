package analyze

import (
	"math"
	"sort"
	"strings"
	"time"
)

// FileStats holds the measured content of one file, or of a line range
// within it when LineStart/LineEnd are set.
type FileStats struct {
	Path     string
	Type     FileType
	Modified time.Time
	Tokens   int
	Lines    int
	Chars    int

	// Words is populated for plain-text files only.
	Words int

	// Line range, 1-indexed inclusive. Zero means the whole file.
	LineStart  int
	LineEnd    int
	TotalLines int

	TokensPerLineMean   float64
	TokensPerLineMedian float64
	WordsPerLineMean    float64
	WordsPerLineMedian  float64

	// Structure holds the outline (headers, classes, functions) when
	// requested; Dependencies the import listing.
	Structure    string
	Dependencies string
}

// HasLineRange reports whether the stats cover a subset of the file.
func (s *FileStats) HasLineRange() bool {
	return s.LineStart > 0
}

// AggregateStats sums statistics across several files.
type AggregateStats struct {
	FileCount   int
	TotalTokens int
	TotalLines  int
	TotalChars  int
	TotalWords  int
	HasWords    bool
	Files       []FileStats
}

// splitLines splits on newlines without a trailing empty element,
// tolerating CRLF endings.
func splitLines(content string) []string {
	if content == "" {
		return nil
	}
	lines := strings.Split(content, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	for i, line := range lines {
		lines[i] = strings.TrimSuffix(line, "\r")
	}
	return lines
}

// sliceRange clamps a 1-indexed inclusive line range to the available
// lines and returns the selected window plus the actual bounds used.
func sliceRange(lines []string, start, end int) ([]string, int, int) {
	total := len(lines)

	startIdx := 0
	if start > 0 {
		startIdx = start - 1
	}
	endIdx := total
	if end > 0 {
		endIdx = end
	}

	if startIdx > total {
		startIdx = total
	}
	if endIdx > total {
		endIdx = total
	}
	if endIdx < startIdx {
		endIdx = startIdx
	}

	return lines[startIdx:endIdx], startIdx + 1, endIdx
}

// median returns the statistical median: the middle value, or the mean
// of the two middle values for even-length input.
func median(values []int) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := make([]int, len(values))
	copy(sorted, values)
	sort.Ints(sorted)

	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return float64(sorted[mid])
	}
	return float64(sorted[mid-1]+sorted[mid]) / 2
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
