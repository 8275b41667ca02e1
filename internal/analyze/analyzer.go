// internal/analyze/analyzer.go

// Package analyze measures files (tokens, lines, chars, words) and
// extracts lightweight structural outlines and dependency listings for
// a closed set of file types. Unrecognized extensions fall back to the
// plain-text variant rather than failing.
package analyze

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/user/fieldkit/internal/token"
)

// variant is one per-language analyzer. Both methods are pure text
// transforms; an empty result means nothing was found.
type variant interface {
	extractStructure(content string) string
	extractDependencies(content string) string
}

// Options selects what an analysis computes beyond the base stats.
type Options struct {
	Outline bool
	Deps    bool

	// 1-indexed inclusive line range. Zero means unbounded on that side.
	LineStart int
	LineEnd   int
}

// Analyzer dispatches files to per-type variants.
type Analyzer struct {
	counter  *token.Counter
	variants map[FileType]variant
	fallback variant
}

// New builds an Analyzer with all supported variants registered.
func New() *Analyzer {
	js := &javascriptVariant{}
	text := &textVariant{}
	return &Analyzer{
		counter: token.NewCounter(),
		variants: map[FileType]variant{
			TypePython:     &pythonVariant{},
			TypeJavaScript: js,
			TypeTypeScript: js,
			TypeMarkdown:   &markdownVariant{},
			TypeText:       text,
		},
		fallback: text,
	}
}

// AnalyzeFile measures one file. Deps extraction is rejected for
// non-code types; an unrecognized extension analyzes as plain text.
func (a *Analyzer) AnalyzeFile(path string, opt Options) (FileStats, error) {
	fileType := DetectType(path)

	if opt.Deps && !fileType.IsCode() {
		return FileStats{}, fmt.Errorf(
			"--deps only applies to code files; %s is %s (try --outline for a table of contents)",
			path, fileType)
	}
	if opt.LineStart > 0 && opt.LineEnd > 0 && opt.LineStart > opt.LineEnd {
		return FileStats{}, fmt.Errorf("invalid line range %d-%d: start exceeds end", opt.LineStart, opt.LineEnd)
	}

	info, err := os.Stat(path)
	if err != nil {
		return FileStats{}, fmt.Errorf("stat %s: %w", path, err)
	}
	content, err := readFileLossy(path)
	if err != nil {
		return FileStats{}, fmt.Errorf("read %s: %w", path, err)
	}

	allLines := splitLines(content)
	totalLines := len(allLines)

	hasRange := opt.LineStart > 0 || opt.LineEnd > 0
	lines := allLines
	if hasRange {
		var start, end int
		lines, start, end = sliceRange(allLines, opt.LineStart, opt.LineEnd)
		content = strings.Join(lines, "\n")
		opt.LineStart, opt.LineEnd = start, end
	}

	stats := FileStats{
		Path:     path,
		Type:     fileType,
		Modified: info.ModTime(),
		Tokens:   a.counter.Count(content),
		Lines:    len(lines),
		Chars:    utf8.RuneCountInString(content),
	}
	if hasRange {
		stats.LineStart = opt.LineStart
		stats.LineEnd = opt.LineEnd
		stats.TotalLines = totalLines
	}

	if stats.Lines > 0 {
		stats.TokensPerLineMean = float64(stats.Tokens) / float64(stats.Lines)

		var perLine []int
		for _, line := range lines {
			if strings.TrimSpace(line) != "" {
				perLine = append(perLine, a.counter.Count(line))
			}
		}
		if len(perLine) > 0 {
			stats.TokensPerLineMedian = round1(median(perLine))
		}
	}

	if fileType == TypeText || fileType == TypeUnknown {
		addWordStats(&stats, content, lines)
	}

	v, ok := a.variants[fileType]
	if !ok {
		v = a.fallback
	}
	if opt.Outline {
		stats.Structure = v.extractStructure(content)
	}
	if opt.Deps {
		stats.Dependencies = v.extractDependencies(content)
	}

	return stats, nil
}

// AnalyzeMultiple measures several files of a compatible category and
// sums their stats. Files that fail to analyze are logged and skipped;
// it is an error when none succeed.
func (a *Analyzer) AnalyzeMultiple(paths []string, opt Options) (AggregateStats, error) {
	if err := validateSameCategory(paths); err != nil {
		return AggregateStats{}, err
	}

	var agg AggregateStats
	for _, path := range paths {
		stats, err := a.AnalyzeFile(path, opt)
		if err != nil {
			slog.Warn("skipping file", "path", path, "error", err)
			continue
		}
		agg.Files = append(agg.Files, stats)
		agg.TotalTokens += stats.Tokens
		agg.TotalLines += stats.Lines
		agg.TotalChars += stats.Chars
		if stats.Type == TypeText || stats.Type == TypeUnknown {
			agg.TotalWords += stats.Words
			agg.HasWords = true
		}
	}
	agg.FileCount = len(agg.Files)

	if agg.FileCount == 0 {
		return AggregateStats{}, fmt.Errorf("no files could be analyzed")
	}
	return agg, nil
}

func addWordStats(stats *FileStats, content string, lines []string) {
	stats.Words = len(strings.Fields(content))
	if stats.Lines == 0 {
		return
	}
	stats.WordsPerLineMean = float64(stats.Words) / float64(stats.Lines)

	var perLine []int
	for _, line := range lines {
		if strings.TrimSpace(line) != "" {
			perLine = append(perLine, len(strings.Fields(line)))
		}
	}
	if len(perLine) > 0 {
		stats.WordsPerLineMedian = round1(median(perLine))
	}
}

// readFileLossy reads a file as UTF-8, dropping invalid byte sequences.
func readFileLossy(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	if utf8.Valid(data) {
		return string(data), nil
	}
	return strings.ToValidUTF8(string(data), ""), nil
}
