// internal/finder/finder.go
package finder

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"
)

// FileMatch is one discovered file. Matches are unique by path within a
// single search and are never persisted.
type FileMatch struct {
	Path     string
	Priority int
	ModTime  time.Time
	Size     int64
}

// SearchRoot is one configured search directory. Lower priority ranks
// are preferred when matches tie on recency.
type SearchRoot struct {
	Path      string
	Priority  int
	Recursive bool
	Exclude   []string
}

// Finder discovers files across an ordered list of priority search
// roots, honouring shared skip-directory and skip-pattern rules.
type Finder struct {
	roots        []SearchRoot
	skipDirs     map[string]struct{}
	skipPatterns []string
}

// NewFinder creates a Finder. Roots are searched in ascending priority
// order; skipDirs and skipPatterns apply to every root.
func NewFinder(roots []SearchRoot, skipDirs, skipPatterns []string) *Finder {
	sorted := make([]SearchRoot, len(roots))
	copy(sorted, roots)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Priority < sorted[j].Priority })

	return &Finder{
		roots:        sorted,
		skipDirs:     toSet(skipDirs),
		skipPatterns: skipPatterns,
	}
}

// FindOption adjusts a single Find call.
type FindOption func(*findOptions)

type findOptions struct {
	content  string
	localDir string
}

// WithContent requires matched files to contain term (lossy UTF-8 read,
// unreadable files treated as non-matching).
func WithContent(term string) FindOption {
	return func(o *findOptions) { o.content = term }
}

// WithLocalDir searches only the given directory instead of the
// configured roots.
func WithLocalDir(dir string) FindOption {
	return func(o *findOptions) { o.localDir = dir }
}

// Find returns files matching pattern, ordered by priority rank
// ascending then modification time descending.
//
// Three modes, tried in order: a local directory override searches just
// that tree; a pattern beginning with ~ or / has its longest existing
// directory prefix extracted and searched directly; otherwise every
// configured root is searched.
func (f *Finder) Find(pattern string, opts ...FindOption) []FileMatch {
	var o findOptions
	for _, opt := range opts {
		opt(&o)
	}

	if o.localDir != "" {
		dir, err := filepath.Abs(expandHome(o.localDir))
		if err != nil {
			return nil
		}
		if _, err := os.Stat(dir); err != nil {
			return nil
		}
		matches := f.searchRoot(dir, pattern, 0, true, nil, o.content)
		sort.SliceStable(matches, func(i, j int) bool { return matches[i].ModTime.After(matches[j].ModTime) })
		return matches
	}

	if dir, sub := extractExplicitDir(pattern); dir != "" {
		matches := f.searchRoot(dir, sub, 0, true, nil, o.content)
		sort.SliceStable(matches, func(i, j int) bool { return matches[i].ModTime.After(matches[j].ModTime) })
		return matches
	}

	// Roots are independent; results are re-sorted after the join, so
	// per-root order does not matter.
	results := make([][]FileMatch, len(f.roots))
	g := new(errgroup.Group)
	for i, root := range f.roots {
		g.Go(func() error {
			dir := expandHome(root.Path)
			if _, err := os.Stat(dir); err != nil {
				return nil
			}
			results[i] = f.searchRoot(dir, pattern, root.Priority, root.Recursive, root.Exclude, o.content)
			return nil
		})
	}
	_ = g.Wait() // workers only ever return nil

	var matches []FileMatch
	for _, r := range results {
		matches = append(matches, r...)
	}
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Priority != matches[j].Priority {
			return matches[i].Priority < matches[j].Priority
		}
		return matches[i].ModTime.After(matches[j].ModTime)
	})
	return dedupeByPath(matches)
}

// dedupeByPath keeps the first (best-ranked) match per path. Overlapping
// configured roots can surface one file twice.
func dedupeByPath(matches []FileMatch) []FileMatch {
	seen := make(map[string]struct{}, len(matches))
	out := matches[:0]
	for _, m := range matches {
		if _, ok := seen[m.Path]; ok {
			continue
		}
		seen[m.Path] = struct{}{}
		out = append(out, m)
	}
	return out
}

func (f *Finder) searchRoot(dir, pattern string, priority int, recursive bool, exclude []string, content string) []FileMatch {
	var matches []FileMatch

	opts := walkOptions{
		recursive:    recursive,
		skipDirs:     mergeSkipDirs(f.skipDirs, exclude),
		skipPatterns: f.skipPatterns,
	}
	walkFiles(dir, opts, func(path string, info os.FileInfo) {
		if !matchesPattern(info.Name(), pattern, path, dir) {
			return
		}
		if content != "" && !fileContains(path, content) {
			return
		}
		matches = append(matches, FileMatch{
			Path:     path,
			Priority: priority,
			ModTime:  info.ModTime(),
			Size:     info.Size(),
		})
	})
	return matches
}

// extractExplicitDir splits a pattern like "~/notes/*draft*" into an
// existing directory prefix and the remaining sub-pattern. Only patterns
// starting with ~ or / are considered. The longest existing directory
// prefix wins; a pattern that IS a directory searches all files in it.
// Returns ("", pattern) when the pattern is relative.
func extractExplicitDir(pattern string) (dir, sub string) {
	if !strings.HasPrefix(pattern, "~") && !strings.HasPrefix(pattern, "/") {
		return "", pattern
	}

	cur := filepath.Clean(expandHome(pattern))
	var rest []string
	for {
		if info, err := os.Stat(cur); err == nil && info.IsDir() {
			if len(rest) == 0 {
				return cur, "*"
			}
			// rest was collected leaf-first.
			for i, j := 0, len(rest)-1; i < j; i, j = i+1, j-1 {
				rest[i], rest[j] = rest[j], rest[i]
			}
			return cur, strings.Join(rest, "/")
		}
		parent := filepath.Dir(cur)
		if parent == cur {
			return "", pattern
		}
		rest = append(rest, filepath.Base(cur))
		cur = parent
	}
}

// fileContains reports whether the file's content includes term. The
// read is lossy: invalid UTF-8 sequences are dropped before the
// substring test. Read failures are non-matches, never errors.
func fileContains(path, term string) bool {
	content, err := readLossy(path)
	if err != nil {
		return false
	}
	return strings.Contains(content, term)
}

// readLossy reads a file as UTF-8 text, dropping invalid byte sequences.
func readLossy(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	if utf8.Valid(data) {
		return string(data), nil
	}
	return strings.ToValidUTF8(string(data), ""), nil
}

func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, strings.TrimPrefix(path, "~"))
	}
	return path
}
