// internal/finder/history.go
package finder

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/user/fieldkit/internal/gitinfo"
	"github.com/user/fieldkit/internal/token"
)

// HistoryEntry is one recently modified file with content and git
// metadata. Files whose content cannot be read never become entries.
type HistoryEntry struct {
	Path    string // absolute
	RelPath string // relative to the search root
	ModTime time.Time
	Ext     string // e.g. ".py", or "(none)"
	Lines   int
	Tokens  int

	// Populated only when git info was requested.
	GitStatus     string
	CommitRelTime string
	CommitMsg     string
}

// Skip rules applied on every FindRecent call. Caller-supplied additions
// are unioned in; the defaults are never mutated.
var (
	historySkipDirs = []string{
		".git",
		".venv",
		"venv",
		"__pycache__",
		"node_modules",
		".pytest_cache",
		".mypy_cache",
		".ruff_cache",
		".idea",
		".vscode",
		".tox",
		"dist",
		"build",
		"*.egg-info",
	}

	historySkipPatterns = []string{
		"*.db-wal",
		"*.db-shm",
		"*.lock",
		".coverage",
		"*.egg-info",
		"*.log",
	}

	// Dotfiles are skipped unless they match one of these. Most dotfiles
	// are noise; these few are meaningful project config.
	utilityDotfilePatterns = []string{
		".gitignore",
		".gitattributes",
		".env",
		".env*",
		".claude*",
		".*local",
		".editorconfig",
		".prettierrc*",
		".eslintrc*",
		".nvmrc",
		".python-version",
		".tool-versions",
		".dockerignore",
	}
)

// HistoryOptions adjust one FindRecent call.
type HistoryOptions struct {
	Count     int      // maximum entries returned; 0 means the default of 15
	FileTypes []string // extension filters, e.g. ".md", "md", "*.env*"
	GitStatus bool     // annotate entries with a git status character
	GitDetail bool     // implies GitStatus; adds last-commit info
}

// HistoryFinder lists the most recently modified files under a
// directory tree.
type HistoryFinder struct {
	skipDirs     map[string]struct{}
	skipPatterns []string
	counter      *token.Counter
}

// NewHistoryFinder creates a HistoryFinder. Extra skip rules are merged
// with the built-in defaults.
func NewHistoryFinder(extraSkipDirs, extraSkipPatterns []string) *HistoryFinder {
	patterns := make([]string, 0, len(historySkipPatterns)+len(extraSkipPatterns))
	patterns = append(patterns, historySkipPatterns...)
	patterns = append(patterns, extraSkipPatterns...)

	return &HistoryFinder{
		skipDirs:     mergeSkipDirs(toSet(historySkipDirs), extraSkipDirs),
		skipPatterns: patterns,
		counter:      token.NewCounter(),
	}
}

// FindRecent returns the most recently modified files under dir,
// most-recent-first, truncated to the requested count. A directory that
// does not exist yields an empty result.
func (h *HistoryFinder) FindRecent(ctx context.Context, dir string, opts HistoryOptions) []HistoryEntry {
	root, err := filepath.Abs(expandHome(dir))
	if err != nil {
		return nil
	}
	if _, err := os.Stat(root); err != nil {
		return nil
	}

	count := opts.Count
	if count <= 0 {
		count = 15
	}

	var filters []string
	for _, ft := range opts.FileTypes {
		filters = append(filters, normalizeExtension(ft))
	}

	var entries []HistoryEntry
	walkOpts := walkOptions{recursive: true, skipDirs: h.skipDirs, skipPatterns: nil}
	walkFiles(root, walkOpts, func(path string, info os.FileInfo) {
		name := info.Name()
		if h.shouldSkipFile(name) {
			return
		}
		if len(filters) > 0 && !matchesAnyPattern(name, filters) {
			return
		}
		if entry, ok := h.newEntry(path, root, info); ok {
			entries = append(entries, entry)
		}
	})

	sort.SliceStable(entries, func(i, j int) bool { return entries[i].ModTime.After(entries[j].ModTime) })
	if len(entries) > count {
		entries = entries[:count]
	}

	if opts.GitStatus || opts.GitDetail {
		h.addGitInfo(ctx, entries, root, opts.GitDetail)
	}
	return entries
}

// addGitInfo resolves the repository root once, then annotates the
// (already truncated) entries in place.
func (h *HistoryFinder) addGitInfo(ctx context.Context, entries []HistoryEntry, root string, detail bool) {
	gitRoot := gitinfo.Root(ctx, root)

	paths := make([]string, len(entries))
	for i := range entries {
		paths[i] = entries[i].Path
	}
	statuses := gitinfo.BulkStatus(ctx, gitRoot, paths)

	for i := range entries {
		entries[i].GitStatus = statuses[entries[i].Path]
		if detail && gitRoot != "" {
			if c := gitinfo.LastCommit(ctx, gitRoot, entries[i].Path); c != nil {
				entries[i].CommitRelTime = c.RelTime
				entries[i].CommitMsg = c.Message
			}
		}
	}
}

// shouldSkipFile applies the skip patterns, then the dotfile rule:
// dotfiles are skipped unless they match the utility allowlist.
func (h *HistoryFinder) shouldSkipFile(name string) bool {
	if matchesAnyPattern(name, h.skipPatterns) {
		return true
	}
	if strings.HasPrefix(name, ".") {
		return !matchesAnyPattern(name, utilityDotfilePatterns)
	}
	return false
}

// newEntry builds a HistoryEntry, reading the file for line and token
// counts. Returns ok=false when the content cannot be read: such files
// are dropped, not zero-filled.
func (h *HistoryFinder) newEntry(path, root string, info os.FileInfo) (HistoryEntry, bool) {
	content, err := readLossy(path)
	if err != nil {
		return HistoryEntry{}, false
	}

	base := filepath.Base(path)
	ext := filepath.Ext(base)
	if ext == "" || ext == base {
		// No extension, or a bare dotfile like ".gitignore".
		ext = "(none)"
	}

	rel, err := filepath.Rel(root, path)
	if err != nil {
		rel = path
	}

	return HistoryEntry{
		Path:    path,
		RelPath: rel,
		ModTime: info.ModTime(),
		Ext:     ext,
		Lines:   countLines(content),
		Tokens:  h.counter.Count(content),
	}, true
}

// normalizeExtension turns a filter token into a glob pattern. Tokens
// already containing a wildcard pass through; otherwise a leading dot is
// ensured and the token becomes a suffix match: "md" and ".md" both
// normalize to "*.md".
func normalizeExtension(ext string) string {
	if strings.ContainsAny(ext, "*?") {
		return strings.ToLower(ext)
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return strings.ToLower("*" + ext)
}

// countLines counts lines the way text editors do: a trailing newline
// does not start a new line, and empty content has zero lines.
func countLines(content string) int {
	if content == "" {
		return 0
	}
	n := strings.Count(content, "\n")
	if !strings.HasSuffix(content, "\n") {
		n++
	}
	return n
}
