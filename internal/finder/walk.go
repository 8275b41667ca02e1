// internal/finder/walk.go
package finder

import (
	"os"
	"path/filepath"
	"strings"
)

// walkOptions control one traversal.
type walkOptions struct {
	recursive    bool
	skipDirs     map[string]struct{}
	skipPatterns []string
}

// walkFiles traverses root and calls fn for every regular file that
// survives the skip rules. Directories named in skipDirs (exact, or by
// glob for entries containing a wildcard) are pruned before descent and
// never read. Files matching any skipPatterns entry (case-insensitive
// glob on the name) are skipped. Entries that fail to stat are skipped
// silently; an unreadable directory aborts that subtree only. Symlinks
// are not followed.
func walkFiles(root string, opts walkOptions, fn func(path string, info os.FileInfo)) {
	pending := []string{root}

	for len(pending) > 0 {
		dir := pending[len(pending)-1]
		pending = pending[:len(pending)-1]

		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}

		for _, entry := range entries {
			name := entry.Name()
			full := filepath.Join(dir, name)

			if entry.IsDir() {
				if opts.recursive && !shouldSkipDir(name, opts.skipDirs) {
					pending = append(pending, full)
				}
				continue
			}

			if matchesAnyPattern(name, opts.skipPatterns) {
				continue
			}

			info, err := os.Stat(full)
			if err != nil || info.IsDir() {
				// Unreadable, or a symlink to a directory.
				continue
			}
			fn(full, info)
		}
	}
}

func shouldSkipDir(name string, skipDirs map[string]struct{}) bool {
	if _, ok := skipDirs[name]; ok {
		return true
	}
	for pattern := range skipDirs {
		if strings.Contains(pattern, "*") && globMatch(pattern, name) {
			return true
		}
	}
	return false
}

// matchesAnyPattern is a case-insensitive glob test of a file name
// against each pattern.
func matchesAnyPattern(name string, patterns []string) bool {
	nameLower := strings.ToLower(name)
	for _, p := range patterns {
		if globMatch(strings.ToLower(p), nameLower) {
			return true
		}
	}
	return false
}

// mergeSkipDirs unions the shared defaults with call-supplied additions
// without mutating either.
func mergeSkipDirs(base map[string]struct{}, extra []string) map[string]struct{} {
	merged := make(map[string]struct{}, len(base)+len(extra))
	for d := range base {
		merged[d] = struct{}{}
	}
	for _, d := range extra {
		merged[d] = struct{}{}
	}
	return merged
}

func toSet(names []string) map[string]struct{} {
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		set[n] = struct{}{}
	}
	return set
}
