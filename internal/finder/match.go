// internal/finder/match.go
package finder

import (
	"path"
	"path/filepath"
	"strings"
)

// matchesPattern reports whether a file satisfies a glob pattern,
// case-insensitively. Two modes:
//
// Filename mode (no separator in pattern): exact match or glob match
// against the name alone.
//
// Path mode (pattern contains a separator): glob match of fullPath
// relative to basePath. The pattern is also tried with "*/" and "*/*/"
// prefixes so "drafts/*.md" matches files nested one or two directories
// below the root. Deeper nesting does not match; the fallback is bounded.
//
// An empty pattern never matches. "*" matches every file name.
func matchesPattern(name, pattern, fullPath, basePath string) bool {
	if pattern == "" {
		return false
	}

	if strings.ContainsAny(pattern, `/\`) {
		if fullPath == "" || basePath == "" {
			return false
		}
		rel, err := filepath.Rel(basePath, fullPath)
		if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return false
		}
		relLower := strings.ToLower(filepath.ToSlash(rel))
		patLower := strings.ToLower(filepath.ToSlash(pattern))

		for _, p := range []string{patLower, "*/" + patLower, "*/*/" + patLower} {
			if ok, err := path.Match(p, relLower); err == nil && ok {
				return true
			}
		}
		return false
	}

	nameLower := strings.ToLower(name)
	patLower := strings.ToLower(pattern)
	if nameLower == patLower {
		return true
	}
	return globMatch(patLower, nameLower)
}

// globMatch is path.Match with malformed patterns treated as non-matching.
func globMatch(pattern, name string) bool {
	ok, err := path.Match(pattern, name)
	return err == nil && ok
}
