// internal/gitinfo/gitinfo.go

// Package gitinfo answers file-level git questions by shelling out to
// the git binary. Every query is bounded by a timeout and degrades to a
// sentinel value instead of failing: callers render whatever comes back.
package gitinfo

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// StatusNotInRepo marks a file outside any repository (or git itself
// being unavailable).
const StatusNotInRepo = "-"

const queryTimeout = 5 * time.Second

// Commit holds last-commit info for one file.
type Commit struct {
	Time    time.Time
	Message string // truncated to 40 runes
	RelTime string // shortened form of git's relative date, e.g. "2d", "5h"
}

// Root returns the repository root containing dir, or "" when dir is not
// inside a repository. For file paths the parent directory is used.
func Root(ctx context.Context, dir string) string {
	cwd := dir
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		cwd = filepath.Dir(dir)
	}
	out, err := runGit(ctx, cwd, "rev-parse", "--show-toplevel")
	if err != nil {
		return ""
	}
	return strings.TrimSpace(out)
}

// FileStatus returns one status character for path inside root:
// M (modified), A (staged), ? (untracked), ✓ (clean), ! (ignored),
// or the not-in-repo sentinel.
func FileStatus(ctx context.Context, root, path string) string {
	if root == "" {
		return StatusNotInRepo
	}
	rel, err := relUnder(root, path)
	if err != nil {
		return StatusNotInRepo
	}

	out, err := runGit(ctx, root, "status", "--porcelain", "--ignored", "--", rel)
	if err != nil {
		return StatusNotInRepo
	}

	first, _, _ := strings.Cut(out, "\n")
	if first == "" {
		// No output means tracked and clean, but verify.
		tracked, err := runGit(ctx, root, "ls-files", "--", rel)
		if err == nil && strings.TrimSpace(tracked) != "" {
			return "✓"
		}
		return "?"
	}
	if len(first) < 2 {
		return "✓"
	}
	return parseStatusCode(first[:2])
}

// BulkStatus maps each path to its status character using a single
// porcelain listing plus one tracked-file listing for the whole root.
func BulkStatus(ctx context.Context, root string, paths []string) map[string]string {
	statuses := make(map[string]string, len(paths))
	if root == "" {
		for _, p := range paths {
			statuses[p] = StatusNotInRepo
		}
		return statuses
	}

	out, err := runGit(ctx, root, "status", "--porcelain", "--ignored")
	if err != nil {
		for _, p := range paths {
			statuses[p] = StatusNotInRepo
		}
		return statuses
	}

	byRel := make(map[string]string)
	for _, line := range strings.Split(out, "\n") {
		if len(line) < 4 {
			continue
		}
		byRel[line[3:]] = parseStatusCode(line[:2])
	}

	tracked := make(map[string]struct{})
	if lsOut, err := runGit(ctx, root, "ls-files"); err == nil {
		for _, line := range strings.Split(lsOut, "\n") {
			if line != "" {
				tracked[line] = struct{}{}
			}
		}
	}

	for _, p := range paths {
		rel, err := relUnder(root, p)
		if err != nil {
			statuses[p] = StatusNotInRepo
			continue
		}
		rel = filepath.ToSlash(rel)
		if s, ok := byRel[rel]; ok {
			statuses[p] = s
			continue
		}
		// Porcelain reports untracked/ignored directories as one
		// "dir/" line; files below inherit that status.
		if s, ok := dirPrefixStatus(byRel, rel); ok {
			statuses[p] = s
			continue
		}
		if _, ok := tracked[rel]; ok {
			statuses[p] = "✓"
		} else {
			statuses[p] = "?"
		}
	}
	return statuses
}

func dirPrefixStatus(byRel map[string]string, rel string) (string, bool) {
	for entry, status := range byRel {
		if strings.HasSuffix(entry, "/") && strings.HasPrefix(rel, entry) {
			return status, true
		}
	}
	return "", false
}

// LastCommit returns the most recent commit touching path, or nil when
// the file has no history (or root is empty).
func LastCommit(ctx context.Context, root, path string) *Commit {
	if root == "" {
		return nil
	}
	rel, err := relUnder(root, path)
	if err != nil {
		return nil
	}

	out, err := runGit(ctx, root, "log", "-1", "--format=%ct|%s|%cr", "--", rel)
	if err != nil || strings.TrimSpace(out) == "" {
		return nil
	}

	parts := strings.SplitN(strings.TrimSpace(out), "|", 3)
	if len(parts) < 3 {
		return nil
	}
	unix, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return nil
	}

	return &Commit{
		Time:    time.Unix(unix, 0),
		Message: truncateRunes(parts[1], 40),
		RelTime: shortenRelTime(parts[2]),
	}
}

// relUnder computes path relative to root, failing when path is not
// below root.
func relUnder(root, path string) (string, error) {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return "", err
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", os.ErrNotExist
	}
	return rel, nil
}

func runGit(ctx context.Context, dir string, args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	out, err := cmd.Output()
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// parseStatusCode maps a porcelain XY code to one display character.
// X is the index column, Y the worktree column.
func parseStatusCode(code string) string {
	switch {
	case code == "!!":
		return "!"
	case code == "??":
		return "?"
	case strings.ContainsRune("MADRC", rune(code[0])):
		return "A"
	case strings.ContainsRune("MD", rune(code[1])):
		return "M"
	default:
		return "✓"
	}
}

var relTimeReplacer = strings.NewReplacer(
	" ago", "",
	" minutes", "m",
	" minute", "m",
	" hours", "h",
	" hour", "h",
	" days", "d",
	" day", "d",
	" weeks", "w",
	" week", "w",
	" months", "mo",
	" month", "mo",
	" years", "y",
	" year", "y",
)

// shortenRelTime compresses git's %cr output: "2 days ago" -> "2d".
func shortenRelTime(rel string) string {
	return relTimeReplacer.Replace(rel)
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
