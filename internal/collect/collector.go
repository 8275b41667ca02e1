// internal/collect/collector.go

// Package collect gathers conversations from AI assistant platforms
// and normalizes them into the shared conversation model. Each
// platform has its own collector; all of them archive the raw export
// data before normalizing so the originals survive format changes.
package collect

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/user/fieldkit/internal/model"
)

// Collector produces normalized conversations from one source
// platform. Collect is best-effort: individual malformed files or
// records are logged and skipped, never fatal for the whole source.
type Collector interface {
	Name() string
	Collect(ctx context.Context) ([]*model.Conversation, error)
}

// Archiver copies raw source payloads into <rawDir>/<source>/ so the
// original export data is preserved alongside the normalized logs.
// Writes are deduplicated by content and suppressed in dry runs.
type Archiver struct {
	rawDir string
	source string
	dryRun bool
}

// NewArchiver creates an archiver for one source. An empty rawDir
// disables archiving entirely.
func NewArchiver(rawDir, source string, dryRun bool) *Archiver {
	return &Archiver{rawDir: rawDir, source: source, dryRun: dryRun}
}

// Archive writes data to <rawDir>/<source>/<nativeID>[.<ext>]. A
// nativeID containing slashes creates nested directories. If the
// target already holds identical content the write is skipped. The
// target path is returned even in dry-run mode, where nothing is
// written.
func (a *Archiver) Archive(nativeID, ext string, data []byte) (string, error) {
	if a == nil || a.rawDir == "" {
		return "", nil
	}
	name := nativeID
	if ext != "" {
		name += "." + ext
	}
	target := filepath.Join(a.rawDir, a.source, filepath.FromSlash(name))
	if a.dryRun {
		return target, nil
	}
	if existing, err := os.ReadFile(target); err == nil && bytes.Equal(existing, data) {
		return target, nil
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return "", fmt.Errorf("create archive dir: %w", err)
	}
	if err := os.WriteFile(target, data, 0o644); err != nil {
		return "", fmt.Errorf("archive %s: %w", name, err)
	}
	return target, nil
}

// ArchiveJSON re-indents raw JSON before archiving so the archived
// copy is readable. Invalid JSON is archived as-is.
func (a *Archiver) ArchiveJSON(nativeID string, raw []byte) (string, error) {
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err == nil {
		raw = buf.Bytes()
	}
	return a.Archive(nativeID, "json", raw)
}

// expandPaths resolves a leading ~ against the home directory and
// drops paths that do not exist.
func expandPaths(paths []string) []string {
	var out []string
	for _, p := range paths {
		p = ExpandHome(p)
		if p == "" {
			continue
		}
		if _, err := os.Stat(p); err != nil {
			continue
		}
		out = append(out, p)
	}
	return out
}

// ExpandHome replaces a leading ~ with the current home directory.
func ExpandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[1:])
	}
	return path
}

// readZipMember reads one archive member fully.
func readZipMember(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// findFile locates the first file with the given base name anywhere
// under root. Returns "" when none exists.
func findFile(root, name string) string {
	var found string
	filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() && d.Name() == name {
			found = path
			return fs.SkipAll
		}
		return nil
	})
	return found
}

// parseISOTime parses the RFC3339-style timestamps the export formats
// use, tolerating a missing zone (treated as UTC).
func parseISOTime(s string) (time.Time, bool) {
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999999", "2006-01-02 15:04:05.999999999"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// unixSeconds converts a fractional unix-seconds value as found in
// ChatGPT exports.
func unixSeconds(v float64) time.Time {
	sec := int64(v)
	nsec := int64((v - float64(sec)) * 1e9)
	return time.Unix(sec, nsec)
}

// firstUserLine derives a display title from the first user message:
// its first line, truncated to 80 characters. Returns nil when no user
// message has content.
func firstUserLine(messages []model.Message) *string {
	for _, m := range messages {
		if m.Role != "user" || m.Content == "" {
			continue
		}
		line := strings.TrimSpace(strings.SplitN(m.Content, "\n", 2)[0])
		if line == "" {
			continue
		}
		if r := []rune(line); len(r) > 80 {
			line = string(r[:77]) + "..."
		}
		return &line
	}
	return nil
}

// timestampRange returns the min and max message timestamps, falling
// back to now when no message carries one.
func timestampRange(messages []model.Message) (created, updated time.Time) {
	for _, m := range messages {
		if m.Timestamp == nil {
			continue
		}
		ts := *m.Timestamp
		if created.IsZero() || ts.Before(created) {
			created = ts
		}
		if updated.IsZero() || ts.After(updated) {
			updated = ts
		}
	}
	if created.IsZero() {
		now := time.Now()
		return now, now
	}
	return created, updated
}
