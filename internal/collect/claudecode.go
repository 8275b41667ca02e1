// internal/collect/claudecode.go
package collect

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/user/fieldkit/internal/model"
)

// sessionIDScanLines is how deep into a session file the collector
// looks for an explicit sessionId before falling back to the filename.
const sessionIDScanLines = 100

// maxSessionLine bounds a single JSONL line; tool results in session
// logs can run to megabytes.
const maxSessionLine = 16 * 1024 * 1024

// ClaudeCode collects conversations from Claude Code's local storage:
// <base>/<project-dir>/*.jsonl, one session per file. Long sessions
// are split across several files sharing a session ID; fragments are
// merged back into one conversation.
type ClaudeCode struct {
	paths   []string
	archive *Archiver
}

// NewClaudeCode creates a collector scanning the given base paths
// (typically ~/.claude/projects).
func NewClaudeCode(paths []string, rawDir string, dryRun bool) *ClaudeCode {
	return &ClaudeCode{
		paths:   paths,
		archive: NewArchiver(rawDir, "claude-code", dryRun),
	}
}

// Name returns the source identifier.
func (c *ClaudeCode) Name() string { return "claude-code" }

// Collect scans all project directories, groups session files by
// session ID, and merges each group into one conversation.
func (c *ClaudeCode) Collect(ctx context.Context) ([]*model.Conversation, error) {
	groups := make(map[string][]string)
	for _, base := range expandPaths(c.paths) {
		projects, err := os.ReadDir(base)
		if err != nil {
			slog.Warn("skipping unreadable base path", "path", base, "error", err)
			continue
		}
		for _, project := range projects {
			if !project.IsDir() {
				continue
			}
			dir := filepath.Join(base, project.Name())
			files, err := os.ReadDir(dir)
			if err != nil {
				slog.Warn("skipping unreadable project dir", "path", dir, "error", err)
				continue
			}
			for _, f := range files {
				if f.IsDir() || !strings.HasSuffix(f.Name(), ".jsonl") {
					continue
				}
				path := filepath.Join(dir, f.Name())
				id, err := sessionID(path)
				if err != nil {
					slog.Warn("failed to scan session file", "path", path, "error", err)
					continue
				}
				if id != "" {
					groups[id] = append(groups[id], path)
				}
			}
		}
	}

	ids := make([]string, 0, len(groups))
	for id := range groups {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var convs []*model.Conversation
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return convs, err
		}
		conv, err := c.mergeSession(id, groups[id])
		if err != nil {
			slog.Warn("failed to process session", "session_id", id, "error", err)
			continue
		}
		if conv != nil {
			convs = append(convs, conv)
		}
	}
	return convs, nil
}

// mergeSession reads every fragment file of one session, archives the
// raw content, and merges the deduplicated messages into a single
// conversation. Returns nil when the session has no messages.
func (c *ClaudeCode) mergeSession(id string, files []string) (*model.Conversation, error) {
	sort.Strings(files)

	var (
		messages      []model.Message
		archivedPaths []string
		projectPath   string
	)
	for _, path := range files {
		content, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		stem := strings.TrimSuffix(filepath.Base(path), ".jsonl")
		archived, err := c.archive.Archive(stem, "jsonl", content)
		if err != nil {
			return nil, err
		}
		if archived != "" {
			archivedPaths = append(archivedPaths, archived)
		}

		msgs, cwd := parseSessionFragment(content)
		messages = append(messages, msgs...)
		if projectPath == "" {
			projectPath = cwd
		}
	}
	if len(messages) == 0 {
		return nil, nil
	}

	messages = dedupeMessages(messages)
	created, updated := timestampRange(messages)

	conv := model.NewConversation("claude-code", id)
	conv.CreatedAt = created
	conv.UpdatedAt = updated
	conv.Messages = messages
	conv.Title = sessionTitle(messages, projectPath)
	conv.Metadata = map[string]any{
		"fragment_count": len(files),
	}
	if projectPath != "" {
		conv.Metadata["project_path"] = projectPath
	}
	if len(archivedPaths) > 0 {
		conv.Metadata["source_path"] = archivedPaths[0]
		conv.Metadata["all_source_paths"] = archivedPaths
	}
	return conv, nil
}

// sessionEntry is one line of a Claude Code session file. Only the
// fields the collector consumes are declared.
type sessionEntry struct {
	Type      string          `json:"type"`
	SessionID string          `json:"sessionId"`
	CWD       string          `json:"cwd"`
	Timestamp any             `json:"timestamp"`
	UUID      string          `json:"uuid"`
	Message   *sessionMessage `json:"message"`
}

type sessionMessage struct {
	Content any            `json:"content"`
	Model   string         `json:"model"`
	Usage   map[string]any `json:"usage"`
}

// sessionID finds the session identifier for a JSONL file: an explicit
// sessionId field near the top wins; otherwise a filename stem that
// parses as a UUID. Returns "" for files that are neither.
func sessionID(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxSessionLine)
	for i := 0; i < sessionIDScanLines && scanner.Scan(); i++ {
		var entry sessionEntry
		if err := json.Unmarshal(scanner.Bytes(), &entry); err != nil {
			continue
		}
		if entry.SessionID != "" {
			return entry.SessionID, nil
		}
	}

	stem := strings.TrimSuffix(filepath.Base(path), ".jsonl")
	if _, err := uuid.Parse(stem); err == nil {
		return stem, nil
	}
	return "", nil
}

// parseSessionFragment extracts the messages and working directory
// from one session file. Malformed lines are skipped.
func parseSessionFragment(content []byte) ([]model.Message, string) {
	var (
		messages []model.Message
		cwd      string
	)
	for _, line := range strings.Split(string(content), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		var entry sessionEntry
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			continue
		}
		if cwd == "" {
			cwd = entry.CWD
		}
		if msg := extractSessionMessage(&entry); msg != nil {
			messages = append(messages, *msg)
		}
	}
	return messages, cwd
}

// extractSessionMessage converts a user or assistant entry into a
// normalized message. Other entry types (summaries, progress markers)
// return nil, as do messages with neither text nor tool activity.
func extractSessionMessage(entry *sessionEntry) *model.Message {
	if entry.Type != "user" && entry.Type != "assistant" {
		return nil
	}
	if entry.Message == nil {
		return nil
	}

	var (
		textParts []string
		toolCalls []map[string]any
		hasTools  bool
	)
	switch content := entry.Message.Content.(type) {
	case string:
		textParts = append(textParts, content)
	case []any:
		for _, part := range content {
			switch p := part.(type) {
			case string:
				textParts = append(textParts, p)
			case map[string]any:
				switch p["type"] {
				case "text":
					if s, ok := p["text"].(string); ok {
						textParts = append(textParts, s)
					}
				case "tool_use":
					hasTools = true
					name, _ := p["name"].(string)
					toolCalls = append(toolCalls, map[string]any{
						"name":  name,
						"input": p["input"],
						"id":    p["id"],
					})
					textParts = append(textParts, fmt.Sprintf("[Tool Use: %s]", name))
				case "tool_result":
					hasTools = true
				}
			}
		}
	default:
		return nil
	}

	text := strings.Join(textParts, "\n")
	if strings.TrimSpace(text) == "" && !hasTools {
		return nil
	}

	meta := map[string]any{"has_tools": hasTools}
	if len(toolCalls) > 0 {
		meta["tool_calls"] = toolCalls
	}
	if entry.Message.Model != "" {
		meta["model"] = entry.Message.Model
	}
	if len(entry.Message.Usage) > 0 {
		meta["usage"] = entry.Message.Usage
	}

	msg := &model.Message{
		Role:     entry.Type,
		Content:  text,
		ID:       entry.UUID,
		Metadata: meta,
	}
	if ts, ok := sessionTimestamp(entry.Timestamp); ok {
		msg.Timestamp = &ts
	}
	return msg
}

// sessionTimestamp parses a session entry timestamp: ISO string or
// unix milliseconds.
func sessionTimestamp(v any) (time.Time, bool) {
	switch ts := v.(type) {
	case string:
		return parseISOTime(ts)
	case float64:
		return time.UnixMilli(int64(ts)), true
	}
	return time.Time{}, false
}

// dedupeMessages drops duplicates introduced by overlapping session
// fragments, keyed by timestamp, role, and content, then sorts by
// timestamp. Messages without a timestamp sort first; the sort is
// stable so their relative order survives.
func dedupeMessages(messages []model.Message) []model.Message {
	type key struct {
		ts      string
		role    string
		content string
	}
	seen := make(map[key]bool)
	unique := make([]model.Message, 0, len(messages))
	for _, m := range messages {
		k := key{role: m.Role, content: m.Content}
		if m.Timestamp != nil {
			k.ts = m.Timestamp.Format(time.RFC3339Nano)
		}
		if seen[k] {
			continue
		}
		seen[k] = true
		unique = append(unique, m)
	}

	sort.SliceStable(unique, func(i, j int) bool {
		var ti, tj time.Time
		if unique[i].Timestamp != nil {
			ti = *unique[i].Timestamp
		}
		if unique[j].Timestamp != nil {
			tj = *unique[j].Timestamp
		}
		return ti.Before(tj)
	})
	return unique
}

// sessionTitle prefers the first user message's first line, falling
// back to the project directory name.
func sessionTitle(messages []model.Message, projectPath string) *string {
	if title := firstUserLine(messages); title != nil {
		return title
	}
	if projectPath != "" {
		name := filepath.Base(projectPath)
		return &name
	}
	return nil
}
