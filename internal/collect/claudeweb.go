// internal/collect/claudeweb.go
package collect

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/user/fieldkit/internal/model"
)

// ClaudeWeb collects conversations from Claude.ai export archives in
// the inbox. Exports ship as ZIP files holding conversation JSON plus
// attachment files; extracted JSON dropped loose in the inbox is
// picked up too.
type ClaudeWeb struct {
	inboxDir string
	archive  *Archiver
}

// NewClaudeWeb creates a collector reading from the given inbox.
func NewClaudeWeb(inboxDir, rawDir string, dryRun bool) *ClaudeWeb {
	return &ClaudeWeb{
		inboxDir: inboxDir,
		archive:  NewArchiver(rawDir, "claude-web", dryRun),
	}
}

// Name returns the source identifier.
func (c *ClaudeWeb) Name() string { return "claude-web" }

// Collect parses every Claude.ai export in the inbox, skipping ZIPs
// named like ChatGPT exports and known non-conversation JSON files.
func (c *ClaudeWeb) Collect(ctx context.Context) ([]*model.Conversation, error) {
	if c.inboxDir == "" {
		return nil, nil
	}
	if _, err := os.Stat(c.inboxDir); err != nil {
		return nil, nil
	}

	var convs []*model.Conversation

	zips, _ := filepath.Glob(filepath.Join(c.inboxDir, "*.zip"))
	sort.Strings(zips)
	for _, zipPath := range zips {
		if strings.Contains(strings.ToLower(filepath.Base(zipPath)), "chatgpt") {
			continue
		}
		if err := ctx.Err(); err != nil {
			return convs, err
		}
		found, err := c.collectZip(zipPath)
		if err != nil {
			slog.Warn("failed to process export zip", "path", zipPath, "error", err)
			continue
		}
		convs = append(convs, found...)
	}

	for _, jsonPath := range c.looseJSONFiles() {
		if err := ctx.Err(); err != nil {
			return convs, err
		}
		found, err := c.collectLooseFile(jsonPath)
		if err != nil {
			slog.Warn("failed to parse export file", "path", jsonPath, "error", err)
			continue
		}
		convs = append(convs, found...)
	}
	return convs, nil
}

// collectZip processes one export archive in two passes: attachments
// first so conversation messages can link to their archived copies,
// then the conversation JSON members.
func (c *ClaudeWeb) collectZip(zipPath string) ([]*model.Conversation, error) {
	zr, err := zip.OpenReader(zipPath)
	if err != nil {
		return nil, fmt.Errorf("open zip: %w", err)
	}
	defer zr.Close()

	attachmentMap := make(map[string]string)
	for _, f := range zr.File {
		name := f.Name
		if strings.HasPrefix(name, "__") || strings.HasSuffix(name, "/") || strings.HasSuffix(name, ".json") {
			continue
		}
		content, err := readZipMember(f)
		if err != nil {
			slog.Warn("failed to extract attachment", "member", name, "error", err)
			continue
		}
		base := path.Base(name)
		archived, err := c.archive.Archive("attachments/"+base, "", content)
		if err != nil {
			slog.Warn("failed to archive attachment", "member", name, "error", err)
			continue
		}
		if archived != "" {
			attachmentMap[base] = archived
		}
	}

	var convs []*model.Conversation
	for _, f := range zr.File {
		name := f.Name
		if strings.HasPrefix(name, "__") || !strings.HasSuffix(name, ".json") {
			continue
		}
		raw, err := readZipMember(f)
		if err != nil {
			slog.Warn("failed to read export member", "member", name, "error", err)
			continue
		}
		found, err := c.parseExport(raw, zipPath+":"+name, attachmentMap)
		if err != nil {
			slog.Warn("failed to parse export member", "member", name, "error", err)
			continue
		}
		convs = append(convs, found...)
	}
	return convs, nil
}

// looseJSONFiles finds extracted JSON under the inbox, excluding the
// account metadata files exports ship alongside conversations and
// anything that looks like a ChatGPT export.
func (c *ClaudeWeb) looseJSONFiles() []string {
	var out []string
	filepath.WalkDir(c.inboxDir, func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || !strings.HasSuffix(d.Name(), ".json") {
			return nil
		}
		switch d.Name() {
		case "users.json", "projects.json", "orgs.json":
			return nil
		}
		if strings.Contains(strings.ToLower(d.Name()), "chatgpt") {
			return nil
		}
		if strings.Contains(strings.ToLower(filepath.Base(filepath.Dir(p))), "openai") {
			return nil
		}
		out = append(out, p)
		return nil
	})
	return out
}

func (c *ClaudeWeb) collectLooseFile(jsonPath string) ([]*model.Conversation, error) {
	raw, err := os.ReadFile(jsonPath)
	if err != nil {
		return nil, err
	}
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, nil
	}
	if trimmed[0] == '[' {
		return c.parseBulkFile(trimmed, jsonPath)
	}
	if !looksLikeClaudeExport(trimmed) {
		return nil, nil
	}
	conv, err := c.parseConversation(trimmed, jsonPath, nil)
	if err != nil || conv == nil {
		return nil, err
	}
	return []*model.Conversation{conv}, nil
}

// parseExport handles both export shapes: a single conversation object
// and a bulk array of conversations.
func (c *ClaudeWeb) parseExport(raw []byte, sourcePath string, attachmentMap map[string]string) ([]*model.Conversation, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, nil
	}
	if trimmed[0] != '[' {
		conv, err := c.parseConversation(trimmed, sourcePath, attachmentMap)
		if err != nil || conv == nil {
			return nil, err
		}
		return []*model.Conversation{conv}, nil
	}

	var records []json.RawMessage
	if err := json.Unmarshal(trimmed, &records); err != nil {
		return nil, fmt.Errorf("decode export: %w", err)
	}
	var out []*model.Conversation
	for _, rec := range records {
		conv, err := c.parseConversation(rec, sourcePath, attachmentMap)
		if err != nil {
			slog.Warn("skipping malformed conversation", "source_path", sourcePath, "error", err)
			continue
		}
		if conv != nil {
			out = append(out, conv)
		}
	}
	return out, nil
}

// parseBulkFile parses an extracted bulk export, resolving referenced
// attachment files from the directories around it.
func (c *ClaudeWeb) parseBulkFile(raw []byte, jsonPath string) ([]*model.Conversation, error) {
	var records []json.RawMessage
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, fmt.Errorf("decode export: %w", err)
	}
	parent := filepath.Dir(jsonPath)
	attachmentDirs := []string{parent, filepath.Dir(parent), filepath.Join(parent, "attachments")}

	var out []*model.Conversation
	for _, rec := range records {
		var data claudeWebConversation
		if err := json.Unmarshal(rec, &data); err != nil {
			slog.Warn("skipping malformed conversation", "source_path", jsonPath, "error", err)
			continue
		}
		attachmentMap := c.archiveReferencedAttachments(&data, attachmentDirs)
		conv, err := c.buildConversation(&data, rec, jsonPath, attachmentMap)
		if err != nil {
			slog.Warn("skipping malformed conversation", "source_path", jsonPath, "error", err)
			continue
		}
		if conv != nil {
			out = append(out, conv)
		}
	}
	return out, nil
}

// archiveReferencedAttachments archives every attachment file the
// conversation's messages reference, searching the candidate
// directories in order.
func (c *ClaudeWeb) archiveReferencedAttachments(data *claudeWebConversation, dirs []string) map[string]string {
	found := make(map[string]string)
	for _, msg := range data.ChatMessages {
		for _, att := range msg.Attachments {
			name := att.FileName
			if name == "" || found[name] != "" {
				continue
			}
			for _, dir := range dirs {
				content, err := os.ReadFile(filepath.Join(dir, name))
				if err != nil {
					continue
				}
				if archived, err := c.archive.Archive("attachments/"+name, "", content); err == nil && archived != "" {
					found[name] = archived
				}
				break
			}
		}
	}
	return found
}

// looksLikeClaudeExport peeks at the start of a JSON document for the
// field names Claude.ai exports carry.
func looksLikeClaudeExport(raw []byte) bool {
	peek := raw
	if len(peek) > 1000 {
		peek = peek[:1000]
	}
	return bytes.Contains(peek, []byte(`"chat_messages"`)) || bytes.Contains(peek, []byte(`"uuid"`))
}

// claudeWebConversation mirrors the export schema; only consumed
// fields are declared.
type claudeWebConversation struct {
	UUID    string `json:"uuid"`
	ID      string `json:"id"`
	Name    string `json:"name"`
	Title   string `json:"title"`
	Summary string `json:"summary"`
	Model   string `json:"model"`
	Account struct {
		UUID string `json:"uuid"`
	} `json:"account"`
	ChatMessages []claudeWebMessage `json:"chat_messages"`
}

type claudeWebMessage struct {
	UUID        string                `json:"uuid"`
	Sender      string                `json:"sender"`
	Text        string                `json:"text"`
	CreatedAt   any                   `json:"created_at"`
	Content     []claudeWebBlock      `json:"content"`
	Attachments []claudeWebAttachment `json:"attachments"`
}

type claudeWebBlock struct {
	Type     string `json:"type"`
	Text     string `json:"text"`
	Thinking string `json:"thinking"`
	Name     string `json:"name"`
	Input    any    `json:"input"`
	ID       string `json:"id"`
}

type claudeWebAttachment struct {
	FileName         string  `json:"file_name"`
	FileType         string  `json:"file_type"`
	FileSize         float64 `json:"file_size"`
	ExtractedContent string  `json:"extracted_content"`
}

func (c *ClaudeWeb) parseConversation(raw json.RawMessage, sourcePath string, attachmentMap map[string]string) (*model.Conversation, error) {
	var data claudeWebConversation
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, err
	}
	return c.buildConversation(&data, raw, sourcePath, attachmentMap)
}

func (c *ClaudeWeb) buildConversation(data *claudeWebConversation, raw []byte, sourcePath string, attachmentMap map[string]string) (*model.Conversation, error) {
	nativeID := data.UUID
	if nativeID == "" {
		nativeID = data.ID
	}
	if nativeID == "" {
		return nil, nil
	}

	var messages []model.Message
	for i := range data.ChatMessages {
		if m := normalizeClaudeWebMessage(&data.ChatMessages[i], attachmentMap); m != nil {
			messages = append(messages, *m)
		}
	}
	if len(messages) == 0 {
		return nil, nil
	}

	created, updated := timestampRange(messages)

	title := data.Name
	if title == "" {
		title = data.Title
	}
	titlePtr := &title
	if title == "" {
		titlePtr = firstUserLine(messages)
	}

	archived, err := c.archive.ArchiveJSON(nativeID, raw)
	if err != nil {
		return nil, err
	}

	conv := model.NewConversation("claude-web", nativeID)
	conv.CreatedAt = created
	conv.UpdatedAt = updated
	conv.Messages = messages
	conv.Title = titlePtr
	if data.Summary != "" {
		conv.Summary = &data.Summary
	}
	conv.Metadata = map[string]any{
		"original_path": sourcePath,
	}
	if archived != "" {
		conv.Metadata["source_path"] = archived
	}
	if data.Model != "" {
		conv.Metadata["model"] = data.Model
	}
	if data.Account.UUID != "" {
		conv.Metadata["account_uuid"] = data.Account.UUID
	}
	return conv, nil
}

// normalizeClaudeWebMessage flattens one export message. Senders other
// than human/assistant are dropped, as are messages left with no
// content after the fallbacks.
func normalizeClaudeWebMessage(msg *claudeWebMessage, attachmentMap map[string]string) *model.Message {
	var role string
	switch msg.Sender {
	case "human":
		role = "user"
	case "assistant":
		role = "assistant"
	default:
		return nil
	}

	meta := map[string]any{}

	var attachments []map[string]any
	for _, att := range msg.Attachments {
		entry := map[string]any{
			"file_name": att.FileName,
			"file_type": att.FileType,
			"file_size": att.FileSize,
		}
		if att.ExtractedContent != "" {
			entry["extracted_content"] = att.ExtractedContent
		}
		if local := attachmentMap[att.FileName]; local != "" {
			entry["local_path"] = local
		}
		attachments = append(attachments, entry)
	}
	if len(attachments) > 0 {
		meta["attachments"] = attachments
		meta["attachment_count"] = len(attachments)
	}

	blocks := msg.Content
	if len(blocks) == 0 && msg.Text != "" {
		blocks = []claudeWebBlock{{Type: "text", Text: msg.Text}}
	}

	var (
		textParts    []string
		contentTypes []string
		toolCalls    []map[string]any
		hasThinking  bool
		hasTools     bool
		hasVoice     bool
	)
	for _, b := range blocks {
		contentTypes = append(contentTypes, b.Type)
		switch b.Type {
		case "text":
			if b.Text != "" {
				textParts = append(textParts, b.Text)
			}
		case "thinking":
			hasThinking = true
			if b.Thinking != "" {
				preview := b.Thinking
				if r := []rune(preview); len(r) > 200 {
					preview = string(r[:200])
				}
				meta["thinking_preview"] = preview
			}
		case "tool_use":
			hasTools = true
			toolCalls = append(toolCalls, map[string]any{
				"name":  b.Name,
				"input": b.Input,
				"id":    b.ID,
			})
		case "tool_result":
			hasTools = true
		case "voice_note":
			hasVoice = true
		}
	}
	if len(contentTypes) > 0 {
		meta["content_types"] = contentTypes
	}
	if hasThinking {
		meta["has_thinking"] = true
	}
	if hasTools {
		meta["has_tools"] = true
	}
	if hasVoice {
		meta["has_voice"] = true
	}
	if len(toolCalls) > 0 {
		meta["tool_calls"] = toolCalls
	}

	content := strings.Join(textParts, "\n")
	if content == "" {
		switch {
		case len(attachments) > 0:
			content = fmt.Sprintf("[%d attachment(s)]", len(attachments))
		case hasVoice:
			content = "[Voice Note]"
		case hasTools:
			content = "[Tool Use]"
		}
	}
	if content == "" {
		return nil
	}

	out := &model.Message{
		Role:     role,
		Content:  content,
		ID:       msg.UUID,
		Metadata: meta,
	}
	if ts, ok := claudeWebTimestamp(msg.CreatedAt); ok {
		out.Timestamp = &ts
	}
	return out
}

// claudeWebTimestamp parses a message timestamp: ISO string or unix
// seconds.
func claudeWebTimestamp(v any) (time.Time, bool) {
	switch ts := v.(type) {
	case string:
		return parseISOTime(ts)
	case float64:
		return unixSeconds(ts), true
	}
	return time.Time{}, false
}
