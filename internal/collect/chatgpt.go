// internal/collect/chatgpt.go
package collect

import (
	"archive/zip"
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/user/fieldkit/internal/model"
)

// ChatGPT collects conversations from ChatGPT export archives dropped
// into the inbox: "*chatgpt*.zip" files and already-extracted
// conversations.json files. Exports store each conversation as a tree
// of message nodes (edits and regenerations branch); the collector
// linearizes the live branch.
type ChatGPT struct {
	inboxDir string
	archive  *Archiver
}

// NewChatGPT creates a collector reading from the given inbox.
func NewChatGPT(inboxDir, rawDir string, dryRun bool) *ChatGPT {
	return &ChatGPT{
		inboxDir: inboxDir,
		archive:  NewArchiver(rawDir, "chatgpt", dryRun),
	}
}

// Name returns the source identifier.
func (c *ChatGPT) Name() string { return "chatgpt" }

// Collect parses every export found in the inbox. A malformed archive
// or conversation record is logged and skipped.
func (c *ChatGPT) Collect(ctx context.Context) ([]*model.Conversation, error) {
	if c.inboxDir == "" {
		return nil, nil
	}
	if _, err := os.Stat(c.inboxDir); err != nil {
		return nil, nil
	}

	var convs []*model.Conversation

	zips, _ := filepath.Glob(filepath.Join(c.inboxDir, "*chatgpt*.zip"))
	sort.Strings(zips)
	for _, zipPath := range zips {
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

	for _, jsonPath := range c.looseConversationFiles() {
		if err := ctx.Err(); err != nil {
			return convs, err
		}
		raw, err := os.ReadFile(jsonPath)
		if err != nil {
			slog.Warn("failed to read conversations file", "path", jsonPath, "error", err)
			continue
		}
		found, err := c.parseConversations(raw, jsonPath, filepath.Dir(jsonPath))
		if err != nil {
			slog.Warn("failed to parse conversations file", "path", jsonPath, "error", err)
			continue
		}
		convs = append(convs, found...)
	}
	return convs, nil
}

// collectZip reads the first conversations.json member of an export
// archive.
func (c *ChatGPT) collectZip(zipPath string) ([]*model.Conversation, error) {
	zr, err := zip.OpenReader(zipPath)
	if err != nil {
		return nil, fmt.Errorf("open zip: %w", err)
	}
	defer zr.Close()

	for _, f := range zr.File {
		if !strings.HasSuffix(f.Name, "conversations.json") {
			continue
		}
		raw, err := readZipMember(f)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", f.Name, err)
		}
		return c.parseConversations(raw, zipPath, "")
	}
	return nil, nil
}

// looseConversationFiles finds extracted conversations.json files
// whose location marks them as ChatGPT exports: directly in the inbox
// or under a directory named for chatgpt/openai.
func (c *ChatGPT) looseConversationFiles() []string {
	var out []string
	filepath.WalkDir(c.inboxDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || d.Name() != "conversations.json" {
			return nil
		}
		dir := filepath.Dir(path)
		parent := strings.ToLower(filepath.Base(dir))
		if dir == c.inboxDir || strings.Contains(parent, "chatgpt") || strings.Contains(parent, "openai") {
			out = append(out, path)
		}
		return nil
	})
	return out
}

// parseConversations decodes an export's conversation array record by
// record, so one malformed conversation does not discard the rest.
func (c *ChatGPT) parseConversations(raw []byte, sourcePath, attachmentRoot string) ([]*model.Conversation, error) {
	var records []json.RawMessage
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, fmt.Errorf("decode export: %w", err)
	}

	var out []*model.Conversation
	for _, rec := range records {
		conv, err := c.parseConversation(rec, sourcePath, attachmentRoot)
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

// chatgptConversation mirrors the export schema; only consumed fields
// are declared.
type chatgptConversation struct {
	ID               string                 `json:"id"`
	Title            string                 `json:"title"`
	CreateTime       float64                `json:"create_time"`
	UpdateTime       float64                `json:"update_time"`
	Mapping          map[string]chatgptNode `json:"mapping"`
	CurrentNode      string                 `json:"current_node"`
	DefaultModelSlug string                 `json:"default_model_slug"`
}

type chatgptNode struct {
	Parent   string          `json:"parent"`
	Children []string        `json:"children"`
	Message  *chatgptMessage `json:"message"`
}

type chatgptMessage struct {
	ID     string `json:"id"`
	Author struct {
		Role string `json:"role"`
	} `json:"author"`
	CreateTime float64        `json:"create_time"`
	Content    chatgptContent `json:"content"`
	Metadata   map[string]any `json:"metadata"`
}

type chatgptContent struct {
	ContentType string `json:"content_type"`
	Parts       []any  `json:"parts"`
	Text        string `json:"text"`
}

func (c *ChatGPT) parseConversation(raw json.RawMessage, sourcePath, attachmentRoot string) (*model.Conversation, error) {
	var data chatgptConversation
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, err
	}
	if data.ID == "" {
		return nil, nil
	}

	messages := c.extractMessages(&data, attachmentRoot)
	if len(messages) == 0 {
		return nil, nil
	}

	createdAt := time.Now()
	if data.CreateTime > 0 {
		createdAt = unixSeconds(data.CreateTime)
	}
	updatedAt := createdAt
	if data.UpdateTime > 0 {
		updatedAt = unixSeconds(data.UpdateTime)
	}

	archived, err := c.archive.ArchiveJSON(data.ID, raw)
	if err != nil {
		return nil, err
	}

	conv := model.NewConversation("chatgpt", data.ID)
	conv.CreatedAt = createdAt
	conv.UpdatedAt = updatedAt
	conv.Messages = messages
	if data.Title != "" {
		conv.Title = &data.Title
	}
	conv.Metadata = map[string]any{
		"original_path": sourcePath,
	}
	if archived != "" {
		conv.Metadata["source_path"] = archived
	}
	if data.DefaultModelSlug != "" {
		conv.Metadata["model"] = data.DefaultModelSlug
	}
	return conv, nil
}

func (c *ChatGPT) extractMessages(data *chatgptConversation, attachmentRoot string) []model.Message {
	raw := traverseTree(data.Mapping, data.CurrentNode)
	out := make([]model.Message, 0, len(raw))
	for i := range raw {
		if msg := c.normalizeMessage(&raw[i], attachmentRoot); msg != nil {
			out = append(out, *msg)
		}
	}
	return out
}

// traverseTree linearizes the export's message tree. With a leaf
// pointer it walks parent links to the root and reverses, selecting
// exactly the branch live at export time. Without one it starts at the
// root (the synthetic client-created-root when present) and descends
// taking the last child at each branch, the most recent regeneration.
// A visited set guards both walks against cyclic mappings.
func traverseTree(mapping map[string]chatgptNode, currentNode string) []chatgptMessage {
	var out []chatgptMessage
	visited := make(map[string]bool)

	if currentNode != "" {
		id := currentNode
		for id != "" && !visited[id] {
			visited[id] = true
			node, ok := mapping[id]
			if !ok {
				break
			}
			if node.Message != nil && includeNode(node.Message) {
				out = append(out, *node.Message)
			}
			id = node.Parent
		}
		for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
			out[i], out[j] = out[j], out[i]
		}
		return out
	}

	id := rootNode(mapping)
	for id != "" && !visited[id] {
		visited[id] = true
		node, ok := mapping[id]
		if !ok {
			break
		}
		if node.Message != nil && includeNode(node.Message) {
			out = append(out, *node.Message)
		}
		if len(node.Children) == 0 {
			break
		}
		id = node.Children[len(node.Children)-1]
	}
	return out
}

// rootNode picks the traversal start: the synthetic sentinel when the
// export carries one, otherwise the first (by ID) node with no parent
// or a parent missing from the mapping.
func rootNode(mapping map[string]chatgptNode) string {
	const sentinel = "client-created-root"
	if _, ok := mapping[sentinel]; ok {
		return sentinel
	}
	var roots []string
	for id, node := range mapping {
		if node.Parent == "" {
			roots = append(roots, id)
			continue
		}
		if _, ok := mapping[node.Parent]; !ok {
			roots = append(roots, id)
		}
	}
	if len(roots) == 0 {
		return ""
	}
	sort.Strings(roots)
	return roots[0]
}

// includeNode keeps a message only if it has at least one non-empty
// content part and the platform has not flagged it hidden.
func includeNode(msg *chatgptMessage) bool {
	if hidden, _ := msg.Metadata["is_visually_hidden_from_conversation"].(bool); hidden {
		return false
	}
	for _, p := range msg.Content.Parts {
		switch v := p.(type) {
		case string:
			if v != "" {
				return true
			}
		case map[string]any:
			return true
		}
	}
	return msg.Content.Text != ""
}

// normalizeMessage flattens one raw export message into the shared
// model. Content handling varies by content_type; anything
// unrecognized falls back to the bare text field.
func (c *ChatGPT) normalizeMessage(msg *chatgptMessage, attachmentRoot string) *model.Message {
	role := msg.Author.Role
	switch role {
	case "assistant", "tool":
		role = "assistant"
	case "":
		role = "unknown"
	}

	contentType := msg.Content.ContentType
	if contentType == "" {
		contentType = "text"
	}

	var textParts []string
	meta := map[string]any{"content_type": contentType}

	switch contentType {
	case "text":
		for _, p := range msg.Content.Parts {
			if s, ok := p.(string); ok && s != "" {
				textParts = append(textParts, s)
			}
		}
	case "code":
		meta["has_code"] = true
		textParts = append(textParts, "```\n"+msg.Content.Text+"\n```")
	case "thoughts", "reasoning_recap":
		meta["has_thinking"] = true
		if msg.Content.Text != "" {
			textParts = append(textParts, msg.Content.Text)
		}
	case "execution_output":
		meta["has_execution"] = true
		textParts = append(textParts, "Output: "+msg.Content.Text)
	case "tether_quote", "tether_browsing_display":
		meta["has_web_search"] = true
	case "multimodal_text":
		meta["has_multimodal"] = true
		for _, p := range msg.Content.Parts {
			switch v := p.(type) {
			case string:
				if v != "" {
					textParts = append(textParts, v)
				}
			case map[string]any:
				if url, ok := v["image_url"].(string); ok {
					textParts = append(textParts, fmt.Sprintf("[IMAGE: %s]", url))
				}
			}
		}
	default:
		if msg.Content.Text != "" {
			textParts = append(textParts, msg.Content.Text)
		}
	}

	if slug, ok := msg.Metadata["model_slug"].(string); ok && slug != "" {
		meta["model"] = slug
	}
	if atts := c.messageAttachments(msg, attachmentRoot); len(atts) > 0 {
		meta["attachments"] = atts
	}

	out := &model.Message{
		Role:     role,
		Content:  strings.TrimSpace(strings.Join(textParts, "\n")),
		ID:       msg.ID,
		Metadata: meta,
	}
	if msg.CreateTime > 0 {
		ts := unixSeconds(msg.CreateTime)
		out.Timestamp = &ts
	}
	return out
}

// messageAttachments records attachment metadata and, when an
// extraction root is known, archives the attachment file itself.
func (c *ChatGPT) messageAttachments(msg *chatgptMessage, attachmentRoot string) []map[string]any {
	raw, ok := msg.Metadata["attachments"].([]any)
	if !ok {
		return nil
	}
	var out []map[string]any
	for _, a := range raw {
		att, ok := a.(map[string]any)
		if !ok {
			continue
		}
		entry := map[string]any{
			"id":        att["id"],
			"name":      att["name"],
			"mime_type": att["mime_type"],
			"size":      att["size"],
		}
		name, _ := att["name"].(string)
		if attachmentRoot != "" && name != "" {
			if found := findFile(attachmentRoot, name); found != "" {
				if content, err := os.ReadFile(found); err == nil {
					if archived, err := c.archive.Archive("attachments/"+name, "", content); err == nil && archived != "" {
						entry["local_path"] = archived
					}
				}
			}
		}
		out = append(out, entry)
	}
	return out
}
