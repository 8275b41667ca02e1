package collect

import (
	"archive/zip"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func cgMsg(id, role string, parts ...any) *chatgptMessage {
	m := &chatgptMessage{ID: id}
	m.Author.Role = role
	m.Content = chatgptContent{ContentType: "text", Parts: parts}
	return m
}

func traversedIDs(msgs []chatgptMessage) []string {
	ids := make([]string, len(msgs))
	for i, m := range msgs {
		ids[i] = m.ID
	}
	return ids
}

func TestTraverseCurrentNodeSelectsLiveBranch(t *testing.T) {
	mapping := map[string]chatgptNode{
		"root": {Children: []string{"q"}},
		"q":    {Parent: "root", Children: []string{"old", "new"}, Message: cgMsg("q", "user", "question")},
		"old":  {Parent: "q", Message: cgMsg("old", "assistant", "first answer")},
		"new":  {Parent: "q", Message: cgMsg("new", "assistant", "regenerated answer")},
	}

	got := traversedIDs(traverseTree(mapping, "new"))
	want := []string{"q", "new"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("node %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestTraverseParentCycleTerminates(t *testing.T) {
	mapping := map[string]chatgptNode{
		"a": {Parent: "b", Message: cgMsg("a", "user", "one")},
		"b": {Parent: "a", Message: cgMsg("b", "assistant", "two")},
	}

	got := traversedIDs(traverseTree(mapping, "a"))
	if len(got) != 2 {
		t.Fatalf("got %v, want exactly 2 nodes", got)
	}
	if got[0] == got[1] {
		t.Errorf("node visited twice: %v", got)
	}
}

func TestTraverseChildCycleTerminates(t *testing.T) {
	mapping := map[string]chatgptNode{
		"root": {Children: []string{"c1"}, Message: cgMsg("root", "user", "start")},
		"c1":   {Parent: "root", Children: []string{"c2"}, Message: cgMsg("c1", "assistant", "mid")},
		"c2":   {Parent: "c1", Children: []string{"c1"}, Message: cgMsg("c2", "user", "end")},
	}

	got := traversedIDs(traverseTree(mapping, ""))
	want := []string{"root", "c1", "c2"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("node %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestTraverseRootWalkPrefersSentinelAndLastChild(t *testing.T) {
	mapping := map[string]chatgptNode{
		"client-created-root": {Children: []string{"m1"}},
		"stray":               {Parent: "missing", Message: cgMsg("stray", "user", "orphan")},
		"m1":                  {Parent: "client-created-root", Children: []string{"m2a", "m2b"}, Message: cgMsg("m1", "user", "hi")},
		"m2a":                 {Parent: "m1", Message: cgMsg("m2a", "assistant", "draft")},
		"m2b":                 {Parent: "m1", Message: cgMsg("m2b", "assistant", "final")},
	}

	got := traversedIDs(traverseTree(mapping, ""))
	want := []string{"m1", "m2b"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("node %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestTraverseFiltersHiddenAndEmpty(t *testing.T) {
	hidden := cgMsg("hidden", "system", "internal note")
	hidden.Metadata = map[string]any{"is_visually_hidden_from_conversation": true}
	empty := &chatgptMessage{ID: "empty"}
	empty.Author.Role = "system"
	empty.Content = chatgptContent{ContentType: "text", Parts: []any{""}}

	mapping := map[string]chatgptNode{
		"hidden":  {Children: []string{"empty"}, Message: hidden},
		"empty":   {Parent: "hidden", Children: []string{"visible"}, Message: empty},
		"visible": {Parent: "empty", Message: cgMsg("visible", "user", "hello")},
	}

	got := traversedIDs(traverseTree(mapping, "visible"))
	if len(got) != 1 || got[0] != "visible" {
		t.Errorf("got %v, want [visible]", got)
	}
}

func TestChatGPTNormalizeContentTypes(t *testing.T) {
	c := NewChatGPT("", "", true)

	code := &chatgptMessage{Content: chatgptContent{ContentType: "code", Text: "print(1)"}}
	code.Author.Role = "assistant"
	if got := c.normalizeMessage(code, ""); got.Content != "```\nprint(1)\n```" {
		t.Errorf("code content = %q", got.Content)
	} else if flagged, _ := got.Metadata["has_code"].(bool); !flagged {
		t.Error("has_code not set")
	}

	exec := &chatgptMessage{Content: chatgptContent{ContentType: "execution_output", Text: "42"}}
	exec.Author.Role = "tool"
	got := c.normalizeMessage(exec, "")
	if got.Content != "Output: 42" {
		t.Errorf("execution content = %q", got.Content)
	}
	if got.Role != "assistant" {
		t.Errorf("tool role normalized to %q, want assistant", got.Role)
	}

	multi := &chatgptMessage{Content: chatgptContent{
		ContentType: "multimodal_text",
		Parts:       []any{"look at this", map[string]any{"image_url": "https://x/i.png"}},
	}}
	multi.Author.Role = "user"
	got = c.normalizeMessage(multi, "")
	if got.Content != "look at this\n[IMAGE: https://x/i.png]" {
		t.Errorf("multimodal content = %q", got.Content)
	}
	if flagged, _ := got.Metadata["has_multimodal"].(bool); !flagged {
		t.Error("has_multimodal not set")
	}

	thought := &chatgptMessage{Content: chatgptContent{ContentType: "thoughts", Text: "let me think"}}
	thought.Author.Role = "assistant"
	got = c.normalizeMessage(thought, "")
	if flagged, _ := got.Metadata["has_thinking"].(bool); !flagged {
		t.Error("has_thinking not set")
	}
}

const chatgptExportJSON = `[
  {
    "id": "conv-1",
    "title": "Build errors",
    "create_time": 1709290800.5,
    "update_time": 1709294400.0,
    "default_model_slug": "gpt-test",
    "current_node": "n2",
    "mapping": {
      "root": {"id": "root", "children": ["n1"]},
      "n1": {"id": "n1", "parent": "root", "children": ["n2"], "message": {"id": "n1", "author": {"role": "user"}, "create_time": 1709290800.5, "content": {"content_type": "text", "parts": ["why does the build fail"]}}},
      "n2": {"id": "n2", "parent": "n1", "children": [], "message": {"id": "n2", "author": {"role": "assistant"}, "create_time": 1709290860.0, "content": {"content_type": "text", "parts": ["missing dependency"]}, "metadata": {"model_slug": "gpt-test"}}}
    }
  }
]`

func writeZip(t *testing.T, path string, members map[string][]byte) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create zip: %v", err)
	}
	defer f.Close()

	zw := zip.NewWriter(f)
	for name, content := range members {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("create member %s: %v", name, err)
		}
		if _, err := w.Write(content); err != nil {
			t.Fatalf("write member %s: %v", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
}

func TestChatGPTCollectFromZip(t *testing.T) {
	inbox := t.TempDir()
	raw := t.TempDir()
	writeZip(t, filepath.Join(inbox, "chatgpt-export.zip"), map[string][]byte{
		"conversations.json": []byte(chatgptExportJSON),
		"user.json":          []byte(`{}`),
	})

	c := NewChatGPT(inbox, raw, false)
	convs, err := c.Collect(context.Background())
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if len(convs) != 1 {
		t.Fatalf("got %d conversations, want 1", len(convs))
	}

	conv := convs[0]
	if conv.ID != "chatgpt:conv-1" {
		t.Errorf("ID = %q", conv.ID)
	}
	if conv.Title == nil || *conv.Title != "Build errors" {
		t.Errorf("Title = %v", conv.Title)
	}
	if len(conv.Messages) != 2 {
		t.Fatalf("got %d messages, want 2", len(conv.Messages))
	}
	if conv.Messages[0].Content != "why does the build fail" {
		t.Errorf("first message = %q", conv.Messages[0].Content)
	}
	if conv.Messages[1].Role != "assistant" {
		t.Errorf("second role = %q", conv.Messages[1].Role)
	}

	wantCreated := time.Unix(1709290800, 500000000)
	if !conv.CreatedAt.Equal(wantCreated) {
		t.Errorf("CreatedAt = %v, want %v", conv.CreatedAt, wantCreated)
	}
	if got := conv.Metadata["model"]; got != "gpt-test" {
		t.Errorf("model = %v", got)
	}

	archived := filepath.Join(raw, "chatgpt", "conv-1.json")
	if _, err := os.Stat(archived); err != nil {
		t.Errorf("raw conversation not archived: %v", err)
	}
	if got := conv.Metadata["source_path"]; got != archived {
		t.Errorf("source_path = %v, want %s", got, archived)
	}
}

func TestChatGPTCollectLooseConversationsFile(t *testing.T) {
	inbox := t.TempDir()

	// Directly in the inbox: accepted.
	if err := os.WriteFile(filepath.Join(inbox, "conversations.json"), []byte(chatgptExportJSON), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	// Under an unrelated directory: ignored.
	other := filepath.Join(inbox, "somethingelse")
	if err := os.MkdirAll(other, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(other, "conversations.json"), []byte(chatgptExportJSON), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	c := NewChatGPT(inbox, t.TempDir(), false)
	convs, err := c.Collect(context.Background())
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if len(convs) != 1 {
		t.Errorf("got %d conversations, want 1", len(convs))
	}
}

func TestChatGPTSkipsMalformedRecords(t *testing.T) {
	inbox := t.TempDir()
	export := `["not an object", ` + strings.TrimSpace(chatgptExportJSON[1:len(chatgptExportJSON)-1]) + `]`
	if err := os.WriteFile(filepath.Join(inbox, "conversations.json"), []byte(export), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	c := NewChatGPT(inbox, t.TempDir(), false)
	convs, err := c.Collect(context.Background())
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if len(convs) != 1 {
		t.Errorf("got %d conversations, want 1 surviving record", len(convs))
	}
}

func TestChatGPTMissingInboxYieldsNothing(t *testing.T) {
	c := NewChatGPT(filepath.Join(t.TempDir(), "missing"), "", false)
	convs, err := c.Collect(context.Background())
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if len(convs) != 0 {
		t.Errorf("got %d conversations, want 0", len(convs))
	}
}
