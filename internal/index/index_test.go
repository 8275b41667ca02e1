package index

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/user/fieldkit/internal/model"
)

func conv(t *testing.T, source, nativeID string, updated time.Time, contents ...string) *model.Conversation {
	t.Helper()
	c := model.NewConversation(source, nativeID)
	c.CreatedAt = updated.Add(-time.Hour)
	c.UpdatedAt = updated
	for i, text := range contents {
		role := "user"
		if i%2 == 1 {
			role = "assistant"
		}
		c.Messages = append(c.Messages, model.Message{Role: role, Content: text})
	}
	return c
}

func TestMergeAddsNewConversation(t *testing.T) {
	ix := New()
	c := conv(t, "claude", "abc", time.Now(), "hi")

	res := ix.Merge(c, "logs/claude/abc.json")
	if res.Action != ActionAdded {
		t.Fatalf("action: got %s, want %s", res.Action, ActionAdded)
	}
	if res.ConversationID != "claude:abc" {
		t.Errorf("id: got %s", res.ConversationID)
	}
	if ix.Len() != 1 {
		t.Errorf("len: got %d", ix.Len())
	}
}

func TestMergeIdempotentForUnchangedInput(t *testing.T) {
	ix := New()
	ts := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := conv(t, "claude", "abc", ts, "hello", "world")

	first := ix.Merge(c, "p")
	second := ix.Merge(c, "p")

	if first.Action != ActionAdded {
		t.Errorf("first: got %s, want %s", first.Action, ActionAdded)
	}
	if second.Action != ActionSkipped {
		t.Errorf("second: got %s, want %s", second.Action, ActionSkipped)
	}
	if second.Reason != "no changes detected" {
		t.Errorf("reason: got %q", second.Reason)
	}
}

func TestMergeMoreMessagesWinsOnEqualTimestamp(t *testing.T) {
	ix := New()
	ts := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	ix.Merge(conv(t, "claude", "abc", ts, "a", "b", "c", "d", "e"), "p")
	res := ix.Merge(conv(t, "claude", "abc", ts, "a", "b", "c", "d", "e", "f", "g"), "p")

	if res.Action != ActionUpdated {
		t.Fatalf("action: got %s, want %s", res.Action, ActionUpdated)
	}
	if !strings.Contains(res.Reason, "more messages (7 > 5)") {
		t.Errorf("reason should cite message-count growth, got %q", res.Reason)
	}
}

func TestMergeNewerTimestampThenSkip(t *testing.T) {
	ix := New()
	day1 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	day2 := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

	res := ix.Merge(conv(t, "claude", "abc", day1, "a", "b", "c"), "p")
	if res.Action != ActionAdded {
		t.Fatalf("first merge: got %s", res.Action)
	}

	res = ix.Merge(conv(t, "claude", "abc", day2, "a", "b", "c"), "p")
	if res.Action != ActionUpdated {
		t.Fatalf("second merge: got %s", res.Action)
	}
	if !strings.Contains(res.Reason, "newer timestamp") {
		t.Errorf("reason should mention the newer timestamp, got %q", res.Reason)
	}

	res = ix.Merge(conv(t, "claude", "abc", day2, "a", "b", "c"), "p")
	if res.Action != ActionSkipped {
		t.Errorf("third merge: got %s, want %s", res.Action, ActionSkipped)
	}
}

func TestMergeDetectsContentChangeAlone(t *testing.T) {
	ix := New()
	ts := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	ix.Merge(conv(t, "claude", "abc", ts, "original", "reply"), "p")
	res := ix.Merge(conv(t, "claude", "abc", ts, "edited", "reply"), "p")

	if res.Action != ActionUpdated {
		t.Fatalf("action: got %s, want %s", res.Action, ActionUpdated)
	}
	if res.Reason != "content changed" {
		t.Errorf("reason: got %q, want \"content changed\"", res.Reason)
	}
}

func TestMergeReorderedMessagesTreatedAsChanged(t *testing.T) {
	ix := New()
	ts := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	ix.Merge(conv(t, "claude", "abc", ts, "one", "two"), "p")
	res := ix.Merge(conv(t, "claude", "abc", ts, "two", "one"), "p")

	if res.Action != ActionUpdated {
		t.Errorf("reordering content must register as a change, got %s", res.Action)
	}
}

func TestLoadMissingFileYieldsEmptyIndex(t *testing.T) {
	ix, err := Load(filepath.Join(t.TempDir(), "index.json"))
	if err != nil {
		t.Fatal(err)
	}
	if ix.Len() != 0 {
		t.Errorf("len: got %d, want 0", ix.Len())
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "index.json")
	ix := New()
	ts := time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)
	ix.Merge(conv(t, "claude", "b", ts, "x"), "logs/claude/b.json")
	ix.Merge(conv(t, "chatgpt", "a", ts, "y", "z"), "logs/chatgpt/a.json")

	if err := ix.Save(path); err != nil {
		t.Fatal(err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Len() != 2 {
		t.Fatalf("len: got %d, want 2", loaded.Len())
	}
	e, ok := loaded.Get("chatgpt:a")
	if !ok {
		t.Fatal("chatgpt:a missing after round trip")
	}
	if e.MessageCount != 2 || e.RawPath != "logs/chatgpt/a.json" {
		t.Errorf("entry corrupted: %+v", e)
	}
	if !e.UpdatedAt.Equal(ts) {
		t.Errorf("updated_at: got %v, want %v", e.UpdatedAt, ts)
	}
}

func TestSaveDocumentShape(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.json")
	ix := New()
	ts := time.Now().UTC()
	ix.Merge(conv(t, "claude", "zzz", ts, "m"), "p1")
	ix.Merge(conv(t, "claude", "aaa", ts, "m"), "p2")

	if err := ix.Save(path); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	var doc struct {
		Version   string             `json:"version"`
		UpdatedAt string             `json:"updated_at"`
		Count     int                `json:"count"`
		Entries   []model.IndexEntry `json:"entries"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatal(err)
	}
	if doc.Version != "1.0" {
		t.Errorf("version: got %q", doc.Version)
	}
	if doc.Count != 2 || len(doc.Entries) != 2 {
		t.Errorf("count: got %d with %d entries", doc.Count, len(doc.Entries))
	}
	if doc.UpdatedAt == "" {
		t.Error("updated_at missing")
	}
	if doc.Entries[0].ID != "claude:aaa" || doc.Entries[1].ID != "claude:zzz" {
		t.Errorf("entries should be sorted by id: %s, %s", doc.Entries[0].ID, doc.Entries[1].ID)
	}
}

func TestBySourceAndStats(t *testing.T) {
	ix := New()
	ts := time.Now()
	ix.Merge(conv(t, "claude", "1", ts, "m"), "p")
	ix.Merge(conv(t, "claude", "2", ts, "m"), "p")
	ix.Merge(conv(t, "chatgpt", "3", ts, "m"), "p")

	if got := len(ix.BySource("claude")); got != 2 {
		t.Errorf("claude entries: got %d, want 2", got)
	}
	if got := len(ix.BySource("gemini")); got != 0 {
		t.Errorf("gemini entries: got %d, want 0", got)
	}

	stats := ix.Stats()
	if stats.Total != 3 {
		t.Errorf("total: got %d", stats.Total)
	}
	if stats.BySource["claude"] != 2 || stats.BySource["chatgpt"] != 1 {
		t.Errorf("by source: %v", stats.BySource)
	}
}
