// internal/index/index.go

// Package index maintains the conversation index: one metadata entry
// per canonical conversation ID, merged under "fresher wins" rules and
// persisted as a versioned JSON document.
package index

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/user/fieldkit/internal/model"
)

// Version tags the persisted document schema.
const Version = "1.0"

// Merge actions.
const (
	ActionAdded   = "added"
	ActionUpdated = "updated"
	ActionSkipped = "skipped"
)

// MergeResult reports what Merge did with one conversation.
type MergeResult struct {
	Action         string
	ConversationID string
	Reason         string
}

// Index holds the entry map. Merge calls are serialized by a mutex so
// parallel collectors can funnel into one index, but a single run still
// has exactly one writer at a time.
type Index struct {
	mu      sync.RWMutex
	entries map[string]model.IndexEntry
}

// New returns an empty index.
func New() *Index {
	return &Index{entries: make(map[string]model.IndexEntry)}
}

type document struct {
	Version   string             `json:"version"`
	UpdatedAt string             `json:"updated_at"`
	Count     int                `json:"count"`
	Entries   []model.IndexEntry `json:"entries"`
}

// Load reads an index document. A missing file yields an empty index,
// not an error.
func Load(path string) (*Index, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return New(), nil
		}
		return nil, fmt.Errorf("read index: %w", err)
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("unmarshal index: %w", err)
	}

	ix := New()
	for _, e := range doc.Entries {
		ix.entries[e.ID] = e
	}
	return ix, nil
}

// Save writes the versioned document atomically, entries sorted by ID
// so successive saves of the same state are byte-identical.
func (ix *Index) Save(path string) error {
	ix.mu.RLock()
	doc := document{
		Version:   Version,
		UpdatedAt: time.Now().UTC().Format(time.RFC3339),
		Count:     len(ix.entries),
		Entries:   ix.sortedEntries(),
	}
	ix.mu.RUnlock()

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal index: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create index dir: %w", err)
	}

	// Atomic write: write to temp file then rename
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write temp index: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename temp index: %w", err)
	}
	return nil
}

// Merge applies "fresher wins": an incoming conversation replaces the
// existing entry when any of three signals fires (newer timestamp, more
// messages, changed content hash). Any one signal is sufficient; the
// entry is left alone only when all three agree nothing changed.
func (ix *Index) Merge(conv *model.Conversation, rawPath string) MergeResult {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	existing, ok := ix.entries[conv.ID]
	if !ok {
		ix.entries[conv.ID] = conv.ToEntry(rawPath)
		return MergeResult{Action: ActionAdded, ConversationID: conv.ID}
	}

	isFresher := conv.UpdatedAt.After(existing.UpdatedAt)
	hasMoreMessages := conv.MessageCount() > existing.MessageCount
	contentChanged := conv.ContentHash() != existing.ContentHash

	if !isFresher && !hasMoreMessages && !contentChanged {
		return MergeResult{
			Action:         ActionSkipped,
			ConversationID: conv.ID,
			Reason:         "no changes detected",
		}
	}

	ix.entries[conv.ID] = conv.ToEntry(rawPath)

	var reasons []string
	if isFresher {
		reasons = append(reasons, fmt.Sprintf("newer timestamp (%s)", conv.UpdatedAt.Format(time.RFC3339)))
	}
	if hasMoreMessages {
		reasons = append(reasons, fmt.Sprintf("more messages (%d > %d)", conv.MessageCount(), existing.MessageCount))
	}
	if contentChanged && !isFresher && !hasMoreMessages {
		reasons = append(reasons, "content changed")
	}

	return MergeResult{
		Action:         ActionUpdated,
		ConversationID: conv.ID,
		Reason:         strings.Join(reasons, ", "),
	}
}

// Get returns the entry for a canonical ID.
func (ix *Index) Get(id string) (model.IndexEntry, bool) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	e, ok := ix.entries[id]
	return e, ok
}

// Len returns the number of entries.
func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.entries)
}

// Entries returns all entries sorted by ID.
func (ix *Index) Entries() []model.IndexEntry {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.sortedEntries()
}

// BySource returns the entries for one source platform, sorted by ID.
func (ix *Index) BySource(source string) []model.IndexEntry {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	var out []model.IndexEntry
	for _, e := range ix.entries {
		if e.Source == source {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Stats summarizes entry counts per source.
type Stats struct {
	Total    int
	BySource map[string]int
}

// Stats counts entries overall and per source.
func (ix *Index) Stats() Stats {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	bySource := make(map[string]int)
	for _, e := range ix.entries {
		bySource[e.Source]++
	}
	return Stats{Total: len(ix.entries), BySource: bySource}
}

// sortedEntries assumes the caller holds at least a read lock.
func (ix *Index) sortedEntries() []model.IndexEntry {
	out := make([]model.IndexEntry, 0, len(ix.entries))
	for _, e := range ix.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
