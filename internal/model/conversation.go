// internal/model/conversation.go

// Package model defines the normalized conversation schema shared by
// the collectors, the index, and the sync pipeline.
package model

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"
)

// CanonicalID builds the stable cross-platform identifier for a
// conversation: "{source}:{native_id}".
func CanonicalID(source, nativeID string) string {
	return source + ":" + nativeID
}

// Conversation is a normalized conversation from any source platform.
type Conversation struct {
	ID        string         `json:"id"`
	Source    string         `json:"source"`
	NativeID  string         `json:"native_id"`
	UpdatedAt time.Time      `json:"updated_at"`
	CreatedAt time.Time      `json:"created_at"`
	Title     *string        `json:"title"`
	Summary   *string        `json:"summary,omitempty"`
	Messages  []Message      `json:"messages"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// NewConversation builds a conversation with its canonical ID set.
func NewConversation(source, nativeID string) *Conversation {
	return &Conversation{
		ID:       CanonicalID(source, nativeID),
		Source:   source,
		NativeID: nativeID,
	}
}

// MessageCount returns the number of messages.
func (c *Conversation) MessageCount() int {
	return len(c.Messages)
}

// hashMessage fixes the serialized shape used for fingerprinting.
// Field order is alphabetical and empty optional fields are omitted, so
// a conversation hashes identically before and after a round trip
// through its raw file.
type hashMessage struct {
	Content   string         `json:"content"`
	ID        string         `json:"id,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	Role      string         `json:"role"`
	Timestamp *time.Time     `json:"timestamp,omitempty"`
}

// ContentHash fingerprints the ordered message list. Reordering
// messages changes the hash even when their content is identical. The
// digest is truncated to 16 hex characters: enough for change
// detection, not an integrity guarantee.
func (c *Conversation) ContentHash() string {
	msgs := make([]hashMessage, len(c.Messages))
	for i, m := range c.Messages {
		msgs[i] = hashMessage{
			Content:   m.Content,
			ID:        m.ID,
			Metadata:  m.Metadata,
			Role:      m.Role,
			Timestamp: m.Timestamp,
		}
	}
	data, _ := json.Marshal(msgs)
	sum := sha256.Sum256(data)
	return "sha256:" + hex.EncodeToString(sum[:])[:16]
}

// MarshalJSON includes the computed message count and content hash in
// the serialized form, matching the raw per-conversation file schema.
func (c Conversation) MarshalJSON() ([]byte, error) {
	type alias Conversation
	return json.Marshal(struct {
		alias
		MessageCount int    `json:"message_count"`
		ContentHash  string `json:"content_hash"`
	}{alias(c), c.MessageCount(), c.ContentHash()})
}

// IndexEntry is the metadata-only record stored in the index file.
type IndexEntry struct {
	ID           string    `json:"id"`
	Source       string    `json:"source"`
	NativeID     string    `json:"native_id"`
	UpdatedAt    time.Time `json:"updated_at"`
	CreatedAt    time.Time `json:"created_at"`
	Title        *string   `json:"title"`
	MessageCount int       `json:"message_count"`
	ContentHash  string    `json:"content_hash"`
	RawPath      string    `json:"raw_path"`
}

// ToEntry builds the index entry for this conversation, pointing at the
// raw file it was written to.
func (c *Conversation) ToEntry(rawPath string) IndexEntry {
	return IndexEntry{
		ID:           c.ID,
		Source:       c.Source,
		NativeID:     c.NativeID,
		UpdatedAt:    c.UpdatedAt,
		CreatedAt:    c.CreatedAt,
		Title:        c.Title,
		MessageCount: c.MessageCount(),
		ContentHash:  c.ContentHash(),
		RawPath:      rawPath,
	}
}
