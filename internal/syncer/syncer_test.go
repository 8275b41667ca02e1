// internal/syncer/syncer_test.go
package syncer

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/user/fieldkit/internal/config"
	"github.com/user/fieldkit/internal/model"
)

const looseExportJSON = `{
  "uuid": "web-123",
  "name": "Planning chat",
  "chat_messages": [
    {
      "uuid": "m1",
      "sender": "human",
      "created_at": "2024-04-01T09:00:00Z",
      "content": [{"type": "text", "text": "walk me through the rollout"}]
    },
    {
      "uuid": "m2",
      "sender": "assistant",
      "created_at": "2024-04-01T09:00:10Z",
      "content": [{"type": "text", "text": "Start with a canary."}]
    }
  ]
}`

// testConfig builds a config rooted in a temp dir with cloud sync off
// and only the claude-web-export source enabled.
func testConfig(t *testing.T) *config.Ailog {
	t.Helper()
	base := t.TempDir()
	cfg := &config.Ailog{
		BaseDir:    base,
		InboxDir:   filepath.Join(base, "inbox"),
		StagingDir: filepath.Join(base, "staging"),
		RawDir:     filepath.Join(base, "staging", "raw"),
		Sources: map[string]config.Source{
			"claude-web-export": {Enabled: true},
		},
		Cloud: config.Cloud{RemoteName: "gdrive", RemotePath: "ai-chat-logs", Enabled: false},
	}
	if err := os.MkdirAll(cfg.InboxDir, 0o755); err != nil {
		t.Fatal(err)
	}
	return cfg
}

func seedInbox(t *testing.T, cfg *config.Ailog) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(cfg.InboxDir, "export.json"), []byte(looseExportJSON), 0o644); err != nil {
		t.Fatal(err)
	}
}

func runSync(t *testing.T, cfg *config.Ailog, opts Options) (Stats, string) {
	t.Helper()
	s := New(cfg)
	var buf bytes.Buffer
	s.SetOutput(&buf)
	stats, err := s.Run(context.Background(), opts)
	if err != nil {
		t.Fatalf("Run: %v\noutput:\n%s", err, buf.String())
	}
	return stats, buf.String()
}

func TestRunAddsNewConversation(t *testing.T) {
	cfg := testConfig(t)
	seedInbox(t, cfg)

	stats, out := runSync(t, cfg, Options{Push: true})

	if stats.Added != 1 || stats.Updated != 0 || stats.Skipped != 0 || stats.Errors != 0 {
		t.Errorf("stats = %+v", stats)
	}

	for _, want := range []string{
		"AI Log Sync",
		"Pulling remote index...",
		"  Skipped (cloud sync disabled)",
		"  Loaded 0 existing conversations",
		"Collecting from claude-web...",
		"  [+] Planning chat",
		"Saving index...",
		"  Total: 1 conversations",
		"Cloud push skipped",
		"Summary:",
		"  New conversations:     1",
		"  Unchanged (skipped):   0",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "Errors:") {
		t.Errorf("error line printed with zero errors:\n%s", out)
	}

	if _, err := os.Stat(filepath.Join(cfg.StagingDir, "logs", "claude-web", "web-123.json")); err != nil {
		t.Errorf("conversation file not staged: %v", err)
	}
	if _, err := os.Stat(cfg.IndexPath()); err != nil {
		t.Errorf("index not saved: %v", err)
	}
}

func TestRunSkipsUnchangedConversation(t *testing.T) {
	cfg := testConfig(t)
	seedInbox(t, cfg)

	runSync(t, cfg, Options{Push: true})
	stats, out := runSync(t, cfg, Options{Push: true})

	if stats.Skipped != 1 || stats.Added != 0 {
		t.Errorf("stats = %+v", stats)
	}
	if !strings.Contains(out, "  Loaded 1 existing conversations") {
		t.Errorf("existing index not loaded:\n%s", out)
	}
	if !strings.Contains(out, "Collecting from claude-web...\n.") {
		t.Errorf("skip dot missing:\n%s", out)
	}
}

func TestRunDryRunWritesNothing(t *testing.T) {
	cfg := testConfig(t)
	seedInbox(t, cfg)

	stats, out := runSync(t, cfg, Options{DryRun: true, Push: true})

	if stats.Added != 1 {
		t.Errorf("stats = %+v", stats)
	}
	if !strings.Contains(out, "[DRY RUN] No changes will be made") {
		t.Errorf("missing dry run banner:\n%s", out)
	}
	if !strings.Contains(out, "[DRY RUN] No changes were made") {
		t.Errorf("missing dry run footer:\n%s", out)
	}

	if _, err := os.Stat(cfg.IndexPath()); !os.IsNotExist(err) {
		t.Error("index written during dry run")
	}
	if _, err := os.Stat(filepath.Join(cfg.StagingDir, "logs", "claude-web")); !os.IsNotExist(err) {
		t.Error("conversation files written during dry run")
	}
	// The staging skeleton is still created.
	if _, err := os.Stat(cfg.LogsDir()); err != nil {
		t.Errorf("staging skeleton missing: %v", err)
	}
}

func TestCollectorsForSelection(t *testing.T) {
	cfg := config.DefaultAilog()

	names := func() []string {
		var out []string
		for _, c := range collectorsFor(cfg, false) {
			out = append(out, c.Name())
		}
		return out
	}

	got := names()
	want := []string{"claude-code", "chatgpt", "claude-web", "gemini"}
	if len(got) != len(want) {
		t.Fatalf("collectors = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("collectors = %v, want %v", got, want)
		}
	}

	src := cfg.Sources["chatgpt-export"]
	src.Enabled = false
	cfg.Sources["chatgpt-export"] = src
	for _, name := range names() {
		if name == "chatgpt" {
			t.Error("disabled source still has a collector")
		}
	}

	cfg.Sources = map[string]config.Source{}
	if n := len(collectorsFor(cfg, false)); n != 0 {
		t.Errorf("got %d collectors with no sources", n)
	}
}

func TestDisplayTitle(t *testing.T) {
	long := strings.Repeat("é", 61)
	short := "Planning chat"

	cases := []struct {
		title *string
		want  string
	}{
		{nil, "(untitled)"},
		{&short, "Planning chat"},
		{&long, strings.Repeat("é", 60)},
	}
	for _, tc := range cases {
		conv := &model.Conversation{Title: tc.title}
		if got := displayTitle(conv); got != tc.want {
			t.Errorf("displayTitle(%v) = %q, want %q", tc.title, got, tc.want)
		}
	}
}

func TestStatusReportsSections(t *testing.T) {
	cfg := testConfig(t)
	cfg.InboxDir = filepath.Join(cfg.BaseDir, "missing-inbox")
	cfg.Sources = map[string]config.Source{
		"claude-code": {Enabled: true, Paths: []string{"/srv/claude/projects"}},
		"grok":        {Enabled: false},
	}

	s := New(cfg)
	var buf bytes.Buffer
	s.SetOutput(&buf)
	if err := s.Status(context.Background()); err != nil {
		t.Fatalf("Status: %v", err)
	}
	out := buf.String()

	for _, want := range []string{
		"AI Log Sync Status",
		"Configuration:",
		"  Base directory:  " + cfg.BaseDir,
		"Cloud Storage:",
		"  Status: Disabled",
		"Local Index:",
		"  No local index (run 'ailog sync' first)",
		"Inbox:",
		"  Inbox directory doesn't exist",
		"Sources:",
		"  claude-code: enabled",
		"    Path: /srv/claude/projects",
		"  grok: disabled",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}

	// Sorted source order.
	if strings.Index(out, "claude-code:") > strings.Index(out, "grok:") {
		t.Errorf("sources not sorted:\n%s", out)
	}
}

func TestStatusListsInboxBacklog(t *testing.T) {
	cfg := testConfig(t)
	for _, name := range []string{"a.zip", "b.zip", "c.zip", "d.zip", "e.zip", "f.zip"} {
		if err := os.WriteFile(filepath.Join(cfg.InboxDir, name), []byte("zip"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.WriteFile(filepath.Join(cfg.InboxDir, "export.json"), []byte("{}"), 0o644); err != nil {
		t.Fatal(err)
	}

	s := New(cfg)
	var buf bytes.Buffer
	s.SetOutput(&buf)
	if err := s.Status(context.Background()); err != nil {
		t.Fatalf("Status: %v", err)
	}
	out := buf.String()

	for _, want := range []string{
		"  ZIP files:  6",
		"    - a.zip",
		"    - e.zip",
		"    ... and 1 more",
		"  JSON files: 1",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "- f.zip") {
		t.Errorf("listed more than five archives:\n%s", out)
	}
}
