package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return path
}

func TestDefaultAilog_Sources(t *testing.T) {
	t.Setenv("HOME", "/home/tester")
	cfg := DefaultAilog()

	if cfg.BaseDir != "/home/tester/ai-log-sync" {
		t.Errorf("expected base dir under home, got %v", cfg.BaseDir)
	}
	if cfg.InboxDir != "/home/tester/ai-log-sync/inbox" {
		t.Errorf("unexpected inbox dir: %v", cfg.InboxDir)
	}
	if cfg.RawDir != "/home/tester/ai-log-sync/staging/raw" {
		t.Errorf("unexpected raw dir: %v", cfg.RawDir)
	}

	if len(cfg.Sources) != 6 {
		t.Fatalf("expected 6 default sources, got %d", len(cfg.Sources))
	}
	cc, ok := cfg.Sources["claude-code"]
	if !ok {
		t.Fatal("expected claude-code source")
	}
	if !cc.Enabled {
		t.Error("claude-code should be enabled by default")
	}
	if len(cc.Paths) != 1 || cc.Paths[0] != "~/.claude/projects" {
		t.Errorf("unexpected claude-code paths: %v", cc.Paths)
	}
	if web, ok := cfg.Sources["claude-web-export"]; !ok || len(web.Paths) != 0 {
		t.Errorf("claude-web-export should default to inbox collection, got %v", web.Paths)
	}

	if cfg.Cloud.RemoteName != "gdrive" || cfg.Cloud.RemotePath != "ai-chat-logs" {
		t.Errorf("unexpected cloud defaults: %+v", cfg.Cloud)
	}
	if !cfg.Cloud.Enabled {
		t.Error("cloud should be enabled by default")
	}
}

func TestLoadAilog_MissingFile(t *testing.T) {
	_, err := LoadAilog(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestLoadAilog_DerivesDirectories(t *testing.T) {
	t.Setenv("HOME", "/home/tester")
	path := writeConfigFile(t, "base_dir: ~/logs\n")

	cfg, err := LoadAilog(path)
	if err != nil {
		t.Fatalf("LoadAilog failed: %v", err)
	}
	if cfg.BaseDir != "/home/tester/logs" {
		t.Errorf("expected expanded base dir, got %v", cfg.BaseDir)
	}
	if cfg.InboxDir != "/home/tester/logs/inbox" {
		t.Errorf("inbox should derive from base dir, got %v", cfg.InboxDir)
	}
	if cfg.StagingDir != "/home/tester/logs/staging" {
		t.Errorf("staging should derive from base dir, got %v", cfg.StagingDir)
	}
	if cfg.RawDir != "/home/tester/logs/staging/raw" {
		t.Errorf("raw should derive from base dir, got %v", cfg.RawDir)
	}
}

func TestLoadAilog_ExplicitDirectoriesKept(t *testing.T) {
	path := writeConfigFile(t, `base_dir: /data/sync
inbox_dir: /mnt/drop
staging_dir: /data/sync/out
`)

	cfg, err := LoadAilog(path)
	if err != nil {
		t.Fatalf("LoadAilog failed: %v", err)
	}
	if cfg.InboxDir != "/mnt/drop" {
		t.Errorf("expected explicit inbox dir, got %v", cfg.InboxDir)
	}
	if cfg.StagingDir != "/data/sync/out" {
		t.Errorf("expected explicit staging dir, got %v", cfg.StagingDir)
	}
	// raw_dir derives from base_dir, not from the moved staging_dir.
	if cfg.RawDir != "/data/sync/staging/raw" {
		t.Errorf("unexpected raw dir: %v", cfg.RawDir)
	}
}

func TestLoadAilog_SourceDefaults(t *testing.T) {
	path := writeConfigFile(t, `base_dir: /data/sync
sources:
  claude-code:
    paths:
      - /srv/claude
  gemini:
    enabled: false
`)

	cfg, err := LoadAilog(path)
	if err != nil {
		t.Fatalf("LoadAilog failed: %v", err)
	}
	if len(cfg.Sources) != 2 {
		t.Fatalf("expected exactly the configured sources, got %d", len(cfg.Sources))
	}
	cc := cfg.Sources["claude-code"]
	if !cc.Enabled {
		t.Error("enabled should default to true when the key is absent")
	}
	if len(cc.Paths) != 1 || cc.Paths[0] != "/srv/claude" {
		t.Errorf("unexpected paths: %v", cc.Paths)
	}
	if cfg.Sources["gemini"].Enabled {
		t.Error("explicit enabled=false should be kept")
	}
}

func TestLoadAilog_NoSourcesKey(t *testing.T) {
	path := writeConfigFile(t, "base_dir: /data/sync\n")

	cfg, err := LoadAilog(path)
	if err != nil {
		t.Fatalf("LoadAilog failed: %v", err)
	}
	if cfg.Sources == nil {
		t.Fatal("sources should be an empty map, not nil")
	}
	if len(cfg.Sources) != 0 {
		t.Errorf("expected no sources, got %v", cfg.Sources)
	}
}

func TestLoadAilog_CloudDefaults(t *testing.T) {
	path := writeConfigFile(t, "base_dir: /data/sync\n")

	cfg, err := LoadAilog(path)
	if err != nil {
		t.Fatalf("LoadAilog failed: %v", err)
	}
	if cfg.Cloud.RemoteName != "gdrive" || cfg.Cloud.RemotePath != "ai-chat-logs" || !cfg.Cloud.Enabled {
		t.Errorf("expected cloud defaults with no cloud block, got %+v", cfg.Cloud)
	}
}

func TestLoadAilog_PartialCloudBlock(t *testing.T) {
	path := writeConfigFile(t, `base_dir: /data/sync
cloud:
  remote_name: s3
  enabled: false
`)

	cfg, err := LoadAilog(path)
	if err != nil {
		t.Fatalf("LoadAilog failed: %v", err)
	}
	if cfg.Cloud.RemoteName != "s3" {
		t.Errorf("expected remote_name override, got %v", cfg.Cloud.RemoteName)
	}
	if cfg.Cloud.RemotePath != "ai-chat-logs" {
		t.Errorf("remote_path should keep its default, got %v", cfg.Cloud.RemotePath)
	}
	if cfg.Cloud.Enabled {
		t.Error("explicit enabled=false should be kept")
	}
}

func TestAilogSave_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	original := &Ailog{
		BaseDir:    "/data/sync",
		InboxDir:   "/data/sync/inbox",
		StagingDir: "/data/sync/staging",
		RawDir:     "/data/sync/staging/raw",
		Sources: map[string]Source{
			"claude-code": {Enabled: true, Paths: []string{"/srv/claude"}},
			"gemini":      {Enabled: false, Paths: []string{}},
		},
		Cloud: Cloud{RemoteName: "s3", RemotePath: "chat-logs", Enabled: false},
	}
	if err := original.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Error("temp file should not exist after successful save")
	}

	loaded, err := LoadAilog(path)
	if err != nil {
		t.Fatalf("LoadAilog failed: %v", err)
	}
	if loaded.BaseDir != original.BaseDir {
		t.Errorf("BaseDir mismatch: %v != %v", loaded.BaseDir, original.BaseDir)
	}
	if loaded.Cloud != original.Cloud {
		t.Errorf("Cloud mismatch: %+v != %+v", loaded.Cloud, original.Cloud)
	}
	if len(loaded.Sources) != 2 {
		t.Fatalf("expected 2 sources after round trip, got %d", len(loaded.Sources))
	}
	if loaded.Sources["gemini"].Enabled {
		t.Error("gemini should stay disabled after round trip")
	}
	if got := loaded.Sources["claude-code"].Paths; len(got) != 1 || got[0] != "/srv/claude" {
		t.Errorf("unexpected claude-code paths after round trip: %v", got)
	}
}

func TestAilog_StagingLayout(t *testing.T) {
	cfg := &Ailog{StagingDir: "/data/sync/staging"}
	if got := cfg.IndexPath(); got != "/data/sync/staging/index.json" {
		t.Errorf("unexpected index path: %v", got)
	}
	if got := cfg.LogsDir(); got != "/data/sync/staging/logs" {
		t.Errorf("unexpected logs dir: %v", got)
	}
}
