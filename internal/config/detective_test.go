package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDetective_WritesDefaultsWhenMissing(t *testing.T) {
	t.Setenv("HOME", "/home/tester")
	path := filepath.Join(t.TempDir(), "detective", "config.yaml")

	cfg, err := LoadDetective(path)
	if err != nil {
		t.Fatalf("LoadDetective failed: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("defaults should be written for a missing config: %v", err)
	}
	if len(cfg.SearchDirectories) == 0 {
		t.Fatal("expected default search directories")
	}
	if cfg.SearchDirectories[0].Path != "/home/tester/projects" {
		t.Errorf("expected expanded first root, got %v", cfg.SearchDirectories[0].Path)
	}
	if !cfg.SearchDirectories[0].Recursive {
		t.Error("default roots should be recursive")
	}

	// The written file must load back to the same rules.
	reloaded, err := LoadDetective(path)
	if err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if len(reloaded.SearchDirectories) != len(cfg.SearchDirectories) {
		t.Errorf("expected %d roots after reload, got %d", len(cfg.SearchDirectories), len(reloaded.SearchDirectories))
	}
	if len(reloaded.SkipDirectories) != len(cfg.SkipDirectories) {
		t.Errorf("skip directories changed across reload")
	}
}

func TestLoadDetective_FileReplacesDefaults(t *testing.T) {
	path := writeConfigFile(t, `search_directories:
  - path: /srv/workspace
    priority: 5
    exclude:
      - archive
skip_directories:
  - .git
`)

	cfg, err := LoadDetective(path)
	if err != nil {
		t.Fatalf("LoadDetective failed: %v", err)
	}
	if len(cfg.SearchDirectories) != 1 {
		t.Fatalf("configured roots should replace the defaults, got %d", len(cfg.SearchDirectories))
	}
	root := cfg.SearchDirectories[0]
	if root.Path != "/srv/workspace" || root.Priority != 5 {
		t.Errorf("unexpected root: %+v", root)
	}
	if !root.Recursive {
		t.Error("recursive should default to true when the key is absent")
	}
	if len(root.Exclude) != 1 || root.Exclude[0] != "archive" {
		t.Errorf("unexpected exclude list: %v", root.Exclude)
	}
	if len(cfg.SkipDirectories) != 1 || cfg.SkipDirectories[0] != ".git" {
		t.Errorf("configured skip directories should replace defaults, got %v", cfg.SkipDirectories)
	}
	// skip_patterns was not in the file, so the defaults stay.
	if len(cfg.SkipPatterns) == 0 {
		t.Error("expected default skip patterns to survive")
	}
}

func TestLoadDetective_ExplicitNonRecursiveKept(t *testing.T) {
	path := writeConfigFile(t, `search_directories:
  - path: /srv/drop
    priority: 1
    recursive: false
`)

	cfg, err := LoadDetective(path)
	if err != nil {
		t.Fatalf("LoadDetective failed: %v", err)
	}
	if cfg.SearchDirectories[0].Recursive {
		t.Error("explicit recursive=false should be kept")
	}
}

func TestLoadDetective_MalformedFile(t *testing.T) {
	path := writeConfigFile(t, "search_directories: [not, a, mapping\n")

	if _, err := LoadDetective(path); err == nil {
		t.Fatal("expected parse error for malformed config")
	}
}

func TestDefaultDetective_SkipRules(t *testing.T) {
	cfg := DefaultDetective()

	skips := make(map[string]bool, len(cfg.SkipDirectories))
	for _, name := range cfg.SkipDirectories {
		skips[name] = true
	}
	for _, want := range []string{".git", "node_modules", "__pycache__", ".venv"} {
		if !skips[want] {
			t.Errorf("expected %s in default skip directories", want)
		}
	}

	patterns := make(map[string]bool, len(cfg.SkipPatterns))
	for _, p := range cfg.SkipPatterns {
		patterns[p] = true
	}
	if !patterns["*.pyc"] || !patterns["*.lock"] {
		t.Errorf("unexpected default skip patterns: %v", cfg.SkipPatterns)
	}
}
