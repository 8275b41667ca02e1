package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v2"
)

// Detective configures the file-discovery tool: the ordered search
// roots plus the skip rules shared by every search.
type Detective struct {
	SearchDirectories []SearchDir `yaml:"search_directories"`
	SkipDirectories   []string    `yaml:"skip_directories"`
	SkipPatterns      []string    `yaml:"skip_patterns"`
}

// SearchDir is one configured search root. Lower priority ranks are
// preferred when matches tie on recency.
type SearchDir struct {
	Path      string   `yaml:"path"`
	Priority  int      `yaml:"priority"`
	Recursive bool     `yaml:"recursive"`
	Exclude   []string `yaml:"exclude,omitempty"`
}

// UnmarshalYAML keeps roots recursive unless the file says otherwise.
func (d *SearchDir) UnmarshalYAML(unmarshal func(any) error) error {
	type plain SearchDir
	out := plain{Recursive: true}
	if err := unmarshal(&out); err != nil {
		return err
	}
	*d = SearchDir(out)
	return nil
}

// DefaultDetectivePath returns the config location used when no
// --config flag is given.
func DefaultDetectivePath() string {
	return filepath.Join(homeDir(), ".detective", "config.yaml")
}

// DefaultDetective returns the built-in search roots and skip rules.
// Roots that do not exist on a machine are skipped at search time, so
// the defaults are safe everywhere.
func DefaultDetective() *Detective {
	return &Detective{
		SearchDirectories: []SearchDir{
			{Path: "~/projects", Priority: 1, Recursive: true},
			{Path: "~/Documents", Priority: 2, Recursive: true},
			{Path: "~/Desktop", Priority: 3, Recursive: true},
			{Path: "~/Downloads", Priority: 4, Recursive: false},
		},
		SkipDirectories: []string{
			".git", ".hg", ".svn",
			"node_modules", "__pycache__", ".venv", "venv",
			".tox", ".mypy_cache", ".pytest_cache", ".ruff_cache",
			".idea", ".vscode", ".cache",
			"dist", "build", "target", "*.egg-info",
		},
		SkipPatterns: []string{
			"*.pyc", "*.lock", "*.log", "*.tmp", "*.swp",
			"*.db-wal", "*.db-shm", ".DS_Store",
		},
	}
}

// LoadDetective reads the config at path, falling back to defaults for
// missing keys. When the file does not exist the defaults are written
// there so the user has something to edit.
func LoadDetective(path string) (*Detective, error) {
	cfg := DefaultDetective()

	if _, err := os.Stat(path); err == nil {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	} else if os.IsNotExist(err) {
		if err := saveYAML(path, cfg); err != nil {
			return nil, err
		}
	}

	for i, dir := range cfg.SearchDirectories {
		cfg.SearchDirectories[i].Path = expandHome(dir.Path)
	}
	return cfg, nil
}
