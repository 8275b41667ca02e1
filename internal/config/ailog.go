package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v2"
)

// Ailog configures the log aggregator: where exports land, where the
// normalized staging tree lives, which sources are collected, and the
// cloud remote everything is mirrored to.
type Ailog struct {
	BaseDir    string            `yaml:"base_dir"`
	InboxDir   string            `yaml:"inbox_dir"`
	StagingDir string            `yaml:"staging_dir"`
	RawDir     string            `yaml:"raw_dir"`
	Sources    map[string]Source `yaml:"sources"`
	Cloud      Cloud             `yaml:"cloud"`
}

// Source is the per-platform collection switch. Paths lists the
// directories scanned for that platform; sources with no paths read
// from the inbox directory instead.
type Source struct {
	Enabled bool     `yaml:"enabled"`
	Paths   []string `yaml:"paths"`
}

// UnmarshalYAML keeps sources enabled unless the file says otherwise.
func (s *Source) UnmarshalYAML(unmarshal func(any) error) error {
	type plain Source
	out := plain{Enabled: true}
	if err := unmarshal(&out); err != nil {
		return err
	}
	*s = Source(out)
	return nil
}

// Cloud names the rclone remote the staging tree is synced to.
type Cloud struct {
	RemoteName string `yaml:"remote_name"`
	RemotePath string `yaml:"remote_path"`
	Enabled    bool   `yaml:"enabled"`
}

// DefaultAilogPath returns the config location used when no --config
// flag is given.
func DefaultAilogPath() string {
	return filepath.Join(homeDir(), "ai-log-sync", "config.yaml")
}

// DefaultAilog returns the configuration written by ailog init: every
// known source enabled, session directories for the local tools,
// inbox-driven collection for the export-based ones.
func DefaultAilog() *Ailog {
	base := filepath.Join(homeDir(), "ai-log-sync")
	return &Ailog{
		BaseDir:    base,
		InboxDir:   filepath.Join(base, "inbox"),
		StagingDir: filepath.Join(base, "staging"),
		RawDir:     filepath.Join(base, "staging", "raw"),
		Sources: map[string]Source{
			"claude-code":       {Enabled: true, Paths: []string{"~/.claude/projects"}},
			"codex":             {Enabled: true, Paths: []string{"~/.codex"}},
			"chatgpt-export":    {Enabled: true, Paths: []string{}},
			"claude-web-export": {Enabled: true, Paths: []string{}},
			"gemini":            {Enabled: true, Paths: []string{}},
			"grok":              {Enabled: true, Paths: []string{}},
		},
		Cloud: defaultCloud(),
	}
}

func defaultCloud() Cloud {
	return Cloud{RemoteName: "gdrive", RemotePath: "ai-chat-logs", Enabled: true}
}

// LoadAilog reads the config file at path. Directory fields missing
// from the file are derived from base_dir; a missing file is an error
// so callers can point the user at ailog init.
func LoadAilog(path string) (*Ailog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := &Ailog{Cloud: defaultCloud()}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	if cfg.BaseDir == "" {
		cfg.BaseDir = filepath.Join(homeDir(), "ai-log-sync")
	}
	cfg.BaseDir = expandHome(cfg.BaseDir)
	if cfg.InboxDir == "" {
		cfg.InboxDir = filepath.Join(cfg.BaseDir, "inbox")
	}
	cfg.InboxDir = expandHome(cfg.InboxDir)
	if cfg.StagingDir == "" {
		cfg.StagingDir = filepath.Join(cfg.BaseDir, "staging")
	}
	cfg.StagingDir = expandHome(cfg.StagingDir)
	if cfg.RawDir == "" {
		cfg.RawDir = filepath.Join(cfg.BaseDir, "staging", "raw")
	}
	cfg.RawDir = expandHome(cfg.RawDir)
	if cfg.Sources == nil {
		cfg.Sources = map[string]Source{}
	}
	return cfg, nil
}

// Save writes the config to path, creating parent directories.
func (c *Ailog) Save(path string) error {
	return saveYAML(path, c)
}

// IndexPath returns where the conversation index lives under the
// staging tree.
func (c *Ailog) IndexPath() string {
	return filepath.Join(c.StagingDir, "index.json")
}

// LogsDir returns the directory holding normalized conversation files.
func (c *Ailog) LogsDir() string {
	return filepath.Join(c.StagingDir, "logs")
}
