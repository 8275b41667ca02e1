// internal/syncer/syncer.go

// Package syncer orchestrates a sync run: pull the remote index,
// collect from every enabled source, merge into the local index, and
// push the staging tree back to cloud storage.
package syncer

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/user/fieldkit/internal/cloud"
	"github.com/user/fieldkit/internal/collect"
	"github.com/user/fieldkit/internal/config"
	"github.com/user/fieldkit/internal/index"
	"github.com/user/fieldkit/internal/model"
)

// Options controls a single sync run.
type Options struct {
	// DryRun reports what would change without writing files or
	// pushing to the remote.
	DryRun bool
	// Push mirrors the staging tree to the remote after merging.
	// When false the pull step is skipped too.
	Push bool
}

// Stats counts merge outcomes across all sources in one run.
type Stats struct {
	Added   int
	Updated int
	Skipped int
	Errors  int
}

// Syncer runs sync and status against one loaded configuration.
type Syncer struct {
	cfg *config.Ailog
	out io.Writer
}

// New creates a Syncer writing progress to stdout.
func New(cfg *config.Ailog) *Syncer {
	return &Syncer{cfg: cfg, out: os.Stdout}
}

// SetOutput redirects progress output, mainly for tests.
func (s *Syncer) SetOutput(w io.Writer) {
	s.out = w
}

// Run performs one full sync pass. Collectors run in parallel; their
// results are merged by this goroutine alone, in a fixed source order,
// so the index only ever has one writer and output stays grouped by
// source.
func (s *Syncer) Run(ctx context.Context, opts Options) (Stats, error) {
	fmt.Fprintln(s.out, "AI Log Sync")
	fmt.Fprintln(s.out, strings.Repeat("=", 40))

	if opts.DryRun {
		fmt.Fprintln(s.out, "[DRY RUN] No changes will be made")
		fmt.Fprintln(s.out)
	}

	// The staging skeleton is created even on a dry run so the pull
	// step has somewhere to land.
	if err := os.MkdirAll(s.cfg.LogsDir(), 0o755); err != nil {
		return Stats{}, fmt.Errorf("create staging directories: %w", err)
	}

	remote := cloud.NewRclone(s.cfg.Cloud.RemoteName, s.cfg.Cloud.RemotePath)

	fmt.Fprintln(s.out, "Pulling remote index...")
	if opts.Push && s.cfg.Cloud.Enabled {
		res := remote.PullIndex(ctx, s.cfg.StagingDir)
		if res.Success {
			fmt.Fprintf(s.out, "  %s\n", res.Message)
		} else {
			fmt.Fprintf(s.out, "  Warning: %s\n", res.Message)
		}
	} else {
		fmt.Fprintln(s.out, "  Skipped (cloud sync disabled)")
	}

	ix, err := index.Load(s.cfg.IndexPath())
	if err != nil {
		return Stats{}, err
	}
	fmt.Fprintf(s.out, "  Loaded %d existing conversations\n", ix.Len())
	fmt.Fprintln(s.out)

	collectors := collectorsFor(s.cfg, opts.DryRun)

	type batch struct {
		convs []*model.Conversation
		err   error
	}
	batches := make([]batch, len(collectors))
	g := new(errgroup.Group)
	for i, col := range collectors {
		g.Go(func() error {
			convs, err := col.Collect(ctx)
			batches[i] = batch{convs: convs, err: err}
			return nil
		})
	}
	_ = g.Wait() // collector errors ride in their batch

	var stats Stats
	for i, col := range collectors {
		fmt.Fprintf(s.out, "Collecting from %s...\n", col.Name())

		b := batches[i]
		failed := false
		for _, conv := range b.convs {
			if err := s.stageConversation(ix, conv, opts.DryRun, &stats); err != nil {
				fmt.Fprintln(s.out)
				fmt.Fprintf(s.out, "  Error: %v\n", err)
				stats.Errors++
				failed = true
				break
			}
		}
		if !failed && b.err != nil {
			fmt.Fprintln(s.out)
			fmt.Fprintf(s.out, "  Error: %v\n", b.err)
			stats.Errors++
			failed = true
		}
		if !failed {
			fmt.Fprintln(s.out)
		}
	}
	fmt.Fprintln(s.out)

	fmt.Fprintln(s.out, "Saving index...")
	if !opts.DryRun {
		if err := ix.Save(s.cfg.IndexPath()); err != nil {
			return stats, err
		}
	}
	fmt.Fprintf(s.out, "  Total: %d conversations\n", ix.Len())
	fmt.Fprintln(s.out)

	if opts.Push && s.cfg.Cloud.Enabled {
		fmt.Fprintln(s.out, "Pushing to cloud storage...")
		res := remote.PushStaging(ctx, s.cfg.StagingDir, opts.DryRun)
		if res.Success {
			fmt.Fprintf(s.out, "  %s\n", res.Message)
		} else {
			fmt.Fprintf(s.out, "  Error: %s\n", res.Message)
		}
	} else {
		fmt.Fprintln(s.out, "Cloud push skipped")
	}
	fmt.Fprintln(s.out)

	fmt.Fprintln(s.out, strings.Repeat("=", 40))
	fmt.Fprintln(s.out, "Summary:")
	fmt.Fprintf(s.out, "  New conversations:     %d\n", stats.Added)
	fmt.Fprintf(s.out, "  Updated conversations: %d\n", stats.Updated)
	fmt.Fprintf(s.out, "  Unchanged (skipped):   %d\n", stats.Skipped)
	if stats.Errors > 0 {
		fmt.Fprintf(s.out, "  Errors:                %d\n", stats.Errors)
	}

	if opts.DryRun {
		fmt.Fprintln(s.out)
		fmt.Fprintln(s.out, "[DRY RUN] No changes were made")
	}
	return stats, nil
}

// stageConversation writes the conversation file under staging/logs and
// merges it into the index, echoing one marker per outcome: a [+] or
// [U] line on its own, or a dot appended to the running skip line.
func (s *Syncer) stageConversation(ix *index.Index, conv *model.Conversation, dryRun bool, stats *Stats) error {
	rawPath := path.Join("logs", conv.Source, conv.NativeID+".json")

	if !dryRun {
		full := filepath.Join(s.cfg.StagingDir, filepath.FromSlash(rawPath))
		data, err := json.MarshalIndent(conv, "", "  ")
		if err != nil {
			return fmt.Errorf("encode %s: %w", conv.ID, err)
		}
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			return fmt.Errorf("create %s: %w", filepath.Dir(full), err)
		}
		if err := os.WriteFile(full, data, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", full, err)
		}
	}

	switch res := ix.Merge(conv, rawPath); res.Action {
	case index.ActionAdded:
		fmt.Fprintln(s.out)
		fmt.Fprintf(s.out, "  [+] %s\n", displayTitle(conv))
		stats.Added++
	case index.ActionUpdated:
		fmt.Fprintln(s.out)
		fmt.Fprintf(s.out, "  [U] %s (%s)\n", displayTitle(conv), res.Reason)
		stats.Updated++
	default:
		fmt.Fprint(s.out, ".")
		stats.Skipped++
	}
	return nil
}

// collectorsFor builds one collector per configured, enabled source
// that has an implementation. Declared sources without one (codex,
// grok) are skipped silently.
func collectorsFor(cfg *config.Ailog, dryRun bool) []collect.Collector {
	var out []collect.Collector
	if src, ok := cfg.Sources["claude-code"]; ok && src.Enabled {
		out = append(out, collect.NewClaudeCode(src.Paths, cfg.RawDir, dryRun))
	}
	if src, ok := cfg.Sources["chatgpt-export"]; ok && src.Enabled {
		out = append(out, collect.NewChatGPT(cfg.InboxDir, cfg.RawDir, dryRun))
	}
	if src, ok := cfg.Sources["claude-web-export"]; ok && src.Enabled {
		out = append(out, collect.NewClaudeWeb(cfg.InboxDir, cfg.RawDir, dryRun))
	}
	if src, ok := cfg.Sources["gemini"]; ok && src.Enabled {
		out = append(out, collect.NewGemini(cfg.InboxDir, cfg.RawDir, dryRun))
	}
	return out
}

// displayTitle truncates to 60 runes for the per-conversation marker.
func displayTitle(conv *model.Conversation) string {
	if conv.Title == nil {
		return "(untitled)"
	}
	r := []rune(*conv.Title)
	if len(r) > 60 {
		return string(r[:60])
	}
	return string(r)
}
