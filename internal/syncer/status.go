// internal/syncer/status.go
package syncer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/user/fieldkit/internal/cloud"
	"github.com/user/fieldkit/internal/index"
)

// Status prints the configured directories, cloud reachability, local
// index counts, inbox backlog, and per-source settings.
func (s *Syncer) Status(ctx context.Context) error {
	fmt.Fprintln(s.out, "AI Log Sync Status")
	fmt.Fprintln(s.out, strings.Repeat("=", 40))

	fmt.Fprintln(s.out)
	fmt.Fprintln(s.out, "Configuration:")
	fmt.Fprintf(s.out, "  Base directory:  %s\n", s.cfg.BaseDir)
	fmt.Fprintf(s.out, "  Inbox:           %s\n", s.cfg.InboxDir)
	fmt.Fprintf(s.out, "  Staging:         %s\n", s.cfg.StagingDir)
	fmt.Fprintln(s.out)

	fmt.Fprintln(s.out, "Cloud Storage:")
	if !s.cfg.Cloud.Enabled {
		fmt.Fprintln(s.out, "  Status: Disabled")
	} else {
		remote := cloud.NewRclone(s.cfg.Cloud.RemoteName, s.cfg.Cloud.RemotePath)
		switch st := remote.Status(ctx); {
		case !st.Installed:
			fmt.Fprintln(s.out, "  rclone: NOT INSTALLED")
			fmt.Fprintln(s.out, "  Install with: brew install rclone")
		case !st.Configured:
			fmt.Fprintf(s.out, "  Remote '%s': NOT CONFIGURED\n", s.cfg.Cloud.RemoteName)
			fmt.Fprintln(s.out, "  Configure with: rclone config")
		case !st.Accessible:
			fmt.Fprintln(s.out, "  Remote: NOT ACCESSIBLE")
			fmt.Fprintln(s.out, "  Check your internet connection or rclone config")
		default:
			fmt.Fprintln(s.out, "  Status: Connected")
			fmt.Fprintf(s.out, "  Remote: %s\n", remote.Remote())
			fmt.Fprintf(s.out, "  Files:  %d\n", st.FileCount)
		}
	}
	fmt.Fprintln(s.out)

	fmt.Fprintln(s.out, "Local Index:")
	if _, err := os.Stat(s.cfg.IndexPath()); err != nil {
		fmt.Fprintln(s.out, "  No local index (run 'ailog sync' first)")
	} else {
		ix, err := index.Load(s.cfg.IndexPath())
		if err != nil {
			return err
		}
		st := ix.Stats()
		fmt.Fprintf(s.out, "  Total conversations: %d\n", st.Total)
		fmt.Fprintln(s.out)
		fmt.Fprintln(s.out, "  By source:")
		for _, source := range sortedKeys(st.BySource) {
			fmt.Fprintf(s.out, "    %s: %d\n", source, st.BySource[source])
		}
	}
	fmt.Fprintln(s.out)

	fmt.Fprintln(s.out, "Inbox:")
	if _, err := os.Stat(s.cfg.InboxDir); err != nil {
		fmt.Fprintln(s.out, "  Inbox directory doesn't exist")
	} else {
		zips, _ := filepath.Glob(filepath.Join(s.cfg.InboxDir, "*.zip"))
		jsons, _ := filepath.Glob(filepath.Join(s.cfg.InboxDir, "*.json"))
		if len(zips) == 0 && len(jsons) == 0 {
			fmt.Fprintln(s.out, "  Empty (no files to process)")
		}
		if len(zips) > 0 {
			fmt.Fprintf(s.out, "  ZIP files:  %d\n", len(zips))
			for _, zf := range zips[:min(5, len(zips))] {
				fmt.Fprintf(s.out, "    - %s\n", filepath.Base(zf))
			}
			if len(zips) > 5 {
				fmt.Fprintf(s.out, "    ... and %d more\n", len(zips)-5)
			}
		}
		if len(jsons) > 0 {
			fmt.Fprintf(s.out, "  JSON files: %d\n", len(jsons))
		}
	}
	fmt.Fprintln(s.out)

	fmt.Fprintln(s.out, "Sources:")
	for _, name := range sortedKeys(s.cfg.Sources) {
		src := s.cfg.Sources[name]
		state := "enabled"
		if !src.Enabled {
			state = "disabled"
		}
		fmt.Fprintf(s.out, "  %s: %s\n", name, state)
		for _, p := range src.Paths {
			fmt.Fprintf(s.out, "    Path: %s\n", p)
		}
	}
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
