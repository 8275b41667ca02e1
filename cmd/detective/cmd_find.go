// cmd/detective/cmd_find.go

package main

import (
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"

	"github.com/user/fieldkit/internal/finder"
)

func init() {
	rootCmd.AddCommand(findCmd)
}

var findCmd = &cobra.Command{
	Use:   "find <pattern>...",
	Short: "Find files without analyzing them",
	Args:  cobra.MinimumNArgs(1),
	Run:   runFind,
}

func runFind(cmd *cobra.Command, args []string) {
	cfg := loadDetectiveConfig()
	f := newFinder(cfg)

	var all []finder.FileMatch
	for _, pattern := range args {
		// A pattern naming an existing file is its own best match.
		expanded := expandHome(pattern)
		if info, err := os.Stat(expanded); err == nil && info.Mode().IsRegular() {
			if abs, err := filepath.Abs(expanded); err == nil {
				all = append(all, finder.FileMatch{
					Path:    abs,
					ModTime: info.ModTime(),
					Size:    info.Size(),
				})
				continue
			}
		}
		var opts []finder.FindOption
		if localSearch {
			opts = append(opts, finder.WithLocalDir("."))
		}
		all = append(all, f.Find(pattern, opts...)...)
	}

	// Patterns can overlap; keep the first hit per path.
	seen := make(map[string]struct{}, len(all))
	unique := all[:0]
	for _, m := range all {
		if _, dup := seen[m.Path]; dup {
			continue
		}
		seen[m.Path] = struct{}{}
		unique = append(unique, m)
	}
	sort.SliceStable(unique, func(i, j int) bool { return unique[i].ModTime.After(unique[j].ModTime) })

	displaySearchResults(unique, args, cfg.SearchDirectories)
	if len(unique) == 0 {
		os.Exit(1)
	}
}
