// cmd/detective/root.go

package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/user/fieldkit/internal/analyze"
	"github.com/user/fieldkit/internal/config"
	"github.com/user/fieldkit/internal/finder"
)

var (
	showOutline bool
	showDeps    bool
	localSearch bool
)

var rootCmd = &cobra.Command{
	Use:   "detective <file|pattern>...",
	Short: "Find and analyze files across your project directories",
	Long: `Detective fuzzy-finds files across configured project directories
and reports token counts, line counts, and structure.

Examples:
  detective auth.py              analyze the best match for a name
  detective storage.py:40-120    analyze a line range of one file
  detective "*.test.js"          analyze every file matching a glob
  detective find config          list matches without analyzing
  detective grep TODO ~/projects find files containing a string
  detective hist -n 20           recently modified files under .`,
	Version:          "0.2.0",
	Args:             cobra.MinimumNArgs(1),
	PersistentPreRun: func(cmd *cobra.Command, args []string) { setupLogging() },
	Run:              runAnalyze,
}

func init() {
	rootCmd.Flags().BoolVarP(&showOutline, "outline", "o", false, "show structure (headings for text, functions for code)")
	rootCmd.Flags().BoolVarP(&showDeps, "deps", "d", false, "show dependencies (code files only)")
	rootCmd.PersistentFlags().BoolVarP(&localSearch, "local", "l", false, "search the current directory instead of configured roots")
}

// setupLogging routes diagnostics to stderr so results on stdout stay
// clean for piping.
func setupLogging() {
	h := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})
	slog.SetDefault(slog.New(h))
}

func loadDetectiveConfig() *config.Detective {
	cfg, err := config.LoadDetective(config.DefaultDetectivePath())
	if err != nil {
		displayError(err.Error())
		os.Exit(1)
	}
	return cfg
}

func newFinder(cfg *config.Detective) *finder.Finder {
	roots := make([]finder.SearchRoot, 0, len(cfg.SearchDirectories))
	for _, d := range cfg.SearchDirectories {
		roots = append(roots, finder.SearchRoot{
			Path:      d.Path,
			Priority:  d.Priority,
			Recursive: d.Recursive,
			Exclude:   d.Exclude,
		})
	}
	return finder.NewFinder(roots, cfg.SkipDirectories, cfg.SkipPatterns)
}

var lineRangeRe = regexp.MustCompile(`^(.+):(\d+)-(\d+)$`)

// splitLineRange peels an optional :start-end suffix off arg. An arg
// naming an existing file is never split, so colons in real file names
// win over range syntax.
func splitLineRange(arg string) (path string, start, end int, err error) {
	if _, statErr := os.Stat(expandHome(arg)); statErr == nil {
		return arg, 0, 0, nil
	}
	m := lineRangeRe.FindStringSubmatch(arg)
	if m == nil {
		return arg, 0, 0, nil
	}
	start, _ = strconv.Atoi(m[2])
	end, _ = strconv.Atoi(m[3])
	if start > end {
		return "", 0, 0, fmt.Errorf("invalid line range %d-%d: start exceeds end", start, end)
	}
	return m[1], start, end, nil
}

type target struct {
	path       string
	start, end int
}

// runAnalyze resolves every argument to exactly one file, then
// analyzes. An argument that is not an existing path becomes a fuzzy
// search; anything but a single hit stops the run so the user can
// disambiguate.
func runAnalyze(cmd *cobra.Command, args []string) {
	cfg := loadDetectiveConfig()
	f := newFinder(cfg)

	targets := make([]target, 0, len(args))
	for _, arg := range args {
		pathArg, start, end, err := splitLineRange(arg)
		if err != nil {
			displayError(err.Error())
			os.Exit(1)
		}

		expanded := expandHome(pathArg)
		if info, err := os.Stat(expanded); err == nil && !info.IsDir() {
			if abs, err := filepath.Abs(expanded); err == nil {
				targets = append(targets, target{abs, start, end})
				continue
			}
		}

		pattern := pathArg
		if !strings.ContainsAny(pattern, "*?") {
			pattern = "*" + pattern + "*"
		}
		var opts []finder.FindOption
		if localSearch {
			opts = append(opts, finder.WithLocalDir("."))
		}
		matches := f.Find(pattern, opts...)
		sort.SliceStable(matches, func(i, j int) bool { return matches[i].ModTime.After(matches[j].ModTime) })

		switch len(matches) {
		case 0:
			displayError("No files found matching: " + pathArg)
			os.Exit(1)
		case 1:
			targets = append(targets, target{matches[0].Path, start, end})
		default:
			displayMultipleMatches(pathArg, matches)
			os.Exit(1)
		}
	}

	analyzer := analyze.New()

	if len(targets) == 1 {
		t := targets[0]
		stats, err := analyzer.AnalyzeFile(t.path, analyze.Options{
			Outline:   showOutline,
			Deps:      showDeps,
			LineStart: t.start,
			LineEnd:   t.end,
		})
		if err != nil {
			displayError(err.Error())
			os.Exit(1)
		}
		displaySingleFile(stats)
		return
	}

	for _, t := range targets {
		if t.start > 0 || t.end > 0 {
			displayError("Line ranges apply to a single file.")
			os.Exit(1)
		}
	}
	paths := make([]string, len(targets))
	for i, t := range targets {
		paths[i] = t.path
	}
	agg, err := analyzer.AnalyzeMultiple(paths, analyze.Options{Outline: showOutline, Deps: showDeps})
	if err != nil {
		displayError(err.Error())
		os.Exit(1)
	}
	displayMultipleFiles(agg)
}
