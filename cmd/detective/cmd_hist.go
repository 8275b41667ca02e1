// cmd/detective/cmd_hist.go

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/user/fieldkit/internal/finder"
)

func init() {
	rootCmd.AddCommand(histCmd)
}

// hist takes multi-character single-dash flags (-ft, -gd, -full), which
// pflag cannot express, so the command parses its own arguments.
var histCmd = &cobra.Command{
	Use:                "hist [directory] [-n count] [-ft ext...] [-g|-gd] [-full]",
	Short:              "Show recently modified files in a directory tree",
	DisableFlagParsing: true,
	Run:                runHist,
}

const histHelp = `usage: detective hist [directory] [-n COUNT] [-ft EXT [EXT ...]] [-g] [-gd] [-full]

Show recently modified files in a directory tree.

positional arguments:
  directory             Directory to search (default: current directory)

optional arguments:
  -h, --help            Show this help message and exit
  -n, --count COUNT     Number of files to show (default: 15)
  -ft, --filetypes EXT [EXT ...]
                        Filter by file extension(s). Accepts: .md, md, *.env*, *local
  -g, --git             Show git status column (M=modified, A=staged, ?=untracked, ✓=clean)
  -gd, --git-detail     Show git status + last commit info
  -full, --full         Simple output: datetime + full path only (no table)

Examples:
  detective hist                      # 15 recent in current directory
  detective hist ~/projects -n 10     # 10 recent in specific directory
  detective hist -ft .md .py          # Only markdown and python files
  detective hist -ft .env* .*local    # Dotfiles matching patterns
  detective hist -g                   # Include git status column
  detective hist -gd                  # Include git status + last commit
  detective hist -full                # Simple datetime + full path output
`

func runHist(cmd *cobra.Command, args []string) {
	directory := "."
	count := 15
	var filetypes []string
	var gitStatus, gitDetail, fullOutput bool

	for i := 0; i < len(args); {
		arg := args[i]
		switch {
		case arg == "-h" || arg == "--help":
			fmt.Print(histHelp)
			return

		case arg == "-n" || arg == "--count":
			if i+1 >= len(args) {
				displayError("-n requires a number")
				os.Exit(1)
			}
			n, err := strconv.Atoi(args[i+1])
			if err != nil {
				displayError("-n requires a number, got: " + args[i+1])
				os.Exit(1)
			}
			count = n
			i += 2

		case arg == "-ft" || arg == "--filetypes":
			// Collect values until the next flag or the end.
			i++
			for i < len(args) && !strings.HasPrefix(args[i], "-") {
				filetypes = append(filetypes, args[i])
				i++
			}
			if len(filetypes) == 0 {
				displayError("-ft requires at least one file type")
				os.Exit(1)
			}

		case arg == "-g" || arg == "--git":
			gitStatus = true
			i++

		case arg == "-gd" || arg == "--git-detail":
			gitDetail = true
			i++

		case arg == "-full" || arg == "--full":
			fullOutput = true
			i++

		case strings.HasPrefix(arg, "-"):
			displayError("Unknown flag: " + arg)
			fmt.Println("Use 'detective hist -h' for help")
			os.Exit(1)

		default:
			directory = arg
			i++
		}
	}

	dirPath, err := filepath.Abs(expandHome(directory))
	if err != nil {
		displayError("Directory not found: " + directory)
		os.Exit(1)
	}
	info, err := os.Stat(dirPath)
	if err != nil {
		displayError("Directory not found: " + directory)
		os.Exit(1)
	}
	if !info.IsDir() {
		displayError("Not a directory: " + directory)
		os.Exit(1)
	}

	cfg := loadDetectiveConfig()
	hf := finder.NewHistoryFinder(cfg.SkipDirectories, cfg.SkipPatterns)
	entries := hf.FindRecent(cmd.Context(), dirPath, finder.HistoryOptions{
		Count:     count,
		FileTypes: filetypes,
		GitStatus: gitStatus || gitDetail,
		GitDetail: gitDetail,
	})

	if len(entries) == 0 {
		if len(filetypes) > 0 {
			fmt.Printf("\nNo files matching %s found in %s\n\n", strings.Join(filetypes, ", "), directory)
		} else {
			fmt.Printf("\nNo files found in %s\n\n", directory)
		}
		os.Exit(1)
	}

	if fullOutput {
		displayHistoryFull(entries)
	} else {
		displayHistoryTable(entries, dirPath, gitStatus || gitDetail, gitDetail)
	}
}
