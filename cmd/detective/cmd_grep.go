// cmd/detective/cmd_grep.go

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/user/fieldkit/internal/finder"
)

func init() {
	rootCmd.AddCommand(grepCmd)
}

var grepCmd = &cobra.Command{
	Use:   "grep <term> <directory>",
	Short: "Find files under a directory containing a string",
	Args:  cobra.ExactArgs(2),
	Run:   runGrep,
}

func runGrep(cmd *cobra.Command, args []string) {
	term, directory := args[0], args[1]

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
	f := newFinder(cfg)
	matches := f.Find("*", finder.WithContent(term), finder.WithLocalDir(dirPath))

	if len(matches) == 0 {
		fmt.Printf("\nNo matches found for \"%s\" in %s\n\n", term, directory)
		os.Exit(1)
	}

	fmt.Printf("\nFound \"%s\" in %d files:\n\n", term, len(matches))
	for i, m := range matches {
		fmt.Printf("%s %s\n", labelStyle.Render(fmt.Sprintf("[%d]", i+1)), displayPath(m.Path))
	}
	fmt.Println()
}
