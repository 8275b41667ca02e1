// cmd/detective/display.go

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/user/fieldkit/internal/analyze"
	"github.com/user/fieldkit/internal/config"
	"github.com/user/fieldkit/internal/finder"
	"github.com/user/fieldkit/internal/token"
)

var (
	red     = lipgloss.Color("1")
	green   = lipgloss.Color("2")
	yellow  = lipgloss.Color("3")
	blue    = lipgloss.Color("4")
	magenta = lipgloss.Color("5")
	cyan    = lipgloss.Color("6")
	grey    = lipgloss.Color("8")
)

// Styles apply to whole lines or to values padded to width beforehand.
// Table cells stay unstyled: escape codes would throw off tabwriter's
// column measurement.
var (
	titleStyle = lipgloss.NewStyle().Bold(true)
	labelStyle = lipgloss.NewStyle().Bold(true).Foreground(cyan)
	dimStyle   = lipgloss.NewStyle().Foreground(grey)
	errStyle   = lipgloss.NewStyle().Bold(true).Foreground(red)

	tokenStyle = lipgloss.NewStyle().Foreground(magenta)
	lineStyle  = lipgloss.NewStyle().Foreground(blue)
	wordStyle  = lipgloss.NewStyle().Foreground(yellow)
	charStyle  = lipgloss.NewStyle().Foreground(green)

	structTitle = lipgloss.NewStyle().Bold(true).Foreground(green)
	depTitle    = lipgloss.NewStyle().Bold(true).Foreground(yellow)
	structPanel = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(green).Padding(0, 1)
	depPanel    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(yellow).Padding(0, 1)
)

func displayError(msg string) {
	fmt.Printf("\n%s %s\n\n", errStyle.Render("Error:"), msg)
}

// hasWordStats mirrors the analyzer: word counts exist for prose and
// unrecognized files only.
func hasWordStats(t analyze.FileType) bool {
	return t == analyze.TypeText || t == analyze.TypeUnknown
}

func displaySingleFile(stats analyze.FileStats) {
	fmt.Printf("\n%s %s %s\n",
		labelStyle.Render("File:"),
		filepath.Base(stats.Path),
		dimStyle.Render("("+displayPath(stats.Path)+")"))
	fmt.Printf("%s %s\n", dimStyle.Render("Modified:"), formatDate(stats.Modified))
	fmt.Printf("%s %s\n", dimStyle.Render("Type:"), stats.Type)
	if stats.HasLineRange() {
		fmt.Printf("%s lines %d-%d of %d\n", dimStyle.Render("Range:"), stats.LineStart, stats.LineEnd, stats.TotalLines)
	}
	fmt.Println()

	parts := []string{
		"tokens:  " + tokenStyle.Render(fmt.Sprintf("%7s", comma(stats.Tokens))),
		"lines:  " + lineStyle.Render(fmt.Sprintf("%7s", comma(stats.Lines))),
	}
	if hasWordStats(stats.Type) {
		parts = append(parts, "words:  "+wordStyle.Render(fmt.Sprintf("%7s", comma(stats.Words))))
	}
	parts = append(parts, "chars:  "+charStyle.Render(fmt.Sprintf("%7s", comma(stats.Chars))))
	fmt.Println(strings.Join(parts, "  │  "))

	var rates []string
	if stats.Lines > 0 {
		rates = append(rates, fmt.Sprintf("tks/ln:  %s  %s",
			tokenStyle.Render(fmt.Sprintf("%5.1f", stats.TokensPerLineMean)),
			dimStyle.Render(fmt.Sprintf("(med: %.1f)", stats.TokensPerLineMedian))))
	}
	if hasWordStats(stats.Type) && stats.Lines > 0 {
		rates = append(rates, fmt.Sprintf("wds/ln:  %s  %s",
			wordStyle.Render(fmt.Sprintf("%5.1f", stats.WordsPerLineMean)),
			dimStyle.Render(fmt.Sprintf("(med: %.1f)", stats.WordsPerLineMedian))))
	}
	if len(rates) > 0 {
		fmt.Println(strings.Join(rates, "  │  "))
	}

	if stats.Structure != "" {
		fmt.Printf("\n%s\n", structTitle.Render("Structure:"))
		fmt.Println(structPanel.Render(stats.Structure))
	}
	if stats.Dependencies != "" {
		fmt.Printf("\n%s\n", depTitle.Render("Dependencies:"))
		fmt.Println(depPanel.Render(stats.Dependencies))
	}
	fmt.Println()
}

func displayMultipleFiles(agg analyze.AggregateStats) {
	files := make([]analyze.FileStats, len(agg.Files))
	copy(files, agg.Files)
	sort.SliceStable(files, func(i, j int) bool { return files[i].Tokens > files[j].Tokens })

	fmt.Printf("\n%s\n\n", titleStyle.Render(fmt.Sprintf("Analyzed %d files:", agg.FileCount)))

	w := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
	if agg.HasWords {
		fmt.Fprintln(w, "FILE\tTOKENS\tLINES\tCHARS\tWORDS")
	} else {
		fmt.Fprintln(w, "FILE\tTOKENS\tLINES\tCHARS")
	}
	for i, s := range files {
		name := filepath.Base(s.Path)
		if i == 0 {
			name += " [largest]"
		} else if i == len(files)-1 {
			name += " [smallest]"
		}
		row := fmt.Sprintf("%s\t%s\t%s\t%s", name, comma(s.Tokens), comma(s.Lines), comma(s.Chars))
		if agg.HasWords {
			words := "-"
			if s.Words > 0 {
				words = comma(s.Words)
			}
			row += "\t" + words
		}
		fmt.Fprintln(w, row)
	}
	w.Flush()

	fmt.Printf("\n%s\n", labelStyle.Render(fmt.Sprintf("Totals (%d files):", agg.FileCount)))
	totals := []string{
		"tokens:  " + tokenStyle.Render(fmt.Sprintf("%7s", comma(agg.TotalTokens))),
		"lines:  " + lineStyle.Render(fmt.Sprintf("%7s", comma(agg.TotalLines))),
	}
	if agg.HasWords {
		totals = append(totals, "words:  "+wordStyle.Render(fmt.Sprintf("%7s", comma(agg.TotalWords))))
	}
	totals = append(totals, "chars:  "+charStyle.Render(fmt.Sprintf("%7s", comma(agg.TotalChars))))
	fmt.Println(strings.Join(totals, "  │  "))
	fmt.Println()
}

func displaySearchResults(matches []finder.FileMatch, patterns []string, roots []config.SearchDir) {
	query := fmt.Sprintf("%d patterns", len(patterns))
	if len(patterns) == 1 {
		query = `"` + patterns[0] + `"`
	}

	if len(matches) == 0 {
		fmt.Printf("\n%s %s\n\n", errStyle.Render("No matches found for"), query)
		fmt.Println(dimStyle.Render("Searched directories:"))
		for _, root := range roots {
			fmt.Printf("  %s\n", displayPath(root.Path))
		}
		fmt.Println()
		return
	}

	fmt.Printf("\n%s %s:\n\n", titleStyle.Render(fmt.Sprintf("Found %d matches for", len(matches))), query)
	for i, m := range matches {
		fmt.Printf("%s %s\n", labelStyle.Render(fmt.Sprintf("[%d]", i+1)), displayPath(m.Path))
		fmt.Printf("    %s %s\n", dimStyle.Render("Modified:"), formatDate(m.ModTime))
		fmt.Printf("    %s %s\n\n", dimStyle.Render("Size:"), token.FormatSize(m.Size))
	}
}

// displayMultipleMatches lists candidates when a pattern was too broad
// to analyze. Capped at ten; the caller exits non-zero afterwards.
func displayMultipleMatches(pattern string, matches []finder.FileMatch) {
	displayError(fmt.Sprintf("Found %d matches for \"%s\".\nShowing most recent first. Provide full path or more specific name to analyze.",
		len(matches), pattern))
	for i, m := range matches {
		if i == 10 {
			break
		}
		fmt.Printf("  %s %s\n", labelStyle.Render(fmt.Sprintf("[%d]", i+1)), displayPath(m.Path))
		fmt.Printf("      %s %s\n", dimStyle.Render("Modified:"), formatDate(m.ModTime))
	}
	if len(matches) > 10 {
		fmt.Printf("  ... and %d more\n", len(matches)-10)
	}
	fmt.Println()
}

func displayHistoryTable(entries []finder.HistoryEntry, dir string, showGit, showDetail bool) {
	fmt.Printf("\nRecent files in %s %s\n\n",
		labelStyle.Render(displayPath(dir)),
		dimStyle.Render(fmt.Sprintf("(%d shown)", len(entries))))

	w := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
	header := "MODIFIED\tEXT\tPATH\tLINES\tTOKENS"
	if showGit {
		header += "\tGIT"
	}
	if showDetail {
		header += "\tLAST COMMIT"
	}
	fmt.Fprintln(w, header)

	for _, e := range entries {
		row := fmt.Sprintf("%s\t%s\t%s\t%s\t%s",
			formatDate(e.ModTime), e.Ext, truncatePath(e.RelPath, 50), comma(e.Lines), comma(e.Tokens))
		if showGit {
			row += "\t" + e.GitStatus
		}
		if showDetail {
			commit := "-"
			if e.CommitRelTime != "" {
				commit = e.CommitRelTime + "  " + e.CommitMsg
			}
			row += "\t" + commit
		}
		fmt.Fprintln(w, row)
	}
	w.Flush()
	fmt.Println()
}

// displayHistoryFull prints bare timestamped paths, one per line, for
// piping into other tools.
func displayHistoryFull(entries []finder.HistoryEntry) {
	fmt.Println()
	for _, e := range entries {
		fmt.Printf("%s  %s\n", formatDate(e.ModTime), e.Path)
	}
	fmt.Println()
}

func formatDate(t time.Time) string {
	return t.Format("06.01.02 15:04")
}

// truncatePath keeps the tail of long paths, which carries the file
// name and its nearest parents.
func truncatePath(path string, max int) string {
	runes := []rune(path)
	if len(runes) <= max {
		return path
	}
	return "..." + string(runes[len(runes)-(max-3):])
}

// comma renders n with thousands separators: 1234567 -> "1,234,567".
func comma(n int) string {
	s := strconv.Itoa(n)
	start := 0
	if s[0] == '-' {
		start = 1
	}
	out := make([]byte, 0, len(s)+len(s)/3)
	out = append(out, s[:start]...)
	for i := start; i < len(s); i++ {
		if i > start && (len(s)-i)%3 == 0 {
			out = append(out, ',')
		}
		out = append(out, s[i])
	}
	return string(out)
}

// displayPath abbreviates the home directory to ~ for output.
func displayPath(path string) string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return path
	}
	if path == home {
		return "~"
	}
	if strings.HasPrefix(path, home+string(filepath.Separator)) {
		return "~" + path[len(home):]
	}
	return path
}

func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[1:])
		}
	}
	return path
}
