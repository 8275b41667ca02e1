// internal/collect/gemini.go
package collect

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"golang.org/x/net/html"

	"github.com/user/fieldkit/internal/model"
)

// geminiActivityDir is the path fragment Takeout uses for Gemini
// activity, in both the ZIP layout and extracted trees.
const geminiActivityDir = "Gemini Apps"

// Gemini collects conversations from Google Takeout archives in the
// inbox. Takeout has no conversation export for Gemini, only the
// activity log (MyActivity.json, or MyActivity.html on older
// takeouts), so prompts and replies are reconstructed from activity
// records and grouped into one conversation per day.
type Gemini struct {
	inboxDir string
	archive  *Archiver
}

// NewGemini creates a collector reading from the given inbox.
func NewGemini(inboxDir, rawDir string, dryRun bool) *Gemini {
	return &Gemini{
		inboxDir: inboxDir,
		archive:  NewArchiver(rawDir, "gemini", dryRun),
	}
}

// Name returns the source identifier.
func (g *Gemini) Name() string { return "gemini" }

// Collect parses Gemini activity from "*takeout*.zip" archives and
// extracted Takeout trees under the inbox.
func (g *Gemini) Collect(ctx context.Context) ([]*model.Conversation, error) {
	if g.inboxDir == "" {
		return nil, nil
	}
	if _, err := os.Stat(g.inboxDir); err != nil {
		return nil, nil
	}

	var convs []*model.Conversation

	zips, _ := filepath.Glob(filepath.Join(g.inboxDir, "*.zip"))
	sort.Strings(zips)
	for _, zipPath := range zips {
		if !strings.Contains(strings.ToLower(filepath.Base(zipPath)), "takeout") {
			continue
		}
		if err := ctx.Err(); err != nil {
			return convs, err
		}
		found, err := g.collectZip(zipPath)
		if err != nil {
			slog.Warn("failed to process takeout zip", "path", zipPath, "error", err)
			continue
		}
		convs = append(convs, found...)
	}

	for _, activityPath := range g.looseActivityFiles() {
		if err := ctx.Err(); err != nil {
			return convs, err
		}
		raw, err := os.ReadFile(activityPath)
		if err != nil {
			slog.Warn("failed to read activity file", "path", activityPath, "error", err)
			continue
		}
		found, err := g.parseActivity(raw, activityPath, strings.HasSuffix(activityPath, ".html"))
		if err != nil {
			slog.Warn("failed to parse activity file", "path", activityPath, "error", err)
			continue
		}
		convs = append(convs, found...)
	}
	return convs, nil
}

// collectZip finds the Gemini activity member of a Takeout archive,
// preferring the JSON form when both are present.
func (g *Gemini) collectZip(zipPath string) ([]*model.Conversation, error) {
	zr, err := zip.OpenReader(zipPath)
	if err != nil {
		return nil, fmt.Errorf("open zip: %w", err)
	}
	defer zr.Close()

	var jsonMember, htmlMember *zip.File
	for _, f := range zr.File {
		if !strings.Contains(f.Name, geminiActivityDir) {
			continue
		}
		switch path.Base(f.Name) {
		case "MyActivity.json":
			jsonMember = f
		case "MyActivity.html":
			htmlMember = f
		}
	}

	member, isHTML := jsonMember, false
	if member == nil {
		member, isHTML = htmlMember, true
	}
	if member == nil {
		return nil, nil
	}
	raw, err := readZipMember(member)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", member.Name, err)
	}
	return g.parseActivity(raw, zipPath+":"+member.Name, isHTML)
}

// looseActivityFiles finds extracted MyActivity files under the inbox,
// accepting only those inside a Gemini Apps directory.
func (g *Gemini) looseActivityFiles() []string {
	var out []string
	filepath.WalkDir(g.inboxDir, func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if d.Name() != "MyActivity.json" && d.Name() != "MyActivity.html" {
			return nil
		}
		if strings.Contains(p, geminiActivityDir) {
			out = append(out, p)
		}
		return nil
	})
	return out
}

// geminiExchange is one reconstructed prompt/reply pair.
type geminiExchange struct {
	prompt string
	reply  string
	ts     time.Time
}

func (g *Gemini) parseActivity(raw []byte, sourcePath string, isHTML bool) ([]*model.Conversation, error) {
	ext := "json"
	if isHTML {
		ext = "html"
	}
	archived, err := g.archive.Archive("MyActivity", ext, raw)
	if err != nil {
		return nil, err
	}

	var exchanges []geminiExchange
	if isHTML {
		exchanges, err = parseActivityHTML(raw)
	} else {
		exchanges, err = parseActivityJSON(raw)
	}
	if err != nil {
		return nil, err
	}
	return buildGeminiConversations(exchanges, sourcePath, archived), nil
}

// geminiActivity is one record of MyActivity.json; only consumed
// fields are declared.
type geminiActivity struct {
	Header    string `json:"header"`
	Title     string `json:"title"`
	Time      string `json:"time"`
	Subtitles []struct {
		Name string `json:"name"`
	} `json:"subtitles"`
}

// parseActivityJSON reads activity records, keeping prompt entries
// ("Prompted <text>") and treating their subtitles as the reply.
func parseActivityJSON(raw []byte) ([]geminiExchange, error) {
	var records []geminiActivity
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, fmt.Errorf("decode activity: %w", err)
	}

	var out []geminiExchange
	for _, rec := range records {
		prompt, ok := strings.CutPrefix(rec.Title, "Prompted ")
		if !ok || strings.TrimSpace(prompt) == "" {
			continue
		}
		ex := geminiExchange{prompt: strings.TrimSpace(prompt)}
		if ts, ok := parseISOTime(rec.Time); ok {
			ex.ts = ts
		}
		var replyParts []string
		for _, sub := range rec.Subtitles {
			if s := strings.TrimSpace(sub.Name); s != "" {
				replyParts = append(replyParts, s)
			}
		}
		ex.reply = strings.Join(replyParts, "\n")
		out = append(out, ex)
	}
	return out, nil
}

// parseActivityHTML reconstructs exchanges from the HTML activity
// page: each content cell is converted to markdown, then split into
// the prompt line, a trailing timestamp, and reply text.
func parseActivityHTML(raw []byte) ([]geminiExchange, error) {
	doc, err := html.Parse(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("parse activity html: %w", err)
	}

	var out []geminiExchange
	for _, cell := range findContentCells(doc) {
		var sb strings.Builder
		if err := html.Render(&sb, cell); err != nil {
			continue
		}
		md, err := htmltomarkdown.ConvertString(sb.String())
		if err != nil {
			slog.Warn("failed to convert activity cell", "error", err)
			continue
		}
		if ex, ok := parseActivityCell(md); ok {
			out = append(out, ex)
		}
	}
	return out, nil
}

// findContentCells returns the top-level content-cell divs of the
// activity page without descending into matched cells.
func findContentCells(doc *html.Node) []*html.Node {
	var cells []*html.Node
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "div" && nodeHasClass(n, "content-cell") {
			cells = append(cells, n)
			return
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(doc)
	return cells
}

func nodeHasClass(n *html.Node, class string) bool {
	for _, attr := range n.Attr {
		if attr.Key == "class" && strings.Contains(attr.Val, class) {
			return true
		}
	}
	return false
}

// parseActivityCell splits a converted cell into prompt, reply, and
// timestamp. Cells with no "Prompted" line (sidebar cells, captions)
// are rejected.
func parseActivityCell(markdown string) (geminiExchange, bool) {
	var (
		ex         geminiExchange
		replyParts []string
	)
	for _, line := range strings.Split(markdown, "\n") {
		// Hard breaks convert to a trailing backslash; strip it.
		line = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(line), "\\"))
		if line == "" {
			continue
		}
		if ex.prompt == "" {
			if prompt, ok := strings.CutPrefix(line, "Prompted "); ok {
				ex.prompt = strings.TrimSpace(prompt)
			}
			continue
		}
		if ts, ok := parseActivityTime(line); ok {
			ex.ts = ts
			continue
		}
		replyParts = append(replyParts, line)
	}
	if ex.prompt == "" {
		return ex, false
	}
	ex.reply = strings.Join(replyParts, "\n")
	return ex, true
}

// parseActivityTime parses the human-readable timestamps the HTML page
// carries, e.g. "May 1, 2024, 12:00:05 PM PDT".
func parseActivityTime(s string) (time.Time, bool) {
	for _, layout := range []string{"Jan 2, 2006, 3:04:05 PM MST", "Jan 2, 2006, 3:04:05 PM MST"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// buildGeminiConversations groups exchanges into one conversation per
// activity day. Undated exchanges share a single "undated" bucket.
func buildGeminiConversations(exchanges []geminiExchange, sourcePath, archivedPath string) []*model.Conversation {
	groups := make(map[string][]geminiExchange)
	for _, ex := range exchanges {
		day := "undated"
		if !ex.ts.IsZero() {
			day = ex.ts.UTC().Format("2006-01-02")
		}
		groups[day] = append(groups[day], ex)
	}

	days := make([]string, 0, len(groups))
	for day := range groups {
		days = append(days, day)
	}
	sort.Strings(days)

	var convs []*model.Conversation
	for _, day := range days {
		group := groups[day]
		sort.SliceStable(group, func(i, j int) bool {
			return group[i].ts.Before(group[j].ts)
		})

		var messages []model.Message
		for _, ex := range group {
			user := model.Message{Role: "user", Content: ex.prompt}
			if !ex.ts.IsZero() {
				ts := ex.ts
				user.Timestamp = &ts
			}
			messages = append(messages, user)
			if ex.reply != "" {
				reply := model.Message{Role: "assistant", Content: ex.reply}
				if !ex.ts.IsZero() {
					ts := ex.ts
					reply.Timestamp = &ts
				}
				messages = append(messages, reply)
			}
		}

		created, updated := timestampRange(messages)
		conv := model.NewConversation("gemini", "gemini-"+day)
		conv.CreatedAt = created
		conv.UpdatedAt = updated
		conv.Messages = messages
		conv.Title = firstUserLine(messages)
		conv.Metadata = map[string]any{
			"original_path":  sourcePath,
			"exchange_count": len(group),
		}
		if archivedPath != "" {
			conv.Metadata["source_path"] = archivedPath
		}
		convs = append(convs, conv)
	}
	return convs
}
