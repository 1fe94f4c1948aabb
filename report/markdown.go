package report

import (
	"context"
	"fmt"
	"html"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"github.com/microcosm-cc/bluemonday"

	"github.com/hazyhaar/taptarget/tapaudit"
)

// Markdown renders reports as human-readable Markdown, either appended to a
// writer or written as <dir>/<report id>.md.
type Markdown struct {
	mu     sync.Mutex
	w      io.Writer
	dir    string
	conv   *converter.Converter
	policy *bluemonday.Policy
}

// NewMarkdown writes every report to w.
func NewMarkdown(w io.Writer) *Markdown {
	m := newMarkdown()
	m.w = w
	return m
}

// NewMarkdownDir writes one file per report under dir, creating it.
func NewMarkdownDir(dir string) (*Markdown, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("markdown: mkdir: %w", err)
	}
	m := newMarkdown()
	m.dir = dir
	return m, nil
}

func newMarkdown() *Markdown {
	return &Markdown{
		conv: converter.NewConverter(
			converter.WithPlugins(
				base.NewBasePlugin(),
				commonmark.NewCommonmarkPlugin(),
				table.NewTablePlugin(),
			),
		),
		policy: bluemonday.UGCPolicy(),
	}
}

func (m *Markdown) Send(_ context.Context, r Report) error {
	md, err := m.Render(r)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.dir != "" {
		path := filepath.Join(m.dir, r.ID+".md")
		if err := os.WriteFile(path, []byte(md+"\n"), 0o644); err != nil {
			return fmt.Errorf("markdown: write %s: %w", path, err)
		}
		return nil
	}
	if _, err := io.WriteString(m.w, md+"\n\n"); err != nil {
		return fmt.Errorf("markdown: write: %w", err)
	}
	return nil
}

func (m *Markdown) Close() error { return nil }

// Render converts r to Markdown.
func (m *Markdown) Render(r Report) (string, error) {
	doc := m.policy.Sanitize(renderHTML(r))
	md, err := m.conv.ConvertString(doc)
	if err != nil {
		return "", fmt.Errorf("markdown: convert: %w", err)
	}
	return strings.TrimSpace(md), nil
}

// renderHTML lays the report out as an HTML fragment. Every value is
// escaped; the caller still sanitises the result.
func renderHTML(r Report) string {
	var b strings.Builder
	esc := html.EscapeString
	res := r.Result

	fmt.Fprintf(&b, "<h2>Tap targets: %s</h2>\n", esc(r.PageURL))
	fmt.Fprintf(&b, "<p><em>%s</em></p>\n", esc(r.Timestamp.UTC().Format("2006-01-02 15:04:05 MST")))

	switch {
	case res.Skipped:
		fmt.Fprintf(&b, "<p>Skipped: %s</p>\n", esc(res.Explanation))
		return b.String()
	case res.Pass:
		fmt.Fprintf(&b, "<p><strong>Pass</strong>: %s</p>\n", esc(res.DisplayValue))
		return b.String()
	}

	fmt.Fprintf(&b, "<p><strong>Fail</strong>: %s (%d of %d targets too close to a neighbour)</p>\n",
		esc(res.DisplayValue), res.FailingCount, res.TargetCount)
	b.WriteString("<table><thead><tr><th>Tap Target</th><th>Size</th><th>Overlapping Target</th><th>Overlap</th></tr></thead><tbody>\n")
	for _, row := range res.Rows {
		fmt.Fprintf(&b, "<tr><td>%s</td><td>%s</td><td>%s</td><td>%.0f%%</td></tr>\n",
			nodeCell(row.TapTarget), esc(row.Size), nodeCell(row.OverlappingTarget), row.OverlapScoreRatio*100)
	}
	b.WriteString("</tbody></table>\n")
	return b.String()
}

func nodeCell(n tapaudit.Node) string {
	label := n.NodeLabel
	if label == "" {
		label = n.Selector
	}
	if n.Selector == "" || n.Selector == label {
		return html.EscapeString(label)
	}
	return html.EscapeString(label) + " <code>" + html.EscapeString(n.Selector) + "</code>"
}
