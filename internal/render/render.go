// ABOUTME: Renders assistant markdown as styled terminal text
// ABOUTME: Walks the goldmark AST and maps block and inline nodes to fatih/color styles

package render

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// Renderer converts markdown to terminal text. Styling follows
// color.NoColor, so output is plain when stdout is not a terminal.
type Renderer struct {
	md      goldmark.Markdown
	heading *color.Color
	bold    *color.Color
	italic  *color.Color
	code    *color.Color
	link    *color.Color
	quote   *color.Color
	rule    *color.Color
}

// New creates a Renderer with the default palette
func New() *Renderer {
	return &Renderer{
		md:      goldmark.New(),
		heading: color.New(color.FgCyan, color.Bold),
		bold:    color.New(color.Bold),
		italic:  color.New(color.Italic),
		code:    color.New(color.FgYellow),
		link:    color.New(color.FgBlue, color.Underline),
		quote:   color.New(color.FgHiBlack),
		rule:    color.New(color.FgHiBlack),
	}
}

// Render returns markdown as terminal text with blocks separated by blank lines
func (r *Renderer) Render(markdown string) string {
	src := []byte(markdown)
	doc := r.md.Parser().Parse(text.NewReader(src))
	return r.children(doc, src, "\n\n")
}

func (r *Renderer) children(n ast.Node, src []byte, sep string) string {
	var blocks []string
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if s := r.block(c, src); s != "" {
			blocks = append(blocks, s)
		}
	}
	return strings.Join(blocks, sep)
}

func (r *Renderer) block(n ast.Node, src []byte) string {
	switch n := n.(type) {
	case *ast.Heading:
		return r.heading.Sprint(r.inlines(n, src))
	case *ast.Paragraph, *ast.TextBlock:
		return r.inlines(n, src)
	case *ast.List:
		return r.list(n, src)
	case *ast.FencedCodeBlock, *ast.CodeBlock:
		var lines []string
		for _, line := range rawLines(n, src) {
			lines = append(lines, "    "+r.code.Sprint(strings.TrimRight(line, "\n")))
		}
		return strings.Join(lines, "\n")
	case *ast.Blockquote:
		inner := r.children(n, src, "\n\n")
		return prefixLines(inner, r.quote.Sprint("│ "))
	case *ast.ThematicBreak:
		return r.rule.Sprint(strings.Repeat("─", 40))
	case *ast.HTMLBlock:
		return strings.TrimRight(strings.Join(rawLines(n, src), ""), "\n")
	default:
		return r.children(n, src, "\n\n")
	}
}

func (r *Renderer) list(l *ast.List, src []byte) string {
	sep := "\n\n"
	if l.IsTight {
		sep = "\n"
	}

	num := l.Start
	if num == 0 {
		num = 1
	}

	var items []string
	for item := l.FirstChild(); item != nil; item = item.NextSibling() {
		marker := "- "
		if l.IsOrdered() {
			marker = fmt.Sprintf("%d. ", num)
			num++
		}
		body := r.children(item, src, sep)
		items = append(items, marker+indentRest(body, strings.Repeat(" ", len(marker))))
	}
	return strings.Join(items, "\n")
}

func (r *Renderer) inlines(n ast.Node, src []byte) string {
	var b strings.Builder
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		r.inline(&b, c, src)
	}
	return b.String()
}

func (r *Renderer) inline(b *strings.Builder, n ast.Node, src []byte) {
	switch n := n.(type) {
	case *ast.Text:
		b.Write(n.Segment.Value(src))
		if n.SoftLineBreak() || n.HardLineBreak() {
			b.WriteByte('\n')
		}
	case *ast.String:
		b.Write(n.Value)
	case *ast.CodeSpan:
		b.WriteString(r.code.Sprint(r.inlines(n, src)))
	case *ast.Emphasis:
		if n.Level >= 2 {
			b.WriteString(r.bold.Sprint(r.inlines(n, src)))
		} else {
			b.WriteString(r.italic.Sprint(r.inlines(n, src)))
		}
	case *ast.Link:
		label := r.inlines(n, src)
		dest := string(n.Destination)
		b.WriteString(label)
		if dest != "" && dest != label {
			b.WriteString(" (" + r.link.Sprint(dest) + ")")
		}
	case *ast.AutoLink:
		b.WriteString(r.link.Sprint(string(n.URL(src))))
	case *ast.Image:
		b.WriteString("[image: " + r.inlines(n, src) + "]")
	case *ast.RawHTML:
		for i := 0; i < n.Segments.Len(); i++ {
			seg := n.Segments.At(i)
			b.Write(seg.Value(src))
		}
	default:
		b.WriteString(r.inlines(n, src))
	}
}

func rawLines(n ast.Node, src []byte) []string {
	lines := n.Lines()
	out := make([]string, 0, lines.Len())
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		out = append(out, string(seg.Value(src)))
	}
	return out
}

func prefixLines(s, prefix string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = prefix + line
	}
	return strings.Join(lines, "\n")
}

// indentRest indents every line but the first
func indentRest(s, indent string) string {
	lines := strings.Split(s, "\n")
	for i := 1; i < len(lines); i++ {
		if lines[i] != "" {
			lines[i] = indent + lines[i]
		}
	}
	return strings.Join(lines, "\n")
}
