package parser

import (
	"bytes"
	"io"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"github.com/dgallion1/agentgate/internal/document"
)

// MarkdownParser handles Markdown files using goldmark.
type MarkdownParser struct{}

func (p *MarkdownParser) Parse(r io.Reader, filename string) ([]document.Node, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	md := goldmark.New()
	doc := md.Parser().Parse(text.NewReader(src))

	var nodes []document.Node
	seenTitle := false

	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		switch node := n.(type) {
		case *ast.Heading:
			title := string(node.Text(src))
			if title == "" {
				continue
			}
			// The document's first top-level heading is its title;
			// every other heading keeps its relative depth.
			if node.Level == 1 && !seenTitle {
				nodes = append(nodes, document.Title(title))
				seenTitle = true
				continue
			}
			nodes = append(nodes, document.Header(node.Level-1, title))
		case *ast.List:
			if items := listItems(node, src); len(items) > 0 {
				nodes = append(nodes, document.List(node.IsOrdered(), items))
			}
		default:
			if t := extractText(n, src); t != "" {
				nodes = append(nodes, document.Paragraph(t))
			}
		}
	}
	return nodes, nil
}

func listItems(list *ast.List, src []byte) []string {
	var items []string
	for li := list.FirstChild(); li != nil; li = li.NextSibling() {
		if t := extractText(li, src); t != "" {
			items = append(items, t)
		}
	}
	return items
}

// extractText gets the text content of a goldmark AST node. Parsed
// blocks hold their content twice, as source lines and again as
// inline Text children; only childless blocks (fenced code, raw
// HTML) are read from their lines.
func extractText(n ast.Node, src []byte) string {
	var buf bytes.Buffer
	if n.Type() == ast.TypeBlock && n.FirstChild() == nil {
		lines := n.Lines()
		for i := 0; i < lines.Len(); i++ {
			line := lines.At(i)
			buf.Write(line.Value(src))
		}
	}
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if t, ok := c.(*ast.Text); ok {
			buf.Write(t.Value(src))
			if t.HardLineBreak() || t.SoftLineBreak() {
				buf.WriteByte('\n')
			}
		} else {
			buf.WriteString(extractText(c, src))
		}
	}
	return strings.TrimSpace(buf.String())
}
