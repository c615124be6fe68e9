package document

import (
	"fmt"
	"strings"
)

// RenderMarkdown flattens a node sequence into GitHub-flavored markdown.
// Blocks are separated by a single blank line and the result carries no
// leading or trailing whitespace, so rendering the same sequence twice
// yields byte-identical output.
func RenderMarkdown(nodes []Node) string {
	blocks := make([]string, 0, len(nodes))
	for _, n := range nodes {
		if b := renderNode(n); b != "" {
			blocks = append(blocks, b)
		}
	}
	return strings.TrimSpace(strings.Join(blocks, "\n\n"))
}

func renderNode(n Node) string {
	switch n.Kind {
	case KindTitle:
		if n.Text == "" {
			return ""
		}
		return "# " + n.Text
	case KindSectionHeader:
		if n.Text == "" {
			return ""
		}
		level := n.Level
		if level < 1 {
			level = 1
		}
		// Title owns "#", so section levels start one deeper and cap at
		// markdown's six.
		depth := level + 1
		if depth > 6 {
			depth = 6
		}
		return strings.Repeat("#", depth) + " " + n.Text
	case KindParagraph:
		return n.Text
	case KindList:
		return renderList(n)
	case KindTable:
		return renderTable(n.Rows)
	}
	return ""
}

func renderList(n Node) string {
	if len(n.Items) == 0 {
		return ""
	}
	var b strings.Builder
	for i, item := range n.Items {
		if i > 0 {
			b.WriteByte('\n')
		}
		if n.Ordered {
			fmt.Fprintf(&b, "%d. %s", i+1, item)
		} else {
			b.WriteString("- " + item)
		}
	}
	return b.String()
}

// renderTable emits a pipe table. The first row serves as the header
// row whatever its content. Ragged input is tolerated: every row is
// padded with empty cells to the widest row observed, so the table
// stays rectangular.
func renderTable(rows [][]string) string {
	if len(rows) == 0 {
		return ""
	}
	width := 0
	for _, row := range rows {
		if len(row) > width {
			width = len(row)
		}
	}
	if width == 0 {
		return ""
	}

	var b strings.Builder
	writeRow := func(row []string) {
		b.WriteByte('|')
		for i := 0; i < width; i++ {
			cell := ""
			if i < len(row) {
				cell = row[i]
			}
			b.WriteByte(' ')
			b.WriteString(escapeCell(cell))
			b.WriteString(" |")
		}
	}

	writeRow(rows[0])
	b.WriteByte('\n')
	b.WriteByte('|')
	for i := 0; i < width; i++ {
		b.WriteString(" --- |")
	}
	for _, row := range rows[1:] {
		b.WriteByte('\n')
		writeRow(row)
	}
	return b.String()
}

// escapeCell keeps cell text from breaking table geometry.
func escapeCell(s string) string {
	s = strings.ReplaceAll(s, "|", "\\|")
	s = strings.ReplaceAll(s, "\n", " ")
	return s
}
