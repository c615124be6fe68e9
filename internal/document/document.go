package document

import "strings"

// Kind identifies the structural role of a Node.
type Kind int

const (
	KindTitle Kind = iota
	KindSectionHeader
	KindParagraph
	KindList
	KindTable
)

func (k Kind) String() string {
	switch k {
	case KindTitle:
		return "title"
	case KindSectionHeader:
		return "section_header"
	case KindParagraph:
		return "paragraph"
	case KindList:
		return "list"
	case KindTable:
		return "table"
	}
	return "unknown"
}

// Node is one block of a parsed document. Which fields are meaningful
// depends on Kind: Text for titles, headers and paragraphs; Level for
// headers (1..6, 1 heaviest); Ordered and Items for lists; Rows for
// tables. A document is an ordered sequence of Nodes, produced in a
// single parse pass and discarded after rendering.
type Node struct {
	Kind    Kind
	Text    string
	Level   int
	Ordered bool
	Items   []string

	// Rows may be ragged: malformed input yields rows of uneven width,
	// which are tolerated here and padded at render time.
	Rows [][]string
}

// Title returns a title node.
func Title(text string) Node {
	return Node{Kind: KindTitle, Text: text}
}

// Header returns a section header node. Levels outside 1..6 are clamped to 1.
func Header(level int, text string) Node {
	if level < 1 || level > 6 {
		level = 1
	}
	return Node{Kind: KindSectionHeader, Level: level, Text: text}
}

// Paragraph returns a paragraph node.
func Paragraph(text string) Node {
	return Node{Kind: KindParagraph, Text: text}
}

// List returns a list node.
func List(ordered bool, items []string) Node {
	return Node{Kind: KindList, Ordered: ordered, Items: items}
}

// Table returns a table node.
func Table(rows [][]string) Node {
	return Node{Kind: KindTable, Rows: rows}
}

// PlainText flattens a node sequence to its bare text content, in
// order, with no markdown structure. Useful for checking what content
// survived a parse.
func PlainText(nodes []Node) string {
	var parts []string
	for _, n := range nodes {
		switch n.Kind {
		case KindTitle, KindSectionHeader, KindParagraph:
			if n.Text != "" {
				parts = append(parts, n.Text)
			}
		case KindList:
			parts = append(parts, n.Items...)
		case KindTable:
			for _, row := range n.Rows {
				for _, cell := range row {
					if cell != "" {
						parts = append(parts, cell)
					}
				}
			}
		}
	}
	return strings.Join(parts, "\n")
}
