// Package doctags parses the tag-delimited document markup emitted by
// vision-language models into a flat sequence of document nodes. The
// format wraps content in lowercase markers such as <title>,
// <section_header_level_2>, <text>, <otsl> table regions and
// <unordered_list> blocks, interleaved with location tokens and other
// noise the parser must tolerate.
//
// Parsing never fails: malformed, truncated or unknown markup degrades
// to best-effort structure, and text that belongs to no recognized
// region is kept as paragraph content rather than dropped.
package doctags

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/dgallion1/agentgate/internal/document"
)

// markerClass is the structural role of a recognized marker name.
type markerClass int

const (
	markerUnknown markerClass = iota
	markerWrapper
	markerTitle
	markerHeader
	markerParagraph
	markerUnorderedList
	markerOrderedList
	markerListItem
	markerTable
	markerHeaderCell
	markerCell
	markerLastCell
	markerRowBreak
)

// vocabulary maps marker names to their structural class. Adding a new
// marker from an upstream model is a table entry, not a parser change.
// Section headers carry a numeric level suffix and are matched by
// prefix instead, see classify.
var vocabulary = map[string]markerClass{
	"doctag":         markerWrapper,
	"title":          markerTitle,
	"heading":        markerHeader,
	"section_header": markerHeader,
	"text":           markerParagraph,
	"paragraph":      markerParagraph,
	"unordered_list": markerUnorderedList,
	"ordered_list":   markerOrderedList,
	"list_item":      markerListItem,
	"table":          markerTable,
	"otsl":           markerTable,
	"ched":           markerHeaderCell,
	"fcel":           markerCell,
	"ecel":           markerCell,
	"cell":           markerCell,
	"lcel":           markerLastCell,
	"nl":             markerRowBreak,
}

const headerPrefix = "section_header_level_"

// maxMarkerLen bounds the lookahead when scanning a candidate marker.
// The longest real marker name is section_header_level_N.
const maxMarkerLen = 32

func classify(name string) (markerClass, int) {
	if c, ok := vocabulary[name]; ok {
		if c == markerHeader {
			return c, 1
		}
		return c, 0
	}
	if strings.HasPrefix(name, headerPrefix) {
		return markerHeader, headerLevel(name)
	}
	return markerUnknown, 0
}

// headerLevel reads the numeric suffix of a section header marker.
// Missing or out-of-range levels fall back to 1.
func headerLevel(name string) int {
	n, err := strconv.Atoi(strings.TrimPrefix(name, headerPrefix))
	if err != nil || n < 1 || n > 6 {
		return 1
	}
	return n
}

type marker struct {
	name    string
	closing bool
}

// scanMarker reads a marker at raw[i], which must be '<'. A marker is
// '<', an optional '/', one or more of [a-z0-9_], then '>'. Anything
// else, an uppercase name, an attribute, a bare '<', is not a marker
// and stays literal text.
func scanMarker(raw string, i int) (marker, int, bool) {
	j := i + 1
	var m marker
	if j < len(raw) && raw[j] == '/' {
		m.closing = true
		j++
	}
	start := j
	for j < len(raw) && j-start < maxMarkerLen && isMarkerChar(raw[j]) {
		j++
	}
	if j == start || j >= len(raw) || raw[j] != '>' {
		return marker{}, 0, false
	}
	m.name = raw[start:j]
	return m, j + 1, true
}

func isMarkerChar(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= '0' && c <= '9' || c == '_'
}

type mode int

const (
	modeDefault mode = iota
	modeInTable
	modeInList
)

// pendingKind says what the default-mode accumulator will flush to.
type pendingKind int

const (
	pendingImplicit pendingKind = iota
	pendingTitle
	pendingHeader
	pendingParagraph
)

type parser struct {
	nodes []document.Node
	mode  mode

	// Universal text accumulator. Its meaning depends on mode: pending
	// node text in default mode, the open list item in list mode, the
	// open cell in table mode.
	buf     strings.Builder
	pending pendingKind
	level   int

	ordered  bool
	items    []string
	itemOpen bool

	tokens   []CellToken
	cellKind CellKind
	cellOpen bool
}

// Parse converts a raw tag stream into an ordered node sequence. It is
// a single pass with no backtracking and it never returns an error:
// whatever structure can be recovered is returned, and unrecognized
// content survives as paragraph text.
func Parse(raw string) []document.Node {
	p := &parser{}
	i := 0
	for i < len(raw) {
		if raw[i] == '<' {
			if m, end, ok := scanMarker(raw, i); ok {
				p.marker(m)
				i = end
				continue
			}
			p.buf.WriteByte('<')
			i++
			continue
		}
		next := strings.IndexByte(raw[i:], '<')
		if next < 0 {
			p.buf.WriteString(raw[i:])
			break
		}
		p.buf.WriteString(raw[i : i+next])
		i += next
	}
	p.finish()
	return p.nodes
}

func (p *parser) marker(m marker) {
	class, level := classify(m.name)
	switch p.mode {
	case modeInTable:
		p.tableMarker(m, class, level)
	case modeInList:
		p.listMarker(m, class, level)
	default:
		p.defaultMarker(m, class, level)
	}
}

func (p *parser) defaultMarker(m marker, class markerClass, level int) {
	switch class {
	case markerTitle:
		p.flushText()
		if !m.closing {
			p.pending = pendingTitle
		}
	case markerHeader:
		p.flushText()
		if !m.closing {
			p.pending = pendingHeader
			p.level = level
		}
	case markerParagraph:
		p.flushText()
		if !m.closing {
			p.pending = pendingParagraph
		}
	case markerUnorderedList, markerOrderedList:
		p.flushText()
		if !m.closing {
			p.mode = modeInList
			p.ordered = class == markerOrderedList
			p.items = nil
			p.itemOpen = false
		}
	case markerListItem:
		// Item with no surrounding list marker: open an implicit
		// unordered list around it.
		p.flushText()
		if !m.closing {
			p.mode = modeInList
			p.ordered = false
			p.items = nil
			p.itemOpen = true
		}
	case markerTable:
		p.flushText()
		if !m.closing {
			p.mode = modeInTable
			p.tokens = nil
			p.cellOpen = false
		}
	}
	// Unknown markers, the stream wrapper and stray cell markers are
	// skipped; surrounding text keeps accumulating across them.
}

func (p *parser) listMarker(m marker, class markerClass, level int) {
	switch class {
	case markerListItem:
		p.flushItem()
		p.itemOpen = !m.closing
	case markerUnorderedList, markerOrderedList:
		p.closeList()
		if !m.closing {
			p.mode = modeInList
			p.ordered = class == markerOrderedList
		}
	case markerTitle, markerHeader, markerParagraph, markerTable:
		// Structural marker inside an unterminated list closes the
		// list; default mode takes it from there.
		p.closeList()
		p.defaultMarker(m, class, level)
	}
}

func (p *parser) tableMarker(m marker, class markerClass, level int) {
	switch class {
	case markerHeaderCell:
		p.flushCell()
		if !m.closing {
			p.cellOpen = true
			p.cellKind = ColumnHeaderCell
		}
	case markerCell:
		p.flushCell()
		if !m.closing {
			p.cellOpen = true
			p.cellKind = RegularCell
		}
	case markerLastCell:
		p.flushCell()
		if !m.closing {
			p.cellOpen = true
			p.cellKind = LastCellInRow
		}
	case markerRowBreak:
		p.flushCell()
		p.tokens = append(p.tokens, CellToken{Kind: RowBreak})
	case markerTable:
		p.closeTable()
		if !m.closing {
			p.mode = modeInTable
		}
	case markerTitle, markerHeader, markerParagraph, markerUnorderedList, markerOrderedList, markerListItem:
		p.closeTable()
		p.defaultMarker(m, class, level)
	}
}

// flushText emits the default-mode accumulator as its pending node
// kind. Text that belongs to no recognized region is split on blank
// lines into implicit paragraphs.
func (p *parser) flushText() {
	text := strings.TrimSpace(p.buf.String())
	p.buf.Reset()
	kind := p.pending
	p.pending = pendingImplicit
	if text == "" {
		return
	}
	switch kind {
	case pendingTitle:
		p.nodes = append(p.nodes, document.Title(text))
	case pendingHeader:
		p.nodes = append(p.nodes, document.Header(p.level, text))
	case pendingParagraph:
		p.nodes = append(p.nodes, document.Paragraph(text))
	default:
		for _, para := range splitParagraphs(text) {
			p.nodes = append(p.nodes, document.Paragraph(para))
		}
	}
}

func (p *parser) flushItem() {
	text := strings.TrimSpace(p.buf.String())
	p.buf.Reset()
	p.itemOpen = false
	if text != "" {
		p.items = append(p.items, text)
	}
}

func (p *parser) closeList() {
	p.flushItem()
	if len(p.items) > 0 {
		p.nodes = append(p.nodes, document.List(p.ordered, p.items))
	}
	p.items = nil
	p.mode = modeDefault
}

// flushCell emits the open cell, keeping empty cells so table geometry
// survives. Text with no cell marker around it still becomes a cell:
// content inside a table region is never dropped.
func (p *parser) flushCell() {
	text := strings.TrimSpace(p.buf.String())
	p.buf.Reset()
	open := p.cellOpen
	p.cellOpen = false
	if !open && text == "" {
		return
	}
	kind := RegularCell
	if open {
		kind = p.cellKind
	}
	p.tokens = append(p.tokens, CellToken{Kind: kind, Text: text})
}

func (p *parser) closeTable() {
	p.flushCell()
	if rows := AssembleTable(p.tokens); len(rows) > 0 {
		p.nodes = append(p.nodes, document.Table(rows))
	}
	p.tokens = nil
	p.mode = modeDefault
}

// finish flushes whatever the stream left open so end-of-input loses
// nothing.
func (p *parser) finish() {
	switch p.mode {
	case modeInTable:
		p.closeTable()
	case modeInList:
		p.closeList()
	default:
		p.flushText()
	}
}

var blankLine = regexp.MustCompile(`\n[ \t]*\n`)

func splitParagraphs(text string) []string {
	var out []string
	for _, part := range blankLine.Split(text, -1) {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
