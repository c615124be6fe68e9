package doctags

// CellKind classifies one scanned table token.
type CellKind int

const (
	// RegularCell is an ordinary data cell.
	RegularCell CellKind = iota
	// ColumnHeaderCell was marked as a header by the source stream. The
	// distinction is preserved for fidelity but carries no weight during
	// assembly: header placement in output is positional.
	ColumnHeaderCell
	// LastCellInRow is a source hint that a row is about to end. It is
	// assembled exactly like RegularCell; only RowBreak closes a row.
	LastCellInRow
	// RowBreak closes the current row.
	RowBreak
)

func (k CellKind) String() string {
	switch k {
	case RegularCell:
		return "cell"
	case ColumnHeaderCell:
		return "column_header"
	case LastCellInRow:
		return "last_cell"
	case RowBreak:
		return "row_break"
	}
	return "unknown"
}

// CellToken is one unit of a scanned table region. Text is empty for
// RowBreak tokens and for deliberately empty cells.
type CellToken struct {
	Kind CellKind
	Text string
}

// AssembleTable folds a flat token sequence into a row grid. Every
// RowBreak closes the row being built, empty or not; a trailing
// unterminated row is flushed at the end. Rows are not padded to a
// common width here: raggedness is preserved so no structure is
// invented, and the renderer normalizes geometry.
func AssembleTable(tokens []CellToken) [][]string {
	var rows [][]string
	row := []string{}
	for _, tok := range tokens {
		if tok.Kind == RowBreak {
			rows = append(rows, row)
			row = []string{}
			continue
		}
		row = append(row, tok.Text)
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	return rows
}
