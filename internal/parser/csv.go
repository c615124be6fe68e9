package parser

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/dgallion1/agentgate/internal/document"
)

// CSVParser handles CSV files. The whole file becomes one table node
// with the first record as its header row; display clipping downstream
// owns the size problem.
type CSVParser struct{}

func (p *CSVParser) Parse(r io.Reader, filename string) ([]document.Node, error) {
	reader := csv.NewReader(r)
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}
	if len(records) == 0 {
		return nil, nil
	}
	return []document.Node{document.Table(records)}, nil
}
