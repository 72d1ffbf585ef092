// Package export renders tabular school documents such as broadsheets and
// class fee statements into downloadable files.
package export

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
)

// ErrNoColumns is returned when a dataset has no headers to lay out.
var ErrNoColumns = errors.New("export: dataset has no columns")

// Dataset is one table. Rows are keyed by header; missing keys render empty.
// Footer lines follow the table, one per line.
type Dataset struct {
	Title   string
	Headers []string
	Rows    []map[string]string
	Footer  []string
}

// cells returns the rows in header order.
func (d Dataset) cells() [][]string {
	out := make([][]string, len(d.Rows))
	for i, row := range d.Rows {
		line := make([]string, len(d.Headers))
		for j, h := range d.Headers {
			line[j] = row[h]
		}
		out[i] = line
	}
	return out
}

// Renderer encodes a dataset in one file format.
type Renderer interface {
	Render(data Dataset) ([]byte, error)
	ContentType() string
	Extension() string
}

// CSVExporter writes the header row, the body and then each footer line as
// a single-cell record. The title is not part of the CSV.
type CSVExporter struct{}

func NewCSVExporter() *CSVExporter { return &CSVExporter{} }

func (*CSVExporter) ContentType() string { return "text/csv" }

func (*CSVExporter) Extension() string { return "csv" }

func (*CSVExporter) Render(data Dataset) ([]byte, error) {
	if len(data.Headers) == 0 {
		return nil, ErrNoColumns
	}
	records := make([][]string, 0, 1+len(data.Rows)+len(data.Footer))
	records = append(records, data.Headers)
	records = append(records, data.cells()...)
	for _, line := range data.Footer {
		records = append(records, []string{line})
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	// WriteAll flushes and reports the first write error.
	if err := w.WriteAll(records); err != nil {
		return nil, fmt.Errorf("export: encode csv %q: %w", data.Title, err)
	}
	return buf.Bytes(), nil
}
