package storage

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// CSVReader reads CSV files of any known schema. Ragged rows and stray
// quotes are tolerated; schema detection happens per row downstream.
type CSVReader struct{}

// NewCSVReader creates a CSVReader.
func NewCSVReader() *CSVReader { return &CSVReader{} }

// ReadTable returns every row of the file at path, with a leading UTF-8 BOM
// removed.
func (r *CSVReader) ReadTable(path string) ([][]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("csv: read %q: %w", path, err)
	}
	data = bytes.TrimPrefix(data, utf8BOM)

	cr := csv.NewReader(bytes.NewReader(data))
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("csv: parse %q: %w", path, err)
	}
	return rows, nil
}
