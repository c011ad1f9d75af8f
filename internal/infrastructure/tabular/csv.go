package tabular

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/kirillkom/khmer-text-classifier/internal/core/domain"
)

// CSVReader parses comma separated uploads. Ragged rows are accepted; missing
// trailing cells read as empty.
type CSVReader struct{}

func NewCSVReader() *CSVReader {
	return &CSVReader{}
}

func (r *CSVReader) Supports(filename string) bool {
	return strings.EqualFold(filepath.Ext(filename), ".csv")
}

func (r *CSVReader) Read(_ context.Context, filename string, body io.Reader) (*domain.Table, error) {
	cr := csv.NewReader(body)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, emptyTable(filename)
	}
	if err != nil {
		return nil, malformed(filename, err)
	}

	table := &domain.Table{Header: header}
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, malformed(filename, err)
		}
		table.Rows = append(table.Rows, record)
	}
	return table, nil
}

func emptyTable(filename string) error {
	return domain.WrapError(domain.ErrInvalidInput, "read table", fmt.Errorf("%s has no header row", filepath.Base(filename)))
}

func malformed(filename string, err error) error {
	return domain.WrapError(domain.ErrInvalidInput, "read table", fmt.Errorf("%s could not be parsed: %w", filepath.Base(filename), err))
}
