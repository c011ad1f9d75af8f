package tabular

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/kirillkom/khmer-text-classifier/internal/core/domain"
)

// XLSXReader reads the first worksheet of an Excel workbook.
type XLSXReader struct{}

func NewXLSXReader() *XLSXReader {
	return &XLSXReader{}
}

func (r *XLSXReader) Supports(filename string) bool {
	return strings.EqualFold(filepath.Ext(filename), ".xlsx")
}

func (r *XLSXReader) Read(_ context.Context, filename string, body io.Reader) (*domain.Table, error) {
	book, err := excelize.OpenReader(body)
	if err != nil {
		return nil, malformed(filename, err)
	}
	defer func() {
		if err := book.Close(); err != nil {
			slog.Warn("xlsx_close_failed", "filename", filename, "error", err)
		}
	}()

	sheets := book.GetSheetList()
	if len(sheets) == 0 {
		return nil, emptyTable(filename)
	}
	rows, err := book.GetRows(sheets[0])
	if err != nil {
		return nil, malformed(filename, err)
	}

	// Blank rows inside the sheet come back as empty slices and are kept so
	// row numbers match the workbook.
	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil, emptyTable(filename)
	}

	return &domain.Table{Header: rows[0], Rows: rows[1:]}, nil
}
