package pdf

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/kirillkom/khmer-text-classifier/internal/core/domain"
)

// Extractor reads the text layer of a PDF. Scanned documents without one
// come back empty.
type Extractor struct{}

func NewExtractor() *Extractor {
	return &Extractor{}
}

func (e *Extractor) Supports(filename string) bool {
	return strings.EqualFold(filepath.Ext(filename), ".pdf")
}

func (e *Extractor) Extract(_ context.Context, filename string, body io.Reader) (text string, err error) {
	raw, err := io.ReadAll(body)
	if err != nil {
		return "", fmt.Errorf("read source document: %w", err)
	}

	// The parser panics on some malformed cross-reference tables.
	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = invalidPDF(filename, fmt.Errorf("%v", r))
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return "", invalidPDF(filename, err)
	}
	plain, err := reader.GetPlainText()
	if err != nil {
		return "", invalidPDF(filename, err)
	}

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, plain); err != nil {
		return "", fmt.Errorf("read pdf text: %w", err)
	}
	return strings.TrimSpace(buf.String()), nil
}

func invalidPDF(filename string, err error) error {
	return domain.WrapError(
		domain.ErrInvalidInput,
		"extract pdf",
		fmt.Errorf("%s is not a readable PDF: %w", filepath.Base(filename), err),
	)
}
