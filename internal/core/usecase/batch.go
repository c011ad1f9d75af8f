package usecase

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/kirillkom/khmer-text-classifier/internal/core/domain"
	"github.com/kirillkom/khmer-text-classifier/internal/core/ports"
)

var textColumnNames = []string{"text", "content"}

type BatchUseCase struct {
	classifier ports.TextClassifier
	readers    []ports.TableReader
	archive    ports.ObjectStorage
}

// NewBatchUseCase builds the spreadsheet pipeline. archive may be nil.
func NewBatchUseCase(classifier ports.TextClassifier, archive ports.ObjectStorage, readers ...ports.TableReader) *BatchUseCase {
	return &BatchUseCase{
		classifier: classifier,
		readers:    readers,
		archive:    archive,
	}
}

// OpenBatch parses and validates an upload without classifying anything, so
// callers can reject bad files before committing to a response format. Only
// uploads that pass validation are archived.
func (uc *BatchUseCase) OpenBatch(ctx context.Context, filename string, body io.Reader) (*domain.BatchInput, error) {
	input, raw, err := uc.parseUpload(ctx, "open batch", filename, body)
	if err != nil {
		return nil, err
	}
	input.ArchiveKey = uc.archiveUpload(ctx, filename, raw)
	return input, nil
}

// OpenArchived re-reads an upload saved by OpenBatch so it can be classified
// again. The key carries the original extension.
func (uc *BatchUseCase) OpenArchived(ctx context.Context, key string) (*domain.BatchInput, error) {
	if uc.archive == nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "open archived batch", errors.New("upload archive is not configured"))
	}
	rc, err := uc.archive.Open(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("open archived upload %q: %w", key, err)
	}
	defer rc.Close()

	input, _, err := uc.parseUpload(ctx, "open archived batch", key, rc)
	if err != nil {
		return nil, err
	}
	input.ArchiveKey = key
	return input, nil
}

func (uc *BatchUseCase) parseUpload(ctx context.Context, op, filename string, body io.Reader) (*domain.BatchInput, []byte, error) {
	reader := uc.readerFor(filename)
	if reader == nil {
		return nil, nil, domain.WrapError(
			domain.ErrUnsupportedFormat,
			op,
			fmt.Errorf("%q: upload a .xlsx or .csv file", filepath.Base(filename)),
		)
	}

	raw, err := io.ReadAll(body)
	if err != nil {
		return nil, nil, fmt.Errorf("read upload: %w", err)
	}
	if len(raw) == 0 {
		return nil, nil, domain.WrapError(domain.ErrInvalidInput, op, errors.New("uploaded file is empty"))
	}

	table, err := reader.Read(ctx, filename, bytes.NewReader(raw))
	if err != nil {
		return nil, nil, fmt.Errorf("parse upload: %w", err)
	}

	col := findTextColumn(table.Header)
	if col < 0 {
		return nil, nil, domain.WrapError(
			domain.ErrInvalidInput,
			op,
			errors.New("no text column found: expected a column named 'text' or 'content'"),
		)
	}

	input := &domain.BatchInput{
		Filename: filepath.Base(filename),
		Column:   strings.TrimSpace(table.Header[col]),
		Rows:     make([]domain.BatchRow, 0, len(table.Rows)),
	}
	for i, cells := range table.Rows {
		text := ""
		if col < len(cells) {
			text = cells[col]
		}
		input.Rows = append(input.Rows, domain.BatchRow{Number: i + 1, Text: text})
	}
	return input, raw, nil
}

// RunBatch classifies rows in file order. Row failures are recorded and the
// loop continues; only context cancellation stops it early.
func (uc *BatchUseCase) RunBatch(ctx context.Context, input *domain.BatchInput, onRow func(domain.BatchProgress)) (*domain.BatchSummary, error) {
	summary := &domain.BatchSummary{
		Filename:  input.Filename,
		TotalRows: len(input.Rows),
		Results:   make([]domain.BatchRowResult, 0, len(input.Rows)),
	}

	for i, row := range input.Rows {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		result := uc.classifyRow(ctx, input.Filename, row)
		summary.Record(result)
		if onRow != nil {
			onRow(domain.BatchProgress{
				Index:     i + 1,
				Total:     summary.TotalRows,
				Processed: summary.ProcessedCount,
				Result:    result,
			})
		}
	}
	return summary, nil
}

func (uc *BatchUseCase) classifyRow(ctx context.Context, filename string, row domain.BatchRow) domain.BatchRowResult {
	result := domain.BatchRowResult{Row: row.Number}
	switch {
	case !utf8.ValidString(row.Text):
		result.Status = domain.RowSkipped
		result.Error = "unparsable text"
		return result
	case strings.TrimSpace(row.Text) == "":
		result.Status = domain.RowSkipped
		result.Error = "empty text"
		return result
	}

	res, err := uc.classifier.ClassifyText(ctx, row.Text)
	if err != nil {
		slog.Error("batch_row_failed", "filename", filename, "row", row.Number, "error", err)
		result.Status = domain.RowFailed
		result.Error = "classification failed"
		return result
	}

	result.Status = domain.RowClassified
	result.DocumentID = res.DocumentID
	result.PrimaryCategory = res.PrimaryCategory
	result.TopPredictions = res.TopPredictions
	return result
}

func (uc *BatchUseCase) readerFor(filename string) ports.TableReader {
	for _, r := range uc.readers {
		if r.Supports(filename) {
			return r
		}
	}
	return nil
}

// archiveUpload returns the stored key, or "" when archiving is off or failed.
func (uc *BatchUseCase) archiveUpload(ctx context.Context, filename string, raw []byte) string {
	if uc.archive == nil {
		return ""
	}
	key := fmt.Sprintf("%s_%s", uuid.NewString(), sanitizeFilename(filename))
	if err := uc.archive.Save(ctx, key, bytes.NewReader(raw)); err != nil {
		slog.Warn("batch_archive_failed", "filename", filename, "error", err)
		return ""
	}
	slog.Info("batch_archived", "filename", filename, "archive_key", key)
	return key
}

func findTextColumn(header []string) int {
	for i, name := range header {
		name = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
		for _, want := range textColumnNames {
			if strings.EqualFold(name, want) {
				return i
			}
		}
	}
	return -1
}

func sanitizeFilename(name string) string {
	base := filepath.Base(name)
	base = strings.ReplaceAll(base, " ", "_")
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r
		case r >= 'A' && r <= 'Z':
			return r
		case r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, base)
	if base == "" || base == "." {
		return "upload.bin"
	}
	return base
}
