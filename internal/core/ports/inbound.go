package ports

import (
	"context"
	"io"

	"github.com/kirillkom/khmer-text-classifier/internal/core/domain"
)

// TextClassifier is the inbound contract for classify-and-store requests.
type TextClassifier interface {
	ClassifyText(ctx context.Context, text string) (*domain.ClassificationResult, error)
	ClassifyDocumentFile(ctx context.Context, filename string, body io.Reader) (*domain.ClassificationResult, error)
}

// BatchClassifier processes spreadsheet uploads row by row. onRow, when not
// nil, is called after every data row in file order.
type BatchClassifier interface {
	OpenBatch(ctx context.Context, filename string, body io.Reader) (*domain.BatchInput, error)
	RunBatch(ctx context.Context, input *domain.BatchInput, onRow func(domain.BatchProgress)) (*domain.BatchSummary, error)
}

// HistoryReader is the inbound read model for past predictions.
type HistoryReader interface {
	History(ctx context.Context, limit int) ([]domain.HistoryEntry, error)
	HistoryLogs(ctx context.Context, limit int) ([]domain.HistoryLog, error)
}
