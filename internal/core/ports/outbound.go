package ports

import (
	"context"
	"io"

	"github.com/kirillkom/khmer-text-classifier/internal/core/domain"
)

// Predictor runs the fixed inference pipeline.
type Predictor interface {
	Predict(text string) ([]domain.Prediction, error)
	Version() string
}

// DocumentRepository persists predictions and reads them back.
type DocumentRepository interface {
	Insert(ctx context.Context, doc domain.NewDocument) (*domain.Document, error)
	ListLatest(ctx context.Context, limit int) ([]domain.Document, error)
	ListHistoryLogs(ctx context.Context, limit int) ([]domain.HistoryLog, error)
	Ping(ctx context.Context) error
}

// EventPublisher announces committed classifications.
type EventPublisher interface {
	PublishDocumentClassified(ctx context.Context, event domain.ClassifiedEvent) error
}

// ObjectStorage archives raw uploads.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// TextExtractor pulls plain text out of an uploaded document.
type TextExtractor interface {
	Supports(filename string) bool
	Extract(ctx context.Context, filename string, body io.Reader) (string, error)
}

// TableReader parses a spreadsheet into header plus data rows.
type TableReader interface {
	Supports(filename string) bool
	Read(ctx context.Context, filename string, body io.Reader) (*domain.Table, error)
}
