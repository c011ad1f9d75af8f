package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/kirillkom/khmer-text-classifier/internal/core/domain"
	"github.com/kirillkom/khmer-text-classifier/internal/core/ports"
)

const statusSuccess = "success"

type ClassifyUseCase struct {
	predictor  ports.Predictor
	repo       ports.DocumentRepository
	events     ports.EventPublisher
	extractors []ports.TextExtractor
}

// NewClassifyUseCase wires the inference pipeline to the store. events may be
// nil when notifications are disabled.
func NewClassifyUseCase(
	predictor ports.Predictor,
	repo ports.DocumentRepository,
	events ports.EventPublisher,
	extractors ...ports.TextExtractor,
) *ClassifyUseCase {
	return &ClassifyUseCase{
		predictor:  predictor,
		repo:       repo,
		events:     events,
		extractors: extractors,
	}
}

func (uc *ClassifyUseCase) ModelVersion() string {
	return uc.predictor.Version()
}

func (uc *ClassifyUseCase) ClassifyText(ctx context.Context, text string) (*domain.ClassificationResult, error) {
	if strings.TrimSpace(text) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "classify text", errors.New("text content is required"))
	}
	if !utf8.ValidString(text) {
		return nil, domain.WrapError(domain.ErrInvalidInput, "classify text", errors.New("text must be valid UTF-8"))
	}

	predictions, err := uc.predictor.Predict(text)
	if err != nil {
		return nil, fmt.Errorf("run inference: %w", err)
	}
	if len(predictions) == 0 {
		return nil, domain.WrapError(domain.ErrModelUnavailable, "run inference", errors.New("model returned no predictions"))
	}
	primary := predictions[0]

	doc, err := uc.repo.Insert(ctx, domain.NewDocument{
		Content:         text,
		CategoryID:      primary.CategoryID,
		ConfidenceScore: primary.Score,
		ModelVersion:    uc.predictor.Version(),
	})
	if err != nil {
		return nil, fmt.Errorf("persist prediction: %w", err)
	}

	uc.publishClassified(ctx, doc, primary)

	return &domain.ClassificationResult{
		Status:          statusSuccess,
		PrimaryCategory: primary.CategoryName,
		TopPredictions:  predictions,
		DocumentID:      doc.ID,
		Timestamp:       doc.CreatedAt,
	}, nil
}

func (uc *ClassifyUseCase) ClassifyDocumentFile(ctx context.Context, filename string, body io.Reader) (*domain.ClassificationResult, error) {
	extractor := uc.extractorFor(filename)
	if extractor == nil {
		return nil, domain.WrapError(
			domain.ErrUnsupportedFormat,
			"classify document",
			fmt.Errorf("%q: upload a .txt or .pdf file", filepath.Base(filename)),
		)
	}

	text, err := extractor.Extract(ctx, filename, body)
	if err != nil {
		return nil, fmt.Errorf("extract text: %w", err)
	}
	if strings.TrimSpace(text) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "classify document", errors.New("document contains no text"))
	}
	return uc.ClassifyText(ctx, text)
}

func (uc *ClassifyUseCase) extractorFor(filename string) ports.TextExtractor {
	for _, e := range uc.extractors {
		if e.Supports(filename) {
			return e
		}
	}
	return nil
}

// Events are notifications; a failed publish never fails the request.
func (uc *ClassifyUseCase) publishClassified(ctx context.Context, doc *domain.Document, primary domain.Prediction) {
	if uc.events == nil {
		return
	}
	err := uc.events.PublishDocumentClassified(ctx, domain.ClassifiedEvent{
		DocumentID:      doc.ID,
		CategoryID:      primary.CategoryID,
		CategoryName:    primary.CategoryName,
		ConfidenceScore: primary.Score,
		ModelVersion:    doc.ModelVersion,
		CreatedAt:       doc.CreatedAt,
	})
	if err != nil {
		slog.Warn("classified_event_publish_failed", "document_id", doc.ID, "error", err)
	}
}
