package usecase

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/kirillkom/khmer-text-classifier/internal/core/domain"
)

type predictorFake struct {
	calls int
	preds []domain.Prediction
	err   error
}

func (f *predictorFake) Predict(string) ([]domain.Prediction, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.preds, nil
}

func (f *predictorFake) Version() string { return "v-test" }

func defaultPredictions() []domain.Prediction {
	return []domain.Prediction{
		{CategoryID: 5, CategoryName: "Sport", Score: 1.7},
		{CategoryID: 2, CategoryName: "Entertainment", Score: 0.2},
		{CategoryID: 4, CategoryName: "Life", Score: -0.4},
	}
}

type repoFake struct {
	mu       sync.Mutex
	nextID   int64
	inserted []domain.NewDocument
	failOn   map[string]bool
	docs     []domain.Document
	logs     []domain.HistoryLog
	limits   []int
	err      error
}

func (f *repoFake) Insert(_ context.Context, doc domain.NewDocument) (*domain.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil || f.failOn[doc.Content] {
		return nil, errors.New("insert failed")
	}
	f.nextID++
	f.inserted = append(f.inserted, doc)
	return &domain.Document{
		ID:              f.nextID,
		Content:         doc.Content,
		CategoryID:      doc.CategoryID,
		ConfidenceScore: doc.ConfidenceScore,
		ModelVersion:    doc.ModelVersion,
		CreatedAt:       time.Date(2026, 10, 19, 0, 0, int(f.nextID), 0, time.UTC),
	}, nil
}

func (f *repoFake) ListLatest(_ context.Context, limit int) ([]domain.Document, error) {
	f.limits = append(f.limits, limit)
	if f.err != nil {
		return nil, f.err
	}
	if limit < len(f.docs) {
		return f.docs[:limit], nil
	}
	return f.docs, nil
}

func (f *repoFake) ListHistoryLogs(_ context.Context, limit int) ([]domain.HistoryLog, error) {
	f.limits = append(f.limits, limit)
	if f.err != nil {
		return nil, f.err
	}
	return f.logs, nil
}

func (f *repoFake) Ping(context.Context) error { return f.err }

type eventsFake struct {
	events []domain.ClassifiedEvent
	err    error
}

func (f *eventsFake) PublishDocumentClassified(_ context.Context, event domain.ClassifiedEvent) error {
	f.events = append(f.events, event)
	return f.err
}

type extractorFake struct {
	ext  string
	text string
	err  error
}

func (f *extractorFake) Supports(filename string) bool {
	return strings.EqualFold(filepath.Ext(filename), f.ext)
}

func (f *extractorFake) Extract(context.Context, string, io.Reader) (string, error) {
	return f.text, f.err
}

type tableReaderFake struct {
	table *domain.Table
	err   error
}

func (f *tableReaderFake) Supports(filename string) bool {
	return strings.EqualFold(filepath.Ext(filename), ".csv")
}

func (f *tableReaderFake) Read(context.Context, string, io.Reader) (*domain.Table, error) {
	return f.table, f.err
}

type storageFake struct {
	keys   []string
	bodies []string
}

func (f *storageFake) Save(_ context.Context, key string, data io.Reader) error {
	raw, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	f.keys = append(f.keys, key)
	f.bodies = append(f.bodies, string(raw))
	return nil
}

func (f *storageFake) Open(_ context.Context, key string) (io.ReadCloser, error) {
	for i, k := range f.keys {
		if k == key {
			return io.NopCloser(strings.NewReader(f.bodies[i])), nil
		}
	}
	return nil, errors.New("not found")
}
