package httpadapter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/kirillkom/khmer-text-classifier/internal/config"
	"github.com/kirillkom/khmer-text-classifier/internal/core/domain"
	"github.com/kirillkom/khmer-text-classifier/internal/core/usecase"
	"github.com/kirillkom/khmer-text-classifier/internal/infrastructure/tabular"
	"github.com/kirillkom/khmer-text-classifier/internal/observability/metrics"
)

type classifierFake struct {
	err   error
	texts []string
}

func (f *classifierFake) ClassifyText(_ context.Context, text string) (*domain.ClassificationResult, error) {
	if strings.TrimSpace(text) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "classify text", errors.New("text content is required"))
	}
	if f.err != nil {
		return nil, f.err
	}
	f.texts = append(f.texts, text)
	return &domain.ClassificationResult{
		Status:          "success",
		PrimaryCategory: "Sport",
		TopPredictions: []domain.Prediction{
			{CategoryID: 5, CategoryName: "Sport", Score: 1.2},
			{CategoryID: 1, CategoryName: "Economic", Score: 0.1},
			{CategoryID: 3, CategoryName: "Politic", Score: -0.3},
		},
		DocumentID: int64(len(f.texts)),
		Timestamp:  time.Date(2026, 10, 19, 10, 0, 0, 0, time.UTC),
	}, nil
}

func (f *classifierFake) ClassifyDocumentFile(ctx context.Context, filename string, body io.Reader) (*domain.ClassificationResult, error) {
	if !strings.HasSuffix(filename, ".txt") {
		return nil, domain.WrapError(domain.ErrUnsupportedFormat, "classify document", errors.New("upload a .txt or .pdf file"))
	}
	raw, err := io.ReadAll(body)
	if err != nil {
		return nil, err
	}
	return f.ClassifyText(ctx, string(raw))
}

type historyFake struct {
	limits  []int
	entries []domain.HistoryEntry
	err     error
}

func (f *historyFake) History(_ context.Context, limit int) ([]domain.HistoryEntry, error) {
	f.limits = append(f.limits, limit)
	return f.entries, f.err
}

func (f *historyFake) HistoryLogs(_ context.Context, limit int) ([]domain.HistoryLog, error) {
	f.limits = append(f.limits, limit)
	if f.err != nil {
		return nil, f.err
	}
	return []domain.HistoryLog{{ID: 1, DocumentID: 7, ActionType: domain.ActionPrediction, Category: "Life"}}, nil
}

func testConfig() config.Config {
	return config.Config{
		HistoryDefaultLimit: 10,
		HistoryMaxLimit:     100,
		MaxUploadBytes:      1 << 20,
		CORSAllowedOrigins:  []string{"*"},
	}
}

func newTestHandler(cfg config.Config, classifier *classifierFake, history *historyFake) http.Handler {
	if classifier == nil {
		classifier = &classifierFake{}
	}
	if history == nil {
		history = &historyFake{}
	}
	batch := usecase.NewBatchUseCase(classifier, nil, tabular.NewCSVReader(), tabular.NewXLSXReader())
	return NewRouter(cfg, classifier, batch, history, "v1.0.0", metrics.NewHTTPServerMetrics("api")).Handler()
}

func multipartRequest(t *testing.T, target, filename, content string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := io.WriteString(part, content); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, target, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func decodeBody[T any](t *testing.T, res *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v (body=%q)", err, res.Body.String())
	}
	return out
}

func TestHealth(t *testing.T) {
	handler := newTestHandler(testConfig(), nil, nil)
	for _, path := range []string{"/health", "/healthz"} {
		res := httptest.NewRecorder()
		handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, path, nil))
		if res.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d", path, res.Code)
		}
		body := decodeBody[map[string]string](t, res)
		if body["status"] != "healthy" || body["model"] != "v1.0.0" {
			t.Fatalf("%s: unexpected body %v", path, body)
		}
		if res.Header().Get(requestIDHeader) == "" {
			t.Fatalf("expected request id header")
		}
	}
}

func TestClassifyFromQueryParameter(t *testing.T) {
	classifier := &classifierFake{}
	handler := newTestHandler(testConfig(), classifier, nil)

	req := httptest.NewRequest(http.MethodPost, "/classify?content=%E1%9E%80%E1%9E%B8%E1%9E%A1%E1%9E%B6", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}
	got := decodeBody[domain.ClassificationResult](t, res)
	if got.Status != "success" || got.PrimaryCategory != "Sport" || len(got.TopPredictions) != 3 {
		t.Fatalf("unexpected result: %+v", got)
	}
	if len(classifier.texts) != 1 || classifier.texts[0] != "កីឡា" {
		t.Fatalf("unexpected classified texts: %q", classifier.texts)
	}
}

func TestClassifyFromJSONBody(t *testing.T) {
	classifier := &classifierFake{}
	handler := newTestHandler(testConfig(), classifier, nil)

	req := httptest.NewRequest(http.MethodPost, "/classify", strings.NewReader(`{"text":"hello"}`))
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}
	if len(classifier.texts) != 1 || classifier.texts[0] != "hello" {
		t.Fatalf("unexpected classified texts: %q", classifier.texts)
	}
}

func TestClassifyRejectsEmptyText(t *testing.T) {
	handler := newTestHandler(testConfig(), nil, nil)

	for _, req := range []*http.Request{
		httptest.NewRequest(http.MethodPost, "/classify?content=%20%20", nil),
		httptest.NewRequest(http.MethodPost, "/classify", nil),
	} {
		res := httptest.NewRecorder()
		handler.ServeHTTP(res, req)
		if res.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", res.Code)
		}
		if body := decodeBody[errorBody](t, res); body.Error != "text content is required" {
			t.Fatalf("unexpected error message %q", body.Error)
		}
	}
}

func TestClassifyRejectsMalformedJSON(t *testing.T) {
	handler := newTestHandler(testConfig(), nil, nil)
	req := httptest.NewRequest(http.MethodPost, "/classify", strings.NewReader(`{"text":`))
	req.Header.Set("Content-Type", "application/json")
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
}

func TestClassifyHidesInternalErrors(t *testing.T) {
	handler := newTestHandler(testConfig(), &classifierFake{err: errors.New("pq: relation documents does not exist")}, nil)

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodPost, "/classify?content=x", nil))

	if res.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", res.Code)
	}
	if body := decodeBody[errorBody](t, res); body.Error != msgClassifyFailed {
		t.Fatalf("expected generic message, got %q", body.Error)
	}
}

func TestClassifyMapsTemporaryTo503(t *testing.T) {
	err := domain.WrapError(domain.ErrTemporary, "insert", errors.New("connection reset"))
	handler := newTestHandler(testConfig(), &classifierFake{err: err}, nil)

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodPost, "/classify?content=x", nil))
	if res.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", res.Code)
	}
}

func TestClassifyRejectsWrongMethod(t *testing.T) {
	handler := newTestHandler(testConfig(), nil, nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/classify?content=x", nil))
	if res.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", res.Code)
	}
}

func TestClassifyDocument(t *testing.T) {
	classifier := &classifierFake{}
	handler := newTestHandler(testConfig(), classifier, nil)

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, multipartRequest(t, "/classify/document", "news.txt", "ព័ត៌មាន"))
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}

	res = httptest.NewRecorder()
	handler.ServeHTTP(res, multipartRequest(t, "/classify/document", "news.docx", "x"))
	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unsupported format, got %d", res.Code)
	}

	res = httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodPost, "/classify/document", strings.NewReader("no multipart")))
	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without file field, got %d", res.Code)
	}
}

func TestUploadTooLargeReturns413(t *testing.T) {
	cfg := testConfig()
	cfg.MaxUploadBytes = 512
	handler := newTestHandler(cfg, nil, nil)

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, multipartRequest(t, "/classify/batch", "rows.csv", "text\n"+strings.Repeat("x", 4096)))
	if res.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d: %s", res.Code, res.Body.String())
	}
}

func TestClassifyBatch(t *testing.T) {
	classifier := &classifierFake{}
	handler := newTestHandler(testConfig(), classifier, nil)

	csv := "id,Content\n1,first\n2,\n3,second\n4,   \n5,third\n"
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, multipartRequest(t, "/classify/batch", "news.csv", csv))

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}
	summary := decodeBody[domain.BatchSummary](t, res)
	if summary.TotalRows != 5 || summary.ProcessedCount != 3 || summary.SkippedCount != 2 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if summary.Filename != "news.csv" || len(summary.Results) != 5 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
}

func TestClassifyBatchValidation(t *testing.T) {
	handler := newTestHandler(testConfig(), nil, nil)

	tests := []struct {
		name     string
		filename string
		content  string
		message  string
	}{
		{name: "missing column", filename: "rows.csv", content: "title,body\na,b\n", message: "no text column found: expected a column named 'text' or 'content'"},
		{name: "unsupported", filename: "rows.json", content: "[]"},
		{name: "empty", filename: "rows.csv", content: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := httptest.NewRecorder()
			handler.ServeHTTP(res, multipartRequest(t, "/classify/batch", tt.filename, tt.content))
			if res.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d: %s", res.Code, res.Body.String())
			}
			body := decodeBody[errorBody](t, res)
			if tt.message != "" && body.Error != tt.message {
				t.Fatalf("unexpected message %q", body.Error)
			}
		})
	}
}

func TestClassifyBatchStreamEmitsProgressPerRow(t *testing.T) {
	handler := newTestHandler(testConfig(), &classifierFake{}, nil)

	csv := "text\none\n\ntwo\nthree\n"
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, multipartRequest(t, "/classify/batch/stream", "rows.csv", csv))

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}
	if ct := res.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("unexpected content type %q", ct)
	}

	frames := strings.Split(strings.TrimSpace(res.Body.String()), "\n\n")
	// encoding/csv drops the blank line, so three data rows remain.
	if len(frames) != 4 {
		t.Fatalf("expected 3 progress + 1 complete frames, got %d:\n%s", len(frames), res.Body.String())
	}
	for i, frame := range frames[:3] {
		if !strings.HasPrefix(frame, "event: progress\ndata: ") {
			t.Fatalf("frame %d is not a progress event: %q", i, frame)
		}
		var p progressPayload
		if err := json.Unmarshal([]byte(strings.TrimPrefix(frame, "event: progress\ndata: ")), &p); err != nil {
			t.Fatalf("decode progress %d: %v", i, err)
		}
		if p.Index != i+1 || p.Total != 3 || p.Row.Status != domain.RowClassified {
			t.Fatalf("unexpected progress %d: %+v", i, p)
		}
	}
	last := frames[3]
	if !strings.HasPrefix(last, "event: complete\ndata: ") {
		t.Fatalf("expected complete event, got %q", last)
	}
	var summary domain.BatchSummary
	if err := json.Unmarshal([]byte(strings.TrimPrefix(last, "event: complete\ndata: ")), &summary); err != nil {
		t.Fatalf("decode summary: %v", err)
	}
	if summary.ProcessedCount != 3 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
}

func TestClassifyBatchStreamValidatesBeforeStreaming(t *testing.T) {
	handler := newTestHandler(testConfig(), nil, nil)

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, multipartRequest(t, "/classify/batch/stream", "rows.csv", "title\nx\n"))

	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
	if ct := res.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("expected JSON error, got content type %q", ct)
	}
}

func TestHistory(t *testing.T) {
	history := &historyFake{entries: []domain.HistoryEntry{{ID: 2, Category: "Sport"}, {ID: 1, Category: "Unknown"}}}
	handler := newTestHandler(testConfig(), nil, history)

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/history?limit=2", nil))
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	entries := decodeBody[[]domain.HistoryEntry](t, res)
	if len(entries) != 2 || entries[0].ID != 2 {
		t.Fatalf("unexpected entries: %+v", entries)
	}

	res = httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/history", nil))
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	if history.limits[0] != 2 || history.limits[1] != 0 {
		t.Fatalf("unexpected limits passed to use case: %v", history.limits)
	}

	res = httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/history?limit=abc", nil))
	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad limit, got %d", res.Code)
	}
}

func TestHistoryFailureIsGeneric(t *testing.T) {
	handler := newTestHandler(testConfig(), nil, &historyFake{err: errors.New("connection refused")})

	for _, path := range []string{"/history", "/history/logs"} {
		res := httptest.NewRecorder()
		handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, path, nil))
		if res.Code != http.StatusInternalServerError {
			t.Fatalf("%s: expected 500, got %d", path, res.Code)
		}
		if body := decodeBody[errorBody](t, res); body.Error != msgHistoryFailed {
			t.Fatalf("%s: unexpected message %q", path, body.Error)
		}
	}
}

func TestHistoryLogs(t *testing.T) {
	handler := newTestHandler(testConfig(), nil, &historyFake{})
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/history/logs?limit=5", nil))
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	logs := decodeBody[[]domain.HistoryLog](t, res)
	if len(logs) != 1 || logs[0].ActionType != "PREDICTION" {
		t.Fatalf("unexpected logs: %+v", logs)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	handler := newTestHandler(testConfig(), nil, nil)
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/classify?content=x", nil))

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	if !strings.Contains(res.Body.String(), `ktc_classifier_predictions_total{category="Sport",endpoint="classify",service="api"} 1`) {
		t.Fatalf("expected classification counter in metrics:\n%s", res.Body.String())
	}
}

func TestOpenAPIDocument(t *testing.T) {
	doc, err := LoadOpenAPI(context.Background())
	if err != nil {
		t.Fatalf("LoadOpenAPI() error = %v", err)
	}
	for _, path := range []string{"/classify", "/classify/document", "/classify/batch", "/classify/batch/stream", "/history", "/history/logs", "/health"} {
		if doc.Paths.Value(path) == nil {
			t.Fatalf("path %s is not documented", path)
		}
	}

	handler := newTestHandler(testConfig(), nil, nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/openapi.json", nil))
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	body := decodeBody[map[string]any](t, res)
	if body["openapi"] != "3.0.3" {
		t.Fatalf("unexpected openapi version: %v", body["openapi"])
	}
}
