package httpadapter

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/kirillkom/khmer-text-classifier/internal/core/domain"
)

func (rt *Router) classifyBatch(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}

	input, ok := rt.openBatch(w, r)
	if !ok {
		return
	}

	summary, err := rt.batch.RunBatch(r.Context(), input, rt.observeBatchRow)
	if err != nil {
		writeError(w, r, "classify_batch_failed", err, msgClassifyFailed)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// classifyBatchStream emits one progress event per data row and a final
// complete event. Upload validation runs first so bad files still get a
// plain JSON error.
func (rt *Router) classifyBatchStream(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}

	stream, err := newEventStream(w)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "streaming is not supported"})
		return
	}

	input, ok := rt.openBatch(w, r)
	if !ok {
		return
	}

	stream.start()
	summary, err := rt.batch.RunBatch(r.Context(), input, func(p domain.BatchProgress) {
		rt.observeBatchRow(p)
		if err := stream.send("progress", progressEvent(p)); err != nil {
			slog.Debug("batch_stream_write_failed", "request_id", requestIDFromContext(r.Context()), "error", err)
		}
	})
	if err != nil {
		if errors.Is(err, context.Canceled) {
			slog.Info("batch_stream_aborted",
				"request_id", requestIDFromContext(r.Context()),
				"filename", input.Filename,
				"rows_done", len(summary.Results),
				"rows_total", summary.TotalRows,
			)
			return
		}
		slog.Error("classify_batch_failed", "request_id", requestIDFromContext(r.Context()), "error", err)
		_ = stream.send("error", errorBody{Error: msgClassifyFailed})
		return
	}
	_ = stream.send("complete", summary)
}

func (rt *Router) openBatch(w http.ResponseWriter, r *http.Request) (*domain.BatchInput, bool) {
	upload, err := rt.openUpload(w, r)
	if err != nil {
		writeError(w, r, "classify_batch_failed", err, msgClassifyFailed)
		return nil, false
	}
	defer upload.Close()

	input, err := rt.batch.OpenBatch(r.Context(), upload.filename, upload.file)
	if err != nil {
		writeError(w, r, "classify_batch_failed", err, msgClassifyFailed)
		return nil, false
	}
	if rt.metrics != nil {
		rt.metrics.ObserveBatchSize(serviceName, len(input.Rows))
	}
	return input, true
}

func (rt *Router) observeBatchRow(p domain.BatchProgress) {
	if rt.metrics == nil {
		return
	}
	rt.metrics.RecordBatchRow(serviceName, string(p.Result.Status))
	if p.Result.Status == domain.RowClassified {
		rt.metrics.RecordClassification(serviceName, "classify_batch", p.Result.PrimaryCategory, 0)
	}
}
