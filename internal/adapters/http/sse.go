package httpadapter

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/kirillkom/khmer-text-classifier/internal/core/domain"
)

type eventStream struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

func newEventStream(w http.ResponseWriter) (*eventStream, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("streaming is not supported by response writer")
	}
	return &eventStream{w: w, flusher: flusher}, nil
}

func (s *eventStream) start() {
	h := s.w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	s.w.WriteHeader(http.StatusOK)
	s.flusher.Flush()
}

func (s *eventStream) send(event string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", event, data); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

type progressPayload struct {
	Index     int                   `json:"index"`
	Total     int                   `json:"total"`
	Processed int                   `json:"processed"`
	Percent   float64               `json:"percent"`
	Row       domain.BatchRowResult `json:"row"`
}

func progressEvent(p domain.BatchProgress) progressPayload {
	percent := 100.0
	if p.Total > 0 {
		percent = float64(p.Index) * 100 / float64(p.Total)
	}
	return progressPayload{
		Index:     p.Index,
		Total:     p.Total,
		Processed: p.Processed,
		Percent:   percent,
		Row:       p.Result,
	}
}
