package httpadapter

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/kirillkom/khmer-text-classifier/internal/core/domain"
)

const (
	msgClassifyFailed = "Internal AI Engine Error"
	msgHistoryFailed  = "Failed to fetch history logs"
	msgUnavailable    = "service temporarily unavailable"
)

func mapErrorToHTTPStatus(err error) int {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge), domain.IsKind(err, domain.ErrPayloadTooLarge):
		return http.StatusRequestEntityTooLarge
	case domain.IsKind(err, domain.ErrInvalidInput), domain.IsKind(err, domain.ErrUnsupportedFormat):
		return http.StatusBadRequest
	case domain.IsKind(err, domain.ErrTemporary):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeError renders err for the client. Server-side failures are logged
// with their cause and answered with the generic message only.
func writeError(w http.ResponseWriter, r *http.Request, event string, err error, generic string) int {
	status := mapErrorToHTTPStatus(err)
	message := domain.Reason(err)
	switch status {
	case http.StatusRequestEntityTooLarge:
		message = "uploaded payload is too large"
	case http.StatusServiceUnavailable:
		slog.Warn(event, "request_id", requestIDFromContext(r.Context()), "error", err)
		message = msgUnavailable
	case http.StatusInternalServerError:
		slog.Error(event, "request_id", requestIDFromContext(r.Context()), "error", err)
		message = generic
	}
	writeJSON(w, status, errorBody{Error: message})
	return status
}

type errorBody struct {
	Error string `json:"error"`
}
