package httpadapter

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/kirillkom/khmer-text-classifier/internal/core/domain"
)

func (rt *Router) listHistory(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	limit, err := parseLimit(r)
	if err != nil {
		writeError(w, r, "history_failed", err, msgHistoryFailed)
		return
	}

	entries, err := rt.history.History(r.Context(), limit)
	if err != nil {
		writeError(w, r, "history_failed", err, msgHistoryFailed)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (rt *Router) listHistoryLogs(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	limit, err := parseLimit(r)
	if err != nil {
		writeError(w, r, "history_logs_failed", err, msgHistoryFailed)
		return
	}

	logs, err := rt.history.HistoryLogs(r.Context(), limit)
	if err != nil {
		writeError(w, r, "history_logs_failed", err, msgHistoryFailed)
		return
	}
	writeJSON(w, http.StatusOK, logs)
}

// parseLimit returns 0 when the parameter is absent; the use case applies
// its default.
func parseLimit(r *http.Request) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get("limit"))
	if raw == "" {
		return 0, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 1 {
		return 0, domain.WrapError(domain.ErrInvalidInput, "parse limit", errors.New("limit must be a positive integer"))
	}
	return limit, nil
}
