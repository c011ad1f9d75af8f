package httpadapter

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/kirillkom/khmer-text-classifier/internal/core/domain"
)

type classifyRequest struct {
	Content string `json:"content"`
	Text    string `json:"text"`
}

// classify accepts the text as the content query parameter or as a JSON
// body with a content or text field.
func (rt *Router) classify(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	started := time.Now()

	text, err := rt.readClassifyText(w, r)
	if err != nil {
		rt.recordClassifyError("classify", writeError(w, r, "classify_failed", err, msgClassifyFailed))
		return
	}

	res, err := rt.classifier.ClassifyText(r.Context(), text)
	if err != nil {
		rt.recordClassifyError("classify", writeError(w, r, "classify_failed", err, msgClassifyFailed))
		return
	}
	rt.recordClassification("classify", res.PrimaryCategory, started)
	writeJSON(w, http.StatusOK, res)
}

func (rt *Router) readClassifyText(w http.ResponseWriter, r *http.Request) (string, error) {
	if q := r.URL.Query(); q.Has("content") {
		return q.Get("content"), nil
	}

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "application/json" {
		return "", nil
	}

	var req classifyRequest
	body := http.MaxBytesReader(w, r.Body, rt.cfg.MaxUploadBytes)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return "", domain.WrapError(domain.ErrPayloadTooLarge, "read request", err)
		}
		if errors.Is(err, io.EOF) {
			return "", nil
		}
		return "", domain.WrapError(domain.ErrInvalidInput, "read request", errors.New("invalid json"))
	}
	if strings.TrimSpace(req.Content) != "" {
		return req.Content, nil
	}
	return req.Text, nil
}

func (rt *Router) classifyDocument(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	started := time.Now()

	upload, err := rt.openUpload(w, r)
	if err != nil {
		rt.recordClassifyError("classify_document", writeError(w, r, "classify_document_failed", err, msgClassifyFailed))
		return
	}
	defer upload.Close()

	res, err := rt.classifier.ClassifyDocumentFile(r.Context(), upload.filename, upload.file)
	if err != nil {
		rt.recordClassifyError("classify_document", writeError(w, r, "classify_document_failed", err, msgClassifyFailed))
		return
	}
	rt.recordClassification("classify_document", res.PrimaryCategory, started)
	writeJSON(w, http.StatusOK, res)
}
