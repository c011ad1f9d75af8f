package httpadapter

import (
	"errors"
	"mime/multipart"
	"net/http"

	"github.com/kirillkom/khmer-text-classifier/internal/core/domain"
)

const multipartMemory = 8 << 20

type upload struct {
	file     multipart.File
	filename string
}

func (u *upload) Close() {
	_ = u.file.Close()
}

// openUpload reads the multipart "file" field, bounded by MaxUploadBytes.
func (rt *Router) openUpload(w http.ResponseWriter, r *http.Request) (*upload, error) {
	r.Body = http.MaxBytesReader(w, r.Body, rt.cfg.MaxUploadBytes)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, domain.WrapError(domain.ErrPayloadTooLarge, "read upload", err)
		}
		return nil, domain.WrapError(domain.ErrInvalidInput, "read upload", errors.New("multipart field 'file' is required"))
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "read upload", errors.New("multipart field 'file' is required"))
	}
	return &upload{file: file, filename: header.Filename}, nil
}
