package pdf

import (
	"context"
	"strings"
	"testing"

	"github.com/kirillkom/khmer-text-classifier/internal/core/domain"
)

func TestSupports(t *testing.T) {
	e := NewExtractor()
	if !e.Supports("report.PDF") || e.Supports("report.txt") {
		t.Fatalf("unexpected Supports result")
	}
}

func TestExtractRejectsNonPDF(t *testing.T) {
	_, err := NewExtractor().Extract(context.Background(), "fake.pdf", strings.NewReader("definitely not a pdf"))
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}
