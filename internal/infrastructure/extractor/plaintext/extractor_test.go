package plaintext

import (
	"context"
	"strings"
	"testing"

	"github.com/kirillkom/khmer-text-classifier/internal/core/domain"
)

func TestExtract(t *testing.T) {
	e := NewExtractor()
	got, err := e.Extract(context.Background(), "a.txt", strings.NewReader("\ufeff  សួស្តី ពិភពលោក \n"))
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if got != "សួស្តី ពិភពលោក" {
		t.Fatalf("unexpected text %q", got)
	}
}

func TestExtractRejectsBinary(t *testing.T) {
	_, err := NewExtractor().Extract(context.Background(), "a.txt", strings.NewReader(string([]byte{0xff, 0x00, 0xfe})))
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestSupports(t *testing.T) {
	e := NewExtractor()
	if !e.Supports("NOTES.TXT") || e.Supports("notes.pdf") || e.Supports("txt") {
		t.Fatalf("unexpected Supports result")
	}
}
