package usecase

import (
	"context"
	"fmt"

	"github.com/kirillkom/khmer-text-classifier/internal/core/domain"
	"github.com/kirillkom/khmer-text-classifier/internal/core/ports"
)

type HistoryUseCase struct {
	repo         ports.DocumentRepository
	defaultLimit int
	maxLimit     int
}

func NewHistoryUseCase(repo ports.DocumentRepository, defaultLimit, maxLimit int) *HistoryUseCase {
	if defaultLimit <= 0 {
		defaultLimit = 10
	}
	if maxLimit < defaultLimit {
		maxLimit = defaultLimit
	}
	return &HistoryUseCase{
		repo:         repo,
		defaultLimit: defaultLimit,
		maxLimit:     maxLimit,
	}
}

func (uc *HistoryUseCase) History(ctx context.Context, limit int) ([]domain.HistoryEntry, error) {
	docs, err := uc.repo.ListLatest(ctx, uc.clamp(limit))
	if err != nil {
		return nil, fmt.Errorf("list latest documents: %w", err)
	}

	out := make([]domain.HistoryEntry, 0, len(docs))
	for _, doc := range docs {
		out = append(out, domain.HistoryEntry{
			ID:        doc.ID,
			Content:   doc.Content,
			Category:  domain.CategoryName(doc.CategoryID),
			Score:     doc.ConfidenceScore,
			CreatedAt: doc.CreatedAt,
		})
	}
	return out, nil
}

func (uc *HistoryUseCase) HistoryLogs(ctx context.Context, limit int) ([]domain.HistoryLog, error) {
	logs, err := uc.repo.ListHistoryLogs(ctx, uc.clamp(limit))
	if err != nil {
		return nil, fmt.Errorf("list history log: %w", err)
	}
	return logs, nil
}

func (uc *HistoryUseCase) clamp(limit int) int {
	switch {
	case limit <= 0:
		return uc.defaultLimit
	case limit > uc.maxLimit:
		return uc.maxLimit
	default:
		return limit
	}
}
