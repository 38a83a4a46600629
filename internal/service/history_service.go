package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/noah-isme/class-treasury-api/internal/models"
	appErrors "github.com/noah-isme/class-treasury-api/pkg/errors"
)

type historyRepo interface {
	List(ctx context.Context, filter models.HistoryFilter) ([]models.HistoryEntry, int, error)
}

// HistoryService reads the payment audit ledger. Entries are append-only;
// everything that writes them goes through PaymentService.
type HistoryService struct {
	history     historyRepo
	maxPageSize int
	logger      *zap.Logger
}

// NewHistoryService constructs HistoryService.
func NewHistoryService(history historyRepo, maxPageSize int, logger *zap.Logger) *HistoryService {
	if maxPageSize <= 0 {
		maxPageSize = 100
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HistoryService{history: history, maxPageSize: maxPageSize, logger: logger}
}

// List returns ledger entries newest first.
func (s *HistoryService) List(ctx context.Context, filter models.HistoryFilter) ([]models.HistoryEntry, int, error) {
	if filter.PageSize <= 0 || filter.PageSize > s.maxPageSize {
		filter.PageSize = s.maxPageSize
	}
	if filter.Page < 1 {
		filter.Page = 1
	}
	entries, total, err := s.history.List(ctx, filter)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list history")
	}
	return entries, total, nil
}
