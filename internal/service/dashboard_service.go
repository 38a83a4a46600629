package service

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/class-treasury-api/internal/models"
	appErrors "github.com/noah-isme/class-treasury-api/pkg/errors"
)

const fundsCacheKey = "dash:funds"

type dashboardCollectionLister interface {
	List(ctx context.Context, filter models.CollectionFilter) ([]models.Collection, int, error)
	FindByID(ctx context.Context, id string) (*models.Collection, error)
}

// DashboardServiceConfig tunes dashboard behaviour.
type DashboardServiceConfig struct {
	CacheTTL time.Duration
}

// DashboardService aggregates cash-on-hand figures across active and
// remitted collections. Remitted money has left the treasurer's hands, so
// only active collections count towards the on-hand total.
type DashboardService struct {
	collections dashboardCollectionLister
	cache       *CacheService
	logger      *zap.Logger
	now         func() time.Time
	cfg         DashboardServiceConfig
}

// NewDashboardService constructs a DashboardService.
func NewDashboardService(collections dashboardCollectionLister, cache *CacheService, logger *zap.Logger, cfg DashboardServiceConfig) *DashboardService {
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 5 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardService{
		collections: collections,
		cache:       cache,
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
		cfg:         cfg,
	}
}

// Funds returns the cash-on-hand summary, served from cache when fresh. The
// second return value reports whether the cache was used.
func (s *DashboardService) Funds(ctx context.Context) (*models.FundsSummary, bool, error) {
	if s.cache != nil {
		var cached models.FundsSummary
		hit, err := s.cache.Get(ctx, fundsCacheKey, &cached)
		if err == nil && hit {
			return &cached, true, nil
		}
	}

	summary, err := s.buildFunds(ctx)
	if err != nil {
		return nil, false, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, fundsCacheKey, summary, s.cfg.CacheTTL); err != nil {
			s.logger.Warn("funds cache write failed", zap.Error(err))
		}
	}
	return summary, false, nil
}

// InvalidateFunds drops the cached summary after anything touches money.
func (s *DashboardService) InvalidateFunds(ctx context.Context) {
	if s.cache != nil {
		s.cache.Invalidate(ctx, fundsCacheKey)
	}
}

func (s *DashboardService) buildFunds(ctx context.Context) (*models.FundsSummary, error) {
	active, _, err := s.collections.List(ctx, models.CollectionFilter{Status: models.CollectionStatusActive, PageSize: 100})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list active collections")
	}

	summary := &models.FundsSummary{GeneratedAt: s.now()}
	for _, listed := range active {
		// Listings skip payments; reload each collection with them.
		collection, err := s.collections.FindByID(ctx, listed.ID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load collection payments")
		}
		onHand := models.CollectionOnHand{
			CollectionID:   collection.ID,
			CollectionName: collection.Name,
			PayerCount:     len(collection.Payments),
		}
		for _, payment := range collection.Payments {
			onHand.Collected += payment.Amount
		}
		summary.TotalOnHand += onHand.Collected
		summary.Collections = append(summary.Collections, onHand)
	}

	sort.Slice(summary.Collections, func(i, j int) bool {
		return summary.Collections[i].Collected > summary.Collections[j].Collected
	})
	return summary, nil
}
