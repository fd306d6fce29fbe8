package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"Rectifex/internal/domain/models"
	domrepo "Rectifex/internal/domain/repository"
	"Rectifex/pkg/cache"
	applogger "Rectifex/pkg/logger"
)

// FundamentalsService serves fundamental metrics through a TTL cache so a
// scan over a large universe does not hammer the provider.
type FundamentalsService struct {
	source domrepo.FundamentalsSource
	cache  cache.Service
	log    *applogger.Logger
	ttl    time.Duration
}

func NewFundamentalsService(source domrepo.FundamentalsSource, c cache.Service, log *applogger.Logger, ttl time.Duration) *FundamentalsService {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &FundamentalsService{
		source: source,
		cache:  c,
		log:    log,
		ttl:    ttl,
	}
}

// cachedFundamentals wraps the stored value so a remembered no-data answer
// round-trips distinct from an empty metric map.
type cachedFundamentals struct {
	NoData bool                `json:"no_data,omitempty"`
	Data   models.Fundamentals `json:"data,omitempty"`
}

// Get returns the symbol's fundamentals, cached. A symbol the provider has
// no data for answers ErrNoData on every lookup within the TTL, not just the
// first one.
func (s *FundamentalsService) Get(ctx context.Context, symbol string) (models.Fundamentals, error) {
	key := fmt.Sprintf("fundamentals:%s", symbol)

	var cached cachedFundamentals
	err := s.cache.Get(ctx, key, &cached)
	if err == nil {
		if cached.NoData {
			return nil, domrepo.ErrNoData
		}
		return cached.Data, nil
	}
	if !errors.Is(err, cache.ErrCacheMiss) {
		s.log.Warn("fundamentals cache read failed",
			applogger.String("symbol", symbol),
			applogger.Error(err))
	}

	f, err := s.source.Fundamentals(ctx, symbol)
	if err != nil {
		if errors.Is(err, domrepo.ErrNoData) {
			// Remember the miss so delisted symbols are not re-queried
			// on every scan within the TTL.
			if cerr := s.cache.Set(ctx, key, cachedFundamentals{NoData: true}, s.ttl); cerr != nil {
				s.log.Warn("fundamentals cache write failed", applogger.Error(cerr))
			}
			return nil, err
		}
		return nil, fmt.Errorf("fundamentals %s: %w", symbol, err)
	}

	if err := s.cache.Set(ctx, key, cachedFundamentals{Data: f}, s.ttl); err != nil {
		s.log.Warn("fundamentals cache write failed",
			applogger.String("symbol", symbol),
			applogger.Error(err))
	}
	return f, nil
}
