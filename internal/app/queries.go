package app

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"ota_reviews/internal/domain"
)

// QueryService serves the persisted-review read path with a
// cache-aside layer in front of the repository.
type QueryService struct {
	repo     domain.ReviewRepository
	cache    domain.Cache
	cacheTTL time.Duration
}

func NewQueryService(r domain.ReviewRepository, c domain.Cache, ttl time.Duration) *QueryService {
	return &QueryService{repo: r, cache: c, cacheTTL: ttl}
}

func (s *QueryService) ListReviews(ctx context.Context, hotelID string, pg domain.PageQuery) (domain.ReviewsPage, error) {
	key := fmt.Sprintf("reviews:%s:%d:%s", hotelID, pg.Limit, pg.Sort)
	var out domain.ReviewsPage
	if s.cache != nil {
		if ok, _ := s.cache.Get(ctx, key, &out); ok {
			return out, nil
		}
	}

	page, err := s.repo.ListReviews(ctx, hotelID, pg)
	if err != nil {
		return domain.ReviewsPage{}, err
	}

	// copy to avoid aliasing the repo's backing array into the cache
	cp := domain.ReviewsPage{}
	if n := len(page.Items); n > 0 {
		cp.Items = make([]domain.Review, n)
		copy(cp.Items, page.Items)
	}

	if s.cache != nil {
		// size guard: oversized pages stay uncached
		if b, _ := json.Marshal(cp); len(b) < 1_000_000 {
			_ = s.cache.Set(ctx, key, cp, int(s.cacheTTL.Seconds()))
		}
	}
	return cp, nil
}
