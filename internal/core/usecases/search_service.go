package usecases

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/samirrijal/placemark/internal/core/domain"
	"github.com/samirrijal/placemark/internal/core/ports"
	"github.com/samirrijal/placemark/internal/pkg/geospatial"
	"github.com/samirrijal/placemark/internal/pkg/metrics"
)

const (
	DefaultPageSize = 5
	maxQueryLength  = 200

	defaultLookupTimeout = 15 * time.Second
)

// SearchService proxies place queries to the geocoder. Identical queries
// inside the freshness window are answered from cache, and only the answer
// to the most recently issued query becomes the displayed result.
type SearchService struct {
	geocoder ports.Geocoder
	cache    ports.CacheService
	loading  *LoadingTracker
	viewport ViewportReader
	pageSize int
	freshFor time.Duration
	timeout  time.Duration

	group      singleflight.Group
	generation atomic.Uint64

	mu        sync.Mutex
	displayed domain.SearchResult
}

// SearchOptions tunes a SearchService. Zero values fall back to defaults.
type SearchOptions struct {
	PageSize int
	FreshFor time.Duration
	// Timeout bounds one upstream lookup, which may be shared by several
	// callers and outlives any single one of them.
	Timeout time.Duration
}

// NewSearchService creates a new SearchService. cache, loading and viewport
// may be nil.
func NewSearchService(geocoder ports.Geocoder, cache ports.CacheService, loading *LoadingTracker, viewport ViewportReader, opts SearchOptions) *SearchService {
	if opts.PageSize <= 0 {
		opts.PageSize = DefaultPageSize
	}
	if opts.FreshFor <= 0 {
		opts.FreshFor = 5 * time.Minute
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultLookupTimeout
	}
	if loading == nil {
		loading = NewLoadingTracker(nil)
	}
	return &SearchService{
		geocoder: geocoder,
		cache:    cache,
		loading:  loading,
		viewport: viewport,
		pageSize: opts.PageSize,
		freshFor: opts.FreshFor,
		timeout:  opts.Timeout,
	}
}

// Search issues a new request generation for query and returns its answer.
// The result is marked stale when another search was issued meanwhile; stale
// answers never replace the displayed result.
func (s *SearchService) Search(ctx context.Context, query string) (domain.SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return domain.SearchResult{}, fmt.Errorf("%w: search query must not be empty", domain.ErrValidation)
	}
	if len(query) > maxQueryLength {
		return domain.SearchResult{}, fmt.Errorf("%w: query too long (max %d characters)", domain.ErrValidation, maxQueryLength)
	}

	token := s.generation.Add(1)

	places, err := s.lookup(ctx, query)
	if err != nil {
		return domain.SearchResult{}, err
	}
	places = s.withDistances(ctx, places)

	result := domain.SearchResult{Generation: token, Query: query, Places: places}

	s.mu.Lock()
	if token == s.generation.Load() {
		s.displayed = result
	} else {
		result.Stale = true
	}
	s.mu.Unlock()

	if result.Stale {
		metrics.StaleSearchResponses.Inc()
		slog.DebugContext(ctx, "dropping stale search response", "query", query, "generation", token)
	}
	return result, nil
}

// Displayed returns the answer of the latest issued search that has come back.
func (s *SearchService) Displayed() domain.SearchResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.displayed
}

func (s *SearchService) lookup(ctx context.Context, query string) ([]domain.Place, error) {
	cacheKey := fmt.Sprintf("search:%d:%s", s.pageSize, query)
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, cacheKey); err == nil {
			var places []domain.Place
			if err := json.Unmarshal(data, &places); err == nil {
				metrics.CacheHits.WithLabelValues("search").Inc()
				return places, nil
			}
		}
		metrics.CacheMisses.WithLabelValues("search").Inc()
	}

	// The shared lookup runs detached from the caller that started it, so one
	// caller going away does not fail the others waiting on the same query.
	ch := s.group.DoChan(cacheKey, func() (interface{}, error) {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
		defer cancel()

		var places []domain.Place
		err := s.loading.Track(ctx, func(ctx context.Context) error {
			var err error
			places, err = s.geocoder.Search(ctx, query, s.pageSize)
			return err
		})
		if err != nil {
			return nil, err
		}

		if s.cache != nil {
			if data, err := json.Marshal(places); err == nil {
				_ = s.cache.Set(ctx, cacheKey, data, int(s.freshFor.Seconds()))
			}
		}
		return places, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]domain.Place), nil
	}
}

// withDistances returns a copy of places annotated with the distance from
// the current viewport center.
func (s *SearchService) withDistances(ctx context.Context, places []domain.Place) []domain.Place {
	if s.viewport == nil || len(places) == 0 {
		return places
	}
	state, err := s.viewport.State(ctx)
	if err != nil {
		return places
	}

	out := make([]domain.Place, len(places))
	for i, p := range places {
		d := geospatial.Distance(state.Center, p.Location)
		p.Distance = &d
		out[i] = p
	}
	return out
}
