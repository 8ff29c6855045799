package ports

import (
	"context"

	"github.com/samirrijal/placemark/internal/core/domain"
)

// EventPublisher publishes state changes to a message broker.
type EventPublisher interface {
	PublishLocationEvent(ctx context.Context, event domain.LocationEvent) error
	PublishViewport(ctx context.Context, state domain.ViewportState) error
	PublishLoading(ctx context.Context, state domain.LoadingState) error
}

// CacheService provides read-through caching.
type CacheService interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttlSeconds int) error
	Delete(ctx context.Context, key string) error
}

// Geocoder answers free-text place queries.
type Geocoder interface {
	Search(ctx context.Context, query string, display int) ([]domain.Place, error)
}

// LocationProvider is a single-shot position source.
type LocationProvider interface {
	CurrentPosition(ctx context.Context) (domain.GeoPoint, error)
}
