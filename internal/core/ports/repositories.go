package ports

import (
	"context"
	"errors"

	"github.com/samirrijal/placemark/internal/core/domain"
)

var (
	// ErrKeyNotFound is returned by key-value stores for a missing key.
	ErrKeyNotFound = errors.New("key not found")

	// ErrCorrupt is returned when a stored value cannot be decoded.
	ErrCorrupt = errors.New("stored value is malformed")
)

// KeyValueStore persists opaque values under string keys.
type KeyValueStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// LocationStore persists the whole saved location collection as one unit.
type LocationStore interface {
	// Load returns ErrKeyNotFound when nothing was stored yet and ErrCorrupt
	// when the stored collection cannot be decoded.
	Load(ctx context.Context) ([]domain.SavedLocation, error)
	Store(ctx context.Context, locations []domain.SavedLocation) error
}

// ViewportRepository persists the viewport across restarts.
type ViewportRepository interface {
	Load(ctx context.Context) (domain.ViewportState, error)
	Save(ctx context.Context, state domain.ViewportState) error
}
