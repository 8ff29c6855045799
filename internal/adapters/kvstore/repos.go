// Package kvstore persists the saved location collection and the viewport as
// JSON documents in any ports.KeyValueStore.
package kvstore

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/samirrijal/placemark/internal/core/domain"
	"github.com/samirrijal/placemark/internal/core/ports"
)

const (
	DefaultLocationsKey = "placemark:saved-locations"
	DefaultViewportKey  = "placemark:viewport"
)

// LocationRepo implements ports.LocationStore. The whole collection lives
// under a single key.
type LocationRepo struct {
	kv  ports.KeyValueStore
	key string
}

// NewLocationRepo creates a LocationRepo. An empty key uses DefaultLocationsKey.
func NewLocationRepo(kv ports.KeyValueStore, key string) *LocationRepo {
	if key == "" {
		key = DefaultLocationsKey
	}
	return &LocationRepo{kv: kv, key: key}
}

// Load decodes the stored collection.
func (r *LocationRepo) Load(ctx context.Context) ([]domain.SavedLocation, error) {
	data, err := r.kv.Get(ctx, r.key)
	if err != nil {
		return nil, err
	}
	var locs []domain.SavedLocation
	if err := json.Unmarshal(data, &locs); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ports.ErrCorrupt, r.key, err)
	}
	return locs, nil
}

// Store serialises the full collection and writes it in one operation.
func (r *LocationRepo) Store(ctx context.Context, locs []domain.SavedLocation) error {
	if locs == nil {
		locs = []domain.SavedLocation{}
	}
	data, err := json.Marshal(locs)
	if err != nil {
		return fmt.Errorf("encode locations: %w", err)
	}
	return r.kv.Put(ctx, r.key, data)
}

// ViewportRepo implements ports.ViewportRepository.
type ViewportRepo struct {
	kv  ports.KeyValueStore
	key string
}

// NewViewportRepo creates a ViewportRepo. An empty key uses DefaultViewportKey.
func NewViewportRepo(kv ports.KeyValueStore, key string) *ViewportRepo {
	if key == "" {
		key = DefaultViewportKey
	}
	return &ViewportRepo{kv: kv, key: key}
}

// Load decodes the stored viewport.
func (r *ViewportRepo) Load(ctx context.Context) (domain.ViewportState, error) {
	data, err := r.kv.Get(ctx, r.key)
	if err != nil {
		return domain.ViewportState{}, err
	}
	var state domain.ViewportState
	if err := json.Unmarshal(data, &state); err != nil {
		return domain.ViewportState{}, fmt.Errorf("%w: %s: %v", ports.ErrCorrupt, r.key, err)
	}
	return state, nil
}

// Save writes state.
func (r *ViewportRepo) Save(ctx context.Context, state domain.ViewportState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode viewport: %w", err)
	}
	return r.kv.Put(ctx, r.key, data)
}
