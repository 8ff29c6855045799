package usecases_test

import (
	"context"
	"sync"

	"github.com/samirrijal/placemark/internal/core/domain"
	"github.com/samirrijal/placemark/internal/core/ports"
)

// --- Mock ViewportRepository ---

type mockViewportRepo struct {
	mu     sync.Mutex
	state  *domain.ViewportState
	saves  int
	loadFn func(ctx context.Context) (domain.ViewportState, error)
	saveFn func(ctx context.Context, state domain.ViewportState) error
}

func (m *mockViewportRepo) Load(ctx context.Context) (domain.ViewportState, error) {
	if m.loadFn != nil {
		return m.loadFn(ctx)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == nil {
		return domain.ViewportState{}, ports.ErrKeyNotFound
	}
	return *m.state, nil
}

func (m *mockViewportRepo) Save(ctx context.Context, state domain.ViewportState) error {
	if m.saveFn != nil {
		if err := m.saveFn(ctx, state); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves++
	m.state = &state
	return nil
}

// --- Mock LocationStore ---

type mockLocationStore struct {
	mu      sync.Mutex
	locs    []domain.SavedLocation
	stored  bool
	stores  int
	loadErr error
	storeFn func(ctx context.Context, locs []domain.SavedLocation) error
	// afterLoad runs once the collection has been read, outside the lock.
	afterLoad func()
}

func (m *mockLocationStore) Load(ctx context.Context) ([]domain.SavedLocation, error) {
	locs, err := m.load()
	if m.afterLoad != nil {
		m.afterLoad()
	}
	return locs, err
}

func (m *mockLocationStore) load() ([]domain.SavedLocation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	if !m.stored {
		return nil, ports.ErrKeyNotFound
	}
	out := make([]domain.SavedLocation, len(m.locs))
	copy(out, m.locs)
	return out, nil
}

func (m *mockLocationStore) Store(ctx context.Context, locs []domain.SavedLocation) error {
	if m.storeFn != nil {
		if err := m.storeFn(ctx, locs); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stores++
	m.stored = true
	m.locs = append([]domain.SavedLocation(nil), locs...)
	return nil
}

// --- Mock CacheService ---

type mockCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMockCache() *mockCache { return &mockCache{data: map[string][]byte{}} }

func (m *mockCache) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return nil, ports.ErrKeyNotFound
	}
	return v, nil
}

func (m *mockCache) Set(ctx context.Context, key string, value []byte, ttlSeconds int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *mockCache) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

// --- Mock EventPublisher ---

type mockPublisher struct {
	mu        sync.Mutex
	locations []domain.LocationEvent
	viewports []domain.ViewportState
	loading   []domain.LoadingState
}

func (m *mockPublisher) PublishLocationEvent(ctx context.Context, event domain.LocationEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.locations = append(m.locations, event)
	return nil
}

func (m *mockPublisher) PublishViewport(ctx context.Context, state domain.ViewportState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.viewports = append(m.viewports, state)
	return nil
}

func (m *mockPublisher) PublishLoading(ctx context.Context, state domain.LoadingState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loading = append(m.loading, state)
	return nil
}

// --- Mock Geocoder ---

type mockGeocoder struct {
	mu       sync.Mutex
	calls    int
	searchFn func(ctx context.Context, query string, display int) ([]domain.Place, error)
}

func (m *mockGeocoder) Search(ctx context.Context, query string, display int) ([]domain.Place, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	if m.searchFn != nil {
		return m.searchFn(ctx, query, display)
	}
	return nil, nil
}

func (m *mockGeocoder) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// --- Mock LocationProvider ---

type providerFunc func(ctx context.Context) (domain.GeoPoint, error)

func (f providerFunc) CurrentPosition(ctx context.Context) (domain.GeoPoint, error) { return f(ctx) }
