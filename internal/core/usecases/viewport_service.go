package usecases

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/samirrijal/placemark/internal/core/domain"
	"github.com/samirrijal/placemark/internal/core/ports"
)

// ViewportService owns the map viewport state.
type ViewportService struct {
	mu        sync.Mutex
	repo      ports.ViewportRepository
	publisher ports.EventPublisher
	locator   *Locator
	state     domain.ViewportState
	loaded    bool
}

// NewViewportService creates a new ViewportService. publisher may be nil.
func NewViewportService(repo ports.ViewportRepository, publisher ports.EventPublisher, locator *Locator) *ViewportService {
	if locator == nil {
		locator = NewLocator(0)
	}
	return &ViewportService{repo: repo, publisher: publisher, locator: locator}
}

// State returns the current viewport, loading the persisted one on first use.
func (s *ViewportService) State(ctx context.Context) (domain.ViewportState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureLoaded(ctx); err != nil {
		return domain.ViewportState{}, err
	}
	return s.state, nil
}

// Dispatch applies a to the viewport and persists the result. The in-memory
// state only moves once the write succeeded.
func (s *ViewportService) Dispatch(ctx context.Context, a domain.ViewportAction) (domain.ViewportState, error) {
	if !a.Origin.Valid() {
		return domain.ViewportState{}, fmt.Errorf("%w: unknown origin %q", domain.ErrValidation, a.Origin)
	}

	s.mu.Lock()
	if err := s.ensureLoaded(ctx); err != nil {
		s.mu.Unlock()
		return domain.ViewportState{}, err
	}

	prev := s.state
	next := domain.ReduceViewport(prev, a)
	if next == prev {
		s.mu.Unlock()
		return prev, nil
	}

	if err := s.repo.Save(ctx, next); err != nil {
		s.mu.Unlock()
		return prev, fmt.Errorf("%w: save viewport: %v", domain.ErrPersistence, err)
	}
	s.state = next
	s.mu.Unlock()

	if s.publisher != nil {
		if err := s.publisher.PublishViewport(ctx, next); err != nil {
			slog.WarnContext(ctx, "publish viewport failed", "error", err)
		}
	}
	return next, nil
}

// SetCenter moves the center. Programmatic echoes are ignored.
func (s *ViewportService) SetCenter(ctx context.Context, p domain.GeoPoint, origin domain.Origin) (domain.ViewportState, error) {
	return s.Dispatch(ctx, domain.SetCenter(p, origin))
}

// SetZoom changes the zoom level, clamped to [MinZoom, MaxZoom].
func (s *ViewportService) SetZoom(ctx context.Context, level int, origin domain.Origin) (domain.ViewportState, error) {
	return s.Dispatch(ctx, domain.SetZoom(level, origin))
}

// SetCurrentLocation centers on p and marks the viewport as located.
func (s *ViewportService) SetCurrentLocation(ctx context.Context, p domain.GeoPoint) (domain.ViewportState, error) {
	return s.Dispatch(ctx, domain.SetCurrentLocation(p))
}

// ResetToDefault returns to the default center and zoom and marks the
// viewport as located.
func (s *ViewportService) ResetToDefault(ctx context.Context) (domain.ViewportState, error) {
	return s.Dispatch(ctx, domain.ResetToDefault())
}

// Locate reads provider once and centers on the result, or on the default
// center when the read fails.
func (s *ViewportService) Locate(ctx context.Context, provider ports.LocationProvider) (domain.ViewportState, error) {
	return s.SetCurrentLocation(ctx, s.locator.Locate(ctx, provider))
}

// Replace adopts a state written by another replica without persisting or
// republishing it.
func (s *ViewportService) Replace(state domain.ViewportState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = domain.ReduceViewport(state, domain.ViewportAction{})
	s.loaded = true
}

func (s *ViewportService) ensureLoaded(ctx context.Context) error {
	if s.loaded {
		return nil
	}
	state, err := s.repo.Load(ctx)
	switch {
	case err == nil:
		s.state = domain.ReduceViewport(state, domain.ViewportAction{})
	case errors.Is(err, ports.ErrKeyNotFound):
		s.state = domain.InitialViewport()
	case errors.Is(err, ports.ErrCorrupt):
		slog.WarnContext(ctx, "persisted viewport is malformed, starting from default", "error", err)
		s.state = domain.InitialViewport()
	default:
		return fmt.Errorf("%w: load viewport: %v", domain.ErrPersistence, err)
	}
	s.loaded = true
	return nil
}
