package usecases

import (
	"context"
	"log/slog"
	"sync"

	"github.com/samirrijal/placemark/internal/core/domain"
	"github.com/samirrijal/placemark/internal/core/ports"
	"github.com/samirrijal/placemark/internal/pkg/metrics"
)

// LoadingTracker is the reference-counted busy flag shared by every tracked
// network operation.
type LoadingTracker struct {
	mu        sync.Mutex
	state     domain.LoadingState
	publisher ports.EventPublisher
}

// NewLoadingTracker creates a tracker. publisher may be nil.
func NewLoadingTracker(publisher ports.EventPublisher) *LoadingTracker {
	return &LoadingTracker{publisher: publisher}
}

// State returns a snapshot of the counter.
func (t *LoadingTracker) State() domain.LoadingState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Begin registers an outstanding operation.
func (t *LoadingTracker) Begin(ctx context.Context) domain.LoadingState {
	return t.apply(ctx, domain.LoadingState.Begin)
}

// End releases an outstanding operation. Extra calls are absorbed at zero.
func (t *LoadingTracker) End(ctx context.Context) domain.LoadingState {
	return t.apply(ctx, domain.LoadingState.End)
}

// Reset drops every outstanding operation.
func (t *LoadingTracker) Reset(ctx context.Context) domain.LoadingState {
	return t.apply(ctx, domain.LoadingState.Reset)
}

// Track runs fn between a matched Begin and End. The slot is released on
// both the success and the failure path.
func (t *LoadingTracker) Track(ctx context.Context, fn func(ctx context.Context) error) error {
	t.Begin(ctx)
	defer t.End(ctx)
	return fn(ctx)
}

func (t *LoadingTracker) apply(ctx context.Context, transition func(domain.LoadingState) domain.LoadingState) domain.LoadingState {
	t.mu.Lock()
	prev := t.state
	next := transition(prev)
	t.state = next
	t.mu.Unlock()

	metrics.PendingRequests.Set(float64(next.PendingRequestCount))

	if t.publisher != nil && prev.IsBusy != next.IsBusy {
		if err := t.publisher.PublishLoading(ctx, next); err != nil {
			slog.WarnContext(ctx, "publish loading state failed", "error", err)
		}
	}
	return next
}
