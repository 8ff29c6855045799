package usecases

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/samirrijal/placemark/internal/core/domain"
	"github.com/samirrijal/placemark/internal/core/ports"
	"github.com/samirrijal/placemark/internal/pkg/telemetry"
)

// Locator reads a position once and falls back to the default center on any
// failure. Callers never see an error.
type Locator struct {
	timeout time.Duration
}

// NewLocator creates a Locator. A non-positive timeout disables the bound.
func NewLocator(timeout time.Duration) *Locator {
	return &Locator{timeout: timeout}
}

// Locate returns the provider's position or domain.DefaultCenter.
func (l *Locator) Locate(ctx context.Context, provider ports.LocationProvider) domain.GeoPoint {
	if provider == nil {
		slog.WarnContext(ctx, "no location provider, using default center")
		return domain.DefaultCenter
	}

	ctx, span := telemetry.Tracer("placemark/viewport").Start(ctx, telemetry.SpanLocate)
	defer span.End()

	if l.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}

	p, err := provider.CurrentPosition(ctx)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			err = domain.ErrTimeout
		}
		span.RecordError(err)
		slog.WarnContext(ctx, "location read failed, using default center", "error", err)
		return domain.DefaultCenter
	}
	return p
}
