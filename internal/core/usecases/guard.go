package usecases

import (
	"context"

	"github.com/samirrijal/placemark/internal/core/domain"
)

// Screen paths.
const (
	ScreenSetup = "/"
	ScreenMap   = "/map-view"
)

// ViewportReader is the read side of the viewport store.
type ViewportReader interface {
	State(ctx context.Context) (domain.ViewportState, error)
}

// Guard gates the two screens on the location permission flag.
type Guard struct {
	viewport ViewportReader
}

// NewGuard creates a new Guard.
func NewGuard(viewport ViewportReader) *Guard {
	return &Guard{viewport: viewport}
}

// Resolve returns the path to redirect to, or "" when path may render. The
// state is read on every call.
func (g *Guard) Resolve(ctx context.Context, path string) (string, error) {
	state, err := g.viewport.State(ctx)
	if err != nil {
		return "", err
	}

	switch path {
	case ScreenMap:
		if state.Phase() == domain.PhaseUnset {
			return ScreenSetup, nil
		}
	case ScreenSetup:
		if state.Phase() == domain.PhaseLocated {
			return ScreenMap, nil
		}
	}
	return "", nil
}
