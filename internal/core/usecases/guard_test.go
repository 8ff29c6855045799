package usecases_test

import (
	"context"
	"errors"
	"testing"

	"github.com/samirrijal/placemark/internal/core/domain"
	"github.com/samirrijal/placemark/internal/core/usecases"
)

type stateFunc func(ctx context.Context) (domain.ViewportState, error)

func (f stateFunc) State(ctx context.Context) (domain.ViewportState, error) { return f(ctx) }

func TestGuard_Resolve(t *testing.T) {
	unset := domain.InitialViewport()
	located := unset
	located.LocationPermissionGranted = true

	tests := []struct {
		name  string
		state domain.ViewportState
		path  string
		want  string
	}{
		{"map without permission", unset, usecases.ScreenMap, usecases.ScreenSetup},
		{"map with permission", located, usecases.ScreenMap, ""},
		{"setup without permission", unset, usecases.ScreenSetup, ""},
		{"setup with permission", located, usecases.ScreenSetup, usecases.ScreenMap},
		{"other path", unset, "/elsewhere", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := usecases.NewGuard(stateFunc(func(ctx context.Context) (domain.ViewportState, error) {
				return tt.state, nil
			}))
			got, err := g.Resolve(context.Background(), tt.path)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestGuard_ReadsStateOnEveryCall(t *testing.T) {
	svc := usecases.NewViewportService(&mockViewportRepo{}, nil, nil)
	g := usecases.NewGuard(svc)
	ctx := context.Background()

	if got, _ := g.Resolve(ctx, usecases.ScreenMap); got != usecases.ScreenSetup {
		t.Fatalf("expected redirect to setup, got %q", got)
	}
	if _, err := svc.ResetToDefault(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got, _ := g.Resolve(ctx, usecases.ScreenMap); got != "" {
		t.Errorf("expected map to render, got redirect %q", got)
	}
}

func TestGuard_PropagatesReadError(t *testing.T) {
	g := usecases.NewGuard(stateFunc(func(ctx context.Context) (domain.ViewportState, error) {
		return domain.ViewportState{}, domain.ErrPersistence
	}))
	if _, err := g.Resolve(context.Background(), usecases.ScreenMap); !errors.Is(err, domain.ErrPersistence) {
		t.Errorf("expected ErrPersistence, got %v", err)
	}
}
