package domain_test

import (
	"math"
	"testing"

	"github.com/samirrijal/placemark/internal/core/domain"
)

func TestInitialViewport(t *testing.T) {
	s := domain.InitialViewport()
	if s.Center != domain.DefaultCenter {
		t.Errorf("expected default center, got %+v", s.Center)
	}
	if s.Zoom != domain.DefaultZoom {
		t.Errorf("expected zoom %d, got %d", domain.DefaultZoom, s.Zoom)
	}
	if s.Phase() != domain.PhaseUnset {
		t.Errorf("expected unset phase, got %s", s.Phase())
	}
}

func TestReduceViewport_ZoomAlwaysClamped(t *testing.T) {
	inputs := []int{math.MinInt, -1000, -1, 0, 1, 2, 9, 17, 18, 19, 25, 1 << 20, math.MaxInt}

	s := domain.InitialViewport()
	for _, z := range inputs {
		s = domain.ReduceViewport(s, domain.SetZoom(z, domain.OriginUser))
		if s.Zoom < domain.MinZoom || s.Zoom > domain.MaxZoom {
			t.Fatalf("zoom %d escaped bounds after SetZoom(%d)", s.Zoom, z)
		}
	}

	if got := domain.ReduceViewport(s, domain.SetZoom(-5, domain.OriginUser)).Zoom; got != domain.MinZoom {
		t.Errorf("expected %d, got %d", domain.MinZoom, got)
	}
	if got := domain.ReduceViewport(s, domain.SetZoom(40, domain.OriginUser)).Zoom; got != domain.MaxZoom {
		t.Errorf("expected %d, got %d", domain.MaxZoom, got)
	}
	if got := domain.ReduceViewport(s, domain.SetZoom(12, domain.OriginUser)).Zoom; got != 12 {
		t.Errorf("expected 12, got %d", got)
	}
}

func TestReduceViewport_SetCenterKeepsPermission(t *testing.T) {
	p := domain.GeoPoint{Lat: 35.1796, Lng: 129.0756}

	s := domain.ReduceViewport(domain.InitialViewport(), domain.SetCenter(p, domain.OriginUser))
	if s.Center != p {
		t.Errorf("expected center %+v, got %+v", p, s.Center)
	}
	if s.LocationPermissionGranted {
		t.Error("SetCenter must not grant permission")
	}
}

func TestReduceViewport_SetCurrentLocation(t *testing.T) {
	p := domain.GeoPoint{Lat: 35.1796, Lng: 129.0756}

	s := domain.ReduceViewport(domain.InitialViewport(), domain.SetCurrentLocation(p))
	if s.Center != p {
		t.Errorf("expected center %+v, got %+v", p, s.Center)
	}
	if s.Phase() != domain.PhaseLocated {
		t.Errorf("expected located, got %s", s.Phase())
	}
}

func TestReduceViewport_ResetIsIndependentOfPriorState(t *testing.T) {
	priors := []domain.ViewportState{
		domain.InitialViewport(),
		{Center: domain.GeoPoint{Lat: -33.86, Lng: 151.2}, Zoom: 3, LocationPermissionGranted: true},
		{Center: domain.GeoPoint{Lat: 200, Lng: -500}, Zoom: 18},
	}
	want := domain.ViewportState{Center: domain.DefaultCenter, Zoom: domain.DefaultZoom, LocationPermissionGranted: true}

	for _, prior := range priors {
		if got := domain.ReduceViewport(prior, domain.ResetToDefault()); got != want {
			t.Errorf("reset from %+v: got %+v, want %+v", prior, got, want)
		}
	}
}

func TestReduceViewport_ProgrammaticMovesAreIgnored(t *testing.T) {
	s := domain.InitialViewport()
	s.Zoom = 10

	next := domain.ReduceViewport(s, domain.SetCenter(domain.GeoPoint{Lat: 1, Lng: 1}, domain.OriginProgrammatic))
	if next != s {
		t.Errorf("programmatic center echo changed state: %+v", next)
	}
	next = domain.ReduceViewport(s, domain.SetZoom(4, domain.OriginProgrammatic))
	if next != s {
		t.Errorf("programmatic zoom echo changed state: %+v", next)
	}
}

func TestReduceViewport_PermissionNeverRevoked(t *testing.T) {
	s := domain.ReduceViewport(domain.InitialViewport(), domain.ResetToDefault())

	actions := []domain.ViewportAction{
		domain.SetCenter(domain.GeoPoint{Lat: 1, Lng: 2}, domain.OriginUser),
		domain.SetZoom(0, domain.OriginUser),
		domain.SetCenter(domain.GeoPoint{Lat: 3, Lng: 4}, domain.OriginProgrammatic),
		domain.SetCurrentLocation(domain.GeoPoint{Lat: 5, Lng: 6}),
		domain.ResetToDefault(),
	}
	for _, a := range actions {
		s = domain.ReduceViewport(s, a)
		if !s.LocationPermissionGranted {
			t.Fatalf("permission revoked by %s", a.Type)
		}
	}
}

func TestScaledDegrees(t *testing.T) {
	lat, lng := domain.ScaledDegrees(375665000), domain.ScaledDegrees(1269780000)
	if math.Abs(lat-37.5665) > 1e-9 || math.Abs(lng-126.978) > 1e-9 {
		t.Errorf("unexpected degrees %v, %v", lat, lng)
	}
}
