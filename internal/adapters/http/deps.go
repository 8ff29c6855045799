package http

import (
	"github.com/nats-io/nats.go"

	"github.com/samirrijal/placemark/internal/adapters/postgres"
	"github.com/samirrijal/placemark/internal/adapters/valkey"
	"github.com/samirrijal/placemark/internal/core/ports"
	"github.com/samirrijal/placemark/internal/core/usecases"
)

// IPLocator resolves a coarse position for a client address.
type IPLocator interface {
	ForIP(ip string) ports.LocationProvider
}

// Dependencies holds all services needed by HTTP handlers. Infrastructure
// fields may be nil when the matching backend is not configured.
type Dependencies struct {
	Viewport  *usecases.ViewportService
	Guard     *usecases.Guard
	Loading   *usecases.LoadingTracker
	Search    *usecases.SearchService
	Locations *usecases.LocationService
	GeoIP     IPLocator
	NATS      *nats.Conn
	DB        *postgres.DB
	Cache     *valkey.Cache
	Version   string
	RateLimit int
}
