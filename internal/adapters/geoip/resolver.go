// Package geoip resolves a coarse position from the caller's IP address with
// a MaxMind City database. It backs the locate endpoint when the client sends
// no position of its own.
package geoip

import (
	"context"
	"fmt"
	"net"

	"github.com/oschwald/geoip2-golang"

	"github.com/samirrijal/placemark/internal/core/domain"
	"github.com/samirrijal/placemark/internal/core/ports"
)

// cityReader is the part of *geoip2.Reader the resolver uses.
type cityReader interface {
	City(ip net.IP) (*geoip2.City, error)
	Close() error
}

// Resolver looks up IP addresses in a GeoIP2/GeoLite2 City database.
type Resolver struct {
	db cityReader
}

// Open loads the database at path.
func Open(path string) (*Resolver, error) {
	db, err := geoip2.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open geoip database: %w", err)
	}
	return &Resolver{db: db}, nil
}

// Lookup returns the city-level position of ip.
func (r *Resolver) Lookup(ip string) (domain.GeoPoint, error) {
	parsed := net.ParseIP(ip)
	if parsed == nil || parsed.IsLoopback() || parsed.IsPrivate() || parsed.IsUnspecified() {
		return domain.GeoPoint{}, domain.ErrPositionUnavailable
	}
	rec, err := r.db.City(parsed)
	if err != nil {
		return domain.GeoPoint{}, fmt.Errorf("%w: %v", domain.ErrPositionUnavailable, err)
	}
	if rec.Location.Latitude == 0 && rec.Location.Longitude == 0 {
		return domain.GeoPoint{}, domain.ErrPositionUnavailable
	}
	return domain.GeoPoint{Lat: rec.Location.Latitude, Lng: rec.Location.Longitude}, nil
}

// ForIP returns a single-shot provider for ip.
func (r *Resolver) ForIP(ip string) ports.LocationProvider {
	return ipProvider{resolver: r, ip: ip}
}

// Close releases the database.
func (r *Resolver) Close() error {
	return r.db.Close()
}

type ipProvider struct {
	resolver *Resolver
	ip       string
}

func (p ipProvider) CurrentPosition(ctx context.Context) (domain.GeoPoint, error) {
	if err := ctx.Err(); err != nil {
		return domain.GeoPoint{}, err
	}
	return p.resolver.Lookup(p.ip)
}
