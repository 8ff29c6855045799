package domain

import (
	"context"
	"errors"
)

// Position errors mirror the codes a platform location provider reports.
var (
	ErrPermissionDenied    = errors.New("location permission denied")
	ErrPositionUnavailable = errors.New("position unavailable")
	ErrTimeout             = errors.New("location request timed out")
)

// Position error codes as reported by browsers.
const (
	CodePermissionDenied    = 1
	CodePositionUnavailable = 2
	CodeTimeout             = 3
)

// PositionReport is a single reading sent by a client: either a point or an
// error code.
type PositionReport struct {
	Point *GeoPoint `json:"point,omitempty"`
	Code  int       `json:"code,omitempty"`
}

// CurrentPosition implements ports.LocationProvider.
func (r PositionReport) CurrentPosition(ctx context.Context) (GeoPoint, error) {
	switch r.Code {
	case 0:
	case CodePermissionDenied:
		return GeoPoint{}, ErrPermissionDenied
	case CodeTimeout:
		return GeoPoint{}, ErrTimeout
	default:
		return GeoPoint{}, ErrPositionUnavailable
	}
	if r.Point == nil {
		return GeoPoint{}, ErrPositionUnavailable
	}
	return *r.Point, nil
}
