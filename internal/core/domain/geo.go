package domain

// coordinateScale is the factor the local search API multiplies degrees by.
const coordinateScale = 1e7

// GeoPoint represents a geographic coordinate (WGS 84).
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// DefaultCenter is Seoul city hall, used whenever no better position is known.
var DefaultCenter = GeoPoint{Lat: 37.5665, Lng: 126.9780}

// ScaledDegrees converts one axis of a coordinate scaled by 10^7 into
// degrees.
func ScaledDegrees(n int64) float64 {
	return float64(n) / coordinateScale
}
