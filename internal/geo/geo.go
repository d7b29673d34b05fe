package geo

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/groundlink/missionmap/pkg/core"
	"github.com/wroge/wgs84"
)

// ErrInvalidCoordinates is returned when a coordinate string cannot be parsed
// or lies outside the WGS84 range.
var ErrInvalidCoordinates = errors.New("invalid coordinates provided")

// ParseLatLng parses a "lat,lng" string into a validated GeoPoint.
// Surrounding whitespace and brackets are tolerated ("[41.2, 28.7]").
func ParseLatLng(coords string) (core.GeoPoint, error) {
	coords = strings.TrimSpace(coords)
	coords = strings.TrimPrefix(coords, "[")
	coords = strings.TrimSuffix(coords, "]")

	parts := strings.Split(coords, ",")
	if len(parts) != 2 {
		return core.GeoPoint{}, fmt.Errorf("%w: want 2 fields, got %d", ErrInvalidCoordinates, len(parts))
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return core.GeoPoint{}, fmt.Errorf("%w: latitude: %v", ErrInvalidCoordinates, err)
	}
	lng, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return core.GeoPoint{}, fmt.Errorf("%w: longitude: %v", ErrInvalidCoordinates, err)
	}

	p := core.GeoPoint{Lat: lat, Lng: lng}
	if err := p.Validate(); err != nil {
		return core.GeoPoint{}, fmt.Errorf("%w: %v", ErrInvalidCoordinates, err)
	}
	return p, nil
}

// ParseLatLngOr parses coords and returns fallback when it is not a valid point.
func ParseLatLngOr(coords string, fallback core.GeoPoint) (core.GeoPoint, bool) {
	p, err := ParseLatLng(coords)
	if err != nil {
		return fallback, false
	}
	return p, true
}

// ToWebMercator projects a WGS84 point (EPSG:4326) to EPSG:3857 meters,
// the projection the browser map draws in.
func ToWebMercator(p core.GeoPoint) (x, y float64) {
	f := wgs84.EPSG().Transform(4326, 3857)
	x, y, _ = f(p.Lng, p.Lat, 0)
	return x, y
}
