package geo

import (
	"errors"
	"math"
	"testing"

	"github.com/groundlink/missionmap/pkg/core"
)

func TestParseLatLng_Valid(t *testing.T) {
	p, err := ParseLatLng("41.27442,28.727317")

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Lat != 41.27442 {
		t.Errorf("expected Lat=41.27442, got %f", p.Lat)
	}
	if p.Lng != 28.727317 {
		t.Errorf("expected Lng=28.727317, got %f", p.Lng)
	}
}

func TestParseLatLng_Bracketed(t *testing.T) {
	p, err := ParseLatLng(" [ -33.5, 151.25 ] ")

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Lat != -33.5 || p.Lng != 151.25 {
		t.Errorf("expected -33.5,151.25, got %v", p)
	}
}

func TestParseLatLng_Integers(t *testing.T) {
	p, err := ParseLatLng("1,2")

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p != (core.GeoPoint{Lat: 1, Lng: 2}) {
		t.Errorf("expected 1,2, got %v", p)
	}
}

func TestParseLatLng_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"single field", "41.2"},
		{"three fields", "1,2,3"},
		{"empty", ""},
		{"bad latitude", "abc,28.7"},
		{"bad longitude", "41.2,xyz"},
		{"latitude too large", "90.0001,0"},
		{"longitude too small", "0,-180.5"},
		{"nan", "NaN,0"},
		{"inf", "0,+Inf"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseLatLng(tt.input)
			if err == nil {
				t.Fatalf("expected error for %q", tt.input)
			}
			if !errors.Is(err, ErrInvalidCoordinates) {
				t.Errorf("expected ErrInvalidCoordinates, got %v", err)
			}
		})
	}
}

func TestParseLatLngOr_Fallback(t *testing.T) {
	fallback := core.GeoPoint{Lat: 41.27442, Lng: 28.727317}

	p, ok := ParseLatLngOr("not,a point", fallback)
	if ok {
		t.Error("expected ok=false for invalid input")
	}
	if p != fallback {
		t.Errorf("expected fallback, got %v", p)
	}

	p, ok = ParseLatLngOr("10,20", fallback)
	if !ok {
		t.Error("expected ok=true for valid input")
	}
	if p != (core.GeoPoint{Lat: 10, Lng: 20}) {
		t.Errorf("expected 10,20, got %v", p)
	}
}

func TestToWebMercator_Origin(t *testing.T) {
	x, y := ToWebMercator(core.GeoPoint{})

	if math.Abs(x) > 1e-6 || math.Abs(y) > 1e-6 {
		t.Errorf("expected origin to project to 0,0, got %f,%f", x, y)
	}
}

func TestToWebMercator_Antimeridian(t *testing.T) {
	x, _ := ToWebMercator(core.GeoPoint{Lat: 0, Lng: 180})

	// half the equatorial circumference of the spherical mercator
	if math.Abs(x-20037508.34) > 1 {
		t.Errorf("expected x close to 20037508.34, got %f", x)
	}
}
