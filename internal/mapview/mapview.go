// Package mapview defines what the overlay needs from a mapping library and
// provides Canvas, a headless implementation that records layer operations.
package mapview

import "github.com/groundlink/missionmap/pkg/core"

// Icon is an opaque icon handle understood by the mapping library
// (an asset name, URL or data URI). The empty icon is the library default.
type Icon string

// IconSet maps roles to icons. Roles without an entry use the default icon.
type IconSet map[core.Role]Icon

// For returns the icon for role.
func (s IconSet) For(role core.Role) Icon {
	return s[role]
}

// Layer is anything drawn on the map.
type Layer interface {
	// Remove takes the layer off the map. Removing twice is a no-op.
	Remove()
}

// Marker is a point layer that can be moved without being recreated.
type Marker interface {
	Layer
	LatLng() core.GeoPoint
	SetLatLng(p core.GeoPoint)
}

// Rotatable is implemented by markers that can be drawn rotated.
type Rotatable interface {
	// SetRotation sets the rotation in degrees clockwise from north.
	SetRotation(deg float64)
}

// Map is the set of primitives the overlay consumes from a mapping library.
type Map interface {
	AddMarker(pos core.GeoPoint, icon Icon) Marker
	AddPolyline(from, to core.GeoPoint) Layer
	AddRectangle(a, b core.GeoPoint) Layer
	FlyTo(pos core.GeoPoint)
}
