// Package markers keeps the singleton markers of the overlay: the operator's
// clicked position and one live marker per vehicle role.
package markers

import (
	"github.com/groundlink/missionmap/internal/mapview"
	"github.com/groundlink/missionmap/pkg/core"
)

// RoleMarker is the live marker for one role.
type RoleMarker struct {
	Role         core.Role
	Marker       mapview.Marker
	LastPosition core.GeoPoint
	Heading      float64
}

// Registry owns at most one marker per role. Markers are created on the first
// update for their role and moved, never recreated, afterwards.
// A Registry is not safe for concurrent use.
type Registry struct {
	view    mapview.Map
	icons   mapview.IconSet
	markers map[core.Role]*RoleMarker
}

// NewRegistry creates an empty registry drawing on view with the given icons.
func NewRegistry(view mapview.Map, icons mapview.IconSet) *Registry {
	return &Registry{
		view:    view,
		icons:   icons,
		markers: make(map[core.Role]*RoleMarker),
	}
}

// SetOperatorPosition places the operator marker at p. The view is not moved.
func (r *Registry) SetOperatorPosition(p core.GeoPoint) {
	r.place(core.RoleOperatorPosition, p)
}

// UpdateRoleMarker recenters the view on p and places the marker for role there.
func (r *Registry) UpdateRoleMarker(role core.Role, p core.GeoPoint) {
	r.view.FlyTo(p)
	r.place(role, p)
}

// SetHeading rotates the marker for role. It reports false when the role has
// no marker yet or the mapping library cannot rotate it.
func (r *Registry) SetHeading(role core.Role, deg float64) bool {
	rm, ok := r.markers[role]
	if !ok {
		return false
	}
	rot, ok := rm.Marker.(mapview.Rotatable)
	if !ok {
		return false
	}
	rot.SetRotation(deg)
	rm.Heading = deg
	return true
}

// Get returns the marker for role.
func (r *Registry) Get(role core.Role) (RoleMarker, bool) {
	rm, ok := r.markers[role]
	if !ok {
		return RoleMarker{}, false
	}
	return *rm, true
}

// Position returns the last known position for role.
func (r *Registry) Position(role core.Role) (core.GeoPoint, bool) {
	rm, ok := r.markers[role]
	if !ok {
		return core.GeoPoint{}, false
	}
	return rm.LastPosition, true
}

// Len returns the number of live markers.
func (r *Registry) Len() int {
	return len(r.markers)
}

// Remove takes the marker for role off the map. Unknown roles are ignored.
func (r *Registry) Remove(role core.Role) {
	rm, ok := r.markers[role]
	if !ok {
		return
	}
	rm.Marker.Remove()
	delete(r.markers, role)
}

// Clear removes the operator marker. Telemetry markers stay until Reset.
func (r *Registry) Clear() {
	r.Remove(core.RoleOperatorPosition)
}

// Reset removes every marker.
func (r *Registry) Reset() {
	for _, role := range core.Roles {
		r.Remove(role)
	}
}

func (r *Registry) place(role core.Role, p core.GeoPoint) {
	if rm, ok := r.markers[role]; ok {
		rm.Marker.SetLatLng(p)
		rm.LastPosition = p
		return
	}
	r.markers[role] = &RoleMarker{
		Role:         role,
		Marker:       r.view.AddMarker(p, r.icons.For(role)),
		LastPosition: p,
	}
}
