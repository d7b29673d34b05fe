// Package waypoint keeps the planned path: an ordered list of waypoint
// markers and the line segments joining consecutive waypoints.
package waypoint

import (
	"github.com/groundlink/missionmap/internal/mapview"
	"github.com/groundlink/missionmap/pkg/core"
)

// Waypoint is one planned stop and its marker.
type Waypoint struct {
	Position core.GeoPoint
	Marker   mapview.Marker
}

// Segment is the drawn line between waypoints From and From+1.
type Segment struct {
	From, To int
	Line     mapview.Layer
}

// Path is an ordered list of waypoints plus the segments between them.
// It always holds max(0, waypoints-1) segments, and every mutation is drawn
// on the map before the call returns. A Path is not safe for concurrent use.
type Path struct {
	view      mapview.Map
	icon      mapview.Icon
	waypoints []Waypoint
	segments  []Segment
}

// NewPath creates an empty path drawing waypoint markers with icon.
func NewPath(view mapview.Map, icon mapview.Icon) *Path {
	return &Path{view: view, icon: icon}
}

// Append adds a waypoint at p, joined to the previous last waypoint.
func (p *Path) Append(pt core.GeoPoint) {
	marker := p.view.AddMarker(pt, p.icon)

	if n := len(p.waypoints); n > 0 {
		prev := p.waypoints[n-1]
		p.segments = append(p.segments, Segment{
			From: n - 1,
			To:   n,
			Line: p.view.AddPolyline(prev.Marker.LatLng(), marker.LatLng()),
		})
	}
	p.waypoints = append(p.waypoints, Waypoint{Position: pt, Marker: marker})
}

// UndoLast removes the last waypoint and the last segment, each if present.
func (p *Path) UndoLast() {
	if n := len(p.waypoints); n > 0 {
		p.waypoints[n-1].Marker.Remove()
		p.waypoints = p.waypoints[:n-1]
	}
	if n := len(p.segments); n > 0 {
		p.segments[n-1].Line.Remove()
		p.segments = p.segments[:n-1]
	}
}

// ClearAll removes every waypoint and segment from the path and the map.
func (p *Path) ClearAll() {
	for _, w := range p.waypoints {
		w.Marker.Remove()
	}
	p.waypoints = nil

	for _, s := range p.segments {
		s.Line.Remove()
	}
	p.segments = nil
}

// Len returns the number of waypoints.
func (p *Path) Len() int {
	return len(p.waypoints)
}

// Points returns the waypoint positions in path order.
func (p *Path) Points() []core.GeoPoint {
	out := make([]core.GeoPoint, len(p.waypoints))
	for i, w := range p.waypoints {
		out[i] = w.Position
	}
	return out
}

// Waypoints returns a copy of the waypoints in path order.
func (p *Path) Waypoints() []Waypoint {
	return append([]Waypoint(nil), p.waypoints...)
}

// Segments returns a copy of the segments in path order.
func (p *Path) Segments() []Segment {
	return append([]Segment(nil), p.segments...)
}
