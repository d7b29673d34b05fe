// Package region implements the two-click rectangle picker used for
// area missions.
package region

import (
	"github.com/groundlink/missionmap/internal/mapview"
	"github.com/groundlink/missionmap/pkg/core"
)

// Selector holds up to two corners and the rectangle they span.
//
// Advance cycles 0 -> 1 -> 2 -> 1 -> 2 ...: the first click seeds a corner,
// the second completes the rectangle, and a third discards it and seeds a new
// selection with the clicked point. Reset is the only way back to 0 corners.
// A rectangle is drawn iff exactly two corners are held.
type Selector struct {
	view    mapview.Map
	corners []core.GeoPoint
	rect    mapview.Layer
}

// NewSelector creates an empty selector drawing on view.
func NewSelector(view mapview.Map) *Selector {
	return &Selector{view: view}
}

// Advance feeds one click into the selector.
func (s *Selector) Advance(p core.GeoPoint) {
	switch len(s.corners) {
	case 0:
		s.corners = append(s.corners, p)
	case 1:
		s.corners = append(s.corners, p)
		s.rect = s.view.AddRectangle(s.corners[0], s.corners[1])
	default:
		s.removeRect()
		s.corners = []core.GeoPoint{p}
	}
}

// Reset drops all corners and the rectangle.
func (s *Selector) Reset() {
	s.removeRect()
	s.corners = nil
}

// Corners returns a copy of the held corners in click order.
func (s *Selector) Corners() []core.GeoPoint {
	return append([]core.GeoPoint(nil), s.corners...)
}

// Complete reports whether both corners are held.
func (s *Selector) Complete() bool {
	return len(s.corners) == 2
}

// HasRectangle reports whether a rectangle is drawn.
func (s *Selector) HasRectangle() bool {
	return s.rect != nil
}

func (s *Selector) removeRect() {
	if s.rect != nil {
		s.rect.Remove()
		s.rect = nil
	}
}
