// Package session holds one planning session: a waypoint path, a region
// selector and the role markers, plus the click mode that decides where map
// clicks go.
package session

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/groundlink/missionmap/internal/codec"
	"github.com/groundlink/missionmap/internal/geo"
	"github.com/groundlink/missionmap/internal/mapview"
	"github.com/groundlink/missionmap/internal/markers"
	"github.com/groundlink/missionmap/internal/region"
	"github.com/groundlink/missionmap/internal/waypoint"
	"github.com/groundlink/missionmap/pkg/core"
)

// ErrEmptyMission is returned by Load for a message without waypoints.
var ErrEmptyMission = errors.New("mission has no waypoints")

// minHeadingDistance is how far a role marker must move before a heading
// is derived from its track.
const minHeadingDistance = 1.0 // meters

// Options configures a Session.
type Options struct {
	ID           string
	Icons        mapview.IconSet
	WaypointIcon mapview.Icon
	Mode         core.Mode // defaults to ModeFree
}

// Status is a snapshot of the session for display.
type Status struct {
	ID             string      `json:"id"`
	Mode           core.Mode   `json:"mode"`
	Waypoints      int         `json:"waypoints"`
	Segments       int         `json:"segments"`
	Corners        int         `json:"corners"`
	RegionComplete bool        `json:"regionComplete"`
	Markers        int         `json:"markers"`
	PathLengthM    float64     `json:"pathLengthM"`
	RegionAreaM2   float64     `json:"regionAreaM2"`
	Path           string      `json:"path"` // WKT
	Roles          []core.Role `json:"roles,omitempty"`
}

// Session owns the planning state drawn on one map. The mutex serializes
// callers so the components underneath stay single-threaded.
type Session struct {
	mu       sync.Mutex
	id       string
	mode     core.Mode
	path     *waypoint.Path
	selector *region.Selector
	registry *markers.Registry

	now func() time.Time
}

// New creates an empty session drawing on view.
func New(view mapview.Map, opts Options) *Session {
	mode := opts.Mode
	if mode == "" {
		mode = core.ModeFree
	}
	return &Session{
		id:       opts.ID,
		mode:     mode,
		path:     waypoint.NewPath(view, opts.WaypointIcon),
		selector: region.NewSelector(view),
		registry: markers.NewRegistry(view, opts.Icons),
		now:      time.Now,
	}
}

// ID returns the session id.
func (s *Session) ID() string {
	return s.id
}

// Mode returns the current click mode.
func (s *Session) Mode() core.Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

// SetMode selects where subsequent clicks are routed.
func (s *Session) SetMode(m core.Mode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mode = m
}

// Click routes a map click by mode. In free mode the operator marker moves
// and the returned report is the position message for the controller;
// other modes return "".
func (s *Session) Click(p core.GeoPoint) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.mode {
	case core.ModeWaypoint:
		s.path.Append(p)
	case core.ModeRegion:
		s.selector.Advance(p)
	default:
		s.registry.SetOperatorPosition(p)
		return codec.EncodePosition(p)
	}
	return ""
}

// Telemetry moves the marker for role to p and recenters the view. When
// heading is nil it is derived from the previous position, if the marker
// moved far enough. It returns the fix as applied.
func (s *Session) Telemetry(role core.Role, p core.GeoPoint, heading *float64) core.PositionFix {
	s.mu.Lock()
	defer s.mu.Unlock()

	if heading == nil {
		if prev, ok := s.registry.Position(role); ok && geo.Distance(prev, p) >= minHeadingDistance {
			h := geo.Bearing(prev, p)
			heading = &h
		}
	}

	s.registry.UpdateRoleMarker(role, p)
	if heading != nil && !s.registry.SetHeading(role, *heading) {
		heading = nil
	}

	return core.PositionFix{
		SessionID: s.id,
		Role:      role,
		Position:  p,
		Heading:   heading,
		Time:      s.now(),
	}
}

// Undo removes the last waypoint.
func (s *Session) Undo() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.path.UndoLast()
}

// ResetRegion empties the region selection.
func (s *Session) ResetRegion() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selector.Reset()
}

// Clear removes the path, the region selection and the operator marker.
// Telemetry markers stay.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clear()
}

func (s *Session) clear() {
	s.path.ClearAll()
	s.selector.Reset()
	s.registry.Clear()
}

// Finalize encodes the current plan as a mission of the given kind.
func (s *Session) Finalize(kind core.MissionKind) (core.MissionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := core.MissionRecord{
		SessionID: s.id,
		Kind:      kind,
		Time:      s.now(),
	}

	switch kind {
	case core.MissionPath:
		rec.Points = s.path.Points()
		rec.Message = codec.EncodePath(rec.Points)
		rec.Geometry = geo.PathGeometry(rec.Points)
		rec.LengthM = geo.PathLength(rec.Points)
	case core.MissionRegion:
		corners := s.selector.Corners()
		msg, err := codec.EncodeRegion(corners)
		if err != nil {
			return core.MissionRecord{}, fmt.Errorf("failed to encode region: %w", err)
		}
		rec.Points = corners[:2]
		rec.Message = msg
		rec.Geometry = geo.RegionGeometry(corners[0], corners[1])
		rec.AreaM2 = geo.RegionArea(corners[0], corners[1])
	default:
		return core.MissionRecord{}, fmt.Errorf("unknown mission kind %q", kind)
	}
	return rec, nil
}

// Load replaces the current plan with the path decoded from text and
// returns the number of waypoints loaded. On a decode error or an empty
// mission nothing changes.
func (s *Session) Load(text string) (int, error) {
	points, err := codec.Decode(text)
	if err != nil {
		return 0, fmt.Errorf("failed to decode mission: %w", err)
	}
	if len(points) == 0 {
		return 0, fmt.Errorf("failed to load %q: %w", text, ErrEmptyMission)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.clear()
	for _, p := range points {
		s.path.Append(p)
	}
	return len(points), nil
}

// Points implements codec.Source.
func (s *Session) Points() []core.GeoPoint {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.path.Points()
}

// Corners implements codec.Source.
func (s *Session) Corners() []core.GeoPoint {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selector.Corners()
}

// Status returns a snapshot of the session.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	points := s.path.Points()
	corners := s.selector.Corners()
	st := Status{
		ID:             s.id,
		Mode:           s.mode,
		Waypoints:      len(points),
		Segments:       len(s.path.Segments()),
		Corners:        len(corners),
		RegionComplete: s.selector.Complete(),
		Markers:        s.registry.Len(),
		PathLengthM:    geo.PathLength(points),
		Path:           geo.PathGeometry(points),
	}
	if st.RegionComplete {
		st.RegionAreaM2 = geo.RegionArea(corners[0], corners[1])
	}
	for _, r := range core.Roles {
		if _, ok := s.registry.Get(r); ok {
			st.Roles = append(st.Roles, r)
		}
	}
	return st
}
