package session

import (
	"testing"
	"time"

	"github.com/groundlink/missionmap/internal/codec"
	"github.com/groundlink/missionmap/internal/mapview"
	"github.com/groundlink/missionmap/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedTime = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func newTestSession(t *testing.T) (*Session, *mapview.Canvas) {
	t.Helper()
	c := mapview.NewCanvas(core.GeoPoint{Lat: 41.27442, Lng: 28.727317}, mapview.DefaultStyle)
	s := New(c, Options{
		ID: "test",
		Icons: mapview.IconSet{
			core.RoleVehicle: "uav.png",
			core.RoleHome:    "home.png",
		},
		WaypointIcon: "waypoint.png",
	})
	s.now = func() time.Time { return fixedTime }
	return s, c
}

func ptr(f float64) *float64 { return &f }

func TestSession_DefaultMode(t *testing.T) {
	s, _ := newTestSession(t)
	assert.Equal(t, core.ModeFree, s.Mode())
	assert.Equal(t, "test", s.ID())
}

func TestSession_Click_RoutesByMode(t *testing.T) {
	s, c := newTestSession(t)

	report := s.Click(core.GeoPoint{Lat: 1, Lng: 2})
	assert.Equal(t, "p1,2", report)
	assert.Equal(t, 1, c.Count(mapview.KindMarker))

	s.SetMode(core.ModeWaypoint)
	assert.Empty(t, s.Click(core.GeoPoint{Lat: 3, Lng: 4}))
	assert.Empty(t, s.Click(core.GeoPoint{Lat: 5, Lng: 6}))

	s.SetMode(core.ModeRegion)
	s.Click(core.GeoPoint{Lat: 1, Lng: 1})
	s.Click(core.GeoPoint{Lat: 2, Lng: 2})

	st := s.Status()
	assert.Equal(t, 2, st.Waypoints)
	assert.Equal(t, 1, st.Segments)
	assert.Equal(t, 2, st.Corners)
	assert.True(t, st.RegionComplete)
	assert.Equal(t, 1, c.Count(mapview.KindRectangle))
	assert.Equal(t, 1, c.Count(mapview.KindPolyline))
	// operator marker plus two waypoints
	assert.Equal(t, 3, c.Count(mapview.KindMarker))
}

func TestSession_Click_FreeModeMovesOperatorMarker(t *testing.T) {
	s, c := newTestSession(t)

	s.Click(core.GeoPoint{Lat: 1, Lng: 2})
	s.Click(core.GeoPoint{Lat: 3, Lng: 4})

	assert.Equal(t, 1, c.Count(mapview.KindMarker))
	assert.Zero(t, c.Flights(), "free clicks do not move the view")
}

func TestSession_Telemetry(t *testing.T) {
	s, c := newTestSession(t)

	fix := s.Telemetry(core.RoleVehicle, core.GeoPoint{Lat: 41, Lng: 28}, ptr(45))
	assert.Equal(t, "test", fix.SessionID)
	assert.Equal(t, core.RoleVehicle, fix.Role)
	require.NotNil(t, fix.Heading)
	assert.Equal(t, 45.0, *fix.Heading)
	assert.Equal(t, fixedTime, fix.Time)

	s.Telemetry(core.RoleVehicle, core.GeoPoint{Lat: 41.1, Lng: 28}, ptr(90))

	assert.Equal(t, 1, c.Count(mapview.KindMarker))
	assert.Equal(t, 2, c.Flights())
	assert.Equal(t, core.GeoPoint{Lat: 41.1, Lng: 28}, c.Center())
}

func TestSession_Telemetry_DerivesHeading(t *testing.T) {
	s, _ := newTestSession(t)

	first := s.Telemetry(core.RoleVehicle, core.GeoPoint{Lat: 41, Lng: 28}, nil)
	assert.Nil(t, first.Heading, "no track yet")

	north := s.Telemetry(core.RoleVehicle, core.GeoPoint{Lat: 41.01, Lng: 28}, nil)
	require.NotNil(t, north.Heading)
	assert.InDelta(t, 0, *north.Heading, 0.01)

	still := s.Telemetry(core.RoleVehicle, core.GeoPoint{Lat: 41.01, Lng: 28}, nil)
	assert.Nil(t, still.Heading, "no movement, no heading")
}

func TestSession_Undo(t *testing.T) {
	s, c := newTestSession(t)
	s.SetMode(core.ModeWaypoint)
	s.Click(core.GeoPoint{Lat: 1, Lng: 1})
	s.Click(core.GeoPoint{Lat: 2, Lng: 2})

	s.Undo()
	s.Undo()
	s.Undo()

	assert.Zero(t, s.Status().Waypoints)
	assert.Zero(t, c.Count(mapview.KindPolyline))
	assert.Zero(t, c.Count(mapview.KindMarker))
}

func TestSession_Clear(t *testing.T) {
	s, c := newTestSession(t)
	s.Click(core.GeoPoint{Lat: 0, Lng: 0})
	s.Telemetry(core.RoleVehicle, core.GeoPoint{Lat: 1, Lng: 1}, nil)
	s.SetMode(core.ModeWaypoint)
	s.Click(core.GeoPoint{Lat: 1, Lng: 2})
	s.Click(core.GeoPoint{Lat: 3, Lng: 4})
	s.SetMode(core.ModeRegion)
	s.Click(core.GeoPoint{Lat: 1, Lng: 1})
	s.Click(core.GeoPoint{Lat: 2, Lng: 2})

	s.Clear()

	st := s.Status()
	assert.Zero(t, st.Waypoints)
	assert.Zero(t, st.Corners)
	assert.Equal(t, []core.Role{core.RoleVehicle}, st.Roles)
	assert.Zero(t, c.Count(mapview.KindRectangle))
	assert.Zero(t, c.Count(mapview.KindPolyline))
	assert.Equal(t, 1, c.Count(mapview.KindMarker))
	assert.Equal(t, core.ModeRegion, st.Mode, "clear keeps the mode")
}

func TestSession_ResetRegion(t *testing.T) {
	s, c := newTestSession(t)
	s.SetMode(core.ModeRegion)
	s.Click(core.GeoPoint{Lat: 1, Lng: 1})
	s.Click(core.GeoPoint{Lat: 2, Lng: 2})

	s.ResetRegion()

	assert.Empty(t, s.Corners())
	assert.Zero(t, c.Count(mapview.KindRectangle))
}

func TestSession_Finalize_Path(t *testing.T) {
	s, _ := newTestSession(t)
	s.SetMode(core.ModeWaypoint)
	s.Click(core.GeoPoint{Lat: 1, Lng: 2})
	s.Click(core.GeoPoint{Lat: 3, Lng: 4})

	rec, err := s.Finalize(core.MissionPath)
	require.NoError(t, err)

	assert.Equal(t, core.MissionPath, rec.Kind)
	assert.Equal(t, "m1,2&3,4", rec.Message)
	assert.Equal(t, "LINESTRING(2 1,4 3)", rec.Geometry)
	assert.Greater(t, rec.LengthM, 0.0)
	assert.Zero(t, rec.AreaM2)
	assert.Equal(t, fixedTime, rec.Time)
	assert.Equal(t, "test", rec.SessionID)
}

func TestSession_Finalize_Region(t *testing.T) {
	s, _ := newTestSession(t)
	s.SetMode(core.ModeRegion)
	s.Click(core.GeoPoint{Lat: 1, Lng: 1})

	_, err := s.Finalize(core.MissionRegion)
	assert.ErrorIs(t, err, codec.ErrInsufficientCorners)

	s.Click(core.GeoPoint{Lat: 2, Lng: 2})
	rec, err := s.Finalize(core.MissionRegion)
	require.NoError(t, err)

	assert.Equal(t, "m1,1&2,2", rec.Message)
	assert.Equal(t, "LINESTRING(1 1,2 1,2 2,1 2,1 1)", rec.Geometry)
	assert.Greater(t, rec.AreaM2, 0.0)
	assert.Zero(t, rec.LengthM)
}

func TestSession_Finalize_UnknownKind(t *testing.T) {
	s, _ := newTestSession(t)
	_, err := s.Finalize("orbit")
	assert.Error(t, err)
}

func TestSession_Load(t *testing.T) {
	s, c := newTestSession(t)
	s.SetMode(core.ModeWaypoint)
	s.Click(core.GeoPoint{Lat: 9, Lng: 9})

	n, err := s.Load("1,2|3,4|")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	assert.Equal(t, []core.GeoPoint{{Lat: 1, Lng: 2}, {Lat: 3, Lng: 4}}, s.Points())
	assert.Equal(t, 2, c.Count(mapview.KindMarker))
	assert.Equal(t, 1, c.Count(mapview.KindPolyline))
}

func TestSession_Load_ErrorLeavesPlan(t *testing.T) {
	s, _ := newTestSession(t)
	s.SetMode(core.ModeWaypoint)
	s.Click(core.GeoPoint{Lat: 9, Lng: 9})

	_, err := s.Load("m1,2&bad")
	assert.ErrorIs(t, err, codec.ErrMalformedToken)
	assert.Equal(t, []core.GeoPoint{{Lat: 9, Lng: 9}}, s.Points())
}

func TestSession_Load_EmptyMissionKeepsSession(t *testing.T) {
	s, _ := newTestSession(t)
	s.SetMode(core.ModeWaypoint)
	s.Click(core.GeoPoint{Lat: 9, Lng: 9})
	s.SetMode(core.ModeRegion)
	s.Click(core.GeoPoint{Lat: 1, Lng: 1})
	s.SetMode(core.ModeFree)
	s.Click(core.GeoPoint{Lat: 5, Lng: 5})
	before := s.Status()

	for _, text := range []string{"m", "", "m&&", "m|"} {
		n, err := s.Load(text)
		assert.ErrorIs(t, err, ErrEmptyMission, "text %q", text)
		assert.Zero(t, n)
	}

	after := s.Status()
	assert.Equal(t, before.Waypoints, after.Waypoints)
	assert.Equal(t, before.Corners, after.Corners)
	assert.Equal(t, before.Markers, after.Markers)
}

func TestSession_RoundTripThroughCodec(t *testing.T) {
	s, _ := newTestSession(t)
	s.SetMode(core.ModeWaypoint)
	s.Click(core.GeoPoint{Lat: 41.27442, Lng: 28.727317})
	s.Click(core.GeoPoint{Lat: 41.3, Lng: 28.8})

	msg, err := codec.Encode(s, true)
	require.NoError(t, err)

	other, _ := newTestSession(t)
	_, err = other.Load(msg)
	require.NoError(t, err)
	assert.Equal(t, s.Points(), other.Points())
}
