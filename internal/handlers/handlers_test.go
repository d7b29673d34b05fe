package handlers

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/groundlink/missionmap/internal/codec"
	"github.com/groundlink/missionmap/internal/dispatcher"
	"github.com/groundlink/missionmap/internal/geo"
	"github.com/groundlink/missionmap/internal/mapview"
	"github.com/groundlink/missionmap/internal/session"
	"github.com/groundlink/missionmap/internal/storage"
	"github.com/groundlink/missionmap/pkg/core"
)

// mockBackend implements storage.Backend for testing
type mockBackend struct {
	missions  []core.MissionRecord
	positions []core.PositionFix
	failWith  error
}

func (b *mockBackend) Init() error  { return nil }
func (b *mockBackend) Close() error { return nil }

func (b *mockBackend) RecordMission(m *core.MissionRecord) error {
	if b.failWith != nil {
		return b.failWith
	}
	m.ID = uint(len(b.missions) + 1)
	b.missions = append(b.missions, *m)
	return nil
}

func (b *mockBackend) RecordPosition(f *core.PositionFix) error {
	if b.failWith != nil {
		return b.failWith
	}
	b.positions = append(b.positions, *f)
	return nil
}

var _ storage.Backend = (*mockBackend)(nil)

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

type countingFlusher struct{ calls int }

func (f *countingFlusher) Flush(context.Context) error {
	f.calls++
	return nil
}

type fixture struct {
	d       *dispatcher.Dispatcher
	sess    *session.Session
	canvas  *mapview.Canvas
	backend *mockBackend
	flusher *countingFlusher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	canvas := mapview.NewCanvas(core.GeoPoint{Lat: 41.27442, Lng: 28.727317}, mapview.DefaultStyle)
	sess := session.New(canvas, session.Options{
		ID:    "test",
		Icons: mapview.IconSet{core.RoleVehicle: "uav.png"},
	})
	backend := &mockBackend{}
	flusher := &countingFlusher{}

	svc := NewService(Dependencies{
		Session:         sess,
		Backend:         backend,
		Logger:          slog.New(slog.NewTextHandler(io.Discard, nil)),
		DefaultAltitude: 10,
		Flusher:         flusher,
	})

	d, err := dispatcher.New(nopLogger{})
	if err != nil {
		t.Fatalf("dispatcher.New: %v", err)
	}
	svc.RegisterHandlers(d)

	return &fixture{d: d, sess: sess, canvas: canvas, backend: backend, flusher: flusher}
}

func (f *fixture) send(t *testing.T, line string) (any, error) {
	t.Helper()
	e, ok := dispatcher.ParseEvent(line, time.Now())
	if !ok {
		t.Fatalf("blank line %q", line)
	}
	return f.d.Dispatch(e)
}

func (f *fixture) mustSend(t *testing.T, line string) any {
	t.Helper()
	res, err := f.send(t, line)
	if err != nil {
		t.Fatalf("%s: unexpected error: %v", line, err)
	}
	return res
}

func TestRegisterHandlers_AllCommands(t *testing.T) {
	f := newFixture(t)

	want := []string{
		":CLEAR:", ":CLICK:", ":LOAD:", ":MISSION:", ":MODE:",
		":RESET:REGION:", ":STATUS:", ":TELEMETRY:", ":UNDO:",
	}
	got := f.d.Commands()
	if len(got) != len(want) {
		t.Fatalf("expected %d commands, got %v", len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("command %d: expected %s, got %s", i, want[i], got[i])
		}
	}
}

func TestMode(t *testing.T) {
	f := newFixture(t)

	res := f.mustSend(t, ":MODE: WAYPOINT")
	if res.(ModeResult).Mode != core.ModeWaypoint {
		t.Errorf("expected waypoint mode, got %v", res)
	}
	if f.sess.Mode() != core.ModeWaypoint {
		t.Errorf("session mode not updated: %v", f.sess.Mode())
	}

	if _, err := f.send(t, ":MODE: sideways"); err == nil {
		t.Error("expected error for unknown mode")
	}
	if _, err := f.send(t, ":MODE:"); !errors.Is(err, ErrMissingArgument) {
		t.Errorf("expected ErrMissingArgument, got %v", err)
	}
}

func TestClick_FreeModeReportsPosition(t *testing.T) {
	f := newFixture(t)

	res := f.mustSend(t, `:CLICK: "41.5,28.9"`).(ClickResult)
	if res.Mode != core.ModeFree {
		t.Errorf("expected free mode, got %s", res.Mode)
	}
	if res.Report != "p41.5,28.9" {
		t.Errorf("expected position report, got %q", res.Report)
	}
}

func TestClick_SplitCoordinates(t *testing.T) {
	f := newFixture(t)
	f.mustSend(t, ":MODE: waypoint")

	res := f.mustSend(t, ":CLICK: 41.5, 28.9").(ClickResult)
	if res.Report != "" {
		t.Errorf("waypoint clicks should not report, got %q", res.Report)
	}
	pts := f.sess.Points()
	if len(pts) != 1 || pts[0] != (core.GeoPoint{Lat: 41.5, Lng: 28.9}) {
		t.Errorf("unexpected points %v", pts)
	}
}

func TestClick_InvalidCoordinates(t *testing.T) {
	f := newFixture(t)
	f.mustSend(t, ":MODE: waypoint")

	for _, line := range []string{":CLICK: 91,0", ":CLICK: abc", ":CLICK:", ":CLICK: 1,2 3"} {
		if _, err := f.send(t, line); err == nil {
			t.Errorf("%s: expected error", line)
		}
	}
	if len(f.sess.Points()) != 0 {
		t.Error("invalid clicks must not add waypoints")
	}
	if _, err := f.send(t, ":CLICK: 91,0"); !errors.Is(err, geo.ErrInvalidCoordinates) {
		t.Errorf("expected ErrInvalidCoordinates, got %v", err)
	}
}

func TestTelemetry_RecordsFix(t *testing.T) {
	f := newFixture(t)

	res := f.mustSend(t, ":TELEMETRY: uav 41.0,29.0 90").(TelemetryResult)
	if res.Role != core.RoleVehicle {
		t.Errorf("expected uav alias to map to vehicle, got %s", res.Role)
	}
	if res.Heading == nil || *res.Heading != 90 {
		t.Errorf("expected heading 90, got %v", res.Heading)
	}
	if len(f.backend.positions) != 1 {
		t.Fatalf("expected 1 recorded fix, got %d", len(f.backend.positions))
	}
	if f.backend.positions[0].SessionID != "test" {
		t.Errorf("expected session id on fix, got %q", f.backend.positions[0].SessionID)
	}
	if f.canvas.Center() != (core.GeoPoint{Lat: 41.0, Lng: 29.0}) {
		t.Errorf("view should follow telemetry, center %v", f.canvas.Center())
	}
}

func TestTelemetry_SplitCoordinates(t *testing.T) {
	f := newFixture(t)

	res := f.mustSend(t, ":TELEMETRY: vehicle 41.2, 28.7").(TelemetryResult)
	if res.Lat != 41.2 || res.Lng != 28.7 {
		t.Errorf("expected 41.2,28.7, got %v,%v", res.Lat, res.Lng)
	}

	res = f.mustSend(t, ":TELEMETRY: target 41.2 ,28.7 270").(TelemetryResult)
	if res.Heading == nil || *res.Heading != 270 {
		t.Errorf("expected heading 270, got %v", res.Heading)
	}
}

func TestSplitLatLng(t *testing.T) {
	tests := []struct {
		args   []string
		coords string
		rest   int
	}{
		{[]string{"41,29"}, "41,29", 0},
		{[]string{"41,", "29", "90"}, "41,29", 1},
		{[]string{"41", ",29"}, "41,29", 0},
		{[]string{"41"}, "41", 0},
		{nil, "", 0},
	}
	for _, tt := range tests {
		coords, rest := splitLatLng(tt.args)
		if coords != tt.coords || len(rest) != tt.rest {
			t.Errorf("splitLatLng(%q) = %q, %q", tt.args, coords, rest)
		}
	}
}

func TestTelemetry_Errors(t *testing.T) {
	f := newFixture(t)

	tests := []string{
		":TELEMETRY: uav",
		":TELEMETRY: drone 41,29",
		":TELEMETRY: uav 41",
		":TELEMETRY: uav 41,29 north",
		":TELEMETRY: uav 41,29 90 extra",
	}
	for _, line := range tests {
		if _, err := f.send(t, line); err == nil {
			t.Errorf("%s: expected error", line)
		}
	}
	if len(f.backend.positions) != 0 {
		t.Error("rejected telemetry must not be recorded")
	}
}

func TestTelemetry_BackendFailureIsNotFatal(t *testing.T) {
	f := newFixture(t)
	f.backend.failWith = errors.New("disk full")

	if _, err := f.send(t, ":TELEMETRY: home 41,29"); err != nil {
		t.Errorf("expected telemetry to apply despite backend error, got %v", err)
	}
}

func TestMission_Path(t *testing.T) {
	f := newFixture(t)
	f.mustSend(t, ":MODE: waypoint")
	f.mustSend(t, ":CLICK: 41,29")
	f.mustSend(t, ":CLICK: 41.01,29.01")

	res := f.mustSend(t, ":MISSION: path").(MissionResult)
	if res.Message != "m41,29&41.01,29.01" {
		t.Errorf("unexpected message %q", res.Message)
	}
	if len(res.Items) != 2 || res.Items[0].Seq != 1 || res.Items[1].Alt != 10 {
		t.Errorf("unexpected items %+v", res.Items)
	}
	if res.LengthM <= 0 {
		t.Errorf("expected positive length, got %v", res.LengthM)
	}
	if res.ID != 1 || len(f.backend.missions) != 1 {
		t.Errorf("expected mission recorded with id 1, got id %d", res.ID)
	}
	if f.flusher.calls != 1 {
		t.Errorf("expected one flush, got %d", f.flusher.calls)
	}
}

func TestMission_Region(t *testing.T) {
	f := newFixture(t)
	f.mustSend(t, ":MODE: region")

	if _, err := f.send(t, ":MISSION: region"); !errors.Is(err, codec.ErrInsufficientCorners) {
		t.Errorf("expected ErrInsufficientCorners, got %v", err)
	}

	f.mustSend(t, ":CLICK: 41,29")
	f.mustSend(t, ":CLICK: 41.01,29.01")

	res := f.mustSend(t, ":MISSION: region").(MissionResult)
	if res.Message != "m41,29&41.01,29.01" {
		t.Errorf("unexpected message %q", res.Message)
	}
	if res.Items != nil {
		t.Error("region missions carry no waypoint items")
	}
	if res.AreaM2 <= 0 {
		t.Errorf("expected positive area, got %v", res.AreaM2)
	}
}

func TestMission_EmptyPath(t *testing.T) {
	f := newFixture(t)

	res := f.mustSend(t, ":MISSION: path").(MissionResult)
	if res.Message != "m" {
		t.Errorf("expected bare tag, got %q", res.Message)
	}
}

func TestMission_Errors(t *testing.T) {
	f := newFixture(t)

	if _, err := f.send(t, ":MISSION:"); !errors.Is(err, ErrMissingArgument) {
		t.Errorf("expected ErrMissingArgument, got %v", err)
	}
	if _, err := f.send(t, ":MISSION: orbit"); err == nil {
		t.Error("expected error for unknown kind")
	}
	if len(f.backend.missions) != 0 {
		t.Error("failed missions must not be recorded")
	}
}

func TestLoad(t *testing.T) {
	f := newFixture(t)
	f.mustSend(t, ":MODE: waypoint")
	f.mustSend(t, ":CLICK: 10,10")

	res := f.mustSend(t, ":LOAD: m1,2&3,4").(LoadResult)
	if res.Loaded != 2 {
		t.Errorf("expected 2 loaded, got %d", res.Loaded)
	}
	pts := f.sess.Points()
	if len(pts) != 2 || pts[0] != (core.GeoPoint{Lat: 1, Lng: 2}) {
		t.Errorf("load should replace the path, got %v", pts)
	}

	if _, err := f.send(t, ":LOAD: m1,2&oops"); !errors.Is(err, codec.ErrMalformedToken) {
		t.Errorf("expected ErrMalformedToken, got %v", err)
	}
	if len(f.sess.Points()) != 2 {
		t.Error("failed load must keep the current plan")
	}
	if _, err := f.send(t, ":LOAD:"); !errors.Is(err, ErrMissingArgument) {
		t.Errorf("expected ErrMissingArgument, got %v", err)
	}
	if _, err := f.send(t, ":LOAD: m"); !errors.Is(err, session.ErrEmptyMission) {
		t.Errorf("expected ErrEmptyMission, got %v", err)
	}
	if len(f.sess.Points()) != 2 {
		t.Error("an empty mission must keep the current plan")
	}
}

func TestUndoClearResetAndStatus(t *testing.T) {
	f := newFixture(t)
	f.mustSend(t, ":CLICK: 5,5") // operator marker
	f.mustSend(t, ":TELEMETRY: vehicle 6,6")
	f.mustSend(t, ":MODE: waypoint")
	f.mustSend(t, ":CLICK: 1,1")
	f.mustSend(t, ":CLICK: 2,2")

	st := f.mustSend(t, ":UNDO:").(session.Status)
	if st.Waypoints != 1 {
		t.Errorf("expected 1 waypoint after undo, got %d", st.Waypoints)
	}

	f.mustSend(t, ":MODE: region")
	f.mustSend(t, ":CLICK: 1,1")
	st = f.mustSend(t, ":RESET:REGION:").(session.Status)
	if st.Corners != 0 {
		t.Errorf("expected no corners after reset, got %d", st.Corners)
	}

	st = f.mustSend(t, ":CLEAR:").(session.Status)
	if st.Waypoints != 0 {
		t.Errorf("expected empty path after clear, got %d", st.Waypoints)
	}
	if st.Markers != 1 {
		t.Errorf("expected only the vehicle marker to survive clear, got %d", st.Markers)
	}

	st = f.mustSend(t, ":STATUS:").(session.Status)
	if st.ID != "test" || st.Mode != core.ModeRegion {
		t.Errorf("unexpected status %+v", st)
	}
}

func TestNilBackend(t *testing.T) {
	canvas := mapview.NewCanvas(core.GeoPoint{}, mapview.DefaultStyle)
	svc := NewService(Dependencies{Session: session.New(canvas, session.Options{})})
	d, err := dispatcher.New(nopLogger{})
	if err != nil {
		t.Fatal(err)
	}
	svc.RegisterHandlers(d)

	for _, line := range []string{":TELEMETRY: target 1,1", ":MISSION: path"} {
		e, _ := dispatcher.ParseEvent(line, time.Now())
		if _, err := d.Dispatch(e); err != nil {
			t.Errorf("%s: unexpected error %v", line, err)
		}
	}
}
