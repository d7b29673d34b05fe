package handlers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/groundlink/missionmap/internal/codec"
	"github.com/groundlink/missionmap/internal/dispatcher"
	"github.com/groundlink/missionmap/internal/geo"
	"github.com/groundlink/missionmap/internal/session"
	"github.com/groundlink/missionmap/internal/storage"
	"github.com/groundlink/missionmap/internal/util"
	"github.com/groundlink/missionmap/pkg/core"
)

// ErrMissingArgument is returned when a command lacks a required argument.
var ErrMissingArgument = errors.New("missing argument")

// Flusher is satisfied by the OTel provider.
type Flusher interface {
	Flush(ctx context.Context) error
}

// Dependencies holds all dependencies needed by handlers
type Dependencies struct {
	Session *session.Session
	// Backend may be nil, in which case nothing is recorded.
	Backend         storage.Backend
	Logger          *slog.Logger
	DefaultAltitude float64
	Flusher         Flusher
}

// Service translates raw command arguments into session calls.
type Service struct {
	deps Dependencies
	log  *slog.Logger
}

// NewService creates a new handler service
func NewService(deps Dependencies) *Service {
	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Service{deps: deps, log: log}
}

// ModeResult reports the active click mode.
type ModeResult struct {
	Mode core.Mode `json:"mode"`
}

// ClickResult reports where a click was routed. Report carries the
// operator position message for free-mode clicks.
type ClickResult struct {
	Mode   core.Mode `json:"mode"`
	Report string    `json:"report,omitempty"`
}

// TelemetryResult echoes an applied telemetry fix.
type TelemetryResult struct {
	Role    core.Role `json:"role"`
	Lat     float64   `json:"lat"`
	Lng     float64   `json:"lng"`
	Heading *float64  `json:"heading"`
}

// MissionResult is a finalized mission as sent to the vehicle.
type MissionResult struct {
	ID      uint               `json:"id,omitempty"`
	Kind    core.MissionKind   `json:"kind"`
	Message string             `json:"message"`
	Items   []core.MissionItem `json:"items,omitempty"`
	LengthM float64            `json:"lengthM,omitempty"`
	AreaM2  float64            `json:"areaM2,omitempty"`
}

// LoadResult reports how many waypoints a :LOAD: placed.
type LoadResult struct {
	Loaded int `json:"loaded"`
}

// RegisterHandlers binds every map command to d. All handlers are
// synchronous so commands apply in arrival order.
func (s *Service) RegisterHandlers(d *dispatcher.Dispatcher) {
	d.Register(":MODE:", s.handleMode, dispatcher.Logged())
	d.Register(":CLICK:", s.handleClick, dispatcher.Logged())
	d.Register(":TELEMETRY:", s.handleTelemetry, dispatcher.Logged())
	d.Register(":UNDO:", s.handleUndo, dispatcher.Logged())
	d.Register(":CLEAR:", s.handleClear, dispatcher.Logged())
	d.Register(":RESET:REGION:", s.handleResetRegion, dispatcher.Logged())
	d.Register(":MISSION:", s.handleMission, dispatcher.Logged())
	d.Register(":LOAD:", s.handleLoad, dispatcher.Logged())
	d.Register(":STATUS:", s.handleStatus, dispatcher.Logged())
}

func (s *Service) handleMode(e dispatcher.Event) (any, error) {
	args := util.CleanArgs(e.Args)
	if len(args) < 1 {
		return nil, fmt.Errorf("%s: %w: mode", e.Command, ErrMissingArgument)
	}
	mode, err := core.ParseMode(strings.ToLower(args[0]))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", e.Command, err)
	}
	s.deps.Session.SetMode(mode)
	return ModeResult{Mode: mode}, nil
}

// splitLatLng takes the leading "lat,lng" off args. "41.2, 28.7" and
// "41.2 ,28.7" arrive as two fields and are joined back together.
func splitLatLng(args []string) (coords string, rest []string) {
	i := 0
	for i < len(args) {
		coords += args[i]
		i++
		if strings.Contains(coords, ",") && !strings.HasSuffix(coords, ",") {
			break
		}
	}
	return coords, args[i:]
}

func (s *Service) handleClick(e dispatcher.Event) (any, error) {
	coords, rest := splitLatLng(util.CleanArgs(e.Args))
	if coords == "" {
		return nil, fmt.Errorf("%s: %w: coordinates", e.Command, ErrMissingArgument)
	}
	if len(rest) > 0 {
		return nil, fmt.Errorf("%s: unexpected arguments %q", e.Command, rest)
	}
	p, err := geo.ParseLatLng(coords)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", e.Command, err)
	}

	mode := s.deps.Session.Mode()
	report := s.deps.Session.Click(p)
	return ClickResult{Mode: mode, Report: report}, nil
}

func (s *Service) handleTelemetry(e dispatcher.Event) (any, error) {
	args := util.CleanArgs(e.Args)
	if len(args) < 2 {
		return nil, fmt.Errorf("%s: %w: want <role> <lat,lng> [heading]", e.Command, ErrMissingArgument)
	}

	role, err := core.ParseRole(strings.ToLower(args[0]))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", e.Command, err)
	}
	coords, rest := splitLatLng(args[1:])
	if len(rest) > 1 {
		return nil, fmt.Errorf("%s: unexpected arguments %q", e.Command, rest[1:])
	}
	p, err := geo.ParseLatLng(coords)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", e.Command, err)
	}
	var heading *float64
	if len(rest) == 1 {
		heading, err = util.ParseOptionalFloat(rest[0])
		if err != nil {
			return nil, fmt.Errorf("%s: heading: %w", e.Command, err)
		}
	}

	fix := s.deps.Session.Telemetry(role, p, heading)
	if s.deps.Backend != nil {
		if err := s.deps.Backend.RecordPosition(&fix); err != nil {
			s.log.Warn("failed to record position fix", "role", role, "error", err)
		}
	}

	return TelemetryResult{
		Role:    fix.Role,
		Lat:     fix.Position.Lat,
		Lng:     fix.Position.Lng,
		Heading: fix.Heading,
	}, nil
}

func (s *Service) handleUndo(e dispatcher.Event) (any, error) {
	s.deps.Session.Undo()
	return s.deps.Session.Status(), nil
}

func (s *Service) handleClear(e dispatcher.Event) (any, error) {
	s.deps.Session.Clear()
	return s.deps.Session.Status(), nil
}

func (s *Service) handleResetRegion(e dispatcher.Event) (any, error) {
	s.deps.Session.ResetRegion()
	return s.deps.Session.Status(), nil
}

func (s *Service) handleMission(e dispatcher.Event) (any, error) {
	args := util.CleanArgs(e.Args)
	if len(args) < 1 {
		return nil, fmt.Errorf("%s: %w: kind", e.Command, ErrMissingArgument)
	}

	rec, err := s.deps.Session.Finalize(core.MissionKind(strings.ToLower(args[0])))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", e.Command, err)
	}

	// the message is already final; a failed audit write must not block it
	if s.deps.Backend != nil {
		if err := s.deps.Backend.RecordMission(&rec); err != nil {
			s.log.Error("failed to record mission", "kind", rec.Kind, "error", err)
		}
	}
	if s.deps.Flusher != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := s.deps.Flusher.Flush(ctx); err != nil {
			s.log.Warn("telemetry flush failed", "error", err)
		}
		cancel()
	}

	s.log.Info("mission finalized",
		"kind", rec.Kind,
		"points", len(rec.Points),
		"message", rec.Message,
	)

	res := MissionResult{
		ID:      rec.ID,
		Kind:    rec.Kind,
		Message: rec.Message,
		LengthM: rec.LengthM,
		AreaM2:  rec.AreaM2,
	}
	if rec.Kind == core.MissionPath {
		res.Items = codec.Items(rec.Points, s.deps.DefaultAltitude)
	}
	return res, nil
}

func (s *Service) handleLoad(e dispatcher.Event) (any, error) {
	text := strings.Join(util.CleanArgs(e.Args), "")
	if text == "" {
		return nil, fmt.Errorf("%s: %w: mission text", e.Command, ErrMissingArgument)
	}
	n, err := s.deps.Session.Load(text)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", e.Command, err)
	}
	return LoadResult{Loaded: n}, nil
}

func (s *Service) handleStatus(e dispatcher.Event) (any, error) {
	return s.deps.Session.Status(), nil
}
