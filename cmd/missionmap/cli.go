package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/groundlink/missionmap/internal/codec"
	"github.com/groundlink/missionmap/internal/config"
	"github.com/groundlink/missionmap/internal/dispatcher"
	"github.com/groundlink/missionmap/internal/geo"
	"github.com/groundlink/missionmap/internal/handlers"
	"github.com/groundlink/missionmap/internal/logging"
	"github.com/groundlink/missionmap/internal/mapview"
	"github.com/groundlink/missionmap/internal/monitor"
	"github.com/groundlink/missionmap/internal/session"
	"github.com/groundlink/missionmap/internal/storage"
	"github.com/groundlink/missionmap/pkg/core"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.opentelemetry.io/otel/metric"
)

var (
	sessionID   string
	initialMode string
	asRegion    bool
	altitude    float64
	historyMax  int
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a planning session",
	Long: `Reads commands from stdin, one per line:

  :MODE: <free|waypoint|region>
  :CLICK: <lat,lng>
  :TELEMETRY: <role> <lat,lng> [heading]
  :UNDO:  :CLEAR:  :RESET:REGION:  :STATUS:
  :MISSION: <path|region>
  :LOAD: <mission text>

Render operations and command results are written to stdout as JSON lines.`,
	RunE: runSession,
}

var encodeCmd = &cobra.Command{
	Use:   "encode <lat,lng>...",
	Short: "Encode points as a mission message",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runEncode,
}

var decodeCmd = &cobra.Command{
	Use:   "decode <message>",
	Short: "Decode a mission or position message",
	Args:  cobra.ExactArgs(1),
	RunE:  runDecode,
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List finalized missions from the mission log",
	RunE:  runHistory,
}

func init() {
	runCmd.Flags().StringVar(&sessionID, "session", "", "Session id (default: random)")
	runCmd.Flags().StringVar(&initialMode, "mode", string(core.ModeFree), "Initial click mode")

	encodeCmd.Flags().BoolVar(&asRegion, "region", false, "Encode the first two points as a region")

	decodeCmd.Flags().Float64Var(&altitude, "alt", 0, "Item altitude in meters (default: mission.defaultAltitude)")

	historyCmd.Flags().IntVarP(&historyMax, "limit", "n", 20, "Maximum missions to list, 0 for all")
}

// outputLine is one JSON line written by the run loop.
type outputLine struct {
	Type    string       `json:"type"`
	Command string       `json:"command,omitempty"`
	Op      *mapview.Op  `json:"op,omitempty"`
	Result  any          `json:"result,omitempty"`
	Error   string       `json:"error,omitempty"`
	Known   []string     `json:"known,omitempty"`
	View    *viewPayload `json:"view,omitempty"`
}

type viewPayload struct {
	Center core.GeoPoint   `json:"center"`
	Zoom   int             `json:"zoom"`
	Style  mapview.Style   `json:"style"`
	Icons  mapview.IconSet `json:"icons,omitempty"`
}

func styleFrom(mapCfg config.MapConfig) mapview.Style {
	return mapview.Style{
		LineColor:       mapCfg.LineColor,
		RectangleColor:  mapCfg.RectangleColor,
		RectangleWeight: mapCfg.RectangleWeight,
	}
}

func newCanvas(mapCfg config.MapConfig) (*mapview.Canvas, mapview.IconSet) {
	icons := make(mapview.IconSet, len(mapCfg.Icons))
	for role, icon := range mapCfg.Icons {
		if icon != "" {
			icons[role] = mapview.Icon(icon)
		}
	}
	return mapview.NewCanvas(mapCfg.InitialLocation, styleFrom(mapCfg)), icons
}

func runSession(cmd *cobra.Command, args []string) error {
	start := time.Now()
	mode, err := core.ParseMode(strings.ToLower(initialMode))
	if err != nil {
		return err
	}
	id := sessionID
	if id == "" {
		id = "session-" + uuid.NewString()[:8]
	}

	mapCfg := config.GetMapConfig()
	canvas, icons := newCanvas(mapCfg)
	sess := session.New(canvas, session.Options{
		ID:           id,
		Icons:        icons,
		WaypointIcon: mapview.Icon(mapCfg.WaypointIcon),
		Mode:         mode,
	})

	a := setupApp(start, id, func() string { return string(sess.Mode()) })
	defer a.Close()
	log := a.log

	log.Info("Starting session", "version", Version, "build", BuildDate)
	if mapCfg.LocationFallback {
		log.Warn("Invalid map.initialLocation, using default",
			"configured", viper.GetString("map.initialLocation"),
			"default", config.DefaultInitialLocation.String(),
		)
	}

	storageCfg := config.GetStorageConfig()
	backend, err := createStorageBackend(storageCfg, a.zlog, viper.GetString("stationName"))
	if err != nil {
		log.Error("Failed to create storage backend", "error", err)
		return err
	}
	if err := backend.Init(); err != nil {
		log.Error("Failed to initialize storage backend", "error", err, "type", storageCfg.Type)
		return err
	}
	log.Info("Storage backend initialized", "type", storageCfg.Type)
	defer func() {
		if err := backend.Close(); err != nil {
			log.Error("Failed to close storage backend", "error", err)
		}
		if exp, ok := backend.(storage.Exporter); ok && exp.GetExportedFilePath() != "" {
			log.Info("Mission log exported", "path", exp.GetExportedFilePath())
		}
	}()

	var meter metric.Meter
	if a.otel != nil {
		meter = a.otel.Meter("github.com/groundlink/missionmap/internal/dispatcher")
	}
	d, err := dispatcher.NewWithMeter(logging.NewDispatcherLogger(a.zlog), meter)
	if err != nil {
		return fmt.Errorf("failed to create dispatcher: %w", err)
	}
	deps := handlers.Dependencies{
		Session:         sess,
		Backend:         backend,
		Logger:          log,
		DefaultAltitude: config.GetMissionConfig().DefaultAltitude,
	}
	if a.otel != nil {
		deps.Flusher = a.otel
	}
	handlers.NewService(deps).RegisterHandlers(d)

	if mon := newMonitor(a, sess, canvas, backend); mon != nil {
		if err := mon.Start(); err != nil {
			log.Error("Failed to start status monitor", "error", err)
		} else {
			defer mon.Stop()
		}
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	enc := json.NewEncoder(cmd.OutOrStdout())
	if err := enc.Encode(outputLine{Type: "view", View: &viewPayload{
		Center: mapCfg.InitialLocation,
		Zoom:   mapCfg.Zoom,
		Style:  styleFrom(mapCfg),
		Icons:  icons,
	}}); err != nil {
		return err
	}

	err = serve(ctx, cmd.InOrStdin(), enc, d, canvas, log)
	log.Info("Session ended", "duration", time.Since(start), "status", sess.Status())
	return err
}

// newMonitor builds the status monitor, or returns nil when disabled.
func newMonitor(a *app, sess *session.Session, canvas *mapview.Canvas, backend storage.Backend) *monitor.Service {
	monCfg := config.GetMonitorConfig()
	if !monCfg.Enabled {
		return nil
	}
	if dir := filepath.Dir(monCfg.StatusFile); dir != "" {
		_ = os.MkdirAll(dir, 0755)
	}

	gauges := map[string]func() int64{
		"canvas.ops.pending":    func() int64 { return int64(canvas.Pending()) },
		"canvas.ops.dropped":    func() int64 { return int64(canvas.Dropped()) },
		"logging.sink.failures": a.slog.SinkFailures,
	}
	if p, ok := backend.(storage.Pender); ok {
		gauges["storage.fixes.pending"] = func() int64 { return int64(p.Pending()) }
	}

	deps := monitor.Dependencies{
		Snapshot:   func() any { return sess.Status() },
		Gauges:     gauges,
		StatusPath: monCfg.StatusFile,
		Interval:   monCfg.Interval,
		Logger:     a.log,
	}
	if a.otel != nil {
		deps.Meter = a.otel.Meter("github.com/groundlink/missionmap/internal/monitor")
	}

	mon := monitor.NewService(deps)
	if err := mon.RegisterGauges(); err != nil {
		a.log.Warn("Failed to register monitor gauges", "error", err)
	}
	return mon
}

// serve reads commands until EOF or ctx is done. After every command the
// canvas operations it caused are written before its result.
func serve(ctx context.Context, in io.Reader, enc *json.Encoder, d *dispatcher.Dispatcher, canvas *mapview.Canvas, log *slog.Logger) error {
	lines := make(chan string)
	readErr := make(chan error, 1)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
		readErr <- sc.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			log.Info("Interrupted, shutting down")
			return nil
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-readErr:
					return err
				default:
					return nil
				}
			}
			e, ok := dispatcher.ParseEvent(line, time.Now())
			if !ok {
				continue
			}
			// typos never touch the canvas; answer with the command list
			if !d.HasHandler(e.Command) {
				log.Warn("Unknown command", "command", e.Command)
				if err := enc.Encode(outputLine{
					Type:    "error",
					Command: e.Command,
					Error:   fmt.Sprintf("%s: %s", dispatcher.ErrUnknownCommand, e.Command),
					Known:   d.Commands(),
				}); err != nil {
					return err
				}
				continue
			}
			res, err := d.Dispatch(e)

			for _, op := range canvas.Drain() {
				if err := enc.Encode(outputLine{Type: "op", Op: &op}); err != nil {
					return err
				}
			}

			out := outputLine{Type: "result", Command: e.Command, Result: res}
			if err != nil {
				out = outputLine{Type: "error", Command: e.Command, Error: err.Error()}
			}
			if err := enc.Encode(out); err != nil {
				return err
			}
		}
	}
}

func runEncode(cmd *cobra.Command, args []string) error {
	points := make([]core.GeoPoint, 0, len(args))
	for _, arg := range args {
		p, err := geo.ParseLatLng(arg)
		if err != nil {
			return fmt.Errorf("%q: %w", arg, err)
		}
		points = append(points, p)
	}

	msg := codec.EncodePath(points)
	if asRegion {
		var err error
		if msg, err = codec.EncodeRegion(points); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(cmd.OutOrStdout(), msg)
	return err
}

type decodeOutput struct {
	Kind   codec.MessageKind  `json:"kind"`
	Points []core.GeoPoint    `json:"points"`
	Items  []core.MissionItem `json:"items,omitempty"`
}

func runDecode(cmd *cobra.Command, args []string) error {
	msg, err := codec.Parse(args[0])
	if err != nil {
		return err
	}
	out := decodeOutput{Kind: msg.Kind, Points: msg.Points}
	if msg.Kind == codec.KindMission {
		alt := altitude
		if !cmd.Flags().Changed("alt") {
			alt = config.GetMissionConfig().DefaultAltitude
		}
		out.Items = codec.Items(msg.Points, alt)
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

var errNoHistory = errors.New("backend keeps no mission history across runs")

func runHistory(cmd *cobra.Command, args []string) error {
	storageCfg := config.GetStorageConfig()
	if storageCfg.Type == "" || storageCfg.Type == "memory" {
		return fmt.Errorf("%s: %w", storageCfg.Type, errNoHistory)
	}

	a := setupApp(time.Now(), "history", nil)
	defer a.Close()

	backend, err := createStorageBackend(storageCfg, a.zlog, viper.GetString("stationName"))
	if err != nil {
		return err
	}
	lister, ok := backend.(storage.Lister)
	if !ok {
		return fmt.Errorf("%s: %w", storageCfg.Type, errNoHistory)
	}
	if err := backend.Init(); err != nil {
		return err
	}
	defer backend.Close()

	missions, err := lister.ListMissions(historyMax)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	for _, m := range missions {
		if err := enc.Encode(historyEntry{
			ID:      m.ID,
			Time:    m.Time.UTC().Format(time.RFC3339),
			Session: m.SessionID,
			Kind:    m.Kind,
			Message: m.Message,
			LengthM: m.LengthM,
			AreaM2:  m.AreaM2,
		}); err != nil {
			return err
		}
	}
	return nil
}

type historyEntry struct {
	ID      uint             `json:"id"`
	Time    string           `json:"time"`
	Session string           `json:"session"`
	Kind    core.MissionKind `json:"kind"`
	Message string           `json:"message"`
	LengthM float64          `json:"lengthM,omitempty"`
	AreaM2  float64          `json:"areaM2,omitempty"`
}
