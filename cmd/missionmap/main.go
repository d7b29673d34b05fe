package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/Graylog2/go-gelf/gelf"
	"github.com/groundlink/missionmap/internal/config"
	"github.com/groundlink/missionmap/internal/logging"
	intOtel "github.com/groundlink/missionmap/internal/otel"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/natefinch/lumberjack.v2"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

// build info, set via ldflags
var (
	Version   = "0.0.1"
	BuildDate = "unknown"
)

const AppName = "missionmap"

var configDir string

var rootCmd = &cobra.Command{
	Use:     AppName,
	Short:   "Mission planning map overlay for a UAV ground station",
	Long:    `Draws waypoint paths, region selections and telemetry markers on a map and encodes them as mission messages for the vehicle controller.`,
	Version: Version + " (" + BuildDate + ")",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.Load(configDir); err != nil {
			// defaults are already registered
			fmt.Fprintf(os.Stderr, "Failed to load config, using defaults: %v\n", err)
		}
		return nil
	},
	SilenceUsage: true,
}

func init() {
	config.SetDefaults()

	rootCmd.PersistentFlags().StringVarP(&configDir, "config-dir", "c", ".", "Directory containing "+config.FileName)
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("logs-dir", "./missionlogs", "Directory for log files")
	rootCmd.PersistentFlags().String("storage", "memory", "Mission log backend (memory, sqlite, postgres, influx)")
	_ = viper.BindPFlag("logLevel", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("logsDir", rootCmd.PersistentFlags().Lookup("logs-dir"))
	_ = viper.BindPFlag("storage.type", rootCmd.PersistentFlags().Lookup("storage"))

	rootCmd.AddCommand(runCmd, encodeCmd, decodeCmd, historyCmd)
}

// app holds the process-wide logging and telemetry plumbing.
type app struct {
	slog    *logging.SlogManager
	log     *slog.Logger
	zlog    zerolog.Logger
	logFile *lumberjack.Logger
	logPath string
	otel    *intOtel.Provider
	gelf    *gelf.Writer
}

// setupApp opens the session log file and wires the slog sinks. Records are
// stamped with sessionID and, when mode is non-nil, the current click mode.
func setupApp(start time.Time, sessionID string, mode func() string) *app {
	a := &app{slog: logging.NewSlogManager()}
	level := viper.GetString("logLevel")

	// console-only until the log file is open
	a.slog.Setup(logging.Options{Level: level})
	a.log = a.slog.Logger()

	logsDir := viper.GetString("logsDir")
	if err := os.MkdirAll(logsDir, 0755); err != nil {
		a.log.Error("Failed to create logs directory", "error", err, "path", logsDir)
	} else {
		a.logPath = logging.SessionLogPath(logsDir, sessionID, start)
		rot := config.GetLogRotationConfig()
		f := logging.NewRotatingFile(a.logPath, rot.MaxSizeMB, rot.MaxBackups, rot.Compress)
		// lumberjack opens lazily; an empty write surfaces permission errors now
		if _, err := f.Write(nil); err != nil {
			a.log.Error("Failed to create/open log file!", "error", err, "path", a.logPath)
		} else {
			a.logFile = f
		}
	}

	otelCfg := config.GetOTelConfig()
	if otelCfg.Enabled {
		cfg := intOtel.Config{
			Enabled:        otelCfg.Enabled,
			ServiceName:    otelCfg.ServiceName,
			BatchTimeout:   otelCfg.BatchTimeout,
			Endpoint:       otelCfg.Endpoint,
			Insecure:       otelCfg.Insecure,
			MetricInterval: otelCfg.MetricInterval,
		}
		if a.logFile != nil {
			cfg.LogWriter = a.logFile
			if otelCfg.Metrics {
				cfg.MetricWriter = a.logFile
			}
		}
		p, err := intOtel.New(cfg)
		if err != nil {
			a.log.Error("Failed to initialize OTel provider", "error", err)
		} else {
			a.otel = p
			a.log.Info("OTel provider initialized", "endpoint", otelCfg.Endpoint, "metrics", otelCfg.Metrics)
		}
	}

	gelfCfg := config.GetGraylogConfig()
	if gelfCfg.Enabled {
		w, err := logging.NewGraylogWriter(gelfCfg.Address, AppName)
		if err != nil {
			a.log.Error("Failed to connect to Graylog", "error", err)
		} else {
			a.gelf = w
		}
	}

	var provider *sdklog.LoggerProvider
	if a.otel != nil {
		provider = a.otel.LoggerProvider()
	}
	opts := logging.Options{
		Level:     level,
		Provider:  provider,
		SessionID: sessionID,
		Mode:      mode,
	}
	if a.logFile != nil {
		opts.File = a.logFile
	}
	if a.gelf != nil {
		opts.Graylog = a.gelf
	}
	a.slog.Setup(opts)
	a.log = a.slog.Logger()
	if a.logPath != "" {
		a.log.Info("Logging to file", "path", a.logPath)
	}

	var zout io.Writer = os.Stderr
	if a.logFile != nil {
		zout = a.logFile
	}
	a.zlog = logging.NewZerolog(zout, level).With().Str("app", AppName).Str("session", sessionID).Logger()

	return a
}

// Close flushes telemetry and closes every sink.
func (a *app) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := a.slog.Flush(ctx); err != nil {
		a.log.Warn("Failed to flush logs", "error", err)
	}
	if a.otel != nil {
		if err := a.otel.Shutdown(ctx); err != nil {
			a.log.Warn("Failed to shut down OTel provider", "error", err)
		}
	}
	if a.gelf != nil {
		_ = a.gelf.Close()
	}
	if a.logFile != nil {
		_ = a.logFile.Close()
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
