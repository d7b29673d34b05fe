package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/groundlink/missionmap/internal/geo"
	"github.com/groundlink/missionmap/pkg/core"
	"github.com/spf13/viper"
)

// FileName is the config file looked up in the config directory.
const FileName = "missionmap.cfg.json"

// DefaultInitialLocation is where the map opens when no valid location is configured.
var DefaultInitialLocation = core.GeoPoint{Lat: 41.27442, Lng: 28.727317}

// MemoryConfig holds in-memory/JSON storage backend settings
type MemoryConfig struct {
	OutputDir      string `json:"outputDir" mapstructure:"outputDir"`
	CompressOutput bool   `json:"compressOutput" mapstructure:"compressOutput"`
}

// SQLiteConfig holds SQLite mission log settings. An empty or ":memory:"
// path keeps the database in memory and dumps it to DumpPath every
// DumpInterval.
type SQLiteConfig struct {
	Path         string        `json:"path" mapstructure:"path"`
	DumpPath     string        `json:"dumpPath" mapstructure:"dumpPath"`
	DumpInterval time.Duration `json:"dumpInterval" mapstructure:"dumpInterval"`
}

// PostgresConfig holds Postgres connection settings.
type PostgresConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	Database string
}

// InfluxConfig holds InfluxDB settings.
type InfluxConfig struct {
	Enabled   bool
	Host      string
	Port      string
	Protocol  string
	Token     string
	Org       string
	Bucket    string
	BackupDir string
}

// StorageConfig selects and configures the mission log backend.
type StorageConfig struct {
	Type     string
	Memory   MemoryConfig
	SQLite   SQLiteConfig
	Postgres PostgresConfig
	Influx   InfluxConfig
}

// OTelConfig holds OpenTelemetry settings.
type OTelConfig struct {
	Enabled      bool
	ServiceName  string
	BatchTimeout time.Duration
	Endpoint     string
	Insecure     bool
	// Metrics enables the periodic stdout metric dump next to the OTel log file.
	Metrics        bool
	MetricInterval time.Duration
}

// GraylogConfig holds the GELF log sink settings.
type GraylogConfig struct {
	Enabled bool
	Address string
}

// MapConfig holds the map view and icon settings.
type MapConfig struct {
	InitialLocation core.GeoPoint
	// LocationFallback is set when the configured location was invalid
	// and DefaultInitialLocation was used instead.
	LocationFallback bool
	Zoom             int
	Icons            map[core.Role]string
	WaypointIcon     string
	LineColor        string
	RectangleColor   string
	RectangleWeight  int
}

// MonitorConfig controls the periodic status file and gauges.
type MonitorConfig struct {
	Enabled    bool
	Interval   time.Duration
	StatusFile string
}

// MissionConfig holds defaults applied to outgoing missions.
type MissionConfig struct {
	DefaultAltitude float64
}

// Load reads configuration from JSON file and sets default values.
// configDir is the directory containing the config file.
func Load(configDir string) error {
	SetDefaults()

	viper.SetConfigName(FileName)
	viper.AddConfigPath(configDir)
	viper.SetConfigType("json")

	err := viper.ReadInConfig()
	if err != nil {
		return fmt.Errorf("error reading config file: %v", err)
	}

	return nil
}

// SetDefaults registers every default value. Load calls it; the CLI also
// calls it directly when running without a config file.
func SetDefaults() {
	viper.SetDefault("logLevel", "info")
	viper.SetDefault("logsDir", "./missionlogs")
	viper.SetDefault("logRotation.maxSizeMB", 32)
	viper.SetDefault("logRotation.maxBackups", 3)
	viper.SetDefault("logRotation.compress", false)
	viper.SetDefault("stationName", "groundstation")

	viper.SetDefault("map.initialLocation", DefaultInitialLocation.String())
	viper.SetDefault("map.zoom", 16)
	viper.SetDefault("map.icons.vehicle", "uav.png")
	viper.SetDefault("map.icons.target", "target.png")
	viper.SetDefault("map.icons.kamikaze", "kamikaze.png")
	viper.SetDefault("map.icons.home", "home.png")
	viper.SetDefault("map.icons.operator", "")
	viper.SetDefault("map.icons.waypoint", "")
	viper.SetDefault("map.lineColor", "red")
	viper.SetDefault("map.rectangleColor", "#00aaff")
	viper.SetDefault("map.rectangleWeight", 1)

	viper.SetDefault("mission.defaultAltitude", 10.0)

	viper.SetDefault("storage.type", "memory")
	viper.SetDefault("storage.memory.outputDir", "./missions")
	viper.SetDefault("storage.memory.compressOutput", true)
	viper.SetDefault("storage.sqlite.path", ":memory:")
	viper.SetDefault("storage.sqlite.dumpPath", "./missions/missionlog.db")
	viper.SetDefault("storage.sqlite.dumpInterval", "3m")

	viper.SetDefault("db.host", "localhost")
	viper.SetDefault("db.port", "5432")
	viper.SetDefault("db.username", "postgres")
	viper.SetDefault("db.password", "postgres")
	viper.SetDefault("db.database", "missionmap")

	viper.SetDefault("influx.enabled", false)
	viper.SetDefault("influx.host", "localhost")
	viper.SetDefault("influx.port", "8086")
	viper.SetDefault("influx.protocol", "http")
	viper.SetDefault("influx.token", "supersecrettoken")
	viper.SetDefault("influx.org", "groundlink")
	viper.SetDefault("influx.bucket", "missionmap")
	viper.SetDefault("influx.backupDir", "./missions/influx")

	viper.SetDefault("graylog.enabled", false)
	viper.SetDefault("graylog.address", "localhost:12201")

	viper.SetDefault("monitor.enabled", true)
	viper.SetDefault("monitor.interval", "1s")
	viper.SetDefault("monitor.statusFile", "status.json")

	viper.SetDefault("otel.enabled", false)
	viper.SetDefault("otel.serviceName", "missionmap")
	viper.SetDefault("otel.batchTimeout", "5s")
	viper.SetDefault("otel.endpoint", "")
	viper.SetDefault("otel.insecure", true)
	viper.SetDefault("otel.metrics", false)
	viper.SetDefault("otel.metricInterval", "1m")
}

// GetString returns a string config value.
func GetString(key string) string {
	return viper.GetString(key)
}

// GetInt returns an int config value.
func GetInt(key string) int {
	return viper.GetInt(key)
}

// GetBool returns a bool config value.
func GetBool(key string) bool {
	return viper.GetBool(key)
}

// GetStorageConfig returns the storage backend settings.
func GetStorageConfig() StorageConfig {
	return StorageConfig{
		Type: strings.ToLower(viper.GetString("storage.type")),
		Memory: MemoryConfig{
			OutputDir:      viper.GetString("storage.memory.outputDir"),
			CompressOutput: viper.GetBool("storage.memory.compressOutput"),
		},
		SQLite: SQLiteConfig{
			Path:         viper.GetString("storage.sqlite.path"),
			DumpPath:     viper.GetString("storage.sqlite.dumpPath"),
			DumpInterval: viper.GetDuration("storage.sqlite.dumpInterval"),
		},
		Postgres: PostgresConfig{
			Host:     viper.GetString("db.host"),
			Port:     viper.GetString("db.port"),
			Username: viper.GetString("db.username"),
			Password: viper.GetString("db.password"),
			Database: viper.GetString("db.database"),
		},
		Influx: GetInfluxConfig(),
	}
}

// GetInfluxConfig returns the InfluxDB settings.
func GetInfluxConfig() InfluxConfig {
	return InfluxConfig{
		Enabled:   viper.GetBool("influx.enabled"),
		Host:      viper.GetString("influx.host"),
		Port:      viper.GetString("influx.port"),
		Protocol:  viper.GetString("influx.protocol"),
		Token:     viper.GetString("influx.token"),
		Org:       viper.GetString("influx.org"),
		Bucket:    viper.GetString("influx.bucket"),
		BackupDir: viper.GetString("influx.backupDir"),
	}
}

// GetOTelConfig returns the OpenTelemetry settings.
func GetOTelConfig() OTelConfig {
	return OTelConfig{
		Enabled:      viper.GetBool("otel.enabled"),
		ServiceName:  viper.GetString("otel.serviceName"),
		BatchTimeout: viper.GetDuration("otel.batchTimeout"),
		Endpoint:     viper.GetString("otel.endpoint"),
		Insecure:     viper.GetBool("otel.insecure"),

		Metrics:        viper.GetBool("otel.metrics"),
		MetricInterval: viper.GetDuration("otel.metricInterval"),
	}
}

// GetGraylogConfig returns the GELF sink settings.
func GetGraylogConfig() GraylogConfig {
	return GraylogConfig{
		Enabled: viper.GetBool("graylog.enabled"),
		Address: viper.GetString("graylog.address"),
	}
}

// GetMapConfig returns the map settings. An invalid initial location falls
// back to DefaultInitialLocation with LocationFallback set.
func GetMapConfig() MapConfig {
	loc, ok := geo.ParseLatLngOr(viper.GetString("map.initialLocation"), DefaultInitialLocation)

	icons := make(map[core.Role]string, len(core.Roles))
	for _, r := range core.Roles {
		icons[r] = viper.GetString("map.icons." + string(r))
	}

	return MapConfig{
		InitialLocation:  loc,
		LocationFallback: !ok,
		Zoom:             viper.GetInt("map.zoom"),
		Icons:            icons,
		WaypointIcon:     viper.GetString("map.icons.waypoint"),
		LineColor:        viper.GetString("map.lineColor"),
		RectangleColor:   viper.GetString("map.rectangleColor"),
		RectangleWeight:  viper.GetInt("map.rectangleWeight"),
	}
}

// GetMissionConfig returns the mission defaults.
func GetMissionConfig() MissionConfig {
	return MissionConfig{
		DefaultAltitude: viper.GetFloat64("mission.defaultAltitude"),
	}
}

// GetMonitorConfig returns the status monitor settings. A relative
// StatusFile is resolved against logsDir.
// LogRotationConfig controls size-based rotation of the session log file.
type LogRotationConfig struct {
	MaxSizeMB  int
	MaxBackups int
	Compress   bool
}

func GetLogRotationConfig() LogRotationConfig {
	return LogRotationConfig{
		MaxSizeMB:  viper.GetInt("logRotation.maxSizeMB"),
		MaxBackups: viper.GetInt("logRotation.maxBackups"),
		Compress:   viper.GetBool("logRotation.compress"),
	}
}

func GetMonitorConfig() MonitorConfig {
	path := viper.GetString("monitor.statusFile")
	if path != "" && !filepath.IsAbs(path) {
		path = filepath.Join(viper.GetString("logsDir"), path)
	}
	return MonitorConfig{
		Enabled:    viper.GetBool("monitor.enabled"),
		Interval:   viper.GetDuration("monitor.interval"),
		StatusFile: path,
	}
}
