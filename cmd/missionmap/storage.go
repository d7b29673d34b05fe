package main

import (
	"fmt"

	"github.com/groundlink/missionmap/internal/config"
	"github.com/groundlink/missionmap/internal/database"
	"github.com/groundlink/missionmap/internal/influx"
	"github.com/groundlink/missionmap/internal/storage"
	gormstorage "github.com/groundlink/missionmap/internal/storage/gorm"
	influxstorage "github.com/groundlink/missionmap/internal/storage/influx"
	"github.com/groundlink/missionmap/internal/storage/memory"
	"github.com/rs/zerolog"
)

// createStorageBackend builds the mission log named by storageCfg.Type.
// With influx.enabled and a non-influx primary, points are mirrored to
// InfluxDB as well.
func createStorageBackend(storageCfg config.StorageConfig, log zerolog.Logger, stationName string) (storage.Backend, error) {
	var primary storage.Backend

	switch storageCfg.Type {
	case "postgres":
		mgr := database.NewManager(log)
		if err := mgr.ConnectPostgres(storageCfg.Postgres); err != nil {
			return nil, fmt.Errorf("failed to connect to postgres: %w", err)
		}
		primary = gormstorage.New(mgr, gormstorage.Config{StationName: stationName})

	case "sqlite":
		mgr := database.NewManager(log)
		if err := mgr.ConnectSqlite(storageCfg.SQLite.Path); err != nil {
			return nil, fmt.Errorf("failed to open sqlite: %w", err)
		}
		primary = gormstorage.New(mgr, gormstorage.Config{
			StationName:  stationName,
			DumpInterval: storageCfg.SQLite.DumpInterval,
			DumpPath:     storageCfg.SQLite.DumpPath,
		})

	case "influx":
		cfg := storageCfg.Influx
		cfg.Enabled = true
		return influxstorage.New(influx.NewManager(log, cfg)), nil

	case "", "memory":
		primary = memory.New(storageCfg.Memory)

	default:
		return nil, fmt.Errorf("unknown storage type %q", storageCfg.Type)
	}

	if storageCfg.Influx.Enabled {
		mirror := influxstorage.New(influx.NewManager(log, storageCfg.Influx))
		return storage.NewMulti(primary, mirror), nil
	}
	return primary, nil
}
