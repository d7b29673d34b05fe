// Package influxstorage implements the storage.Backend interface on
// InfluxDB. Missions and fixes become points; IDs are assigned locally
// since InfluxDB has none.
package influxstorage

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/groundlink/missionmap/internal/influx"
	"github.com/groundlink/missionmap/pkg/core"
)

const connectTimeout = 5 * time.Second

// Backend writes the mission log through an influx.Manager.
type Backend struct {
	mgr *influx.Manager
	ids atomic.Uint64
}

// New creates a backend on mgr. Init connects it.
func New(mgr *influx.Manager) *Backend {
	return &Backend{mgr: mgr}
}

// Init connects to InfluxDB, or opens the backup file when it is unreachable.
func (b *Backend) Init() error {
	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	return b.mgr.Connect(ctx)
}

// Close flushes and closes the connection or backup file.
func (b *Backend) Close() error {
	return b.mgr.Close()
}

// RecordMission writes a mission point.
func (b *Backend) RecordMission(m *core.MissionRecord) error {
	m.ID = uint(b.ids.Add(1))
	return b.mgr.WritePoint(influx.MissionPoint(*m))
}

// RecordPosition writes a position point.
func (b *Backend) RecordPosition(f *core.PositionFix) error {
	f.ID = uint(b.ids.Add(1))
	return b.mgr.WritePoint(influx.PositionPoint(*f))
}
