// Package memory implements the storage.Backend interface in memory and
// exports the log to JSON when closed.
package memory

import (
	"sort"
	"sync"
	"time"

	"github.com/groundlink/missionmap/internal/config"
	"github.com/groundlink/missionmap/pkg/core"
)

// Backend stores the mission log in memory and exports to JSON
type Backend struct {
	cfg       config.MemoryConfig
	startTime time.Time

	missions  []core.MissionRecord
	positions map[core.Role][]core.PositionFix

	idCounter      uint
	lastExportPath string
	mu             sync.RWMutex
}

// New creates a new memory backend
func New(cfg config.MemoryConfig) *Backend {
	return &Backend{
		cfg:       cfg,
		positions: make(map[core.Role][]core.PositionFix),
	}
}

// Init initializes the backend
func (b *Backend) Init() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.startTime = time.Now()
	return nil
}

// Close exports the log when an output directory is configured.
func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.cfg.OutputDir == "" {
		return nil
	}
	return b.exportJSON()
}

// RecordMission stores a finalized mission and assigns its ID
func (b *Backend) RecordMission(m *core.MissionRecord) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.idCounter++
	m.ID = b.idCounter
	b.missions = append(b.missions, *m)
	return nil
}

// RecordPosition stores a telemetry fix
func (b *Backend) RecordPosition(f *core.PositionFix) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.idCounter++
	f.ID = b.idCounter
	b.positions[f.Role] = append(b.positions[f.Role], *f)
	return nil
}

// ListMissions returns up to limit missions, newest first
func (b *Backend) ListMissions(limit int) ([]core.MissionRecord, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]core.MissionRecord, 0, len(b.missions))
	for i := len(b.missions) - 1; i >= 0; i-- {
		if limit > 0 && len(out) == limit {
			break
		}
		out = append(out, b.missions[i])
	}
	return out, nil
}

// Positions returns the fixes recorded for role in arrival order
func (b *Backend) Positions(role core.Role) []core.PositionFix {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]core.PositionFix(nil), b.positions[role]...)
}

// Roles returns every role with at least one fix, sorted by name
func (b *Backend) Roles() []core.Role {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]core.Role, 0, len(b.positions))
	for r := range b.positions {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// GetExportedFilePath returns the path of the last export, or "" if none
func (b *Backend) GetExportedFilePath() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastExportPath
}
