// Package gormstorage implements the storage.Backend interface on GORM, for
// both SQLite and Postgres. Missions are written immediately so they get an
// ID; telemetry fixes are queued and written in batches by a background
// goroutine. An in-memory SQLite database is dumped to disk periodically
// via VACUUM INTO.
package gormstorage

import (
	"fmt"
	"sync"
	"time"

	"github.com/groundlink/missionmap/internal/database"
	"github.com/groundlink/missionmap/internal/model"
	"github.com/groundlink/missionmap/internal/queue"
	"github.com/groundlink/missionmap/pkg/core"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

const defaultFlushInterval = 2 * time.Second

// Config holds configuration for the GORM storage backend.
type Config struct {
	StationName   string
	FlushInterval time.Duration
	DumpInterval  time.Duration
	DumpPath      string // Path for periodic VACUUM INTO dumps of an in-memory DB
}

// Backend implements storage.Backend using GORM with queue-based batch writes.
type Backend struct {
	db     *database.Manager
	cfg    Config
	log    zerolog.Logger
	fixes  *queue.Queue[model.PositionFix]
	stopCh chan struct{}
	wg     sync.WaitGroup
}

// New creates a new GORM storage backend on an already connected manager.
func New(db *database.Manager, cfg Config) *Backend {
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = defaultFlushInterval
	}
	return &Backend{
		db:    db,
		cfg:   cfg,
		log:   db.Logger,
		fixes: queue.New[model.PositionFix](),
	}
}

// Init runs schema migration and starts the writer and dump goroutines.
func (b *Backend) Init() error {
	if err := b.db.Setup(b.cfg.StationName); err != nil {
		return fmt.Errorf("failed to setup DB: %w", err)
	}

	b.stopCh = make(chan struct{})

	b.wg.Add(1)
	go b.writerLoop()

	if b.db.IsMemory && b.cfg.DumpPath != "" && b.cfg.DumpInterval > 0 {
		b.wg.Add(1)
		go b.dumpLoop()
	}
	return nil
}

// Close stops the goroutines, writes what is still queued and closes the DB.
// An in-memory database gets a final dump first.
func (b *Backend) Close() error {
	if b.stopCh != nil {
		close(b.stopCh)
		b.wg.Wait()
		b.stopCh = nil
	}

	if err := b.Flush(); err != nil {
		b.log.Error().Err(err).Msg("Error writing queued fixes on close")
	}

	if b.db.IsMemory && b.cfg.DumpPath != "" {
		if err := b.db.DumpMemoryToDisk(b.cfg.DumpPath); err != nil {
			b.log.Error().Err(err).Msg("Error dumping to disk on close")
		}
	}

	return b.db.Close()
}

// RecordMission inserts the mission and assigns the DB-generated ID.
func (b *Backend) RecordMission(m *core.MissionRecord) error {
	row, err := model.MissionFromCore(*m)
	if err != nil {
		return err
	}
	if err := b.db.DB.Create(&row).Error; err != nil {
		return fmt.Errorf("failed to insert mission: %w", err)
	}
	m.ID = row.ID
	return nil
}

// RecordPosition queues the fix for the next batch write.
func (b *Backend) RecordPosition(f *core.PositionFix) error {
	b.fixes.Push(model.PositionFixFromCore(*f))
	return nil
}

// Pending returns the number of fixes waiting to be written.
func (b *Backend) Pending() int {
	return b.fixes.Len()
}

// Flush writes every queued fix in one transaction. On failure the fixes
// are put back on the queue.
func (b *Backend) Flush() error {
	return writeQueue(b.db.DB, b.fixes, "position fixes")
}

// ListMissions returns up to limit missions, newest first.
func (b *Backend) ListMissions(limit int) ([]core.MissionRecord, error) {
	var rows []model.Mission
	q := b.db.DB.Order("id desc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list missions: %w", err)
	}

	out := make([]core.MissionRecord, 0, len(rows))
	for _, r := range rows {
		m, err := model.MissionToCore(r)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

// ListPositions returns the written fixes for role in time order.
func (b *Backend) ListPositions(role core.Role) ([]core.PositionFix, error) {
	var rows []model.PositionFix
	if err := b.db.DB.Where("role = ?", string(role)).Order("time asc, id asc").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list positions: %w", err)
	}

	out := make([]core.PositionFix, len(rows))
	for i, r := range rows {
		out[i] = model.PositionFixToCore(r)
	}
	return out, nil
}

// writeQueue writes all items from a queue to the database in a transaction.
func writeQueue[T any](db *gorm.DB, q *queue.Queue[T], name string) error {
	items := q.GetAndEmpty()
	if len(items) == 0 {
		return nil
	}

	tx := db.Begin()
	if err := tx.Create(&items).Error; err != nil {
		tx.Rollback()
		q.Push(items...)
		return fmt.Errorf("error creating %s: %w", name, err)
	}
	return tx.Commit().Error
}

func (b *Backend) writerLoop() {
	defer b.wg.Done()

	ticker := time.NewTicker(b.cfg.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopCh:
			return
		case <-ticker.C:
			if err := b.Flush(); err != nil {
				b.log.Error().Err(err).Msg("DB writer failed")
			}
		}
	}
}

// dumpLoop periodically dumps the in-memory SQLite database to disk.
// VACUUM INTO creates a point-in-time snapshot, so no pause mechanism is needed.
func (b *Backend) dumpLoop() {
	defer b.wg.Done()

	ticker := time.NewTicker(b.cfg.DumpInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopCh:
			return
		case <-ticker.C:
			if err := b.db.DumpMemoryToDisk(b.cfg.DumpPath); err != nil {
				b.log.Error().Err(err).Msg("Error dumping to disk")
			}
		}
	}
}
