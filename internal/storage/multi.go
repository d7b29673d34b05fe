package storage

import (
	"errors"

	"github.com/groundlink/missionmap/pkg/core"
)

// Multi fans records out to several backends. The first backend is the
// primary: it assigns mission IDs and answers Lister/Exporter queries.
type Multi struct {
	backends []Backend
}

// NewMulti combines backends, skipping nils.
func NewMulti(backends ...Backend) *Multi {
	valid := make([]Backend, 0, len(backends))
	for _, b := range backends {
		if b != nil {
			valid = append(valid, b)
		}
	}
	return &Multi{backends: valid}
}

// Init initializes every backend, stopping at the first failure.
func (m *Multi) Init() error {
	for _, b := range m.backends {
		if err := b.Init(); err != nil {
			return err
		}
	}
	return nil
}

// Close closes every backend and joins their errors.
func (m *Multi) Close() error {
	var errs []error
	for _, b := range m.backends {
		errs = append(errs, b.Close())
	}
	return errors.Join(errs...)
}

// RecordMission writes m to every backend. Secondary backends see the ID
// the primary assigned.
func (m *Multi) RecordMission(rec *core.MissionRecord) error {
	var errs []error
	for i, b := range m.backends {
		if i == 0 {
			errs = append(errs, b.RecordMission(rec))
			continue
		}
		cp := *rec
		errs = append(errs, b.RecordMission(&cp))
	}
	return errors.Join(errs...)
}

// RecordPosition writes f to every backend.
func (m *Multi) RecordPosition(f *core.PositionFix) error {
	var errs []error
	for i, b := range m.backends {
		if i == 0 {
			errs = append(errs, b.RecordPosition(f))
			continue
		}
		cp := *f
		errs = append(errs, b.RecordPosition(&cp))
	}
	return errors.Join(errs...)
}

// ListMissions delegates to the primary when it is a Lister.
func (m *Multi) ListMissions(limit int) ([]core.MissionRecord, error) {
	if len(m.backends) > 0 {
		if l, ok := m.backends[0].(Lister); ok {
			return l.ListMissions(limit)
		}
	}
	return nil, errors.New("primary backend keeps no mission list")
}

// GetExportedFilePath delegates to the primary when it is an Exporter.
func (m *Multi) GetExportedFilePath() string {
	if len(m.backends) > 0 {
		if e, ok := m.backends[0].(Exporter); ok {
			return e.GetExportedFilePath()
		}
	}
	return ""
}

// Pending sums the queued writes of every backend that queues.
func (m *Multi) Pending() int {
	n := 0
	for _, b := range m.backends {
		if p, ok := b.(Pender); ok {
			n += p.Pending()
		}
	}
	return n
}
