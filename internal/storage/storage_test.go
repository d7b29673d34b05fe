package storage_test

import (
	"errors"
	"testing"

	"github.com/groundlink/missionmap/internal/storage"
	"github.com/groundlink/missionmap/pkg/core"
	"github.com/stretchr/testify/assert"
)

// nopBackend is the smallest Backend; it exists to pin the interface shape.
type nopBackend struct{ next uint }

func (b *nopBackend) Init() error  { return nil }
func (b *nopBackend) Close() error { return nil }
func (b *nopBackend) RecordMission(m *core.MissionRecord) error {
	b.next++
	m.ID = b.next
	return nil
}
func (b *nopBackend) RecordPosition(f *core.PositionFix) error { return nil }

var _ storage.Backend = (*nopBackend)(nil)

func TestBackend_RecordMissionAssignsID(t *testing.T) {
	var b storage.Backend = &nopBackend{}

	m := &core.MissionRecord{Kind: core.MissionPath}
	assert.NoError(t, b.RecordMission(m))
	assert.Equal(t, uint(1), m.ID)

	_, isLister := b.(storage.Lister)
	assert.False(t, isLister)
}

type failingBackend struct {
	nopBackend
	err      error
	missions []core.MissionRecord
}

func (b *failingBackend) RecordMission(m *core.MissionRecord) error {
	b.missions = append(b.missions, *m)
	m.ID = 999 // must not leak back to the primary's record
	return b.err
}

func (b *failingBackend) Close() error { return b.err }

func TestMulti_PrimaryAssignsID(t *testing.T) {
	primary := &nopBackend{}
	secondary := &failingBackend{}
	m := storage.NewMulti(primary, nil, secondary)

	rec := &core.MissionRecord{Kind: core.MissionRegion}
	assert.NoError(t, m.RecordMission(rec))
	assert.Equal(t, uint(1), rec.ID)

	if assert.Len(t, secondary.missions, 1) {
		assert.Equal(t, uint(1), secondary.missions[0].ID)
	}
}

func TestMulti_JoinsErrors(t *testing.T) {
	boom := errors.New("boom")
	primary := &nopBackend{}
	m := storage.NewMulti(primary, &failingBackend{err: boom})

	rec := &core.MissionRecord{}
	err := m.RecordMission(rec)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, uint(1), rec.ID, "primary still records")

	assert.ErrorIs(t, m.Close(), boom)
}

func TestMulti_ListerAndExporterFollowPrimary(t *testing.T) {
	m := storage.NewMulti(&nopBackend{})

	_, err := m.ListMissions(10)
	assert.Error(t, err)
	assert.Equal(t, "", m.GetExportedFilePath())

	var _ storage.Lister = m
	var _ storage.Exporter = m
}

type queuedBackend struct {
	nopBackend
	pending int
}

func (b *queuedBackend) Pending() int { return b.pending }

func TestMulti_PendingSumsQueuedBackends(t *testing.T) {
	m := storage.NewMulti(&queuedBackend{pending: 4}, &nopBackend{}, &queuedBackend{pending: 2})
	assert.Equal(t, 6, m.Pending())

	var p storage.Pender = m
	assert.Equal(t, 0, storage.NewMulti(&nopBackend{}).Pending())
	assert.NotNil(t, p)
}
