package store

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"plantpulse/internal/db"
	"plantpulse/internal/domain"
	"plantpulse/internal/events"
	"plantpulse/internal/migrate"
)

type testEnv struct {
	ctx   context.Context
	db    *sql.DB
	store Store
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	conn, err := db.Open(db.Config{Workspace: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	require.NoError(t, migrate.Migrate(conn))
	now := time.Date(2026, time.March, 2, 8, 0, 0, 0, time.UTC)
	s := New(conn, "plant-1")
	s.Now = func() time.Time { return now }
	return testEnv{ctx: context.Background(), db: conn, store: s}
}

func TestMigrateIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, migrate.Migrate(env.db))
	v, err := migrate.Version(env.ctx, env.db)
	require.NoError(t, err)
	list, err := migrate.List()
	require.NoError(t, err)
	assert.Equal(t, list[len(list)-1].Version, v)
}

func TestPutGetRevisions(t *testing.T) {
	env := newTestEnv(t)
	s := env.store

	_, err := s.Get(env.ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	rev, err := s.Put(env.ctx, "k", map[string]int{"a": 1}, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), rev)

	_, err = s.Put(env.ctx, "k", map[string]int{"a": 2}, 0)
	assert.ErrorIs(t, err, ErrConflict)

	rev, err = s.Put(env.ctx, "k", map[string]int{"a": 2}, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), rev)

	doc, err := s.Get(env.ctx, "k")
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":2}`, string(doc.Value))
	assert.Equal(t, "2026-03-02T08:00:00Z", doc.UpdatedAt)

	rev, err = s.Put(env.ctx, "k", map[string]int{"a": 3}, AnyRevision)
	require.NoError(t, err)
	assert.Equal(t, int64(3), rev)

	current, err := s.Revision(env.ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, int64(3), current)
	none, err := s.Revision(env.ctx, "nope")
	require.NoError(t, err)
	assert.Zero(t, none)

	keys, err := s.Keys(env.ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"k"}, keys)

	require.NoError(t, s.Delete(env.ctx, "k"))
	assert.ErrorIs(t, s.Delete(env.ctx, "k"), ErrNotFound)
}

func TestSnapshotRoundTrip(t *testing.T) {
	env := newTestEnv(t)
	s := env.store
	_, _, err := s.LoadSnapshot(env.ctx)
	assert.ErrorIs(t, err, ErrNotFound)

	start := time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)
	snap := domain.Snapshot{
		Equipment:     []domain.Equipment{{ID: "f1", Name: "F-1"}},
		DisplayGroups: []domain.DisplayGroup{{ID: "kk", EquipmentIDs: []string{"f1"}}},
		BatchChains:   []domain.BatchChain{{ID: "c1", SeriesNumber: 42}},
		Stages:        []domain.Stage{{ID: "s1", EquipmentID: "f1", BatchChainID: "c1", Start: start, End: start.Add(time.Hour)}},
		View:          domain.Viewport{Start: start, Days: 21},
	}
	rev, err := s.SaveSnapshot(env.ctx, snap, 0)
	require.NoError(t, err)
	got, gotRev, err := s.LoadSnapshot(env.ctx)
	require.NoError(t, err)
	assert.Equal(t, rev, gotRev)
	assert.Equal(t, snap.Stages[0].Start.UTC(), got.Stages[0].Start.UTC())
	assert.Equal(t, "F-1", got.Equipment[0].Name)

	bad := snap
	bad.Equipment = append(bad.Equipment, domain.Equipment{ID: "f1"})
	_, err = s.SaveSnapshot(env.ctx, bad, rev)
	assert.ErrorContains(t, err, "duplicate equipment")
}

func TestEventsAreAppended(t *testing.T) {
	env := newTestEnv(t)
	s := env.store
	_, err := s.Put(env.ctx, KeySnapshot, domain.Snapshot{}, 0)
	require.NoError(t, err)
	require.NoError(t, s.SetNightPreference(env.ctx, true))
	require.NoError(t, s.AppendEvent(env.ctx, events.DemoSeeded, "snapshot", KeySnapshot, events.Payload{"chains": 3}))

	latest, err := s.LatestEvents(env.ctx, 10, EventFilter{})
	require.NoError(t, err)
	require.Len(t, latest, 3)
	assert.Equal(t, events.DemoSeeded, latest[0].Type)
	assert.Equal(t, "plant-1", latest[0].FacilityID)
	assert.Equal(t, "local", latest[0].ActorID)
	assert.JSONEq(t, `{"chains":3}`, latest[0].Payload)

	puts, err := s.LatestEvents(env.ctx, 10, EventFilter{Type: events.DocumentPut, EntityID: KeyNightPref})
	require.NoError(t, err)
	require.Len(t, puts, 1)

	after, err := s.EventsAfter(env.ctx, 10, latest[2].ID)
	require.NoError(t, err)
	require.Len(t, after, 2)
	assert.Less(t, after[0].ID, after[1].ID)
}

func TestNightPreference(t *testing.T) {
	env := newTestEnv(t)
	pref, err := env.store.NightPreference(env.ctx)
	require.NoError(t, err)
	assert.Nil(t, pref)
	require.NoError(t, env.store.SetNightPreference(env.ctx, true))
	require.NoError(t, env.store.SetNightPreference(env.ctx, false))
	pref, err = env.store.NightPreference(env.ctx)
	require.NoError(t, err)
	require.NotNil(t, pref)
	assert.False(t, *pref)
}

func TestRenders(t *testing.T) {
	env := newTestEnv(t)
	for i, id := range []string{"wallboard", "inoculum", "wallboard"} {
		_, err := env.store.RecordRender(env.ctx, domain.RenderRecord{SurfaceID: id, Trigger: "tick", Theme: "day", Width: 800 + i, Height: 400, Rows: 3})
		require.NoError(t, err)
	}
	wb, err := env.store.LatestRenders(env.ctx, "wallboard", 0)
	require.NoError(t, err)
	require.Len(t, wb, 2)
	assert.Equal(t, 802, wb[0].Width)
	all, err := env.store.LatestRenders(env.ctx, "", 2)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
