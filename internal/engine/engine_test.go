package engine_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"plantpulse/internal/config"
	"plantpulse/internal/db"
	"plantpulse/internal/engine"
	"plantpulse/internal/events"
	"plantpulse/internal/importer"
	"plantpulse/internal/migrate"
	"plantpulse/internal/render"
	"plantpulse/internal/store"
)

type testEnv struct {
	Engine engine.Engine
	Ctx    context.Context
	Now    *time.Time
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	conn, err := db.Open(db.Config{Workspace: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	require.NoError(t, migrate.Migrate(conn))

	cfg := config.Default("plant-1")
	eng, err := engine.New(conn, cfg)
	require.NoError(t, err)
	loc, err := cfg.Location()
	require.NoError(t, err)
	now := time.Date(2026, time.March, 16, 12, 0, 0, 0, loc)
	eng.Now = func() time.Time { return now }
	eng.Store.Now = eng.Now
	eng.Logger = nil
	return testEnv{Engine: eng, Ctx: context.Background(), Now: &now}
}

func TestSeedDemo(t *testing.T) {
	env := newTestEnv(t)
	snap, rev, err := env.Engine.SeedDemo(env.Ctx, false)
	require.NoError(t, err)
	assert.Equal(t, int64(1), rev)
	assert.Len(t, snap.BatchChains, 20)
	assert.Equal(t, 21, snap.View.Days)
	assert.Equal(t, "2026-03-12", snap.View.Start.Format("2006-01-02"))

	_, _, err = env.Engine.SeedDemo(env.Ctx, false)
	assert.ErrorIs(t, err, engine.ErrSnapshotExists)

	_, rev, err = env.Engine.SeedDemo(env.Ctx, true)
	require.NoError(t, err)
	assert.Equal(t, int64(2), rev)

	seeded, err := env.Engine.Store.LatestEvents(env.Ctx, 10, store.EventFilter{Type: events.DemoSeeded})
	require.NoError(t, err)
	assert.Len(t, seeded, 2)
}

func TestImportStagesCreatesSnapshot(t *testing.T) {
	env := newTestEnv(t)
	stages, err := importer.ReadStages(strings.NewReader(strings.Join(importer.Header, ",")+"\n,F-1,KK-1,fermentation,2026-03-16 06:00,2026-03-20 06:00,\n"), env.Engine.Location())
	require.NoError(t, err)

	res, rev, err := env.Engine.ImportStages(env.Ctx, stages)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Added)
	assert.Equal(t, []string{"KK-1"}, res.Chains)
	assert.Equal(t, int64(1), rev)

	snap, _, err := env.Engine.Snapshot(env.Ctx)
	require.NoError(t, err)
	require.Len(t, snap.Stages, 1)
	assert.True(t, env.Engine.DefaultView().Start.Equal(snap.View.Start))

	res, _, err = env.Engine.ImportStages(env.Ctx, stages)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Updated)
}

func TestNightPreference(t *testing.T) {
	env := newTestEnv(t)
	night, err := env.Engine.Night(env.Ctx)
	require.NoError(t, err)
	assert.False(t, night, "noon is day")

	*env.Now = env.Now.Add(11 * time.Hour)
	night, err = env.Engine.Night(env.Ctx)
	require.NoError(t, err)
	assert.True(t, night, "23:00 is night")

	require.NoError(t, env.Engine.SetNight(env.Ctx, false))
	night, err = env.Engine.Night(env.Ctx)
	require.NoError(t, err)
	assert.False(t, night, "stored preference wins")

	toggles, err := env.Engine.Store.LatestEvents(env.Ctx, 10, store.EventFilter{Type: events.NightToggled})
	require.NoError(t, err)
	require.Len(t, toggles, 1)
	assert.JSONEq(t, `{"night":false}`, toggles[0].Payload)
}

func TestTeam(t *testing.T) {
	env := newTestEnv(t)
	loc := env.Engine.Location()
	team, name := env.Engine.Team(time.Date(2026, 1, 1, 6, 0, 0, 0, loc))
	assert.Equal(t, 0, team)
	assert.Equal(t, "A", name)
	team, name = env.Engine.Team(time.Date(2026, 1, 1, 18, 0, 0, 0, loc))
	assert.Equal(t, 2, team)
	assert.Equal(t, "C", name)
}

func TestSceneUsesGroupFilter(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.Engine.Scene(env.Ctx, engine.RenderRequest{})
	assert.ErrorIs(t, err, store.ErrNotFound)

	_, _, err = env.Engine.SeedDemo(env.Ctx, false)
	require.NoError(t, err)
	sc, err := env.Engine.Scene(env.Ctx, engine.RenderRequest{Width: 1080})
	require.NoError(t, err)
	// GNT line, separator, KK line.
	assert.Len(t, sc.Rows, 6+1+19)
	assert.Empty(t, sc.Diagnostics)
	assert.True(t, sc.NowVisible)
	assert.Equal(t, 1080.0, sc.Width)

	sc, err = env.Engine.Scene(env.Ctx, engine.RenderRequest{Width: 1080, Groups: []string{"KK"}})
	require.NoError(t, err)
	assert.Len(t, sc.Rows, 19)
	for _, b := range sc.Bars {
		assert.NotContains(t, []string{"F-2", "F-3"}, b.EquipmentID)
	}
}

func TestRenderRecordsPaint(t *testing.T) {
	env := newTestEnv(t)
	_, _, err := env.Engine.SeedDemo(env.Ctx, false)
	require.NoError(t, err)
	day := false
	img, res, err := env.Engine.Render(env.Ctx, engine.RenderRequest{SurfaceID: "wallboard", Width: 800, Height: 300, Night: &day})
	require.NoError(t, err)
	assert.Equal(t, 800, img.Bounds().Dx())
	assert.GreaterOrEqual(t, img.Bounds().Dy(), 300)
	assert.Equal(t, "day", res.Theme)

	got, err := env.Engine.Registry.Get("wallboard")
	require.NoError(t, err)
	assert.Equal(t, img, got.Image)

	renders, err := env.Engine.Store.LatestRenders(env.Ctx, "wallboard", 5)
	require.NoError(t, err)
	require.Len(t, renders, 1)
	assert.Equal(t, int64(1), renders[0].SnapshotRevision)
	assert.Equal(t, 26, renders[0].Rows)
}

func TestSessionReloadsOnRevisionChange(t *testing.T) {
	env := newTestEnv(t)
	_, _, err := env.Engine.SeedDemo(env.Ctx, false)
	require.NoError(t, err)
	env.Engine.NewSurface = func(w, h int, _ float64) (render.Surface, error) {
		return render.NewGGSurface(w, h, 1)
	}

	s, err := env.Engine.NewSession(env.Ctx, engine.RenderRequest{SurfaceID: "inoculum", Width: 600, Height: 200})
	require.NoError(t, err)
	first := s.Orchestrator.Paint(render.TriggerInput)
	require.False(t, first.Skipped)
	assert.Equal(t, int64(1), s.Revision())

	snap, rev, err := env.Engine.Snapshot(env.Ctx)
	require.NoError(t, err)
	snap.DisplayGroups = snap.DisplayGroups[:1]
	_, err = env.Engine.SaveSnapshot(env.Ctx, snap, rev)
	require.NoError(t, err)

	res := s.Orchestrator.Paint(render.TriggerTick)
	assert.Equal(t, int64(2), s.Revision())
	assert.Equal(t, 6, res.Rows)

	renders, err := env.Engine.Store.LatestRenders(env.Ctx, "inoculum", 5)
	require.NoError(t, err)
	require.Len(t, renders, 2)
	assert.Equal(t, "tick", renders[0].Trigger)
	assert.Equal(t, int64(2), renders[0].SnapshotRevision)
}

func newLiveSession(t *testing.T, env testEnv) *engine.Session {
	t.Helper()
	_, _, err := env.Engine.SeedDemo(env.Ctx, false)
	require.NoError(t, err)
	env.Engine.NewSurface = func(w, h int, _ float64) (render.Surface, error) {
		return render.NewGGSurface(w, h, 1)
	}
	s, err := env.Engine.NewSession(env.Ctx, engine.RenderRequest{SurfaceID: "lobby", Width: 600, Height: 200})
	require.NoError(t, err)
	return s
}

func TestSessionFollowsStoredNightPreference(t *testing.T) {
	env := newTestEnv(t)
	env.Engine.Config.Night.Auto = false
	s := newLiveSession(t, env)
	assert.Equal(t, "day", s.Orchestrator.Paint(render.TriggerInput).Theme)

	require.NoError(t, env.Engine.SetNight(env.Ctx, true))
	assert.Equal(t, "night", s.Orchestrator.Paint(render.TriggerTick).Theme)
	assert.True(t, s.Orchestrator.Inputs().Night)

	require.NoError(t, env.Engine.SetNight(env.Ctx, false))
	assert.Equal(t, "day", s.Orchestrator.Paint(render.TriggerTick).Theme)
}

func TestSessionStoredNightHoldsUntilBoundary(t *testing.T) {
	env := newTestEnv(t)
	s := newLiveSession(t, env)
	require.NotNil(t, s.Orchestrator.Night)
	assert.Equal(t, "day", s.Orchestrator.Paint(render.TriggerInput).Theme)

	require.NoError(t, env.Engine.SetNight(env.Ctx, true))
	assert.Equal(t, "night", s.Orchestrator.Paint(render.TriggerTick).Theme)
	*env.Now = env.Now.Add(time.Hour)
	assert.Equal(t, "night", s.Orchestrator.Paint(render.TriggerTick).Theme, "13:00 is not a boundary")

	// 22:00 keeps night, 05:00 releases it and stores day.
	*env.Now = env.Now.Add(9 * time.Hour)
	assert.Equal(t, "night", s.Orchestrator.Paint(render.TriggerTick).Theme)
	*env.Now = env.Now.Add(7 * time.Hour)
	assert.Equal(t, "day", s.Orchestrator.Paint(render.TriggerTick).Theme)

	night, err := env.Engine.Night(env.Ctx)
	require.NoError(t, err)
	assert.False(t, night)
}

func TestSessionNightSwitchUsesFacilityZone(t *testing.T) {
	env := newTestEnv(t)
	// 20:30 UTC is 21:30 in the facility zone.
	*env.Now = time.Date(2026, time.March, 16, 20, 30, 0, 0, time.UTC)
	s := newLiveSession(t, env)
	assert.Equal(t, "day", s.Orchestrator.Paint(render.TriggerInput).Theme)

	*env.Now = env.Now.Add(time.Hour)
	assert.Equal(t, "night", s.Orchestrator.Paint(render.TriggerTick).Theme)
}

func TestNewRequiresConfig(t *testing.T) {
	_, err := engine.New(nil, nil)
	assert.Error(t, err)
}

func TestRemoveChain(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.Engine.RemoveChain(env.Ctx, "KK-42")
	assert.ErrorIs(t, err, store.ErrNotFound)

	_, _, err = env.Engine.SeedDemo(env.Ctx, false)
	require.NoError(t, err)
	rev, err := env.Engine.RemoveChain(env.Ctx, "KK-42")
	require.NoError(t, err)
	assert.Equal(t, int64(2), rev)

	snap, _, err := env.Engine.Snapshot(env.Ctx)
	require.NoError(t, err)
	assert.Len(t, snap.BatchChains, 19)
	assert.Len(t, snap.Stages, 57)
	assert.Empty(t, snap.StagesOf("KK-42"))

	removed, err := env.Engine.Store.LatestEvents(env.Ctx, 5, store.EventFilter{Type: events.ChainRemoved})
	require.NoError(t, err)
	require.Len(t, removed, 1)
	assert.Equal(t, "KK-42", removed[0].EntityID)
	assert.JSONEq(t, `{"stages":3}`, removed[0].Payload)

	_, err = env.Engine.RemoveChain(env.Ctx, "KK-42")
	assert.ErrorIs(t, err, store.ErrNotFound)
}
