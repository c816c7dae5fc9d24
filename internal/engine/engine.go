package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"image"
	"log"
	"sync/atomic"
	"time"

	"plantpulse/internal/calendar"
	"plantpulse/internal/config"
	"plantpulse/internal/demo"
	"plantpulse/internal/domain"
	"plantpulse/internal/events"
	"plantpulse/internal/importer"
	"plantpulse/internal/render"
	"plantpulse/internal/store"
	"plantpulse/internal/theme"
)

var ErrSnapshotExists = errors.New("snapshot already exists")

// Engine ties the configured painter to the stored snapshot.
type Engine struct {
	Store      store.Store
	Config     *config.Config
	Painter    *render.Painter
	Registry   *render.Registry
	NewSurface render.SurfaceFactory
	Logger     *log.Logger
	Now        func() time.Time
}

func New(db *sql.DB, cfg *config.Config) (Engine, error) {
	if cfg == nil {
		return Engine{}, errors.New("config not loaded")
	}
	p, err := NewPainter(cfg)
	if err != nil {
		return Engine{}, err
	}
	return Engine{
		Store:      store.New(db, cfg.Facility.ID),
		Config:     cfg,
		Painter:    p,
		Registry:   render.NewRegistry(),
		NewSurface: render.NewGGSurface,
		Logger:     log.Default(),
		Now:        time.Now,
	}, nil
}

// NewPainter builds a painter from the facility configuration.
func NewPainter(cfg *config.Config) (*render.Painter, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	rot, err := cfg.Rotation()
	if err != nil {
		return nil, err
	}
	themes, err := cfg.ThemeSet()
	if err != nil {
		return nil, err
	}
	p := render.NewPainter(calendar.New(cfg.Jurisdiction()), rot, loc)
	p.Metrics = cfg.Metrics()
	p.Themes = themes
	p.Options = Options(cfg)
	return p, nil
}

// Options maps the configured layer toggles.
func Options(cfg *config.Config) render.Options {
	l := cfg.Render.Layers
	return render.Options{
		Weekends:     l.Weekends,
		Holidays:     l.Holidays,
		Today:        l.Today,
		NowLine:      l.NowLine,
		ShiftBand:    l.ShiftBand,
		HourLabels:   l.HourLabels,
		SeriesLabels: l.SeriesLabels,
		Emphasis:     cfg.Layout.EmphasisPrefixes,
	}
}

func (e Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

func (e Engine) logf(format string, args ...any) {
	if e.Logger != nil {
		e.Logger.Printf(format, args...)
	}
}

func (e Engine) Location() *time.Location {
	if e.Painter != nil && e.Painter.Location != nil {
		return e.Painter.Location
	}
	return time.Local
}

// Today is local midnight of the current facility day.
func (e Engine) Today() time.Time {
	y, m, d := e.now().In(e.Location()).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, e.Location())
}

// DefaultView is the configured window around today.
func (e Engine) DefaultView() domain.Viewport {
	return domain.Viewport{
		Start: e.Today().AddDate(0, 0, -e.Config.Render.DaysBefore),
		Days:  e.Config.Render.Days,
	}
}

// Team returns the team on duty at t and its configured name.
func (e Engine) Team(t time.Time) (int, string) {
	team := e.Painter.Rotation.CurrentTeam(t)
	return team, e.Config.TeamName(team)
}

func (e Engine) Snapshot(ctx context.Context) (domain.Snapshot, int64, error) {
	return e.Store.LoadSnapshot(ctx)
}

func (e Engine) SaveSnapshot(ctx context.Context, snap domain.Snapshot, expected int64) (int64, error) {
	return e.Store.SaveSnapshot(ctx, snap, expected)
}

// SeedDemo stores the demo plant generated around today. Without force an
// existing snapshot is left alone and ErrSnapshotExists is returned.
func (e Engine) SeedDemo(ctx context.Context, force bool) (domain.Snapshot, int64, error) {
	rev, err := e.Store.Revision(ctx, store.KeySnapshot)
	if err != nil {
		return domain.Snapshot{}, 0, err
	}
	if rev > 0 && !force {
		return domain.Snapshot{}, rev, ErrSnapshotExists
	}
	snap := demo.Generate(e.Today())
	snap.View = e.DefaultView()
	rev, err = e.Store.SaveSnapshot(ctx, snap, rev)
	if err != nil {
		return domain.Snapshot{}, 0, err
	}
	if err := e.Store.AppendEvent(ctx, events.DemoSeeded, "snapshot", store.KeySnapshot, events.Payload{
		"equipment": len(snap.Equipment),
		"chains":    len(snap.BatchChains),
		"stages":    len(snap.Stages),
	}); err != nil {
		return snap, rev, err
	}
	return snap, rev, nil
}

// ImportStages merges stages into the stored snapshot, creating an empty one
// if needed.
func (e Engine) ImportStages(ctx context.Context, stages []domain.Stage) (importer.MergeResult, int64, error) {
	snap, rev, err := e.Store.LoadSnapshot(ctx)
	if errors.Is(err, store.ErrNotFound) {
		snap, rev, err = domain.Snapshot{View: e.DefaultView()}, 0, nil
	}
	if err != nil {
		return importer.MergeResult{}, 0, err
	}
	res := importer.Merge(&snap, stages)
	rev, err = e.Store.SaveSnapshot(ctx, snap, rev)
	if err != nil {
		return res, 0, err
	}
	if err := e.Store.AppendEvent(ctx, events.StagesImported, "snapshot", store.KeySnapshot, events.Payload{
		"added":   res.Added,
		"updated": res.Updated,
		"chains":  res.Chains,
	}); err != nil {
		return res, rev, err
	}
	return res, rev, nil
}

// RemoveChain deletes a batch chain and the stages it owns.
func (e Engine) RemoveChain(ctx context.Context, chainID string) (int64, error) {
	snap, rev, err := e.Store.LoadSnapshot(ctx)
	if err != nil {
		return 0, err
	}
	stages := len(snap.StagesOf(chainID))
	if !snap.RemoveChain(chainID) {
		return rev, fmt.Errorf("batch chain %s: %w", chainID, store.ErrNotFound)
	}
	rev, err = e.Store.SaveSnapshot(ctx, snap, rev)
	if err != nil {
		return 0, err
	}
	if err := e.Store.AppendEvent(ctx, events.ChainRemoved, "batch_chain", chainID, events.Payload{"stages": stages}); err != nil {
		return rev, err
	}
	return rev, nil
}

// Night resolves the theme mode: the stored preference, else the clock when
// auto switching is on.
func (e Engine) Night(ctx context.Context) (bool, error) {
	pref, err := e.Store.NightPreference(ctx)
	if err != nil {
		return false, err
	}
	if pref != nil {
		return *pref, nil
	}
	if !e.Config.Night.Auto {
		return false, nil
	}
	sw := theme.NewNightSwitch(e.now().In(e.Location()), nil, e.Config.Night.NightHour, e.Config.Night.DayHour)
	return sw.Night(), nil
}

// SetNight stores the preference and logs the toggle.
func (e Engine) SetNight(ctx context.Context, night bool) error {
	if err := e.Store.SetNightPreference(ctx, night); err != nil {
		return err
	}
	return e.Store.AppendEvent(ctx, events.NightToggled, "preference", store.KeyNightPref, events.Payload{"night": night})
}

// NightSwitch returns an auto switch seeded from the stored preference that
// persists every change it makes.
func (e Engine) NightSwitch(ctx context.Context) (*theme.NightSwitch, error) {
	pref, err := e.Store.NightPreference(ctx)
	if err != nil {
		return nil, err
	}
	sw := theme.NewNightSwitch(e.now().In(e.Location()), pref, e.Config.Night.NightHour, e.Config.Night.DayHour)
	sw.OnChange = func(night bool) {
		if err := e.SetNight(context.Background(), night); err != nil {
			e.logf("night: persist preference: %v", err)
		}
	}
	return sw, nil
}

// RenderRequest selects what a surface shows. Zero fields fall back to the
// snapshot and the configuration.
type RenderRequest struct {
	SurfaceID string
	Width     int
	Height    int
	Scale     float64
	Groups    []string
	Night     *bool
	Start     time.Time
	Days      int
}

func (e Engine) normalize(req RenderRequest) RenderRequest {
	if req.SurfaceID == "" {
		req.SurfaceID = "wallboard"
	}
	if req.Width <= 0 {
		req.Width = e.Config.Render.Width
	}
	if req.Height <= 0 {
		req.Height = e.Config.Render.Height
	}
	if req.Scale <= 0 {
		req.Scale = e.Config.Render.Scale
	}
	if req.Scale <= 0 {
		req.Scale = 1
	}
	return req
}

// Inputs loads the snapshot and applies req on top of it.
func (e Engine) Inputs(ctx context.Context, req RenderRequest) (render.Inputs, int64, error) {
	snap, rev, err := e.Store.LoadSnapshot(ctx)
	if err != nil {
		return render.Inputs{}, 0, err
	}
	in := render.InputsFromSnapshot(snap, req.Groups)
	if in.View.Days <= 0 || in.View.Start.IsZero() {
		in.View = e.DefaultView()
	}
	if !req.Start.IsZero() {
		in.View.Start = req.Start
	}
	if req.Days > 0 {
		in.View.Days = req.Days
	}
	if req.Night != nil {
		in.Night = *req.Night
	} else if in.Night, err = e.Night(ctx); err != nil {
		return render.Inputs{}, 0, err
	}
	return in, rev, nil
}

// Scene computes the wallboard geometry without painting.
func (e Engine) Scene(ctx context.Context, req RenderRequest) (render.Scene, error) {
	req = e.normalize(req)
	in, _, err := e.Inputs(ctx, req)
	if err != nil {
		return render.Scene{}, err
	}
	return e.Painter.Prepare(in, float64(req.Width), float64(req.Height), e.now()), nil
}

// Session is a long-lived surface that follows the stored snapshot.
type Session struct {
	Orchestrator *render.Orchestrator
	Request      RenderRequest

	engine        Engine
	revision      atomic.Int64
	nightRevision atomic.Int64
}

// NewSession wires an orchestrator for req: it publishes into the engine
// registry, records every paint, reloads the snapshot on ticks when its
// revision moves and, without a fixed mode, follows the night switch and the
// stored night preference.
func (e Engine) NewSession(ctx context.Context, req RenderRequest) (*Session, error) {
	req = e.normalize(req)
	o := render.NewOrchestrator(e.Painter, e.NewSurface)
	o.Now = e.now
	o.Logger = e.Logger
	o.Scale = req.Scale
	o.Interval = e.Config.Refresh()
	o.Registry = e.Registry
	o.SurfaceID = req.SurfaceID
	s := &Session{Orchestrator: o, Request: req, engine: e}
	if req.Night == nil && e.Config.Night.Auto {
		sw, err := e.NightSwitch(ctx)
		if err != nil {
			return nil, err
		}
		o.Night = sw
	}
	o.Reload = func(time.Time) (render.Inputs, bool) {
		if err := s.syncNight(context.Background()); err != nil {
			e.logf("render: night preference %s: %v", req.SurfaceID, err)
		}
		changed, in, err := s.reload(context.Background())
		if err != nil {
			e.logf("render: reload %s: %v", req.SurfaceID, err)
			return render.Inputs{}, false
		}
		return in, changed
	}
	o.OnPaint = func(res render.PaintResult, _ image.Image) {
		_, err := e.Store.RecordRender(context.Background(), domain.RenderRecord{
			SurfaceID:        req.SurfaceID,
			Trigger:          res.Trigger.String(),
			Theme:            res.Theme,
			Width:            int(res.Width),
			Height:           int(res.Height),
			Rows:             res.Rows,
			Bars:             res.Bars,
			SnapshotRevision: s.revision.Load(),
		})
		if err != nil {
			e.logf("render: record %s: %v", req.SurfaceID, err)
		}
	}

	in, rev, err := e.Inputs(ctx, req)
	if err != nil {
		return nil, err
	}
	if o.Night != nil {
		in.Night = o.Night.Night()
	}
	nightRev, err := e.Store.Revision(ctx, store.KeyNightPref)
	if err != nil {
		return nil, err
	}
	s.nightRevision.Store(nightRev)
	s.revision.Store(rev)
	o.SetInputs(in)
	o.Resize(float64(req.Width), float64(req.Height))
	return s, nil
}

// Revision is the snapshot revision the session last loaded.
func (s *Session) Revision() int64 { return s.revision.Load() }

func (s *Session) reload(ctx context.Context) (bool, render.Inputs, error) {
	rev, err := s.engine.Store.Revision(ctx, store.KeySnapshot)
	if err != nil || rev == s.revision.Load() {
		return false, render.Inputs{}, err
	}
	in, rev, err := s.engine.Inputs(ctx, s.Request)
	if err != nil {
		return false, render.Inputs{}, err
	}
	s.revision.Store(rev)
	return true, in, nil
}

// syncNight adopts a night preference stored by someone else since the last
// tick. The change reaches the orchestrator as a theme trigger.
func (s *Session) syncNight(ctx context.Context) error {
	if s.Request.Night != nil {
		return nil
	}
	rev, err := s.engine.Store.Revision(ctx, store.KeyNightPref)
	if err != nil || rev == s.nightRevision.Load() {
		return err
	}
	pref, err := s.engine.Store.NightPreference(ctx)
	if err != nil || pref == nil {
		return err
	}
	s.nightRevision.Store(rev)
	if sw := s.Orchestrator.Night; sw != nil {
		sw.Set(*pref)
	}
	s.Orchestrator.SetNight(*pref)
	return nil
}

// Run repaints until ctx is done.
func (s *Session) Run(ctx context.Context) error {
	s.Orchestrator.Paint(render.TriggerInput)
	return s.Orchestrator.Run(ctx)
}

// Render paints req once and returns the image.
func (e Engine) Render(ctx context.Context, req RenderRequest) (image.Image, render.PaintResult, error) {
	s, err := e.NewSession(ctx, req)
	if err != nil {
		return nil, render.PaintResult{}, err
	}
	res := s.Orchestrator.Paint(render.TriggerInput)
	if res.Skipped {
		return nil, res, fmt.Errorf("paint %s skipped: %s", s.Request.SurfaceID, res.Reason)
	}
	_, img := s.Orchestrator.Last()
	return img, res, nil
}
