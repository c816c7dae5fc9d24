package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"

	"plantpulse/internal/config"
	"plantpulse/internal/db"
	"plantpulse/internal/engine"
	"plantpulse/internal/migrate"
	"plantpulse/internal/store"
)

// Workspace is an opened facility directory: its config, database and engine.
type Workspace struct {
	Dir    string
	Config *config.Config
	DB     *sql.DB
	Engine engine.Engine
}

// Options control how Open resolves the workspace.
type Options struct {
	// FacilityOverride replaces facility.id from the config file.
	FacilityOverride string
	// SeedDemo stores the demo plant when there is no snapshot yet.
	SeedDemo bool
	Logger   *log.Logger
}

// Init writes the default config into dir and prepares the database. An
// existing config is kept unless force is set.
func Init(ctx context.Context, dir, facilityID string, force bool) (*Workspace, error) {
	if facilityID == "" {
		facilityID = "plant"
	}
	path := config.Path(dir)
	if _, err := os.Stat(path); err == nil && !force {
		return nil, fmt.Errorf("%s already exists; use --force to overwrite", path)
	}
	if _, err := db.EnsureWorkspace(dir); err != nil {
		return nil, err
	}
	if err := os.WriteFile(path, []byte(config.GenerateDefault(facilityID)), 0o644); err != nil {
		return nil, fmt.Errorf("write config: %w", err)
	}
	return Open(ctx, dir, Options{})
}

// Open loads the workspace config (defaults when the file is missing), opens
// and migrates the database and builds the engine.
func Open(ctx context.Context, dir string, opts Options) (*Workspace, error) {
	cfg, err := config.LoadOrDefault(dir)
	if err != nil {
		return nil, err
	}
	if opts.FacilityOverride != "" {
		cfg.Facility.ID = opts.FacilityOverride
	}
	conn, err := db.Open(db.Config{Workspace: dir})
	if err != nil {
		return nil, err
	}
	if err := migrate.MigrateContext(ctx, conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	eng, err := engine.New(conn, cfg)
	if err != nil {
		conn.Close()
		return nil, err
	}
	if opts.Logger != nil {
		eng.Logger = opts.Logger
	}
	w := &Workspace{Dir: dir, Config: cfg, DB: conn, Engine: eng}
	if opts.SeedDemo {
		if _, _, err := eng.SeedDemo(ctx, false); err != nil && !errors.Is(err, engine.ErrSnapshotExists) {
			conn.Close()
			return nil, fmt.Errorf("seed demo: %w", err)
		}
	}
	return w, nil
}

// HasSnapshot reports whether a snapshot has been stored.
func (w *Workspace) HasSnapshot(ctx context.Context) (bool, error) {
	rev, err := w.Engine.Store.Revision(ctx, store.KeySnapshot)
	return rev > 0, err
}

func (w *Workspace) Close() error {
	if w == nil || w.DB == nil {
		return nil
	}
	return w.DB.Close()
}
