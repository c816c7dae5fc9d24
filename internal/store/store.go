package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"plantpulse/internal/domain"
	"plantpulse/internal/events"
)

var (
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a write's expected revision is stale.
	ErrConflict = errors.New("revision conflict")
)

// AnyRevision skips the optimistic revision check on Put.
const AnyRevision int64 = -1

// Well-known document keys.
const (
	KeySnapshot  = "snapshot"
	KeyNightPref = "pref.night"
)

// Store is the key-value state container. Every document carries a revision
// that increments on each write; writers pass the revision they read.
type Store struct {
	DB         *sql.DB
	Events     events.Writer
	FacilityID string
	Actor      string
	Now        func() time.Time
}

func New(db *sql.DB, facilityID string) Store {
	return Store{DB: db, Events: events.Writer{DB: db}, FacilityID: facilityID, Actor: "local"}
}

type Document struct {
	Key       string          `json:"key"`
	Value     json.RawMessage `json:"value"`
	Revision  int64           `json:"revision"`
	UpdatedAt string          `json:"updated_at" format:"date-time"`
}

func (s Store) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s Store) writer() events.Writer {
	w := s.Events
	if w.DB == nil {
		w.DB = s.DB
	}
	if w.Now == nil {
		w.Now = s.now
	}
	return w
}

func (s Store) actor() string {
	if s.Actor == "" {
		return "local"
	}
	return s.Actor
}

func (s Store) Get(ctx context.Context, key string) (Document, error) {
	return scanDoc(s.DB.QueryRowContext(ctx, `SELECT key,value_json,revision,updated_at FROM documents WHERE key=?`, key))
}

func scanDoc(row *sql.Row) (Document, error) {
	var d Document
	var raw string
	err := row.Scan(&d.Key, &raw, &d.Revision, &d.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return d, ErrNotFound
	}
	if err != nil {
		return d, err
	}
	d.Value = json.RawMessage(raw)
	return d, nil
}

// Revision returns the current revision of key, 0 if it does not exist.
func (s Store) Revision(ctx context.Context, key string) (int64, error) {
	var rev int64
	err := s.DB.QueryRowContext(ctx, `SELECT revision FROM documents WHERE key=?`, key).Scan(&rev)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	return rev, err
}

// Put stores value under key. expected must equal the current revision (0 for
// a new key) unless it is AnyRevision. It returns the new revision.
func (s Store) Put(ctx context.Context, key string, value any, expected int64) (int64, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return 0, fmt.Errorf("marshal %s: %w", key, err)
	}
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()
	rev, err := s.putTx(ctx, tx, key, data, expected)
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return rev, nil
}

func (s Store) putTx(ctx context.Context, tx *sql.Tx, key string, data []byte, expected int64) (int64, error) {
	var current int64
	err := tx.QueryRowContext(ctx, `SELECT revision FROM documents WHERE key=?`, key).Scan(&current)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return 0, err
	}
	if expected != AnyRevision && expected != current {
		return 0, fmt.Errorf("%s at revision %d, expected %d: %w", key, current, expected, ErrConflict)
	}
	next := current + 1
	ts := s.now().UTC().Format(time.RFC3339)
	if current == 0 {
		_, err = tx.ExecContext(ctx, `INSERT INTO documents(key,value_json,revision,updated_at) VALUES (?,?,?,?)`, key, string(data), next, ts)
	} else {
		_, err = tx.ExecContext(ctx, `UPDATE documents SET value_json=?, revision=?, updated_at=? WHERE key=?`, string(data), next, ts, key)
	}
	if err != nil {
		return 0, err
	}
	ev := s.writer()
	if err := ev.Append(ctx, tx, events.DocumentPut, s.FacilityID, "document", key, s.actor(), events.Payload{"revision": next, "bytes": len(data)}); err != nil {
		return 0, fmt.Errorf("append event: %w", err)
	}
	return next, nil
}

func (s Store) Delete(ctx context.Context, key string) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	res, err := tx.ExecContext(ctx, `DELETE FROM documents WHERE key=?`, key)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	ev := s.writer()
	if err := ev.Append(ctx, tx, events.DocumentDeleted, s.FacilityID, "document", key, s.actor(), nil); err != nil {
		return fmt.Errorf("append event: %w", err)
	}
	return tx.Commit()
}

// Keys lists stored document keys in order.
func (s Store) Keys(ctx context.Context) ([]string, error) {
	rows, err := s.DB.QueryContext(ctx, `SELECT key FROM documents ORDER BY key`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		out = append(out, k)
	}
	return out, rows.Err()
}

// LoadSnapshot returns the stored snapshot and its revision.
func (s Store) LoadSnapshot(ctx context.Context) (domain.Snapshot, int64, error) {
	var snap domain.Snapshot
	doc, err := s.Get(ctx, KeySnapshot)
	if err != nil {
		return snap, 0, err
	}
	if err := json.Unmarshal(doc.Value, &snap); err != nil {
		return snap, 0, fmt.Errorf("decode snapshot: %w", err)
	}
	return snap, doc.Revision, nil
}

// SaveSnapshot validates and stores snap.
func (s Store) SaveSnapshot(ctx context.Context, snap domain.Snapshot, expected int64) (int64, error) {
	if err := snap.Validate(); err != nil {
		return 0, err
	}
	return s.Put(ctx, KeySnapshot, snap, expected)
}

// AppendEvent records a domain-level event outside a document write.
func (s Store) AppendEvent(ctx context.Context, evtType, entityKind, entityID string, payload events.Payload) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	ev := s.writer()
	if err := ev.Append(ctx, tx, evtType, s.FacilityID, entityKind, entityID, s.actor(), payload); err != nil {
		return err
	}
	return tx.Commit()
}

// NightPreference returns the stored night-mode preference, nil if unset.
func (s Store) NightPreference(ctx context.Context) (*bool, error) {
	doc, err := s.Get(ctx, KeyNightPref)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var night bool
	if err := json.Unmarshal(doc.Value, &night); err != nil {
		return nil, fmt.Errorf("decode %s: %w", KeyNightPref, err)
	}
	return &night, nil
}

func (s Store) SetNightPreference(ctx context.Context, night bool) error {
	_, err := s.Put(ctx, KeyNightPref, night, AnyRevision)
	return err
}

// EventFilter narrows LatestEvents; empty fields match everything.
type EventFilter struct {
	Type       string
	EntityKind string
	EntityID   string
	Before     int64
}

// LatestEvents returns up to limit events, newest first.
func (s Store) LatestEvents(ctx context.Context, limit int, f EventFilter) ([]domain.Event, error) {
	if limit <= 0 {
		limit = 50
	}
	clauses := []string{"1=1"}
	var args []any
	if f.Type != "" {
		clauses = append(clauses, "type=?")
		args = append(args, f.Type)
	}
	if f.EntityKind != "" {
		clauses = append(clauses, "entity_kind=?")
		args = append(args, f.EntityKind)
	}
	if f.EntityID != "" {
		clauses = append(clauses, "entity_id=?")
		args = append(args, f.EntityID)
	}
	if f.Before > 0 {
		clauses = append(clauses, "id<?")
		args = append(args, f.Before)
	}
	query := fmt.Sprintf(`SELECT id,ts,type,COALESCE(facility_id,''),entity_kind,COALESCE(entity_id,''),actor_id,payload_json FROM events WHERE %s ORDER BY id DESC LIMIT ?`, strings.Join(clauses, " AND "))
	args = append(args, limit)
	return s.queryEvents(ctx, query, args...)
}

// EventsAfter returns events with ids greater than cursor, oldest first.
func (s Store) EventsAfter(ctx context.Context, limit int, cursor int64) ([]domain.Event, error) {
	if limit <= 0 {
		limit = 100
	}
	return s.queryEvents(ctx, `SELECT id,ts,type,COALESCE(facility_id,''),entity_kind,COALESCE(entity_id,''),actor_id,payload_json FROM events WHERE id>? ORDER BY id ASC LIMIT ?`, cursor, limit)
}

func (s Store) queryEvents(ctx context.Context, query string, args ...any) ([]domain.Event, error) {
	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Event
	for rows.Next() {
		var e domain.Event
		var payload sql.NullString
		if err := rows.Scan(&e.ID, &e.TS, &e.Type, &e.FacilityID, &e.EntityKind, &e.EntityID, &e.ActorID, &payload); err != nil {
			return nil, err
		}
		if payload.Valid {
			e.Payload = payload.String
		}
		res = append(res, e)
	}
	return res, rows.Err()
}

// RecordRender appends a paint summary.
func (s Store) RecordRender(ctx context.Context, r domain.RenderRecord) (int64, error) {
	if r.TS == "" {
		r.TS = s.now().UTC().Format(time.RFC3339)
	}
	res, err := s.DB.ExecContext(ctx, `INSERT INTO renders(surface_id,ts,trigger,theme,width,height,rows,bars,snapshot_revision) VALUES (?,?,?,?,?,?,?,?,?)`,
		r.SurfaceID, r.TS, r.Trigger, r.Theme, r.Width, r.Height, r.Rows, r.Bars, r.SnapshotRevision)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// LatestRenders lists recent paints of a surface, newest first. An empty
// surface id lists every surface.
func (s Store) LatestRenders(ctx context.Context, surfaceID string, limit int) ([]domain.RenderRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	query := `SELECT id,surface_id,ts,trigger,theme,width,height,rows,bars,snapshot_revision FROM renders`
	var args []any
	if surfaceID != "" {
		query += ` WHERE surface_id=?`
		args = append(args, surfaceID)
	}
	query += ` ORDER BY id DESC LIMIT ?`
	args = append(args, limit)
	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.RenderRecord
	for rows.Next() {
		var r domain.RenderRecord
		if err := rows.Scan(&r.ID, &r.SurfaceID, &r.TS, &r.Trigger, &r.Theme, &r.Width, &r.Height, &r.Rows, &r.Bars, &r.SnapshotRevision); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
