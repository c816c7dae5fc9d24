package events

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// Event types written by the store.
const (
	DocumentPut     = "document.put"
	DocumentDeleted = "document.deleted"
	StagesImported  = "stages.imported"
	DemoSeeded      = "demo.seeded"
	NightToggled    = "night.toggled"
	ChainRemoved    = "chain.removed"
)

type Writer struct {
	DB  *sql.DB
	Now func() time.Time
}

type Payload map[string]any

// Append records one mutation inside tx.
func (w Writer) Append(ctx context.Context, tx *sql.Tx, evtType, facilityID, entityKind, entityID, actorID string, payload Payload) error {
	if w.Now == nil {
		w.Now = time.Now
	}
	if payload == nil {
		payload = Payload{}
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal event payload: %w", err)
	}
	_, err = tx.ExecContext(ctx, `INSERT INTO events(ts,type,facility_id,entity_kind,entity_id,actor_id,payload_json) VALUES (?,?,?,?,?,?,?)`,
		w.Now().UTC().Format(time.RFC3339), evtType, nullable(facilityID), entityKind, nullable(entityID), actorID, string(data))
	return err
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}
