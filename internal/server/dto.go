package server

import (
	"encoding/json"
	"time"

	"plantpulse/internal/calendar"
	"plantpulse/internal/domain"
	"plantpulse/internal/importer"
	"plantpulse/internal/layout"
	"plantpulse/internal/render"
	"plantpulse/internal/shift"
)

// Request payloads

type PutSnapshotRequest struct {
	ExpectedRevision int64           `json:"expected_revision" doc:"Revision the snapshot was read at; 0 creates it"`
	Snapshot         domain.Snapshot `json:"snapshot"`
}

type NightRequest struct {
	Night bool `json:"night"`
}

type RenderSurfaceRequest struct {
	Width  int      `json:"width,omitempty" minimum:"0"`
	Height int      `json:"height,omitempty" minimum:"0"`
	Scale  float64  `json:"scale,omitempty" minimum:"0"`
	Groups []string `json:"groups,omitempty"`
	Night  *bool    `json:"night,omitempty"`
	Start  string   `json:"start,omitempty" format:"date-time"`
	Days   int      `json:"days,omitempty" minimum:"0"`
}

type ImportStagesRequest struct {
	Stages []domain.Stage `json:"stages"`
}

// Response payloads

type SnapshotResponse struct {
	Revision int64           `json:"revision"`
	Snapshot domain.Snapshot `json:"snapshot"`
}

type ImportStagesResponse struct {
	Revision int64                `json:"revision"`
	Result   importer.MergeResult `json:"result"`
}

type RevisionResponse struct {
	Revision int64 `json:"revision"`
}

type NightResponse struct {
	Night bool `json:"night"`
}

type TeamResponse struct {
	At         time.Time `json:"at" format:"date-time"`
	Team       int       `json:"team"`
	Name       string    `json:"name"`
	BlockStart time.Time `json:"block_start" format:"date-time"`
	BlockEnd   time.Time `json:"block_end" format:"date-time"`
}

type BandsResponse struct {
	Start time.Time    `json:"start" format:"date-time"`
	Days  int          `json:"days"`
	Bands []shift.Band `json:"bands"`
}

type HolidaysResponse struct {
	Year         int                     `json:"year"`
	Jurisdiction string                  `json:"jurisdiction"`
	Holidays     []calendar.DatedHoliday `json:"holidays"`
}

type RowsResponse struct {
	Rows          []layout.Row        `json:"rows"`
	Diagnostics   []layout.Diagnostic `json:"diagnostics"`
	ContentHeight float64             `json:"content_height"`
}

type PaintResponse struct {
	SurfaceID   string              `json:"surface_id"`
	Trigger     string              `json:"trigger"`
	Theme       string              `json:"theme"`
	Width       float64             `json:"width"`
	Height      float64             `json:"height"`
	Rows        int                 `json:"rows"`
	Bars        int                 `json:"bars"`
	Diagnostics []layout.Diagnostic `json:"diagnostics"`
}

type SurfacesResponse struct {
	IDs []string `json:"ids"`
}

type EventResponse struct {
	ID         int64          `json:"id"`
	TS         string         `json:"ts" format:"date-time"`
	Type       string         `json:"type"`
	FacilityID string         `json:"facility_id,omitempty"`
	EntityKind string         `json:"entity_kind"`
	EntityID   string         `json:"entity_id,omitempty"`
	ActorID    string         `json:"actor_id"`
	Payload    map[string]any `json:"payload"`
}

type paginatedEvents struct {
	Items      []EventResponse `json:"items"`
	NextCursor string          `json:"next_cursor,omitempty"`
}

type RendersResponse struct {
	Items []domain.RenderRecord `json:"items"`
}

// Conversion helpers

func eventResponse(e domain.Event) EventResponse {
	return EventResponse{
		ID:         e.ID,
		TS:         e.TS,
		Type:       e.Type,
		FacilityID: e.FacilityID,
		EntityKind: e.EntityKind,
		EntityID:   e.EntityID,
		ActorID:    e.ActorID,
		Payload:    decodeJSONMap(e.Payload),
	}
}

func paintResponse(id string, res render.PaintResult) PaintResponse {
	diags := res.Diagnostics
	if diags == nil {
		diags = []layout.Diagnostic{}
	}
	return PaintResponse{
		SurfaceID:   id,
		Trigger:     res.Trigger.String(),
		Theme:       res.Theme,
		Width:       res.Width,
		Height:      res.Height,
		Rows:        res.Rows,
		Bars:        res.Bars,
		Diagnostics: diags,
	}
}

func decodeJSONMap(raw string) map[string]any {
	out := map[string]any{}
	if raw == "" {
		return out
	}
	_ = json.Unmarshal([]byte(raw), &out)
	return out
}
