package plantpulsesdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Client is a minimal PlantPulse HTTP API client.
type Client struct {
	BaseURL    string
	BasePath   string
	HTTPClient *http.Client
	Timeout    time.Duration
}

// New creates a client with sane defaults.
func New(baseURL string) *Client {
	return &Client{
		BaseURL:  baseURL,
		BasePath: "v0",
		Timeout:  10 * time.Second,
	}
}

// Stage is one scheduled occupation of a vessel.
type Stage struct {
	ID           string    `json:"id"`
	EquipmentID  string    `json:"equipment_id"`
	BatchChainID string    `json:"batch_chain_id"`
	StageType    string    `json:"stage_type"`
	Start        time.Time `json:"start"`
	End          time.Time `json:"end"`
	State        string    `json:"state"`
}

// SnapshotResponse carries a snapshot and the revision it was read at. The
// snapshot is kept raw so PutSnapshot can send it back unchanged.
type SnapshotResponse struct {
	Revision int64           `json:"revision"`
	Snapshot json.RawMessage `json:"snapshot"`
}

// Team is the crew on duty at an instant.
type Team struct {
	At         time.Time `json:"at"`
	Team       int       `json:"team"`
	Name       string    `json:"name"`
	BlockStart time.Time `json:"block_start"`
	BlockEnd   time.Time `json:"block_end"`
}

// Paint summarises a server-side paint.
type Paint struct {
	SurfaceID string  `json:"surface_id"`
	Trigger   string  `json:"trigger"`
	Theme     string  `json:"theme"`
	Width     float64 `json:"width"`
	Height    float64 `json:"height"`
	Rows      int     `json:"rows"`
	Bars      int     `json:"bars"`
}

// RenderOptions are optional overrides for a paint. Zero values use the
// server configuration.
type RenderOptions struct {
	Width  int      `json:"width,omitempty"`
	Height int      `json:"height,omitempty"`
	Scale  float64  `json:"scale,omitempty"`
	Groups []string `json:"groups,omitempty"`
	Night  *bool    `json:"night,omitempty"`
	Start  string   `json:"start,omitempty"`
	Days   int      `json:"days,omitempty"`
}

// Event represents a log entry.
type Event struct {
	ID         int64          `json:"id"`
	TS         string         `json:"ts"`
	Type       string         `json:"type"`
	FacilityID string         `json:"facility_id"`
	EntityID   string         `json:"entity_id"`
	EntityKind string         `json:"entity_kind"`
	Payload    map[string]any `json:"payload"`
}

// APIError wraps non-2xx responses.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	Body       string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("api error: status=%d code=%s message=%s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("api error: status=%d body=%s", e.StatusCode, e.Body)
}

// PaginatedEvents wraps list responses with cursors.
type PaginatedEvents struct {
	Items      []Event `json:"items"`
	NextCursor string  `json:"next_cursor"`
}

// Snapshot fetches the stored snapshot.
func (c *Client) Snapshot(ctx context.Context) (SnapshotResponse, error) {
	var resp SnapshotResponse
	err := c.do(ctx, http.MethodGet, "snapshot", nil, &resp)
	return resp, err
}

// PutSnapshot replaces the snapshot if it is still at expected.
func (c *Client) PutSnapshot(ctx context.Context, snapshot json.RawMessage, expected int64) (int64, error) {
	body := map[string]any{
		"expected_revision": expected,
		"snapshot":          snapshot,
	}
	var resp struct {
		Revision int64 `json:"revision"`
	}
	err := c.do(ctx, http.MethodPut, "snapshot", body, &resp)
	return resp.Revision, err
}

// SeedDemo stores the demo plant.
func (c *Client) SeedDemo(ctx context.Context, force bool) (int64, error) {
	endpoint := "snapshot/demo"
	if force {
		endpoint += "?force=true"
	}
	var resp SnapshotResponse
	err := c.do(ctx, http.MethodPost, endpoint, nil, &resp)
	return resp.Revision, err
}

// ImportStages upserts stages by id.
func (c *Client) ImportStages(ctx context.Context, stages []Stage) (int64, error) {
	var resp struct {
		Revision int64 `json:"revision"`
	}
	err := c.do(ctx, http.MethodPost, "snapshot/stages", map[string]any{"stages": stages}, &resp)
	return resp.Revision, err
}

// RemoveChain deletes a batch chain and its stages.
func (c *Client) RemoveChain(ctx context.Context, chainID string) (int64, error) {
	var resp struct {
		Revision int64 `json:"revision"`
	}
	err := c.do(ctx, http.MethodDelete, "snapshot/chains/"+url.PathEscape(chainID), nil, &resp)
	return resp.Revision, err
}

// CurrentTeam returns the team on duty at t, or now when t is zero.
func (c *Client) CurrentTeam(ctx context.Context, t time.Time) (Team, error) {
	endpoint := "shift/current"
	if !t.IsZero() {
		endpoint += "?at=" + url.QueryEscape(t.Format(time.RFC3339))
	}
	var resp Team
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

// Night reports whether the wallboard is in night mode.
func (c *Client) Night(ctx context.Context) (bool, error) {
	var resp struct {
		Night bool `json:"night"`
	}
	err := c.do(ctx, http.MethodGet, "night", nil, &resp)
	return resp.Night, err
}

// SetNight stores the night mode preference.
func (c *Client) SetNight(ctx context.Context, night bool) error {
	return c.do(ctx, http.MethodPut, "night", map[string]any{"night": night}, nil)
}

// Render paints surfaceID on the server.
func (c *Client) Render(ctx context.Context, surfaceID string, opts RenderOptions) (Paint, error) {
	var resp Paint
	endpoint := fmt.Sprintf("surfaces/%s/render", url.PathEscape(surfaceID))
	err := c.do(ctx, http.MethodPost, endpoint, opts, &resp)
	return resp, err
}

// Image returns the PNG last painted for surfaceID.
func (c *Client) Image(ctx context.Context, surfaceID string) ([]byte, error) {
	endpoint := fmt.Sprintf("surfaces/%s/image", url.PathEscape(surfaceID))
	return c.raw(ctx, endpoint)
}

// Wallboard paints the wallboard and returns it as PNG.
func (c *Client) Wallboard(ctx context.Context, width, height int) ([]byte, error) {
	q := url.Values{}
	if width > 0 {
		q.Set("width", strconv.Itoa(width))
	}
	if height > 0 {
		q.Set("height", strconv.Itoa(height))
	}
	endpoint := "wallboard.png"
	if len(q) > 0 {
		endpoint += "?" + q.Encode()
	}
	return c.raw(ctx, endpoint)
}

// Events returns recent events.
func (c *Client) Events(ctx context.Context, limit int) ([]Event, error) {
	page, err := c.EventsPage(ctx, limit, "")
	return page.Items, err
}

// EventsPage returns a paginated event listing.
func (c *Client) EventsPage(ctx context.Context, limit int, cursor string) (PaginatedEvents, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	if cursor != "" {
		q.Set("cursor", cursor)
	}
	endpoint := "events"
	if len(q) > 0 {
		endpoint += "?" + q.Encode()
	}
	var resp PaginatedEvents
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

func (c *Client) send(ctx context.Context, method, endpoint string, body any) (*http.Response, error) {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return nil, err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, c.url(endpoint), &buf)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 300 {
		defer resp.Body.Close()
		b, _ := io.ReadAll(resp.Body)
		apiErr := &APIError{StatusCode: resp.StatusCode, Body: string(b)}
		var env struct {
			Error struct {
				Code    string `json:"code"`
				Message string `json:"message"`
			} `json:"error"`
		}
		if json.Unmarshal(b, &env) == nil {
			apiErr.Code = env.Error.Code
			apiErr.Message = env.Error.Message
		}
		return nil, apiErr
	}
	return resp, nil
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) error {
	resp, err := c.send(ctx, method, endpoint, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (c *Client) raw(ctx context.Context, endpoint string) ([]byte, error) {
	resp, err := c.send(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}

func (c *Client) url(endpoint string) string {
	base := strings.TrimRight(c.BaseURL, "/")
	if p := strings.Trim(c.BasePath, "/"); p != "" {
		base += "/" + p
	}
	return base + "/" + strings.TrimLeft(endpoint, "/")
}
