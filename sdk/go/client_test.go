package plantpulsesdk

import (
	"bytes"
	"context"
	"errors"
	"image/png"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"plantpulse/internal/config"
	"plantpulse/internal/db"
	"plantpulse/internal/engine"
	"plantpulse/internal/migrate"
	"plantpulse/internal/server"
)

func newClient(t *testing.T) *Client {
	t.Helper()
	conn, err := db.Open(db.Config{Workspace: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	require.NoError(t, migrate.Migrate(conn))
	e, err := engine.New(conn, config.Default("plant-1"))
	require.NoError(t, err)
	now := time.Date(2026, time.March, 16, 11, 0, 0, 0, time.UTC)
	e.Now = func() time.Time { return now }
	e.Store.Now = e.Now
	e.Logger = nil
	handler, err := server.New(server.Config{Engine: e})
	require.NoError(t, err)
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(srv.URL)
}

func TestClientRoundTrip(t *testing.T) {
	c := newClient(t)
	ctx := context.Background()

	_, err := c.Snapshot(ctx)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	assert.Equal(t, "not_found", apiErr.Code)

	rev, err := c.SeedDemo(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, int64(1), rev)

	snap, err := c.Snapshot(ctx)
	require.NoError(t, err)
	rev, err = c.PutSnapshot(ctx, snap.Snapshot, snap.Revision)
	require.NoError(t, err)
	assert.Equal(t, int64(2), rev)
	_, err = c.PutSnapshot(ctx, snap.Snapshot, snap.Revision)
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "conflict", apiErr.Code)

	rev, err = c.ImportStages(ctx, []Stage{{
		ID:           "extra-1",
		EquipmentID:  "F-1",
		BatchChainID: "KK-99",
		StageType:    "fermentation",
		Start:        time.Date(2026, 3, 20, 5, 0, 0, 0, time.UTC),
		End:          time.Date(2026, 3, 24, 5, 0, 0, 0, time.UTC),
		State:        "planned",
	}})
	require.NoError(t, err)
	assert.Equal(t, int64(3), rev)

	rev, err = c.RemoveChain(ctx, "KK-99")
	require.NoError(t, err)
	assert.Equal(t, int64(4), rev)
	_, err = c.RemoveChain(ctx, "KK-99")
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
}

func TestClientRendering(t *testing.T) {
	c := newClient(t)
	ctx := context.Background()
	_, err := c.SeedDemo(ctx, false)
	require.NoError(t, err)

	night := true
	paint, err := c.Render(ctx, "lobby", RenderOptions{Width: 480, Height: 200, Night: &night, Groups: []string{"GNT"}})
	require.NoError(t, err)
	assert.Equal(t, "night", paint.Theme)
	assert.Equal(t, 6, paint.Rows)

	data, err := c.Image(ctx, "lobby")
	require.NoError(t, err)
	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 480, img.Bounds().Dx())

	data, err = c.Wallboard(ctx, 320, 0)
	require.NoError(t, err)
	img, err = png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 320, img.Bounds().Dx())
}

func TestClientTeamAndNight(t *testing.T) {
	c := newClient(t)
	ctx := context.Background()

	team, err := c.CurrentTeam(ctx, time.Date(2026, 1, 1, 5, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, 0, team.Team)
	assert.Equal(t, "A", team.Name)

	night, err := c.Night(ctx)
	require.NoError(t, err)
	assert.False(t, night)
	require.NoError(t, c.SetNight(ctx, true))
	night, err = c.Night(ctx)
	require.NoError(t, err)
	assert.True(t, night)

	page, err := c.EventsPage(ctx, 1, "")
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "night.toggled", page.Items[0].Type)
	assert.NotEmpty(t, page.NextCursor)
}
