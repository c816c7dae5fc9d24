package main

import (
	"bytes"
	"io"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"plantpulse/internal/config"
	"plantpulse/internal/engine"
)

func TestParseWhen(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Ljubljana")
	require.NoError(t, err)

	got, err := parseWhen("2026-01-05 06:00", loc)
	require.NoError(t, err)
	assert.True(t, got.Equal(time.Date(2026, 1, 5, 5, 0, 0, 0, time.UTC)))

	got, err = parseWhen("2026-01-05", loc)
	require.NoError(t, err)
	assert.Equal(t, 0, got.Hour())

	got, err = parseWhen("2026-01-05T06:00:00Z", loc)
	require.NoError(t, err)
	assert.Equal(t, 6, got.Hour())

	_, err = parseWhen("5.1.2026", loc)
	assert.Error(t, err)
}

func TestRenderFlagsRequest(t *testing.T) {
	e, err := engine.New(nil, config.Default("plant"))
	require.NoError(t, err)

	req, err := renderFlags{surface: "lobby", width: 800, theme: "night", groups: []string{"KK"}}.request(e)
	require.NoError(t, err)
	assert.Equal(t, "lobby", req.SurfaceID)
	assert.Equal(t, 800, req.Width)
	require.NotNil(t, req.Night)
	assert.True(t, *req.Night)
	assert.Equal(t, []string{"KK"}, req.Groups)

	req, err = renderFlags{theme: "auto", start: "2026-03-01"}.request(e)
	require.NoError(t, err)
	assert.Nil(t, req.Night)
	assert.Equal(t, "2026-03-01", req.Start.Format("2006-01-02"))

	_, err = renderFlags{theme: "dusk"}.request(e)
	assert.Error(t, err)
}

func TestWriteFileAtomic(t *testing.T) {
	path := t.TempDir() + "/board.png"
	require.NoError(t, writeFileAtomic(path, func(w io.Writer) error {
		_, err := w.Write([]byte("png"))
		return err
	}))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, bytes.Equal([]byte("png"), data))
}
