package shift

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var anchor = time.Date(2026, time.January, 1, 6, 0, 0, 0, time.UTC)

func TestCurrentTeamReferencePoints(t *testing.T) {
	assert.Equal(t, 0, CurrentTeam(anchor, anchor))
	assert.Equal(t, 2, CurrentTeam(time.Date(2026, time.January, 1, 18, 0, 0, 0, time.UTC), anchor))
	// One full 96 h cycle after the anchor.
	assert.Equal(t, 0, CurrentTeam(time.Date(2026, time.January, 5, 6, 0, 0, 0, time.UTC), anchor))
	// 120 h after the anchor is block 10, cycle position 2.
	assert.Equal(t, 1, CurrentTeam(time.Date(2026, time.January, 6, 6, 0, 0, 0, time.UTC), anchor))
}

func TestCurrentTeamWithinBlock(t *testing.T) {
	r := Default(anchor)
	assert.Equal(t, 0, r.CurrentTeam(anchor.Add(11*time.Hour+59*time.Minute)))
	assert.Equal(t, 2, r.CurrentTeam(anchor.Add(12*time.Hour)))
}

func TestCurrentTeamBeforeAnchor(t *testing.T) {
	r := Default(anchor)
	assert.Equal(t, int64(-1), r.BlockIndex(anchor.Add(-time.Minute)))
	assert.Equal(t, int64(-1), r.BlockIndex(anchor.Add(-12*time.Hour)))
	assert.Equal(t, int64(-2), r.BlockIndex(anchor.Add(-12*time.Hour-time.Second)))
	// Block -1 is cycle position 7.
	assert.Equal(t, 1, r.CurrentTeam(anchor.Add(-time.Minute)))
	assert.Equal(t, 3, r.CurrentTeam(anchor.Add(-13*time.Hour)))
}

func TestCurrentTeamIsPeriodic(t *testing.T) {
	r := Default(anchor)
	require.Equal(t, 96*time.Hour, r.Period())
	start := anchor.Add(-30 * 24 * time.Hour)
	for i := 0; i < 400; i++ {
		ts := start.Add(time.Duration(i) * 7 * time.Hour).Add(time.Duration(i%13) * time.Minute)
		team := r.CurrentTeam(ts)
		require.GreaterOrEqual(t, team, 0)
		require.Less(t, team, Teams)
		require.Equal(t, team, r.CurrentTeam(ts.Add(96*time.Hour)), "at %s", ts)
	}
}

func TestBandsCoverViewport(t *testing.T) {
	r := Default(anchor)
	views := []time.Time{
		time.Date(2026, time.March, 10, 0, 0, 0, 0, time.UTC),
		time.Date(2025, time.December, 20, 9, 30, 0, 0, time.UTC),
		anchor,
	}
	for _, viewStart := range views {
		for _, days := range []int{1, 7, 21} {
			bands := r.Bands(viewStart, days)
			end := viewStart.Add(time.Duration(days) * 24 * time.Hour)
			require.NotEmpty(t, bands)
			assert.False(t, bands[0].Start.After(viewStart))
			assert.True(t, bands[len(bands)-1].End.After(end) || bands[len(bands)-1].End.Equal(end))
			for i, b := range bands {
				assert.Equal(t, BlockLength, b.End.Sub(b.Start))
				assert.Equal(t, r.CurrentTeam(b.Start), b.Team)
				assert.Zero(t, b.Start.Sub(anchor)%BlockLength, "band aligned to anchor grid")
				if i > 0 {
					assert.True(t, bands[i-1].End.Equal(b.Start), "no gap or overlap")
				}
				assert.True(t, b.Start.Before(end))
			}
		}
	}
}

func TestBandsEmptyForNonPositiveDays(t *testing.T) {
	assert.Empty(t, ShiftBands(anchor, 0, anchor))
	assert.Empty(t, ShiftBands(anchor, -3, anchor))
}

func TestBandsSequence(t *testing.T) {
	bands := ShiftBands(anchor, 4, anchor)
	require.Len(t, bands, 8)
	var teams []int
	for _, b := range bands {
		teams = append(teams, b.Team)
	}
	assert.Equal(t, DefaultCycle, teams)
}

func TestNewRejectsBadCycle(t *testing.T) {
	_, err := New(anchor, nil)
	assert.Error(t, err)
	_, err = New(anchor, []int{0, 4})
	assert.Error(t, err)
	r, err := New(anchor, []int{3, 2, 1, 0})
	require.NoError(t, err)
	assert.Equal(t, 3, r.CurrentTeam(anchor))
	assert.Equal(t, 48*time.Hour, r.Period())
}
