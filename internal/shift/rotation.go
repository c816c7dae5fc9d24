package shift

import (
	"fmt"
	"time"
)

// Teams is the number of rotating crews.
const Teams = 4

// BlockLength is the length of one shift.
const BlockLength = 12 * time.Hour

// DefaultCycle is the 8-step team sequence; one full cycle spans 96 hours.
var DefaultCycle = []int{0, 2, 1, 3, 2, 0, 3, 1}

// DefaultAnchor aligns the cycle at 06:00 on 2026-01-01 in loc.
func DefaultAnchor(loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	return time.Date(2026, time.January, 1, 6, 0, 0, 0, loc)
}

// Rotation maps instants to the team on duty. The zero value is not usable;
// build one with New.
type Rotation struct {
	Anchor time.Time
	Cycle  []int
}

// New validates cycle and returns a rotation starting at anchor.
func New(anchor time.Time, cycle []int) (Rotation, error) {
	if len(cycle) == 0 {
		return Rotation{}, fmt.Errorf("shift cycle is empty")
	}
	for i, team := range cycle {
		if team < 0 || team >= Teams {
			return Rotation{}, fmt.Errorf("shift cycle step %d has team %d outside [0,%d]", i, team, Teams-1)
		}
	}
	c := make([]int, len(cycle))
	copy(c, cycle)
	return Rotation{Anchor: anchor, Cycle: c}, nil
}

// Default is the rotation with DefaultCycle anchored at anchor.
func Default(anchor time.Time) Rotation {
	r, _ := New(anchor, DefaultCycle)
	return r
}

// Period is the length of one full cycle.
func (r Rotation) Period() time.Duration {
	return time.Duration(len(r.Cycle)) * BlockLength
}

// BlockIndex is the floored number of 12-hour blocks between the anchor and t.
// Instants before the anchor yield negative indexes.
func (r Rotation) BlockIndex(t time.Time) int64 {
	d := t.Sub(r.Anchor)
	q := int64(d / BlockLength)
	if d%BlockLength != 0 && d < 0 {
		q--
	}
	return q
}

// BlockStart returns the start of the block with the given index.
func (r Rotation) BlockStart(index int64) time.Time {
	return r.Anchor.Add(time.Duration(index) * BlockLength)
}

// TeamForBlock resolves a block index to a team using floored modulo.
func (r Rotation) TeamForBlock(index int64) int {
	n := int64(len(r.Cycle))
	pos := ((index % n) + n) % n
	return r.Cycle[pos]
}

// CurrentTeam returns the team on duty at t.
func (r Rotation) CurrentTeam(t time.Time) int {
	return r.TeamForBlock(r.BlockIndex(t))
}

// Band is one 12-hour block tagged with its team.
type Band struct {
	Start time.Time `json:"start" format:"date-time"`
	End   time.Time `json:"end" format:"date-time"`
	Team  int       `json:"team"`
}

// Bands enumerates the anchor-aligned blocks that cover
// [viewStart, viewStart+days*24h) in chronological order. The first band starts
// at or before viewStart so the range is covered without gaps.
func (r Rotation) Bands(viewStart time.Time, days int) []Band {
	if days <= 0 {
		return nil
	}
	end := viewStart.Add(time.Duration(days) * 24 * time.Hour)
	idx := r.BlockIndex(viewStart)
	var bands []Band
	for start := r.BlockStart(idx); start.Before(end); idx++ {
		next := r.BlockStart(idx + 1)
		bands = append(bands, Band{Start: start, End: next, Team: r.TeamForBlock(idx)})
		start = next
	}
	return bands
}

// CurrentTeam is the team on duty at instant for DefaultCycle anchored at anchor.
func CurrentTeam(instant, anchor time.Time) int {
	return Default(anchor).CurrentTeam(instant)
}

// ShiftBands returns the bands of DefaultCycle anchored at anchor.
func ShiftBands(viewStart time.Time, days int, anchor time.Time) []Band {
	return Default(anchor).Bands(viewStart, days)
}
