// Package demo builds the reference fermentation plant: its vessel roster,
// display groups, product lines and a few weeks of back-scheduled batches.
package demo

import (
	"fmt"
	"time"

	"plantpulse/internal/domain"
)

const (
	GroupInoculum     = "inoculum"
	GroupPropagator   = "propagator"
	GroupPreFermenter = "pre_fermenter"
	GroupFermenter    = "fermenter"
)

// Stage types shared by both product lines.
const (
	Propagation     = "propagation"
	PreFermentation = "pre_fermentation"
	Fermentation    = "fermentation"
)

// InoculumGroupID is the display group of the inoculum view. It is not part of
// the default wallboard groups.
const InoculumGroupID = "Inoculum"

var (
	kkFermenters    = []string{"F-1", "F-4", "F-5", "F-6", "F-7", "F-8", "F-9", "F-10", "F-11"}
	kkPreFermenters = []string{"PF-3", "PF-4", "PF-5", "PF-6"}
	kkPropagators   = []string{"PR-3", "PR-4", "PR-5", "PR-6", "PR-7", "PR-8"}

	gntFermenters    = []string{"F-2", "F-3"}
	gntPreFermenters = []string{"PF-1", "PF-2"}
	gntPropagators   = []string{"PR-1", "PR-2"}
)

// Equipment returns the default roster.
func Equipment() []domain.Equipment {
	out := []domain.Equipment{
		{ID: "BKK", Name: "BKK", Group: GroupInoculum, DisplayOrder: 0},
		{ID: "BGNT", Name: "BGNT", Group: GroupInoculum, DisplayOrder: 0.5},
	}
	order := 1.0
	add := func(group, line string, ids ...string) {
		for _, id := range ids {
			out = append(out, domain.Equipment{ID: id, Name: id, Group: group, ProductLine: line, DisplayOrder: order})
			order++
		}
	}
	add(GroupPropagator, "GNT", gntPropagators...)
	add(GroupPreFermenter, "GNT", gntPreFermenters...)
	add(GroupFermenter, "GNT", gntFermenters...)
	order = 10
	add(GroupPropagator, "KK", kkPropagators...)
	add(GroupPreFermenter, "KK", kkPreFermenters...)
	add(GroupFermenter, "KK", kkFermenters...)
	return out
}

func EquipmentGroups() []domain.EquipmentGroup {
	return []domain.EquipmentGroup{
		{ID: GroupInoculum, Name: "Inoculum", ShortName: "B", DisplayOrder: 0},
		{ID: GroupPropagator, Name: "Propagator", ShortName: "PR", DisplayOrder: 1},
		{ID: GroupPreFermenter, Name: "Pre-fermenter", ShortName: "PF", DisplayOrder: 2},
		{ID: GroupFermenter, Name: "Fermenter", ShortName: "F", DisplayOrder: 3},
	}
}

// DisplayGroups returns the wallboard groups: the GNT line then the KK line.
func DisplayGroups() []domain.DisplayGroup {
	gnt := concat(gntPropagators, gntPreFermenters, gntFermenters)
	kk := concat(kkPropagators, kkPreFermenters, kkFermenters)
	return []domain.DisplayGroup{
		{ID: "GNT", Name: "GNT Line", EquipmentIDs: gnt},
		{ID: "KK", Name: "KK Line", EquipmentIDs: kk},
	}
}

// InoculumGroup holds the two inoculum flasks.
func InoculumGroup() domain.DisplayGroup {
	return domain.DisplayGroup{ID: InoculumGroupID, Name: "Inoculum", EquipmentIDs: []string{"BKK", "BGNT"}}
}

func ProductLines() []domain.ProductLine {
	return []domain.ProductLine{
		{ID: "GNT", Name: "Gentamicin", DisplayOrder: 1, StageDefaults: []domain.StageDefault{
			{StageType: Propagation, DurationHours: 48, EquipmentGrp: GroupPropagator},
			{StageType: PreFermentation, DurationHours: 55, EquipmentGrp: GroupPreFermenter},
			{StageType: Fermentation, DurationHours: 192, EquipmentGrp: GroupFermenter},
		}},
		{ID: "KK", Name: "KK", DisplayOrder: 2, StageDefaults: []domain.StageDefault{
			{StageType: Propagation, DurationHours: 44, EquipmentGrp: GroupPropagator},
			{StageType: PreFermentation, DurationHours: 20, EquipmentGrp: GroupPreFermenter},
			{StageType: Fermentation, DurationHours: 192, EquipmentGrp: GroupFermenter},
		}},
	}
}

// Generate builds a full snapshot around today, which should be local
// midnight. Batches start twelve days earlier so the board shows history as
// well as planned work. The output depends only on today.
func Generate(today time.Time) domain.Snapshot {
	base := today.AddDate(0, 0, -12)
	g := generator{today: today}

	series := 42
	pf, pr := 0, 0
	for fi, fermenter := range kkFermenters {
		fermenterBase := base.Add(hours(fi * 28))
		for batch := 0; batch < 2; batch++ {
			dur := 168 + (series%5)*24
			fStart := fermenterBase.Add(hours(batch * (dur + 36)))
			fEnd := fStart.Add(hours(dur))
			pfStart := fStart.Add(-hours(20))
			prStart := pfStart.Add(-hours(44))

			status := domain.BatchProposed
			if fStart.Before(today) {
				status = domain.BatchCommitted
			}
			g.chain("KK", series, status,
				leg{Propagation, kkPropagators[pr%len(kkPropagators)], prStart, pfStart},
				leg{PreFermentation, kkPreFermenters[pf%len(kkPreFermenters)], pfStart, fStart},
				leg{Fermentation, fermenter, fStart, fEnd},
			)
			pf++
			pr++
			series++
		}
	}

	series = 10
	for fi, fermenter := range gntFermenters {
		fStart := base.Add(hours(fi*72 + 48))
		pfStart := fStart.Add(-hours(55))
		prStart := pfStart.Add(-hours(48))
		g.chain("GNT", series, domain.BatchCommitted,
			leg{Propagation, gntPropagators[fi%len(gntPropagators)], prStart, pfStart},
			leg{PreFermentation, gntPreFermenters[fi%len(gntPreFermenters)], pfStart, fStart},
			leg{Fermentation, fermenter, fStart, fStart.Add(hours(192))},
		)
		series++
	}

	return domain.Snapshot{
		Equipment:       Equipment(),
		EquipmentGroups: EquipmentGroups(),
		DisplayGroups:   DisplayGroups(),
		ProductLines:    ProductLines(),
		BatchChains:     g.chains,
		Stages:          g.stages,
		View:            DefaultView(today),
	}
}

// DefaultView starts four days before today and spans three weeks.
func DefaultView(today time.Time) domain.Viewport {
	return domain.Viewport{Start: today.AddDate(0, 0, -4), Days: 21}
}

type leg struct {
	stageType  string
	equipment  string
	start, end time.Time
}

type generator struct {
	today  time.Time
	chains []domain.BatchChain
	stages []domain.Stage
}

func (g *generator) chain(line string, series int, status domain.BatchStatus, legs ...leg) {
	id := fmt.Sprintf("%s-%d", line, series)
	g.chains = append(g.chains, domain.BatchChain{
		ID:           id,
		BatchName:    id,
		SeriesNumber: series,
		ProductLine:  line,
		Status:       status,
	})
	for _, l := range legs {
		st := domain.Stage{
			ID:           fmt.Sprintf("s-%d", len(g.stages)+1),
			EquipmentID:  l.equipment,
			BatchChainID: id,
			StageType:    l.stageType,
			Start:        l.start,
			End:          l.end,
		}
		st.State = st.StateAt(g.today)
		g.stages = append(g.stages, st)
	}
}

func hours(n int) time.Duration { return time.Duration(n) * time.Hour }

func concat(parts ...[]string) []string {
	var out []string
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}
