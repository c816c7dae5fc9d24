package importer

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"plantpulse/internal/domain"
)

const sample = `id,equipment_id,batch_chain_id,stage_type,start,end,state
s-1,F-1,KK-42,fermentation,2026-03-01T06:00:00Z,2026-03-09T06:00:00Z,active
,PF-3,KK-42,pre_fermentation,2026-02-28 10:00,2026-03-01 06:00,
`

func TestReadStages(t *testing.T) {
	loc := time.FixedZone("CET", 3600)
	stages, err := ReadStages(strings.NewReader(sample), loc)
	require.NoError(t, err)
	require.Len(t, stages, 2)

	assert.Equal(t, "s-1", stages[0].ID)
	assert.Equal(t, domain.StageActive, stages[0].State)
	assert.True(t, stages[0].Start.Equal(time.Date(2026, 3, 1, 6, 0, 0, 0, time.UTC)))

	pf := stages[1]
	assert.Equal(t, domain.StagePlanned, pf.State)
	assert.True(t, pf.Start.Equal(time.Date(2026, 2, 28, 9, 0, 0, 0, time.UTC)), "local layout is read in facility time")
	assert.Len(t, pf.ID, 36)
	assert.Equal(t, StageID("PF-3", "KK-42", pf.Start, pf.End), pf.ID)

	again, err := ReadStages(strings.NewReader(sample), loc)
	require.NoError(t, err)
	assert.Equal(t, pf.ID, again[1].ID, "derived ids are stable")
}

func TestReadStagesErrors(t *testing.T) {
	cases := map[string]struct {
		doc  string
		want string
	}{
		"empty":    {"", "header and at least one data row"},
		"header":   {"id,equipment\nx,y\n", "header mismatch"},
		"columns":  {strings.Join(Header, ",") + "\na,b,c,d,e,f\n", "row 2"},
		"no equip": {strings.Join(Header, ",") + "\na,,c,d,2026-01-01 00:00,2026-01-02 00:00,\n", "equipment_id is required"},
		"no chain": {strings.Join(Header, ",") + "\na,F-1,,d,2026-01-01 00:00,2026-01-02 00:00,\n", "batch_chain_id is required"},
		"start":    {strings.Join(Header, ",") + "\na,F-1,c,d,tomorrow,2026-01-02 00:00,\n", "invalid start"},
		"reversed": {strings.Join(Header, ",") + "\na,F-1,c,d,2026-01-03 00:00,2026-01-02 00:00,\n", "before start"},
		"state":    {strings.Join(Header, ",") + "\na,F-1,c,d,2026-01-01 00:00,2026-01-02 00:00,\nb,F-1,c,d,2026-01-01 00:00,2026-01-02 00:00,done\n", "row 3: invalid state"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ReadStages(strings.NewReader(tc.doc), time.UTC)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestWriteStagesReadsBack(t *testing.T) {
	stages, err := ReadStages(strings.NewReader(sample), time.UTC)
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, WriteStages(&buf, stages))
	back, err := ReadStages(&buf, time.UTC)
	require.NoError(t, err)
	require.Len(t, back, 2)
	assert.Equal(t, stages[1].ID, back[1].ID)
	assert.True(t, stages[1].End.Equal(back[1].End))
}

func TestMerge(t *testing.T) {
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	snap := domain.Snapshot{
		BatchChains: []domain.BatchChain{{ID: "KK-42", SeriesNumber: 42}},
		Stages:      []domain.Stage{{ID: "s-1", EquipmentID: "F-1", BatchChainID: "KK-42", Start: start, End: start.Add(time.Hour)}},
	}
	res := Merge(&snap, []domain.Stage{
		{ID: "s-1", EquipmentID: "F-4", BatchChainID: "KK-42", Start: start, End: start.Add(2 * time.Hour)},
		{ID: "s-2", EquipmentID: "F-2", BatchChainID: "GNT-12", Start: start, End: start.Add(time.Hour)},
	})
	assert.Equal(t, 1, res.Added)
	assert.Equal(t, 1, res.Updated)
	assert.Equal(t, []string{"GNT-12"}, res.Chains)
	require.Len(t, snap.Stages, 2)
	assert.Equal(t, "F-4", snap.Stages[0].EquipmentID)
	require.Len(t, snap.BatchChains, 2)
	assert.Equal(t, 12, snap.BatchChains[1].SeriesNumber)
	assert.Equal(t, domain.BatchDraft, snap.BatchChains[1].Status)
	require.NoError(t, snap.Validate())
}
