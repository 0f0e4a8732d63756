package projection

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xavier-xia-99/FPL-Optimization-Tools/internal/domain"
)

func sampleAuthoritative() []AuthoritativeRecord {
	return []AuthoritativeRecord{
		{ID: 1, Name: "Alpha", Position: domain.GK, TeamID: 1, PriceTenths: 45},
		{ID: 2, Name: "Beta", Position: domain.DEF, TeamID: 2, PriceTenths: 50},
	}
}

func TestMerge_SingleSourceWeightOneIsLinear(t *testing.T) {
	src := Source{
		Name:   "only",
		Weight: 1,
		Rows: []SourceRow{
			{PlayerID: 1, Gameweek: 1, Pts: 4.5, XMins: 90},
			{PlayerID: 2, Gameweek: 1, Pts: 2.0, XMins: 60},
		},
	}

	players, diags, err := Merge(sampleAuthoritative(), []Source{src}, []int{1})
	require.NoError(t, err)
	assert.Empty(t, diags)
	require.Len(t, players, 2)

	byID := map[int]domain.Player{}
	for _, p := range players {
		byID[p.ID] = p
	}
	assert.Equal(t, 4.5, byID[1].Projections[1].ExpectedPoints)
	assert.Equal(t, 90.0, byID[1].Projections[1].ExpectedMinutes)
	assert.Equal(t, 2.0, byID[2].Projections[1].ExpectedPoints)
}

func TestMerge_WeightedAverage(t *testing.T) {
	sourceA := Source{Name: "a", Weight: 3, Rows: []SourceRow{{PlayerID: 1, Gameweek: 1, Pts: 10}}}
	sourceB := Source{Name: "b", Weight: 1, Rows: []SourceRow{{PlayerID: 1, Gameweek: 1, Pts: 2}}}

	players, _, err := Merge(sampleAuthoritative(), []Source{sourceA, sourceB}, []int{1})
	require.NoError(t, err)

	var got float64
	for _, p := range players {
		if p.ID == 1 {
			got = p.Projections[1].ExpectedPoints
		}
	}
	// (3*10 + 1*2) / 4 == 8
	assert.InDelta(t, 8.0, got, 1e-9)
}

func TestMerge_UnknownPlayerIDDroppedNotFatal(t *testing.T) {
	src := Source{
		Name:   "only",
		Weight: 1,
		Rows: []SourceRow{
			{PlayerID: 999, Gameweek: 1, Pts: 99},
		},
	}

	players, diags, err := Merge(sampleAuthoritative(), []Source{src}, []int{1})
	require.NoError(t, err)
	require.Len(t, diags, 1)
	assert.Equal(t, 999, diags[0].PlayerID)
	assert.Len(t, players, 2)
}

func TestMerge_MissingGameweekMaterialisedAsZero(t *testing.T) {
	players, _, err := Merge(sampleAuthoritative(), []Source{{Name: "only", Weight: 1}}, []int{1, 2, 3})
	require.NoError(t, err)
	for _, p := range players {
		for _, gw := range []int{1, 2, 3} {
			proj, ok := p.Projections[gw]
			require.True(t, ok)
			assert.Zero(t, proj.ExpectedPoints)
			assert.Zero(t, proj.ExpectedMinutes)
		}
	}
}

func TestMerge_NoSourcesIsFatal(t *testing.T) {
	_, _, err := Merge(sampleAuthoritative(), nil, []int{1})
	require.Error(t, err)
}
