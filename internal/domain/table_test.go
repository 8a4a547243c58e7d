package domain

import (
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleTable() Table {
	return Table{
		Parameter: GrowthRate,
		Keys:      []CellKey{NewCellKey(1, 1), NewCellKey(2, 2), NewCellKey(3, 3)},
		Months:    []int{-1, 0, 1},
		Values: [][]float64{
			{0.1, 0.2, 0.3},
			{0.4, 0.5, 0.6},
			{0.7, 0.8, 0.9},
		},
	}
}

func TestTableValidate(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		require.NoError(t, sampleTable().Validate())
	})

	t.Run("ragged row", func(t *testing.T) {
		tbl := sampleTable()
		tbl.Values[1] = []float64{0.4}
		assert.ErrorIs(t, tbl.Validate(), ErrRaggedTable)
	})

	t.Run("row count mismatch", func(t *testing.T) {
		tbl := sampleTable()
		tbl.Values = tbl.Values[:2]
		assert.ErrorIs(t, tbl.Validate(), ErrRaggedTable)
	})

	t.Run("duplicate key", func(t *testing.T) {
		tbl := sampleTable()
		tbl.Keys[2] = tbl.Keys[0]
		assert.ErrorIs(t, tbl.Validate(), ErrRaggedTable)
	})

	t.Run("misaligned weights", func(t *testing.T) {
		tbl := sampleTable()
		tbl.Weights = []float64{1, 2}
		assert.ErrorIs(t, tbl.Validate(), ErrRaggedTable)
	})

	t.Run("misaligned labels", func(t *testing.T) {
		tbl := sampleTable()
		tbl.Labels = []int{0}
		assert.ErrorIs(t, tbl.Validate(), ErrRaggedTable)
	})
}

func TestTableRequireComplete(t *testing.T) {
	tbl := sampleTable()
	require.NoError(t, tbl.RequireComplete())

	tbl.Values[1][2] = math.NaN()
	tbl.Values[2][0] = math.NaN()
	err := tbl.RequireComplete()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMissingValues)

	var mv *MissingValuesError
	require.True(t, errors.As(err, &mv))
	assert.Equal(t, GrowthRate, mv.Parameter)
	assert.Equal(t, 2, mv.Count)
	assert.Equal(t, NewCellKey(2, 2), mv.First)
	assert.Contains(t, err.Error(), "seaweed_growth_rate")
}

func TestTableColumnAndMonthIndex(t *testing.T) {
	tbl := sampleTable()
	assert.Equal(t, []float64{0.2, 0.5, 0.8}, tbl.Column(1))
	assert.Equal(t, 0, tbl.MonthIndex(-1))
	assert.Equal(t, 2, tbl.MonthIndex(1))
	assert.Equal(t, -1, tbl.MonthIndex(12))
}

func TestTableSelectCopies(t *testing.T) {
	tbl := sampleTable()
	tbl.Weights = []float64{1, 2, 3}
	tbl.Labels = []int{0, 1, 0}

	sel := tbl.Select([]int{2, 0})
	want := Table{
		Parameter: GrowthRate,
		Keys:      []CellKey{NewCellKey(3, 3), NewCellKey(1, 1)},
		Months:    []int{-1, 0, 1},
		Values:    [][]float64{{0.7, 0.8, 0.9}, {0.1, 0.2, 0.3}},
		Weights:   []float64{3, 1},
		Labels:    []int{0, 0},
	}
	if diff := cmp.Diff(want, sel); diff != "" {
		t.Errorf("Select mismatch (-want +got):\n%s", diff)
	}

	sel.Values[0][0] = 99
	assert.Equal(t, 0.7, tbl.Values[2][0], "select must not alias source rows")
}

func TestTableFilter(t *testing.T) {
	tbl := sampleTable()
	got := tbl.Filter(func(k CellKey) bool { return k.Lat > 1.5 })
	assert.Equal(t, []CellKey{NewCellKey(2, 2), NewCellKey(3, 3)}, got.Keys)
	assert.Nil(t, got.Weights)
}

func TestTableClusters(t *testing.T) {
	tbl := sampleTable()
	assert.Nil(t, tbl.Clusters())

	tbl.Labels = []int{1, 0, 1}
	assert.Equal(t, [][]int{{1}, {0, 2}}, tbl.Clusters())
	assert.Equal(t, 2, DisplayLabel(1))
}

func TestFindScope(t *testing.T) {
	scopes := DefaultScopes()

	s, err := FindScope(scopes, "US")
	require.NoError(t, err)
	assert.Equal(t, 4, s.Clusters)
	assert.True(t, s.Clustered())

	lme, err := FindScope(scopes, "LME")
	require.NoError(t, err)
	assert.False(t, lme.Clustered())
	assert.True(t, lme.RegionKeyed())
	assert.Len(t, lme.RegionIDs, 66)

	_, err = FindScope(scopes, "mars")
	assert.ErrorIs(t, err, ErrUnknownScope)
}

func TestParameterValid(t *testing.T) {
	assert.True(t, GrowthRate.Valid())
	assert.True(t, NitrateSubfactor.Valid())
	assert.False(t, Parameter("wave_height").Valid())
	assert.Len(t, Parameters, 8)
}
