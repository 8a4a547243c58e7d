package wstats

import (
	"math"
	"math/rand/v2"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/stat"

	"github.com/couchcryptid/seaweed-cluster/internal/domain"
)

func TestQuantile(t *testing.T) {
	tests := []struct {
		name    string
		values  []float64
		weights []float64
		q       float64
		want    float64
	}{
		{"uniform odd median", []float64{5, 1, 3}, []float64{1, 1, 1}, 0.5, 3},
		{"uniform even lower median", []float64{4, 1, 3, 2}, []float64{1, 1, 1, 1}, 0.5, 2},
		{"heavy value pulls median", []float64{1, 2, 3}, []float64{1, 1, 10}, 0.5, 3},
		{"ties share weight", []float64{2, 1, 2, 3}, []float64{1, 2, 1, 1}, 0.6, 2},
		{"zero weight ignored", []float64{100, 1, 2}, []float64{0, 1, 1}, 1, 2},
		{"nan value ignored", []float64{math.NaN(), 1, 2}, []float64{5, 1, 1}, 1, 2},
		{"q zero is minimum", []float64{3, 2, 9}, []float64{1, 1, 1}, 0, 2},
		{"q one is maximum", []float64{3, 2, 9}, []float64{0.1, 0.2, 0.7}, 1, 9},
		{"fractional weights exact boundary", []float64{1, 2, 3, 4}, []float64{0.1, 0.2, 0.3, 0.4}, 0.3, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Quantile(tt.values, tt.weights, tt.q)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestQuantile_Errors(t *testing.T) {
	_, err := Quantile(nil, nil, 0.5)
	assert.ErrorIs(t, err, domain.ErrEmptyQuantile)

	_, err = Quantile([]float64{math.NaN(), 1}, []float64{1, 0}, 0.5)
	assert.ErrorIs(t, err, domain.ErrEmptyQuantile, "all observations dropped")

	_, err = Quantile([]float64{1}, []float64{1}, 1.5)
	assert.Error(t, err)

	_, err = Quantile([]float64{1}, []float64{1}, math.NaN())
	assert.Error(t, err)

	_, err = Quantile([]float64{1, 2}, []float64{1, -1}, 0.5)
	assert.Error(t, err)

	_, err = Quantile([]float64{1, 2}, []float64{1}, 0.5)
	assert.Error(t, err)
}

func TestQuantile_MonotonicInQ(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 7))
	values := make([]float64, 200)
	weights := make([]float64, 200)
	for i := range values {
		values[i] = math.Round(rng.NormFloat64()*10) / 10
		weights[i] = rng.Float64() * 3
	}

	prev := math.Inf(-1)
	for q := 0.0; q <= 1.0; q += 0.01 {
		got, err := Quantile(values, weights, q)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, got, prev, "q=%v", q)
		prev = got
	}
}

func TestMedian_UniformMatchesOrdinaryMedian(t *testing.T) {
	values := []float64{9, 4, 7, 1, 8, 2, 6}
	weights := []float64{1, 1, 1, 1, 1, 1, 1}

	got, err := Median(values, weights)
	require.NoError(t, err)

	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	assert.Equal(t, sorted[len(sorted)/2], got)
}

func TestMedian_UniformEvenLengthTakesLowerMiddle(t *testing.T) {
	values := []float64{9, 4, 7, 1, 8, 2}
	weights := []float64{1, 1, 1, 1, 1, 1}

	got, err := Median(values, weights)
	require.NoError(t, err)

	// Sorted: 1 2 4 7 8 9. Weight 3 of 6 is reached at 4; the mean of the
	// two middle values would be 5.5.
	assert.Equal(t, 4.0, got)
}

func TestQuantile_AgreesWithEmpiricalCDF(t *testing.T) {
	rng := rand.New(rand.NewPCG(11, 3))
	values := make([]float64, 50)
	weights := make([]float64, 50)
	for i := range values {
		values[i] = float64(rng.IntN(20))
		weights[i] = float64(1 + rng.IntN(4))
	}
	sortedX := append([]float64(nil), values...)
	sortedW := append([]float64(nil), weights...)
	stat.SortWeighted(sortedX, sortedW)

	for _, q := range []float64{0, 0.25, 0.5, 0.75, 1} {
		got, err := Quantile(values, weights, q)
		require.NoError(t, err)
		assert.Equal(t, stat.Quantile(q, stat.Empirical, sortedX, sortedW), got, "q=%v", q)
	}
}

func TestQuantileByMonth(t *testing.T) {
	tbl := domain.Table{
		Parameter: domain.GrowthRate,
		Keys:      []domain.CellKey{domain.NewCellKey(0, 0), domain.NewCellKey(0, 1), domain.NewCellKey(0, 2)},
		Months:    []int{0, 1},
		Values:    [][]float64{{1, 10}, {2, 20}, {3, 30}},
		Weights:   []float64{1, 1, 5},
	}

	med, err := MedianByMonth(tbl)
	require.NoError(t, err)
	assert.Equal(t, []float64{3, 30}, med)

	q10, err := QuantileByMonth(tbl, 0.1)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 10}, q10)

	tbl.Weights = nil
	med, err = MedianByMonth(tbl)
	require.NoError(t, err)
	assert.Equal(t, []float64{2, 20}, med)
}

func TestQuantileByMonth_EmptyColumn(t *testing.T) {
	tbl := domain.Table{
		Parameter: domain.GrowthRate,
		Keys:      []domain.CellKey{domain.NewCellKey(0, 0)},
		Months:    []int{4},
		Values:    [][]float64{{math.NaN()}},
		Weights:   []float64{1},
	}
	_, err := MedianByMonth(tbl)
	require.ErrorIs(t, err, domain.ErrEmptyQuantile)
	assert.Contains(t, err.Error(), "month 4")
}
