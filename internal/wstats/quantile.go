// Package wstats computes area-weighted order statistics.
package wstats

import (
	"cmp"
	"fmt"
	"math"
	"slices"

	"gonum.org/v1/gonum/floats"

	"github.com/couchcryptid/seaweed-cluster/internal/domain"
)

// relTolerance absorbs float drift in cumulative weight sums, so q=1 always
// resolves to the largest value and exact fractions resolve as written.
const relTolerance = 1e-12

type sample struct {
	value  float64
	weight float64
}

// Quantile returns the smallest value v such that the total weight of all
// observations <= v reaches q times the total weight. NaN values and zero or
// NaN weights are ignored. Tied values share their summed weight.
func Quantile(values, weights []float64, q float64) (float64, error) {
	if !(q >= 0 && q <= 1) {
		return 0, fmt.Errorf("quantile %v outside [0, 1]", q)
	}
	if len(values) != len(weights) {
		return 0, fmt.Errorf("%d values but %d weights", len(values), len(weights))
	}

	samples := make([]sample, 0, len(values))
	for i, v := range values {
		w := weights[i]
		if w < 0 {
			return 0, fmt.Errorf("negative weight %v at index %d", w, i)
		}
		if math.IsNaN(v) || math.IsNaN(w) || w == 0 {
			continue
		}
		samples = append(samples, sample{value: v, weight: w})
	}
	if len(samples) == 0 {
		return 0, domain.ErrEmptyQuantile
	}

	slices.SortFunc(samples, func(a, b sample) int { return cmp.Compare(a.value, b.value) })

	ws := make([]float64, len(samples))
	for i, s := range samples {
		ws[i] = s.weight
	}
	total := floats.Sum(ws)
	target := q*total - relTolerance*total

	var cum float64
	for i := 0; i < len(samples); {
		v := samples[i].value
		for i < len(samples) && samples[i].value == v {
			cum += samples[i].weight
			i++
		}
		if cum >= target {
			return v, nil
		}
	}
	return samples[len(samples)-1].value, nil
}

// Median is Quantile at 0.5. For an even number of equally weighted
// observations it is the lower of the two middle values.
func Median(values, weights []float64) (float64, error) {
	return Quantile(values, weights, 0.5)
}

// QuantileByMonth applies Quantile to every month column of t using the
// table weights. A table without weights counts every row equally.
func QuantileByMonth(t domain.Table, q float64) ([]float64, error) {
	weights := t.Weights
	if weights == nil {
		weights = make([]float64, t.Len())
		for i := range weights {
			weights[i] = 1
		}
	}
	out := make([]float64, len(t.Months))
	for j, month := range t.Months {
		v, err := Quantile(t.Column(j), weights, q)
		if err != nil {
			return nil, fmt.Errorf("%s month %d: %w", t.Parameter, month, err)
		}
		out[j] = v
	}
	return out, nil
}

// MedianByMonth is QuantileByMonth at 0.5.
func MedianByMonth(t domain.Table) ([]float64, error) {
	return QuantileByMonth(t, 0.5)
}
