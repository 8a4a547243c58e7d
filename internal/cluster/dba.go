package cluster

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// Barycenter computes the DTW barycenter (DBA) of members starting from init.
// Each round aligns every member to the current barycenter and replaces each
// barycenter point by the mean of the member values aligned to it. It stops
// when the mean squared distance changes by less than tol, stops improving,
// or after maxIter rounds. It returns the best barycenter found and the
// number of DTW evaluations performed.
func Barycenter(members [][]float64, init []float64, maxIter int, tol float64, window int) ([]float64, int) {
	bary := append([]float64(nil), init...)
	if len(members) == 0 {
		return bary, 0
	}
	if len(members) == 1 {
		return append([]float64(nil), members[0]...), 0
	}

	best := bary
	bestCost := math.Inf(1)
	prevCost := math.Inf(1)
	evals := 0

	sums := make([]float64, len(bary))
	counts := make([]float64, len(bary))
	for it := 0; it < maxIter; it++ {
		for i := range sums {
			sums[i], counts[i] = 0, 0
		}
		var cost float64
		for _, s := range members {
			d, path := dtwPath(bary, s, window)
			evals++
			cost += d * d
			for _, p := range path {
				sums[p[0]] += s[p[1]]
				counts[p[0]]++
			}
		}
		cost /= float64(len(members))

		if cost < bestCost {
			best, bestCost = bary, cost
		}
		if math.Abs(prevCost-cost) < tol || cost > prevCost {
			break
		}
		prevCost = cost

		next := make([]float64, len(bary))
		floats.DivTo(next, sums, counts)
		bary = next
	}
	return best, evals
}
