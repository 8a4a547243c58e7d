package cluster

import (
	"context"
	"fmt"

	"github.com/couchcryptid/seaweed-cluster/internal/domain"
)

// ElbowPoint is the fit chosen for one candidate k.
type ElbowPoint struct {
	K      int
	Result Result
}

// Records returns the k -> inertia curve of the points.
func Records(points []ElbowPoint) []domain.InertiaRecord {
	out := make([]domain.InertiaRecord, len(points))
	for i, p := range points {
		out[i] = domain.InertiaRecord{K: p.K, Inertia: p.Result.Inertia}
	}
	return out
}

// Elbow fits every k in [minK, maxK]. For each k after the first, the fit
// warm-started from the previous centroids plus the series farthest from its
// centroid competes with a fresh fit, and the lower inertia wins. Adding a
// centroid cannot make the warm start worse than the previous k, so the curve
// never increases.
func Elbow(ctx context.Context, cfg Config, series [][]float64, minK, maxK int) ([]ElbowPoint, error) {
	if minK > maxK {
		return nil, fmt.Errorf("%w: empty k range [%d, %d]", domain.ErrInvalidClusterCount, minK, maxK)
	}
	points := make([]ElbowPoint, 0, maxK-minK+1)
	for k := minK; k <= maxK; k++ {
		c := cfg
		c.K = k
		engine := NewEngine(c)

		res, err := engine.Fit(ctx, series)
		if err != nil {
			return nil, fmt.Errorf("fit k=%d: %w", k, err)
		}
		if len(points) > 0 {
			prev := points[len(points)-1].Result
			warm, err := engine.FitFrom(ctx, series, growCentroids(series, prev))
			if err != nil {
				return nil, fmt.Errorf("warm fit k=%d: %w", k, err)
			}
			warm.DistanceEvaluations += res.DistanceEvaluations
			if warm.Inertia < res.Inertia {
				res = warm
			} else {
				res.DistanceEvaluations = warm.DistanceEvaluations
			}
		}
		points = append(points, ElbowPoint{K: k, Result: res})
	}
	return points, nil
}

func growCentroids(series [][]float64, prev Result) [][]float64 {
	far := 0
	for i, d := range prev.Distances {
		if d > prev.Distances[far] {
			far = i
		}
	}
	out := make([][]float64, 0, len(prev.Centroids)+1)
	out = append(out, prev.Centroids...)
	return append(out, series[far])
}
