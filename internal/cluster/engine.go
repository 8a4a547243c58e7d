// Package cluster groups equal-length time series by trajectory shape using
// k-means under dynamic time warping, with DBA barycenters as centroids.
package cluster

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"runtime"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/couchcryptid/seaweed-cluster/internal/domain"
)

// Config controls one clustering fit.
type Config struct {
	K                 int
	Seed              uint64
	MaxIter           int     // assignment/update rounds, default 50
	Tol               float64 // inertia change that counts as converged, default 1e-6
	BarycenterMaxIter int     // DBA rounds per centroid update, default 100
	Window            int     // Sakoe-Chiba radius, 0 = unconstrained
	Workers           int     // parallel distance evaluations, default GOMAXPROCS
}

func (c Config) withDefaults() Config {
	if c.MaxIter <= 0 {
		c.MaxIter = 50
	}
	if c.Tol <= 0 {
		c.Tol = 1e-6
	}
	if c.BarycenterMaxIter <= 0 {
		c.BarycenterMaxIter = 100
	}
	if c.Workers <= 0 {
		c.Workers = runtime.GOMAXPROCS(0)
	}
	return c
}

// Result is the outcome of a fit. Labels[i] is the cluster of series i;
// clusters are numbered by first appearance in input order. Distances[i] is
// the DTW distance of series i to its centroid and Inertia is the sum of
// their squares.
type Result struct {
	Labels              []int
	Centroids           [][]float64
	Distances           []float64
	Inertia             float64
	Iterations          int
	DistanceEvaluations int64
}

// Engine runs DTW k-means fits.
type Engine struct {
	cfg Config
}

// NewEngine validates nothing about the data; K is checked against the
// series count on each fit.
func NewEngine(cfg Config) *Engine {
	return &Engine{cfg: cfg.withDefaults()}
}

// Config returns the effective configuration.
func (e *Engine) Config() Config { return e.cfg }

// Fit partitions series into K non-empty clusters, seeding centroids with
// k-means++ from the configured seed.
func (e *Engine) Fit(ctx context.Context, series [][]float64) (Result, error) {
	if err := e.validate(series); err != nil {
		return Result{}, err
	}
	var evals atomic.Int64
	init := e.initCentroids(series, &evals)
	return e.run(ctx, series, init, &evals)
}

// FitFrom partitions series starting from the given centroids instead of a
// random initialisation. len(centroids) must equal K.
func (e *Engine) FitFrom(ctx context.Context, series, centroids [][]float64) (Result, error) {
	if err := e.validate(series); err != nil {
		return Result{}, err
	}
	if len(centroids) != e.cfg.K {
		return Result{}, fmt.Errorf("%w: %d initial centroids for k=%d", domain.ErrInvalidClusterCount, len(centroids), e.cfg.K)
	}
	init := make([][]float64, len(centroids))
	for i, c := range centroids {
		init[i] = append([]float64(nil), c...)
	}
	var evals atomic.Int64
	return e.run(ctx, series, init, &evals)
}

func (e *Engine) validate(series [][]float64) error {
	k, n := e.cfg.K, len(series)
	if k <= 1 || k > n {
		return fmt.Errorf("%w: k=%d for %d series", domain.ErrInvalidClusterCount, k, n)
	}
	for i, s := range series {
		if len(s) != len(series[0]) {
			return fmt.Errorf("%w: series %d has length %d, want %d", domain.ErrRaggedTable, i, len(s), len(series[0]))
		}
	}
	return nil
}

// initCentroids is k-means++: the first centroid is a uniform pick, each next
// one is drawn with probability proportional to the squared distance to the
// nearest centroid chosen so far.
func (e *Engine) initCentroids(series [][]float64, evals *atomic.Int64) [][]float64 {
	rng := rand.New(rand.NewPCG(e.cfg.Seed, e.cfg.Seed))
	n := len(series)
	chosen := make([]bool, n)
	nearest := make([]float64, n)
	for i := range nearest {
		nearest[i] = math.Inf(1)
	}

	centroids := make([][]float64, 0, e.cfg.K)
	pick := rng.IntN(n)
	for {
		chosen[pick] = true
		c := append([]float64(nil), series[pick]...)
		centroids = append(centroids, c)
		if len(centroids) == e.cfg.K {
			return centroids
		}

		var total float64
		for i, s := range series {
			d := DTW(s, c, e.cfg.Window)
			nearest[i] = math.Min(nearest[i], d*d)
			total += nearest[i]
		}
		evals.Add(int64(n))
		pick = sampleIndex(rng, nearest, chosen, total)
	}
}

func sampleIndex(rng *rand.Rand, weights []float64, chosen []bool, total float64) int {
	if total > 0 {
		target := rng.Float64() * total
		var cum float64
		last := -1
		for i, w := range weights {
			if chosen[i] || w == 0 {
				continue
			}
			cum += w
			last = i
			if cum > target {
				return i
			}
		}
		if last >= 0 {
			return last
		}
	}
	// Every remaining series coincides with a centroid.
	free := make([]int, 0, len(chosen))
	for i, c := range chosen {
		if !c {
			free = append(free, i)
		}
	}
	return free[rng.IntN(len(free))]
}

type assignment struct {
	labels    []int
	distances []float64
	centroids [][]float64
	inertia   float64
}

func (e *Engine) run(ctx context.Context, series, centroids [][]float64, evals *atomic.Int64) (Result, error) {
	var (
		best     assignment
		prev     = math.Inf(1)
		iter     int
		haveBest bool
	)
	for iter = 1; ; iter++ {
		a, err := e.assign(ctx, series, centroids)
		if err != nil {
			return Result{}, err
		}
		evals.Add(int64(len(series) * len(centroids)))
		fillEmpty(series, &a)

		if !haveBest || a.inertia < best.inertia {
			best, haveBest = a, true
		}
		if math.Abs(prev-a.inertia) < e.cfg.Tol || iter >= e.cfg.MaxIter {
			break
		}
		prev = a.inertia

		centroids, err = e.update(ctx, series, a, evals)
		if err != nil {
			return Result{}, err
		}
	}

	res := Result{
		Distances:           best.distances,
		Inertia:             best.inertia,
		Iterations:          iter,
		DistanceEvaluations: evals.Load(),
	}
	res.Labels, res.Centroids = renumber(best.labels, best.centroids)
	return res, nil
}

// assign labels every series with its nearest centroid; ties go to the lowest
// centroid index. Series are split across workers, each writing only its own
// slots.
func (e *Engine) assign(ctx context.Context, series, centroids [][]float64) (assignment, error) {
	n := len(series)
	a := assignment{
		labels:    make([]int, n),
		distances: make([]float64, n),
		centroids: centroids,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.Workers)
	chunk := (n + e.cfg.Workers - 1) / e.cfg.Workers
	for lo := 0; lo < n; lo += chunk {
		hi := min(lo+chunk, n)
		g.Go(func() error {
			for i := lo; i < hi; i++ {
				if err := gctx.Err(); err != nil {
					return err
				}
				bestC, bestD := 0, math.Inf(1)
				for c, cent := range centroids {
					if d := DTW(series[i], cent, e.cfg.Window); d < bestD {
						bestC, bestD = c, d
					}
				}
				a.labels[i], a.distances[i] = bestC, bestD
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return assignment{}, fmt.Errorf("assign series: %w", err)
	}
	a.inertia = sumSquares(a.distances)
	return a, nil
}

// update recomputes every centroid as the DBA barycenter of its members,
// one cluster per worker.
func (e *Engine) update(ctx context.Context, series [][]float64, a assignment, evals *atomic.Int64) ([][]float64, error) {
	members := make([][][]float64, len(a.centroids))
	for i, l := range a.labels {
		members[l] = append(members[l], series[i])
	}

	next := make([][]float64, len(a.centroids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.Workers)
	for c := range a.centroids {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			bary, n := Barycenter(members[c], a.centroids[c], e.cfg.BarycenterMaxIter, e.cfg.Tol, e.cfg.Window)
			next[c] = bary
			evals.Add(int64(n))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("update centroids: %w", err)
	}
	return next, nil
}

// fillEmpty moves the series farthest from its centroid, taken from a
// cluster with more than one member, into each empty cluster and makes it
// that cluster's centroid. It never increases inertia.
func fillEmpty(series [][]float64, a *assignment) {
	k := len(a.centroids)
	for {
		sizes := make([]int, k)
		for _, l := range a.labels {
			sizes[l]++
		}
		empty := -1
		for c, s := range sizes {
			if s == 0 {
				empty = c
				break
			}
		}
		if empty < 0 {
			return
		}

		far := -1
		for i, l := range a.labels {
			if sizes[l] > 1 && (far < 0 || a.distances[i] > a.distances[far]) {
				far = i
			}
		}
		centroids := make([][]float64, k)
		copy(centroids, a.centroids)
		centroids[empty] = append([]float64(nil), series[far]...)
		a.centroids = centroids
		a.labels[far] = empty
		a.distances[far] = 0
		a.inertia = sumSquares(a.distances)
	}
}

// renumber relabels clusters by first appearance in input order and permutes
// the centroids to match.
func renumber(labels []int, centroids [][]float64) ([]int, [][]float64) {
	mapping := make(map[int]int, len(centroids))
	out := make([]int, len(labels))
	ordered := make([][]float64, 0, len(centroids))
	for i, l := range labels {
		nl, ok := mapping[l]
		if !ok {
			nl = len(mapping)
			mapping[l] = nl
			ordered = append(ordered, centroids[l])
		}
		out[i] = nl
	}
	return out, ordered
}

func sumSquares(xs []float64) float64 {
	var s float64
	for _, x := range xs {
		s += x * x
	}
	return s
}
