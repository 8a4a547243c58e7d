package cluster

import "math"

// DTW returns the dynamic time warping distance between a and b: the square
// root of the smallest accumulated squared difference over all monotone
// alignments. A positive window restricts alignments to a Sakoe-Chiba band of
// that radius; zero or negative means unconstrained.
func DTW(a, b []float64, window int) float64 {
	n, m := len(a), len(b)
	if n == 0 || m == 0 {
		return math.Inf(1)
	}
	r := bandRadius(n, m, window)

	prev := make([]float64, m+1)
	curr := make([]float64, m+1)
	for j := range prev {
		prev[j] = math.Inf(1)
	}
	prev[0] = 0

	for i := 1; i <= n; i++ {
		for j := range curr {
			curr[j] = math.Inf(1)
		}
		lo, hi := bandBounds(i, m, r)
		for j := lo; j <= hi; j++ {
			d := a[i-1] - b[j-1]
			curr[j] = d*d + min(prev[j-1], prev[j], curr[j-1])
		}
		prev, curr = curr, prev
	}
	return math.Sqrt(prev[m])
}

// dtwPath is DTW that also returns the optimal alignment as (i, j) index
// pairs into a and b, from (0, 0) to (len(a)-1, len(b)-1).
func dtwPath(a, b []float64, window int) (float64, [][2]int) {
	n, m := len(a), len(b)
	r := bandRadius(n, m, window)

	acc := make([][]float64, n+1)
	for i := range acc {
		acc[i] = make([]float64, m+1)
		for j := range acc[i] {
			acc[i][j] = math.Inf(1)
		}
	}
	acc[0][0] = 0
	for i := 1; i <= n; i++ {
		lo, hi := bandBounds(i, m, r)
		for j := lo; j <= hi; j++ {
			d := a[i-1] - b[j-1]
			acc[i][j] = d*d + min(acc[i-1][j-1], acc[i-1][j], acc[i][j-1])
		}
	}

	path := make([][2]int, 0, n+m)
	i, j := n, m
	for i > 0 && j > 0 {
		path = append(path, [2]int{i - 1, j - 1})
		diag, up, left := acc[i-1][j-1], acc[i-1][j], acc[i][j-1]
		switch {
		case diag <= up && diag <= left:
			i, j = i-1, j-1
		case up <= left:
			i--
		default:
			j--
		}
	}
	for l, h := 0, len(path)-1; l < h; l, h = l+1, h-1 {
		path[l], path[h] = path[h], path[l]
	}
	return math.Sqrt(acc[n][m]), path
}

// bandRadius widens the window so the end cell stays reachable for series of
// unequal length.
func bandRadius(n, m, window int) int {
	if window <= 0 {
		return max(n, m)
	}
	return max(window, abs(n-m))
}

func bandBounds(i, m, r int) (int, int) {
	return max(1, i-r), min(m, i+r)
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
