// Package geojoin aligns tables that are keyed by rounded grid coordinates.
package geojoin

import (
	"fmt"

	"github.com/couchcryptid/seaweed-cluster/internal/domain"
)

// AreaGrid is the per-cell surface area table, keyed like parameter tables.
type AreaGrid struct {
	Keys []domain.CellKey
	Area []float64
}

// NewAreaGrid quantizes raw coordinates into an area grid.
func NewAreaGrid(lats, lons, areas []float64) (AreaGrid, error) {
	if len(lats) != len(lons) || len(lats) != len(areas) {
		return AreaGrid{}, fmt.Errorf("%w: area grid has %d lats, %d lons, %d areas",
			domain.ErrRaggedTable, len(lats), len(lons), len(areas))
	}
	g := AreaGrid{Keys: make([]domain.CellKey, len(lats)), Area: append([]float64(nil), areas...)}
	for i := range lats {
		g.Keys[i] = domain.NewCellKey(lats[i], lons[i])
	}
	return g, nil
}

// Len returns the number of cells in the grid.
func (g AreaGrid) Len() int { return len(g.Keys) }

// Match pairs every left key with the row of the same key on the right.
// The result is in left order; left rows without a partner are omitted.
// When a key repeats on the right the first occurrence is used.
func Match(left, right []domain.CellKey) (leftRows, rightRows []int) {
	index := make(map[domain.CellKey]int, len(right))
	for i, k := range right {
		if _, ok := index[k]; !ok {
			index[k] = i
		}
	}
	leftRows = make([]int, 0, len(left))
	rightRows = make([]int, 0, len(left))
	for i, k := range left {
		if j, ok := index[k]; ok {
			leftRows = append(leftRows, i)
			rightRows = append(rightRows, j)
		}
	}
	return leftRows, rightRows
}

// Join is an inner join of two tables on their cell keys. The result carries
// the left payload columns followed by the right payload columns. Rows present
// on one side only are dropped silently.
func Join(left, right domain.Table) domain.Table {
	lrows, rrows := Match(left.Keys, right.Keys)
	out := left.Select(lrows)
	out.Months = append(out.Months, right.Months...)
	for i, r := range rrows {
		out.Values[i] = append(out.Values[i], right.Values[r]...)
	}
	return out
}

// AttachArea restricts t to the cells present in the area grid and sets the
// table weights to each cell's area. It returns the number of rows dropped.
func AttachArea(t domain.Table, grid AreaGrid) (domain.Table, int) {
	lrows, rrows := Match(t.Keys, grid.Keys)
	out := t.Select(lrows)
	out.Weights = make([]float64, len(rrows))
	for i, r := range rrows {
		out.Weights[i] = grid.Area[r]
	}
	return out, t.Len() - out.Len()
}
