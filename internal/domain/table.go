package domain

import (
	"fmt"
	"math"
)

// Table holds one parameter's monthly trajectory per cell. Row i of Values
// belongs to Keys[i]; column j belongs to month offset Months[j] (negative
// offsets are pre-event months).
//
// Weights carries the per-row area once the table has been joined with the
// area grid, and Labels carries the cluster of each row once the table has
// been clustered. Both are nil before their stage has run.
type Table struct {
	Parameter Parameter   `json:"parameter"`
	Keys      []CellKey   `json:"keys"`
	Months    []int       `json:"months"`
	Values    [][]float64 `json:"values"`
	Weights   []float64   `json:"weights,omitempty"`
	Labels    []int       `json:"labels,omitempty"`
}

// Len returns the number of rows.
func (t Table) Len() int { return len(t.Keys) }

// Validate checks the structural invariants of the table: one row per key,
// equal-length rows matching Months, unique keys, and aligned optional columns.
func (t Table) Validate() error {
	if len(t.Values) != len(t.Keys) {
		return fmt.Errorf("%w: %d keys but %d rows", ErrRaggedTable, len(t.Keys), len(t.Values))
	}
	seen := make(map[CellKey]struct{}, len(t.Keys))
	for i, row := range t.Values {
		if len(row) != len(t.Months) {
			return fmt.Errorf("%w: row %d (%s) has %d months, want %d",
				ErrRaggedTable, i, t.Keys[i], len(row), len(t.Months))
		}
		if _, dup := seen[t.Keys[i]]; dup {
			return fmt.Errorf("%w: duplicate key %s", ErrRaggedTable, t.Keys[i])
		}
		seen[t.Keys[i]] = struct{}{}
	}
	if t.Weights != nil && len(t.Weights) != len(t.Keys) {
		return fmt.Errorf("%w: %d weights for %d rows", ErrRaggedTable, len(t.Weights), len(t.Keys))
	}
	if t.Labels != nil && len(t.Labels) != len(t.Keys) {
		return fmt.Errorf("%w: %d labels for %d rows", ErrRaggedTable, len(t.Labels), len(t.Keys))
	}
	return nil
}

// MissingValues counts NaN observations and returns the key of the first
// offending row.
func (t Table) MissingValues() (int, CellKey) {
	var (
		count int
		first CellKey
	)
	for i, row := range t.Values {
		for _, v := range row {
			if math.IsNaN(v) {
				if count == 0 {
					first = t.Keys[i]
				}
				count++
			}
		}
	}
	return count, first
}

// RequireComplete returns a *MissingValuesError when any observation is NaN.
func (t Table) RequireComplete() error {
	n, first := t.MissingValues()
	if n == 0 {
		return nil
	}
	return &MissingValuesError{Parameter: t.Parameter, Count: n, First: first}
}

// Column copies the observations of month column j.
func (t Table) Column(j int) []float64 {
	col := make([]float64, len(t.Values))
	for i, row := range t.Values {
		col[i] = row[j]
	}
	return col
}

// MonthIndex returns the column index of a month offset, or -1.
func (t Table) MonthIndex(month int) int {
	for j, m := range t.Months {
		if m == month {
			return j
		}
	}
	return -1
}

// Index maps each key to its row.
func (t Table) Index() map[CellKey]int {
	idx := make(map[CellKey]int, len(t.Keys))
	for i, k := range t.Keys {
		idx[k] = i
	}
	return idx
}

// Select returns a table holding the given rows, in the given order.
// Rows are copied so the result can be modified independently.
func (t Table) Select(rows []int) Table {
	out := Table{
		Parameter: t.Parameter,
		Months:    append([]int(nil), t.Months...),
		Keys:      make([]CellKey, len(rows)),
		Values:    make([][]float64, len(rows)),
	}
	if t.Weights != nil {
		out.Weights = make([]float64, len(rows))
	}
	if t.Labels != nil {
		out.Labels = make([]int, len(rows))
	}
	for i, r := range rows {
		out.Keys[i] = t.Keys[r]
		out.Values[i] = append([]float64(nil), t.Values[r]...)
		if t.Weights != nil {
			out.Weights[i] = t.Weights[r]
		}
		if t.Labels != nil {
			out.Labels[i] = t.Labels[r]
		}
	}
	return out
}

// Filter returns the rows whose key satisfies keep, preserving order.
func (t Table) Filter(keep func(CellKey) bool) Table {
	rows := make([]int, 0, len(t.Keys))
	for i, k := range t.Keys {
		if keep(k) {
			rows = append(rows, i)
		}
	}
	return t.Select(rows)
}

// Clusters groups row indices by cluster label, ordered by label.
// It returns nil when the table has not been clustered.
func (t Table) Clusters() [][]int {
	if t.Labels == nil {
		return nil
	}
	maxLabel := -1
	for _, l := range t.Labels {
		if l > maxLabel {
			maxLabel = l
		}
	}
	groups := make([][]int, maxLabel+1)
	for i, l := range t.Labels {
		groups[l] = append(groups[l], i)
	}
	return groups
}

// DisplayLabel converts a stored 0-based cluster label into the 1-based
// label used in reports.
func DisplayLabel(label int) int { return label + 1 }
