package cluster

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// MinMaxScaler rescales values into [0, 1] using one minimum and maximum for
// the whole table, so amplitude differences between rows survive scaling.
type MinMaxScaler struct {
	Min float64
	Max float64
}

// FitMinMax finds the global extremes of all rows. Empty rows are skipped.
func FitMinMax(rows [][]float64) MinMaxScaler {
	s := MinMaxScaler{Min: math.Inf(1), Max: math.Inf(-1)}
	for _, row := range rows {
		if len(row) == 0 {
			continue
		}
		s.Min = math.Min(s.Min, floats.Min(row))
		s.Max = math.Max(s.Max, floats.Max(row))
	}
	if math.IsInf(s.Min, 1) {
		return MinMaxScaler{}
	}
	return s
}

// Transform returns scaled copies of rows. A constant table maps to zeros.
func (s MinMaxScaler) Transform(rows [][]float64) [][]float64 {
	span := s.Max - s.Min
	out := make([][]float64, len(rows))
	for i, row := range rows {
		scaled := make([]float64, len(row))
		if span > 0 {
			for j, v := range row {
				scaled[j] = (v - s.Min) / span
			}
		}
		out[i] = scaled
	}
	return out
}

// Normalize fits a scaler on rows and applies it.
func Normalize(rows [][]float64) [][]float64 {
	return FitMinMax(rows).Transform(rows)
}
