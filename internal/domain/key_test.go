package domain

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoundCoordinate(t *testing.T) {
	tests := []struct {
		name string
		in   float64
		want float64
	}{
		{"already rounded", 12.3456, 12.3456},
		{"noise past fourth decimal", 12.345600001, 12.3456},
		{"half rounds away from zero", 0.00005, 0.0001},
		{"negative half rounds away from zero", -0.00005, -0.0001},
		{"negative", -45.12344, -45.1234},
		{"tiny negative folds to zero", -0.00001, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RoundCoordinate(tt.in)
			assert.InDelta(t, tt.want, got, 1e-12)
		})
	}
}

func TestRoundCoordinate_NegativeZero(t *testing.T) {
	got := RoundCoordinate(math.Copysign(0, -1))
	assert.False(t, math.Signbit(got), "negative zero must fold to zero")
}

func TestNewCellKey_SameCell(t *testing.T) {
	a := NewCellKey(-33.87501234, 151.2000049)
	b := NewCellKey(-33.87499999, 151.19999999)
	assert.Equal(t, a, b)
	assert.Equal(t, "-33.8750,151.2000", a.String())
	assert.False(t, a.IsRegion())
}

func TestRegionKey(t *testing.T) {
	k := RegionKey(7)
	assert.True(t, k.IsRegion())
	assert.Equal(t, "region:7", k.String())
	assert.NotEqual(t, RegionKey(8), k)
}
