package domain

import (
	"fmt"
	"math"
)

// CoordinatePrecision is the number of decimal places latitude and longitude
// are rounded to before two coordinates are compared. Upstream grids carry
// float noise past the fifth decimal for the same physical cell.
const CoordinatePrecision = 4

var coordinateScale = math.Pow(10, CoordinatePrecision)

// CellKey identifies a row of a parameter table. Gridded tables use the
// rounded (Lat, Lon) pair; region-keyed tables set Region and leave the
// coordinates at zero.
type CellKey struct {
	Region int     `json:"region,omitempty"`
	Lat    float64 `json:"lat"`
	Lon    float64 `json:"lon"`
}

// NewCellKey quantizes a coordinate pair into its canonical key.
func NewCellKey(lat, lon float64) CellKey {
	return CellKey{Lat: RoundCoordinate(lat), Lon: RoundCoordinate(lon)}
}

// RegionKey returns the key of a region-keyed row (e.g. a Large Marine Ecosystem id).
func RegionKey(id int) CellKey {
	return CellKey{Region: id}
}

// RoundCoordinate rounds half away from zero to CoordinatePrecision decimals.
// Negative zero is folded into zero so both sides of a join agree bit for bit.
func RoundCoordinate(v float64) float64 {
	r := math.Round(v*coordinateScale) / coordinateScale
	if r == 0 {
		return 0
	}
	return r
}

// IsRegion reports whether the key identifies a region instead of a grid cell.
func (k CellKey) IsRegion() bool {
	return k.Region != 0
}

func (k CellKey) String() string {
	if k.IsRegion() {
		return fmt.Sprintf("region:%d", k.Region)
	}
	return fmt.Sprintf("%.4f,%.4f", k.Lat, k.Lon)
}
