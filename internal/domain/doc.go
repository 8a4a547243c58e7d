// Package domain models per-cell seaweed growth time series and the
// statistics derived from them.
//
// # Data Source
//
// An upstream growth model produces, for every scenario (a soot-injection
// magnitude such as "150tg", or "control") and every scope (the global grid,
// a regional grid, or the Large Marine Ecosystems), one table per tracked
// parameter: the four growth factors (salinity, nutrient, illumination,
// temperature), the three nutrient subfactors (nitrate, ammonium, phosphate)
// and the resulting growth rate. Values are unitless factors in [0, 1].
//
// # Table Conventions
//
// Rows:
//
//	Gridded tables are keyed by (lat, lon), rounded to CoordinatePrecision
//	decimals. Two sources that disagree past the fourth decimal describe the
//	same cell. Region-keyed tables use a positive region id instead.
//
// Columns:
//
//	Month offsets from the triggering event. Negative offsets are the
//	pre-event months prepended to each series, e.g. -3, -2, -1, 0, 1, ...
//
// Weights:
//
//	Cell surface area from an independent area grid, attached by an inner
//	join on the rounded key. Cells without area (land) are dropped.
//
// # Clusters
//
// Labels are computed once from the growth-rate table and broadcast to every
// other parameter table by key. Stored labels are 0-based and numbered by
// first appearance in row order; reports show them 1-based (see [DisplayLabel]).
package domain
