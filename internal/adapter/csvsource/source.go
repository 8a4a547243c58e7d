// Package csvsource reads the per-parameter tables produced by the upstream
// growth model and the area grid from CSV files.
//
// Parameter tables live at <dir>/<scenario>/<parameter>_<scope>.csv. The
// header names the key columns ("lat", "lon" or "region") followed by one
// column per month offset, e.g. "lat,lon,-3,-2,-1,0,1". Empty cells and
// "nan" are read as missing values.
package csvsource

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/couchcryptid/seaweed-cluster/internal/domain"
	"github.com/couchcryptid/seaweed-cluster/internal/geojoin"
)

// AreaColumns names the columns of the area CSV.
type AreaColumns struct {
	Lat  string
	Lon  string
	Area string
}

// Source loads tables from a raw data directory.
type Source struct {
	dir      string
	areaFile string
	areaCols AreaColumns
	logger   *slog.Logger
}

// New creates a Source.
func New(dir, areaFile string, cols AreaColumns, logger *slog.Logger) *Source {
	return &Source{dir: dir, areaFile: areaFile, areaCols: cols, logger: logger}
}

// Path returns the CSV path of one parameter table.
func Path(dir, scenario, scope string, p domain.Parameter) string {
	return filepath.Join(dir, scenario, fmt.Sprintf("%s_%s.csv", p, scope))
}

// LoadParameter reads one parameter table of a unit.
func (s *Source) LoadParameter(ctx context.Context, scenario string, scope domain.Scope, p domain.Parameter) (domain.Table, error) {
	if err := ctx.Err(); err != nil {
		return domain.Table{}, err
	}
	path := Path(s.dir, scenario, scope.Name, p)
	f, err := os.Open(path)
	if err != nil {
		return domain.Table{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	t, err := ReadTable(f, p)
	if err != nil {
		return domain.Table{}, fmt.Errorf("read %s: %w", path, err)
	}
	s.logger.Debug("parameter table loaded", "path", path, "rows", t.Len(), "months", len(t.Months))
	return t, nil
}

// LoadArea reads the area grid.
func (s *Source) LoadArea(ctx context.Context) (geojoin.AreaGrid, error) {
	if err := ctx.Err(); err != nil {
		return geojoin.AreaGrid{}, err
	}
	f, err := os.Open(s.areaFile)
	if err != nil {
		return geojoin.AreaGrid{}, fmt.Errorf("open area file: %w", err)
	}
	defer func() { _ = f.Close() }()

	r := csv.NewReader(f)
	r.ReuseRecord = true
	header, err := r.Read()
	if err != nil {
		return geojoin.AreaGrid{}, fmt.Errorf("read area header: %w", err)
	}
	idx := columnIndex(header)
	latCol, okLat := idx[s.areaCols.Lat]
	lonCol, okLon := idx[s.areaCols.Lon]
	areaCol, okArea := idx[s.areaCols.Area]
	if !okLat || !okLon || !okArea {
		return geojoin.AreaGrid{}, fmt.Errorf("area file %s lacks columns %s, %s or %s",
			s.areaFile, s.areaCols.Lat, s.areaCols.Lon, s.areaCols.Area)
	}

	var lats, lons, areas []float64
	for line := 2; ; line++ {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return geojoin.AreaGrid{}, fmt.Errorf("read area line %d: %w", line, err)
		}
		lat, err1 := parseFloat(rec[latCol])
		lon, err2 := parseFloat(rec[lonCol])
		area, err3 := parseFloat(rec[areaCol])
		if err := errors.Join(err1, err2, err3); err != nil {
			return geojoin.AreaGrid{}, fmt.Errorf("area line %d: %w", line, err)
		}
		lats, lons, areas = append(lats, lat), append(lons, lon), append(areas, area)
	}
	s.logger.Debug("area grid loaded", "path", s.areaFile, "cells", len(lats))
	return geojoin.NewAreaGrid(lats, lons, areas)
}

// ReadTable parses a parameter table.
func ReadTable(r io.Reader, p domain.Parameter) (domain.Table, error) {
	cr := csv.NewReader(r)
	header, err := cr.Read()
	if err != nil {
		return domain.Table{}, fmt.Errorf("read header: %w", err)
	}
	idx := columnIndex(header)

	_, regionKeyed := idx["region"]
	_, hasLat := idx["lat"]
	_, hasLon := idx["lon"]
	if !regionKeyed && (!hasLat || !hasLon) {
		return domain.Table{}, fmt.Errorf("%w: header needs region or lat and lon columns", domain.ErrRaggedTable)
	}

	t := domain.Table{Parameter: p}
	var monthCols []int
	for i, name := range header {
		switch name = strings.TrimSpace(name); name {
		case "lat", "lon", "region":
			continue
		default:
			m, err := strconv.Atoi(name)
			if err != nil {
				return domain.Table{}, fmt.Errorf("%w: column %q is not a month offset", domain.ErrRaggedTable, name)
			}
			t.Months = append(t.Months, m)
			monthCols = append(monthCols, i)
		}
	}

	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return domain.Table{}, fmt.Errorf("line %d: %w", line, err)
		}
		k, err := rowKey(rec, idx, regionKeyed)
		if err != nil {
			return domain.Table{}, fmt.Errorf("line %d: %w", line, err)
		}
		row := make([]float64, len(monthCols))
		for j, c := range monthCols {
			if row[j], err = parseFloat(rec[c]); err != nil {
				return domain.Table{}, fmt.Errorf("line %d month %d: %w", line, t.Months[j], err)
			}
		}
		t.Keys = append(t.Keys, k)
		t.Values = append(t.Values, row)
	}
	if err := t.Validate(); err != nil {
		return domain.Table{}, err
	}
	return t, nil
}

// WriteTable writes t in the format read by ReadTable. Missing values are
// written as empty cells.
func WriteTable(w io.Writer, t domain.Table) error {
	cw := csv.NewWriter(w)
	regionKeyed := t.Len() > 0 && t.Keys[0].IsRegion()

	header := []string{"lat", "lon"}
	if regionKeyed {
		header = []string{"region"}
	}
	for _, m := range t.Months {
		header = append(header, strconv.Itoa(m))
	}
	if err := cw.Write(header); err != nil {
		return err
	}
	for i, k := range t.Keys {
		rec := make([]string, 0, len(header))
		if regionKeyed {
			rec = append(rec, strconv.Itoa(k.Region))
		} else {
			rec = append(rec, formatFloat(k.Lat), formatFloat(k.Lon))
		}
		for _, v := range t.Values[i] {
			rec = append(rec, formatFloat(v))
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func rowKey(rec []string, idx map[string]int, regionKeyed bool) (domain.CellKey, error) {
	if regionKeyed {
		id, err := strconv.Atoi(strings.TrimSpace(rec[idx["region"]]))
		if err != nil || id <= 0 {
			return domain.CellKey{}, fmt.Errorf("invalid region id %q", rec[idx["region"]])
		}
		return domain.RegionKey(id), nil
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(rec[idx["lat"]]), 64)
	if err != nil {
		return domain.CellKey{}, fmt.Errorf("invalid lat: %w", err)
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(rec[idx["lon"]]), 64)
	if err != nil {
		return domain.CellKey{}, fmt.Errorf("invalid lon: %w", err)
	}
	return domain.NewCellKey(lat, lon), nil
}

func columnIndex(header []string) map[string]int {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.TrimSpace(h)] = i
	}
	return idx
}

func parseFloat(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "nan") {
		return math.NaN(), nil
	}
	return strconv.ParseFloat(s, 64)
}

func formatFloat(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}
